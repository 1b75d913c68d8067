// Copyright 2026 The ContentHub Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package http

import (
	"time"

	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/content"
	"github.com/contenthub/contenthub/internal/identity"
)

// Response bodies. Domain types stay free of JSON tags.

type permissionResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description"`
}

func newPermissionResponse(p *authz.Permission) permissionResponse {
	return permissionResponse{
		ID:          p.ID,
		Name:        p.Name,
		Resource:    string(p.Resource),
		Action:      string(p.Action),
		Description: p.Description,
	}
}

type roleResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsSystem    bool      `json:"is_system"`
	Version     int       `json:"version"`
	Permissions []string  `json:"permissions"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newRoleResponse(r *authz.Role) roleResponse {
	return roleResponse{
		ID:          r.ID,
		Name:        r.Name,
		Description: r.Description,
		IsSystem:    r.IsSystem,
		Version:     r.Version,
		Permissions: r.PermissionNames(),
		UpdatedAt:   r.UpdatedAt,
	}
}

type userResponse struct {
	ID          string    `json:"id"`
	TenantID    string    `json:"tenant_id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	Enabled     bool      `json:"enabled"`
	RoleIDs     []string  `json:"role_ids"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"created_at"`
}

func newUserResponse(u *identity.User) userResponse {
	return userResponse{
		ID:          u.ID,
		TenantID:    u.TenantID,
		Email:       u.Email,
		FullName:    u.FullName,
		Enabled:     u.Enabled,
		RoleIDs:     nonNil(u.RoleIDs),
		Permissions: nonNil(u.PermissionNames),
		CreatedAt:   u.CreatedAt,
	}
}

type templateResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Locale    string    `json:"locale"`
	Body      string    `json:"body"`
	CreatedBy string    `json:"created_by"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func newTemplateResponse(t *content.Template) templateResponse {
	return templateResponse{
		ID:        t.ID,
		Name:      t.Name,
		Locale:    t.Locale,
		Body:      t.Body,
		CreatedBy: t.CreatedBy,
		CreatedAt: t.CreatedAt,
		UpdatedAt: t.UpdatedAt,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
