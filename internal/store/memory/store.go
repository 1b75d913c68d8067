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

// Package memory provides process-local implementations of every repository.
// It backs the "memory" store driver and the unit tests of the services.
package memory

import (
	"sync"

	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/content"
	"github.com/contenthub/contenthub/internal/identity"
	"github.com/contenthub/contenthub/internal/tenant"
)

// Store holds all entities behind a single lock.
// Values handed out are copies; callers never alias stored state.
type Store struct {
	mu sync.RWMutex

	permissions map[string]*authz.Permission // by ID
	permByName  map[string]string

	roles      map[string]*roleRow // by ID
	roleByName map[string]string

	tenants map[string]*tenant.Tenant

	users       map[string]*identity.User
	userByEmail map[string]string
	credentials map[string]*identity.Credentials

	invitations map[string]*identity.Invitation
	invByToken  map[string]string

	templates map[string]*content.Template
}

var (
	_ authz.PermissionRepository    = (*PermissionRepository)(nil)
	_ authz.RoleRepository          = (*RoleRepository)(nil)
	_ tenant.Repository             = (*TenantRepository)(nil)
	_ identity.UserRepository       = (*UserRepository)(nil)
	_ identity.InvitationRepository = (*InvitationRepository)(nil)
	_ content.Repository            = (*TemplateRepository)(nil)
)

type roleRow struct {
	role          authz.Role
	permissionIDs []string
}

// New creates an empty store
func New() *Store {
	return &Store{
		permissions: make(map[string]*authz.Permission),
		permByName:  make(map[string]string),
		roles:       make(map[string]*roleRow),
		roleByName:  make(map[string]string),
		tenants:     make(map[string]*tenant.Tenant),
		users:       make(map[string]*identity.User),
		userByEmail: make(map[string]string),
		credentials: make(map[string]*identity.Credentials),
		invitations: make(map[string]*identity.Invitation),
		invByToken:  make(map[string]string),
		templates:   make(map[string]*content.Template),
	}
}

// Permissions returns the permission repository view of the store
func (s *Store) Permissions() *PermissionRepository { return &PermissionRepository{s: s} }

// Roles returns the role repository view of the store
func (s *Store) Roles() *RoleRepository { return &RoleRepository{s: s} }

// Tenants returns the tenant repository view of the store
func (s *Store) Tenants() *TenantRepository { return &TenantRepository{s: s} }

// Users returns the user repository view of the store
func (s *Store) Users() *UserRepository { return &UserRepository{s: s} }

// Invitations returns the invitation repository view of the store
func (s *Store) Invitations() *InvitationRepository { return &InvitationRepository{s: s} }

// Templates returns the template repository view of the store
func (s *Store) Templates() *TemplateRepository { return &TemplateRepository{s: s} }

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	return append([]string(nil), in...)
}

func removeString(in []string, v string) []string {
	out := in[:0]
	for _, s := range in {
		if s != v {
			out = append(out, s)
		}
	}
	return out
}

func containsString(in []string, v string) bool {
	for _, s := range in {
		if s == v {
			return true
		}
	}
	return false
}
