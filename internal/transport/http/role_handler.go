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
	"net/http"

	"github.com/go-chi/chi/v5"
)

// ListPermissions returns the permission catalog
func (h *Handler) ListPermissions(w http.ResponseWriter, r *http.Request) {
	perms, err := h.authzService.ListPermissions(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(perms, newPermissionResponse))
}

// ListRoles returns every role with its permissions
func (h *Handler) ListRoles(w http.ResponseWriter, r *http.Request) {
	roles, err := h.authzService.ListRoles(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(roles, newRoleResponse))
}

// GetRole returns a single role
func (h *Handler) GetRole(w http.ResponseWriter, r *http.Request) {
	role, err := h.authzService.GetRole(r.Context(), chi.URLParam(r, "roleID"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newRoleResponse(role))
}

// CreateRoleRequest represents an ad hoc role
type CreateRoleRequest struct {
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions"`
}

// CreateRole creates an ad hoc role
func (h *Handler) CreateRole(w http.ResponseWriter, r *http.Request) {
	var req CreateRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.authzService.CreateRole(r.Context(), req.Name, req.Description, req.Permissions)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, newRoleResponse(role))
}

// UpdateRolePermissionsRequest replaces the permission set of a role.
// Version is the role version the client last read; zero skips the check.
type UpdateRolePermissionsRequest struct {
	Permissions []string `json:"permissions"`
	Version     int      `json:"version"`
}

// UpdateRolePermissions replaces the permission set of a role
func (h *Handler) UpdateRolePermissions(w http.ResponseWriter, r *http.Request) {
	var req UpdateRolePermissionsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	role, err := h.authzService.UpdateRolePermissions(r.Context(), chi.URLParam(r, "roleID"), req.Permissions, req.Version)
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, newRoleResponse(role))
}

// DeleteRole deletes an ad hoc role
func (h *Handler) DeleteRole(w http.ResponseWriter, r *http.Request) {
	if err := h.authzService.DeleteRole(r.Context(), chi.URLParam(r, "roleID")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
