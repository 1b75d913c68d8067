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
	"time"

	"github.com/go-chi/chi/v5"
)

// ListUsers lists the users of the actor's organization
func (h *Handler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identityService.ListUsers(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, mapSlice(users, newUserResponse))
}

// AssignRoleRequest names a role to assign
type AssignRoleRequest struct {
	Role string `json:"role"`
}

// AssignRole assigns a role to a user of the actor's organization
func (h *Handler) AssignRole(w http.ResponseWriter, r *http.Request) {
	var req AssignRoleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.identityService.AssignRole(r.Context(), chi.URLParam(r, "userID"), req.Role); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokeRole removes a role from a user of the actor's organization
func (h *Handler) RevokeRole(w http.ResponseWriter, r *http.Request) {
	if err := h.identityService.RevokeRole(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "roleName")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GrantPermissionRequest names a catalog permission to grant directly
type GrantPermissionRequest struct {
	Permission string `json:"permission"`
}

// GrantPermission grants a permission directly to a user
func (h *Handler) GrantPermission(w http.ResponseWriter, r *http.Request) {
	var req GrantPermissionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := h.identityService.GrantPermission(r.Context(), chi.URLParam(r, "userID"), req.Permission); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RevokePermission removes a directly granted permission from a user
func (h *Handler) RevokePermission(w http.ResponseWriter, r *http.Request) {
	if err := h.identityService.RevokePermission(r.Context(), chi.URLParam(r, "userID"), chi.URLParam(r, "permission")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UserStatusRequest enables or disables a user
type UserStatusRequest struct {
	Enabled *bool `json:"enabled"`
}

// SetUserStatus enables or disables a user of the actor's organization
func (h *Handler) SetUserStatus(w http.ResponseWriter, r *http.Request) {
	var req UserStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		respondError(w, http.StatusBadRequest, "enabled is required")
		return
	}
	if err := h.identityService.SetUserEnabled(r.Context(), chi.URLParam(r, "userID"), *req.Enabled); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// InvitationRequest invites an email address into the actor's organization
type InvitationRequest struct {
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// InvitationResponse carries the token the invitee redeems
type InvitationResponse struct {
	ID        string    `json:"id"`
	Token     string    `json:"token"`
	Email     string    `json:"email"`
	Roles     []string  `json:"roles"`
	ExpiresAt time.Time `json:"expires_at"`
}

// CreateInvitation invites a user. Roles default to EDITOR.
func (h *Handler) CreateInvitation(w http.ResponseWriter, r *http.Request) {
	var req InvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	inv, err := h.identityService.Invite(r.Context(), req.Email, req.Roles)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, InvitationResponse{
		ID:        inv.ID,
		Token:     inv.Token,
		Email:     inv.Email,
		Roles:     inv.RoleNames,
		ExpiresAt: inv.ExpiresAt,
	})
}
