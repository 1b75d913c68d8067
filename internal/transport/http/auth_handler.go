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

	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/identity"
	"github.com/go-chi/chi/v5"
)

// RegisterRequest represents registration data
type RegisterRequest struct {
	Email        string `json:"email"`
	Password     string `json:"password"`
	FullName     string `json:"full_name"`
	Organization string `json:"organization"`
}

// Register handles self-registration. The caller becomes ADMIN of a new
// organization, or SUPER_ADMIN when it is the first user of the installation.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.identityService.Register(r.Context(), identity.Registration{
		Email:            req.Email,
		Password:         req.Password,
		FullName:         req.FullName,
		OrganizationName: req.Organization,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, newUserResponse(user))
}

// LoginRequest represents login credentials
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse carries the issued bearer token
type LoginResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      string    `json:"user_id"`
}

// Login authenticates a user and issues a bearer token
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	user, err := h.identityService.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}

	token, expiresAt, err := h.tokens.Issue(user.ID, user.TenantID, user.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, LoginResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresAt:   expiresAt,
		UserID:      user.ID,
	})
}

// AcceptInvitationRequest represents the invitee's credentials
type AcceptInvitationRequest struct {
	Password string `json:"password"`
	FullName string `json:"full_name"`
}

// AcceptInvitation creates the invited user in the inviter's organization
func (h *Handler) AcceptInvitation(w http.ResponseWriter, r *http.Request) {
	var req AcceptInvitationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	user, err := h.identityService.AcceptInvitation(r.Context(), chi.URLParam(r, "token"), req.Password, req.FullName)
	if err != nil {
		writeError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, newUserResponse(user))
}

// CurrentUserResponse describes the actor and what it may do
type CurrentUserResponse struct {
	UserID                string              `json:"user_id"`
	TenantID              string              `json:"tenant_id"`
	Email                 string              `json:"email"`
	Roles                 []string            `json:"roles"`
	Permissions           []string            `json:"permissions"`
	PermissionsByResource map[string][]string `json:"permissions_by_resource"`
	IsSuperAdmin          bool                `json:"is_super_admin"`
}

// GetCurrentUser returns the authenticated actor with its effective permissions
func (h *Handler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	actor := authz.ActorFromContext(r.Context())
	if actor == nil {
		writeError(w, r, authz.ErrAuthenticationRequired)
		return
	}

	respondJSON(w, http.StatusOK, CurrentUserResponse{
		UserID:                actor.UserID,
		TenantID:              actor.TenantID,
		Email:                 actor.Email,
		Roles:                 actor.RoleNames(),
		Permissions:           nonNil(authz.EffectivePermissions(actor)),
		PermissionsByResource: authz.PermissionsByResource(actor),
		IsSuperAdmin:          authz.IsSuperAdmin(actor),
	})
}
