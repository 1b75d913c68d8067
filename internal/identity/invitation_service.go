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

package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/id"
	"github.com/contenthub/contenthub/internal/tenant"
)

// DefaultInvitationRoles is used when an invitation names no roles.
var DefaultInvitationRoles = []string{authz.RoleEditor}

// Invite creates an invitation into the current actor's tenant
func (s *Service) Invite(ctx context.Context, email string, roleNames []string) (*Invitation, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	email, err = normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if err := s.ensureEmailAvailable(ctx, email); err != nil {
		return nil, err
	}

	if len(roleNames) == 0 {
		roleNames = DefaultInvitationRoles
	}
	roles := make([]string, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := s.grantableRole(ctx, name, authz.ResourceInvitations, authz.ActionCreate)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role.Name)
	}

	now := s.now()
	inv := &Invitation{
		ID:        id.NewUUIDv7(),
		Token:     id.NewToken(),
		TenantID:  tenantID,
		Email:     email,
		RoleNames: roles,
		ExpiresAt: now.Add(s.policy.InvitationTTL),
		CreatedAt: now,
	}
	if actor := authz.ActorFromContext(ctx); actor != nil {
		inv.InvitedBy = actor.UserID
	}

	if err := s.invitations.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("failed to create invitation: %w", err)
	}

	s.audit(ctx, tenantID, audit.TypeInvitationCreated, "invitation", map[string]any{
		audit.AttrEmail: email,
		audit.AttrRoles: roles,
	})
	return inv, nil
}

// AcceptInvitation creates the invited user in the inviter's tenant
// with the roles named on the invitation.
func (s *Service) AcceptInvitation(ctx context.Context, token, password, fullName string) (*User, error) {
	inv, err := s.invitations.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if inv.AcceptedAt != nil {
		return nil, ErrInvitationUsed
	}
	if inv.IsExpired(s.now()) {
		return nil, ErrInvitationExpired
	}
	if !isStrongPassword(password) {
		return nil, ErrWeakPassword
	}
	if err := s.ensureEmailAvailable(ctx, inv.Email); err != nil {
		return nil, err
	}

	roleIDs := make([]string, 0, len(inv.RoleNames))
	for _, name := range inv.RoleNames {
		role, err := s.roleRepo.GetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load role %s: %w", name, err)
		}
		roleIDs = append(roleIDs, role.ID)
	}

	user, err := s.createUser(ctx, &Account{
		User: &User{
			TenantID: inv.TenantID,
			Email:    inv.Email,
			FullName: strings.TrimSpace(fullName),
			RoleIDs:  roleIDs,
		},
		InvitationID: inv.ID,
		AcceptedAt:   s.now(),
	}, password)
	if err != nil {
		return nil, err
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeInvitationAccepted,
		TenantID: inv.TenantID,
		ActorID:  user.ID,
		Resource: "invitation",
		Metadata: map[string]any{
			audit.AttrEmail: user.Email,
			"invited_by":    inv.InvitedBy,
		},
	})
	return user, nil
}
