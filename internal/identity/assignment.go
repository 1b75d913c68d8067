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
	"errors"
	"fmt"
	"strings"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/authz"
)

// AssignRole assigns a role to a user of the current actor's tenant
func (s *Service) AssignRole(ctx context.Context, userID, roleName string) error {
	tenantID, user, err := s.targetUser(ctx, userID)
	if err != nil {
		return err
	}
	role, err := s.grantableRole(ctx, roleName, authz.ResourceUsers, authz.ActionUpdate)
	if err != nil {
		return err
	}
	if err := s.repo.AssignRole(ctx, user.ID, role.ID); err != nil {
		return err
	}
	s.audit(ctx, tenantID, audit.TypeRoleAssigned, role.Name, map[string]any{
		audit.AttrTargetUser: user.ID,
		audit.AttrRoleID:     role.ID,
	})
	return nil
}

// RevokeRole removes a role from a user of the current actor's tenant
func (s *Service) RevokeRole(ctx context.Context, userID, roleName string) error {
	tenantID, user, err := s.targetUser(ctx, userID)
	if err != nil {
		return err
	}
	role, err := s.assignableRole(ctx, roleName)
	if err != nil {
		return err
	}
	if !user.HasRole(role.ID) {
		return ErrRoleNotAssigned
	}
	if err := s.repo.RevokeRole(ctx, user.ID, role.ID); err != nil {
		return err
	}
	s.audit(ctx, tenantID, audit.TypeRoleRevoked, role.Name, map[string]any{
		audit.AttrTargetUser: user.ID,
		audit.AttrRoleID:     role.ID,
	})
	return nil
}

// GrantPermission grants a catalog permission directly to a user of the current actor's tenant
func (s *Service) GrantPermission(ctx context.Context, userID, permissionName string) error {
	tenantID, user, err := s.targetUser(ctx, userID)
	if err != nil {
		return err
	}
	perm, err := s.catalogPermission(ctx, permissionName)
	if err != nil {
		return err
	}
	if err := authz.RequireHeld(ctx, authz.ResourceUsers, authz.ActionUpdate, []string{perm.Name}); err != nil {
		return err
	}
	if err := s.repo.GrantPermission(ctx, user.ID, perm); err != nil {
		return err
	}
	s.audit(ctx, tenantID, audit.TypePermissionGranted, perm.Name, map[string]any{
		audit.AttrTargetUser: user.ID,
	})
	return nil
}

// RevokePermission removes a direct grant. Role-derived permissions are unaffected.
func (s *Service) RevokePermission(ctx context.Context, userID, permissionName string) error {
	tenantID, user, err := s.targetUser(ctx, userID)
	if err != nil {
		return err
	}
	perm, err := s.catalogPermission(ctx, permissionName)
	if err != nil {
		return err
	}
	if err := s.repo.RevokePermission(ctx, user.ID, perm); err != nil {
		return err
	}
	s.audit(ctx, tenantID, audit.TypePermissionRevoked, perm.Name, map[string]any{
		audit.AttrTargetUser: user.ID,
	})
	return nil
}

// assignableRole loads a role by name. Only super admins may hand out SUPER_ADMIN.
func (s *Service) assignableRole(ctx context.Context, name string) (*authz.Role, error) {
	role, err := s.roleRepo.GetByName(ctx, strings.TrimSpace(name))
	if err != nil {
		return nil, err
	}
	if role.Name == authz.RoleSuperAdmin && !authz.IsSuperAdmin(authz.ActorFromContext(ctx)) {
		return nil, &authz.PermissionDeniedError{
			Resource: authz.ResourceRoles,
			Action:   authz.ActionUpdate,
			Message:  "Only super administrators can grant the SUPER_ADMIN role",
		}
	}
	return role, nil
}

// grantableRole is assignableRole restricted to roles whose permissions the actor already holds
func (s *Service) grantableRole(ctx context.Context, name string, resource authz.Resource, action authz.Action) (*authz.Role, error) {
	role, err := s.assignableRole(ctx, name)
	if err != nil {
		return nil, err
	}
	if err := authz.RequireHeld(ctx, resource, action, role.PermissionNames()); err != nil {
		return nil, err
	}
	return role, nil
}

func (s *Service) catalogPermission(ctx context.Context, name string) (*authz.Permission, error) {
	if _, _, err := authz.ParsePermissionName(name); err != nil {
		return nil, err
	}
	perm, err := s.permRepo.GetByName(ctx, name)
	if errors.Is(err, authz.ErrPermissionNotFound) {
		return nil, fmt.Errorf("%w: %s is not in the catalog", authz.ErrInvalidPermission, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get permission %s: %w", name, err)
	}
	return perm, nil
}
