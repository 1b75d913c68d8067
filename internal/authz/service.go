package authz

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/id"
)

// Service provides role and permission administration
type Service struct {
	permRepo    PermissionRepository
	roleRepo    RoleRepository
	auditLogger audit.Logger
}

// NewService creates a new authorization service
func NewService(permRepo PermissionRepository, roleRepo RoleRepository, auditLogger audit.Logger) *Service {
	return &Service{
		permRepo:    permRepo,
		roleRepo:    roleRepo,
		auditLogger: auditLogger,
	}
}

// ListPermissions returns the whole catalog
func (s *Service) ListPermissions(ctx context.Context) ([]*Permission, error) {
	perms, err := s.permRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	return perms, nil
}

// ListRoles returns every role with its permissions
func (s *Service) ListRoles(ctx context.Context) ([]*Role, error) {
	roles, err := s.roleRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	return roles, nil
}

// GetRole retrieves a role by ID
func (s *Service) GetRole(ctx context.Context, roleID string) (*Role, error) {
	return s.roleRepo.GetByID(ctx, roleID)
}

// GetRoleByName retrieves a role by name
func (s *Service) GetRoleByName(ctx context.Context, name string) (*Role, error) {
	return s.roleRepo.GetByName(ctx, name)
}

// CreateRole creates an ad hoc role holding an arbitrary subset of the catalog
func (s *Service) CreateRole(ctx context.Context, name, description string, permissionNames []string) (*Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: role name is required", ErrInvalidRole)
	}

	exists, err := s.roleRepo.ExistsByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to check role: %w", err)
	}
	if exists {
		return nil, ErrRoleAlreadyExists
	}

	perms, err := s.lookupPermissions(ctx, permissionNames)
	if err != nil {
		return nil, err
	}
	if err := RequireHeld(ctx, ResourceRoles, ActionCreate, namesOf(perms)); err != nil {
		return nil, err
	}

	now := time.Now()
	role := &Role{
		ID:          id.NewUUIDv7(),
		Name:        name,
		Description: description,
		Permissions: perms,
		Version:     1,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.roleRepo.Create(ctx, role); err != nil {
		return nil, err
	}

	s.audit(ctx, audit.TypeRoleCreated, role.Name, map[string]any{
		audit.AttrRoleID:      role.ID,
		audit.AttrPermissions: role.PermissionNames(),
	})
	return role, nil
}

// UpdateRolePermissions replaces the permission set of a role.
// expectedVersion of zero disables the concurrent-modification check.
// Roles are installation-wide, so system roles are editable by super admins only.
func (s *Service) UpdateRolePermissions(ctx context.Context, roleID string, permissionNames []string, expectedVersion int) (*Role, error) {
	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return nil, err
	}
	actor := ActorFromContext(ctx)
	if actor != nil && (role.IsSystem || IsCanonicalRole(role.Name)) && !IsSuperAdmin(actor) {
		return nil, &PermissionDeniedError{
			Resource: ResourceRoles,
			Action:   ActionUpdate,
			Message:  "Only super administrators can modify system roles",
		}
	}

	perms, err := s.lookupPermissions(ctx, permissionNames)
	if err != nil {
		return nil, err
	}
	if err := RequireHeld(ctx, ResourceRoles, ActionUpdate, namesOf(perms)); err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	if err := s.roleRepo.ReplacePermissions(ctx, role.ID, ids, expectedVersion); err != nil {
		return nil, err
	}

	s.audit(ctx, audit.TypeRoleUpdated, role.Name, map[string]any{
		audit.AttrRoleID:      role.ID,
		audit.AttrPermissions: permissionNames,
	})
	return s.roleRepo.GetByID(ctx, role.ID)
}

// DeleteRole deletes an ad hoc role. Canonical roles are never deleted.
func (s *Service) DeleteRole(ctx context.Context, roleID string) error {
	role, err := s.roleRepo.GetByID(ctx, roleID)
	if err != nil {
		return err
	}
	if role.IsSystem || IsCanonicalRole(role.Name) {
		return ErrSystemRole
	}
	if err := s.roleRepo.Delete(ctx, roleID); err != nil {
		return err
	}
	s.audit(ctx, audit.TypeRoleDeleted, role.Name, map[string]any{audit.AttrRoleID: role.ID})
	return nil
}

// lookupPermissions validates canonical names and resolves them to catalog rows.
// Duplicates collapse to a single entry.
func (s *Service) lookupPermissions(ctx context.Context, names []string) ([]*Permission, error) {
	set := newNameSet()
	for _, n := range names {
		if _, _, err := ParsePermissionName(n); err != nil {
			return nil, err
		}
		set.add(n)
	}

	perms := make([]*Permission, 0, len(set.ordered))
	for _, n := range set.ordered {
		p, err := s.permRepo.GetByName(ctx, n)
		if errors.Is(err, ErrPermissionNotFound) {
			return nil, fmt.Errorf("%w: %s is not in the catalog", ErrInvalidPermission, n)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to get permission %s: %w", n, err)
		}
		perms = append(perms, p)
	}
	return perms, nil
}

func namesOf(perms []*Permission) []string {
	names := make([]string, 0, len(perms))
	for _, p := range perms {
		names = append(names, p.Name)
	}
	return names
}

func (s *Service) audit(ctx context.Context, eventType, resource string, metadata map[string]any) {
	event := audit.Event{
		Type:     eventType,
		Resource: resource,
		Metadata: metadata,
	}
	if actor := ActorFromContext(ctx); actor != nil {
		event.ActorID = actor.UserID
		event.TenantID = actor.TenantID
	}
	s.auditLogger.Log(ctx, event)
}
