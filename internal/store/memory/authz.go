package memory

import (
	"context"
	"sort"
	"time"

	"github.com/contenthub/contenthub/internal/authz"
)

// PermissionRepository implements authz.PermissionRepository
type PermissionRepository struct {
	s *Store
}

// Create inserts a permission
func (r *PermissionRepository) Create(_ context.Context, p *authz.Permission) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.permByName[p.Name]; ok {
		return authz.ErrPermissionAlreadyExists
	}
	cp := *p
	r.s.permissions[p.ID] = &cp
	r.s.permByName[p.Name] = p.ID
	return nil
}

// GetByName retrieves a permission by canonical name
func (r *PermissionRepository) GetByName(_ context.Context, name string) (*authz.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.permByName[name]
	if !ok {
		return nil, authz.ErrPermissionNotFound
	}
	cp := *r.s.permissions[id]
	return &cp, nil
}

// ExistsByName checks whether a permission exists
func (r *PermissionRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.permByName[name]
	return ok, nil
}

// List retrieves every permission ordered by name
func (r *PermissionRepository) List(_ context.Context) ([]*authz.Permission, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*authz.Permission, 0, len(r.s.permissions))
	for _, p := range r.s.permissions {
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// RoleRepository implements authz.RoleRepository
type RoleRepository struct {
	s *Store
}

// Create inserts a role and its permission associations
func (r *RoleRepository) Create(_ context.Context, role *authz.Role) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.roleByName[role.Name]; ok {
		return authz.ErrRoleAlreadyExists
	}

	row := &roleRow{role: *role}
	row.role.Permissions = nil
	if row.role.Version == 0 {
		row.role.Version = 1
	}
	seen := make(map[string]bool)
	for _, p := range role.Permissions {
		if !seen[p.ID] {
			seen[p.ID] = true
			row.permissionIDs = append(row.permissionIDs, p.ID)
		}
	}

	r.s.roles[role.ID] = row
	r.s.roleByName[role.Name] = role.ID
	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(_ context.Context, id string) (*authz.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	row, ok := r.s.roles[id]
	if !ok {
		return nil, authz.ErrRoleNotFound
	}
	return r.hydrate(row), nil
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(_ context.Context, name string) (*authz.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.roleByName[name]
	if !ok {
		return nil, authz.ErrRoleNotFound
	}
	return r.hydrate(r.s.roles[id]), nil
}

// ExistsByName checks whether a role exists
func (r *RoleRepository) ExistsByName(_ context.Context, name string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.roleByName[name]
	return ok, nil
}

// List retrieves all roles ordered by name
func (r *RoleRepository) List(_ context.Context) ([]*authz.Role, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]*authz.Role, 0, len(r.s.roles))
	for _, row := range r.s.roles {
		out = append(out, r.hydrate(row))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ReplacePermissions replaces the permission set of a role and bumps its version
func (r *RoleRepository) ReplacePermissions(_ context.Context, roleID string, permissionIDs []string, expectedVersion int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.roles[roleID]
	if !ok {
		return authz.ErrRoleNotFound
	}
	if expectedVersion != 0 && expectedVersion != row.role.Version {
		return authz.ErrRoleVersionConflict
	}
	for _, id := range permissionIDs {
		if _, ok := r.s.permissions[id]; !ok {
			return authz.ErrPermissionNotFound
		}
	}

	ids := make([]string, 0, len(permissionIDs))
	for _, id := range permissionIDs {
		if !containsString(ids, id) {
			ids = append(ids, id)
		}
	}
	row.permissionIDs = ids
	row.role.Version++
	row.role.UpdatedAt = time.Now()
	return nil
}

// Delete deletes a role and unassigns it from every user
func (r *RoleRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	row, ok := r.s.roles[id]
	if !ok {
		return authz.ErrRoleNotFound
	}
	delete(r.s.roles, id)
	delete(r.s.roleByName, row.role.Name)
	for _, u := range r.s.users {
		u.RoleIDs = removeString(u.RoleIDs, id)
	}
	return nil
}

// hydrate must be called with the lock held
func (r *RoleRepository) hydrate(row *roleRow) *authz.Role {
	role := row.role
	role.Permissions = make([]*authz.Permission, 0, len(row.permissionIDs))
	for _, id := range row.permissionIDs {
		if p, ok := r.s.permissions[id]; ok {
			cp := *p
			role.Permissions = append(role.Permissions, &cp)
		}
	}
	return &role
}
