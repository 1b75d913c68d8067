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

package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/contenthub/contenthub/internal/authz"
	"github.com/jackc/pgx/v5"
)

// PermissionRepository implements authz.PermissionRepository
type PermissionRepository struct {
	db *DB
}

// NewPermissionRepository creates a new permission repository
func NewPermissionRepository(db *DB) *PermissionRepository {
	return &PermissionRepository{db: db}
}

// Create inserts a catalog entry
func (r *PermissionRepository) Create(ctx context.Context, p *authz.Permission) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO permissions (id, name, resource, action, description, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.ID, p.Name, string(p.Resource), string(p.Action), p.Description, p.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return authz.ErrPermissionAlreadyExists
		}
		return fmt.Errorf("failed to create permission: %w", err)
	}
	return nil
}

// GetByName retrieves a permission by canonical name
func (r *PermissionRepository) GetByName(ctx context.Context, name string) (*authz.Permission, error) {
	p, err := scanPermission(r.db.pool.QueryRow(ctx, `
		SELECT id, name, resource, action, description, created_at
		FROM permissions
		WHERE name = $1
	`, name))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrPermissionNotFound
		}
		return nil, fmt.Errorf("failed to get permission: %w", err)
	}
	return p, nil
}

// ExistsByName checks whether a permission is in the catalog
func (r *PermissionRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM permissions WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check permission: %w", err)
	}
	return exists, nil
}

// List retrieves the catalog ordered by name
func (r *PermissionRepository) List(ctx context.Context) ([]*authz.Permission, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT id, name, resource, action, description, created_at
		FROM permissions
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list permissions: %w", err)
	}
	defer rows.Close()

	var perms []*authz.Permission
	for rows.Next() {
		p, err := scanPermission(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan permission: %w", err)
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

func scanPermission(row pgx.Row) (*authz.Permission, error) {
	var p authz.Permission
	var resource, action string
	if err := row.Scan(&p.ID, &p.Name, &resource, &action, &p.Description, &p.CreatedAt); err != nil {
		return nil, err
	}
	p.Resource = authz.Resource(resource)
	p.Action = authz.Action(action)
	return &p, nil
}

// RoleRepository implements authz.RoleRepository
type RoleRepository struct {
	db *DB
}

// NewRoleRepository creates a new role repository
func NewRoleRepository(db *DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// Create inserts a role and its permission associations atomically
func (r *RoleRepository) Create(ctx context.Context, role *authz.Role) error {
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `
			INSERT INTO roles (id, name, description, is_system, version, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`, role.ID, role.Name, role.Description, role.IsSystem, role.Version, role.CreatedAt, role.UpdatedAt)
		if err != nil {
			return err
		}
		return insertRolePermissions(ctx, tx, role.ID, permissionIDs(role.Permissions))
	})
	if err != nil {
		if isUniqueViolation(err) {
			return authz.ErrRoleAlreadyExists
		}
		if isForeignKeyViolation(err) {
			return authz.ErrPermissionNotFound
		}
		return fmt.Errorf("failed to create role: %w", err)
	}
	return nil
}

// GetByID retrieves a role by ID
func (r *RoleRepository) GetByID(ctx context.Context, id string) (*authz.Role, error) {
	return r.getOne(ctx, "r.id = $1", id)
}

// GetByName retrieves a role by name
func (r *RoleRepository) GetByName(ctx context.Context, name string) (*authz.Role, error) {
	return r.getOne(ctx, "r.name = $1", name)
}

// ExistsByName checks whether a role exists
func (r *RoleRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var exists bool
	err := r.db.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM roles WHERE name = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check role: %w", err)
	}
	return exists, nil
}

// List retrieves all roles ordered by name
func (r *RoleRepository) List(ctx context.Context) ([]*authz.Role, error) {
	rows, err := r.db.pool.Query(ctx, `
		SELECT r.id, r.name, r.description, r.is_system, r.version, r.created_at, r.updated_at
		FROM roles r
		ORDER BY r.name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	var roles []*authz.Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}

	if err := r.loadPermissions(ctx, roles); err != nil {
		return nil, err
	}
	return roles, nil
}

// ReplacePermissions swaps the permission set of a role and bumps its version.
// The role row is locked for the duration of the transaction.
func (r *RoleRepository) ReplacePermissions(ctx context.Context, roleID string, ids []string, expectedVersion int) error {
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		var version int
		err := tx.QueryRow(ctx, `SELECT version FROM roles WHERE id = $1 FOR UPDATE`, roleID).Scan(&version)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return authz.ErrRoleNotFound
			}
			return err
		}
		if expectedVersion != 0 && expectedVersion != version {
			return authz.ErrRoleVersionConflict
		}

		if _, err := tx.Exec(ctx, `DELETE FROM role_permissions WHERE role_id = $1`, roleID); err != nil {
			return err
		}
		if err := insertRolePermissions(ctx, tx, roleID, ids); err != nil {
			return err
		}
		_, err = tx.Exec(ctx, `
			UPDATE roles SET version = version + 1, updated_at = $2
			WHERE id = $1
		`, roleID, time.Now())
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, authz.ErrRoleNotFound), errors.Is(err, authz.ErrRoleVersionConflict):
		return err
	case isForeignKeyViolation(err):
		return authz.ErrPermissionNotFound
	default:
		return fmt.Errorf("failed to replace role permissions: %w", err)
	}
}

// Delete deletes a role; assignments cascade
func (r *RoleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.pool.Exec(ctx, `DELETE FROM roles WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.RowsAffected() == 0 {
		return authz.ErrRoleNotFound
	}
	return nil
}

func (r *RoleRepository) getOne(ctx context.Context, where string, arg any) (*authz.Role, error) {
	role, err := scanRole(r.db.pool.QueryRow(ctx, `
		SELECT r.id, r.name, r.description, r.is_system, r.version, r.created_at, r.updated_at
		FROM roles r
		WHERE `+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, authz.ErrRoleNotFound
		}
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	if err := r.loadPermissions(ctx, []*authz.Role{role}); err != nil {
		return nil, err
	}
	return role, nil
}

// loadPermissions fills the permission sets of roles with a single query.
func (r *RoleRepository) loadPermissions(ctx context.Context, roles []*authz.Role) error {
	if len(roles) == 0 {
		return nil
	}
	byID := make(map[string]*authz.Role, len(roles))
	ids := make([]string, 0, len(roles))
	for _, role := range roles {
		role.Permissions = []*authz.Permission{}
		byID[role.ID] = role
		ids = append(ids, role.ID)
	}

	rows, err := r.db.pool.Query(ctx, `
		SELECT rp.role_id, p.id, p.name, p.resource, p.action, p.description, p.created_at
		FROM role_permissions rp
		JOIN permissions p ON p.id = rp.permission_id
		WHERE rp.role_id = ANY($1)
		ORDER BY p.name
	`, ids)
	if err != nil {
		return fmt.Errorf("failed to load role permissions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var roleID, resource, action string
		var p authz.Permission
		if err := rows.Scan(&roleID, &p.ID, &p.Name, &resource, &action, &p.Description, &p.CreatedAt); err != nil {
			return fmt.Errorf("failed to scan role permission: %w", err)
		}
		p.Resource = authz.Resource(resource)
		p.Action = authz.Action(action)
		if role, ok := byID[roleID]; ok {
			role.Permissions = append(role.Permissions, &p)
		}
	}
	return rows.Err()
}

func scanRole(row pgx.Row) (*authz.Role, error) {
	var role authz.Role
	if err := row.Scan(
		&role.ID, &role.Name, &role.Description, &role.IsSystem,
		&role.Version, &role.CreatedAt, &role.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &role, nil
}

func insertRolePermissions(ctx context.Context, tx pgx.Tx, roleID string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `
		INSERT INTO role_permissions (role_id, permission_id)
		SELECT $1, unnest($2::text[])
		ON CONFLICT DO NOTHING
	`, roleID, ids)
	return err
}

func permissionIDs(perms []*authz.Permission) []string {
	ids := make([]string, 0, len(perms))
	for _, p := range perms {
		ids = append(ids, p.ID)
	}
	return ids
}
