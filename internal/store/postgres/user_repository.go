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
	"strings"
	"time"

	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/identity"
	"github.com/contenthub/contenthub/internal/tenant"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// userColumns selects a user with its role IDs and direct permission names.
const userColumns = `
	SELECT u.id, COALESCE(u.tenant_id, ''), u.email, u.full_name, u.enabled,
	       u.failed_login_attempts, u.locked_until, u.created_at, u.updated_at,
	       COALESCE((SELECT array_agg(ur.role_id ORDER BY ur.granted_at)
	                 FROM user_roles ur WHERE ur.user_id = u.id), '{}'),
	       COALESCE((SELECT array_agg(p.name ORDER BY p.name)
	                 FROM user_permissions up
	                 JOIN permissions p ON p.id = up.permission_id
	                 WHERE up.user_id = u.id), '{}')
	FROM users u
`

// UserRepository implements identity.UserRepository
type UserRepository struct {
	db *DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

// firstUserLock is the advisory lock key serializing creates that depend on the users table being empty.
const firstUserLock int64 = 0x636d735f7573

// Create writes an account in one transaction: tenant, invitation stamp, user,
// role and permission grants, and credentials.
func (r *UserRepository) Create(ctx context.Context, acct *identity.Account) error {
	user := acct.User
	roleIDs := user.RoleIDs
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		if acct.FirstUserRoleID != "" {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, firstUserLock); err != nil {
				return err
			}
			var exists bool
			if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users)`).Scan(&exists); err != nil {
				return err
			}
			if !exists {
				roleIDs = []string{acct.FirstUserRoleID}
			}
		}

		if t := acct.Tenant; t != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO tenants (id, name, status, created_at, updated_at)
				VALUES ($1, $2, $3, $4, $5)
			`, t.ID, t.Name, t.Status, t.CreatedAt, t.UpdatedAt); err != nil {
				return err
			}
		}

		if acct.InvitationID != "" {
			if err := acceptInvitation(ctx, tx, acct.InvitationID, acct.AcceptedAt); err != nil {
				return err
			}
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO users (
				id, tenant_id, email, full_name, enabled,
				failed_login_attempts, locked_until, created_at, updated_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		`,
			user.ID, nullable(user.TenantID), user.Email, user.FullName, user.Enabled,
			user.FailedLoginAttempts, user.LockedUntil, user.CreatedAt, user.UpdatedAt,
		)
		if err != nil {
			return err
		}

		if len(roleIDs) > 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_roles (user_id, role_id)
				SELECT $1, unnest($2::text[])
				ON CONFLICT DO NOTHING
			`, user.ID, roleIDs); err != nil {
				return err
			}
		}
		if len(user.PermissionNames) > 0 {
			if _, err := tx.Exec(ctx, `
				INSERT INTO user_permissions (user_id, permission_id)
				SELECT $1, id FROM permissions WHERE name = ANY($2)
				ON CONFLICT DO NOTHING
			`, user.ID, user.PermissionNames); err != nil {
				return err
			}
		}

		if c := acct.Credentials; c != nil {
			if _, err := tx.Exec(ctx, `
				INSERT INTO credentials (user_id, password_hash, updated_at)
				VALUES ($1, $2, $3)
			`, user.ID, c.PasswordHash, c.UpdatedAt); err != nil {
				return err
			}
		}
		return nil
	})
	switch {
	case err == nil:
		user.RoleIDs = roleIDs
		return nil
	case errors.Is(err, identity.ErrInvitationNotFound), errors.Is(err, identity.ErrInvitationUsed):
		return err
	case isUniqueViolation(err):
		if violatedTable(err) == "tenants" {
			return tenant.ErrTenantAlreadyExists
		}
		return identity.ErrUserAlreadyExists
	case isForeignKeyViolation(err):
		return r.missingReference(err)
	default:
		return fmt.Errorf("failed to insert user: %w", err)
	}
}

// acceptInvitation stamps an invitation exactly once within tx
func acceptInvitation(ctx context.Context, tx pgx.Tx, id string, acceptedAt time.Time) error {
	result, err := tx.Exec(ctx, `
		UPDATE invitations SET accepted_at = $2
		WHERE id = $1 AND accepted_at IS NULL
	`, id, acceptedAt)
	if err != nil {
		return err
	}
	if result.RowsAffected() > 0 {
		return nil
	}

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM invitations WHERE id = $1)`, id).Scan(&exists); err != nil {
		return err
	}
	if !exists {
		return identity.ErrInvitationNotFound
	}
	return identity.ErrInvitationUsed
}

// GetCredentials retrieves the password credential of a user
func (r *UserRepository) GetCredentials(ctx context.Context, userID string) (*identity.Credentials, error) {
	var c identity.Credentials
	err := r.db.pool.QueryRow(ctx, `
		SELECT user_id, password_hash, updated_at
		FROM credentials
		WHERE user_id = $1
	`, userID).Scan(&c.UserID, &c.PasswordHash, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get credentials: %w", err)
	}
	return &c, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*identity.User, error) {
	return r.getOne(ctx, "u.id = $1", id)
}

// GetByEmail retrieves a user by email. Emails are stored lower-cased.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*identity.User, error) {
	return r.getOne(ctx, "u.email = $1", email)
}

// ListByTenant retrieves the users of a tenant ordered by email
func (r *UserRepository) ListByTenant(ctx context.Context, tenantID string) ([]*identity.User, error) {
	rows, err := r.db.pool.Query(ctx, userColumns+`
		WHERE u.tenant_id = $1
		ORDER BY u.email
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*identity.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Count returns the number of users
func (r *UserRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.pool.QueryRow(ctx, `SELECT COUNT(*) FROM users`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count users: %w", err)
	}
	return n, nil
}

// UpdateLockout updates user lockout status
func (r *UserRepository) UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	return r.update(ctx, `
		UPDATE users SET failed_login_attempts = $2, locked_until = $3, updated_at = $4
		WHERE id = $1
	`, userID, failedAttempts, lockedUntil, time.Now())
}

// SetEnabled enables or disables a user
func (r *UserRepository) SetEnabled(ctx context.Context, userID string, enabled bool) error {
	return r.update(ctx, `
		UPDATE users SET enabled = $2, updated_at = $3
		WHERE id = $1
	`, userID, enabled, time.Now())
}

// AssignRole adds a role to a user. Assigning a held role is a no-op.
func (r *UserRepository) AssignRole(ctx context.Context, userID, roleID string) error {
	return r.grant(ctx, userID, `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, roleID)
}

// RevokeRole removes a role from a user
func (r *UserRepository) RevokeRole(ctx context.Context, userID, roleID string) error {
	return r.grant(ctx, userID, `DELETE FROM user_roles WHERE user_id = $1 AND role_id = $2`, roleID)
}

// GrantPermission adds a direct permission to a user
func (r *UserRepository) GrantPermission(ctx context.Context, userID string, p *authz.Permission) error {
	return r.grant(ctx, userID, `
		INSERT INTO user_permissions (user_id, permission_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`, p.ID)
}

// RevokePermission removes a direct permission from a user
func (r *UserRepository) RevokePermission(ctx context.Context, userID string, p *authz.Permission) error {
	return r.grant(ctx, userID, `DELETE FROM user_permissions WHERE user_id = $1 AND permission_id = $2`, p.ID)
}

func (r *UserRepository) getOne(ctx context.Context, where string, arg any) (*identity.User, error) {
	u, err := scanUser(r.db.pool.QueryRow(ctx, userColumns+"WHERE "+where, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

func (r *UserRepository) update(ctx context.Context, query string, args ...any) error {
	result, err := r.db.pool.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	if result.RowsAffected() == 0 {
		return identity.ErrUserNotFound
	}
	return nil
}

// grant touches the user row and runs an association change in one
// transaction. A missing user yields identity.ErrUserNotFound.
func (r *UserRepository) grant(ctx context.Context, userID, query string, ref string) error {
	err := r.db.inTx(ctx, func(tx pgx.Tx) error {
		result, err := tx.Exec(ctx, `UPDATE users SET updated_at = $2 WHERE id = $1`, userID, time.Now())
		if err != nil {
			return err
		}
		if result.RowsAffected() == 0 {
			return identity.ErrUserNotFound
		}
		_, err = tx.Exec(ctx, query, userID, ref)
		return err
	})
	switch {
	case err == nil:
		return nil
	case errors.Is(err, identity.ErrUserNotFound):
		return err
	case isForeignKeyViolation(err):
		return r.missingReference(err)
	default:
		return fmt.Errorf("failed to update user grants: %w", err)
	}
}

// missingReference maps a foreign key violation to the domain error of the
// referenced table.
func (r *UserRepository) missingReference(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "role_id"):
		return authz.ErrRoleNotFound
	case strings.Contains(pgErr.ConstraintName, "permission_id"):
		return authz.ErrPermissionNotFound
	case strings.Contains(pgErr.ConstraintName, "tenant_id"):
		return fmt.Errorf("tenant does not exist: %w", err)
	default:
		return identity.ErrUserNotFound
	}
}

func scanUser(row pgx.Row) (*identity.User, error) {
	var u identity.User
	if err := row.Scan(
		&u.ID, &u.TenantID, &u.Email, &u.FullName, &u.Enabled,
		&u.FailedLoginAttempts, &u.LockedUntil, &u.CreatedAt, &u.UpdatedAt,
		&u.RoleIDs, &u.PermissionNames,
	); err != nil {
		return nil, err
	}
	return &u, nil
}

// InvitationRepository implements identity.InvitationRepository
type InvitationRepository struct {
	db *DB
}

// NewInvitationRepository creates a new invitation repository
func NewInvitationRepository(db *DB) *InvitationRepository {
	return &InvitationRepository{db: db}
}

// Create stores an invitation
func (r *InvitationRepository) Create(ctx context.Context, inv *identity.Invitation) error {
	_, err := r.db.pool.Exec(ctx, `
		INSERT INTO invitations (id, token, tenant_id, email, role_names, invited_by, expires_at, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, inv.ID, inv.Token, inv.TenantID, inv.Email, inv.RoleNames, inv.InvitedBy, inv.ExpiresAt, inv.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}
	return nil
}

// GetByToken retrieves an invitation by its token
func (r *InvitationRepository) GetByToken(ctx context.Context, token string) (*identity.Invitation, error) {
	var inv identity.Invitation
	err := r.db.pool.QueryRow(ctx, `
		SELECT id, token, tenant_id, email, role_names, invited_by, expires_at, accepted_at, created_at
		FROM invitations
		WHERE token = $1
	`, token).Scan(
		&inv.ID, &inv.Token, &inv.TenantID, &inv.Email, &inv.RoleNames,
		&inv.InvitedBy, &inv.ExpiresAt, &inv.AcceptedAt, &inv.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, identity.ErrInvitationNotFound
		}
		return nil, fmt.Errorf("failed to get invitation: %w", err)
	}
	return &inv, nil
}
