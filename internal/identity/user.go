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
	"time"

	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/tenant"
)

// Domain errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrWeakPassword       = errors.New("password does not meet security requirements")
	ErrAccountLocked      = errors.New("account is locked")
	ErrUserDisabled       = errors.New("user is disabled")
	ErrRoleNotAssigned    = errors.New("role is not assigned to user")
)

// User represents a user identity in the system.
// TenantID is empty only while the user has not been attached to an organization.
type User struct {
	ID                  string
	TenantID            string
	Email               string
	FullName            string
	Enabled             bool
	RoleIDs             []string
	PermissionNames     []string // granted directly, bypassing roles
	FailedLoginAttempts int
	LockedUntil         *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// OwnerTenantID implements tenant.Owned
func (u *User) OwnerTenantID() string {
	return u.TenantID
}

// HasRole reports whether roleID is assigned to the user
func (u *User) HasRole(roleID string) bool {
	for _, id := range u.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Credentials represents user authentication credentials
type Credentials struct {
	UserID       string
	PasswordHash string
	UpdatedAt    time.Time
}

// Account is everything written when a user joins the installation.
// Repositories persist all of it or none of it.
type Account struct {
	User        *User
	Credentials *Credentials

	// Tenant, when set, is created together with the user.
	Tenant *tenant.Tenant

	// InvitationID, when set, is stamped with AcceptedAt in the same write.
	// An invitation that is already accepted fails the write with ErrInvitationUsed.
	InvitationID string
	AcceptedAt   time.Time

	// FirstUserRoleID, when set, replaces User.RoleIDs if no user exists yet.
	// The emptiness check and the insert are serialized against concurrent creates.
	FirstUserRoleID string
}

// UserRepository defines the interface for user persistence
type UserRepository interface {
	// Create atomically writes an account: the user with its initial role assignments,
	// its credentials and, when present, its tenant and accepted invitation.
	// Returns ErrUserAlreadyExists when the email is taken.
	Create(ctx context.Context, account *Account) error

	// GetCredentials retrieves user credentials
	GetCredentials(ctx context.Context, userID string) (*Credentials, error)

	// GetByID retrieves a user with its role IDs and direct permissions
	GetByID(ctx context.Context, id string) (*User, error)

	// GetByEmail retrieves a user by email. Emails are unique across tenants.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// ListByTenant retrieves every user of a tenant
	ListByTenant(ctx context.Context, tenantID string) ([]*User, error)

	// Count returns the number of users across all tenants
	Count(ctx context.Context) (int, error)

	// UpdateLockout updates user lockout status
	UpdateLockout(ctx context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error

	// SetEnabled enables or disables a user
	SetEnabled(ctx context.Context, userID string, enabled bool) error

	// AssignRole adds a role to the user. Assigning a held role is a no-op.
	AssignRole(ctx context.Context, userID, roleID string) error

	// RevokeRole removes a role from the user
	RevokeRole(ctx context.Context, userID, roleID string) error

	// GrantPermission adds a direct permission. Granting a held permission is a no-op.
	GrantPermission(ctx context.Context, userID string, permission *authz.Permission) error

	// RevokePermission removes a direct permission
	RevokePermission(ctx context.Context, userID string, permission *authz.Permission) error
}
