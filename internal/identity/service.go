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
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/id"
	"github.com/contenthub/contenthub/internal/observability/logger"
	"github.com/contenthub/contenthub/internal/tenant"
)

// Policy holds the tunables of the identity service
type Policy struct {
	LockoutMaxAttempts int
	LockoutDuration    time.Duration
	InvitationTTL      time.Duration
}

// Service provides identity-related business logic
type Service struct {
	repo        UserRepository
	invitations InvitationRepository
	tenants     *tenant.Service
	permRepo    authz.PermissionRepository
	roleRepo    authz.RoleRepository
	hasher      *PasswordHasher
	auditLogger audit.Logger
	policy      Policy
	now         func() time.Time
}

// NewService creates a new identity service.
// roleRepo is consulted on every LoadActor call and should be the cached decorator.
func NewService(
	repo UserRepository,
	invitations InvitationRepository,
	tenants *tenant.Service,
	permRepo authz.PermissionRepository,
	roleRepo authz.RoleRepository,
	hasher *PasswordHasher,
	auditLogger audit.Logger,
	policy Policy,
) *Service {
	return &Service{
		repo:        repo,
		invitations: invitations,
		tenants:     tenants,
		permRepo:    permRepo,
		roleRepo:    roleRepo,
		hasher:      hasher,
		auditLogger: auditLogger,
		policy:      policy,
		now:         time.Now,
	}
}

// Registration is the input of self-registration
type Registration struct {
	Email            string
	Password         string
	FullName         string
	OrganizationName string
}

// Register creates a user together with a fresh tenant.
// The very first user of the installation becomes SUPER_ADMIN, everyone else ADMIN.
func (s *Service) Register(ctx context.Context, reg Registration) (*User, error) {
	email, err := normalizeEmail(reg.Email)
	if err != nil {
		return nil, err
	}
	if !isStrongPassword(reg.Password) {
		return nil, ErrWeakPassword
	}
	if err := s.ensureEmailAvailable(ctx, email); err != nil {
		return nil, err
	}

	admin, err := s.roleRepo.GetByName(ctx, authz.RoleAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to load role %s: %w", authz.RoleAdmin, err)
	}
	super, err := s.roleRepo.GetByName(ctx, authz.RoleSuperAdmin)
	if err != nil {
		return nil, fmt.Errorf("failed to load role %s: %w", authz.RoleSuperAdmin, err)
	}

	orgName := strings.TrimSpace(reg.OrganizationName)
	if orgName == "" {
		orgName = email
	}
	org, err := tenant.New(orgName)
	if err != nil {
		return nil, err
	}

	// The repository decides SUPER_ADMIN under the same write that inserts the user.
	user, err := s.createUser(ctx, &Account{
		User: &User{
			TenantID: org.ID,
			Email:    email,
			FullName: strings.TrimSpace(reg.FullName),
			RoleIDs:  []string{admin.ID},
		},
		Tenant:          org,
		FirstUserRoleID: super.ID,
	}, reg.Password)
	if err != nil {
		return nil, err
	}
	s.tenants.RecordCreated(ctx, org, email)

	role := admin
	if user.HasRole(super.ID) {
		role = super
	}
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeUserRegistered,
		TenantID: user.TenantID,
		ActorID:  user.ID,
		Resource: "user",
		Metadata: map[string]any{
			audit.AttrEmail: user.Email,
			audit.AttrRole:  role.Name,
		},
	})
	return user, nil
}

// Authenticate authenticates a user with email and password
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		s.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeLoginFailed,
			Resource: "login",
			Metadata: map[string]any{audit.AttrEmail: email, audit.AttrReason: "user_not_found"},
		})
		return nil, ErrInvalidCredentials
	}

	if user.LockedUntil != nil && user.LockedUntil.After(s.now()) {
		s.loginFailed(ctx, user, "locked_out")
		return nil, ErrAccountLocked
	}

	credentials, err := s.repo.GetCredentials(ctx, user.ID)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	valid, err := s.hasher.Verify(password, credentials.PasswordHash)
	if err != nil || !valid {
		attempts := user.FailedLoginAttempts + 1
		var lockedUntil *time.Time
		if s.policy.LockoutMaxAttempts > 0 && attempts >= s.policy.LockoutMaxAttempts {
			until := s.now().Add(s.policy.LockoutDuration)
			lockedUntil = &until
		}
		if err := s.repo.UpdateLockout(ctx, user.ID, attempts, lockedUntil); err != nil {
			slog.WarnContext(ctx, "failed to record failed login", logger.UserID(user.ID), logger.Error(err))
		}
		s.loginFailed(ctx, user, "invalid_password")
		return nil, ErrInvalidCredentials
	}

	// Disabled is only reported once the password matched.
	if !user.Enabled {
		s.loginFailed(ctx, user, "disabled")
		return nil, ErrUserDisabled
	}

	if user.FailedLoginAttempts > 0 || user.LockedUntil != nil {
		_ = s.repo.UpdateLockout(ctx, user.ID, 0, nil)
	}

	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginSuccess,
		TenantID: user.TenantID,
		ActorID:  user.ID,
		Resource: "login",
	})
	return user, nil
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	return s.repo.GetByID(ctx, userID)
}

// ListUsers lists the users of the current actor's tenant
func (s *Service) ListUsers(ctx context.Context) ([]*User, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.ListByTenant(ctx, tenantID)
}

// SetUserEnabled enables or disables a user of the current actor's tenant
func (s *Service) SetUserEnabled(ctx context.Context, userID string, enabled bool) error {
	tenantID, target, err := s.targetUser(ctx, userID)
	if err != nil {
		return err
	}
	if actor := authz.ActorFromContext(ctx); actor != nil && actor.UserID == target.ID && !enabled {
		return &authz.PermissionDeniedError{
			Resource: authz.ResourceUsers,
			Action:   authz.ActionUpdate,
			Message:  "Users cannot disable their own account",
		}
	}
	if err := s.repo.SetEnabled(ctx, target.ID, enabled); err != nil {
		return err
	}
	s.audit(ctx, tenantID, audit.TypeUserStatusChanged, target.Email, map[string]any{
		audit.AttrTargetUser: target.ID,
		"enabled":            enabled,
	})
	return nil
}

// LoadActor builds the resolver's view of a user.
// Roles deleted since assignment are skipped.
func (s *Service) LoadActor(ctx context.Context, userID string) (*authz.Actor, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrUserDisabled
	}

	actor := &authz.Actor{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Email:    user.Email,
		Enabled:  user.Enabled,
		Roles:    make([]*authz.Role, 0, len(user.RoleIDs)),
	}
	for _, roleID := range user.RoleIDs {
		role, err := s.roleRepo.GetByID(ctx, roleID)
		if errors.Is(err, authz.ErrRoleNotFound) {
			slog.WarnContext(ctx, "assigned role no longer exists",
				logger.UserID(user.ID), slog.String("role_id", roleID))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("failed to load role %s: %w", roleID, err)
		}
		actor.Roles = append(actor.Roles, role)
	}
	for _, name := range user.PermissionNames {
		perm, err := s.permRepo.GetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("failed to load permission %s: %w", name, err)
		}
		actor.Permissions = append(actor.Permissions, perm)
	}
	return actor, nil
}

// createUser fills in the user and its password credential, then writes the account in one step
func (s *Service) createUser(ctx context.Context, account *Account, password string) (*User, error) {
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	now := s.now()
	user := account.User
	user.ID = id.NewUUIDv7()
	user.Enabled = true
	user.CreatedAt = now
	user.UpdatedAt = now
	account.Credentials = &Credentials{
		UserID:       user.ID,
		PasswordHash: hash,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, account); err != nil {
		if errors.Is(err, ErrUserAlreadyExists) || errors.Is(err, ErrInvitationUsed) || errors.Is(err, ErrInvitationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

func (s *Service) ensureEmailAvailable(ctx context.Context, email string) error {
	_, err := s.repo.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrUserAlreadyExists
	case errors.Is(err, ErrUserNotFound):
		return nil
	default:
		return fmt.Errorf("failed to look up user: %w", err)
	}
}

// targetUser resolves the actor's tenant and a user it administers.
// The tenant check runs only once the user is known to exist.
func (s *Service) targetUser(ctx context.Context, userID string) (string, *User, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return "", nil, err
	}
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return "", nil, err
	}
	if err := tenant.Verify(tenantID, user.TenantID); err != nil {
		s.audit(ctx, tenantID, audit.TypeTenantViolation, "user", map[string]any{
			audit.AttrTargetUser: user.ID,
		})
		return "", nil, err
	}
	return tenantID, user, nil
}

func (s *Service) loginFailed(ctx context.Context, user *User, reason string) {
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeLoginFailed,
		TenantID: user.TenantID,
		ActorID:  user.ID,
		Resource: "login",
		Metadata: map[string]any{audit.AttrReason: reason},
	})
}

func (s *Service) audit(ctx context.Context, tenantID, eventType, resource string, metadata map[string]any) {
	event := audit.Event{
		Type:     eventType,
		TenantID: tenantID,
		Resource: resource,
		Metadata: metadata,
	}
	if actor := authz.ActorFromContext(ctx); actor != nil {
		event.ActorID = actor.UserID
	}
	s.auditLogger.Log(ctx, event)
}

// Helper functions
func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if len(email) < 3 || len(email) > 254 {
		return "", ErrInvalidEmail
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func isStrongPassword(password string) bool {
	return len(password) >= 8
}
