package memory

import (
	"context"
	"sort"
	"time"

	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/identity"
	"github.com/contenthub/contenthub/internal/tenant"
)

// UserRepository implements identity.UserRepository
type UserRepository struct {
	s *Store
}

func cloneUser(u *identity.User) *identity.User {
	cp := *u
	cp.RoleIDs = cloneStrings(u.RoleIDs)
	cp.PermissionNames = cloneStrings(u.PermissionNames)
	if u.LockedUntil != nil {
		t := *u.LockedUntil
		cp.LockedUntil = &t
	}
	return &cp
}

// Create writes an account under the store lock.
// Every check runs before the first write, so a failed create leaves nothing behind.
func (r *UserRepository) Create(_ context.Context, acct *identity.Account) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u := acct.User
	if _, ok := r.s.userByEmail[u.Email]; ok {
		return identity.ErrUserAlreadyExists
	}
	if acct.Tenant != nil {
		if _, ok := r.s.tenants[acct.Tenant.ID]; ok {
			return tenant.ErrTenantAlreadyExists
		}
	}
	var inv *identity.Invitation
	if acct.InvitationID != "" {
		var ok bool
		if inv, ok = r.s.invitations[acct.InvitationID]; !ok {
			return identity.ErrInvitationNotFound
		}
		if inv.AcceptedAt != nil {
			return identity.ErrInvitationUsed
		}
	}
	if acct.FirstUserRoleID != "" && len(r.s.users) == 0 {
		u.RoleIDs = []string{acct.FirstUserRoleID}
	}

	if acct.Tenant != nil {
		t := *acct.Tenant
		r.s.tenants[t.ID] = &t
	}
	r.s.users[u.ID] = cloneUser(u)
	r.s.userByEmail[u.Email] = u.ID
	if acct.Credentials != nil {
		c := *acct.Credentials
		r.s.credentials[u.ID] = &c
	}
	if inv != nil {
		at := acct.AcceptedAt
		inv.AcceptedAt = &at
	}
	return nil
}

// GetCredentials retrieves the password credential of a user
func (r *UserRepository) GetCredentials(_ context.Context, userID string) (*identity.Credentials, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.credentials[userID]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	cp := *c
	return &cp, nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(_ context.Context, id string) (*identity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	u, ok := r.s.users[id]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return cloneUser(u), nil
}

// GetByEmail retrieves a user by email
func (r *UserRepository) GetByEmail(_ context.Context, email string) (*identity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.userByEmail[email]
	if !ok {
		return nil, identity.ErrUserNotFound
	}
	return cloneUser(r.s.users[id]), nil
}

// ListByTenant retrieves the users of a tenant ordered by email
func (r *UserRepository) ListByTenant(_ context.Context, tenantID string) ([]*identity.User, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*identity.User
	for _, u := range r.s.users {
		if u.TenantID == tenantID {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Email < out[j].Email })
	return out, nil
}

// Count returns the number of users
func (r *UserRepository) Count(_ context.Context) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.s.users), nil
}

// UpdateLockout updates user lockout status
func (r *UserRepository) UpdateLockout(_ context.Context, userID string, failedAttempts int, lockedUntil *time.Time) error {
	return r.mutate(userID, func(u *identity.User) {
		u.FailedLoginAttempts = failedAttempts
		u.LockedUntil = lockedUntil
	})
}

// SetEnabled enables or disables a user
func (r *UserRepository) SetEnabled(_ context.Context, userID string, enabled bool) error {
	return r.mutate(userID, func(u *identity.User) {
		u.Enabled = enabled
	})
}

// AssignRole adds a role to a user
func (r *UserRepository) AssignRole(_ context.Context, userID, roleID string) error {
	r.s.mu.RLock()
	_, ok := r.s.roles[roleID]
	r.s.mu.RUnlock()
	if !ok {
		return authz.ErrRoleNotFound
	}
	return r.mutate(userID, func(u *identity.User) {
		if !containsString(u.RoleIDs, roleID) {
			u.RoleIDs = append(u.RoleIDs, roleID)
		}
	})
}

// RevokeRole removes a role from a user
func (r *UserRepository) RevokeRole(_ context.Context, userID, roleID string) error {
	return r.mutate(userID, func(u *identity.User) {
		u.RoleIDs = removeString(u.RoleIDs, roleID)
	})
}

// GrantPermission adds a direct permission to a user
func (r *UserRepository) GrantPermission(_ context.Context, userID string, p *authz.Permission) error {
	return r.mutate(userID, func(u *identity.User) {
		if !containsString(u.PermissionNames, p.Name) {
			u.PermissionNames = append(u.PermissionNames, p.Name)
		}
	})
}

// RevokePermission removes a direct permission from a user
func (r *UserRepository) RevokePermission(_ context.Context, userID string, p *authz.Permission) error {
	return r.mutate(userID, func(u *identity.User) {
		u.PermissionNames = removeString(u.PermissionNames, p.Name)
	})
}

func (r *UserRepository) mutate(userID string, fn func(u *identity.User)) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	u, ok := r.s.users[userID]
	if !ok {
		return identity.ErrUserNotFound
	}
	fn(u)
	u.UpdatedAt = time.Now()
	return nil
}

// InvitationRepository implements identity.InvitationRepository
type InvitationRepository struct {
	s *Store
}

func cloneInvitation(inv *identity.Invitation) *identity.Invitation {
	cp := *inv
	cp.RoleNames = cloneStrings(inv.RoleNames)
	if inv.AcceptedAt != nil {
		t := *inv.AcceptedAt
		cp.AcceptedAt = &t
	}
	return &cp
}

// Create stores an invitation
func (r *InvitationRepository) Create(_ context.Context, inv *identity.Invitation) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.invitations[inv.ID] = cloneInvitation(inv)
	r.s.invByToken[inv.Token] = inv.ID
	return nil
}

// GetByToken retrieves an invitation by its token
func (r *InvitationRepository) GetByToken(_ context.Context, token string) (*identity.Invitation, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	id, ok := r.s.invByToken[token]
	if !ok {
		return nil, identity.ErrInvitationNotFound
	}
	return cloneInvitation(r.s.invitations[id]), nil
}
