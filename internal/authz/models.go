package authz

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Domain errors
var (
	ErrPermissionNotFound      = errors.New("permission not found")
	ErrPermissionAlreadyExists = errors.New("permission already exists")
	ErrRoleNotFound            = errors.New("role not found")
	ErrRoleAlreadyExists       = errors.New("role already exists")
	ErrSystemRole              = errors.New("system roles cannot be deleted")
	ErrRoleVersionConflict     = errors.New("role was modified concurrently")
	ErrInvalidPermission       = errors.New("invalid permission")
	ErrInvalidRole             = errors.New("invalid role")
	ErrAuthenticationRequired  = errors.New("authentication required")
	ErrPermissionDenied        = errors.New("permission denied")
)

// DefaultDeniedMessage is reported when a requirement declares no message of its own.
const DefaultDeniedMessage = "Access denied: insufficient permissions"

// PermissionDeniedError reports a failed requirement check.
type PermissionDeniedError struct {
	Resource Resource
	Action   Action
	Message  string
}

func (e *PermissionDeniedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return DefaultDeniedMessage
}

// Is makes errors.Is(err, ErrPermissionDenied) match.
func (e *PermissionDeniedError) Is(target error) bool {
	return target == ErrPermissionDenied
}

// Permission is the atomic grant unit, identified by its canonical name.
type Permission struct {
	ID          string
	Name        string
	Resource    Resource
	Action      Action
	Description string
	CreatedAt   time.Time
}

// Role is a named bundle of permissions.
// Permissions has set semantics: order is irrelevant and names are unique.
type Role struct {
	ID          string
	Name        string
	Description string
	IsSystem    bool
	Permissions []*Permission
	Version     int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// HasPermission checks if the role owns the named permission
func (r *Role) HasPermission(name string) bool {
	for _, p := range r.Permissions {
		if p.Name == name {
			return true
		}
	}
	return false
}

// PermissionNames returns the names of the permissions owned by the role.
func (r *Role) PermissionNames() []string {
	names := make([]string, 0, len(r.Permissions))
	for _, p := range r.Permissions {
		names = append(names, p.Name)
	}
	return names
}

// Actor is an authenticated user as seen by the resolver.
type Actor struct {
	UserID      string
	TenantID    string
	Email       string
	Roles       []*Role
	Permissions []*Permission // granted directly, bypassing roles
	Enabled     bool
}

// RoleNames returns the names of all roles assigned to the actor.
func (a *Actor) RoleNames() []string {
	names := make([]string, 0, len(a.Roles))
	for _, r := range a.Roles {
		names = append(names, r.Name)
	}
	return names
}

// PermissionRepository defines the interface for permission persistence
type PermissionRepository interface {
	// Create inserts a permission. Returns ErrPermissionAlreadyExists on a duplicate name.
	Create(ctx context.Context, permission *Permission) error

	// GetByName retrieves a permission by canonical name
	GetByName(ctx context.Context, name string) (*Permission, error)

	// ExistsByName checks whether a permission with the given name exists
	ExistsByName(ctx context.Context, name string) (bool, error)

	// List retrieves every permission in the catalog
	List(ctx context.Context) ([]*Permission, error)
}

// RoleRepository defines the interface for role persistence
type RoleRepository interface {
	// Create inserts a role together with its permission associations.
	// Returns ErrRoleAlreadyExists on a duplicate name.
	Create(ctx context.Context, role *Role) error

	// GetByID retrieves a role and its permissions by ID
	GetByID(ctx context.Context, id string) (*Role, error)

	// GetByName retrieves a role and its permissions by name
	GetByName(ctx context.Context, name string) (*Role, error)

	// ExistsByName checks whether a role with the given name exists
	ExistsByName(ctx context.Context, name string) (bool, error)

	// List retrieves all roles
	List(ctx context.Context) ([]*Role, error)

	// ReplacePermissions replaces the permission set of a role.
	// A non-zero expectedVersion must match the stored version.
	ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string, expectedVersion int) error

	// Delete deletes a role and its associations
	Delete(ctx context.Context, id string) error
}

// Requirement is a declared (resource, action) pair an operation needs.
type Requirement struct {
	Resource Resource
	Action   Action
	Message  string
}

// Name returns the canonical permission name of the requirement.
func (r Requirement) Name() string {
	return PermissionName(r.Resource, r.Action)
}

func (r Requirement) String() string {
	return fmt.Sprintf("%s:%s", r.Resource, r.Action)
}
