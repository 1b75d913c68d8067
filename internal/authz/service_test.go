package authz_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/store/memory"
)

func bootstrapped(t *testing.T) *memory.Store {
	t.Helper()
	store := memory.New()
	_, err := authz.NewBootstrapper(store.Permissions(), store.Roles(), audit.NopLogger{}).Run(context.Background())
	require.NoError(t, err)
	return store
}

// actorCtx returns a context acting as a user holding the named canonical role.
func actorCtx(t *testing.T, store *memory.Store, roleName string) context.Context {
	t.Helper()
	role, err := store.Roles().GetByName(context.Background(), roleName)
	require.NoError(t, err)
	actor := &authz.Actor{UserID: "user-" + roleName, TenantID: "tenant-1", Enabled: true, Roles: []*authz.Role{role}}
	return authz.WithActor(context.Background(), actor)
}

// TestPurpose: Validates the ad hoc role lifecycle.
// Scope: Unit Test
// Security: Role administration integrity
// Expected: Roles are created from catalog names, updated with version checks, and deleted.
// Test Case ID: ROLE-01
func TestService_RoleLifecycle(t *testing.T) {
	store := bootstrapped(t)
	svc := authz.NewService(store.Permissions(), store.Roles(), audit.NopLogger{})
	ctx := context.Background()

	role, err := svc.CreateRole(ctx, "TRANSLATOR", "Translations only", []string{"TRANSLATIONS_READ", "TRANSLATIONS_UPDATE", "TRANSLATIONS_READ"})
	require.NoError(t, err)
	assert.False(t, role.IsSystem)
	assert.Equal(t, 1, role.Version)
	assert.ElementsMatch(t, []string{"TRANSLATIONS_READ", "TRANSLATIONS_UPDATE"}, role.PermissionNames())

	_, err = svc.CreateRole(ctx, "TRANSLATOR", "", nil)
	assert.ErrorIs(t, err, authz.ErrRoleAlreadyExists)

	updated, err := svc.UpdateRolePermissions(ctx, role.ID, []string{"TRANSLATIONS_READ"}, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, updated.Version)
	assert.Equal(t, []string{"TRANSLATIONS_READ"}, updated.PermissionNames())

	_, err = svc.UpdateRolePermissions(ctx, role.ID, []string{"TRANSLATIONS_READ"}, 1)
	assert.ErrorIs(t, err, authz.ErrRoleVersionConflict)

	require.NoError(t, svc.DeleteRole(ctx, role.ID))
	_, err = svc.GetRole(ctx, role.ID)
	assert.ErrorIs(t, err, authz.ErrRoleNotFound)
}

// TestPurpose: Validates that role permissions are restricted to the catalog.
// Scope: Unit Test
// Security: Closed permission vocabulary
// Expected: Unknown or malformed names are rejected with ErrInvalidPermission.
// Test Case ID: ROLE-02
func TestService_RejectsUnknownPermissions(t *testing.T) {
	store := bootstrapped(t)
	svc := authz.NewService(store.Permissions(), store.Roles(), audit.NopLogger{})
	ctx := context.Background()

	_, err := svc.CreateRole(ctx, "BROKEN", "", []string{"BILLING_READ"})
	assert.ErrorIs(t, err, authz.ErrInvalidPermission)

	_, err = svc.CreateRole(ctx, "  ", "", nil)
	assert.ErrorIs(t, err, authz.ErrInvalidRole)
}

// TestPurpose: Validates that canonical roles cannot be deleted.
// Scope: Unit Test
// Security: Built-in role protection
// Expected: ErrSystemRole for every canonical role.
// Test Case ID: ROLE-03
func TestService_CanonicalRolesAreProtected(t *testing.T) {
	store := bootstrapped(t)
	svc := authz.NewService(store.Permissions(), store.Roles(), audit.NopLogger{})
	ctx := context.Background()

	for _, name := range authz.CanonicalRoleNames {
		role, err := svc.GetRoleByName(ctx, name)
		require.NoError(t, err)
		assert.ErrorIs(t, svc.DeleteRole(ctx, role.ID), authz.ErrSystemRole)
	}
}

// TestPurpose: Validates that the role cache serves repeated lookups and is invalidated by mutations.
// Scope: Unit Test
// Security: Role edits take effect on the next request
// Expected: After UpdateRolePermissions through the cached repository, the new permission set is observed.
// Test Case ID: ROLE-04
func TestCachedRoleRepository_InvalidatesOnUpdate(t *testing.T) {
	store := bootstrapped(t)
	cached := authz.NewCachedRoleRepository(store.Roles(), 16, time.Minute)
	svc := authz.NewService(store.Permissions(), cached, audit.NopLogger{})
	ctx := actorCtx(t, store, authz.RoleSuperAdmin)

	editor, err := cached.GetByName(ctx, authz.RoleEditor)
	require.NoError(t, err)
	assert.Equal(t, 2, cached.Len())

	again, err := cached.GetByID(ctx, editor.ID)
	require.NoError(t, err)
	assert.Same(t, editor, again)

	_, err = svc.UpdateRolePermissions(ctx, editor.ID, []string{"TEMPLATES_READ"}, 0)
	require.NoError(t, err)

	fresh, err := cached.GetByID(ctx, editor.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"TEMPLATES_READ"}, fresh.PermissionNames())
}

// TestPurpose: Validates that installation-wide system roles are editable by super admins only.
// Scope: Unit Test
// Security: Cross-tenant privilege manipulation (CWE-269)
// Expected: A tenant ADMIN gets PermissionDenied and the role is unchanged; a SUPER_ADMIN succeeds.
// Test Case ID: ROLE-05
func TestService_SystemRolesRequireSuperAdmin(t *testing.T) {
	store := bootstrapped(t)
	svc := authz.NewService(store.Permissions(), store.Roles(), audit.NopLogger{})
	adminCtx := actorCtx(t, store, authz.RoleAdmin)
	rootCtx := actorCtx(t, store, authz.RoleSuperAdmin)

	viewer, err := svc.GetRoleByName(adminCtx, authz.RoleViewer)
	require.NoError(t, err)

	_, err = svc.UpdateRolePermissions(adminCtx, viewer.ID, []string{"TEMPLATES_READ", "TEMPLATES_DELETE"}, 0)
	var denied *authz.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, authz.ResourceRoles, denied.Resource)
	assert.Equal(t, authz.ActionUpdate, denied.Action)

	unchanged, err := svc.GetRole(adminCtx, viewer.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, authz.ViewerPermissions(), unchanged.PermissionNames())

	updated, err := svc.UpdateRolePermissions(rootCtx, viewer.ID, []string{"TEMPLATES_READ"}, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"TEMPLATES_READ"}, updated.PermissionNames())
}

// TestPurpose: Validates that custom roles can only carry permissions the acting user holds.
// Scope: Unit Test
// Security: Privilege escalation prevention (CWE-269)
// Expected: An ADMIN cannot create or widen a role with USERS_CREATE; a SUPER_ADMIN can.
// Test Case ID: ROLE-06
func TestService_RolesCarryOnlyHeldPermissions(t *testing.T) {
	store := bootstrapped(t)
	svc := authz.NewService(store.Permissions(), store.Roles(), audit.NopLogger{})
	adminCtx := actorCtx(t, store, authz.RoleAdmin)
	rootCtx := actorCtx(t, store, authz.RoleSuperAdmin)

	_, err := svc.CreateRole(adminCtx, "RECRUITER", "", []string{"USERS_READ", "USERS_CREATE"})
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)
	assert.Contains(t, err.Error(), "USERS_CREATE")

	role, err := svc.CreateRole(adminCtx, "RECRUITER", "", []string{"USERS_READ"})
	require.NoError(t, err)

	_, err = svc.UpdateRolePermissions(adminCtx, role.ID, []string{"USERS_READ", "USERS_CREATE"}, 0)
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = svc.UpdateRolePermissions(rootCtx, role.ID, []string{"USERS_READ", "USERS_CREATE"}, 0)
	require.NoError(t, err)
}
