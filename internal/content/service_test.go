package content_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/content"
	"github.com/contenthub/contenthub/internal/guard"
	"github.com/contenthub/contenthub/internal/identity"
	"github.com/contenthub/contenthub/internal/store/memory"
	"github.com/contenthub/contenthub/internal/tenant"
)

const password = "s3cure-passw0rd"

type env struct {
	store     *memory.Store
	identity  *identity.Service
	templates *content.TemplateService
}

func newEnv(t *testing.T) *env {
	t.Helper()
	store := memory.New()
	_, err := authz.NewBootstrapper(store.Permissions(), store.Roles(), audit.NopLogger{}).Run(context.Background())
	require.NoError(t, err)

	return &env{
		store: store,
		identity: identity.NewService(
			store.Users(), store.Invitations(),
			tenant.NewService(store.Tenants(), audit.NopLogger{}),
			store.Permissions(),
			authz.NewCachedRoleRepository(store.Roles(), 64, time.Minute),
			identity.NewPasswordHasher(16*1024, 1, 1, 16, 32),
			audit.NopLogger{},
			identity.Policy{InvitationTTL: time.Hour},
		),
		templates: content.NewTemplateService(store.Templates(), guard.New(audit.NopLogger{}, nil, nil), audit.NopLogger{}),
	}
}

func (e *env) as(t *testing.T, userID string) context.Context {
	t.Helper()
	actor, err := e.identity.LoadActor(context.Background(), userID)
	require.NoError(t, err)
	return authz.WithActor(context.Background(), actor)
}

func (e *env) register(t *testing.T, email string) (*identity.User, context.Context) {
	t.Helper()
	u, err := e.identity.Register(context.Background(), identity.Registration{Email: email, Password: password, OrganizationName: email})
	require.NoError(t, err)
	return u, e.as(t, u.ID)
}

func (e *env) invite(t *testing.T, adminCtx context.Context, email string, roles ...string) *identity.User {
	t.Helper()
	inv, err := e.identity.Invite(adminCtx, email, roles)
	require.NoError(t, err)
	u, err := e.identity.AcceptInvitation(context.Background(), inv.Token, password, "")
	require.NoError(t, err)
	return u
}

// TestPurpose: Validates that an actor with full template permissions cannot touch another tenant's template.
// Scope: Unit Test
// Security: Cross-tenant data access prevention (CWE-639)
// Expected: Get, update and delete of a foreign template fail with a Tenant-Violation, not Permission-Denied, and nothing changes.
// Test Case ID: CNT-01
func TestTemplates_TenantIsolation(t *testing.T) {
	e := newEnv(t)
	_, ctxA := e.register(t, "a@example.com")
	_, ctxB := e.register(t, "b@example.com")

	owned, err := e.templates.Create(ctxB, content.TemplateInput{Name: "invoice", Body: "B's body"})
	require.NoError(t, err)

	_, err = e.templates.Get(ctxA, owned.ID)
	assert.ErrorIs(t, err, tenant.ErrTenantViolation)
	assert.False(t, errors.Is(err, authz.ErrPermissionDenied))

	_, err = e.templates.Update(ctxA, owned.ID, content.TemplateInput{Name: "pwned"})
	assert.ErrorIs(t, err, tenant.ErrTenantViolation)

	err = e.templates.Delete(ctxA, owned.ID)
	assert.ErrorIs(t, err, tenant.ErrTenantViolation)

	list, err := e.templates.List(ctxA)
	require.NoError(t, err)
	assert.Empty(t, list)

	stored, err := e.templates.Get(ctxB, owned.ID)
	require.NoError(t, err)
	assert.Equal(t, "invoice", stored.Name)
	assert.Equal(t, "B's body", stored.Body)
}

// TestPurpose: Validates that an absent entity is reported as not-found, never as a tenant violation.
// Scope: Unit Test
// Security: Check ordering
// Expected: ErrTemplateNotFound for unknown IDs.
// Test Case ID: CNT-02
func TestTemplates_NotFoundBeforeTenantCheck(t *testing.T) {
	e := newEnv(t)
	_, ctx := e.register(t, "a@example.com")

	_, err := e.templates.Get(ctx, "missing")
	assert.ErrorIs(t, err, content.ErrTemplateNotFound)
	assert.False(t, errors.Is(err, tenant.ErrTenantViolation))

	err = e.templates.Delete(ctx, "missing")
	assert.ErrorIs(t, err, content.ErrTemplateNotFound)
}

// TestPurpose: Validates the end-to-end permission lifecycle of a tenant user.
// Scope: Unit Test
// Security: Grants and revocations take effect on the next request
// Expected: No role is denied, EDITOR succeeds, a direct grant alone succeeds, and revocation denies again.
// Test Case ID: CNT-03
func TestTemplates_PermissionLifecycle(t *testing.T) {
	e := newEnv(t)
	_, adminCtx := e.register(t, "admin@example.com")
	user := e.invite(t, adminCtx, "user@example.com", authz.RoleViewer)
	require.NoError(t, e.identity.RevokeRole(adminCtx, user.ID, authz.RoleViewer))

	create := func(name string) error {
		_, err := e.templates.Create(e.as(t, user.ID), content.TemplateInput{Name: name})
		return err
	}

	err := create("one")
	var denied *authz.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "You do not have permission to create templates", denied.Error())

	require.NoError(t, e.identity.AssignRole(adminCtx, user.ID, authz.RoleEditor))
	require.NoError(t, create("two"))

	require.NoError(t, e.identity.RevokeRole(adminCtx, user.ID, authz.RoleEditor))
	require.NoError(t, e.identity.GrantPermission(adminCtx, user.ID, "TEMPLATES_CREATE"))
	require.NoError(t, create("three"))

	require.NoError(t, e.identity.RevokePermission(adminCtx, user.ID, "TEMPLATES_CREATE"))
	assert.ErrorIs(t, create("four"), authz.ErrPermissionDenied)

	list, err := e.templates.List(adminCtx)
	require.NoError(t, err)
	names := make([]string, 0, len(list))
	for _, tpl := range list {
		names = append(names, tpl.Name)
	}
	assert.Equal(t, []string{"three", "two"}, names)
}

// TestPurpose: Validates that a denied mutation leaves storage untouched.
// Scope: Unit Test
// Security: Check-before-side-effect enforcement
// Expected: A VIEWER delete fails with PermissionDenied and the template still exists.
// Test Case ID: CNT-04
func TestTemplates_DeniedDeleteHasNoSideEffect(t *testing.T) {
	e := newEnv(t)
	_, adminCtx := e.register(t, "admin@example.com")
	viewer := e.invite(t, adminCtx, "viewer@example.com", authz.RoleViewer)

	tpl, err := e.templates.Create(adminCtx, content.TemplateInput{Name: "welcome", Locale: "fr"})
	require.NoError(t, err)
	assert.Equal(t, "fr", tpl.Locale)

	viewerCtx := e.as(t, viewer.ID)
	_, err = e.templates.Get(viewerCtx, tpl.ID)
	require.NoError(t, err)

	err = e.templates.Delete(viewerCtx, tpl.ID)
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)

	_, err = e.templates.Get(adminCtx, tpl.ID)
	assert.NoError(t, err)
}

// TestPurpose: Validates fail-fast behaviour without an actor or tenant.
// Scope: Unit Test
// Security: Authentication and tenant context are mandatory
// Expected: No actor yields ErrAuthenticationRequired; an actor without tenant yields ErrNoOrganization.
// Test Case ID: CNT-05
func TestTemplates_RequiresActorAndTenant(t *testing.T) {
	e := newEnv(t)

	_, err := e.templates.List(context.Background())
	assert.ErrorIs(t, err, authz.ErrAuthenticationRequired)

	orphan := authz.WithActor(context.Background(), &authz.Actor{
		UserID: "u", Roles: []*authz.Role{{Name: authz.RoleSuperAdmin}},
	})
	_, err = e.templates.Create(orphan, content.TemplateInput{Name: "x"})
	assert.ErrorIs(t, err, tenant.ErrNoOrganization)
}

// TestPurpose: Validates template input validation.
// Scope: Unit Test
// Expected: Empty names are rejected with ErrInvalidTemplate; duplicates within a tenant conflict.
// Test Case ID: CNT-06
func TestTemplates_Validation(t *testing.T) {
	e := newEnv(t)
	_, ctx := e.register(t, "a@example.com")

	_, err := e.templates.Create(ctx, content.TemplateInput{Name: "  "})
	assert.ErrorIs(t, err, content.ErrInvalidTemplate)

	_, err = e.templates.Create(ctx, content.TemplateInput{Name: "welcome"})
	require.NoError(t, err)
	_, err = e.templates.Create(ctx, content.TemplateInput{Name: "welcome", Locale: "en"})
	assert.ErrorIs(t, err, content.ErrTemplateAlreadyExists)
}
