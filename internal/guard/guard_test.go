package guard

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/authz"
)

type recordingAudit struct {
	mu     sync.Mutex
	events []audit.Event
}

func (r *recordingAudit) Log(_ context.Context, e audit.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func actorWith(perms ...string) *authz.Actor {
	a := &authz.Actor{UserID: "u1", TenantID: "t1", Enabled: true}
	for _, p := range perms {
		a.Permissions = append(a.Permissions, &authz.Permission{Name: p})
	}
	return a
}

var templatesCreate = Requirement{Resource: authz.ResourceTemplates, Action: authz.ActionCreate}

// TestPurpose: Validates that a guarded operation never runs when its requirement fails.
// Scope: Unit Test
// Security: Check-before-side-effect enforcement
// Expected: The operation body is not invoked and a PermissionDenied error is returned.
// Test Case ID: GRD-01
func TestRun_DeniedOperationHasNoSideEffect(t *testing.T) {
	rec := &recordingAudit{}
	g := New(rec, nil, nil)
	ctx := authz.WithActor(context.Background(), actorWith("TEMPLATES_READ"))

	invoked := false
	_, err := Run(ctx, g, templatesCreate, func(context.Context) (string, error) {
		invoked = true
		return "created", nil
	})

	require.Error(t, err)
	assert.False(t, invoked)
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)
	assert.Equal(t, authz.DefaultDeniedMessage, err.Error())

	require.Len(t, rec.events, 1)
	assert.Equal(t, audit.TypePermissionDenied, rec.events[0].Type)
	assert.Equal(t, "u1", rec.events[0].ActorID)
}

// TestPurpose: Validates that an allowed operation returns its own result and error unchanged.
// Scope: Unit Test
// Security: Transparent enforcement
// Expected: Result is passed through; an operation error is passed through untouched.
// Test Case ID: GRD-02
func TestRun_AllowedOperationPassesThrough(t *testing.T) {
	g := New(nil, nil, nil)
	ctx := authz.WithActor(context.Background(), actorWith("TEMPLATES_CREATE"))

	got, err := Run(ctx, g, templatesCreate, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)

	opErr := errors.New("storage unavailable")
	err = Exec(ctx, g, templatesCreate, func(context.Context) error { return opErr })
	assert.Same(t, opErr, err)
}

// TestPurpose: Validates that missing authentication is distinguished from missing permission.
// Scope: Unit Test
// Security: Correct 401 vs 403 semantics
// Expected: No actor yields ErrAuthenticationRequired, not ErrPermissionDenied; no audit event.
// Test Case ID: GRD-03
func TestCheck_Unauthenticated(t *testing.T) {
	rec := &recordingAudit{}
	g := New(rec, nil, nil)

	err := g.Check(context.Background(), templatesCreate)
	assert.ErrorIs(t, err, authz.ErrAuthenticationRequired)
	assert.False(t, errors.Is(err, authz.ErrPermissionDenied))
	assert.Empty(t, rec.events)
}

// TestPurpose: Validates that a requirement's declared message is surfaced on denial.
// Scope: Unit Test
// Security: Error reporting
// Expected: The error text equals the declared message.
// Test Case ID: GRD-04
func TestCheck_CustomMessage(t *testing.T) {
	g := New(nil, nil, nil)
	ctx := authz.WithActor(context.Background(), actorWith())

	req := templatesCreate
	req.Message = "You cannot create templates"
	err := g.Check(ctx, req)

	var denied *authz.PermissionDeniedError
	require.ErrorAs(t, err, &denied)
	assert.Equal(t, "You cannot create templates", denied.Error())
	assert.Equal(t, authz.ResourceTemplates, denied.Resource)
	assert.Equal(t, authz.ActionCreate, denied.Action)
}

// TestPurpose: Validates that SUPER_ADMIN passes every requirement, including ones outside the catalog.
// Scope: Unit Test
// Security: Name-based bypass
// Expected: No error for catalog and non-catalog requirements.
// Test Case ID: GRD-05
func TestCheck_SuperAdminBypass(t *testing.T) {
	g := New(nil, nil, nil)
	actor := &authz.Actor{UserID: "root", TenantID: "t1", Roles: []*authz.Role{{Name: authz.RoleSuperAdmin}}}
	ctx := authz.WithActor(context.Background(), actor)

	assert.NoError(t, g.Check(ctx, templatesCreate))
	assert.NoError(t, g.Check(ctx, Requirement{Resource: "BILLING", Action: "EXPORT"}))
}

// TestPurpose: Validates that operation-level declarations override the group default.
// Scope: Unit Test
// Security: Most-specific requirement wins
// Expected: Overridden operations use their own requirement, others the group default.
// Test Case ID: GRD-06
func TestGroup_OperationOverridesDefault(t *testing.T) {
	g := New(nil, nil, nil)
	grp := g.Group(Requirement{Resource: authz.ResourceTemplates, Action: authz.ActionRead}).
		Override("create", templatesCreate)

	assert.Equal(t, authz.ActionRead, grp.Requirement("list").Action)
	assert.Equal(t, authz.ActionCreate, grp.Requirement("create").Action)

	ctx := authz.WithActor(context.Background(), actorWith("TEMPLATES_READ"))

	list, err := Do(ctx, grp, "list", func(context.Context) ([]string, error) {
		return []string{"a"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, list)

	invoked := false
	_, err = Do(ctx, grp, "create", func(context.Context) (string, error) {
		invoked = true
		return "", nil
	})
	assert.ErrorIs(t, err, authz.ErrPermissionDenied)
	assert.False(t, invoked)
	assert.ErrorIs(t, grp.Check(ctx, "create"), authz.ErrPermissionDenied)
}
