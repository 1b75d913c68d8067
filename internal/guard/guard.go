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

// Package guard enforces declared (resource, action) requirements before an
// operation runs. A failed check aborts the operation with no side effect.
package guard

import (
	"context"
	"errors"
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/observability/logger"
)

const instrumentationName = "github.com/contenthub/contenthub/internal/guard"

// Requirement is the (resource, action) pair an operation declares.
type Requirement = authz.Requirement

// Decision outcomes recorded on spans and metrics
const (
	OutcomeAllowed         = "allowed"
	OutcomeDenied          = "denied"
	OutcomeUnauthenticated = "unauthenticated"
)

// Guard evaluates requirements against the actor carried by the context
type Guard struct {
	auditLogger audit.Logger
	tracer      trace.Tracer
	decisions   metric.Int64Counter
}

// New creates a guard. A nil meter or tracer falls back to the global providers.
func New(auditLogger audit.Logger, meter metric.Meter, tracer trace.Tracer) *Guard {
	if auditLogger == nil {
		auditLogger = audit.NopLogger{}
	}
	if meter == nil {
		meter = otel.Meter(instrumentationName)
	}
	if tracer == nil {
		tracer = otel.Tracer(instrumentationName)
	}

	decisions, err := meter.Int64Counter("authz.guard.decisions",
		metric.WithDescription("Access guard decisions by outcome"),
	)
	if err != nil {
		slog.Warn("failed to create guard decision counter", logger.Error(err))
		decisions = noop.Int64Counter{}
	}

	return &Guard{
		auditLogger: auditLogger,
		tracer:      tracer,
		decisions:   decisions,
	}
}

// Check resolves the actor from ctx and evaluates req.
// It returns authz.ErrAuthenticationRequired or a *authz.PermissionDeniedError.
func (g *Guard) Check(ctx context.Context, req Requirement) error {
	ctx, span := g.tracer.Start(ctx, "guard.Check",
		trace.WithAttributes(attribute.String("authz.permission", req.Name())),
	)
	defer span.End()

	actor := authz.ActorFromContext(ctx)
	err := authz.Authorize(actor, req)

	outcome := OutcomeAllowed
	switch {
	case errors.Is(err, authz.ErrAuthenticationRequired):
		outcome = OutcomeUnauthenticated
	case err != nil:
		outcome = OutcomeDenied
	}

	span.SetAttributes(attribute.String("authz.outcome", outcome))
	g.decisions.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("permission", req.Name()),
	))

	if outcome == OutcomeDenied {
		span.SetStatus(codes.Error, "permission denied")
		slog.WarnContext(ctx, "permission denied",
			logger.UserID(actor.UserID),
			logger.TenantID(actor.TenantID),
			logger.Permission(req.Name()),
			logger.Resource(string(req.Resource)),
			logger.Action(string(req.Action)),
		)
		g.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypePermissionDenied,
			TenantID: actor.TenantID,
			ActorID:  actor.UserID,
			Resource: string(req.Resource),
			Metadata: map[string]any{audit.AttrPermission: req.Name()},
		})
	}
	return err
}

// Run invokes op only after req passes. The result and error of op are
// returned unchanged.
func Run[T any](ctx context.Context, g *Guard, req Requirement, op func(context.Context) (T, error)) (T, error) {
	if err := g.Check(ctx, req); err != nil {
		var zero T
		return zero, err
	}
	return op(ctx)
}

// Exec is Run for operations without a result.
func Exec(ctx context.Context, g *Guard, req Requirement, op func(context.Context) error) error {
	if err := g.Check(ctx, req); err != nil {
		return err
	}
	return op(ctx)
}
