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

package audit

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// Event types
const (
	TypeLoginSuccess        = "login_success"
	TypeLoginFailed         = "login_failed"
	TypeUserRegistered      = "user_registered"
	TypeInvitationCreated   = "invitation_created"
	TypeInvitationAccepted  = "invitation_accepted"
	TypeRoleAssigned        = "role_assigned"
	TypeRoleRevoked         = "role_revoked"
	TypePermissionGranted   = "permission_granted"
	TypePermissionRevoked   = "permission_revoked"
	TypeRoleCreated         = "role_created"
	TypeRoleUpdated         = "role_updated"
	TypeRoleDeleted         = "role_deleted"
	TypePermissionDenied    = "permission_denied"
	TypeTenantViolation     = "tenant_violation"
	TypeCatalogBootstrapped = "catalog_bootstrapped"
	TypeTenantCreated       = "tenant_created"
	TypeTemplateCreated     = "template_created"
	TypeTemplateUpdated     = "template_updated"
	TypeTemplateDeleted     = "template_deleted"
	TypeUserStatusChanged   = "user_status_changed"
)

// Well-known actors and resources
const (
	ActorSystemBootstrap = "system:bootstrap"
	ResourceCatalog      = "permission_catalog"
)

// Metadata keys
const (
	AttrEmail       = "email"
	AttrTenantID    = "tenant_id"
	AttrRoleID      = "role_id"
	AttrRole        = "role"
	AttrRoles       = "roles"
	AttrPermission  = "permission"
	AttrPermissions = "permissions"
	AttrReason      = "reason"
	AttrTargetUser  = "target_user_id"
)

// Event represents an auditable action
type Event struct {
	Type      string
	TenantID  string
	ActorID   string
	Resource  string
	Metadata  map[string]any
	Timestamp time.Time
	IPAddress string
	UserAgent string
}

// Logger defines the interface for audit logging
type Logger interface {
	Log(ctx context.Context, event Event)
}

// SlogLogger implements Logger using slog
type SlogLogger struct{}

// NewSlogLogger creates a new audit logger
func NewSlogLogger() *SlogLogger {
	return &SlogLogger{}
}

// Log records an audit event
func (l *SlogLogger) Log(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	attrs := []any{
		slog.String("audit_type", event.Type),
		slog.String("tenant_id", event.TenantID),
		slog.String("actor_id", event.ActorID),
		slog.String("resource", event.Resource),
		slog.Time("timestamp", event.Timestamp),
	}

	if event.IPAddress != "" {
		attrs = append(attrs, slog.String("ip_address", event.IPAddress))
	}
	if event.UserAgent != "" {
		attrs = append(attrs, slog.String("user_agent", event.UserAgent))
	}

	// Flatten metadata
	if len(event.Metadata) > 0 {
		group := []any{}
		for k, v := range event.Metadata {
			if isSecret(k) {
				v = "[REDACTED]"
			}
			group = append(group, slog.Any(k, v))
		}
		attrs = append(attrs, slog.Group("metadata", group...))
	}

	slog.InfoContext(ctx, "AUDIT_EVENT", append(attrs, slog.String("component", "audit"))...)
}

// NopLogger discards every event.
type NopLogger struct{}

// Log implements Logger
func (NopLogger) Log(context.Context, Event) {}

// isSecret checks if a key likely contains a secret
func isSecret(key string) bool {
	k := strings.ToLower(key)
	for _, s := range []string{"password", "secret", "token", "key", "hash", "credential", "authorization"} {
		if strings.Contains(k, s) {
			return true
		}
	}
	return false
}
