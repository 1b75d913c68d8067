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

// Package http exposes the ContentHub JSON API.
package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/contenthub/contenthub/internal/auth"
	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/content"
	"github.com/contenthub/contenthub/internal/guard"
	"github.com/contenthub/contenthub/internal/identity"
	"github.com/contenthub/contenthub/internal/observability/logger"
	"github.com/contenthub/contenthub/internal/observability/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HealthChecker reports whether a backing store is reachable
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// Handler holds HTTP handlers and dependencies
type Handler struct {
	identityService *identity.Service
	authzService    *authz.Service
	templateService *content.TemplateService
	guard           *guard.Guard
	tokens          *auth.TokenService
	health          HealthChecker
}

// NewHandler creates a new HTTP handler. health may be nil.
func NewHandler(
	identityService *identity.Service,
	authzService *authz.Service,
	templateService *content.TemplateService,
	g *guard.Guard,
	tokens *auth.TokenService,
	health HealthChecker,
) *Handler {
	return &Handler{
		identityService: identityService,
		authzService:    authzService,
		templateService: templateService,
		guard:           g,
		tokens:          tokens,
		health:          health,
	}
}

// RouterConfig holds the cross-cutting middleware settings
type RouterConfig struct {
	RateLimiter    *RateLimiter // nil disables rate limiting
	RequestMetrics *metrics.RequestMetrics
	RequestTimeout time.Duration
}

// NewRouter creates a new HTTP router
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	// Middleware
	r.Use(middleware.RequestID)
	if cfg.RateLimiter != nil {
		r.Use(RateLimitMiddleware(cfg.RateLimiter))
	}
	r.Use(func(handler http.Handler) http.Handler {
		return otelhttp.NewHandler(handler, "http_request",
			otelhttp.WithSpanNameFormatter(func(operation string, r *http.Request) string {
				return r.Method + " " + r.URL.Path
			}),
		)
	})
	r.Use(LoggingMiddleware(cfg.RequestMetrics))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Get("/health", h.HealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		// Public endpoints
		r.Post("/auth/register", h.Register)
		r.Post("/auth/login", h.Login)
		r.Post("/auth/invitations/{token}/accept", h.AcceptInvitation)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(h.AuthMiddleware)

			r.Get("/auth/me", h.GetCurrentUser)

			// Role administration (platform-wide catalog)
			r.With(h.require(authz.ResourceRoles, authz.ActionRead)).Get("/permissions", h.ListPermissions)
			r.Route("/roles", func(r chi.Router) {
				r.With(h.require(authz.ResourceRoles, authz.ActionRead)).Get("/", h.ListRoles)
				r.With(h.require(authz.ResourceRoles, authz.ActionCreate)).Post("/", h.CreateRole)
				r.With(h.require(authz.ResourceRoles, authz.ActionRead)).Get("/{roleID}", h.GetRole)
				r.With(h.require(authz.ResourceRoles, authz.ActionUpdate)).Put("/{roleID}/permissions", h.UpdateRolePermissions)
				r.With(h.require(authz.ResourceRoles, authz.ActionDelete)).Delete("/{roleID}", h.DeleteRole)
			})

			// Tenant-scoped endpoints (FAIL-CLOSED)
			r.Group(func(r chi.Router) {
				r.Use(RequireTenant)

				r.Route("/users", func(r chi.Router) {
					r.With(h.require(authz.ResourceUsers, authz.ActionRead)).Get("/", h.ListUsers)
					r.Route("/{userID}", func(r chi.Router) {
						r.Use(h.require(authz.ResourceUsers, authz.ActionUpdate))
						r.Post("/roles", h.AssignRole)
						r.Delete("/roles/{roleName}", h.RevokeRole)
						r.Post("/permissions", h.GrantPermission)
						r.Delete("/permissions/{permission}", h.RevokePermission)
						r.Patch("/status", h.SetUserStatus)
					})
				})

				r.With(h.require(authz.ResourceInvitations, authz.ActionCreate)).Post("/invitations", h.CreateInvitation)

				// Requirements declared by the template service's guard group
				r.Route("/templates", func(r chi.Router) {
					r.Get("/", h.ListTemplates)
					r.Post("/", h.CreateTemplate)
					r.Get("/{templateID}", h.GetTemplate)
					r.Put("/{templateID}", h.UpdateTemplate)
					r.Delete("/{templateID}", h.DeleteTemplate)
				})
			})
		})
	})

	return r
}

// HealthCheck returns the health status
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if h.health != nil {
		if err := h.health.Ping(r.Context()); err != nil {
			slog.ErrorContext(r.Context(), "health check failed", logger.Error(err))
			respondJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status":  "unhealthy",
				"service": "contenthub",
			})
			return
		}
	}
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "contenthub",
	})
}

// Helper functions
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", logger.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}
