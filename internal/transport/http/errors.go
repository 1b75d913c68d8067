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

package http

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/content"
	"github.com/contenthub/contenthub/internal/identity"
	"github.com/contenthub/contenthub/internal/observability/logger"
	"github.com/contenthub/contenthub/internal/tenant"
)

// statusFor maps a domain error to an HTTP status and a client-safe message.
func statusFor(err error) (int, string) {
	var denied *authz.PermissionDeniedError
	var violation *tenant.ViolationError

	switch {
	case errors.Is(err, authz.ErrAuthenticationRequired):
		return http.StatusUnauthorized, "authentication required"
	case errors.As(err, &denied):
		return http.StatusForbidden, denied.Error()
	case errors.As(err, &violation):
		return http.StatusForbidden, violation.Error()
	case errors.Is(err, tenant.ErrNoOrganization):
		return http.StatusBadRequest, err.Error()

	case errors.Is(err, identity.ErrInvalidCredentials),
		errors.Is(err, identity.ErrUserDisabled):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, identity.ErrAccountLocked):
		return http.StatusLocked, "account is temporarily locked"

	case errors.Is(err, authz.ErrRoleNotFound),
		errors.Is(err, authz.ErrPermissionNotFound),
		errors.Is(err, identity.ErrUserNotFound),
		errors.Is(err, identity.ErrInvitationNotFound),
		errors.Is(err, content.ErrTemplateNotFound),
		errors.Is(err, tenant.ErrTenantNotFound):
		return http.StatusNotFound, err.Error()

	case errors.Is(err, authz.ErrRoleAlreadyExists),
		errors.Is(err, authz.ErrRoleVersionConflict),
		errors.Is(err, identity.ErrUserAlreadyExists),
		errors.Is(err, identity.ErrInvitationUsed),
		errors.Is(err, content.ErrTemplateAlreadyExists),
		errors.Is(err, tenant.ErrTenantAlreadyExists):
		return http.StatusConflict, err.Error()

	case errors.Is(err, identity.ErrInvitationExpired):
		return http.StatusGone, err.Error()

	case errors.Is(err, authz.ErrInvalidPermission),
		errors.Is(err, authz.ErrInvalidRole),
		errors.Is(err, authz.ErrSystemRole),
		errors.Is(err, identity.ErrInvalidEmail),
		errors.Is(err, identity.ErrWeakPassword),
		errors.Is(err, identity.ErrRoleNotAssigned),
		errors.Is(err, content.ErrInvalidTemplate),
		errors.Is(err, tenant.ErrInvalidTenant):
		return http.StatusBadRequest, err.Error()
	}
	return http.StatusInternalServerError, "internal server error"
}

// writeError responds with the status mapped from err.
// Unmapped errors are logged and reported without detail.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, message := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed",
			logger.Method(r.Method),
			logger.Path(r.URL.Path),
			logger.Error(err),
		)
	}
	respondError(w, status, message)
}
