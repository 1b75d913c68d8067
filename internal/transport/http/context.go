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
	"context"

	"github.com/contenthub/contenthub/internal/authz"
)

// GetUserID retrieves the authenticated User ID from context.
func GetUserID(ctx context.Context) string {
	if actor := authz.ActorFromContext(ctx); actor != nil {
		return actor.UserID
	}
	return ""
}

// GetTenantID retrieves the Tenant ID of the authenticated actor from context.
// Tenant context is derived exclusively from the stored user, never from request input.
func GetTenantID(ctx context.Context) string {
	if actor := authz.ActorFromContext(ctx); actor != nil {
		return actor.TenantID
	}
	return ""
}
