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

package tenant

import (
	"context"
	"errors"
	"fmt"

	"github.com/contenthub/contenthub/internal/authz"
)

// ErrNoOrganization is returned when an authenticated actor has no tenant yet.
var ErrNoOrganization = errors.New("no organization associated with the current user")

// ErrTenantViolation is the sentinel matched by every *ViolationError.
var ErrTenantViolation = errors.New("tenant violation")

// ViolationError reports an attempt to touch an entity owned by another tenant.
type ViolationError struct {
	ActorTenantID string
	OwnerTenantID string
}

func (e *ViolationError) Error() string {
	return fmt.Sprintf("tenant violation: actor tenant %q does not own resource of tenant %q",
		e.ActorTenantID, e.OwnerTenantID)
}

// Is makes errors.Is(err, ErrTenantViolation) match.
func (e *ViolationError) Is(target error) bool {
	return target == ErrTenantViolation
}

// CurrentTenantID returns the tenant every tenant-scoped query must be constrained by.
// Collaborators call it before anything else and fail fast on error.
func CurrentTenantID(actor *authz.Actor) (string, error) {
	if actor == nil {
		return "", authz.ErrAuthenticationRequired
	}
	if actor.TenantID == "" {
		return "", ErrNoOrganization
	}
	return actor.TenantID, nil
}

// FromContext resolves the tenant of the actor stored on ctx.
func FromContext(ctx context.Context) (string, error) {
	return CurrentTenantID(authz.ActorFromContext(ctx))
}

// Verify checks that an entity owned by ownerTenantID may be touched by an
// actor of actorTenantID. An empty owner never matches.
func Verify(actorTenantID, ownerTenantID string) error {
	if actorTenantID == "" || actorTenantID != ownerTenantID {
		return &ViolationError{ActorTenantID: actorTenantID, OwnerTenantID: ownerTenantID}
	}
	return nil
}

// Owned is implemented by tenant-scoped entities.
type Owned interface {
	OwnerTenantID() string
}

// EnsureOwned re-verifies ownership after a fetch by primary key.
// Call it once not-found has been ruled out and before any mutation.
func EnsureOwned(ctx context.Context, entity Owned) error {
	tenantID, err := FromContext(ctx)
	if err != nil {
		return err
	}
	return Verify(tenantID, entity.OwnerTenantID())
}
