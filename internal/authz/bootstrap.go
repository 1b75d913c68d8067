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

package authz

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/id"
	"github.com/contenthub/contenthub/internal/observability/logger"
)

// Bootstrapper materializes the permission catalog and the canonical roles.
// Every insert is preceded by an existence check, so running it again is a no-op.
type Bootstrapper struct {
	permRepo    PermissionRepository
	roleRepo    RoleRepository
	auditLogger audit.Logger
}

// BootstrapResult counts the rows created by a run.
type BootstrapResult struct {
	PermissionsCreated int
	RolesCreated       int
}

// NewBootstrapper creates a new bootstrapper
func NewBootstrapper(permRepo PermissionRepository, roleRepo RoleRepository, auditLogger audit.Logger) *Bootstrapper {
	return &Bootstrapper{
		permRepo:    permRepo,
		roleRepo:    roleRepo,
		auditLogger: auditLogger,
	}
}

// Run ensures the catalog and then the canonical roles.
func (b *Bootstrapper) Run(ctx context.Context) (*BootstrapResult, error) {
	result := &BootstrapResult{}

	created, err := b.EnsureCatalog(ctx)
	result.PermissionsCreated = created
	if err != nil {
		return result, err
	}

	created, err = b.EnsureCanonicalRoles(ctx)
	result.RolesCreated = created
	if err != nil {
		return result, err
	}

	slog.InfoContext(ctx, "catalog bootstrap completed",
		slog.Int("permissions_created", result.PermissionsCreated),
		slog.Int("roles_created", result.RolesCreated),
	)

	if result.PermissionsCreated > 0 || result.RolesCreated > 0 {
		b.auditLogger.Log(ctx, audit.Event{
			Type:     audit.TypeCatalogBootstrapped,
			ActorID:  audit.ActorSystemBootstrap,
			Resource: audit.ResourceCatalog,
			Metadata: map[string]any{
				"permissions_created": result.PermissionsCreated,
				"roles_created":       result.RolesCreated,
			},
		})
	}

	return result, nil
}

// EnsureCatalog inserts every missing RESOURCE_ACTION permission.
// A duplicate-key rejection from a concurrent writer counts as already present.
func (b *Bootstrapper) EnsureCatalog(ctx context.Context) (int, error) {
	created := 0
	for _, entry := range Catalog() {
		exists, err := b.permRepo.ExistsByName(ctx, entry.Name)
		if err != nil {
			return created, fmt.Errorf("failed to check permission %s: %w", entry.Name, err)
		}
		if exists {
			continue
		}

		err = b.permRepo.Create(ctx, &Permission{
			ID:          id.NewUUIDv7(),
			Name:        entry.Name,
			Resource:    entry.Resource,
			Action:      entry.Action,
			Description: entry.Description,
			CreatedAt:   time.Now(),
		})
		if errors.Is(err, ErrPermissionAlreadyExists) {
			slog.DebugContext(ctx, "permission created concurrently", logger.Permission(entry.Name))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to create permission %s: %w", entry.Name, err)
		}
		created++
	}
	return created, nil
}

// EnsureCanonicalRoles creates SUPER_ADMIN, ADMIN, EDITOR and VIEWER if absent.
// Existing roles are left untouched, including manual edits.
func (b *Bootstrapper) EnsureCanonicalRoles(ctx context.Context) (int, error) {
	created := 0
	for _, def := range CanonicalRoles() {
		exists, err := b.roleRepo.ExistsByName(ctx, def.Name)
		if err != nil {
			return created, fmt.Errorf("failed to check role %s: %w", def.Name, err)
		}
		if exists {
			continue
		}

		perms, err := b.resolvePermissions(ctx, def.Permissions)
		if err != nil {
			return created, fmt.Errorf("failed to resolve permissions for role %s: %w", def.Name, err)
		}

		now := time.Now()
		err = b.roleRepo.Create(ctx, &Role{
			ID:          id.NewUUIDv7(),
			Name:        def.Name,
			Description: def.Description,
			IsSystem:    true,
			Permissions: perms,
			Version:     1,
			CreatedAt:   now,
			UpdatedAt:   now,
		})
		if errors.Is(err, ErrRoleAlreadyExists) {
			slog.DebugContext(ctx, "role created concurrently", logger.Role(def.Name))
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to create role %s: %w", def.Name, err)
		}
		created++
	}
	return created, nil
}

func (b *Bootstrapper) resolvePermissions(ctx context.Context, names []string) ([]*Permission, error) {
	perms := make([]*Permission, 0, len(names))
	for _, name := range names {
		p, err := b.permRepo.GetByName(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("permission %s: %w", name, err)
		}
		perms = append(perms, p)
	}
	return perms, nil
}
