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

// Package content holds tenant-scoped content collaborators of the
// authorization core. Every operation is guarded and tenant-isolated.
package content

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/guard"
	"github.com/contenthub/contenthub/internal/id"
	"github.com/contenthub/contenthub/internal/tenant"
)

// Template operations
const (
	OpList   = "list"
	OpGet    = "get"
	OpCreate = "create"
	OpUpdate = "update"
	OpDelete = "delete"
)

// DefaultLocale is applied when a template declares none
const DefaultLocale = "en"

// TemplateService manages templates of the current actor's tenant
type TemplateService struct {
	repo        Repository
	requires    *guard.Group
	auditLogger audit.Logger
}

// NewTemplateService creates a new template service
func NewTemplateService(repo Repository, g *guard.Guard, auditLogger audit.Logger) *TemplateService {
	requires := g.Group(guard.Requirement{
		Resource: authz.ResourceTemplates,
		Action:   authz.ActionRead,
		Message:  "You do not have permission to view templates",
	}).
		Override(OpCreate, guard.Requirement{
			Resource: authz.ResourceTemplates,
			Action:   authz.ActionCreate,
			Message:  "You do not have permission to create templates",
		}).
		Override(OpUpdate, guard.Requirement{
			Resource: authz.ResourceTemplates,
			Action:   authz.ActionUpdate,
			Message:  "You do not have permission to update templates",
		}).
		Override(OpDelete, guard.Requirement{
			Resource: authz.ResourceTemplates,
			Action:   authz.ActionDelete,
			Message:  "You do not have permission to delete templates",
		})

	return &TemplateService{
		repo:        repo,
		requires:    requires,
		auditLogger: auditLogger,
	}
}

// Requirements exposes the declared requirement group
func (s *TemplateService) Requirements() *guard.Group {
	return s.requires
}

// List returns the templates of the current tenant
func (s *TemplateService) List(ctx context.Context) ([]*Template, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return guard.Do(ctx, s.requires, OpList, func(ctx context.Context) ([]*Template, error) {
		return s.repo.ListByTenant(ctx, tenantID)
	})
}

// Get returns a template owned by the current tenant
func (s *TemplateService) Get(ctx context.Context, templateID string) (*Template, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return guard.Do(ctx, s.requires, OpGet, func(ctx context.Context) (*Template, error) {
		return s.loadOwned(ctx, tenantID, templateID)
	})
}

// Create creates a template in the current tenant
func (s *TemplateService) Create(ctx context.Context, in TemplateInput) (*Template, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return guard.Do(ctx, s.requires, OpCreate, func(ctx context.Context) (*Template, error) {
		in, err := normalize(in)
		if err != nil {
			return nil, err
		}

		now := time.Now()
		tpl := &Template{
			ID:        id.NewUUIDv7(),
			TenantID:  tenantID,
			Name:      in.Name,
			Locale:    in.Locale,
			Body:      in.Body,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if actor := authz.ActorFromContext(ctx); actor != nil {
			tpl.CreatedBy = actor.UserID
		}

		if err := s.repo.Create(ctx, tpl); err != nil {
			return nil, err
		}
		s.audit(ctx, tenantID, audit.TypeTemplateCreated, tpl)
		return tpl, nil
	})
}

// Update replaces the content of a template owned by the current tenant
func (s *TemplateService) Update(ctx context.Context, templateID string, in TemplateInput) (*Template, error) {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return nil, err
	}
	return guard.Do(ctx, s.requires, OpUpdate, func(ctx context.Context) (*Template, error) {
		in, err := normalize(in)
		if err != nil {
			return nil, err
		}
		tpl, err := s.loadOwned(ctx, tenantID, templateID)
		if err != nil {
			return nil, err
		}

		tpl.Name = in.Name
		tpl.Locale = in.Locale
		tpl.Body = in.Body
		tpl.UpdatedAt = time.Now()
		if err := s.repo.Update(ctx, tpl); err != nil {
			return nil, err
		}
		s.audit(ctx, tenantID, audit.TypeTemplateUpdated, tpl)
		return tpl, nil
	})
}

// Delete deletes a template owned by the current tenant
func (s *TemplateService) Delete(ctx context.Context, templateID string) error {
	tenantID, err := tenant.FromContext(ctx)
	if err != nil {
		return err
	}
	_, err = guard.Do(ctx, s.requires, OpDelete, func(ctx context.Context) (struct{}, error) {
		tpl, err := s.loadOwned(ctx, tenantID, templateID)
		if err != nil {
			return struct{}{}, err
		}
		if err := s.repo.Delete(ctx, tpl.ID); err != nil {
			return struct{}{}, err
		}
		s.audit(ctx, tenantID, audit.TypeTemplateDeleted, tpl)
		return struct{}{}, nil
	})
	return err
}

// loadOwned fetches by primary key, rules out not-found, then verifies ownership.
func (s *TemplateService) loadOwned(ctx context.Context, tenantID, templateID string) (*Template, error) {
	tpl, err := s.repo.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if err := tenant.Verify(tenantID, tpl.TenantID); err != nil {
		s.audit(ctx, tenantID, audit.TypeTenantViolation, tpl)
		return nil, err
	}
	return tpl, nil
}

func (s *TemplateService) audit(ctx context.Context, tenantID, eventType string, tpl *Template) {
	event := audit.Event{
		Type:     eventType,
		TenantID: tenantID,
		Resource: "template:" + tpl.ID,
		Metadata: map[string]any{"name": tpl.Name, "locale": tpl.Locale},
	}
	if actor := authz.ActorFromContext(ctx); actor != nil {
		event.ActorID = actor.UserID
	}
	s.auditLogger.Log(ctx, event)
}

func normalize(in TemplateInput) (TemplateInput, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Locale = strings.TrimSpace(in.Locale)
	if in.Name == "" {
		return in, fmt.Errorf("%w: name is required", ErrInvalidTemplate)
	}
	if len(in.Name) > 200 {
		return in, fmt.Errorf("%w: name is too long", ErrInvalidTemplate)
	}
	if in.Locale == "" {
		in.Locale = DefaultLocale
	}
	return in, nil
}
