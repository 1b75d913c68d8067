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
	"fmt"
	"strings"
	"time"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/id"
)

// Service provides tenant management business logic
type Service struct {
	repo        Repository
	auditLogger audit.Logger
}

// NewService creates a new tenant service
func NewService(repo Repository, auditLogger audit.Logger) *Service {
	return &Service{
		repo:        repo,
		auditLogger: auditLogger,
	}
}

// New validates name and builds an active tenant without persisting it.
// Callers that store the tenant as part of a larger write use it together with RecordCreated.
func New(name string) (*Tenant, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: tenant name is required", ErrInvalidTenant)
	}

	now := time.Now()
	return &Tenant{
		ID:        id.NewUUIDv7(),
		Name:      name,
		Status:    StatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// CreateTenant creates a new active tenant.
// createdBy is recorded in the audit trail only.
func (s *Service) CreateTenant(ctx context.Context, name, createdBy string) (*Tenant, error) {
	tenant, err := New(name)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	s.RecordCreated(ctx, tenant, createdBy)
	return tenant, nil
}

// RecordCreated writes the audit event for a tenant persisted elsewhere
func (s *Service) RecordCreated(ctx context.Context, tenant *Tenant, createdBy string) {
	s.auditLogger.Log(ctx, audit.Event{
		Type:     audit.TypeTenantCreated,
		TenantID: tenant.ID,
		ActorID:  createdBy,
		Resource: tenant.Name,
	})
}

// GetTenant retrieves a tenant by ID
func (s *Service) GetTenant(ctx context.Context, id string) (*Tenant, error) {
	if id == "" {
		return nil, ErrTenantNotFound
	}
	return s.repo.GetByID(ctx, id)
}
