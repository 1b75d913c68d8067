package memory

import (
	"context"
	"sort"

	"github.com/contenthub/contenthub/internal/content"
	"github.com/contenthub/contenthub/internal/tenant"
)

// TenantRepository implements tenant.Repository
type TenantRepository struct {
	s *Store
}

// Create stores a tenant
func (r *TenantRepository) Create(_ context.Context, t *tenant.Tenant) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.tenants[t.ID]; ok {
		return tenant.ErrTenantAlreadyExists
	}
	cp := *t
	r.s.tenants[t.ID] = &cp
	return nil
}

// GetByID retrieves a tenant by ID
func (r *TenantRepository) GetByID(_ context.Context, id string) (*tenant.Tenant, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.tenants[id]
	if !ok {
		return nil, tenant.ErrTenantNotFound
	}
	cp := *t
	return &cp, nil
}

// TemplateRepository implements content.Repository
type TemplateRepository struct {
	s *Store
}

// Create stores a template; (tenant, name, locale) is unique
func (r *TemplateRepository) Create(_ context.Context, t *content.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.conflicts(t) {
		return content.ErrTemplateAlreadyExists
	}
	cp := *t
	r.s.templates[t.ID] = &cp
	return nil
}

// GetByID retrieves a template of any tenant by ID
func (r *TemplateRepository) GetByID(_ context.Context, id string) (*content.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	t, ok := r.s.templates[id]
	if !ok {
		return nil, content.ErrTemplateNotFound
	}
	cp := *t
	return &cp, nil
}

// ListByTenant retrieves the templates of a tenant ordered by name and locale
func (r *TemplateRepository) ListByTenant(_ context.Context, tenantID string) ([]*content.Template, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var out []*content.Template
	for _, t := range r.s.templates {
		if t.TenantID == tenantID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].Locale < out[j].Locale
	})
	return out, nil
}

// Update replaces a stored template
func (r *TemplateRepository) Update(_ context.Context, t *content.Template) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.templates[t.ID]; !ok {
		return content.ErrTemplateNotFound
	}
	if r.conflicts(t) {
		return content.ErrTemplateAlreadyExists
	}
	cp := *t
	r.s.templates[t.ID] = &cp
	return nil
}

// Delete removes a template
func (r *TemplateRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.templates[id]; !ok {
		return content.ErrTemplateNotFound
	}
	delete(r.s.templates, id)
	return nil
}

// conflicts must be called with the lock held
func (r *TemplateRepository) conflicts(t *content.Template) bool {
	for _, other := range r.s.templates {
		if other.ID != t.ID && other.TenantID == t.TenantID && other.Name == t.Name && other.Locale == t.Locale {
			return true
		}
	}
	return false
}
