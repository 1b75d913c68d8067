package content

import (
	"context"
	"errors"
	"time"
)

var (
	ErrTemplateNotFound      = errors.New("template not found")
	ErrTemplateAlreadyExists = errors.New("template already exists")
	ErrInvalidTemplate       = errors.New("invalid template")
)

// Template is a tenant-owned document template
type Template struct {
	ID        string
	TenantID  string
	Name      string
	Locale    string
	Body      string
	CreatedBy string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// OwnerTenantID implements tenant.Owned
func (t *Template) OwnerTenantID() string {
	return t.TenantID
}

// TemplateInput carries the mutable fields of a template
type TemplateInput struct {
	Name   string
	Locale string
	Body   string
}

// Repository defines the interface for template persistence.
// Only ListByTenant is tenant-scoped; entities fetched by ID must be re-verified.
type Repository interface {
	// Create inserts a template. Returns ErrTemplateAlreadyExists when the
	// (tenant, name, locale) triple is taken.
	Create(ctx context.Context, template *Template) error
	GetByID(ctx context.Context, id string) (*Template, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*Template, error)
	Update(ctx context.Context, template *Template) error
	Delete(ctx context.Context, id string) error
}
