package tenant

import (
	"time"
)

// Tenant represents an organization ("corporate") owning content and users
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Status constants
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// IsActive reports whether the tenant accepts requests
func (t *Tenant) IsActive() bool {
	return t.Status == StatusActive
}
