package authz

import (
	"context"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"
)

// CachedRoleRepository decorates a RoleRepository with an expirable LRU
// keyed by role ID and by role name. Any mutation purges the cache; the TTL
// bounds staleness for edits made by other processes.
//
// Cached roles are shared between callers and must be treated as read-only.
type CachedRoleRepository struct {
	RoleRepository
	cache *lru.LRU[string, *Role]
}

// NewCachedRoleRepository wraps next with a cache of at most size entries.
func NewCachedRoleRepository(next RoleRepository, size int, ttl time.Duration) *CachedRoleRepository {
	if size <= 0 {
		size = 128
	}
	return &CachedRoleRepository{
		RoleRepository: next,
		cache:          lru.NewLRU[string, *Role](size, nil, ttl),
	}
}

// GetByID retrieves a role, serving repeated lookups from the cache
func (c *CachedRoleRepository) GetByID(ctx context.Context, id string) (*Role, error) {
	if role, ok := c.cache.Get("id:" + id); ok {
		return role, nil
	}
	role, err := c.RoleRepository.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	c.store(role)
	return role, nil
}

// GetByName retrieves a role by name, serving repeated lookups from the cache
func (c *CachedRoleRepository) GetByName(ctx context.Context, name string) (*Role, error) {
	if role, ok := c.cache.Get("name:" + name); ok {
		return role, nil
	}
	role, err := c.RoleRepository.GetByName(ctx, name)
	if err != nil {
		return nil, err
	}
	c.store(role)
	return role, nil
}

// Create inserts a role and drops cached entries
func (c *CachedRoleRepository) Create(ctx context.Context, role *Role) error {
	defer c.cache.Purge()
	return c.RoleRepository.Create(ctx, role)
}

// ReplacePermissions updates a role and drops cached entries
func (c *CachedRoleRepository) ReplacePermissions(ctx context.Context, roleID string, permissionIDs []string, expectedVersion int) error {
	defer c.cache.Purge()
	return c.RoleRepository.ReplacePermissions(ctx, roleID, permissionIDs, expectedVersion)
}

// Delete deletes a role and drops cached entries
func (c *CachedRoleRepository) Delete(ctx context.Context, id string) error {
	defer c.cache.Purge()
	return c.RoleRepository.Delete(ctx, id)
}

// Len reports the number of cached entries.
func (c *CachedRoleRepository) Len() int {
	return c.cache.Len()
}

func (c *CachedRoleRepository) store(role *Role) {
	c.cache.Add("id:"+role.ID, role)
	c.cache.Add("name:"+role.Name, role)
}
