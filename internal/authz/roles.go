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

// -----------------------------------------------------------------------------
// Role Name Constants
// These are the canonical names for roles stored in the database.
// -----------------------------------------------------------------------------

const (
	// RoleSuperAdmin bypasses every permission check.
	// The bypass is keyed on this exact name, not on the permission set.
	RoleSuperAdmin = "SUPER_ADMIN"

	// RoleAdmin manages everything in a tenant except creating users.
	RoleAdmin = "ADMIN"

	// RoleEditor manages content resources.
	RoleEditor = "EDITOR"

	// RoleViewer has read-only access to every resource.
	RoleViewer = "VIEWER"
)

// CanonicalRoleNames lists the built-in roles in bootstrap order.
var CanonicalRoleNames = []string{RoleSuperAdmin, RoleAdmin, RoleEditor, RoleViewer}

// RoleDefinition describes a role to be materialized by bootstrap.
type RoleDefinition struct {
	Name        string
	Description string
	Permissions []string // canonical permission names, deduplicated
}

// -----------------------------------------------------------------------------
// Role Permission Mappings
// Derived from the catalog; used for seeding and regression checks.
// -----------------------------------------------------------------------------

// SuperAdminPermissions returns every permission in the catalog.
func SuperAdminPermissions() []string {
	var names []string
	for _, e := range Catalog() {
		names = append(names, e.Name)
	}
	return names
}

// AdminPermissions returns every permission outside USERS plus
// USERS_READ, USERS_UPDATE and USERS_DELETE. USERS_CREATE is excluded.
func AdminPermissions() []string {
	var names []string
	for _, e := range Catalog() {
		if e.Resource == ResourceUsers {
			continue
		}
		names = append(names, e.Name)
	}
	return append(names,
		PermissionName(ResourceUsers, ActionRead),
		PermissionName(ResourceUsers, ActionUpdate),
		PermissionName(ResourceUsers, ActionDelete),
	)
}

// EditorPermissions returns CRUD on content resources plus
// READ on DASHBOARD, APP_CONFIG and MEDIA.
func EditorPermissions() []string {
	set := newNameSet()
	for _, r := range ContentResources {
		for _, a := range Actions {
			set.add(PermissionName(r, a))
		}
	}
	for _, r := range []Resource{ResourceDashboard, ResourceAppConfig, ResourceMedia} {
		set.add(PermissionName(r, ActionRead))
	}
	return set.ordered
}

// ViewerPermissions returns READ on every resource.
func ViewerPermissions() []string {
	names := make([]string, 0, len(Resources))
	for _, r := range Resources {
		names = append(names, PermissionName(r, ActionRead))
	}
	return names
}

// CanonicalRoles returns the four built-in role definitions.
func CanonicalRoles() []RoleDefinition {
	return []RoleDefinition{
		{
			Name:        RoleSuperAdmin,
			Description: "Super administrator with all permissions",
			Permissions: SuperAdminPermissions(),
		},
		{
			Name:        RoleAdmin,
			Description: "Administrator with full access except user creation",
			Permissions: AdminPermissions(),
		},
		{
			Name:        RoleEditor,
			Description: "Editor with content management permissions",
			Permissions: EditorPermissions(),
		},
		{
			Name:        RoleViewer,
			Description: "Viewer with read-only access",
			Permissions: ViewerPermissions(),
		},
	}
}

// IsCanonicalRole reports whether name is one of the built-in roles.
func IsCanonicalRole(name string) bool {
	for _, n := range CanonicalRoleNames {
		if n == name {
			return true
		}
	}
	return false
}

// nameSet keeps insertion order while deduplicating.
type nameSet struct {
	seen    map[string]struct{}
	ordered []string
}

func newNameSet() *nameSet {
	return &nameSet{seen: make(map[string]struct{})}
}

func (s *nameSet) add(name string) {
	if _, ok := s.seen[name]; ok {
		return
	}
	s.seen[name] = struct{}{}
	s.ordered = append(s.ordered, name)
}
