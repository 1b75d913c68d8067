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
	"fmt"
	"strings"
)

// Resource is a category of domain objects subject to access control.
type Resource string

const (
	ResourceTranslations Resource = "TRANSLATIONS"
	ResourceTemplates    Resource = "TEMPLATES"
	ResourceLOV          Resource = "LOV"
	ResourceAppConfig    Resource = "APP_CONFIG"
	ResourceErrorCodes   Resource = "ERROR_CODES"
	ResourceUsers        Resource = "USERS"
	ResourceRoles        Resource = "ROLES"
	ResourceInvitations  Resource = "INVITATIONS"
	ResourceApps         Resource = "APPS"
	ResourceDashboard    Resource = "DASHBOARD"
	ResourceAPIKeys      Resource = "API_KEYS"
	ResourceMedia        Resource = "MEDIA"
	ResourceOrganization Resource = "ORGANIZATION"
)

// Action is an operation performed on a resource.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionRead   Action = "READ"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Resources is the closed set of resources, in catalog order.
var Resources = []Resource{
	ResourceTranslations,
	ResourceTemplates,
	ResourceLOV,
	ResourceAppConfig,
	ResourceErrorCodes,
	ResourceUsers,
	ResourceRoles,
	ResourceInvitations,
	ResourceApps,
	ResourceDashboard,
	ResourceAPIKeys,
	ResourceMedia,
	ResourceOrganization,
}

// Actions is the closed set of actions, in catalog order.
var Actions = []Action{ActionCreate, ActionRead, ActionUpdate, ActionDelete}

// ContentResources receive full CRUD in the EDITOR bundle.
var ContentResources = []Resource{
	ResourceTranslations,
	ResourceTemplates,
	ResourceLOV,
	ResourceErrorCodes,
	ResourceMedia,
}

// PermissionName derives the canonical RESOURCE_ACTION name.
func PermissionName(resource Resource, action Action) string {
	return strings.ToUpper(string(resource)) + "_" + strings.ToUpper(string(action))
}

// ParsePermissionName splits a canonical name into its catalog resource and action.
// Resource names may contain underscores, so the action is matched as the suffix.
func ParsePermissionName(name string) (Resource, Action, error) {
	upper := strings.ToUpper(strings.TrimSpace(name))
	if upper != name {
		return "", "", fmt.Errorf("%w: %q is not in RESOURCE_ACTION format", ErrInvalidPermission, name)
	}
	for _, action := range Actions {
		suffix := "_" + string(action)
		if !strings.HasSuffix(name, suffix) {
			continue
		}
		resource := Resource(strings.TrimSuffix(name, suffix))
		if IsCatalogResource(resource) {
			return resource, action, nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", ErrInvalidPermission, name)
}

// IsCatalogResource reports whether r belongs to the closed resource set.
func IsCatalogResource(r Resource) bool {
	for _, known := range Resources {
		if known == r {
			return true
		}
	}
	return false
}

// CatalogEntry is one (resource, action) pair of the catalog.
type CatalogEntry struct {
	Name        string
	Resource    Resource
	Action      Action
	Description string
}

// Catalog returns the full resource x action cross product.
func Catalog() []CatalogEntry {
	entries := make([]CatalogEntry, 0, len(Resources)*len(Actions))
	for _, r := range Resources {
		for _, a := range Actions {
			entries = append(entries, CatalogEntry{
				Name:        PermissionName(r, a),
				Resource:    r,
				Action:      a,
				Description: describe(r, a),
			})
		}
	}
	return entries
}

// describe renders "Create templates", "Read app config", ...
func describe(r Resource, a Action) string {
	verb := strings.ToLower(string(a))
	verb = strings.ToUpper(verb[:1]) + verb[1:]
	object := strings.ToLower(strings.ReplaceAll(string(r), "_", " "))
	return verb + " " + object
}
