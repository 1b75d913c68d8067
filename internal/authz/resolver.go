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
	"sort"
	"strings"
)

// The resolver is a set of pure functions over an Actor snapshot.
// Actors are built once per request and never mutated afterwards.

// IsSuperAdmin reports whether any assigned role is named exactly SUPER_ADMIN.
// The permission contents of the role are irrelevant.
func IsSuperAdmin(actor *Actor) bool {
	if actor == nil {
		return false
	}
	for _, r := range actor.Roles {
		if r != nil && r.Name == RoleSuperAdmin {
			return true
		}
	}
	return false
}

// HasPermission decides whether actor may perform action on resource.
// A nil actor is unauthenticated and never permitted.
func HasPermission(actor *Actor, resource Resource, action Action) bool {
	if actor == nil {
		return false
	}
	if IsSuperAdmin(actor) {
		return true
	}
	_, ok := effectiveSet(actor)[PermissionName(resource, action)]
	return ok
}

// EffectivePermissions returns the sorted union of directly granted
// permissions and the permissions of every assigned role.
func EffectivePermissions(actor *Actor) []string {
	if actor == nil {
		return nil
	}
	return sortedKeys(effectiveSet(actor))
}

// PermissionsForResource returns the effective permission names whose
// resource component equals resource.
func PermissionsForResource(actor *Actor, resource Resource) []string {
	var names []string
	for _, name := range EffectivePermissions(actor) {
		if resourceOf(name) == strings.ToUpper(string(resource)) {
			names = append(names, name)
		}
	}
	return names
}

// HasAnyPermission reports whether the actor holds at least one
// permission on resource.
func HasAnyPermission(actor *Actor, resource Resource) bool {
	return len(PermissionsForResource(actor, resource)) > 0
}

// PermissionsByResource groups the effective permissions by resource,
// listing the granted actions for each. Used for client-facing views.
func PermissionsByResource(actor *Actor) map[string][]string {
	view := make(map[string][]string)
	for _, name := range EffectivePermissions(actor) {
		res := resourceOf(name)
		view[res] = append(view[res], strings.TrimPrefix(name, res+"_"))
	}
	return view
}

// MissingPermissions returns the names in names that actor does not hold,
// in input order. Super admins hold everything.
func MissingPermissions(actor *Actor, names []string) []string {
	if IsSuperAdmin(actor) {
		return nil
	}
	var held map[string]struct{}
	if actor != nil {
		held = effectiveSet(actor)
	}
	var missing []string
	for _, name := range names {
		if _, ok := held[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// RequireHeld rejects handing out permissions the context actor does not hold itself.
// A context without an actor belongs to an internal caller such as bootstrap and passes.
func RequireHeld(ctx context.Context, resource Resource, action Action, names []string) error {
	actor := ActorFromContext(ctx)
	if actor == nil {
		return nil
	}
	missing := MissingPermissions(actor, names)
	if len(missing) == 0 {
		return nil
	}
	return &PermissionDeniedError{
		Resource: resource,
		Action:   action,
		Message:  "Cannot grant permissions you do not hold: " + strings.Join(missing, ", "),
	}
}

// Authorize evaluates a requirement and returns a typed failure.
func Authorize(actor *Actor, req Requirement) error {
	if actor == nil {
		return ErrAuthenticationRequired
	}
	if HasPermission(actor, req.Resource, req.Action) {
		return nil
	}
	return &PermissionDeniedError{
		Resource: req.Resource,
		Action:   req.Action,
		Message:  req.Message,
	}
}

func effectiveSet(actor *Actor) map[string]struct{} {
	set := make(map[string]struct{})
	for _, p := range actor.Permissions {
		if p != nil {
			set[p.Name] = struct{}{}
		}
	}
	for _, r := range actor.Roles {
		if r == nil {
			continue
		}
		for _, p := range r.Permissions {
			if p != nil {
				set[p.Name] = struct{}{}
			}
		}
	}
	return set
}

// resourceOf strips the action suffix from a canonical name.
func resourceOf(name string) string {
	if res, _, err := ParsePermissionName(name); err == nil {
		return string(res)
	}
	if i := strings.LastIndex(name, "_"); i > 0 {
		return name[:i]
	}
	return name
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

type actorKey struct{}

// WithActor stores the authenticated actor on the context.
func WithActor(ctx context.Context, actor *Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, actor)
}

// ActorFromContext returns the authenticated actor, or nil.
func ActorFromContext(ctx context.Context) *Actor {
	if actor, ok := ctx.Value(actorKey{}).(*Actor); ok {
		return actor
	}
	return nil
}
