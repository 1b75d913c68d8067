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

package guard

import "context"

// Group declares a default requirement for a family of operations, with
// per-operation overrides. The most specific declaration wins.
//
// Overrides are registered while wiring and must not change once the group is in use.
type Group struct {
	guard     *Guard
	def       Requirement
	overrides map[string]Requirement
}

// Group creates a requirement group with def as the group-level requirement
func (g *Guard) Group(def Requirement) *Group {
	return &Group{
		guard:     g,
		def:       def,
		overrides: make(map[string]Requirement),
	}
}

// Override declares the requirement of a single operation
func (grp *Group) Override(op string, req Requirement) *Group {
	grp.overrides[op] = req
	return grp
}

// Requirement returns the effective requirement of op
func (grp *Group) Requirement(op string) Requirement {
	if req, ok := grp.overrides[op]; ok {
		return req
	}
	return grp.def
}

// Check evaluates the effective requirement of op
func (grp *Group) Check(ctx context.Context, op string) error {
	return grp.guard.Check(ctx, grp.Requirement(op))
}

// Do invokes fn as operation op of the group once its requirement passes.
func Do[T any](ctx context.Context, grp *Group, op string, fn func(context.Context) (T, error)) (T, error) {
	return Run(ctx, grp.guard, grp.Requirement(op), fn)
}
