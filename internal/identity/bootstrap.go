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

package identity

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/observability/logger"
)

// BootstrapAdmin provisions the first SUPER_ADMIN when the installation has no users yet.
// It returns (nil, nil) when any user already exists or when email is empty.
func (s *Service) BootstrapAdmin(ctx context.Context, email, password, organization string) (*User, error) {
	if email == "" {
		return nil, nil
	}

	count, err := s.repo.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to count users: %w", err)
	}
	if count > 0 {
		return nil, nil
	}

	user, err := s.Register(ctx, Registration{
		Email:            email,
		Password:         password,
		OrganizationName: organization,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to bootstrap super admin %s: %w", email, err)
	}

	slog.InfoContext(ctx, "bootstrapped initial super admin",
		logger.Email(user.Email),
		logger.TenantID(user.TenantID),
		slog.String("actor", audit.ActorSystemBootstrap),
	)
	return user, nil
}
