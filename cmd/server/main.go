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

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/contenthub/contenthub/internal/audit"
	"github.com/contenthub/contenthub/internal/auth"
	"github.com/contenthub/contenthub/internal/authz"
	"github.com/contenthub/contenthub/internal/config"
	"github.com/contenthub/contenthub/internal/content"
	"github.com/contenthub/contenthub/internal/guard"
	"github.com/contenthub/contenthub/internal/identity"
	"github.com/contenthub/contenthub/internal/observability/logger"
	"github.com/contenthub/contenthub/internal/observability/metrics"
	"github.com/contenthub/contenthub/internal/observability/tracing"
	"github.com/contenthub/contenthub/internal/store/memory"
	"github.com/contenthub/contenthub/internal/store/postgres"
	"github.com/contenthub/contenthub/internal/tenant"
	transportHTTP "github.com/contenthub/contenthub/internal/transport/http"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.InitLogger(logger.Config{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: cfg.Observability.ServiceName,
		OTelEnabled: cfg.Observability.OTELEnabled,
	})
	slog.Info("starting contenthub api", slog.String("store", cfg.Store.Driver))

	// Phase: CLI Commands
	if len(os.Args) > 1 && os.Args[1] == "bootstrap" {
		if err := runBootstrap(cfg); err != nil {
			fmt.Printf("Bootstrap failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		if err := runMigrate(cfg); err != nil {
			fmt.Printf("Migration failed: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if err := run(cfg); err != nil {
		slog.Error("server exited", logger.Error(err))
		os.Exit(1)
	}
}

func run(cfg *config.Config) error {
	ctx := context.Background()

	// Initialize tracer
	tracer, err := tracing.New(ctx, tracing.Config{
		Enabled:        cfg.Observability.OTELEnabled,
		ServiceName:    cfg.Observability.ServiceName,
		ServiceVersion: cfg.Observability.ServiceVersion,
		SamplingRate:   1.0,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracer: %w", err)
	}
	defer tracer.Shutdown(ctx)

	// Initialize meter
	meter, err := metrics.New(ctx, metrics.Config{
		Enabled: cfg.Observability.OTELEnabled,
	}, cfg.Observability.ServiceName)
	if err != nil {
		return fmt.Errorf("failed to initialize meter: %w", err)
	}
	requestMetrics, err := meter.NewRequestMetrics()
	if err != nil {
		slog.Error("failed to create request metrics", logger.Error(err))
	}

	repos, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	auditLogger := audit.NewSlogLogger()
	svc := newServices(cfg, repos, auditLogger)

	// Catalog bootstrap is idempotent and runs on every start
	if _, err := svc.bootstrapper.Run(ctx); err != nil {
		slog.Warn("permission catalog bootstrap failed, initialization may be incomplete", logger.Error(err))
	}
	if _, err := svc.identity.BootstrapAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminOrganization); err != nil {
		slog.Error("super admin bootstrap failed", logger.Error(err))
	}

	tokens, err := auth.NewTokenService(auth.Config{
		Secret:   cfg.Auth.JWTSecret,
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
		TTL:      cfg.Auth.TokenTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token service: %w", err)
	}

	g := guard.New(auditLogger, meter.GetMeter(), tracer.GetTracer())
	templateService := content.NewTemplateService(repos.templates, g, auditLogger)

	// Rate Limiter
	routerCfg := transportHTTP.RouterConfig{
		RequestMetrics: requestMetrics,
		RequestTimeout: cfg.Server.RequestTimeout,
	}
	if cfg.RateLimit.RequestsPerSecond > 0 {
		rateLimiter := transportHTTP.NewRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst)
		defer rateLimiter.Close()
		routerCfg.RateLimiter = rateLimiter
	}

	handler := transportHTTP.NewHandler(svc.identity, svc.authz, templateService, g, tokens, repos.health)
	router := transportHTTP.NewRouter(handler, routerCfg)

	// Create HTTP server
	addr := cfg.Server.Address()
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting http server", logger.Component("server"), logger.Operation("listen"), slog.String("addr", addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	}

	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", logger.Error(err))
	}

	slog.Info("server stopped")
	return nil
}

// repositories is the persistence backend selected by STORE_DRIVER
type repositories struct {
	permissions authz.PermissionRepository
	roles       authz.RoleRepository
	users       identity.UserRepository
	invitations identity.InvitationRepository
	tenants     tenant.Repository
	templates   content.Repository
	health      transportHTTP.HealthChecker
	close       func()
}

func openStore(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.Store.Driver == config.StoreMemory {
		slog.Warn("using in-memory store, data is lost on restart")
		s := memory.New()
		return &repositories{
			permissions: s.Permissions(),
			roles:       s.Roles(),
			users:       s.Users(),
			invitations: s.Invitations(),
			tenants:     s.Tenants(),
			templates:   s.Templates(),
			close:       func() {},
		}, nil
	}

	db, err := openDB(ctx, cfg)
	if err != nil {
		return nil, err
	}
	slog.Info("connected to database")

	if cfg.Store.AutoMigrate {
		if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply schema: %w", err)
		}
		slog.Info("database schema applied")
	}

	return &repositories{
		permissions: postgres.NewPermissionRepository(db),
		roles:       postgres.NewRoleRepository(db),
		users:       postgres.NewUserRepository(db),
		invitations: postgres.NewInvitationRepository(db),
		tenants:     postgres.NewTenantRepository(db),
		templates:   postgres.NewTemplateRepository(db),
		health:      db,
		close:       db.Close,
	}, nil
}

func openDB(ctx context.Context, cfg *config.Config) (*postgres.DB, error) {
	db, err := postgres.New(ctx, postgres.Config{
		Host:         cfg.Database.Host,
		Port:         cfg.Database.Port,
		User:         cfg.Database.User,
		Password:     cfg.Database.Password,
		Database:     cfg.Database.Database,
		SSLMode:      cfg.Database.SSLMode,
		MaxOpenConns: cfg.Database.MaxOpenConns,
		MaxIdleConns: cfg.Database.MaxIdleConns,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	return db, nil
}

type services struct {
	bootstrapper *authz.Bootstrapper
	authz        *authz.Service
	identity     *identity.Service
}

// newServices wires the domain services. The role repository is shared so
// role edits invalidate the cache consulted when actors are loaded.
func newServices(cfg *config.Config, repos *repositories, auditLogger audit.Logger) *services {
	roles := repos.roles
	if cfg.Cache.RoleCacheSize > 0 {
		roles = authz.NewCachedRoleRepository(repos.roles, cfg.Cache.RoleCacheSize, cfg.Cache.RoleCacheTTL)
	}

	passwordHasher := identity.NewPasswordHasher(
		cfg.Security.Argon2Memory,
		cfg.Security.Argon2Iterations,
		cfg.Security.Argon2Parallelism,
		cfg.Security.Argon2SaltLength,
		cfg.Security.Argon2KeyLength,
	)

	return &services{
		bootstrapper: authz.NewBootstrapper(repos.permissions, roles, auditLogger),
		authz:        authz.NewService(repos.permissions, roles, auditLogger),
		identity: identity.NewService(
			repos.users,
			repos.invitations,
			tenant.NewService(repos.tenants, auditLogger),
			repos.permissions,
			roles,
			passwordHasher,
			auditLogger,
			identity.Policy{
				LockoutMaxAttempts: cfg.Security.LockoutMaxAttempts,
				LockoutDuration:    cfg.Security.LockoutDuration,
				InvitationTTL:      cfg.Security.InvitationTTL,
			},
		),
	}
}

// runBootstrap seeds the catalog, the canonical roles and the configured super admin, then exits.
func runBootstrap(cfg *config.Config) error {
	ctx := context.Background()
	repos, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repos.close()

	svc := newServices(cfg, repos, audit.NewSlogLogger())
	result, err := svc.bootstrapper.Run(ctx)
	if err != nil {
		return err
	}
	fmt.Printf("Permissions created: %d, roles created: %d\n", result.PermissionsCreated, result.RolesCreated)

	user, err := svc.identity.BootstrapAdmin(ctx, cfg.Bootstrap.AdminEmail, cfg.Bootstrap.AdminPassword, cfg.Bootstrap.AdminOrganization)
	if err != nil {
		return err
	}
	if user != nil {
		fmt.Printf("Super admin created: %s\n", user.Email)
	}
	return nil
}

func runMigrate(cfg *config.Config) error {
	ctx := context.Background()
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	fmt.Println("Applying initial schema...")
	if err := db.Migrate(ctx, postgres.InitialSchema); err != nil {
		return err
	}
	fmt.Println("Migration successful.")
	return nil
}
