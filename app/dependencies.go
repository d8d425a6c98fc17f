package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/upb/emr-gateway/auth"
	"github.com/upb/emr-gateway/config"
	"github.com/upb/emr-gateway/internal/observability"
	"github.com/upb/emr-gateway/middleware"
	"github.com/upb/emr-gateway/repositories"
	"github.com/upb/emr-gateway/repositories/postgres"
	"github.com/upb/emr-gateway/services"
	"github.com/upb/emr-gateway/services/audit"
	"go.uber.org/zap"
)

const auditDrainTimeout = 5 * time.Second

// Dependencies holds all application dependencies. It is the single wiring
// point; handlers and routes receive what they need from here.
type Dependencies struct {
	// Infrastructure
	Config  *config.Config
	DB      *postgres.DB
	Logger  *zap.Logger
	Metrics *observability.Metrics

	// Repositories
	RepoFactory *postgres.RepositoryFactory
	Users       repositories.UserRepository
	AuditLogs   repositories.AuditRepository
	Records     repositories.RecordRepository
	Grants      repositories.GrantRepository
	TxManager   repositories.TransactionManager

	// Auth
	Verifier       *auth.Verifier
	Issuer         *auth.Issuer
	AuthMiddleware *middleware.AuthMiddleware

	// Services
	AuditService      *audit.AuditService
	UserService       *services.UserService
	RecordService     *services.RecordService
	PermissionService *services.PermissionService
}

// NewDependencies creates and wires up all application dependencies.
func NewDependencies(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Dependencies, error) {
	deps := &Dependencies{
		Config: cfg,
		Logger: logger,
	}

	deps.initMetrics(cfg)

	if err := deps.initAuth(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}

	if err := deps.initDatabase(ctx, cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	deps.initRepositories()

	if err := deps.initAudit(cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to initialize audit: %w", err)
	}

	deps.initServices()

	if err := deps.registerAuditGauges(); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to register metrics: %w", err)
	}

	if err := deps.bootstrapAdmin(ctx, cfg); err != nil {
		_ = deps.Close(ctx)
		return nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	logger.Info("all dependencies initialized successfully")
	return deps, nil
}

// initMetrics creates the Prometheus registry when metrics are enabled
func (d *Dependencies) initMetrics(cfg *config.Config) {
	if !cfg.Observability.MetricsEnabled {
		return
	}
	d.Metrics = observability.NewMetrics()
}

// initAuth builds the token verifier and issuer from the same signing
// material, plus the middleware that guards protected routes.
func (d *Dependencies) initAuth(cfg *config.Config) error {
	tokenCfg := cfg.Auth.TokenConfig()

	verifier, err := auth.NewVerifier(tokenCfg)
	if err != nil {
		return err
	}
	issuer, err := auth.NewIssuer(tokenCfg)
	if err != nil {
		return err
	}

	d.Verifier = verifier
	d.Issuer = issuer
	d.AuthMiddleware = middleware.NewAuthMiddleware(verifier, d.Logger)
	if d.Metrics != nil {
		d.AuthMiddleware.SetObserver(d.Metrics)
	}

	d.Logger.Info("auth initialized",
		zap.String("issuer", tokenCfg.Issuer),
		zap.Duration("token_ttl", cfg.Auth.TokenTTL))
	return nil
}

// initDatabase opens the PostgreSQL pool and makes sure the schema exists
func (d *Dependencies) initDatabase(ctx context.Context, cfg *config.Config) error {
	factory, err := postgres.NewRepositoryFactory(cfg, d.Logger)
	if err != nil {
		return fmt.Errorf("failed to create repository factory: %w", err)
	}

	d.RepoFactory = factory
	d.DB = factory.GetDB()

	if err := d.DB.InitSchema(ctx); err != nil {
		_ = factory.Close()
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// initRepositories initializes all repository instances
func (d *Dependencies) initRepositories() {
	repos := d.RepoFactory.NewRepositories()

	d.Users = repos.Users
	d.AuditLogs = repos.AuditLogs
	d.Records = repos.Records
	d.Grants = repos.Grants
	d.TxManager = d.RepoFactory.GetTransactionManager()

	d.Logger.Info("repositories initialized")
}

// initAudit starts the background audit writer when enabled
func (d *Dependencies) initAudit(cfg *config.Config) error {
	if !cfg.Audit.Enabled {
		d.Logger.Warn("access auditing disabled")
		return nil
	}

	svc := audit.NewAuditService(d.AuditLogs, d.Logger, audit.Config{
		BufferSize:  cfg.Audit.BufferSize,
		WorkerCount: cfg.Audit.WorkerCount,
	})
	if err := svc.Start(); err != nil {
		return err
	}
	d.AuditService = svc
	return nil
}

func (d *Dependencies) initServices() {
	// A nil *AuditService stored in the interface would not compare equal
	// to nil, so only assign when auditing is on.
	var recorder services.AuditRecorder
	if d.AuditService != nil {
		recorder = d.AuditService
	}

	repos := &repositories.Repositories{
		Users:     d.Users,
		AuditLogs: d.AuditLogs,
		Records:   d.Records,
		Grants:    d.Grants,
	}
	d.UserService = services.NewUserService(repos, d.TxManager, d.Issuer, recorder, d.Logger)
	d.RecordService = services.NewRecordService(repos, d.TxManager, d.Logger)
	d.PermissionService = services.NewPermissionService(repos, d.TxManager, recorder, d.Logger)
}

// bootstrapAdmin seeds the first admin account. Account creation is
// admin-only, so without it a fresh database has no way in.
func (d *Dependencies) bootstrapAdmin(ctx context.Context, cfg *config.Config) error {
	if !cfg.Bootstrap.Enabled() {
		return nil
	}

	created, err := d.UserService.EnsureAdmin(ctx, services.CreateUserInput{
		Username: cfg.Bootstrap.Username,
		Email:    cfg.Bootstrap.Email,
		FullName: cfg.Bootstrap.FullName,
		Password: cfg.Bootstrap.Password,
	})
	if err != nil {
		return err
	}
	if created {
		d.Logger.Info("bootstrap admin created", zap.String("username", cfg.Bootstrap.Username))
	}
	return nil
}

// registerAuditGauges exposes the audit buffer occupancy so a saturated
// buffer is visible before events start being dropped.
func (d *Dependencies) registerAuditGauges() error {
	if d.Metrics == nil || d.AuditService == nil {
		return nil
	}
	svc := d.AuditService
	if err := d.Metrics.RegisterGauge("audit_pending_events", "Audit events waiting to be persisted.",
		func() float64 { return float64(svc.GetStats().PendingEvents) }); err != nil {
		return err
	}
	return d.Metrics.RegisterGauge("audit_buffer_capacity", "Capacity of the audit event buffer.",
		func() float64 { return float64(svc.GetStats().BufferSize) })
}

// Close gracefully shuts down all dependencies. The audit buffer is
// drained before the database goes away.
func (d *Dependencies) Close(ctx context.Context) error {
	d.Logger.Info("shutting down dependencies")

	var errs []error

	if d.AuditService != nil {
		timeout := auditDrainTimeout
		if deadline, ok := ctx.Deadline(); ok {
			timeout = time.Until(deadline)
		}
		if err := d.AuditService.Stop(timeout); err != nil && !errors.Is(err, audit.ErrNotRunning) {
			errs = append(errs, fmt.Errorf("failed to stop audit service: %w", err))
		}
	}

	if d.RepoFactory != nil {
		if err := d.RepoFactory.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close database: %w", err))
		} else {
			d.Logger.Info("database connection closed")
		}
	}

	_ = d.Logger.Sync()

	return errors.Join(errs...)
}
