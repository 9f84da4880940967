package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/authz"
	httpapi "github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/http"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/metrics"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/service"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/auth/store/drivers/sqlite"
	"github.com/trungleviet-agilityio/backend-training-sub002/internal/notify"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/clockx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/cryptox"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/idx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/jwtx"
	"github.com/trungleviet-agilityio/backend-training-sub002/pkg/slogx"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application encapsulates the auth service application with all its dependencies
type Application struct {
	cfg    Config
	logger *slog.Logger
	clock  clockx.Clock

	// Core dependencies
	db         store.Store
	codec      *jwtx.KeyRing
	hasher     cryptox.Argon2id
	metrics    *metrics.Metrics
	dispatcher *notify.Dispatcher
	registry   *authz.Registry

	// Services
	sessionService      *service.SessionService
	registrations       *service.RegistrationService
	resetService        *service.PasswordResetService
	commentService      *service.CommentService
	housekeepingService *service.HousekeepingService

	// HTTP server
	server *http.Server
	router *httpapi.Router

	shutdownOnce sync.Once
	shutdownErr  error
}

// New creates a new Application instance with all dependencies initialized.
// Configuration errors abort here, before anything listens.
func New(cfg Config) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	app := &Application{
		cfg:     cfg,
		clock:   clockx.System{},
		metrics: metrics.New(),
		logger: slogx.New(slogx.Config{
			Service: "postauth",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	pepper, err := cryptox.LoadOrCreatePepper(cfg.PepperFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load pepper: %w", err)
	}
	app.hasher = cryptox.Argon2id{Pepper: pepper}

	registry, err := authz.NewRegistry(authz.DefaultTable())
	if err != nil {
		return nil, err
	}
	app.registry = registry

	if err := app.initDatabase(); err != nil {
		return nil, err
	}

	if err := app.initCodec(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	if err := app.initNotify(); err != nil {
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()

	if err := app.bootstrap(); err != nil {
		_ = app.dispatcher.Close(context.Background())
		_ = app.db.Close()
		return nil, err
	}

	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	app.housekeepingService.Start()

	app.logger.Info("postauth starting", "port", app.cfg.Port, "version", BuildVersion)

	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && err != http.ErrServerClosed {
			return fmt.Errorf("server failed: %w", err)
		}
	case sig := <-shutdown:
		app.logger.Info("shutdown signal received", "signal", sig)

		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
	}

	return nil
}

// Shutdown gracefully shuts down the application. Later calls return the
// result of the first.
func (app *Application) Shutdown() error {
	app.shutdownOnce.Do(func() { app.shutdownErr = app.shutdown() })
	return app.shutdownErr
}

func (app *Application) shutdown() error {
	app.logger.Info("shutting down postauth...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	app.housekeepingService.Stop()

	// In-flight deliveries get whatever is left of the grace period.
	if err := app.dispatcher.Close(ctx); err != nil {
		app.logger.Warn("notification dispatcher did not drain", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("postauth stopped")
	return nil
}

// initDatabase initializes the database and applies migrations
func (app *Application) initDatabase() error {
	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(dsn)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	app.db = db

	if err := db.ApplyMigrations(); err != nil {
		_ = db.Close()
		return fmt.Errorf("failed to apply database migrations: %w", err)
	}

	app.logger.Info("database migrations applied successfully")
	return nil
}

func (app *Application) initCodec() error {
	key, err := InitSigningKey(app.cfg, app.logger)
	if err != nil {
		return fmt.Errorf("failed to initialize signing key: %w", err)
	}

	codec, err := jwtx.NewKeyRing(jwtx.Options{
		Issuer:   app.cfg.Issuer,
		Audience: app.cfg.Audience,
		Leeway:   app.cfg.ClockSkew,
		Clock:    app.clock,
	}, key)
	if err != nil {
		return err
	}
	app.codec = codec
	return nil
}

func (app *Application) initNotify() error {
	kind, err := notify.ParseKind(app.cfg.NotifyProvider)
	if err != nil {
		return err
	}

	backend, err := notify.Select(kind, app.cfg.notifyOptions())
	if err != nil {
		return fmt.Errorf("failed to initialize notification backend: %w", err)
	}

	app.dispatcher = notify.NewDispatcher(backend, notify.DispatcherOptions{
		Workers: app.cfg.NotifyWorkers,
		Timeout: app.cfg.NotifyTimeout,
		OnResult: func(res notify.DeliveryResult) {
			app.metrics.Notified(res.Kind.String(), res.Delivered())
		},
	})

	app.logger.Info("notification backend selected", "kind", kind, "workers", app.cfg.NotifyWorkers)
	return nil
}

// initServices initializes all business logic services
func (app *Application) initServices() {
	ids := idx.ClockSource{Clock: app.clock}
	revoked := service.NewRevocationCache(app.cfg.AccessTTL)
	app.metrics.TrackRevocations(revoked.Len)

	app.sessionService = &service.SessionService{
		Store:      app.db,
		Codec:      app.codec,
		Verifier:   app.hasher,
		Clock:      app.clock,
		IDs:        ids,
		Tokens:     cryptox.RandomTokens{},
		Revoked:    revoked,
		Metrics:    app.metrics,
		Issuer:     app.cfg.Issuer,
		Audience:   app.cfg.Audience,
		AccessTTL:  app.cfg.AccessTTL,
		RefreshTTL: app.cfg.RefreshTTL,
		ReuseGrace: app.cfg.ReuseGrace,
	}

	app.registrations = &service.RegistrationService{
		Store:    app.db,
		Hasher:   app.hasher,
		Notifier: app.dispatcher,
		Clock:    app.clock,
		IDs:      ids,
		Metrics:  app.metrics,
	}

	app.resetService = &service.PasswordResetService{
		Store:    app.db,
		Notifier: app.dispatcher,
		Clock:    app.clock,
		IDs:      ids,
		Tokens:   cryptox.RandomTokens{},
		TTL:      app.cfg.ResetTTL,
		Metrics:  app.metrics,
	}

	app.commentService = &service.CommentService{
		Store:    app.db,
		Registry: app.registry,
		Clock:    app.clock,
		IDs:      ids,
		Metrics:  app.metrics,
	}

	app.housekeepingService = service.NewHousekeepingService(
		app.db,
		app.logger,
		app.clock,
		app.cfg.HousekeepingInterval,
		app.cfg.SessionRetention,
	)
}

// bootstrap creates the configured admin principal on first start.
func (app *Application) bootstrap() error {
	if app.cfg.BootstrapUsername == "" {
		return nil
	}

	ctx := slogx.WithContext(context.Background(), app.logger)
	created, err := app.registrations.Bootstrap(ctx, app.cfg.bootstrapAdmin())
	if err != nil {
		return fmt.Errorf("failed to bootstrap admin principal: %w", err)
	}
	if created {
		app.logger.Info("bootstrap admin principal created", "username", app.cfg.BootstrapUsername)
	}
	return nil
}

// Dispatcher returns the notification dispatcher.
func (app *Application) Dispatcher() *notify.Dispatcher {
	return app.dispatcher
}

// Handler returns the HTTP handler the server listens with.
func (app *Application) Handler() http.Handler {
	return app.router
}

// initHTTP initializes the HTTP router and server
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.metrics, app.logger)

	router.SessionService = app.sessionService
	router.Registrations = app.registrations
	router.ResetService = app.resetService
	router.CommentService = app.commentService
	router.CredentialHasher = app.hasher
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
