package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpapi "github.com/gatehouse-io/gatehouse/internal/gatehouse/http"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/permission"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/service"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/session"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/store"
	"github.com/gatehouse-io/gatehouse/internal/gatehouse/store/drivers/sqlite"
	"github.com/gatehouse-io/gatehouse/pkg/slogx"
	"github.com/redis/go-redis/v9"
)

const (
	// BuildVersion should be set at build time via ldflags. Later problem
	BuildVersion = "v0.1.0"
)

// Application encapsulates the gatehouse service with all its dependencies.
type Application struct {
	cfg    Config
	logger *slog.Logger

	// Core dependencies
	db            store.Store
	redisClient   *redis.Client
	sessions      *session.Cache
	sessionPinger httpapi.Pinger
	renewer       *session.Renewer
	permissions   permission.Store

	// Services
	authService          *service.AuthService
	authorizationService *service.AuthorizationService

	// HTTP server
	server *http.Server
	router *httpapi.Router

	// Background goroutine lifecycle
	bgCancel context.CancelFunc
	bgDone   chan struct{}
}

// New creates a new Application instance with all dependencies initialized.
func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "gatehouse",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := app.initDatabase(); err != nil {
		return nil, err
	}
	if err := app.initSessions(); err != nil {
		_ = app.db.Close()
		return nil, err
	}
	if err := app.initPermissions(); err != nil {
		app.sessions.Close()
		_ = app.db.Close()
		return nil, err
	}

	app.initServices()
	app.initHTTP()

	bootstrap := &service.BootstrapService{Store: app.db}
	ctx := slogx.WithContext(context.Background(), app.logger)
	if err := bootstrap.EnsureAdmin(ctx, cfg.AdminUsername, cfg.AdminPassword); err != nil {
		app.sessions.Close()
		_ = app.db.Close()
		return nil, err
	}

	return app, nil
}

// Run starts the application and blocks until shutdown is requested.
func (app *Application) Run() error {
	app.startBackground()

	app.logger.Info("gatehouse starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"permission_source", app.cfg.PermissionSource,
	)

	// Start server in a goroutine
	serverErrors := make(chan error, 1)
	go func() {
		serverErrors <- app.server.ListenAndServe()
	}()

	// Setup signal handling for graceful shutdown
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

// Shutdown gracefully shuts down the application.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down gatehouse...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	// Stop the refresh loop and renewal workers
	app.bgCancel()
	select {
	case <-app.bgDone:
	case <-ctx.Done():
	}

	app.sessions.Close()
	if app.redisClient != nil {
		if err := app.redisClient.Close(); err != nil {
			app.logger.Error("error closing redis client", "error", err)
		}
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing database", "error", err)
		return err
	}

	app.logger.Info("gatehouse stopped")
	return nil
}

// initDatabase initializes the database and applies migrations.
func (app *Application) initDatabase() error {
	host := fmt.Sprintf("file:%s?_busy_timeout=5000&_journal_mode=WAL", app.cfg.DatabaseFile)
	db, err := sqlite.NewStore(host)
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

// initSessions builds the shared session store and the local cache in front
// of it. Without a Redis address the store is in-process, which is only
// suitable for a single gateway instance.
func (app *Application) initSessions() error {
	var shared session.Store
	if app.cfg.RedisAddr != "" {
		app.redisClient = redis.NewClient(&redis.Options{
			Addr:     app.cfg.RedisAddr,
			Password: app.cfg.RedisPassword,
			DB:       app.cfg.RedisDB,
		})
		redisStore := session.NewRedisStore(app.redisClient, app.cfg.StoreTimeout)
		shared = redisStore
		app.sessionPinger = redisStore
		app.logger.Info("using redis session store", "addr", app.cfg.RedisAddr)
	} else {
		shared = session.NewMemoryStore()
		app.logger.Warn("no redis address configured, using in-process session store")
	}

	app.renewer = session.NewRenewer(shared, app.cfg.SessionTTL)

	cache, err := session.NewCache(shared, app.renewer, session.CacheConfig{
		LocalTTL:    app.cfg.SessionCacheTTL,
		NegativeTTL: app.cfg.NegativeCacheTTL,
		SessionTTL:  app.cfg.SessionTTL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize session cache: %w", err)
	}
	app.sessions = cache
	return nil
}

// initPermissions builds the permission store from the configured source.
func (app *Application) initPermissions() error {
	switch app.cfg.PermissionSource {
	case "file":
		store, err := permission.NewStaticStore(app.cfg.PermissionFileDir)
		if err != nil {
			return fmt.Errorf("failed to load permission files: %w", err)
		}
		app.permissions = store
		app.logger.Info("loaded static permission files",
			"dir", app.cfg.PermissionFileDir,
			"roles", len(store.Roles()),
		)
	case "database":
		store, err := permission.NewRefreshableStore(context.Background(), app.db.Permissions(), app.cfg.StoreTimeout)
		if err != nil {
			return fmt.Errorf("failed to load permissions from database: %w", err)
		}
		app.permissions = store
		app.logger.Info("loaded database permissions", "roles", len(store.Roles()))
	default:
		return fmt.Errorf("unknown permission source %q", app.cfg.PermissionSource)
	}
	return nil
}

// initServices initializes all business logic services.
func (app *Application) initServices() {
	app.authService = &service.AuthService{
		Store:    app.db,
		Sessions: app.sessions,
	}
	app.authorizationService = &service.AuthorizationService{
		Sessions: app.sessions,
		Resolver: permission.NewResolver(app.permissions),
	}
}

// initHTTP initializes the HTTP router and server.
func (app *Application) initHTTP() {
	router := httpapi.NewRouter(BuildVersion, app.db, app.sessionPinger, app.logger)
	router.AuthService = app.authService
	router.AuthorizationService = app.authorizationService
	router.PermissionStore = app.permissions
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}

// startBackground launches the renewal worker pool and, for database-backed
// permissions, the periodic snapshot refresh.
func (app *Application) startBackground() {
	ctx, cancel := context.WithCancel(slogx.WithContext(context.Background(), app.logger))
	app.bgCancel = cancel
	app.bgDone = make(chan struct{})

	refreshable, hasRefresh := app.permissions.(*permission.RefreshableStore)

	go func() {
		defer close(app.bgDone)

		done := make(chan struct{})
		go func() {
			defer close(done)
			app.renewer.Run(ctx, app.cfg.RenewalWorkers)
		}()

		if hasRefresh {
			refreshable.Run(ctx, app.cfg.PermissionRefreshInterval)
		}
		<-done
	}()
}
