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

	httpapi "github.com/geoforest/licensing/internal/licensing/http"
	"github.com/geoforest/licensing/internal/licensing/service"
	"github.com/geoforest/licensing/internal/licensing/store"
	"github.com/geoforest/licensing/internal/licensing/store/drivers/firestore"
	"github.com/geoforest/licensing/internal/licensing/store/drivers/mongo"
	"github.com/geoforest/licensing/internal/licensing/store/drivers/sqlite"
	"github.com/geoforest/licensing/pkg/slogx"
	"google.golang.org/api/option"
)

const (
	// BuildVersion should be set at build time via ldflags.
	BuildVersion = "v0.1.0"
)

// Application wires the licensing service together.
type Application struct {
	cfg    Config
	logger *slog.Logger

	db   store.Store
	auth *authStack

	tenantService     *service.TenantService
	teamService       *service.TeamService
	projectService    *service.ProjectService
	delegationService *service.DelegationService
	authService       *service.AuthService // Optional: local auth mode only
	trialSweeper      *service.TrialSweeper

	// trial sweeps and, in jwks mode, key refresh
	stopBackground context.CancelFunc
	background     sync.WaitGroup

	server *http.Server
	router *httpapi.Router
}

func New(cfg Config) (*Application, error) {
	app := &Application{
		cfg: cfg,
		logger: slogx.New(slogx.Config{
			Service: "licensing-service",
			Version: BuildVersion,
			Env:     cfg.Env,
			Level:   cfg.LogLevel,
			Format:  cfg.LogFormat,
		}),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ctx := context.Background()
	if err := app.initStore(ctx); err != nil {
		return nil, err
	}

	auth, err := initAuth(ctx, app.cfg, app.db, app.clientOptions(), app.logger)
	if err != nil {
		_ = app.db.Close()
		return nil, fmt.Errorf("failed to initialize auth: %w", err)
	}
	app.auth = auth

	app.initServices()
	app.initHTTP()

	return app, nil
}

// Run starts the application and blocks until shutdown is requested
func (app *Application) Run() error {
	bg, cancel := context.WithCancel(context.Background())
	app.stopBackground = cancel

	app.background.Go(func() { app.trialSweeper.Run(bg) })
	if app.auth.remote != nil {
		app.background.Go(func() { app.auth.remote.Run(bg, 15*time.Minute) })
	}

	app.logger.Info("licensing service starting",
		"port", app.cfg.Port,
		"version", BuildVersion,
		"store", app.cfg.StoreDriver,
		"auth_mode", app.cfg.AuthMode,
	)

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

// Shutdown drains HTTP, stops background work and closes the store.
func (app *Application) Shutdown() error {
	app.logger.Info("shutting down licensing service...")

	ctx, cancel := context.WithTimeout(context.Background(), app.cfg.ShutdownGracePeriod)
	defer cancel()

	if err := app.server.Shutdown(ctx); err != nil {
		app.logger.Error("graceful server shutdown failed", "error", err)
		if err := app.server.Close(); err != nil {
			app.logger.Error("error closing server", "error", err)
		}
	}

	if app.stopBackground != nil {
		app.stopBackground()
	}
	app.background.Wait()

	if err := app.db.Close(); err != nil {
		app.logger.Error("error closing store", "error", err)
		return err
	}

	app.logger.Info("licensing service stopped")
	return nil
}

func (app *Application) clientOptions() []option.ClientOption {
	if app.cfg.CredentialFile == "" {
		return nil
	}
	return []option.ClientOption{option.WithCredentialsFile(app.cfg.CredentialFile)}
}

// initStore opens the configured driver and prepares its schema.
func (app *Application) initStore(ctx context.Context) error {
	switch app.cfg.StoreDriver {
	case StoreFirestore:
		db, err := firestore.NewStore(ctx, app.cfg.GCPProject, app.clientOptions()...)
		if err != nil {
			return fmt.Errorf("failed to connect to firestore: %w", err)
		}
		app.db = db

	case StoreMongo:
		db, err := mongo.NewStore(ctx, app.cfg.MongoURI, app.cfg.MongoDatabase)
		if err != nil {
			return fmt.Errorf("failed to connect to mongo: %w", err)
		}
		if err := db.EnsureIndexes(ctx); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to create mongo indexes: %w", err)
		}
		app.db = db

	default:
		db, err := sqlite.NewStore(sqlite.FileDSN(app.cfg.DatabaseFile))
		if err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		if err := db.ApplyMigrations(); err != nil {
			_ = db.Close()
			return fmt.Errorf("failed to apply database migrations: %w", err)
		}
		app.db = db
		app.logger.Info("database migrations applied successfully")
	}

	app.logger.Info("store ready", "driver", app.cfg.StoreDriver)
	return nil
}

func (app *Application) initServices() {
	reconciler := &service.ClaimsReconciler{Applier: app.auth.claims}

	app.tenantService = &service.TenantService{Store: app.db, Claims: reconciler}
	app.teamService = &service.TeamService{
		Store:      app.db,
		Identities: app.auth.identities,
		Claims:     reconciler,
	}
	app.projectService = &service.ProjectService{Store: app.db}
	app.delegationService = &service.DelegationService{
		Store: app.db,
		Keys:  service.CodeGenerator{},
	}

	if app.auth.local != nil {
		app.authService = &service.AuthService{
			Store:      app.db,
			Hasher:     app.auth.local.Hasher,
			Identities: app.auth.local,
			Signer:     app.auth.signer,
			Issuer:     app.cfg.Issuer,
			Audience:   app.cfg.Audience,
			TTL:        app.cfg.TokenTTL,
		}
	}

	app.trialSweeper = service.NewTrialSweeper(
		app.tenantService,
		app.logger,
		app.cfg.HousekeepingInterval,
	)
}

func (app *Application) initHTTP() {
	router := httpapi.NewRouter(
		app.auth.verifier,
		app.auth.keys,
		BuildVersion,
		app.db,
		app.logger,
	)

	router.TenantService = app.tenantService
	router.TeamService = app.teamService
	router.ProjectService = app.projectService
	router.DelegationService = app.delegationService
	router.AuthService = app.authService // nil unless auth mode is local
	router.ApplyRoutes()

	app.router = router

	app.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", app.cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 3 * time.Second,
	}
}
