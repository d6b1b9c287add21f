// Package server wires the collaborators, the domain services and the HTTP
// router, and runs the API until the process is told to stop.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"filevault/internal/config"
	"filevault/internal/database"
	"filevault/internal/domain/apikey"
	"filevault/internal/domain/auth"
	"filevault/internal/domain/events"
	"filevault/internal/domain/file"
	"filevault/internal/domain/health"
	"filevault/internal/domain/identity"
	"filevault/internal/domain/user"
	"filevault/internal/logging"
	"filevault/internal/middleware"
	"filevault/internal/pkg/jwt"
	"filevault/internal/pkg/metrics"
	"filevault/internal/pkg/retry"
	"filevault/internal/storage"
)

const (
	sessionTTL      = 24 * time.Hour
	shutdownTimeout = 15 * time.Second
)

type App struct {
	config *config.Config
	logger logging.Logger

	db      *gorm.DB
	objects storage.ObjectStore
	// disk is set only for the disk backend, which serves its own links.
	disk *storage.Disk

	ledger  *user.Ledger
	keys    *apikey.Service
	files   *file.Service
	hub     *events.Hub
	metrics *metrics.Collector
	tokens  *jwt.Service
}

// NewApp connects to the database and the object store, retrying while
// they come up, and builds every service.
func NewApp(ctx context.Context, cfg *config.Config, logger logging.Logger) (*App, error) {
	policy := retry.Default()

	var db *gorm.DB
	err := policy.Do(ctx, func(ctx context.Context) error {
		conn, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			return retry.Transient("database", err)
		}
		if err := database.Ping(ctx, conn); err != nil {
			return err
		}
		db = conn
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}
	if err := database.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}

	var objects, raw storage.ObjectStore
	err = policy.Do(ctx, func(ctx context.Context) error {
		var err error
		objects, raw, err = storage.New(ctx, cfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	return newApp(cfg, logger, db, objects, raw), nil
}

func newApp(cfg *config.Config, logger logging.Logger, db *gorm.DB, objects, raw storage.ObjectStore) *App {
	app := &App{
		config:  cfg,
		logger:  logger,
		db:      db,
		objects: objects,
		hub:     events.NewHub(cfg.CORSOrigins),
		metrics: metrics.NewCollector(),
		tokens:  jwt.New(cfg.SessionSecret, sessionTTL, cfg.SessionIssuer),
	}
	if d, ok := raw.(*storage.Disk); ok {
		app.disk = d
	}

	app.ledger = user.NewLedger(user.NewRepository(db, cfg.DBTimeout), cfg.DefaultQuota, logger.With("component", "ledger"))
	app.keys = apikey.NewService(apikey.NewRepository(db, cfg.DBTimeout), logger.With("component", "apikey"))
	app.files = file.NewService(
		file.NewRepository(db, cfg.DBTimeout),
		objects,
		app.ledger,
		app.hub,
		logger.With("component", "files"),
		file.Options{PresignTTL: cfg.PresignTTL, MaxUploadSize: cfg.MaxUploadSize},
	)

	app.ledger.OnCreated(func(ctx context.Context, u *user.User) {
		app.files.Welcome(ctx, file.Owner{UserID: u.ID, Prefix: u.Prefix})
	})
	return app
}

// Router builds the HTTP surface.
func (app *App) Router() *gin.Engine {
	r := gin.New()
	r.Use(
		middleware.RequestID(),
		middleware.ErrorLogger(app.logger.With("component", "http")),
		app.metrics.Middleware(),
		middleware.SecurityHeaders(),
		middleware.CORS(app.config.CORSOrigins),
	)

	health.RegisterRoutes(r, health.NewHandler(map[string]health.Probe{
		"database": func(ctx context.Context) error { return database.Ping(ctx, app.db) },
		"storage":  app.objects.Ping,
	}, app.metrics, 2*time.Second, app.logger))

	if app.disk != nil {
		blobs := gin.WrapH(http.StripPrefix(storage.DiskMount, app.disk))
		r.GET(storage.DiskMount+"/*key", blobs)
		r.HEAD(storage.DiskMount+"/*key", blobs)
	}

	resolver := auth.NewResolver(app.keys, identity.NewJWTProvider(app.tokens), app.ledger, app.logger.With("component", "auth"))

	v1 := r.Group("/api/v1", auth.Authenticate(resolver))
	{
		user.RegisterRoutes(v1, user.NewHandler(app.ledger))
		file.RegisterRoutes(v1, file.NewHandler(app.files))
		apikey.RegisterRoutes(v1, apikey.NewHandler(app.keys))
		events.RegisterRoutes(v1, events.NewHandler(app.hub, app.logger.With("component", "events")))
	}
	return r
}

// Run serves until ctx ends or SIGINT/SIGTERM arrives, then drains
// in-flight requests, closes websockets and waits for background writes.
func (app *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer stop()

	srv := &http.Server{
		Addr:              app.config.HTTPAddr,
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		app.logger.Info(ctx, "starting http server", "addr", srv.Addr, "storage", app.config.StorageBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	app.logger.Info(shutdownCtx, "shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		app.logger.Error(shutdownCtx, "http shutdown failed", "error", err)
	}
	app.hub.Close()
	app.keys.Wait()

	if sqlDB, err := app.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	return runErr
}
