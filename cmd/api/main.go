package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"configurator_backend/internal/artifacts"
	catalogrepo "configurator_backend/internal/catalog/repository"
	catalogservice "configurator_backend/internal/catalog/service"
	clientsrepo "configurator_backend/internal/clients/repository"
	"configurator_backend/internal/documents"
	dochandler "configurator_backend/internal/documents/handler"
	docrepo "configurator_backend/internal/documents/repository"
	docservice "configurator_backend/internal/documents/service"
	apphttp "configurator_backend/internal/http"
	"configurator_backend/internal/http/router"
	"configurator_backend/internal/render"
	"configurator_backend/platform/config"
	"configurator_backend/platform/db"
	"configurator_backend/platform/logger"
	"configurator_backend/platform/memcache"
	"configurator_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Shared validator instance for dependency injection
	val := validator.New()

	// Optional object storage for rendered artifacts
	var archive docservice.Archiver
	if cfg.IsMinIOEnabled() {
		store, err := artifacts.New(cfg, log)
		if err != nil {
			log.Error("failed to initialize artifact store", "error", err)
			panic("failed to initialize artifact store: " + err.Error())
		}
		if err := withRetry(ctx, log, "ensure export bucket", 5, 2*time.Second, func() error {
			return store.EnsureBucket(ctx)
		}); err != nil {
			log.Error("failed to ensure export bucket exists", "error", err)
			panic("failed to ensure export bucket exists: " + err.Error())
		}
		archive = store
		log.Info("artifact store initialized", "bucket", cfg.GetMinioBucketExports())
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	productCache := memcache.New(cfg.GetCatalogCacheTTL())
	matcher := catalogservice.NewMatcher(catalogrepo.New(pool), productCache, log)

	chromePath := render.ResolveExecutable(cfg.GetChromeExecutable())
	chromeLauncher := &render.ChromeLauncher{ExecPath: chromePath}
	renderers := render.NewRegistry(
		render.NewPDFRenderer(chromeLauncher, cfg.GetRenderTimeout(), log),
		render.NewPDFRenderer(chromeLauncher, cfg.GetSimpleRenderTimeout(), log),
		render.NewExcelOrderRenderer(log),
		render.NewExcelSimpleRenderer(log),
		render.NewCSVRenderer(),
	)
	log.Info("renderers initialized", "chrome", chromePath)

	exportService := docservice.New(
		docrepo.New(pool),
		clientsrepo.New(pool),
		matcher,
		renderers,
		archive,
		log,
	)
	documentsModule := documents.NewModule(dochandler.New(exportService, val, log))

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			documentsModule,
		},
	}

	engine := router.New(app)

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- engine.Run(cfg.HTTPAddr)
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = shutdownCtx
	case err := <-srvErr:
		if err != nil {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
