// Package app wires the stores, services and HTTP surface together.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"control-produccion/app/controller"
	"control-produccion/app/middleware"
	"control-produccion/app/router"
	"control-produccion/audit"
	"control-produccion/config"
	"control-produccion/db"
	"control-produccion/finalization"
	"control-produccion/logger"
	"control-produccion/repository"
	"control-produccion/scheduler"
	"control-produccion/service"
	"control-produccion/workset"
)

// App is an initialized application. Close releases everything Initialize opened.
type App struct {
	Handler   http.Handler
	Scheduler *scheduler.Scheduler

	pool     *pgxpool.Pool
	worksets *workset.BadgerStore
	mongo    *audit.MongoSink
	log      *zap.Logger
}

// Initialize initializes the application
func Initialize(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{log: logger.Named("app")}

	pool, err := db.InitDB(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	a.pool = pool

	if cfg.Database.AutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to migrate database: %w", err)
		}
	}

	worksets, err := workset.Open(cfg.Workset.Path)
	if err != nil {
		a.Close(ctx)
		return nil, fmt.Errorf("failed to open workset store: %w", err)
	}
	a.worksets = worksets

	var sink audit.Sink = audit.NewLogSink(logger.Named("audit"))
	if cfg.Audit.MongoURI != "" {
		mongoSink, err := audit.NewMongoSink(ctx, cfg.Audit.MongoURI, cfg.Audit.MongoDatabase, cfg.Audit.Collection)
		if err != nil {
			a.Close(ctx)
			return nil, fmt.Errorf("failed to connect audit archive: %w", err)
		}
		a.mongo = mongoSink
		sink = mongoSink
	}

	// Initialize repositories
	orderRepo := repository.NewOrderRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)

	// Initialize services
	engine := finalization.NewEngine(cfg.Production.Density)
	catalogService := service.NewCatalogService(orderRepo)
	quotaService := service.NewQuotaService(sessionRepo)
	sessionService := service.NewSessionService(orderRepo, sessionRepo, worksets, engine, sink)
	lineItemService := service.NewLineItemService(orderRepo, sessionRepo, worksets)

	a.Scheduler = scheduler.NewScheduler(sessionService, cfg.Stale.CronSchedule, cfg.Stale.Threshold, logger.Named("scheduler"))

	// Create controllers
	controllers := &router.Controllers{
		Catalog: controller.NewCatalogController(catalogService),
		Batch:   controller.NewBatchController(quotaService),
		Session: controller.NewSessionController(sessionService, lineItemService),
	}

	a.Handler = router.SetupRoutes(controllers, router.Options{
		JWT: middleware.JWTConfig{
			SigningKey: []byte(cfg.Auth.JWTSecret),
			Issuer:     cfg.Auth.Issuer,
		},
		Logger: logger.Named("http"),
		Ping:   pool.Ping,
	})

	a.log.Info("application initialized",
		zap.Bool("mongo_audit", a.mongo != nil),
		zap.Bool("persistent_worksets", cfg.Workset.Path != ""),
		zap.Float64("density", engine.Density()),
	)
	return a, nil
}

// Close stops the scheduler and releases stores. Safe on a partially
// initialized App.
func (a *App) Close(ctx context.Context) {
	if a.Scheduler != nil {
		a.Scheduler.Stop()
	}
	if a.mongo != nil {
		if err := a.mongo.Close(ctx); err != nil {
			a.log.Warn("failed to close audit archive", zap.Error(err))
		}
	}
	if a.worksets != nil {
		if err := a.worksets.Close(); err != nil {
			a.log.Warn("failed to close workset store", zap.Error(err))
		}
	}
	db.CloseDB(a.pool)
}
