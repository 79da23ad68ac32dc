package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/treadstock/treadstock/internal/app"
	"github.com/treadstock/treadstock/internal/auth"
	"github.com/treadstock/treadstock/internal/inventory"
	"github.com/treadstock/treadstock/internal/masterdata/suppliers"
	"github.com/treadstock/treadstock/internal/observability"
	"github.com/treadstock/treadstock/internal/platform/cache"
	"github.com/treadstock/treadstock/internal/platform/db"
	"github.com/treadstock/treadstock/internal/procurement"
	"github.com/treadstock/treadstock/internal/rbac"
	"github.com/treadstock/treadstock/internal/receiving"
	"github.com/treadstock/treadstock/internal/retread"
	"github.com/treadstock/treadstock/internal/shared"
	"github.com/treadstock/treadstock/jobs"
)

// poSource adapts the procurement service to the receiving order port.
type poSource struct {
	svc *procurement.Service
}

func (p poSource) GetPO(ctx context.Context, id int64) (procurement.PurchaseOrder, error) {
	return p.svc.GetPurchaseOrder(ctx, id)
}

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	dbpool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer dbpool.Close()

	redisClient, err := cache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	sessionManager := shared.NewSessionManager(redisClient, "treadstock_session", cfg.SessionSecret, cfg.SessionTTL, cfg.IsProduction())
	csrfManager := shared.NewCSRFManager(cfg.CSRFSecret)

	auditLogger := shared.NewAuditLogger(dbpool)
	idempotencyStore := shared.NewIdempotencyStore(dbpool)

	authRepo := auth.NewRepository(dbpool)
	authService := auth.NewService(authRepo)
	authHandler := auth.NewHandler(logger, authService, sessionManager, csrfManager)

	rbacService := rbac.NewService(dbpool)
	rbacMiddleware := rbac.Middleware{Source: rbacService, Logger: logger}

	inventoryRepo := inventory.NewRepository(dbpool)
	inventoryService := inventory.NewService(inventoryRepo, auditLogger)
	inventoryHandler := inventory.NewHandler(logger, inventoryService, rbacMiddleware)

	procurementRepo := procurement.NewRepository(dbpool)
	procurementService := procurement.NewService(procurementRepo, auditLogger)
	procurementHandler := procurement.NewHandler(logger, procurementService, rbacMiddleware)

	receivingRepo := receiving.NewRepository(dbpool)
	receivingService := receiving.NewService(receivingRepo, poSource{svc: procurementService}, auditLogger, idempotencyStore, redisClient)
	serialGenerator := receiving.NewGenerator(receiving.SystemClock())
	receivingHandler := receiving.NewHandler(logger, receivingService, serialGenerator, rbacMiddleware)

	retreadRepo := retread.NewRepository(dbpool)
	retreadService := retread.NewService(retreadRepo, auditLogger)
	retreadHandler := retread.NewHandler(logger, retreadService, rbacMiddleware)

	suppliersRepo := suppliers.NewRepository(dbpool)
	suppliersService := suppliers.NewService(suppliersRepo)
	suppliersHandler := suppliers.NewHandler(logger, suppliersService, rbacMiddleware)

	metrics := observability.NewMetrics()
	receivingHandler.CommitMetric = metrics.ObserveGRNCommit

	inspector := asynq.NewInspector(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:             logger,
		Config:             cfg,
		SessionManager:     sessionManager,
		CSRFManager:        csrfManager,
		AuthHandler:        authHandler,
		ProcurementHandler: procurementHandler,
		ReceivingHandler:   receivingHandler,
		InventoryHandler:   inventoryHandler,
		RetreadHandler:     retreadHandler,
		SuppliersHandler:   suppliersHandler,
		JobHandler:         jobHandler,
		Metrics:            metrics,
	})

	server := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	go func() {
		logger.Info("starting http server", slog.String("addr", cfg.AppAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("http server", slog.Any("error", err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", slog.Any("error", err))
	}
}
