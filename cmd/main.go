package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/suteetoe/winehouse/internal/admin"
	"github.com/suteetoe/winehouse/internal/auth"
	"github.com/suteetoe/winehouse/internal/catalog"
	"github.com/suteetoe/winehouse/internal/checkout"
	"github.com/suteetoe/winehouse/internal/handler"
	"github.com/suteetoe/winehouse/internal/listing"
	mid "github.com/suteetoe/winehouse/internal/middleware"
	"github.com/suteetoe/winehouse/internal/orders"
	"github.com/suteetoe/winehouse/internal/pending"
	"github.com/suteetoe/winehouse/internal/session"
	"github.com/suteetoe/winehouse/pkg/apiclient"
	"github.com/suteetoe/winehouse/pkg/config"
	"github.com/suteetoe/winehouse/pkg/database"
	"github.com/suteetoe/winehouse/pkg/logger"
	"github.com/suteetoe/winehouse/pkg/validate"
	"github.com/suteetoe/winehouse/prometheus"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func main() {
	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		// Can't use structured logger yet since it's not initialized
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	if err := logger.InitLogger(appConfig); err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	log := logger.GetLogger()
	defer log.Sync()

	log.Info("Starting "+appConfig.ServiceName, appConfig.LogFields()...)

	// Initialize Prometheus metrics
	prometheus.InitMetrics(appConfig)
	log.Info("Prometheus metrics initialized",
		zap.String("metrics_prefix", appConfig.Metrics.Prefix))

	// Pending payment markers
	var (
		markers pending.Store
		ping    func(ctx context.Context) error
		db      *gorm.DB
	)
	if appConfig.DB.Enabled {
		db, err = database.InitDB(&appConfig.DB, log)
		if err != nil {
			log.Fatal("Failed to initialize database", zap.Error(err))
		}
		if err := database.MigrateModels(db, &pending.Record{}); err != nil {
			log.Fatal("Failed to migrate database", zap.Error(err))
		}
		store := pending.NewGormStore(db)
		purged, err := store.Purge(context.Background(), time.Now().Add(-appConfig.Checkout.MarkerTTL))
		if err != nil {
			log.Warn("Failed to purge expired payment markers", zap.Error(err))
		} else if purged > 0 {
			log.Info("Expired payment markers purged", zap.Int64("count", purged))
		}
		markers = store
		ping = func(ctx context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		}
		log.Info("Database connection established")
	} else {
		markers = pending.NewMemoryStore()
		log.Warn("DB_ENABLED is false, payment markers are kept in memory")
	}

	// Backend client shared by every session
	api := apiclient.New(appConfig.API, log,
		apiclient.WithObserver(prometheus.ObserveBackend),
		apiclient.WithUnauthorizedHook(func(ctx context.Context, method, path string) {
			logger.FromCtx(ctx).Info("Session invalidated by backend",
				zap.String("method", method),
				zap.String("path", path))
		}))

	v := validate.New()
	authService := auth.NewService(api, v, log)
	sessions := session.NewRegistry(api, authService.UserSummary, log,
		session.WithSizeObserver(prometheus.SetActiveSessions))

	adminCatalog := admin.NewCatalog(log)
	transactions := admin.NewTransactions(log)

	h := handler.New(handler.Deps{
		Catalog:      catalog.NewService(api, log),
		Auth:         authService,
		Sessions:     sessions,
		Checkout:     checkout.New(markers, v, appConfig.Checkout, log),
		Orders:       orders.NewService(log),
		Admin:        adminCatalog,
		Transactions: transactions,
		Dashboard:    admin.NewDashboardLoader(adminCatalog, transactions, log),
		PageSizer: listing.PageSizer{
			Narrow:     appConfig.Listing.NarrowPageSize,
			Wide:       appConfig.Listing.WidePageSize,
			Breakpoint: appConfig.Listing.Breakpoint,
		},
		Ping: ping,
	})

	// Initialize Echo instance
	e := echo.New()
	e.HideBanner = true

	// Middleware
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: appConfig.Server.CORSOrigins,
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization, logger.RequestIDKey},
	}))
	e.Use(mid.RequestIDMiddleware)
	e.Use(logger.Middleware())
	e.Use(mid.MetricsMiddleware)
	e.Use(mid.SessionMiddleware(sessions))

	// Routes
	h.Register(e)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Start server
	port := appConfig.Server.Port
	go func() {
		log.Info("Starting server", zap.String("port", port))
		if err := e.Start(":" + port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown failed", zap.Error(err))
	}
	if err := database.Close(db); err != nil {
		log.Error("Failed to close database", zap.Error(err))
	}
}
