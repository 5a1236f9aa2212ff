package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/indexnow-studio/backend/internal/config"
	"github.com/indexnow-studio/backend/internal/handler"
	"github.com/indexnow-studio/backend/internal/logging"
	"github.com/indexnow-studio/backend/internal/metrics"
	appMiddleware "github.com/indexnow-studio/backend/internal/middleware"
	"github.com/indexnow-studio/backend/internal/repository"
	"github.com/indexnow-studio/backend/internal/scheduler"
	"github.com/indexnow-studio/backend/internal/service"
	"github.com/indexnow-studio/backend/internal/ws"
	"github.com/indexnow-studio/backend/pkg/crypto"
	"github.com/indexnow-studio/backend/pkg/indexnow"
	"github.com/indexnow-studio/backend/pkg/payment"
)

func main() {
	configPath := flag.String("config", "", "optional config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		log.Fatalf("logger error: %v", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)
	handler.SetDevMode(cfg.Logging.Development)

	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := repository.NewDB(ctx, cfg.DB.URL, cfg.DB.MaxConns, cfg.DB.MinConns)
	if err != nil {
		logger.Fatal("database error", zap.Error(err))
	}
	defer pool.Close()

	if err := repository.RunMigrations(ctx, pool); err != nil {
		logger.Fatal("migration error", zap.Error(err))
	}
	logger.Info("database connected and migrated")

	enc, err := crypto.NewEncryptor(cfg.Payment.EncryptionKey)
	if err != nil {
		logger.Fatal("encryption error", zap.Error(err))
	}

	// Repositories
	userRepo := repository.NewUserRepository(pool)
	txRepo := repository.NewTransactionRepository(pool)
	subRepo := repository.NewSubscriptionRepository(pool)
	jobRepo := repository.NewJobRepository(pool)
	pkgRepo := repository.NewPackageRepository(pool)
	settingsRepo := repository.NewSettingsRepository(pool)

	// External clients
	gateway := payment.NewClient(cfg.Payment.BaseURL, cfg.Payment.ServerKey)
	indexClient := indexnow.NewClient(cfg.Indexing.Endpoint, cfg.Indexing.APIKey,
		time.Duration(cfg.Indexing.TimeoutSeconds)*time.Second)

	// WebSocket hub
	hub := ws.NewHub(logger, 2*time.Second)

	// Services
	authSvc := service.NewAuthService(cfg.Auth.JWTSecret, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword, userRepo, logger)
	if err := authSvc.SeedAdmin(ctx); err != nil {
		logger.Fatal("admin seed error", zap.Error(err))
	}

	billingSvc := service.NewBillingService(txRepo, subRepo, userRepo, pkgRepo, gateway, enc, logger)
	renewalSvc := service.NewRenewalService(subRepo, txRepo, userRepo, pkgRepo, gateway, enc, logger)
	jobSvc := service.NewJobService(jobRepo, userRepo, pkgRepo, hub, logger)
	settingsSvc := service.NewSettingsService(settingsRepo, 5*time.Minute)

	runner := service.NewRunnerService(jobRepo, indexClient, hub, logger, 30*time.Second, cfg.Indexing.BatchSize)
	runner.Start(ctx)

	sched := scheduler.New(renewalSvc, userRepo, logger, cfg.Scheduler)
	sched.Start()
	defer func() { <-sched.Stop().Done() }()

	// Handlers
	authHandler := handler.NewAuthHandler(authSvc)
	billingHandler := handler.NewBillingHandler(billingSvc)
	jobsHandler := handler.NewJobsHandler(jobSvc)
	packagesHandler := handler.NewPackagesHandler(pkgRepo)
	adminHandler := handler.NewAdminHandler(authSvc, billingSvc, settingsSvc, jobRepo, txRepo, hub)
	wsHandler := ws.NewHandler(hub, authSvc, logger)

	// Build router
	r := chi.NewRouter()

	// Global middleware
	r.Use(appMiddleware.Recovery(logger))
	r.Use(appMiddleware.Logger(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.Server.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Global rate limiter (20 req/sec per IP, burst of 40)
	globalRL := appMiddleware.NewRateLimiter(20, 40)
	r.Use(globalRL.Middleware())

	// Public routes
	r.Get("/healthz", handler.Health)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/api/packages", packagesHandler.List)
	r.Get("/api/payment-gateways", packagesHandler.ListGateways)

	// Public gateway callback, strictly rate limited
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/billing/webhook", billingHandler.Webhook)
	})

	// Auth routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.StrictRateLimiter())
		r.Post("/api/auth/login", authHandler.Login)
	})

	// Protected API routes
	r.Group(func(r chi.Router) {
		r.Use(appMiddleware.Auth(authSvc))

		r.Get("/api/auth/me", authHandler.Me)

		// Jobs
		r.Get("/api/jobs", jobsHandler.List)
		r.Post("/api/jobs", jobsHandler.Create)
		r.Get("/api/jobs/{id}", jobsHandler.Get)
		r.Patch("/api/jobs/{id}/status", jobsHandler.UpdateStatus)
		r.Delete("/api/jobs/{id}", jobsHandler.Delete)

		// Billing
		r.Post("/api/billing/checkout", billingHandler.Checkout)
		r.Get("/api/billing/subscription", billingHandler.Subscription)
		r.Get("/api/billing/transactions", billingHandler.Transactions)

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(appMiddleware.AdminOnly)
			r.Patch("/api/admin/orders/{id}/status", adminHandler.UpdateOrderStatus)
			r.Get("/api/admin/stats", adminHandler.Stats)
			r.Get("/api/admin/users", adminHandler.ListUsers)
			r.Post("/api/admin/users", adminHandler.CreateUser)
			r.Delete("/api/admin/users/{id}", adminHandler.DeleteUser)
			r.Get("/api/admin/settings", adminHandler.GetSettings)
			r.Put("/api/admin/settings", adminHandler.UpdateSettings)
		})
	})

	// WebSocket (auth via query param)
	r.HandleFunc("/ws", wsHandler.Handle)

	// Start server
	addr := fmt.Sprintf("0.0.0.0:%d", cfg.Server.Port)
	server := &http.Server{
		Addr:        addr,
		Handler:     r,
		ReadTimeout: 30 * time.Second,
		// WriteTimeout must be 0 for WebSocket connections (they are long-lived)
		IdleTimeout: 120 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		logger.Info("shutting down")
		cancel()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()

	logger.Info("server listening", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		logger.Fatal("server error", zap.Error(err))
	}
}
