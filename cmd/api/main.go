package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/tourline/tourline-accounts/internal/handlers"
	"github.com/tourline/tourline-accounts/internal/notifier"
	"github.com/tourline/tourline-accounts/internal/repository"
	"github.com/tourline/tourline-accounts/internal/service"
	"github.com/tourline/tourline-accounts/pkg/config"
	"github.com/tourline/tourline-accounts/pkg/database"
	"github.com/tourline/tourline-accounts/pkg/events"
	"github.com/tourline/tourline-accounts/pkg/logger"
	mw "github.com/tourline/tourline-accounts/pkg/middleware"
)

func main() {
	godotenv.Load()

	cfg := config.Load()

	// Connect to database
	ctx := context.Background()
	pool, err := database.Connect(ctx, cfg.Database)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	// Connect to Redis for rate limiting
	redisOpts, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		logger.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	if cfg.Redis.Password != "" {
		redisOpts.Password = cfg.Redis.Password
	}
	redisOpts.DB = cfg.Redis.DB
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()

	// Connect to event bus; logins keep working without one
	var publisher events.Publisher
	if nats, err := events.NewNATSPublisher(cfg.NATS.URL); err != nil {
		logger.Warn("NATS unavailable, events disabled", "error", err)
		publisher = events.NoopPublisher{}
	} else {
		publisher = nats
	}
	defer publisher.Close()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(pool)
	sessionRepo := repository.NewSessionRepository(pool)
	tripRepo := repository.NewTripRepository(pool)
	productRepo := repository.NewProductRepository(pool)
	referralRepo := repository.NewReferralRepository(pool)
	affiliateRepo := repository.NewAffiliateRepository(pool)
	rateLimitRepo := repository.NewRateLimitRepository(redisClient)

	// Initialize SMS notifier
	var smsNotifier notifier.Service
	if cfg.SMS.DevMode || cfg.SMS.MailerSendKey == "" {
		smsNotifier = notifier.NewDevNotifier()
	} else {
		smsNotifier = notifier.NewMailerSend(cfg.SMS.MailerSendKey, cfg.SMS.SenderNumber)
	}

	// Initialize services
	issuer := service.NewSessionIssuer(sessionRepo, cfg)
	trips := service.NewTripProvisioner(tripRepo, productRepo, publisher, cfg)
	referrals := service.NewReferralRecorder(referralRepo, publisher)
	loginService := service.NewLoginService(
		accountRepo, affiliateRepo, rateLimitRepo, sessionRepo,
		issuer, trips, referrals, smsNotifier, publisher, cfg,
	)
	adminService := service.NewAdminService(accountRepo, sessionRepo, publisher)

	// Initialize handlers
	h := handlers.New(loginService, adminService, accountRepo, sessionRepo, cfg)

	// Setup router
	r := chi.NewRouter()

	// Middleware
	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(mw.Health)

	// Routes
	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(h.RequireAdminSession())
			r.Get("/accounts", h.ListAccounts)
			r.Get("/accounts/{id}", h.GetAccount)
			r.With(h.RequireCSRF()).Patch("/accounts/{id}/status", h.UpdateAccountStatus)
			r.With(h.RequireCSRF()).Delete("/accounts/{id}/sessions", h.RevokeAccountSessions)
		})
	})

	// Start server
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down accounts service...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Accounts service shutdown error", "error", err)
		}
	}()

	logger.Info("Starting accounts service", "port", cfg.Server.Port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Accounts service error", "error", err)
		os.Exit(1)
	}
}
