package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/meridianlabs/site-api/internal/channel"
	"github.com/meridianlabs/site-api/internal/config"
	authHandler "github.com/meridianlabs/site-api/internal/handler/auth"
	contactHandler "github.com/meridianlabs/site-api/internal/handler/contact"
	healthHandler "github.com/meridianlabs/site-api/internal/handler/health"
	promHandler "github.com/meridianlabs/site-api/internal/handler/prometheus"
	"github.com/meridianlabs/site-api/internal/middleware"
	"github.com/meridianlabs/site-api/internal/repository/postgres"
	redisrepo "github.com/meridianlabs/site-api/internal/repository/redis"
	"github.com/meridianlabs/site-api/internal/router"
	authService "github.com/meridianlabs/site-api/internal/service/auth"
	contactService "github.com/meridianlabs/site-api/internal/service/contact"
	deliveryService "github.com/meridianlabs/site-api/internal/service/delivery"
	"github.com/meridianlabs/site-api/internal/validation"
	"github.com/meridianlabs/site-api/internal/worker"
	pkgauth "github.com/meridianlabs/site-api/pkg/auth"
	"github.com/meridianlabs/site-api/pkg/logger"
	"github.com/meridianlabs/site-api/pkg/metrics"
	"github.com/meridianlabs/site-api/pkg/security"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	appLogger := logger.NewLogger(nil)
	m := metrics.NewMetrics("site_api")

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	redisClient, err := redisrepo.NewClient(cfg.Redis.URL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	// Repositories
	base := postgres.NewBaseRepository(db, m)
	submissionRepo := postgres.NewSubmissionRepository(base)
	userRepo := postgres.NewUserRepository(base)
	tokenRepo := redisrepo.NewTokenRepository(redisClient)

	// Delivery channels, in fallback order. The HTTP providers sit
	// behind circuit breakers so a dead provider fails fast.
	channels := []channel.Channel{
		channel.NewSMTPChannel(cfg.SMTP, cfg.Contact),
		channel.WithBreaker(channel.NewSendGridChannel(cfg.SendGrid, cfg.Contact), 5, 30*time.Second),
		channel.WithBreaker(channel.NewFormRelayChannel(cfg.FormRelay), 5, 30*time.Second),
		channel.NewMailtoChannel(cfg.Contact),
	}

	// Services
	gate := validation.NewGate()
	deliverySvc := deliveryService.NewService(submissionRepo, channels, cfg.Delivery, cfg.Contact, appLogger, m)
	contactSvc := contactService.NewService(gate, deliverySvc, appLogger)

	jwtSvc := pkgauth.NewJWTService(pkgauth.Config{
		Secret:        cfg.JWT.Secret,
		RefreshSecret: cfg.JWT.RefreshSecret,
		Expiry:        time.Duration(cfg.JWT.ExpiryHours) * time.Hour,
	})
	hasher := security.NewBcryptHasher(0)
	authSvc := authService.NewService(userRepo, tokenRepo, jwtSvc, hasher, gate, deliverySvc, appLogger)

	// Middleware and handlers
	authMW := middleware.NewAuthMiddleware(jwtSvc, tokenRepo)
	promH := promHandler.New()

	r := router.NewRouter(
		authMW,
		contactHandler.NewHandler(contactSvc, cfg.Delivery.FailureStatusMode, appLogger),
		authHandler.NewHandler(authSvc),
		healthHandler.NewHandler(db),
		promH,
		router.RouterConfig{
			RateLimit:        rate.Limit(cfg.RateLimit.RequestsPerSecond),
			RateBurst:        cfg.RateLimit.Burst,
			RateLimitEnabled: cfg.RateLimit.Enabled,
			CORSConfig:       middleware.DefaultCORSConfig(),
		},
	)
	r.Setup()

	// Reconciler sweeps submissions left pending by crashed deliveries.
	workerCtx, stopWorker := context.WithCancel(context.Background())
	reconciler := worker.NewReconciler(submissionRepo, worker.ReconcilerConfig{
		PollInterval: cfg.Delivery.ReconcileInterval,
		Threshold:    cfg.Delivery.ReconcileThreshold,
	}, appLogger, m)
	go reconciler.Start(workerCtx)

	srv := &http.Server{
		Addr:           fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:        r.Engine(),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
	stopWorker()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server exited")
}
