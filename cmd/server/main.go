package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ErlanBelekov/user-auth/config"
	"github.com/ErlanBelekov/user-auth/internal/email"
	"github.com/ErlanBelekov/user-auth/internal/health"
	"github.com/ErlanBelekov/user-auth/internal/infrastructure/memory"
	"github.com/ErlanBelekov/user-auth/internal/infrastructure/postgres"
	ctxlog "github.com/ErlanBelekov/user-auth/internal/log"
	"github.com/ErlanBelekov/user-auth/internal/maintenance"
	"github.com/ErlanBelekov/user-auth/internal/metrics"
	"github.com/ErlanBelekov/user-auth/internal/password"
	"github.com/ErlanBelekov/user-auth/internal/repository"
	"github.com/ErlanBelekov/user-auth/internal/token"
	httptransport "github.com/ErlanBelekov/user-auth/internal/transport/http"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/handler"
	"github.com/ErlanBelekov/user-auth/internal/transport/http/middleware"
	"github.com/ErlanBelekov/user-auth/internal/usecase"
	"github.com/gin-gonic/gin"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := newLogger(cfg.Env, cfg.SlogLevel())

	if cfg.Env != "local" {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	// Users
	var users repository.UserRepository
	deps := map[string]health.Pinger{}
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set, using in-memory user store")
		store := memory.NewUserRepository()
		users = store
		deps["users"] = store
	} else {
		if cfg.RunMigrations {
			if err := postgres.Migrate(cfg.DatabaseURL); err != nil {
				stop()
				log.Fatalf("migrate: %v", err)
			}
			logger.Info("migrations applied")
		}

		pool, err := postgres.NewPool(ctx, cfg.DatabaseURL, postgres.PoolOptions{
			MaxConns:       cfg.DBMaxConns,
			ConnectTimeout: cfg.DBConnectTimeout,
		})
		if err != nil {
			stop()
			log.Fatalf("db: %v", err)
		}
		defer pool.Close()
		users = postgres.NewUserRepository(pool)
		deps["postgres"] = pool
	}

	// Tokens
	if cfg.ActivationSecret == "" {
		logger.Warn("JWT_KEY not set, registration and activation will fail")
	}
	if cfg.ResetSecret == "" {
		logger.Warn("JWT_RESET_KEY not set, password resets will fail")
	}
	activationTokens := token.NewCodec([]byte(cfg.ActivationSecret))
	resetTokens := token.NewCodec([]byte(cfg.ResetSecret))
	sessionTokens := token.NewCodec([]byte(cfg.SessionSecret))

	hasher := password.NewBcryptHasher(cfg.BcryptCost)

	// Email
	mailer := email.NewDispatcher(
		email.NewSender(cfg.Env, cfg.ResendAPIKey, cfg.ResendFrom, logger),
		cfg.EmailWorkers, cfg.EmailQueueSize, logger,
	)
	mailer.Start()

	registrationUsecase := usecase.NewRegistrationUsecase(users, mailer, activationTokens, hasher, cfg.AppBaseURL, logger)
	authUsecase, err := usecase.NewAuthUsecase(users, mailer, hasher, sessionTokens, resetTokens, cfg.AppBaseURL, logger)
	if err != nil {
		stop()
		log.Fatalf("auth usecase: %v", err)
	}
	authHandler := handler.NewAuthHandler(registrationUsecase, authUsecase, handler.Config{
		ClientURL:     cfg.ClientURL,
		SecureCookies: cfg.Env != "local",
	}, logger)

	janitor, err := maintenance.NewJanitor(users, cfg.CleanupSchedule, logger)
	if err != nil {
		stop()
		log.Fatalf("janitor: %v", err)
	}

	metrics.Register()
	checker := health.NewChecker(deps, logger, prometheus.DefaultRegisterer)

	srv := http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           httptransport.NewRouter(logger, authHandler, middleware.Auth(authUsecase), httptransport.Options{
			TLS: cfg.Env != "local",
		}),
		ReadHeaderTimeout: 10 * time.Second,
	}

	metricsSrv := metrics.NewServer(":"+cfg.MetricsPort, checker)

	go func() {
		logger.Info("server started", "port", cfg.Port, "env", cfg.Env)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server: %v", err)
		}
	}()

	go func() {
		logger.Info("metrics server started", "port", cfg.MetricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server", "error", err)
		}
	}()

	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		janitor.Start(ctx)
	}()

	<-ctx.Done()
	stop()
	logger.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	// Requests are drained, so nothing enqueues after this point.
	if err := mailer.Close(shutdownCtx); err != nil {
		logger.Error("email dispatcher shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		logger.Error("metrics server shutdown", "error", err)
	}
	// The deferred pool.Close must not race an in-flight cleanup.
	select {
	case <-janitorDone:
	case <-shutdownCtx.Done():
		logger.Error("janitor shutdown", "error", shutdownCtx.Err())
	}
}

func newLogger(env string, level slog.Level) *slog.Logger {
	var inner slog.Handler
	if env == "local" {
		inner = tint.NewHandler(os.Stdout, &tint.Options{
			Level:      level,
			TimeFormat: time.Kitchen,
		})
	} else {
		inner = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: level,
		})
	}
	return slog.New(ctxlog.NewContextHandler(inner))
}
