package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/accounts/internal/config"
	"github.com/Skotchmaster/accounts/internal/email"
	"github.com/Skotchmaster/accounts/internal/events"
	"github.com/Skotchmaster/accounts/internal/httpserver"
	"github.com/Skotchmaster/accounts/internal/middleware"
	"github.com/Skotchmaster/accounts/internal/repo"
	"github.com/Skotchmaster/accounts/internal/search"
	"github.com/Skotchmaster/accounts/internal/service"
	"github.com/Skotchmaster/accounts/pkg/db"
	"github.com/Skotchmaster/accounts/pkg/logging"
	loggingmw "github.com/Skotchmaster/accounts/pkg/middleware/logging"
)

type publisher interface {
	service.EventPublisher
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("config_load_failed", "error", err)
		os.Exit(1)
	}

	logger := logging.New(cfg.LogLevel).With("service", "accounts", "env", cfg.Env)
	slog.SetDefault(logger)
	ctx := logging.IntoContext(context.Background(), logger)

	openCtx, cancelOpen := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(openCtx, cfg.DBDriver, cfg.DatabaseURL)
	cancelOpen()
	if err != nil {
		logger.Error("db_open_failed", "driver", cfg.DBDriver, "error", err)
		os.Exit(1)
	}
	if err := repo.Migrate(gdb); err != nil {
		logger.Error("db_migrate_failed", "error", err)
		os.Exit(1)
	}
	store := repo.New(gdb)

	var producer publisher = events.Nop{}
	if len(cfg.Kafka.Brokers) > 0 {
		producer = events.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		logger.Info("kafka_enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}

	var index service.UserIndex
	switch idx, err := search.NewClient(ctx, cfg.Search); {
	case errors.Is(err, search.ErrDisabled):
		logger.Info("search_disabled")
	case err != nil:
		logger.Warn("search_unavailable", "error", err)
	default:
		index = idx
	}

	var mailer service.EmailSender = email.LogSender{AppURL: cfg.AppURL}
	if cfg.SMTP.Host != "" {
		mailer = email.NewService(cfg.SMTP, cfg.AppURL)
	}

	tokenSvc := service.NewTokenService(store, cfg.JWT)
	userSvc := &service.UserService{Repo: store, Events: producer, Index: index}
	authSvc := &service.AuthService{Repo: store, Tokens: tokenSvc, Users: userSvc, Email: mailer, Events: producer}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover(), echomw.RequestID())
	e.Use(loggingmw.RequestLogger(logger))
	e.Use(echomw.SecureWithConfig(echomw.SecureConfig{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge:         31536000,
	}))
	e.Use(echomw.CORS())
	e.Use(echomw.BodyLimit("1M"))

	httpserver.Register(e, &httpserver.Deps{
		AuthHandler: &httpserver.AuthHTTP{Svc: authSvc},
		UserHandler: &httpserver.UserHTTP{Svc: userSvc},
		Auth:        middleware.NewAuth(store, cfg.JWT.Secret),
		DB:          store,
		Production:  cfg.IsProduction(),
		RateLimit:   cfg.RateLimit,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	janitor := &service.Janitor{Repo: store, Interval: cfg.PurgeInterval}
	go janitor.Run(runCtx)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		logger.Info("http_listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http_server_error", "error", err)
			stop()
		}
	}()

	<-runCtx.Done()
	logger.Info("shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server_shutdown_error", "error", err)
	}
	if err := producer.Close(); err != nil {
		logger.Error("kafka_close_error", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_error", "error", err)
	}

	logger.Info("shutdown_complete")
}
