package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"tavolo/internal/bookingapi"
	"tavolo/internal/config"
	"tavolo/internal/metrics"
	"tavolo/internal/notify"
	"tavolo/internal/session"
	"tavolo/internal/web"
)

func main() {
	// Initialize logger
	output := zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	logger := zerolog.New(output).With().Timestamp().Logger()

	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("TAVOLO_CONFIG_PATH"))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if cfg.API.BaseURL == "" {
		logger.Fatal().Msg("set api.base_url in config")
	}

	var rdb *redis.Client
	if cfg.Redis.Address != "" {
		rdb = redis.NewClient(&redis.Options{Addr: cfg.Redis.Address, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
	}

	// The credential slot lives in Redis when available so every node sees
	// the same session; a plain file otherwise.
	var creds bookingapi.CredentialStore
	if rdb != nil {
		creds = session.NewRedisStore(rdb)
	} else {
		creds = session.NewFileStore(cfg.Session.CredentialPath)
	}

	client := bookingapi.New(cfg.API.BaseURL, creds, cfg.APITimeout())
	if rdb != nil && cfg.CacheTTL() > 0 {
		client.UseRedisCache(rdb, cfg.CacheTTL())
	}

	sessions := session.NewStore(client)
	sessions.Subscribe(func(token string) {
		logger.Info().Bool("authenticated", token != "").Msg("session changed")
	})

	var notifier notify.Notifier = notify.Noop{}
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != 0 {
		tg, err := notify.NewTelegram(cfg.Telegram.BotToken, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Error().Err(err).Msg("telegram notifier disabled")
		} else {
			notifier = tg
		}
	}

	metrics.Register()

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(web.RequestLogger(logger))

	srv := web.NewServer(cfg, client, sessions, notifier, logger)
	srv.RegisterRoutes(e)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Monitoring.PrometheusEnabled {
		if cfg.Monitoring.PrometheusPort == 0 {
			cfg.Monitoring.PrometheusPort = 9090
		}
		go startMetricsServer(ctx, cfg.Monitoring.PrometheusPort, &logger)
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = e.Shutdown(shutdownCtx)
	}()

	logger.Info().Int("port", cfg.Server.Port).Str("api", cfg.API.BaseURL).Msg("tavolo started")
	if err := e.Start(fmt.Sprintf(":%d", cfg.Server.Port)); err != nil && err != http.ErrServerClosed {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func startMetricsServer(ctx context.Context, port int, logger *zerolog.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{Addr: fmt.Sprintf(":%d", port), Handler: mux}
	go func() {
		<-ctx.Done()
		ctxShutdown, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctxShutdown)
	}()
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error().Err(err).Msg("metrics server error")
	}
}
