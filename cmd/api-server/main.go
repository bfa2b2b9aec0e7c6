package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/rs/zerolog"

	"github.com/clinicaplena/agenda-api/internal/api"
	"github.com/clinicaplena/agenda-api/internal/availability"
	"github.com/clinicaplena/agenda-api/internal/blocking"
	"github.com/clinicaplena/agenda-api/internal/booking"
	"github.com/clinicaplena/agenda-api/internal/cache"
	"github.com/clinicaplena/agenda-api/internal/calendar"
	"github.com/clinicaplena/agenda-api/internal/config"
	"github.com/clinicaplena/agenda-api/internal/db"
	"github.com/clinicaplena/agenda-api/internal/notify"
	"github.com/clinicaplena/agenda-api/internal/observability/metrics"
	redisclient "github.com/clinicaplena/agenda-api/internal/redis"
	"github.com/clinicaplena/agenda-api/internal/schedule"
)

const version = "1.2.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		bootLog := zerolog.New(os.Stderr)
		bootLog.Fatal().Err(err).Msg("config load error")
	}

	log := newLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Str("http_port", cfg.HTTPPort).Msg("api-server starting up")

	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect Postgres
	pgCtx, cancelPg := context.WithTimeout(rootCtx, 10*time.Second)
	pgPool, err := db.ConnectPostgres(pgCtx, cfg.PostgresDSN)
	cancelPg()
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connection error")
	}
	defer pgPool.Close()
	log.Info().Msg("connected to Postgres")

	// Connect Redis
	rdb, err := redisclient.NewRedisClient(cfg.RedisAddr, cfg.RedisUsername, cfg.RedisPassword)
	if err != nil {
		log.Fatal().Err(err).Msg("redis connection error")
	}
	defer func() {
		if err := rdb.Close(); err != nil {
			log.Warn().Err(err).Msg("error closing redis")
		}
	}()
	log.Info().Msg("connected to Redis")

	// External calendar mirror; disabled unless credentials are configured.
	var gateway calendar.Gateway = calendar.Noop{}
	if cfg.GoogleCalendarID != "" && cfg.GoogleCredentialsJSON != "" {
		google, err := calendar.NewGoogleGateway(rootCtx, calendar.GoogleConfig{
			CalendarID:      cfg.GoogleCalendarID,
			CredentialsJSON: []byte(cfg.GoogleCredentialsJSON),
			Timeout:         cfg.CalendarTimeout,
			Retries:         cfg.CalendarRetries,
			RetryDelay:      cfg.RetryDelay,
		}, log)
		if err != nil {
			log.Fatal().Err(err).Msg("google calendar setup error")
		}
		gateway = google
		log.Info().Str("calendar_id", cfg.GoogleCalendarID).Msg("google calendar mirror enabled")
	} else {
		log.Warn().Msg("google calendar mirror disabled, bookings will not be mirrored")
	}

	var notifier booking.Notifier = notify.Noop{}
	if cfg.SendgridAPIKey != "" {
		notifier = notify.NewEmailNotifier(notify.EmailConfig{
			APIKey:    cfg.SendgridAPIKey,
			FromEmail: cfg.NotifyFromEmail,
			FromName:  cfg.NotifyFromName,
		}, log)
		log.Info().Str("from", cfg.NotifyFromEmail).Msg("email notifications enabled")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	bookingMetrics := metrics.NewBookingMetrics(registry)

	policy := db.CallPolicy{
		Timeout: cfg.DBTimeout,
		Retries: cfg.DBRetries,
		Delay:   cfg.RetryDelay,
	}

	settingsCache := cache.NewSettingsCache(rdb, cfg.SettingsCacheTTL, log)

	scheduleSvc := schedule.NewService(schedule.NewPgRepository(pgPool, policy), settingsCache, log)
	blockingSvc := blocking.NewService(blocking.NewPgRepository(pgPool, policy), settingsCache, log)
	ledger := booking.NewPgRepository(pgPool, policy)

	computer := availability.NewComputer(scheduleSvc, blockingSvc, ledger, gateway, bookingMetrics, log)
	bookingSvc := booking.NewService(ledger, computer, gateway, scheduleSvc, notifier, bookingMetrics, log, cfg.BookingAdvanceDays)

	router := api.NewRouter(api.RouterConfig{
		Availability: computer,
		Bookings:     bookingSvc,
		Blocks:       blockingSvc,
		Settings:     scheduleSvc,
		PgPool:       pgPool,
		Redis:        rdb,
		Registry:     registry,
		Logger:       log,
		Env:          cfg.Env,
		Version:      version,
	})

	server := &http.Server{
		Addr:              ":" + cfg.HTTPPort,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", server.Addr).Msg("http server listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case <-rootCtx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("http server error")
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}

	log.Info().Msg("api-server stopped")
}

func newLogger(env string) zerolog.Logger {
	zerolog.TimeFieldFormat = time.RFC3339
	if env == "dev" {
		return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()
	}
	return zerolog.New(os.Stderr).With().Timestamp().Logger()
}
