package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type RouterConfig struct {
	Availability AvailabilityService
	Bookings     BookingService
	Blocks       BlockService
	Settings     SettingsService
	PgPool       *pgxpool.Pool
	Redis        *redis.Client
	Registry     *prometheus.Registry
	Logger       zerolog.Logger
	Env          string
	Version      string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	// Public scheduling endpoints
	r.Get("/availability", availabilityHandler(cfg.Availability))
	r.Post("/bookings", createBookingHandler(cfg.Bookings))
	r.Get("/bookings/{code}", getBookingHandler(cfg.Bookings))
	r.Delete("/bookings/{code}", cancelBookingHandler(cfg.Bookings))

	// Admin endpoints
	r.Route("/admin", func(r chi.Router) {
		r.Use(AdminOnly)

		r.Post("/blocked-slots", createBlockedSlotHandler(cfg.Blocks))
		r.Get("/blocked-slots", listBlockedSlotsHandler(cfg.Blocks))
		r.Get("/blocked-slots/{id}", getBlockedSlotHandler(cfg.Blocks))
		r.Patch("/blocked-slots/{id}", updateBlockedSlotHandler(cfg.Blocks))
		r.Delete("/blocked-slots/{id}", deleteBlockedSlotHandler(cfg.Blocks))

		r.Get("/settings/{section}", getSettingsHandler(cfg.Settings))
		r.Put("/settings/{section}", updateSettingsHandler(cfg.Settings))
	})

	return r
}
