package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/shs-health/booking-engine/internal/metrics"
)

type RouterConfig struct {
	Bookings  BookingService
	Schedules ScheduleService
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Metrics   *metrics.BookingMetrics
	Logger    zerolog.Logger
	Env       string
	Version   string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	if cfg.Metrics != nil {
		r.Use(MetricsMiddleware(cfg.Metrics))
	}

	// Health and metrics
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	r.Handle("/metrics", promhttp.Handler())

	// Appointments
	r.Post("/appointments", bookAppointmentHandler(cfg.Bookings))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Bookings))
	r.Delete("/appointments/{id}", cancelAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Bookings))
	r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Bookings))
	r.Delete("/appointments/{id}/if-missed", deleteIfMissedHandler(cfg.Bookings))
	r.Post("/appointments/cleanup-missed", cleanupMissedHandler(cfg.Bookings))

	// Doctor views
	r.Get("/doctors/{id}/appointments/today", doctorTodayHandler(cfg.Bookings))
	r.Get("/doctors/{id}/appointments/tomorrow", doctorTomorrowHandler(cfg.Bookings))
	r.Get("/doctors/{id}/appointments/upcoming", doctorUpcomingHandler(cfg.Bookings))

	// Patient dashboard
	r.Get("/patients/{id}/appointments", patientAppointmentsHandler(cfg.Bookings))

	// Schedule CRUD
	r.Get("/doctors/{id}/schedule", listScheduleHandler(cfg.Schedules))
	r.Get("/doctors/{id}/schedule/{day}", getScheduleWindowHandler(cfg.Schedules))
	r.Put("/doctors/{id}/schedule/{day}", upsertScheduleWindowHandler(cfg.Schedules))
	r.Delete("/doctors/{id}/schedule/{day}", deactivateScheduleWindowHandler(cfg.Schedules))

	return r
}
