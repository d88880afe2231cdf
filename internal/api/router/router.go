package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/http/handlers"
	httpmiddleware "github.com/cavalieriphilip-stack/agenda-citas-web-sub000/internal/http/middleware"
	"github.com/cavalieriphilip-stack/agenda-citas-web-sub000/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	Professionals *handlers.ProfessionalsHandler
	Availability  *handlers.AvailabilityHandler
	Patients      *handlers.PatientsHandler
	Reservations  *handlers.ReservationsHandler
	// Payments is optional; without it the payment and draft routes are not mounted.
	Payments *handlers.PaymentsHandler

	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimitRPS       float64
	RateLimitBurst     int

	// Ready reports whether backing stores are reachable. Nil means always ready.
	Ready func(ctx context.Context) error
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}

	r.Get("/health", healthHandler(cfg.Ready))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(httpmiddleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
		api.Use(middleware.Timeout(30 * time.Second))

		api.Get("/servicios", cfg.Availability.ListServices)
		api.Get("/disponibilidad", cfg.Availability.Availability)

		api.Route("/profesionales", func(r chi.Router) {
			r.Get("/", cfg.Professionals.List)
			r.Post("/", cfg.Professionals.Create)
			r.Get("/{id}/horarios", cfg.Professionals.ListSlots)
		})
		api.Post("/bloques", cfg.Professionals.CreateBlock)
		api.Delete("/horarios/{id}", cfg.Professionals.DeleteSlot)

		api.Post("/pacientes", cfg.Patients.Register)

		api.Route("/reservas", func(r chi.Router) {
			r.Post("/", cfg.Reservations.Create)
			r.Get("/detalle", cfg.Reservations.Details)
			r.Delete("/{id}", cfg.Reservations.Cancel)
			r.Put("/{id}/reprogramar", cfg.Reservations.Reschedule)
		})
		api.Get("/calendario", cfg.Reservations.Calendar)

		if cfg.Payments != nil {
			api.Post("/pagos/preferencias", cfg.Payments.CreatePreference)
			api.Route("/borradores/{key}", func(r chi.Router) {
				r.Put("/", cfg.Payments.PutDraft)
				r.Get("/", cfg.Payments.GetDraft)
				r.Delete("/", cfg.Payments.DeleteDraft)
			})
		}
	})

	return r
}

func healthHandler(ready func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, body := http.StatusOK, map[string]string{"status": "ok"}
		if ready != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ready(ctx); err != nil {
				status, body = http.StatusServiceUnavailable, map[string]string{"status": "unavailable"}
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(body)
	}
}
