package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/auth"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/service"
	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// RouterDeps are the collaborators the HTTP surface needs.
type RouterDeps struct {
	Events   *service.EventService
	Bookings *service.BookingService
	Auth     *auth.Authenticator
	// RateLimit wraps booking submission; nil means unlimited.
	RateLimit func(http.Handler) http.Handler
	Logger    *zap.Logger
}

// NewRouter builds the chi router for the attendee and organiser APIs.
func NewRouter(d RouterDeps) http.Handler {
	rateLimit := d.RateLimit
	if rateLimit == nil {
		rateLimit = func(next http.Handler) http.Handler { return next }
	}
	attendee := NewAttendeeHandler(d.Events, d.Bookings, d.Logger)
	organiser := NewOrganiserHandler(d.Events, d.Auth, d.Logger)

	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(Logger(d.Logger))
	r.Use(CORS)

	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", attendee.ListEvents)
		r.Get("/{id}", attendee.GetSnapshot)
		r.With(rateLimit).Post("/{id}/bookings", attendee.SubmitBooking)
	})

	r.Route("/organiser", func(r chi.Router) {
		r.Post("/login", organiser.Login)

		r.Group(func(r chi.Router) {
			r.Use(RequireOrganiser(d.Auth))
			r.Get("/events", organiser.ListEvents)
			r.Post("/events", organiser.CreateEvent)
			r.Get("/events/{id}", organiser.GetEvent)
			r.Put("/events/{id}", organiser.UpdateEvent)
			r.Post("/events/{id}/publish", organiser.PublishEvent)
			r.Delete("/events/{id}", organiser.DeleteEvent)
			r.Get("/events/{id}/bookings", organiser.ListBookings)
		})
	})

	return r
}
