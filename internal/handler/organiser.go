package handler

import (
	"errors"
	"net/http"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/auth"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// OrganiserHandler serves the authenticated event management endpoints.
type OrganiserHandler struct {
	events *service.EventService
	auth   *auth.Authenticator
	logger *zap.Logger
}

// NewOrganiserHandler serves login and the event management endpoints.
func NewOrganiserHandler(events *service.EventService, a *auth.Authenticator, logger *zap.Logger) *OrganiserHandler {
	return &OrganiserHandler{events: events, auth: a, logger: logger}
}

// Login handles POST /organiser/login
func (h *OrganiserHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req model.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	tok, err := h.auth.Login(req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Error("issue organiser token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, model.LoginResponse{Token: tok.Value, ExpiresAt: tok.ExpiresAt})
}

// ListEvents handles GET /organiser/events
// Returns every event split into published and drafts.
func (h *OrganiserHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	out, err := h.events.ListForOrganiser(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// CreateEvent handles POST /organiser/events
func (h *OrganiserHandler) CreateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ev, err := h.events.CreateEvent(r.Context(), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, ev)
}

// GetEvent handles GET /organiser/events/{id}
// Drafts are visible here.
func (h *OrganiserHandler) GetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := h.events.GetEvent(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// UpdateEvent handles PUT /organiser/events/{id}
// Both ticket classes are replaced and their remaining counts reset.
func (h *OrganiserHandler) UpdateEvent(w http.ResponseWriter, r *http.Request) {
	var in model.EventInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	ev, err := h.events.UpdateEvent(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// PublishEvent handles POST /organiser/events/{id}/publish
func (h *OrganiserHandler) PublishEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.events.PublishEvent(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	ev, err := h.events.GetEvent(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

// DeleteEvent handles DELETE /organiser/events/{id}
func (h *OrganiserHandler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if err := h.events.DeleteEvent(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListBookings handles GET /organiser/events/{id}/bookings
// Returns the booking ledger of the event, oldest first.
func (h *OrganiserHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.events.ListBookings(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	if bookings == nil {
		bookings = []model.Booking{}
	}
	writeJSON(w, http.StatusOK, bookings)
}
