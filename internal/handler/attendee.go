package handler

import (
	"net/http"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/service"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// AttendeeHandler serves the public browse and booking endpoints.
type AttendeeHandler struct {
	events   *service.EventService
	bookings *service.BookingService
	logger   *zap.Logger
}

// NewAttendeeHandler serves the public browse and booking endpoints.
func NewAttendeeHandler(events *service.EventService, bookings *service.BookingService, logger *zap.Logger) *AttendeeHandler {
	return &AttendeeHandler{events: events, bookings: bookings, logger: logger}
}

type ticketView struct {
	model.TicketClass
	SoldOut bool `json:"sold_out"`
}

type snapshotResponse struct {
	ID          string       `json:"id"`
	Title       string       `json:"title"`
	Description string       `json:"description"`
	Date        string       `json:"date"`
	Time        string       `json:"time"`
	Tickets     []ticketView `json:"tickets"`
}

func newSnapshotResponse(snap *model.Snapshot) snapshotResponse {
	classes := snap.SortedClasses()
	tickets := make([]ticketView, 0, len(classes))
	for _, c := range classes {
		tickets = append(tickets, ticketView{TicketClass: c, SoldOut: c.SoldOut()})
	}
	return snapshotResponse{
		ID:          snap.Event.ID,
		Title:       snap.Event.Title,
		Description: snap.Event.Description,
		Date:        snap.Event.Date,
		Time:        snap.Event.Time,
		Tickets:     tickets,
	}
}

// ListEvents handles GET /events
// Returns published events, soonest first.
func (h *AttendeeHandler) ListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := h.events.ListPublished(r.Context())
	if err != nil {
		h.logger.Error("list published events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list events")
		return
	}

	// Return an empty array rather than null for better client compatibility.
	if events == nil {
		events = []model.Event{}
	}
	writeJSON(w, http.StatusOK, events)
}

// GetSnapshot handles GET /events/{id}
// Returns a published event with the remaining count of every class.
func (h *AttendeeHandler) GetSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.bookings.GetBookableSnapshot(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, newSnapshotResponse(snap))
}

// SubmitBooking handles POST /events/{id}/bookings
// Runs one booking attempt; 201 carries the confirmation.
func (h *AttendeeHandler) SubmitBooking(w http.ResponseWriter, r *http.Request) {
	var req model.BookRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}

	// Labels are checked by the validator so that its ordering holds.
	quantities := make(model.Quantities, len(req.Quantities))
	for label, qty := range req.Quantities {
		quantities[model.TicketType(label)] = qty
	}

	conf, err := h.bookings.SubmitBooking(r.Context(), model.BookingRequest{
		EventID:       chi.URLParam(r, "id"),
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		Quantities:    quantities,
	})
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, conf)
}
