package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Shivanand-hulikatti/ticket-inventory/internal/auth"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/clock"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/config"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/model"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/service"
	"github.com/Shivanand-hulikatti/ticket-inventory/internal/testutil"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const organiserPassword = "correct horse"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	store := testutil.NewSQLiteStore(t)
	logger := zap.NewNop()
	clk := clock.NewSystem()
	locks := service.NewEventLocks()

	hash, err := auth.HashPassword(organiserPassword, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	router := NewRouter(RouterDeps{
		Events:    service.NewEventService(store, locks, clk, logger),
		Bookings:  service.NewBookingService(store, service.NewConfirmationEmitter(store, nil, logger), locks, clk, logger),
		Auth:      auth.New(hash, "test-secret", time.Hour),
		RateLimit: RateLimit(config.RateLimitConfig{Enabled: true}, nil, logger),
		Logger:    logger,
	})
	srv := httptest.NewServer(router)
	t.Cleanup(srv.Close)
	return srv
}

func do(t *testing.T, method, url, token string, body any) (*http.Response, []byte) {
	t.Helper()
	var r *bytes.Reader
	switch b := body.(type) {
	case nil:
		r = bytes.NewReader(nil)
	case string:
		r = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, url, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, buf.Bytes()
}

func login(t *testing.T, srv *httptest.Server) string {
	t.Helper()
	resp, body := do(t, http.MethodPost, srv.URL+"/organiser/login", "", model.LoginRequest{Password: organiserPassword})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d: %s", resp.StatusCode, body)
	}
	var out model.LoginResponse
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode login: %v", err)
	}
	return out.Token
}

func createPublishedEvent(t *testing.T, srv *httptest.Server, token string, full, concession int) model.Event {
	t.Helper()
	in := model.EventInput{
		Title:      "Jazz Night",
		Date:       "2025-09-01",
		Time:       "20:00",
		Full:       model.TicketClassInput{PriceCents: 2500, Quantity: full},
		Concession: model.TicketClassInput{PriceCents: 1500, Quantity: concession},
	}
	resp, body := do(t, http.MethodPost, srv.URL+"/organiser/events", token, in)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create status = %d: %s", resp.StatusCode, body)
	}
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	resp, body = do(t, http.MethodPost, srv.URL+"/organiser/events/"+ev.ID+"/publish", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("publish status = %d: %s", resp.StatusCode, body)
	}
	return ev
}

func TestHealthCheck(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	resp, body := do(t, http.MethodGet, srv.URL+"/health", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"ok"`) {
		t.Fatalf("health = %d %s", resp.StatusCode, body)
	}
}

func TestBookingFlow(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	token := login(t, srv)
	ev := createPublishedEvent(t, srv, token, 2, 5)
	bookingsURL := srv.URL + "/events/" + ev.ID + "/bookings"

	resp, body := do(t, http.MethodGet, srv.URL+"/events", "", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), ev.ID) {
		t.Fatalf("list events = %d %s", resp.StatusCode, body)
	}

	tests := []struct {
		name       string
		url        string
		body       any
		wantStatus int
		wantReason string
	}{
		{
			name:       "booking succeeds",
			url:        bookingsURL,
			body:       model.BookRequest{AttendeeName: "Ada", AttendeeEmail: "ada@example.com", Quantities: map[string]int{"full": 2, "concession": 1}},
			wantStatus: http.StatusCreated,
		},
		{
			name:       "sold out class",
			url:        bookingsURL,
			body:       model.BookRequest{AttendeeName: "Bob", AttendeeEmail: "bob@example.com", Quantities: map[string]int{"full": 1}},
			wantStatus: http.StatusConflict,
			wantReason: service.ReasonInsufficient,
		},
		{
			name:       "missing name",
			url:        bookingsURL,
			body:       model.BookRequest{AttendeeEmail: "bob@example.com", Quantities: map[string]int{"concession": 1}},
			wantStatus: http.StatusBadRequest,
			wantReason: service.ReasonMissingName,
		},
		{
			name:       "unknown ticket type",
			url:        bookingsURL,
			body:       model.BookRequest{AttendeeName: "Bob", AttendeeEmail: "bob@example.com", Quantities: map[string]int{"vip": 1}},
			wantStatus: http.StatusBadRequest,
			wantReason: service.ReasonUnknownTicket,
		},
		{
			name:       "no tickets",
			url:        bookingsURL,
			body:       model.BookRequest{AttendeeName: "Bob", AttendeeEmail: "bob@example.com"},
			wantStatus: http.StatusBadRequest,
			wantReason: service.ReasonNoTickets,
		},
		{
			name:       "malformed body",
			url:        bookingsURL,
			body:       `{"attendee_name":`,
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown event",
			url:        srv.URL + "/events/does-not-exist/bookings",
			body:       model.BookRequest{AttendeeName: "Bob", AttendeeEmail: "bob@example.com", Quantities: map[string]int{"full": 1}},
			wantStatus: http.StatusNotFound,
			wantReason: service.ReasonEventNotFound,
		},
	}

	// Subtests share inventory and run in order.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, tt.url, "", tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.wantStatus, body)
			}
			if tt.wantReason != "" {
				var er model.ErrorResponse
				if err := json.Unmarshal(body, &er); err != nil {
					t.Fatalf("decode error: %v", err)
				}
				if er.Reason != tt.wantReason {
					t.Fatalf("reason = %q, want %q", er.Reason, tt.wantReason)
				}
			}
		})
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/events/"+ev.ID, "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("snapshot = %d %s", resp.StatusCode, body)
	}
	var snap snapshotResponse
	if err := json.Unmarshal(body, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Tickets) != 2 {
		t.Fatalf("tickets = %+v", snap.Tickets)
	}
	if full := snap.Tickets[0]; full.Type != model.TicketFull || full.Remaining != 0 || !full.SoldOut {
		t.Fatalf("full class = %+v", full)
	}
	if conc := snap.Tickets[1]; conc.Remaining != 4 || conc.SoldOut {
		t.Fatalf("concession class = %+v", conc)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/organiser/events/"+ev.ID+"/bookings", token, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("bookings = %d %s", resp.StatusCode, body)
	}
	var ledger []model.Booking
	if err := json.Unmarshal(body, &ledger); err != nil {
		t.Fatalf("decode ledger: %v", err)
	}
	if len(ledger) != 1 || ledger[0].AttendeeName != "Ada" {
		t.Fatalf("ledger = %+v", ledger)
	}
}

func TestDraftIsHiddenFromAttendees(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	token := login(t, srv)

	in := model.EventInput{Title: "Secret", Date: "2025-10-01", Time: "18:00",
		Full: model.TicketClassInput{Quantity: 3}}
	resp, body := do(t, http.MethodPost, srv.URL+"/organiser/events", token, in)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create = %d %s", resp.StatusCode, body)
	}
	var ev model.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp, _ := do(t, http.MethodGet, srv.URL+"/events/"+ev.ID, "", nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("draft snapshot status = %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodGet, srv.URL+"/organiser/events/"+ev.ID, token, nil); resp.StatusCode != http.StatusOK {
		t.Fatalf("organiser get draft status = %d", resp.StatusCode)
	}

	resp, body = do(t, http.MethodGet, srv.URL+"/organiser/events", token, nil)
	var list model.OrganiserEvents
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if resp.StatusCode != http.StatusOK || len(list.Drafts) != 1 || len(list.Published) != 0 {
		t.Fatalf("organiser list = %d %+v", resp.StatusCode, list)
	}
}

func TestOrganiserEventEditing(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)
	token := login(t, srv)
	ev := createPublishedEvent(t, srv, token, 2, 2)
	eventURL := srv.URL + "/organiser/events/" + ev.ID

	update := model.EventInput{Title: "Jazz Night II", Date: "2025-09-02", Time: "21:00",
		Full: model.TicketClassInput{PriceCents: 3000, Quantity: 8}}
	resp, body := do(t, http.MethodPut, eventURL, token, update)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("update = %d %s", resp.StatusCode, body)
	}
	var updated model.Event
	if err := json.Unmarshal(body, &updated); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if updated.Title != "Jazz Night II" || updated.Tickets[0].Remaining != 8 {
		t.Fatalf("updated = %+v", updated)
	}

	update.Date = "next tuesday"
	if resp, body := do(t, http.MethodPut, eventURL, token, update); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("invalid update = %d %s", resp.StatusCode, body)
	}

	if resp, body := do(t, http.MethodDelete, eventURL, token, nil); resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete = %d %s", resp.StatusCode, body)
	}
	if resp, _ := do(t, http.MethodGet, eventURL, token, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get deleted = %d", resp.StatusCode)
	}
	if resp, _ := do(t, http.MethodPost, eventURL+"/publish", token, nil); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("publish deleted = %d", resp.StatusCode)
	}
}

func TestOrganiserAuth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t)

	tests := []struct {
		name       string
		method     string
		path       string
		token      string
		body       any
		wantStatus int
	}{
		{"wrong password", http.MethodPost, "/organiser/login", "", model.LoginRequest{Password: "nope"}, http.StatusUnauthorized},
		{"no token", http.MethodGet, "/organiser/events", "", nil, http.StatusUnauthorized},
		{"garbage token", http.MethodGet, "/organiser/events", "not.a.jwt", nil, http.StatusUnauthorized},
		{"create without token", http.MethodPost, "/organiser/events", "", model.EventInput{Title: "x"}, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, tt.method, srv.URL+tt.path, tt.token, tt.body)
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d: %s", resp.StatusCode, tt.wantStatus, body)
			}
		})
	}
}

func TestCORSPreflight(t *testing.T) {
	t.Parallel()

	called := false
	h := CORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { called = true }))
	req := httptest.NewRequest(http.MethodOptions, "/events", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent || called {
		t.Fatalf("preflight = %d, next called = %v", rec.Code, called)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Fatalf("allow origin = %q", got)
	}
}

func TestRateLimitPassThroughWithoutRedis(t *testing.T) {
	t.Parallel()

	for _, cfg := range []config.RateLimitConfig{{Enabled: false}, {Enabled: true, Capacity: 1}} {
		calls := 0
		h := RateLimit(cfg, nil, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
		for i := 0; i < 3; i++ {
			h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/events/x/bookings", nil))
		}
		if calls != 3 {
			t.Fatalf("enabled=%v: calls = %d, want 3", cfg.Enabled, calls)
		}
	}
}

func TestRateKey(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodPost, "/events/x/bookings", nil)
	req.RemoteAddr = "203.0.113.7:52114"
	if got := rateKey("rl:booking", req); got != "rl:booking:ip:203.0.113.7" {
		t.Fatalf("key = %q", got)
	}
}

func TestRefillMillisNeverZero(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   time.Duration
		want int64
	}{
		{500 * time.Microsecond, 1},
		{0, 1},
		{time.Millisecond, 1},
		{6 * time.Second, 6000},
	}
	for _, tt := range tests {
		if got := refillMillis(tt.in); got != tt.want {
			t.Fatalf("refillMillis(%s) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestWriteServiceErrorHidesStorageDetails(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	err := &service.StorageError{Op: "apply delta", Err: errors.New("pq: password authentication failed")}
	writeServiceError(rec, zap.NewNop(), fmt.Errorf("submit: %w", err))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("storage detail leaked: %s", rec.Body.String())
	}
}
