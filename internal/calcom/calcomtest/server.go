// Package calcomtest provides an in-process fake of the Cal.com v1 API for
// tests and the test server.
package calcomtest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"

	"github.com/omriShneor/calbot/internal/calcom"
)

// Server is a fake Cal.com backed by httptest. Unless SetSlots is called, a
// slot query returns exactly one slot at the requested start time, or none
// when a stored booking already starts there.
type Server struct {
	srv    *httptest.Server
	apiKey string

	mu          sync.Mutex
	slots       map[string][]calcom.Slot
	fixedSlots  bool
	statuses    map[string]int
	bookingFail map[int]int
	bookings    map[int]*calcom.Booking
	references  []calcom.BookingReference
	created     []calcom.CreateBookingInput
	slotQueries []url.Values
	requests    []string
	nextID      int
}

// Endpoint names accepted by SetStatus.
const (
	EndpointSlots      = "slots"
	EndpointCreate     = "create_booking"
	EndpointReferences = "booking_references"
)

// New starts a fake that requires apiKey on every request. An empty apiKey
// disables the check.
func New(apiKey string) *Server {
	s := &Server{
		apiKey:      apiKey,
		statuses:    make(map[string]int),
		bookingFail: make(map[int]int),
		bookings:    make(map[int]*calcom.Booking),
		nextID:      1000,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /slots", s.handleSlots)
	mux.HandleFunc("POST /bookings", s.handleCreateBooking)
	mux.HandleFunc("GET /booking-references", s.handleReferences)
	mux.HandleFunc("GET /bookings/{id}", s.handleGetBooking)

	s.srv = httptest.NewServer(s.authenticate(mux))
	return s
}

// URL is the base URL to configure a calcom.Client with.
func (s *Server) URL() string {
	return s.srv.URL
}

// Close shuts the fake down.
func (s *Server) Close() {
	s.srv.Close()
}

// Client returns a calcom.Client pointed at the fake.
func (s *Server) Client(eventTypeID int) *calcom.Client {
	return calcom.NewClient(calcom.Config{
		BaseURL:     s.URL(),
		APIKey:      s.apiKey,
		EventTypeID: eventTypeID,
	})
}

// SetSlots fixes the slots response returned for every query.
func (s *Server) SetSlots(slots map[string][]calcom.Slot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = slots
	s.fixedSlots = true
}

// SetStatus forces an endpoint to answer with status and an error body.
// Zero restores normal behaviour.
func (s *Server) SetStatus(endpoint string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if status == 0 {
		delete(s.statuses, endpoint)
		return
	}
	s.statuses[endpoint] = status
}

// FailBooking makes GET /bookings/{id} answer with status.
func (s *Server) FailBooking(id, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookingFail[id] = status
}

// AddBooking stores a booking and appends a reference to it.
func (s *Server) AddBooking(b calcom.Booking) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.addBookingLocked(&b)
}

// AddReference appends a raw reference, e.g. one with no booking id.
func (s *Server) AddReference(ref calcom.BookingReference) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.references = append(s.references, ref)
}

// CreatedBookings returns every creation payload received.
func (s *Server) CreatedBookings() []calcom.CreateBookingInput {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]calcom.CreateBookingInput(nil), s.created...)
}

// SlotQueries returns the query parameters of every slot request.
func (s *Server) SlotQueries() []url.Values {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]url.Values(nil), s.slotQueries...)
}

// Requests returns "METHOD /path" for every request received.
func (s *Server) Requests() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.requests...)
}

// Reset drops all stored state and overrides.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slots = nil
	s.fixedSlots = false
	s.statuses = make(map[string]int)
	s.bookingFail = make(map[int]int)
	s.bookings = make(map[int]*calcom.Booking)
	s.references = nil
	s.created = nil
	s.slotQueries = nil
	s.requests = nil
}

func (s *Server) addBookingLocked(b *calcom.Booking) {
	if b.ID == 0 {
		b.ID = s.nextID
		s.nextID++
	}
	s.bookings[b.ID] = b
	s.references = append(s.references, calcom.BookingReference{
		ID:        len(s.references) + 1,
		Type:      "google_calendar",
		BookingID: b.ID,
	})
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.requests = append(s.requests, r.Method+" "+r.URL.Path)
		s.mu.Unlock()

		if s.apiKey != "" && r.URL.Query().Get("apiKey") != s.apiKey {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"message": "Your API key is not valid."})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) forced(endpoint string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statuses[endpoint]
}

func (s *Server) handleSlots(w http.ResponseWriter, r *http.Request) {
	if status := s.forced(EndpointSlots); status != 0 {
		writeJSON(w, status, map[string]string{"message": "slots unavailable"})
		return
	}

	query := r.URL.Query()
	s.mu.Lock()
	s.slotQueries = append(s.slotQueries, query)
	slots := s.slots
	if !s.fixedSlots {
		slots = s.computeSlotsLocked(query.Get("startTime"))
	}
	s.mu.Unlock()

	if slots == nil {
		slots = map[string][]calcom.Slot{}
	}
	writeJSON(w, http.StatusOK, calcom.SlotsResponse{Slots: slots})
}

func (s *Server) computeSlotsLocked(start string) map[string][]calcom.Slot {
	for _, b := range s.bookings {
		if b.StartTime == start {
			return map[string][]calcom.Slot{}
		}
	}
	day := start
	if len(day) >= 10 {
		day = day[:10]
	}
	return map[string][]calcom.Slot{day: {{Time: start}}}
}

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var input calcom.CreateBookingInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid body"})
		return
	}

	s.mu.Lock()
	s.created = append(s.created, input)
	s.mu.Unlock()

	if status := s.forced(EndpointCreate); status != 0 {
		writeJSON(w, status, map[string]string{"message": "booking could not be created"})
		return
	}

	booking := calcom.Booking{
		EventTypeID: input.EventTypeID,
		Title:       input.Title,
		Description: input.Description,
		StartTime:   input.Start,
		EndTime:     input.End,
		Status:      input.Status,
		Location:    input.Responses.Location.Value,
		Attendees: []calcom.Attendee{{
			Email:    input.Responses.Email,
			Name:     input.Responses.Name,
			TimeZone: input.TimeZone,
			Locale:   input.Language,
		}},
		Metadata: input.Metadata,
	}

	s.mu.Lock()
	s.addBookingLocked(&booking)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, booking)
}

func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	if status := s.forced(EndpointReferences); status != 0 {
		writeJSON(w, status, map[string]string{"message": "references unavailable"})
		return
	}

	s.mu.Lock()
	refs := append([]calcom.BookingReference{}, s.references...)
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]any{"booking_references": refs})
}

func (s *Server) handleGetBooking(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"message": "invalid id"})
		return
	}

	s.mu.Lock()
	status := s.bookingFail[id]
	booking, ok := s.bookings[id]
	var copied calcom.Booking
	if ok {
		copied = *booking
	}
	s.mu.Unlock()

	if status != 0 {
		writeJSON(w, status, map[string]string{"message": "booking lookup failed"})
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "Booking not found"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"booking": copied})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
