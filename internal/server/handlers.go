package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/omriShneor/calbot/internal/booking"
	"github.com/omriShneor/calbot/internal/calcom"
	"github.com/omriShneor/calbot/internal/timeutil"
)

const (
	errEmailAndMessageRequired = "email and message required"
	errEmailRequired           = "email required"
	errInvalidBody             = "invalid request body"
	errProviderUnavailable     = "booking provider unavailable"
	errInternal                = "internal error"
	errBodyTooLarge            = "request body too large"
)

// Health Check

func (s *Server) handleHealthCheck(w http.ResponseWriter, r *http.Request) {
	// Check database connectivity
	if err := s.db.PingContext(r.Context()); err != nil {
		respondError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status": "healthy",
		"email":  s.notifyService.IsEmailAvailable(),
	})
}

// Bookings API

func (s *Server) handleCreateBooking(w http.ResponseWriter, r *http.Request) {
	var req booking.BookingRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	if err := req.Validate(); err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	outcome, err := s.createBooking(r, req)
	if err != nil {
		s.respondBookingError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, bookingOutcomeResponse(outcome))
}

func (s *Server) handleFindBookings(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondError(w, http.StatusBadRequest, errEmailRequired)
		return
	}

	bookings, err := s.bookings.FindBookings(r.Context(), email)
	if err != nil {
		s.respondBookingError(w, r, err)
		return
	}

	respondJSON(w, http.StatusOK, bookings)
}

// createBooking runs the orchestrator and sends a confirmation for bookings
// the provider actually created.
func (s *Server) createBooking(r *http.Request, req booking.BookingRequest) (*booking.Outcome, error) {
	outcome, err := s.bookings.CreateBooking(r.Context(), req)
	if err != nil {
		return nil, err
	}
	if outcome.Created() && outcome.Booking != nil {
		s.notifyService.NotifyBookingCreated(r.Context(), confirmationFor(req, outcome, s.location), req.Email)
	}
	return outcome, nil
}

// respondBookingError maps booking errors to status codes.
func (s *Server) respondBookingError(w http.ResponseWriter, r *http.Request, err error) {
	var formatErr *timeutil.TimeFormatError
	switch {
	case errors.As(err, &formatErr):
		respondError(w, http.StatusBadRequest, formatErr.Error())
	case errors.Is(err, booking.ErrInvalidRequest):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, calcom.ErrProviderUnavailable):
		s.logger.Error("provider call failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusBadGateway, errProviderUnavailable)
	default:
		s.logger.Error("booking request failed",
			zap.String("request_id", requestIDFromContext(r.Context())),
			zap.Error(err),
		)
		respondError(w, http.StatusInternalServerError, errInternal)
	}
}

func bookingOutcomeResponse(outcome *booking.Outcome) map[string]string {
	return map[string]string{"message": outcome.Message}
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		zap.L().Error("failed to encode JSON response", zap.Error(err))
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// maxBodyBytes caps JSON request bodies on the /api routes.
const maxBodyBytes = 64 << 10

// decodeJSONBody decodes a size-capped body into v and writes the error
// response itself when it returns false.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, http.StatusRequestEntityTooLarge, errBodyTooLarge)
			return false
		}
		respondError(w, http.StatusBadRequest, errInvalidBody)
		return false
	}
	return true
}
