package server

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/omriShneor/calbot/internal/agent/assistant"
	"github.com/omriShneor/calbot/internal/booking"
	"github.com/omriShneor/calbot/internal/database"
	"github.com/omriShneor/calbot/internal/notify"
)

const (
	replyCouldNotParse = "Could not parse arguments."
	replyFallback      = "Sorry, some internal error occured."
	errAssistant       = "assistant unavailable"

	outcomeReplied      = "replied"
	outcomeBadArguments = "bad_arguments"
	outcomeFound        = "found"
	outcomeFailed       = "failed"
)

type chatRequest struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}

// chatResponse's Reply is a string, a {"message": ...} object or a list
// of bookings depending on the intent.
type chatResponse struct {
	Reply interface{} `json:"reply"`
}

// Chat API

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if !decodeJSONBody(w, r, &req) {
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || strings.TrimSpace(req.Message) == "" {
		respondError(w, http.StatusBadRequest, errEmailAndMessageRequired)
		return
	}

	trace := &database.ChatTrace{
		RequestID: requestIDFromContext(r.Context()),
		Email:     req.Email,
		Message:   req.Message,
		Intent:    string(assistant.IntentNone),
	}
	defer s.recordTrace(trace)

	intent, err := s.assistant.Interpret(r.Context(), req.Message)
	if err != nil {
		trace.Error = err.Error()
		if errors.Is(err, assistant.ErrInvalidArguments) {
			trace.Intent = string(assistant.IntentCreateBooking)
			trace.Outcome = outcomeBadArguments
			trace.Reply = replyCouldNotParse
			respondJSON(w, http.StatusOK, chatResponse{Reply: replyCouldNotParse})
			return
		}
		trace.Outcome = outcomeFailed
		s.logger.Error("assistant failed",
			zap.String("request_id", trace.RequestID),
			zap.Error(err),
		)
		respondError(w, http.StatusBadGateway, errAssistant)
		return
	}

	trace.Intent = string(intent.Kind)
	trace.LLMSource = intent.Source

	switch intent.Kind {
	case assistant.IntentCreateBooking:
		s.chatCreateBooking(w, r, intent, req.Email, trace)
	case assistant.IntentFindBookings:
		bookings, err := s.bookings.FindBookings(r.Context(), req.Email)
		if err != nil {
			trace.Outcome = outcomeFailed
			trace.Error = err.Error()
			s.respondBookingError(w, r, err)
			return
		}
		trace.Outcome = outcomeFound
		trace.Reply = strconv.Itoa(len(bookings)) + " bookings"
		respondJSON(w, http.StatusOK, chatResponse{Reply: bookings})
	default:
		reply := intent.Reply
		if strings.TrimSpace(reply) == "" {
			reply = replyFallback
		}
		trace.Outcome = outcomeReplied
		trace.Reply = reply
		respondJSON(w, http.StatusOK, chatResponse{Reply: reply})
	}
}

func (s *Server) chatCreateBooking(w http.ResponseWriter, r *http.Request, intent *assistant.Intent, email string, trace *database.ChatTrace) {
	args := intent.Booking
	req := booking.BookingRequest{
		Name:        args.Name,
		Email:       email,
		Date:        args.Date,
		Time:        args.Time,
		Title:       args.Title,
		Description: args.Description,
	}

	outcome, err := s.createBooking(r, req)
	if err != nil {
		trace.Outcome = outcomeFailed
		trace.Error = err.Error()
		s.respondBookingError(w, r, err)
		return
	}

	trace.Outcome = string(outcome.Kind)
	trace.Reply = outcome.Message
	trace.StartUTC = outcome.Interval.StartWire()
	trace.EndUTC = outcome.Interval.EndWire()
	if outcome.Booking != nil {
		id := int64(outcome.Booking.ID)
		trace.BookingID = &id
	}
	if outcome.CreateErr != nil {
		trace.Error = outcome.CreateErr.Error()
	}

	respondJSON(w, http.StatusOK, chatResponse{Reply: bookingOutcomeResponse(outcome)})
}

func (s *Server) handleListChatTraces(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		respondError(w, http.StatusBadRequest, errEmailRequired)
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	traces, err := s.db.ListChatTraces(email, limit)
	if err != nil {
		s.logger.Error("failed to list chat traces", zap.Error(err))
		respondError(w, http.StatusInternalServerError, errInternal)
		return
	}

	respondJSON(w, http.StatusOK, traces)
}

// recordTrace stores the trace; failures are logged only.
func (s *Server) recordTrace(trace *database.ChatTrace) {
	if err := s.db.CreateChatTrace(trace); err != nil {
		s.logger.Error("failed to record chat trace",
			zap.String("request_id", trace.RequestID),
			zap.Error(err),
		)
	}
}

func confirmationFor(req booking.BookingRequest, outcome *booking.Outcome, loc *time.Location) *notify.Confirmation {
	description := ""
	if req.Description != nil {
		description = *req.Description
	}
	return &notify.Confirmation{
		BookingID:   outcome.Booking.ID,
		Name:        req.Name,
		Title:       req.Title,
		Description: description,
		Start:       outcome.Interval.Start,
		End:         outcome.Interval.End,
		Location:    loc,
	}
}
