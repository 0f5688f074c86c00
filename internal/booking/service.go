// Package booking resolves booking requests into provider calls: it parses
// and normalizes the requested time, checks availability and creates the
// booking, and looks up the bookings an attendee belongs to.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/omriShneor/calbot/internal/calcom"
	"github.com/omriShneor/calbot/internal/timeutil"
)

const (
	// MessageCreated is reported when a booking was submitted.
	MessageCreated = "Booking successfully created"

	// MessageNoSlot is reported when the requested window is not bookable.
	MessageNoSlot = "No available slot for the requested time."

	defaultNotes    = "Sample notes"
	defaultLocation = "Google Meet"
	defaultLanguage = "en"
	statusPending   = "PENDING"
)

// ErrInvalidRequest is returned by BookingRequest.Validate.
var ErrInvalidRequest = errors.New("invalid booking request")

// Provider is the subset of the Cal.com API the service depends on.
type Provider interface {
	IsSlotAvailable(ctx context.Context, startTime, endTime string) (bool, error)
	CreateBooking(ctx context.Context, input calcom.CreateBookingInput) (*calcom.Booking, error)
	ListBookingReferences(ctx context.Context) ([]calcom.BookingReference, error)
	GetBooking(ctx context.Context, id int) (*calcom.Booking, error)
}

// BookingRequest is a structured request to book a single invitee.
type BookingRequest struct {
	Name        string  `json:"name"`
	Email       string  `json:"email"`
	Date        string  `json:"date"` // YYYY-MM-DD
	Time        string  `json:"time"` // "11:00 AM", "11 AM", "11:00" or "11"
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// Validate checks that every required field is present.
func (r BookingRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(r.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(r.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(r.Time) == "" {
		missing = append(missing, "time")
	}
	if strings.TrimSpace(r.Title) == "" {
		missing = append(missing, "title")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// OutcomeKind classifies a booking attempt.
type OutcomeKind string

const (
	OutcomeCreated         OutcomeKind = "created"
	OutcomeNoSlotAvailable OutcomeKind = "no_slot_available"
)

// Outcome is the result of CreateBooking.
type Outcome struct {
	Kind     OutcomeKind
	Message  string
	Interval timeutil.Interval
	// Booking is the provider's record; nil when nothing was created or the
	// creation error was swallowed.
	Booking *calcom.Booking
	// CreateErr holds the swallowed creation error in lenient mode.
	CreateErr error
}

// Created reports whether the outcome is OutcomeCreated.
func (o *Outcome) Created() bool {
	return o.Kind == OutcomeCreated
}

// Config configures a Service.
type Config struct {
	EventTypeID int
	// StrictCreate propagates booking creation errors. When false, the error
	// is logged and the outcome is still reported as created.
	StrictCreate bool
}

// Service orchestrates booking creation and lookup against a Provider.
// It holds no state between calls.
type Service struct {
	provider   Provider
	normalizer *timeutil.Normalizer
	cfg        Config
	logger     *zap.Logger
}

// NewService creates a booking service. A nil logger disables logging.
func NewService(provider Provider, cfg Config, logger *zap.Logger) (*Service, error) {
	if provider == nil {
		return nil, errors.New("booking provider is required")
	}
	normalizer, err := timeutil.NewNormalizer(timeutil.DefaultTimezone)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		provider:   provider,
		normalizer: normalizer,
		cfg:        cfg,
		logger:     logger.Named("booking"),
	}, nil
}

// Resolve returns the UTC window a request would be booked into. Times are
// always read in America/New_York and windows are always one hour.
func (s *Service) Resolve(req BookingRequest) (timeutil.Interval, error) {
	return s.normalizer.Resolve(req.Date, req.Time, timeutil.DefaultDurationMinutes)
}

// CreateBooking books req if the provider reports the window as available.
// Time format errors and failed availability checks are returned as errors;
// an unavailable window is a NoSlotAvailable outcome.
func (s *Service) CreateBooking(ctx context.Context, req BookingRequest) (*Outcome, error) {
	interval, err := s.Resolve(req)
	if err != nil {
		return nil, err
	}
	start, end := interval.StartWire(), interval.EndWire()

	available, err := s.provider.IsSlotAvailable(ctx, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to check availability: %w", err)
	}

	s.logger.Debug("slot availability checked",
		zap.String("start", start),
		zap.String("end", end),
		zap.Bool("available", available),
	)

	if !available {
		return &Outcome{
			Kind:     OutcomeNoSlotAvailable,
			Message:  MessageNoSlot,
			Interval: interval,
		}, nil
	}

	description := ""
	if req.Description != nil {
		description = *req.Description
	}

	input := calcom.CreateBookingInput{
		EventTypeID: s.cfg.EventTypeID,
		Start:       start,
		End:         end,
		Responses: calcom.Responses{
			Name:              req.Name,
			Email:             req.Email,
			Notes:             defaultNotes,
			SMSReminderNumber: "",
			Location: calcom.Location{
				Value:       defaultLocation,
				OptionValue: "",
			},
		},
		TimeZone:    timeutil.DefaultTimezone,
		Language:    defaultLanguage,
		Title:       req.Title,
		Description: description,
		Status:      statusPending,
		Metadata:    map[string]any{},
	}

	outcome := &Outcome{
		Kind:     OutcomeCreated,
		Message:  MessageCreated,
		Interval: interval,
	}

	created, err := s.provider.CreateBooking(ctx, input)
	if err != nil {
		if s.cfg.StrictCreate {
			return nil, fmt.Errorf("failed to create booking: %w", err)
		}
		s.logger.Error("booking creation failed, reporting success",
			zap.String("start", start),
			zap.String("email", req.Email),
			zap.Error(err),
		)
		outcome.CreateErr = err
		return outcome, nil
	}

	outcome.Booking = created
	s.logger.Info("booking created",
		zap.Int("booking_id", created.ID),
		zap.String("start", start),
		zap.String("email", req.Email),
	)
	return outcome, nil
}

// FindBookings returns the bookings with an attendee whose email equals
// email exactly, in provider reference order. Lookups of individual bookings
// that fail are skipped.
func (s *Service) FindBookings(ctx context.Context, email string) ([]calcom.Booking, error) {
	refs, err := s.provider.ListBookingReferences(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list booking references: %w", err)
	}

	bookings := []calcom.Booking{}
	seen := make(map[int]bool)
	for _, ref := range refs {
		if ref.BookingID == 0 || seen[ref.BookingID] {
			continue
		}
		seen[ref.BookingID] = true

		booking, err := s.provider.GetBooking(ctx, ref.BookingID)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			s.logger.Warn("skipping booking",
				zap.Int("booking_id", ref.BookingID),
				zap.Error(err),
			)
			continue
		}

		if booking.HasAttendee(email) {
			bookings = append(bookings, *booking)
		}
	}

	return bookings, nil
}
