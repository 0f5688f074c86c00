package testutil

import (
	"time"

	"github.com/omriShneor/calbot/internal/calcom"
	"github.com/omriShneor/calbot/internal/calcom/calcomtest"
	"github.com/omriShneor/calbot/internal/timeutil"
)

// BookingBuilder builds bookings stored in the fake Cal.com
type BookingBuilder struct {
	id          int
	title       string
	description string
	start       time.Time
	duration    time.Duration
	status      string
	attendees   []calcom.Attendee
}

// NewBookingBuilder creates a new booking builder with defaults
func NewBookingBuilder() *BookingBuilder {
	return &BookingBuilder{
		title:    "Test Booking",
		start:    time.Date(2024, 3, 1, 16, 0, 0, 0, time.UTC),
		duration: time.Hour,
		status:   "ACCEPTED",
	}
}

// WithID sets the booking ID; zero lets the fake assign one
func (b *BookingBuilder) WithID(id int) *BookingBuilder {
	b.id = id
	return b
}

// WithTitle sets the title
func (b *BookingBuilder) WithTitle(title string) *BookingBuilder {
	b.title = title
	return b
}

// WithDescription sets the description
func (b *BookingBuilder) WithDescription(desc string) *BookingBuilder {
	b.description = desc
	return b
}

// At sets the start instant
func (b *BookingBuilder) At(start time.Time) *BookingBuilder {
	b.start = start
	return b
}

// Pending marks the booking as pending
func (b *BookingBuilder) Pending() *BookingBuilder {
	b.status = "PENDING"
	return b
}

// WithAttendee adds an attendee
func (b *BookingBuilder) WithAttendee(name, email string) *BookingBuilder {
	b.attendees = append(b.attendees, calcom.Attendee{Name: name, Email: email})
	return b
}

// Build returns the booking without storing it
func (b *BookingBuilder) Build() calcom.Booking {
	return calcom.Booking{
		ID:          b.id,
		Title:       b.title,
		Description: b.description,
		StartTime:   timeutil.FormatWire(b.start),
		EndTime:     timeutil.FormatWire(b.start.Add(b.duration)),
		Status:      b.status,
		Attendees:   append([]calcom.Attendee{}, b.attendees...),
	}
}

// Add stores the booking and a reference to it in the fake
func (b *BookingBuilder) Add(fake *calcomtest.Server) calcom.Booking {
	booking := b.Build()
	fake.AddBooking(booking)
	return booking
}
