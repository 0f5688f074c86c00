package notify

import (
	"context"
	"time"
)

// Confirmation describes a booking that was just created.
type Confirmation struct {
	BookingID   int
	Name        string
	Title       string
	Description string
	Start       time.Time
	End         time.Time
	Location    *time.Location // zone the times are shown in
}

// Notifier sends booking confirmations to a specific recipient
type Notifier interface {
	// Send sends a confirmation to the specified recipient
	Send(ctx context.Context, confirmation *Confirmation, recipient string) error
	// Name returns the notifier type name (for logging)
	Name() string
	// IsConfigured returns true if the notifier has server-side config
	IsConfigured() bool
}
