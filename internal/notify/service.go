package notify

import (
	"context"

	"go.uber.org/zap"
)

// Service sends booking confirmations. Errors are logged, never returned.
type Service struct {
	emailNotifier Notifier
	logger        *zap.Logger
}

// NewService creates a notification service. emailNotifier may be nil.
func NewService(emailNotifier Notifier, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		emailNotifier: emailNotifier,
		logger:        logger.Named("notify"),
	}
}

// NotifyBookingCreated emails the invitee about a new booking.
func (s *Service) NotifyBookingCreated(ctx context.Context, confirmation *Confirmation, recipient string) {
	if !s.IsEmailAvailable() {
		s.logger.Debug("email not configured, skipping confirmation",
			zap.Int("booking_id", confirmation.BookingID))
		return
	}
	if recipient == "" {
		s.logger.Warn("no recipient for confirmation", zap.Int("booking_id", confirmation.BookingID))
		return
	}

	if err := s.emailNotifier.Send(ctx, confirmation, recipient); err != nil {
		s.logger.Error("confirmation email failed",
			zap.String("notifier", s.emailNotifier.Name()),
			zap.Int("booking_id", confirmation.BookingID),
			zap.Error(err),
		)
		return
	}
	s.logger.Info("confirmation email sent",
		zap.String("notifier", s.emailNotifier.Name()),
		zap.Int("booking_id", confirmation.BookingID),
	)
}

// IsEmailAvailable returns true if email notifications can be used
func (s *Service) IsEmailAvailable() bool {
	return s.emailNotifier != nil && s.emailNotifier.IsConfigured()
}
