package notify

import (
	"context"
	"fmt"
	"html"
	"time"

	"github.com/resend/resend-go/v2"
)

// ResendNotifier sends email confirmations via Resend API
type ResendNotifier struct {
	client      *resend.Client
	fromAddress string
}

// NewResendNotifier creates a new Resend email notifier.
// Returns nil when apiKey is empty.
func NewResendNotifier(apiKey, from string) *ResendNotifier {
	if apiKey == "" {
		return nil
	}
	return &ResendNotifier{
		client:      resend.NewClient(apiKey),
		fromAddress: from,
	}
}

// IsConfigured returns true if the notifier has server-side config
func (r *ResendNotifier) IsConfigured() bool {
	return r != nil && r.client != nil && r.fromAddress != ""
}

// Send emails a booking confirmation to the recipient
func (r *ResendNotifier) Send(ctx context.Context, confirmation *Confirmation, recipient string) error {
	if recipient == "" {
		return fmt.Errorf("no recipient specified")
	}

	params := &resend.SendEmailRequest{
		From:    r.fromAddress,
		To:      []string{recipient},
		Subject: fmt.Sprintf("Booking confirmed: %s", confirmation.Title),
		Html:    formatEmailHTML(confirmation),
	}

	if _, err := r.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend send failed: %w", err)
	}
	return nil
}

// Name returns the notifier name
func (r *ResendNotifier) Name() string {
	return "resend"
}

// formatEmailHTML creates the HTML email body
func formatEmailHTML(c *Confirmation) string {
	loc := c.Location
	if loc == nil {
		loc = time.UTC
	}
	start := c.Start.In(loc)
	end := c.End.In(loc)

	whenStr := start.Format("Monday, January 2, 2006 at 3:04 PM")
	if start.Format("2006-01-02") == end.Format("2006-01-02") {
		whenStr += " - " + end.Format("3:04 PM MST")
	} else {
		whenStr += " - " + end.Format("Monday, January 2, 2006 at 3:04 PM MST")
	}

	descriptionHTML := ""
	if c.Description != "" {
		descriptionHTML = fmt.Sprintf(`<p style="margin: 16px 0;">%s</p>`, html.EscapeString(c.Description))
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html>
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, 'Helvetica Neue', Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px; background-color: #f5f5f5;">
  <div style="background-color: white; border-radius: 8px; padding: 24px; box-shadow: 0 2px 4px rgba(0,0,0,0.1);">
    <p style="margin: 0 0 16px 0; color: #333;">Hi %s, your booking is confirmed.</p>

    <h2 style="margin: 0 0 16px 0; color: #333;">%s</h2>

    <div style="background: #f8f9fa; padding: 16px; border-radius: 8px; margin: 16px 0; border-left: 4px solid #28a745;">
      <p style="margin: 8px 0;"><strong>When:</strong> %s</p>
      <p style="margin: 8px 0;"><strong>Booking:</strong> #%d</p>
    </div>

    %s

    <hr style="margin-top: 32px; border: none; border-top: 1px solid #eee;">
    <p style="color: #999; font-size: 12px; margin-top: 16px;">
      Calbot - Cal.com Booking Assistant
    </p>
  </div>
</body>
</html>`,
		html.EscapeString(c.Name),
		html.EscapeString(c.Title),
		whenStr,
		c.BookingID,
		descriptionHTML,
	)
}
