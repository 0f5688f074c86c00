package calcom

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// CreateBooking submits a new booking. A non-2xx response is returned as a
// *ProviderError carrying the raw body.
func (c *Client) CreateBooking(ctx context.Context, input CreateBookingInput) (*Booking, error) {
	if input.EventTypeID == 0 {
		input.EventTypeID = c.eventTypeID
	}
	if input.Metadata == nil {
		input.Metadata = map[string]any{}
	}

	status, body, err := c.do(ctx, "create_booking", http.MethodPost, "bookings", nil, input)
	if err != nil {
		return nil, err
	}
	if !isSuccess(status) {
		return nil, newProviderError("create_booking", status, body)
	}

	var created Booking
	if len(bytes.TrimSpace(body)) > 0 {
		if err := json.Unmarshal(body, &created); err != nil {
			return nil, &ProviderError{Op: "create_booking", StatusCode: status, Body: string(body), Err: fmt.Errorf("failed to unmarshal response: %w", err)}
		}
	}
	return &created, nil
}

// ListBookingReferences lists every booking reference visible to the API key.
func (c *Client) ListBookingReferences(ctx context.Context) ([]BookingReference, error) {
	var resp struct {
		BookingReferences []BookingReference `json:"booking_references"`
	}
	if err := c.getJSON(ctx, "booking_references", "booking-references", nil, &resp); err != nil {
		return nil, err
	}
	return resp.BookingReferences, nil
}

// GetBooking fetches a single booking by ID.
func (c *Client) GetBooking(ctx context.Context, id int) (*Booking, error) {
	var resp struct {
		Booking *Booking `json:"booking"`
	}
	if err := c.getJSON(ctx, "get_booking", fmt.Sprintf("bookings/%d", id), nil, &resp); err != nil {
		return nil, err
	}
	if resp.Booking == nil {
		return nil, &ProviderError{Op: "get_booking", StatusCode: http.StatusOK, Err: fmt.Errorf("response for booking %d has no booking", id)}
	}
	return resp.Booking, nil
}
