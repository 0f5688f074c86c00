package calcom

import (
	"context"
	"net/url"
)

// GetSlots lists open slots for the configured event type within [startTime, endTime).
func (c *Client) GetSlots(ctx context.Context, startTime, endTime string) (*SlotsResponse, error) {
	params := url.Values{}
	params.Set("eventTypeId", itoa(c.eventTypeID))
	params.Set("startTime", startTime)
	params.Set("endTime", endTime)

	var resp SlotsResponse
	if err := c.getJSON(ctx, "slots", "slots", params, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IsSlotAvailable reports whether the provider offers exactly one slot in the
// window. Zero or several slots both count as unavailable; a failed call is
// returned as an error, never as false.
func (c *Client) IsSlotAvailable(ctx context.Context, startTime, endTime string) (bool, error) {
	resp, err := c.GetSlots(ctx, startTime, endTime)
	if err != nil {
		return false, err
	}
	return resp.TotalSlots() == 1, nil
}
