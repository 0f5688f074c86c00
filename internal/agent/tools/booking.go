package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/omriShneor/calbot/internal/agent"
)

const (
	CreateBookingToolName = "create_booking"
	FindBookingsToolName  = "find_bookings"
)

// CreateBookingTool asks the model for the fields of a new booking
var CreateBookingTool = agent.Tool{
	Name: CreateBookingToolName,
	Description: `Create a booking for the user on their Cal.com calendar.
Call this when the user asks to book, schedule or set up a meeting.
Use the current date in the system prompt to resolve relative dates like "tomorrow".
Times are in US Eastern time.`,
	InputSchema: agent.BuildJSONSchema("object", map[string]any{
		"name":        agent.PropertyString("Name of the person the booking is for"),
		"date":        agent.PropertyString("Booking date in YYYY-MM-DD format"),
		"time":        agent.PropertyString("Booking start time, e.g. \"11:00 AM\", \"11 AM\", \"14:30\" or \"14\""),
		"title":       agent.PropertyString("Short title of the booking"),
		"description": agent.PropertyString("Optional description of the booking"),
	}, []string{"name", "date", "time", "title"}),
}

// FindBookingsTool lists the user's existing bookings
var FindBookingsTool = agent.Tool{
	Name: FindBookingsToolName,
	Description: `Find the user's existing bookings.
Call this when the user asks what they have booked or wants to see their bookings.
The user is identified by their email; it takes no arguments.`,
	InputSchema: agent.BuildJSONSchema("object", map[string]any{}, nil),
}

// BookingArgs are the validated create_booking arguments
type BookingArgs struct {
	Name        string  `json:"name"`
	Date        string  `json:"date"`
	Time        string  `json:"time"`
	Title       string  `json:"title"`
	Description *string `json:"description,omitempty"`
}

// ParseBookingArgs validates create_booking input
func ParseBookingArgs(input map[string]any) (*BookingArgs, error) {
	args := &BookingArgs{}
	var err error

	if args.Name, err = agent.RequiredString(input, "name"); err != nil {
		return nil, err
	}
	if args.Date, err = agent.RequiredString(input, "date"); err != nil {
		return nil, err
	}
	if args.Time, err = agent.RequiredString(input, "time"); err != nil {
		return nil, err
	}
	if args.Title, err = agent.RequiredString(input, "title"); err != nil {
		return nil, err
	}
	if args.Description, err = agent.OptionalString(input, "description"); err != nil {
		return nil, err
	}

	return args, nil
}

// HandleCreateBooking validates the arguments and echoes them back. The
// booking itself is made by the caller once the intent is known.
func HandleCreateBooking(_ context.Context, input map[string]any) (string, error) {
	args, err := ParseBookingArgs(input)
	if err != nil {
		return "", err
	}

	result, err := json.Marshal(args)
	if err != nil {
		return "", fmt.Errorf("failed to marshal booking arguments: %w", err)
	}
	return string(result), nil
}

// HandleFindBookings acknowledges a lookup request
func HandleFindBookings(_ context.Context, _ map[string]any) (string, error) {
	return `{"status":"lookup_requested"}`, nil
}
