package tools

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/omriShneor/calbot/internal/agent"
)

func TestCreateBookingToolSchema(t *testing.T) {
	assert.Equal(t, "create_booking", CreateBookingTool.Name)
	assert.Equal(t, "object", CreateBookingTool.InputSchema["type"])
	assert.Equal(t, []string{"name", "date", "time", "title"}, CreateBookingTool.InputSchema["required"])

	props := CreateBookingTool.InputSchema["properties"].(map[string]any)
	for _, key := range []string{"name", "date", "time", "title", "description"} {
		assert.Contains(t, props, key)
	}

	_, hasRequired := FindBookingsTool.InputSchema["required"]
	assert.False(t, hasRequired)
}

func TestHandleCreateBooking(t *testing.T) {
	tests := []struct {
		name        string
		input       map[string]any
		expectError bool
		errContains string
		check       func(t *testing.T, args BookingArgs)
	}{
		{
			name: "all fields",
			input: map[string]any{
				"name":        "Ann Lee",
				"date":        "2024-03-01",
				"time":        "11 AM",
				"title":       "Intro",
				"description": "First chat",
			},
			check: func(t *testing.T, args BookingArgs) {
				assert.Equal(t, "Ann Lee", args.Name)
				assert.Equal(t, "11 AM", args.Time)
				require.NotNil(t, args.Description)
				assert.Equal(t, "First chat", *args.Description)
			},
		},
		{
			name: "description omitted",
			input: map[string]any{
				"name": "Ann", "date": "2024-03-01", "time": "11:00", "title": "Intro",
			},
			check: func(t *testing.T, args BookingArgs) {
				assert.Nil(t, args.Description)
			},
		},
		{
			name: "description null",
			input: map[string]any{
				"name": "Ann", "date": "2024-03-01", "time": "11:00", "title": "Intro", "description": nil,
			},
			check: func(t *testing.T, args BookingArgs) {
				assert.Nil(t, args.Description)
			},
		},
		{
			name:        "missing time",
			input:       map[string]any{"name": "Ann", "date": "2024-03-01", "title": "Intro"},
			expectError: true,
			errContains: "time is required",
		},
		{
			name:        "blank name",
			input:       map[string]any{"name": "  ", "date": "2024-03-01", "time": "11", "title": "Intro"},
			expectError: true,
			errContains: "name is required",
		},
		{
			name:        "non-string date",
			input:       map[string]any{"name": "Ann", "date": 20240301.0, "time": "11", "title": "Intro"},
			expectError: true,
			errContains: "date must be a string",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := HandleCreateBooking(context.Background(), tt.input)

			if tt.expectError {
				require.Error(t, err)
				assert.ErrorIs(t, err, agent.ErrInvalidArguments)
				assert.Contains(t, err.Error(), tt.errContains)
				return
			}

			require.NoError(t, err)
			var args BookingArgs
			require.NoError(t, json.Unmarshal([]byte(result), &args))
			tt.check(t, args)
		})
	}
}

func TestHandleFindBookings(t *testing.T) {
	result, err := HandleFindBookings(context.Background(), nil)
	require.NoError(t, err)
	assert.Contains(t, result, "lookup_requested")
}
