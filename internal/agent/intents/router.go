package intents

import (
	"strings"
)

// Intent names produced by routing.
const (
	IntentCreateBooking = "create_booking"
	IntentFindBookings  = "find_bookings"
	IntentNone          = "none"
)

// RoutedIntent is the router decision for a chat message.
type RoutedIntent struct {
	Intent     string
	Confidence float64
	Reasoning  string
}

// KeywordRouter is a lightweight deterministic intent router used when no
// language model is configured.
type KeywordRouter struct{}

func NewKeywordRouter() *KeywordRouter {
	return &KeywordRouter{}
}

// Route classifies a single chat message.
func (r *KeywordRouter) Route(text string) RoutedIntent {
	normalized := strings.ToLower(strings.TrimSpace(text))
	if normalized == "" {
		return RoutedIntent{Intent: IntentNone, Confidence: 1, Reasoning: "empty input"}
	}

	lookupHints := []string{
		"my bookings", "my meetings", "my appointments", "what have i booked",
		"list bookings", "show bookings", "find bookings", "upcoming bookings",
		"do i have", "what's booked", "whats booked",
	}
	createHints := []string{
		"book", "schedule", "set up a meeting", "set up a call", "appointment",
		"reserve", "meeting with", "call with",
	}

	hasLookup := containsAny(normalized, lookupHints)
	hasCreate := containsAny(normalized, createHints)

	switch {
	case hasLookup:
		return RoutedIntent{Intent: IntentFindBookings, Confidence: 0.75, Reasoning: "contains lookup cues"}
	case hasCreate:
		return RoutedIntent{Intent: IntentCreateBooking, Confidence: 0.6, Reasoning: "contains booking cues"}
	default:
		return RoutedIntent{Intent: IntentNone, Confidence: 0.8, Reasoning: "no booking cues"}
	}
}

func containsAny(text string, values []string) bool {
	for _, v := range values {
		if strings.Contains(text, v) {
			return true
		}
	}
	return false
}
