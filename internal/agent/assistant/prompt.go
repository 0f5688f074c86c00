package assistant

import (
	"fmt"
	"time"
)

// SystemPrompt is the base system prompt for the booking assistant
const SystemPrompt = "You are a helpful assistant managing calendar bookings via Cal.com."

const toolGuidance = `

Use create_booking when the user wants to book a meeting and find_bookings when they want to see their bookings.
Only call create_booking when the user gave a name, a date, a time and a title; otherwise ask for what is missing.
Dates must be YYYY-MM-DD. Times are US Eastern and may be written like "11:00 AM", "11 AM", "14:30" or "14".`

// buildSystemPrompt appends tool guidance and today's date in the booking zone.
func buildSystemPrompt(now time.Time, loc *time.Location) string {
	local := now.In(loc)
	return SystemPrompt + toolGuidance + fmt.Sprintf(
		"\n\nToday is %s (%s).",
		local.Format("Monday, 2006-01-02"),
		loc.String(),
	)
}
