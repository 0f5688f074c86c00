package calcom

// Slot is one candidate start time reported by the slots endpoint.
type Slot struct {
	Time string `json:"time"`
}

// SlotsResponse groups slots by an arbitrary key (usually the day).
type SlotsResponse struct {
	Slots map[string][]Slot `json:"slots"`
}

// TotalSlots counts slots across every group.
func (r SlotsResponse) TotalSlots() int {
	total := 0
	for _, slots := range r.Slots {
		total += len(slots)
	}
	return total
}

// Location is the meeting location option sent with a booking.
type Location struct {
	Value       string `json:"value"`
	OptionValue string `json:"optionValue"`
}

// Responses carries the booking form answers.
type Responses struct {
	Name              string   `json:"name"`
	Email             string   `json:"email"`
	Notes             string   `json:"notes"`
	SMSReminderNumber string   `json:"smsReminderNumber"`
	Location          Location `json:"location"`
}

// CreateBookingInput is the POST /bookings body.
type CreateBookingInput struct {
	EventTypeID int            `json:"eventTypeId"`
	Start       string         `json:"start"`
	End         string         `json:"end"`
	Responses   Responses      `json:"responses"`
	TimeZone    string         `json:"timeZone"`
	Language    string         `json:"language"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Status      string         `json:"status"`
	Metadata    map[string]any `json:"metadata"`
}

// Attendee is a booking participant.
type Attendee struct {
	ID       int    `json:"id,omitempty"`
	Email    string `json:"email"`
	Name     string `json:"name"`
	TimeZone string `json:"timeZone,omitempty"`
	Locale   string `json:"locale,omitempty"`
}

// Booking is a Cal.com booking as returned by GET /bookings/{id}.
type Booking struct {
	ID          int            `json:"id"`
	UID         string         `json:"uid,omitempty"`
	UserID      int            `json:"userId,omitempty"`
	EventTypeID int            `json:"eventTypeId,omitempty"`
	Title       string         `json:"title"`
	Description string         `json:"description,omitempty"`
	StartTime   string         `json:"startTime"`
	EndTime     string         `json:"endTime"`
	Status      string         `json:"status,omitempty"`
	Location    string         `json:"location,omitempty"`
	Attendees   []Attendee     `json:"attendees"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// HasAttendee reports whether any attendee email equals email exactly.
func (b *Booking) HasAttendee(email string) bool {
	for _, a := range b.Attendees {
		if a.Email == email {
			return true
		}
	}
	return false
}

// BookingReference links an external calendar entry to a booking.
type BookingReference struct {
	ID         int    `json:"id,omitempty"`
	Type       string `json:"type,omitempty"`
	UID        string `json:"uid,omitempty"`
	MeetingID  string `json:"meetingId,omitempty"`
	BookingID  int    `json:"bookingId"`
	ExternalID string `json:"externalCalendarId,omitempty"`
}
