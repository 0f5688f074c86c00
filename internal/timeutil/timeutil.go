package timeutil

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // zone rules must not depend on the host image
)

const (
	// DefaultTimezone is the zone naive booking times are expressed in.
	DefaultTimezone = "America/New_York"

	// DefaultDurationMinutes is the length of every booking.
	DefaultDurationMinutes = 60

	// WireLayout is the UTC timestamp format exchanged with Cal.com.
	WireLayout = "2006-01-02T15:04:05.000Z"

	dateLayout = "2006-01-02"
)

// ErrTimeFormat is matched by every error returned for unparseable time text.
var ErrTimeFormat = errors.New("time format not recognized")

// TimeFormatError reports a time string that matched none of the accepted shapes.
type TimeFormatError struct {
	Text string
	Err  error // last underlying parse failure
}

func (e *TimeFormatError) Error() string {
	return fmt.Sprintf("time string %q does not match any expected formats: %v", e.Text, e.Err)
}

func (e *TimeFormatError) Unwrap() error {
	return e.Err
}

func (e *TimeFormatError) Is(target error) bool {
	return target == ErrTimeFormat
}

// parseRule tries one time shape. ok is false when the text is not in that shape.
type parseRule struct {
	name  string
	parse func(value string) (t time.Time, ok bool, err error)
}

// rules are tried in priority order; the first successful parse wins.
var rules = []parseRule{
	{name: "H:MM AM/PM", parse: layoutRule(dateLayout+" 3:04 PM", true)},
	{name: "H AM/PM", parse: layoutRule(dateLayout+" 3 PM", true)},
	{name: "HH:MM", parse: layoutRule(dateLayout+" 15:04", false)},
	{name: "HH", parse: layoutRule(dateLayout+" 15", false)},
}

func layoutRule(layout string, twelveHour bool) func(string) (time.Time, bool, error) {
	return func(value string) (time.Time, bool, error) {
		// Meridiem is case-insensitive; digits and separators are unaffected.
		t, err := time.Parse(layout, padMinute(strings.ToUpper(value)))
		if err != nil {
			return time.Time{}, false, err
		}
		if twelveHour && clockHourToken(value) == 0 {
			return time.Time{}, false, fmt.Errorf("parsing time %q: hour out of range", value)
		}
		return t, true, nil
	}
}

// padMinute zero-pads a single minute digit ("11:5 PM" -> "11:05 PM"),
// since the 04 layout only takes two digits.
func padMinute(value string) string {
	idx := strings.LastIndexByte(value, ':')
	if idx < 0 || idx+1 >= len(value) || !isDigit(value[idx+1]) {
		return value
	}
	if idx+2 < len(value) && isDigit(value[idx+2]) {
		return value
	}
	return value[:idx+1] + "0" + value[idx+1:]
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

// clockHourToken returns the hour digits following the date, or -1.
func clockHourToken(value string) int {
	idx := strings.IndexByte(value, ' ')
	if idx < 0 {
		return -1
	}
	rest := value[idx+1:]
	end := 0
	for end < len(rest) && rest[end] >= '0' && rest[end] <= '9' {
		end++
	}
	h, err := strconv.Atoi(rest[:end])
	if err != nil {
		return -1
	}
	return h
}

// ParseFlexible combines a YYYY-MM-DD date with a loosely formatted time.
// Accepted time shapes, in priority order: "11:00 AM", "11 AM", "11:00", "11".
// The result is a naive wall-clock time; its location carries no meaning.
func ParseFlexible(date, timeText string) (time.Time, error) {
	value := date + " " + timeText

	var lastErr error
	for _, rule := range rules {
		t, ok, err := rule.parse(value)
		if ok {
			return t, nil
		}
		lastErr = err
	}

	return time.Time{}, &TimeFormatError{Text: timeText, Err: lastErr}
}

// AddMinutes advances a naive wall-clock time without consulting any zone.
func AddMinutes(naive time.Time, minutes int) time.Time {
	return naive.Add(time.Duration(minutes) * time.Minute)
}

// Interval is a resolved booking window.
type Interval struct {
	Start time.Time
	End   time.Time
}

// StartWire returns the start as a wire timestamp.
func (i Interval) StartWire() string {
	return FormatWire(i.Start)
}

// EndWire returns the end as a wire timestamp.
func (i Interval) EndWire() string {
	return FormatWire(i.End)
}

// FormatWire formats an instant as YYYY-MM-DDTHH:MM:SS.000Z in UTC.
func FormatWire(t time.Time) string {
	return t.UTC().Format(WireLayout)
}

// Normalizer anchors naive wall-clock times to a fixed source zone.
type Normalizer struct {
	loc *time.Location
}

// NewNormalizer loads the given IANA zone. An empty name selects DefaultTimezone.
func NewNormalizer(timezone string) (*Normalizer, error) {
	if timezone == "" {
		timezone = DefaultTimezone
	}
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", timezone, err)
	}
	return &Normalizer{loc: loc}, nil
}

// MustNormalizer is NewNormalizer that panics on an unknown zone.
func MustNormalizer(timezone string) *Normalizer {
	n, err := NewNormalizer(timezone)
	if err != nil {
		panic(err)
	}
	return n
}

// Location returns the source zone.
func (n *Normalizer) Location() *time.Location {
	return n.loc
}

// Anchor interprets the wall-clock fields of naive in the source zone.
// Ambiguous times (fall back) take the earlier offset. Times inside a
// spring-forward gap keep the offset in effect before the transition.
func (n *Normalizer) Anchor(naive time.Time) time.Time {
	t := time.Date(naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), 0, n.loc)
	if t.Hour() == naive.Hour() && t.Minute() == naive.Minute() {
		return t
	}

	wall := time.Date(naive.Year(), naive.Month(), naive.Day(),
		naive.Hour(), naive.Minute(), naive.Second(), 0, time.UTC)
	_, offset := wall.Add(-24 * time.Hour).In(n.loc).Zone()
	return wall.Add(-time.Duration(offset) * time.Second).In(n.loc)
}

// ToUTC anchors naive in the source zone and converts it to UTC.
func (n *Normalizer) ToUTC(naive time.Time) time.Time {
	return n.Anchor(naive).UTC()
}

// ToUTCWire anchors naive in the source zone and formats it as a wire timestamp.
func (n *Normalizer) ToUTCWire(naive time.Time) string {
	return FormatWire(n.ToUTC(naive))
}

// Resolve parses date and time text and derives the booking window.
// The end is computed on the naive wall clock before zone conversion, so a
// window crossing a DST transition spans durationMinutes of wall-clock time.
func (n *Normalizer) Resolve(date, timeText string, durationMinutes int) (Interval, error) {
	start, err := ParseFlexible(date, timeText)
	if err != nil {
		return Interval{}, err
	}
	if durationMinutes <= 0 {
		durationMinutes = DefaultDurationMinutes
	}
	end := AddMinutes(start, durationMinutes)

	return Interval{
		Start: n.ToUTC(start),
		End:   n.ToUTC(end),
	}, nil
}
