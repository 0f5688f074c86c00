package calcom

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrProviderUnavailable is matched by every failed Cal.com call: non-2xx
// responses and transport failures alike.
var ErrProviderUnavailable = errors.New("cal.com provider unavailable")

// ProviderError describes a failed Cal.com call.
type ProviderError struct {
	Op         string // slots, create_booking, booking_references, get_booking
	StatusCode int    // zero for transport failures
	Body       string
	Message    string // provider's message field, when the body carried one
	Err        error
}

func (e *ProviderError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode == 0:
		return fmt.Sprintf("cal.com %s request failed: %v", e.Op, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("cal.com %s invalid response (status %d): %v", e.Op, e.StatusCode, e.Err)
	case e.Message != "":
		return fmt.Sprintf("cal.com %s error (status %d): %s", e.Op, e.StatusCode, e.Message)
	default:
		return fmt.Sprintf("cal.com %s error (status %d): %s", e.Op, e.StatusCode, e.Body)
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func (e *ProviderError) Is(target error) bool {
	return target == ErrProviderUnavailable
}

// IsNotFound returns true when the provider answered 404.
func IsNotFound(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.StatusCode == 404
}

func newProviderError(op string, status int, body []byte) error {
	pe := &ProviderError{
		Op:         op,
		StatusCode: status,
		Body:       string(body),
	}

	var structured struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &structured); err == nil {
		pe.Message = structured.Message
		if pe.Message == "" {
			if s, ok := structured.Error.(string); ok {
				pe.Message = s
			}
		}
	}

	return pe
}
