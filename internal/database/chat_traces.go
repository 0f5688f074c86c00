package database

import (
	"database/sql"
	"fmt"
	"time"
)

const defaultTraceLimit = 50

// ChatTrace records one chat request and how it was handled.
type ChatTrace struct {
	ID        int64     `json:"id"`
	RequestID string    `json:"request_id"`
	Email     string    `json:"email"`
	Message   string    `json:"message"`
	Intent    string    `json:"intent"`
	Outcome   string    `json:"outcome"`
	Reply     string    `json:"reply"`
	Error     string    `json:"error,omitempty"`
	BookingID *int64    `json:"booking_id,omitempty"`
	StartUTC  string    `json:"start_utc,omitempty"`
	EndUTC    string    `json:"end_utc,omitempty"`
	LLMSource string    `json:"llm_source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateChatTrace stores a trace and sets its ID.
func (d *DB) CreateChatTrace(trace *ChatTrace) error {
	result, err := d.Exec(`
		INSERT INTO chat_traces (
			request_id, email, message, intent, outcome, reply, error,
			booking_id, start_utc, end_utc, llm_source
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		trace.RequestID,
		trace.Email,
		trace.Message,
		trace.Intent,
		trace.Outcome,
		trace.Reply,
		trace.Error,
		trace.BookingID,
		trace.StartUTC,
		trace.EndUTC,
		trace.LLMSource,
	)
	if err != nil {
		return fmt.Errorf("failed to create chat trace: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get chat trace id: %w", err)
	}
	trace.ID = id
	return nil
}

// ListChatTraces returns the most recent traces for email, newest first.
// A non-positive limit selects the default.
func (d *DB) ListChatTraces(email string, limit int) ([]ChatTrace, error) {
	if limit <= 0 {
		limit = defaultTraceLimit
	}

	rows, err := d.Query(`
		SELECT id, request_id, email, message, intent, outcome, reply, error,
			booking_id, start_utc, end_utc, llm_source, created_at
		FROM chat_traces
		WHERE email = ?
		ORDER BY id DESC
		LIMIT ?
	`, email, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query chat traces: %w", err)
	}
	defer rows.Close()

	traces := []ChatTrace{}
	for rows.Next() {
		var trace ChatTrace
		var bookingID sql.NullInt64
		if err := rows.Scan(
			&trace.ID,
			&trace.RequestID,
			&trace.Email,
			&trace.Message,
			&trace.Intent,
			&trace.Outcome,
			&trace.Reply,
			&trace.Error,
			&bookingID,
			&trace.StartUTC,
			&trace.EndUTC,
			&trace.LLMSource,
			&trace.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chat trace: %w", err)
		}
		if bookingID.Valid {
			trace.BookingID = &bookingID.Int64
		}
		traces = append(traces, trace)
	}

	return traces, rows.Err()
}

// GetChatTraceByRequestID returns the trace written for a request.
func (d *DB) GetChatTraceByRequestID(requestID string) (*ChatTrace, error) {
	var trace ChatTrace
	var bookingID sql.NullInt64
	err := d.QueryRow(`
		SELECT id, request_id, email, message, intent, outcome, reply, error,
			booking_id, start_utc, end_utc, llm_source, created_at
		FROM chat_traces
		WHERE request_id = ?
		ORDER BY id DESC
		LIMIT 1
	`, requestID).Scan(
		&trace.ID,
		&trace.RequestID,
		&trace.Email,
		&trace.Message,
		&trace.Intent,
		&trace.Outcome,
		&trace.Reply,
		&trace.Error,
		&bookingID,
		&trace.StartUTC,
		&trace.EndUTC,
		&trace.LLMSource,
		&trace.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get chat trace %s: %w", requestID, err)
	}
	if bookingID.Valid {
		trace.BookingID = &bookingID.Int64
	}
	return &trace, nil
}
