package migrations

import "database/sql"

func init() {
	Register(Migration{
		Version: 2,
		Name:    "chat_trace_booking_audit",
		Up:      chatTraceBookingAudit,
	})
}

// Records which provider booking and window a create request resolved to.
func chatTraceBookingAudit(db *sql.DB) error {
	if err := AddColumnIfNotExists(db, "chat_traces", "booking_id", "INTEGER"); err != nil {
		return err
	}
	if err := AddColumnIfNotExists(db, "chat_traces", "start_utc", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	if err := AddColumnIfNotExists(db, "chat_traces", "end_utc", "TEXT NOT NULL DEFAULT ''"); err != nil {
		return err
	}
	return AddColumnIfNotExists(db, "chat_traces", "llm_source", "TEXT NOT NULL DEFAULT ''")
}
