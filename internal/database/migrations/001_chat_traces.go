package migrations

import "database/sql"

func init() {
	Register(Migration{
		Version: 1,
		Name:    "chat_traces",
		Up:      createChatTraces,
	})
}

func createChatTraces(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS chat_traces (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			request_id TEXT NOT NULL,
			email TEXT NOT NULL,
			message TEXT NOT NULL,
			intent TEXT NOT NULL DEFAULT 'none',
			outcome TEXT NOT NULL DEFAULT '',
			reply TEXT NOT NULL DEFAULT '',
			error TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		CREATE INDEX IF NOT EXISTS idx_chat_traces_email ON chat_traces(email, id);
	`)
	return err
}
