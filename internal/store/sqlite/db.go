package sqlite

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// Open opens a SQLite database with the given DSN.
func Open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}
	if _, err := db.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}
	return db, nil
}

// Migrate runs a simple, idempotent set of CREATE TABLE / CREATE INDEX
// statements covering the conversation engine schema.
func Migrate(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			email VARCHAR(100) UNIQUE,
			full_name VARCHAR(100) NOT NULL DEFAULT '',
			avatar_url TEXT,
			is_email_verified BOOLEAN NOT NULL DEFAULT 0,
			is_enabled BOOLEAN NOT NULL DEFAULT 1,
			is_account_locked BOOLEAN NOT NULL DEFAULT 0,
			is_credentials_expired BOOLEAN NOT NULL DEFAULT 0,
			is_online BOOLEAN NOT NULL DEFAULT 0,
			last_online_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);`,
		`CREATE TABLE IF NOT EXISTS refresh_tokens (
			id INTEGER PRIMARY KEY,
			user_id INTEGER NOT NULL,
			token TEXT NOT NULL,
			revoked BOOLEAN NOT NULL DEFAULT 0,
			expires_at DATETIME NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS session_tokens (
			conn_id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS conversations (
			id INTEGER PRIMARY KEY,
			public_id TEXT UNIQUE NOT NULL,
			type VARCHAR(10) NOT NULL,
			name VARCHAR(100),
			picture_id TEXT,
			created_by INTEGER,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			deleted_at DATETIME
		);`,
		// Append-only participant ledger. No updates except the conditional
		// admin promotion.
		`CREATE TABLE IF NOT EXISTS conversation_participants (
			id INTEGER PRIMARY KEY,
			conversation_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			is_admin BOOLEAN NOT NULL DEFAULT 0,
			is_muted BOOLEAN NOT NULL DEFAULT 0,
			event VARCHAR(20) NOT NULL,
			performed_by INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id),
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS messages (
			id INTEGER PRIMARY KEY,
			conversation_id INTEGER NOT NULL,
			sender_id INTEGER NOT NULL,
			content TEXT,
			type VARCHAR(20) NOT NULL DEFAULT 'regular',
			affected_user_id INTEGER,
			is_edited BOOLEAN NOT NULL DEFAULT 0,
			edited_at DATETIME,
			parent_id INTEGER,
			unsent_at DATETIME,
			deleted_at DATETIME,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (conversation_id) REFERENCES conversations(id),
			FOREIGN KEY (sender_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS deleted_messages (
			message_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (message_id, user_id),
			FOREIGN KEY (message_id) REFERENCES messages(id)
		);`,
		`CREATE TABLE IF NOT EXISTS message_reactions (
			message_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			type VARCHAR(20) NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (message_id, user_id),
			FOREIGN KEY (message_id) REFERENCES messages(id)
		);`,
		`CREATE TABLE IF NOT EXISTS pinned_messages (
			message_id INTEGER PRIMARY KEY,
			pinned_by INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (message_id) REFERENCES messages(id)
		);`,
		`CREATE TABLE IF NOT EXISTS message_read_statuses (
			message_id INTEGER NOT NULL,
			user_id INTEGER NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (message_id, user_id),
			FOREIGN KEY (message_id) REFERENCES messages(id)
		);`,
		`CREATE TABLE IF NOT EXISTS media (
			id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			file_name TEXT NOT NULL,
			mime_type TEXT NOT NULL,
			url TEXT NOT NULL,
			FOREIGN KEY (user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS message_medias (
			message_id INTEGER NOT NULL,
			media_id TEXT NOT NULL,
			PRIMARY KEY (message_id, media_id),
			FOREIGN KEY (message_id) REFERENCES messages(id),
			FOREIGN KEY (media_id) REFERENCES media(id)
		);`,
		`CREATE TABLE IF NOT EXISTS chhimeks (
			from_user_id INTEGER NOT NULL,
			to_user_id INTEGER NOT NULL,
			status VARCHAR(20) NOT NULL,
			PRIMARY KEY (from_user_id, to_user_id),
			FOREIGN KEY (from_user_id) REFERENCES users(id),
			FOREIGN KEY (to_user_id) REFERENCES users(id)
		);`,
		`CREATE TABLE IF NOT EXISTS blocked_users (
			user_id INTEGER NOT NULL,
			blocked_user_id INTEGER NOT NULL,
			PRIMARY KEY (user_id, blocked_user_id),
			FOREIGN KEY (user_id) REFERENCES users(id),
			FOREIGN KEY (blocked_user_id) REFERENCES users(id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_session_tokens_user ON session_tokens(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_conversations_public ON conversations(public_id);`,
		`CREATE INDEX IF NOT EXISTS idx_participants_conv_user ON conversation_participants(conversation_id, user_id, id DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_participants_user ON conversation_participants(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_messages_conversation ON messages(conversation_id, created_at DESC);`,
		`CREATE INDEX IF NOT EXISTS idx_refresh_tokens_user ON refresh_tokens(user_id);`,
		`CREATE INDEX IF NOT EXISTS idx_chhimeks_to ON chhimeks(to_user_id);`,
	}

	for _, stmt := range stmts {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}

	return nil
}
