package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"chatengine/internal/domain"
)

type SessionRepo struct {
	db *sql.DB
}

func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

var _ domain.SessionRepository = (*SessionRepo)(nil)

// Reset clears every session row. Connections cannot survive a restart, so
// this runs once at process start before the listener comes up.
func (r *SessionRepo) Reset(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session_tokens`); err != nil {
		return fmt.Errorf("reset sessions: %w", err)
	}
	return nil
}

// Connect records the connection and flips the user online when this is their
// first live connection. The count check and the presence update share one
// transaction so concurrent connects from other devices cannot race the 0→1
// edge.
func (r *SessionRepo) Connect(ctx context.Context, connID string, userID int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT OR IGNORE INTO session_tokens (conn_id, user_id)
		VALUES (?, ?)
	`, connID, userID)
	if err != nil {
		return false, fmt.Errorf("insert session: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	var count int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM session_tokens WHERE user_id = ?
	`, userID).Scan(&count); err != nil {
		return false, fmt.Errorf("count sessions: %w", err)
	}

	wentOnline := inserted > 0 && count == 1
	if wentOnline {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET is_online = 1, last_online_at = CURRENT_TIMESTAMP WHERE id = ?
		`, userID); err != nil {
			return false, fmt.Errorf("set online: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return wentOnline, nil
}

// Disconnect removes the connection and flips the user offline when no live
// connections remain, under the same transaction discipline as Connect.
func (r *SessionRepo) Disconnect(ctx context.Context, connID string, userID int64) (bool, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		DELETE FROM session_tokens WHERE conn_id = ? AND user_id = ?
	`, connID, userID)
	if err != nil {
		return false, fmt.Errorf("delete session: %w", err)
	}
	deleted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}

	var remaining int
	if err := tx.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM session_tokens WHERE user_id = ?
	`, userID).Scan(&remaining); err != nil {
		return false, fmt.Errorf("count sessions: %w", err)
	}

	wentOffline := deleted > 0 && remaining == 0
	if wentOffline {
		if _, err := tx.ExecContext(ctx, `
			UPDATE users SET is_online = 0, last_online_at = CURRENT_TIMESTAMP WHERE id = ?
		`, userID); err != nil {
			return false, fmt.Errorf("set offline: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	return wentOffline, nil
}

func (r *SessionRepo) ConnIDsForUsers(ctx context.Context, userIDs []int64) ([]string, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(userIDs)), ",")
	args := make([]any, len(userIDs))
	for i, id := range userIDs {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT conn_id FROM session_tokens WHERE user_id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list conn ids: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan conn id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
