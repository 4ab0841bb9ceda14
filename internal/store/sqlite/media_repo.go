package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"chatengine/internal/domain"
)

type MediaRepo struct {
	db *sql.DB
}

func NewMediaRepo(db *sql.DB) *MediaRepo {
	return &MediaRepo{db: db}
}

var _ domain.MediaRepository = (*MediaRepo)(nil)

func (r *MediaRepo) GetForUser(ctx context.Context, id string, userID int64) (*domain.Media, error) {
	query := `
		SELECT id, user_id, file_name, mime_type, url
		FROM media
		WHERE id = ? AND user_id = ?
	`
	m := &domain.Media{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&m.ID, &m.UserID, &m.FileName, &m.MimeType, &m.URL,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	return m, nil
}

func (r *MediaRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.Media, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, user_id, file_name, mime_type, url
		FROM media
		WHERE id IN (`+placeholders+`)
	`, args...)
	if err != nil {
		return nil, fmt.Errorf("list media: %w", err)
	}
	defer rows.Close()
	return scanMedia(rows)
}

func (r *MediaRepo) AttachToMessage(ctx context.Context, messageID int64, mediaIDs []string) error {
	if len(mediaIDs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO message_medias (message_id, media_id) VALUES (?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, mediaID := range mediaIDs {
		if _, err := stmt.ExecContext(ctx, messageID, mediaID); err != nil {
			return fmt.Errorf("attach media: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *MediaRepo) ListForMessage(ctx context.Context, messageID int64) ([]*domain.Media, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.user_id, m.file_name, m.mime_type, m.url
		FROM media m
		JOIN message_medias mm ON mm.media_id = m.id
		WHERE mm.message_id = ?
	`, messageID)
	if err != nil {
		return nil, fmt.Errorf("list message media: %w", err)
	}
	defer rows.Close()
	return scanMedia(rows)
}

func scanMedia(rows *sql.Rows) ([]*domain.Media, error) {
	var media []*domain.Media
	for rows.Next() {
		m := &domain.Media{}
		if err := rows.Scan(&m.ID, &m.UserID, &m.FileName, &m.MimeType, &m.URL); err != nil {
			return nil, fmt.Errorf("scan media: %w", err)
		}
		media = append(media, m)
	}
	return media, rows.Err()
}
