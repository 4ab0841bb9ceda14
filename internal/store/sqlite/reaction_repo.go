package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"chatengine/internal/domain"
)

type ReactionRepo struct {
	db *sql.DB
}

func NewReactionRepo(db *sql.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

var _ domain.ReactionRepository = (*ReactionRepo)(nil)

func (r *ReactionRepo) Upsert(ctx context.Context, messageID, userID int64, t domain.ReactionType) error {
	query := `
		INSERT INTO message_reactions (message_id, user_id, type)
		VALUES (?, ?, ?)
		ON CONFLICT (message_id, user_id) DO UPDATE SET type = excluded.type
	`
	if _, err := r.db.ExecContext(ctx, query, messageID, userID, t); err != nil {
		return fmt.Errorf("upsert reaction: %w", err)
	}
	return nil
}

func (r *ReactionRepo) Delete(ctx context.Context, messageID, userID int64) error {
	query := `
		DELETE FROM message_reactions WHERE message_id = ? AND user_id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, messageID, userID); err != nil {
		return fmt.Errorf("delete reaction: %w", err)
	}
	return nil
}

type PinRepo struct {
	db *sql.DB
}

func NewPinRepo(db *sql.DB) *PinRepo {
	return &PinRepo{db: db}
}

var _ domain.PinRepository = (*PinRepo)(nil)

func (r *PinRepo) Get(ctx context.Context, messageID int64) (*domain.PinnedMessage, error) {
	query := `
		SELECT message_id, pinned_by, created_at FROM pinned_messages WHERE message_id = ?
	`
	p := &domain.PinnedMessage{}
	err := r.db.QueryRowContext(ctx, query, messageID).Scan(&p.MessageID, &p.PinnedBy, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get pin: %w", err)
	}
	return p, nil
}

func (r *PinRepo) Create(ctx context.Context, messageID, pinnedBy int64) error {
	query := `
		INSERT INTO pinned_messages (message_id, pinned_by) VALUES (?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, messageID, pinnedBy); err != nil {
		return fmt.Errorf("create pin: %w", err)
	}
	return nil
}

func (r *PinRepo) Delete(ctx context.Context, messageID int64) error {
	query := `
		DELETE FROM pinned_messages WHERE message_id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, messageID); err != nil {
		return fmt.Errorf("delete pin: %w", err)
	}
	return nil
}

type ReadStatusRepo struct {
	db *sql.DB
}

func NewReadStatusRepo(db *sql.DB) *ReadStatusRepo {
	return &ReadStatusRepo{db: db}
}

var _ domain.ReadStatusRepository = (*ReadStatusRepo)(nil)

func (r *ReadStatusRepo) FindOrCreate(ctx context.Context, messageID, userID int64) (bool, error) {
	query := `
		INSERT OR IGNORE INTO message_read_statuses (message_id, user_id) VALUES (?, ?)
	`
	res, err := r.db.ExecContext(ctx, query, messageID, userID)
	if err != nil {
		return false, fmt.Errorf("mark seen: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}
