package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"chatengine/internal/domain"
)

type ConversationRepo struct {
	db *sql.DB
}

func NewConversationRepo(db *sql.DB) *ConversationRepo {
	return &ConversationRepo{db: db}
}

var _ domain.ConversationRepository = (*ConversationRepo)(nil)

func (r *ConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	query := `
		INSERT INTO conversations (public_id, type, name, picture_id, created_by)
		VALUES (?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query, c.PublicID, c.Type, c.Name, c.PictureID, c.CreatedBy)
	if err != nil {
		return fmt.Errorf("create conversation: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	c.ID = id
	return nil
}

func (r *ConversationRepo) GetByPublicID(ctx context.Context, publicID string) (*domain.Conversation, error) {
	query := `
		SELECT id, public_id, type, name, picture_id, created_by, created_at, updated_at, deleted_at
		FROM conversations
		WHERE public_id = ?
	`
	c := &domain.Conversation{}
	err := r.db.QueryRowContext(ctx, query, publicID).Scan(
		&c.ID,
		&c.PublicID,
		&c.Type,
		&c.Name,
		&c.PictureID,
		&c.CreatedBy,
		&c.CreatedAt,
		&c.UpdatedAt,
		&c.DeletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return c, nil
}

func (r *ConversationRepo) UpdateName(ctx context.Context, id int64, name string) error {
	query := `
		UPDATE conversations SET name = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, name, id); err != nil {
		return fmt.Errorf("update conversation name: %w", err)
	}
	return nil
}

func (r *ConversationRepo) UpdatePicture(ctx context.Context, id int64, mediaID string) error {
	query := `
		UPDATE conversations SET picture_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, mediaID, id); err != nil {
		return fmt.Errorf("update conversation picture: %w", err)
	}
	return nil
}
