package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"chatengine/internal/domain"
)

type MessageRepo struct {
	db *sql.DB
}

func NewMessageRepo(db *sql.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

var _ domain.MessageRepository = (*MessageRepo)(nil)

func (r *MessageRepo) Create(ctx context.Context, m *domain.Message) error {
	query := `
		INSERT INTO messages (conversation_id, sender_id, content, type, affected_user_id, parent_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		m.ConversationID, m.SenderID, m.Content, m.Type, m.AffectedUserID, m.ParentID)
	if err != nil {
		return fmt.Errorf("create message: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	m.ID = id
	return nil
}

func (r *MessageRepo) CreateAll(ctx context.Context, msgs []*domain.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO messages (conversation_id, sender_id, content, type, affected_user_id, parent_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, m := range msgs {
		res, err := stmt.ExecContext(ctx,
			m.ConversationID, m.SenderID, m.Content, m.Type, m.AffectedUserID, m.ParentID)
		if err != nil {
			return fmt.Errorf("create message: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		m.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id, conversationID int64) (*domain.Message, error) {
	query := `
		SELECT id, conversation_id, sender_id, content, type, affected_user_id,
		       is_edited, edited_at, parent_id, unsent_at, deleted_at, created_at
		FROM messages
		WHERE id = ? AND conversation_id = ?
	`
	m := &domain.Message{}
	err := r.db.QueryRowContext(ctx, query, id, conversationID).Scan(
		&m.ID,
		&m.ConversationID,
		&m.SenderID,
		&m.Content,
		&m.Type,
		&m.AffectedUserID,
		&m.IsEdited,
		&m.EditedAt,
		&m.ParentID,
		&m.UnsentAt,
		&m.DeletedAt,
		&m.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get message: %w", err)
	}
	return m, nil
}

func (r *MessageRepo) SetEdited(ctx context.Context, id int64, content string, at time.Time) error {
	query := `
		UPDATE messages SET content = ?, is_edited = 1, edited_at = ? WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, content, at, id); err != nil {
		return fmt.Errorf("set edited: %w", err)
	}
	return nil
}

func (r *MessageRepo) SetUnsent(ctx context.Context, id int64, at time.Time) error {
	query := `
		UPDATE messages SET content = NULL, unsent_at = ? WHERE id = ?
	`
	if _, err := r.db.ExecContext(ctx, query, at, id); err != nil {
		return fmt.Errorf("set unsent: %w", err)
	}
	return nil
}

type MessageDeletionRepo struct {
	db *sql.DB
}

func NewMessageDeletionRepo(db *sql.DB) *MessageDeletionRepo {
	return &MessageDeletionRepo{db: db}
}

var _ domain.MessageDeletionRepository = (*MessageDeletionRepo)(nil)

func (r *MessageDeletionRepo) Create(ctx context.Context, messageID, userID int64) error {
	query := `
		INSERT INTO deleted_messages (message_id, user_id) VALUES (?, ?)
	`
	if _, err := r.db.ExecContext(ctx, query, messageID, userID); err != nil {
		return fmt.Errorf("create deletion: %w", err)
	}
	return nil
}

func (r *MessageDeletionRepo) Exists(ctx context.Context, messageID, userID int64) (bool, error) {
	query := `
		SELECT EXISTS (SELECT 1 FROM deleted_messages WHERE message_id = ? AND user_id = ?)
	`
	var exists bool
	if err := r.db.QueryRowContext(ctx, query, messageID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("deletion exists: %w", err)
	}
	return exists, nil
}
