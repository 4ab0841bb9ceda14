package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"chatengine/internal/domain"
)

// MembershipRepo persists the append-only participant ledger. The latest row
// per (conversation, user) is the pair's current state; "latest" everywhere
// below means the row with the greatest id for that pair.
type MembershipRepo struct {
	db *sql.DB
}

func NewMembershipRepo(db *sql.DB) *MembershipRepo {
	return &MembershipRepo{db: db}
}

var _ domain.MembershipRepository = (*MembershipRepo)(nil)

func (r *MembershipRepo) Append(ctx context.Context, e *domain.MembershipEvent) error {
	query := `
		INSERT INTO conversation_participants (conversation_id, user_id, is_admin, is_muted, event, performed_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	res, err := r.db.ExecContext(ctx, query,
		e.ConversationID, e.UserID, e.IsAdmin, e.IsMuted, e.Event, e.PerformedBy)
	if err != nil {
		return fmt.Errorf("append membership event: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	e.ID = id
	return nil
}

func (r *MembershipRepo) AppendAll(ctx context.Context, events []*domain.MembershipEvent) error {
	if len(events) == 0 {
		return nil
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO conversation_participants (conversation_id, user_id, is_admin, is_muted, event, performed_by)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range events {
		res, err := stmt.ExecContext(ctx,
			e.ConversationID, e.UserID, e.IsAdmin, e.IsMuted, e.Event, e.PerformedBy)
		if err != nil {
			return fmt.Errorf("append membership event: %w", err)
		}
		id, err := res.LastInsertId()
		if err != nil {
			return fmt.Errorf("last insert id: %w", err)
		}
		e.ID = id
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (r *MembershipRepo) LatestForUser(ctx context.Context, conversationID, userID int64) (*domain.MembershipEvent, error) {
	query := `
		SELECT id, conversation_id, user_id, is_admin, is_muted, event, performed_by, created_at
		FROM conversation_participants
		WHERE conversation_id = ? AND user_id = ?
		ORDER BY id DESC
		LIMIT 1
	`
	e := &domain.MembershipEvent{}
	err := r.db.QueryRowContext(ctx, query, conversationID, userID).Scan(
		&e.ID,
		&e.ConversationID,
		&e.UserID,
		&e.IsAdmin,
		&e.IsMuted,
		&e.Event,
		&e.PerformedBy,
		&e.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest membership: %w", err)
	}
	return e, nil
}

func (r *MembershipRepo) LatestForUsers(ctx context.Context, conversationID int64, userIDs []int64) ([]*domain.MembershipEvent, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(userIDs)), ",")
	args := []any{conversationID}
	for _, id := range userIDs {
		args = append(args, id)
	}
	args = append(args, conversationID)
	query := `
		SELECT cp.id, cp.conversation_id, cp.user_id, cp.is_admin, cp.is_muted, cp.event, cp.performed_by, cp.created_at
		FROM conversation_participants cp
		WHERE cp.conversation_id = ?
		  AND cp.user_id IN (` + placeholders + `)
		  AND cp.id = (
			SELECT MAX(id) FROM conversation_participants
			WHERE conversation_id = ? AND user_id = cp.user_id
		  )
	`
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("latest memberships: %w", err)
	}
	defer rows.Close()

	var events []*domain.MembershipEvent
	for rows.Next() {
		e := &domain.MembershipEvent{}
		if err := rows.Scan(
			&e.ID, &e.ConversationID, &e.UserID, &e.IsAdmin, &e.IsMuted,
			&e.Event, &e.PerformedBy, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *MembershipRepo) ActiveUserIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	query := `
		SELECT cp.user_id
		FROM conversation_participants cp
		WHERE cp.conversation_id = ?
		  AND cp.id = (
			SELECT MAX(id) FROM conversation_participants
			WHERE conversation_id = ? AND user_id = cp.user_id
		  )
		  AND cp.event NOT IN ('left', 'removed')
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID, conversationID)
	if err != nil {
		return nil, fmt.Errorf("active user ids: %w", err)
	}
	defer rows.Close()
	return scanInt64s(rows)
}

func (r *MembershipRepo) ActiveConversationPublicIDs(ctx context.Context, userID int64) ([]string, error) {
	query := `
		SELECT c.public_id
		FROM conversations c
		JOIN conversation_participants cp ON cp.conversation_id = c.id
		WHERE cp.user_id = ?
		  AND c.deleted_at IS NULL
		  AND cp.id = (
			SELECT MAX(id) FROM conversation_participants
			WHERE conversation_id = c.id AND user_id = ?
		  )
		  AND cp.event NOT IN ('left', 'removed')
	`
	rows, err := r.db.QueryContext(ctx, query, userID, userID)
	if err != nil {
		return nil, fmt.Errorf("active conversations: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan public id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *MembershipRepo) ActiveAdminExists(ctx context.Context, conversationID, excludeUserID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM conversation_participants cp
			WHERE cp.conversation_id = ?
			  AND cp.user_id != ?
			  AND cp.id = (
				SELECT MAX(id) FROM conversation_participants
				WHERE conversation_id = ? AND user_id = cp.user_id
			  )
			  AND cp.event NOT IN ('left', 'removed')
			  AND cp.is_admin = 1
		)
	`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, conversationID, excludeUserID, conversationID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("active admin exists: %w", err)
	}
	return exists, nil
}

func (r *MembershipRepo) EarliestJoinedUserIDs(ctx context.Context, conversationID, excludeUserID int64) ([]int64, error) {
	query := `
		SELECT user_id
		FROM conversation_participants
		WHERE conversation_id = ? AND user_id != ?
		GROUP BY user_id
		ORDER BY MIN(id)
	`
	rows, err := r.db.QueryContext(ctx, query, conversationID, excludeUserID)
	if err != nil {
		return nil, fmt.Errorf("earliest joined: %w", err)
	}
	defer rows.Close()
	return scanInt64s(rows)
}

// PromoteIfNoActiveAdmin is the single permitted ledger mutation. The NOT
// EXISTS guard and the flip run as one statement, so two concurrent
// successions cannot both promote.
func (r *MembershipRepo) PromoteIfNoActiveAdmin(ctx context.Context, conversationID, userID int64) (bool, error) {
	query := `
		UPDATE conversation_participants
		SET is_admin = 1
		WHERE id = (
			SELECT MAX(id) FROM conversation_participants
			WHERE conversation_id = ? AND user_id = ?
		)
		AND event NOT IN ('left', 'removed')
		AND NOT EXISTS (
			SELECT 1
			FROM conversation_participants cp
			WHERE cp.conversation_id = ?
			  AND cp.id = (
				SELECT MAX(id) FROM conversation_participants
				WHERE conversation_id = ? AND user_id = cp.user_id
			  )
			  AND cp.event NOT IN ('left', 'removed')
			  AND cp.is_admin = 1
		)
	`
	res, err := r.db.ExecContext(ctx, query, conversationID, userID, conversationID, conversationID)
	if err != nil {
		return false, fmt.Errorf("promote admin: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

func (r *MembershipRepo) OtherActiveUserID(ctx context.Context, conversationID, excludeUserID int64) (int64, error) {
	query := `
		SELECT cp.user_id
		FROM conversation_participants cp
		WHERE cp.conversation_id = ?
		  AND cp.user_id != ?
		  AND cp.id = (
			SELECT MAX(id) FROM conversation_participants
			WHERE conversation_id = ? AND user_id = cp.user_id
		  )
		  AND cp.event NOT IN ('left', 'removed')
		LIMIT 1
	`
	var id int64
	err := r.db.QueryRowContext(ctx, query, conversationID, excludeUserID, conversationID).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("other participant: %w", err)
	}
	return id, nil
}

func scanInt64s(rows *sql.Rows) ([]int64, error) {
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
