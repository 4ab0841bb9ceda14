package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"chatengine/internal/domain"
)

// GraphRepo reads the connection (chhimek) and block graphs. Both graphs are
// owned by the surrounding platform; this engine only consults them.
type GraphRepo struct {
	db *sql.DB
}

func NewGraphRepo(db *sql.DB) *GraphRepo {
	return &GraphRepo{db: db}
}

var _ domain.GraphRepository = (*GraphRepo)(nil)

func (r *GraphRepo) IsBlockedEither(ctx context.Context, a, b int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM blocked_users
			WHERE (user_id = ? AND blocked_user_id = ?)
			   OR (user_id = ? AND blocked_user_id = ?)
		)
	`
	var blocked bool
	if err := r.db.QueryRowContext(ctx, query, a, b, b, a).Scan(&blocked); err != nil {
		return false, fmt.Errorf("check block: %w", err)
	}
	return blocked, nil
}

// EligibleInvitees keeps the candidates who share an accepted connection with
// userID in either direction and have no block with them in either direction.
func (r *GraphRepo) EligibleInvitees(ctx context.Context, userID int64, candidateIDs []int64) ([]int64, error) {
	if len(candidateIDs) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimRight(strings.Repeat("?,", len(candidateIDs)), ",")
	query := `
		SELECT DISTINCT u.id
		FROM users u
		WHERE u.id IN (` + placeholders + `)
		  AND EXISTS (
			SELECT 1 FROM chhimeks ch
			WHERE ch.status = 'accepted'
			  AND ((ch.from_user_id = ? AND ch.to_user_id = u.id)
			    OR (ch.from_user_id = u.id AND ch.to_user_id = ?))
		  )
		  AND NOT EXISTS (
			SELECT 1 FROM blocked_users b
			WHERE (b.user_id = ? AND b.blocked_user_id = u.id)
			   OR (b.user_id = u.id AND b.blocked_user_id = ?)
		  )
	`
	args := make([]any, 0, len(candidateIDs)+4)
	for _, id := range candidateIDs {
		args = append(args, id)
	}
	args = append(args, userID, userID, userID, userID)
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("eligible invitees: %w", err)
	}
	defer rows.Close()
	return scanInt64s(rows)
}
