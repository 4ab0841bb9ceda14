package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"chatengine/internal/domain"
)

type RefreshTokenRepo struct {
	db *sql.DB
}

func NewRefreshTokenRepo(db *sql.DB) *RefreshTokenRepo {
	return &RefreshTokenRepo{db: db}
}

var _ domain.RefreshTokenRepository = (*RefreshTokenRepo)(nil)

func (r *RefreshTokenRepo) GetByID(ctx context.Context, id, userID int64) (*domain.RefreshToken, error) {
	query := `
		SELECT id, user_id, token, revoked, expires_at, created_at
		FROM refresh_tokens
		WHERE id = ? AND user_id = ?
	`
	t := &domain.RefreshToken{}
	err := r.db.QueryRowContext(ctx, query, id, userID).Scan(
		&t.ID,
		&t.UserID,
		&t.Token,
		&t.Revoked,
		&t.ExpiresAt,
		&t.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	return t, nil
}
