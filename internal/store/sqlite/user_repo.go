package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"chatengine/internal/domain"
)

type UserRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) *UserRepo {
	return &UserRepo{db: db}
}

var _ domain.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `
		SELECT id, username, email, full_name, avatar_url,
		       is_email_verified, is_enabled, is_account_locked, is_credentials_expired,
		       is_online, last_online_at, created_at
		FROM users
		WHERE id = ?
	`
	u := &domain.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.FullName,
		&u.AvatarURL,
		&u.IsEmailVerified,
		&u.IsEnabled,
		&u.IsAccountLocked,
		&u.IsCredentialsExpired,
		&u.IsOnline,
		&u.LastOnlineAt,
		&u.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}
