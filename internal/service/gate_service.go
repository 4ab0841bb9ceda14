package service

import (
	"context"
	"fmt"
	"time"

	"chatengine/internal/domain"
	"chatengine/internal/security"
)

// GateService authenticates socket handshakes. An access token is accepted
// even when expired, as long as the refresh-token record it points at is
// still valid; long-lived socket clients reconnect without a refresh round
// trip that way.
type GateService struct {
	tokens        *security.TokenService
	refreshTokens domain.RefreshTokenRepository
	users         domain.UserRepository
}

func NewGateService(
	tokens *security.TokenService,
	refreshTokens domain.RefreshTokenRepository,
	users domain.UserRepository,
) *GateService {
	return &GateService{
		tokens:        tokens,
		refreshTokens: refreshTokens,
		users:         users,
	}
}

// Authenticate resolves a bearer token to a user. Every failure comes back as
// the same unauthorized error so callers cannot probe which link of the chain
// broke.
func (s *GateService) Authenticate(ctx context.Context, accessToken string) (*domain.User, error) {
	denied := domain.Unauthorized("authentication failed")

	claims, err := s.tokens.DecodeAccessIgnoreExpiry(accessToken)
	if err != nil {
		return nil, denied
	}

	rt, err := s.refreshTokens.GetByID(ctx, claims.RefreshTokenID, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get refresh token: %w", err)
	}
	if rt == nil {
		return nil, denied
	}
	if err := s.tokens.Verify(rt.Token); err != nil {
		return nil, denied
	}
	if rt.Revoked || time.Now().After(rt.ExpiresAt) {
		return nil, denied
	}

	user, err := s.users.GetByID(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, denied
	}
	if !user.IsEmailVerified || !user.IsEnabled || user.IsAccountLocked || user.IsCredentialsExpired {
		return nil, denied
	}

	return user, nil
}
