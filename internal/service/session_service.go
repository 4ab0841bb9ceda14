package service

import (
	"context"
	"fmt"

	"chatengine/internal/domain"
)

// SessionService tracks live connections and derives presence from them. A
// user is online while they have at least one connection; the repository
// reports the 0→1 and 1→0 edges so callers know when to announce them.
type SessionService struct {
	sessions    domain.SessionRepository
	memberships domain.MembershipRepository
}

func NewSessionService(sessions domain.SessionRepository, memberships domain.MembershipRepository) *SessionService {
	return &SessionService{sessions: sessions, memberships: memberships}
}

// Reset clears all session rows. Runs once at startup, before the listener
// accepts connections.
func (s *SessionService) Reset(ctx context.Context) error {
	return s.sessions.Reset(ctx)
}

// ConnectResult is what the dispatcher needs after registering a connection:
// whether to announce the user online, and which rooms to rejoin.
type ConnectResult struct {
	WentOnline bool
	RoomIDs    []string
}

func (s *SessionService) Connect(ctx context.Context, connID string, userID int64) (*ConnectResult, error) {
	wentOnline, err := s.sessions.Connect(ctx, connID, userID)
	if err != nil {
		return nil, fmt.Errorf("connect session: %w", err)
	}
	rooms, err := s.memberships.ActiveConversationPublicIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list active conversations: %w", err)
	}
	return &ConnectResult{WentOnline: wentOnline, RoomIDs: rooms}, nil
}

func (s *SessionService) Disconnect(ctx context.Context, connID string, userID int64) (bool, error) {
	wentOffline, err := s.sessions.Disconnect(ctx, connID, userID)
	if err != nil {
		return false, fmt.Errorf("disconnect session: %w", err)
	}
	return wentOffline, nil
}

// ConnIDsForUsers lists the live connection ids of the given users, for
// targeted pushes outside room membership.
func (s *SessionService) ConnIDsForUsers(ctx context.Context, userIDs []int64) ([]string, error) {
	return s.sessions.ConnIDsForUsers(ctx, userIDs)
}
