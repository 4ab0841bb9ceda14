package domain

import (
	"context"
	"time"
)

// Repositories return (nil, nil) when a single row is absent; callers decide
// whether absence is an error.

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
}

// RefreshTokenRepository resolves the long-lived token record referenced by an
// access token during the connection handshake.
type RefreshTokenRepository interface {
	GetByID(ctx context.Context, id, userID int64) (*RefreshToken, error)
}

// SessionRepository tracks live socket connections per user. Connect and
// Disconnect run their presence transition inside one transaction so the 0→1
// and 1→0 edges cannot be lost to concurrent connects from other devices.
type SessionRepository interface {
	// Reset truncates all session rows; called once at process start.
	Reset(ctx context.Context) error
	// Connect records a connection and reports whether the user just came
	// online (their first live connection).
	Connect(ctx context.Context, connID string, userID int64) (wentOnline bool, err error)
	// Disconnect removes a connection and reports whether the user just went
	// offline (their last live connection).
	Disconnect(ctx context.Context, connID string, userID int64) (wentOffline bool, err error)
	// ConnIDsForUsers lists the live connection ids of the given users.
	ConnIDsForUsers(ctx context.Context, userIDs []int64) ([]string, error)
}

// ConversationRepository defines persistence operations for conversations.
type ConversationRepository interface {
	Create(ctx context.Context, c *Conversation) error
	GetByPublicID(ctx context.Context, publicID string) (*Conversation, error)
	UpdateName(ctx context.Context, id int64, name string) error
	UpdatePicture(ctx context.Context, id int64, mediaID string) error
}

// MembershipRepository is the append-only participant ledger plus the derived
// latest-row queries every access decision is built on.
type MembershipRepository interface {
	Append(ctx context.Context, e *MembershipEvent) error
	AppendAll(ctx context.Context, events []*MembershipEvent) error
	// LatestForUser returns the newest ledger row for the pair, or nil.
	LatestForUser(ctx context.Context, conversationID, userID int64) (*MembershipEvent, error)
	// LatestForUsers returns the newest row per user among userIDs.
	LatestForUsers(ctx context.Context, conversationID int64, userIDs []int64) ([]*MembershipEvent, error)
	// ActiveUserIDs lists users whose latest row is not left/removed.
	ActiveUserIDs(ctx context.Context, conversationID int64) ([]int64, error)
	// ActiveConversationPublicIDs lists conversations the user is currently a
	// participant of, for room rejoin on connect.
	ActiveConversationPublicIDs(ctx context.Context, userID int64) ([]string, error)
	// ActiveAdminExists reports whether any current participant other than
	// excludeUserID holds the admin flag on their latest row.
	ActiveAdminExists(ctx context.Context, conversationID, excludeUserID int64) (bool, error)
	// EarliestJoinedUserIDs orders users by their first-ever ledger row,
	// excluding excludeUserID, regardless of current state.
	EarliestJoinedUserIDs(ctx context.Context, conversationID, excludeUserID int64) ([]int64, error)
	// PromoteIfNoActiveAdmin flips is_admin on the user's latest row, but only
	// while that row is active and the conversation has no active admin.
	// Reports whether a promotion happened.
	PromoteIfNoActiveAdmin(ctx context.Context, conversationID, userID int64) (bool, error)
	// OtherActiveUserID returns the other current participant of a private
	// conversation, or 0 when none exists.
	OtherActiveUserID(ctx context.Context, conversationID, excludeUserID int64) (int64, error)
}

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, m *Message) error
	CreateAll(ctx context.Context, msgs []*Message) error
	GetByID(ctx context.Context, id, conversationID int64) (*Message, error)
	SetEdited(ctx context.Context, id int64, content string, at time.Time) error
	SetUnsent(ctx context.Context, id int64, at time.Time) error
}

// MessageDeletionRepository stores per-user tombstones.
type MessageDeletionRepository interface {
	Create(ctx context.Context, messageID, userID int64) error
	Exists(ctx context.Context, messageID, userID int64) (bool, error)
}

// ReactionRepository upserts by (message, user); Delete removes the row.
type ReactionRepository interface {
	Upsert(ctx context.Context, messageID, userID int64, t ReactionType) error
	Delete(ctx context.Context, messageID, userID int64) error
}

// PinRepository holds the at-most-one pin row per message.
type PinRepository interface {
	Get(ctx context.Context, messageID int64) (*PinnedMessage, error)
	Create(ctx context.Context, messageID, pinnedBy int64) error
	Delete(ctx context.Context, messageID int64) error
}

// ReadStatusRepository records idempotent seen markers.
type ReadStatusRepository interface {
	// FindOrCreate reports whether a new row was created.
	FindOrCreate(ctx context.Context, messageID, userID int64) (bool, error)
}

// GraphRepository exposes the connection (chhimek) and block graphs.
type GraphRepository interface {
	// IsBlockedEither reports a block in either direction between a and b.
	IsBlockedEither(ctx context.Context, a, b int64) (bool, error)
	// EligibleInvitees filters candidateIDs to users with an accepted
	// connection to userID and no block in either direction.
	EligibleInvitees(ctx context.Context, userID int64, candidateIDs []int64) ([]int64, error)
}

// MediaRepository resolves pre-uploaded media and message attachments.
type MediaRepository interface {
	GetForUser(ctx context.Context, id string, userID int64) (*Media, error)
	ListByIDs(ctx context.Context, ids []string) ([]*Media, error)
	AttachToMessage(ctx context.Context, messageID int64, mediaIDs []string) error
	ListForMessage(ctx context.Context, messageID int64) ([]*Media, error)
}
