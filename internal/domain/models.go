package domain

import "time"

// ConversationType distinguishes direct chats from groups.
type ConversationType string

const (
	ConversationPrivate ConversationType = "private"
	ConversationGroup   ConversationType = "group"
)

// ParticipantEvent is the kind of a membership ledger entry.
type ParticipantEvent string

const (
	ParticipantAdded        ParticipantEvent = "added"
	ParticipantRemoved      ParticipantEvent = "removed"
	ParticipantLeft         ParticipantEvent = "left"
	ParticipantGroupCreated ParticipantEvent = "group_created"
)

// Active reports whether a ledger entry of this kind leaves the user as a
// current participant.
func (e ParticipantEvent) Active() bool {
	return e != ParticipantLeft && e != ParticipantRemoved
}

// MessageType distinguishes user-authored messages from membership audit rows.
type MessageType string

const (
	MessageRegular   MessageType = "regular"
	MessageUserEvent MessageType = "user_event"
)

// ReactionType is the closed set of allowed message reactions.
type ReactionType string

const ReactionLove ReactionType = "love"

// ValidReaction reports whether t is a known reaction type.
func ValidReaction(t ReactionType) bool {
	return t == ReactionLove
}

// ChhimekStatus is the state of a connection-graph edge.
type ChhimekStatus string

const (
	ChhimekPending  ChhimekStatus = "pending"
	ChhimekAccepted ChhimekStatus = "accepted"
)

// User represents an application user together with the capability flags the
// connection gate checks during the handshake.
type User struct {
	ID                   int64      `db:"id" json:"id"`
	Username             string     `db:"username" json:"username"`
	Email                *string    `db:"email" json:"email,omitempty"`
	FullName             string     `db:"full_name" json:"full_name"`
	AvatarURL            *string    `db:"avatar_url" json:"avatar_url,omitempty"`
	IsEmailVerified      bool       `db:"is_email_verified" json:"-"`
	IsEnabled            bool       `db:"is_enabled" json:"-"`
	IsAccountLocked      bool       `db:"is_account_locked" json:"-"`
	IsCredentialsExpired bool       `db:"is_credentials_expired" json:"-"`
	IsOnline             bool       `db:"is_online" json:"is_online"`
	LastOnlineAt         *time.Time `db:"last_online_at" json:"last_online_at,omitempty"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// RefreshToken is the long-lived token record an access token points at.
type RefreshToken struct {
	ID        int64     `db:"id"`
	UserID    int64     `db:"user_id"`
	Token     string    `db:"token"`
	Revoked   bool      `db:"revoked"`
	ExpiresAt time.Time `db:"expires_at"`
	CreatedAt time.Time `db:"created_at"`
}

// SessionToken maps a live socket connection to a user. The set of rows for a
// user is the set of that user's live connections.
type SessionToken struct {
	ConnID    string    `db:"conn_id"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Conversation represents a chat conversation (private or group). PublicID is
// the stable identifier exposed to clients; ID never leaves the process.
type Conversation struct {
	ID        int64            `db:"id"`
	PublicID  string           `db:"public_id"`
	Type      ConversationType `db:"type"`
	Name      *string          `db:"name"`
	PictureID *string          `db:"picture_id"`
	CreatedBy *int64           `db:"created_by"`
	CreatedAt time.Time        `db:"created_at"`
	UpdatedAt time.Time        `db:"updated_at"`
	DeletedAt *time.Time       `db:"deleted_at"`
}

// MembershipEvent is one row of the append-only participant ledger. The
// current membership state of a (conversation, user) pair is its latest row.
// Rows are never rewritten; leaving and being re-added appends new rows. The
// one exception is the admin-succession promotion, which flips is_admin on the
// candidate's latest row under a no-active-admin condition.
type MembershipEvent struct {
	ID             int64            `db:"id"`
	ConversationID int64            `db:"conversation_id"`
	UserID         int64            `db:"user_id"`
	IsAdmin        bool             `db:"is_admin"`
	IsMuted        bool             `db:"is_muted"`
	Event          ParticipantEvent `db:"event"`
	PerformedBy    int64            `db:"performed_by"`
	CreatedAt      time.Time        `db:"created_at"`
}

// Message represents a single chat message. Content is stored encrypted.
type Message struct {
	ID             int64       `db:"id"`
	ConversationID int64       `db:"conversation_id"`
	SenderID       int64       `db:"sender_id"`
	Content        *string     `db:"content"`
	Type           MessageType `db:"type"`
	AffectedUserID *int64      `db:"affected_user_id"`
	IsEdited       bool        `db:"is_edited"`
	EditedAt       *time.Time  `db:"edited_at"`
	ParentID       *int64      `db:"parent_id"`
	UnsentAt       *time.Time  `db:"unsent_at"`
	DeletedAt      *time.Time  `db:"deleted_at"`
	CreatedAt      time.Time   `db:"created_at"`
}

// MessageDeletion is a per-user tombstone hiding a message from one user only.
type MessageDeletion struct {
	MessageID int64     `db:"message_id"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// MessageReaction is unique per (message, user); re-reacting overwrites Type.
type MessageReaction struct {
	MessageID int64        `db:"message_id"`
	UserID    int64        `db:"user_id"`
	Type      ReactionType `db:"type"`
	CreatedAt time.Time    `db:"created_at"`
}

// PinnedMessage marks a message as pinned; at most one row per message.
type PinnedMessage struct {
	MessageID int64     `db:"message_id"`
	PinnedBy  int64     `db:"pinned_by"`
	CreatedAt time.Time `db:"created_at"`
}

// MessageReadStatus is an idempotent seen marker per (message, user).
type MessageReadStatus struct {
	MessageID int64     `db:"message_id"`
	UserID    int64     `db:"user_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Media is a pre-uploaded file descriptor resolvable to a display URL.
type Media struct {
	ID       string `db:"id" json:"id"`
	UserID   int64  `db:"user_id" json:"-"`
	FileName string `db:"file_name" json:"file_name"`
	MimeType string `db:"mime_type" json:"mime_type"`
	URL      string `db:"url" json:"url"`
}

// Chhimek is an edge of the mutual-acceptance connection graph.
type Chhimek struct {
	FromUserID int64         `db:"from_user_id"`
	ToUserID   int64         `db:"to_user_id"`
	Status     ChhimekStatus `db:"status"`
}

// BlockedUser is a directed edge of the block graph; a block in either
// direction vetoes messaging and group invitations.
type BlockedUser struct {
	UserID        int64 `db:"user_id"`
	BlockedUserID int64 `db:"blocked_user_id"`
}
