package service

import (
	"context"
	"fmt"
	"time"

	"chatengine/internal/domain"
	"chatengine/internal/security"
)

// MessageService owns the message lifecycle: send, edit, unsend, per-user
// delete, reactions, pins and seen markers. Content is encrypted at rest and
// decrypted only when building the client view.
type MessageService struct {
	conversations *ConversationService
	memberships   domain.MembershipRepository
	messages      domain.MessageRepository
	deletions     domain.MessageDeletionRepository
	reactions     domain.ReactionRepository
	pins          domain.PinRepository
	readStatuses  domain.ReadStatusRepository
	graph         domain.GraphRepository
	media         domain.MediaRepository
	encryptor     *security.Encryptor

	EditWindow      time.Duration
	MaxMessageChars int
}

func NewMessageService(
	conversations *ConversationService,
	memberships domain.MembershipRepository,
	messages domain.MessageRepository,
	deletions domain.MessageDeletionRepository,
	reactions domain.ReactionRepository,
	pins domain.PinRepository,
	readStatuses domain.ReadStatusRepository,
	graph domain.GraphRepository,
	media domain.MediaRepository,
	encryptor *security.Encryptor,
	editWindow time.Duration,
	maxMessageChars int,
) *MessageService {
	return &MessageService{
		conversations:   conversations,
		memberships:     memberships,
		messages:        messages,
		deletions:       deletions,
		reactions:       reactions,
		pins:            pins,
		readStatuses:    readStatuses,
		graph:           graph,
		media:           media,
		encryptor:       encryptor,
		EditWindow:      editWindow,
		MaxMessageChars: maxMessageChars,
	}
}

type SendInput struct {
	ConversationID string
	Content        string
	ParentID       *int64
	MediaIDs       []string
}

// SendResult is the stored message plus its client view.
type SendResult struct {
	Conversation *domain.Conversation
	Message      *domain.Message
	View         *MessageView
}

// Send stores a message in a conversation the sender currently belongs to.
// In private conversations a block in either direction between the two
// participants vetoes the send.
func (s *MessageService) Send(ctx context.Context, in SendInput, senderID int64) (*SendResult, error) {
	conv, _, err := s.conversations.Authorize(ctx, in.ConversationID, senderID)
	if err != nil {
		return nil, err
	}
	if len([]rune(in.Content)) > s.MaxMessageChars {
		return nil, domain.BadRequest(fmt.Sprintf("message content exceeds %d characters", s.MaxMessageChars))
	}
	if in.Content == "" && len(in.MediaIDs) == 0 {
		return nil, domain.BadRequest("message content cannot be empty")
	}

	if conv.Type == domain.ConversationPrivate {
		other, err := s.memberships.OtherActiveUserID(ctx, conv.ID, senderID)
		if err != nil {
			return nil, fmt.Errorf("other participant: %w", err)
		}
		if other != 0 {
			blocked, err := s.graph.IsBlockedEither(ctx, senderID, other)
			if err != nil {
				return nil, fmt.Errorf("check block: %w", err)
			}
			if blocked {
				return nil, domain.Forbidden("you cannot message this user")
			}
		}
	}

	var attached []*domain.Media
	for _, mediaID := range in.MediaIDs {
		m, err := s.media.GetForUser(ctx, mediaID, senderID)
		if err != nil {
			return nil, fmt.Errorf("get media: %w", err)
		}
		if m == nil {
			return nil, domain.NotFound("media not found")
		}
		attached = append(attached, m)
	}

	if in.ParentID != nil {
		parent, err := s.messages.GetByID(ctx, *in.ParentID, conv.ID)
		if err != nil {
			return nil, fmt.Errorf("get parent message: %w", err)
		}
		if parent == nil {
			return nil, domain.NotFound("parent message not found")
		}
	}

	msg := &domain.Message{
		ConversationID: conv.ID,
		SenderID:       senderID,
		Type:           domain.MessageRegular,
		ParentID:       in.ParentID,
	}
	if in.Content != "" {
		encrypted, err := s.encryptor.Encrypt(in.Content)
		if err != nil {
			return nil, fmt.Errorf("encrypt content: %w", err)
		}
		msg.Content = &encrypted
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, err
	}
	if err := s.media.AttachToMessage(ctx, msg.ID, in.MediaIDs); err != nil {
		return nil, fmt.Errorf("attach media: %w", err)
	}

	view := s.toView(conv.PublicID, msg, attached)
	view.Content = in.Content
	return &SendResult{Conversation: conv, Message: msg, View: view}, nil
}

// Edit rewrites a message's content. Only the sender may edit, only once, and
// only within the edit window of the original send.
func (s *MessageService) Edit(ctx context.Context, conversationID string, messageID int64, content string, callerID int64) (*SendResult, error) {
	conv, msg, err := s.authorizeMessage(ctx, conversationID, messageID, callerID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != callerID {
		return nil, domain.Forbidden("only the sender can edit a message")
	}
	if msg.UnsentAt != nil || msg.DeletedAt != nil {
		return nil, domain.Conflict("message is no longer editable")
	}
	if tombstoned, err := s.deletions.Exists(ctx, msg.ID, callerID); err != nil {
		return nil, fmt.Errorf("deletion exists: %w", err)
	} else if tombstoned {
		return nil, domain.Conflict("message is no longer editable")
	}
	if msg.IsEdited {
		return nil, domain.Conflict("message has already been edited")
	}
	if time.Since(msg.CreatedAt) > s.EditWindow {
		return nil, domain.Conflict("the edit window has passed")
	}
	if content == "" {
		return nil, domain.BadRequest("message content cannot be empty")
	}
	if len([]rune(content)) > s.MaxMessageChars {
		return nil, domain.BadRequest(fmt.Sprintf("message content exceeds %d characters", s.MaxMessageChars))
	}

	encrypted, err := s.encryptor.Encrypt(content)
	if err != nil {
		return nil, fmt.Errorf("encrypt content: %w", err)
	}
	now := time.Now()
	if err := s.messages.SetEdited(ctx, msg.ID, encrypted, now); err != nil {
		return nil, err
	}
	msg.Content = &encrypted
	msg.IsEdited = true
	msg.EditedAt = &now

	view := s.toView(conv.PublicID, msg, nil)
	view.Content = content
	return &SendResult{Conversation: conv, Message: msg, View: view}, nil
}

// Unsend retracts a message for everyone. Sender only; a message already
// unsent or deleted conflicts.
func (s *MessageService) Unsend(ctx context.Context, conversationID string, messageID, callerID int64) (*SendResult, error) {
	conv, msg, err := s.authorizeMessage(ctx, conversationID, messageID, callerID)
	if err != nil {
		return nil, err
	}
	if msg.SenderID != callerID {
		return nil, domain.Forbidden("only the sender can unsend a message")
	}
	if msg.UnsentAt != nil || msg.DeletedAt != nil {
		return nil, domain.Conflict("message is already gone")
	}
	if tombstoned, err := s.deletions.Exists(ctx, msg.ID, callerID); err != nil {
		return nil, fmt.Errorf("deletion exists: %w", err)
	} else if tombstoned {
		return nil, domain.Conflict("message is already gone")
	}

	now := time.Now()
	if err := s.messages.SetUnsent(ctx, msg.ID, now); err != nil {
		return nil, err
	}
	msg.Content = nil
	msg.UnsentAt = &now

	return &SendResult{Conversation: conv, Message: msg, View: s.toView(conv.PublicID, msg, nil)}, nil
}

// DeleteForUser hides a message from the caller only, via a tombstone row.
// A second delete of the same message conflicts.
func (s *MessageService) DeleteForUser(ctx context.Context, conversationID string, messageID, callerID int64) (*SendResult, error) {
	conv, msg, err := s.authorizeMessage(ctx, conversationID, messageID, callerID)
	if err != nil {
		return nil, err
	}
	exists, err := s.deletions.Exists(ctx, msg.ID, callerID)
	if err != nil {
		return nil, fmt.Errorf("deletion exists: %w", err)
	}
	if exists {
		return nil, domain.Conflict("message is already deleted")
	}
	if err := s.deletions.Create(ctx, msg.ID, callerID); err != nil {
		return nil, fmt.Errorf("create deletion: %w", err)
	}
	return &SendResult{Conversation: conv, Message: msg, View: s.toView(conv.PublicID, msg, nil)}, nil
}

// React sets the caller's reaction on a message, replacing any previous one.
func (s *MessageService) React(ctx context.Context, conversationID string, messageID, callerID int64, t domain.ReactionType) (*SendResult, error) {
	if !domain.ValidReaction(t) {
		return nil, domain.BadRequest("unknown reaction type")
	}
	conv, msg, err := s.authorizeMessage(ctx, conversationID, messageID, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.reactions.Upsert(ctx, msg.ID, callerID, t); err != nil {
		return nil, err
	}
	return &SendResult{Conversation: conv, Message: msg, View: s.toView(conv.PublicID, msg, nil)}, nil
}

// RemoveReaction clears the caller's reaction on a message.
func (s *MessageService) RemoveReaction(ctx context.Context, conversationID string, messageID, callerID int64) (*SendResult, error) {
	conv, msg, err := s.authorizeMessage(ctx, conversationID, messageID, callerID)
	if err != nil {
		return nil, err
	}
	if err := s.reactions.Delete(ctx, msg.ID, callerID); err != nil {
		return nil, err
	}
	return &SendResult{Conversation: conv, Message: msg, View: s.toView(conv.PublicID, msg, nil)}, nil
}

// TogglePin pins an unpinned message and unpins a pinned one. Any current
// participant may toggle; reports the resulting state.
func (s *MessageService) TogglePin(ctx context.Context, conversationID string, messageID, callerID int64) (*SendResult, bool, error) {
	conv, msg, err := s.authorizeMessage(ctx, conversationID, messageID, callerID)
	if err != nil {
		return nil, false, err
	}
	existing, err := s.pins.Get(ctx, msg.ID)
	if err != nil {
		return nil, false, fmt.Errorf("get pin: %w", err)
	}
	res := &SendResult{Conversation: conv, Message: msg, View: s.toView(conv.PublicID, msg, nil)}
	if existing != nil {
		if err := s.pins.Delete(ctx, msg.ID); err != nil {
			return nil, false, err
		}
		return res, false, nil
	}
	if err := s.pins.Create(ctx, msg.ID, callerID); err != nil {
		return nil, false, err
	}
	return res, true, nil
}

// SeenResult reports whether a seen marker was newly created and whether the
// viewer is the message's own sender.
type SeenResult struct {
	Conversation   *domain.Conversation
	Message        *domain.Message
	Created        bool
	ViewerIsSender bool
}

// MarkSeen records that the caller has seen a message. Idempotent.
func (s *MessageService) MarkSeen(ctx context.Context, conversationID string, messageID, callerID int64) (*SeenResult, error) {
	conv, msg, err := s.authorizeMessage(ctx, conversationID, messageID, callerID)
	if err != nil {
		return nil, err
	}
	created, err := s.readStatuses.FindOrCreate(ctx, msg.ID, callerID)
	if err != nil {
		return nil, err
	}
	return &SeenResult{
		Conversation:   conv,
		Message:        msg,
		Created:        created,
		ViewerIsSender: msg.SenderID == callerID,
	}, nil
}

func (s *MessageService) authorizeMessage(ctx context.Context, conversationID string, messageID, callerID int64) (*domain.Conversation, *domain.Message, error) {
	conv, _, err := s.conversations.Authorize(ctx, conversationID, callerID)
	if err != nil {
		return nil, nil, err
	}
	msg, err := s.messages.GetByID(ctx, messageID, conv.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("get message: %w", err)
	}
	if msg == nil {
		return nil, nil, domain.NotFound("message not found")
	}
	return conv, msg, nil
}

// MessageView is the wire shape of a message. Content is plaintext here; the
// stored ciphertext never leaves the service.
type MessageView struct {
	ID             int64           `json:"id"`
	ConversationID string          `json:"conversation_id"`
	SenderID       int64           `json:"sender_id"`
	Content        string          `json:"content,omitempty"`
	Type           string          `json:"type"`
	AffectedUserID *int64          `json:"affected_user_id,omitempty"`
	ParentID       *int64          `json:"parent_id,omitempty"`
	IsEdited       bool            `json:"is_edited"`
	IsUnsent       bool            `json:"is_unsent"`
	Media          []*domain.Media `json:"media,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

func (s *MessageService) toView(conversationPublicID string, m *domain.Message, media []*domain.Media) *MessageView {
	v := &MessageView{
		ID:             m.ID,
		ConversationID: conversationPublicID,
		SenderID:       m.SenderID,
		Type:           string(m.Type),
		AffectedUserID: m.AffectedUserID,
		ParentID:       m.ParentID,
		IsEdited:       m.IsEdited,
		IsUnsent:       m.UnsentAt != nil,
		Media:          media,
		CreatedAt:      m.CreatedAt,
	}
	if m.Content != nil && m.UnsentAt == nil {
		if dec, err := s.encryptor.Decrypt(*m.Content); err == nil {
			v.Content = dec
		}
	}
	return v
}

// ToView hydrates a stored message into its wire shape, loading attachments.
func (s *MessageService) ToView(ctx context.Context, conversationPublicID string, m *domain.Message) (*MessageView, error) {
	media, err := s.media.ListForMessage(ctx, m.ID)
	if err != nil {
		return nil, fmt.Errorf("list message media: %w", err)
	}
	return s.toView(conversationPublicID, m, media), nil
}
