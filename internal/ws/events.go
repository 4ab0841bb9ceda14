package ws

import (
	"encoding/json"

	"chatengine/internal/domain"
)

// Event names. Most are symmetric: the client sends them and the server fans
// the outcome back out under the same name.
const (
	EventMessage                 = "message"
	EventMessageSeen             = "message_seen"
	EventTyping                  = "typing"
	EventStoppedTyping           = "stopped_typing"
	EventEditMessage             = "edit_message"
	EventUnsendMessage           = "unsend_message"
	EventDeleteMessage           = "delete_message"
	EventPinMessage              = "pin_message"
	EventUnpinMessage            = "unpin_message"
	EventReactMessage            = "react_message"
	EventRemoveReaction          = "remove_message_reaction"
	EventCreateConversation      = "create_conversation"
	EventJoinConversation        = "join_conversation"
	EventAddMember               = "add_conversation_member"
	EventRemoveMember            = "remove_conversation_member"
	EventLeaveConversation       = "leave_conversation"
	EventUpdateConversationName  = "update_conversation_name"
	EventUpdateConversationImage = "update_conversation_image"
	EventUserOnline              = "user_online"
	EventUserOffline             = "user_offline"
	EventCustomError             = "custom_error"
)

// Envelope is the wire frame for every event in both directions.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// decodeData unmarshals an envelope body into v. Some clients send the body
// as a JSON-encoded string rather than an object; both shapes are accepted.
func decodeData(raw json.RawMessage, v any) error {
	if len(raw) == 0 {
		return domain.BadRequest("missing event data")
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return domain.BadRequest("malformed event data")
		}
		raw = json.RawMessage(s)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return domain.BadRequest("malformed event data")
	}
	return nil
}

func envelope(event string, data any) *Envelope {
	raw, _ := json.Marshal(data)
	return &Envelope{Event: event, Data: raw}
}

// Inbound payloads.

type messagePayload struct {
	ConversationID string   `json:"conversationId"`
	Content        string   `json:"content"`
	ParentID       *int64   `json:"parentId,omitempty"`
	Medias         []string `json:"medias,omitempty"`
}

type messageRefPayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      int64  `json:"messageId"`
}

type editMessagePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      int64  `json:"messageId"`
	Content        string `json:"content"`
}

type reactMessagePayload struct {
	ConversationID string `json:"conversationId"`
	MessageID      int64  `json:"messageId"`
	ReactionType   string `json:"reactionType"`
}

type conversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type createConversationPayload struct {
	Name         *string `json:"name,omitempty"`
	Participants []int64 `json:"participants"`
	MediaID      *string `json:"mediaId,omitempty"`
}

type memberChangePayload struct {
	ConversationID string  `json:"conversationId"`
	Participants   []int64 `json:"participants"`
}

type updateNamePayload struct {
	ConversationID string `json:"conversationId"`
	Name           string `json:"name"`
}

type updateImagePayload struct {
	ConversationID string `json:"conversationId"`
	MediaID        string `json:"mediaId"`
}

// Outbound payloads.

// UserSummary is the acting user's identity attached to fan-out events.
type UserSummary struct {
	ID       int64   `json:"id"`
	Username string  `json:"username"`
	FullName string  `json:"full_name"`
	Avatar   *string `json:"avatar_url,omitempty"`
}

func summarize(u *domain.User) UserSummary {
	return UserSummary{
		ID:       u.ID,
		Username: u.Username,
		FullName: u.FullName,
		Avatar:   u.AvatarURL,
	}
}

type presencePayload struct {
	User UserSummary `json:"user"`
}

type typingPayload struct {
	ConversationID string      `json:"conversation_id"`
	User           UserSummary `json:"user"`
}

type seenPayload struct {
	ConversationID string      `json:"conversation_id"`
	MessageID      int64       `json:"message_id"`
	User           UserSummary `json:"user"`
}

type reactionPayload struct {
	ConversationID string      `json:"conversation_id"`
	MessageID      int64       `json:"message_id"`
	ReactionType   string      `json:"reaction_type,omitempty"`
	User           UserSummary `json:"user"`
}

type pinPayload struct {
	ConversationID string      `json:"conversation_id"`
	MessageID      int64       `json:"message_id"`
	User           UserSummary `json:"user"`
}

type conversationView struct {
	ID        string  `json:"id"`
	Type      string  `json:"type"`
	Name      *string `json:"name,omitempty"`
	PictureID *string `json:"picture_id,omitempty"`
}

func viewConversation(c *domain.Conversation) conversationView {
	return conversationView{
		ID:        c.PublicID,
		Type:      string(c.Type),
		Name:      c.Name,
		PictureID: c.PictureID,
	}
}

type membershipPayload struct {
	Conversation   conversationView `json:"conversation"`
	UserIDs        []int64          `json:"user_ids,omitempty"`
	Actor          UserSummary      `json:"actor"`
	PromotedUserID *int64           `json:"promoted_user_id,omitempty"`
}
