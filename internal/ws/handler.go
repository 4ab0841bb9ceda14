package ws

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"chatengine/internal/domain"
	"chatengine/internal/service"
)

func normalizeAllowedOrigins(origins []string) map[string]struct{} {
	res := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		o := strings.TrimSpace(strings.ToLower(origin))
		if o != "" {
			res[o] = struct{}{}
		}
	}
	return res
}

func makeCheckOrigin(allowedOrigins []string) func(r *http.Request) bool {
	allowed := normalizeAllowedOrigins(allowedOrigins)
	if len(allowed) == 0 {
		return func(r *http.Request) bool {
			return false
		}
	}

	return func(r *http.Request) bool {
		origin := strings.TrimSpace(strings.ToLower(r.Header.Get("Origin")))
		if origin == "" {
			return false
		}
		if _, ok := allowed[origin]; ok {
			return true
		}

		u, err := url.Parse(origin)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return false
		}
		normalized := strings.ToLower(fmt.Sprintf("%s://%s", u.Scheme, u.Host))
		_, ok := allowed[normalized]
		return ok
	}
}

func extractTokenFromWSRequest(r *http.Request) (string, error) {
	authHeader := strings.TrimSpace(r.Header.Get("Authorization"))
	if strings.HasPrefix(strings.ToLower(authHeader), "bearer ") {
		token := strings.TrimSpace(authHeader[len("Bearer "):])
		if token != "" {
			return token, nil
		}
	}

	protocolHeader := r.Header.Get("Sec-WebSocket-Protocol")
	if protocolHeader != "" {
		parts := strings.Split(protocolHeader, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		if len(parts) >= 2 && strings.EqualFold(parts[0], "bearer") {
			token := parts[1]
			if token != "" {
				return token, nil
			}
		}
	}

	return "", domain.Unauthorized("missing bearer token")
}

// MakeHandler returns the HTTP handler for the /ws endpoint. The handshake
// authenticates via bearer token (Authorization header or
// Sec-WebSocket-Protocol), registers the connection with the session store,
// rejoins the caller's conversation rooms, then dispatches events off a
// single read loop. Every handler failure is normalized into a custom_error
// frame at this boundary.
func MakeHandler(
	hub *Hub,
	gate *service.GateService,
	sessions *service.SessionService,
	convSvc *service.ConversationService,
	msgSvc *service.MessageService,
	allowedOrigins []string,
	log *zap.SugaredLogger,
) http.HandlerFunc {
	checkOrigin := makeCheckOrigin(allowedOrigins)
	upgrader := websocket.Upgrader{
		CheckOrigin: checkOrigin,
		Subprotocols: []string{
			"bearer",
		},
	}
	d := &dispatcher{
		hub:   hub,
		convs: convSvc,
		msgs:  msgSvc,
		log:   log,
	}

	return func(w http.ResponseWriter, r *http.Request) {
		if !checkOrigin(r) {
			http.Error(w, "origin not allowed", http.StatusForbidden)
			return
		}

		tokenStr, err := extractTokenFromWSRequest(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		user, err := gate.Authenticate(ctx, tokenStr)
		if err != nil {
			if !errors.Is(err, domain.ErrUnauthorized) {
				log.Errorw("ws handshake", "error", err)
			}
			http.Error(w, "authentication failed", http.StatusUnauthorized)
			return
		}

		sock, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conn := NewConn(uuid.NewString(), user.ID, sock)
		defer sock.Close()

		hub.Register(conn)
		res, err := sessions.Connect(ctx, conn.ID, user.ID)
		if err != nil {
			log.Errorw("ws connect", "user_id", user.ID, "error", err)
			hub.Unregister(conn)
			return
		}
		for _, room := range res.RoomIDs {
			hub.JoinRoom(room, conn)
		}
		if res.WentOnline {
			hub.BroadcastAll(envelope(EventUserOnline, presencePayload{User: summarize(user)}))
		}

		defer func() {
			hub.Unregister(conn)
			wentOffline, err := sessions.Disconnect(context.Background(), conn.ID, user.ID)
			if err != nil {
				log.Errorw("ws disconnect", "user_id", user.ID, "error", err)
				return
			}
			if wentOffline {
				hub.BroadcastAll(envelope(EventUserOffline, presencePayload{User: summarize(user)}))
			}
		}()

		for {
			var env Envelope
			if err := sock.ReadJSON(&env); err != nil {
				break
			}
			if err := d.dispatch(ctx, conn, user, &env); err != nil {
				d.sendError(conn, user, env.Event, err)
			}
		}
	}
}

type dispatcher struct {
	hub   *Hub
	convs *service.ConversationService
	msgs  *service.MessageService
	log   *zap.SugaredLogger
}

func (d *dispatcher) dispatch(ctx context.Context, conn *Conn, user *domain.User, env *Envelope) error {
	switch env.Event {
	case EventJoinConversation:
		return d.handleJoin(ctx, conn, user, env)
	case EventMessage:
		return d.handleMessage(ctx, user, env)
	case EventMessageSeen:
		return d.handleSeen(ctx, conn, user, env)
	case EventTyping, EventStoppedTyping:
		return d.handleTyping(ctx, conn, user, env)
	case EventEditMessage:
		return d.handleEdit(ctx, user, env)
	case EventUnsendMessage:
		return d.handleUnsend(ctx, user, env)
	case EventDeleteMessage:
		return d.handleDelete(ctx, user, env)
	case EventPinMessage:
		return d.handlePin(ctx, user, env)
	case EventReactMessage:
		return d.handleReact(ctx, user, env)
	case EventRemoveReaction:
		return d.handleRemoveReaction(ctx, user, env)
	case EventCreateConversation:
		return d.handleCreateConversation(ctx, user, env)
	case EventAddMember:
		return d.handleAddMembers(ctx, user, env)
	case EventRemoveMember:
		return d.handleRemoveMembers(ctx, user, env)
	case EventLeaveConversation:
		return d.handleLeave(ctx, user, env)
	case EventUpdateConversationName:
		return d.handleUpdateName(ctx, user, env)
	case EventUpdateConversationImage:
		return d.handleUpdateImage(ctx, user, env)
	default:
		return domain.BadRequest(fmt.Sprintf("unknown event %q", env.Event))
	}
}

// sendError normalizes a handler failure into a custom_error frame. Anything
// that is not a client-visible error is logged and reported as a 500 with the
// real message withheld.
func (d *dispatcher) sendError(conn *Conn, user *domain.User, event string, err error) {
	var appErr *domain.Error
	if !errors.As(err, &appErr) {
		d.log.Errorw("ws event failed", "event", event, "user_id", user.ID, "error", err)
		appErr = &domain.Error{Status: 500, Message: "something went wrong"}
	}
	conn.WriteJSON(envelope(EventCustomError, appErr))
}

func (d *dispatcher) handleJoin(ctx context.Context, conn *Conn, user *domain.User, env *Envelope) error {
	var p conversationPayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	conv, _, err := d.convs.Authorize(ctx, p.ConversationID, user.ID)
	if err != nil {
		return err
	}
	d.hub.JoinRoom(conv.PublicID, conn)
	return nil
}

type messageOut struct {
	Message *service.MessageView `json:"message"`
	Sender  UserSummary          `json:"sender"`
}

func (d *dispatcher) handleMessage(ctx context.Context, user *domain.User, env *Envelope) error {
	var p messagePayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.msgs.Send(ctx, service.SendInput{
		ConversationID: p.ConversationID,
		Content:        p.Content,
		ParentID:       p.ParentID,
		MediaIDs:       p.Medias,
	}, user.ID)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID,
		envelope(EventMessage, messageOut{Message: res.View, Sender: summarize(user)}))
	return nil
}

func (d *dispatcher) handleSeen(ctx context.Context, conn *Conn, user *domain.User, env *Envelope) error {
	var p messageRefPayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.msgs.MarkSeen(ctx, p.ConversationID, p.MessageID, user.ID)
	if err != nil {
		return err
	}
	if res.Created && !res.ViewerIsSender {
		d.hub.BroadcastToRoomExcept(res.Conversation.PublicID, conn,
			envelope(EventMessageSeen, seenPayload{
				ConversationID: res.Conversation.PublicID,
				MessageID:      p.MessageID,
				User:           summarize(user),
			}))
	}
	return nil
}

func (d *dispatcher) handleTyping(ctx context.Context, conn *Conn, user *domain.User, env *Envelope) error {
	var p conversationPayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	conv, _, err := d.convs.Authorize(ctx, p.ConversationID, user.ID)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoomExcept(conv.PublicID, conn,
		envelope(env.Event, typingPayload{
			ConversationID: conv.PublicID,
			User:           summarize(user),
		}))
	return nil
}

func (d *dispatcher) handleEdit(ctx context.Context, user *domain.User, env *Envelope) error {
	var p editMessagePayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.msgs.Edit(ctx, p.ConversationID, p.MessageID, p.Content, user.ID)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID,
		envelope(EventEditMessage, messageOut{Message: res.View, Sender: summarize(user)}))
	return nil
}

func (d *dispatcher) handleUnsend(ctx context.Context, user *domain.User, env *Envelope) error {
	var p messageRefPayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.msgs.Unsend(ctx, p.ConversationID, p.MessageID, user.ID)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID,
		envelope(EventUnsendMessage, messageOut{Message: res.View, Sender: summarize(user)}))
	return nil
}

func (d *dispatcher) handleDelete(ctx context.Context, user *domain.User, env *Envelope) error {
	var p messageRefPayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.msgs.DeleteForUser(ctx, p.ConversationID, p.MessageID, user.ID)
	if err != nil {
		return err
	}
	// Per-user tombstone: only the caller's own devices learn about it.
	d.hub.BroadcastToUsers([]int64{user.ID},
		envelope(EventDeleteMessage, messageRefPayload{
			ConversationID: res.Conversation.PublicID,
			MessageID:      p.MessageID,
		}))
	return nil
}

func (d *dispatcher) handlePin(ctx context.Context, user *domain.User, env *Envelope) error {
	var p messageRefPayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, pinned, err := d.msgs.TogglePin(ctx, p.ConversationID, p.MessageID, user.ID)
	if err != nil {
		return err
	}
	event := EventUnpinMessage
	if pinned {
		event = EventPinMessage
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID,
		envelope(event, pinPayload{
			ConversationID: res.Conversation.PublicID,
			MessageID:      p.MessageID,
			User:           summarize(user),
		}))
	return nil
}

func (d *dispatcher) handleReact(ctx context.Context, user *domain.User, env *Envelope) error {
	var p reactMessagePayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.msgs.React(ctx, p.ConversationID, p.MessageID, user.ID, domain.ReactionType(p.ReactionType))
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID,
		envelope(EventReactMessage, reactionPayload{
			ConversationID: res.Conversation.PublicID,
			MessageID:      p.MessageID,
			ReactionType:   p.ReactionType,
			User:           summarize(user),
		}))
	return nil
}

func (d *dispatcher) handleRemoveReaction(ctx context.Context, user *domain.User, env *Envelope) error {
	var p messageRefPayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.msgs.RemoveReaction(ctx, p.ConversationID, p.MessageID, user.ID)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID,
		envelope(EventRemoveReaction, reactionPayload{
			ConversationID: res.Conversation.PublicID,
			MessageID:      p.MessageID,
			User:           summarize(user),
		}))
	return nil
}

func (d *dispatcher) handleCreateConversation(ctx context.Context, user *domain.User, env *Envelope) error {
	var p createConversationPayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.convs.CreateGroup(ctx, service.CreateGroupInput{
		Name:           p.Name,
		ParticipantIDs: p.Participants,
		PictureID:      p.MediaID,
	}, user.ID)
	if err != nil {
		return err
	}
	d.hub.JoinRoomUsers(res.Conversation.PublicID, res.MemberIDs)
	d.hub.BroadcastToUsers(res.MemberIDs,
		envelope(EventCreateConversation, membershipPayload{
			Conversation: viewConversation(res.Conversation),
			UserIDs:      res.MemberIDs,
			Actor:        summarize(user),
		}))
	return nil
}

func (d *dispatcher) handleAddMembers(ctx context.Context, user *domain.User, env *Envelope) error {
	var p memberChangePayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.convs.AddMembers(ctx, p.ConversationID, user.ID, p.Participants)
	if err != nil {
		return err
	}
	d.hub.JoinRoomUsers(res.Conversation.PublicID, res.AffectedUserIDs)
	d.hub.BroadcastToUsers(res.NotifyUserIDs,
		envelope(EventJoinConversation, membershipPayload{
			Conversation: viewConversation(res.Conversation),
			UserIDs:      res.AffectedUserIDs,
			Actor:        summarize(user),
		}))
	return nil
}

func (d *dispatcher) handleRemoveMembers(ctx context.Context, user *domain.User, env *Envelope) error {
	var p memberChangePayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.convs.RemoveMembers(ctx, p.ConversationID, user.ID, p.Participants)
	if err != nil {
		return err
	}
	payload := envelope(EventRemoveMember, membershipPayload{
		Conversation: viewConversation(res.Conversation),
		UserIDs:      res.AffectedUserIDs,
		Actor:        summarize(user),
	})
	// Tell the removed users first; their connections leave the room after.
	d.hub.BroadcastToUsers(res.AffectedUserIDs, payload)
	for _, uid := range res.AffectedUserIDs {
		d.hub.LeaveRoomUser(res.Conversation.PublicID, uid)
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID, payload)
	return nil
}

func (d *dispatcher) handleLeave(ctx context.Context, user *domain.User, env *Envelope) error {
	var p conversationPayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.convs.Leave(ctx, p.ConversationID, user.ID)
	if err != nil {
		return err
	}
	d.hub.LeaveRoomUser(res.Conversation.PublicID, user.ID)
	out := membershipPayload{
		Conversation: viewConversation(res.Conversation),
		UserIDs:      []int64{user.ID},
		Actor:        summarize(user),
	}
	if res.PromotedUserID != 0 {
		out.PromotedUserID = &res.PromotedUserID
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID, envelope(EventLeaveConversation, out))
	return nil
}

func (d *dispatcher) handleUpdateName(ctx context.Context, user *domain.User, env *Envelope) error {
	var p updateNamePayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.convs.UpdateName(ctx, p.ConversationID, user.ID, p.Name)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID,
		envelope(EventUpdateConversationName, membershipPayload{
			Conversation: viewConversation(res.Conversation),
			Actor:        summarize(user),
		}))
	return nil
}

func (d *dispatcher) handleUpdateImage(ctx context.Context, user *domain.User, env *Envelope) error {
	var p updateImagePayload
	if err := decodeData(env.Data, &p); err != nil {
		return err
	}
	res, err := d.convs.UpdateImage(ctx, p.ConversationID, user.ID, p.MediaID)
	if err != nil {
		return err
	}
	d.hub.BroadcastToRoom(res.Conversation.PublicID,
		envelope(EventUpdateConversationImage, membershipPayload{
			Conversation: viewConversation(res.Conversation),
			Actor:        summarize(user),
		}))
	return nil
}
