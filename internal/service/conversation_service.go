package service

import (
	"context"
	"fmt"
	"regexp"

	"github.com/google/uuid"

	"chatengine/internal/domain"
)

var groupNameRe = regexp.MustCompile(`^[a-zA-Z0-9 ]{3,30}$`)

// ConversationService owns conversation access checks and the membership
// lifecycle. All membership state lives in the append-only ledger; this
// service appends rows and reads the derived latest-row views.
type ConversationService struct {
	conversations domain.ConversationRepository
	memberships   domain.MembershipRepository
	messages      domain.MessageRepository
	graph         domain.GraphRepository
	media         domain.MediaRepository

	MinGroupMembers int
}

func NewConversationService(
	conversations domain.ConversationRepository,
	memberships domain.MembershipRepository,
	messages domain.MessageRepository,
	graph domain.GraphRepository,
	media domain.MediaRepository,
	minGroupMembers int,
) *ConversationService {
	return &ConversationService{
		conversations:   conversations,
		memberships:     memberships,
		messages:        messages,
		graph:           graph,
		media:           media,
		MinGroupMembers: minGroupMembers,
	}
}

// Authorize resolves a conversation by its public id and verifies the caller
// is a current participant. Every conversation-scoped operation starts here.
func (s *ConversationService) Authorize(ctx context.Context, publicID string, userID int64) (*domain.Conversation, *domain.MembershipEvent, error) {
	conv, err := s.conversations.GetByPublicID(ctx, publicID)
	if err != nil {
		return nil, nil, fmt.Errorf("get conversation: %w", err)
	}
	if conv == nil || conv.DeletedAt != nil {
		return nil, nil, domain.NotFound("conversation not found")
	}
	m, err := s.memberships.LatestForUser(ctx, conv.ID, userID)
	if err != nil {
		return nil, nil, fmt.Errorf("latest membership: %w", err)
	}
	if m == nil {
		return nil, nil, domain.NotFound("conversation not found")
	}
	if !m.Event.Active() {
		return nil, nil, domain.Forbidden("already left this conversation")
	}
	return conv, m, nil
}

type CreateGroupInput struct {
	Name           *string
	ParticipantIDs []int64
	PictureID      *string
}

// CreateGroupResult carries everything the dispatcher needs to announce a new
// group: the conversation, the full member list, and the audit messages.
type CreateGroupResult struct {
	Conversation *domain.Conversation
	MemberIDs    []int64
	Messages     []*domain.Message
}

// CreateGroup creates a group conversation. Invitees must hold an accepted
// connection with the creator and no block in either direction; ineligible
// candidates are dropped silently. The group must end up with at least
// MinGroupMembers members, creator included.
func (s *ConversationService) CreateGroup(ctx context.Context, in CreateGroupInput, creatorID int64) (*CreateGroupResult, error) {
	if in.Name != nil && !groupNameRe.MatchString(*in.Name) {
		return nil, domain.BadRequest("group name must be 3 to 30 letters, digits or spaces")
	}
	if in.PictureID != nil {
		m, err := s.media.GetForUser(ctx, *in.PictureID, creatorID)
		if err != nil {
			return nil, fmt.Errorf("get media: %w", err)
		}
		if m == nil {
			return nil, domain.NotFound("media not found")
		}
	}

	candidates := dedupe(in.ParticipantIDs, creatorID)
	eligible, err := s.graph.EligibleInvitees(ctx, creatorID, candidates)
	if err != nil {
		return nil, fmt.Errorf("filter invitees: %w", err)
	}
	memberIDs := append([]int64{creatorID}, eligible...)
	if len(memberIDs) < s.MinGroupMembers {
		return nil, domain.BadRequest(fmt.Sprintf("a group needs at least %d members", s.MinGroupMembers))
	}

	conv := &domain.Conversation{
		PublicID:  uuid.NewString(),
		Type:      domain.ConversationGroup,
		Name:      in.Name,
		PictureID: in.PictureID,
		CreatedBy: &creatorID,
	}
	if err := s.conversations.Create(ctx, conv); err != nil {
		return nil, err
	}

	events := make([]*domain.MembershipEvent, 0, len(memberIDs))
	for _, id := range memberIDs {
		ev := domain.ParticipantAdded
		if id == creatorID {
			ev = domain.ParticipantGroupCreated
		}
		events = append(events, &domain.MembershipEvent{
			ConversationID: conv.ID,
			UserID:         id,
			IsAdmin:        id == creatorID,
			Event:          ev,
			PerformedBy:    creatorID,
		})
	}
	if err := s.memberships.AppendAll(ctx, events); err != nil {
		return nil, fmt.Errorf("append memberships: %w", err)
	}

	msgs, err := s.auditMessages(ctx, conv.ID, creatorID, events)
	if err != nil {
		return nil, err
	}

	return &CreateGroupResult{Conversation: conv, MemberIDs: memberIDs, Messages: msgs}, nil
}

// MembershipChangeResult carries the outcome of an add/remove/leave: the
// users affected, the members to notify, and the audit messages appended.
type MembershipChangeResult struct {
	Conversation    *domain.Conversation
	AffectedUserIDs []int64
	NotifyUserIDs   []int64
	Messages        []*domain.Message
	PromotedUserID  int64
}

// AddMembers appends fresh `added` rows for eligible candidates. Admin only.
// Candidates who are already current participants, lack an accepted
// connection, or are blocked either way are dropped.
func (s *ConversationService) AddMembers(ctx context.Context, publicID string, actorID int64, candidateIDs []int64) (*MembershipChangeResult, error) {
	conv, membership, err := s.Authorize(ctx, publicID, actorID)
	if err != nil {
		return nil, err
	}
	if conv.Type != domain.ConversationGroup {
		return nil, domain.BadRequest("members can only be added to group conversations")
	}
	if !membership.IsAdmin {
		return nil, domain.Forbidden("only an admin can add members")
	}

	candidates := dedupe(candidateIDs, actorID)
	eligible, err := s.graph.EligibleInvitees(ctx, actorID, candidates)
	if err != nil {
		return nil, fmt.Errorf("filter invitees: %w", err)
	}

	current, err := s.memberships.ActiveUserIDs(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("active user ids: %w", err)
	}
	active := make(map[int64]struct{}, len(current))
	for _, id := range current {
		active[id] = struct{}{}
	}

	var toAdd []int64
	for _, id := range eligible {
		if _, ok := active[id]; !ok {
			toAdd = append(toAdd, id)
		}
	}
	if len(toAdd) == 0 {
		return nil, domain.BadRequest("no eligible users to add")
	}

	events := make([]*domain.MembershipEvent, 0, len(toAdd))
	for _, id := range toAdd {
		events = append(events, &domain.MembershipEvent{
			ConversationID: conv.ID,
			UserID:         id,
			Event:          domain.ParticipantAdded,
			PerformedBy:    actorID,
		})
	}
	if err := s.memberships.AppendAll(ctx, events); err != nil {
		return nil, fmt.Errorf("append memberships: %w", err)
	}

	msgs, err := s.auditMessages(ctx, conv.ID, actorID, events)
	if err != nil {
		return nil, err
	}

	return &MembershipChangeResult{
		Conversation:    conv,
		AffectedUserIDs: toAdd,
		NotifyUserIDs:   append(current, toAdd...),
		Messages:        msgs,
	}, nil
}

// RemoveMembers appends `removed` rows for current participants. Admin only.
// The actor themself and users who already left or were removed are skipped.
// The removed row carries the admin and mute flags forward so a later re-add
// can be audited against them.
func (s *ConversationService) RemoveMembers(ctx context.Context, publicID string, actorID int64, targetIDs []int64) (*MembershipChangeResult, error) {
	conv, membership, err := s.Authorize(ctx, publicID, actorID)
	if err != nil {
		return nil, err
	}
	if conv.Type != domain.ConversationGroup {
		return nil, domain.BadRequest("members can only be removed from group conversations")
	}
	if !membership.IsAdmin {
		return nil, domain.Forbidden("only an admin can remove members")
	}

	targets := dedupe(targetIDs, actorID)
	latest, err := s.memberships.LatestForUsers(ctx, conv.ID, targets)
	if err != nil {
		return nil, fmt.Errorf("latest memberships: %w", err)
	}

	var events []*domain.MembershipEvent
	var removed []int64
	for _, m := range latest {
		if !m.Event.Active() {
			continue
		}
		events = append(events, &domain.MembershipEvent{
			ConversationID: conv.ID,
			UserID:         m.UserID,
			IsAdmin:        m.IsAdmin,
			IsMuted:        m.IsMuted,
			Event:          domain.ParticipantRemoved,
			PerformedBy:    actorID,
		})
		removed = append(removed, m.UserID)
	}
	if len(removed) == 0 {
		return nil, domain.BadRequest("no removable members")
	}
	if err := s.memberships.AppendAll(ctx, events); err != nil {
		return nil, fmt.Errorf("append memberships: %w", err)
	}

	msgs, err := s.auditMessages(ctx, conv.ID, actorID, events)
	if err != nil {
		return nil, err
	}

	return &MembershipChangeResult{
		Conversation:    conv,
		AffectedUserIDs: removed,
		Messages:        msgs,
	}, nil
}

// Leave appends a `left` row for the caller. Group conversations only. When
// the leaver held the last admin seat, the earliest joiner whose latest row
// is still active inherits it.
func (s *ConversationService) Leave(ctx context.Context, publicID string, userID int64) (*MembershipChangeResult, error) {
	conv, membership, err := s.Authorize(ctx, publicID, userID)
	if err != nil {
		return nil, err
	}
	if conv.Type != domain.ConversationGroup {
		return nil, domain.BadRequest("only group conversations can be left")
	}

	event := &domain.MembershipEvent{
		ConversationID: conv.ID,
		UserID:         userID,
		IsAdmin:        membership.IsAdmin,
		IsMuted:        membership.IsMuted,
		Event:          domain.ParticipantLeft,
		PerformedBy:    userID,
	}
	if err := s.memberships.Append(ctx, event); err != nil {
		return nil, fmt.Errorf("append membership: %w", err)
	}

	var promoted int64
	if membership.IsAdmin {
		promoted, err = s.succeedAdmin(ctx, conv.ID, userID)
		if err != nil {
			return nil, err
		}
	}

	msgs, err := s.auditMessages(ctx, conv.ID, userID, []*domain.MembershipEvent{event})
	if err != nil {
		return nil, err
	}

	return &MembershipChangeResult{
		Conversation:    conv,
		AffectedUserIDs: []int64{userID},
		Messages:        msgs,
		PromotedUserID:  promoted,
	}, nil
}

// succeedAdmin walks users in order of first-ever join and promotes the first
// whose latest row is still active. The conditional update re-checks the
// no-active-admin invariant per candidate, so a concurrent promotion simply
// short-circuits the scan.
func (s *ConversationService) succeedAdmin(ctx context.Context, conversationID, leaverID int64) (int64, error) {
	hasAdmin, err := s.memberships.ActiveAdminExists(ctx, conversationID, leaverID)
	if err != nil {
		return 0, fmt.Errorf("active admin exists: %w", err)
	}
	if hasAdmin {
		return 0, nil
	}
	candidates, err := s.memberships.EarliestJoinedUserIDs(ctx, conversationID, leaverID)
	if err != nil {
		return 0, fmt.Errorf("earliest joined: %w", err)
	}
	for _, id := range candidates {
		promoted, err := s.memberships.PromoteIfNoActiveAdmin(ctx, conversationID, id)
		if err != nil {
			return 0, fmt.Errorf("promote admin: %w", err)
		}
		if promoted {
			return id, nil
		}
	}
	return 0, nil
}

// UpdateName renames a group conversation and records an audit message.
func (s *ConversationService) UpdateName(ctx context.Context, publicID string, actorID int64, name string) (*MembershipChangeResult, error) {
	conv, _, err := s.Authorize(ctx, publicID, actorID)
	if err != nil {
		return nil, err
	}
	if conv.Type != domain.ConversationGroup {
		return nil, domain.BadRequest("only group conversations can be renamed")
	}
	if !groupNameRe.MatchString(name) {
		return nil, domain.BadRequest("group name must be 3 to 30 letters, digits or spaces")
	}
	if err := s.conversations.UpdateName(ctx, conv.ID, name); err != nil {
		return nil, err
	}
	conv.Name = &name

	msg, err := s.auditMessage(ctx, conv.ID, actorID, "name_updated", nil)
	if err != nil {
		return nil, err
	}
	return &MembershipChangeResult{Conversation: conv, Messages: []*domain.Message{msg}}, nil
}

// UpdateImage sets a group conversation picture to a media item the actor
// uploaded earlier.
func (s *ConversationService) UpdateImage(ctx context.Context, publicID string, actorID int64, mediaID string) (*MembershipChangeResult, error) {
	conv, _, err := s.Authorize(ctx, publicID, actorID)
	if err != nil {
		return nil, err
	}
	if conv.Type != domain.ConversationGroup {
		return nil, domain.BadRequest("only group conversations can have a picture")
	}
	m, err := s.media.GetForUser(ctx, mediaID, actorID)
	if err != nil {
		return nil, fmt.Errorf("get media: %w", err)
	}
	if m == nil {
		return nil, domain.NotFound("media not found")
	}
	if err := s.conversations.UpdatePicture(ctx, conv.ID, mediaID); err != nil {
		return nil, err
	}
	conv.PictureID = &mediaID

	msg, err := s.auditMessage(ctx, conv.ID, actorID, "image_updated", nil)
	if err != nil {
		return nil, err
	}
	return &MembershipChangeResult{Conversation: conv, Messages: []*domain.Message{msg}}, nil
}

// auditMessages appends one user_event message per ledger row, naming the
// affected user.
func (s *ConversationService) auditMessages(ctx context.Context, conversationID, actorID int64, events []*domain.MembershipEvent) ([]*domain.Message, error) {
	msgs := make([]*domain.Message, 0, len(events))
	for _, e := range events {
		affected := e.UserID
		content := string(e.Event)
		msgs = append(msgs, &domain.Message{
			ConversationID: conversationID,
			SenderID:       actorID,
			Content:        &content,
			Type:           domain.MessageUserEvent,
			AffectedUserID: &affected,
		})
	}
	if err := s.messages.CreateAll(ctx, msgs); err != nil {
		return nil, fmt.Errorf("create audit messages: %w", err)
	}
	return msgs, nil
}

func (s *ConversationService) auditMessage(ctx context.Context, conversationID, actorID int64, action string, affectedUserID *int64) (*domain.Message, error) {
	msg := &domain.Message{
		ConversationID: conversationID,
		SenderID:       actorID,
		Content:        &action,
		Type:           domain.MessageUserEvent,
		AffectedUserID: affectedUserID,
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return nil, fmt.Errorf("create audit message: %w", err)
	}
	return msg, nil
}

// dedupe drops duplicates and the excluded id while keeping order.
func dedupe(ids []int64, exclude int64) []int64 {
	seen := map[int64]struct{}{exclude: {}}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
