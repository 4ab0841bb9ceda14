package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"chatengine/internal/domain"
	"chatengine/internal/service"
)

type convFixture struct {
	conversations *MockConversationRepo
	memberships   *MockMembershipRepo
	messages      *MockMessageRepo
	graph         *MockGraphRepo
	media         *MockMediaRepo
	svc           *service.ConversationService
}

func newConvFixture() *convFixture {
	f := &convFixture{
		conversations: new(MockConversationRepo),
		memberships:   new(MockMembershipRepo),
		messages:      new(MockMessageRepo),
		graph:         new(MockGraphRepo),
		media:         new(MockMediaRepo),
	}
	f.svc = service.NewConversationService(
		f.conversations, f.memberships, f.messages, f.graph, f.media, 3)
	return f
}

func groupConv() *domain.Conversation {
	name := "weekend plans"
	return &domain.Conversation{
		ID:       10,
		PublicID: "c1",
		Type:     domain.ConversationGroup,
		Name:     &name,
	}
}

func activeMembership(userID int64, isAdmin bool) *domain.MembershipEvent {
	return &domain.MembershipEvent{
		ConversationID: 10,
		UserID:         userID,
		IsAdmin:        isAdmin,
		Event:          domain.ParticipantAdded,
	}
}

func TestAuthorize(t *testing.T) {
	ctx := context.Background()

	t.Run("ConversationMissing", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "nope").Return(nil, nil)

		_, _, err := f.svc.Authorize(ctx, "nope", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("NoMembershipRow", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(nil, nil)

		_, _, err := f.svc.Authorize(ctx, "c1", 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("AlreadyLeft", func(t *testing.T) {
		f := newConvFixture()
		left := activeMembership(1, false)
		left.Event = domain.ParticipantLeft
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(left, nil)

		_, _, err := f.svc.Authorize(ctx, "c1", 1)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("Removed", func(t *testing.T) {
		f := newConvFixture()
		removed := activeMembership(1, false)
		removed.Event = domain.ParticipantRemoved
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(removed, nil)

		_, _, err := f.svc.Authorize(ctx, "c1", 1)
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("ActiveParticipant", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, true), nil)

		conv, membership, err := f.svc.Authorize(ctx, "c1", 1)
		assert.NoError(t, err)
		assert.Equal(t, "c1", conv.PublicID)
		assert.True(t, membership.IsAdmin)
	})
}

func TestCreateGroup(t *testing.T) {
	ctx := context.Background()
	name := "weekend plans"

	t.Run("InvalidName", func(t *testing.T) {
		f := newConvFixture()
		bad := "x"
		_, err := f.svc.CreateGroup(ctx, service.CreateGroupInput{
			Name:           &bad,
			ParticipantIDs: []int64{2, 3},
		}, 1)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.conversations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})

	t.Run("TooFewEligibleMembers", func(t *testing.T) {
		f := newConvFixture()
		f.graph.On("EligibleInvitees", mock.Anything, int64(1), []int64{2, 3}).Return([]int64{2}, nil)

		_, err := f.svc.CreateGroup(ctx, service.CreateGroupInput{
			Name:           &name,
			ParticipantIDs: []int64{2, 3},
		}, 1)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
		f.conversations.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		f.memberships.AssertNotCalled(t, "AppendAll", mock.Anything, mock.Anything)
	})

	t.Run("Success", func(t *testing.T) {
		f := newConvFixture()
		f.graph.On("EligibleInvitees", mock.Anything, int64(1), []int64{2, 3, 4}).Return([]int64{2, 3}, nil)
		f.conversations.On("Create", mock.Anything, mock.MatchedBy(func(c *domain.Conversation) bool {
			return c.Type == domain.ConversationGroup && c.PublicID != ""
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.Conversation).ID = 10
		}).Return(nil)
		f.memberships.On("AppendAll", mock.Anything, mock.MatchedBy(func(events []*domain.MembershipEvent) bool {
			if len(events) != 3 {
				return false
			}
			creator := events[0]
			return creator.UserID == 1 && creator.IsAdmin &&
				creator.Event == domain.ParticipantGroupCreated &&
				events[1].Event == domain.ParticipantAdded && !events[1].IsAdmin &&
				events[2].Event == domain.ParticipantAdded && !events[2].IsAdmin
		})).Return(nil)
		f.messages.On("CreateAll", mock.Anything, mock.MatchedBy(func(msgs []*domain.Message) bool {
			return len(msgs) == 3 && msgs[0].Type == domain.MessageUserEvent
		})).Return(nil)

		// duplicate and creator ids in the candidate list are dropped
		res, err := f.svc.CreateGroup(ctx, service.CreateGroupInput{
			Name:           &name,
			ParticipantIDs: []int64{2, 3, 4, 2, 1},
		}, 1)
		assert.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3}, res.MemberIDs)
		assert.Len(t, res.Messages, 3)
	})
}

func TestAddMembers(t *testing.T) {
	ctx := context.Background()

	setupAuthorized := func(f *convFixture, isAdmin bool) {
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, isAdmin), nil)
	}

	t.Run("NotAdmin", func(t *testing.T) {
		f := newConvFixture()
		setupAuthorized(f, false)

		_, err := f.svc.AddMembers(ctx, "c1", 1, []int64{5})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})

	t.Run("FiltersCurrentParticipants", func(t *testing.T) {
		f := newConvFixture()
		setupAuthorized(f, true)
		f.graph.On("EligibleInvitees", mock.Anything, int64(1), []int64{2, 5}).Return([]int64{2, 5}, nil)
		f.memberships.On("ActiveUserIDs", mock.Anything, int64(10)).Return([]int64{1, 2, 3}, nil)
		f.memberships.On("AppendAll", mock.Anything, mock.MatchedBy(func(events []*domain.MembershipEvent) bool {
			return len(events) == 1 && events[0].UserID == 5 &&
				events[0].Event == domain.ParticipantAdded && events[0].PerformedBy == 1
		})).Return(nil)
		f.messages.On("CreateAll", mock.Anything, mock.Anything).Return(nil)

		res, err := f.svc.AddMembers(ctx, "c1", 1, []int64{2, 5})
		assert.NoError(t, err)
		assert.Equal(t, []int64{5}, res.AffectedUserIDs)
		assert.ElementsMatch(t, []int64{1, 2, 3, 5}, res.NotifyUserIDs)
	})

	t.Run("NobodyEligible", func(t *testing.T) {
		f := newConvFixture()
		setupAuthorized(f, true)
		f.graph.On("EligibleInvitees", mock.Anything, int64(1), []int64{9}).Return(nil, nil)
		f.memberships.On("ActiveUserIDs", mock.Anything, int64(10)).Return([]int64{1}, nil)

		_, err := f.svc.AddMembers(ctx, "c1", 1, []int64{9})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})
}

func TestRemoveMembers(t *testing.T) {
	ctx := context.Background()

	t.Run("SkipsInactiveAndCarriesFlags", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, true), nil)

		gone := activeMembership(3, false)
		gone.Event = domain.ParticipantLeft
		target := activeMembership(2, true)
		target.IsMuted = true
		f.memberships.On("LatestForUsers", mock.Anything, int64(10), []int64{2, 3}).
			Return([]*domain.MembershipEvent{target, gone}, nil)
		f.memberships.On("AppendAll", mock.Anything, mock.MatchedBy(func(events []*domain.MembershipEvent) bool {
			return len(events) == 1 && events[0].UserID == 2 &&
				events[0].Event == domain.ParticipantRemoved &&
				events[0].IsAdmin && events[0].IsMuted
		})).Return(nil)
		f.messages.On("CreateAll", mock.Anything, mock.Anything).Return(nil)

		// the actor's own id in the target list is ignored
		res, err := f.svc.RemoveMembers(ctx, "c1", 1, []int64{2, 3, 1})
		assert.NoError(t, err)
		assert.Equal(t, []int64{2}, res.AffectedUserIDs)
	})

	t.Run("NotAdmin", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, false), nil)

		_, err := f.svc.RemoveMembers(ctx, "c1", 1, []int64{2})
		assert.ErrorIs(t, err, domain.ErrForbidden)
	})
}

func TestLeave(t *testing.T) {
	ctx := context.Background()

	t.Run("PrivateConversationRejected", func(t *testing.T) {
		f := newConvFixture()
		private := &domain.Conversation{ID: 11, PublicID: "p1", Type: domain.ConversationPrivate}
		f.conversations.On("GetByPublicID", mock.Anything, "p1").Return(private, nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(11), int64(1)).Return(activeMembership(1, false), nil)

		_, err := f.svc.Leave(ctx, "p1", 1)
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("NonAdminLeaveNoSuccession", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, false), nil)
		f.memberships.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.MembershipEvent) bool {
			return e.UserID == 1 && e.Event == domain.ParticipantLeft && !e.IsAdmin
		})).Return(nil)
		f.messages.On("CreateAll", mock.Anything, mock.Anything).Return(nil)

		res, err := f.svc.Leave(ctx, "c1", 1)
		assert.NoError(t, err)
		assert.Zero(t, res.PromotedUserID)
		f.memberships.AssertNotCalled(t, "EarliestJoinedUserIDs", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("AdminLeaveSuccessionScansCandidates", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, true), nil)
		f.memberships.On("Append", mock.Anything, mock.MatchedBy(func(e *domain.MembershipEvent) bool {
			return e.Event == domain.ParticipantLeft && e.IsAdmin
		})).Return(nil)
		f.memberships.On("ActiveAdminExists", mock.Anything, int64(10), int64(1)).Return(false, nil)
		f.memberships.On("EarliestJoinedUserIDs", mock.Anything, int64(10), int64(1)).Return([]int64{2, 3, 4}, nil)
		// earliest joiner has since left; the conditional update refuses them
		f.memberships.On("PromoteIfNoActiveAdmin", mock.Anything, int64(10), int64(2)).Return(false, nil)
		f.memberships.On("PromoteIfNoActiveAdmin", mock.Anything, int64(10), int64(3)).Return(true, nil)
		f.messages.On("CreateAll", mock.Anything, mock.Anything).Return(nil)

		res, err := f.svc.Leave(ctx, "c1", 1)
		assert.NoError(t, err)
		assert.Equal(t, int64(3), res.PromotedUserID)
		f.memberships.AssertNotCalled(t, "PromoteIfNoActiveAdmin", mock.Anything, int64(10), int64(4))
	})

	t.Run("AdminLeaveOtherAdminPresent", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, true), nil)
		f.memberships.On("Append", mock.Anything, mock.Anything).Return(nil)
		f.memberships.On("ActiveAdminExists", mock.Anything, int64(10), int64(1)).Return(true, nil)
		f.messages.On("CreateAll", mock.Anything, mock.Anything).Return(nil)

		res, err := f.svc.Leave(ctx, "c1", 1)
		assert.NoError(t, err)
		assert.Zero(t, res.PromotedUserID)
		f.memberships.AssertNotCalled(t, "EarliestJoinedUserIDs", mock.Anything, mock.Anything, mock.Anything)
	})
}

func TestUpdateName(t *testing.T) {
	ctx := context.Background()

	t.Run("InvalidName", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, false), nil)

		_, err := f.svc.UpdateName(ctx, "c1", 1, "a!")
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	})

	t.Run("Success", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, false), nil)
		f.conversations.On("UpdateName", mock.Anything, int64(10), "book club").Return(nil)
		f.messages.On("Create", mock.Anything, mock.MatchedBy(func(m *domain.Message) bool {
			return m.Type == domain.MessageUserEvent
		})).Return(nil)

		res, err := f.svc.UpdateName(ctx, "c1", 1, "book club")
		assert.NoError(t, err)
		assert.Equal(t, "book club", *res.Conversation.Name)
	})
}

func TestUpdateImage(t *testing.T) {
	ctx := context.Background()

	t.Run("MediaNotOwned", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, false), nil)
		f.media.On("GetForUser", mock.Anything, "m1", int64(1)).Return(nil, nil)

		_, err := f.svc.UpdateImage(ctx, "c1", 1, "m1")
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("Success", func(t *testing.T) {
		f := newConvFixture()
		f.conversations.On("GetByPublicID", mock.Anything, "c1").Return(groupConv(), nil)
		f.memberships.On("LatestForUser", mock.Anything, int64(10), int64(1)).Return(activeMembership(1, false), nil)
		f.media.On("GetForUser", mock.Anything, "m1", int64(1)).Return(&domain.Media{ID: "m1", UserID: 1}, nil)
		f.conversations.On("UpdatePicture", mock.Anything, int64(10), "m1").Return(nil)
		f.messages.On("Create", mock.Anything, mock.Anything).Return(nil)

		res, err := f.svc.UpdateImage(ctx, "c1", 1, "m1")
		assert.NoError(t, err)
		assert.Equal(t, "m1", *res.Conversation.PictureID)
	})
}
