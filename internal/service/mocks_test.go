package service_test

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"chatengine/internal/domain"
)

// Mock mocks

type MockUserRepo struct {
	mock.Mock
}

func (m *MockUserRepo) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type MockRefreshTokenRepo struct {
	mock.Mock
}

func (m *MockRefreshTokenRepo) GetByID(ctx context.Context, id, userID int64) (*domain.RefreshToken, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

type MockSessionRepo struct {
	mock.Mock
}

func (m *MockSessionRepo) Reset(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockSessionRepo) Connect(ctx context.Context, connID string, userID int64) (bool, error) {
	args := m.Called(ctx, connID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepo) Disconnect(ctx context.Context, connID string, userID int64) (bool, error) {
	args := m.Called(ctx, connID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockSessionRepo) ConnIDsForUsers(ctx context.Context, userIDs []int64) ([]string, error) {
	args := m.Called(ctx, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

type MockConversationRepo struct {
	mock.Mock
}

func (m *MockConversationRepo) Create(ctx context.Context, c *domain.Conversation) error {
	args := m.Called(ctx, c)
	return args.Error(0)
}

func (m *MockConversationRepo) GetByPublicID(ctx context.Context, publicID string) (*domain.Conversation, error) {
	args := m.Called(ctx, publicID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Conversation), args.Error(1)
}

func (m *MockConversationRepo) UpdateName(ctx context.Context, id int64, name string) error {
	args := m.Called(ctx, id, name)
	return args.Error(0)
}

func (m *MockConversationRepo) UpdatePicture(ctx context.Context, id int64, mediaID string) error {
	args := m.Called(ctx, id, mediaID)
	return args.Error(0)
}

type MockMembershipRepo struct {
	mock.Mock
}

func (m *MockMembershipRepo) Append(ctx context.Context, e *domain.MembershipEvent) error {
	args := m.Called(ctx, e)
	return args.Error(0)
}

func (m *MockMembershipRepo) AppendAll(ctx context.Context, events []*domain.MembershipEvent) error {
	args := m.Called(ctx, events)
	return args.Error(0)
}

func (m *MockMembershipRepo) LatestForUser(ctx context.Context, conversationID, userID int64) (*domain.MembershipEvent, error) {
	args := m.Called(ctx, conversationID, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.MembershipEvent), args.Error(1)
}

func (m *MockMembershipRepo) LatestForUsers(ctx context.Context, conversationID int64, userIDs []int64) ([]*domain.MembershipEvent, error) {
	args := m.Called(ctx, conversationID, userIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.MembershipEvent), args.Error(1)
}

func (m *MockMembershipRepo) ActiveUserIDs(ctx context.Context, conversationID int64) ([]int64, error) {
	args := m.Called(ctx, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockMembershipRepo) ActiveConversationPublicIDs(ctx context.Context, userID int64) ([]string, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockMembershipRepo) ActiveAdminExists(ctx context.Context, conversationID, excludeUserID int64) (bool, error) {
	args := m.Called(ctx, conversationID, excludeUserID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepo) EarliestJoinedUserIDs(ctx context.Context, conversationID, excludeUserID int64) ([]int64, error) {
	args := m.Called(ctx, conversationID, excludeUserID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

func (m *MockMembershipRepo) PromoteIfNoActiveAdmin(ctx context.Context, conversationID, userID int64) (bool, error) {
	args := m.Called(ctx, conversationID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *MockMembershipRepo) OtherActiveUserID(ctx context.Context, conversationID, excludeUserID int64) (int64, error) {
	args := m.Called(ctx, conversationID, excludeUserID)
	return args.Get(0).(int64), args.Error(1)
}

type MockMessageRepo struct {
	mock.Mock
}

func (m *MockMessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepo) CreateAll(ctx context.Context, msgs []*domain.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *MockMessageRepo) GetByID(ctx context.Context, id, conversationID int64) (*domain.Message, error) {
	args := m.Called(ctx, id, conversationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Message), args.Error(1)
}

func (m *MockMessageRepo) SetEdited(ctx context.Context, id int64, content string, at time.Time) error {
	args := m.Called(ctx, id, content, at)
	return args.Error(0)
}

func (m *MockMessageRepo) SetUnsent(ctx context.Context, id int64, at time.Time) error {
	args := m.Called(ctx, id, at)
	return args.Error(0)
}

type MockMessageDeletionRepo struct {
	mock.Mock
}

func (m *MockMessageDeletionRepo) Create(ctx context.Context, messageID, userID int64) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

func (m *MockMessageDeletionRepo) Exists(ctx context.Context, messageID, userID int64) (bool, error) {
	args := m.Called(ctx, messageID, userID)
	return args.Bool(0), args.Error(1)
}

type MockReactionRepo struct {
	mock.Mock
}

func (m *MockReactionRepo) Upsert(ctx context.Context, messageID, userID int64, t domain.ReactionType) error {
	args := m.Called(ctx, messageID, userID, t)
	return args.Error(0)
}

func (m *MockReactionRepo) Delete(ctx context.Context, messageID, userID int64) error {
	args := m.Called(ctx, messageID, userID)
	return args.Error(0)
}

type MockPinRepo struct {
	mock.Mock
}

func (m *MockPinRepo) Get(ctx context.Context, messageID int64) (*domain.PinnedMessage, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PinnedMessage), args.Error(1)
}

func (m *MockPinRepo) Create(ctx context.Context, messageID, pinnedBy int64) error {
	args := m.Called(ctx, messageID, pinnedBy)
	return args.Error(0)
}

func (m *MockPinRepo) Delete(ctx context.Context, messageID int64) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

type MockReadStatusRepo struct {
	mock.Mock
}

func (m *MockReadStatusRepo) FindOrCreate(ctx context.Context, messageID, userID int64) (bool, error) {
	args := m.Called(ctx, messageID, userID)
	return args.Bool(0), args.Error(1)
}

type MockGraphRepo struct {
	mock.Mock
}

func (m *MockGraphRepo) IsBlockedEither(ctx context.Context, a, b int64) (bool, error) {
	args := m.Called(ctx, a, b)
	return args.Bool(0), args.Error(1)
}

func (m *MockGraphRepo) EligibleInvitees(ctx context.Context, userID int64, candidateIDs []int64) ([]int64, error) {
	args := m.Called(ctx, userID, candidateIDs)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]int64), args.Error(1)
}

type MockMediaRepo struct {
	mock.Mock
}

func (m *MockMediaRepo) GetForUser(ctx context.Context, id string, userID int64) (*domain.Media, error) {
	args := m.Called(ctx, id, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Media), args.Error(1)
}

func (m *MockMediaRepo) ListByIDs(ctx context.Context, ids []string) ([]*domain.Media, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Media), args.Error(1)
}

func (m *MockMediaRepo) AttachToMessage(ctx context.Context, messageID int64, mediaIDs []string) error {
	args := m.Called(ctx, messageID, mediaIDs)
	return args.Error(0)
}

func (m *MockMediaRepo) ListForMessage(ctx context.Context, messageID int64) ([]*domain.Media, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Media), args.Error(1)
}
