package mocks

import (
	"context"
	"time"

	"toughturtle/app/storage/models"

	"github.com/stretchr/testify/mock"
)

// Store is a testify double for storage.Store.
type Store struct {
	mock.Mock
}

func (m *Store) CreateUser(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *Store) GetUserById(ctx context.Context, id string) (*models.User, error) {
	args := m.Called(ctx, id)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *Store) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	args := m.Called(ctx, username)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *Store) GetUserByTelegramChatId(ctx context.Context, chatId int64) (*models.User, error) {
	args := m.Called(ctx, chatId)
	return userOrNil(args.Get(0)), args.Error(1)
}

func (m *Store) ListUserIds(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	ids, _ := args.Get(0).([]string)
	return ids, args.Error(1)
}

func (m *Store) UpdateUserExperience(ctx context.Context, user *models.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *Store) SetTelegramChat(ctx context.Context, userId string, chatId int64) error {
	return m.Called(ctx, userId, chatId).Error(0)
}

func (m *Store) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	args := m.Called(ctx, limit)
	entries, _ := args.Get(0).([]models.LeaderboardEntry)
	return entries, args.Error(1)
}

func (m *Store) CreateActivity(ctx context.Context, activity *models.Activity) error {
	return m.Called(ctx, activity).Error(0)
}

func (m *Store) GetActivityById(ctx context.Context, id string) (*models.Activity, error) {
	args := m.Called(ctx, id)
	a, _ := args.Get(0).(*models.Activity)
	return a, args.Error(1)
}

func (m *Store) ListUserActivities(ctx context.Context, userId string, limit int) ([]models.Activity, error) {
	args := m.Called(ctx, userId, limit)
	activities, _ := args.Get(0).([]models.Activity)
	return activities, args.Error(1)
}

func (m *Store) ListUserActivitiesByCategory(ctx context.Context, userId, category string, limit int) ([]models.Activity, error) {
	args := m.Called(ctx, userId, category, limit)
	activities, _ := args.Get(0).([]models.Activity)
	return activities, args.Error(1)
}

func (m *Store) ListUserActivitiesInRange(ctx context.Context, userId string, start, end time.Time) ([]models.Activity, error) {
	args := m.Called(ctx, userId, start, end)
	activities, _ := args.Get(0).([]models.Activity)
	return activities, args.Error(1)
}

func (m *Store) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	return m.Called(ctx, activity).Error(0)
}

func (m *Store) DeleteActivity(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Store) CreateChallenge(ctx context.Context, challenge *models.Challenge) error {
	return m.Called(ctx, challenge).Error(0)
}

func (m *Store) GetChallengeById(ctx context.Context, id string) (*models.Challenge, error) {
	args := m.Called(ctx, id)
	return challengeOrNil(args.Get(0)), args.Error(1)
}

func (m *Store) GetChallengeByName(ctx context.Context, userId, name string) (*models.Challenge, error) {
	args := m.Called(ctx, userId, name)
	return challengeOrNil(args.Get(0)), args.Error(1)
}

func (m *Store) ListUserChallenges(ctx context.Context, userId string) ([]models.Challenge, error) {
	args := m.Called(ctx, userId)
	challenges, _ := args.Get(0).([]models.Challenge)
	return challenges, args.Error(1)
}

func (m *Store) ListCompletedChallenges(ctx context.Context, userId string) ([]models.Challenge, error) {
	args := m.Called(ctx, userId)
	challenges, _ := args.Get(0).([]models.Challenge)
	return challenges, args.Error(1)
}

func (m *Store) ListChallengesByCategory(ctx context.Context, userId, category string) ([]models.Challenge, error) {
	args := m.Called(ctx, userId, category)
	challenges, _ := args.Get(0).([]models.Challenge)
	return challenges, args.Error(1)
}

func (m *Store) CountCompletedChallenges(ctx context.Context, userId string) (int, error) {
	args := m.Called(ctx, userId)
	return args.Int(0), args.Error(1)
}

func (m *Store) UpdateChallengeProgress(ctx context.Context, challenge *models.Challenge) error {
	return m.Called(ctx, challenge).Error(0)
}

func (m *Store) ResetUserChallenges(ctx context.Context, userId string, at time.Time) (int64, error) {
	args := m.Called(ctx, userId, at)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}

func (m *Store) DeleteChallenge(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *Store) CreateWellnessEntry(ctx context.Context, entry *models.WellnessEntry) error {
	return m.Called(ctx, entry).Error(0)
}

func (m *Store) CreateFeedPost(ctx context.Context, post *models.FeedPost) error {
	return m.Called(ctx, post).Error(0)
}

func (m *Store) ListFeed(ctx context.Context, limit int) ([]models.FeedPost, error) {
	args := m.Called(ctx, limit)
	posts, _ := args.Get(0).([]models.FeedPost)
	return posts, args.Error(1)
}

func userOrNil(v any) *models.User {
	u, _ := v.(*models.User)
	return u
}

func challengeOrNil(v any) *models.Challenge {
	c, _ := v.(*models.Challenge)
	return c
}
