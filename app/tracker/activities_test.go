package tracker

import (
	"context"
	"errors"
	"testing"
	"time"

	"toughturtle/app/events"
	"toughturtle/app/storage/models"
	"toughturtle/app/utils"
	"toughturtle/mocks"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func hatchling(xp int) *models.User {
	return &models.User{ID: "u1", Experience: xp, Stage: "Batchling Hatchling", Version: 1}
}

func TestLogActivity_AwardsCategoryXP(t *testing.T) {
	store := &mocks.Store{}
	tr, publisher := newTestTracker(store)
	store.On("CreateActivity", mock.Anything, mock.MatchedBy(func(a *models.Activity) bool {
		return a.UserID == "u1" && a.Category == "exercise" && a.Subtype == "running" && a.CreatedAt.Equal(fixedNow)
	})).Return(nil).Once()
	store.On("GetUserById", mock.Anything, "u1").Return(hatchling(0), nil).Once()
	store.On("UpdateUserExperience", mock.Anything, mock.MatchedBy(func(u *models.User) bool { return u.Experience == 25 })).
		Return(nil).Once()

	logged, err := tr.LogActivity(context.Background(), "u1", ActivityInput{Category: "exercise", Subtype: "running", Value: 5, Unit: "km"})
	require.NoError(t, err)
	assert.Equal(t, 25, logged.XPGained)
	assert.Equal(t, 25, logged.User.Experience)

	published := drain(publisher)
	require.Len(t, published, 1)
	assert.Equal(t, events.TypeActivityLogged, published[0].Type)
	assert.Equal(t, "running", published[0].Data["subtype"])
	store.AssertExpectations(t)
}

func TestLogActivity_SleepDefaults(t *testing.T) {
	store := &mocks.Store{}
	tr, _ := newTestTracker(store)
	store.On("CreateActivity", mock.Anything, mock.MatchedBy(func(a *models.Activity) bool {
		return a.Subtype == "sleep" && a.Unit == "hours"
	})).Return(nil).Once()
	store.On("GetUserById", mock.Anything, "u1").Return(hatchling(0), nil).Once()
	store.On("UpdateUserExperience", mock.Anything, mock.MatchedBy(func(u *models.User) bool { return u.Experience == 20 })).
		Return(nil).Once()

	_, err := tr.LogActivity(context.Background(), "u1", ActivityInput{Category: "sleep", Value: 7.5})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestLogActivity_Rejects(t *testing.T) {
	inputs := []ActivityInput{
		{Category: "napping", Subtype: "x", Value: 1, Unit: "min"},
		{Category: "exercise", Value: 1, Unit: "min"},
		{Category: "exercise", Subtype: "yoga", Value: 0, Unit: "minutes"},
		{Category: "biohacking", Subtype: "sauna", Value: 10},
	}
	for _, in := range inputs {
		tr, _ := newTestTracker(&mocks.Store{})
		_, err := tr.LogActivity(context.Background(), "u1", in)
		require.ErrorIs(t, err, utils.ErrValidation, "%+v", in)
	}
}

func TestUpdateActivity_KeepsCategory(t *testing.T) {
	store := &mocks.Store{}
	tr, _ := newTestTracker(store)
	store.On("GetActivityById", mock.Anything, "a1").Return(&models.Activity{
		ID: "a1", UserID: "u1", Category: "exercise", Subtype: "yoga", Value: 30, Unit: "minutes",
	}, nil)
	store.On("UpdateActivity", mock.Anything, mock.MatchedBy(func(a *models.Activity) bool {
		return a.Category == "exercise" && a.Value == 45 && a.Subtype == "yoga"
	})).Return(nil).Once()

	value := 45.0
	updated, err := tr.UpdateActivity(context.Background(), "u1", "a1", ActivityPatch{Value: &value})
	require.NoError(t, err)
	assert.Equal(t, 45.0, updated.Value)

	_, err = tr.UpdateActivity(context.Background(), "u2", "a1", ActivityPatch{Value: &value})
	require.ErrorIs(t, err, utils.ErrNotFound)

	zero := 0.0
	_, err = tr.UpdateActivity(context.Background(), "u1", "a1", ActivityPatch{Value: &zero})
	require.ErrorIs(t, err, utils.ErrValidation)
	store.AssertNumberOfCalls(t, "UpdateActivity", 1)
}

func TestDeleteActivity_ChecksOwner(t *testing.T) {
	store := &mocks.Store{}
	tr, _ := newTestTracker(store)
	store.On("GetActivityById", mock.Anything, "a1").Return(&models.Activity{ID: "a1", UserID: "u1"}, nil)
	store.On("DeleteActivity", mock.Anything, "a1").Return(nil).Once()

	require.ErrorIs(t, tr.DeleteActivity(context.Background(), "u2", "a1"), utils.ErrNotFound)
	require.NoError(t, tr.DeleteActivity(context.Background(), "u1", "a1"))
	store.AssertExpectations(t)
}

func TestActivities_Filters(t *testing.T) {
	store := &mocks.Store{}
	tr, _ := newTestTracker(store)
	store.On("ListUserActivities", mock.Anything, "u1", defaultActivityLimit).Return([]models.Activity{{ID: "a1"}}, nil).Once()
	store.On("ListUserActivitiesByCategory", mock.Anything, "u1", "sleep", 5).Return([]models.Activity{}, nil).Once()

	all, err := tr.Activities(context.Background(), "u1", "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 1)
	_, err = tr.Activities(context.Background(), "u1", "sleep", 5)
	require.NoError(t, err)
	_, err = tr.Activities(context.Background(), "u1", "juggling", 5)
	require.ErrorIs(t, err, utils.ErrValidation)
	store.AssertExpectations(t)
}

func TestDailyStats(t *testing.T) {
	store := &mocks.Store{}
	tr, _ := newTestTracker(store)
	start := time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC)
	store.On("ListUserActivitiesInRange", mock.Anything, "u1", start, start.Add(24*time.Hour)).Return([]models.Activity{
		{ID: "a1", Category: "exercise", Value: 30, Unit: "minutes"},
		{ID: "a2", Category: "exercise", Value: 15, Unit: "minutes"},
		{ID: "a3", Category: "sleep", Value: 7, Unit: "hours"},
	}, nil).Once()

	stats, err := tr.DailyStats(context.Background(), "u1", fixedNow)
	require.NoError(t, err)
	assert.Equal(t, start, stats.Date)
	assert.Equal(t, 45.0, stats.Exercise.Total)
	assert.Len(t, stats.Exercise.Activities, 2)
	assert.Equal(t, 7.0, stats.Sleep.Total)
	assert.NotNil(t, stats.Biohacking.Activities)
	assert.Zero(t, stats.Biohacking.Total)
}

func TestWeeklyStats_CountsOnlyMatchingUnits(t *testing.T) {
	store := &mocks.Store{}
	tr, _ := newTestTracker(store)
	start := time.Date(2025, 3, 2, 0, 0, 0, 0, time.UTC)
	store.On("ListUserActivitiesInRange", mock.Anything, "u1", start, start.AddDate(0, 0, 7)).Return([]models.Activity{
		{Category: "exercise", Value: 30, Unit: "minutes"},
		{Category: "exercise", Value: 5, Unit: "km"},
		{Category: "sleep", Value: 8, Unit: "hours"},
		{Category: "sleep", Value: 400, Unit: "minutes"},
		{Category: "biohacking", Value: 10, Unit: "minutes"},
		{Category: "biohacking", Value: 1, Unit: "dosage"},
	}, nil).Once()

	stats, err := tr.WeeklyStats(context.Background(), "u1", start.Add(9*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 6, stats.TotalActivities)
	assert.Equal(t, 30.0, stats.ExerciseMinutes)
	assert.Equal(t, 8.0, stats.SleepHours)
	assert.Equal(t, 2, stats.BiohackingSessions)
	assert.Equal(t, start.AddDate(0, 0, 7), stats.End)
}

func TestDailyStats_UsesTrackerLocation(t *testing.T) {
	store := &mocks.Store{}
	tr, _ := newTestTracker(store)
	tr.Location = time.FixedZone("UTC-5", -5*3600)
	start := time.Date(2025, 3, 5, 0, 0, 0, 0, tr.Location)
	store.On("ListUserActivitiesInRange", mock.Anything, "u1", start, start.AddDate(0, 0, 1)).Return(nil, nil).Once()

	_, err := tr.DailyStats(context.Background(), "u1", time.Date(2025, 3, 6, 3, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestLogWellness(t *testing.T) {
	t.Run("restful night earns a bonus", func(t *testing.T) {
		store := &mocks.Store{}
		tr, _ := newTestTracker(store)
		store.On("CreateWellnessEntry", mock.Anything, mock.Anything).Return(nil).Once()
		store.On("GetUserById", mock.Anything, "u1").Return(hatchling(10), nil).Once()
		store.On("UpdateUserExperience", mock.Anything, mock.MatchedBy(func(u *models.User) bool { return u.Experience == 15 })).
			Return(nil).Once()

		out, err := tr.LogWellness(context.Background(), "u1", 8, "Good")
		require.NoError(t, err)
		assert.Equal(t, 5, out.XPGained)
		assert.Equal(t, "good", out.Entry.Mood)
		store.AssertExpectations(t)
	})

	t.Run("short night earns nothing", func(t *testing.T) {
		store := &mocks.Store{}
		tr, _ := newTestTracker(store)
		store.On("CreateWellnessEntry", mock.Anything, mock.Anything).Return(nil).Once()

		out, err := tr.LogWellness(context.Background(), "u1", 6.5, "")
		require.NoError(t, err)
		assert.Zero(t, out.XPGained)
		store.AssertNotCalled(t, "GetUserById", mock.Anything, mock.Anything)
	})

	t.Run("rejects nonsense", func(t *testing.T) {
		tr, _ := newTestTracker(&mocks.Store{})
		_, err := tr.LogWellness(context.Background(), "u1", 25, "")
		require.ErrorIs(t, err, utils.ErrValidation)
		_, err = tr.LogWellness(context.Background(), "u1", 7, "ecstatic")
		require.ErrorIs(t, err, utils.ErrValidation)
	})
}

func TestLogDistance(t *testing.T) {
	t.Run("without a distance challenge", func(t *testing.T) {
		store := &mocks.Store{}
		tr, _ := newTestTracker(store)
		store.On("GetUserById", mock.Anything, "u1").Return(hatchling(40), nil).Once()
		store.On("UpdateUserExperience", mock.Anything, mock.MatchedBy(func(u *models.User) bool { return u.Experience == 52 })).
			Return(nil).Once()
		store.On("GetChallengeByName", mock.Anything, "u1", DistanceChallenge).Return(nil, nil).Once()

		out, err := tr.LogDistance(context.Background(), "u1", 12)
		require.NoError(t, err)
		assert.Equal(t, 12, out.XPGained)
		assert.Equal(t, "Spry Snapper", out.User.Stage)
		assert.Nil(t, out.Challenge)
		store.AssertExpectations(t)
	})

	t.Run("advances the distance challenge", func(t *testing.T) {
		store := &mocks.Store{}
		tr, _ := newTestTracker(store)
		store.On("GetUserById", mock.Anything, "u1").Return(hatchling(0), nil).Once()
		store.On("UpdateUserExperience", mock.Anything, mock.Anything).Return(nil)
		store.On("GetChallengeByName", mock.Anything, "u1", DistanceChallenge).Return(challenge(1, 5, false, 0), nil).Once()
		store.On("GetChallengeById", mock.Anything, "c1").Return(challenge(1, 5, false, 0), nil).Once()
		store.On("UpdateChallengeProgress", mock.Anything, mock.Anything).Return(nil).Once()

		out, err := tr.LogDistance(context.Background(), "u1", 3)
		require.NoError(t, err)
		require.NotNil(t, out.Challenge)
		assert.Equal(t, 4.0, out.Challenge.Challenge.Progress)
		assert.False(t, out.Challenge.JustCompleted)
		store.AssertExpectations(t)
	})

	t.Run("rejects non-positive distance", func(t *testing.T) {
		tr, _ := newTestTracker(&mocks.Store{})
		_, err := tr.LogDistance(context.Background(), "u1", 0)
		require.ErrorIs(t, err, utils.ErrValidation)
	})

	t.Run("rejects distances that would flood experience", func(t *testing.T) {
		store := &mocks.Store{}
		tr, _ := newTestTracker(store)
		for _, distance := range []float64{maxDistance + 1, 9.223372036854775e18, 1e300} {
			_, err := tr.LogDistance(context.Background(), "u1", distance)
			var invalid *utils.ValidationError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, "distance", invalid.Field)
		}
		store.AssertNotCalled(t, "GetUserById", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "UpdateUserExperience", mock.Anything, mock.Anything)
	})

	t.Run("pays nothing when the challenge update fails", func(t *testing.T) {
		store := &mocks.Store{}
		tr, _ := newTestTracker(store)
		store.On("GetChallengeByName", mock.Anything, "u1", DistanceChallenge).Return(challenge(1, 5, false, 0), nil).Once()
		store.On("GetChallengeById", mock.Anything, "c1").Return(challenge(1, 5, false, 0), nil).Once()
		store.On("UpdateChallengeProgress", mock.Anything, mock.Anything).Return(errors.New("disk I/O error")).Once()

		_, err := tr.LogDistance(context.Background(), "u1", 3)
		require.Error(t, err)
		store.AssertNotCalled(t, "GetUserById", mock.Anything, mock.Anything)
		store.AssertNotCalled(t, "UpdateUserExperience", mock.Anything, mock.Anything)
		store.AssertExpectations(t)
	})
}

func TestPostFeed(t *testing.T) {
	store := &mocks.Store{}
	tr, _ := newTestTracker(store)
	store.On("CreateFeedPost", mock.Anything, mock.MatchedBy(func(p *models.FeedPost) bool {
		return p.Message == "shell yeah" && p.UserID == "u1"
	})).Return(nil).Once()

	post, err := tr.PostFeed(context.Background(), "u1", "  shell yeah ")
	require.NoError(t, err)
	assert.NotEmpty(t, post.ID)

	_, err = tr.PostFeed(context.Background(), "u1", "   ")
	require.ErrorIs(t, err, utils.ErrValidation)
	store.AssertExpectations(t)
}
