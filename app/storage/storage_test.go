package storage

import (
	"context"
	"testing"
	"time"

	"toughturtle/app/storage/models"
	"toughturtle/app/utils"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return &SQLStore{DB: db, Driver: DriverSQLite}, mock
}

func TestSQLStore_CreateActivity(t *testing.T) {
	store, mock := newMockStore(t)

	notes := "felt strong"
	activity := &models.Activity{
		ID:        "a1",
		UserID:    "u1",
		Category:  models.CategoryExercise,
		Subtype:   "Run",
		Value:     5,
		Unit:      "km",
		Notes:     &notes,
		CreatedAt: time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC),
	}

	mock.ExpectExec(`INSERT INTO activities \(id, user_id, category, subtype, value, unit, notes, created_at\) VALUES`).
		WithArgs(activity.ID, activity.UserID, activity.Category, activity.Subtype, activity.Value, activity.Unit, activity.Notes, activity.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := store.CreateActivity(context.Background(), activity)
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpdateUserExperience(t *testing.T) {
	store, mock := newMockStore(t)
	now := time.Date(2025, 3, 1, 7, 0, 0, 0, time.UTC)
	user := &models.User{ID: "u1", Experience: 75, Stage: "Spry Snapper", Version: 3, UpdatedAt: now}

	mock.ExpectExec(`UPDATE users\s+SET experience = \?, stage = \?, version = version \+ 1, updated_at = \?\s+WHERE id = \? AND version = \?`).
		WithArgs(75, "Spry Snapper", now, "u1", int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, store.UpdateUserExperience(context.Background(), user))
	assert.Equal(t, int64(4), user.Version)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_UpdateUserExperienceConflict(t *testing.T) {
	store, mock := newMockStore(t)
	user := &models.User{ID: "u1", Experience: 75, Stage: "Spry Snapper", Version: 3}

	mock.ExpectExec(`UPDATE users`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateUserExperience(context.Background(), user)
	require.ErrorIs(t, err, utils.ErrVersionConflict)
	assert.Equal(t, int64(3), user.Version)
}

func TestSQLStore_UpdateChallengeProgressConflict(t *testing.T) {
	store, mock := newMockStore(t)
	challenge := &models.Challenge{ID: "c1", Progress: 3, Target: 5, Version: 7}

	mock.ExpectExec(`UPDATE challenges\s+SET progress = \?, completed = \?, streak = \?`).
		WithArgs(3.0, false, 0, sqlmock.AnyArg(), "c1", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateChallengeProgress(context.Background(), challenge)
	require.ErrorIs(t, err, utils.ErrVersionConflict)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_GetUserByIdNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`SELECT .* FROM users WHERE id = \?`).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := store.GetUserById(context.Background(), "missing")
	require.ErrorIs(t, err, utils.ErrNotFound)
}

func TestSQLStore_GetChallengeByNameAbsent(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM challenges WHERE user_id = \? AND name = \?`).
		WithArgs("u1", "Sprint to Spry Snapper").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	c, err := store.GetChallengeByName(context.Background(), "u1", "Sprint to Spry Snapper")
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestSQLStore_Leaderboard(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows([]string{"username", "experience", "stage"}).
		AddRow("shelly", 320, "Shadow Shell").
		AddRow("snap", 60, "Spry Snapper")
	mock.ExpectQuery(`SELECT username, experience, stage FROM users ORDER BY experience DESC, username ASC LIMIT \?`).
		WithArgs(10).
		WillReturnRows(rows)

	entries, err := store.Leaderboard(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 1, entries[0].Rank)
	assert.Equal(t, "shelly", entries[0].Username)
	assert.Equal(t, 2, entries[1].Rank)
}

func TestSQLStore_DeleteChallengeNotFound(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectExec(`DELETE FROM challenges WHERE id = \?`).
		WithArgs("c404").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.DeleteChallenge(context.Background(), "c404")
	require.ErrorIs(t, err, utils.ErrNotFound)
}

func TestRebind(t *testing.T) {
	pg := &SQLStore{Driver: DriverPgx}
	assert.Equal(t, "SELECT 1 WHERE a = $1 AND b = $2", pg.rebind("SELECT 1 WHERE a = ? AND b = ?"))

	lite := &SQLStore{Driver: DriverSQLite}
	assert.Equal(t, "a = ?", lite.rebind("a = ?"))
}

func TestSQLStore_SQLiteRoundTrip(t *testing.T) {
	store := &SQLStore{}
	require.NoError(t, store.Connect(DriverSQLite, ":memory:"))
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	user := &models.User{ID: "u1", Username: "shelly", Stage: "Batchling Hatchling", Cosmetic: models.DefaultCosmetic, CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateUser(ctx, user))

	challenge := &models.Challenge{ID: "c1", UserID: "u1", Name: "Run 5k", Category: models.ChallengeCardio, Target: 5, Unit: "km", CreatedAt: now, UpdatedAt: now}
	require.NoError(t, store.CreateChallenge(ctx, challenge))

	stale, err := store.GetChallengeById(ctx, "c1")
	require.NoError(t, err)

	next, done := challenge.WithProgress(5)
	require.True(t, done)
	require.NoError(t, store.UpdateChallengeProgress(ctx, &next))

	staleNext, _ := stale.WithProgress(2)
	require.ErrorIs(t, store.UpdateChallengeProgress(ctx, &staleNext), utils.ErrVersionConflict)

	count, err := store.CountCompletedChallenges(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	n, err := store.ResetUserChallenges(ctx, "u1", now.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	reset, err := store.GetChallengeById(ctx, "c1")
	require.NoError(t, err)
	assert.Zero(t, reset.Progress)
	assert.False(t, reset.Completed)
	assert.Equal(t, 1, reset.Streak)

	got, err := store.GetUserByUsername(ctx, "shelly")
	require.NoError(t, err)
	assert.Nil(t, got.TelegramChatId)
	require.NoError(t, store.SetTelegramChat(ctx, "u1", 42))
	linked, err := store.GetUserByTelegramChatId(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "u1", linked.ID)
}

func TestSQLStore_ListUserChallengesNewestFirst(t *testing.T) {
	store := &SQLStore{}
	require.NoError(t, store.Connect(DriverSQLite, ":memory:"))
	t.Cleanup(func() { store.Close() })
	ctx := context.Background()
	now := time.Date(2025, 3, 2, 10, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateUser(ctx, &models.User{ID: "u1", Username: "shelly", Stage: "Batchling Hatchling", Cosmetic: models.DefaultCosmetic, CreatedAt: now, UpdatedAt: now}))
	for i, name := range []string{"oldest", "middle", "newest"} {
		at := now.Add(time.Duration(i) * time.Hour)
		require.NoError(t, store.CreateChallenge(ctx, &models.Challenge{
			ID: name, UserID: "u1", Name: name, Category: models.ChallengeCardio, Target: 5, Unit: "km", CreatedAt: at, UpdatedAt: at,
		}))
	}

	var names []string
	all, err := store.ListUserChallenges(ctx, "u1")
	require.NoError(t, err)
	for _, c := range all {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"newest", "middle", "oldest"}, names)

	cardio, err := store.ListChallengesByCategory(ctx, "u1", string(models.ChallengeCardio))
	require.NoError(t, err)
	require.Len(t, cardio, 3)
	assert.Equal(t, "newest", cardio[0].Name)
}
