package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"toughturtle/app/storage/models"
	"toughturtle/app/utils"
)

const activityColumns = `id, user_id, category, subtype, value, unit, notes, created_at`

func scanActivity(row scanner) (models.Activity, error) {
	var a models.Activity
	var notes sql.NullString
	if err := row.Scan(&a.ID, &a.UserID, &a.Category, &a.Subtype, &a.Value, &a.Unit, &notes, &a.CreatedAt); err != nil {
		return a, err
	}
	if notes.Valid {
		a.Notes = &notes.String
	}
	return a, nil
}

func collectActivities(rows *sql.Rows) ([]models.Activity, error) {
	defer rows.Close()
	var activities []models.Activity
	for rows.Next() {
		a, err := scanActivity(rows)
		if err != nil {
			return nil, err
		}
		activities = append(activities, a)
	}
	return activities, rows.Err()
}

func (s *SQLStore) CreateActivity(ctx context.Context, activity *models.Activity) error {
	query := `INSERT INTO activities (` + activityColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, s.rebind(query), activity.ID, activity.UserID, activity.Category, activity.Subtype,
		activity.Value, activity.Unit, activity.Notes, activity.CreatedAt.UTC())
	if err != nil {
		slog.Error("error while creating activity", "err", err, "userID", activity.UserID)
		return err
	}
	return nil
}

func (s *SQLStore) GetActivityById(ctx context.Context, id string) (*models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE id = ?`
	a, err := scanActivity(s.DB.QueryRowContext(ctx, s.rebind(query), id))
	if err != nil {
		return nil, notFound("activity", id, err)
	}
	return &a, nil
}

func (s *SQLStore) ListUserActivities(ctx context.Context, userId string, limit int) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, s.rebind(query), userId, limit)
	if err != nil {
		slog.Error("error while listing activities", "err", err, "userID", userId)
		return nil, err
	}
	return collectActivities(rows)
}

func (s *SQLStore) ListUserActivitiesByCategory(ctx context.Context, userId, category string, limit int) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id = ? AND category = ? ORDER BY created_at DESC LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, s.rebind(query), userId, category, limit)
	if err != nil {
		slog.Error("error while listing activities", "err", err, "userID", userId, "category", category)
		return nil, err
	}
	return collectActivities(rows)
}

// ListUserActivitiesInRange returns activities created in [start, end), oldest first.
func (s *SQLStore) ListUserActivitiesInRange(ctx context.Context, userId string, start, end time.Time) ([]models.Activity, error) {
	query := `SELECT ` + activityColumns + ` FROM activities WHERE user_id = ? AND created_at >= ? AND created_at < ? ORDER BY created_at`
	rows, err := s.DB.QueryContext(ctx, s.rebind(query), userId, start.UTC(), end.UTC())
	if err != nil {
		slog.Error("error while listing activities in range", "err", err, "userID", userId)
		return nil, err
	}
	return collectActivities(rows)
}

func (s *SQLStore) UpdateActivity(ctx context.Context, activity *models.Activity) error {
	query := `UPDATE activities SET category = ?, subtype = ?, value = ?, unit = ?, notes = ? WHERE id = ?`
	result, err := s.DB.ExecContext(ctx, s.rebind(query), activity.Category, activity.Subtype, activity.Value,
		activity.Unit, activity.Notes, activity.ID)
	if err != nil {
		slog.Error("error while updating activity", "err", err, "activityID", activity.ID)
		return err
	}
	return expectOneRow(result, fmt.Errorf("activity %s: %w", activity.ID, utils.ErrNotFound))
}

func (s *SQLStore) DeleteActivity(ctx context.Context, id string) error {
	result, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM activities WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectOneRow(result, fmt.Errorf("activity %s: %w", id, utils.ErrNotFound))
}

func (s *SQLStore) CreateWellnessEntry(ctx context.Context, entry *models.WellnessEntry) error {
	query := `INSERT INTO wellness (id, user_id, sleep_hours, mood, created_at) VALUES (?, ?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, s.rebind(query), entry.ID, entry.UserID, entry.SleepHours, entry.Mood, entry.CreatedAt.UTC())
	if err != nil {
		slog.Error("error while creating wellness entry", "err", err, "userID", entry.UserID)
		return err
	}
	return nil
}

func (s *SQLStore) CreateFeedPost(ctx context.Context, post *models.FeedPost) error {
	query := `INSERT INTO feed (id, user_id, message, created_at) VALUES (?, ?, ?, ?)`
	_, err := s.DB.ExecContext(ctx, s.rebind(query), post.ID, post.UserID, post.Message, post.CreatedAt.UTC())
	if err != nil {
		slog.Error("error while creating feed post", "err", err, "userID", post.UserID)
		return err
	}
	return nil
}

func (s *SQLStore) ListFeed(ctx context.Context, limit int) ([]models.FeedPost, error) {
	query := `SELECT id, user_id, message, created_at FROM feed ORDER BY created_at DESC LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, s.rebind(query), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var posts []models.FeedPost
	for rows.Next() {
		var p models.FeedPost
		if err := rows.Scan(&p.ID, &p.UserID, &p.Message, &p.CreatedAt); err != nil {
			return nil, err
		}
		posts = append(posts, p)
	}
	return posts, rows.Err()
}
