package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"toughturtle/app/storage/models"
	"toughturtle/app/utils"
)

const challengeColumns = `id, user_id, name, category, target, progress, unit, completed, streak, version, created_at, updated_at`

func scanChallenge(row scanner) (models.Challenge, error) {
	var c models.Challenge
	err := row.Scan(&c.ID, &c.UserID, &c.Name, &c.Category, &c.Target, &c.Progress, &c.Unit, &c.Completed,
		&c.Streak, &c.Version, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}

func (s *SQLStore) queryChallenges(ctx context.Context, query string, args ...any) ([]models.Challenge, error) {
	rows, err := s.DB.QueryContext(ctx, s.rebind(query), args...)
	if err != nil {
		slog.Error("error while listing challenges", "err", err)
		return nil, err
	}
	defer rows.Close()

	var challenges []models.Challenge
	for rows.Next() {
		c, err := scanChallenge(rows)
		if err != nil {
			return nil, err
		}
		challenges = append(challenges, c)
	}
	return challenges, rows.Err()
}

func (s *SQLStore) CreateChallenge(ctx context.Context, challenge *models.Challenge) error {
	query := `INSERT INTO challenges (` + challengeColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if challenge.Version == 0 {
		challenge.Version = 1
	}
	_, err := s.DB.ExecContext(ctx, s.rebind(query), challenge.ID, challenge.UserID, challenge.Name, challenge.Category,
		challenge.Target, challenge.Progress, challenge.Unit, challenge.Completed, challenge.Streak, challenge.Version,
		challenge.CreatedAt.UTC(), challenge.UpdatedAt.UTC())
	if err != nil {
		slog.Error("error while creating challenge", "err", err, "userID", challenge.UserID, "name", challenge.Name)
		return err
	}
	return nil
}

func (s *SQLStore) GetChallengeById(ctx context.Context, id string) (*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE id = ?`
	c, err := scanChallenge(s.DB.QueryRowContext(ctx, s.rebind(query), id))
	if err != nil {
		return nil, notFound("challenge", id, err)
	}
	return &c, nil
}

// GetChallengeByName returns nil, nil when the user has no challenge with that name.
func (s *SQLStore) GetChallengeByName(ctx context.Context, userId, name string) (*models.Challenge, error) {
	query := `SELECT ` + challengeColumns + ` FROM challenges WHERE user_id = ? AND name = ? ORDER BY created_at LIMIT 1`
	c, err := scanChallenge(s.DB.QueryRowContext(ctx, s.rebind(query), userId, name))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *SQLStore) ListUserChallenges(ctx context.Context, userId string) ([]models.Challenge, error) {
	return s.queryChallenges(ctx, `SELECT `+challengeColumns+` FROM challenges WHERE user_id = ? ORDER BY created_at DESC`, userId)
}

func (s *SQLStore) ListCompletedChallenges(ctx context.Context, userId string) ([]models.Challenge, error) {
	return s.queryChallenges(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE user_id = ? AND completed = ? ORDER BY updated_at DESC`, userId, true)
}

func (s *SQLStore) ListChallengesByCategory(ctx context.Context, userId, category string) ([]models.Challenge, error) {
	return s.queryChallenges(ctx,
		`SELECT `+challengeColumns+` FROM challenges WHERE user_id = ? AND category = ? ORDER BY created_at DESC`, userId, category)
}

func (s *SQLStore) CountCompletedChallenges(ctx context.Context, userId string) (int, error) {
	var n int
	query := `SELECT COUNT(*) FROM challenges WHERE user_id = ? AND completed = ?`
	if err := s.DB.QueryRowContext(ctx, s.rebind(query), userId, true).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

// UpdateChallengeProgress is a conditional write on challenge.Version. A concurrent writer that got
// there first makes it fail with ErrVersionConflict.
func (s *SQLStore) UpdateChallengeProgress(ctx context.Context, challenge *models.Challenge) error {
	query := `
    UPDATE challenges
    SET progress = ?, completed = ?, streak = ?, version = version + 1, updated_at = ?
    WHERE id = ? AND version = ?
  `
	result, err := s.DB.ExecContext(ctx, s.rebind(query), challenge.Progress, challenge.Completed, challenge.Streak,
		challenge.UpdatedAt.UTC(), challenge.ID, challenge.Version)
	if err != nil {
		slog.Error("error while updating challenge", "err", err, "challengeID", challenge.ID)
		return err
	}
	if err := expectOneRow(result, fmt.Errorf("challenge %s: %w", challenge.ID, utils.ErrVersionConflict)); err != nil {
		return err
	}
	challenge.Version++
	return nil
}

// ResetUserChallenges zeroes progress and completion for every challenge of the user. Streaks survive.
func (s *SQLStore) ResetUserChallenges(ctx context.Context, userId string, at time.Time) (int64, error) {
	query := `
    UPDATE challenges
    SET progress = 0, completed = ?, version = version + 1, updated_at = ?
    WHERE user_id = ?
  `
	result, err := s.DB.ExecContext(ctx, s.rebind(query), false, at.UTC(), userId)
	if err != nil {
		slog.Error("error while resetting challenges", "err", err, "userID", userId)
		return 0, err
	}
	return result.RowsAffected()
}

func (s *SQLStore) DeleteChallenge(ctx context.Context, id string) error {
	result, err := s.DB.ExecContext(ctx, s.rebind(`DELETE FROM challenges WHERE id = ?`), id)
	if err != nil {
		return err
	}
	return expectOneRow(result, fmt.Errorf("challenge %s: %w", id, utils.ErrNotFound))
}
