package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"toughturtle/app/storage/models"
	"toughturtle/app/utils"
)

const userColumns = `id, username, email, password_hash, experience, stage, cosmetic, cosmetic_expiry, telegram_chat_id, version, created_at, updated_at`

func scanUser(row scanner) (*models.User, error) {
	u := &models.User{}
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.Experience, &u.Stage, &u.Cosmetic,
		&u.CosmeticExpiry, &u.TelegramChatId, &u.Version, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) error {
	query := `
    INSERT INTO users (
      id, username, email, password_hash, experience, stage, cosmetic, cosmetic_expiry, telegram_chat_id, version, created_at, updated_at
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
  `
	if user.Version == 0 {
		user.Version = 1
	}
	_, err := s.DB.ExecContext(ctx, s.rebind(query), user.ID, user.Username, user.Email, user.PasswordHash, user.Experience,
		user.Stage, user.Cosmetic, user.CosmeticExpiry, user.TelegramChatId, user.Version, user.CreatedAt.UTC(), user.UpdatedAt.UTC())
	if err != nil {
		slog.Error("error while creating user", "err", err, "username", user.Username)
		return err
	}
	return nil
}

func (s *SQLStore) GetUserById(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	u, err := scanUser(s.DB.QueryRowContext(ctx, s.rebind(query), id))
	if err != nil {
		return nil, notFound("user", id, err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE username = ?`
	u, err := scanUser(s.DB.QueryRowContext(ctx, s.rebind(query), username))
	if err != nil {
		return nil, notFound("user", username, err)
	}
	return u, nil
}

func (s *SQLStore) GetUserByTelegramChatId(ctx context.Context, chatId int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE telegram_chat_id = ?`
	u, err := scanUser(s.DB.QueryRowContext(ctx, s.rebind(query), chatId))
	if err != nil {
		return nil, notFound("telegram chat", strconv.FormatInt(chatId, 10), err)
	}
	return u, nil
}

func (s *SQLStore) ListUserIds(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id FROM users ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// UpdateUserExperience writes experience and stage only if nobody else updated the row since
// user.Version was read. On success user.Version is advanced.
func (s *SQLStore) UpdateUserExperience(ctx context.Context, user *models.User) error {
	query := `
    UPDATE users
    SET experience = ?, stage = ?, version = version + 1, updated_at = ?
    WHERE id = ? AND version = ?
  `
	result, err := s.DB.ExecContext(ctx, s.rebind(query), user.Experience, user.Stage, user.UpdatedAt.UTC(), user.ID, user.Version)
	if err != nil {
		slog.Error("error while updating user experience", "err", err, "userID", user.ID)
		return err
	}
	if err := expectOneRow(result, fmt.Errorf("user %s: %w", user.ID, utils.ErrVersionConflict)); err != nil {
		return err
	}
	user.Version++
	return nil
}

func (s *SQLStore) SetTelegramChat(ctx context.Context, userId string, chatId int64) error {
	query := `UPDATE users SET telegram_chat_id = ? WHERE id = ?`
	result, err := s.DB.ExecContext(ctx, s.rebind(query), chatId, userId)
	if err != nil {
		return err
	}
	return expectOneRow(result, fmt.Errorf("user %s: %w", userId, utils.ErrNotFound))
}

func (s *SQLStore) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	query := `SELECT username, experience, stage FROM users ORDER BY experience DESC, username ASC LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, s.rebind(query), limit)
	if err != nil {
		slog.Error("error while fetching leaderboard", "err", err)
		return nil, err
	}
	defer rows.Close()

	var entries []models.LeaderboardEntry
	for rows.Next() {
		e := models.LeaderboardEntry{Rank: len(entries) + 1}
		if err := rows.Scan(&e.Username, &e.Experience, &e.Stage); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
