package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"toughturtle/app/storage/models"
	"toughturtle/app/utils"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

const (
	DriverSQLite = "sqlite3"
	DriverPgx    = "pgx"
)

type Store interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserById(ctx context.Context, id string) (*models.User, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByTelegramChatId(ctx context.Context, chatId int64) (*models.User, error)
	ListUserIds(ctx context.Context) ([]string, error)
	UpdateUserExperience(ctx context.Context, user *models.User) error
	SetTelegramChat(ctx context.Context, userId string, chatId int64) error
	Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)

	CreateActivity(ctx context.Context, activity *models.Activity) error
	GetActivityById(ctx context.Context, id string) (*models.Activity, error)
	ListUserActivities(ctx context.Context, userId string, limit int) ([]models.Activity, error)
	ListUserActivitiesByCategory(ctx context.Context, userId, category string, limit int) ([]models.Activity, error)
	ListUserActivitiesInRange(ctx context.Context, userId string, start, end time.Time) ([]models.Activity, error)
	UpdateActivity(ctx context.Context, activity *models.Activity) error
	DeleteActivity(ctx context.Context, id string) error

	CreateChallenge(ctx context.Context, challenge *models.Challenge) error
	GetChallengeById(ctx context.Context, id string) (*models.Challenge, error)
	GetChallengeByName(ctx context.Context, userId, name string) (*models.Challenge, error)
	ListUserChallenges(ctx context.Context, userId string) ([]models.Challenge, error)
	ListCompletedChallenges(ctx context.Context, userId string) ([]models.Challenge, error)
	ListChallengesByCategory(ctx context.Context, userId, category string) ([]models.Challenge, error)
	CountCompletedChallenges(ctx context.Context, userId string) (int, error)
	UpdateChallengeProgress(ctx context.Context, challenge *models.Challenge) error
	ResetUserChallenges(ctx context.Context, userId string, at time.Time) (int64, error)
	DeleteChallenge(ctx context.Context, id string) error

	CreateWellnessEntry(ctx context.Context, entry *models.WellnessEntry) error
	CreateFeedPost(ctx context.Context, post *models.FeedPost) error
	ListFeed(ctx context.Context, limit int) ([]models.FeedPost, error)
}

var _ Store = (*SQLStore)(nil)

// SQLStore keeps users, activities and challenges in SQLite or Postgres. Queries are written
// with '?' placeholders and rebound for pgx.
type SQLStore struct {
	DB     *sql.DB
	Driver string
}

func (s *SQLStore) Connect(driver, dsn string) error {
	if driver == "" {
		driver = DriverSQLite
	}
	if driver != DriverSQLite && driver != DriverPgx {
		return fmt.Errorf("unsupported db driver %q", driver)
	}
	db, err := sql.Open(driver, dsn)
	if err != nil {
		slog.Error("cannot open database", "driver", driver)
		return err
	}
	if driver == DriverSQLite {
		// single writer, avoids SQLITE_BUSY
		db.SetMaxOpenConns(1)
	}
	s.DB = db
	s.Driver = driver
	if err = s.createTables(); err != nil {
		slog.Error("cannot create tables", "err", err)
		return err
	}
	return nil
}

func (s *SQLStore) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *SQLStore) createTables() error {
	tables := []string{`
    CREATE TABLE IF NOT EXISTS users (
      id TEXT PRIMARY KEY,
      username TEXT UNIQUE NOT NULL,
      email TEXT NOT NULL DEFAULT '',
      password_hash TEXT NOT NULL DEFAULT '',
      experience INTEGER NOT NULL DEFAULT 0,
      stage TEXT NOT NULL,
      cosmetic TEXT NOT NULL DEFAULT 'default',
      cosmetic_expiry TIMESTAMP,
      telegram_chat_id BIGINT UNIQUE,
      version BIGINT NOT NULL DEFAULT 1,
      created_at TIMESTAMP NOT NULL,
      updated_at TIMESTAMP NOT NULL
    );`, `
    CREATE TABLE IF NOT EXISTS activities (
      id TEXT PRIMARY KEY,
      user_id TEXT NOT NULL REFERENCES users(id),
      category TEXT NOT NULL,
      subtype TEXT NOT NULL,
      value DOUBLE PRECISION NOT NULL,
      unit TEXT NOT NULL,
      notes TEXT,
      created_at TIMESTAMP NOT NULL
    );`, `
    CREATE INDEX IF NOT EXISTS activities_user_created ON activities (user_id, created_at);`, `
    CREATE TABLE IF NOT EXISTS challenges (
      id TEXT PRIMARY KEY,
      user_id TEXT NOT NULL REFERENCES users(id),
      name TEXT NOT NULL,
      category TEXT NOT NULL,
      target DOUBLE PRECISION NOT NULL,
      progress DOUBLE PRECISION NOT NULL DEFAULT 0,
      unit TEXT NOT NULL,
      completed BOOLEAN NOT NULL DEFAULT FALSE,
      streak INTEGER NOT NULL DEFAULT 0,
      version BIGINT NOT NULL DEFAULT 1,
      created_at TIMESTAMP NOT NULL,
      updated_at TIMESTAMP NOT NULL
    );`, `
    CREATE INDEX IF NOT EXISTS challenges_user ON challenges (user_id);`, `
    CREATE TABLE IF NOT EXISTS wellness (
      id TEXT PRIMARY KEY,
      user_id TEXT NOT NULL REFERENCES users(id),
      sleep_hours DOUBLE PRECISION NOT NULL,
      mood TEXT NOT NULL DEFAULT '',
      created_at TIMESTAMP NOT NULL
    );`, `
    CREATE TABLE IF NOT EXISTS feed (
      id TEXT PRIMARY KEY,
      user_id TEXT NOT NULL REFERENCES users(id),
      message TEXT NOT NULL,
      created_at TIMESTAMP NOT NULL
    );`,
	}
	for _, table := range tables {
		if _, err := s.DB.Exec(table); err != nil {
			return err
		}
	}
	return nil
}

// rebind turns '?' placeholders into the $n form pgx expects.
func (s *SQLStore) rebind(query string) string {
	if s.Driver != DriverPgx {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

type scanner interface {
	Scan(dest ...any) error
}

func notFound(kind, id string, err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s %s: %w", kind, id, utils.ErrNotFound)
	}
	return err
}

func expectOneRow(result sql.Result, conflict error) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return conflict
	}
	return nil
}
