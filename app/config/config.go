package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	EnvDev  = "DEV"
	EnvProd = "PROD"
)

type Config struct {
	Env      string
	Port     string
	URL      string
	LogLevel slog.Level

	DBDriver string
	DBDSN    string

	JWTSecret  string
	JWTTTL     time.Duration
	SessionKey string

	StravaClientID     string
	StravaClientSecret string
	StravaScope        string
	StravaTimeout      time.Duration

	RedisAddr string
	MQURL     string

	TelegramAPIKey  string
	TelegramBotName string

	ChallengeCatalog string
	LeaderboardSize  int
	WeekStart        time.Weekday
	Location         *time.Location
}

// LoadDotEnv reads .env into the process environment. A missing file is fine; a broken one is not.
func LoadDotEnv(files ...string) error {
	err := godotenv.Load(files...)
	if err == nil {
		return nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		if os.Getenv("ENV") != EnvProd {
			slog.Warn("no .env file found, using process environment")
		}
		return nil
	}
	return fmt.Errorf("load .env: %w", err)
}

func Load() (Config, error) {
	cfg := Config{
		Env:                getEnv("ENV", EnvDev),
		Port:               getEnv("PORT", "8080"),
		URL:                strings.TrimSuffix(getEnv("URL", "http://localhost:8080"), "/"),
		DBDriver:           getEnv("DB_DRIVER", "sqlite3"),
		DBDSN:              getEnv("DB_DSN", "file:toughturtle.db?_foreign_keys=on"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		JWTTTL:             getDurationEnv("JWT_TTL", 7*24*time.Hour),
		SessionKey:         getEnv("SESSION_KEY", ""),
		StravaClientID:     getEnv("STRAVA_CLIENT_ID", ""),
		StravaClientSecret: getEnv("STRAVA_CLIENT_SECRET", ""),
		StravaScope:        getEnv("STRAVA_SCOPE", "read,activity:read_all"),
		StravaTimeout:      getDurationEnv("STRAVA_TIMEOUT", 10*time.Second),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		MQURL:              getEnv("MQ_URL", ""),
		TelegramAPIKey:     getEnv("TELEGRAM_API_KEY", ""),
		TelegramBotName:    getEnv("TELEGRAM_BOT_NAME", ""),
		ChallengeCatalog:   getEnv("CHALLENGE_CATALOG", ""),
		LeaderboardSize:    getIntEnv("LEADERBOARD_SIZE", 10),
	}

	level, err := parseLevel(getEnv("LOG_LEVEL", defaultLevel(cfg.Env)))
	if err != nil {
		return cfg, err
	}
	cfg.LogLevel = level

	weekStart, err := parseWeekday(getEnv("WEEK_START", "sunday"))
	if err != nil {
		return cfg, err
	}
	cfg.WeekStart = weekStart

	loc, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return cfg, fmt.Errorf("TIMEZONE: %w", err)
	}
	cfg.Location = loc

	if cfg.Env == EnvProd {
		if cfg.JWTSecret == "" {
			return cfg, errors.New("JWT_SECRET is required in PROD")
		}
		if cfg.SessionKey == "" {
			return cfg, errors.New("SESSION_KEY is required in PROD")
		}
	}
	return cfg, nil
}

func (c Config) IsProd() bool {
	return c.Env == EnvProd
}

func (c Config) StravaEnabled() bool {
	return c.StravaClientID != "" && c.StravaClientSecret != ""
}

func defaultLevel(env string) string {
	if env == EnvProd {
		return "info"
	}
	return "debug"
}

func parseLevel(value string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return level, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	return level, nil
}

var weekdays = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

func parseWeekday(value string) (time.Weekday, error) {
	d, ok := weekdays[strings.ToLower(strings.TrimSpace(value))]
	if !ok {
		return time.Sunday, fmt.Errorf("WEEK_START: unknown weekday %q", value)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
		slog.Warn("ignoring malformed duration", "key", key, "value", value)
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
		slog.Warn("ignoring malformed integer", "key", key, "value", value)
	}
	return fallback
}
