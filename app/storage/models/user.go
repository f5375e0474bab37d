package models

import (
	"time"
)

type User struct {
	ID             string     `json:"id"`
	Username       string     `json:"username"`
	Email          string     `json:"email"`
	PasswordHash   string     `json:"-"`
	Experience     int        `json:"experience"`
	Stage          string     `json:"stage"`
	Cosmetic       string     `json:"cosmetic"`
	CosmeticExpiry *time.Time `json:"cosmetic_expiry,omitempty"`
	TelegramChatId *int64     `json:"-"`
	Version        int64      `json:"-"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ActiveCosmetic reports the cosmetic in effect at now; an expired one falls back to default.
func (u User) ActiveCosmetic(now time.Time) string {
	if u.Cosmetic == "" {
		return DefaultCosmetic
	}
	if u.CosmeticExpiry != nil && !u.CosmeticExpiry.After(now) {
		return DefaultCosmetic
	}
	return u.Cosmetic
}

const DefaultCosmetic = "default"

type LeaderboardEntry struct {
	Rank       int    `json:"rank"`
	Username   string `json:"username"`
	Experience int    `json:"experience"`
	Stage      string `json:"stage"`
}
