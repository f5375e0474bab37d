package models

import "time"

const (
	CategoryExercise   = "exercise"
	CategorySleep      = "sleep"
	CategoryBiohacking = "biohacking"
)

type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Category  string    `json:"category"`
	Subtype   string    `json:"subtype"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Notes     *string   `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

type WellnessEntry struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	SleepHours float64   `json:"sleep_hours"`
	Mood       string    `json:"mood"`
	CreatedAt  time.Time `json:"created_at"`
}

type FeedPost struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}
