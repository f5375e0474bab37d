package models

import "time"

const (
	ChallengeCardio     = "cardio"
	ChallengeSleep      = "sleep"
	ChallengeStrength   = "strength"
	ChallengeHydration  = "hydration"
	ChallengeMeditation = "meditation"
)

type Challenge struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category"`
	Target    float64   `json:"target"`
	Progress  float64   `json:"progress"`
	Unit      string    `json:"unit"`
	Completed bool      `json:"completed"`
	Streak    int       `json:"streak"`
	Version   int64     `json:"-"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// WithProgress applies a new progress value: clamped to [0, target], completion recomputed,
// streak bumped only on the false->true transition. The receiver is not modified.
func (c Challenge) WithProgress(progress float64) (Challenge, bool) {
	if progress < 0 {
		progress = 0
	}
	if progress > c.Target {
		progress = c.Target
	}
	next := c
	next.Progress = progress
	next.Completed = progress >= c.Target
	justCompleted := next.Completed && !c.Completed
	if justCompleted {
		next.Streak++
	}
	return next, justCompleted
}
