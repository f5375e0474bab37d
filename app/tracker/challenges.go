package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"toughturtle/app/events"
	"toughturtle/app/observability"
	"toughturtle/app/progression"
	"toughturtle/app/storage/models"
	"toughturtle/app/utils"

	"github.com/google/uuid"
)

var challengeCategories = map[string]struct{}{
	models.ChallengeCardio:     {},
	models.ChallengeSleep:      {},
	models.ChallengeStrength:   {},
	models.ChallengeHydration:  {},
	models.ChallengeMeditation: {},
}

func validChallengeCategory(category string) bool {
	_, ok := challengeCategories[category]
	return ok
}

type ChallengeInput struct {
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Target   float64 `json:"target"`
	Unit     string  `json:"unit"`
}

func (in ChallengeInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return utils.Invalid("name", "is required")
	}
	if !validChallengeCategory(in.Category) {
		return utils.Invalid("category", fmt.Sprintf("unknown category %q", in.Category))
	}
	if !finite(in.Target) || in.Target <= 0 {
		return utils.Invalid("target", "must be greater than zero")
	}
	if strings.TrimSpace(in.Unit) == "" {
		return utils.Invalid("unit", "is required")
	}
	return nil
}

// Outcome is the result of moving a challenge forward.
type Outcome struct {
	Challenge     *models.Challenge `json:"challenge"`
	JustCompleted bool              `json:"just_completed"`
	XPGained      int               `json:"xp_gained"`
	User          *models.User      `json:"user,omitempty"`
}

// AddProgress adds a non-negative delta to the challenge, capped at its target.
func (t *Tracker) AddProgress(ctx context.Context, challengeId string, delta float64) (*models.Challenge, bool, error) {
	if !finite(delta) || delta < 0 {
		return nil, false, utils.Invalid("delta", "must be a non-negative number")
	}
	return t.updateProgress(ctx, "", challengeId, func(c models.Challenge) float64 {
		return c.Progress + delta
	})
}

// SetProgress replaces the progress with an absolute value clamped to [0, target].
func (t *Tracker) SetProgress(ctx context.Context, challengeId string, progress float64) (*models.Challenge, bool, error) {
	if !finite(progress) {
		return nil, false, utils.Invalid("progress", "must be a number")
	}
	return t.updateProgress(ctx, "", challengeId, func(models.Challenge) float64 {
		return progress
	})
}

// Advance adds progress to a challenge owned by owner and pays out the completion reward.
func (t *Tracker) Advance(ctx context.Context, owner, challengeId string, delta float64) (*Outcome, error) {
	if !finite(delta) || delta < 0 {
		return nil, utils.Invalid("delta", "must be a non-negative number")
	}
	ch, justCompleted, err := t.updateProgress(ctx, owner, challengeId, func(c models.Challenge) float64 {
		return c.Progress + delta
	})
	if err != nil {
		return nil, err
	}
	return t.complete(ctx, owner, ch, justCompleted)
}

// ApplyVerification stores externally verified progress on a challenge owned by owner.
func (t *Tracker) ApplyVerification(ctx context.Context, owner, challengeId string, progress float64) (*Outcome, error) {
	if !finite(progress) {
		return nil, utils.Invalid("progress", "must be a number")
	}
	ch, justCompleted, err := t.updateProgress(ctx, owner, challengeId, func(models.Challenge) float64 {
		return progress
	})
	if err != nil {
		return nil, err
	}
	return t.complete(ctx, owner, ch, justCompleted)
}

func (t *Tracker) complete(ctx context.Context, owner string, ch *models.Challenge, justCompleted bool) (*Outcome, error) {
	out := &Outcome{Challenge: ch, JustCompleted: justCompleted}
	if !justCompleted {
		return out, nil
	}
	observability.RecordChallengeCompleted(ch.Category)
	xp := progression.ChallengeXP(ch.Category)
	user, err := t.awardXP(ctx, owner, "challenge", xp)
	if err != nil {
		return nil, fmt.Errorf("award challenge xp: %w", err)
	}
	out.XPGained = xp
	out.User = user
	slog.Info("challenge completed", "userID", owner, "challengeID", ch.ID, "streak", ch.Streak)
	t.publish(ctx, events.TypeChallengeCompleted, owner, map[string]string{
		"challenge_id": ch.ID,
		"name":         ch.Name,
		"category":     ch.Category,
		"streak":       strconv.Itoa(ch.Streak),
		"xp":           strconv.Itoa(xp),
	})
	return out, nil
}

// updateProgress runs read-compute-write until the conditional update lands. An empty owner
// skips the ownership check.
func (t *Tracker) updateProgress(ctx context.Context, owner, challengeId string, next func(models.Challenge) float64) (*models.Challenge, bool, error) {
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, false, err
		}
		current, err := t.Store.GetChallengeById(ctx, challengeId)
		if err != nil {
			return nil, false, err
		}
		if owner != "" && current.UserID != owner {
			return nil, false, fmt.Errorf("challenge %s: %w", challengeId, utils.ErrNotFound)
		}
		updated, justCompleted := current.WithProgress(next(*current))
		updated.UpdatedAt = t.now()

		err = t.Store.UpdateChallengeProgress(ctx, &updated)
		if err == nil {
			return &updated, justCompleted, nil
		}
		if !errors.Is(err, utils.ErrVersionConflict) {
			return nil, false, err
		}
		observability.RecordVersionConflict("challenge")
		if attempt >= t.maxRetries() {
			slog.Error("giving up on challenge update", "challengeID", challengeId, "attempts", attempt)
			return nil, false, fmt.Errorf("update challenge after %d attempts: %w", attempt, err)
		}
		slog.Debug("challenge changed underneath, retrying", "challengeID", challengeId, "attempt", attempt)
	}
}

// ResetDaily zeroes progress and completion of every challenge the owner has; streaks stay.
func (t *Tracker) ResetDaily(ctx context.Context, owner string) (int64, error) {
	n, err := t.Store.ResetUserChallenges(ctx, owner, t.now())
	if err != nil {
		return 0, err
	}
	slog.Info("daily challenges reset", "userID", owner, "challenges", n)
	return n, nil
}

// ResetAll runs ResetDaily for every user and returns how many users were processed.
func (t *Tracker) ResetAll(ctx context.Context) (int, error) {
	ids, err := t.Store.ListUserIds(ctx)
	if err != nil {
		return 0, err
	}
	var errs []error
	done := 0
	for _, id := range ids {
		if _, err := t.ResetDaily(ctx, id); err != nil {
			slog.Error("error while resetting challenges", "userID", id, "err", err)
			errs = append(errs, err)
			continue
		}
		done++
	}
	return done, errors.Join(errs...)
}

func (t *Tracker) CreateChallenge(ctx context.Context, owner string, in ChallengeInput) (*models.Challenge, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Unit = strings.TrimSpace(in.Unit)
	if err := in.validate(); err != nil {
		return nil, err
	}
	existing, err := t.Store.GetChallengeByName(ctx, owner, in.Name)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, utils.Invalid("name", "challenge already exists")
	}
	now := t.now()
	ch := &models.Challenge{
		ID:        uuid.NewString(),
		UserID:    owner,
		Name:      in.Name,
		Category:  in.Category,
		Target:    in.Target,
		Unit:      in.Unit,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := t.Store.CreateChallenge(ctx, ch); err != nil {
		return nil, err
	}
	return ch, nil
}

// Challenge returns a challenge owned by owner; someone else's challenge is NotFound.
func (t *Tracker) Challenge(ctx context.Context, owner, challengeId string) (*models.Challenge, error) {
	ch, err := t.Store.GetChallengeById(ctx, challengeId)
	if err != nil {
		return nil, err
	}
	if ch.UserID != owner {
		return nil, fmt.Errorf("challenge %s: %w", challengeId, utils.ErrNotFound)
	}
	return ch, nil
}

func (t *Tracker) Challenges(ctx context.Context, owner string) ([]models.Challenge, error) {
	return t.Store.ListUserChallenges(ctx, owner)
}

func (t *Tracker) CompletedChallenges(ctx context.Context, owner string) ([]models.Challenge, error) {
	return t.Store.ListCompletedChallenges(ctx, owner)
}

func (t *Tracker) ChallengesByCategory(ctx context.Context, owner, category string) ([]models.Challenge, error) {
	if !validChallengeCategory(category) {
		return nil, utils.Invalid("category", fmt.Sprintf("unknown category %q", category))
	}
	return t.Store.ListChallengesByCategory(ctx, owner, category)
}

func (t *Tracker) DeleteChallenge(ctx context.Context, owner, challengeId string) error {
	if _, err := t.Challenge(ctx, owner, challengeId); err != nil {
		return err
	}
	return t.Store.DeleteChallenge(ctx, challengeId)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
