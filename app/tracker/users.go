package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"unicode"

	"toughturtle/app/events"
	"toughturtle/app/observability"
	"toughturtle/app/progression"
	"toughturtle/app/storage/models"
	"toughturtle/app/utils"

	"github.com/google/uuid"
)

const (
	minPasswordLength = 8
	maxUsernameLength = 32
)

type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (in RegisterInput) validate() error {
	if in.Username == "" {
		return utils.Invalid("username", "is required")
	}
	if len(in.Username) > maxUsernameLength {
		return utils.Invalid("username", fmt.Sprintf("must be at most %d characters", maxUsernameLength))
	}
	for _, r := range in.Username {
		if unicode.IsSpace(r) {
			return utils.Invalid("username", "must not contain spaces")
		}
	}
	if !strings.Contains(in.Email, "@") {
		return utils.Invalid("email", "is not an email address")
	}
	if len(in.Password) < minPasswordLength {
		return utils.Invalid("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	return nil
}

// Register creates a hatchling and hands it the starter challenges from the catalog.
func (t *Tracker) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := in.validate(); err != nil {
		return nil, err
	}
	_, err := t.Store.GetUserByUsername(ctx, in.Username)
	if err == nil {
		return nil, utils.Invalid("username", "is taken")
	}
	if !errors.Is(err, utils.ErrNotFound) {
		return nil, err
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	now := t.now()
	user := &models.User{
		ID:           uuid.NewString(),
		Username:     in.Username,
		Email:        in.Email,
		PasswordHash: hash,
		Stage:        string(progression.StageFor(0)),
		Cosmetic:     models.DefaultCosmetic,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := t.Store.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	slog.Info("user registered", "userID", user.ID, "username", user.Username)

	for _, entry := range t.Catalog {
		ch := entry.challenge(user.ID, now)
		if err := t.Store.CreateChallenge(ctx, &ch); err != nil {
			return nil, fmt.Errorf("seed challenge %q: %w", entry.Name, err)
		}
	}
	return user, nil
}

// Authenticate checks a username and password pair. Both failure modes look the same.
func (t *Tracker) Authenticate(ctx context.Context, username, password string) (*models.User, error) {
	user, err := t.Store.GetUserByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, utils.ErrNotFound) {
		return nil, utils.ErrUnauthorized
	}
	if err != nil {
		return nil, err
	}
	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, utils.ErrUnauthorized
	}
	return user, nil
}

func (t *Tracker) User(ctx context.Context, id string) (*models.User, error) {
	return t.Store.GetUserById(ctx, id)
}

func (t *Tracker) UserByTelegramChat(ctx context.Context, chatId int64) (*models.User, error) {
	return t.Store.GetUserByTelegramChatId(ctx, chatId)
}

func (t *Tracker) LinkTelegram(ctx context.Context, owner string, chatId int64) error {
	if err := t.Store.SetTelegramChat(ctx, owner, chatId); err != nil {
		return err
	}
	slog.Info("telegram chat linked", "userID", owner, "chatID", chatId)
	return nil
}

// RecordXpGain adds delta to the user's experience and recomputes the stage in one update.
func (t *Tracker) RecordXpGain(ctx context.Context, owner string, delta int) (*models.User, error) {
	return t.awardXP(ctx, owner, "direct", delta)
}

func (t *Tracker) awardXP(ctx context.Context, owner, source string, delta int) (*models.User, error) {
	if delta < 0 {
		return nil, utils.Invalid("delta", "must not be negative")
	}
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current, err := t.Store.GetUserById(ctx, owner)
		if err != nil {
			return nil, err
		}
		if delta > math.MaxInt-current.Experience {
			return nil, utils.Invalid("delta", "would overflow experience")
		}
		user := *current
		user.Experience += delta
		user.Stage = string(progression.StageFor(user.Experience))
		user.UpdatedAt = t.now()

		err = t.Store.UpdateUserExperience(ctx, &user)
		if err == nil {
			observability.RecordXP(source, delta)
			if user.Stage != current.Stage {
				t.evolved(ctx, &user, current.Stage)
			}
			return &user, nil
		}
		if !errors.Is(err, utils.ErrVersionConflict) {
			return nil, err
		}
		observability.RecordVersionConflict("user")
		if attempt >= t.maxRetries() {
			slog.Error("giving up on experience update", "userID", owner, "attempts", attempt)
			return nil, fmt.Errorf("update experience after %d attempts: %w", attempt, err)
		}
		slog.Debug("user changed underneath, retrying", "userID", owner, "attempt", attempt)
	}
}

func (t *Tracker) evolved(ctx context.Context, user *models.User, from string) {
	observability.RecordStageEvolution(user.Stage)
	slog.Info("turtle evolved", "userID", user.ID, "from", from, "to", user.Stage, "xp", user.Experience)
	t.publish(ctx, events.TypeStageEvolved, user.ID, map[string]string{
		"from":       from,
		"to":         user.Stage,
		"experience": strconv.Itoa(user.Experience),
	})
}

type Profile struct {
	User                *models.User       `json:"user"`
	Cosmetic            string             `json:"cosmetic"`
	NextStage           string             `json:"next_stage,omitempty"`
	XPToNextStage       int                `json:"xp_to_next_stage"`
	CompletedChallenges int                `json:"completed_challenges"`
	Moves               []progression.Move `json:"moves"`
	NextMove            *progression.Move  `json:"next_move,omitempty"`
}

func (t *Tracker) Profile(ctx context.Context, owner string) (*Profile, error) {
	user, err := t.Store.GetUserById(ctx, owner)
	if err != nil {
		return nil, err
	}
	completed, err := t.Store.CountCompletedChallenges(ctx, owner)
	if err != nil {
		return nil, err
	}
	p := &Profile{
		User:                user,
		Cosmetic:            user.ActiveCosmetic(t.now()),
		CompletedChallenges: completed,
		Moves:               progression.UnlockedMoves(completed),
	}
	if next, missing, ok := progression.NextStage(user.Experience); ok {
		p.NextStage = string(next)
		p.XPToNextStage = missing
	}
	if move, ok := progression.NextMove(completed); ok {
		p.NextMove = &move
	}
	return p, nil
}

// Leaderboard returns the top users by experience. limit falls back to the default when not positive.
func (t *Tracker) Leaderboard(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = DefaultLeaderboardLimit
	}
	if limit > maxLeaderboardLimit {
		limit = maxLeaderboardLimit
	}
	return t.Store.Leaderboard(ctx, limit)
}
