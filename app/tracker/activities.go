package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"time"

	"toughturtle/app/events"
	"toughturtle/app/progression"
	"toughturtle/app/storage/models"
	"toughturtle/app/utils"

	"github.com/google/uuid"
)

const (
	defaultActivityLimit = 50
	maxActivityLimit     = 200
	defaultFeedLimit     = 20
	maxFeedMessage       = 280
	restfulNightHours    = 8
	// a single log beyond this is a typo or abuse, not a workout
	maxDistance = 1000
)

var activityCategories = map[string]progression.ActionKind{
	models.CategoryExercise:   progression.ActionExercise,
	models.CategorySleep:      progression.ActionSleep,
	models.CategoryBiohacking: progression.ActionBiohacking,
}

var moods = map[string]struct{}{
	"":          {},
	"poor":      {},
	"fair":      {},
	"good":      {},
	"excellent": {},
}

type ActivityInput struct {
	Category string  `json:"category"`
	Subtype  string  `json:"subtype"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
	Notes    *string `json:"notes,omitempty"`
}

// normalize fills the sleep defaults: a sleep entry is measured in hours unless told otherwise.
func (in *ActivityInput) normalize() {
	in.Category = strings.TrimSpace(in.Category)
	in.Subtype = strings.TrimSpace(in.Subtype)
	in.Unit = strings.TrimSpace(in.Unit)
	if in.Category == models.CategorySleep {
		if in.Subtype == "" {
			in.Subtype = "sleep"
		}
		if in.Unit == "" {
			in.Unit = "hours"
		}
	}
}

func (in ActivityInput) validate() error {
	if _, ok := activityCategories[in.Category]; !ok {
		return utils.Invalid("category", fmt.Sprintf("unknown category %q", in.Category))
	}
	if in.Subtype == "" {
		return utils.Invalid("subtype", "is required")
	}
	if !finite(in.Value) || in.Value <= 0 {
		return utils.Invalid("value", "must be greater than zero")
	}
	if in.Unit == "" {
		return utils.Invalid("unit", "is required")
	}
	return nil
}

type LoggedActivity struct {
	Activity *models.Activity `json:"activity"`
	XPGained int              `json:"xp_gained"`
	User     *models.User     `json:"user"`
}

// LogActivity stores the activity and pays the fixed reward of its category.
func (t *Tracker) LogActivity(ctx context.Context, owner string, in ActivityInput) (*LoggedActivity, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	activity := &models.Activity{
		ID:        uuid.NewString(),
		UserID:    owner,
		Category:  in.Category,
		Subtype:   in.Subtype,
		Value:     in.Value,
		Unit:      in.Unit,
		Notes:     in.Notes,
		CreatedAt: t.now(),
	}
	if err := t.Store.CreateActivity(ctx, activity); err != nil {
		return nil, err
	}

	xp := progression.XPFor(activityCategories[in.Category])
	user, err := t.awardXP(ctx, owner, in.Category, xp)
	if err != nil {
		return nil, fmt.Errorf("award activity xp: %w", err)
	}
	t.publish(ctx, events.TypeActivityLogged, owner, map[string]string{
		"activity_id": activity.ID,
		"category":    activity.Category,
		"subtype":     activity.Subtype,
		"xp":          strconv.Itoa(xp),
	})
	return &LoggedActivity{Activity: activity, XPGained: xp, User: user}, nil
}

// Activities lists the newest activities of owner, optionally narrowed to one category.
func (t *Tracker) Activities(ctx context.Context, owner, category string, limit int) ([]models.Activity, error) {
	if limit <= 0 {
		limit = defaultActivityLimit
	}
	if limit > maxActivityLimit {
		limit = maxActivityLimit
	}
	if category == "" {
		return t.Store.ListUserActivities(ctx, owner, limit)
	}
	if _, ok := activityCategories[category]; !ok {
		return nil, utils.Invalid("category", fmt.Sprintf("unknown category %q", category))
	}
	return t.Store.ListUserActivitiesByCategory(ctx, owner, category, limit)
}

// ActivityPatch changes the measured part of an activity. The category is fixed once logged.
type ActivityPatch struct {
	Subtype *string  `json:"subtype,omitempty"`
	Value   *float64 `json:"value,omitempty"`
	Unit    *string  `json:"unit,omitempty"`
	Notes   *string  `json:"notes,omitempty"`
}

func (t *Tracker) UpdateActivity(ctx context.Context, owner, activityId string, patch ActivityPatch) (*models.Activity, error) {
	activity, err := t.ownedActivity(ctx, owner, activityId)
	if err != nil {
		return nil, err
	}
	in := ActivityInput{
		Category: activity.Category,
		Subtype:  activity.Subtype,
		Value:    activity.Value,
		Unit:     activity.Unit,
		Notes:    activity.Notes,
	}
	if patch.Subtype != nil {
		in.Subtype = *patch.Subtype
	}
	if patch.Value != nil {
		in.Value = *patch.Value
	}
	if patch.Unit != nil {
		in.Unit = *patch.Unit
	}
	if patch.Notes != nil {
		in.Notes = patch.Notes
	}
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, err
	}
	activity.Subtype = in.Subtype
	activity.Value = in.Value
	activity.Unit = in.Unit
	activity.Notes = in.Notes
	if err := t.Store.UpdateActivity(ctx, activity); err != nil {
		return nil, err
	}
	return activity, nil
}

func (t *Tracker) DeleteActivity(ctx context.Context, owner, activityId string) error {
	if _, err := t.ownedActivity(ctx, owner, activityId); err != nil {
		return err
	}
	return t.Store.DeleteActivity(ctx, activityId)
}

func (t *Tracker) ownedActivity(ctx context.Context, owner, activityId string) (*models.Activity, error) {
	activity, err := t.Store.GetActivityById(ctx, activityId)
	if err != nil {
		return nil, err
	}
	if activity.UserID != owner {
		return nil, fmt.Errorf("activity %s: %w", activityId, utils.ErrNotFound)
	}
	return activity, nil
}

type CategoryTotal struct {
	Total      float64           `json:"total"`
	Activities []models.Activity `json:"activities"`
}

type DailyStats struct {
	Date       time.Time     `json:"date"`
	Exercise   CategoryTotal `json:"exercise"`
	Sleep      CategoryTotal `json:"sleep"`
	Biohacking CategoryTotal `json:"biohacking"`
}

// DailyStats sums activity values per category over the local calendar day containing day.
func (t *Tracker) DailyStats(ctx context.Context, owner string, day time.Time) (*DailyStats, error) {
	start := t.midnight(day)
	activities, err := t.Store.ListUserActivitiesInRange(ctx, owner, start, start.AddDate(0, 0, 1))
	if err != nil {
		return nil, err
	}
	stats := &DailyStats{
		Date:       start,
		Exercise:   CategoryTotal{Activities: []models.Activity{}},
		Sleep:      CategoryTotal{Activities: []models.Activity{}},
		Biohacking: CategoryTotal{Activities: []models.Activity{}},
	}
	for _, a := range activities {
		var bucket *CategoryTotal
		switch a.Category {
		case models.CategoryExercise:
			bucket = &stats.Exercise
		case models.CategorySleep:
			bucket = &stats.Sleep
		case models.CategoryBiohacking:
			bucket = &stats.Biohacking
		default:
			continue
		}
		bucket.Total += a.Value
		bucket.Activities = append(bucket.Activities, a)
	}
	return stats, nil
}

type WeeklyStats struct {
	Start              time.Time         `json:"start"`
	End                time.Time         `json:"end"`
	TotalActivities    int               `json:"total_activities"`
	ExerciseMinutes    float64           `json:"exercise_minutes"`
	SleepHours         float64           `json:"sleep_hours"`
	BiohackingSessions int               `json:"biohacking_sessions"`
	Activities         []models.Activity `json:"activities"`
}

// WeeklyStats covers the seven local days starting at start. Only exercise logged in minutes and
// sleep logged in hours count towards the totals.
func (t *Tracker) WeeklyStats(ctx context.Context, owner string, start time.Time) (*WeeklyStats, error) {
	from := t.midnight(start)
	to := from.AddDate(0, 0, 7)
	activities, err := t.Store.ListUserActivitiesInRange(ctx, owner, from, to)
	if err != nil {
		return nil, err
	}
	stats := &WeeklyStats{
		Start:           from,
		End:             to,
		TotalActivities: len(activities),
		Activities:      activities,
	}
	if stats.Activities == nil {
		stats.Activities = []models.Activity{}
	}
	for _, a := range activities {
		switch a.Category {
		case models.CategoryExercise:
			if a.Unit == "minutes" {
				stats.ExerciseMinutes += a.Value
			}
		case models.CategorySleep:
			if a.Unit == "hours" {
				stats.SleepHours += a.Value
			}
		case models.CategoryBiohacking:
			stats.BiohackingSessions++
		}
	}
	return stats, nil
}

func (t *Tracker) midnight(day time.Time) time.Time {
	local := day.In(t.location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, t.location())
}

type WellnessOutcome struct {
	Entry    *models.WellnessEntry `json:"entry"`
	XPGained int                   `json:"xp_gained"`
	User     *models.User          `json:"user,omitempty"`
}

// LogWellness records a sleep check-in; a restful night of eight hours or more earns a bonus.
func (t *Tracker) LogWellness(ctx context.Context, owner string, sleepHours float64, mood string) (*WellnessOutcome, error) {
	mood = strings.ToLower(strings.TrimSpace(mood))
	if !finite(sleepHours) || sleepHours < 0 || sleepHours > 24 {
		return nil, utils.Invalid("sleep_hours", "must be between 0 and 24")
	}
	if _, ok := moods[mood]; !ok {
		return nil, utils.Invalid("mood", fmt.Sprintf("unknown mood %q", mood))
	}
	entry := &models.WellnessEntry{
		ID:         uuid.NewString(),
		UserID:     owner,
		SleepHours: sleepHours,
		Mood:       mood,
		CreatedAt:  t.now(),
	}
	if err := t.Store.CreateWellnessEntry(ctx, entry); err != nil {
		return nil, err
	}
	out := &WellnessOutcome{Entry: entry}
	if sleepHours < restfulNightHours {
		return out, nil
	}
	xp := progression.XPFor(progression.ActionRestfulNight)
	user, err := t.awardXP(ctx, owner, "wellness", xp)
	if err != nil {
		return nil, fmt.Errorf("award wellness xp: %w", err)
	}
	out.XPGained = xp
	out.User = user
	return out, nil
}

type DistanceOutcome struct {
	Distance  float64      `json:"distance"`
	XPGained  int          `json:"xp_gained"`
	User      *models.User `json:"user"`
	Challenge *Outcome     `json:"challenge,omitempty"`
}

// LogDistance pays one XP per unit of distance and advances the distance challenge when the
// owner has one. The challenge moves first so a failed request has not paid out yet.
func (t *Tracker) LogDistance(ctx context.Context, owner string, distance float64) (*DistanceOutcome, error) {
	if !finite(distance) || distance <= 0 || distance > maxDistance {
		return nil, utils.Invalid("distance", fmt.Sprintf("must be greater than zero and at most %d", maxDistance))
	}
	out := &DistanceOutcome{Distance: distance}

	ch, err := t.Store.GetChallengeByName(ctx, owner, DistanceChallenge)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		slog.Debug("no distance challenge to advance", "userID", owner)
	} else {
		outcome, err := t.Advance(ctx, owner, ch.ID, distance)
		if err != nil {
			return nil, err
		}
		out.Challenge = outcome
	}

	xp := int(math.Round(distance))
	user, err := t.awardXP(ctx, owner, "distance", xp)
	if err != nil {
		return nil, err
	}
	out.XPGained = xp
	out.User = user
	return out, nil
}

func (t *Tracker) PostFeed(ctx context.Context, owner, message string) (*models.FeedPost, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, utils.Invalid("message", "is required")
	}
	if len([]rune(message)) > maxFeedMessage {
		return nil, utils.Invalid("message", fmt.Sprintf("must be at most %d characters", maxFeedMessage))
	}
	post := &models.FeedPost{
		ID:        uuid.NewString(),
		UserID:    owner,
		Message:   message,
		CreatedAt: t.now(),
	}
	if err := t.Store.CreateFeedPost(ctx, post); err != nil {
		return nil, err
	}
	return post, nil
}

func (t *Tracker) Feed(ctx context.Context, limit int) ([]models.FeedPost, error) {
	if limit <= 0 || limit > maxActivityLimit {
		limit = defaultFeedLimit
	}
	return t.Store.ListFeed(ctx, limit)
}
