package verify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"toughturtle/app/storage/models"
	"toughturtle/app/strava"
	"toughturtle/app/utils"
)

type Kind string

const (
	KindDistance   Kind = "distance"
	KindTime       Kind = "time"
	KindElevation  Kind = "elevation"
	KindCalories   Kind = "calories"
	KindActivities Kind = "activities"
)

type Window string

const (
	WindowToday Window = "today"
	WindowWeek  Window = "week"
	WindowMonth Window = "month"
)

var cardioTypes = map[string]struct{}{
	"Run":               {},
	"TrailRun":          {},
	"VirtualRun":        {},
	"Ride":              {},
	"VirtualRide":       {},
	"EBikeRide":         {},
	"EMountainBikeRide": {},
	"MountainBikeRide":  {},
	"GravelRide":        {},
	"Walk":              {},
	"Hike":              {},
	"Swim":              {},
	"Elliptical":        {},
	"StairStepper":      {},
	"Rowing":            {},
	"VirtualRow":        {},
	"Crosstraining":     {},
	"CrossTraining":     {},
}

// IsCardio reports whether a Strava activity type may count toward a challenge.
func IsCardio(activityType string) bool {
	_, ok := cardioTypes[activityType]
	return ok
}

// KindForCategory maps a challenge category to the measurement Strava can verify.
// Only cardio challenges are verifiable.
func KindForCategory(category string) (Kind, bool) {
	if category == models.ChallengeCardio {
		return KindDistance, true
	}
	return "", false
}

// Fetcher is satisfied by strava.Session.
type Fetcher interface {
	ActivitiesInRange(ctx context.Context, start, end time.Time) ([]strava.Activity, error)
}

type Result struct {
	Completed bool              `json:"completed"`
	Progress  float64           `json:"progress"`
	Kind      Kind              `json:"kind"`
	Window    Window            `json:"window"`
	Start     time.Time         `json:"start"`
	End       time.Time         `json:"end"`
	Matched   []strava.Activity `json:"activities"`
}

type Engine struct {
	Now       func() time.Time
	Location  *time.Location
	WeekStart time.Weekday
}

func NewEngine(loc *time.Location, weekStart time.Weekday) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{Now: time.Now, Location: loc, WeekStart: weekStart}
}

// WindowStart returns local midnight of today, of the latest week start day, or of the first of the month.
func (e *Engine) WindowStart(window Window, now time.Time) (time.Time, error) {
	now = now.In(e.location())
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	switch window {
	case WindowToday:
		return midnight, nil
	case WindowWeek:
		back := (int(now.Weekday()) - int(e.WeekStart) + 7) % 7
		return midnight.AddDate(0, 0, -back), nil
	case WindowMonth:
		return time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location()), nil
	default:
		return time.Time{}, utils.Invalid("window", fmt.Sprintf("unknown window %q", window))
	}
}

func (e *Engine) Verify(ctx context.Context, f Fetcher, kind Kind, target float64, window Window) (*Result, error) {
	if target <= 0 {
		return nil, utils.Invalid("target", "must be positive")
	}
	if !validKind(kind) {
		return nil, utils.Invalid("kind", fmt.Sprintf("unknown kind %q", kind))
	}
	now := e.now()
	start, err := e.WindowStart(window, now)
	if err != nil {
		return nil, err
	}

	activities, err := f.ActivitiesInRange(ctx, start, now)
	if err != nil {
		return nil, err
	}
	progress, matched := Accumulate(kind, activities)
	slog.Debug("verified challenge window", "kind", kind, "window", window, "fetched", len(activities),
		"matched", len(matched), "progress", progress, "target", target)
	return &Result{
		Completed: progress >= target,
		Progress:  progress,
		Kind:      kind,
		Window:    window,
		Start:     start,
		End:       now,
		Matched:   matched,
	}, nil
}

// Accumulate sums cardio activities by kind. Matched keeps the provider order.
func Accumulate(kind Kind, activities []strava.Activity) (float64, []strava.Activity) {
	var progress float64
	matched := []strava.Activity{}
	for _, a := range activities {
		if !IsCardio(a.Type) {
			continue
		}
		switch kind {
		case KindDistance:
			progress += a.Distance / 1000
		case KindTime:
			progress += float64(a.MovingTime) / 60
		case KindElevation:
			progress += a.TotalElevationGain
		case KindCalories:
			if a.Calories == nil || *a.Calories == 0 {
				continue
			}
			progress += *a.Calories
		case KindActivities:
			progress++
		}
		matched = append(matched, a)
	}
	return progress, matched
}

func validKind(kind Kind) bool {
	switch kind {
	case KindDistance, KindTime, KindElevation, KindCalories, KindActivities:
		return true
	}
	return false
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) location() *time.Location {
	if e.Location == nil {
		return time.Local
	}
	return e.Location
}
