package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "toughturtle"

var (
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
		},
		[]string{"method", "route", "status"},
	)

	XPAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "xp_awarded_total",
			Help:      "Experience points awarded",
		},
		[]string{"source"},
	)

	ChallengesCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenges_completed_total",
			Help:      "Challenges that flipped to completed",
		},
		[]string{"category"},
	)

	StageEvolutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_evolutions_total",
			Help:      "Users reaching a new evolution stage",
		},
		[]string{"stage"},
	)

	VersionConflicts = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "version_conflicts_total",
			Help:      "Conditional updates that lost a race and were retried",
		},
		[]string{"entity"},
	)

	StravaRequests = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "strava_request_duration_seconds",
			Help:      "Strava API call latency in seconds",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
		},
		[]string{"endpoint", "status"},
	)

	StravaRefreshes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "strava_token_refreshes_total",
			Help:      "Strava token refresh attempts",
		},
		[]string{"result"},
	)

	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verifications_total",
			Help:      "Challenge verifications against Strava",
		},
		[]string{"kind", "result"},
	)

	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_published_total",
			Help:      "Progression events handed to a sink",
		},
		[]string{"sink", "type", "result"},
	)
)

func RecordHTTPRequest(method, route, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

func RecordXP(source string, xp int) {
	if xp <= 0 {
		return
	}
	XPAwarded.WithLabelValues(source).Add(float64(xp))
}

func RecordChallengeCompleted(category string) {
	ChallengesCompleted.WithLabelValues(category).Inc()
}

func RecordStageEvolution(stage string) {
	StageEvolutions.WithLabelValues(stage).Inc()
}

func RecordVersionConflict(entity string) {
	VersionConflicts.WithLabelValues(entity).Inc()
}

func RecordStravaRequest(endpoint, status string, duration time.Duration) {
	StravaRequests.WithLabelValues(endpoint, status).Observe(duration.Seconds())
}

func RecordStravaRefresh(ok bool) {
	StravaRefreshes.WithLabelValues(result(ok)).Inc()
}

func RecordVerification(kind string, completed bool) {
	r := "incomplete"
	if completed {
		r = "completed"
	}
	Verifications.WithLabelValues(kind, r).Inc()
}

func RecordEvent(sink, eventType string, ok bool) {
	EventsPublished.WithLabelValues(sink, eventType, result(ok)).Inc()
}

func result(ok bool) string {
	if ok {
		return "ok"
	}
	return "error"
}
