package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"toughturtle/app/observability"
	"toughturtle/app/strava"
	"toughturtle/app/tracker"
	"toughturtle/app/utils"
	"toughturtle/app/verify"

	"golang.org/x/sync/singleflight"
)

const (
	maxBodyBytes    = 1 << 20
	shutdownTimeout = 10 * time.Second
	defaultLinkTTL  = 15 * time.Minute
)

type HttpHandler struct {
	Url             string
	Port            string
	Tracker         *tracker.Tracker
	Strava          strava.API
	StravaScope     string
	Verifier        *verify.Engine
	JWT             utils.JWT
	JWTTTL          time.Duration
	Vault           *utils.Vault
	LinkTTL         time.Duration
	TelegramBotName string
	LeaderboardSize int
	Now             func() time.Time

	// shared by every per-request strava session
	refreshGroup singleflight.Group
}

type ctxKey struct{}

func withUser(ctx context.Context, userId string) context.Context {
	return context.WithValue(ctx, ctxKey{}, userId)
}

func userFrom(r *http.Request) string {
	id, _ := r.Context().Value(ctxKey{}).(string)
	return id
}

// Routes builds the API mux. Everything under /api except signup, login and the Strava callback
// needs a bearer token.
func (h *HttpHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	handle := func(pattern string, fn http.HandlerFunc) {
		mux.Handle(pattern, observability.Instrument(pattern, fn))
	}
	authed := func(pattern string, fn http.HandlerFunc) {
		handle(pattern, h.requireUser(fn))
	}

	handle("GET /healthz", h.healthz)
	mux.Handle("GET /metrics", observability.Handler())

	handle("POST /api/auth/signup", h.signup)
	handle("POST /api/auth/login", h.login)
	authed("GET /api/me", h.me)

	authed("POST /api/activities", h.logActivity)
	authed("GET /api/activities", h.listActivities)
	authed("PATCH /api/activities/{id}", h.updateActivity)
	authed("DELETE /api/activities/{id}", h.deleteActivity)
	authed("GET /api/stats/daily", h.dailyStats)
	authed("GET /api/stats/weekly", h.weeklyStats)
	authed("POST /api/wellness", h.logWellness)
	authed("POST /api/distance", h.logDistance)

	authed("POST /api/challenges", h.createChallenge)
	authed("GET /api/challenges", h.listChallenges)
	authed("GET /api/challenges/completed", h.completedChallenges)
	authed("DELETE /api/challenges/{id}", h.deleteChallenge)
	authed("POST /api/challenges/{id}/progress", h.addProgress)
	authed("POST /api/challenges/reset", h.resetChallenges)

	authed("GET /api/leaderboard", h.leaderboard)
	authed("POST /api/feed", h.postFeed)
	authed("GET /api/feed", h.feed)
	authed("POST /api/telegram/link", h.telegramLink)

	authed("GET /api/strava/connect", h.stravaConnect)
	handle("GET /api/strava/callback", h.stravaCallback)
	authed("DELETE /api/strava", h.stravaDisconnect)
	authed("GET /api/strava/athlete", h.stravaAthlete)
	authed("GET /api/strava/activities", h.stravaActivities)
	authed("POST /api/strava/verify", h.stravaVerify)
	return mux
}

// Start serves until ctx is cancelled, then drains in-flight requests.
func (h *HttpHandler) Start(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + h.Port,
		Handler:           h.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "port", h.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		slog.Error("wasn't able to start the server", "err", err)
		return err
	case <-ctx.Done():
		slog.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

func (h *HttpHandler) healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HttpHandler) requireUser(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			writeError(w, utils.ErrUnauthorized)
			return
		}
		userId, err := h.JWT.GetUserIdFromToken(token, utils.PurposeAPI)
		if err != nil {
			writeError(w, err)
			return
		}
		next(w, r.WithContext(withUser(r.Context(), userId)))
	}
}

func (h *HttpHandler) issueToken(w http.ResponseWriter, status int, user any, userId string) {
	token, err := h.JWT.GenerateJWTForUser(userId, h.JWTTTL)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, status, map[string]any{
		"token":      token.Value,
		"expires_at": token.ExpiresAt,
		"user":       user,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("error while writing to response", "err", err)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Reconnect bool   `json:"reconnect,omitempty"`
}

// writeError maps the error taxonomy to status codes. Unknown errors are logged and hidden.
func writeError(w http.ResponseWriter, err error) {
	var (
		validation *utils.ValidationError
		upstream   *utils.UpstreamError
	)
	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: validation.Error(), Field: validation.Field})
	case errors.Is(err, utils.ErrValidation):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: err.Error()})
	case errors.Is(err, utils.ErrAuth):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "strava authorization required", Reconnect: true})
	case errors.Is(err, utils.ErrUnauthorized):
		writeJSON(w, http.StatusUnauthorized, errorBody{Error: "unauthorized"})
	case errors.Is(err, utils.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	case errors.Is(err, utils.ErrVersionConflict):
		writeJSON(w, http.StatusConflict, errorBody{Error: "record was modified concurrently, try again"})
	case errors.As(err, &upstream):
		slog.Warn("upstream failure", "status", upstream.StatusCode, "err", err)
		writeJSON(w, http.StatusBadGateway, errorBody{Error: "strava request failed"})
	default:
		slog.Error("unexpected error", "err", err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "internal error"})
	}
}

func decode(w http.ResponseWriter, r *http.Request, out any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(out); err != nil {
		slog.Debug("error while reading request body", "err", err)
		return utils.Invalid("body", "malformed JSON")
	}
	return nil
}

func queryInt(r *http.Request, key string, fallback int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, utils.Invalid(key, "must be an integer")
	}
	return v, nil
}

func (h *HttpHandler) now() time.Time {
	if h.Now == nil {
		return time.Now()
	}
	return h.Now()
}

func (h *HttpHandler) location() *time.Location {
	if h.Tracker == nil || h.Tracker.Location == nil {
		return time.UTC
	}
	return h.Tracker.Location
}

// queryDate parses a YYYY-MM-DD parameter in the configured timezone.
func (h *HttpHandler) queryDate(r *http.Request, key string, fallback time.Time) (time.Time, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, raw, h.location())
	if err != nil {
		return time.Time{}, utils.Invalid(key, "must be a date like 2006-01-02")
	}
	return d, nil
}
