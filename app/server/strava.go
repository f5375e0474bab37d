package server

import (
	"fmt"
	"log/slog"
	"net/http"

	"toughturtle/app/observability"
	"toughturtle/app/strava"
	"toughturtle/app/utils"
	"toughturtle/app/verify"
)

const defaultStravaPageSize = 30

func (h *HttpHandler) stravaEnabled(w http.ResponseWriter) bool {
	if h.Strava == nil || h.Vault == nil {
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: "strava integration is not configured"})
		return false
	}
	return true
}

func (h *HttpHandler) redirectURI() string {
	return h.Url + callbackPath
}

// stravaConnect starts the OAuth flow. The client follows the returned url.
func (h *HttpHandler) stravaConnect(w http.ResponseWriter, r *http.Request) {
	if !h.stravaEnabled(w) {
		return
	}
	state, err := newState()
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.storeState(w, userFrom(r), state); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url": h.Strava.AuthorizationURL(h.redirectURI(), h.StravaScope, state),
	})
}

func (h *HttpHandler) stravaCallback(w http.ResponseWriter, r *http.Request) {
	if !h.stravaEnabled(w) {
		return
	}
	q := r.URL.Query()
	userId, err := h.consumeState(w, r, q.Get("state"))
	if err != nil {
		writeError(w, err)
		return
	}
	if denied := q.Get("error"); denied != "" {
		slog.Info("strava authorization declined", "userID", userId, "reason", denied)
		writeError(w, fmt.Errorf("strava declined: %s: %w", denied, utils.ErrAuth))
		return
	}
	code := q.Get("code")
	if code == "" {
		writeError(w, utils.Invalid("code", "is required"))
		return
	}

	session := h.stravaSession(w, r, userId)
	athlete, err := session.Connect(r.Context(), code, h.redirectURI())
	if err != nil {
		writeError(w, err)
		return
	}
	slog.Info("strava connected", "userID", userId, "athleteID", athlete.Id)
	writeJSON(w, http.StatusOK, map[string]any{"connected": true, "athlete": athlete})
}

func (h *HttpHandler) stravaDisconnect(w http.ResponseWriter, r *http.Request) {
	h.clearCookie(w, tokenCookie)
	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) stravaAthlete(w http.ResponseWriter, r *http.Request) {
	if !h.stravaEnabled(w) {
		return
	}
	athlete, err := h.stravaSession(w, r, userFrom(r)).Athlete(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, athlete)
}

func (h *HttpHandler) stravaActivities(w http.ResponseWriter, r *http.Request) {
	if !h.stravaEnabled(w) {
		return
	}
	page, err := queryInt(r, "page", 1)
	if err != nil {
		writeError(w, err)
		return
	}
	perPage, err := queryInt(r, "per_page", defaultStravaPageSize)
	if err != nil {
		writeError(w, err)
		return
	}
	if page < 1 || perPage < 1 || perPage > 200 {
		writeError(w, utils.Invalid("per_page", "must be between 1 and 200"))
		return
	}
	activities, err := h.stravaSession(w, r, userFrom(r)).Activities(r.Context(), strava.ActivitiesQuery{Page: page, PerPage: perPage})
	if err != nil {
		writeError(w, err)
		return
	}
	if activities == nil {
		activities = []strava.Activity{}
	}
	writeJSON(w, http.StatusOK, activities)
}

type verifyRequest struct {
	ChallengeID string        `json:"challenge_id"`
	Kind        verify.Kind   `json:"kind"`
	Window      verify.Window `json:"window"`
}

// stravaVerify checks a challenge against Strava and stores the verified progress.
func (h *HttpHandler) stravaVerify(w http.ResponseWriter, r *http.Request) {
	if !h.stravaEnabled(w) {
		return
	}
	var in verifyRequest
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	if in.ChallengeID == "" {
		writeError(w, utils.Invalid("challenge_id", "is required"))
		return
	}
	if in.Window == "" {
		in.Window = verify.WindowToday
	}
	owner := userFrom(r)
	ch, err := h.Tracker.Challenge(r.Context(), owner, in.ChallengeID)
	if err != nil {
		writeError(w, err)
		return
	}
	if in.Kind == "" {
		kind, ok := verify.KindForCategory(ch.Category)
		if !ok {
			writeError(w, utils.Invalid("kind", fmt.Sprintf("%s challenges need an explicit kind", ch.Category)))
			return
		}
		in.Kind = kind
	}

	result, err := h.Verifier.Verify(r.Context(), h.stravaSession(w, r, owner), in.Kind, ch.Target, in.Window)
	if err != nil {
		writeError(w, err)
		return
	}
	observability.RecordVerification(string(in.Kind), result.Completed)

	outcome, err := h.Tracker.ApplyVerification(r.Context(), owner, ch.ID, result.Progress)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"verification": result, "outcome": outcome})
}
