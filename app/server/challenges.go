package server

import (
	"net/http"

	"toughturtle/app/tracker"
)

func (h *HttpHandler) createChallenge(w http.ResponseWriter, r *http.Request) {
	var in tracker.ChallengeInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	ch, err := h.Tracker.CreateChallenge(r.Context(), userFrom(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, ch)
}

func (h *HttpHandler) listChallenges(w http.ResponseWriter, r *http.Request) {
	owner := userFrom(r)
	var (
		challenges any
		err        error
	)
	if category := r.URL.Query().Get("category"); category != "" {
		challenges, err = h.Tracker.ChallengesByCategory(r.Context(), owner, category)
	} else {
		challenges, err = h.Tracker.Challenges(r.Context(), owner)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

func (h *HttpHandler) completedChallenges(w http.ResponseWriter, r *http.Request) {
	challenges, err := h.Tracker.CompletedChallenges(r.Context(), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, challenges)
}

func (h *HttpHandler) deleteChallenge(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.DeleteChallenge(r.Context(), userFrom(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) addProgress(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Delta float64 `json:"delta"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Tracker.Advance(r.Context(), userFrom(r), r.PathValue("id"), in.Delta)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HttpHandler) resetChallenges(w http.ResponseWriter, r *http.Request) {
	n, err := h.Tracker.ResetDaily(r.Context(), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"reset": n})
}
