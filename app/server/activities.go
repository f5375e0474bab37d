package server

import (
	"net/http"

	"toughturtle/app/tracker"
	"toughturtle/app/verify"
)

func (h *HttpHandler) logActivity(w http.ResponseWriter, r *http.Request) {
	var in tracker.ActivityInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	logged, err := h.Tracker.LogActivity(r.Context(), userFrom(r), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, logged)
}

func (h *HttpHandler) listActivities(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	activities, err := h.Tracker.Activities(r.Context(), userFrom(r), r.URL.Query().Get("category"), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activities)
}

func (h *HttpHandler) updateActivity(w http.ResponseWriter, r *http.Request) {
	var patch tracker.ActivityPatch
	if err := decode(w, r, &patch); err != nil {
		writeError(w, err)
		return
	}
	activity, err := h.Tracker.UpdateActivity(r.Context(), userFrom(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, activity)
}

func (h *HttpHandler) deleteActivity(w http.ResponseWriter, r *http.Request) {
	if err := h.Tracker.DeleteActivity(r.Context(), userFrom(r), r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HttpHandler) dailyStats(w http.ResponseWriter, r *http.Request) {
	day, err := h.queryDate(r, "date", h.now())
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.Tracker.DailyStats(r.Context(), userFrom(r), day)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// weeklyStats defaults to the current week as the verifier counts weeks.
func (h *HttpHandler) weeklyStats(w http.ResponseWriter, r *http.Request) {
	weekStart := h.now()
	if h.Verifier != nil {
		if start, err := h.Verifier.WindowStart(verify.WindowWeek, weekStart); err == nil {
			weekStart = start
		}
	}
	start, err := h.queryDate(r, "start", weekStart)
	if err != nil {
		writeError(w, err)
		return
	}
	stats, err := h.Tracker.WeeklyStats(r.Context(), userFrom(r), start)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (h *HttpHandler) logWellness(w http.ResponseWriter, r *http.Request) {
	var in struct {
		SleepHours float64 `json:"sleep_hours"`
		Mood       string  `json:"mood"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Tracker.LogWellness(r.Context(), userFrom(r), in.SleepHours, in.Mood)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, out)
}

func (h *HttpHandler) logDistance(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Distance float64 `json:"distance"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	out, err := h.Tracker.LogDistance(r.Context(), userFrom(r), in.Distance)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
