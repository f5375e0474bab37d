package server

import (
	"net/http"

	"toughturtle/app/tracker"
)

func (h *HttpHandler) signup(w http.ResponseWriter, r *http.Request) {
	var in tracker.RegisterInput
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.Tracker.Register(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	h.issueToken(w, http.StatusCreated, user, user.ID)
}

func (h *HttpHandler) login(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	user, err := h.Tracker.Authenticate(r.Context(), in.Username, in.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	h.issueToken(w, http.StatusOK, user, user.ID)
}

func (h *HttpHandler) me(w http.ResponseWriter, r *http.Request) {
	profile, err := h.Tracker.Profile(r.Context(), userFrom(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

func (h *HttpHandler) leaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", h.LeaderboardSize)
	if err != nil {
		writeError(w, err)
		return
	}
	entries, err := h.Tracker.Leaderboard(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *HttpHandler) postFeed(w http.ResponseWriter, r *http.Request) {
	var in struct {
		Message string `json:"message"`
	}
	if err := decode(w, r, &in); err != nil {
		writeError(w, err)
		return
	}
	post, err := h.Tracker.PostFeed(r.Context(), userFrom(r), in.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *HttpHandler) feed(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, err)
		return
	}
	posts, err := h.Tracker.Feed(r.Context(), limit)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

// telegramLink hands out a short-lived token the user sends to the bot as "/start <token>".
// Deep-link payloads are capped at 64 characters, so the token is pasted rather than embedded.
func (h *HttpHandler) telegramLink(w http.ResponseWriter, r *http.Request) {
	ttl := h.LinkTTL
	if ttl <= 0 {
		ttl = defaultLinkTTL
	}
	token, err := h.JWT.GenerateLinkToken(userFrom(r), ttl)
	if err != nil {
		writeError(w, err)
		return
	}
	body := map[string]any{"token": token.Value, "expires_at": token.ExpiresAt}
	if h.TelegramBotName != "" {
		body["bot_url"] = "https://t.me/" + h.TelegramBotName
		body["command"] = "/start " + token.Value
	}
	writeJSON(w, http.StatusOK, body)
}
