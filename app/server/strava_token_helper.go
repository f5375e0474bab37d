package server

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"toughturtle/app/strava"
	"toughturtle/app/utils"
)

const (
	tokenCookie  = "tt_strava"
	stateCookie  = "tt_strava_state"
	tokenMaxAge  = 30 * 24 * time.Hour
	stateMaxAge  = 10 * time.Minute
	callbackPath = "/api/strava/callback"
)

// sealedTokens is what the Strava cookie holds. The owner binds the tokens to one account.
type sealedTokens struct {
	UserID string          `json:"uid"`
	Tokens strava.TokenSet `json:"tokens"`
}

type sealedState struct {
	UserID string `json:"uid"`
	State  string `json:"state"`
}

func (h *HttpHandler) secureCookies() bool {
	return strings.HasPrefix(h.Url, "https://")
}

func (h *HttpHandler) setCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/api",
		MaxAge:   int(maxAge.Seconds()),
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *HttpHandler) clearCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/api",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secureCookies(),
		SameSite: http.SameSiteLaxMode,
	})
}

// storeTokens seals the token set for userId into the Strava cookie.
func (h *HttpHandler) storeTokens(w http.ResponseWriter, userId string, tokens strava.TokenSet) {
	sealed, err := h.Vault.Seal(sealedTokens{UserID: userId, Tokens: tokens})
	if err != nil {
		slog.Error("error while sealing strava tokens", "err", err, "userID", userId)
		return
	}
	h.setCookie(w, tokenCookie, sealed, tokenMaxAge)
}

// loadTokens returns the token set for userId, or nil when the cookie is missing, broken or
// belongs to another account.
func (h *HttpHandler) loadTokens(r *http.Request, userId string) *strava.TokenSet {
	c, err := r.Cookie(tokenCookie)
	if err != nil || c.Value == "" {
		return nil
	}
	var sealed sealedTokens
	if err := h.Vault.Open(c.Value, &sealed); err != nil {
		slog.Debug("ignoring unreadable strava cookie", "err", err)
		return nil
	}
	if sealed.UserID != userId {
		return nil
	}
	return &sealed.Tokens
}

// stravaSession builds a session for this request. Refreshed tokens are written back to the
// cookie and a failed refresh clears it.
func (h *HttpHandler) stravaSession(w http.ResponseWriter, r *http.Request, userId string) *strava.Session {
	return strava.NewSession(h.Strava, h.loadTokens(r, userId),
		strava.WithRefreshGroup(&h.refreshGroup),
		strava.WithClock(h.now),
		strava.WithOnRefresh(func(tokens strava.TokenSet) { h.storeTokens(w, userId, tokens) }),
		strava.WithOnDisconnect(func() { h.clearCookie(w, tokenCookie) }),
	)
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (h *HttpHandler) storeState(w http.ResponseWriter, userId, state string) error {
	sealed, err := h.Vault.Seal(sealedState{UserID: userId, State: state})
	if err != nil {
		return err
	}
	h.setCookie(w, stateCookie, sealed, stateMaxAge)
	return nil
}

// consumeState checks the OAuth state against the cookie, clears it and returns the user that
// started the flow.
func (h *HttpHandler) consumeState(w http.ResponseWriter, r *http.Request, state string) (string, error) {
	c, err := r.Cookie(stateCookie)
	if err != nil || c.Value == "" {
		return "", utils.ErrUnauthorized
	}
	h.clearCookie(w, stateCookie)
	var sealed sealedState
	if err := h.Vault.Open(c.Value, &sealed); err != nil {
		return "", utils.ErrUnauthorized
	}
	if state == "" || sealed.State != state || sealed.UserID == "" {
		slog.Warn("strava callback with mismatched state")
		return "", utils.ErrUnauthorized
	}
	return sealed.UserID, nil
}
