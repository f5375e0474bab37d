package strava

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"toughturtle/app/observability"
	"toughturtle/app/utils"

	"golang.org/x/sync/singleflight"
)

type State int

const (
	Unauthenticated State = iota
	Authorized
	Expired
	Refreshing
)

func (s State) String() string {
	switch s {
	case Authorized:
		return "authorized"
	case Expired:
		return "expired"
	case Refreshing:
		return "refreshing"
	default:
		return "unauthenticated"
	}
}

// Session owns one athlete's token set and makes every call with a usable access token.
// An expired token is refreshed before the call; a 401 triggers one refresh and one retry.
// Concurrent refreshes of the same refresh token are collapsed through the shared group.
type Session struct {
	api   API
	group *singleflight.Group
	now   func() time.Time

	onRefresh    func(TokenSet)
	onDisconnect func()

	mu      sync.Mutex
	state   State
	tokens  *TokenSet
	athlete *Athlete
}

type SessionOption func(*Session)

// WithRefreshGroup shares refresh coordination between sessions built for the same athlete.
func WithRefreshGroup(g *singleflight.Group) SessionOption {
	return func(s *Session) { s.group = g }
}

func WithClock(now func() time.Time) SessionOption {
	return func(s *Session) { s.now = now }
}

// WithOnRefresh is called with every new token set so the caller can persist it.
func WithOnRefresh(fn func(TokenSet)) SessionOption {
	return func(s *Session) { s.onRefresh = fn }
}

func WithOnDisconnect(fn func()) SessionOption {
	return func(s *Session) { s.onDisconnect = fn }
}

func NewSession(api API, tokens *TokenSet, opts ...SessionOption) *Session {
	s := &Session{api: api, now: time.Now, state: Unauthenticated}
	for _, opt := range opts {
		opt(s)
	}
	if s.group == nil {
		s.group = &singleflight.Group{}
	}
	if tokens != nil && tokens.AccessToken != "" {
		t := *tokens
		s.tokens = &t
		s.state = Authorized
	}
	return s
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == Authorized && s.tokens.Expired(s.now()) {
		return Expired
	}
	return s.state
}

// Tokens returns a copy of the current token set.
func (s *Session) Tokens() (TokenSet, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.tokens == nil {
		return TokenSet{}, false
	}
	return *s.tokens, true
}

// Connect redeems an authorization code and moves the session to Authorized.
func (s *Session) Connect(ctx context.Context, code, redirectURI string) (*Athlete, error) {
	authResp, err := s.api.ExchangeCode(ctx, code, redirectURI)
	if err != nil {
		return nil, err
	}
	athlete := authResp.Athlete
	s.mu.Lock()
	tokens := authResp.TokenSet
	s.tokens = &tokens
	s.athlete = &athlete
	s.state = Authorized
	s.mu.Unlock()

	if s.onRefresh != nil {
		s.onRefresh(tokens)
	}
	slog.Info("strava connected", "athleteID", athlete.Id)
	return &athlete, nil
}

// Disconnect forgets tokens and cached athlete data.
func (s *Session) Disconnect() {
	s.mu.Lock()
	s.tokens = nil
	s.athlete = nil
	s.state = Unauthenticated
	s.mu.Unlock()
	if s.onDisconnect != nil {
		s.onDisconnect()
	}
}

func (s *Session) Athlete(ctx context.Context) (*Athlete, error) {
	s.mu.Lock()
	cached := s.athlete
	s.mu.Unlock()
	if cached != nil {
		a := *cached
		return &a, nil
	}
	athlete, err := call(ctx, s, func(ctx context.Context, token string) (*Athlete, error) {
		return s.api.GetAthlete(ctx, token)
	})
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.tokens != nil {
		a := *athlete
		s.athlete = &a
	}
	s.mu.Unlock()
	return athlete, nil
}

func (s *Session) Activities(ctx context.Context, q ActivitiesQuery) ([]Activity, error) {
	return call(ctx, s, func(ctx context.Context, token string) ([]Activity, error) {
		return s.api.GetActivities(ctx, token, q)
	})
}

func (s *Session) Activity(ctx context.Context, id int64) (*Activity, error) {
	return call(ctx, s, func(ctx context.Context, token string) (*Activity, error) {
		return s.api.GetActivity(ctx, token, id)
	})
}

func (s *Session) ActivitiesInRange(ctx context.Context, start, end time.Time) ([]Activity, error) {
	return call(ctx, s, func(ctx context.Context, token string) ([]Activity, error) {
		return s.api.GetActivitiesInRange(ctx, token, start, end)
	})
}

func (s *Session) Stats(ctx context.Context) (*AthleteStats, error) {
	athlete, err := s.Athlete(ctx)
	if err != nil {
		return nil, err
	}
	return call(ctx, s, func(ctx context.Context, token string) (*AthleteStats, error) {
		return s.api.GetAthleteStats(ctx, token, athlete.Id)
	})
}

func call[T any](ctx context.Context, s *Session, fn func(ctx context.Context, token string) (T, error)) (T, error) {
	var zero T
	token, refreshed, err := s.accessToken(ctx)
	if err != nil {
		return zero, err
	}
	res, err := fn(ctx, token)
	if !errors.Is(err, utils.ErrUnauthorized) {
		return res, err
	}
	// one refresh per call: a token that was just refreshed gets no second chance
	if refreshed {
		slog.Error("strava rejected a freshly refreshed token")
		return zero, fmt.Errorf("token rejected after refresh: %w", utils.ErrAuth)
	}

	slog.Debug("strava rejected access token, refreshing")
	token, err = s.refresh(ctx, token)
	if err != nil {
		return zero, err
	}
	res, err = fn(ctx, token)
	if errors.Is(err, utils.ErrUnauthorized) {
		slog.Error("strava rejected a freshly refreshed token")
		return zero, fmt.Errorf("token rejected after refresh: %w", utils.ErrAuth)
	}
	return res, err
}

// accessToken returns a usable token and whether it came from a refresh.
func (s *Session) accessToken(ctx context.Context) (string, bool, error) {
	s.mu.Lock()
	if s.tokens == nil {
		s.mu.Unlock()
		return "", false, fmt.Errorf("strava not connected: %w", utils.ErrAuth)
	}
	tokens := *s.tokens
	expired := tokens.Expired(s.now())
	s.mu.Unlock()

	if expired {
		token, err := s.refresh(ctx, tokens.AccessToken)
		return token, true, err
	}
	return tokens.AccessToken, false, nil
}

// refresh swaps stale for a new access token. If another caller already replaced stale, the
// current token is returned without asking Strava again.
func (s *Session) refresh(ctx context.Context, stale string) (string, error) {
	s.mu.Lock()
	if s.tokens == nil {
		s.mu.Unlock()
		return "", fmt.Errorf("strava not connected: %w", utils.ErrAuth)
	}
	if s.tokens.AccessToken != stale {
		current := s.tokens.AccessToken
		s.mu.Unlock()
		return current, nil
	}
	refreshToken := s.tokens.RefreshToken
	s.state = Refreshing
	s.mu.Unlock()

	v, err, _ := s.group.Do(refreshToken, func() (any, error) {
		return s.api.RefreshAccessToken(context.WithoutCancel(ctx), refreshToken)
	})
	observability.RecordStravaRefresh(err == nil)
	if err != nil {
		slog.Error("strava token refresh failed, disconnecting", "err", err)
		s.Disconnect()
		return "", fmt.Errorf("%w: %v", utils.ErrAuth, err)
	}

	next := *v.(*TokenSet)
	if next.RefreshToken == "" {
		next.RefreshToken = refreshToken
	}
	s.mu.Lock()
	s.tokens = &next
	s.state = Authorized
	s.mu.Unlock()

	if s.onRefresh != nil {
		s.onRefresh(next)
	}
	return next.AccessToken, nil
}
