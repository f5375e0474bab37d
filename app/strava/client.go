package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"toughturtle/app/observability"
	"toughturtle/app/utils"
)

type TokenSet struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	ExpiresAt    int64  `json:"expires_at"`
}

// Expired reports whether the access token is no longer usable at now.
func (t TokenSet) Expired(now time.Time) bool {
	return t.ExpiresAt <= now.Unix()
}

type AuthResp struct {
	TokenSet
	Athlete Athlete `json:"athlete"`
}

type Athlete struct {
	Id        int64  `json:"id"`
	Username  string `json:"username"`
	Firstname string `json:"firstname"`
	Lastname  string `json:"lastname"`
	Profile   string `json:"profile"`
}

type Activity struct {
	Id                 int64     `json:"id"`
	Name               string    `json:"name"`
	Type               string    `json:"type"`
	SportType          string    `json:"sport_type"`
	Distance           float64   `json:"distance"`
	MovingTime         int64     `json:"moving_time"`
	ElapsedTime        int64     `json:"elapsed_time"`
	TotalElevationGain float64   `json:"total_elevation_gain"`
	StartDate          time.Time `json:"start_date"`
	Calories           *float64  `json:"calories,omitempty"`
	AverageSpeed       float64   `json:"average_speed"`
	AverageHeartrate   float64   `json:"average_heartrate"`
}

type Totals struct {
	Count         int     `json:"count"`
	Distance      float64 `json:"distance"`
	MovingTime    int64   `json:"moving_time"`
	ElevationGain float64 `json:"elevation_gain"`
}

type AthleteStats struct {
	RecentRunTotals  Totals `json:"recent_run_totals"`
	RecentRideTotals Totals `json:"recent_ride_totals"`
	AllRunTotals     Totals `json:"all_run_totals"`
	AllRideTotals    Totals `json:"all_ride_totals"`
}

// ActivitiesQuery mirrors the paging and time filters of /athlete/activities.
// Zero After/Before are omitted.
type ActivitiesQuery struct {
	Page    int
	PerPage int
	After   time.Time
	Before  time.Time
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

const (
	DefaultAuthURL = "https://www.strava.com/oauth"
	DefaultAPIURL  = "https://www.strava.com/api/v3"
	DefaultTimeout = 10 * time.Second

	rangePageSize = 200
	maxRangePages = 50
)

// API is everything the rest of the app needs from Strava.
type API interface {
	AuthorizationURL(redirectURI, scope, state string) string
	ExchangeCode(ctx context.Context, code, redirectURI string) (*AuthResp, error)
	RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenSet, error)
	GetAthlete(ctx context.Context, accessToken string) (*Athlete, error)
	GetActivities(ctx context.Context, accessToken string, q ActivitiesQuery) ([]Activity, error)
	GetActivity(ctx context.Context, accessToken string, activityId int64) (*Activity, error)
	GetAthleteStats(ctx context.Context, accessToken string, athleteId int64) (*AthleteStats, error)
	GetActivitiesInRange(ctx context.Context, accessToken string, start, end time.Time) ([]Activity, error)
}

var _ API = (*Client)(nil)

type Client struct {
	ClientId     string
	ClientSecret string
	AuthURL      string
	APIURL       string
	Timeout      time.Duration
	Handler      HTTPClient
	Ledger       CodeLedger
}

func NewStravaClient(clientId, clientSecret string, timeout time.Duration, ledger CodeLedger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if ledger == nil {
		ledger = NewMemoryLedger(time.Hour)
	}
	return &Client{
		ClientId:     clientId,
		ClientSecret: clientSecret,
		AuthURL:      DefaultAuthURL,
		APIURL:       DefaultAPIURL,
		Timeout:      timeout,
		Handler:      &http.Client{},
		Ledger:       ledger,
	}
}

func (c *Client) AuthorizationURL(redirectURI, scope, state string) string {
	v := url.Values{}
	v.Set("client_id", c.ClientId)
	v.Set("redirect_uri", redirectURI)
	v.Set("response_type", "code")
	v.Set("approval_prompt", "force")
	v.Set("scope", scope)
	if state != "" {
		v.Set("state", state)
	}
	return c.AuthURL + "/authorize?" + v.Encode()
}

// ExchangeCode redeems an authorization code. Each code is claimed in the ledger first so that a
// replayed callback fails without reaching Strava.
func (c *Client) ExchangeCode(ctx context.Context, code, redirectURI string) (*AuthResp, error) {
	if code == "" {
		return nil, utils.Invalid("code", "is required")
	}
	if c.Ledger != nil {
		claimed, err := c.Ledger.Claim(ctx, code)
		if err != nil {
			return nil, fmt.Errorf("claim authorization code: %w", err)
		}
		if !claimed {
			slog.Warn("authorization code replayed")
			return nil, fmt.Errorf("authorization code already used: %w", utils.ErrAuth)
		}
	}
	form := url.Values{}
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	if redirectURI != "" {
		form.Set("redirect_uri", redirectURI)
	}
	var authResp AuthResp
	if err := c.token(ctx, form, &authResp); err != nil {
		return nil, err
	}
	return &authResp, nil
}

func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (*TokenSet, error) {
	if refreshToken == "" {
		return nil, fmt.Errorf("no refresh token: %w", utils.ErrAuth)
	}
	form := url.Values{}
	form.Set("refresh_token", refreshToken)
	form.Set("grant_type", "refresh_token")
	var tokens TokenSet
	if err := c.token(ctx, form, &tokens); err != nil {
		return nil, err
	}
	return &tokens, nil
}

func (c *Client) GetAthlete(ctx context.Context, accessToken string) (*Athlete, error) {
	var athlete Athlete
	if err := c.get(ctx, accessToken, "/athlete", nil, &athlete); err != nil {
		return nil, err
	}
	return &athlete, nil
}

func (c *Client) GetActivities(ctx context.Context, accessToken string, q ActivitiesQuery) ([]Activity, error) {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PerPage > 0 {
		v.Set("per_page", strconv.Itoa(q.PerPage))
	}
	if !q.After.IsZero() {
		v.Set("after", strconv.FormatInt(q.After.Unix(), 10))
	}
	if !q.Before.IsZero() {
		v.Set("before", strconv.FormatInt(q.Before.Unix(), 10))
	}
	var activities []Activity
	if err := c.get(ctx, accessToken, "/athlete/activities", v, &activities); err != nil {
		return nil, err
	}
	return activities, nil
}

func (c *Client) GetActivity(ctx context.Context, accessToken string, activityId int64) (*Activity, error) {
	var activity Activity
	path := fmt.Sprintf("/activities/%d", activityId)
	if err := c.get(ctx, accessToken, path, nil, &activity); err != nil {
		return nil, err
	}
	return &activity, nil
}

func (c *Client) GetAthleteStats(ctx context.Context, accessToken string, athleteId int64) (*AthleteStats, error) {
	var stats AthleteStats
	path := fmt.Sprintf("/athletes/%d/stats", athleteId)
	if err := c.get(ctx, accessToken, path, nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// GetActivitiesInRange walks /athlete/activities between start and end until a short page comes back.
func (c *Client) GetActivitiesInRange(ctx context.Context, accessToken string, start, end time.Time) ([]Activity, error) {
	var total []Activity
	for page := 1; page <= maxRangePages; page++ {
		activities, err := c.GetActivities(ctx, accessToken, ActivitiesQuery{
			Page:    page,
			PerPage: rangePageSize,
			After:   start,
			Before:  end,
		})
		if err != nil {
			slog.Error("error while fetching activities", "page", page, "err", err)
			return nil, err
		}
		total = append(total, activities...)
		if len(activities) < rangePageSize {
			return total, nil
		}
	}
	slog.Warn("stopped paging activities", "pages", maxRangePages, "fetched", len(total))
	return total, nil
}

func (c *Client) get(ctx context.Context, accessToken, path string, query url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	u := c.APIURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		slog.Error("error occurred during request creation", "err", err)
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.do(req, out, utils.ErrUnauthorized)
}

// token posts a grant to the token endpoint. Any non-2xx answer there means the grant is unusable.
func (c *Client) token(ctx context.Context, form url.Values, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout())
	defer cancel()

	form.Set("client_id", c.ClientId)
	form.Set("client_secret", c.ClientSecret)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.AuthURL+"/token", strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")
	err = c.do(req, out, utils.ErrAuth)
	var upstream *utils.UpstreamError
	if errors.As(err, &upstream) {
		return fmt.Errorf("%s: %w", upstream.Error(), utils.ErrAuth)
	}
	return err
}

func (c *Client) do(req *http.Request, out any, unauthorized error) error {
	endpoint := endpointLabel(req.URL.Path)
	start := time.Now()
	resp, err := c.Handler.Do(req)
	if err != nil {
		observability.RecordStravaRequest(endpoint, "transport_error", time.Since(start))
		slog.Error("error occurred during request handling", "path", req.URL.Path, "err", err)
		return fmt.Errorf("strava %s: %w", req.URL.Path, err)
	}
	defer resp.Body.Close()
	observability.RecordStravaRequest(endpoint, strconv.Itoa(resp.StatusCode), time.Since(start))

	if resp.StatusCode == http.StatusUnauthorized {
		utils.DebugResponse(resp)
		return fmt.Errorf("strava %s: %w", req.URL.Path, unauthorized)
	}
	if resp.StatusCode >= 300 {
		slog.Error("got bad resp from strava", "status", resp.Status, "path", req.URL.Path)
		body := utils.DebugResponse(resp)
		return &utils.UpstreamError{StatusCode: resp.StatusCode, Status: resp.Status, Body: body}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		slog.Error("error occurred during response decode handling", "err", err)
		return fmt.Errorf("decode strava response: %w", err)
	}
	return nil
}

// endpointLabel replaces numeric path segments so ids do not become metric labels.
func endpointLabel(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		if _, err := strconv.ParseInt(p, 10, 64); err == nil {
			parts[i] = "{id}"
		}
	}
	return strings.Join(parts, "/")
}

func (c *Client) timeout() time.Duration {
	if c.Timeout <= 0 {
		return DefaultTimeout
	}
	return c.Timeout
}
