package mocks

import (
	"context"
	"time"

	"toughturtle/app/strava"

	"github.com/stretchr/testify/mock"
)

// StravaAPI is a testify double for strava.API.
type StravaAPI struct {
	mock.Mock
}

func (m *StravaAPI) AuthorizationURL(redirectURI, scope, state string) string {
	return m.Called(redirectURI, scope, state).String(0)
}

func (m *StravaAPI) ExchangeCode(ctx context.Context, code, redirectURI string) (*strava.AuthResp, error) {
	args := m.Called(ctx, code, redirectURI)
	resp, _ := args.Get(0).(*strava.AuthResp)
	return resp, args.Error(1)
}

func (m *StravaAPI) RefreshAccessToken(ctx context.Context, refreshToken string) (*strava.TokenSet, error) {
	args := m.Called(ctx, refreshToken)
	tokens, _ := args.Get(0).(*strava.TokenSet)
	return tokens, args.Error(1)
}

func (m *StravaAPI) GetAthlete(ctx context.Context, accessToken string) (*strava.Athlete, error) {
	args := m.Called(ctx, accessToken)
	athlete, _ := args.Get(0).(*strava.Athlete)
	return athlete, args.Error(1)
}

func (m *StravaAPI) GetActivities(ctx context.Context, accessToken string, q strava.ActivitiesQuery) ([]strava.Activity, error) {
	args := m.Called(ctx, accessToken, q)
	activities, _ := args.Get(0).([]strava.Activity)
	return activities, args.Error(1)
}

func (m *StravaAPI) GetActivity(ctx context.Context, accessToken string, activityId int64) (*strava.Activity, error) {
	args := m.Called(ctx, accessToken, activityId)
	activity, _ := args.Get(0).(*strava.Activity)
	return activity, args.Error(1)
}

func (m *StravaAPI) GetAthleteStats(ctx context.Context, accessToken string, athleteId int64) (*strava.AthleteStats, error) {
	args := m.Called(ctx, accessToken, athleteId)
	stats, _ := args.Get(0).(*strava.AthleteStats)
	return stats, args.Error(1)
}

func (m *StravaAPI) GetActivitiesInRange(ctx context.Context, accessToken string, start, end time.Time) ([]strava.Activity, error) {
	args := m.Called(ctx, accessToken, start, end)
	activities, _ := args.Get(0).([]strava.Activity)
	return activities, args.Error(1)
}
