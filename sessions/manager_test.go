package sessions_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jrsteele09/social-publisher/envelope"
	"github.com/jrsteele09/social-publisher/sessions"
	"github.com/jrsteele09/social-publisher/social"
	"github.com/stretchr/testify/require"
)

const testSecret = "sessions-test-secret-0123456789abcdef"

var testNow = time.Date(2026, 5, 10, 9, 30, 0, 0, time.UTC)

// fakeProvider implements social.Provider with configurable refresh window.
type fakeProvider struct {
	name   string
	window time.Duration
	ttl    time.Duration
}

func (f *fakeProvider) Name() string { return f.name }
func (f *fakeProvider) UsesPKCE() bool { return false }
func (f *fakeProvider) AuthCodeURL(state, _ string) string { return "https://idp.example/auth?state=" + state }
func (f *fakeProvider) RefreshWindow() time.Duration { return f.window }
func (f *fakeProvider) SessionTTL() time.Duration { return f.ttl }
func (f *fakeProvider) Connect(context.Context, string, string) (social.Session, error) {
	return social.Session{}, errors.New("not used")
}
func (f *fakeProvider) Publish(context.Context, social.Session, string, social.Post) (social.PublishResult, error) {
	return social.PublishResult{}, errors.New("not used")
}

// refreshingProvider adds social.Refresher and counts calls.
type refreshingProvider struct {
	fakeProvider
	calls    int
	lastRT   string
	newSet   social.TokenSet
	failWith error
}

func (r *refreshingProvider) Refresh(_ context.Context, refreshToken string) (social.TokenSet, error) {
	r.calls++
	r.lastRT = refreshToken
	if r.failWith != nil {
		return social.TokenSet{}, r.failWith
	}
	return r.newSet, nil
}

type fixture struct {
	codec   *envelope.Codec
	manager *sessions.Manager
}

func setupFixture(t *testing.T) *fixture {
	t.Helper()
	now := func() time.Time { return testNow }
	codec, err := envelope.New(testSecret, envelope.WithNowTime(now))
	require.NoError(t, err)
	return &fixture{
		codec:   codec,
		manager: sessions.NewManager(codec, sessions.WithNowTime(now), sessions.WithSecureCookies(true)),
	}
}

func (f *fixture) requestWithSession(t *testing.T, p social.Provider, session social.Session) *http.Request {
	t.Helper()
	cookie, err := f.manager.SessionCookie(p, session)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(cookie)
	return r
}

func sessionExpiringIn(provider string, d time.Duration) social.Session {
	return social.Session{
		Provider: provider,
		Tokens: social.TokenSet{
			AccessToken:  "access-old",
			RefreshToken: "refresh-old",
			ExpiresAt:    testNow.Add(d),
		},
		User: social.Profile{ID: "42", DisplayName: "Jane", Handle: "jane"},
	}
}

func TestGetValidToken_NoCookie(t *testing.T) {
	f := setupFixture(t)
	p := &fakeProvider{name: social.Instagram, window: 24 * time.Hour, ttl: 60 * 24 * time.Hour}

	_, err := f.manager.GetValidToken(context.Background(), httptest.NewRequest(http.MethodGet, "/", nil), p)
	require.ErrorIs(t, err, social.ErrNotAuthenticated)
}

func TestGetValidToken_UnopenableCookie(t *testing.T) {
	f := setupFixture(t)
	p := &fakeProvider{name: social.Instagram, window: 24 * time.Hour, ttl: 60 * 24 * time.Hour}

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: sessions.CookieName(social.Instagram), Value: "garbage"})

	_, err := f.manager.GetValidToken(context.Background(), r, p)
	require.ErrorIs(t, err, social.ErrInvalidSession)
}

func TestGetValidToken_SessionFromOtherProvider(t *testing.T) {
	f := setupFixture(t)
	ig := &fakeProvider{name: social.Instagram, window: 24 * time.Hour, ttl: time.Hour}

	sealed, err := f.codec.Seal(sessionExpiringIn(social.Twitter, time.Hour), time.Hour)
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.AddCookie(&http.Cookie{Name: sessions.CookieName(social.Instagram), Value: sealed})

	_, err = f.manager.GetValidToken(context.Background(), r, ig)
	require.ErrorIs(t, err, social.ErrInvalidSession)
}

func TestGetValidToken_RefreshThreshold(t *testing.T) {
	tests := []struct {
		name          string
		expiresIn     time.Duration
		expectRefresh bool
	}{
		{"well before window", time.Hour, false},
		{"exactly at window", 60 * time.Second, false},
		{"just inside window", 59 * time.Second, true},
		{"already expired", -time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupFixture(t)
			p := &refreshingProvider{
				fakeProvider: fakeProvider{name: social.Twitter, window: 60 * time.Second, ttl: 30 * 24 * time.Hour},
				newSet: social.TokenSet{
					AccessToken:  "access-new",
					RefreshToken: "refresh-new",
					ExpiresAt:    testNow.Add(2 * time.Hour),
				},
			}
			r := f.requestWithSession(t, p, sessionExpiringIn(social.Twitter, tt.expiresIn))

			got, err := f.manager.GetValidToken(context.Background(), r, p)
			require.NoError(t, err)

			if tt.expectRefresh {
				require.Equal(t, 1, p.calls)
				require.Equal(t, "refresh-old", p.lastRT)
				require.True(t, got.Refreshed)
				require.Equal(t, "access-new", got.Token)
				require.Equal(t, p.newSet, got.Session.Tokens)
				require.Equal(t, "jane", got.Session.User.Handle)
			} else {
				require.Zero(t, p.calls)
				require.False(t, got.Refreshed)
				require.Equal(t, "access-old", got.Token)
			}
		})
	}
}

func TestGetValidToken_RefreshFailure(t *testing.T) {
	f := setupFixture(t)
	upstream := &social.UpstreamError{Provider: social.Twitter, Operation: "token refresh", StatusCode: 400, Body: `{"error":"invalid_grant"}`}
	p := &refreshingProvider{
		fakeProvider: fakeProvider{name: social.Twitter, window: 60 * time.Second, ttl: time.Hour},
		failWith:     upstream,
	}
	r := f.requestWithSession(t, p, sessionExpiringIn(social.Twitter, time.Second))

	_, err := f.manager.GetValidToken(context.Background(), r, p)
	var ue *social.UpstreamError
	require.ErrorAs(t, err, &ue)
	require.Equal(t, 400, ue.StatusCode)
}

func TestGetValidToken_NonRefreshableNeedsReconnect(t *testing.T) {
	tests := []struct {
		name        string
		expiresIn   time.Duration
		expectError bool
	}{
		{"two days left", 48 * time.Hour, false},
		{"exactly one day left", 24 * time.Hour, false},
		{"just under one day", 24*time.Hour - time.Second, true},
		{"expired", -time.Hour, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupFixture(t)
			p := &fakeProvider{name: social.Instagram, window: 24 * time.Hour, ttl: 60 * 24 * time.Hour}
			r := f.requestWithSession(t, p, sessionExpiringIn(social.Instagram, tt.expiresIn))

			got, err := f.manager.GetValidToken(context.Background(), r, p)
			if tt.expectError {
				require.ErrorIs(t, err, social.ErrTokenExpiredNeedsReconnect)
				require.Contains(t, err.Error(), "reconnect your instagram account")
				return
			}
			require.NoError(t, err)
			require.False(t, got.Refreshed)
			require.Equal(t, "access-old", got.Token)
		})
	}
}

func TestSessionCookie_Attributes(t *testing.T) {
	f := setupFixture(t)
	p := &fakeProvider{name: social.Instagram, window: 24 * time.Hour, ttl: 60 * 24 * time.Hour}

	cookie, err := f.manager.SessionCookie(p, sessionExpiringIn(social.Instagram, 50*24*time.Hour))
	require.NoError(t, err)
	require.Equal(t, "instagram_session", cookie.Name)
	require.Equal(t, "/", cookie.Path)
	require.True(t, cookie.HttpOnly)
	require.True(t, cookie.Secure)
	require.Equal(t, http.SameSiteLaxMode, cookie.SameSite)
	require.Equal(t, 60*24*60*60, cookie.MaxAge)

	var opened social.Session
	require.True(t, f.codec.Open(cookie.Value, &opened))
	require.Equal(t, "42", opened.User.ID)

	cleared := f.manager.ClearCookie(p)
	require.Equal(t, -1, cleared.MaxAge)
	require.Empty(t, cleared.Value)
}

func TestSealOpenState(t *testing.T) {
	f := setupFixture(t)

	sealed, err := f.manager.SealState(social.OAuthState{CodeVerifier: "verifier-123"})
	require.NoError(t, err)

	state, ok := f.manager.OpenState(sealed)
	require.True(t, ok)
	require.Equal(t, "verifier-123", state.CodeVerifier)

	_, ok = f.manager.OpenState(sealed + "x")
	require.False(t, ok)

	empty, err := f.manager.SealState(social.OAuthState{})
	require.NoError(t, err)
	_, ok = f.manager.OpenState(empty)
	require.False(t, ok)
}
