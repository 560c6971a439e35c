// Package sessions maps request cookies to connected-account sessions.
//
// The browser is the only session store: each provider's session lives,
// sealed, in its own cookie. The Manager decides whether the stored token is
// usable, refreshes it when the provider supports that, and hands any updated
// session back to the caller to persist. It never writes cookies itself.
package sessions

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jrsteele09/social-publisher/internal/metrics"
	"github.com/jrsteele09/social-publisher/social"
	"github.com/rs/zerolog/log"
)

// StateTTL bounds the time between the authorize redirect and the callback.
const StateTTL = 10 * time.Minute

// Codec seals and opens envelopes. *envelope.Codec satisfies it.
type Codec interface {
	Seal(payload any, ttl time.Duration) (string, error)
	Open(token string, out any) bool
}

// CookieReader exposes request cookies. *http.Request satisfies it.
type CookieReader interface {
	Cookie(name string) (*http.Cookie, error)
}

// ValidToken is a usable access token and the session it came from. When
// Refreshed is set the caller must re-seal Session and replace the cookie.
type ValidToken struct {
	Token     string
	Session   social.Session
	Refreshed bool
}

// Manager owns session cookies for every provider.
type Manager struct {
	codec         Codec
	nowTime       func() time.Time
	secureCookies bool
}

// Option configures a Manager.
type Option func(*Manager)

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithSecureCookies marks issued cookies Secure.
func WithSecureCookies(secure bool) Option {
	return func(m *Manager) {
		m.secureCookies = secure
	}
}

// NewManager returns a Manager sealing sessions with codec.
func NewManager(codec Codec, opts ...Option) *Manager {
	m := &Manager{
		codec:   codec,
		nowTime: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// CookieName is the session cookie name for a provider.
func CookieName(provider string) string {
	return provider + "_session"
}

// Load opens the provider's session cookie. It returns ErrNotAuthenticated
// when the cookie is missing and ErrInvalidSession when it cannot be opened.
func (m *Manager) Load(r CookieReader, p social.Provider) (social.Session, error) {
	cookie, err := r.Cookie(CookieName(p.Name()))
	if err != nil || cookie.Value == "" {
		return social.Session{}, social.ErrNotAuthenticated
	}

	var session social.Session
	if !m.codec.Open(cookie.Value, &session) || session.Provider != p.Name() {
		return social.Session{}, social.ErrInvalidSession
	}
	return session, nil
}

// GetValidToken returns an access token that is safe to use now.
//
// A token expiring within the provider's refresh window is refreshed when the
// provider implements social.Refresher. Otherwise entering the window is
// terminal and reported as a *social.ReconnectError.
func (m *Manager) GetValidToken(ctx context.Context, r CookieReader, p social.Provider) (ValidToken, error) {
	session, err := m.Load(r, p)
	if err != nil {
		return ValidToken{}, err
	}

	if !session.Tokens.ExpiresWithin(m.nowTime(), p.RefreshWindow()) {
		return ValidToken{Token: session.Tokens.AccessToken, Session: session}, nil
	}

	refresher, ok := p.(social.Refresher)
	if !ok {
		return ValidToken{}, &social.ReconnectError{Provider: p.Name()}
	}

	tokens, err := refresher.Refresh(ctx, session.Tokens.RefreshToken)
	metrics.TokenRefreshes.WithLabelValues(p.Name(), metrics.Outcome(err)).Inc()
	if err != nil {
		log.Err(err).Str("provider", p.Name()).Msg("Token refresh failed")
		return ValidToken{}, fmt.Errorf("refresh %s token: %w", p.Name(), err)
	}

	session.Tokens = tokens
	return ValidToken{Token: tokens.AccessToken, Session: session, Refreshed: true}, nil
}

// SessionCookie seals session into the provider's cookie.
func (m *Manager) SessionCookie(p social.Provider, session social.Session) (*http.Cookie, error) {
	if session.Provider == "" {
		session.Provider = p.Name()
	}
	if session.Provider != p.Name() {
		return nil, errors.New("session belongs to a different provider")
	}

	value, err := m.codec.Seal(session, p.SessionTTL())
	if err != nil {
		return nil, fmt.Errorf("seal %s session: %w", p.Name(), err)
	}
	return m.cookie(CookieName(p.Name()), value, int(p.SessionTTL().Seconds())), nil
}

// ClearCookie expires the provider's session cookie.
func (m *Manager) ClearCookie(p social.Provider) *http.Cookie {
	return m.cookie(CookieName(p.Name()), "", -1)
}

// SealState seals the anti-forgery state for an authorization request.
func (m *Manager) SealState(state social.OAuthState) (string, error) {
	sealed, err := m.codec.Seal(state, StateTTL)
	if err != nil {
		return "", fmt.Errorf("seal oauth state: %w", err)
	}
	return sealed, nil
}

// OpenState opens a state parameter returned on the callback.
func (m *Manager) OpenState(sealed string) (social.OAuthState, bool) {
	var state social.OAuthState
	if !m.codec.Open(sealed, &state) {
		return social.OAuthState{}, false
	}
	if state.Nonce == "" && state.CodeVerifier == "" {
		return social.OAuthState{}, false
	}
	return state, true
}

func (m *Manager) cookie(name, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   m.secureCookies,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	}
}
