// Package twitter connects X (Twitter) accounts with OAuth 2.0 authorization
// code + PKCE and posts through the v2 API.
package twitter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/social-publisher/social"
	"github.com/jrsteele09/social-publisher/social/pkce"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL  = "https://x.com/i/oauth2/authorize"
	DefaultTokenURL = "https://api.x.com/2/oauth2/token"
	DefaultAPIURL   = "https://api.x.com/2"
	StatusURLPrefix = "https://x.com/i/status/"

	sessionTTL    = 30 * 24 * time.Hour
	refreshWindow = 60 * time.Second
)

// Scopes requested at authorization. offline.access yields a refresh token.
var Scopes = []string{"tweet.read", "tweet.write", "users.read", "offline.access", "media.write"}

var (
	_ social.Provider      = (*Provider)(nil)
	_ social.Refresher     = (*Provider)(nil)
	_ social.PostValidator = (*Provider)(nil)
)

// Config holds the X app credentials and endpoints.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string

	AuthURL  string // defaults to DefaultAuthURL
	TokenURL string // defaults to DefaultTokenURL
	APIURL   string // defaults to DefaultAPIURL

	// PublicDir is where local image references (e.g. /generated/a.jpg) are read from.
	PublicDir string
}

// Provider implements social.Provider and social.Refresher for X.
type Provider struct {
	cfg        Config
	oauth      *oauth2.Config
	httpClient *http.Client
	nowTime    func() time.Time
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the client used for token and API calls.
func WithHTTPClient(client *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = client
	}
}

// WithNowTime sets the now time function (primarily for testing).
func WithNowTime(nowFunc func() time.Time) Option {
	return func(p *Provider) {
		p.nowTime = nowFunc
	}
}

// New returns an X provider.
func New(cfg Config, opts ...Option) *Provider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	cfg.APIURL = strings.TrimRight(cfg.APIURL, "/")

	p := &Provider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		httpClient: &http.Client{Timeout: 30 * time.Second},
		nowTime:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return social.Twitter }
func (p *Provider) UsesPKCE() bool { return true }
func (p *Provider) RefreshWindow() time.Duration { return refreshWindow }
func (p *Provider) SessionTTL() time.Duration { return sessionTTL }

// AuthCodeURL builds the authorization URL carrying the S256 code challenge.
func (p *Provider) AuthCodeURL(state, codeChallenge string) string {
	return p.oauth.AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", codeChallenge),
		oauth2.SetAuthURLParam("code_challenge_method", pkce.Method),
	)
}

// Connect exchanges the code and loads the user's profile.
func (p *Provider) Connect(ctx context.Context, code, codeVerifier string) (social.Session, error) {
	tokens, err := p.ExchangeCode(ctx, code, codeVerifier)
	if err != nil {
		return social.Session{}, err
	}

	user, err := p.Me(ctx, tokens.AccessToken)
	if err != nil {
		return social.Session{}, err
	}

	return social.Session{
		Provider: social.Twitter,
		Tokens:   tokens,
		User:     user,
	}, nil
}

// ExchangeCode trades an authorization code and its PKCE verifier for tokens.
func (p *Provider) ExchangeCode(ctx context.Context, code, codeVerifier string) (social.TokenSet, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code, oauth2.VerifierOption(codeVerifier))
	if err != nil {
		return social.TokenSet{}, social.FromRetrieveError(social.Twitter, "token exchange", err)
	}
	return p.tokenSet(token), nil
}

// Refresh exchanges a refresh token for a new access and refresh token pair.
func (p *Provider) Refresh(ctx context.Context, refreshToken string) (social.TokenSet, error) {
	if refreshToken == "" {
		return social.TokenSet{}, fmt.Errorf("twitter token refresh: %w", social.ErrInvalidSession)
	}

	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return social.TokenSet{}, social.FromRetrieveError(social.Twitter, "token refresh", err)
	}
	return p.tokenSet(token), nil
}

func (p *Provider) tokenSet(token *oauth2.Token) social.TokenSet {
	// oauth2 derives Expiry from the wall clock; prefer expires_in from nowTime.
	expiresAt := token.Expiry
	if seconds := expiresInSeconds(token); seconds > 0 {
		expiresAt = p.nowTime().Add(time.Duration(seconds) * time.Second)
	}
	return social.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		ExpiresAt:    expiresAt,
	}
}

func expiresInSeconds(token *oauth2.Token) int64 {
	switch v := token.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case string:
		seconds, _ := strconv.ParseInt(v, 10, 64)
		return seconds
	}
	return 0
}

type meResponse struct {
	Data struct {
		ID              string `json:"id"`
		Name            string `json:"name"`
		Username        string `json:"username"`
		ProfileImageURL string `json:"profile_image_url"`
	} `json:"data"`
}

// Me loads the authenticated user's profile.
func (p *Provider) Me(ctx context.Context, accessToken string) (social.Profile, error) {
	params := url.Values{"user.fields": {"profile_image_url"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.APIURL+"/users/me?"+params.Encode(), nil)
	if err != nil {
		return social.Profile{}, fmt.Errorf("build profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	var resp meResponse
	if err := social.DoJSON(p.httpClient, social.Twitter, "fetch user profile", req, &resp); err != nil {
		return social.Profile{}, err
	}

	return social.Profile{
		ID:          resp.Data.ID,
		DisplayName: resp.Data.Name,
		Handle:      resp.Data.Username,
		AvatarURL:   resp.Data.ProfileImageURL,
	}, nil
}
