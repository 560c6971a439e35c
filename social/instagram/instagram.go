// Package instagram connects Instagram Business and Creator accounts through
// Facebook Login and publishes image posts with the Graph API content
// publishing flow.
//
// Instagram has no refresh grant. The long-lived token obtained at connect
// time is used until it comes within a day of expiry, after which the user
// has to connect again.
package instagram

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/social-publisher/social"
	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL  = "https://www.facebook.com/v21.0/dialog/oauth"
	DefaultGraphURL = "https://graph.facebook.com/v21.0"
	HomeURL         = "https://www.instagram.com/"

	sessionTTL    = 60 * 24 * time.Hour
	refreshWindow = 24 * time.Hour

	// Used when the long-lived exchange omits expires_in.
	defaultLongLivedLifetime = 5184000 * time.Second

	defaultPollInterval = 2 * time.Second
	defaultMaxPolls     = 30
)

// Scopes requested from Facebook Login.
var Scopes = []string{
	"pages_show_list",
	"pages_read_engagement",
	"instagram_basic",
	"instagram_content_publish",
	"business_management",
}

var (
	_ social.Provider      = (*Provider)(nil)
	_ social.PostValidator = (*Provider)(nil)
)

// Config holds the Facebook app credentials and endpoints.
type Config struct {
	AppID       string
	AppSecret   string
	RedirectURL string

	AuthURL  string // defaults to DefaultAuthURL
	GraphURL string // defaults to DefaultGraphURL

	// PublicBaseURL makes local image references (e.g. /generated/a.jpg)
	// absolute, since Instagram fetches container images itself.
	PublicBaseURL string
}

// Provider implements social.Provider for Instagram.
type Provider struct {
	cfg          Config
	oauth        *oauth2.Config
	httpClient   *http.Client
	nowTime      func() time.Time
	sleep        func(ctx context.Context, d time.Duration) error
	pollInterval time.Duration
	maxPolls     int
}

// Option configures a Provider.
type Option func(*Provider)

// WithHTTPClient sets the client used for every Graph API call.
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

// WithSleep replaces the wait between container status polls (primarily for testing).
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(p *Provider) {
		p.sleep = sleep
	}
}

// WithPollPolicy overrides the container polling interval and attempt budget.
func WithPollPolicy(interval time.Duration, maxPolls int) Option {
	return func(p *Provider) {
		p.pollInterval = interval
		p.maxPolls = maxPolls
	}
}

// New returns an Instagram provider.
func New(cfg Config, opts ...Option) *Provider {
	if cfg.AuthURL == "" {
		cfg.AuthURL = DefaultAuthURL
	}
	if cfg.GraphURL == "" {
		cfg.GraphURL = DefaultGraphURL
	}
	cfg.GraphURL = strings.TrimRight(cfg.GraphURL, "/")

	p := &Provider{
		cfg: cfg,
		oauth: &oauth2.Config{
			ClientID:     cfg.AppID,
			ClientSecret: cfg.AppSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthURL,
				TokenURL:  cfg.GraphURL + "/oauth/access_token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		nowTime:      time.Now,
		sleep:        sleepContext,
		pollInterval: defaultPollInterval,
		maxPolls:     defaultMaxPolls,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Provider) Name() string { return social.Instagram }
func (p *Provider) UsesPKCE() bool { return false }
func (p *Provider) RefreshWindow() time.Duration { return refreshWindow }
func (p *Provider) SessionTTL() time.Duration { return sessionTTL }

// AuthCodeURL builds the Facebook Login dialog URL. The challenge is ignored.
// auth_type=rerequest forces the page picker on every connect because the
// page to Instagram account mapping can change between connections.
func (p *Provider) AuthCodeURL(state, _ string) string {
	return p.oauth.AuthCodeURL(state, oauth2.SetAuthURLParam("auth_type", "rerequest"))
}

// Connect exchanges the code for a long-lived token and resolves the linked
// business account.
func (p *Provider) Connect(ctx context.Context, code, _ string) (social.Session, error) {
	tokens, err := p.ExchangeCode(ctx, code)
	if err != nil {
		return social.Session{}, err
	}

	account, err := p.ResolveBusinessAccount(ctx, tokens.AccessToken)
	if err != nil {
		return social.Session{}, err
	}

	return social.Session{
		Provider: social.Instagram,
		Tokens:   tokens,
		User: social.Profile{
			ID:                account.ID,
			DisplayName:       account.DisplayName,
			Handle:            account.Handle,
			AvatarURL:         account.AvatarURL,
			BusinessAccountID: account.ID,
		},
	}, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
