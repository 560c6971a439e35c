package instagram

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/social-publisher/social"
	"golang.org/x/oauth2"
)

type longLivedTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// ExchangeCode trades an authorization code for a short-lived token and then
// for a long-lived (~60 day) token. Neither step is retried.
func (p *Provider) ExchangeCode(ctx context.Context, code string) (social.TokenSet, error) {
	shortLived, err := p.exchangeShortLived(ctx, code)
	if err != nil {
		return social.TokenSet{}, err
	}
	return p.exchangeLongLived(ctx, shortLived)
}

func (p *Provider) exchangeShortLived(ctx context.Context, code string) (string, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return "", social.FromRetrieveError(social.Instagram, "token exchange", err)
	}
	return token.AccessToken, nil
}

func (p *Provider) exchangeLongLived(ctx context.Context, shortLivedToken string) (social.TokenSet, error) {
	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {p.cfg.AppID},
		"client_secret":     {p.cfg.AppSecret},
		"fb_exchange_token": {shortLivedToken},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.oauth.Endpoint.TokenURL+"?"+params.Encode(), nil)
	if err != nil {
		return social.TokenSet{}, fmt.Errorf("build long-lived token request: %w", err)
	}

	var resp longLivedTokenResponse
	if err := social.DoJSON(p.httpClient, social.Instagram, "long-lived token exchange", req, &resp); err != nil {
		return social.TokenSet{}, err
	}
	if resp.AccessToken == "" {
		return social.TokenSet{}, fmt.Errorf("instagram long-lived token exchange: no access_token in response")
	}

	lifetime := defaultLongLivedLifetime
	if resp.ExpiresIn > 0 {
		lifetime = time.Duration(resp.ExpiresIn) * time.Second
	}

	return social.TokenSet{
		AccessToken: resp.AccessToken,
		ExpiresAt:   p.nowTime().Add(lifetime),
	}, nil
}
