package server

import (
	"github.com/jrsteele09/social-publisher/internal/config"
	"github.com/jrsteele09/social-publisher/social"
	"github.com/jrsteele09/social-publisher/social/instagram"
	"github.com/jrsteele09/social-publisher/social/twitter"
	"github.com/rs/zerolog/log"
)

// ProvidersFromConfig builds every provider with credentials configured.
// Callback URLs are derived from the application URL.
func ProvidersFromConfig(cfg config.Config) []social.Provider {
	appURL := cfg.GetAppURL()
	var providers []social.Provider

	if cfg.GetFacebookAppID() != "" && cfg.GetFacebookAppSecret() != "" {
		providers = append(providers, instagram.New(instagram.Config{
			AppID:         cfg.GetFacebookAppID(),
			AppSecret:     cfg.GetFacebookAppSecret(),
			RedirectURL:   appURL + ProviderRoute(RouteCallback, social.Instagram),
			PublicBaseURL: appURL,
		}))
	} else {
		log.Warn().Msg("FACEBOOK_APP_ID/FACEBOOK_APP_SECRET not set, Instagram disabled")
	}

	if cfg.GetTwitterClientID() != "" && cfg.GetTwitterClientSecret() != "" {
		providers = append(providers, twitter.New(twitter.Config{
			ClientID:     cfg.GetTwitterClientID(),
			ClientSecret: cfg.GetTwitterClientSecret(),
			RedirectURL:  appURL + ProviderRoute(RouteCallback, social.Twitter),
			PublicDir:    cfg.GetPublicDir(),
		}))
	} else {
		log.Warn().Msg("TWITTER_CLIENT_ID/TWITTER_CLIENT_SECRET not set, X disabled")
	}

	return providers
}
