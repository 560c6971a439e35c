package config

type ProviderConfig interface {
	GetFacebookAppID() string
	GetFacebookAppSecret() string
	GetTwitterClientID() string
	GetTwitterClientSecret() string
}

type Providers struct{}

var _ ProviderConfig = Providers{}

func (Providers) GetFacebookAppID() string {
	return GetEnv("FACEBOOK_APP_ID", "")
}

func (Providers) GetFacebookAppSecret() string {
	return GetEnv("FACEBOOK_APP_SECRET", "")
}

func (Providers) GetTwitterClientID() string {
	return GetEnv("TWITTER_CLIENT_ID", "")
}

func (Providers) GetTwitterClientSecret() string {
	return GetEnv("TWITTER_CLIENT_SECRET", "")
}
