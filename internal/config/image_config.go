package config

type ImageConfig interface {
	GetImageServiceURL() string
	GetImageServiceAPIKey() string
}

type Images struct{}

var _ ImageConfig = Images{}

// GetImageServiceURL is the Pollinations image endpoint. Empty selects the
// public endpoint.
func (Images) GetImageServiceURL() string {
	return GetEnv("POLLINATIONS_URL", "")
}

func (Images) GetImageServiceAPIKey() string {
	return GetEnv("POLLINATIONS_API_KEY", "")
}
