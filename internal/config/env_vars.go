package config

import (
	"os"
	"strings"
)

const (
	portEnvVar      = "PORT"
	appNameVar      = "APP_NAME"
	appURLVar       = "APP_URL"
	publicDirEnvVar = "PUBLIC_DIR"
	envVar          = "ENV"

	productionEnv = "PROD"
)

type EnvVars struct{}

var _ EnvConfig = EnvVars{}

func (EnvVars) GetPort() string {
	port := GetEnv(portEnvVar, "8080")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}
	return port
}

func (EnvVars) GetAppName() string {
	return GetEnv(appNameVar, "Social Publisher")
}

// GetAppURL returns the public origin of the application (e.g.
// "https://publisher.example.com"). OAuth redirect URIs, post-connect
// redirects and absolute image URLs are built from it.
func (EnvVars) GetAppURL() string {
	return strings.TrimRight(GetEnv(appURLVar, "http://localhost:3000"), "/")
}

// GetPublicDir is the directory served publicly; generated images live in
// its generated/ subdirectory.
func (EnvVars) GetPublicDir() string {
	return GetEnv(publicDirEnvVar, "./public")
}

func (EnvVars) GetEnv() string {
	env := os.Getenv(envVar)
	if env == "" {
		return "DEV"
	}
	return env
}

func (e EnvVars) IsProduction() bool {
	return strings.EqualFold(e.GetEnv(), productionEnv)
}

func GetEnv(envVar, defaultValue string) string {
	value := os.Getenv(envVar)
	if value == "" {
		return defaultValue
	}
	return value
}
