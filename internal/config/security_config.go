package config

const tokenSecretVar = "TOKEN_ENCRYPTION_SECRET"

type SecurityConfig interface {
	GetTokenEncryptionSecret() string
	GetSecureCookies() bool
}

type Security struct{}

var _ SecurityConfig = Security{}

// GetTokenEncryptionSecret returns the secret envelopes are sealed with.
// There is no default; the envelope codec rejects secrets shorter than 32 characters.
func (Security) GetTokenEncryptionSecret() string {
	return GetEnv(tokenSecretVar, "")
}

// GetSecureCookies reports whether cookies are marked Secure (production only).
func (Security) GetSecureCookies() bool {
	return EnvVars{}.IsProduction()
}
