// Package pkce generates proof-key code exchange verifiers and challenges.
package pkce

import "golang.org/x/oauth2"

// Method is the only challenge method this package produces.
const Method = "S256"

// GenerateVerifier returns a verifier built from 32 random bytes, encoded as
// unpadded base64url so it is safe to echo in a redirect URL.
func GenerateVerifier() string {
	return oauth2.GenerateVerifier()
}

// DeriveChallenge returns base64url(sha256(verifier)) without padding.
func DeriveChallenge(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
