// Package social holds the types shared by the connected-account providers:
// credentials, profile snapshots, sessions, posts and the capability interface
// every provider implements.
package social

import (
	"context"
	"time"
)

// Provider names.
const (
	Instagram = "instagram"
	Twitter   = "twitter"
)

// TokenSet is a provider credential. ExpiresAt is absolute so comparisons never
// need to know when the token was issued. It is replaced wholesale on refresh.
type TokenSet struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// ExpiresWithin reports whether the token expires before now+window.
func (t TokenSet) ExpiresWithin(now time.Time, window time.Duration) bool {
	return t.ExpiresAt.Before(now.Add(window))
}

// Profile is the denormalized account snapshot stored alongside the tokens.
type Profile struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Handle      string `json:"username"`
	AvatarURL   string `json:"avatar_url,omitempty"`

	// BusinessAccountID is the resolved publishing account (Instagram only).
	BusinessAccountID string `json:"business_account_id,omitempty"`
}

// Session is the unit of persisted identity. It only ever lives inside the
// provider's envelope cookie.
type Session struct {
	Provider string   `json:"provider"`
	Tokens   TokenSet `json:"tokens"`
	User     Profile  `json:"user"`
}

// OAuthState is carried inside the sealed state parameter between the
// authorize redirect and the callback. Exactly one field is set.
type OAuthState struct {
	Nonce        string `json:"nonce,omitempty"`
	CodeVerifier string `json:"cv,omitempty"`
}

// Post is one publish request.
type Post struct {
	Text     string
	ImageRef string // absolute URL or a local path such as /generated/x.jpg
}

// PublishResult describes a live post.
type PublishResult struct {
	PostID  string
	PostURL string
}

// Provider is the capability set shared by the connected-account platforms.
// Providers that can renew credentials also implement Refresher.
type Provider interface {
	Name() string
	UsesPKCE() bool
	AuthCodeURL(state, codeChallenge string) string
	// Connect exchanges an authorization code and resolves the account profile.
	Connect(ctx context.Context, code, codeVerifier string) (Session, error)
	// RefreshWindow is how long before expiry a token stops being usable as-is.
	RefreshWindow() time.Duration
	SessionTTL() time.Duration
	Publish(ctx context.Context, session Session, accessToken string, post Post) (PublishResult, error)
}

// Refresher exchanges a refresh token for a new token set.
type Refresher interface {
	Refresh(ctx context.Context, refreshToken string) (TokenSet, error)
}

// PostValidator checks a post before any credential is used.
type PostValidator interface {
	ValidatePost(post Post) error
}
