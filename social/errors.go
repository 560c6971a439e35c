package social

import (
	"errors"
	"fmt"
)

var (
	ErrMissingParameters          = errors.New("missing_params")
	ErrInvalidState               = errors.New("invalid_state")
	ErrInvalidSession             = errors.New("invalid session")
	ErrNotAuthenticated           = errors.New("not authenticated")
	ErrNoLinkedBusinessAccount    = errors.New("no linked business account")
	ErrTokenExpiredNeedsReconnect = errors.New("token expired, reconnect the account")
	ErrProcessingTimeout          = errors.New("media processing timed out")
	ErrProcessingError            = errors.New("media processing failed")
	ErrInvalidPost                = errors.New("invalid post")
)

// UpstreamError is a non-success response from an identity or platform API.
type UpstreamError struct {
	Provider   string
	Operation  string
	StatusCode int
	Body       string
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("%s %s failed (%d): %s", e.Provider, e.Operation, e.StatusCode, e.Body)
}

// NoLinkedBusinessAccountError reports how many parent pages were scanned
// without finding a business sub-account.
type NoLinkedBusinessAccountError struct {
	PagesScanned int
}

func (e *NoLinkedBusinessAccountError) Error() string {
	return fmt.Sprintf("no Instagram Business or Creator account found linked to any of your %d Facebook Page(s); "+
		"connect the Instagram account to a Facebook Page in the Instagram app settings", e.PagesScanned)
}

func (e *NoLinkedBusinessAccountError) Unwrap() error {
	return ErrNoLinkedBusinessAccount
}

// ReconnectError wraps ErrTokenExpiredNeedsReconnect with the provider that
// needs to be connected again.
type ReconnectError struct {
	Provider string
}

func (e *ReconnectError) Error() string {
	return fmt.Sprintf("token expired, please reconnect your %s account", e.Provider)
}

func (e *ReconnectError) Unwrap() error {
	return ErrTokenExpiredNeedsReconnect
}
