package server

import (
	"net/http"

	"github.com/jrsteele09/social-publisher/imagegen"
	apperrors "github.com/jrsteele09/social-publisher/internal/errors"
	"github.com/jrsteele09/social-publisher/social"
)

// statusForError maps a handler failure to its HTTP status.
func statusForError(err error) int {
	switch {
	case apperrors.Is(err, social.ErrNotAuthenticated),
		apperrors.Is(err, social.ErrInvalidSession),
		apperrors.Is(err, social.ErrTokenExpiredNeedsReconnect):
		return http.StatusUnauthorized
	case apperrors.Is(err, social.ErrInvalidPost),
		apperrors.Is(err, apperrors.ErrInvalidRequest),
		apperrors.Is(err, imagegen.ErrEmptyPrompt):
		return http.StatusBadRequest
	case apperrors.Is(err, apperrors.ErrNotFound):
		return http.StatusNotFound
	case apperrors.Is(err, imagegen.ErrImageTooLarge):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
