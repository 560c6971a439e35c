package server

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/jrsteele09/social-publisher/internal/errors"
	"github.com/jrsteele09/social-publisher/internal/metrics"
	"github.com/jrsteele09/social-publisher/social"
	"github.com/rs/zerolog/log"
)

const maxRequestBytes = 64 << 10

type meResponse struct {
	Connected bool            `json:"connected"`
	User      *social.Profile `json:"user,omitempty"`
}

// postRequest accepts both the Instagram (caption) and X (text) field names.
type postRequest struct {
	Text     string `json:"text"`
	Caption  string `json:"caption"`
	ImageURL string `json:"imageUrl"`
}

type postResponse struct {
	Success bool   `json:"success"`
	PostID  string `json:"postId"`
	PostURL string `json:"postUrl"`
}

// Me reports whether the browser holds a usable session for the provider.
func (s *Server) Me(p social.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.sessions.Load(r, p)
		if err != nil {
			writeJSON(w, http.StatusOK, meResponse{Connected: false})
			return
		}
		writeJSON(w, http.StatusOK, meResponse{Connected: true, User: &session.User})
	}
}

// Post publishes to the connected account. A token refreshed on the way is
// written back to the session cookie before publishing, so a rotated
// refresh token survives a failed publish.
func (s *Server) Post(p social.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req postRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			s.writeError(w, p, apperrors.Wrapf(apperrors.ErrInvalidRequest, "decode post body: %v", err))
			return
		}

		post := social.Post{Text: req.Text, ImageRef: req.ImageURL}
		if post.Text == "" {
			post.Text = req.Caption
		}
		if v, ok := p.(social.PostValidator); ok {
			if err := v.ValidatePost(post); err != nil {
				s.writeError(w, p, err)
				return
			}
		}

		valid, err := s.sessions.GetValidToken(r.Context(), r, p)
		if err != nil {
			s.writeError(w, p, err)
			return
		}
		if valid.Refreshed {
			cookie, err := s.sessions.SessionCookie(p, valid.Session)
			if err != nil {
				log.Err(err).Str("provider", p.Name()).Msg("Failed to reseal refreshed session")
			} else {
				http.SetCookie(w, cookie)
			}
		}

		result, err := p.Publish(r.Context(), valid.Session, valid.Token, post)
		metrics.Publishes.WithLabelValues(p.Name(), metrics.Outcome(err)).Inc()
		if err != nil {
			log.Err(err).Str("provider", p.Name()).Msg("Publish failed")
			s.writeError(w, p, err)
			return
		}

		log.Info().Str("provider", p.Name()).Str("post_id", result.PostID).Msg("Published post")
		writeJSON(w, http.StatusOK, postResponse{Success: true, PostID: result.PostID, PostURL: result.PostURL})
	}
}

// Disconnect forgets the provider session by expiring its cookie.
func (s *Server) Disconnect(p social.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.SetCookie(w, s.sessions.ClearCookie(p))
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	}
}

func (s *Server) writeError(w http.ResponseWriter, p social.Provider, err error) {
	writeJSONError(w, statusForError(err), err.Error(), p.Name())
}
