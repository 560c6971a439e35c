package server

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/jrsteele09/social-publisher/internal/metrics"
	"github.com/jrsteele09/social-publisher/social"
	"github.com/jrsteele09/social-publisher/social/pkce"
	"github.com/rs/zerolog/log"
)

// Authorize starts the connect flow by redirecting to the provider's consent
// page. The anti-forgery state (a nonce, or the PKCE verifier) travels sealed
// in the state parameter so nothing is kept on the server.
func (s *Server) Authorize(p social.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var (
			state     social.OAuthState
			challenge string
		)
		if p.UsesPKCE() {
			verifier := pkce.GenerateVerifier()
			state.CodeVerifier = verifier
			challenge = pkce.DeriveChallenge(verifier)
		} else {
			state.Nonce = uuid.NewString()
		}

		sealed, err := s.sessions.SealState(state)
		if err != nil {
			log.Err(err).Str("provider", p.Name()).Msg("Failed to seal OAuth state")
			redirectWithError(w, r, s.socialPageURL(), "authorize_failed")
			return
		}

		http.Redirect(w, r, p.AuthCodeURL(sealed, challenge), http.StatusFound)
	}
}

// Callback completes the connect flow. Every failure ends in a redirect to
// the connected-accounts page with an error reason; only success sets the
// session cookie.
func (s *Server) Callback(p social.Provider) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()

		if reason := q.Get("error"); reason != "" {
			s.callbackFailed(w, r, p, "provider_error", reason)
			return
		}

		code, sealedState := q.Get("code"), q.Get("state")
		if code == "" || sealedState == "" {
			s.callbackFailed(w, r, p, "missing_params", social.ErrMissingParameters.Error())
			return
		}

		state, ok := s.sessions.OpenState(sealedState)
		if !ok || (p.UsesPKCE() && state.CodeVerifier == "") {
			s.callbackFailed(w, r, p, "invalid_state", social.ErrInvalidState.Error())
			return
		}

		session, err := p.Connect(r.Context(), code, state.CodeVerifier)
		if err != nil {
			log.Err(err).Str("provider", p.Name()).Msg("OAuth callback failed")
			s.callbackFailed(w, r, p, "connect_error", err.Error())
			return
		}

		cookie, err := s.sessions.SessionCookie(p, session)
		if err != nil {
			log.Err(err).Str("provider", p.Name()).Msg("Failed to seal session")
			s.callbackFailed(w, r, p, "seal_error", "session_error")
			return
		}

		http.SetCookie(w, cookie)
		metrics.OAuthCallbacks.WithLabelValues(p.Name(), metrics.Outcome(nil)).Inc()
		log.Info().Str("provider", p.Name()).Str("handle", session.User.Handle).Msg("Account connected")
		redirectSuccess(w, r, s.socialPageURL())
	}
}

func (s *Server) callbackFailed(w http.ResponseWriter, r *http.Request, p social.Provider, outcome, reason string) {
	metrics.OAuthCallbacks.WithLabelValues(p.Name(), outcome).Inc()
	redirectWithError(w, r, s.socialPageURL(), reason)
}
