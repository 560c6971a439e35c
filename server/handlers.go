package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/jrsteele09/social-publisher/imagegen"
	apperrors "github.com/jrsteele09/social-publisher/internal/errors"
	"github.com/jrsteele09/social-publisher/social"
	"github.com/rs/zerolog/log"
)

// GenerateImage renders an image for a prompt and returns its public path.
func (s *Server) GenerateImage() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req imagegen.Request
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBytes)).Decode(&req); err != nil {
			writeJSONError(w, http.StatusBadRequest, apperrors.ErrInvalidRequest.Error(), "")
			return
		}

		img, err := s.images.Generate(r.Context(), req)
		if err != nil {
			var upstream *social.UpstreamError
			if apperrors.As(err, &upstream) {
				log.Warn().Int("status", upstream.StatusCode).Msg("Image generation failed upstream")
				writeJSONError(w, http.StatusBadGateway, fmt.Sprintf("Image generation failed: %d", upstream.StatusCode), "")
				return
			}
			log.Err(err).Msg("Image generation failed")
			writeJSONError(w, statusForError(err), err.Error(), "")
			return
		}

		writeJSON(w, http.StatusOK, img)
	}
}

// GeneratedFile serves a previously generated image from the public directory.
func (s *Server) GeneratedFile() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := r.PathValue("file")
		if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
			notFound(w)
			return
		}

		path := filepath.Join(s.config.GetPublicDir(), strings.Trim(imagegen.GeneratedPath, "/"), name)
		if _, err := os.Stat(path); err != nil {
			logError(r.Method, r.URL.Path, err.Error())
			notFound(w)
			return
		}
		http.ServeFile(w, r, path)
	}
}

func notFound(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
	http.Error(w, "404 - Not Found", http.StatusNotFound)
}

func (s *Server) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
