package server

import (
	"encoding/json"
	"net/http"
	"net/url"
)

const contentTypeJSON = "application/json; charset=utf-8"

type errorResponse struct {
	Error    string `json:"error"`
	Provider string `json:"provider,omitempty"`
}

// redirectSuccess sends the browser back to the connected-accounts page.
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError sends the browser back with an error query parameter.
func redirectWithError(w http.ResponseWriter, r *http.Request, path, errorMsg string) {
	fullPath := path + "?error=" + url.QueryEscape(errorMsg)
	http.Redirect(w, r, fullPath, http.StatusSeeOther)
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

// writeJSONError writes a provider-tagged error response
func writeJSONError(w http.ResponseWriter, statusCode int, message, provider string) {
	writeJSON(w, statusCode, errorResponse{Error: message, Provider: provider})
}
