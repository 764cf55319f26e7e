package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/mailbridge/backend/internal/auth"
	"github.com/mailbridge/backend/internal/imap"
	"github.com/mailbridge/backend/internal/models"
)

// GetCredentialsFromRequest extracts the mailbox credentials the auth
// middleware stored in the context and writes a 401 when they are missing.
// Returns (credentials, true) on success. Shared across all handlers so the
// unauthorized path behaves the same everywhere.
func GetCredentialsFromRequest(ctx context.Context, w http.ResponseWriter) (models.Credentials, bool) {
	creds, ok := auth.GetCredentialsFromContext(ctx)
	if !ok {
		log.Println("API: No mailbox credentials in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return models.Credentials{}, false
	}
	return creds, true
}

// WriteJSONResponse encodes the response into a buffer first so an encoding
// failure becomes a clean 500 instead of a partial body. Returns false when
// nothing useful was written.
func WriteJSONResponse(w http.ResponseWriter, response interface{}) bool {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(response); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return false
	}

	w.Header().Set("Content-Type", "application/json")
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Printf("API: Failed to write response: %v", err)
		return false
	}
	return true
}

// WriteMailError maps the mailbox error taxonomy onto HTTP statuses.
func WriteMailError(w http.ResponseWriter, component string, err error) {
	log.Printf("%s: %v", component, err)

	switch {
	case errors.Is(err, imap.ErrAuthentication):
		http.Error(w, "Mailbox rejected the credentials. Please log in again.", http.StatusUnauthorized)
	case errors.Is(err, imap.ErrFolderNotFound):
		http.Error(w, "Folder not found", http.StatusNotFound)
	case errors.Is(err, imap.ErrAttachmentNotFound):
		http.Error(w, "Attachment not found", http.StatusNotFound)
	case errors.Is(err, imap.ErrExpungeConflict):
		http.Error(w, "A conflicting deletion is pending in this folder.", http.StatusConflict)
	case errors.Is(err, imap.ErrTimeout):
		http.Error(w, "Connection to the mail server timed out. Please try again.", http.StatusServiceUnavailable)
	case errors.Is(err, imap.ErrConnection):
		http.Error(w, "Failed to reach the mail server. Please try again.", http.StatusServiceUnavailable)
	default:
		http.Error(w, "Internal server error", http.StatusInternalServerError)
	}
}

// ParseUintParam parses an unsigned integer query parameter. Missing or
// malformed values return the fallback.
func ParseUintParam(r *http.Request, name string, fallback uint32) uint32 {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return fallback
	}
	return uint32(parsed)
}

// ParseIntParam parses a positive integer query parameter. Missing,
// malformed, or non-positive values return the fallback.
func ParseIntParam(r *http.Request, name string, fallback int) int {
	value := r.URL.Query().Get(name)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}
