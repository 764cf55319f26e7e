package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/mailbridge/backend/internal/crypto"
	"github.com/mailbridge/backend/internal/models"
)

type contextKey string

// CredentialsKey is the context key used to store the unsealed mailbox credentials.
const CredentialsKey contextKey = "mailbox_credentials"

// RequireCredentials middleware checks for a valid bearer token in the
// Authorization header. The token is an AES-GCM-sealed credentials blob
// issued by the external login layer; the middleware unseals it and stores
// the mailbox credentials in the request context for downstream handlers.
// Returns 401 Unauthorized if the token is missing or cannot be unsealed.
func RequireCredentials(encryptor *crypto.Encryptor, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")

		if authHeader == "" {
			log.Println("Auth: No Authorization header present")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		// Parse Authorization header: "Bearer <token>" (RFC 7235)
		// Use strings.Fields to handle multiple spaces and trim whitespace
		// Bearer scheme is case-insensitive per RFC 7235
		fields := strings.Fields(authHeader)
		if len(fields) != 2 || !strings.EqualFold(fields[0], "Bearer") {
			log.Println("Auth: Invalid Authorization header format")
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		creds, err := UnsealCredentials(encryptor, fields[1])
		if err != nil {
			log.Printf("Auth: Token validation failed: %v", err)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), CredentialsKey, creds)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetCredentialsFromContext returns the mailbox credentials from the context.
func GetCredentialsFromContext(ctx context.Context) (models.Credentials, bool) {
	creds, ok := ctx.Value(CredentialsKey).(models.Credentials)
	return creds, ok
}

// SealCredentials packs credentials into a bearer token. The server itself
// only unseals tokens; sealing lives here so the login layer and the tests
// produce tokens the same way.
func SealCredentials(encryptor *crypto.Encryptor, creds models.Credentials) (string, error) {
	payload, err := json.Marshal(creds)
	if err != nil {
		return "", fmt.Errorf("failed to marshal credentials: %w", err)
	}

	return encryptor.SealToken(payload)
}

// UnsealCredentials unpacks a bearer token into mailbox credentials.
func UnsealCredentials(encryptor *crypto.Encryptor, token string) (models.Credentials, error) {
	var creds models.Credentials

	payload, err := encryptor.UnsealToken(token)
	if err != nil {
		return creds, fmt.Errorf("failed to unseal token: %w", err)
	}

	if err := json.Unmarshal(payload, &creds); err != nil {
		return creds, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}

	if creds.Username == "" {
		return creds, fmt.Errorf("token contains no username")
	}

	return creds, nil
}
