package api

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/consolegal/crm/backend/internal/auth"
	"github.com/consolegal/crm/backend/internal/db"
	"github.com/consolegal/crm/backend/internal/models"
	"github.com/jackc/pgx/v5/pgxpool"
)

// GetUserIDFromContext extracts the user's email from context, resolves/creates the DB user,
// and writes appropriate HTTP errors when it fails. Returns (userID, true) on success.
// This is a shared helper function used across multiple handlers to ensure consistent
// error handling for user authentication and user ID resolution.
func GetUserIDFromContext(ctx context.Context, w http.ResponseWriter, pool *pgxpool.Pool) (string, bool) {
	email, ok := auth.GetUserEmailFromContext(ctx)
	if !ok {
		log.Println("API: No user email in context")
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return "", false
	}

	userID, err := db.GetOrCreateUser(ctx, pool, email)
	if err != nil {
		log.Printf("API: Failed to get/create user: %v", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return "", false
	}

	return userID, true
}

// WriteJSONResponse encodes the payload as JSON. Returns false if encoding or
// writing failed; the error is logged and nothing further should be written.
func WriteJSONResponse(w http.ResponseWriter, payload any) bool {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("API: Failed to encode response: %v", err)
		return false
	}
	return true
}

// WriteJSONError writes the uniform error payload with the given status.
func WriteJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(models.ErrorResponse{Error: message}); err != nil {
		log.Printf("API: Failed to encode error response: %v", err)
	}
}

// ParseLimitParam parses the limit query parameter, falling back to
// defaultLimit when missing or invalid.
func ParseLimitParam(r *http.Request, defaultLimit int) int {
	limit := defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	return limit
}
