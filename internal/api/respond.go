package api

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/ignite/leadscout/internal/service/campaign"
)

type contextKey string

const userIDKey contextKey = "userID"

// requireUser resolves the caller from the X-User-ID header. The edge
// proxy terminates real authentication; this service trusts the header
// it injects.
func requireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get("X-User-ID")
		if raw == "" {
			respondError(w, http.StatusUnauthorized, "missing X-User-ID header")
			return
		}
		userID, err := uuid.Parse(raw)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "invalid X-User-ID header")
			return
		}
		ctx := context.WithValue(r.Context(), userIDKey, userID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func userID(r *http.Request) uuid.UUID {
	id, _ := r.Context().Value(userIDKey).(uuid.UUID)
	return id
}

func pathUUID(r *http.Request, param string) (uuid.UUID, error) {
	return uuid.Parse(chi.URLParam(r, param))
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("[API] encode response: %v", err)
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

// respondServiceError maps campaign service errors onto HTTP statuses.
// Plan limits carry the upgrade target so the frontend can render an
// upgrade prompt.
func respondServiceError(w http.ResponseWriter, err error) {
	var limitErr *campaign.PlanLimitError
	switch {
	case errors.As(err, &limitErr):
		respondJSON(w, http.StatusPaymentRequired, map[string]any{
			"error":          limitErr.Error(),
			"limit":          limitErr.Limit,
			"current":        limitErr.Current,
			"max":            limitErr.Max,
			"upgrade_target": limitErr.UpgradeTarget,
		})
	case errors.Is(err, campaign.ErrNotFound):
		respondError(w, http.StatusNotFound, "campaign not found")
	case errors.Is(err, campaign.ErrNotAuthorized):
		respondError(w, http.StatusForbidden, "not authorized")
	case errors.Is(err, campaign.ErrUserNotFound):
		respondError(w, http.StatusUnauthorized, "unknown user")
	default:
		log.Printf("[API] internal error: %v", err)
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}
