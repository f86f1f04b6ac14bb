package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/vikramraju/attendedge/internal/services"
)

type contextKey string

const deviceIDKey contextKey = "device_id"

// DeviceAuth validates the bearer token on device-facing endpoints and
// stashes the authenticated device ID in the request context.
func DeviceAuth(auth *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			token, found := strings.CutPrefix(header, "Bearer ")
			if !found || token == "" {
				writeError(w, http.StatusUnauthorized, "missing bearer token")
				return
			}

			deviceID, err := auth.VerifyDeviceToken(token)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "invalid token")
				return
			}

			ctx := context.WithValue(r.Context(), deviceIDKey, deviceID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// DeviceIDFromContext returns the authenticated device ID, or uuid.Nil when
// the request did not pass through DeviceAuth.
func DeviceIDFromContext(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(deviceIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}
