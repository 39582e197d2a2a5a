package middleware

import (
	"crypto/subtle"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/JonMunkholm/fileintake/internal/core"
)

// APIKeyAuth resolves the caller from the X-API-Key header and records it
// with core.ContextWithOwner.
//
// keyOwners maps each accepted key to the owner id it stands for. When
// required is false, requests without a key pass through as
// core.AnonymousOwner, but a key that is sent must still be valid.
func APIKeyAuth(required bool, keyOwners map[string]string) func(http.Handler) http.Handler {
	keys := make([]string, 0, len(keyOwners))
	for k := range keyOwners {
		keys = append(keys, k)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				if required {
					slog.Warn("auth: missing API key",
						"path", r.URL.Path,
						"method", r.Method,
						"remote_addr", r.RemoteAddr,
					)
					writeAuthError(w, http.StatusUnauthorized, "missing API key", "AUTH001")
					return
				}
				next.ServeHTTP(w, r.WithContext(core.ContextWithOwner(r.Context(), core.AnonymousOwner)))
				return
			}

			matched, ok := matchAPIKey(apiKey, keys)
			if !ok {
				slog.Warn("auth: invalid API key",
					"path", r.URL.Path,
					"method", r.Method,
					"remote_addr", r.RemoteAddr,
				)
				writeAuthError(w, http.StatusForbidden, "invalid API key", "AUTH002")
				return
			}

			ctx := core.ContextWithOwner(r.Context(), keyOwners[matched])
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// matchAPIKey compares key against every configured key in constant time
// and returns the one that matched.
func matchAPIKey(key string, validKeys []string) (string, bool) {
	var matched string
	found := 0
	for _, validKey := range validKeys {
		eq := subtle.ConstantTimeCompare([]byte(key), []byte(validKey))
		if eq == 1 {
			matched = validKey
		}
		found |= eq
	}
	return matched, found == 1
}

func writeAuthError(w http.ResponseWriter, status int, message, code string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success":   false,
		"message":   message,
		"error":     message,
		"code":      code,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
