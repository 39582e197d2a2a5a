package web

import (
	"net/http"

	"github.com/JonMunkholm/fileintake/internal/core"
	webmw "github.com/JonMunkholm/fileintake/internal/web/middleware"
)

// withRequestMetadata records the client address for service logging. It
// runs after TrustedRealIP, so RemoteAddr already holds the real client.
func withRequestMetadata(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := core.ContextWithClientIP(r.Context(), webmw.ClientIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
