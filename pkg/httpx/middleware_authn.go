package httpx

import (
	"net/http"
	"strings"

	"github.com/aussiebroadwan/vcissuer/pkg/cryptox"
	"github.com/aussiebroadwan/vcissuer/pkg/slogx"
)

// BearerToken extracts the token from an "Authorization: Bearer" header.
// The scheme is matched case-insensitively.
func BearerToken(r *http.Request) (string, bool) {
	authz := r.Header.Get("Authorization")
	scheme, raw, ok := strings.Cut(authz, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	return raw, true
}

// StaticBearerMiddleware admits only requests presenting the shared token.
// An empty token disables the guarded routes entirely.
func StaticBearerMiddleware(token string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				WriteError(w, http.StatusNotFound, "not_found", "endpoint disabled")
				return
			}

			raw, ok := BearerToken(r)
			if !ok {
				WriteBearerError(w, "invalid_token", "missing bearer token")
				return
			}
			if !cryptox.EqualTokens(raw, token) {
				slogx.FromContext(r.Context()).Warn("admin bearer rejected")
				WriteBearerError(w, "invalid_token", "bearer token rejected")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// WriteBearerError writes an RFC 6750 401 with a matching JSON body.
func WriteBearerError(w http.ResponseWriter, code, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="`+code+`", error_description="`+desc+`"`)
	WriteError(w, http.StatusUnauthorized, code, desc)
}
