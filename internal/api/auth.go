package api

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/perfil/perfil/internal/identity"
)

// ServiceAuth guards the API with a shared bearer token. An empty token
// disables the check, which is the default for local single-user setups.
func ServiceAuth(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token == "" {
				next.ServeHTTP(w, r)
				return
			}
			auth := r.Header.Get("Authorization")
			const prefix = "Bearer "
			if !strings.HasPrefix(auth, prefix) || subtle.ConstantTimeCompare([]byte(auth[len(prefix):]), []byte(token)) != 1 {
				httpError(w, http.StatusUnauthorized, "authentication_error", "invalid or missing bearer token")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// identityFrom reads the caller identity injected by the auth proxy in front
// of the service. X-User-Id is mandatory on authenticated routes.
func identityFrom(r *http.Request) (identity.Source, bool) {
	src := identity.Source{
		AuthID:    strings.TrimSpace(r.Header.Get("X-User-Id")),
		Username:  strings.TrimSpace(r.Header.Get("X-User-Username")),
		FirstName: strings.TrimSpace(r.Header.Get("X-User-First-Name")),
		LastName:  strings.TrimSpace(r.Header.Get("X-User-Last-Name")),
		Email:     strings.TrimSpace(r.Header.Get("X-User-Email")),
	}
	return src, src.AuthID != ""
}
