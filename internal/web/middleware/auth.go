package middleware

import (
	"net/http"

	"github.com/JonMunkholm/bondweb/internal/auth"
	"github.com/JonMunkholm/bondweb/internal/logging"
)

// RequireEditor passes editor requests on to next and hands everything
// else to denied: a JSON 401 for the API, a login redirect for pages.
func RequireEditor(authz auth.Authorizer, denied http.Handler) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !authz.IsEditor(r) {
				logging.FromContext(r.Context()).Warn("auth: editor access denied",
					"method", r.Method,
					"path", r.URL.Path,
					"ip", ClientIP(r),
				)
				denied.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
