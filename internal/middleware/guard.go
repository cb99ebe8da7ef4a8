package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/oakline/wallbed-studio/internal/auth"
)

// Path prefixes that require a session, and pages that only make sense
// without one.
var (
	protectedPrefixes = []string{"/chat", "/wallbed"}
	authPagePrefixes  = []string{"/login", "/register"}
)

// AccessGuard evaluates the session once per request and redirects:
// anonymous requests to protected paths go to the login page with the
// original path preserved, and authenticated requests to auth pages go
// home. Everything else passes through with the user (if any) stashed
// on the context. A provider-side lookup error is not classified here;
// it surfaces as a generic failure.
func AccessGuard(sessions *auth.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, err := sessions.UserFromRequest(r)
			if err != nil {
				http.Error(w, `{"error":"failed to check session"}`, http.StatusInternalServerError)
				return
			}

			path := r.URL.Path

			if user == nil && hasPrefix(path, protectedPrefixes) {
				target := "/login?redirectTo=" + url.QueryEscape(path)
				http.Redirect(w, r, target, http.StatusFound)
				return
			}

			if user != nil && hasPrefix(path, authPagePrefixes) {
				http.Redirect(w, r, "/", http.StatusFound)
				return
			}

			if user != nil {
				r = r.WithContext(auth.ContextWithUser(r.Context(), user))
			}
			next.ServeHTTP(w, r)
		})
	}
}

func hasPrefix(path string, prefixes []string) bool {
	for _, p := range prefixes {
		if strings.HasPrefix(path, p) {
			return true
		}
	}
	return false
}
