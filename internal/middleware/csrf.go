package middleware

import (
	"net/http"
	"strings"

	"github.com/gorilla/csrf"
	"go.uber.org/zap"

	"finitefield.org/routine-web/internal/observability"
)

const (
	csrfCookieName = "ROUTINE_WEB_CSRF"
	csrfHeaderName = "X-CSRF-Token"
	csrfFormField  = "csrf_token"
	csrfMaxAge     = 12 * 60 * 60
)

// CSRF verifies modifying requests carry a token in the X-CSRF-Token header or the
// csrf_token form field. Tokens are masked per request and checked against a signed cookie.
func CSRF(next http.Handler) http.Handler {
	keys := currentSessionKeys()
	protect := csrf.Protect(keys.csrfKey,
		csrf.Secure(keys.secure),
		csrf.Path("/"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.CookieName(csrfCookieName),
		csrf.RequestHeader(csrfHeaderName),
		csrf.FieldName(csrfFormField),
		csrf.MaxAge(csrfMaxAge),
		csrf.ErrorHandler(http.HandlerFunc(csrfFailed)),
	)(next)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isPlaintext(r) {
			r = csrf.PlaintextHTTPRequest(r)
		}
		protect.ServeHTTP(w, r)
	})
}

// CSRFToken returns the masked token templates embed for htmx requests.
func CSRFToken(r *http.Request) string {
	return csrf.Token(r)
}

func csrfFailed(w http.ResponseWriter, r *http.Request) {
	observability.FromContext(r.Context()).Debug("csrf check failed", zap.Error(csrf.FailureReason(r)))
	WriteError(w, r, http.StatusForbidden, "invalid CSRF token")
}

// isPlaintext reports whether the request reached us over plain HTTP. Behind a TLS
// terminating proxy X-Forwarded-Proto carries the original scheme.
func isPlaintext(r *http.Request) bool {
	if r.TLS != nil {
		return false
	}
	return !strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https")
}
