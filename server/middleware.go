// Package server middleware for webhook authentication
package server

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/onnwee/team-sync/telemetry"
)

// callbackAuth protects the membership callback with a pre-shared bearer
// secret. A mismatch is rejected before any payload parsing happens, so a bad
// token can never cause reconciliation side effects.
func callbackAuth(next http.Handler, secret string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(token), []byte(secret)) != 1 {
			if telemetry.WebhookAuthFailures != nil {
				telemetry.WebhookAuthFailures.Inc()
			}
			slog.Warn("callback auth failed", slog.String("remote_addr", r.RemoteAddr))
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}
