// Package requesttime captures one timestamp per request so that audit
// entries, domain events and expiry checks in the same request agree on "now".
package requesttime

import (
	"net/http"
	"time"

	"guardian/pkg/requestcontext"
)

// Middleware stores the request start time in the context.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
