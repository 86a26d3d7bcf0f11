package gateway

import (
	"net/http"

	"github.com/couchcryptid/graphql-complexity-gateway/internal/observability"
)

// ErrCodeServerBusy marks requests turned away by ConcurrencyLimit.
const ErrCodeServerBusy = "SERVER_BUSY"

// ConcurrencyLimit restricts the number of requests scored or proxied at
// once. A limit of zero or less disables the check. Rejected requests get a
// 503 GraphQL error body and a Retry-After hint.
func ConcurrencyLimit(limit int, m *observability.Metrics) func(http.Handler) http.Handler {
	if limit <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	sem := make(chan struct{}, limit)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
				next.ServeHTTP(w, r)
			default:
				m.QueryRejections.WithLabelValues(observability.ReasonConcurrency).Inc()
				w.Header().Set("Retry-After", "1")
				writeErrors(w, http.StatusServiceUnavailable, codedError(ErrCodeServerBusy, "server busy, try again"))
			}
		})
	}
}
