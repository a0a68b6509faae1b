package middleware

import (
	"net/http"

	"github.com/Bahjat/page-agent/backend/internal/platform/requestid"
)

const requestIDHeader = "X-Request-ID"

// RequestID tags each request with an id, stores it in the request context
// and echoes it in the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := requestid.Resolve(r.Header.Get(requestIDHeader))
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r.WithContext(requestid.NewContext(r.Context(), id)))
	})
}
