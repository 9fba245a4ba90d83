package middleware

import (
	"net/http"
)

// Body size limits.
const (
	// MaxJSONBodySize is the maximum size for JSON API requests (64KB). A
	// chat message plus event metadata never legitimately approaches this.
	MaxJSONBodySize = 64 << 10
)

// BodySizeLimiter limits the size of request bodies, protecting against
// oversized payloads.
func BodySizeLimiter(maxBytes int64) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Body == nil || r.ContentLength == 0 {
				next.ServeHTTP(w, r)
				return
			}

			if r.ContentLength > maxBytes {
				http.Error(w, "Request body too large", http.StatusRequestEntityTooLarge)
				return
			}

			// MaxBytesReader also covers chunked encoding.
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// BodySizeLimiterJSON returns a middleware limiting JSON API request bodies.
func BodySizeLimiterJSON() func(http.Handler) http.Handler {
	return BodySizeLimiter(MaxJSONBodySize)
}
