package middleware

import "net/http"

// NoStore marks every response as uncacheable. Cart, checkout and order
// payloads reflect live state and must never be served from a browser cache.
func NoStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}
