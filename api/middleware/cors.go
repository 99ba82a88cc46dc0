package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS lets the pharmacy dashboard origins call the API with bearer tokens
// and idempotency keys. Preflight results are cached for five minutes.
func CORS(origins []string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", idempotencyHeader, requestIDHeader},
		ExposedHeaders: []string{requestIDHeader, "Idempotent-Replayed"},
		MaxAge:         300,
	})
}
