package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SecurityHeaders sets the response headers a JSON API should always send.
// The API never serves HTML, so the content security policy forbids
// everything.
func SecurityHeaders(next http.Handler) http.Handler {
	return chi.Chain(
		chimiddleware.SetHeader("X-Content-Type-Options", "nosniff"),
		chimiddleware.SetHeader("X-Frame-Options", "DENY"),
		chimiddleware.SetHeader("Referrer-Policy", "no-referrer"),
		chimiddleware.SetHeader("Cross-Origin-Resource-Policy", "same-site"),
		chimiddleware.SetHeader("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"),
		chimiddleware.SetHeader("Strict-Transport-Security", "max-age=15552000; includeSubDomains"),
	).Handler(next)
}

// CORS allows the single frontend origin to call the API with credentials.
func CORS(frontendURL string) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins:   []string{frontendURL},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: true,
		MaxAge:           int((10 * time.Minute).Seconds()),
	})
}
