package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/cors"

	"github.com/clientflow/alertrunner/internal/config"
)

// devOrigins are accepted outside production so a local dashboard can reach the inbox
var devOrigins = []string{
	"http://localhost:3000",
	"http://localhost:5173",
	"http://127.0.0.1:3000",
	"http://127.0.0.1:5173",
}

// CORS allows the tenant dashboard to call the API. Only the frontend origin
// is trusted in production.
func CORS(cfg config.ServerConfig) func(http.Handler) http.Handler {
	return cors.Handler(cors.Options{
		AllowedOrigins: AllowedOrigins(cfg),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{
			"Accept",
			"Authorization",
			"Content-Type",
			RequestIDHeader,
		},
		ExposedHeaders: []string{
			RequestIDHeader,
			"Retry-After",
		},
		// the inbox accepts the accessToken cookie
		AllowCredentials: true,
		MaxAge:           600,
	})
}

// AllowedOrigins returns the origins trusted for cross-site requests
func AllowedOrigins(cfg config.ServerConfig) []string {
	var origins []string
	if u := strings.TrimRight(cfg.FrontendURL, "/"); u != "" {
		origins = append(origins, u)
	}
	if cfg.Environment == "production" {
		return origins
	}
	for _, o := range devOrigins {
		if len(origins) == 0 || o != origins[0] {
			origins = append(origins, o)
		}
	}
	return origins
}
