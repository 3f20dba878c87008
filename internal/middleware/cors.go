package middleware

import (
	"net/http"

	"github.com/gorilla/handlers"
)

// EnableCORS accepts any origin so browser wallets and local dev
// frontends can reach the API.
func EnableCORS(next http.Handler) http.Handler {
	return handlers.CORS(
		handlers.AllowedOriginValidator(func(string) bool { return true }),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
		handlers.AllowCredentials(),
	)(next)
}
