package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CORS lets browser clients call the dev server from any origin.
func CORS() func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Authorization", "Content-Type", "X-Organization-Id", "apikey"},
	})
	return c.Handler
}
