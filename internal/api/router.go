package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/studymate-ai/studymate/internal/web"
)

func NewRouter(apiHandler *APIHandler) http.Handler {
	r := chi.NewRouter()

	r.Use(promoteQueryToken)       // Must run before the logger so tokens never reach the logs
	r.Use(middleware.Logger)       // Basic request logging
	r.Use(middleware.Recoverer)    // Recover from panics
	r.Use(middleware.StripSlashes) // Ensure consistent path handling

	// Single-page UI
	r.Get("/", web.Handler())

	r.Route("/api", func(r chi.Router) {
		// Public routes
		r.Post("/session", apiHandler.SessionHandler)
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Session-authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(apiHandler.SessionAuthMiddleware)

			r.Get("/profile", apiHandler.GetProfileHandler)
			r.Put("/profile", apiHandler.SaveProfileHandler)

			r.Get("/exchanges", apiHandler.ListExchangesHandler)
			r.Get("/exchanges/stream", apiHandler.StreamExchangesHandler)

			r.Post("/ask", apiHandler.AskHandler)
		})
	})

	return r
}

// promoteQueryToken moves a session token supplied as a query parameter
// (EventSource cannot set headers) into the Authorization header and
// strips it from the URL, keeping the token out of request logs.
func promoteQueryToken(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if token := q.Get("token"); token != "" && r.Header.Get("Authorization") == "" {
			r.Header.Set("Authorization", "Bearer "+token)
			q.Del("token")
			r.URL.RawQuery = q.Encode()
		}
		next.ServeHTTP(w, r)
	})
}
