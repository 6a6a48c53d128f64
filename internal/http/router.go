package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/MrJamesThe3rd/playledger/internal/http/auth"
	"github.com/MrJamesThe3rd/playledger/internal/http/export"
	"github.com/MrJamesThe3rd/playledger/internal/http/importfile"
	"github.com/MrJamesThe3rd/playledger/internal/http/purchase"
	"github.com/MrJamesThe3rd/playledger/internal/http/session"
)

func New(
	allowedOrigins []string,
	authn *auth.Middleware,
	sessionV1 *session.Handler,
	purchasesV1 *purchase.Handler,
	importV1 *importfile.Handler,
	exportV1 *export.Handler,
) http.Handler {
	router := chi.NewRouter()

	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Content-Disposition"},
		MaxAge:         300,
	}))

	router.Route("/api/v1", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			sessionV1.PublicRoutes(r)

			r.Group(func(r chi.Router) {
				r.Use(authn.Handler)
				sessionV1.Routes(r)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(authn.Handler)

			r.Route("/purchases", func(r chi.Router) {
				r.Use(middleware.AllowContentType("application/json"))
				purchasesV1.Routes(r)
			})

			r.Route("/import", importV1.Routes)
			r.Route("/export", exportV1.Routes)
		})
	})

	return router
}
