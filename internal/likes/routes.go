// internal/likes/routes.go

package likes

import (
	"github.com/go-chi/chi/v5"

	"github.com/amoria-app/amoria-backend/internal/auth"
)

// RegisterRoutes registers all likes routes
func RegisterRoutes(r chi.Router, handler *Handler, authMiddleware *auth.Middleware) {
	r.Group(func(r chi.Router) {
		r.Use(authMiddleware.Authenticate)

		r.Post("/api/v1/users/{id}/like", handler.LikeUser)
		r.Post("/api/v1/users/{id}/dislike", handler.DislikeUser)

		r.Post("/api/v1/users/{id}/favorite", handler.FavoriteUser)
		r.Delete("/api/v1/users/{id}/favorite", handler.UnfavoriteUser)
		r.Get("/api/v1/favorites", handler.GetFavorites)

		r.Get("/api/v1/matches", handler.FindMatches)
	})
}
