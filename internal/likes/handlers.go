// internal/likes/handlers.go

package likes

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/amoria-app/amoria-backend/internal/auth"
	"github.com/amoria-app/amoria-backend/internal/common/utils"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) targetID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
}

// LikeUser records a like toward the addressed user
func (h *Handler) LikeUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	targetID, err := h.targetID(r)
	if err != nil {
		utils.ErrorResponse(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	matched, already, err := h.service.Like(r.Context(), userID, targetID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result := "Liked"
	if already {
		result = "Already liked"
	}
	if matched {
		result = "It's a match!"
	}

	utils.SuccessResponse(w, map[string]interface{}{
		"result":  result,
		"matched": matched,
	}, http.StatusOK)
}

// DislikeUser records a time-boxed dislike
func (h *Handler) DislikeUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	targetID, err := h.targetID(r)
	if err != nil {
		utils.ErrorResponse(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Dislike(r.Context(), userID, targetID); err != nil {
		h.writeError(w, err)
		return
	}

	utils.MessageResponse(w, "Disliked", http.StatusOK)
}

// FavoriteUser adds a favorite edge
func (h *Handler) FavoriteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	targetID, err := h.targetID(r)
	if err != nil {
		utils.ErrorResponse(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	fav, err := h.service.Favorite(r.Context(), userID, targetID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.SuccessResponse(w, fav, http.StatusCreated)
}

// UnfavoriteUser removes a favorite edge
func (h *Handler) UnfavoriteUser(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	targetID, err := h.targetID(r)
	if err != nil {
		utils.ErrorResponse(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	if err := h.service.Unfavorite(r.Context(), userID, targetID); err != nil {
		h.writeError(w, err)
		return
	}

	utils.MessageResponse(w, "Favorite removed", http.StatusOK)
}

// GetFavorites lists the caller's favorites
func (h *Handler) GetFavorites(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	favorites, err := h.service.ListFavorites(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.SuccessResponse(w, favorites, http.StatusOK)
}

// FindMatches returns the caller's ranked candidate feed
func (h *Handler) FindMatches(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	candidates, err := h.service.FindMatches(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.SuccessResponse(w, candidates, http.StatusOK)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrSelfAction):
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, ErrAlreadyFavorited):
		utils.ErrorResponse(w, err.Error(), http.StatusConflict)
	case errors.Is(err, ErrFavoriteNotFound):
		utils.ErrorResponse(w, err.Error(), http.StatusNotFound)
	default:
		utils.ErrorResponse(w, "Something went wrong", http.StatusInternalServerError)
	}
}
