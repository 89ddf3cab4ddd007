// internal/likes/repository.go

package likes

import (
	"context"
	"time"
)

// Repository is the durable store for like, dislike and favorite edges
type Repository interface {
	GetLike(ctx context.Context, userID, likedUserID int64) (*Like, error)
	CreateLike(ctx context.Context, userID, likedUserID int64, mutual bool) (*Like, error)

	// CreateMutualMatch marks the existing reverse edge mutual and
	// inserts the forward edge with mutual=true in one transaction.
	// No reader ever observes only one side marked mutual.
	CreateMutualMatch(ctx context.Context, likerID, likedUserID int64) error

	CreateDislike(ctx context.Context, userID, dislikedUserID int64) error

	// CreateFavorite returns ErrAlreadyFavorited on a duplicate edge
	CreateFavorite(ctx context.Context, userID, favoriteUserID int64) (*Favorite, error)
	DeleteFavorite(ctx context.Context, userID, favoriteUserID int64) (bool, error)
	ListFavorites(ctx context.Context, userID int64) ([]*Favorite, error)

	// ListCandidates returns users eligible for userID's match feed:
	// not self, not already liked, not under an active dislike. Dislike
	// expiry is evaluated here against cooldown, at read time.
	ListCandidates(ctx context.Context, userID int64, cooldown time.Duration, limit int) ([]*Candidate, error)

	GetInterests(ctx context.Context, userID int64) ([]string, error)
}
