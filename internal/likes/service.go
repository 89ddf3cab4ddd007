// internal/likes/service.go

package likes

import (
	"context"
	"errors"
	"time"

	"github.com/amoria-app/amoria-backend/internal/common/locks"
	"github.com/amoria-app/amoria-backend/internal/messaging"
)

var (
	ErrSelfAction       = errors.New("cannot target yourself")
	ErrAlreadyFavorited = errors.New("user already favorited")
	ErrFavoriteNotFound = errors.New("favorite not found")
)

// Service records like/dislike/favorite edges and detects mutual
// matches. It implements messaging.LikeEngine for the websocket.
type Service struct {
	repo       Repository
	dispatcher *messaging.Dispatcher
	pairLocks  *locks.Striped
	cooldown   time.Duration
	matchLimit int
}

func NewService(repo Repository, dispatcher *messaging.Dispatcher, cooldown time.Duration, matchLimit int) *Service {
	return &Service{
		repo:       repo,
		dispatcher: dispatcher,
		pairLocks:  locks.NewStriped(0),
		cooldown:   cooldown,
		matchLimit: matchLimit,
	}
}

// Like records a directed like and detects a mutual match. The reverse
// edge check and the two-row mutual write run under a lock keyed by the
// unordered pair, so concurrent reciprocal likes cannot miss the match
// or count it twice.
func (s *Service) Like(ctx context.Context, likerID, likedID int64) (matched bool, already bool, err error) {
	if likerID == likedID {
		return false, false, ErrSelfAction
	}

	key := locks.PairKey(likerID, likedID)
	s.pairLocks.Lock(key)
	defer s.pairLocks.Unlock(key)

	existing, err := s.repo.GetLike(ctx, likerID, likedID)
	if err != nil {
		return false, false, err
	}
	if existing != nil {
		return false, true, nil
	}

	reverse, err := s.repo.GetLike(ctx, likedID, likerID)
	if err != nil {
		return false, false, err
	}

	if reverse == nil {
		_, err := s.repo.CreateLike(ctx, likerID, likedID, false)
		if err != nil {
			return false, false, err
		}
		recordLike(false)
		return false, false, nil
	}

	if err := s.repo.CreateMutualMatch(ctx, likerID, likedID); err != nil {
		return false, false, err
	}
	recordLike(true)

	s.notifyMatch(ctx, likerID, likedID)
	s.notifyMatch(ctx, likedID, likerID)

	return true, false, nil
}

func (s *Service) notifyMatch(ctx context.Context, userID, matchedUserID int64) {
	event := messaging.NewEvent(messaging.EventMatch, &MatchResult{
		UserID:        userID,
		MatchedUserID: matchedUserID,
	})

	s.dispatcher.Deliver(ctx, userID, event, &messaging.PushNote{
		Title: "It's a match!",
		Body:  "You have a new match",
	})
}

// Dislike records a time-boxed dislike. Repeat dislikes after expiry
// create new rows; that is expected.
func (s *Service) Dislike(ctx context.Context, userID, targetID int64) error {
	if userID == targetID {
		return ErrSelfAction
	}

	if err := s.repo.CreateDislike(ctx, userID, targetID); err != nil {
		return err
	}
	recordDislike()
	return nil
}

// Favorite adds a directed favorite edge. Duplicates are rejected as a
// conflict, unlike Like's silent no-op.
func (s *Service) Favorite(ctx context.Context, userID, targetID int64) (*Favorite, error) {
	if userID == targetID {
		return nil, ErrSelfAction
	}

	return s.repo.CreateFavorite(ctx, userID, targetID)
}

func (s *Service) Unfavorite(ctx context.Context, userID, targetID int64) error {
	removed, err := s.repo.DeleteFavorite(ctx, userID, targetID)
	if err != nil {
		return err
	}
	if !removed {
		return ErrFavoriteNotFound
	}
	return nil
}

func (s *Service) ListFavorites(ctx context.Context, userID int64) ([]*Favorite, error) {
	return s.repo.ListFavorites(ctx, userID)
}

// FindMatches returns the user's candidate feed ranked by interest
// overlap, best first. Ordering is deterministic for a given snapshot.
func (s *Service) FindMatches(ctx context.Context, userID int64) ([]*Candidate, error) {
	interests, err := s.repo.GetInterests(ctx, userID)
	if err != nil {
		return nil, err
	}

	candidates, err := s.repo.ListCandidates(ctx, userID, s.cooldown, s.matchLimit)
	if err != nil {
		return nil, err
	}

	rankCandidates(interests, candidates)
	return candidates, nil
}
