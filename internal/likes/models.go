// internal/likes/models.go

package likes

import "time"

// Like is a directed edge. Mutual flips to true on both rows exactly
// when the reverse edge exists.
type Like struct {
	ID          int64     `json:"id" db:"id"`
	UserID      int64     `json:"user_id" db:"user_id"`
	LikedUserID int64     `json:"liked_user_id" db:"liked_user_id"`
	Mutual      bool      `json:"mutual" db:"mutual"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// Dislike is time-boxed: it stops excluding the target from candidate
// lists once the cooldown has elapsed. Rows are kept, expiry is
// evaluated at query time.
type Dislike struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	DislikedUserID int64     `json:"disliked_user_id" db:"disliked_user_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Favorite is a directed bookmark, disjoint from like/dislike
type Favorite struct {
	ID             int64     `json:"id" db:"id"`
	UserID         int64     `json:"user_id" db:"user_id"`
	FavoriteUserID int64     `json:"favorite_user_id" db:"favorite_user_id"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// Candidate is one ranked entry in a user's match feed
type Candidate struct {
	UserID          int64      `json:"user_id" db:"user_id"`
	FirstName       string     `json:"first_name" db:"first_name"`
	LastName        string     `json:"last_name" db:"last_name"`
	DateOfBirth     *time.Time `json:"date_of_birth,omitempty" db:"date_of_birth"`
	Gender          *string    `json:"gender,omitempty" db:"gender"`
	Verified        bool       `json:"verified" db:"verified"`
	MatchPercentage float64    `json:"match_percentage" db:"-"`

	Interests []string `json:"-" db:"-"`
}

// MatchResult is the payload fanned out to both users on a new match
type MatchResult struct {
	UserID        int64 `json:"user_id"`
	MatchedUserID int64 `json:"matched_user_id"`
}
