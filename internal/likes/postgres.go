// internal/likes/postgres.go

package likes

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

func (r *postgresRepository) GetLike(ctx context.Context, userID, likedUserID int64) (*Like, error) {
	var like Like
	query := `
        SELECT id, user_id, liked_user_id, mutual, created_at
        FROM likes
        WHERE user_id = $1 AND liked_user_id = $2`

	err := r.db.GetContext(ctx, &like, query, userID, likedUserID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &like, nil
}

func (r *postgresRepository) CreateLike(ctx context.Context, userID, likedUserID int64, mutual bool) (*Like, error) {
	like := &Like{
		UserID:      userID,
		LikedUserID: likedUserID,
		Mutual:      mutual,
		CreatedAt:   time.Now(),
	}

	query := `
        INSERT INTO likes (user_id, liked_user_id, mutual, created_at)
        VALUES ($1, $2, $3, $4)
        ON CONFLICT (user_id, liked_user_id) DO NOTHING
        RETURNING id`

	err := r.db.QueryRowContext(ctx, query, userID, likedUserID, mutual, like.CreatedAt).Scan(&like.ID)
	if err == sql.ErrNoRows {
		// Raced with an identical like; treat as created
		return like, nil
	}
	if err != nil {
		return nil, err
	}

	return like, nil
}

// CreateMutualMatch performs the two-row mutual write atomically
func (r *postgresRepository) CreateMutualMatch(ctx context.Context, likerID, likedUserID int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	update := `
        UPDATE likes
        SET mutual = TRUE
        WHERE user_id = $1 AND liked_user_id = $2`
	if _, err := tx.ExecContext(ctx, update, likedUserID, likerID); err != nil {
		return err
	}

	insert := `
        INSERT INTO likes (user_id, liked_user_id, mutual, created_at)
        VALUES ($1, $2, TRUE, NOW())
        ON CONFLICT (user_id, liked_user_id) DO UPDATE SET mutual = TRUE`
	if _, err := tx.ExecContext(ctx, insert, likerID, likedUserID); err != nil {
		return err
	}

	return tx.Commit()
}

func (r *postgresRepository) CreateDislike(ctx context.Context, userID, dislikedUserID int64) error {
	query := `
        INSERT INTO dislikes (user_id, disliked_user_id, created_at)
        VALUES ($1, $2, NOW())`

	_, err := r.db.ExecContext(ctx, query, userID, dislikedUserID)
	return err
}

func (r *postgresRepository) CreateFavorite(ctx context.Context, userID, favoriteUserID int64) (*Favorite, error) {
	fav := &Favorite{
		UserID:         userID,
		FavoriteUserID: favoriteUserID,
		CreatedAt:      time.Now(),
	}

	query := `
        INSERT INTO favorites (user_id, favorite_user_id, created_at)
        VALUES ($1, $2, $3)
        RETURNING id`

	err := r.db.QueryRowContext(ctx, query, userID, favoriteUserID, fav.CreatedAt).Scan(&fav.ID)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, ErrAlreadyFavorited
		}
		return nil, err
	}

	return fav, nil
}

func (r *postgresRepository) DeleteFavorite(ctx context.Context, userID, favoriteUserID int64) (bool, error) {
	query := `DELETE FROM favorites WHERE user_id = $1 AND favorite_user_id = $2`

	res, err := r.db.ExecContext(ctx, query, userID, favoriteUserID)
	if err != nil {
		return false, err
	}

	n, err := res.RowsAffected()
	return n > 0, err
}

func (r *postgresRepository) ListFavorites(ctx context.Context, userID int64) ([]*Favorite, error) {
	query := `
        SELECT id, user_id, favorite_user_id, created_at
        FROM favorites
        WHERE user_id = $1
        ORDER BY created_at DESC, id DESC`

	var favorites []*Favorite
	if err := r.db.SelectContext(ctx, &favorites, query, userID); err != nil {
		return nil, err
	}

	return favorites, nil
}

// ListCandidates excludes already-liked users and users under an active
// dislike. Expired dislikes no longer filter.
func (r *postgresRepository) ListCandidates(ctx context.Context, userID int64, cooldown time.Duration, limit int) ([]*Candidate, error) {
	query := `
        SELECT u.id AS user_id, u.first_name, u.last_name,
               u.date_of_birth, u.gender, u.verified
        FROM users u
        WHERE u.id <> $1
          AND u.deleted = FALSE
          AND NOT EXISTS (
              SELECT 1 FROM likes l
              WHERE l.user_id = $1 AND l.liked_user_id = u.id
          )
          AND NOT EXISTS (
              SELECT 1 FROM dislikes d
              WHERE d.user_id = $1
                AND d.disliked_user_id = u.id
                AND d.created_at > NOW() - make_interval(secs => $2)
          )
        ORDER BY u.id
        LIMIT $3`

	var candidates []*Candidate
	if err := r.db.SelectContext(ctx, &candidates, query, userID, cooldown.Seconds(), limit); err != nil {
		return nil, err
	}

	if err := r.attachInterests(ctx, candidates); err != nil {
		return nil, err
	}

	return candidates, nil
}

func (r *postgresRepository) attachInterests(ctx context.Context, candidates []*Candidate) error {
	if len(candidates) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(candidates))
	byID := make(map[int64]*Candidate, len(candidates))
	for _, c := range candidates {
		ids = append(ids, c.UserID)
		byID[c.UserID] = c
	}

	query := `
        SELECT user_id, interest
        FROM user_interests
        WHERE user_id = ANY($1)`

	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var interest string
		if err := rows.Scan(&id, &interest); err != nil {
			return err
		}
		if c, ok := byID[id]; ok {
			c.Interests = append(c.Interests, interest)
		}
	}

	return rows.Err()
}

func (r *postgresRepository) GetInterests(ctx context.Context, userID int64) ([]string, error) {
	query := `SELECT interest FROM user_interests WHERE user_id = $1`

	var interests []string
	if err := r.db.SelectContext(ctx, &interests, query, userID); err != nil {
		return nil, err
	}

	return interests, nil
}
