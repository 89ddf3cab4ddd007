// internal/push/tokens.go

package push

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"
)

// TokenStore looks up device tokens in Postgres.
// Token registration belongs to the account service; this side only reads.
type TokenStore struct {
	db *sqlx.DB
}

func NewTokenStore(db *sqlx.DB) *TokenStore {
	return &TokenStore{db: db}
}

// ActiveToken returns the user's active push token, or "" if none exists
func (s *TokenStore) ActiveToken(ctx context.Context, userID int64) (string, error) {
	var token string
	query := `
        SELECT token FROM push_tokens
        WHERE user_id = $1 AND is_active = TRUE
        ORDER BY updated_at DESC
        LIMIT 1`

	err := s.db.GetContext(ctx, &token, query, userID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}

	return token, nil
}
