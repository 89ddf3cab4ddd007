// cmd/api/migrations.go
// Schema migrations, applied at startup. Statements are idempotent.

package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/jmoiron/sqlx"
)

func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		// Users are owned by the account service; this schema carries
		// the columns the realtime core reads and writes.
		`CREATE TABLE IF NOT EXISTS users (
            id SERIAL PRIMARY KEY,
            first_name VARCHAR(100) NOT NULL DEFAULT '',
            last_name VARCHAR(100) NOT NULL DEFAULT '',
            date_of_birth DATE,
            gender VARCHAR(20),
            avatar_url TEXT,
            status VARCHAR(20) NOT NULL DEFAULT 'offline',
            verified BOOLEAN NOT NULL DEFAULT FALSE,
            deleted BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS user_interests (
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            interest VARCHAR(100) NOT NULL,
            PRIMARY KEY (user_id, interest)
        )`,

		// One chat per unordered pair; user1_id < user2_id is enforced
		// so the unique constraint covers both orderings
		`CREATE TABLE IF NOT EXISTS chats (
            id SERIAL PRIMARY KEY,
            user1_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            user2_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            deleted_for_user1 BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_for_user2 BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_chat_pair UNIQUE (user1_id, user2_id),
            CONSTRAINT chat_pair_ordered CHECK (user1_id < user2_id)
        )`,

		`CREATE TABLE IF NOT EXISTS messages (
            id SERIAL PRIMARY KEY,
            chat_id INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            content TEXT,
            message_type VARCHAR(20) NOT NULL DEFAULT 'text',
            status VARCHAR(20) NOT NULL DEFAULT 'sent',
            reply_to_message_id INTEGER REFERENCES messages(id),
            deleted_for_user1 BOOLEAN NOT NULL DEFAULT FALSE,
            deleted_for_user2 BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            delivered_at TIMESTAMP WITH TIME ZONE,
            read_at TIMESTAMP WITH TIME ZONE
        )`,

		`CREATE TABLE IF NOT EXISTS message_media (
            id SERIAL PRIMARY KEY,
            message_id INTEGER NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
            media_url TEXT NOT NULL,
            media_type VARCHAR(20) NOT NULL
        )`,

		`CREATE TABLE IF NOT EXISTS likes (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            liked_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            mutual BOOLEAN NOT NULL DEFAULT FALSE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_like_edge UNIQUE (user_id, liked_user_id)
        )`,

		// Dislikes are not unique; re-dislike after expiry adds a row
		`CREATE TABLE IF NOT EXISTS dislikes (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            disliked_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS favorites (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            favorite_user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            CONSTRAINT unique_favorite_edge UNIQUE (user_id, favorite_user_id)
        )`,

		`CREATE TABLE IF NOT EXISTS date_invitations (
            id SERIAL PRIMARY KEY,
            sender_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            recipient_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            chat_id INTEGER NOT NULL REFERENCES chats(id) ON DELETE CASCADE,
            status VARCHAR(20) NOT NULL DEFAULT 'pending',
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS push_tokens (
            id SERIAL PRIMARY KEY,
            user_id INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
            token TEXT NOT NULL UNIQUE,
            platform VARCHAR(20) NOT NULL DEFAULT 'android',
            is_active BOOLEAN NOT NULL DEFAULT TRUE,
            created_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP,
            updated_at TIMESTAMP WITH TIME ZONE DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE INDEX IF NOT EXISTS idx_chats_user1 ON chats(user1_id)`,
		`CREATE INDEX IF NOT EXISTS idx_chats_user2 ON chats(user2_id)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_chat ON messages(chat_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_status ON messages(status) WHERE status = 'sent'`,
		`CREATE INDEX IF NOT EXISTS idx_media_message ON message_media(message_id)`,
		`CREATE INDEX IF NOT EXISTS idx_likes_liked ON likes(liked_user_id)`,
		`CREATE INDEX IF NOT EXISTS idx_dislikes_user ON dislikes(user_id, disliked_user_id, created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_invitations_chat ON date_invitations(chat_id, recipient_id)`,
		`CREATE INDEX IF NOT EXISTS idx_push_tokens_user ON push_tokens(user_id)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			if strings.Contains(err.Error(), "already exists") {
				log.Printf("Migration %d skipped (already exists)", i+1)
				continue
			}
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
