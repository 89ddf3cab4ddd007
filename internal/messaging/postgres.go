// internal/messaging/postgres.go

package messaging

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type postgresRepository struct {
	db *sqlx.DB
}

func NewPostgresRepository(db *sqlx.DB) Repository {
	return &postgresRepository{db: db}
}

// ErrTransientStore marks a store failure worth retrying once at the
// gateway boundary.
var ErrTransientStore = errors.New("transient store failure")

// isTransient reports whether err is a connection-level or
// serialization failure that a single retry may clear
func isTransient(err error) bool {
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		if strings.HasPrefix(code, "08") { // connection exceptions
			return true
		}
		switch code {
		case "40001", "40P01": // serialization failure, deadlock
			return true
		}
	}
	return false
}

// withRetry runs fn, retrying exactly once on transient failures
func withRetry(ctx context.Context, fn func() error) error {
	err := fn()
	if err == nil || !isTransient(err) {
		return err
	}
	if ctx.Err() != nil {
		return err
	}
	if err = fn(); err != nil {
		if isTransient(err) {
			return errors.Join(ErrTransientStore, err)
		}
		return err
	}
	return nil
}

// GetOrCreateChat inserts the normalized pair, relying on the unique
// constraint to resolve the duplicate-creation race. The loser's insert
// is discarded and the committed row is read back.
func (r *postgresRepository) GetOrCreateChat(ctx context.Context, userA, userB int64) (*Chat, bool, error) {
	u1, u2 := userA, userB
	if u1 > u2 {
		u1, u2 = u2, u1
	}

	var chat Chat
	var created bool
	err := withRetry(ctx, func() error {
		created = false
		insert := `
            INSERT INTO chats (user1_id, user2_id, created_at)
            VALUES ($1, $2, NOW())
            ON CONFLICT (user1_id, user2_id) DO NOTHING
            RETURNING id, user1_id, user2_id, deleted_for_user1, deleted_for_user2, created_at`

		err := r.db.GetContext(ctx, &chat, insert, u1, u2)
		if err == nil {
			created = true
			return nil
		}
		if err != sql.ErrNoRows {
			return err
		}

		query := `
            SELECT id, user1_id, user2_id, deleted_for_user1, deleted_for_user2, created_at
            FROM chats
            WHERE user1_id = $1 AND user2_id = $2`
		return r.db.GetContext(ctx, &chat, query, u1, u2)
	})
	if err != nil {
		return nil, false, err
	}

	return &chat, created, nil
}

func (r *postgresRepository) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	var chat Chat
	query := `
        SELECT id, user1_id, user2_id, deleted_for_user1, deleted_for_user2, created_at
        FROM chats
        WHERE id = $1`

	err := withRetry(ctx, func() error {
		return r.db.GetContext(ctx, &chat, query, chatID)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &chat, nil
}

func (r *postgresRepository) ListChats(ctx context.Context, userID int64) ([]*Chat, error) {
	query := `
        SELECT id, user1_id, user2_id, deleted_for_user1, deleted_for_user2, created_at
        FROM chats
        WHERE user1_id = $1 OR user2_id = $1
        ORDER BY id`

	var chats []*Chat
	err := withRetry(ctx, func() error {
		chats = chats[:0]
		return r.db.SelectContext(ctx, &chats, query, userID)
	})
	if err != nil {
		return nil, err
	}

	return chats, nil
}

func (r *postgresRepository) SetChatDeleted(ctx context.Context, chatID, userID int64, forBoth bool) error {
	query := `
        UPDATE chats
        SET deleted_for_user1 = (CASE WHEN user1_id = $2 OR $3 THEN TRUE ELSE deleted_for_user1 END),
            deleted_for_user2 = (CASE WHEN user2_id = $2 OR $3 THEN TRUE ELSE deleted_for_user2 END)
        WHERE id = $1`

	return withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query, chatID, userID, forBoth)
		return err
	})
}

func (r *postgresRepository) UnhideChatForUser(ctx context.Context, chatID, userID int64) error {
	query := `
        UPDATE chats
        SET deleted_for_user1 = (CASE WHEN user1_id = $2 THEN FALSE ELSE deleted_for_user1 END),
            deleted_for_user2 = (CASE WHEN user2_id = $2 THEN FALSE ELSE deleted_for_user2 END)
        WHERE id = $1`

	return withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query, chatID, userID)
		return err
	})
}

// CreateMessage persists the message and its media rows in one transaction
func (r *postgresRepository) CreateMessage(ctx context.Context, msg *Message) error {
	return withRetry(ctx, func() error {
		tx, err := r.db.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		insert := `
            INSERT INTO messages (
                chat_id, sender_id, content, message_type, status,
                reply_to_message_id, created_at, delivered_at
            ) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
            RETURNING id`

		err = tx.QueryRowContext(
			ctx, insert,
			msg.ChatID, msg.SenderID, msg.Content, msg.MessageType,
			msg.Status, msg.ReplyToMessageID, msg.CreatedAt, msg.DeliveredAt,
		).Scan(&msg.ID)
		if err != nil {
			return err
		}

		for _, m := range msg.Media {
			mediaInsert := `
                INSERT INTO message_media (message_id, media_url, media_type)
                VALUES ($1, $2, $3)
                RETURNING id`
			if err := tx.QueryRowContext(ctx, mediaInsert, msg.ID, m.MediaURL, m.MediaType).Scan(&m.ID); err != nil {
				return err
			}
			m.MessageID = msg.ID
		}

		return tx.Commit()
	})
}

func (r *postgresRepository) GetMessage(ctx context.Context, messageID int64) (*Message, error) {
	var msg Message
	query := `
        SELECT id, chat_id, sender_id, content, message_type, status,
               reply_to_message_id, deleted_for_user1, deleted_for_user2,
               created_at, delivered_at, read_at
        FROM messages
        WHERE id = $1`

	err := withRetry(ctx, func() error {
		return r.db.GetContext(ctx, &msg, query, messageID)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	if err := r.attachMedia(ctx, []*Message{&msg}); err != nil {
		return nil, err
	}

	return &msg, nil
}

func (r *postgresRepository) GetChatMessages(ctx context.Context, chatID int64) ([]*Message, error) {
	query := `
        SELECT id, chat_id, sender_id, content, message_type, status,
               reply_to_message_id, deleted_for_user1, deleted_for_user2,
               created_at, delivered_at, read_at
        FROM messages
        WHERE chat_id = $1
        ORDER BY created_at, id`

	var messages []*Message
	err := withRetry(ctx, func() error {
		messages = messages[:0]
		return r.db.SelectContext(ctx, &messages, query, chatID)
	})
	if err != nil {
		return nil, err
	}

	if err := r.attachMedia(ctx, messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *postgresRepository) attachMedia(ctx context.Context, messages []*Message) error {
	if len(messages) == 0 {
		return nil
	}

	ids := make([]int64, 0, len(messages))
	byID := make(map[int64]*Message, len(messages))
	for _, m := range messages {
		ids = append(ids, m.ID)
		byID[m.ID] = m
	}

	query := `
        SELECT id, message_id, media_url, media_type
        FROM message_media
        WHERE message_id = ANY($1)
        ORDER BY id`

	var media []*Media
	if err := r.db.SelectContext(ctx, &media, query, pq.Array(ids)); err != nil {
		return err
	}

	for _, m := range media {
		if msg, ok := byID[m.MessageID]; ok {
			msg.Media = append(msg.Media, m)
		}
	}

	return nil
}

// MarkDelivered moves a sent message to delivered. The guard keeps the
// transition monotonic: delivered and read messages are untouched.
func (r *postgresRepository) MarkDelivered(ctx context.Context, messageID int64, at time.Time) (bool, error) {
	query := `
        UPDATE messages
        SET status = 'delivered',
            delivered_at = COALESCE(delivered_at, $2)
        WHERE id = $1 AND status = 'sent'`

	var changed bool
	err := withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query, messageID, at)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = n > 0
		return err
	})
	return changed, err
}

// MarkRead moves a message to read from either prior status
func (r *postgresRepository) MarkRead(ctx context.Context, messageID int64, at time.Time) (bool, error) {
	query := `
        UPDATE messages
        SET status = 'read',
            delivered_at = COALESCE(delivered_at, $2),
            read_at = COALESCE(read_at, $2)
        WHERE id = $1 AND status <> 'read'`

	var changed bool
	err := withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query, messageID, at)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = n > 0
		return err
	})
	return changed, err
}

func (r *postgresRepository) MarkChatRead(ctx context.Context, chatID, readerID int64, at time.Time) (int64, error) {
	query := `
        UPDATE messages
        SET status = 'read',
            delivered_at = COALESCE(delivered_at, $3),
            read_at = COALESCE(read_at, $3)
        WHERE chat_id = $1 AND sender_id <> $2 AND status <> 'read'`

	var changed int64
	err := withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query, chatID, readerID, at)
		if err != nil {
			return err
		}
		changed, err = res.RowsAffected()
		return err
	})
	return changed, err
}

func (r *postgresRepository) SetMessageDeleted(ctx context.Context, messageID, userID int64, forBoth bool) error {
	query := `
        UPDATE messages m
        SET deleted_for_user1 = (CASE WHEN c.user1_id = $2 OR $3 THEN TRUE ELSE m.deleted_for_user1 END),
            deleted_for_user2 = (CASE WHEN c.user2_id = $2 OR $3 THEN TRUE ELSE m.deleted_for_user2 END)
        FROM chats c
        WHERE m.id = $1 AND c.id = m.chat_id`

	return withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query, messageID, userID, forBoth)
		return err
	})
}

func (r *postgresRepository) ListUndelivered(ctx context.Context, userID int64) ([]*Message, error) {
	query := `
        SELECT m.id, m.chat_id, m.sender_id, m.content, m.message_type, m.status,
               m.reply_to_message_id, m.deleted_for_user1, m.deleted_for_user2,
               m.created_at, m.delivered_at, m.read_at
        FROM messages m
        JOIN chats c ON c.id = m.chat_id
        WHERE m.status = 'sent'
          AND m.sender_id <> $1
          AND (c.user1_id = $1 OR c.user2_id = $1)
        ORDER BY m.created_at, m.id`

	var messages []*Message
	err := withRetry(ctx, func() error {
		messages = messages[:0]
		return r.db.SelectContext(ctx, &messages, query, userID)
	})
	if err != nil {
		return nil, err
	}

	if err := r.attachMedia(ctx, messages); err != nil {
		return nil, err
	}

	return messages, nil
}

func (r *postgresRepository) UnreadCount(ctx context.Context, chatID, userID int64) (int, error) {
	query := `
        SELECT COUNT(*)
        FROM messages m
        JOIN chats c ON c.id = m.chat_id
        WHERE m.chat_id = $1
          AND m.sender_id <> $2
          AND m.status <> 'read'
          AND NOT (CASE WHEN c.user1_id = $2 THEN m.deleted_for_user1 ELSE m.deleted_for_user2 END)`

	var count int
	err := withRetry(ctx, func() error {
		return r.db.GetContext(ctx, &count, query, chatID, userID)
	})
	return count, err
}

func (r *postgresRepository) LastVisibleMessage(ctx context.Context, chatID, userID int64) (*Message, error) {
	query := `
        SELECT m.id, m.chat_id, m.sender_id, m.content, m.message_type, m.status,
               m.reply_to_message_id, m.deleted_for_user1, m.deleted_for_user2,
               m.created_at, m.delivered_at, m.read_at
        FROM messages m
        JOIN chats c ON c.id = m.chat_id
        WHERE m.chat_id = $1
          AND NOT (CASE WHEN c.user1_id = $2 THEN m.deleted_for_user1 ELSE m.deleted_for_user2 END)
        ORDER BY m.created_at DESC, m.id DESC
        LIMIT 1`

	var msg Message
	err := withRetry(ctx, func() error {
		return r.db.GetContext(ctx, &msg, query, chatID, userID)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &msg, nil
}

func (r *postgresRepository) SetUserStatus(ctx context.Context, userID int64, status string) error {
	query := `UPDATE users SET status = $2 WHERE id = $1`

	return withRetry(ctx, func() error {
		_, err := r.db.ExecContext(ctx, query, userID, status)
		return err
	})
}

func (r *postgresRepository) GetUserSummary(ctx context.Context, userID int64) (*UserSummary, error) {
	var summary UserSummary
	query := `
        SELECT id AS user_id, first_name,
               COALESCE(EXTRACT(YEAR FROM AGE(date_of_birth))::int, 0) AS user_age,
               status, avatar_url
        FROM users
        WHERE id = $1 AND deleted = FALSE`

	err := withRetry(ctx, func() error {
		return r.db.GetContext(ctx, &summary, query, userID)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

func (r *postgresRepository) CreateInvitation(ctx context.Context, inv *DateInvitation) error {
	query := `
        INSERT INTO date_invitations (sender_id, recipient_id, chat_id, status, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`

	return withRetry(ctx, func() error {
		return r.db.QueryRowContext(
			ctx, query,
			inv.SenderID, inv.RecipientID, inv.ChatID, inv.Status, inv.CreatedAt,
		).Scan(&inv.ID)
	})
}

func (r *postgresRepository) GetLatestInvitation(ctx context.Context, chatID, recipientID int64) (*DateInvitation, error) {
	var inv DateInvitation
	query := `
        SELECT id, sender_id, recipient_id, chat_id, status, created_at
        FROM date_invitations
        WHERE chat_id = $1 AND recipient_id = $2
        ORDER BY created_at DESC, id DESC
        LIMIT 1`

	err := withRetry(ctx, func() error {
		return r.db.GetContext(ctx, &inv, query, chatID, recipientID)
	})
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	return &inv, nil
}

func (r *postgresRepository) ListPendingInvitations(ctx context.Context, chatID, recipientID int64) ([]*DateInvitation, error) {
	query := `
        SELECT id, sender_id, recipient_id, chat_id, status, created_at
        FROM date_invitations
        WHERE chat_id = $1 AND recipient_id = $2 AND status = 'pending'
        ORDER BY created_at, id`

	var invitations []*DateInvitation
	err := withRetry(ctx, func() error {
		invitations = invitations[:0]
		return r.db.SelectContext(ctx, &invitations, query, chatID, recipientID)
	})
	if err != nil {
		return nil, err
	}

	return invitations, nil
}

// RespondInvitation is guarded on pending so a second response loses
func (r *postgresRepository) RespondInvitation(ctx context.Context, invitationID int64, status string) (bool, error) {
	query := `
        UPDATE date_invitations
        SET status = $2
        WHERE id = $1 AND status = 'pending'`

	var changed bool
	err := withRetry(ctx, func() error {
		res, err := r.db.ExecContext(ctx, query, invitationID, status)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		changed = n > 0
		return err
	})
	return changed, err
}
