// internal/messaging/repository.go

package messaging

import (
	"context"
	"time"
)

// Repository is the durable store for chats, messages and invitations.
// It owns transactional CRUD only; routing and status decisions live in
// the service layer.
type Repository interface {
	// GetOrCreateChat returns the chat for the unordered pair, creating
	// it when absent. created reports whether this call inserted the row.
	// Safe under concurrent calls from both participants.
	GetOrCreateChat(ctx context.Context, userA, userB int64) (chat *Chat, created bool, err error)
	GetChat(ctx context.Context, chatID int64) (*Chat, error)
	ListChats(ctx context.Context, userID int64) ([]*Chat, error)
	SetChatDeleted(ctx context.Context, chatID, userID int64, forBoth bool) error
	UnhideChatForUser(ctx context.Context, chatID, userID int64) error

	CreateMessage(ctx context.Context, msg *Message) error
	GetMessage(ctx context.Context, messageID int64) (*Message, error)
	GetChatMessages(ctx context.Context, chatID int64) ([]*Message, error)

	// MarkDelivered and MarkRead apply a guarded status transition and
	// report whether a row actually changed. Transitions never regress.
	MarkDelivered(ctx context.Context, messageID int64, at time.Time) (bool, error)
	MarkRead(ctx context.Context, messageID int64, at time.Time) (bool, error)

	// MarkChatRead marks every unread message authored by the other
	// participant and returns how many rows changed.
	MarkChatRead(ctx context.Context, chatID, readerID int64, at time.Time) (int64, error)

	SetMessageDeleted(ctx context.Context, messageID, userID int64, forBoth bool) error

	// ListUndelivered returns messages addressed to userID still in
	// status sent, oldest first.
	ListUndelivered(ctx context.Context, userID int64) ([]*Message, error)

	UnreadCount(ctx context.Context, chatID, userID int64) (int, error)
	LastVisibleMessage(ctx context.Context, chatID, userID int64) (*Message, error)

	SetUserStatus(ctx context.Context, userID int64, status string) error
	GetUserSummary(ctx context.Context, userID int64) (*UserSummary, error)

	CreateInvitation(ctx context.Context, inv *DateInvitation) error

	// GetLatestInvitation returns the newest invitation addressed to
	// recipientID in the chat, regardless of status.
	GetLatestInvitation(ctx context.Context, chatID, recipientID int64) (*DateInvitation, error)
	ListPendingInvitations(ctx context.Context, chatID, recipientID int64) ([]*DateInvitation, error)

	// RespondInvitation transitions a pending invitation to a terminal
	// status and reports whether the row changed.
	RespondInvitation(ctx context.Context, invitationID int64, status string) (bool, error)
}
