// internal/messaging/models.go

package messaging

import (
	"encoding/json"
	"time"
)

// MessageStatus is the delivery state of a message. Transitions are
// monotonic: sent -> delivered -> read, never backward.
type MessageStatus string

const (
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusRead      MessageStatus = "read"
)

// Message content types
const (
	TypeText  = "text"
	TypeVoice = "voice"
	TypeImage = "image"
)

// Chat is a conversation between exactly two participants.
// At most one chat exists per unordered pair; user1_id < user2_id in storage.
type Chat struct {
	ID              int64     `json:"id" db:"id"`
	User1ID         int64     `json:"user1_id" db:"user1_id"`
	User2ID         int64     `json:"user2_id" db:"user2_id"`
	DeletedForUser1 bool      `json:"-" db:"deleted_for_user1"`
	DeletedForUser2 bool      `json:"-" db:"deleted_for_user2"`
	CreatedAt       time.Time `json:"created_at" db:"created_at"`
}

// Message is a single chat message with its soft-delete flags.
// Deletion flags are set, never cleared; rows are never physically removed.
type Message struct {
	ID               int64         `json:"id" db:"id"`
	ChatID           int64         `json:"chat_id" db:"chat_id"`
	SenderID         int64         `json:"sender_id" db:"sender_id"`
	Content          *string       `json:"content,omitempty" db:"content"`
	MessageType      string        `json:"message_type" db:"message_type"`
	Status           MessageStatus `json:"status" db:"status"`
	ReplyToMessageID *int64        `json:"reply_to_message_id,omitempty" db:"reply_to_message_id"`
	DeletedForUser1  bool          `json:"-" db:"deleted_for_user1"`
	DeletedForUser2  bool          `json:"-" db:"deleted_for_user2"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	DeliveredAt      *time.Time    `json:"delivered_at,omitempty" db:"delivered_at"`
	ReadAt           *time.Time    `json:"read_at,omitempty" db:"read_at"`

	Media []*Media `json:"media,omitempty"`
}

// Media is an attachment reference. The key is produced by the upload
// path; this core never reads the bytes behind it.
type Media struct {
	ID        int64  `json:"id" db:"id"`
	MessageID int64  `json:"message_id" db:"message_id"`
	MediaURL  string `json:"media_url" db:"media_url"`
	MediaType string `json:"media_type" db:"media_type"`
}

// Date invitation statuses. Accepted and declined are terminal.
const (
	InvitationPending  = "pending"
	InvitationAccepted = "accepted"
	InvitationDeclined = "declined"
)

// DateInvitation is a pending/accepted/declined date proposal inside a chat
type DateInvitation struct {
	ID          int64     `json:"id" db:"id"`
	SenderID    int64     `json:"sender_id" db:"sender_id"`
	RecipientID int64     `json:"recipient_id" db:"recipient_id"`
	ChatID      int64     `json:"chat_id" db:"chat_id"`
	Status      string    `json:"status" db:"status"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// UserSummary is the other participant's profile summary shown in chat lists
type UserSummary struct {
	UserID    int64   `json:"user_id" db:"user_id"`
	FirstName string  `json:"first_name" db:"first_name"`
	Age       int     `json:"user_age" db:"user_age"`
	Status    string  `json:"status" db:"status"`
	AvatarURL *string `json:"avatar_url" db:"avatar_url"`
}

// DateInvitationInfo is the compact invitation entry in a chat summary
type DateInvitationInfo struct {
	SenderID int64  `json:"sender_id"`
	Status   string `json:"status"`
}

// ChatSummary is one row of the chat list: the other participant, the
// last visible message preview and the unread count for the viewer.
type ChatSummary struct {
	ChatID              int64                 `json:"chat_id"`
	User                *UserSummary          `json:"user"`
	CreatedAt           time.Time             `json:"created_at"`
	LastMessage         *string               `json:"last_message"`
	LastMessageType     *string               `json:"last_message_type"`
	LastMessageStatus   *MessageStatus        `json:"last_message_status"`
	LastMessageSenderID *int64                `json:"last_message_sender_id"`
	UnreadCount         int                   `json:"unread_count"`
	DateInvitations     []*DateInvitationInfo `json:"date_invitations,omitempty"`
	LastActivityAt      time.Time             `json:"-"`
}

// Event is a server-initiated payload pushed to a live connection
type Event struct {
	Type      string          `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
}

// Event types delivered to live connections
const (
	EventNewMessage         = "new_message"
	EventMessageStatus      = "message_status"
	EventAllMessagesRead    = "all_messages_read"
	EventDeleteMessage      = "delete_message"
	EventDeleteChat         = "delete_chat"
	EventDateInvitation     = "date_invitation"
	EventDateResponse       = "date_response"
	EventMatch              = "match"
	EventVerificationUpdate = "verification_update"
)

// NewEvent builds an event with a marshaled payload
func NewEvent(eventType string, payload interface{}) Event {
	return Event{
		Type:      eventType,
		Data:      mustMarshal(payload),
		Timestamp: time.Now(),
	}
}

func mustMarshal(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return data
}
