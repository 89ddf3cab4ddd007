// internal/messaging/service.go

package messaging

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"time"

	"github.com/amoria-app/amoria-backend/internal/common/locks"
)

var (
	ErrChatNotFound        = errors.New("chat not found")
	ErrMessageNotFound     = errors.New("message not found")
	ErrUserNotFound        = errors.New("user not found")
	ErrNotParticipant      = errors.New("user is not a chat participant")
	ErrEmptyContent        = errors.New("text message requires content")
	ErrInvalidReplyTarget  = errors.New("reply target is not in this chat")
	ErrInvitationNotFound  = errors.New("date invitation not found")
	ErrInvitationResponded = errors.New("date invitation already responded")
)

// Service orchestrates chat creation, message lifecycle and per-user
// deletion. Routing goes through the dispatcher; persistence through
// the repository.
type Service interface {
	CreateOrGetChat(ctx context.Context, userID, otherUserID int64) (*Chat, bool, error)
	GetChats(ctx context.Context, userID int64) ([]*ChatSummary, error)
	GetChatDetails(ctx context.Context, chatID, userID int64) (*ChatSummary, error)
	GetMessages(ctx context.Context, chatID, userID int64) ([]*Message, error)
	SendMessage(ctx context.Context, senderID int64, req *SendMessagePayload) (*Message, error)
	MarkDelivered(ctx context.Context, userID, messageID int64) error
	MarkRead(ctx context.Context, userID, messageID int64) error
	ReadChat(ctx context.Context, chatID, readerID int64) error
	DeleteMessage(ctx context.Context, messageID, requesterID int64, forBoth bool) error
	DeleteChat(ctx context.Context, chatID, requesterID int64, forBoth bool) error
	SendInvitation(ctx context.Context, senderID, chatID int64) (*DateInvitation, error)
	RespondInvitation(ctx context.Context, responderID, chatID int64, decision string) (*DateInvitation, error)
	ReplayUndelivered(ctx context.Context, userID int64, conn Conn) error
	PushVerificationUpdate(ctx context.Context, userID int64, verified bool)
}

type chatService struct {
	repo       Repository
	registry   *Registry
	dispatcher *Dispatcher
	chatLocks  *locks.Striped
}

func NewService(repo Repository, registry *Registry, dispatcher *Dispatcher) Service {
	return &chatService{
		repo:       repo,
		registry:   registry,
		dispatcher: dispatcher,
		chatLocks:  locks.NewStriped(0),
	}
}

func (s *chatService) CreateOrGetChat(ctx context.Context, userID, otherUserID int64) (*Chat, bool, error) {
	if other, err := s.repo.GetUserSummary(ctx, otherUserID); err != nil {
		return nil, false, err
	} else if other == nil {
		return nil, false, ErrUserNotFound
	}

	return s.repo.GetOrCreateChat(ctx, userID, otherUserID)
}

// loadChatFor fetches the chat and checks membership
func (s *chatService) loadChatFor(ctx context.Context, chatID, userID int64) (*Chat, error) {
	chat, err := s.repo.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat == nil {
		return nil, ErrChatNotFound
	}
	if !IsParticipant(chat, userID) {
		return nil, ErrNotParticipant
	}
	return chat, nil
}

// SendMessage persists and routes one message. Sends within a chat are
// serialized on a per-chat lock so persistence order matches arrival
// order and initial status assignment cannot interleave.
func (s *chatService) SendMessage(ctx context.Context, senderID int64, req *SendMessagePayload) (*Message, error) {
	key := locks.Key(req.ChatID)
	s.chatLocks.Lock(key)
	defer s.chatLocks.Unlock(key)

	chat, err := s.loadChatFor(ctx, req.ChatID, senderID)
	if err != nil {
		return nil, err
	}

	if req.MessageType == TypeText && (req.Content == nil || *req.Content == "") {
		return nil, ErrEmptyContent
	}

	if req.ReplyToMessageID != nil {
		target, err := s.repo.GetMessage(ctx, *req.ReplyToMessageID)
		if err != nil {
			return nil, err
		}
		if target == nil || target.ChatID != chat.ID {
			return nil, ErrInvalidReplyTarget
		}
	}

	// Sending resurrects the chat for the sender's own view only
	if !ChatVisibleTo(chat, senderID) {
		if err := s.repo.UnhideChatForUser(ctx, chat.ID, senderID); err != nil {
			return nil, err
		}
	}

	recipientID := OtherParticipant(chat, senderID)
	now := time.Now()

	msg := &Message{
		ChatID:           chat.ID,
		SenderID:         senderID,
		Content:          req.Content,
		MessageType:      req.MessageType,
		Status:           StatusSent,
		ReplyToMessageID: req.ReplyToMessageID,
		CreatedAt:        now,
	}
	for _, m := range req.Media {
		msg.Media = append(msg.Media, &Media{
			MediaURL:  m.MediaURL,
			MediaType: m.MediaType,
		})
	}

	// Initial status reflects the recipient's reachability at send
	// time and is not re-evaluated later
	if s.registry.Online(recipientID) {
		msg.Status = StatusDelivered
		msg.DeliveredAt = &now
	}

	if err := s.repo.CreateMessage(ctx, msg); err != nil {
		return nil, err
	}
	recordMessage(msg.MessageType, msg.Status)

	s.dispatcher.Deliver(ctx, recipientID, NewEvent(EventNewMessage, msg), &PushNote{
		Title: "New message",
		Body:  renderPreview(msg),
		Data:  map[string]string{"chat_id": formatID(msg.ChatID)},
	})

	return msg, nil
}

// MarkDelivered records the recipient's acknowledgment for one message
func (s *chatService) MarkDelivered(ctx context.Context, userID, messageID int64) error {
	msg, _, err := s.loadMessageFor(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if msg.SenderID == userID {
		return ErrNotParticipant
	}

	changed, err := s.repo.MarkDelivered(ctx, messageID, time.Now())
	if err != nil {
		return err
	}
	if changed {
		s.notifyStatus(ctx, msg, StatusDelivered)
	}
	return nil
}

func (s *chatService) MarkRead(ctx context.Context, userID, messageID int64) error {
	msg, _, err := s.loadMessageFor(ctx, messageID, userID)
	if err != nil {
		return err
	}
	if msg.SenderID == userID {
		return ErrNotParticipant
	}

	changed, err := s.repo.MarkRead(ctx, messageID, time.Now())
	if err != nil {
		return err
	}
	if changed {
		s.notifyStatus(ctx, msg, StatusRead)
	}
	return nil
}

func (s *chatService) loadMessageFor(ctx context.Context, messageID, userID int64) (*Message, *Chat, error) {
	msg, err := s.repo.GetMessage(ctx, messageID)
	if err != nil {
		return nil, nil, err
	}
	if msg == nil {
		return nil, nil, ErrMessageNotFound
	}

	chat, err := s.loadChatFor(ctx, msg.ChatID, userID)
	if err != nil {
		return nil, nil, err
	}
	if !MessageVisibleTo(chat, msg, userID) {
		return nil, nil, ErrMessageNotFound
	}
	return msg, chat, nil
}

func (s *chatService) notifyStatus(ctx context.Context, msg *Message, status MessageStatus) {
	s.dispatcher.Deliver(ctx, msg.SenderID, NewEvent(EventMessageStatus, map[string]interface{}{
		"message_id": msg.ID,
		"chat_id":    msg.ChatID,
		"status":     status,
	}), nil)
}

// ReadChat marks every message from the other participant as read.
// Calling it again is a no-op with the same final state.
func (s *chatService) ReadChat(ctx context.Context, chatID, readerID int64) error {
	chat, err := s.loadChatFor(ctx, chatID, readerID)
	if err != nil {
		return err
	}

	changed, err := s.repo.MarkChatRead(ctx, chatID, readerID, time.Now())
	if err != nil {
		return err
	}

	if changed > 0 {
		otherID := OtherParticipant(chat, readerID)
		s.dispatcher.Deliver(ctx, otherID, NewEvent(EventAllMessagesRead, map[string]interface{}{
			"chat_id":   chatID,
			"reader_id": readerID,
		}), nil)
	}
	return nil
}

func (s *chatService) DeleteMessage(ctx context.Context, messageID, requesterID int64, forBoth bool) error {
	msg, chat, err := s.loadMessageFor(ctx, messageID, requesterID)
	if err != nil {
		return err
	}

	if err := s.repo.SetMessageDeleted(ctx, messageID, requesterID, forBoth); err != nil {
		return err
	}

	if forBoth {
		otherID := OtherParticipant(chat, requesterID)
		s.dispatcher.Deliver(ctx, otherID, NewEvent(EventDeleteMessage, map[string]interface{}{
			"message_id": msg.ID,
			"chat_id":    msg.ChatID,
		}), nil)
	}
	return nil
}

func (s *chatService) DeleteChat(ctx context.Context, chatID, requesterID int64, forBoth bool) error {
	chat, err := s.loadChatFor(ctx, chatID, requesterID)
	if err != nil {
		return err
	}

	if err := s.repo.SetChatDeleted(ctx, chatID, requesterID, forBoth); err != nil {
		return err
	}

	if forBoth {
		otherID := OtherParticipant(chat, requesterID)
		s.dispatcher.Deliver(ctx, otherID, NewEvent(EventDeleteChat, map[string]interface{}{
			"chat_id": chatID,
		}), nil)
	}
	return nil
}

func (s *chatService) GetMessages(ctx context.Context, chatID, userID int64) ([]*Message, error) {
	chat, err := s.loadChatFor(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	messages, err := s.repo.GetChatMessages(ctx, chatID)
	if err != nil {
		return nil, err
	}

	visible := make([]*Message, 0, len(messages))
	for _, m := range messages {
		if MessageVisibleTo(chat, m, userID) {
			visible = append(visible, m)
		}
	}
	return visible, nil
}

// GetChats builds the viewer's chat list. Ordering is last activity
// descending with chat ID as tiebreak, a pure function of stored state.
func (s *chatService) GetChats(ctx context.Context, userID int64) ([]*ChatSummary, error) {
	chats, err := s.repo.ListChats(ctx, userID)
	if err != nil {
		return nil, err
	}

	summaries := make([]*ChatSummary, 0, len(chats))
	for _, chat := range chats {
		if !ChatVisibleTo(chat, userID) {
			continue
		}
		summary, err := s.buildSummary(ctx, chat, userID)
		if err != nil {
			return nil, err
		}
		if summary != nil {
			summaries = append(summaries, summary)
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		if !summaries[i].LastActivityAt.Equal(summaries[j].LastActivityAt) {
			return summaries[i].LastActivityAt.After(summaries[j].LastActivityAt)
		}
		return summaries[i].ChatID > summaries[j].ChatID
	})

	return summaries, nil
}

func (s *chatService) GetChatDetails(ctx context.Context, chatID, userID int64) (*ChatSummary, error) {
	chat, err := s.loadChatFor(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}

	summary, err := s.buildSummary(ctx, chat, userID)
	if err != nil {
		return nil, err
	}
	if summary == nil {
		return nil, ErrChatNotFound
	}
	return summary, nil
}

func (s *chatService) buildSummary(ctx context.Context, chat *Chat, userID int64) (*ChatSummary, error) {
	otherID := OtherParticipant(chat, userID)

	other, err := s.repo.GetUserSummary(ctx, otherID)
	if err != nil {
		return nil, err
	}
	if other == nil {
		// Deleted accounts fall out of the list
		return nil, nil
	}

	summary := &ChatSummary{
		ChatID:         chat.ID,
		User:           other,
		CreatedAt:      chat.CreatedAt,
		LastActivityAt: chat.CreatedAt,
	}

	last, err := s.repo.LastVisibleMessage(ctx, chat.ID, userID)
	if err != nil {
		return nil, err
	}
	if last != nil {
		preview := renderPreview(last)
		summary.LastMessage = &preview
		summary.LastMessageType = &last.MessageType
		summary.LastMessageStatus = &last.Status
		summary.LastMessageSenderID = &last.SenderID
		summary.LastActivityAt = last.CreatedAt
	}

	unread, err := s.repo.UnreadCount(ctx, chat.ID, userID)
	if err != nil {
		return nil, err
	}
	summary.UnreadCount = unread

	invitations, err := s.repo.ListPendingInvitations(ctx, chat.ID, userID)
	if err != nil {
		return nil, err
	}
	for _, inv := range invitations {
		summary.DateInvitations = append(summary.DateInvitations, &DateInvitationInfo{
			SenderID: inv.SenderID,
			Status:   inv.Status,
		})
	}

	return summary, nil
}

// ReplayUndelivered pushes messages still in sent status to a freshly
// connected user. Status stays sent until the client acks each one.
func (s *chatService) ReplayUndelivered(ctx context.Context, userID int64, conn Conn) error {
	pending, err := s.repo.ListUndelivered(ctx, userID)
	if err != nil {
		return err
	}

	for _, msg := range pending {
		if !conn.Enqueue(NewEvent(EventNewMessage, msg)) {
			break
		}
	}
	return nil
}

// PushVerificationUpdate notifies a user that their verification state
// changed. The account service calls this through an internal endpoint.
func (s *chatService) PushVerificationUpdate(ctx context.Context, userID int64, verified bool) {
	body := "Your profile verification was not approved"
	if verified {
		body = "Your profile is now verified"
	}

	s.dispatcher.Deliver(ctx, userID, NewEvent(EventVerificationUpdate, map[string]interface{}{
		"user_id":  userID,
		"verified": verified,
	}), &PushNote{
		Title: "Verification update",
		Body:  body,
	})
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}

func renderPreview(m *Message) string {
	switch m.MessageType {
	case TypeVoice:
		return "Voice message"
	case TypeImage:
		return "Image"
	}
	if m.Content != nil {
		return *m.Content
	}
	return ""
}
