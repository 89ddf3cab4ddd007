// internal/messaging/testing_test.go
// In-memory fakes shared by the package tests.

package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/amoria-app/amoria-backend/internal/push"
)

type fakeRepo struct {
	mu          sync.Mutex
	chats       map[int64]*Chat
	messages    map[int64]*Message
	invitations map[int64]*DateInvitation
	users       map[int64]*UserSummary
	statuses    map[int64]string

	nextChatID    int64
	nextMessageID int64
	nextInvID     int64

	failNext error
}

func newFakeRepo(userIDs ...int64) *fakeRepo {
	r := &fakeRepo{
		chats:       make(map[int64]*Chat),
		messages:    make(map[int64]*Message),
		invitations: make(map[int64]*DateInvitation),
		users:       make(map[int64]*UserSummary),
		statuses:    make(map[int64]string),
	}
	for _, id := range userIDs {
		r.users[id] = &UserSummary{
			UserID:    id,
			FirstName: fmt.Sprintf("user%d", id),
			Age:       30,
			Status:    "offline",
		}
	}
	return r
}

func (r *fakeRepo) takeErr() error {
	err := r.failNext
	r.failNext = nil
	return err
}

func (r *fakeRepo) GetOrCreateChat(ctx context.Context, userA, userB int64) (*Chat, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeErr(); err != nil {
		return nil, false, err
	}

	u1, u2 := userA, userB
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	for _, c := range r.chats {
		if c.User1ID == u1 && c.User2ID == u2 {
			return c, false, nil
		}
	}

	r.nextChatID++
	chat := &Chat{
		ID:        r.nextChatID,
		User1ID:   u1,
		User2ID:   u2,
		CreatedAt: time.Now(),
	}
	r.chats[chat.ID] = chat
	return chat, true, nil
}

func (r *fakeRepo) GetChat(ctx context.Context, chatID int64) (*Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeErr(); err != nil {
		return nil, err
	}
	return r.chats[chatID], nil
}

func (r *fakeRepo) ListChats(ctx context.Context, userID int64) ([]*Chat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Chat
	for _, c := range r.chats {
		if c.User1ID == userID || c.User2ID == userID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepo) SetChatDeleted(ctx context.Context, chatID, userID int64, forBoth bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.chats[chatID]
	if c == nil {
		return nil
	}
	if c.User1ID == userID || forBoth {
		c.DeletedForUser1 = true
	}
	if c.User2ID == userID || forBoth {
		c.DeletedForUser2 = true
	}
	return nil
}

func (r *fakeRepo) UnhideChatForUser(ctx context.Context, chatID, userID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.chats[chatID]
	if c == nil {
		return nil
	}
	if c.User1ID == userID {
		c.DeletedForUser1 = false
	}
	if c.User2ID == userID {
		c.DeletedForUser2 = false
	}
	return nil
}

func (r *fakeRepo) CreateMessage(ctx context.Context, msg *Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.takeErr(); err != nil {
		return err
	}

	r.nextMessageID++
	msg.ID = r.nextMessageID
	for _, m := range msg.Media {
		m.MessageID = msg.ID
	}
	stored := *msg
	r.messages[msg.ID] = &stored
	return nil
}

func (r *fakeRepo) GetMessage(ctx context.Context, messageID int64) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.messages[messageID]
	if m == nil {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (r *fakeRepo) GetChatMessages(ctx context.Context, chatID int64) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Message
	for id := int64(1); id <= r.nextMessageID; id++ {
		if m, ok := r.messages[id]; ok && m.ChatID == chatID {
			cp := *m
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) MarkDelivered(ctx context.Context, messageID int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.messages[messageID]
	if m == nil || m.Status != StatusSent {
		return false, nil
	}
	m.Status = StatusDelivered
	if m.DeliveredAt == nil {
		m.DeliveredAt = &at
	}
	return true, nil
}

func (r *fakeRepo) MarkRead(ctx context.Context, messageID int64, at time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.messages[messageID]
	if m == nil || m.Status == StatusRead {
		return false, nil
	}
	m.Status = StatusRead
	if m.DeliveredAt == nil {
		m.DeliveredAt = &at
	}
	if m.ReadAt == nil {
		m.ReadAt = &at
	}
	return true, nil
}

func (r *fakeRepo) MarkChatRead(ctx context.Context, chatID, readerID int64, at time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var changed int64
	for _, m := range r.messages {
		if m.ChatID != chatID || m.SenderID == readerID || m.Status == StatusRead {
			continue
		}
		m.Status = StatusRead
		if m.DeliveredAt == nil {
			m.DeliveredAt = &at
		}
		if m.ReadAt == nil {
			m.ReadAt = &at
		}
		changed++
	}
	return changed, nil
}

func (r *fakeRepo) SetMessageDeleted(ctx context.Context, messageID, userID int64, forBoth bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	m := r.messages[messageID]
	if m == nil {
		return nil
	}
	c := r.chats[m.ChatID]
	if c == nil {
		return nil
	}
	if c.User1ID == userID || forBoth {
		m.DeletedForUser1 = true
	}
	if c.User2ID == userID || forBoth {
		m.DeletedForUser2 = true
	}
	return nil
}

func (r *fakeRepo) ListUndelivered(ctx context.Context, userID int64) ([]*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*Message
	for id := int64(1); id <= r.nextMessageID; id++ {
		m, ok := r.messages[id]
		if !ok || m.Status != StatusSent || m.SenderID == userID {
			continue
		}
		c := r.chats[m.ChatID]
		if c == nil || (c.User1ID != userID && c.User2ID != userID) {
			continue
		}
		cp := *m
		out = append(out, &cp)
	}
	return out, nil
}

func (r *fakeRepo) UnreadCount(ctx context.Context, chatID, userID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	count := 0
	c := r.chats[chatID]
	for _, m := range r.messages {
		if m.ChatID != chatID || m.SenderID == userID || m.Status == StatusRead {
			continue
		}
		if c != nil && !MessageVisibleTo(c, m, userID) {
			continue
		}
		count++
	}
	return count, nil
}

func (r *fakeRepo) LastVisibleMessage(ctx context.Context, chatID, userID int64) (*Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c := r.chats[chatID]
	for id := r.nextMessageID; id >= 1; id-- {
		m, ok := r.messages[id]
		if !ok || m.ChatID != chatID {
			continue
		}
		if c != nil && !MessageVisibleTo(c, m, userID) {
			continue
		}
		cp := *m
		return &cp, nil
	}
	return nil, nil
}

func (r *fakeRepo) SetUserStatus(ctx context.Context, userID int64, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.statuses[userID] = status
	return nil
}

func (r *fakeRepo) userStatus(userID int64) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.statuses[userID]
}

func (r *fakeRepo) GetUserSummary(ctx context.Context, userID int64) (*UserSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.users[userID], nil
}

func (r *fakeRepo) CreateInvitation(ctx context.Context, inv *DateInvitation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextInvID++
	inv.ID = r.nextInvID
	stored := *inv
	r.invitations[inv.ID] = &stored
	return nil
}

func (r *fakeRepo) GetLatestInvitation(ctx context.Context, chatID, recipientID int64) (*DateInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id := r.nextInvID; id >= 1; id-- {
		inv, ok := r.invitations[id]
		if ok && inv.ChatID == chatID && inv.RecipientID == recipientID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeRepo) ListPendingInvitations(ctx context.Context, chatID, recipientID int64) ([]*DateInvitation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*DateInvitation
	for id := int64(1); id <= r.nextInvID; id++ {
		inv, ok := r.invitations[id]
		if ok && inv.ChatID == chatID && inv.RecipientID == recipientID && inv.Status == InvitationPending {
			cp := *inv
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeRepo) RespondInvitation(ctx context.Context, invitationID int64, status string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	inv := r.invitations[invitationID]
	if inv == nil || inv.Status != InvitationPending {
		return false, nil
	}
	inv.Status = status
	return true, nil
}

// fakeConn is an in-memory registry handle that records events
type fakeConn struct {
	id     string
	userID int64

	mu     sync.Mutex
	events []Event
	full   bool
}

var fakeConnSeq int

func newFakeConn(userID int64) *fakeConn {
	fakeConnSeq++
	return &fakeConn{
		id:     fmt.Sprintf("conn-%d", fakeConnSeq),
		userID: userID,
	}
}

func (c *fakeConn) ID() string    { return c.id }
func (c *fakeConn) UserID() int64 { return c.userID }

func (c *fakeConn) Enqueue(event Event) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.full {
		return false
	}
	c.events = append(c.events, event)
	return true
}

func (c *fakeConn) eventTypes() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	types := make([]string, len(c.events))
	for i, e := range c.events {
		types[i] = e.Type
	}
	return types
}

func (c *fakeConn) countType(eventType string) int {
	n := 0
	for _, t := range c.eventTypes() {
		if t == eventType {
			n++
		}
	}
	return n
}

// fakeTokens implements push.TokenLookup
type fakeTokens struct {
	tokens map[int64]string
}

func (f *fakeTokens) ActiveToken(ctx context.Context, userID int64) (string, error) {
	return f.tokens[userID], nil
}

type testEnv struct {
	repo       *fakeRepo
	registry   *Registry
	dispatcher *Dispatcher
	sender     *push.MockSender
	service    Service
}

func newTestEnv(userIDs ...int64) *testEnv {
	repo := newFakeRepo(userIDs...)
	registry := NewRegistry(nil)
	sender := push.NewMockSender()

	tokens := &fakeTokens{tokens: make(map[int64]string)}
	for _, id := range userIDs {
		tokens.tokens[id] = fmt.Sprintf("token-%d", id)
	}

	dispatcher := NewDispatcher(registry, sender, tokens)
	service := NewService(repo, registry, dispatcher)

	return &testEnv{
		repo:       repo,
		registry:   registry,
		dispatcher: dispatcher,
		sender:     sender,
		service:    service,
	}
}

// connect registers a fake connection for the user
func (e *testEnv) connect(userID int64) *fakeConn {
	conn := newFakeConn(userID)
	e.registry.Register(userID, conn)
	return conn
}

func strPtr(s string) *string { return &s }
