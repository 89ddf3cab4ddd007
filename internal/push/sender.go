// internal/push/sender.go

package push

import (
	"context"
	"log"
	"sync"
)

// Notification is a single push payload addressed to one device token
type Notification struct {
	Token string            `json:"token"`
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

// Sender delivers a notification to a device. Delivery is best-effort:
// callers must treat failures as non-fatal.
type Sender interface {
	Send(ctx context.Context, n *Notification) error
}

// TokenLookup resolves a user to their active device token, if any.
type TokenLookup interface {
	ActiveToken(ctx context.Context, userID int64) (string, error)
}

// MockSender records notifications instead of delivering them.
// Used in tests and when no push provider is configured.
type MockSender struct {
	mu   sync.Mutex
	Sent []*Notification
}

func NewMockSender() *MockSender {
	return &MockSender{}
}

func (m *MockSender) Send(ctx context.Context, n *Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sent = append(m.Sent, n)
	log.Printf("Mock push to token %s: %s - %s", n.Token, n.Title, n.Body)
	return nil
}

// Notifications returns a copy of everything sent so far
func (m *MockSender) Notifications() []*Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Notification, len(m.Sent))
	copy(out, m.Sent)
	return out
}
