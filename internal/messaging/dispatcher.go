// internal/messaging/dispatcher.go

package messaging

import (
	"context"
	"log"
	"sync"

	"github.com/amoria-app/amoria-backend/internal/push"
)

// PushNote is the rendered push payload for a push-worthy event.
// A nil note means the event is live-delivery only.
type PushNote struct {
	Title string
	Body  string
	Data  map[string]string
}

// Dispatcher fans an event out to the recipient's live connection and,
// for push-worthy events, to the push sender. Live events for the same
// connection go out in the order Deliver was invoked.
type Dispatcher struct {
	registry *Registry
	sender   push.Sender
	tokens   push.TokenLookup
	wg       sync.WaitGroup
}

func NewDispatcher(registry *Registry, sender push.Sender, tokens push.TokenLookup) *Dispatcher {
	return &Dispatcher{
		registry: registry,
		sender:   sender,
		tokens:   tokens,
	}
}

// Deliver routes event to userID. Push delivery is fire-and-forget;
// its failure never reaches the caller.
func (d *Dispatcher) Deliver(ctx context.Context, userID int64, event Event, note *PushNote) {
	if conn, ok := d.registry.Lookup(userID); ok {
		if conn.Enqueue(event) {
			recordDelivery("live")
		} else {
			log.Printf("Dropping %s event for user %d: send buffer full", event.Type, userID)
			recordDelivery("dropped")
		}
	}

	if note == nil || d.sender == nil {
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.sendPush(userID, event.Type, note)
	}()
}

func (d *Dispatcher) sendPush(userID int64, eventType string, note *PushNote) {
	ctx := context.Background()

	token := ""
	if d.tokens != nil {
		var err error
		token, err = d.tokens.ActiveToken(ctx, userID)
		if err != nil {
			log.Printf("Error looking up push token for user %d: %v", userID, err)
			return
		}
	}
	if token == "" {
		return
	}

	n := &push.Notification{
		Token: token,
		Title: note.Title,
		Body:  note.Body,
		Data:  note.Data,
	}
	if n.Data == nil {
		n.Data = map[string]string{}
	}
	n.Data["event_type"] = eventType

	if err := d.sender.Send(ctx, n); err != nil {
		log.Printf("Error sending push to user %d: %v", userID, err)
		return
	}
	recordDelivery("push")
}

// Wait blocks until in-flight push sends finish. Used on shutdown and
// in tests.
func (d *Dispatcher) Wait() {
	d.wg.Wait()
}
