// internal/messaging/client.go

package messaging

import (
	"context"
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 512 * 1024 // 512KB

	sendBuffer = 256
)

// LikeEngine is the slice of the matching engine the websocket needs.
// Implemented by the likes service; declared here to keep the import
// one-directional.
type LikeEngine interface {
	Like(ctx context.Context, likerID, likedID int64) (matched bool, already bool, err error)
	Dislike(ctx context.Context, userID, targetID int64) error
}

// Client owns one websocket connection. Inbound commands are processed
// one at a time in arrival order; outbound events go through the send
// buffer drained by writePump.
type Client struct {
	id       string
	userID   int64
	conn     *websocket.Conn
	registry *Registry
	service  Service
	likes    LikeEngine

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(conn *websocket.Conn, userID int64, registry *Registry, service Service, likes LikeEngine) *Client {
	return &Client{
		id:       uuid.New().String(),
		userID:   userID,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		registry: registry,
		service:  service,
		likes:    likes,
	}
}

func (c *Client) ID() string    { return c.id }
func (c *Client) UserID() int64 { return c.userID }

// Enqueue queues an event for the write pump. Reports false when the
// buffer is full; it never blocks the dispatcher.
func (c *Client) Enqueue(event Event) bool {
	data, err := json.Marshal(event)
	if err != nil {
		log.Printf("Error marshaling %s event for user %d: %v", event.Type, c.userID, err)
		return false
	}
	return c.enqueueBytes(data)
}

func (c *Client) enqueueBytes(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}

	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// Start registers the connection, replays undelivered messages and runs
// the pumps. It returns when the connection is gone.
func (c *Client) Start() {
	c.registry.Register(c.userID, c)

	if err := c.service.ReplayUndelivered(context.Background(), c.userID, c); err != nil {
		log.Printf("Error replaying undelivered messages for user %d: %v", c.userID, err)
	}

	go c.writePump()
	c.readPump()
}

func (c *Client) readPump() {
	defer func() {
		c.registry.Unregister(c)
		c.conn.Close()

		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		// Commands from one connection run serially, in arrival order
		c.handleFrame(raw)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			w, err := c.conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			w.Write(message)

			// Add queued messages to the current websocket message
			n := len(c.send)
			for i := 0; i < n; i++ {
				w.Write([]byte{'\n'})
				w.Write(<-c.send)
			}

			if err := w.Close(); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleFrame decodes one inbound frame, runs it and writes the
// acknowledgment or rejection back on the same connection. Every
// command gets an explicit response.
func (c *Client) handleFrame(raw []byte) {
	ctx := context.Background()

	cmd, err := DecodeCommand(raw)
	if err != nil {
		cmdType := ""
		if cmd != nil {
			cmdType = cmd.Type
		}
		c.respond(rejectResponse(cmdType, "", err))
		return
	}

	data, err := c.execute(ctx, cmd)
	if err != nil {
		c.respond(rejectResponse(cmd.Type, cmd.ExternalMessageID, err))
		return
	}
	c.respond(ackResponse(cmd.Type, cmd.ExternalMessageID, data))
}

func (c *Client) execute(ctx context.Context, cmd *Command) (interface{}, error) {
	switch cmd.Type {
	case CmdSendMessage:
		return c.service.SendMessage(ctx, c.userID, cmd.SendMessage)

	case CmdMessageDelivered:
		return nil, c.service.MarkDelivered(ctx, c.userID, cmd.MessageDelivered.MessageID)

	case CmdMessageRead:
		return nil, c.service.MarkRead(ctx, c.userID, cmd.MessageRead.MessageID)

	case CmdAllMessagesRead:
		return nil, c.service.ReadChat(ctx, cmd.AllMessagesRead.ChatID, c.userID)

	case CmdGetChats:
		return c.service.GetChats(ctx, c.userID)

	case CmdGetMessages:
		return c.service.GetMessages(ctx, cmd.GetMessages.ChatID, c.userID)

	case CmdDeleteMessage:
		return nil, c.service.DeleteMessage(ctx, cmd.DeleteMessage.MessageID, c.userID, cmd.DeleteMessage.ForBoth)

	case CmdDeleteChat:
		return nil, c.service.DeleteChat(ctx, cmd.DeleteChat.ChatID, c.userID, cmd.DeleteChat.ForBoth)

	case CmdLike:
		matched, already, err := c.likes.Like(ctx, c.userID, cmd.Like.UserID)
		if err != nil {
			return nil, err
		}
		result := "Liked"
		if already {
			result = "Already liked"
		}
		if matched {
			result = "It's a match!"
		}
		return map[string]interface{}{"result": result, "matched": matched}, nil

	case CmdDislike:
		return nil, c.likes.Dislike(ctx, c.userID, cmd.Dislike.UserID)

	case CmdSendInvitation:
		return c.service.SendInvitation(ctx, c.userID, cmd.SendInvitation.ChatID)

	case CmdRespondInvitation:
		return c.service.RespondInvitation(ctx, c.userID, cmd.RespondInvitation.ChatID, cmd.RespondInvitation.Decision)
	}

	return nil, ErrUnknownCommand
}

func (c *Client) respond(resp *WSResponse) {
	data, err := json.Marshal(resp)
	if err != nil {
		log.Printf("Error marshaling response: %v", err)
		return
	}

	if !c.enqueueBytes(data) {
		log.Printf("Dropping response to user %d: send buffer full", c.userID)
	}
}
