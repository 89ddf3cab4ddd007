// internal/messaging/service_test.go

package messaging

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestCreateOrGetChatIdempotent(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	first, created, err := env.service.CreateOrGetChat(ctx, 1, 2)
	if err != nil {
		t.Fatalf("CreateOrGetChat: %v", err)
	}
	if !created {
		t.Error("expected first call to create the chat")
	}

	second, created, err := env.service.CreateOrGetChat(ctx, 2, 1)
	if err != nil {
		t.Fatalf("CreateOrGetChat reversed: %v", err)
	}
	if created {
		t.Error("expected reversed call to reuse the chat")
	}
	if first.ID != second.ID {
		t.Errorf("got two chats (%d, %d) for one pair", first.ID, second.ID)
	}
}

func TestCreateOrGetChatConcurrent(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	ids := make(chan int64, 20)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(flip bool) {
			defer wg.Done()
			a, b := int64(1), int64(2)
			if flip {
				a, b = b, a
			}
			chat, _, err := env.service.CreateOrGetChat(ctx, a, b)
			if err != nil {
				t.Errorf("CreateOrGetChat: %v", err)
				return
			}
			ids <- chat.ID
		}(i%2 == 0)
	}
	wg.Wait()
	close(ids)

	seen := make(map[int64]bool)
	for id := range ids {
		seen[id] = true
	}
	if len(seen) != 1 {
		t.Errorf("got %d distinct chats for one pair, want 1", len(seen))
	}
}

func TestCreateOrGetChatUnknownUser(t *testing.T) {
	env := newTestEnv(1)

	_, _, err := env.service.CreateOrGetChat(context.Background(), 1, 99)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("got %v, want ErrUserNotFound", err)
	}
}

func TestSendMessageStatusByPresence(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)

	t.Run("recipient offline", func(t *testing.T) {
		msg, err := env.service.SendMessage(ctx, 1, &SendMessagePayload{
			ChatID:      chat.ID,
			Content:     strPtr("hi"),
			MessageType: TypeText,
		})
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		if msg.Status != StatusSent {
			t.Errorf("status = %s, want sent", msg.Status)
		}
		if msg.DeliveredAt != nil {
			t.Error("delivered_at should be unset for a sent message")
		}
	})

	t.Run("recipient online", func(t *testing.T) {
		conn := env.connect(2)
		msg, err := env.service.SendMessage(ctx, 1, &SendMessagePayload{
			ChatID:      chat.ID,
			Content:     strPtr("there"),
			MessageType: TypeText,
		})
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
		if msg.Status != StatusDelivered {
			t.Errorf("status = %s, want delivered", msg.Status)
		}
		if msg.DeliveredAt == nil {
			t.Error("delivered_at should be set")
		}
		if conn.countType(EventNewMessage) != 1 {
			t.Errorf("recipient got %d new_message events, want 1", conn.countType(EventNewMessage))
		}
	})
}

func TestSendMessageValidation(t *testing.T) {
	env := newTestEnv(1, 2, 3)
	ctx := context.Background()
	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)

	t.Run("unknown chat", func(t *testing.T) {
		_, err := env.service.SendMessage(ctx, 1, &SendMessagePayload{
			ChatID: 999, Content: strPtr("x"), MessageType: TypeText,
		})
		if !errors.Is(err, ErrChatNotFound) {
			t.Errorf("got %v, want ErrChatNotFound", err)
		}
	})

	t.Run("non-participant", func(t *testing.T) {
		_, err := env.service.SendMessage(ctx, 3, &SendMessagePayload{
			ChatID: chat.ID, Content: strPtr("x"), MessageType: TypeText,
		})
		if !errors.Is(err, ErrNotParticipant) {
			t.Errorf("got %v, want ErrNotParticipant", err)
		}
	})

	t.Run("empty text", func(t *testing.T) {
		_, err := env.service.SendMessage(ctx, 1, &SendMessagePayload{
			ChatID: chat.ID, MessageType: TypeText,
		})
		if !errors.Is(err, ErrEmptyContent) {
			t.Errorf("got %v, want ErrEmptyContent", err)
		}
	})

	t.Run("reply target in another chat", func(t *testing.T) {
		other, _, _ := env.service.CreateOrGetChat(ctx, 1, 3)
		foreign, err := env.service.SendMessage(ctx, 1, &SendMessagePayload{
			ChatID: other.ID, Content: strPtr("elsewhere"), MessageType: TypeText,
		})
		if err != nil {
			t.Fatalf("SendMessage: %v", err)
		}

		_, err = env.service.SendMessage(ctx, 1, &SendMessagePayload{
			ChatID:           chat.ID,
			Content:          strPtr("reply"),
			MessageType:      TypeText,
			ReplyToMessageID: &foreign.ID,
		})
		if !errors.Is(err, ErrInvalidReplyTarget) {
			t.Errorf("got %v, want ErrInvalidReplyTarget", err)
		}
	})
}

func TestSendMessageUnhidesChatForSenderOnly(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)
	if err := env.service.DeleteChat(ctx, chat.ID, 1, false); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}
	if err := env.service.DeleteChat(ctx, chat.ID, 2, false); err != nil {
		t.Fatalf("DeleteChat: %v", err)
	}

	if _, err := env.service.SendMessage(ctx, 1, &SendMessagePayload{
		ChatID: chat.ID, Content: strPtr("back"), MessageType: TypeText,
	}); err != nil {
		t.Fatalf("SendMessage: %v", err)
	}

	stored, _ := env.repo.GetChat(ctx, chat.ID)
	if !ChatVisibleTo(stored, 1) {
		t.Error("sending should un-hide the chat for the sender")
	}
	if ChatVisibleTo(stored, 2) {
		t.Error("sending must not un-hide the chat for the recipient")
	}
}

func TestStatusMonotonic(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)
	msg, _ := env.service.SendMessage(ctx, 1, &SendMessagePayload{
		ChatID: chat.ID, Content: strPtr("hi"), MessageType: TypeText,
	})

	if err := env.service.MarkRead(ctx, 2, msg.ID); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}

	stored, _ := env.repo.GetMessage(ctx, msg.ID)
	readAt := stored.ReadAt

	// A late delivery ack must not regress a read message
	if err := env.service.MarkDelivered(ctx, 2, msg.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}

	stored, _ = env.repo.GetMessage(ctx, msg.ID)
	if stored.Status != StatusRead {
		t.Errorf("status = %s, want read", stored.Status)
	}
	if stored.ReadAt == nil || !stored.ReadAt.Equal(*readAt) {
		t.Error("read_at must be first-write-wins")
	}
}

func TestMarkDeliveredRejectsSender(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)
	msg, _ := env.service.SendMessage(ctx, 1, &SendMessagePayload{
		ChatID: chat.ID, Content: strPtr("hi"), MessageType: TypeText,
	})

	if err := env.service.MarkDelivered(ctx, 1, msg.ID); !errors.Is(err, ErrNotParticipant) {
		t.Errorf("got %v, want ErrNotParticipant", err)
	}
}

func TestReadChatIdempotent(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)
	for i := 0; i < 3; i++ {
		env.service.SendMessage(ctx, 1, &SendMessagePayload{
			ChatID: chat.ID, Content: strPtr("msg"), MessageType: TypeText,
		})
	}

	sender := env.connect(1)

	if err := env.service.ReadChat(ctx, chat.ID, 2); err != nil {
		t.Fatalf("ReadChat: %v", err)
	}
	if err := env.service.ReadChat(ctx, chat.ID, 2); err != nil {
		t.Fatalf("ReadChat second call: %v", err)
	}

	unread, _ := env.repo.UnreadCount(ctx, chat.ID, 2)
	if unread != 0 {
		t.Errorf("unread = %d, want 0", unread)
	}

	// Only the first call changes rows, so only one notification
	if got := sender.countType(EventAllMessagesRead); got != 1 {
		t.Errorf("sender got %d all_messages_read events, want 1", got)
	}
}

func TestDeleteMessageVisibility(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)
	msg, _ := env.service.SendMessage(ctx, 1, &SendMessagePayload{
		ChatID: chat.ID, Content: strPtr("secret"), MessageType: TypeText,
	})

	if err := env.service.DeleteMessage(ctx, msg.ID, 1, false); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	forDeleter, _ := env.service.GetMessages(ctx, chat.ID, 1)
	if len(forDeleter) != 0 {
		t.Errorf("deleter sees %d messages, want 0", len(forDeleter))
	}

	forOther, _ := env.service.GetMessages(ctx, chat.ID, 2)
	if len(forOther) != 1 {
		t.Fatalf("other participant sees %d messages, want 1", len(forOther))
	}
	if forOther[0].Content == nil || *forOther[0].Content != "secret" {
		t.Error("message content changed for the other participant")
	}
}

func TestDeleteMessageForBothNotifies(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)
	msg, _ := env.service.SendMessage(ctx, 1, &SendMessagePayload{
		ChatID: chat.ID, Content: strPtr("oops"), MessageType: TypeText,
	})

	other := env.connect(2)
	if err := env.service.DeleteMessage(ctx, msg.ID, 1, true); err != nil {
		t.Fatalf("DeleteMessage: %v", err)
	}

	forOther, _ := env.service.GetMessages(ctx, chat.ID, 2)
	if len(forOther) != 0 {
		t.Errorf("other participant sees %d messages after for_both delete, want 0", len(forOther))
	}
	if other.countType(EventDeleteMessage) != 1 {
		t.Error("expected a delete_message event for the other participant")
	}
}

func TestGetChatsSummaries(t *testing.T) {
	env := newTestEnv(1, 2, 3)
	ctx := context.Background()

	chatA, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)
	chatB, _, _ := env.service.CreateOrGetChat(ctx, 1, 3)

	env.service.SendMessage(ctx, 2, &SendMessagePayload{
		ChatID: chatA.ID, Content: strPtr("hello"), MessageType: TypeText,
	})
	env.service.SendMessage(ctx, 3, &SendMessagePayload{
		ChatID: chatB.ID, MessageType: TypeVoice,
		Media: []*MediaPayload{{MediaURL: "cdn/x.ogg", MediaType: "audio/ogg"}},
	})

	chats, err := env.service.GetChats(ctx, 1)
	if err != nil {
		t.Fatalf("GetChats: %v", err)
	}
	if len(chats) != 2 {
		t.Fatalf("got %d chats, want 2", len(chats))
	}

	// Most recent activity first
	if chats[0].ChatID != chatB.ID {
		t.Errorf("first chat = %d, want most recently active %d", chats[0].ChatID, chatB.ID)
	}
	if chats[0].LastMessage == nil || *chats[0].LastMessage != "Voice message" {
		t.Error("voice preview should be a placeholder label")
	}
	if chats[1].LastMessage == nil || *chats[1].LastMessage != "hello" {
		t.Error("text preview should be the content verbatim")
	}
	if chats[1].UnreadCount != 1 {
		t.Errorf("unread = %d, want 1", chats[1].UnreadCount)
	}
}

func TestGetChatsHidesDeleted(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)
	env.service.DeleteChat(ctx, chat.ID, 1, false)

	mine, _ := env.service.GetChats(ctx, 1)
	if len(mine) != 0 {
		t.Errorf("deleter sees %d chats, want 0", len(mine))
	}

	theirs, _ := env.service.GetChats(ctx, 2)
	if len(theirs) != 1 {
		t.Errorf("other participant sees %d chats, want 1", len(theirs))
	}

	// Still addressable by ID
	if _, err := env.service.GetChatDetails(ctx, chat.ID, 1); err != nil {
		t.Errorf("hidden chat should stay addressable: %v", err)
	}
}

func TestOfflineSendLifecycle(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()

	// User 1 messages user 2 while they are offline
	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)
	msg, err := env.service.SendMessage(ctx, 1, &SendMessagePayload{
		ChatID: chat.ID, Content: strPtr("hi"), MessageType: TypeText,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if msg.Status != StatusSent {
		t.Fatalf("status = %s, want sent", msg.Status)
	}

	// User 2 connects and replays pending messages
	conn := env.connect(2)
	if err := env.service.ReplayUndelivered(ctx, 2, conn); err != nil {
		t.Fatalf("ReplayUndelivered: %v", err)
	}
	if conn.countType(EventNewMessage) != 1 {
		t.Fatal("expected the pending message to be replayed")
	}

	// Replay alone must not change status
	stored, _ := env.repo.GetMessage(ctx, msg.ID)
	if stored.Status != StatusSent {
		t.Fatalf("status after replay = %s, want sent", stored.Status)
	}

	sender := env.connect(1)

	// Client acks delivery
	if err := env.service.MarkDelivered(ctx, 2, msg.ID); err != nil {
		t.Fatalf("MarkDelivered: %v", err)
	}
	stored, _ = env.repo.GetMessage(ctx, msg.ID)
	if stored.Status != StatusDelivered {
		t.Fatalf("status = %s, want delivered", stored.Status)
	}

	// Reader marks the chat read; sender hears about it
	if err := env.service.ReadChat(ctx, chat.ID, 2); err != nil {
		t.Fatalf("ReadChat: %v", err)
	}
	stored, _ = env.repo.GetMessage(ctx, msg.ID)
	if stored.Status != StatusRead {
		t.Fatalf("status = %s, want read", stored.Status)
	}
	if sender.countType(EventAllMessagesRead) != 1 {
		t.Error("sender should receive all_messages_read")
	}
	if sender.countType(EventMessageStatus) != 1 {
		t.Error("sender should receive the delivery status update")
	}
}

func TestSendSerializedPerChat(t *testing.T) {
	env := newTestEnv(1, 2)
	ctx := context.Background()
	chat, _, _ := env.service.CreateOrGetChat(ctx, 1, 2)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.service.SendMessage(ctx, 1, &SendMessagePayload{
				ChatID: chat.ID, Content: strPtr("burst"), MessageType: TypeText,
			})
			if err != nil {
				t.Errorf("SendMessage: %v", err)
			}
		}()
	}
	wg.Wait()

	messages, _ := env.service.GetMessages(ctx, chat.ID, 1)
	if len(messages) != 10 {
		t.Errorf("got %d messages, want 10", len(messages))
	}
}
