// internal/messaging/visibility_test.go

package messaging

import "testing"

func TestChatVisibility(t *testing.T) {
	chat := &Chat{ID: 1, User1ID: 10, User2ID: 20}

	if !IsParticipant(chat, 10) || !IsParticipant(chat, 20) {
		t.Error("both users should be participants")
	}
	if IsParticipant(chat, 30) {
		t.Error("user 30 is not a participant")
	}

	if OtherParticipant(chat, 10) != 20 || OtherParticipant(chat, 20) != 10 {
		t.Error("OtherParticipant returned the wrong user")
	}

	if !ChatVisibleTo(chat, 10) || !ChatVisibleTo(chat, 20) {
		t.Error("fresh chat should be visible to both")
	}
	if ChatVisibleTo(chat, 30) {
		t.Error("non-participants never see the chat")
	}

	chat.DeletedForUser1 = true
	if ChatVisibleTo(chat, 10) {
		t.Error("chat hidden for user1 should not be visible to them")
	}
	if !ChatVisibleTo(chat, 20) {
		t.Error("deletion is per-participant")
	}
}

func TestMessageVisibility(t *testing.T) {
	chat := &Chat{ID: 1, User1ID: 10, User2ID: 20}
	msg := &Message{ID: 5, ChatID: 1, SenderID: 10}

	if !MessageVisibleTo(chat, msg, 10) || !MessageVisibleTo(chat, msg, 20) {
		t.Error("fresh message should be visible to both")
	}

	msg.DeletedForUser2 = true
	if MessageVisibleTo(chat, msg, 20) {
		t.Error("message hidden for user2 should not be visible to them")
	}
	if !MessageVisibleTo(chat, msg, 10) {
		t.Error("message deletion is per-participant")
	}

	if MessageVisibleTo(chat, msg, 30) {
		t.Error("non-participants never see messages")
	}
}
