// internal/messaging/visibility.go
// Soft-delete visibility rules, centralized so every retrieval path
// filters identically.

package messaging

// IsParticipant reports whether userID is one of the chat's two participants
func IsParticipant(chat *Chat, userID int64) bool {
	return chat.User1ID == userID || chat.User2ID == userID
}

// OtherParticipant returns the chat participant that is not userID
func OtherParticipant(chat *Chat, userID int64) int64 {
	if chat.User1ID == userID {
		return chat.User2ID
	}
	return chat.User1ID
}

// ChatVisibleTo reports whether the chat appears in userID's chat list.
// A chat hidden for both participants stays addressable by ID.
func ChatVisibleTo(chat *Chat, userID int64) bool {
	switch userID {
	case chat.User1ID:
		return !chat.DeletedForUser1
	case chat.User2ID:
		return !chat.DeletedForUser2
	}
	return false
}

// MessageVisibleTo reports whether userID can see the message.
// Evaluated per retrieval, never cached.
func MessageVisibleTo(chat *Chat, m *Message, userID int64) bool {
	switch userID {
	case chat.User1ID:
		return !m.DeletedForUser1
	case chat.User2ID:
		return !m.DeletedForUser2
	}
	return false
}
