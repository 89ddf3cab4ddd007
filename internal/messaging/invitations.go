// internal/messaging/invitations.go
// Date invitation workflow: pending -> accepted | declined, terminal.

package messaging

import (
	"context"
	"time"
)

// SendInvitation creates a pending invitation in the chat and notifies
// the other participant.
func (s *chatService) SendInvitation(ctx context.Context, senderID, chatID int64) (*DateInvitation, error) {
	chat, err := s.loadChatFor(ctx, chatID, senderID)
	if err != nil {
		return nil, err
	}

	inv := &DateInvitation{
		SenderID:    senderID,
		RecipientID: OtherParticipant(chat, senderID),
		ChatID:      chatID,
		Status:      InvitationPending,
		CreatedAt:   time.Now(),
	}

	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, err
	}
	recordInvitation(InvitationPending)

	s.dispatcher.Deliver(ctx, inv.RecipientID, NewEvent(EventDateInvitation, inv), &PushNote{
		Title: "Date invitation",
		Body:  "You received a date invitation",
		Data:  map[string]string{"chat_id": formatID(chatID)},
	})

	return inv, nil
}

// RespondInvitation transitions the recipient's pending invitation to a
// terminal decision and notifies the original sender. A second response
// attempt is rejected as a conflict.
func (s *chatService) RespondInvitation(ctx context.Context, responderID, chatID int64, decision string) (*DateInvitation, error) {
	if _, err := s.loadChatFor(ctx, chatID, responderID); err != nil {
		return nil, err
	}

	inv, err := s.repo.GetLatestInvitation(ctx, chatID, responderID)
	if err != nil {
		return nil, err
	}
	if inv == nil {
		return nil, ErrInvitationNotFound
	}
	if inv.Status != InvitationPending {
		return nil, ErrInvitationResponded
	}

	changed, err := s.repo.RespondInvitation(ctx, inv.ID, decision)
	if err != nil {
		return nil, err
	}
	if !changed {
		return nil, ErrInvitationResponded
	}

	inv.Status = decision
	recordInvitation(decision)

	s.dispatcher.Deliver(ctx, inv.SenderID, NewEvent(EventDateResponse, inv), &PushNote{
		Title: "Date invitation " + decision,
		Body:  "Your date invitation was " + decision,
		Data:  map[string]string{"chat_id": formatID(chatID)},
	})

	return inv, nil
}
