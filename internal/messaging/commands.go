// internal/messaging/commands.go
// Inbound wire commands. Every frame is decoded and validated here, once,
// before it reaches the service layer.

package messaging

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/amoria-app/amoria-backend/internal/common/utils"
)

// Command types accepted over the websocket
const (
	CmdSendMessage       = "send_message"
	CmdMessageDelivered  = "message_delivered"
	CmdMessageRead       = "message_read"
	CmdAllMessagesRead   = "all_messages_read"
	CmdGetChats          = "get_chats"
	CmdGetMessages       = "get_messages"
	CmdDeleteMessage     = "delete_message"
	CmdDeleteChat        = "delete_chat"
	CmdLike              = "like"
	CmdDislike           = "dislike"
	CmdSendInvitation    = "send_date_invitation"
	CmdRespondInvitation = "respond_date_invitation"
)

var ErrUnknownCommand = errors.New("unknown command type")

// Command is one decoded inbound frame. Exactly one payload field is
// non-nil, matching Type.
type Command struct {
	Type string

	// ExternalMessageID is the client's correlation token, echoed back
	// unchanged in the acknowledgment.
	ExternalMessageID string

	SendMessage       *SendMessagePayload
	MessageDelivered  *MessageRefPayload
	MessageRead       *MessageRefPayload
	AllMessagesRead   *ChatRefPayload
	GetMessages       *ChatRefPayload
	DeleteMessage     *DeleteMessagePayload
	DeleteChat        *DeleteChatPayload
	Like              *UserRefPayload
	Dislike           *UserRefPayload
	SendInvitation    *ChatRefPayload
	RespondInvitation *RespondInvitationPayload
}

type SendMessagePayload struct {
	ChatID           int64           `json:"chat_id" validate:"required,gt=0"`
	Content          *string         `json:"content"`
	MessageType      string          `json:"message_type" validate:"required,oneof=text voice image"`
	Media            []*MediaPayload `json:"media" validate:"dive"`
	ReplyToMessageID *int64          `json:"reply_to_message_id"`
}

type MediaPayload struct {
	MediaURL  string `json:"media_url" validate:"required"`
	MediaType string `json:"media_type" validate:"required"`
}

type MessageRefPayload struct {
	MessageID int64 `json:"message_id" validate:"required,gt=0"`
}

type ChatRefPayload struct {
	ChatID int64 `json:"chat_id" validate:"required,gt=0"`
}

type UserRefPayload struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

type DeleteMessagePayload struct {
	MessageID int64 `json:"message_id" validate:"required,gt=0"`
	ForBoth   bool  `json:"for_both"`
}

type DeleteChatPayload struct {
	ChatID  int64 `json:"chat_id" validate:"required,gt=0"`
	ForBoth bool  `json:"for_both"`
}

type RespondInvitationPayload struct {
	ChatID   int64  `json:"chat_id" validate:"required,gt=0"`
	Decision string `json:"decision" validate:"required,oneof=accepted declined"`
}

type rawFrame struct {
	Type              string          `json:"type"`
	ExternalMessageID string          `json:"external_message_id"`
	Data              json.RawMessage `json:"data"`
}

// DecodeCommand parses one inbound frame into its tagged variant.
// Unknown types and invalid payloads are rejected before the core sees them.
func DecodeCommand(raw []byte) (*Command, error) {
	var frame rawFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		return nil, fmt.Errorf("invalid frame: %w", err)
	}

	cmd := &Command{
		Type:              frame.Type,
		ExternalMessageID: frame.ExternalMessageID,
	}

	switch frame.Type {
	case CmdSendMessage:
		cmd.SendMessage = &SendMessagePayload{}
		return cmd, decodePayload(frame.Data, cmd.SendMessage)
	case CmdMessageDelivered:
		cmd.MessageDelivered = &MessageRefPayload{}
		return cmd, decodePayload(frame.Data, cmd.MessageDelivered)
	case CmdMessageRead:
		cmd.MessageRead = &MessageRefPayload{}
		return cmd, decodePayload(frame.Data, cmd.MessageRead)
	case CmdAllMessagesRead:
		cmd.AllMessagesRead = &ChatRefPayload{}
		return cmd, decodePayload(frame.Data, cmd.AllMessagesRead)
	case CmdGetChats:
		return cmd, nil
	case CmdGetMessages:
		cmd.GetMessages = &ChatRefPayload{}
		return cmd, decodePayload(frame.Data, cmd.GetMessages)
	case CmdDeleteMessage:
		cmd.DeleteMessage = &DeleteMessagePayload{}
		return cmd, decodePayload(frame.Data, cmd.DeleteMessage)
	case CmdDeleteChat:
		cmd.DeleteChat = &DeleteChatPayload{}
		return cmd, decodePayload(frame.Data, cmd.DeleteChat)
	case CmdLike:
		cmd.Like = &UserRefPayload{}
		return cmd, decodePayload(frame.Data, cmd.Like)
	case CmdDislike:
		cmd.Dislike = &UserRefPayload{}
		return cmd, decodePayload(frame.Data, cmd.Dislike)
	case CmdSendInvitation:
		cmd.SendInvitation = &ChatRefPayload{}
		return cmd, decodePayload(frame.Data, cmd.SendInvitation)
	case CmdRespondInvitation:
		cmd.RespondInvitation = &RespondInvitationPayload{}
		return cmd, decodePayload(frame.Data, cmd.RespondInvitation)
	}

	return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, frame.Type)
}

func decodePayload(data json.RawMessage, dst interface{}) error {
	if len(data) == 0 {
		return errors.New("missing payload")
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	if err := utils.ValidateStruct(dst); err != nil {
		return fmt.Errorf("invalid payload: %w", err)
	}
	return nil
}
