// internal/messaging/websocket.go
// Outbound frame envelope and rejection codes.

package messaging

import (
	"errors"
	"time"
)

// Rejection codes sent back on the connection
const (
	CodeInvalidCommand  = "invalid_command"
	CodeUnauthenticated = "unauthenticated"
	CodeNotFound        = "not_found"
	CodeForbidden       = "forbidden"
	CodeConflict        = "conflict"
	CodeStoreFailure    = "transient_store_failure"
)

// WSResponse is the acknowledgment or rejection for one inbound command
type WSResponse struct {
	Type              string      `json:"type"`
	Success           bool        `json:"success"`
	ExternalMessageID string      `json:"external_message_id,omitempty"`
	Data              interface{} `json:"data,omitempty"`
	Error             string      `json:"error,omitempty"`
	Code              string      `json:"code,omitempty"`
	Timestamp         time.Time   `json:"timestamp"`
}

func ackResponse(cmdType, externalID string, data interface{}) *WSResponse {
	return &WSResponse{
		Type:              cmdType,
		Success:           true,
		ExternalMessageID: externalID,
		Data:              data,
		Timestamp:         time.Now(),
	}
}

func rejectResponse(cmdType, externalID string, err error) *WSResponse {
	code := errorCode(err)
	recordCommandError(code)
	return &WSResponse{
		Type:              cmdType,
		Success:           false,
		ExternalMessageID: externalID,
		Error:             err.Error(),
		Code:              code,
		Timestamp:         time.Now(),
	}
}

// errorCode maps service errors onto the wire taxonomy
func errorCode(err error) string {
	switch {
	case errors.Is(err, ErrChatNotFound),
		errors.Is(err, ErrMessageNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrInvitationNotFound):
		return CodeNotFound
	case errors.Is(err, ErrNotParticipant):
		return CodeForbidden
	case errors.Is(err, ErrInvitationResponded):
		return CodeConflict
	case errors.Is(err, ErrTransientStore):
		return CodeStoreFailure
	case errors.Is(err, ErrUnknownCommand),
		errors.Is(err, ErrEmptyContent),
		errors.Is(err, ErrInvalidReplyTarget):
		return CodeInvalidCommand
	}
	// Anything else came out of the store
	return CodeStoreFailure
}
