// internal/messaging/handlers.go

package messaging

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/amoria-app/amoria-backend/internal/auth"
	"github.com/amoria-app/amoria-backend/internal/common/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Configure CORS as needed
		return true
	},
}

type Handler struct {
	service  Service
	registry *Registry
	likes    LikeEngine
	storage  MediaStorage
}

func NewHandler(service Service, registry *Registry, likes LikeEngine, storage MediaStorage) *Handler {
	return &Handler{
		service:  service,
		registry: registry,
		likes:    likes,
		storage:  storage,
	}
}

// HandleWebSocket upgrades the connection and runs the client until it
// disconnects
func (h *Handler) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	client := NewClient(conn, userID, h.registry, h.service, h.likes)
	client.Start()
}

type createChatRequest struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
}

// CreateChat creates or returns the chat with another user
func (h *Handler) CreateChat(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req createChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.UserID == userID {
		utils.ErrorResponse(w, "Cannot chat with yourself", http.StatusBadRequest)
		return
	}

	chat, created, err := h.service.CreateOrGetChat(r.Context(), userID, req.UserID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	utils.SuccessResponse(w, chat, status)
}

// GetChats returns the caller's chat list
func (h *Handler) GetChats(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chats, err := h.service.GetChats(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.SuccessResponse(w, chats, http.StatusOK)
}

// GetChatDetails returns one chat summary
func (h *Handler) GetChatDetails(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.ErrorResponse(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	summary, err := h.service.GetChatDetails(r.Context(), chatID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.SuccessResponse(w, summary, http.StatusOK)
}

// GetMessages returns the messages visible to the caller in a chat
func (h *Handler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	chatID, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		utils.ErrorResponse(w, "Invalid chat ID", http.StatusBadRequest)
		return
	}

	messages, err := h.service.GetMessages(r.Context(), chatID, userID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	utils.SuccessResponse(w, messages, http.StatusOK)
}

// UploadMedia stores an attachment and returns its URL for a later
// send_message command
func (h *Handler) UploadMedia(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.GetUserIDFromContext(r.Context()); !ok {
		utils.ErrorResponse(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		utils.ErrorResponse(w, "Missing file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	url, err := h.storage.UploadMedia(r.Context(), file, header.Filename, contentType)
	if err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	utils.SuccessResponse(w, map[string]string{"media_url": url}, http.StatusCreated)
}

type verificationUpdateRequest struct {
	UserID   int64 `json:"user_id" validate:"required,gt=0"`
	Verified bool  `json:"verified"`
}

// VerificationUpdate is called by the account service after a profile
// review; it fans the result out to the user.
func (h *Handler) VerificationUpdate(w http.ResponseWriter, r *http.Request) {
	var req verificationUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ErrorResponse(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if err := utils.ValidateStruct(&req); err != nil {
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.service.PushVerificationUpdate(r.Context(), req.UserID, req.Verified)
	utils.MessageResponse(w, "Verification update dispatched", http.StatusAccepted)
}

// HealthCheck reports liveness and the current connection count
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	utils.SuccessResponse(w, map[string]interface{}{
		"status":      "ok",
		"connections": h.registry.Count(),
	}, http.StatusOK)
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch errorCode(err) {
	case CodeNotFound:
		utils.ErrorResponse(w, err.Error(), http.StatusNotFound)
	case CodeForbidden:
		utils.ErrorResponse(w, err.Error(), http.StatusForbidden)
	case CodeConflict:
		utils.ErrorResponse(w, err.Error(), http.StatusConflict)
	case CodeInvalidCommand:
		utils.ErrorResponse(w, err.Error(), http.StatusBadRequest)
	default:
		utils.ErrorResponse(w, "Something went wrong", http.StatusInternalServerError)
	}
}
