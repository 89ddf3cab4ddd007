// internal/messaging/routes.go

package messaging

import (
	"net/http"

	"github.com/gorilla/mux"
)

// RegisterRoutes registers the websocket endpoint and the REST surface
func RegisterRoutes(router *mux.Router, handler *Handler, authenticate func(http.Handler) http.Handler) {
	router.Handle("/ws", authenticate(http.HandlerFunc(handler.HandleWebSocket))).Methods("GET")

	api := router.PathPrefix("/api/v1/chats").Subrouter()
	api.Use(authenticate)

	api.HandleFunc("", handler.CreateChat).Methods("POST")
	api.HandleFunc("", handler.GetChats).Methods("GET")
	api.HandleFunc("/{id:[0-9]+}", handler.GetChatDetails).Methods("GET")
	api.HandleFunc("/{id:[0-9]+}/messages", handler.GetMessages).Methods("GET")

	media := router.PathPrefix("/api/v1/media").Subrouter()
	media.Use(authenticate)
	media.HandleFunc("/upload", handler.UploadMedia).Methods("POST")

	// Service-to-service endpoint, fronted by network policy
	router.HandleFunc("/internal/v1/verification-update", handler.VerificationUpdate).Methods("POST")

	router.HandleFunc("/health/messaging", handler.HealthCheck).Methods("GET")
}
