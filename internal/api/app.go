package api

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gorilla/handlers"
	"github.com/taskify-app/taskify-chat/internal/chat"
	"github.com/taskify-app/taskify-chat/internal/config"
	"github.com/taskify-app/taskify-chat/internal/database"
)

// ChatApp is the HTTP surface of the chat service: the REST message
// endpoints, the websocket upgrade, and a health check. Both the REST
// handlers and live connections drive the same coordinator.
type ChatApp struct {
	log            *log.Logger
	db             database.MessageRepository
	mux            *http.Server
	hub            *chat.Hub
	coordinator    *chat.Coordinator
	resolver       IdentityResolver
	allowedOrigins []string
}

func NewChatApp(mux *http.ServeMux, logger *log.Logger, hub *chat.Hub, coordinator *chat.Coordinator, db database.MessageRepository, resolver IdentityResolver, cfg *config.Config) *ChatApp {
	s := &ChatApp{
		log:            logger,
		db:             db,
		hub:            hub,
		coordinator:    coordinator,
		resolver:       resolver,
		allowedOrigins: cfg.AllowedOrigins,
	}

	mux.HandleFunc("GET /api/health", s.healthCheck)
	mux.Handle("GET /api/messages", s.authMiddleware(s.getMessages))
	mux.Handle("POST /api/messages", s.authMiddleware(s.createMessage))
	mux.Handle("PUT /api/messages", s.authMiddleware(s.editMessage))
	mux.Handle("DELETE /api/messages", s.authMiddleware(s.deleteMessage))
	mux.Handle("GET /ws", s.authMiddleware(s.serveWs))

	h := handlers.CORS(
		handlers.MaxAge(3600),
		handlers.AllowedOrigins(cfg.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Origin", "Content-Type", "Accept", "Authorization"}),
		handlers.AllowCredentials(),
	)(mux)

	h = s.errorHandler(h)

	srv := &http.Server{
		Addr:    cfg.ServerAddr,
		Handler: h,
	}

	s.mux = srv
	return s
}

func (s *ChatApp) Start() error {
	s.log.Printf("starting server on %s\n", s.mux.Addr)
	return s.mux.ListenAndServe()
}

func (s *ChatApp) Shutdown(ctx context.Context) error {
	s.log.Println("shutting down HTTP server...")
	if err := s.mux.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}
