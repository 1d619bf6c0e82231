// File: internal/handlers/router.go
package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-juri/internal/middleware"
	"github.com/iyunix/go-juri/internal/ratelimit"
)

type RouterDeps struct {
	Chat          *ChatHandler
	Conversations *ConversationHandler
	Events        *EventBroker
	Logs          *LogHandler
	Health        *HealthHandler
	// Limiter guards the endpoints that reach the AI service. Nil disables it.
	Limiter *ratelimit.MemoryRateLimiter
	Logger  Logger
}

func NewRouter(d RouterDeps) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORSMiddleware)
	r.Use(middleware.RecoverPanic(d.Logger))
	r.Use(middleware.LoggingMiddleware(d.Logger))

	limited := func(h http.HandlerFunc) http.Handler { return h }
	if d.Limiter != nil {
		mw := middleware.RateLimitMiddleware(d.Limiter, "chat")
		limited = func(h http.HandlerFunc) http.Handler { return mw(h) }
	}

	r.HandleFunc("/health", d.Health.Health).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/log", d.Logs.LogFrontendEvent).Methods("POST")
	api.HandleFunc("/state", d.Chat.GetState).Methods("GET")
	api.HandleFunc("/events", d.Events.Stream).Methods("GET")

	api.HandleFunc("/chats", d.Chat.ListChats).Methods("GET")
	api.HandleFunc("/chats", d.Chat.CreateChat).Methods("POST")
	api.HandleFunc("/chats", d.Chat.DeleteAllChats).Methods("DELETE")
	api.HandleFunc("/chats/export", d.Chat.ExportChats).Methods("GET")
	api.HandleFunc("/chats/import", d.Chat.ImportChats).Methods("POST")
	api.HandleFunc("/chats/{id}", d.Chat.GetChat).Methods("GET")
	api.HandleFunc("/chats/{id}", d.Chat.DeleteChat).Methods("DELETE")
	api.HandleFunc("/chats/{id}/activate", d.Chat.ActivateChat).Methods("POST")
	api.HandleFunc("/chats/{id}/messages/{mid}/plain", d.Chat.GetMessagePlain).Methods("GET")

	api.Handle("/chat/send", limited(d.Chat.Send)).Methods("POST")
	api.HandleFunc("/chat/cancel", d.Chat.Cancel).Methods("POST")
	api.HandleFunc("/chat/messages/{mid}/edit", d.Chat.BeginEdit).Methods("POST")
	api.Handle("/chat/edit/commit", limited(d.Chat.CommitEdit)).Methods("POST")
	api.HandleFunc("/chat/edit/cancel", d.Chat.CancelEdit).Methods("POST")
	api.Handle("/chat/messages/{mid}/regenerate", limited(d.Chat.Regenerate)).Methods("POST")
	api.HandleFunc("/chat/draft", d.Chat.PutDraft).Methods("PUT")

	if d.Conversations != nil {
		api.HandleFunc("/conversations", d.Conversations.List).Methods("GET")
		api.HandleFunc("/conversations", d.Conversations.DeleteAll).Methods("DELETE")
		api.HandleFunc("/conversations/{id}", d.Conversations.Get).Methods("GET")
		api.HandleFunc("/conversations/{id}", d.Conversations.Put).Methods("PUT")
		api.HandleFunc("/conversations/{id}", d.Conversations.Delete).Methods("DELETE")
	}

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})
	return r
}
