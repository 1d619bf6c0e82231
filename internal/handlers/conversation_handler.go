package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-juri/internal/domain"
	"github.com/iyunix/go-juri/internal/repository/conversation"
)

const maxConversationSize = 20 << 20

// ConversationHandler serves the server-side conversation persistence endpoints.
type ConversationHandler struct {
	Repo   conversation.ConversationRepository
	logger Logger
}

func NewConversationHandler(repo conversation.ConversationRepository, logger Logger) *ConversationHandler {
	return &ConversationHandler{Repo: repo, logger: logger}
}

func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	convs, err := h.Repo.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list conversations", "error", err)
		writeError(w, "Could not retrieve conversations", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversations": convs})
}

func (h *ConversationHandler) Get(w http.ResponseWriter, r *http.Request) {
	conv, err := h.Repo.FindByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversation": conv})
}

// Put stores the conversation under the id in the path, replacing its messages.
func (h *ConversationHandler) Put(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var conv domain.Conversation
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxConversationSize)).Decode(&conv); err != nil {
		writeError(w, "Invalid conversation body", http.StatusBadRequest)
		return
	}
	if conv.ID == "" {
		conv.ID = id
	}
	if conv.ID != id {
		writeError(w, "Conversation id does not match the path", http.StatusBadRequest)
		return
	}

	if err := h.Repo.Save(r.Context(), &conv); err != nil {
		h.writeRepoError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"conversation": &conv})
}

func (h *ConversationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	if err := h.Repo.DeleteAll(r.Context()); err != nil {
		h.writeRepoError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ConversationHandler) writeRepoError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, conversation.ErrConversationNotFound):
		writeError(w, "Conversation not found", http.StatusNotFound)
	case errors.Is(err, conversation.ErrInvalidConversation):
		writeError(w, err.Error(), http.StatusBadRequest)
	default:
		h.logger.Error("conversation repository failed", "error", err)
		writeError(w, "Database error", http.StatusInternalServerError)
	}
}
