package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/iyunix/go-juri/internal/domain"
	"github.com/iyunix/go-juri/internal/services/chat"
	"github.com/iyunix/go-juri/internal/services/completion"
	"github.com/iyunix/go-juri/internal/services/render"
)

const (
	// multipart overhead allowed on top of the upload limit
	formOverhead  = 1 << 20
	maxImportSize = 50 << 20
)

// Logger is the structured logger used by the handlers.
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
	Debug(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
}

type ChatHandler struct {
	Controller *chat.Controller
	Renderer   *render.Renderer
	MaxUpload  int64
	logger     Logger
}

func NewChatHandler(controller *chat.Controller, renderer *render.Renderer, maxUpload int64, logger Logger) *ChatHandler {
	return &ChatHandler{
		Controller: controller,
		Renderer:   renderer,
		MaxUpload:  maxUpload,
		logger:     logger,
	}
}

type messageRequest struct {
	Message string `json:"message"`
}

// messageView is a message plus its rendered HTML.
type messageView struct {
	*domain.Message
	HTML string `json:"html"`
}

type conversationView struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []messageView `json:"messages"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
	Active    bool          `json:"active"`
}

type turnResponse struct {
	ConversationID string       `json:"conversationId"`
	Status         string       `json:"status"`
	Regenerated    bool         `json:"regenerated,omitempty"`
	Reply          *messageView `json:"reply,omitempty"`
}

func (h *ChatHandler) view(conv *domain.Conversation, active bool) conversationView {
	v := conversationView{
		ID:        conv.ID,
		Title:     conv.Title,
		Messages:  make([]messageView, 0, len(conv.Messages)),
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
		Active:    active,
	}
	for _, m := range conv.Messages {
		v.Messages = append(v.Messages, h.messageView(m))
	}
	return v
}

func (h *ChatHandler) messageView(m *domain.Message) messageView {
	return messageView{Message: m, HTML: h.Renderer.SafeHTML(m.Text)}
}

// GetState returns the controller status.
func (h *ChatHandler) GetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Controller.Status())
}

// ListChats returns conversation summaries in collection order.
func (h *ChatHandler) ListChats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"chats": h.Controller.Conversations(),
	})
}

func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	conv, err := h.Controller.NewChat()
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.view(conv, true))
}

func (h *ChatHandler) GetChat(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conv, err := h.Controller.Conversation(id)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.view(conv, h.Controller.Status().ActiveID == id))
}

func (h *ChatHandler) ActivateChat(w http.ResponseWriter, r *http.Request) {
	if err := h.Controller.SwitchChat(mux.Vars(r)["id"]); err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, h.Controller.Status())
}

func (h *ChatHandler) DeleteChat(w http.ResponseWriter, r *http.Request) {
	if err := h.Controller.DeleteConversation(mux.Vars(r)["id"]); err != nil {
		writeChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) DeleteAllChats(w http.ResponseWriter, r *http.Request) {
	if err := h.Controller.DeleteAll(); err != nil {
		writeChatError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetMessagePlain returns the raw text of a message for copying.
func (h *ChatHandler) GetMessagePlain(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	msg, err := h.Controller.Message(vars["id"], vars["mid"])
	if err != nil {
		writeChatError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	io.WriteString(w, msg.Text)
}

func (h *ChatHandler) ExportChats(w http.ResponseWriter, r *http.Request) {
	data, err := h.Controller.Export()
	if err != nil {
		h.logger.Error("export failed", "error", err)
		writeError(w, "Could not export chats", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="juri-chats.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (h *ChatHandler) ImportChats(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxImportSize))
	if err != nil {
		writeError(w, "Import file too large or unreadable", http.StatusRequestEntityTooLarge)
		return
	}
	n, err := h.Controller.Import(data)
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"imported": n})
}

// Send accepts JSON {"message"} or a multipart form with "message" and a "data" file.
// The reply arrives on the event stream; with ?wait=true the handler waits for it.
func (h *ChatHandler) Send(w http.ResponseWriter, r *http.Request) {
	text, file, err := h.readSendRequest(w, r)
	if err != nil {
		writeChatError(w, err)
		return
	}

	turn, err := h.Controller.Send(r.Context(), text, file)
	if err != nil {
		writeChatError(w, err)
		return
	}
	h.respondTurn(w, r, turn)
}

func (h *ChatHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"cancelled": h.Controller.Cancel()})
}

func (h *ChatHandler) BeginEdit(w http.ResponseWriter, r *http.Request) {
	text, err := h.Controller.BeginEdit(mux.Vars(r)["mid"])
	if err != nil {
		writeChatError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, messageRequest{Message: text})
}

func (h *ChatHandler) CommitEdit(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}
	turn, err := h.Controller.CommitEdit(r.Context(), req.Message)
	if err != nil {
		writeChatError(w, err)
		return
	}
	h.respondTurn(w, r, turn)
}

func (h *ChatHandler) CancelEdit(w http.ResponseWriter, r *http.Request) {
	h.Controller.CancelEdit()
	writeJSON(w, http.StatusOK, h.Controller.Status())
}

func (h *ChatHandler) Regenerate(w http.ResponseWriter, r *http.Request) {
	turn, err := h.Controller.Regenerate(r.Context(), mux.Vars(r)["mid"])
	if err != nil {
		writeChatError(w, err)
		return
	}
	h.respondTurn(w, r, turn)
}

func (h *ChatHandler) PutDraft(w http.ResponseWriter, r *http.Request) {
	var req messageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Bad Request", http.StatusBadRequest)
		return
	}
	h.Controller.SetDraft(req.Message)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ChatHandler) respondTurn(w http.ResponseWriter, r *http.Request, turn *chat.Turn) {
	resp := turnResponse{
		ConversationID: turn.ConversationID,
		Status:         "waiting",
		Regenerated:    turn.Regenerated,
	}
	if r.URL.Query().Get("wait") != "true" {
		writeJSON(w, http.StatusAccepted, resp)
		return
	}

	reply, err := turn.Wait(r.Context())
	if err != nil {
		// client went away; the turn keeps running
		return
	}
	resp.Status = "done"
	if reply == nil {
		resp.Status = "dropped"
	} else {
		v := h.messageView(reply)
		resp.Reply = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *ChatHandler) readSendRequest(w http.ResponseWriter, r *http.Request) (string, *completion.Attachment, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", nil, domain.NewValidationError("send_message", "invalid request body")
		}
		return req.Message, nil, nil
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUpload+formOverhead)
	if err := r.ParseMultipartForm(h.MaxUpload + formOverhead); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return "", nil, domain.NewUnsupportedFileError("send_message",
				fmt.Sprintf("File size too large. Maximum size is %dMB.", h.MaxUpload/(1024*1024)))
		}
		return "", nil, domain.NewValidationError("send_message", "malformed multipart form")
	}
	defer r.MultipartForm.RemoveAll()

	text := r.FormValue("message")
	part, header, err := r.FormFile("data")
	if errors.Is(err, http.ErrMissingFile) {
		return text, nil, nil
	}
	if err != nil {
		return "", nil, domain.NewValidationError("send_message", "could not read uploaded file")
	}
	defer part.Close()

	data, err := io.ReadAll(part)
	if err != nil {
		return "", nil, domain.NewValidationError("send_message", "could not read uploaded file")
	}
	return text, &completion.Attachment{Name: header.Filename, Data: data}, nil
}

// writeJSON is a helper for sending JSON responses.
func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError is a helper for sending JSON error responses.
func writeError(w http.ResponseWriter, message string, status int) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeChatError maps controller and model errors to status codes.
func writeChatError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrRequestInFlight), errors.Is(err, domain.ErrNoActiveConversation):
		writeError(w, capitalize(err.Error()), http.StatusConflict)
		return
	case errors.Is(err, chat.ErrClosed):
		writeError(w, "Service is shutting down", http.StatusServiceUnavailable)
		return
	}

	var chatErr *domain.ChatError
	if !errors.As(err, &chatErr) {
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	switch chatErr.Kind {
	case domain.ErrKindValidation:
		writeError(w, chatErr.Message, http.StatusBadRequest)
	case domain.ErrKindUnsupportedFile:
		writeError(w, chatErr.Message, http.StatusUnprocessableEntity)
	case domain.ErrKindNotFound:
		writeError(w, chatErr.Message, http.StatusNotFound)
	case domain.ErrKindStorage:
		writeError(w, chatErr.Message, http.StatusServiceUnavailable)
	default:
		writeError(w, chatErr.Message, http.StatusBadGateway)
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
