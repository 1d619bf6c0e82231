package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/iyunix/go-juri/internal/domain"
	"github.com/iyunix/go-juri/internal/services/completion"
	"github.com/iyunix/go-juri/internal/services/store"
)

// Controller owns the conversation collection and runs every turn against the
// completion backend. All mutations go through c.mu; at most one request is in flight.
type Controller struct {
	config    *Config
	store     store.Store
	completer completion.Completer
	logger    Logger

	mu       sync.Mutex
	convs    *domain.Collection
	draft    string
	editing  *editState
	inflight *inflight
	closed   bool
	pending  []Event

	hookMu   sync.RWMutex
	onChange func(Event)

	wg           sync.WaitGroup
	stopAutosave chan struct{}
	autosaveDone chan struct{}
}

type editState struct {
	conversationID string
	messageID      string
	savedDraft     string
}

type inflight struct {
	conversationID string
	cancel         context.CancelFunc
	turn           *Turn
}

// NewController loads the stored conversations and starts autosave. Load failures are
// logged and the controller starts empty.
func NewController(ctx context.Context, config *Config, st store.Store, completer completion.Completer, logger Logger) (*Controller, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid chat config: %w", err)
	}
	if config.Clock == nil {
		config.Clock = func() time.Time { return time.Now().UTC() }
	}

	convs, err := st.LoadAll(ctx)
	if err != nil {
		logger.Error("failed to load conversations, starting empty", "error", err)
		convs = nil
	}

	c := &Controller{
		config:    config,
		store:     st,
		completer: completer,
		logger:    logger,
		convs:     domain.NewCollection(convs),
	}
	logger.Info("chat controller ready", "conversations", c.convs.Len())

	if config.AutosaveInterval > 0 {
		c.stopAutosave = make(chan struct{})
		c.autosaveDone = make(chan struct{})
		go c.autosaveLoop(config.AutosaveInterval)
	}
	return c, nil
}

// OnChange installs the single change hook. It is called outside the controller lock,
// possibly from the goroutine that completed a request.
func (c *Controller) OnChange(fn func(Event)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onChange = fn
}

// NewChat creates a conversation and makes it active.
func (c *Controller) NewChat() (*domain.Conversation, error) {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return nil, ErrClosed
	}
	c.cancelEditLocked()
	conv := c.convs.Create(c.now())
	c.persistLocked()
	c.emit(EventChanged, conv.ID, nil)
	return conv.Clone(), nil
}

// SwitchChat activates another conversation. A pending request keeps running against
// the conversation it was issued for.
func (c *Controller) SwitchChat(id string) error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.convs.Activate(id); err != nil {
		return err
	}
	c.cancelEditLocked()
	c.emit(EventChanged, id, nil)
	return nil
}

// Send appends the user's message and issues the request. While editing, Send commits
// the edit instead. Validation happens before anything is mutated.
func (c *Controller) Send(ctx context.Context, text string, file *completion.Attachment) (*Turn, error) {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.editing != nil {
		if file != nil {
			return nil, domain.NewValidationError("send_message", "attachments cannot be added while editing a message")
		}
		return c.commitEditLocked(ctx, text)
	}
	if c.inflight != nil {
		return nil, domain.ErrRequestInFlight
	}

	text = strings.TrimSpace(text)
	if text == "" && file == nil {
		return nil, domain.NewValidationError("send_message", "message text or a file is required")
	}
	fileName := ""
	if file != nil {
		if err := completion.ValidateAttachment(c.config.Files, file.Name, int64(len(file.Data))); err != nil {
			var chatErr *domain.ChatError
			if errors.As(err, &chatErr) {
				c.noticeLocked(NoticeError, chatErr.Message)
			}
			return nil, err
		}
		fileName = file.Name
	}

	conv := c.convs.Active()
	if conv == nil {
		conv = c.convs.Create(c.now())
	}
	conv.Append(domain.NewUserMessage(text, fileName, c.now()))
	c.draft = ""

	c.persistLocked()
	c.emit(EventChanged, conv.ID, nil)

	return c.dispatchLocked(ctx, conv.ID, &completion.Request{
		Text:           text,
		File:           file,
		ConversationID: conv.ID,
	}, false), nil
}

// BeginEdit loads a user message into the draft. The current draft is restored by
// CancelEdit.
func (c *Controller) BeginEdit(messageID string) (string, error) {
	c.mu.Lock()
	defer c.unlock()

	if c.inflight != nil {
		return "", domain.ErrRequestInFlight
	}
	conv := c.convs.Active()
	if conv == nil {
		return "", domain.ErrNoActiveConversation
	}
	msg, ok := conv.Message(messageID)
	if !ok {
		return "", domain.NewNotFoundError("edit_message", "message not found")
	}
	if !msg.Editable() {
		return "", domain.NewValidationError("edit_message", "only user messages can be edited")
	}

	saved := c.draft
	if c.editing != nil {
		saved = c.editing.savedDraft
	}
	c.editing = &editState{conversationID: conv.ID, messageID: msg.ID, savedDraft: saved}
	c.draft = msg.Text
	c.emit(EventChanged, conv.ID, nil)
	return msg.Text, nil
}

// CommitEdit replaces the edited message's text, drops everything after it and
// re-issues it as a new turn.
func (c *Controller) CommitEdit(ctx context.Context, text string) (*Turn, error) {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return nil, ErrClosed
	}
	return c.commitEditLocked(ctx, text)
}

func (c *Controller) commitEditLocked(ctx context.Context, text string) (*Turn, error) {
	if c.editing == nil {
		return nil, domain.NewValidationError("edit_message", "no edit in progress")
	}
	if c.inflight != nil {
		return nil, domain.ErrRequestInFlight
	}

	conv, ok := c.convs.Find(c.editing.conversationID)
	if !ok {
		c.editing = nil
		return nil, domain.NewNotFoundError("edit_message", "conversation not found")
	}
	msg, err := conv.EditMessage(c.editing.messageID, text, c.now())
	if err != nil {
		return nil, err
	}

	c.editing = nil
	c.draft = ""
	c.persistLocked()
	c.emit(EventChanged, conv.ID, nil)
	c.noticeLocked(NoticeSuccess, "Message updated")

	return c.dispatchLocked(ctx, conv.ID, &completion.Request{
		Text:           msg.Text,
		ConversationID: conv.ID,
	}, false), nil
}

// CancelEdit leaves editing and restores the draft that was there before.
func (c *Controller) CancelEdit() {
	c.mu.Lock()
	defer c.unlock()

	if c.editing == nil {
		return
	}
	id := c.editing.conversationID
	c.cancelEditLocked()
	c.emit(EventChanged, id, nil)
}

func (c *Controller) cancelEditLocked() {
	if c.editing == nil {
		return
	}
	c.draft = c.editing.savedDraft
	c.editing = nil
}

// Regenerate removes an assistant reply and everything after it, then resends the
// nearest preceding user message without its file.
func (c *Controller) Regenerate(ctx context.Context, messageID string) (*Turn, error) {
	c.mu.Lock()
	defer c.unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if c.inflight != nil {
		return nil, domain.ErrRequestInFlight
	}
	conv := c.convs.Active()
	if conv == nil {
		return nil, domain.ErrNoActiveConversation
	}
	idx := conv.MessageIndex(messageID)
	if idx < 0 {
		return nil, domain.NewNotFoundError("regenerate", "message not found")
	}
	if !conv.Messages[idx].Regenerable() {
		return nil, domain.NewValidationError("regenerate", "only assistant replies can be regenerated")
	}
	prev := conv.PrecedingUserMessage(idx)
	if prev < 0 {
		return nil, domain.NewValidationError("regenerate", "no user message to regenerate from")
	}
	text := conv.Messages[prev].Text
	if strings.TrimSpace(text) == "" {
		return nil, domain.NewValidationError("regenerate", "the original message only had a file attached; send the file again")
	}

	c.cancelEditLocked()
	conv.TruncateAfter(idx-1, c.now())
	c.persistLocked()
	c.emit(EventChanged, conv.ID, nil)

	return c.dispatchLocked(ctx, conv.ID, &completion.Request{
		Text:           text,
		ConversationID: conv.ID,
	}, true), nil
}

// Cancel stops the in-flight request. It reports whether there was one.
func (c *Controller) Cancel() bool {
	c.mu.Lock()
	defer c.unlock()

	if c.inflight == nil {
		return false
	}
	c.inflight.cancel()
	return true
}

// DeleteConversation removes a conversation unless it owns the pending request.
func (c *Controller) DeleteConversation(id string) error {
	c.mu.Lock()
	defer c.unlock()

	if c.inflight != nil && c.inflight.conversationID == id {
		return domain.ErrRequestInFlight
	}
	if err := c.convs.Delete(id); err != nil {
		return err
	}
	if c.editing != nil && c.editing.conversationID == id {
		c.cancelEditLocked()
	}

	c.persistLocked()
	c.emit(EventChanged, c.convs.ActiveID(), nil)
	c.noticeLocked(NoticeSuccess, "Chat deleted successfully")
	return nil
}

// DeleteAll clears every conversation. Rejected while a request is in flight.
func (c *Controller) DeleteAll() error {
	c.mu.Lock()
	defer c.unlock()

	if c.inflight != nil {
		return domain.ErrRequestInFlight
	}
	c.cancelEditLocked()
	c.convs.DeleteAll()

	c.persistLocked()
	c.emit(EventChanged, "", nil)
	c.noticeLocked(NoticeSuccess, "All chats deleted")
	return nil
}

// Save writes the whole collection to the store now.
func (c *Controller) Save() error {
	c.mu.Lock()
	defer c.unlock()
	return c.persistLocked()
}

// Close stops autosave, cancels the pending request, waits for it and saves once more.
func (c *Controller) Close(ctx context.Context) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	if c.inflight != nil {
		c.inflight.cancel()
	}
	c.mu.Unlock()

	if c.stopAutosave != nil {
		close(c.stopAutosave)
		<-c.autosaveDone
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.unlock()
	return c.persistLocked()
}

// dispatchLocked starts the request on its own goroutine. The request outlives the
// caller's context but keeps its values.
func (c *Controller) dispatchLocked(ctx context.Context, conversationID string, req *completion.Request, regenerated bool) *Turn {
	reqCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	p := &inflight{
		conversationID: conversationID,
		cancel:         cancel,
		turn:           newTurn(conversationID, regenerated),
	}
	c.inflight = p
	c.emit(EventChanged, conversationID, nil)

	c.logger.Info("turn started", "conversation_id", conversationID,
		"has_file", req.File != nil, "regenerate", regenerated)

	c.wg.Add(1)
	go c.await(reqCtx, p, req)
	return p.turn
}

func (c *Controller) await(ctx context.Context, p *inflight, req *completion.Request) {
	defer c.wg.Done()
	defer p.cancel()

	res, err := c.completer.Complete(ctx, req)

	c.mu.Lock()
	defer c.unlock()

	if c.inflight == p {
		c.inflight = nil
	}

	conv, ok := c.convs.Find(p.conversationID)
	if !ok {
		c.logger.Warn("dropping reply for deleted conversation", "conversation_id", p.conversationID)
		c.emit(EventChanged, "", nil)
		p.turn.finish(nil)
		return
	}

	now := c.now()
	var msg *domain.Message
	if err != nil {
		c.logger.Error("turn failed", "conversation_id", conv.ID, "kind", domain.KindOf(err), "error", err)
		msg = domain.NewErrorMessage(FailureText(err), now)
	} else {
		c.logger.Info("turn completed", "conversation_id", conv.ID, "endpoint", res.Endpoint, "reply_length", len(res.Text))
		msg = domain.NewAssistantMessage(res.Text, res.Endpoint, now)
	}
	msg.Regenerated = p.turn.Regenerated
	conv.Append(msg)

	c.persistLocked()
	c.emit(EventChanged, conv.ID, nil)
	p.turn.finish(msg.Clone())
}

func (c *Controller) autosaveLoop(interval time.Duration) {
	defer close(c.autosaveDone)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := c.Save(); err == nil {
				c.logger.Debug("autosave completed")
			}
		case <-c.stopAutosave:
			return
		}
	}
}

// persistLocked writes a snapshot. Failures become a notice; in-memory state is kept.
func (c *Controller) persistLocked() error {
	ctx, cancel := context.WithTimeout(context.Background(), c.config.PersistTimeout)
	defer cancel()

	if err := c.store.Persist(ctx, c.convs.Snapshot()); err != nil {
		c.logger.Error("failed to persist conversations", "error", err)
		c.noticeLocked(NoticeError, "Could not save your chats. They remain available until the server restarts.")
		return err
	}
	return nil
}

func (c *Controller) noticeLocked(level NoticeLevel, text string) {
	c.pending = append(c.pending, Event{
		Kind:   EventNotice,
		Notice: &Notice{Level: level, Text: text},
		At:     c.now(),
	})
}

func (c *Controller) emit(kind EventKind, conversationID string, notice *Notice) {
	c.pending = append(c.pending, Event{Kind: kind, ConversationID: conversationID, Notice: notice, At: c.now()})
}

// unlock releases c.mu and then delivers the events queued while it was held.
func (c *Controller) unlock() {
	events := c.pending
	c.pending = nil
	c.mu.Unlock()

	if len(events) == 0 {
		return
	}
	c.hookMu.RLock()
	hook := c.onChange
	c.hookMu.RUnlock()
	if hook == nil {
		return
	}
	for _, e := range events {
		hook(e)
	}
}

func (c *Controller) now() time.Time {
	return c.config.Clock()
}
