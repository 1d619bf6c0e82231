package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

func TestNewConversationSeedsWelcome(t *testing.T) {
	c := NewConversation("c1", "Chat 1", t0)

	require.Len(t, c.Messages, 1)
	assert.True(t, c.Messages[0].IsWelcome)
	assert.Equal(t, OriginAssistant, c.Messages[0].Origin)
	assert.Equal(t, 0, c.UserMessageCount())
	assert.Equal(t, "Chat 1", c.Title)
}

func TestAppendDerivesTitleOnce(t *testing.T) {
	c := NewConversation("c1", "Chat 1", t0)

	c.Append(NewUserMessage("Hello", "", t0.Add(time.Second)))
	assert.Equal(t, "Hello", c.Title)
	assert.Equal(t, t0.Add(time.Second), c.UpdatedAt)

	c.Append(NewAssistantMessage("Hi there", EndpointQuery, t0.Add(2*time.Second)))
	c.Append(NewUserMessage("Second question", "", t0.Add(3*time.Second)))
	assert.Equal(t, "Hello", c.Title)
}

func TestAppendKeepsPlaceholderForFileOnlyTurn(t *testing.T) {
	c := NewConversation("c1", "Chat 1", t0)
	c.Append(NewUserMessage("", "contract.pdf", t0))
	assert.Equal(t, "Chat 1", c.Title)
}

func TestDeriveTitleTruncatesLongText(t *testing.T) {
	text := strings.Repeat("abcdefghijk", 5) // 55 chars
	c := NewConversation("c1", "Chat 1", t0)
	c.Append(NewUserMessage(text, "", t0))

	assert.Len(t, c.Title, 43)
	assert.True(t, strings.HasPrefix(text, strings.TrimSuffix(c.Title, "...")))
	assert.True(t, strings.HasSuffix(c.Title, "..."))
}

func TestDeriveTitleIsRuneSafe(t *testing.T) {
	text := strings.Repeat("ä", 41)
	title := DeriveTitle(text)
	assert.Equal(t, strings.Repeat("ä", 40)+"...", title)
	assert.Equal(t, "short", DeriveTitle("short"))
}

func buildConversation(turns int) *Conversation {
	c := NewConversation("c1", "Chat 1", t0)
	for i := 0; i < turns; i++ {
		c.Append(NewUserMessage("question", "", t0))
		c.Append(NewAssistantMessage("answer", EndpointQuery, t0))
	}
	return c
}

func TestEditMessageTruncatesDownstream(t *testing.T) {
	c := buildConversation(3)
	target := c.Messages[3] // second user message

	edited, err := c.EditMessage(target.ID, "  revised  ", t0.Add(time.Minute))
	require.NoError(t, err)

	assert.Equal(t, "revised", edited.Text)
	assert.True(t, edited.Edited)
	require.NotNil(t, edited.EditedAt)
	assert.Len(t, c.Messages, 4)
	assert.Equal(t, target.ID, c.LastMessage().ID)
}

func TestEditMessageRejections(t *testing.T) {
	c := buildConversation(1)

	_, err := c.EditMessage(c.Messages[1].ID, "   ", t0)
	assert.True(t, IsKind(err, ErrKindValidation))

	_, err = c.EditMessage(c.Messages[2].ID, "text", t0)
	assert.True(t, IsKind(err, ErrKindValidation))

	_, err = c.EditMessage("missing", "text", t0)
	assert.True(t, IsKind(err, ErrKindNotFound))

	assert.Len(t, c.Messages, 3)
	assert.False(t, c.Messages[1].Edited)
}

func TestTruncateAfter(t *testing.T) {
	c := buildConversation(2)

	c.TruncateAfter(10, t0)
	assert.Len(t, c.Messages, 5)

	c.TruncateAfter(2, t0)
	assert.Len(t, c.Messages, 3)

	c.TruncateAfter(-5, t0)
	assert.Empty(t, c.Messages)
}

func TestPrecedingUserMessage(t *testing.T) {
	c := buildConversation(2)

	assert.Equal(t, 3, c.PrecedingUserMessage(4))
	assert.Equal(t, 1, c.PrecedingUserMessage(2))
	assert.Equal(t, -1, c.PrecedingUserMessage(0))
}

func TestCloneIsDeep(t *testing.T) {
	c := buildConversation(1)
	_, err := c.EditMessage(c.Messages[1].ID, "changed", t0)
	require.NoError(t, err)

	cp := c.Clone()
	cp.Messages[1].Text = "other"
	*cp.Messages[1].EditedAt = t0.Add(time.Hour)

	assert.Equal(t, "changed", c.Messages[1].Text)
	assert.Equal(t, t0, *c.Messages[1].EditedAt)
}

func TestMessageJSONUsesLegacyFieldNames(t *testing.T) {
	msg := NewAssistantMessage("Hi", EndpointDocument, t0)

	raw, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"from":"assistant"`)
	assert.Contains(t, string(raw), `"webhookUsed":"document"`)

	var legacy Message
	require.NoError(t, json.Unmarshal([]byte(`{"id":"1","from":"ai","text":"x","timestamp":"2025-03-01T12:00:00Z"}`), &legacy))
	assert.Equal(t, OriginAssistant, legacy.Origin)

	var bad Message
	assert.Error(t, json.Unmarshal([]byte(`{"from":"system"}`), &bad))
}

func TestMessageCapabilities(t *testing.T) {
	user := NewUserMessage("q", "", t0)
	reply := NewAssistantMessage("a", EndpointQuery, t0)
	welcome := NewWelcomeMessage(t0)

	assert.True(t, user.Editable())
	assert.False(t, user.Regenerable())
	assert.False(t, reply.Editable())
	assert.True(t, reply.Regenerable())
	assert.False(t, welcome.Regenerable())
}
