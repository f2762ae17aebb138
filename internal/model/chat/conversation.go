package chat

import (
	"time"

	"github.com/google/uuid"
)

// Conversation is the append-only transcript for one scenario session. The
// message order is chronological and replayed verbatim to the model on every
// turn, so it is semantically significant.
type Conversation struct {
	ID         string    `json:"id"`
	ScenarioID string    `json:"scenarioId"`
	Messages   []Message `json:"messages"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// NewConversation creates a conversation seeded with the scenario's opening
// question as the first assistant message.
func NewConversation(scenarioID, openingQuestion string) Conversation {
	now := time.Now().UTC()
	return Conversation{
		ID:         uuid.NewString(),
		ScenarioID: scenarioID,
		Messages:   []Message{NewAssistantMessage(openingQuestion, nil)},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Append adds a message to the transcript and bumps the update timestamp.
func (c *Conversation) Append(m Message) {
	c.Messages = append(c.Messages, m)
	c.UpdatedAt = time.Now().UTC()
}

// HasToolCall reports whether an assistant message in the transcript emitted
// a tool invocation with the given identifier.
func (c Conversation) HasToolCall(id string) bool {
	for _, m := range c.Messages {
		if m.Kind() != KindAssistantToolCall {
			continue
		}
		for _, tc := range m.ToolCalls {
			if tc.ID == id {
				return true
			}
		}
	}
	return false
}

// Clone returns a deep copy so callers cannot mutate stored state.
func (c Conversation) Clone() Conversation {
	copied := c
	copied.Messages = make([]Message, len(c.Messages))
	for i, m := range c.Messages {
		m.ToolCalls = append([]ToolCall(nil), m.ToolCalls...)
		copied.Messages[i] = m
	}
	return copied
}
