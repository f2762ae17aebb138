package chat

import (
	"time"

	"github.com/google/uuid"
)

// Role identifies the author of a transcript message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FunctionCall carries the function name and its JSON-encoded arguments
// exactly as emitted by the provider.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolCall is a single tool invocation attached to an assistant message.
// Type is always "function" for the providers we talk to.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// Kind classifies a message into one of the three shapes the wire mapping
// has to distinguish. Modelling the shape explicitly keeps invalid
// combinations (a tool result without a back-reference, tool calls on a user
// message) out of the relay.
type Kind int

const (
	// KindPlain is a system/user/assistant message carrying only text.
	KindPlain Kind = iota
	// KindAssistantToolCall is an assistant message carrying tool invocations.
	KindAssistantToolCall
	// KindToolResult is the reply to a tool invocation, back-referencing it.
	KindToolResult
)

// Message persists a single conversation turn.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// Kind reports the wire shape of the message.
func (m Message) Kind() Kind {
	switch {
	case m.Role == RoleAssistant && len(m.ToolCalls) > 0:
		return KindAssistantToolCall
	case m.Role == RoleTool:
		return KindToolResult
	default:
		return KindPlain
	}
}

// NewUserMessage builds a user turn with a fresh identifier.
func NewUserMessage(content string) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleUser,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
}

// NewAssistantMessage builds an assistant turn. toolCalls may be nil for a
// plain text reply; content may be empty when the turn only carries calls.
func NewAssistantMessage(content string, toolCalls []ToolCall) Message {
	return Message{
		ID:        uuid.NewString(),
		Role:      RoleAssistant,
		Content:   content,
		ToolCalls: append([]ToolCall(nil), toolCalls...),
		CreatedAt: time.Now().UTC(),
	}
}

// NewToolResultMessage builds the reply to a tool invocation. toolCallID must
// reference a call previously emitted by an assistant message in the same
// conversation; the controller enforces that invariant.
func NewToolResultMessage(content, toolCallID string) Message {
	return Message{
		ID:         uuid.NewString(),
		Role:       RoleTool,
		Content:    content,
		ToolCallID: toolCallID,
		CreatedAt:  time.Now().UTC(),
	}
}
