package relay

import (
	"context"
	"fmt"
	"log"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mudouban/ai-asks-human/backend/internal/config"
	"github.com/mudouban/ai-asks-human/backend/internal/model/chat"
	"github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
)

// Reply is the normalized provider response: the first completion choice's
// message plus a finished flag that is true exactly on a natural stop.
type Reply struct {
	Content   string          `json:"content"`
	ToolCalls []chat.ToolCall `json:"tool_calls,omitempty"`
	Finished  bool            `json:"finished"`
}

// SurveyCall returns the first AskUserQuestion invocation in the reply, if
// any. Invocations of unrecognized functions are kept in the transcript but
// never open a survey.
func (r Reply) SurveyCall() (chat.ToolCall, bool) {
	for _, call := range r.ToolCalls {
		if call.Function.Name == ToolName {
			return call, true
		}
	}
	return chat.ToolCall{}, false
}

// Service is the stateless chat relay: it translates a scenario plus the
// ordered transcript into one completion request and normalizes the reply.
// It never retries and returns one complete response per call.
type Service struct {
	chatModel model.ToolCallingChatModel
}

// NewService builds the relay on top of the configured provider, binding the
// AskUserQuestion tool schema to the model. The client is constructed once
// and reused for every request.
func NewService(ctx context.Context, cfg config.AIConfig) (*Service, error) {
	base, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("create chat model: %w", err)
	}

	bound, err := base.WithTools([]*schema.ToolInfo{askUserQuestionTool()})
	if err != nil {
		return nil, fmt.Errorf("bind AskUserQuestion tool: %w", err)
	}

	return &Service{chatModel: bound}, nil
}

// Complete issues a single completion request for the given scenario and
// transcript. The scenario system prompt is prepended; transcript messages
// are mapped to the wire shape by kind. Any transport or provider error
// surfaces as-is for the caller to log; no partial delivery happens.
func (s *Service) Complete(ctx context.Context, sc scenario.Scenario, history []chat.Message) (Reply, error) {
	messages := make([]*schema.Message, 0, len(history)+1)
	messages = append(messages, schema.SystemMessage(BuildSystemPrompt(sc)))
	for _, m := range history {
		messages = append(messages, toSchemaMessage(m))
	}

	response, err := s.chatModel.Generate(ctx, messages)
	if err != nil {
		return Reply{}, fmt.Errorf("generate completion: %w", err)
	}

	reply := normalizeReply(response)
	log.Printf("[relay] scenario=%s messages=%d tool_calls=%d finished=%t",
		sc.ID, len(messages), len(reply.ToolCalls), reply.Finished)
	return reply, nil
}

// toSchemaMessage maps an application message onto the provider wire shape.
// Content absence is already normalized: the zero value is the empty string
// the provider expects.
func toSchemaMessage(m chat.Message) *schema.Message {
	switch m.Kind() {
	case chat.KindAssistantToolCall:
		return &schema.Message{
			Role:      schema.Assistant,
			Content:   m.Content,
			ToolCalls: toSchemaToolCalls(m.ToolCalls),
		}
	case chat.KindToolResult:
		return schema.ToolMessage(m.Content, m.ToolCallID)
	default:
		switch m.Role {
		case chat.RoleSystem:
			return schema.SystemMessage(m.Content)
		case chat.RoleAssistant:
			return schema.AssistantMessage(m.Content, nil)
		default:
			return schema.UserMessage(m.Content)
		}
	}
}

func toSchemaToolCalls(calls []chat.ToolCall) []schema.ToolCall {
	converted := make([]schema.ToolCall, 0, len(calls))
	for _, call := range calls {
		converted = append(converted, schema.ToolCall{
			ID:   call.ID,
			Type: call.Type,
			Function: schema.FunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}
	return converted
}

// normalizeReply extracts the message content, tool calls and finish signal
// from the provider response. Finished is true only for a natural stop: a
// tool-invocation stop keeps the turn open.
func normalizeReply(response *schema.Message) Reply {
	reply := Reply{Content: response.Content}

	for _, call := range response.ToolCalls {
		callType := call.Type
		if callType == "" {
			callType = "function"
		}
		reply.ToolCalls = append(reply.ToolCalls, chat.ToolCall{
			ID:   call.ID,
			Type: callType,
			Function: chat.FunctionCall{
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		})
	}

	if response.ResponseMeta != nil {
		reply.Finished = response.ResponseMeta.FinishReason == "stop" && len(reply.ToolCalls) == 0
	}
	return reply
}
