package relay

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/mudouban/ai-asks-human/backend/internal/model/chat"
	"github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
)

// fakeChatModel scripts one provider response and records the request.
type fakeChatModel struct {
	response  *schema.Message
	err       error
	lastInput []*schema.Message
}

func (m *fakeChatModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.lastInput = input
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

func (m *fakeChatModel) Stream(_ context.Context, _ []*schema.Message, _ ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("streaming not supported")
}

func (m *fakeChatModel) WithTools(_ []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

func testScenario() scenario.Scenario {
	return scenario.Scenario{
		ID:              "career-advice",
		Name:            "职业建议",
		SystemPrompt:    "你是一位经验丰富的职业顾问。",
		InitialQuestion: "最近工作上有什么想聊的吗？",
	}
}

func TestCompletePrependsSystemPrompt(t *testing.T) {
	fake := &fakeChatModel{response: &schema.Message{
		Role:         schema.Assistant,
		Content:      "说说看。",
		ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"},
	}}
	svc := &Service{chatModel: fake}

	history := []chat.Message{chat.NewUserMessage("我想换工作")}
	reply, err := svc.Complete(context.Background(), testScenario(), history)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}

	if len(fake.lastInput) != 2 {
		t.Fatalf("expected system prompt + 1 message, got %d", len(fake.lastInput))
	}
	system := fake.lastInput[0]
	if system.Role != schema.System {
		t.Fatalf("first message must be the system prompt, got role %s", system.Role)
	}
	if !strings.Contains(system.Content, "职业顾问") {
		t.Fatalf("system prompt missing scenario prompt: %q", system.Content)
	}
	if fake.lastInput[1].Role != schema.User || fake.lastInput[1].Content != "我想换工作" {
		t.Fatalf("unexpected user message: %+v", fake.lastInput[1])
	}

	if !reply.Finished {
		t.Fatal("natural stop without tool calls must set Finished")
	}
}

func TestCompleteMapsToolTurns(t *testing.T) {
	fake := &fakeChatModel{response: &schema.Message{
		Role:         schema.Assistant,
		Content:      "好的",
		ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"},
	}}
	svc := &Service{chatModel: fake}

	call := chat.ToolCall{
		ID:   "call-1",
		Type: "function",
		Function: chat.FunctionCall{
			Name:      ToolName,
			Arguments: `{"questions":[]}`,
		},
	}
	history := []chat.Message{
		chat.NewUserMessage("帮我决定"),
		chat.NewAssistantMessage("", []chat.ToolCall{call}),
		chat.NewToolResultMessage(`{"question_0":"a"}`, "call-1"),
	}

	if _, err := svc.Complete(context.Background(), testScenario(), history); err != nil {
		t.Fatalf("Complete err: %v", err)
	}

	assistant := fake.lastInput[2]
	if assistant.Role != schema.Assistant || len(assistant.ToolCalls) != 1 {
		t.Fatalf("assistant tool-call message not mapped: %+v", assistant)
	}
	if assistant.ToolCalls[0].ID != "call-1" || assistant.ToolCalls[0].Function.Name != ToolName {
		t.Fatalf("unexpected mapped tool call: %+v", assistant.ToolCalls[0])
	}

	result := fake.lastInput[3]
	if result.Role != schema.Tool || result.ToolCallID != "call-1" {
		t.Fatalf("tool result not mapped with back-reference: %+v", result)
	}
	if result.Content != `{"question_0":"a"}` {
		t.Fatalf("tool result content mangled: %q", result.Content)
	}
}

func TestCompleteNormalizesToolCalls(t *testing.T) {
	fake := &fakeChatModel{response: &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID: "call-9",
			// Some providers omit the type field.
			Function: schema.FunctionCall{Name: ToolName, Arguments: `{"questions":[]}`},
		}},
		ResponseMeta: &schema.ResponseMeta{FinishReason: "tool_calls"},
	}}
	svc := &Service{chatModel: fake}

	reply, err := svc.Complete(context.Background(), testScenario(), nil)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}

	if len(reply.ToolCalls) != 1 || reply.ToolCalls[0].Type != "function" {
		t.Fatalf("missing type must default to function: %+v", reply.ToolCalls)
	}
	if reply.Finished {
		t.Fatal("a tool-invocation stop keeps the turn open")
	}

	call, ok := reply.SurveyCall()
	if !ok || call.ID != "call-9" {
		t.Fatalf("SurveyCall should find the invocation: %+v ok=%t", call, ok)
	}
}

func TestCompleteStopWithToolCallsNotFinished(t *testing.T) {
	fake := &fakeChatModel{response: &schema.Message{
		Role: schema.Assistant,
		ToolCalls: []schema.ToolCall{{
			ID:       "call-2",
			Type:     "function",
			Function: schema.FunctionCall{Name: ToolName, Arguments: `{}`},
		}},
		ResponseMeta: &schema.ResponseMeta{FinishReason: "stop"},
	}}
	svc := &Service{chatModel: fake}

	reply, err := svc.Complete(context.Background(), testScenario(), nil)
	if err != nil {
		t.Fatalf("Complete err: %v", err)
	}
	if reply.Finished {
		t.Fatal("Finished requires a natural stop with no tool calls")
	}
}

func TestCompletePropagatesError(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("provider down")}
	svc := &Service{chatModel: fake}

	if _, err := svc.Complete(context.Background(), testScenario(), nil); err == nil {
		t.Fatal("expected provider error to surface")
	}
}

func TestSurveyCallIgnoresOtherFunctions(t *testing.T) {
	reply := Reply{ToolCalls: []chat.ToolCall{{
		ID:       "call-3",
		Type:     "function",
		Function: chat.FunctionCall{Name: "SomethingElse", Arguments: `{}`},
	}}}
	if _, ok := reply.SurveyCall(); ok {
		t.Fatal("unrecognized functions must not open a survey")
	}
}

func TestParseSurveyArguments(t *testing.T) {
	arguments := `{"questions":[{"question":"q","header":"h","options":[{"label":"a"},{"label":"b"}],"multiSelect":true}]}`
	questions, err := ParseSurveyArguments(arguments)
	if err != nil {
		t.Fatalf("ParseSurveyArguments err: %v", err)
	}
	if len(questions) != 1 || !questions[0].MultiSelect {
		t.Fatalf("unexpected questions: %+v", questions)
	}
}
