package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/mudouban/ai-asks-human/backend/internal/model/chat"
	"github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
	"github.com/mudouban/ai-asks-human/backend/internal/service/conversation"
	"github.com/mudouban/ai-asks-human/backend/internal/service/relay"
	"github.com/mudouban/ai-asks-human/backend/internal/store"
)

// countingRelay returns a fixed reply and counts provider calls.
type countingRelay struct {
	reply relay.Reply
	calls int
}

func (r *countingRelay) Complete(_ context.Context, _ scenario.Scenario, _ []chatmodel.Message) (relay.Reply, error) {
	r.calls++
	return r.reply, nil
}

func setupRouter(r Relay) (*chi.Mux, *conversation.Service) {
	scenarios := scenario.NewMemoryStore(scenario.Seed())
	var controllerRelay conversation.Relay
	if r != nil {
		controllerRelay = r
	}
	conversations := conversation.NewService(scenarios, store.NewMemoryStore(0), controllerRelay)
	handler := New(scenarios, r, conversations)

	mux := chi.NewRouter()
	handler.RegisterRoutes(mux)
	return mux, conversations
}

func postJSON(t *testing.T, mux *chi.Mux, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal body: %v", err)
	}
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)
	return resp
}

func TestChatUnknownScenarioNeverReachesModel(t *testing.T) {
	fake := &countingRelay{}
	mux, _ := setupRouter(fake)

	resp := postJSON(t, mux, "/chat", map[string]any{
		"scenarioId": "non-existent",
		"messages":   []map[string]string{{"role": "user", "content": "你好"}},
	})

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
	if fake.calls != 0 {
		t.Fatalf("provider must not be called for an unknown scenario, got %d calls", fake.calls)
	}
}

func TestChatInvalidBody(t *testing.T) {
	mux, _ := setupRouter(&countingRelay{})

	req := httptest.NewRequest(http.MethodPost, "/chat", bytes.NewReader([]byte("{not json")))
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestChatWithoutRelay(t *testing.T) {
	mux, _ := setupRouter(nil)

	resp := postJSON(t, mux, "/chat", map[string]any{"scenarioId": "career-advice"})
	if resp.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", resp.Code)
	}
}

func TestChatReturnsNormalizedReply(t *testing.T) {
	fake := &countingRelay{reply: relay.Reply{
		ToolCalls: []chatmodel.ToolCall{{
			ID:   "call-1",
			Type: "function",
			Function: chatmodel.FunctionCall{
				Name:      relay.ToolName,
				Arguments: `{"questions":[]}`,
			},
		}},
	}}
	mux, _ := setupRouter(fake)

	resp := postJSON(t, mux, "/chat", map[string]any{
		"scenarioId": "career-advice",
		"messages":   []map[string]string{{"role": "user", "content": "帮我选"}},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var decoded chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.Message.Role != chatmodel.RoleAssistant {
		t.Fatalf("unexpected role: %s", decoded.Message.Role)
	}
	if len(decoded.Message.ToolCalls) != 1 || decoded.Message.ToolCalls[0].ID != "call-1" {
		t.Fatalf("tool calls lost in transit: %+v", decoded.Message.ToolCalls)
	}
	if decoded.Finished {
		t.Fatal("a tool-call reply is not finished")
	}
}

func TestCreateConversation(t *testing.T) {
	mux, _ := setupRouter(nil)

	resp := postJSON(t, mux, "/conversations", map[string]string{"scenarioId": "career-advice"})
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.Code)
	}

	var created chatmodel.Conversation
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if created.ID == "" || len(created.Messages) != 1 {
		t.Fatalf("unexpected conversation: %+v", created)
	}
}

func TestCreateConversationUnknownScenario(t *testing.T) {
	mux, _ := setupRouter(nil)

	resp := postJSON(t, mux, "/conversations", map[string]string{"scenarioId": "nope"})
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestCreateConversationMissingScenarioID(t *testing.T) {
	mux, _ := setupRouter(nil)

	resp := postJSON(t, mux, "/conversations", map[string]string{})
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.Code)
	}
}

func TestGetConversation(t *testing.T) {
	mux, conversations := setupRouter(nil)

	created, err := conversations.Start(context.Background(), "career-advice")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/conversations/"+created.ID, nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	var decoded struct {
		Conversation chatmodel.Conversation `json:"conversation"`
		State        conversation.State     `json:"state"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if decoded.Conversation.ID != created.ID || decoded.State != conversation.StateIdle {
		t.Fatalf("unexpected response: %+v", decoded)
	}
}

func TestGetConversationNotFound(t *testing.T) {
	mux, _ := setupRouter(nil)

	req := httptest.NewRequest(http.MethodGet, "/conversations/missing", nil)
	resp := httptest.NewRecorder()
	mux.ServeHTTP(resp, req)

	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.Code)
	}
}

func TestSendMessageSurveyTurn(t *testing.T) {
	fake := &countingRelay{reply: relay.Reply{
		ToolCalls: []chatmodel.ToolCall{{
			ID:   "call-1",
			Type: "function",
			Function: chatmodel.FunctionCall{
				Name:      relay.ToolName,
				Arguments: `{"questions":[{"question":"更看重什么？","header":"优先级","options":[{"label":"薪资"},{"label":"成长"}],"multiSelect":false}]}`,
			},
		}},
	}}
	mux, conversations := setupRouter(fake)

	created, err := conversations.Start(context.Background(), "career-advice")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}

	resp := postJSON(t, mux, "/conversations/"+created.ID+"/messages", map[string]string{"content": "我在纠结"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result conversation.TurnResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(result.Questions) != 1 || result.ToolCallID != "call-1" {
		t.Fatalf("expected an open survey, got %+v", result)
	}

	// A second free-text message conflicts with the open survey.
	resp = postJSON(t, mux, "/conversations/"+created.ID+"/messages", map[string]string{"content": "再说一句"})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}

func TestSubmitAnswersRESTPath(t *testing.T) {
	surveyReply := relay.Reply{
		ToolCalls: []chatmodel.ToolCall{{
			ID:   "call-1",
			Type: "function",
			Function: chatmodel.FunctionCall{
				Name:      relay.ToolName,
				Arguments: `{"questions":[{"question":"哪些因素？","header":"因素","options":[{"label":"A"},{"label":"B"}],"multiSelect":true}]}`,
			},
		}},
	}
	fake := &countingRelay{reply: surveyReply}
	mux, conversations := setupRouter(fake)

	created, _ := conversations.Start(context.Background(), "career-advice")
	resp := postJSON(t, mux, "/conversations/"+created.ID+"/messages", map[string]string{"content": "开始"})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}

	// The follow-up turn closes with plain text.
	fake.reply = relay.Reply{Content: "明白了", Finished: true}

	resp = postJSON(t, mux, "/conversations/"+created.ID+"/answers", map[string]any{
		"answers": map[string]any{"question_0": []string{"A", "自定义补充"}},
	})
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", resp.Code, resp.Body.String())
	}

	var result conversation.TurnResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !result.Finished || len(result.Questions) != 0 {
		t.Fatalf("expected a finished closing turn, got %+v", result)
	}
}

func TestSubmitAnswersWithoutSurvey(t *testing.T) {
	mux, conversations := setupRouter(&countingRelay{})

	created, _ := conversations.Start(context.Background(), "career-advice")
	resp := postJSON(t, mux, "/conversations/"+created.ID+"/answers", map[string]any{
		"answers": map[string]any{"question_0": "a"},
	})
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.Code)
	}
}
