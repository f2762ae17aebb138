package chat

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"

	chatmodel "github.com/mudouban/ai-asks-human/backend/internal/model/chat"
	"github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
	"github.com/mudouban/ai-asks-human/backend/internal/service/conversation"
	"github.com/mudouban/ai-asks-human/backend/internal/service/relay"
	"github.com/mudouban/ai-asks-human/backend/internal/store"
	"github.com/mudouban/ai-asks-human/backend/internal/survey"
	"github.com/mudouban/ai-asks-human/backend/pkg/utils"
)

// Relay abstracts the chat relay for the stateless /chat endpoint.
type Relay interface {
	Complete(ctx context.Context, sc scenario.Scenario, history []chatmodel.Message) (relay.Reply, error)
}

// Handler 聊天服务的HTTP处理器
type Handler struct {
	scenarios     scenario.Store
	relay         Relay
	conversations *conversation.Service
}

// New 创建聊天处理器。relay 可以为 nil（未配置模型凭证时服务降级运行）。
func New(scenarios scenario.Store, r Relay, conversations *conversation.Service) *Handler {
	return &Handler{
		scenarios:     scenarios,
		relay:         r,
		conversations: conversations,
	}
}

// RegisterRoutes 注册聊天相关的路由
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/chat", h.handleChat)
	r.Post("/conversations", h.handleCreateConversation)
	r.Get("/conversations/{conversationID}", h.handleGetConversation)
	r.Post("/conversations/{conversationID}/messages", h.handleSendMessage)
	r.Post("/conversations/{conversationID}/answers", h.handleSubmitAnswers)
}

// chatRequest is the stateless relay request: the client owns the transcript
// and replays it on every call.
type chatRequest struct {
	ScenarioID string              `json:"scenarioId"`
	Messages   []chatmodel.Message `json:"messages"`
}

// chatResponse mirrors the normalized relay reply.
type chatResponse struct {
	Message  assistantMessage `json:"message"`
	Finished bool             `json:"finished"`
}

type assistantMessage struct {
	Role      chatmodel.Role       `json:"role"`
	Content   string               `json:"content"`
	ToolCalls []chatmodel.ToolCall `json:"tool_calls,omitempty"`
}

// handleChat 无状态转发一次补全请求
func (h *Handler) handleChat(w http.ResponseWriter, r *http.Request) {
	var payload chatRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	// The scenario lookup happens before any provider call: an unknown id
	// must never reach the model.
	sc, ok := h.scenarios.FindByID(payload.ScenarioID)
	if !ok {
		utils.RespondError(w, http.StatusNotFound, "scenario not found")
		return
	}

	if h.relay == nil {
		utils.RespondError(w, http.StatusServiceUnavailable, "model relay unavailable")
		return
	}

	reply, err := h.relay.Complete(r.Context(), sc, payload.Messages)
	if err != nil {
		log.Printf("[chat] relay error: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	utils.RespondJSON(w, http.StatusOK, chatResponse{
		Message: assistantMessage{
			Role:      chatmodel.RoleAssistant,
			Content:   reply.Content,
			ToolCalls: reply.ToolCalls,
		},
		Finished: reply.Finished,
	})
}

// handleCreateConversation 为场景创建会话
func (h *Handler) handleCreateConversation(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		ScenarioID string `json:"scenarioId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if payload.ScenarioID == "" {
		utils.RespondError(w, http.StatusBadRequest, "scenarioId is required")
		return
	}

	created, err := h.conversations.Start(r.Context(), payload.ScenarioID)
	if err != nil {
		if errors.Is(err, conversation.ErrScenarioNotFound) {
			utils.RespondError(w, http.StatusNotFound, "scenario not found")
			return
		}
		log.Printf("[chat] create conversation: %v", err)
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	utils.RespondJSON(w, http.StatusCreated, created)
}

// conversationResponse bundles the transcript with the controller state so a
// reloading client knows whether a survey is still open.
type conversationResponse struct {
	Conversation chatmodel.Conversation `json:"conversation"`
	State        conversation.State     `json:"state"`
	Questions    []survey.Question      `json:"questions,omitempty"`
}

// handleGetConversation 读取会话及其当前状态
func (h *Handler) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	conv, state, err := h.conversations.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.RespondError(w, http.StatusNotFound, "conversation not found")
			return
		}
		log.Printf("[chat] load conversation %s: %v", id, err)
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	response := conversationResponse{Conversation: conv, State: state}
	if state == conversation.StateAwaitingAnswers {
		if questions, _, err := h.conversations.PendingSurvey(r.Context(), id); err == nil {
			response.Questions = questions
		}
	}
	utils.RespondJSON(w, http.StatusOK, response)
}

// handleSendMessage 处理一次自由文本轮次
func (h *Handler) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.conversations.SubmitText(r.Context(), id, payload.Content)
	if err != nil {
		h.respondTurnError(w, id, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

// handleSubmitAnswers 处理问卷提交（REST 客户端路径）
func (h *Handler) handleSubmitAnswers(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "conversationID")

	var payload struct {
		Answers survey.Answers `json:"answers"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		utils.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.conversations.SubmitAnswers(r.Context(), id, payload.Answers)
	if err != nil {
		h.respondTurnError(w, id, err)
		return
	}
	utils.RespondJSON(w, http.StatusOK, result)
}

// respondTurnError maps controller errors onto HTTP statuses. Relay and
// decode failures are logged but never retried server-side; the client may
// resubmit.
func (h *Handler) respondTurnError(w http.ResponseWriter, conversationID string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		utils.RespondError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, conversation.ErrScenarioNotFound):
		utils.RespondError(w, http.StatusNotFound, "scenario not found")
	case errors.Is(err, conversation.ErrEmptyMessage):
		utils.RespondError(w, http.StatusBadRequest, "content is required")
	case errors.Is(err, conversation.ErrTurnInFlight),
		errors.Is(err, conversation.ErrSurveyPending),
		errors.Is(err, conversation.ErrNoPendingSurvey):
		utils.RespondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, conversation.ErrMalformedToolArgs):
		// Recoverable: the malformed turn was dropped and free-text input
		// remains available.
		utils.RespondError(w, http.StatusBadGateway, "model returned malformed questions, please resubmit")
	case errors.Is(err, conversation.ErrRelayUnavailable):
		utils.RespondError(w, http.StatusServiceUnavailable, "model relay unavailable")
	default:
		log.Printf("[chat] turn failed for %s: %v", conversationID, err)
		utils.RespondError(w, http.StatusInternalServerError, "internal server error")
	}
}
