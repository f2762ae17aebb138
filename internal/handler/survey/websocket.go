package survey

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/mudouban/ai-asks-human/backend/internal/service/conversation"
	"github.com/mudouban/ai-asks-human/backend/internal/store"
	surveymodel "github.com/mudouban/ai-asks-human/backend/internal/survey"
)

// WebSocketHandler drives an interactive survey session: the client streams
// key events and pointer actions, the server runs the panel state machine
// and pushes a snapshot after every event. On submit the answers are fed
// back into the conversation and the next assistant turn is pushed over the
// same connection.
type WebSocketHandler struct {
	conversations *conversation.Service
	upgrader      websocket.Upgrader
}

// NewWebSocketHandler 创建问卷WebSocket处理器
func NewWebSocketHandler(conversations *conversation.Service) *WebSocketHandler {
	return &WebSocketHandler{
		conversations: conversations,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
	}
}

// RegisterWebSocketRoutes 注册问卷WebSocket路由
func (h *WebSocketHandler) RegisterWebSocketRoutes(r chi.Router) {
	r.Get("/conversations/{conversationID}/survey/ws", h.handleSurveySocket)
}

// inboundEvent is the client->server envelope. The "Other" text input keeps
// Escape to itself (blurring the field); only navigation keys arrive here.
type inboundEvent struct {
	Type     string          `json:"type"` // key | select | other | otherText | goto | submit
	Key      surveymodel.Key `json:"key,omitempty"`
	Question int             `json:"question,omitempty"`
	Option   int             `json:"option,omitempty"`
	Text     string          `json:"text,omitempty"`
}

type outgoingEvent struct {
	Type      string `json:"type"` // panel | turn | error | closed
	Data      any    `json:"data,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

// panelSnapshot is pushed after every applied event.
type panelSnapshot struct {
	Questions   []surveymodel.Question `json:"questions"`
	Answers     []surveymodel.Answer   `json:"answers"`
	Current     int                    `json:"current"`
	Focused     int                    `json:"focused"`
	AllAnswered bool                   `json:"allAnswered"`
}

func (h *WebSocketHandler) handleSurveySocket(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")

	questions, _, err := h.conversations.PendingSurvey(r.Context(), conversationID)
	if err != nil {
		status := http.StatusConflict
		if errors.Is(err, conversation.ErrNoPendingSurvey) || errors.Is(err, store.ErrNotFound) {
			status = http.StatusNotFound
		}
		http.Error(w, "no survey is awaiting answers", status)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("[survey] websocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	panel, err := surveymodel.NewPanel(questions)
	if err != nil {
		h.send(conn, outgoingEvent{Type: "error", Data: err.Error()})
		return
	}

	h.sendSnapshot(conn, panel)

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("[survey] read failed for %s: %v", conversationID, err)
			}
			return
		}

		var event inboundEvent
		if err := json.Unmarshal(raw, &event); err != nil {
			h.send(conn, outgoingEvent{Type: "error", Data: "invalid event"})
			continue
		}

		submit := h.apply(panel, event)
		h.sendSnapshot(conn, panel)

		if !submit {
			continue
		}

		answers, err := panel.Submit()
		if err != nil {
			h.send(conn, outgoingEvent{Type: "error", Data: err.Error()})
			continue
		}

		result, err := h.conversations.SubmitAnswers(r.Context(), conversationID, answers)
		if err != nil {
			log.Printf("[survey] submit failed for %s: %v", conversationID, err)
			h.send(conn, outgoingEvent{Type: "error", Data: "submit failed, please retry"})
			continue
		}

		h.send(conn, outgoingEvent{Type: "turn", Data: result})

		// A follow-up survey reuses the connection with fresh panel state;
		// otherwise the session is done.
		if len(result.Questions) == 0 {
			h.send(conn, outgoingEvent{Type: "closed"})
			return
		}
		panel, err = surveymodel.NewPanel(result.Questions)
		if err != nil {
			h.send(conn, outgoingEvent{Type: "error", Data: err.Error()})
			return
		}
		h.sendSnapshot(conn, panel)
	}
}

// apply routes one inbound event into the panel; it returns true when the
// event requests a submission and the panel allows it.
func (h *WebSocketHandler) apply(panel *surveymodel.Panel, event inboundEvent) bool {
	switch event.Type {
	case "key":
		return panel.HandleKey(event.Key)
	case "select":
		panel.SetCurrent(event.Question)
		panel.SelectOption(event.Question, event.Option)
	case "other":
		panel.SetCurrent(event.Question)
		panel.ToggleOther(event.Question)
	case "otherText":
		panel.SetOtherText(event.Question, event.Text)
	case "goto":
		panel.SetCurrent(event.Question)
	case "submit":
		return panel.AllAnswered()
	}
	return false
}

func (h *WebSocketHandler) sendSnapshot(conn *websocket.Conn, panel *surveymodel.Panel) {
	h.send(conn, outgoingEvent{
		Type: "panel",
		Data: panelSnapshot{
			Questions:   panel.Questions(),
			Answers:     panel.Answers(),
			Current:     panel.CurrentIndex(),
			Focused:     panel.FocusedOption(),
			AllAnswered: panel.AllAnswered(),
		},
	})
}

func (h *WebSocketHandler) send(conn *websocket.Conn, event outgoingEvent) {
	event.Timestamp = time.Now().UnixMilli()
	if err := conn.WriteJSON(event); err != nil {
		log.Printf("[survey] write failed: %v", err)
	}
}
