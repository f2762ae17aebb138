package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"

	"github.com/mudouban/ai-asks-human/backend/internal/model/chat"
	"github.com/mudouban/ai-asks-human/backend/internal/model/scenario"
	"github.com/mudouban/ai-asks-human/backend/internal/service/relay"
	"github.com/mudouban/ai-asks-human/backend/internal/store"
	"github.com/mudouban/ai-asks-human/backend/internal/survey"
)

// State is the controller's per-conversation turn state.
type State string

const (
	// StateIdle awaits free-text user input.
	StateIdle State = "idle"
	// StateAwaitingModel has a relay call in flight; input is suspended.
	StateAwaitingModel State = "awaiting_model"
	// StateAwaitingAnswers has an open survey; free-text input is suspended
	// until the answers are submitted.
	StateAwaitingAnswers State = "awaiting_answers"
)

var (
	ErrScenarioNotFound  = errors.New("scenario not found")
	ErrEmptyMessage      = errors.New("message content is required")
	ErrTurnInFlight      = errors.New("a model call is already in flight")
	ErrSurveyPending     = errors.New("a survey is awaiting answers")
	ErrNoPendingSurvey   = errors.New("no survey is awaiting answers")
	ErrMalformedToolArgs = errors.New("malformed AskUserQuestion arguments")
	ErrRelayUnavailable  = errors.New("model relay is not configured")
)

// Relay abstracts the chat relay so tests can script provider replies.
type Relay interface {
	Complete(ctx context.Context, sc scenario.Scenario, history []chat.Message) (relay.Reply, error)
}

// TurnResult reports the outcome of one controller turn.
type TurnResult struct {
	// Message is the appended assistant message.
	Message chat.Message `json:"message"`
	// Questions is non-nil when the turn opened a survey.
	Questions []survey.Question `json:"questions,omitempty"`
	// ToolCallID identifies the pending invocation when a survey opened.
	ToolCallID string `json:"toolCallId,omitempty"`
	// Finished mirrors the relay's natural-stop flag.
	Finished bool `json:"finished"`
}

// turnState is the in-memory controller state for one conversation. The
// transcript itself is persisted; this only tracks the pending turn.
type turnState struct {
	state       State
	pendingCall chat.ToolCall
	questions   []survey.Question
}

// Service orchestrates turn-taking: it appends user input, drives the relay,
// detects pending AskUserQuestion invocations, and feeds submitted answers
// back as tool results. Every transition that appends a message persists the
// conversation before the next relay call, so a reload loses at most the
// in-flight assistant turn. Turns for one conversation are serialized.
type Service struct {
	mu        sync.Mutex
	scenarios scenario.Store
	store     store.Store
	relay     Relay
	turns     map[string]*turnState
}

// NewService wires the controller. relay may be nil when the model is not
// configured; conversations can then still be created and read.
func NewService(scenarios scenario.Store, st store.Store, r Relay) *Service {
	return &Service{
		scenarios: scenarios,
		store:     st,
		relay:     r,
		turns:     make(map[string]*turnState),
	}
}

// Start creates a conversation for a scenario, seeded with the scenario's
// opening question, and persists it.
func (s *Service) Start(ctx context.Context, scenarioID string) (chat.Conversation, error) {
	sc, ok := s.scenarios.FindByID(scenarioID)
	if !ok {
		return chat.Conversation{}, ErrScenarioNotFound
	}

	conversation := chat.NewConversation(sc.ID, sc.InitialQuestion)
	if err := s.store.Save(ctx, conversation); err != nil {
		return chat.Conversation{}, fmt.Errorf("persist conversation: %w", err)
	}
	return conversation, nil
}

// Get returns a conversation and its current turn state.
func (s *Service) Get(ctx context.Context, conversationID string) (chat.Conversation, State, error) {
	conversation, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return chat.Conversation{}, StateIdle, err
	}
	s.mu.Lock()
	state := s.stateLocked(conversation)
	s.mu.Unlock()
	return conversation, state, nil
}

// PendingSurvey returns the open question set for a conversation awaiting
// answers.
func (s *Service) PendingSurvey(ctx context.Context, conversationID string) ([]survey.Question, string, error) {
	conversation, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return nil, "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	turn := s.resumeTurnLocked(conversation)
	if turn == nil || turn.state != StateAwaitingAnswers {
		return nil, "", ErrNoPendingSurvey
	}
	return append([]survey.Question(nil), turn.questions...), turn.pendingCall.ID, nil
}

// SubmitText handles a free-text user turn: append + persist the user
// message, call the relay with the full transcript, and apply the reply.
func (s *Service) SubmitText(ctx context.Context, conversationID, content string) (TurnResult, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return TurnResult{}, ErrEmptyMessage
	}
	if s.relay == nil {
		return TurnResult{}, ErrRelayUnavailable
	}

	s.mu.Lock()
	conversation, sc, err := s.loadLocked(ctx, conversationID)
	if err != nil {
		s.mu.Unlock()
		return TurnResult{}, err
	}

	switch s.stateLocked(conversation) {
	case StateAwaitingModel:
		s.mu.Unlock()
		return TurnResult{}, ErrTurnInFlight
	case StateAwaitingAnswers:
		s.mu.Unlock()
		return TurnResult{}, ErrSurveyPending
	}

	conversation.Append(chat.NewUserMessage(content))
	if err := s.store.Save(ctx, conversation); err != nil {
		s.mu.Unlock()
		return TurnResult{}, fmt.Errorf("persist user message: %w", err)
	}
	s.setStateLocked(conversationID, StateAwaitingModel)
	s.mu.Unlock()

	return s.completeTurn(ctx, conversation, sc)
}

// SubmitAnswers handles a survey submission: append + persist the
// tool-result message carrying the pending invocation's identifier, close
// the survey, and call the relay with the extended transcript.
func (s *Service) SubmitAnswers(ctx context.Context, conversationID string, answers survey.Answers) (TurnResult, error) {
	if s.relay == nil {
		return TurnResult{}, ErrRelayUnavailable
	}

	s.mu.Lock()
	conversation, sc, err := s.loadLocked(ctx, conversationID)
	if err != nil {
		s.mu.Unlock()
		return TurnResult{}, err
	}

	turn := s.resumeTurnLocked(conversation)
	if turn == nil || turn.state != StateAwaitingAnswers {
		s.mu.Unlock()
		return TurnResult{}, ErrNoPendingSurvey
	}

	if err := survey.ValidateAnswers(turn.questions, answers); err != nil {
		s.mu.Unlock()
		return TurnResult{}, fmt.Errorf("invalid answers: %w", err)
	}

	if !conversation.HasToolCall(turn.pendingCall.ID) {
		s.mu.Unlock()
		return TurnResult{}, fmt.Errorf("pending tool call %s missing from transcript", turn.pendingCall.ID)
	}

	payload, err := json.Marshal(answers)
	if err != nil {
		s.mu.Unlock()
		return TurnResult{}, fmt.Errorf("encode answers: %w", err)
	}

	conversation.Append(chat.NewToolResultMessage(string(payload), turn.pendingCall.ID))
	if err := s.store.Save(ctx, conversation); err != nil {
		s.mu.Unlock()
		return TurnResult{}, fmt.Errorf("persist tool result: %w", err)
	}
	s.setStateLocked(conversationID, StateAwaitingModel)
	s.mu.Unlock()

	return s.completeTurn(ctx, conversation, sc)
}

// completeTurn issues the relay call outside the lock (the network request
// is the only suspension point) and applies the normalized reply.
func (s *Service) completeTurn(ctx context.Context, conversation chat.Conversation, sc scenario.Scenario) (TurnResult, error) {
	reply, err := s.relay.Complete(ctx, sc, conversation.Messages)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		// The already-persisted user/tool-result message is kept; the failed
		// turn is treated as a dropped response and input re-enabled.
		log.Printf("[conversation] relay failed for %s: %v", conversation.ID, err)
		s.setStateLocked(conversation.ID, StateIdle)
		return TurnResult{}, err
	}

	if call, ok := reply.SurveyCall(); ok {
		questions, parseErr := survey.ParseQuestions(call.Function.Arguments)
		if parseErr != nil {
			// Drop the whole assistant turn rather than committing a tool
			// call that can never be answered; the user keeps free-text
			// input and may simply resubmit.
			log.Printf("[conversation] dropping malformed survey for %s: %v", conversation.ID, parseErr)
			s.setStateLocked(conversation.ID, StateIdle)
			return TurnResult{}, fmt.Errorf("%w: %v", ErrMalformedToolArgs, parseErr)
		}

		// Only the survey call is persisted: any other invocation in the
		// same reply would stay unanswered forever and the provider rejects
		// transcripts with dangling calls.
		message := chat.NewAssistantMessage(reply.Content, []chat.ToolCall{call})
		conversation.Append(message)
		if err := s.store.Save(ctx, conversation); err != nil {
			s.setStateLocked(conversation.ID, StateIdle)
			return TurnResult{}, fmt.Errorf("persist assistant message: %w", err)
		}

		s.turns[conversation.ID] = &turnState{
			state:       StateAwaitingAnswers,
			pendingCall: call,
			questions:   questions,
		}
		return TurnResult{
			Message:    message,
			Questions:  questions,
			ToolCallID: call.ID,
			Finished:   false,
		}, nil
	}

	// Unrecognized invocations are dropped rather than persisted; a call
	// that never gets a result would wedge every later relay request.
	if len(reply.ToolCalls) > 0 {
		log.Printf("[conversation] dropping %d unrecognized tool calls for %s", len(reply.ToolCalls), conversation.ID)
	}
	message := chat.NewAssistantMessage(reply.Content, nil)
	conversation.Append(message)
	if err := s.store.Save(ctx, conversation); err != nil {
		s.setStateLocked(conversation.ID, StateIdle)
		return TurnResult{}, fmt.Errorf("persist assistant message: %w", err)
	}

	s.setStateLocked(conversation.ID, StateIdle)
	return TurnResult{Message: message, Finished: reply.Finished}, nil
}

// loadLocked resolves a conversation and its owning scenario.
func (s *Service) loadLocked(ctx context.Context, conversationID string) (chat.Conversation, scenario.Scenario, error) {
	conversation, err := s.store.Load(ctx, conversationID)
	if err != nil {
		return chat.Conversation{}, scenario.Scenario{}, err
	}
	sc, ok := s.scenarios.FindByID(conversation.ScenarioID)
	if !ok {
		return chat.Conversation{}, scenario.Scenario{}, ErrScenarioNotFound
	}
	return conversation, sc, nil
}

func (s *Service) stateLocked(conversation chat.Conversation) State {
	if turn := s.resumeTurnLocked(conversation); turn != nil {
		return turn.state
	}
	return StateIdle
}

// resumeTurnLocked returns the in-memory turn state, rebuilding it from the
// transcript when none exists: a persisted AskUserQuestion call ending the
// transcript has no tool result yet, so its survey is still open. This is
// what lets a restarted process pick up a pending survey instead of replaying
// a transcript that ends in an unanswered tool call.
func (s *Service) resumeTurnLocked(conversation chat.Conversation) *turnState {
	if turn, ok := s.turns[conversation.ID]; ok {
		return turn
	}
	if len(conversation.Messages) == 0 {
		return nil
	}
	last := conversation.Messages[len(conversation.Messages)-1]
	if last.Kind() != chat.KindAssistantToolCall {
		return nil
	}
	for _, call := range last.ToolCalls {
		if call.Function.Name != relay.ToolName {
			continue
		}
		questions, err := survey.ParseQuestions(call.Function.Arguments)
		if err != nil {
			// Persisted calls were validated before the save; failing here
			// means the document was edited out-of-band.
			log.Printf("[conversation] cannot resume survey for %s: %v", conversation.ID, err)
			return nil
		}
		turn := &turnState{
			state:       StateAwaitingAnswers,
			pendingCall: call,
			questions:   questions,
		}
		s.turns[conversation.ID] = turn
		return turn
	}
	return nil
}

func (s *Service) setStateLocked(conversationID string, state State) {
	if state == StateIdle {
		delete(s.turns, conversationID)
		return
	}
	turn, ok := s.turns[conversationID]
	if !ok {
		turn = &turnState{}
		s.turns[conversationID] = turn
	}
	turn.state = state
	if state != StateAwaitingAnswers {
		turn.pendingCall = chat.ToolCall{}
		turn.questions = nil
	}
}
