package store

import (
	"context"
	"sync"

	"github.com/mudouban/ai-asks-human/backend/internal/model/chat"
)

// MemoryStore keeps conversations in process memory. It backs tests and the
// degraded mode used when the file store cannot be opened.
type MemoryStore struct {
	mu            sync.RWMutex
	conversations map[string]chat.Conversation
	max           int
}

// NewMemoryStore returns an empty in-memory store retaining at most max
// conversations (DefaultMaxConversations when max is zero).
func NewMemoryStore(max int) *MemoryStore {
	if max == 0 {
		max = DefaultMaxConversations
	}
	return &MemoryStore{
		conversations: make(map[string]chat.Conversation),
		max:           max,
	}
}

// Save upserts a conversation and applies the retention bound.
func (s *MemoryStore) Save(_ context.Context, conversation chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[conversation.ID] = conversation.Clone()

	if s.max > 0 && len(s.conversations) > s.max {
		all := make([]chat.Conversation, 0, len(s.conversations))
		for _, c := range s.conversations {
			all = append(all, c)
		}
		kept := applyRetention(all, s.max)
		s.conversations = make(map[string]chat.Conversation, len(kept))
		for _, c := range kept {
			s.conversations[c.ID] = c
		}
	}
	return nil
}

// Load retrieves a conversation by identifier.
func (s *MemoryStore) Load(_ context.Context, id string) (chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conversation, ok := s.conversations[id]
	if !ok {
		return chat.Conversation{}, ErrNotFound
	}
	return conversation.Clone(), nil
}

// LoadAll returns every retained conversation.
func (s *MemoryStore) LoadAll(_ context.Context) ([]chat.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]chat.Conversation, 0, len(s.conversations))
	for _, c := range s.conversations {
		all = append(all, c.Clone())
	}
	return all, nil
}

// Delete removes a conversation; deleting an absent id is not an error.
func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.conversations, id)
	return nil
}
