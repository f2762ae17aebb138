package store

import (
	"context"
	"errors"
	"sort"

	"github.com/mudouban/ai-asks-human/backend/internal/model/chat"
)

// ErrNotFound is returned when no conversation exists for an identifier.
var ErrNotFound = errors.New("conversation not found")

// DefaultMaxConversations bounds retained history when no explicit limit is
// configured.
const DefaultMaxConversations = 100

// Store persists conversation transcripts keyed by conversation id. Saves
// are whole-document upserts; concurrent writers to the same id are not
// reconciled (last write wins).
type Store interface {
	Save(ctx context.Context, conversation chat.Conversation) error
	Load(ctx context.Context, id string) (chat.Conversation, error)
	LoadAll(ctx context.Context) ([]chat.Conversation, error)
	Delete(ctx context.Context, id string) error
}

// applyRetention drops the oldest conversations (by updatedAt) once the
// count exceeds max. A max of zero or below disables eviction.
func applyRetention(conversations []chat.Conversation, max int) []chat.Conversation {
	if max <= 0 || len(conversations) <= max {
		return conversations
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].UpdatedAt.Before(conversations[j].UpdatedAt)
	})
	return conversations[len(conversations)-max:]
}
