package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/mudouban/ai-asks-human/backend/internal/model/chat"
)

// StorageKey names the persisted document, mirroring the storage identifier
// the browser client used for its conversation record.
const StorageKey = "ai-asks-human-conversations"

// FileStore persists the whole conversation set as a single JSON document:
// one array of conversations under a fixed path. Absent or corrupt data is
// treated as "no conversations" rather than an error.
type FileStore struct {
	mu   sync.Mutex
	path string
	max  int
}

// NewFileStore opens (or prepares) the document at dir/<StorageKey>.json,
// retaining at most max conversations (DefaultMaxConversations when zero).
func NewFileStore(dir string, max int) (*FileStore, error) {
	if max == 0 {
		max = DefaultMaxConversations
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store directory: %w", err)
	}
	return &FileStore{
		path: filepath.Join(dir, StorageKey+".json"),
		max:  max,
	}, nil
}

// Save upserts a conversation into the document and rewrites it atomically.
func (s *FileStore) Save(_ context.Context, conversation chat.Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readAll()
	replaced := false
	for i, c := range all {
		if c.ID == conversation.ID {
			all[i] = conversation.Clone()
			replaced = true
			break
		}
	}
	if !replaced {
		all = append(all, conversation.Clone())
	}
	all = applyRetention(all, s.max)
	return s.writeAll(all)
}

// Load retrieves a conversation by identifier.
func (s *FileStore) Load(_ context.Context, id string) (chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.readAll() {
		if c.ID == id {
			return c, nil
		}
	}
	return chat.Conversation{}, ErrNotFound
}

// LoadAll returns every persisted conversation.
func (s *FileStore) LoadAll(_ context.Context) ([]chat.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readAll(), nil
}

// Delete removes a conversation; deleting an absent id is not an error.
func (s *FileStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := s.readAll()
	kept := all[:0]
	for _, c := range all {
		if c.ID != id {
			kept = append(kept, c)
		}
	}
	return s.writeAll(kept)
}

func (s *FileStore) readAll() []chat.Conversation {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			log.Printf("[store] read %s: %v", s.path, err)
		}
		return nil
	}

	var all []chat.Conversation
	if err := json.Unmarshal(data, &all); err != nil {
		log.Printf("[store] corrupt document %s, starting empty: %v", s.path, err)
		return nil
	}
	return all
}

// writeAll rewrites the document via a temp file + rename so a crash never
// leaves a half-written record behind.
func (s *FileStore) writeAll(all []chat.Conversation) error {
	if all == nil {
		all = []chat.Conversation{}
	}
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return fmt.Errorf("encode conversations: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write conversations: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("replace conversations: %w", err)
	}
	return nil
}
