package chat

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore is the in-process transcript store used when no Redis backend
// is configured. Transcripts live only as long as the process.
type MemoryStore struct {
	mu            sync.Mutex
	conversations map[string]*Conversation
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conversations: make(map[string]*Conversation),
	}
}

var _ Store = (*MemoryStore)(nil)

func memKey(a, b int64) string {
	lo, hi := pairOf(a, b)
	return fmt.Sprintf("%d_%d", lo, hi)
}

// Append adds a message to the conversation between a and b.
func (s *MemoryStore) Append(_ context.Context, a, b int64, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memKey(a, b)
	conv, ok := s.conversations[key]
	if !ok {
		lo, hi := pairOf(a, b)
		conv = &Conversation{Participants: [2]int64{lo, hi}}
		s.conversations[key] = conv
	}
	conv.Messages = append(conv.Messages, msg)
	return nil
}

// History returns the conversation between a and b, empty if none exists.
func (s *MemoryStore) History(_ context.Context, a, b int64) (*Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	lo, hi := pairOf(a, b)
	conv, ok := s.conversations[memKey(a, b)]
	if !ok {
		return &Conversation{Participants: [2]int64{lo, hi}}, nil
	}

	// Copy so callers never see later appends.
	out := &Conversation{
		Participants: conv.Participants,
		Messages:     make([]Message, len(conv.Messages)),
	}
	copy(out.Messages, conv.Messages)
	return out, nil
}

// RemoveByParticipant deletes every conversation id took part in.
func (s *MemoryStore) RemoveByParticipant(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key, conv := range s.conversations {
		if conv.Participants[0] == id || conv.Participants[1] == id {
			delete(s.conversations, key)
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *MemoryStore) Close() error {
	return nil
}
