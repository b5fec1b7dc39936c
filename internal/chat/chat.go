package chat

import (
	"context"
	"time"
)

// Message is one chat message inside a conversation.
type Message struct {
	Sender    int64     `json:"sender"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is the transcript between two participants.
type Conversation struct {
	Participants [2]int64  `json:"participants"`
	Messages     []Message `json:"messages"`
}

// Store keeps conversation transcripts keyed by participant pair. The pair
// key is order-independent: (a,b) and (b,a) address the same conversation.
type Store interface {
	// Append adds a message to the conversation between a and b, creating
	// the conversation if needed.
	Append(ctx context.Context, a, b int64, msg Message) error
	// History returns the conversation between a and b. A pair that never
	// talked yields an empty conversation, not an error.
	History(ctx context.Context, a, b int64) (*Conversation, error)
	// RemoveByParticipant deletes every conversation id took part in.
	RemoveByParticipant(ctx context.Context, id int64) error
	// Close releases any backing resources.
	Close() error
}

// pairOf normalizes a participant pair to (low, high).
func pairOf(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
