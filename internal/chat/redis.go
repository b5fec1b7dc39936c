package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "cardarena"

// conversationKey returns the Redis key for the transcript list of a pair.
func conversationKey(a, b int64) string {
	lo, hi := pairOf(a, b)
	return fmt.Sprintf("%s:chat:%d_%d", keyPrefix, lo, hi)
}

// participantIndexKey returns the Redis key of the SET of conversation keys
// a user takes part in.
func participantIndexKey(id int64) string {
	return fmt.Sprintf("%s:idx:chats:%d", keyPrefix, id)
}

// RedisStore is a Redis-backed transcript store. Each conversation is a
// list of JSON messages; a per-user index set supports removal by
// participant.
type RedisStore struct {
	client *redis.Client
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to Redis at the given URL and verifies the
// connection before returning.
func NewRedisStore(url string, poolSize int) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	opts.PoolSize = poolSize

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return &RedisStore{client: client}, nil
}

// NewRedisStoreWithClient wraps an existing client (for testing).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Append pushes a message onto the pair's transcript and indexes the
// conversation under both participants in one pipeline.
func (s *RedisStore) Append(ctx context.Context, a, b int64, msg Message) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}

	key := conversationKey(a, b)

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, data)
	pipe.SAdd(ctx, participantIndexKey(a), key)
	pipe.SAdd(ctx, participantIndexKey(b), key)
	_, err = pipe.Exec(ctx)
	return err
}

// History returns the full transcript between a and b.
func (s *RedisStore) History(ctx context.Context, a, b int64) (*Conversation, error) {
	lo, hi := pairOf(a, b)
	conv := &Conversation{Participants: [2]int64{lo, hi}}

	entries, err := s.client.LRange(ctx, conversationKey(a, b), 0, -1).Result()
	if err != nil {
		return nil, err
	}

	conv.Messages = make([]Message, 0, len(entries))
	for _, entry := range entries {
		var msg Message
		if err := json.Unmarshal([]byte(entry), &msg); err != nil {
			continue // Skip invalid data
		}
		conv.Messages = append(conv.Messages, msg)
	}
	return conv, nil
}

// RemoveByParticipant deletes every conversation id took part in, together
// with its index entries.
func (s *RedisStore) RemoveByParticipant(ctx context.Context, id int64) error {
	indexKey := participantIndexKey(id)

	keys, err := s.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return err
	}

	pipe := s.client.Pipeline()
	for _, key := range keys {
		pipe.Del(ctx, key)
	}
	pipe.Del(ctx, indexKey)
	_, err = pipe.Exec(ctx)
	return err
}
