package checkpoint

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"ai-storefront-be/pkg/convo/state"
)

// RedisStore persists session state in Redis so conversations survive a
// process restart and can be shared across replicas.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
	logger *log.Logger
}

var _ Store = &RedisStore{}

func NewRedisStore(client *redis.Client, ttl time.Duration, logger *log.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	if logger == nil {
		logger = log.Default()
	}
	return &RedisStore{
		client: client,
		ttl:    ttl,
		logger: logger,
	}
}

func (s *RedisStore) key(sessionID string) string {
	return "assist:session:" + sessionID
}

func (s *RedisStore) Load(ctx context.Context, sessionID string) (*state.ChatState, bool) {
	raw, err := s.client.Get(ctx, s.key(sessionID)).Bytes()
	if err == redis.Nil {
		return nil, false
	}
	if err != nil {
		s.logger.Printf("[CHECKPOINT] redis load failed for %s: %v", sessionID, err)
		return nil, false
	}

	var st state.ChatState
	if err := json.Unmarshal(raw, &st); err != nil {
		s.logger.Printf("[CHECKPOINT] corrupt checkpoint for %s: %v", sessionID, err)
		return nil, false
	}
	return &st, true
}

func (s *RedisStore) Save(ctx context.Context, st *state.ChatState) {
	raw, err := json.Marshal(st)
	if err != nil {
		s.logger.Printf("[CHECKPOINT] marshal failed for %s: %v", st.SessionID, err)
		return
	}
	if err := s.client.Set(ctx, s.key(st.SessionID), raw, s.ttl).Err(); err != nil {
		s.logger.Printf("[CHECKPOINT] redis save failed for %s: %v", st.SessionID, err)
	}
}

func (s *RedisStore) Delete(ctx context.Context, sessionID string) {
	if err := s.client.Del(ctx, s.key(sessionID)).Err(); err != nil {
		s.logger.Printf("[CHECKPOINT] redis delete failed for %s: %v", sessionID, err)
	}
}
