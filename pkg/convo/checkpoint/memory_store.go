package checkpoint

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"

	"ai-storefront-be/pkg/convo/state"
)

// MemoryStore keeps session state in process memory with a TTL, so idle
// conversations expire instead of accumulating forever.
type MemoryStore struct {
	cache *cache.Cache
}

var _ Store = &MemoryStore{}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = 1 * time.Hour
	}
	return &MemoryStore{
		cache: cache.New(ttl, 10*time.Minute),
	}
}

func (s *MemoryStore) Load(_ context.Context, sessionID string) (*state.ChatState, bool) {
	data, found := s.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	st, ok := data.(*state.ChatState)
	if !ok {
		return nil, false
	}
	return st.Clone(), true
}

func (s *MemoryStore) Save(_ context.Context, st *state.ChatState) {
	// Snapshot so the checkpoint never aliases the live turn's state.
	s.cache.Set(st.SessionID, st.Clone(), cache.DefaultExpiration)
}

func (s *MemoryStore) Delete(_ context.Context, sessionID string) {
	s.cache.Delete(sessionID)
}
