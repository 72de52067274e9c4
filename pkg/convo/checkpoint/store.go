package checkpoint

import (
	"context"

	"ai-storefront-be/pkg/convo/state"
)

// Store persists conversation state between stages and between turns so a
// suspended conversation can resume on the next request. Implementations
// must treat a failed load as "no session": the caller starts fresh.
// Saved and loaded states must not alias the caller's copy; a checkpoint
// is a snapshot, not a live reference.
type Store interface {
	Load(ctx context.Context, sessionID string) (*state.ChatState, bool)
	Save(ctx context.Context, st *state.ChatState)
	Delete(ctx context.Context, sessionID string)
}
