package graph

import (
	"context"
	"fmt"
	"log"
	"sync"

	"ai-storefront-be/pkg/convo/checkpoint"
	"ai-storefront-be/pkg/convo/followup"
	"ai-storefront-be/pkg/convo/intent"
	"ai-storefront-be/pkg/convo/planner"
	"ai-storefront-be/pkg/convo/rank"
	"ai-storefront-be/pkg/convo/response"
	"ai-storefront-be/pkg/convo/retrieval"
	"ai-storefront-be/pkg/convo/state"
)

// Node names the stages of the fixed conversation graph.
type Node string

const (
	NodeEntry            Node = "entry"
	NodeClassifyIntent   Node = "classify_intent"
	NodeGenerateFollowup Node = "generate_followup"
	NodeAwaitUser        Node = "await_user"
	NodeRetrieve         Node = "retrieve"
	NodeRankProducts     Node = "rank_products"
	NodeComposeResponse  Node = "compose_response"
	NodeEnd              Node = "end"
)

// Graph walks one shopper message through the fixed stage machine. Each
// stage returns a state delta and the next node; state is checkpointed
// after every merge so a turn that ends in await_user resumes exactly
// there on the next message.
type Graph struct {
	extractor *intent.Extractor
	planner   *planner.Planner
	followup  *followup.Generator
	retriever *retrieval.Gateway
	ranker    *rank.Ranker
	composer  *response.Composer

	checkpoints checkpoint.Store
	logger      *log.Logger

	mu       sync.Mutex
	sessions map[string]*sync.Mutex
}

func New(
	extractor *intent.Extractor,
	pl *planner.Planner,
	fg *followup.Generator,
	retriever *retrieval.Gateway,
	ranker *rank.Ranker,
	composer *response.Composer,
	checkpoints checkpoint.Store,
	logger *log.Logger,
) *Graph {
	if logger == nil {
		logger = log.Default()
	}
	return &Graph{
		extractor:   extractor,
		planner:     pl,
		followup:    fg,
		retriever:   retriever,
		ranker:      ranker,
		composer:    composer,
		checkpoints: checkpoints,
		logger:      logger,
		sessions:    make(map[string]*sync.Mutex),
	}
}

// ProcessMessage runs one full turn for a session and returns the state it
// ended in. At most one turn per session runs at a time; concurrent
// messages for the same session serialize, different sessions proceed
// independently.
func (g *Graph) ProcessMessage(ctx context.Context, sessionID, message string) (*state.ChatState, error) {
	lock := g.sessionLock(sessionID)
	lock.Lock()
	defer lock.Unlock()

	st, found := g.checkpoints.Load(ctx, sessionID)
	if !found {
		st = state.New(sessionID)
	}
	st.AppendUserMessage(message)

	node := NodeEntry
	for node != NodeEnd && node != NodeAwaitUser {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("turn aborted at %s: %w", node, err)
		}

		delta, next, err := g.step(ctx, st, node)
		if err != nil {
			return nil, fmt.Errorf("stage %s: %w", node, err)
		}
		st.Apply(delta)
		g.checkpoints.Save(ctx, st)

		g.logger.Printf("[GRAPH] %s: %s -> %s", sessionID, node, next)
		node = next
	}

	// Hand back a snapshot: the caller reads it after the session lock
	// releases, while the next turn for this session may already be
	// mutating the live state.
	return st.Clone(), nil
}

// step executes one node. Routing mirrors the conversation design: clarify
// before retrieving, retrieve before ranking, rank only for recommendation
// turns.
func (g *Graph) step(ctx context.Context, st *state.ChatState, node Node) (state.Delta, Node, error) {
	switch node {
	case NodeEntry:
		return state.Delta{TurnIncrement: true}, NodeClassifyIntent, nil

	case NodeClassifyIntent:
		rec := g.extractor.Extract(ctx, st)

		ask := rec.AskFollowup
		if st.TurnCount >= intent.MaxFollowupTurns {
			// Extractor clamps this too; the router enforces it regardless
			// so a stale checkpoint cannot loop the session forever.
			ask = state.FollowupNo
		}

		topics := rec.FollowupTopics
		delta := state.Delta{
			Intent:         &rec.Intent,
			Extracted:      rec,
			AskFollowup:    &ask,
			FollowupTopics: &topics,
		}

		switch {
		case ask == state.FollowupYes:
			return delta, NodeGenerateFollowup, nil
		case rec.Intent == state.IntentOther:
			return delta, NodeComposeResponse, nil
		default:
			return delta, NodeRetrieve, nil
		}

	case NodeGenerateFollowup:
		question := g.followup.Generate(ctx, st)
		return state.Delta{AppendAIMessage: &question}, NodeAwaitUser, nil

	case NodeRetrieve:
		plan := g.planner.Plan(ctx, st)
		docs := g.retriever.Search(ctx, plan.Query, plan.MetadataFilters)
		delta := state.Delta{RetrievedDocs: &docs}

		if st.Intent.IsInformational() {
			return delta, NodeComposeResponse, nil
		}
		return delta, NodeRankProducts, nil

	case NodeRankProducts:
		products := g.ranker.Rank(st)
		return state.Delta{Products: &products}, NodeComposeResponse, nil

	case NodeComposeResponse:
		result := g.composer.Compose(ctx, st)
		return state.Delta{
			AppendAIMessage: &result.Text,
			Products:        &result.Products,
			Citations:       &result.Citations,
		}, NodeEnd, nil

	default:
		return state.Delta{}, NodeEnd, fmt.Errorf("unknown node %q", node)
	}
}

func (g *Graph) sessionLock(sessionID string) *sync.Mutex {
	g.mu.Lock()
	defer g.mu.Unlock()
	lock, ok := g.sessions[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		g.sessions[sessionID] = lock
	}
	return lock
}
