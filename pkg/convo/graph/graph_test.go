package graph

import (
	"context"
	"log"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-storefront-be/pkg/catalog"
	"ai-storefront-be/pkg/convo/checkpoint"
	"ai-storefront-be/pkg/convo/followup"
	"ai-storefront-be/pkg/convo/intent"
	"ai-storefront-be/pkg/convo/planner"
	"ai-storefront-be/pkg/convo/rank"
	"ai-storefront-be/pkg/convo/response"
	"ai-storefront-be/pkg/convo/retrieval"
	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/embedding"
	"ai-storefront-be/pkg/llm"
)

// scriptedProvider answers each stage by recognizing its prompt. Tests
// swap the scripted payloads between turns.
type scriptedProvider struct {
	extractionJSON string
	planJSON       string
	followupText   string
	composeText    string
}

func (p *scriptedProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	switch {
	case strings.Contains(prompt, "<intent_definitions>"):
		return p.extractionJSON, nil
	case strings.Contains(prompt, "plan a similarity search"):
		return p.planJSON, nil
	case strings.Contains(prompt, "clarifying question"):
		return p.followupText, nil
	default:
		return p.composeText, nil
	}
}

func (p *scriptedProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	return p.composeText, nil
}

type fakeIndex struct {
	hits  []retrieval.ScoredDocument
	calls int
}

func (f *fakeIndex) Search(ctx context.Context, queryVector []float32, limit int, conditions []retrieval.Condition, threshold float64) ([]retrieval.ScoredDocument, error) {
	f.calls++
	return f.hits, nil
}

type fakeEmbedder struct{}

func (f *fakeEmbedder) Generate(text string, taskType string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0.1, 0.2, 0.3}},
	}, nil
}

func testStore() *catalog.Store {
	s := catalog.NewStore(log.New(os.Stdout, "", 0))
	s.Replace([]catalog.Product{
		{ProductID: "P001", Name: "Hydra Boost Moisturizer", Category: "moisturizer", Tags: "hydrating|acne", MarginPercent: 32},
		{ProductID: "P002", Name: "Velvet Night Cream", Category: "moisturizer", Tags: "hydrating|acne", MarginPercent: 45},
		{ProductID: "P003", Name: "Dewdrop Gel Cream", Category: "moisturizer", Tags: "hydrating|acne", MarginPercent: 50},
		{ProductID: "P004", Name: "Cloud Whip Lotion", Category: "moisturizer", Tags: "hydrating|acne", MarginPercent: 10},
	})
	return s
}

func productHit(pid string, score float64) retrieval.ScoredDocument {
	return retrieval.ScoredDocument{
		ID:      "product:" + pid,
		Content: "record for " + pid,
		Score:   score,
		Metadata: map[string]interface{}{
			"doc_type":   "product",
			"product_id": pid,
		},
	}
}

type testHarness struct {
	graph       *Graph
	provider    *scriptedProvider
	index       *fakeIndex
	checkpoints checkpoint.Store
}

func newHarness(hits []retrieval.ScoredDocument) *testHarness {
	logger := log.New(os.Stdout, "", 0)
	provider := &scriptedProvider{
		extractionJSON: `{"intent":"RECOMMEND_SPECIFIC","ask_followup":"no","followup_topics":[]}`,
		planJSON:       `{"query":"hydrating moisturizer acne","metadata_filters":{"doc_type":"product"}}`,
		followupText:   "What is your skin type?",
		composeText:    "Here is what I found.",
	}
	index := &fakeIndex{hits: hits}
	store := testStore()
	ranker := rank.NewRanker(store, logger)
	checkpoints := checkpoint.NewMemoryStore(time.Hour)

	g := New(
		intent.NewExtractor(provider, logger),
		planner.NewPlanner(provider, logger),
		followup.NewGenerator(provider, logger),
		retrieval.NewGateway(index, &fakeEmbedder{}, retrieval.DefaultConfig(), logger),
		ranker,
		response.NewComposer(provider, ranker, logger),
		checkpoints,
		logger,
	)
	return &testHarness{graph: g, provider: provider, index: index, checkpoints: checkpoints}
}

func TestProcessMessageRecommendationFlow(t *testing.T) {
	h := newHarness([]retrieval.ScoredDocument{
		productHit("P001", 0.95),
		productHit("P002", 0.85),
		productHit("P003", 0.75),
		productHit("P004", 0.65),
	})
	h.provider.extractionJSON = `{"intent":"RECOMMEND_SPECIFIC","ask_followup":"no",` +
		`"category":["moisturizer"],"concerns":["acne"],"keywords":["hydrating"]}`

	st, err := h.graph.ProcessMessage(context.Background(), "session-1234", "hydrating moisturizer for acne")

	require.NoError(t, err)
	assert.Equal(t, 1, st.TurnCount)
	assert.Equal(t, state.IntentRecommendSpecific, st.Intent)
	assert.Equal(t, state.FollowupNo, st.AskFollowup)

	require.Len(t, st.Products, rank.TopProducts)
	assert.Equal(t, "P003", st.Products[0].ProductID)
	assert.Equal(t, "P002", st.Products[1].ProductID)
	assert.Equal(t, "P001", st.Products[2].ProductID)
	assert.Empty(t, st.Citations)

	require.Len(t, st.AIMessages, 1)
	assert.Equal(t, "Here is what I found.", st.AIMessages[0])
	assert.Equal(t, 1, h.index.calls)
}

func TestProcessMessageFollowupSuspendAndResume(t *testing.T) {
	h := newHarness([]retrieval.ScoredDocument{productHit("P001", 0.9)})
	h.provider.extractionJSON = `{"intent":"RECOMMEND_VAGUE","ask_followup":"yes","followup_topics":["category","concerns"]}`

	st, err := h.graph.ProcessMessage(context.Background(), "session-1234", "I need something for my skin")

	require.NoError(t, err)
	assert.Equal(t, 1, st.TurnCount)
	assert.Equal(t, state.FollowupYes, st.AskFollowup)
	require.Len(t, st.AIMessages, 1)
	assert.Equal(t, "What is your skin type?", st.AIMessages[0])
	assert.Zero(t, h.index.calls)

	// The shopper answers; the next turn resumes from the checkpoint with
	// the whole history and completes.
	h.provider.extractionJSON = `{"intent":"RECOMMEND_SPECIFIC","ask_followup":"no","concerns":["acne"]}`

	st, err = h.graph.ProcessMessage(context.Background(), "session-1234", "oily skin with acne")

	require.NoError(t, err)
	assert.Equal(t, 2, st.TurnCount)
	assert.Equal(t, []string{"I need something for my skin", "oily skin with acne"}, st.UserMessages)
	require.Len(t, st.AIMessages, 2)
	assert.Equal(t, "Here is what I found.", st.AIMessages[1])
	assert.Equal(t, 1, h.index.calls)
}

// Past the clarification ceiling the router answers with whatever it has,
// even when the extractor wants another question.
func TestProcessMessageTurnCapOverridesFollowup(t *testing.T) {
	h := newHarness([]retrieval.ScoredDocument{productHit("P001", 0.9)})
	h.provider.extractionJSON = `{"intent":"RECOMMEND_VAGUE","ask_followup":"yes","followup_topics":["category"]}`

	seeded := state.New("session-1234")
	seeded.TurnCount = intent.MaxFollowupTurns - 1
	h.checkpoints.Save(context.Background(), seeded)

	st, err := h.graph.ProcessMessage(context.Background(), "session-1234", "still not sure what I want")

	require.NoError(t, err)
	assert.Equal(t, intent.MaxFollowupTurns, st.TurnCount)
	assert.Equal(t, state.FollowupNo, st.AskFollowup)
	assert.Equal(t, 1, h.index.calls)
	require.Len(t, st.AIMessages, 1)
	assert.NotEqual(t, "What is your skin type?", st.AIMessages[0])
}

func TestProcessMessageOtherIntentSkipsRetrieval(t *testing.T) {
	h := newHarness(nil)
	h.provider.extractionJSON = `{"intent":"OTHER","ask_followup":"no"}`

	st, err := h.graph.ProcessMessage(context.Background(), "session-1234", "hello!")

	require.NoError(t, err)
	assert.Equal(t, state.IntentOther, st.Intent)
	assert.Zero(t, h.index.calls)
	require.Len(t, st.AIMessages, 1)
	assert.Equal(t, response.MessageNoInformation, st.AIMessages[0])
}

func TestProcessMessageInformationalFlow(t *testing.T) {
	h := newHarness([]retrieval.ScoredDocument{
		{ID: "faq:returns", Content: "Returns are accepted within 30 days.", Score: 0.9,
			Metadata: map[string]interface{}{"doc_type": "faq"}},
		productHit("P002", 0.8),
	})
	h.provider.extractionJSON = `{"intent":"INFO_GENERAL","ask_followup":"no"}`
	h.provider.composeText = "You can return items within 30 days."

	st, err := h.graph.ProcessMessage(context.Background(), "session-1234", "what is your return policy?")

	require.NoError(t, err)
	assert.Equal(t, state.IntentInfoGeneral, st.Intent)
	require.Len(t, st.Citations, 1)
	assert.Equal(t, "faq:returns", st.Citations[0].ID)
	require.Len(t, st.Products, 1)
	assert.Equal(t, "P002", st.Products[0].ProductID)
	assert.Equal(t, "You can return items within 30 days.", st.AIMessages[0])
}

func TestProcessMessageCheckpointsBetweenTurns(t *testing.T) {
	h := newHarness([]retrieval.ScoredDocument{productHit("P001", 0.9)})

	_, err := h.graph.ProcessMessage(context.Background(), "session-1234", "hydrating moisturizer")
	require.NoError(t, err)

	saved, found := h.checkpoints.Load(context.Background(), "session-1234")
	require.True(t, found)
	assert.Equal(t, 1, saved.TurnCount)
	assert.Len(t, saved.UserMessages, 1)
	assert.Len(t, saved.AIMessages, 1)

	// A different session starts fresh.
	_, found = h.checkpoints.Load(context.Background(), "session-5678")
	assert.False(t, found)
}

// A finished turn's state is a snapshot. The next turn for the same session
// must not mutate what an earlier caller is still holding.
func TestProcessMessageReturnsSnapshot(t *testing.T) {
	h := newHarness([]retrieval.ScoredDocument{productHit("P001", 0.9)})

	st1, err := h.graph.ProcessMessage(context.Background(), "session-1234", "hydrating moisturizer")
	require.NoError(t, err)

	st2, err := h.graph.ProcessMessage(context.Background(), "session-1234", "anything cheaper?")
	require.NoError(t, err)

	assert.NotSame(t, st1, st2)
	assert.Equal(t, 1, st1.TurnCount)
	assert.Len(t, st1.UserMessages, 1)
	assert.Len(t, st1.AIMessages, 1)
	assert.Equal(t, 2, st2.TurnCount)
}

func TestProcessMessageResultReadableDuringNextTurn(t *testing.T) {
	h := newHarness([]retrieval.ScoredDocument{productHit("P001", 0.9)})

	st1, err := h.graph.ProcessMessage(context.Background(), "session-1234", "hydrating moisturizer")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 1000; i++ {
			_ = st1.TurnCount
			_ = st1.LastAIMessage()
			_ = len(st1.Products)
		}
	}()

	_, err = h.graph.ProcessMessage(context.Background(), "session-1234", "anything cheaper?")
	require.NoError(t, err)
	<-done

	assert.Equal(t, 1, st1.TurnCount)
}

// len(AIMessages) <= len(UserMessages) <= TurnCount must hold at every
// turn boundary, including across a suspend and resume.
func TestProcessMessageHistoryInvariant(t *testing.T) {
	h := newHarness([]retrieval.ScoredDocument{productHit("P001", 0.9)})
	h.provider.extractionJSON = `{"intent":"RECOMMEND_VAGUE","ask_followup":"yes","followup_topics":["category"]}`

	assertInvariant := func(st *state.ChatState) {
		t.Helper()
		assert.LessOrEqual(t, len(st.AIMessages), len(st.UserMessages))
		assert.LessOrEqual(t, len(st.UserMessages), st.TurnCount)
	}

	st, err := h.graph.ProcessMessage(context.Background(), "session-1234", "something for my skin")
	require.NoError(t, err)
	assertInvariant(st)

	h.provider.extractionJSON = `{"intent":"RECOMMEND_SPECIFIC","ask_followup":"no","concerns":["acne"]}`

	st, err = h.graph.ProcessMessage(context.Background(), "session-1234", "oily skin with acne")
	require.NoError(t, err)
	assertInvariant(st)

	st, err = h.graph.ProcessMessage(context.Background(), "session-1234", "anything else?")
	require.NoError(t, err)
	assertInvariant(st)
}

func TestProcessMessageCancelledContext(t *testing.T) {
	h := newHarness(nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.graph.ProcessMessage(ctx, "session-1234", "hello")
	assert.Error(t, err)
}
