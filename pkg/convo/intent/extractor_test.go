package intent

import (
	"context"
	"errors"
	"log"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/llm"
)

type fakeProvider struct {
	response string
	err      error
}

func (f *fakeProvider) Generate(_ context.Context, _ string, _ ...llm.Option) (string, error) {
	return f.response, f.err
}

func (f *fakeProvider) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return f.response, f.err
}

func newTestExtractor(response string, err error) *Extractor {
	return NewExtractor(&fakeProvider{response: response, err: err}, log.New(os.Stdout, "", 0))
}

func stateWithTurn(turn int) *state.ChatState {
	st := state.New("session-1234")
	st.TurnCount = turn
	st.AppendUserMessage("i need a moisturizer")
	return st
}

func TestExtractParsesRecord(t *testing.T) {
	response := `Here you go:
	{"intent":"recommend_specific","ask_followup":"no","followup_topics":[],
	 "category":["moisturizer"],"concerns":["acne"],"keywords":["hydrating"],
	 "name":[],"top_ingredients":[],"avoid_ingredients":[],"product_id":[],"price":[],"other":[]}`
	e := newTestExtractor(response, nil)

	rec := e.Extract(context.Background(), stateWithTurn(1))

	assert.Equal(t, state.IntentRecommendSpecific, rec.Intent)
	assert.Equal(t, state.FollowupNo, rec.AskFollowup)
	assert.Equal(t, []string{"moisturizer"}, rec.Category)
	assert.Equal(t, []string{"acne"}, rec.Concerns)
	assert.Equal(t, []string{"hydrating"}, rec.Keywords)
}

func TestExtractDropsUnknownCategoriesAndTopics(t *testing.T) {
	response := `{"intent":"RECOMMEND_VAGUE","ask_followup":"yes",
	 "followup_topics":["concerns","favorite_color"],
	 "category":["moisturizer","rocket-fuel"]}`
	e := newTestExtractor(response, nil)

	rec := e.Extract(context.Background(), stateWithTurn(1))

	assert.Equal(t, []string{"concerns"}, rec.FollowupTopics)
	assert.Equal(t, []string{"moisturizer"}, rec.Category)
}

func TestExtractFallbackOnProviderError(t *testing.T) {
	e := newTestExtractor("", errors.New("model offline"))

	rec := e.Extract(context.Background(), stateWithTurn(1))

	assert.Equal(t, state.IntentRecommendVague, rec.Intent)
	assert.Equal(t, state.FollowupYes, rec.AskFollowup)
	assert.Equal(t, []string{"category", "concerns"}, rec.FollowupTopics)
}

func TestExtractFallbackOnUnparseableResponse(t *testing.T) {
	e := newTestExtractor("sorry, I can't do JSON today", nil)

	rec := e.Extract(context.Background(), stateWithTurn(1))

	assert.Equal(t, state.IntentRecommendVague, rec.Intent)
}

func TestExtractFallbackOnInvalidIntent(t *testing.T) {
	e := newTestExtractor(`{"intent":"PURCHASE_NOW","ask_followup":"no"}`, nil)

	rec := e.Extract(context.Background(), stateWithTurn(1))

	assert.Equal(t, state.IntentRecommendVague, rec.Intent)
}

// Past the turn ceiling the extractor never asks, no matter what the model
// said. That includes the degraded fallback path.
func TestExtractTurnCapForcesNo(t *testing.T) {
	response := `{"intent":"RECOMMEND_VAGUE","ask_followup":"yes","followup_topics":["concerns"]}`

	for _, turn := range []int{MaxFollowupTurns, MaxFollowupTurns + 1} {
		e := newTestExtractor(response, nil)
		rec := e.Extract(context.Background(), stateWithTurn(turn))
		assert.Equal(t, state.FollowupNo, rec.AskFollowup, "turn %d", turn)
	}

	e := newTestExtractor("", errors.New("model offline"))
	rec := e.Extract(context.Background(), stateWithTurn(MaxFollowupTurns))
	assert.Equal(t, state.FollowupNo, rec.AskFollowup)
}

func TestExtractBelowCapKeepsYes(t *testing.T) {
	response := `{"intent":"RECOMMEND_VAGUE","ask_followup":"yes","followup_topics":["concerns"]}`
	e := newTestExtractor(response, nil)

	rec := e.Extract(context.Background(), stateWithTurn(MaxFollowupTurns-1))

	assert.Equal(t, state.FollowupYes, rec.AskFollowup)
}

func TestExtractJSONFromFencedResponse(t *testing.T) {
	require.Equal(t, `{"a":1}`, extractJSON("```json\n{\"a\":1}\n```"))
	require.Equal(t, "", extractJSON("no json here"))
}
