package response

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-storefront-be/pkg/catalog"
	"ai-storefront-be/pkg/convo/rank"
	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/llm"
)

type fakeProvider struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeProvider) Generate(ctx context.Context, prompt string, opts ...llm.Option) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func (f *fakeProvider) Chat(ctx context.Context, messages []llm.Message, opts ...llm.Option) (string, error) {
	return f.response, f.err
}

func testLogger() *log.Logger {
	return log.New(os.Stdout, "", 0)
}

func testRanker() *rank.Ranker {
	s := catalog.NewStore(testLogger())
	s.Replace([]catalog.Product{
		{ProductID: "P001", Name: "Hydra Boost Moisturizer", Category: "moisturizer", MarginPercent: 32},
		{ProductID: "P002", Name: "Velvet Night Cream", Category: "moisturizer", MarginPercent: 45},
	})
	return rank.NewRanker(s, testLogger())
}

func newTestComposer(provider llm.LLMProvider) *Composer {
	return NewComposer(provider, testRanker(), testLogger())
}

func recommendState() *state.ChatState {
	st := state.New("session-1234")
	st.Intent = state.IntentRecommendSpecific
	st.AppendUserMessage("need a moisturizer")
	return st
}

func infoState() *state.ChatState {
	st := state.New("session-1234")
	st.Intent = state.IntentInfoGeneral
	st.AppendUserMessage("do you ship internationally?")
	return st
}

func TestComposeRecommendation(t *testing.T) {
	provider := &fakeProvider{response: "  Try the Velvet Night Cream!  "}
	st := recommendState()
	st.Products = []catalog.Product{
		{ProductID: "P002", Name: "Velvet Night Cream"},
	}

	got := newTestComposer(provider).Compose(context.Background(), st)

	assert.Equal(t, "Try the Velvet Night Cream!", got.Text)
	require.Len(t, got.Products, 1)
	assert.Empty(t, got.Citations)
	assert.Contains(t, provider.lastPrompt, "Velvet Night Cream")
	assert.Contains(t, provider.lastPrompt, "need a moisturizer")
}

func TestComposeRecommendationNoProducts(t *testing.T) {
	provider := &fakeProvider{response: "should not be called"}
	st := recommendState()

	got := newTestComposer(provider).Compose(context.Background(), st)

	assert.Equal(t, MessageNoProducts, got.Text)
	assert.Empty(t, got.Products)
	assert.Empty(t, provider.lastPrompt)
}

func TestComposeRecommendationGenerationError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("model offline")}
	st := recommendState()
	st.Products = []catalog.Product{{ProductID: "P001", Name: "Hydra Boost Moisturizer"}}

	got := newTestComposer(provider).Compose(context.Background(), st)

	assert.Equal(t, MessageGenerationError, got.Text)
}

func TestComposeInformationalNoDocuments(t *testing.T) {
	provider := &fakeProvider{response: "should not be called"}
	st := infoState()

	got := newTestComposer(provider).Compose(context.Background(), st)

	assert.Equal(t, MessageNoInformation, got.Text)
	assert.Empty(t, got.Products)
	assert.Empty(t, got.Citations)
	assert.Empty(t, provider.lastPrompt)
}

// OTHER is composed as an informational answer.
func TestComposeOtherIntentGoesInformational(t *testing.T) {
	provider := &fakeProvider{response: "should not be called"}
	st := state.New("session-1234")
	st.Intent = state.IntentOther
	st.AppendUserMessage("hello there")

	got := newTestComposer(provider).Compose(context.Background(), st)

	assert.Equal(t, MessageNoInformation, got.Text)
}

func TestComposeInformationalPartitionsDocs(t *testing.T) {
	provider := &fakeProvider{response: "Shipping takes 3 days."}
	st := infoState()
	st.RetrievedDocs = []state.Document{
		{ID: "faq:ship", Content: "We ship worldwide in 3 days.", Score: 0.9,
			Metadata: map[string]interface{}{"doc_type": "faq"}},
		{ID: "product:P001", Content: "Hydra Boost record", Score: 0.8,
			Metadata: map[string]interface{}{"doc_type": "product", "product_id": "P001"}},
		{ID: "product:P002", Content: "Velvet record", Score: 0.7,
			Metadata: map[string]interface{}{"doc_type": "product", "product_id": "P002"}},
	}

	got := newTestComposer(provider).Compose(context.Background(), st)

	assert.Equal(t, "Shipping takes 3 days.", got.Text)
	require.Len(t, got.Products, 2)
	assert.Equal(t, "P002", got.Products[0].ProductID) // higher margin first
	require.Len(t, got.Citations, 1)
	assert.Equal(t, "faq:ship", got.Citations[0].ID)
	assert.Equal(t, "We ship worldwide in 3 days.", got.Citations[0].Snippet)
}

func TestComposeInformationalGenerationError(t *testing.T) {
	provider := &fakeProvider{err: errors.New("model offline")}
	st := infoState()
	st.RetrievedDocs = []state.Document{
		{ID: "faq:1", Content: "some answer", Metadata: map[string]interface{}{"doc_type": "faq"}},
	}

	got := newTestComposer(provider).Compose(context.Background(), st)

	assert.Equal(t, MessageGenerationError, got.Text)
}

func TestBuildCitationsCapAndTruncation(t *testing.T) {
	long := strings.Repeat("a", MaxSnippetLength+50)
	docs := make([]state.Document, 0, MaxCitations+2)
	for i := 0; i < MaxCitations+2; i++ {
		docs = append(docs, state.Document{ID: "doc", Content: long})
	}

	citations := buildCitations(docs)

	require.Len(t, citations, MaxCitations)
	assert.Len(t, citations[0].Snippet, MaxSnippetLength+3)
	assert.True(t, strings.HasSuffix(citations[0].Snippet, "..."))
}

func TestTruncateSnippetShortContentUntouched(t *testing.T) {
	assert.Equal(t, "short text", truncateSnippet("  short text  "))
}
