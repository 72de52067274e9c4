package followup

import (
	"context"
	"errors"
	"log"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/llm"
)

type fakeProvider struct {
	response   string
	err        error
	lastPrompt string
}

func (f *fakeProvider) Generate(_ context.Context, prompt string, _ ...llm.Option) (string, error) {
	f.lastPrompt = prompt
	return f.response, f.err
}

func (f *fakeProvider) Chat(_ context.Context, _ []llm.Message, _ ...llm.Option) (string, error) {
	return f.response, f.err
}

func testState() *state.ChatState {
	st := state.New("session-1234")
	st.AppendUserMessage("i want something for my hair")
	st.FollowupTopics = []string{"category", "concerns"}
	return st
}

func TestGenerateReturnsQuestion(t *testing.T) {
	provider := &fakeProvider{response: "  Is this for dry or oily hair?  "}
	g := NewGenerator(provider, log.New(os.Stdout, "", 0))

	question := g.Generate(context.Background(), testState())

	assert.Equal(t, "Is this for dry or oily hair?", question)
	assert.True(t, strings.Contains(provider.lastPrompt, "category, concerns"))
}

func TestGenerateFallsBackOnError(t *testing.T) {
	g := NewGenerator(&fakeProvider{err: errors.New("model offline")}, log.New(os.Stdout, "", 0))

	question := g.Generate(context.Background(), testState())

	assert.Equal(t, DefaultQuestion, question)
}

func TestGenerateFallsBackOnEmptyResponse(t *testing.T) {
	g := NewGenerator(&fakeProvider{response: "   "}, log.New(os.Stdout, "", 0))

	question := g.Generate(context.Background(), testState())

	assert.Equal(t, DefaultQuestion, question)
}
