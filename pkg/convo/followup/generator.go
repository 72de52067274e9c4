package followup

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/llm"
)

// DefaultQuestion is asked when generation fails. Broad enough to move any
// underspecified request forward.
const DefaultQuestion = "What are your major concerns?"

// Generator produces the single clarifying question for a suspended turn.
type Generator struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewGenerator(llmProvider llm.LLMProvider, logger *log.Logger) *Generator {
	if logger == nil {
		logger = log.Default()
	}
	return &Generator{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Generate returns one short question targeting the topics the extractor
// flagged as missing. Never fails; falls back to DefaultQuestion.
func (g *Generator) Generate(ctx context.Context, st *state.ChatState) string {
	prompt := g.buildPrompt(st)

	response, err := g.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.7))
	if err != nil {
		g.logger.Printf("[FOLLOWUP] generation failed: %v", err)
		return DefaultQuestion
	}

	question := strings.TrimSpace(response)
	if question == "" {
		g.logger.Printf("[FOLLOWUP] empty generation, using default question")
		return DefaultQuestion
	}
	return question
}

func (g *Generator) buildPrompt(st *state.ChatState) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a friendly beauty store assistant. Ask the shopper ONE short\n")
	prompt.WriteString("clarifying question. No preamble, no list, just the question.\n")
	prompt.WriteString("Never ask about something the shopper already told you.\n")
	prompt.WriteString("Never mention competitor brands or other stores.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<conversation>\n")
	for i, msg := range st.UserMessages {
		fmt.Fprintf(&prompt, "shopper: %s\n", msg)
		if i < len(st.AIMessages) {
			fmt.Fprintf(&prompt, "assistant: %s\n", st.AIMessages[i])
		}
	}
	prompt.WriteString("</conversation>\n\n")

	if len(st.FollowupTopics) > 0 {
		prompt.WriteString("<missing_information>\n")
		fmt.Fprintf(&prompt, "The shopper has not told us about: %s\n", strings.Join(st.FollowupTopics, ", "))
		prompt.WriteString("Target your question at this.\n")
		prompt.WriteString("</missing_information>\n")
	}

	return prompt.String()
}
