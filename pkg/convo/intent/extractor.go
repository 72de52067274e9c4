package intent

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/llm"
)

// MaxFollowupTurns is the hard ceiling on clarification rounds. Once a
// session has burned this many turns the assistant must answer with
// whatever it has.
const MaxFollowupTurns = 3

// Categories the catalog actually stocks. Anything else the model invents
// gets dropped.
var allowedCategories = map[string]bool{
	"serum":       true,
	"toner":       true,
	"sunscreen":   true,
	"moisturizer": true,
	"face-mask":   true,
	"body-wash":   true,
	"shampoo":     true,
	"conditioner": true,
	"hair-mask":   true,
}

// Fields a follow-up question is allowed to probe for.
var allowedTopics = map[string]bool{
	"category":          true,
	"name":              true,
	"top_ingredients":   true,
	"concerns":          true,
	"keywords":          true,
	"avoid_ingredients": true,
	"product_id":        true,
	"price":             true,
	"other":             true,
}

// Extractor turns a raw shopper message plus conversation history into a
// structured Extraction record. Pure LLM call, no retrieval.
type Extractor struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewExtractor(llmProvider llm.LLMProvider, logger *log.Logger) *Extractor {
	if logger == nil {
		logger = log.Default()
	}
	return &Extractor{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Extract never fails: any LLM or parsing error degrades to a conservative
// fallback record so the turn can continue.
func (e *Extractor) Extract(ctx context.Context, st *state.ChatState) *state.Extraction {
	prompt := e.buildPrompt(st)

	response, err := e.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		e.logger.Printf("[INTENT] extraction call failed: %v", err)
		return e.clampFollowup(fallbackExtraction(), st)
	}

	rec, err := e.parseExtraction(response)
	if err != nil {
		e.logger.Printf("[INTENT] extraction parse failed, using fallback: %v", err)
		return e.clampFollowup(fallbackExtraction(), st)
	}

	rec = e.clampFollowup(rec, st)
	e.logger.Printf("[INTENT] resolved: %s (ask_followup=%s, topics=%v)",
		rec.Intent, rec.AskFollowup, rec.FollowupTopics)
	return rec
}

// clampFollowup enforces the turn ceiling: past the cap the assistant stops
// asking and answers.
func (e *Extractor) clampFollowup(rec *state.Extraction, st *state.ChatState) *state.Extraction {
	if st.TurnCount >= MaxFollowupTurns && rec.AskFollowup == state.FollowupYes {
		e.logger.Printf("[INTENT] turn cap reached for %s, forcing ask_followup=no", st.SessionID)
		rec.AskFollowup = state.FollowupNo
	}
	return rec
}

func (e *Extractor) buildPrompt(st *state.ChatState) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You classify the shopper's intent for a beauty and personal care store\n")
	prompt.WriteString("and extract shopping constraints. You do NOT answer the shopper.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<conversation>\n")
	writeHistory(&prompt, st)
	prompt.WriteString("</conversation>\n\n")

	prompt.WriteString("<intent_definitions>\n")
	prompt.WriteString("RECOMMEND_SPECIFIC: shopper wants product suggestions and gives concrete constraints\n")
	prompt.WriteString("  (category plus concern, ingredient, budget or named product)\n")
	prompt.WriteString("RECOMMEND_VAGUE: shopper wants suggestions but the request is underspecified\n")
	prompt.WriteString("  ('something for my skin', 'a good shampoo')\n")
	prompt.WriteString("INFO_PRODUCT: shopper asks about a specific product (ingredients, usage, reviews)\n")
	prompt.WriteString("INFO_GENERAL: shopper asks a general beauty or ingredient question\n")
	prompt.WriteString("OTHER: greetings, small talk, anything not covered above\n")
	prompt.WriteString("</intent_definitions>\n\n")

	prompt.WriteString("<followup_rules>\n")
	prompt.WriteString("Set ask_followup to \"yes\" when a single clarifying question would\n")
	prompt.WriteString("materially improve a recommendation, otherwise \"no\".\n")
	prompt.WriteString("followup_topics lists which fields to clarify, chosen from:\n")
	prompt.WriteString("category, name, top_ingredients, concerns, keywords, avoid_ingredients, product_id, price, other\n")
	prompt.WriteString("</followup_rules>\n\n")

	prompt.WriteString("<field_rules>\n")
	prompt.WriteString("category values must come from: serum, toner, sunscreen, moisturizer,\n")
	prompt.WriteString("face-mask, body-wash, shampoo, conditioner, hair-mask\n")
	prompt.WriteString("All fields are JSON arrays of strings. Use [] when nothing was mentioned.\n")
	prompt.WriteString("Extract values cumulatively from the WHOLE conversation, newest message wins on conflict.\n")
	prompt.WriteString("</field_rules>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"intent\": \"RECOMMEND_SPECIFIC|RECOMMEND_VAGUE|INFO_PRODUCT|INFO_GENERAL|OTHER\",\n")
	prompt.WriteString("  \"ask_followup\": \"yes|no\",\n")
	prompt.WriteString("  \"followup_topics\": [],\n")
	prompt.WriteString("  \"category\": [],\n")
	prompt.WriteString("  \"name\": [],\n")
	prompt.WriteString("  \"top_ingredients\": [],\n")
	prompt.WriteString("  \"concerns\": [],\n")
	prompt.WriteString("  \"keywords\": [],\n")
	prompt.WriteString("  \"avoid_ingredients\": [],\n")
	prompt.WriteString("  \"product_id\": [],\n")
	prompt.WriteString("  \"price\": [],\n")
	prompt.WriteString("  \"other\": []\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func (e *Extractor) parseExtraction(response string) (*state.Extraction, error) {
	jsonContent := extractJSON(response)
	if jsonContent == "" {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var rec state.Extraction
	if err := json.Unmarshal([]byte(jsonContent), &rec); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	rec.Intent = state.Intent(strings.ToUpper(strings.TrimSpace(string(rec.Intent))))
	if !rec.Intent.Valid() {
		return nil, fmt.Errorf("unknown intent %q", rec.Intent)
	}

	switch strings.ToLower(strings.TrimSpace(string(rec.AskFollowup))) {
	case "yes":
		rec.AskFollowup = state.FollowupYes
	default:
		rec.AskFollowup = state.FollowupNo
	}

	rec.FollowupTopics = filterAllowed(rec.FollowupTopics, allowedTopics)
	rec.Category = filterAllowed(rec.Category, allowedCategories)

	return &rec, nil
}

// fallbackExtraction is the deterministic degraded path: assume a vague
// recommendation request and ask about the basics.
func fallbackExtraction() *state.Extraction {
	return &state.Extraction{
		Intent:         state.IntentRecommendVague,
		AskFollowup:    state.FollowupYes,
		FollowupTopics: []string{"category", "concerns"},
	}
}

func filterAllowed(values []string, allowed map[string]bool) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		v = strings.ToLower(strings.TrimSpace(v))
		if allowed[v] {
			out = append(out, v)
		}
	}
	return out
}

func writeHistory(prompt *strings.Builder, st *state.ChatState) {
	// Interleave in arrival order; user always speaks first in a turn.
	n := len(st.UserMessages)
	if len(st.AIMessages) > n {
		n = len(st.AIMessages)
	}
	for i := 0; i < n; i++ {
		if i < len(st.UserMessages) {
			fmt.Fprintf(prompt, "shopper: %s\n", st.UserMessages[i])
		}
		if i < len(st.AIMessages) {
			fmt.Fprintf(prompt, "assistant: %s\n", st.AIMessages[i])
		}
	}
}

// extractJSON pulls the first JSON object out of an LLM response that may
// be wrapped in prose or markdown fences.
func extractJSON(response string) string {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return response[start : end+1]
}
