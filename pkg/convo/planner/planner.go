package planner

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/llm"
)

// Metadata fields the corpus indexes. Filter keys outside this set are
// hallucinations and get dropped.
var recognizedFilterFields = map[string]bool{
	"doc_type":   true,
	"product_id": true,
	"name":       true,
	"category":   true,
}

// SearchPlan is the retrieval instruction for one turn: a free-text query
// plus optional metadata filters in engine-neutral form.
type SearchPlan struct {
	Query           string                 `json:"query"`
	MetadataFilters map[string]interface{} `json:"metadata_filters"`
}

// Planner converts the conversation so far into a SearchPlan.
type Planner struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewPlanner(llmProvider llm.LLMProvider, logger *log.Logger) *Planner {
	if logger == nil {
		logger = log.Default()
	}
	return &Planner{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Plan never fails: a broken LLM response degrades to searching with the
// raw shopper message and no filters.
func (p *Planner) Plan(ctx context.Context, st *state.ChatState) *SearchPlan {
	prompt := p.buildPrompt(st)

	response, err := p.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.0))
	if err != nil {
		p.logger.Printf("[PLANNER] plan call failed: %v", err)
		return p.fallbackPlan(st)
	}

	plan, err := p.parsePlan(response)
	if err != nil {
		p.logger.Printf("[PLANNER] plan parse failed, using fallback: %v", err)
		return p.fallbackPlan(st)
	}

	if strings.TrimSpace(plan.Query) == "" {
		plan.Query = st.LastUserMessage()
	}

	// Filters only help when the goal is to surface candidate products.
	// Informational questions should search the whole corpus.
	if !st.Intent.IsRecommendation() {
		plan.MetadataFilters = nil
	}

	p.logger.Printf("[PLANNER] query=%q filters=%v", plan.Query, plan.MetadataFilters)
	return plan
}

func (p *Planner) fallbackPlan(st *state.ChatState) *SearchPlan {
	return &SearchPlan{Query: st.LastUserMessage()}
}

func (p *Planner) buildPrompt(st *state.ChatState) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You plan a similarity search over a product corpus for a beauty store.\n")
	prompt.WriteString("Produce one concise search query and optional metadata filters.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<conversation>\n")
	for i, msg := range st.UserMessages {
		fmt.Fprintf(&prompt, "shopper: %s\n", msg)
		if i < len(st.AIMessages) {
			fmt.Fprintf(&prompt, "assistant: %s\n", st.AIMessages[i])
		}
	}
	prompt.WriteString("</conversation>\n\n")

	if st.Extracted != nil {
		prompt.WriteString("<extracted>\n")
		raw, err := json.Marshal(st.Extracted)
		if err == nil {
			prompt.Write(raw)
			prompt.WriteString("\n")
		}
		prompt.WriteString("</extracted>\n\n")
	}

	prompt.WriteString("<filter_rules>\n")
	prompt.WriteString("metadata_filters keys must come from: doc_type, product_id, name, category.\n")
	prompt.WriteString("Values are a string or an array of strings. Omit keys you have no value for.\n")
	prompt.WriteString("doc_type values: product, review, ticket, description.\n")
	prompt.WriteString("Never emit price filters, the index cannot range-match.\n")
	prompt.WriteString("</filter_rules>\n\n")

	prompt.WriteString("<output_format>\n")
	prompt.WriteString("Respond with ONLY valid JSON:\n")
	prompt.WriteString("{\n")
	prompt.WriteString("  \"query\": \"search terms\",\n")
	prompt.WriteString("  \"metadata_filters\": {\"category\": [\"moisturizer\"]}\n")
	prompt.WriteString("}\n")
	prompt.WriteString("</output_format>")

	return prompt.String()
}

func (p *Planner) parsePlan(response string) (*SearchPlan, error) {
	start := strings.Index(response, "{")
	end := strings.LastIndex(response, "}")
	if start == -1 || end == -1 || end <= start {
		return nil, fmt.Errorf("no JSON found in response")
	}

	var plan SearchPlan
	if err := json.Unmarshal([]byte(response[start:end+1]), &plan); err != nil {
		return nil, fmt.Errorf("JSON unmarshal failed: %w", err)
	}

	plan.MetadataFilters = sanitizeFilters(plan.MetadataFilters)
	return &plan, nil
}

// sanitizeFilters keeps only recognized keys with string or string-list
// values. Everything else is dropped rather than failing the turn.
func sanitizeFilters(filters map[string]interface{}) map[string]interface{} {
	if len(filters) == 0 {
		return nil
	}

	out := make(map[string]interface{}, len(filters))
	for key, value := range filters {
		key = strings.ToLower(strings.TrimSpace(key))
		if !recognizedFilterFields[key] {
			continue
		}
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				out[key] = v
			}
		case []string:
			if len(v) > 0 {
				out[key] = v
			}
		case []interface{}:
			strs := make([]string, 0, len(v))
			for _, item := range v {
				if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
					strs = append(strs, s)
				}
			}
			if len(strs) > 0 {
				out[key] = strs
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
