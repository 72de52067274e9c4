package response

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-storefront-be/pkg/catalog"
	"ai-storefront-be/pkg/convo/rank"
	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/llm"
)

// Result is everything a composed turn hands back to the client.
type Result struct {
	Text      string
	Products  []catalog.Product
	Citations []state.Citation
}

// Composer renders the final assistant message in one of two modes:
// informational answers grounded in retrieved snippets, or recommendation
// pitches for the ranked products.
type Composer struct {
	llmProvider llm.LLMProvider
	ranker      *rank.Ranker
	logger      *log.Logger
}

func NewComposer(llmProvider llm.LLMProvider, ranker *rank.Ranker, logger *log.Logger) *Composer {
	if logger == nil {
		logger = log.Default()
	}
	return &Composer{
		llmProvider: llmProvider,
		ranker:      ranker,
		logger:      logger,
	}
}

// Compose picks the mode from the turn's intent. Recommendation intents get
// the product pitch; everything else, including OTHER, gets the grounded
// informational answer.
func (c *Composer) Compose(ctx context.Context, st *state.ChatState) Result {
	if st.Intent.IsRecommendation() {
		return c.composeRecommendation(ctx, st)
	}
	return c.composeInformational(ctx, st)
}

func (c *Composer) composeRecommendation(ctx context.Context, st *state.ChatState) Result {
	if len(st.Products) == 0 {
		c.logger.Printf("[COMPOSE] no products to recommend for %s", st.SessionID)
		return Result{Text: MessageNoProducts}
	}

	products := st.Products
	if len(products) > rank.TopProducts {
		products = products[:rank.TopProducts]
	}

	prompt := c.buildRecommendationPrompt(st, products)
	text, err := c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.7))
	if err != nil {
		c.logger.Printf("[COMPOSE] recommendation generation failed: %v", err)
		return Result{Text: MessageGenerationError}
	}

	return Result{
		Text:     strings.TrimSpace(text),
		Products: products,
	}
}

func (c *Composer) composeInformational(ctx context.Context, st *state.ChatState) Result {
	if len(st.RetrievedDocs) == 0 {
		c.logger.Printf("[COMPOSE] no documents to ground an answer for %s", st.SessionID)
		return Result{Text: MessageNoInformation}
	}

	productDocs, otherDocs := partitionDocs(st.RetrievedDocs)

	products, scores := c.ranker.ResolveProducts(productDocs)
	products = rank.ByMargin(products, scores)

	citations := buildCitations(otherDocs)

	prompt := c.buildInformationalPrompt(st, products, otherDocs)
	text, err := c.llmProvider.Generate(ctx, prompt, llm.WithTemperature(0.7))
	if err != nil {
		c.logger.Printf("[COMPOSE] informational generation failed: %v", err)
		return Result{Text: MessageGenerationError}
	}

	return Result{
		Text:      strings.TrimSpace(text),
		Products:  products,
		Citations: citations,
	}
}

// partitionDocs splits hits into product records and supporting material
// (reviews, tickets, descriptions).
func partitionDocs(docs []state.Document) (productDocs, otherDocs []state.Document) {
	for _, doc := range docs {
		if doc.DocType() == "product" && doc.ProductID() != "" {
			productDocs = append(productDocs, doc)
			continue
		}
		otherDocs = append(otherDocs, doc)
	}
	return productDocs, otherDocs
}

func buildCitations(docs []state.Document) []state.Citation {
	if len(docs) == 0 {
		return nil
	}
	if len(docs) > MaxCitations {
		docs = docs[:MaxCitations]
	}
	citations := make([]state.Citation, len(docs))
	for i, doc := range docs {
		citations[i] = state.Citation{
			ID:      doc.ID,
			Snippet: truncateSnippet(doc.Content),
		}
	}
	return citations
}

func truncateSnippet(content string) string {
	content = strings.TrimSpace(content)
	if len(content) <= MaxSnippetLength {
		return content
	}
	return content[:MaxSnippetLength] + "..."
}

func (c *Composer) buildRecommendationPrompt(st *state.ChatState, products []catalog.Product) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a beauty store assistant. Recommend the products below to the\n")
	prompt.WriteString("shopper in a warm, concise pitch. Mention each product by name with a\n")
	prompt.WriteString("one-line reason it fits. Present them in the given order. Do not invent\n")
	prompt.WriteString("products or prices.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<conversation>\n")
	writeHistory(&prompt, st)
	prompt.WriteString("</conversation>\n\n")

	prompt.WriteString("<products>\n")
	for i, p := range products {
		fmt.Fprintf(&prompt, "%d. %s (%s) $%.2f\n", i+1, p.Name, p.Category, p.PriceUSD)
		if p.Description != "" {
			fmt.Fprintf(&prompt, "   %s\n", p.Description)
		}
		if p.TopIngredients != "" {
			fmt.Fprintf(&prompt, "   ingredients: %s\n", p.TopIngredients)
		}
	}
	prompt.WriteString("</products>\n")

	return prompt.String()
}

func (c *Composer) buildInformationalPrompt(st *state.ChatState, products []catalog.Product, docs []state.Document) string {
	var prompt strings.Builder

	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a beauty store assistant. Answer the shopper's question using\n")
	prompt.WriteString("ONLY the context below. If the context does not answer it, say so.\n")
	prompt.WriteString("Keep the answer short and friendly.\n")
	prompt.WriteString("</system>\n\n")

	prompt.WriteString("<conversation>\n")
	writeHistory(&prompt, st)
	prompt.WriteString("</conversation>\n\n")

	prompt.WriteString("<context>\n")
	for _, doc := range docs {
		fmt.Fprintf(&prompt, "[%s] %s\n", doc.ID, truncateSnippet(doc.Content))
	}
	for _, p := range products {
		fmt.Fprintf(&prompt, "[%s] %s (%s): %s\n", p.ProductID, p.Name, p.Category, p.Description)
	}
	prompt.WriteString("</context>\n")

	return prompt.String()
}

func writeHistory(prompt *strings.Builder, st *state.ChatState) {
	for i, msg := range st.UserMessages {
		fmt.Fprintf(prompt, "shopper: %s\n", msg)
		if i < len(st.AIMessages) {
			fmt.Fprintf(prompt, "assistant: %s\n", st.AIMessages[i])
		}
	}
}
