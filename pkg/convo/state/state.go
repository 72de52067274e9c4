package state

import (
	"ai-storefront-be/pkg/catalog"
)

// Intent labels what the shopper wants from the current turn.
type Intent string

const (
	IntentRecommendSpecific Intent = "RECOMMEND_SPECIFIC"
	IntentRecommendVague    Intent = "RECOMMEND_VAGUE"
	IntentInfoProduct       Intent = "INFO_PRODUCT"
	IntentInfoGeneral       Intent = "INFO_GENERAL"
	IntentOther             Intent = "OTHER"
)

func (i Intent) Valid() bool {
	switch i {
	case IntentRecommendSpecific, IntentRecommendVague, IntentInfoProduct, IntentInfoGeneral, IntentOther:
		return true
	}
	return false
}

// IsRecommendation reports whether the turn should end with ranked products.
func (i Intent) IsRecommendation() bool {
	return i == IntentRecommendSpecific || i == IntentRecommendVague
}

// IsInformational reports whether the turn should end with a grounded answer.
func (i Intent) IsInformational() bool {
	return i == IntentInfoProduct || i == IntentInfoGeneral
}

// Followup is the clarify-or-answer flag. Kept as yes/no strings since that
// is what travels over the wire to the client.
type Followup string

const (
	FollowupYes Followup = "yes"
	FollowupNo  Followup = "no"
)

// Extraction is the structured record pulled out of the shopper's message.
// Every field except Intent and AskFollowup is a list: a message can mention
// several categories, concerns or products at once.
type Extraction struct {
	Intent         Intent   `json:"intent"`
	AskFollowup    Followup `json:"ask_followup"`
	FollowupTopics []string `json:"followup_topics"`

	Category         []string `json:"category"`
	Name             []string `json:"name"`
	TopIngredients   []string `json:"top_ingredients"`
	Concerns         []string `json:"concerns"`
	Keywords         []string `json:"keywords"`
	AvoidIngredients []string `json:"avoid_ingredients"`
	ProductID        []string `json:"product_id"`
	Price            []string `json:"price"`
	Other            []string `json:"other"`
}

// Document is one retrieved corpus entry with its similarity score.
type Document struct {
	ID       string                 `json:"id"`
	Content  string                 `json:"content"`
	Score    float64                `json:"score"`
	Metadata map[string]interface{} `json:"metadata"`
}

func (d Document) metaString(key string) string {
	if d.Metadata == nil {
		return ""
	}
	if v, ok := d.Metadata[key].(string); ok {
		return v
	}
	return ""
}

// DocType returns the corpus document type ("product", "review", ...).
func (d Document) DocType() string {
	return d.metaString("doc_type")
}

// ProductID returns the product this document describes, if any.
func (d Document) ProductID() string {
	return d.metaString("product_id")
}

// Citation points at a supporting document for an informational answer.
type Citation struct {
	ID      string `json:"id"`
	Snippet string `json:"snippet"`
}

// ChatState is the whole conversation for one session. It is what gets
// checkpointed between stages and between turns.
type ChatState struct {
	SessionID    string   `json:"session_id"`
	TurnCount    int      `json:"turn_count"`
	UserMessages []string `json:"user_messages"`
	AIMessages   []string `json:"ai_messages"`

	Intent         Intent      `json:"intent"`
	Extracted      *Extraction `json:"extracted,omitempty"`
	AskFollowup    Followup    `json:"ask_followup"`
	FollowupTopics []string    `json:"followup_topics"`

	RetrievedDocs []Document        `json:"retrieved_docs"`
	Products      []catalog.Product `json:"products"`
	Citations     []Citation        `json:"citations"`
}

func New(sessionID string) *ChatState {
	return &ChatState{
		SessionID:   sessionID,
		AskFollowup: FollowupNo,
	}
}

// AppendUserMessage records an incoming message without touching the rest
// of the state.
func (s *ChatState) AppendUserMessage(msg string) {
	s.UserMessages = append(s.UserMessages, msg)
}

// LastUserMessage returns the newest shopper message, or "".
func (s *ChatState) LastUserMessage() string {
	if len(s.UserMessages) == 0 {
		return ""
	}
	return s.UserMessages[len(s.UserMessages)-1]
}

// LastAIMessage returns the newest assistant message, or "".
func (s *ChatState) LastAIMessage() string {
	if len(s.AIMessages) == 0 {
		return ""
	}
	return s.AIMessages[len(s.AIMessages)-1]
}

// Clone returns a copy sharing no memory the engine writes to. Checkpoint
// stores snapshot through it and the graph hands clones across the session
// lock, so a finished turn's state can be read while the next turn mutates
// the live one. Document metadata maps are shared; they are never written
// after retrieval.
func (s *ChatState) Clone() *ChatState {
	if s == nil {
		return nil
	}
	out := *s
	out.UserMessages = cloneStrings(s.UserMessages)
	out.AIMessages = cloneStrings(s.AIMessages)
	out.FollowupTopics = cloneStrings(s.FollowupTopics)
	out.Extracted = s.Extracted.clone()

	if s.RetrievedDocs != nil {
		out.RetrievedDocs = make([]Document, len(s.RetrievedDocs))
		copy(out.RetrievedDocs, s.RetrievedDocs)
	}
	if s.Products != nil {
		out.Products = make([]catalog.Product, len(s.Products))
		copy(out.Products, s.Products)
	}
	if s.Citations != nil {
		out.Citations = make([]Citation, len(s.Citations))
		copy(out.Citations, s.Citations)
	}
	return &out
}

func (e *Extraction) clone() *Extraction {
	if e == nil {
		return nil
	}
	out := *e
	out.FollowupTopics = cloneStrings(e.FollowupTopics)
	out.Category = cloneStrings(e.Category)
	out.Name = cloneStrings(e.Name)
	out.TopIngredients = cloneStrings(e.TopIngredients)
	out.Concerns = cloneStrings(e.Concerns)
	out.Keywords = cloneStrings(e.Keywords)
	out.AvoidIngredients = cloneStrings(e.AvoidIngredients)
	out.ProductID = cloneStrings(e.ProductID)
	out.Price = cloneStrings(e.Price)
	out.Other = cloneStrings(e.Other)
	return &out
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}

// Delta is a partial state update produced by one stage. Nil fields leave
// the current value untouched, so stages only declare what they changed.
type Delta struct {
	TurnIncrement bool

	Intent         *Intent
	Extracted      *Extraction
	AskFollowup    *Followup
	FollowupTopics *[]string

	AppendAIMessage *string

	RetrievedDocs *[]Document
	Products      *[]catalog.Product
	Citations     *[]Citation
}

// Apply merges a stage delta into the state.
func (s *ChatState) Apply(d Delta) {
	if d.TurnIncrement {
		s.TurnCount++
	}
	if d.Intent != nil {
		s.Intent = *d.Intent
	}
	if d.Extracted != nil {
		s.Extracted = d.Extracted
	}
	if d.AskFollowup != nil {
		s.AskFollowup = *d.AskFollowup
	}
	if d.FollowupTopics != nil {
		s.FollowupTopics = *d.FollowupTopics
	}
	if d.AppendAIMessage != nil {
		s.AIMessages = append(s.AIMessages, *d.AppendAIMessage)
	}
	if d.RetrievedDocs != nil {
		s.RetrievedDocs = *d.RetrievedDocs
	}
	if d.Products != nil {
		s.Products = *d.Products
	}
	if d.Citations != nil {
		s.Citations = *d.Citations
	}
}
