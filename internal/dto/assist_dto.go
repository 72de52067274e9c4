package dto

type AssistRequest struct {
	SessionID string `json:"session_id" validate:"required,min=8"`
	Message   string `json:"message" validate:"required,max=2000"`
}

type AssistProduct struct {
	ProductID      string  `json:"product_id"`
	Name           string  `json:"name"`
	Category       string  `json:"category"`
	Description    string  `json:"description"`
	TopIngredients string  `json:"top_ingredients"`
	Tags           string  `json:"tags"`
	PriceUSD       float64 `json:"price_usd"`
	MarginPercent  float64 `json:"margin_percent"`
}

type AssistCitation struct {
	ID      string `json:"id"`
	Snippet string `json:"snippet"`
}

type AssistResponse struct {
	Text           string           `json:"text"`
	AskFollowup    string           `json:"ask_followup"`
	FollowupTopics []string         `json:"followup_topics"`
	Products       []AssistProduct  `json:"products"`
	Citations      []AssistCitation `json:"citations"`
	LatencyMs      int64            `json:"latency_ms"`
}
