package events

import "time"

const TypeAssistTurnCompleted = "ASSIST_TURN_COMPLETED"

// NewAssistTurnCompleted records one finished conversation turn for the
// analytics consumers (conversion dashboards, margin reporting).
func NewAssistTurnCompleted(sessionID string, turnCount int, intent string, askFollowup string, productCount, citationCount int, latencyMs int64) Event {
	return BaseEvent{
		Type: TypeAssistTurnCompleted,
		Data: map[string]interface{}{
			"session_id":     sessionID,
			"turn_count":     turnCount,
			"intent":         intent,
			"ask_followup":   askFollowup,
			"product_count":  productCount,
			"citation_count": citationCount,
			"latency_ms":     latencyMs,
		},
		OccurredAt: time.Now(),
	}
}
