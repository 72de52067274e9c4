package service

import (
	"context"
	"time"

	"ai-storefront-be/internal/dto"
	"ai-storefront-be/internal/pkg/logger"
	"ai-storefront-be/pkg/convo/graph"
	"ai-storefront-be/pkg/convo/state"
	"ai-storefront-be/pkg/events"
	pkgNats "ai-storefront-be/pkg/nats"
)

type IAssistService interface {
	Assist(ctx context.Context, req *dto.AssistRequest) (*dto.AssistResponse, error)
}

type assistService struct {
	graph   *graph.Graph
	natsPub *pkgNats.Publisher
	logger  logger.ILogger
}

func NewAssistService(g *graph.Graph, natsPub *pkgNats.Publisher, sysLogger logger.ILogger) IAssistService {
	return &assistService{
		graph:   g,
		natsPub: natsPub,
		logger:  sysLogger,
	}
}

func (s *assistService) Assist(ctx context.Context, req *dto.AssistRequest) (*dto.AssistResponse, error) {
	start := time.Now()

	st, err := s.graph.ProcessMessage(ctx, req.SessionID, req.Message)
	if err != nil {
		s.logger.Error("assist", "turn failed", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
		return nil, err
	}

	latency := time.Since(start).Milliseconds()
	res := toAssistResponse(st, latency)

	s.publishTurnEvent(ctx, st, latency)

	s.logger.Info("assist", "turn completed", map[string]interface{}{
		"session_id":   st.SessionID,
		"turn_count":   st.TurnCount,
		"intent":       string(st.Intent),
		"ask_followup": string(st.AskFollowup),
		"products":     len(res.Products),
		"latency_ms":   latency,
	})

	return res, nil
}

// publishTurnEvent is best effort: analytics never block or fail a turn.
func (s *assistService) publishTurnEvent(ctx context.Context, st *state.ChatState, latencyMs int64) {
	if s.natsPub == nil {
		return
	}
	evt := events.NewAssistTurnCompleted(
		st.SessionID,
		st.TurnCount,
		string(st.Intent),
		string(st.AskFollowup),
		len(st.Products),
		len(st.Citations),
		latencyMs,
	)
	if err := s.natsPub.Publish(ctx, evt); err != nil {
		s.logger.Warn("assist", "failed to publish turn event", map[string]interface{}{
			"session_id": st.SessionID,
			"error":      err.Error(),
		})
	}
}

func toAssistResponse(st *state.ChatState, latencyMs int64) *dto.AssistResponse {
	products := make([]dto.AssistProduct, 0, len(st.Products))
	for _, p := range st.Products {
		products = append(products, dto.AssistProduct{
			ProductID:      p.ProductID,
			Name:           p.Name,
			Category:       p.Category,
			Description:    p.Description,
			TopIngredients: p.TopIngredients,
			Tags:           p.Tags,
			PriceUSD:       p.PriceUSD,
			MarginPercent:  p.MarginPercent,
		})
	}

	citations := make([]dto.AssistCitation, 0, len(st.Citations))
	for _, c := range st.Citations {
		citations = append(citations, dto.AssistCitation{
			ID:      c.ID,
			Snippet: c.Snippet,
		})
	}

	followupTopics := st.FollowupTopics
	if followupTopics == nil {
		followupTopics = []string{}
	}

	return &dto.AssistResponse{
		Text:           st.LastAIMessage(),
		AskFollowup:    string(st.AskFollowup),
		FollowupTopics: followupTopics,
		Products:       products,
		Citations:      citations,
		LatencyMs:      latencyMs,
	}
}
