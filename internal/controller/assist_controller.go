package controller

import (
	"github.com/gofiber/fiber/v2"

	"ai-storefront-be/internal/dto"
	"ai-storefront-be/internal/pkg/logger"
	"ai-storefront-be/internal/pkg/serverutils"
	"ai-storefront-be/internal/service"
)

type IAssistController interface {
	RegisterRoutes(r fiber.Router)
	Assist(ctx *fiber.Ctx) error
}

type assistController struct {
	assistService service.IAssistService
	logger        logger.ILogger
}

func NewAssistController(assistService service.IAssistService, sysLogger logger.ILogger) IAssistController {
	return &assistController{
		assistService: assistService,
		logger:        sysLogger,
	}
}

func (c *assistController) RegisterRoutes(r fiber.Router) {
	r.Post("/assist", c.Assist)
}

func (c *assistController) Assist(ctx *fiber.Ctx) error {
	var req dto.AssistRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.assistService.Assist(ctx.Context(), &req)
	if err != nil {
		// The engine already degraded every recoverable failure. Whatever
		// reaches here is catastrophic, and the client still gets a usable
		// turn instead of a 5xx.
		c.logger.Error("assist", "catastrophic turn failure", map[string]interface{}{
			"session_id": req.SessionID,
			"error":      err.Error(),
		})
		return ctx.JSON(fallbackAssistResponse())
	}

	return ctx.JSON(res)
}

func fallbackAssistResponse() *dto.AssistResponse {
	return &dto.AssistResponse{
		Text:           "Sorry, something went wrong on our side. Please try again.",
		AskFollowup:    "no",
		FollowupTopics: []string{},
		Products:       []dto.AssistProduct{},
		Citations:      []dto.AssistCitation{},
	}
}
