package handler

import (
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pathlight/pathlight-go-api/internal/dto"
	"github.com/pathlight/pathlight-go-api/internal/progress"
	"github.com/pathlight/pathlight-go-api/internal/service"
	"github.com/pathlight/pathlight-go-api/internal/utils"
	"github.com/pathlight/pathlight-go-api/pkg/chat"
)

// RoadmapHandler exposes the roadmap REST surface.
type RoadmapHandler struct {
	service service.RoadmapService
	logger  zerolog.Logger
}

// NewRoadmapHandler constructs a roadmap handler.
func NewRoadmapHandler(service service.RoadmapService, logger zerolog.Logger) *RoadmapHandler {
	return &RoadmapHandler{
		service: service,
		logger:  logger.With().Str("component", "roadmap_handler").Logger(),
	}
}

// Register wires roadmap routes.
func (h *RoadmapHandler) Register(router fiber.Router) {
	router.Post("/generate", h.generate)
	router.Get("", h.list)
	router.Get("/:roadmapId", h.get)
	router.Delete("/:roadmapId", h.delete)
	router.Put("/:roadmapId/milestone/:phaseId/:milestoneId", h.updateMilestone)
	router.Post("/:roadmapId/milestone/:phaseId/:milestoneId/start-learning", h.startLearning)
}

func (h *RoadmapHandler) generate(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.GenerateRoadmapRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Generate(c.UserContext(), actor, payload)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "roadmap generated", result)
}

func (h *RoadmapHandler) list(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid limit")
	}

	req := dto.RoadmapListRequest{
		Status: c.Query("status"),
		Domain: c.Query("domain"),
		Limit:  limit,
	}

	roadmaps, err := h.service.List(c.UserContext(), actor, req)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roadmaps retrieved", fiber.Map{"roadmaps": roadmaps})
}

func (h *RoadmapHandler) get(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	roadmap, err := h.service.Get(c.UserContext(), actor, c.Params("roadmapId"))
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roadmap retrieved", roadmap)
}

func (h *RoadmapHandler) delete(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	roadmapID := c.Params("roadmapId")
	if err := h.service.Delete(c.UserContext(), actor, roadmapID); err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "roadmap deleted", fiber.Map{"id": roadmapID})
}

func (h *RoadmapHandler) updateMilestone(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	var payload dto.UpdateMilestoneRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.UpdateMilestone(
		c.UserContext(),
		actor,
		c.Params("roadmapId"),
		c.Params("phaseId"),
		c.Params("milestoneId"),
		payload,
	)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "milestone updated", result)
}

func (h *RoadmapHandler) startLearning(c *fiber.Ctx) error {
	actor := actorFromContext(c)
	if actor.ID == "" {
		return utils.SendError(c, fiber.StatusUnauthorized, "authentication required")
	}

	result, err := h.service.StartLearning(
		c.UserContext(),
		actor,
		c.Params("roadmapId"),
		c.Params("phaseId"),
		c.Params("milestoneId"),
	)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "learning session ready", result)
}

func (h *RoadmapHandler) handleError(c *fiber.Ctx, err error) error {
	var validationErrors validator.ValidationErrors
	var upstream *chat.UpstreamError

	switch {
	case errors.Is(err, service.ErrRoadmapNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "roadmap not found")
	case errors.Is(err, service.ErrMilestoneNotFound):
		return utils.SendError(c, fiber.StatusNotFound, "milestone not found")
	case errors.As(err, &validationErrors):
		details := make([]fiber.Map, 0, len(validationErrors))
		for _, fieldErr := range validationErrors {
			details = append(details, fiber.Map{
				"field": fieldErr.Field(),
				"rule":  fieldErr.Tag(),
			})
		}
		return utils.SendErrorWithDetails(c, fiber.StatusBadRequest, "validation failed", details)
	case errors.Is(err, progress.ErrMilestoneLocked),
		errors.Is(err, progress.ErrIllegalTransition),
		errors.Is(err, progress.ErrQuizNotPassed):
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	case errors.Is(err, progress.ErrMilestoneBusy),
		errors.Is(err, progress.ErrInconsistentState):
		return utils.SendError(c, fiber.StatusConflict, err.Error())
	case errors.As(err, &upstream):
		// Pass through informative upstream statuses such as a 422 from the
		// generator; collapse transport-level failures to 502.
		status := upstream.StatusCode
		if status < fiber.StatusBadRequest || status >= fiber.StatusInternalServerError {
			status = fiber.StatusBadGateway
		}
		requestLogger(h.logger, c).Warn().Err(err).Msg("upstream collaborator error")
		return utils.SendError(c, status, "upstream service error")
	case errors.Is(err, service.ErrUpstreamUnavailable):
		requestLogger(h.logger, c).Error().Err(err).Msg("upstream collaborator unavailable")
		return utils.SendError(c, fiber.StatusBadGateway, "upstream service unavailable")
	default:
		requestLogger(h.logger, c).Error().Err(err).Msg("internal server error")
		return utils.SendError(c, fiber.StatusInternalServerError, "internal server error")
	}
}
