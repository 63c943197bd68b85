package handler

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/projeto-mae/redacao-api/internal/service"
	"github.com/projeto-mae/redacao-api/internal/utils"
	"github.com/projeto-mae/redacao-api/pkg/ai"
	"github.com/projeto-mae/redacao-api/pkg/report"
)

// EssayHandler exposes the interactive grading endpoints.
type EssayHandler struct {
	service service.GradingService
	logger  zerolog.Logger
}

// NewEssayHandler constructs an essay handler.
func NewEssayHandler(service service.GradingService, logger zerolog.Logger) *EssayHandler {
	return &EssayHandler{
		service: service,
		logger:  logger.With().Str("component", "essay_handler").Logger(),
	}
}

// Register wires the essay routes.
func (h *EssayHandler) Register(router fiber.Router) {
	router.Post("/grade", h.grade)
	router.Get("/history", h.history)
}

func (h *EssayHandler) grade(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "essay photo is required in the 'file' field")
	}

	outcome, err := h.service.GradeUpload(c.Context(), file)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrEssayFileRequired):
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		case errors.Is(err, service.ErrEssayTooLarge):
			return utils.SendError(c, fiber.StatusRequestEntityTooLarge, err.Error())
		case errors.Is(err, service.ErrUnsupportedImage):
			return utils.SendError(c, fiber.StatusUnsupportedMediaType, err.Error())
		case errors.Is(err, ai.ErrMalformedResponse):
			return utils.SendError(c, fiber.StatusUnprocessableEntity, "the model returned an incomplete evaluation, try again")
		case errors.Is(err, ai.ErrModelUnavailable):
			return utils.SendError(c, fiber.StatusBadGateway, "grading model is unavailable")
		case errors.Is(err, report.ErrTemplateIncompatible), errors.Is(err, report.ErrTemplateNotFound):
			h.logger.Error().Err(err).Msg("report template misconfigured")
			return utils.SendError(c, fiber.StatusInternalServerError, "report template misconfigured")
		default:
			h.logger.Error().Err(err).Msg("grading failed")
			return utils.SendError(c, fiber.StatusInternalServerError, "grading failed")
		}
	}

	h.logger.Info().
		Str("student", outcome.Result.StudentName).
		Int("final_score", outcome.Result.FinalScore).
		Bool("cached", outcome.CachedVerdict).
		Msg("essay graded")

	if outcome.ArchiveURL != "" {
		c.Set("X-Report-Archive-Url", outcome.ArchiveURL)
	}

	return utils.SendAttachment(c, outcome.Report.FileName, outcome.Report.Data)
}

func (h *EssayHandler) history(c *fiber.Ctx) error {
	limit, err := parseQueryInt(c, "limit")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "limit must be an integer")
	}

	records, err := h.service.ListHistory(c.Context(), limit)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list grading history")
		return utils.SendError(c, fiber.StatusInternalServerError, "failed to list grading history")
	}

	return utils.SendSuccess(c, "grading history", records)
}
