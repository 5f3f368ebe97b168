package handler

import (
	"bufio"
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/yikao-labs/shenlun-api/internal/dto"
	"github.com/yikao-labs/shenlun-api/internal/middleware"
	"github.com/yikao-labs/shenlun-api/internal/service"
	"github.com/yikao-labs/shenlun-api/internal/utils"
	"github.com/yikao-labs/shenlun-api/pkg/ai"
)

// GradeHandler exposes the grading pipeline over HTTP: a plain
// request/response endpoint and a server-sent-events variant that streams
// progress while the model call runs.
type GradeHandler struct {
	service service.GradeService
	logger  zerolog.Logger
}

// NewGradeHandler builds a grading handler instance. Structural validation
// lives in the service so both endpoints share one rejection path.
func NewGradeHandler(service service.GradeService, logger zerolog.Logger) *GradeHandler {
	return &GradeHandler{
		service: service,
		logger:  logger.With().Str("component", "grade_handler").Logger(),
	}
}

// Register attaches the routes to the provided router group.
func (h *GradeHandler) Register(router fiber.Router) {
	router.Post("", h.grade)
	router.Post("/stream", h.gradeStream)
}

func (h *GradeHandler) grade(c *fiber.Ctx) error {
	// Credential misconfiguration surfaces before the body is even parsed.
	if err := h.service.Ready(); err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, errorMessage(err))
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	result, err := h.service.Grade(c.Context(), payload, nil)
	if err != nil {
		return h.handleError(c, err)
	}

	return utils.SendSuccess(c, "essay graded", result)
}

func (h *GradeHandler) gradeStream(c *fiber.Ctx) error {
	if err := h.service.Ready(); err != nil {
		return utils.SendError(c, fiber.StatusInternalServerError, errorMessage(err))
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid request body")
	}

	c.Set(fiber.HeaderContentType, "text/event-stream; charset=utf-8")
	c.Set(fiber.HeaderCacheControl, "no-cache, no-transform")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	correlation := middleware.GetCorrelationID(c)
	ctx, cancel := context.WithCancel(middleware.ContextWithCorrelation(context.Background(), correlation))
	logger := h.logger.With().Str("correlation_id", correlation).Logger()
	svc := h.service

	// The writer runs after this handler returns; it must not touch the
	// fiber context, which is why the payload is parsed above.
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer cancel()

		sink := newSSESink(w, cancel)
		reporter := service.NewReporter(sink)

		result, err := svc.Grade(ctx, payload, reporter)
		if err != nil {
			if errors.Is(err, service.ErrAborted) {
				logger.Warn().Msg("client went away mid-stream, grading abandoned")
				return
			}
			logger.Error().Err(err).Msg("streamed grading call failed")
			_ = reporter.Advance(service.StageError)
			_ = sink.WriteEvent("error", dto.StreamError{
				Message: errorMessage(err),
				Details: errorDetails(err),
				Status:  errorStatus(err),
			})
			return
		}

		if err := sink.WriteEvent("result", result); err != nil {
			return
		}
		_ = reporter.Advance(service.StageDone)
	}))

	return nil
}

func (h *GradeHandler) handleError(c *fiber.Ctx, err error) error {
	status := errorStatus(err)
	if status >= fiber.StatusInternalServerError {
		h.logger.Error().Err(err).Msg("grading call failed")
	}
	return utils.SendErrorDetails(c, status, errorMessage(err), errorDetails(err))
}

func errorStatus(err error) int {
	var gatewayErr *ai.GatewayError
	var extractionErr *service.ExtractionError
	switch {
	case service.IsValidationError(err):
		return fiber.StatusBadRequest
	case errors.Is(err, ai.ErrMissingCredential):
		return fiber.StatusInternalServerError
	case errors.As(err, &extractionErr):
		return fiber.StatusBadGateway
	case errors.As(err, &gatewayErr):
		if gatewayErr.StatusCode > 0 {
			return gatewayErr.StatusCode
		}
		return fiber.StatusInternalServerError
	default:
		return fiber.StatusInternalServerError
	}
}

func errorMessage(err error) string {
	var gatewayErr *ai.GatewayError
	var extractionErr *service.ExtractionError
	switch {
	case service.IsValidationError(err):
		return err.Error()
	case errors.Is(err, ai.ErrMissingCredential):
		return "model backend credential missing"
	case errors.As(err, &extractionErr):
		return "invalid model response"
	case errors.As(err, &gatewayErr):
		return "model backend error"
	default:
		return "failed to grade essay"
	}
}

// errorDetails attaches the raw upstream text for operator diagnosis on
// extraction and gateway failures. Validation errors carry no details.
func errorDetails(err error) any {
	var gatewayErr *ai.GatewayError
	var extractionErr *service.ExtractionError
	switch {
	case errors.As(err, &extractionErr):
		return fiber.Map{"raw": extractionErr.Raw}
	case errors.As(err, &gatewayErr):
		return fiber.Map{"status": gatewayErr.StatusCode, "body": gatewayErr.Body}
	default:
		return nil
	}
}
