package service

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/yikao-labs/shenlun-api/internal/dto"
	"github.com/yikao-labs/shenlun-api/pkg/ai"
)

// GradeService runs the grading pipeline: normalize, build prompt, call the
// model, extract the result, reporting progress at every boundary.
type GradeService interface {
	// Ready reports whether the backend credential is configured. It must
	// be checked before any per-request work, including body parsing.
	Ready() error
	// Grade executes one grading call. All errors are terminal for the
	// call; there are no retries at any layer.
	Grade(ctx context.Context, raw dto.GradeRequest, reporter *Reporter) (dto.GradingResult, error)
}

type gradeService struct {
	generator  ai.Generator
	normalizer Normalizer
	builder    PromptBuilder
	validator  *validator.Validate
	sanitizer  *bluemonday.Policy
	stripper   *bluemonday.Policy
	logger     zerolog.Logger
}

// NewGradeService constructs the grading pipeline service. A nil generator
// is allowed and makes the service permanently not Ready, so a misconfigured
// process still serves precise errors instead of panicking.
func NewGradeService(generator ai.Generator, normalizer Normalizer, validator *validator.Validate, logger zerolog.Logger) GradeService {
	return &gradeService{
		generator:  generator,
		normalizer: normalizer,
		validator:  validator,
		sanitizer:  bluemonday.UGCPolicy(),
		stripper:   bluemonday.StrictPolicy(),
		logger:     logger.With().Str("component", "grade_service").Logger(),
	}
}

func (s *gradeService) Ready() error {
	if s.generator == nil {
		return ai.ErrMissingCredential
	}
	return nil
}

func (s *gradeService) Grade(ctx context.Context, raw dto.GradeRequest, reporter *Reporter) (dto.GradingResult, error) {
	if reporter == nil {
		reporter = NewReporter(nil)
	}

	if err := s.Ready(); err != nil {
		return dto.GradingResult{}, err
	}

	tracer := otel.Tracer("github.com/yikao-labs/shenlun-api/internal/service/grade")
	ctx, span := tracer.Start(ctx, "grading.pipeline")
	defer span.End()

	if err := reporter.Advance(StageReceived); err != nil {
		return dto.GradingResult{}, err
	}
	if err := reporter.Advance(StageValidating); err != nil {
		return dto.GradingResult{}, err
	}

	if err := s.validator.Struct(raw); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		return dto.GradingResult{}, err
	}

	request, err := s.normalizer.Normalize(raw)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "validation_failed")
		s.logger.Warn().Err(err).Msg("grading request rejected")
		return dto.GradingResult{}, err
	}

	span.SetAttributes(
		attribute.Bool("grading.multimodal", request.UseMultimodal),
		attribute.Int("grading.material_images", len(request.MaterialImages)),
		attribute.Int("grading.answer_images", len(request.AnswerImages)),
	)

	if err := reporter.Advance(StageCallingModel); err != nil {
		return dto.GradingResult{}, err
	}

	response, err := s.generator.Generate(ctx, s.builder.Build(request))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "model_call_failed")
		s.logger.Error().Err(err).Bool("multimodal", request.UseMultimodal).Msg("model call failed")
		return dto.GradingResult{}, err
	}

	if err := reporter.Advance(StageModelResponded); err != nil {
		return dto.GradingResult{}, err
	}
	if err := reporter.Advance(StageParsing); err != nil {
		return dto.GradingResult{}, err
	}

	result, err := ExtractResult(response)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "extraction_failed")
		s.logger.Error().Err(err).Msg("model response extraction failed")
		return dto.GradingResult{}, err
	}

	if result.ReportMarkdown != "" {
		result.ReportMarkdown = s.sanitizer.Sanitize(result.ReportMarkdown)
	}
	if result.Advice != "" {
		// Advice is rendered as plain text, so markup is stripped outright.
		result.Advice = s.stripper.Sanitize(result.Advice)
	}

	s.logger.Info().
		Int("total_score", result.TotalScore).
		Bool("multimodal", request.UseMultimodal).
		Int("checklist_items", len(result.PointChecklist)).
		Msg("essay graded")

	return result, nil
}

// IsValidationError reports whether the error is client-caused: a structural
// validation failure or one of the normalizer's rejections.
func IsValidationError(err error) bool {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		return true
	}
	return errors.Is(err, ErrMissingMaterial) ||
		errors.Is(err, ErrMissingAnswer) ||
		errors.Is(err, ErrMissingTopic) ||
		errors.Is(err, ErrInvalidImage)
}
