package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/api/option"

	"github.com/projeto-mae/redacao-api/internal/models"
)

// GeminiConfig defines configuration options for the Gemini grader.
type GeminiConfig struct {
	APIKey          string
	Model           string
	Temperature     float32
	MaxOutputTokens int32
	Logger          zerolog.Logger
}

// GeminiGrader implements Grader against the Gemini multimodal API.
type GeminiGrader struct {
	cfg    GeminiConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewGeminiGrader builds a new grader using the provided configuration.
func NewGeminiGrader(cfg GeminiConfig) (*GeminiGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "models/gemini-2.5-flash"
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}

	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = 8000
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	return &GeminiGrader{
		cfg:    cfg,
		tracer: otel.Tracer("github.com/projeto-mae/redacao-api/pkg/ai/gemini"),
		logger: logger.With().Str("component", "gemini_grader").Logger(),
	}, nil
}

// Grade sends the rubric and essay image to Gemini and parses the structured
// JSON verdict. The response MIME type is pinned to application/json so the
// raw content is guaranteed-parseable rather than free text.
func (g *GeminiGrader) Grade(parent context.Context, input GradingInput) (models.GradingResult, error) {
	ctx, span := g.tracer.Start(parent, "gemini.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.String("image.mime", input.Image.MIME),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		gradingDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	}()

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.cfg.APIKey))
	if err != nil {
		return models.GradingResult{}, g.fail(span, fmt.Errorf("%w: %v", ErrModelUnavailable, err))
	}
	defer client.Close()

	model := client.GenerativeModel(g.cfg.Model)
	temperature := g.cfg.Temperature
	maxTokens := g.cfg.MaxOutputTokens
	model.GenerationConfig = genai.GenerationConfig{
		Temperature:      &temperature,
		MaxOutputTokens:  &maxTokens,
		ResponseMIMEType: "application/json",
	}

	parts := []genai.Part{
		genai.Text(input.Rubric),
		&genai.Blob{MIMEType: input.Image.MIME, Data: input.Image.Data},
	}

	resp, err := model.GenerateContent(ctx, parts...)
	if err != nil {
		return models.GradingResult{}, g.fail(span, fmt.Errorf("%w: %v", ErrModelUnavailable, err))
	}

	content := firstText(resp)
	result, err := decodeGradingResult(content)
	if err != nil {
		return models.GradingResult{}, g.fail(span, err)
	}

	span.SetAttributes(attribute.Int("grading.final_score", result.FinalScore))
	return result, nil
}

func (g *GeminiGrader) fail(span trace.Span, err error) error {
	gradingFailures.WithLabelValues(g.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	g.logger.Error().Err(err).Msg("grading request failed")
	return err
}

func firstText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if text, ok := part.(genai.Text); ok {
				return string(text)
			}
		}
	}
	return ""
}
