package ai

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/projeto-mae/redacao-api/internal/models"
)

// OpenAIConfig defines configuration options for the OpenAI grader.
type OpenAIConfig struct {
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
	Logger      zerolog.Logger
}

// OpenAIGrader implements Grader against the OpenAI chat completion API
// using a vision-capable model.
type OpenAIGrader struct {
	client *openai.Client
	cfg    OpenAIConfig
	tracer trace.Tracer
	logger zerolog.Logger
}

// NewOpenAIGrader builds a new grader using the provided configuration.
func NewOpenAIGrader(cfg OpenAIConfig) (*OpenAIGrader, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai api key is required")
	}

	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}

	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8000
	}

	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}

	logger := cfg.Logger
	if logger.GetLevel() == zerolog.Disabled {
		logger = zerolog.Nop()
	}

	config := openai.DefaultConfig(cfg.APIKey)
	client := openai.NewClientWithConfig(config)

	return &OpenAIGrader{
		client: client,
		cfg:    cfg,
		tracer: otel.Tracer("github.com/projeto-mae/redacao-api/pkg/ai/openai"),
		logger: logger.With().Str("component", "openai_grader").Logger(),
	}, nil
}

// Grade sends the rubric and essay image to OpenAI and parses the structured
// JSON verdict.
func (g *OpenAIGrader) Grade(parent context.Context, input GradingInput) (models.GradingResult, error) {
	ctx, span := g.tracer.Start(parent, "openai.grade", trace.WithAttributes(
		attribute.String("model", g.cfg.Model),
		attribute.String("image.mime", input.Image.MIME),
	))
	defer span.End()

	start := time.Now()
	defer func() {
		gradingDuration.WithLabelValues(g.cfg.Model).Observe(time.Since(start).Seconds())
	}()

	imageURL := fmt.Sprintf("data:%s;base64,%s",
		input.Image.MIME, base64.StdEncoding.EncodeToString(input.Image.Data))

	request := openai.ChatCompletionRequest{
		Model:       g.cfg.Model,
		MaxTokens:   g.cfg.MaxTokens,
		Temperature: g.cfg.Temperature,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: input.Rubric,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    imageURL,
							Detail: openai.ImageURLDetailAuto,
						},
					},
				},
			},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ChatCompletionResponseFormatTypeJSONObject},
	}

	resp, err := g.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return models.GradingResult{}, g.fail(span, fmt.Errorf("%w: %v", ErrModelUnavailable, err))
	}

	if len(resp.Choices) == 0 {
		return models.GradingResult{}, g.fail(span, fmt.Errorf("%w: no choices returned", ErrMalformedResponse))
	}

	result, err := decodeGradingResult(resp.Choices[0].Message.Content)
	if err != nil {
		return models.GradingResult{}, g.fail(span, err)
	}

	span.SetAttributes(attribute.Int("grading.final_score", result.FinalScore))
	return result, nil
}

func (g *OpenAIGrader) fail(span trace.Span, err error) error {
	gradingFailures.WithLabelValues(g.cfg.Model).Inc()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	g.logger.Error().Err(err).Msg("grading request failed")
	return err
}
