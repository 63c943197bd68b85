package ai

import (
	"context"
	"errors"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/projeto-mae/redacao-api/internal/models"
)

var (
	// ErrModelUnavailable indicates the remote model service could not be
	// reached or answered with a non-success status.
	ErrModelUnavailable = errors.New("model service unavailable")
	// ErrMalformedResponse indicates the model returned content that is not
	// valid JSON or does not satisfy the five-competency contract.
	ErrMalformedResponse = errors.New("malformed model response")
)

var (
	gradingDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "redacao",
		Subsystem: "ai",
		Name:      "grading_duration_seconds",
		Help:      "Duration of model grading requests",
	}, []string{"model"})

	gradingFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "redacao",
		Subsystem: "ai",
		Name:      "grading_failures_total",
		Help:      "Number of failed model grading requests",
	}, []string{"model"})
)

// GradingInput pairs the fixed rubric prompt with one essay image. It lives
// for the duration of a single model call.
type GradingInput struct {
	Rubric string
	Image  models.EssayImage
}

// Grader describes a multimodal model capable of grading a handwritten
// essay photo against the ENEM rubric.
type Grader interface {
	Grade(ctx context.Context, input GradingInput) (models.GradingResult, error)
}
