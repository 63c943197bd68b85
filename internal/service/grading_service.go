package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/projeto-mae/redacao-api/internal/cache"
	"github.com/projeto-mae/redacao-api/internal/dto"
	"github.com/projeto-mae/redacao-api/internal/models"
	"github.com/projeto-mae/redacao-api/internal/notify"
	"github.com/projeto-mae/redacao-api/internal/repository"
	"github.com/projeto-mae/redacao-api/pkg/ai"
)

var (
	// ErrEssayFileRequired indicates no file was attached to the request.
	ErrEssayFileRequired = errors.New("essay file is required")
	// ErrEssayTooLarge indicates the upload exceeded the configured limit.
	ErrEssayTooLarge = errors.New("essay image exceeds maximum allowed size")
	// ErrUnsupportedImage indicates the upload is not a jpeg or png photo.
	ErrUnsupportedImage = errors.New("essay image must be a jpeg or png photo")
)

// ReportRenderer turns a grading result into a document artifact.
type ReportRenderer interface {
	Render(result models.GradingResult) (models.Report, error)
}

// ReportArchive stores a durable copy of rendered reports.
type ReportArchive interface {
	Upload(ctx context.Context, name string, reader io.Reader) (string, error)
}

// VerdictCache remembers grading verdicts for identical images.
type VerdictCache interface {
	Get(ctx context.Context, key string) (models.GradingResult, bool)
	Set(ctx context.Context, key string, result models.GradingResult)
}

// GradeOutcome bundles everything a caller needs after one grading cycle.
type GradeOutcome struct {
	Result        models.GradingResult
	Report        models.Report
	ArchiveURL    string
	CachedVerdict bool
}

// GradingService runs the interactive grading pipeline: validate the upload,
// grade it with the model, render the report and keep the history record.
type GradingService interface {
	GradeUpload(ctx context.Context, file *multipart.FileHeader) (GradeOutcome, error)
	GradeImage(ctx context.Context, image models.EssayImage) (GradeOutcome, error)
	ListHistory(ctx context.Context, limit int) ([]dto.GradingRecordResponse, error)
}

type gradingService struct {
	grader    ai.Grader
	renderer  ReportRenderer
	repo      repository.GradingRepository
	archive   ReportArchive
	cache     VerdictCache
	publisher notify.Publisher
	rubric    string
	maxSize   int64
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time
}

// GradingOptions carries the optional collaborators of the service. Any nil
// field simply disables the corresponding behavior.
type GradingOptions struct {
	Archive   ReportArchive
	Cache     VerdictCache
	Publisher notify.Publisher
}

// NewGradingService constructs the interactive grading service.
func NewGradingService(grader ai.Grader, renderer ReportRenderer, repo repository.GradingRepository, rubric string, maxSizeMB int, opts GradingOptions, logger zerolog.Logger) GradingService {
	if maxSizeMB <= 0 {
		maxSizeMB = 10
	}
	return &gradingService{
		grader:    grader,
		renderer:  renderer,
		repo:      repo,
		archive:   opts.Archive,
		cache:     opts.Cache,
		publisher: opts.Publisher,
		rubric:    rubric,
		maxSize:   int64(maxSizeMB) * 1024 * 1024,
		logger:    logger.With().Str("component", "grading_service").Logger(),
		tracer:    otel.Tracer("github.com/projeto-mae/redacao-api/internal/service/grading"),
		now:       time.Now,
	}
}

func (s *gradingService) GradeUpload(ctx context.Context, file *multipart.FileHeader) (GradeOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "grading.upload")
	defer span.End()

	if file == nil {
		span.RecordError(ErrEssayFileRequired)
		span.SetStatus(codes.Error, "missing file")
		return GradeOutcome{}, ErrEssayFileRequired
	}

	span.SetAttributes(
		attribute.String("upload.original_name", file.Filename),
		attribute.Int64("upload.request_size", file.Size),
	)

	if file.Size > s.maxSize {
		span.RecordError(ErrEssayTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return GradeOutcome{}, ErrEssayTooLarge
	}

	handle, err := file.Open()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "open failed")
		return GradeOutcome{}, err
	}
	defer handle.Close()

	buf := bytes.NewBuffer(nil)
	if _, err := io.Copy(buf, io.LimitReader(handle, s.maxSize+1)); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read failed")
		return GradeOutcome{}, err
	}
	if int64(buf.Len()) > s.maxSize {
		span.RecordError(ErrEssayTooLarge)
		span.SetStatus(codes.Error, "payload too large")
		return GradeOutcome{}, ErrEssayTooLarge
	}

	mime := mimetype.Detect(buf.Bytes())
	if !mime.Is("image/jpeg") && !mime.Is("image/png") {
		span.RecordError(ErrUnsupportedImage)
		span.SetStatus(codes.Error, "type not allowed")
		return GradeOutcome{}, ErrUnsupportedImage
	}

	image := models.EssayImage{
		Name: file.Filename,
		MIME: mime.String(),
		Data: buf.Bytes(),
	}

	return s.GradeImage(ctx, image)
}

func (s *gradingService) GradeImage(ctx context.Context, image models.EssayImage) (GradeOutcome, error) {
	ctx, span := s.tracer.Start(ctx, "grading.grade", trace.WithAttributes(
		attribute.String("image.name", image.Name),
		attribute.String("image.mime", image.MIME),
	))
	defer span.End()

	var outcome GradeOutcome

	cacheKey := cache.Key(image.Data, s.rubric)
	if s.cache != nil {
		if cached, found := s.cache.Get(ctx, cacheKey); found {
			outcome.Result = cached
			outcome.CachedVerdict = true
			span.SetAttributes(attribute.Bool("grading.cached", true))
		}
	}

	if !outcome.CachedVerdict {
		result, err := s.grader.Grade(ctx, ai.GradingInput{Rubric: s.rubric, Image: image})
		if err != nil {
			s.recordFailure(ctx, image, err)
			span.RecordError(err)
			span.SetStatus(codes.Error, "grading failed")
			return GradeOutcome{}, err
		}
		outcome.Result = result

		if s.cache != nil {
			s.cache.Set(ctx, cacheKey, result)
		}
	}

	report, err := s.renderer.Render(outcome.Result)
	if err != nil {
		s.recordFailure(ctx, image, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "rendering failed")
		return GradeOutcome{}, err
	}
	outcome.Report = report

	if s.archive != nil {
		url, err := s.archive.Upload(ctx, report.FileName, bytes.NewReader(report.Data))
		if err != nil {
			// Archiving is best effort; the caller still gets the report.
			s.logger.Warn().Err(err).Str("file_name", report.FileName).Msg("failed to archive report")
		} else {
			outcome.ArchiveURL = url
		}
	}

	s.recordSuccess(ctx, image, outcome)
	s.publishEvent(image, outcome.Result)

	span.SetAttributes(attribute.Int("grading.final_score", outcome.Result.FinalScore))
	return outcome, nil
}

func (s *gradingService) ListHistory(ctx context.Context, limit int) ([]dto.GradingRecordResponse, error) {
	records, err := s.repo.ListRecent(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list grading history: %w", err)
	}
	return dto.NewGradingRecordResponses(records), nil
}

func (s *gradingService) recordSuccess(ctx context.Context, image models.EssayImage, outcome GradeOutcome) {
	record := models.GradingRecord{
		Source:      models.GradingSourceInteractive,
		SourceName:  image.Name,
		StudentName: outcome.Result.StudentName,
		Theme:       outcome.Result.Theme,
		FinalScore:  outcome.Result.FinalScore,
		Status:      models.GradingStatusCompleted,
		ArchiveURL:  outcome.ArchiveURL,
		CreatedAt:   s.now(),
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist grading history")
	}
}

func (s *gradingService) recordFailure(ctx context.Context, image models.EssayImage, cause error) {
	record := models.GradingRecord{
		Source:     models.GradingSourceInteractive,
		SourceName: image.Name,
		Status:     models.GradingStatusFailed,
		Error:      cause.Error(),
		CreatedAt:  s.now(),
	}
	if err := s.repo.Create(ctx, &record); err != nil {
		s.logger.Warn().Err(err).Msg("failed to persist grading failure")
	}
}

func (s *gradingService) publishEvent(image models.EssayImage, result models.GradingResult) {
	if s.publisher == nil {
		return
	}
	event := notify.GradedEvent{
		Source:      models.GradingSourceInteractive,
		SourceName:  image.Name,
		StudentName: result.StudentName,
		FinalScore:  result.FinalScore,
		GradedAt:    s.now(),
	}
	if err := s.publisher.Publish(event); err != nil {
		s.logger.Warn().Err(err).Msg("failed to publish graded event")
	}
}
