package batch

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/projeto-mae/redacao-api/internal/models"
	"github.com/projeto-mae/redacao-api/internal/repository"
	"github.com/projeto-mae/redacao-api/internal/service"
	"github.com/projeto-mae/redacao-api/pkg/ai"
	"github.com/projeto-mae/redacao-api/pkg/drive"
)

var (
	batchCycles = promauto.NewCounter(prometheus.CounterOpts{
		Name: "redacao_batch_cycles_total",
		Help: "Number of completed batch polling cycles.",
	})
	batchFiles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "redacao_batch_files_total",
		Help: "Files handled by the batch runner, by outcome.",
	}, []string{"outcome"})
)

// FolderStorage is the remote folder the runner polls for essay photos and
// writes reports back into.
type FolderStorage interface {
	ListImages(ctx context.Context, folderID string) ([]drive.File, error)
	Download(ctx context.Context, fileID string) ([]byte, error)
	UploadReport(ctx context.Context, folderID, name string, data []byte) (string, error)
}

// Summary reports what one polling cycle did.
type Summary struct {
	Listed    int
	Skipped   int
	Processed int
	Failed    int
}

// Runner polls the source folder for new essay photos, grades each one and
// uploads the rendered report to the output folder. A file is marked as
// processed only after its report upload succeeded, so a crash mid-cycle
// causes a retry on the next run rather than a lost essay.
type Runner struct {
	storage  FolderStorage
	markers  repository.MarkerRepository
	grader   ai.Grader
	renderer service.ReportRenderer
	history  repository.GradingRepository

	rubric         string
	sourceFolderID string
	outputFolderID string

	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time

	mu        sync.Mutex
	scheduler *cron.Cron
}

// NewRunner constructs the batch runner.
func NewRunner(
	storage FolderStorage,
	markers repository.MarkerRepository,
	grader ai.Grader,
	renderer service.ReportRenderer,
	history repository.GradingRepository,
	rubric, sourceFolderID, outputFolderID string,
	logger zerolog.Logger,
) *Runner {
	return &Runner{
		storage:        storage,
		markers:        markers,
		grader:         grader,
		renderer:       renderer,
		history:        history,
		rubric:         rubric,
		sourceFolderID: sourceFolderID,
		outputFolderID: outputFolderID,
		logger:         logger.With().Str("component", "batch_runner").Logger(),
		tracer:         otel.Tracer("github.com/projeto-mae/redacao-api/internal/batch"),
		now:            time.Now,
	}
}

// RunOnce executes one polling cycle. Failures on individual files are
// logged and recorded but never abort the cycle.
func (r *Runner) RunOnce(ctx context.Context) (Summary, error) {
	ctx, span := r.tracer.Start(ctx, "batch.cycle")
	defer span.End()

	var summary Summary

	files, err := r.storage.ListImages(ctx, r.sourceFolderID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return summary, fmt.Errorf("list source folder: %w", err)
	}
	summary.Listed = len(files)

	for _, file := range files {
		if ctx.Err() != nil {
			return summary, ctx.Err()
		}

		done, err := r.markers.IsProcessed(ctx, file.ID)
		if err != nil {
			r.logger.Error().Err(err).Str("file_id", file.ID).Msg("marker lookup failed, skipping file")
			summary.Failed++
			batchFiles.WithLabelValues("failed").Inc()
			continue
		}
		if done {
			summary.Skipped++
			batchFiles.WithLabelValues("skipped").Inc()
			continue
		}

		if err := r.processFile(ctx, file); err != nil {
			r.logger.Error().Err(err).Str("file_id", file.ID).Str("file_name", file.Name).Msg("failed to grade essay")
			summary.Failed++
			batchFiles.WithLabelValues("failed").Inc()
			continue
		}

		summary.Processed++
		batchFiles.WithLabelValues("processed").Inc()
	}

	batchCycles.Inc()
	span.SetAttributes(
		attribute.Int("batch.listed", summary.Listed),
		attribute.Int("batch.processed", summary.Processed),
		attribute.Int("batch.failed", summary.Failed),
	)

	r.logger.Info().
		Int("listed", summary.Listed).
		Int("skipped", summary.Skipped).
		Int("processed", summary.Processed).
		Int("failed", summary.Failed).
		Msg("batch cycle finished")

	return summary, nil
}

func (r *Runner) processFile(ctx context.Context, file drive.File) error {
	ctx, span := r.tracer.Start(ctx, "batch.file", trace.WithAttributes(
		attribute.String("file.id", file.ID),
		attribute.String("file.name", file.Name),
	))
	defer span.End()

	data, err := r.storage.Download(ctx, file.ID)
	if err != nil {
		r.recordFailure(ctx, file, err)
		return err
	}

	image := models.EssayImage{Name: file.Name, MIME: file.MIME, Data: data}

	result, err := r.grader.Grade(ctx, ai.GradingInput{Rubric: r.rubric, Image: image})
	if err != nil {
		r.recordFailure(ctx, file, err)
		return err
	}

	report, err := r.renderer.Render(result)
	if err != nil {
		r.recordFailure(ctx, file, err)
		return err
	}

	reportID, err := r.storage.UploadReport(ctx, r.outputFolderID, report.FileName, report.Data)
	if err != nil {
		r.recordFailure(ctx, file, err)
		return err
	}

	marker := models.ProcessedFile{
		SourceFileID: file.ID,
		SourceName:   file.Name,
		ReportFileID: reportID,
		ProcessedAt:  r.now().UTC(),
	}
	if err := r.markers.MarkProcessed(ctx, &marker); err != nil {
		// The report exists remotely; without the marker the file will be
		// graded again next cycle, producing a duplicate report.
		return fmt.Errorf("mark %s processed: %w", file.ID, err)
	}

	record := models.GradingRecord{
		Source:       models.GradingSourceBatch,
		SourceFileID: file.ID,
		SourceName:   file.Name,
		StudentName:  result.StudentName,
		Theme:        result.Theme,
		FinalScore:   result.FinalScore,
		Status:       models.GradingStatusCompleted,
		CreatedAt:    r.now(),
	}
	if err := r.history.Create(ctx, &record); err != nil {
		r.logger.Warn().Err(err).Str("file_id", file.ID).Msg("failed to persist grading history")
	}

	r.logger.Info().
		Str("file_name", file.Name).
		Str("student", result.StudentName).
		Int("final_score", result.FinalScore).
		Msg("essay graded")

	return nil
}

func (r *Runner) recordFailure(ctx context.Context, file drive.File, cause error) {
	record := models.GradingRecord{
		Source:       models.GradingSourceBatch,
		SourceFileID: file.ID,
		SourceName:   file.Name,
		Status:       models.GradingStatusFailed,
		Error:        cause.Error(),
		CreatedAt:    r.now(),
	}
	if err := r.history.Create(ctx, &record); err != nil {
		r.logger.Warn().Err(err).Str("file_id", file.ID).Msg("failed to persist grading failure")
	}
}

// Start schedules RunOnce on the given cron expression and returns
// immediately. An overlapping cycle is skipped, never queued.
func (r *Runner) Start(ctx context.Context, schedule string) error {
	scheduler := cron.New()
	_, err := scheduler.AddFunc(schedule, func() {
		if !r.mu.TryLock() {
			r.logger.Warn().Msg("previous cycle still running, skipping this tick")
			return
		}
		defer r.mu.Unlock()

		if _, err := r.RunOnce(ctx); err != nil {
			r.logger.Error().Err(err).Msg("batch cycle aborted")
		}
	})
	if err != nil {
		return fmt.Errorf("schedule batch runner: %w", err)
	}

	scheduler.Start()
	r.scheduler = scheduler
	r.logger.Info().Str("schedule", schedule).Msg("batch runner started")
	return nil
}

// Stop halts the scheduler and waits for a running cycle to finish.
func (r *Runner) Stop() {
	if r.scheduler == nil {
		return
	}
	ctx := r.scheduler.Stop()
	<-ctx.Done()
	r.logger.Info().Msg("batch runner stopped")
}
