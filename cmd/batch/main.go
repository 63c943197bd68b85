package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/projeto-mae/redacao-api/internal/batch"
	"github.com/projeto-mae/redacao-api/internal/config"
	"github.com/projeto-mae/redacao-api/internal/database"
	"github.com/projeto-mae/redacao-api/internal/models"
	"github.com/projeto-mae/redacao-api/internal/repository"
	"github.com/projeto-mae/redacao-api/pkg/ai"
	"github.com/projeto-mae/redacao-api/pkg/drive"
	"github.com/projeto-mae/redacao-api/pkg/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	if cfg.DriveSourceFolderID == "" || cfg.DriveOutputFolderID == "" {
		log.Fatal("drive source and output folder ids must be configured")
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.GradingRecord{}, &models.ProcessedFile{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storage, err := drive.NewClient(ctx, cfg.DriveCredentialsFile, logger)
	if err != nil {
		log.Fatalf("failed to create drive client: %v", err)
	}

	grader, err := buildGrader(cfg, logger)
	if err != nil {
		log.Fatalf("failed to create grader: %v", err)
	}

	rubric, err := ai.LoadRubric(cfg.RubricPath)
	if err != nil {
		log.Fatalf("failed to load grading rubric: %v", err)
	}

	renderer, err := report.NewRenderer(cfg.TemplatePath, logger)
	if err != nil {
		log.Fatalf("failed to load report template: %v", err)
	}

	runner := batch.NewRunner(
		storage,
		repository.NewMarkerRepository(db),
		grader,
		renderer,
		repository.NewGradingRepository(db),
		rubric,
		cfg.DriveSourceFolderID,
		cfg.DriveOutputFolderID,
		logger,
	)

	// Grade whatever is already waiting before the schedule kicks in.
	if _, err := runner.RunOnce(ctx); err != nil {
		logger.Error().Err(err).Msg("initial batch cycle failed")
	}

	if err := runner.Start(ctx, cfg.BatchSchedule); err != nil {
		log.Fatalf("failed to start batch runner: %v", err)
	}

	<-ctx.Done()
	runner.Stop()
	log.Println("batch runner stopped")
}

func buildGrader(cfg config.Config, logger zerolog.Logger) (ai.Grader, error) {
	if cfg.AIProvider == "openai" {
		return ai.NewOpenAIGrader(ai.OpenAIConfig{
			APIKey:      cfg.OpenAIAPIKey,
			Model:       cfg.OpenAIModel,
			MaxTokens:   int(cfg.MaxOutputTokens),
			Temperature: cfg.Temperature,
			Logger:      logger,
		})
	}

	return ai.NewGeminiGrader(ai.GeminiConfig{
		APIKey:          cfg.GeminiAPIKey,
		Model:           cfg.GeminiModel,
		Temperature:     cfg.Temperature,
		MaxOutputTokens: cfg.MaxOutputTokens,
		Logger:          logger,
	})
}
