package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/projeto-mae/redacao-api/internal/cache"
	"github.com/projeto-mae/redacao-api/internal/config"
	"github.com/projeto-mae/redacao-api/internal/database"
	"github.com/projeto-mae/redacao-api/internal/handler"
	"github.com/projeto-mae/redacao-api/internal/middleware"
	"github.com/projeto-mae/redacao-api/internal/models"
	"github.com/projeto-mae/redacao-api/internal/notify"
	"github.com/projeto-mae/redacao-api/internal/observability"
	"github.com/projeto-mae/redacao-api/internal/repository"
	"github.com/projeto-mae/redacao-api/internal/router"
	"github.com/projeto-mae/redacao-api/internal/service"
	"github.com/projeto-mae/redacao-api/pkg/ai"
	cloud "github.com/projeto-mae/redacao-api/pkg/cloudinary"
	"github.com/projeto-mae/redacao-api/pkg/report"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}

	if err := db.AutoMigrate(&models.GradingRecord{}, &models.ProcessedFile{}); err != nil {
		log.Fatalf("failed to migrate database: %v", err)
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

	opts := service.GradingOptions{}

	if cfg.CacheEnabled() {
		redisClient, err := database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			log.Fatalf("failed to connect to redis: %v", err)
		}
		defer redisClient.Close()
		opts.Cache = cache.NewVerdictCache(redisClient, cfg.CacheTTL, logger)
	}

	if cfg.CloudinaryEnabled() {
		archive, err := cloud.New(cloud.Config{
			CloudName: cfg.CloudinaryCloudName,
			APIKey:    cfg.CloudinaryAPIKey,
			APISecret: cfg.CloudinaryAPISecret,
			Folder:    cfg.CloudinaryFolder,
		}, logger)
		if err != nil {
			log.Fatalf("failed to create cloudinary client: %v", err)
		}
		opts.Archive = archive
	}

	if cfg.NATSEnabled() {
		publisher, err := notify.NewNATSPublisher(cfg.NATSURL, cfg.NATSSubject, logger)
		if err != nil {
			log.Fatalf("failed to connect to nats: %v", err)
		}
		defer publisher.Close()
		opts.Publisher = publisher
	}

	gradingRepo := repository.NewGradingRepository(db)
	gradingService := service.NewGradingService(grader, renderer, gradingRepo, rubric, cfg.MaxUploadMB, opts, logger)
	essayHandler := handler.NewEssayHandler(gradingService, logger)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.MaxUploadMB + 1) * 1024 * 1024,
		ReadTimeout:  cfg.GradingTimeout + 30*time.Second,
		WriteTimeout: cfg.GradingTimeout + 30*time.Second,
	})

	middleware.Register(app, middleware.Config{Logger: &logger})
	app.Get("/metrics", observability.MetricsHandler())
	router.Register(app, cfg, router.Dependencies{EssayHandler: essayHandler})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	waitForShutdown(app)
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

func waitForShutdown(app *fiber.App) {
	shutdownCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-shutdownCtx.Done()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		log.Printf("graceful shutdown failed: %v", err)
	}

	log.Println("server stopped")
}
