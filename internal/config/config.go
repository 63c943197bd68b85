package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for both binaries. It is loaded
// once at startup and passed explicitly to constructors.
type Config struct {
	AppName string `validate:"required"`
	AppEnv  string
	AppPort string `validate:"required"`

	AIProvider      string `validate:"required,oneof=gemini openai"`
	GeminiAPIKey    string `validate:"required_if=AIProvider gemini"`
	GeminiModel     string
	OpenAIAPIKey    string `validate:"required_if=AIProvider openai"`
	OpenAIModel     string
	Temperature     float32 `validate:"gte=0,lte=2"`
	MaxOutputTokens int32   `validate:"gt=0"`
	GradingTimeout  time.Duration

	RubricPath   string `validate:"required"`
	TemplatePath string `validate:"required"`
	MaxUploadMB  int

	DatabaseURL string `validate:"required"`
	RedisURL    string
	CacheTTL    time.Duration

	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CloudinaryFolder    string

	DriveCredentialsFile string
	DriveSourceFolderID  string
	DriveOutputFolderID  string
	BatchSchedule        string

	NATSURL     string
	NATSSubject string
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// CacheEnabled reports whether the Redis verdict cache should be wired in.
func (c Config) CacheEnabled() bool {
	return c.RedisURL != ""
}

// CloudinaryEnabled reports whether rendered reports should be archived.
func (c Config) CloudinaryEnabled() bool {
	return c.CloudinaryCloudName != "" && c.CloudinaryAPIKey != "" && c.CloudinaryAPISecret != ""
}

// NATSEnabled reports whether graded-essay events should be published.
func (c Config) NATSEnabled() bool {
	return c.NATSURL != ""
}

// Load reads configuration values from environment variables and an optional
// .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("REDACAO")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Redacao API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("ai.provider", "gemini")
	v.SetDefault("gemini.model", "models/gemini-2.5-flash")
	v.SetDefault("openai.model", "gpt-4o-mini")
	v.SetDefault("temperature", 0.2)
	v.SetDefault("max_output_tokens", 8000)
	v.SetDefault("grading_timeout", "120s")
	v.SetDefault("rubric.path", "assets/prompt.txt")
	v.SetDefault("template.path", "assets/template.docx")
	v.SetDefault("max_upload_mb", 10)
	v.SetDefault("database.url", "redacao.db")
	v.SetDefault("cache.ttl", "24h")
	v.SetDefault("cloudinary.folder", "redacao/relatorios")
	v.SetDefault("batch.schedule", "@every 5m")
	v.SetDefault("nats.subject", "redacao.graded")

	timeout, err := time.ParseDuration(v.GetString("grading_timeout"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid grading timeout: %w", err)
	}

	cacheTTL, err := time.ParseDuration(v.GetString("cache.ttl"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid cache ttl: %w", err)
	}

	cfg := Config{
		AppName: v.GetString("app.name"),
		AppEnv:  v.GetString("app.env"),
		AppPort: v.GetString("app.port"),

		AIProvider:      strings.ToLower(v.GetString("ai.provider")),
		GeminiAPIKey:    v.GetString("gemini.api_key"),
		GeminiModel:     v.GetString("gemini.model"),
		OpenAIAPIKey:    v.GetString("openai.api_key"),
		OpenAIModel:     v.GetString("openai.model"),
		Temperature:     float32(v.GetFloat64("temperature")),
		MaxOutputTokens: v.GetInt32("max_output_tokens"),
		GradingTimeout:  timeout,

		RubricPath:   v.GetString("rubric.path"),
		TemplatePath: v.GetString("template.path"),
		MaxUploadMB:  v.GetInt("max_upload_mb"),

		DatabaseURL: v.GetString("database.url"),
		RedisURL:    v.GetString("redis.url"),
		CacheTTL:    cacheTTL,

		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CloudinaryFolder:    v.GetString("cloudinary.folder"),

		DriveCredentialsFile: v.GetString("drive.credentials_file"),
		DriveSourceFolderID:  v.GetString("drive.source_folder_id"),
		DriveOutputFolderID:  v.GetString("drive.output_folder_id"),
		BatchSchedule:        v.GetString("batch.schedule"),

		NATSURL:     v.GetString("nats.url"),
		NATSSubject: v.GetString("nats.subject"),
	}

	if cfg.MaxUploadMB <= 0 {
		cfg.MaxUploadMB = 10
	}

	validate := validator.New(validator.WithRequiredStructEnabled())
	if err := validate.Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}
