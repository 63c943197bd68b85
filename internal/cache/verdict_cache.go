package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/projeto-mae/redacao-api/internal/models"
)

// VerdictCache remembers the grading verdict for an image so re-uploading
// the exact same photo does not trigger a second model call. Cache failures
// are never fatal: a miss simply means the grader runs.
type VerdictCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewVerdictCache constructs the cache with the given TTL.
func NewVerdictCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *VerdictCache {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &VerdictCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "verdict_cache").Logger(),
	}
}

// Key derives the cache key from the image bytes and the rubric, so a rubric
// change naturally invalidates old verdicts.
func Key(imageData []byte, rubric string) string {
	digest := sha256.New()
	digest.Write(imageData)
	digest.Write([]byte(rubric))
	return fmt.Sprintf("redacao:verdict:%s", hex.EncodeToString(digest.Sum(nil)))
}

// Get returns the cached verdict, if any.
func (c *VerdictCache) Get(ctx context.Context, key string) (models.GradingResult, bool) {
	payload, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn().Err(err).Msg("verdict cache lookup failed")
		}
		return models.GradingResult{}, false
	}

	var result models.GradingResult
	if err := json.Unmarshal(payload, &result); err != nil {
		c.logger.Warn().Err(err).Msg("discarding corrupt cached verdict")
		return models.GradingResult{}, false
	}

	return result, true
}

// Set stores the verdict for later identical uploads.
func (c *VerdictCache) Set(ctx context.Context, key string, result models.GradingResult) {
	payload, err := json.Marshal(result)
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to encode verdict for cache")
		return
	}

	if err := c.client.Set(ctx, key, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to store verdict in cache")
	}
}
