package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/projeto-mae/redacao-api/internal/models"
)

func testCache(t *testing.T) *VerdictCache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return NewVerdictCache(client, time.Minute, zerolog.Nop())
}

func TestVerdictCacheRoundTrip(t *testing.T) {
	c := testCache(t)
	ctx := context.Background()

	result := models.GradingResult{
		StudentName: "Maria",
		FinalScore:  760,
		Competencies: models.Competencies{
			C1: models.CompetencyReview{Score: 160, Analysis: "ok"},
		},
	}

	key := Key([]byte("image-bytes"), "rubric")

	_, found := c.Get(ctx, key)
	require.False(t, found)

	c.Set(ctx, key, result)

	cached, found := c.Get(ctx, key)
	require.True(t, found)
	require.Equal(t, result, cached)
}

func TestVerdictCacheKeyDependsOnRubric(t *testing.T) {
	image := []byte("same-image")
	require.NotEqual(t, Key(image, "rubric v1"), Key(image, "rubric v2"))
	require.Equal(t, Key(image, "rubric v1"), Key(image, "rubric v1"))
}
