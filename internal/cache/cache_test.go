package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/pipeline/mapping"
	"primetime-intel/internal/pipeline/normalize"
)

func newTestCache(t *testing.T, ttl time.Duration) (*ResultCache, *miniredis.Miniredis) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return New(client, ttl, logger.NewTestLogger(t)), mr
}

func sampleJob() *normalize.NormalizedJob {
	return &normalize.NormalizedJob{
		JobID:       "cj-80",
		Title:       "Avionics Engineer",
		Description: "F-35 flight software.",
	}
}

func sampleResult() *mapping.MappingResult {
	return &mapping.MappingResult{
		JobID:           "cj-80",
		MappedPrograms:  []string{"F35"},
		ConfidenceScore: 0.85,
		Reasoning:       "Strong avionics signal",
		KeywordsFound:   []string{"avionics"},
		MappedAt:        "2025-01-15T10:30:00Z",
		Source:          mapping.SourceAIAnalysis,
	}
}

func TestCache_RoundTrip(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	job := sampleJob()
	c.Set(ctx, job, sampleResult())

	got, ok := c.Get(ctx, job)
	require.True(t, ok)
	assert.Equal(t, sampleResult(), got)
}

func TestCache_Miss(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)

	_, ok := c.Get(context.Background(), sampleJob())
	assert.False(t, ok)
}

func TestCache_EditedPostingMisses(t *testing.T) {
	c, _ := newTestCache(t, time.Hour)
	ctx := context.Background()

	job := sampleJob()
	c.Set(ctx, job, sampleResult())

	edited := sampleJob()
	edited.Description = "Now a ground radar role."

	_, ok := c.Get(ctx, edited)
	assert.False(t, ok)
}

func TestCache_EntryExpires(t *testing.T) {
	c, mr := newTestCache(t, time.Minute)
	ctx := context.Background()

	job := sampleJob()
	c.Set(ctx, job, sampleResult())

	mr.FastForward(2 * time.Minute)

	_, ok := c.Get(ctx, job)
	assert.False(t, ok)
}

func TestCache_CorruptEntryIgnored(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	job := sampleJob()
	c.Set(ctx, job, sampleResult())

	for _, k := range mr.Keys() {
		require.NoError(t, mr.Set(k, "{not json"))
	}

	_, ok := c.Get(ctx, job)
	assert.False(t, ok)
}

func TestCache_BrokenRedisDegradesToMiss(t *testing.T) {
	c, mr := newTestCache(t, time.Hour)
	ctx := context.Background()

	job := sampleJob()
	c.Set(ctx, job, sampleResult())
	mr.Close()

	_, ok := c.Get(ctx, job)
	assert.False(t, ok)

	// Writes to a dead Redis are absorbed too.
	c.Set(ctx, job, sampleResult())
}
