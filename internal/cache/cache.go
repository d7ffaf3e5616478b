// Package cache provides a Redis read-through cache for mapping
// results, so re-running a batch does not repeat paid completion calls
// for jobs whose content has not changed.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"

	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/pipeline/mapping"
	"primetime-intel/internal/pipeline/normalize"
)

// ResultCache implements mapping.ResultCache. Every cache failure is
// absorbed here: a broken Redis degrades to cache misses, never to
// classification errors.
type ResultCache struct {
	client *redis.Client
	ttl    time.Duration
	logger logger.Logger
}

func New(client *redis.Client, ttl time.Duration, log logger.Logger) *ResultCache {
	return &ResultCache{
		client: client,
		ttl:    ttl,
		logger: log.WithFields(map[string]interface{}{"component": "cache"}),
	}
}

// key derives the cache key from the job id plus a digest of the
// description, so an edited posting is re-classified.
func key(job *normalize.NormalizedJob) string {
	sum := sha256.Sum256([]byte(job.Title + "\x00" + job.Description))
	return "mapping:result:" + job.JobID + ":" + hex.EncodeToString(sum[:6])
}

func (c *ResultCache) Get(ctx context.Context, job *normalize.NormalizedJob) (*mapping.MappingResult, bool) {
	val, err := c.client.Get(ctx, key(job)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("cache lookup failed", map[string]interface{}{
				"jobId": job.JobID,
				"error": err.Error(),
			})
		}
		return nil, false
	}

	var result mapping.MappingResult
	if err := json.Unmarshal([]byte(val), &result); err != nil {
		c.logger.Warn("corrupt cache entry, ignoring", map[string]interface{}{
			"jobId": job.JobID,
			"error": err.Error(),
		})
		return nil, false
	}

	return &result, true
}

func (c *ResultCache) Set(ctx context.Context, job *normalize.NormalizedJob, result *mapping.MappingResult) {
	data, err := json.Marshal(result)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, key(job), data, c.ttl).Err(); err != nil {
		c.logger.Debug("cache write failed", map[string]interface{}{
			"jobId": job.JobID,
			"error": err.Error(),
		})
	}
}
