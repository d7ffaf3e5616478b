package mapping

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"primetime-intel/internal/common/config"
	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/common/metrics"
	"primetime-intel/internal/pipeline/normalize"
	"primetime-intel/internal/pipeline/programs"
)

// ResultCache lets the engine skip repeat classifications. Lookups and
// writes must absorb their own failures; a broken cache never affects
// the cascade.
type ResultCache interface {
	Get(ctx context.Context, job *normalize.NormalizedJob) (*MappingResult, bool)
	Set(ctx context.Context, job *normalize.NormalizedJob, result *MappingResult)
}

// Engine orchestrates the cascade: semantic analysis, keyword matching
// inside the semantic tier's own fallback, and the fail-safe empty
// result. It is the single place that decides tier transitions.
type Engine struct {
	cfg      config.MappingConfig
	dict     programs.Dictionary
	semantic Strategy
	cache    ResultCache
	logger   logger.Logger
	now      func() time.Time
}

// NewEngine builds the engine. semantic may be nil when the completion
// service could not be constructed (missing credentials); every job is
// then answered with the fail-safe empty mapping. cache may be nil.
func NewEngine(cfg config.MappingConfig, dict programs.Dictionary, semantic Strategy, cache ResultCache, log logger.Logger) *Engine {
	return &Engine{
		cfg:      cfg,
		dict:     dict,
		semantic: semantic,
		cache:    cache,
		logger:   log.WithFields(map[string]interface{}{"stage": "mapping"}),
		now:      time.Now,
	}
}

// MapJob always returns a result and never fails. A panic escaping the
// cascade is converted into the empty fallback mapping at this boundary.
func (e *Engine) MapJob(ctx context.Context, job *normalize.NormalizedJob) (result *MappingResult) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("mapping cascade panicked", map[string]interface{}{
				"jobId": job.JobID,
				"panic": r,
			})
			result = e.fallbackResult(job)
			metrics.MappingResults.WithLabelValues(string(SourceFallback)).Inc()
		}
	}()

	if e.cache != nil {
		if cached, ok := e.cache.Get(ctx, job); ok {
			metrics.CacheHits.Inc()
			return cached
		}
	}

	if e.semantic == nil {
		// The semantic tier could not even be constructed; report "no
		// information" rather than guessing.
		result = e.fallbackResult(job)
		metrics.MappingResults.WithLabelValues(string(SourceFallback)).Inc()
		return result
	}

	result = e.semantic.Classify(ctx, job, e.dict)
	metrics.MappingResults.WithLabelValues(string(result.Source)).Inc()

	if e.cache != nil && result.Source != SourceFallback {
		e.cache.Set(ctx, job, result)
	}

	return result
}

// fallbackResult is the fail-safe empty mapping.
func (e *Engine) fallbackResult(job *normalize.NormalizedJob) *MappingResult {
	return &MappingResult{
		JobID:           job.JobID,
		MappedPrograms:  []string{},
		ConfidenceScore: 0.0,
		Reasoning:       "Failed to analyze job posting",
		KeywordsFound:   []string{},
		MappedAt:        e.now().UTC().Format(time.RFC3339),
		Source:          SourceFallback,
	}
}

// MapJobs classifies a batch. Output order and cardinality match the
// input; jobs are processed independently, so one job's failure cannot
// affect another's result. Cancelling the context stops the run between
// jobs and returns the results produced so far.
func (e *Engine) MapJobs(ctx context.Context, jobs []normalize.NormalizedJob) ([]MappingResult, error) {
	if e.cfg.Concurrency > 1 {
		return e.mapJobsParallel(ctx, jobs)
	}

	results := make([]MappingResult, 0, len(jobs))
	for i := range jobs {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		results = append(results, *e.MapJob(ctx, &jobs[i]))

		if len(results)%10 == 0 {
			e.logger.Info("mapping progress", map[string]interface{}{
				"processed": len(results),
				"total":     len(jobs),
			})
		}
	}

	return results, nil
}

// mapJobsParallel runs the batch with bounded concurrency. The
// dictionary is read-only and results are written to distinct indexes,
// so no locking is needed and input order is preserved.
func (e *Engine) mapJobsParallel(ctx context.Context, jobs []normalize.NormalizedJob) ([]MappingResult, error) {
	results := make([]MappingResult, len(jobs))
	filled := make([]bool, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)

	for i := range jobs {
		if err := gctx.Err(); err != nil {
			break
		}
		g.Go(func() error {
			results[i] = *e.MapJob(gctx, &jobs[i])
			filled[i] = true
			return nil
		})
	}

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		err = ctxErr
	}

	// Keep only the contiguous prefix of completed jobs so a cancelled
	// run never reports a hole as an empty result.
	done := 0
	for done < len(filled) && filled[done] {
		done++
	}

	return results[:done], err
}
