// Package store persists normalized jobs and mapping results to
// PostgreSQL. Persistence is a collaborator of the pipeline, not part
// of the classification contract.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	commonerrors "primetime-intel/internal/common/errors"
	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/pipeline/mapping"
	"primetime-intel/internal/pipeline/normalize"
)

type Store struct {
	db     *sql.DB
	logger logger.Logger
}

func New(db *sql.DB, log logger.Logger) *Store {
	return &Store{
		db:     db,
		logger: log.WithFields(map[string]interface{}{"component": "store"}),
	}
}

// SaveNormalizedJobs upserts the batch keyed by job_id, so re-running a
// scrape refreshes existing rows instead of duplicating them.
func (s *Store) SaveNormalizedJobs(ctx context.Context, jobs []normalize.NormalizedJob) error {
	for i := range jobs {
		job := &jobs[i]
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO normalized_jobs (
				id, job_id, title, company, location, clearance_level,
				description, url, posted_date, source, scraped_at, normalized_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			ON CONFLICT (job_id) DO UPDATE SET
				title = EXCLUDED.title,
				company = EXCLUDED.company,
				location = EXCLUDED.location,
				clearance_level = EXCLUDED.clearance_level,
				description = EXCLUDED.description,
				url = EXCLUDED.url,
				posted_date = EXCLUDED.posted_date,
				source = EXCLUDED.source,
				scraped_at = EXCLUDED.scraped_at,
				normalized_at = EXCLUDED.normalized_at`,
			uuid.New().String(),
			job.JobID,
			job.Title,
			job.Company,
			job.Location,
			job.ClearanceLevel,
			job.Description,
			job.URL,
			job.PostedDate,
			job.Source,
			job.ScrapedAt,
			job.NormalizedAt,
		)
		if err != nil {
			return commonerrors.NewDatabaseInsertError(fmt.Sprintf("normalized job %s: %v", job.JobID, err))
		}
	}

	s.logger.Info("normalized jobs saved", map[string]interface{}{
		"count": len(jobs),
	})
	return nil
}

// SaveMappingResults appends the batch; every run is a new snapshot of
// the classifier's opinion, so results are never overwritten.
func (s *Store) SaveMappingResults(ctx context.Context, results []mapping.MappingResult) error {
	createdAt := time.Now().UTC().Format(time.RFC3339)

	for i := range results {
		res := &results[i]
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO mapping_results (
				id, job_id, mapped_programs, confidence_score,
				reasoning, keywords_found, mapped_at, source, created_at
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			uuid.New().String(),
			res.JobID,
			encodeStrings(res.MappedPrograms),
			res.ConfidenceScore,
			res.Reasoning,
			encodeStrings(res.KeywordsFound),
			res.MappedAt,
			string(res.Source),
			createdAt,
		)
		if err != nil {
			return commonerrors.NewDatabaseInsertError(fmt.Sprintf("mapping result %s: %v", res.JobID, err))
		}
	}

	s.logger.Info("mapping results saved", map[string]interface{}{
		"count": len(results),
	})
	return nil
}
