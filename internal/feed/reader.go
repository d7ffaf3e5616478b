// Package feed reads raw scrape batches and writes pipeline outputs.
// Batch-level I/O failures are fatal to a run; per-record shape
// problems are absorbed by dropping the record.
package feed

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	commonerrors "primetime-intel/internal/common/errors"
	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/pipeline/normalize"
)

// rawRecordSchema accepts any JSON object whose known fields, when
// present, are strings. Unknown fields pass through untouched; the
// producers attach scraper-specific extras we do not care about.
const rawRecordSchema = `{
	"type": "object",
	"properties": {
		"job_id":       {"type": "string"},
		"title":        {"type": "string"},
		"company":      {"type": "string"},
		"location":     {"type": "string"},
		"description":  {"type": "string"},
		"url":          {"type": "string"},
		"posted_date":  {"type": "string"},
		"source":       {"type": "string"},
		"scraped_at":   {"type": "string"}
	},
	"additionalProperties": true
}`

// Reader loads raw job records from scraper output files.
type Reader struct {
	schema *gojsonschema.Schema
	logger logger.Logger
}

func NewReader(log logger.Logger) (*Reader, error) {
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(rawRecordSchema))
	if err != nil {
		return nil, fmt.Errorf("compile raw record schema: %w", err)
	}

	return &Reader{
		schema: schema,
		logger: log.WithFields(map[string]interface{}{"component": "feed"}),
	}, nil
}

// ReadRawRecords decodes a JSON array of raw job records. Elements that
// are not objects or carry mistyped fields are dropped with a warning;
// an unreadable file is a batch-level failure.
func (r *Reader) ReadRawRecords(path string) ([]normalize.RawJobRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, commonerrors.NewInputReadError(err.Error())
	}

	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil {
		return nil, commonerrors.NewInputReadError(fmt.Sprintf("%s: %v", path, err))
	}

	records := make([]normalize.RawJobRecord, 0, len(elements))
	for i, elem := range elements {
		result, err := r.schema.Validate(gojsonschema.NewBytesLoader(elem))
		if err != nil || !result.Valid() {
			r.logger.Warn("dropping malformed raw record", map[string]interface{}{
				"index": i,
			})
			continue
		}

		var record normalize.RawJobRecord
		if err := json.Unmarshal(elem, &record); err != nil {
			r.logger.Warn("dropping undecodable raw record", map[string]interface{}{
				"index": i,
				"error": err.Error(),
			})
			continue
		}
		records = append(records, record)
	}

	return records, nil
}

// ReadNormalizedJobs decodes a previously written normalized batch.
func (r *Reader) ReadNormalizedJobs(path string) ([]normalize.NormalizedJob, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, commonerrors.NewInputReadError(err.Error())
	}

	var jobs []normalize.NormalizedJob
	if err := json.Unmarshal(data, &jobs); err != nil {
		return nil, commonerrors.NewInputReadError(fmt.Sprintf("%s: %v", path, err))
	}

	return jobs, nil
}

// FilterBySource keeps records whose source matches name,
// case-insensitively. An empty name keeps everything.
func FilterBySource(records []normalize.RawJobRecord, name string) []normalize.RawJobRecord {
	if name == "" {
		return records
	}

	filtered := make([]normalize.RawJobRecord, 0, len(records))
	for _, rec := range records {
		if src, ok := rec["source"].(string); ok && strings.EqualFold(src, name) {
			filtered = append(filtered, rec)
		}
	}
	return filtered
}
