package mapping

import (
	"context"
	"sort"

	"primetime-intel/internal/pipeline/normalize"
	"primetime-intel/internal/pipeline/programs"
)

// ResultSource identifies which cascade tier produced a result.
type ResultSource string

const (
	SourceAIAnalysis      ResultSource = "ai_analysis"
	SourceKeywordMatching ResultSource = "keyword_matching"
	SourceFallback        ResultSource = "fallback"
)

// MappingResult is the classification outcome for one job. Created
// exactly once per job, never mutated afterwards.
type MappingResult struct {
	JobID           string       `json:"job_id"`
	MappedPrograms  []string     `json:"mapped_programs"`
	ConfidenceScore float64      `json:"confidence_score"`
	Reasoning       string       `json:"reasoning"`
	KeywordsFound   []string     `json:"keywords_found"`
	MappedAt        string       `json:"mapped_at"`
	Source          ResultSource `json:"source"`
}

// Strategy classifies one normalized job against the program dictionary.
type Strategy interface {
	Classify(ctx context.Context, job *normalize.NormalizedJob, dict programs.Dictionary) *MappingResult
}

// sortedUnique deduplicates and sorts a term list, so that result sets
// serialize deterministically.
func sortedUnique(terms []string) []string {
	seen := make(map[string]bool, len(terms))
	out := make([]string, 0, len(terms))
	for _, t := range terms {
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}
