package mapping

import (
	"context"
	"fmt"
	"strings"
	"time"

	"primetime-intel/internal/common/config"
	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/pipeline/normalize"
	"primetime-intel/internal/pipeline/programs"
)

// KeywordStrategy scores each program by substring matches in the job's
// title and description. Pure and deterministic, it is the guaranteed
// terminating tier of the cascade.
type KeywordStrategy struct {
	cfg    config.MappingConfig
	logger logger.Logger
	now    func() time.Time
}

func NewKeywordStrategy(cfg config.MappingConfig, log logger.Logger) *KeywordStrategy {
	return &KeywordStrategy{
		cfg:    cfg,
		logger: log.WithFields(map[string]interface{}{"strategy": "keyword"}),
		now:    time.Now,
	}
}

// Classify matches every program definition against the job. A program
// is mapped when its accumulated score reaches the configured threshold.
func (s *KeywordStrategy) Classify(_ context.Context, job *normalize.NormalizedJob, dict programs.Dictionary) *MappingResult {
	jobText := strings.ToLower(job.Title + " " + job.Description)
	company := strings.ToLower(job.Company)

	mapped := make([]string, 0)
	found := make([]string, 0)

	for _, code := range dict.Codes() {
		def := dict[code]

		terms := make([]string, 0, 1+len(def.Acronyms)+len(def.CodeNames))
		terms = append(terms, strings.ToLower(def.FullName))
		for _, a := range def.Acronyms {
			terms = append(terms, strings.ToLower(a))
		}
		for _, cn := range def.CodeNames {
			terms = append(terms, strings.ToLower(cn))
		}

		var score float64
		var matchedTerms []string

		for _, term := range terms {
			if term != "" && strings.Contains(jobText, term) {
				score += s.cfg.TermWeight
				matchedTerms = append(matchedTerms, term)
			}
		}

		for _, skill := range def.KeySkills {
			lowered := strings.ToLower(skill)
			if lowered != "" && strings.Contains(jobText, lowered) {
				score += s.cfg.SkillWeight
				matchedTerms = append(matchedTerms, lowered)
			}
		}

		if prime := strings.ToLower(def.PrimeContractor); prime != "" && strings.Contains(company, prime) {
			score += s.cfg.ContractorWeight
		}

		if score >= s.cfg.KeywordMatchThreshold {
			mapped = append(mapped, code)
			found = append(found, matchedTerms...)
		}
	}

	keywords := sortedUnique(found)

	// Confidence is deliberately capped: keyword matching is a weaker
	// signal than semantic analysis.
	confidence := s.cfg.ConfidencePerProgram * float64(len(mapped))
	if confidence > s.cfg.ConfidenceCap {
		confidence = s.cfg.ConfidenceCap
	}

	return &MappingResult{
		JobID:           job.JobID,
		MappedPrograms:  mapped,
		ConfidenceScore: confidence,
		Reasoning:       fmt.Sprintf("Keyword-based mapping using terms: %s", strings.Join(keywords, ", ")),
		KeywordsFound:   keywords,
		MappedAt:        s.now().UTC().Format(time.RFC3339),
		Source:          SourceKeywordMatching,
	}
}
