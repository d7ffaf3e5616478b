package mapping

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/pipeline/normalize"
	"primetime-intel/internal/pipeline/programs"
)

// CompletionService is the injectable capability behind the semantic
// tier: prompt text in, raw model text out. Implementations may fail;
// the strategy absorbs every failure by falling through to keywords.
type CompletionService interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// SemanticStrategy delegates classification to an external language
// model and parses the structured payload out of its free-text reply.
type SemanticStrategy struct {
	svc      CompletionService
	fallback *KeywordStrategy
	logger   logger.Logger
	now      func() time.Time
}

func NewSemanticStrategy(svc CompletionService, fallback *KeywordStrategy, log logger.Logger) *SemanticStrategy {
	return &SemanticStrategy{
		svc:      svc,
		fallback: fallback,
		logger:   log.WithFields(map[string]interface{}{"strategy": "semantic"}),
		now:      time.Now,
	}
}

// Classify asks the completion service to map the job. Any failure in
// the call or the response parse falls through to the keyword strategy
// applied to the same job; the failure is absorbed, not propagated.
func (s *SemanticStrategy) Classify(ctx context.Context, job *normalize.NormalizedJob, dict programs.Dictionary) *MappingResult {
	prompt := buildPrompt(job, dict)

	response, err := s.svc.Complete(ctx, prompt)
	if err != nil {
		s.logger.Warn("completion call failed, falling back to keywords", map[string]interface{}{
			"jobId": job.JobID,
			"error": err.Error(),
		})
		return s.fallback.Classify(ctx, job, dict)
	}

	result, err := s.parseResponse(response, job)
	if err != nil {
		s.logger.Warn("unparseable completion response, falling back to keywords", map[string]interface{}{
			"jobId": job.JobID,
			"error": err.Error(),
		})
		return s.fallback.Classify(ctx, job, dict)
	}

	return result
}

// buildPrompt embeds the job fields and the full program catalog into a
// natural-language analysis request.
func buildPrompt(job *normalize.NormalizedJob, dict programs.Dictionary) string {
	var catalog []string
	for _, code := range dict.Codes() {
		def := dict[code]
		catalog = append(catalog, fmt.Sprintf("- %s: %s (%s)", code, def.FullName, def.PrimeContractor))
	}

	clearance := job.ClearanceLevel
	if clearance == "" {
		clearance = "N/A"
	}

	var b strings.Builder
	b.WriteString("Analyze this job posting and map it to relevant defense programs.\n\n")
	b.WriteString("Job Details:\n")
	fmt.Fprintf(&b, "- Title: %s\n", orNA(job.Title))
	fmt.Fprintf(&b, "- Company: %s\n", orNA(job.Company))
	fmt.Fprintf(&b, "- Location: %s\n", orNA(job.Location))
	fmt.Fprintf(&b, "- Clearance: %s\n", clearance)
	fmt.Fprintf(&b, "- Description: %s\n\n", orNA(job.Description))
	b.WriteString("Available Programs:\n")
	b.WriteString(strings.Join(catalog, "\n"))
	b.WriteString("\n\nPlease provide:\n")
	b.WriteString("1. List of relevant programs (program codes)\n")
	b.WriteString("2. Confidence score (0.0-1.0)\n")
	b.WriteString("3. Reasoning for the mapping\n")
	b.WriteString("4. Key keywords that support the mapping\n\n")
	b.WriteString("Format your response as JSON:\n")
	b.WriteString(`{
    "mapped_programs": ["PROGRAM1", "PROGRAM2"],
    "confidence_score": 0.85,
    "reasoning": "Explanation here",
    "keywords_found": ["keyword1", "keyword2"]
}`)

	return b.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

// aiPayload is the structured body expected inside the model's reply.
// Missing fields keep their zero defaults.
type aiPayload struct {
	MappedPrograms  []string `json:"mapped_programs"`
	ConfidenceScore float64  `json:"confidence_score"`
	Reasoning       string   `json:"reasoning"`
	KeywordsFound   []string `json:"keywords_found"`
}

// parseResponse extracts the first well-formed JSON object embedded
// anywhere in the model's reply. The model is not trusted to emit only
// JSON; an unparseable reply is an error the caller converts into a
// keyword fallback.
func (s *SemanticStrategy) parseResponse(response string, job *normalize.NormalizedJob) (*MappingResult, error) {
	raw, ok := extractJSONObject(response)
	if !ok {
		return nil, fmt.Errorf("no JSON object in response")
	}

	var payload aiPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	if payload.ConfidenceScore < 0.0 || payload.ConfidenceScore > 1.0 {
		payload.ConfidenceScore = 0.0
	}

	return &MappingResult{
		JobID:           job.JobID,
		MappedPrograms:  sortedUnique(payload.MappedPrograms),
		ConfidenceScore: payload.ConfidenceScore,
		Reasoning:       payload.Reasoning,
		KeywordsFound:   sortedUnique(payload.KeywordsFound),
		MappedAt:        s.now().UTC().Format(time.RFC3339),
		Source:          SourceAIAnalysis,
	}, nil
}

// extractJSONObject scans the text for '{' offsets and attempts a
// decode at each until one parses as a complete JSON value.
func extractJSONObject(text string) (json.RawMessage, bool) {
	for i := 0; i < len(text); i++ {
		if text[i] != '{' {
			continue
		}
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		var raw json.RawMessage
		if err := dec.Decode(&raw); err == nil {
			return raw, true
		}
	}
	return nil, false
}
