package e2e

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"primetime-intel/internal/ai"
	"primetime-intel/internal/common/config"
	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/pipeline/mapping"
	"primetime-intel/internal/pipeline/normalize"
	"primetime-intel/internal/pipeline/programs"
)

func testDictionary() programs.Dictionary {
	return programs.Dictionary{
		"F35": {
			Code:            "F35",
			FullName:        "F-35 Lightning II Joint Strike Fighter",
			PrimeContractor: "Lockheed Martin",
			Acronyms:        []string{"JSF"},
			CodeNames:       []string{"Lightning II"},
			KeySkills:       []string{"avionics"},
		},
		"B21": {
			Code:            "B21",
			FullName:        "B-21 Raider",
			PrimeContractor: "Northrop Grumman",
			CodeNames:       []string{"Raider"},
			KeySkills:       []string{"stealth"},
		},
	}
}

func rawF35Record() normalize.RawJobRecord {
	return normalize.RawJobRecord{
		"job_id":      "CJ-2025/0042",
		"title":       "Senior  Systems Engineer",
		"company":     "Lockheed Martin",
		"location":    "Fort Worth, TX",
		"description": "<p>Requires active <b>Secret</b> clearance. F-35 avionics integration.</p>",
		"url":         "https://example.com/jobs/42",
		"posted_date": "2025-01-10",
		"source":      "clearancejobs",
	}
}

// completionServer fakes an OpenAI-compatible endpoint whose reply text
// is produced per request.
func completionServer(t *testing.T, reply func(prompt string) string) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Messages []struct {
				Role    string `json:"role"`
				Content string `json:"content"`
			} `json:"messages"`
		}
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) || !assert.Len(t, req.Messages, 2) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		body := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]interface{}{"content": reply(req.Messages[1].Content)}},
			},
		}
		assert.NoError(t, json.NewEncoder(w).Encode(body))
	}))
}

func buildEngine(t *testing.T, baseURL string, dict programs.Dictionary) *mapping.Engine {
	log := logger.NewTestLogger(t)

	cfg := config.Config{}
	cfg.APIs.OpenAI = config.OpenAIConfig{
		BaseURL:      baseURL,
		APIKey:       "test-key",
		Model:        "gpt-4o-mini",
		Temperature:  0.3,
		Timeout:      2000,
		MaxRetries:   1,
		RequestsPerS: 1000,
	}
	cfg.Mapping = config.MappingConfig{
		KeywordMatchThreshold: 0.5,
		TermWeight:            0.3,
		SkillWeight:           0.2,
		ContractorWeight:      0.4,
		ConfidenceCap:         0.7,
		ConfidencePerProgram:  0.2,
		Concurrency:           1,
	}

	var semantic mapping.Strategy
	if baseURL != "" {
		client, err := ai.NewOpenAIClient(cfg.APIs.OpenAI, log)
		require.NoError(t, err)
		keyword := mapping.NewKeywordStrategy(cfg.Mapping, log)
		semantic = mapping.NewSemanticStrategy(client, keyword, log)
	}

	return mapping.NewEngine(cfg.Mapping, dict, semantic, nil, log)
}

func TestPipeline_SemanticTier(t *testing.T) {
	srv := completionServer(t, func(prompt string) string {
		assert.Contains(t, prompt, "- Title: Senior Systems Engineer")
		assert.Contains(t, prompt, "- Clearance: Secret")
		assert.Contains(t, prompt, "- F35: F-35 Lightning II Joint Strike Fighter (Lockheed Martin)")
		return `The posting clearly supports the F-35 program.

{"mapped_programs": ["F35"], "confidence_score": 0.9, "reasoning": "Avionics work at the prime", "keywords_found": ["f-35", "avionics"]}`
	})
	defer srv.Close()

	n := normalize.NewNormalizer(logger.NewTestLogger(t))
	jobs := n.NormalizeBatch([]normalize.RawJobRecord{rawF35Record()})
	require.Len(t, jobs, 1)

	assert.Equal(t, "cj-2025_0042", jobs[0].JobID)
	assert.Equal(t, "Fort Worth, Texas", jobs[0].Location)
	assert.Equal(t, "Secret", jobs[0].ClearanceLevel)

	engine := buildEngine(t, srv.URL, testDictionary())
	results, err := engine.MapJobs(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, "cj-2025_0042", results[0].JobID)
	assert.Equal(t, mapping.SourceAIAnalysis, results[0].Source)
	assert.Equal(t, []string{"F35"}, results[0].MappedPrograms)
	assert.InDelta(t, 0.9, results[0].ConfidenceScore, 1e-9)
}

func TestPipeline_KeywordTierWhenCompletionFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := normalize.NewNormalizer(logger.NewTestLogger(t))
	jobs := n.NormalizeBatch([]normalize.RawJobRecord{rawF35Record()})
	require.Len(t, jobs, 1)

	engine := buildEngine(t, srv.URL, testDictionary())
	results, err := engine.MapJobs(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	// Keyword tier: avionics skill 0.2 plus prime contractor 0.4.
	assert.Equal(t, mapping.SourceKeywordMatching, results[0].Source)
	assert.Equal(t, []string{"F35"}, results[0].MappedPrograms)
	assert.InDelta(t, 0.2, results[0].ConfidenceScore, 1e-9)
	assert.Equal(t, []string{"avionics"}, results[0].KeywordsFound)
}

func TestPipeline_EmptyDictionaryYieldsEmptyMappings(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	n := normalize.NewNormalizer(logger.NewTestLogger(t))
	jobs := n.NormalizeBatch([]normalize.RawJobRecord{rawF35Record()})

	engine := buildEngine(t, srv.URL, programs.Dictionary{})
	results, err := engine.MapJobs(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, mapping.SourceKeywordMatching, results[0].Source)
	assert.Empty(t, results[0].MappedPrograms)
	assert.Equal(t, 0.0, results[0].ConfidenceScore)
}

func TestPipeline_NoCompletionServiceYieldsFallback(t *testing.T) {
	n := normalize.NewNormalizer(logger.NewTestLogger(t))
	jobs := n.NormalizeBatch([]normalize.RawJobRecord{rawF35Record()})

	engine := buildEngine(t, "", testDictionary())
	results, err := engine.MapJobs(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, mapping.SourceFallback, results[0].Source)
	assert.Equal(t, []string{}, results[0].MappedPrograms)
	assert.Equal(t, 0.0, results[0].ConfidenceScore)
	assert.Equal(t, "Failed to analyze job posting", results[0].Reasoning)
}

func TestPipeline_EmptyRawRecordSurvives(t *testing.T) {
	n := normalize.NewNormalizer(logger.NewTestLogger(t))
	jobs := n.NormalizeBatch([]normalize.RawJobRecord{{}})
	require.Len(t, jobs, 1)

	assert.Regexp(t, regexp.MustCompile(`^normalized_\d{8}_\d{6}$`), jobs[0].JobID)

	engine := buildEngine(t, "", testDictionary())
	results, err := engine.MapJobs(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 1)

	assert.Equal(t, jobs[0].JobID, results[0].JobID)
	assert.Equal(t, mapping.SourceFallback, results[0].Source)
}

func TestPipeline_BatchOrderPreserved(t *testing.T) {
	srv := completionServer(t, func(prompt string) string {
		return `{"mapped_programs": [], "confidence_score": 0.1, "reasoning": "none", "keywords_found": []}`
	})
	defer srv.Close()

	n := normalize.NewNormalizer(logger.NewTestLogger(t))

	raws := make([]normalize.RawJobRecord, 12)
	for i := range raws {
		raws[i] = normalize.RawJobRecord{
			"job_id": fmt.Sprintf("batch-%02d", i),
			"title":  "Engineer",
		}
	}

	jobs := n.NormalizeBatch(raws)
	require.Len(t, jobs, 12)

	engine := buildEngine(t, srv.URL, testDictionary())
	results, err := engine.MapJobs(context.Background(), jobs)
	require.NoError(t, err)
	require.Len(t, results, 12)

	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("batch-%02d", i), r.JobID)
	}
}
