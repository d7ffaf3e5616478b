package normalize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"primetime-intel/internal/common/logger"
	"primetime-intel/internal/common/metrics"

	"github.com/PuerkitoBio/goquery"
)

// RawJobRecord is the untyped bag of fields produced by a scraper. Any
// field may be absent or empty; the record is not retained after
// normalization.
type RawJobRecord map[string]interface{}

// str returns the named field as a string, or "" when absent or not a
// string.
func (r RawJobRecord) str(key string) string {
	if v, ok := r[key].(string); ok {
		return v
	}
	return ""
}

// NormalizedJob is the canonical job schema. Immutable once produced.
type NormalizedJob struct {
	JobID          string `json:"job_id"`
	Title          string `json:"title"`
	Company        string `json:"company"`
	Location       string `json:"location"`
	ClearanceLevel string `json:"clearance_level,omitempty"`
	Description    string `json:"description"`
	URL            string `json:"url"`
	PostedDate     string `json:"posted_date"`
	Source         string `json:"source"`
	ScrapedAt      string `json:"scraped_at"`
	NormalizedAt   string `json:"normalized_at"`
}

var (
	jobIDCharsRe  = regexp.MustCompile(`[^a-zA-Z0-9_-]`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	htmlTagRe     = regexp.MustCompile(`<[^>]+>`)
	unsafeCharsRe = regexp.MustCompile(`[^\w\s\-.,!?()]`)
)

// companyAliases maps the lower-cased scraped name to its canonical
// display name.
var companyAliases = map[string]string{
	"apex systems":    "Apex Systems",
	"insight global":  "Insight Global",
	"clearancejobs":   "ClearedJobs",
	"clearedjobs.com": "ClearedJobs",
}

// stateExpansions expands state abbreviations on word boundaries,
// case-insensitively.
var stateExpansions = []struct {
	pattern  *regexp.Regexp
	fullName string
}{
	{regexp.MustCompile(`(?i)\bCA\b`), "California"},
	{regexp.MustCompile(`(?i)\bTX\b`), "Texas"},
	{regexp.MustCompile(`(?i)\bVA\b`), "Virginia"},
	{regexp.MustCompile(`(?i)\bMD\b`), "Maryland"},
	{regexp.MustCompile(`(?i)\bFL\b`), "Florida"},
	{regexp.MustCompile(`(?i)\bWA\b`), "Washington"},
	{regexp.MustCompile(`(?i)\bMO\b`), "Missouri"},
	{regexp.MustCompile(`(?i)\bCT\b`), "Connecticut"},
	{regexp.MustCompile(`(?i)\bUT\b`), "Utah"},
	{regexp.MustCompile(`(?i)\bCO\b`), "Colorado"},
}

// dateFormats are tried in order when parsing posted dates.
var dateFormats = []string{
	"2006-01-02",
	"01/02/2006",
	"02/01/2006",
	"January 2, 2006",
	"Jan 2, 2006",
}

// Normalizer transforms raw scrape records into the canonical schema.
// Normalization is a pure function of the record plus the clock.
type Normalizer struct {
	logger logger.Logger
	now    func() time.Time
}

func NewNormalizer(log logger.Logger) *Normalizer {
	return &Normalizer{
		logger: log.WithFields(map[string]interface{}{"stage": "normalize"}),
		now:    time.Now,
	}
}

// Normalize converts one raw record. All-or-nothing: on any internal
// failure the record yields an error and is dropped by the batch.
func (n *Normalizer) Normalize(raw RawJobRecord) (job *NormalizedJob, err error) {
	defer func() {
		if r := recover(); r != nil {
			job = nil
			err = fmt.Errorf("normalize panicked: %v", r)
		}
	}()

	now := n.now().UTC()
	nowISO := now.Format(time.RFC3339)

	scrapedAt := raw.str("scraped_at")
	if scrapedAt == "" {
		scrapedAt = nowISO
	}

	job = &NormalizedJob{
		JobID:        n.normalizeJobID(raw.str("job_id"), now),
		Title:        collapseWhitespace(raw.str("title")),
		Company:      normalizeCompany(raw.str("company")),
		Location:     normalizeLocation(raw.str("location")),
		Description:  cleanDescription(raw.str("description")),
		URL:          raw.str("url"),
		PostedDate:   n.normalizeDate(raw.str("posted_date"), now),
		Source:       raw.str("source"),
		ScrapedAt:    scrapedAt,
		NormalizedAt: nowISO,
	}

	if level, ok := ExtractClearance(raw.str("description")); ok {
		job.ClearanceLevel = string(level)
	}

	return job, nil
}

// NormalizeBatch preserves input order and silently omits records that
// failed to normalize. Per-record failures never abort the batch.
func (n *Normalizer) NormalizeBatch(raws []RawJobRecord) []NormalizedJob {
	out := make([]NormalizedJob, 0, len(raws))
	for _, raw := range raws {
		job, err := n.Normalize(raw)
		if err != nil {
			n.logger.Error("dropping record", map[string]interface{}{
				"jobId": raw.str("job_id"),
				"error": err.Error(),
			})
			metrics.JobsDropped.WithLabelValues(raw.str("source")).Inc()
			continue
		}
		metrics.JobsNormalized.WithLabelValues(job.Source).Inc()
		out = append(out, *job)
	}
	return out
}

func (n *Normalizer) normalizeJobID(jobID string, now time.Time) string {
	if jobID == "" {
		return fmt.Sprintf("normalized_%s", now.Format("20060102_150405"))
	}
	return strings.ToLower(jobIDCharsRe.ReplaceAllString(jobID, "_"))
}

func collapseWhitespace(s string) string {
	if s == "" {
		return ""
	}
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

func normalizeCompany(company string) string {
	if company == "" {
		return ""
	}
	trimmed := strings.TrimSpace(company)
	if canonical, ok := companyAliases[strings.ToLower(trimmed)]; ok {
		return canonical
	}
	return trimmed
}

func normalizeLocation(location string) string {
	if location == "" {
		return ""
	}
	normalized := collapseWhitespace(location)
	for _, se := range stateExpansions {
		normalized = se.pattern.ReplaceAllString(normalized, se.fullName)
	}
	return normalized
}

func cleanDescription(description string) string {
	if description == "" {
		return ""
	}
	cleaned := stripHTML(description)
	cleaned = whitespaceRe.ReplaceAllString(cleaned, " ")
	cleaned = unsafeCharsRe.ReplaceAllString(cleaned, "")
	return strings.TrimSpace(cleaned)
}

// stripHTML extracts the text content of an HTML fragment. Falls back
// to tag removal when the fragment cannot be parsed.
func stripHTML(s string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return htmlTagRe.ReplaceAllString(s, " ")
	}
	return doc.Text()
}

func (n *Normalizer) normalizeDate(dateStr string, now time.Time) string {
	if dateStr == "" {
		return now.Format(time.RFC3339)
	}

	trimmed := strings.TrimSpace(dateStr)
	for _, format := range dateFormats {
		if parsed, err := time.Parse(format, trimmed); err == nil {
			return parsed.Format(time.RFC3339)
		}
	}

	// No format matched, fall back to the normalization time.
	return now.Format(time.RFC3339)
}
