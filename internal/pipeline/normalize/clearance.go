package normalize

import (
	"regexp"
	"strings"
)

// ClearanceLevel is a security-clearance tier extracted from free text.
type ClearanceLevel string

const (
	ClearanceTSSCI        ClearanceLevel = "TS/SCI"
	ClearanceTS           ClearanceLevel = "TS"
	ClearanceSecret       ClearanceLevel = "Secret"
	ClearanceConfidential ClearanceLevel = "Confidential"
)

// clearancePatterns are tested in priority order against upper-cased
// text. TS/SCI must come before TS so "Top Secret/SCI" is never
// downgraded to plain TS. All patterns are word-bounded so "TS" cannot
// match inside words like "PARTS".
var clearancePatterns = []struct {
	level   ClearanceLevel
	pattern *regexp.Regexp
}{
	{ClearanceTSSCI, regexp.MustCompile(`\b(?:TS/SCI|TOP\s+SECRET/SCI|TOP\s+SECRET\s+SCI)\b`)},
	{ClearanceTS, regexp.MustCompile(`\b(?:TS|TOP\s+SECRET)\b`)},
	{ClearanceSecret, regexp.MustCompile(`\bSECRET\b`)},
	{ClearanceConfidential, regexp.MustCompile(`\bCONFIDENTIAL\b`)},
}

// ExtractClearance returns the clearance level of the first pattern
// matching anywhere in the text, or false if none matches.
func ExtractClearance(text string) (ClearanceLevel, bool) {
	if text == "" {
		return "", false
	}

	upper := strings.ToUpper(text)
	for _, cp := range clearancePatterns {
		if cp.pattern.MatchString(upper) {
			return cp.level, true
		}
	}

	return "", false
}
