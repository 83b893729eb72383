// Package luminaire reconstructs lighting fixture schedules from
// scanned drawing pages. A schedule is a multi-column table of fixture
// symbol, manufacturer and equivalent model number; OCR returns only
// scattered word boxes, so the structure is rebuilt positionally and,
// when the layout is ambiguous, from the ruled column lines.
package luminaire

import (
	"regexp"
	"strings"

	"github.com/zumenkit/schedscan/internal/logger"
	"github.com/zumenkit/schedscan/internal/ocr"
)

var log = logger.GetLogger("luminaire")

// CandidateKind records how a row candidate was recognized.
type CandidateKind string

const (
	KindCoded     CandidateKind = "coded"      // symbol token present
	KindColonOnly CandidateKind = "colon_only" // maker:model without symbol
	KindModelOnly CandidateKind = "model_only" // bare model without symbol
	KindDitto     CandidateKind = "ditto"      // 同上 continuation
)

// Candidate is one recognized schedule row before propagation.
type Candidate struct {
	Page    int
	Section int
	Block   int

	RowY   float64
	RowX   float64
	ModelX float64 // left edge of the model-bearing token

	Equipment string // fixture symbol, may be empty until propagation
	Model     string // maker:model, bare model, or ditto marker
	Kind      CandidateKind
}

// Fixture symbol prefixes seen on the schedules. Order matters: longer
// prefixes must win before their single-letter tails.
var codePrefixes = []string{
	"CD", "CR", "CT", "UK", "WL", "CL", "XC", "X'C", "YC", "Y'C",
	"DL", "LL", "L", "TP", "GL", "SP", "ES", "EC",
}

// Emergency circuit symbols are recognized as codes but removed from
// the final output.
var excludedEmergencyCodes = map[string]bool{
	"EDL": true, "EDM": true, "ECL": true, "ECM": true,
	"ECH": true, "ES1": true, "ES2": true,
}

var (
	codeSuffixPattern  = regexp.MustCompile(`^\d{1,2}[A-Z]?$`)
	codeSuffixGPattern = regexp.MustCompile(`^\d{1,2}G$`)
)

// IsHeaderRow reports whether a row of joined text is the schedule
// header. OCR splits 器具記号 unpredictably, so only the stable stem
// is required.
func IsHeaderRow(rowText string) bool {
	compact := ocr.CompactText(rowText)
	return strings.Contains(compact, "相当型番") && strings.Contains(compact, "器具記")
}

func normalizeCodeToken(value string) string {
	normalized := ocr.NormalizeText(value)
	normalized = strings.NewReplacer("’", "'", "`", "'").Replace(normalized)
	return strings.Trim(normalized, "[](){}<>|,.;")
}

// isEquipmentCodeToken reports whether a token is a fixture symbol.
func isEquipmentCodeToken(value string) bool {
	token := normalizeCodeToken(value)
	if token == "" {
		return false
	}
	upper := strings.ToUpper(token)
	if excludedEmergencyCodes[upper] {
		return true
	}
	for _, prefix := range codePrefixes {
		if !strings.HasPrefix(upper, prefix) {
			continue
		}
		suffix := upper[len(prefix):]
		if suffix == "" {
			return false
		}
		if codeSuffixPattern.MatchString(suffix) {
			return true
		}
		if codeSuffixGPattern.MatchString(suffix) {
			return true
		}
	}
	return false
}
