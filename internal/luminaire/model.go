package luminaire

import (
	"regexp"
	"strings"

	"github.com/zumenkit/schedscan/internal/ocr"
)

var (
	modelPattern = regexp.MustCompile(`\b([A-Z]{2,}(?:\s*-\s*[A-Z0-9]{1,20})+)\b`)

	// Quantity markers like ×2 or (x3) directly after a model number.
	modelMultiplierSuffixPattern = regexp.MustCompile(`^\s*(?:\(\s*[xX×✕]\s*\d+\s*\)|[xX×✕]\s*\d+)`)

	colonModelPattern = regexp.MustCompile(`\b([A-Za-z][A-Za-z0-9&._-]{1,30})\s*[:：]\s*([A-Z]{2,}(?:\s*-\s*[A-Z0-9]{1,20})+)`)

	makerColonRestPattern = regexp.MustCompile(`([A-Za-z][A-Za-z0-9&._-]{1,30})\s*[:：]\s*(.+)`)

	dashVariantsPattern = regexp.MustCompile(`[ー―−–—‐ｰ－]`)

	// " 1. " style footnote markers appended after the model cell.
	footnoteMarkerPattern = regexp.MustCompile(`\s+\d+\.\s`)

	dashSpacingPattern = regexp.MustCompile(`\s*-\s*`)
	multiSpacePattern  = regexp.MustCompile(`\s{2,}`)

	separatorSpacingPattern = regexp.MustCompile(`\s*([,、/／|])\s*`)

	modelMatchStripPattern = regexp.MustCompile(`[\s\-_ー―−–—‐ｰ]+`)

	wattagePattern = regexp.MustCompile(`(?i)\d+(?:\.\d+)?\s*W`)

	dittoGuardPattern = regexp.MustCompile(`(ガ[ー-]?ド|犬[-ー]?f|一卡付|卡付|カード|力[ー一-]?[fľł]?付)`)

	digitPattern = regexp.MustCompile(`\d`)
)

// cleanupModelText canonicalizes a model cell: dash variants collapse
// to "-", trailing footnotes and remark sentences are cut, spacing
// around hyphens is removed.
func cleanupModelText(value string) string {
	text := ocr.NormalizeText(value)
	text = dashVariantsPattern.ReplaceAllString(text, "-")
	if loc := footnoteMarkerPattern.FindStringIndex(text); loc != nil {
		text = text[:loc[0]]
	}
	if idx := strings.Index(text, "。"); idx >= 0 {
		text = text[:idx]
	}
	text = strings.Trim(text, " |[]")
	text = dashSpacingPattern.ReplaceAllString(text, "-")
	text = multiSpacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// appendMultiplierSuffix keeps a ×N quantity marker that immediately
// follows the matched model.
func appendMultiplierSuffix(text, model string, modelEnd int) string {
	suffix := ""
	if modelEnd >= 0 && modelEnd <= len(text) {
		suffix = modelMultiplierSuffixPattern.FindString(text[modelEnd:])
	}
	return cleanupModelText(model + suffix)
}

func normalizeForModelMatching(value string) string {
	normalized := strings.ToUpper(ocr.NormalizeText(value))
	return modelMatchStripPattern.ReplaceAllString(normalized, "")
}

// isEmergencyCertificationModel matches the LALE certification labels
// stamped next to emergency fixtures; they are not model numbers.
func isEmergencyCertificationModel(model string) bool {
	normalized := normalizeForModelMatching(model)
	if normalized == "" {
		return false
	}
	return strings.HasPrefix(normalized, "LALE") && digitPattern.MatchString(normalized)
}

// extractMakerAndModel splits "maker:model" text. Returns the rune
// start offset of the maker inside segmentText, or -1 on no match.
func extractMakerAndModel(segmentText string) (maker, model string, makerStart int) {
	loc := makerColonRestPattern.FindStringSubmatchIndex(segmentText)
	if loc == nil {
		return "", "", -1
	}
	maker = strings.TrimSpace(segmentText[loc[2]:loc[3]])
	model = cleanupModelText(segmentText[loc[4]:loc[5]])
	return maker, model, len([]rune(segmentText[:loc[2]]))
}

// extractModelWithStart finds a bare hyphenated model in cleaned text.
// The returned start is a rune offset into the cleaned text, -1 when
// absent.
func extractModelWithStart(segmentText string) (string, int) {
	text := cleanupModelText(segmentText)
	loc := modelPattern.FindStringSubmatchIndex(text)
	if loc == nil {
		return "", -1
	}
	model := appendMultiplierSuffix(text, text[loc[2]:loc[3]], loc[3])
	return model, len([]rune(text[:loc[2]]))
}

// normalizeDittoModel maps the OCR spellings of the 同上 continuation
// marker (and its ガード付 variant) to canonical forms. Returns ""
// when the text is not a continuation marker.
func normalizeDittoModel(segmentText string) string {
	compact := strings.ToLower(ocr.CompactText(segmentText))
	if !strings.Contains(compact, "同上") {
		return ""
	}
	if dittoGuardPattern.MatchString(compact) {
		return "同上ガード付"
	}
	return "同上"
}

// tidyModelSeparators normalizes whitespace around list separators in
// a multi-model cell.
func tidyModelSeparators(value string) string {
	normalized := ocr.NormalizeText(value)
	normalized = multiSpacePattern.ReplaceAllString(normalized, " ")
	normalized = separatorSpacingPattern.ReplaceAllString(normalized, " $1 ")
	normalized = multiSpacePattern.ReplaceAllString(normalized, " ")
	return strings.Trim(normalized, " ,、/／|")
}

// SplitEquivalentModel splits a combined "maker:model" cell into its
// manufacturer and model parts. Cells without a colon have no
// manufacturer.
func SplitEquivalentModel(value string) (maker, model string) {
	text := strings.TrimSpace(ocr.NormalizeText(value))
	text = strings.ReplaceAll(text, "：", ":")
	if idx := strings.Index(text, ":"); idx >= 0 {
		return strings.TrimSpace(text[:idx]), tidyModelSeparators(text[idx+1:])
	}
	return "", tidyModelSeparators(text)
}
