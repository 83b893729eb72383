// Package dwelling extracts fixture listings from 住戸内照明器具姿図
// sheets: pictorial diagrams where each fixture drawing carries a
// short code (D1, L3) with maker and model text scattered nearby.
package dwelling

import (
	"regexp"
	"strings"

	"github.com/zumenkit/schedscan/internal/logger"
	"github.com/zumenkit/schedscan/internal/ocr"
)

var log = logger.GetLogger("dwelling")

const dashTokenClass = `[-‐‑‒–—―ー−－]`

var modelTokenPattern = `(?:` +
	`[A-Z0-9]+(?:\s*` + dashTokenClass + `\s*[A-Z0-9]+)+` +
	`|` +
	`[A-Z]{2,}[A-Z0-9]{3,}` +
	`)`

var (
	dashVariantsPattern   = regexp.MustCompile(`[ー―−–—‐ｰ－]`)
	equipmentCodePattern  = regexp.MustCompile(`^[A-Z]\d{1,2}$`)
	equipmentLabelPattern = regexp.MustCompile(`^([A-Z]\d{1,2})(?:\(([^()]+)\))?$`)
	singleLetterPattern   = regexp.MustCompile(`^[A-Z]$`)
	shortDigitsPattern    = regexp.MustCompile(`^\d{1,2}$`)
	wattageOnlyPattern    = regexp.MustCompile(`(?i)^\d+(?:\.\d+)?W$`)
	wireTypePattern       = regexp.MustCompile(`^(?:PF|VVF|SCV)[0-9A-Z.-]*$`)
	ledWattagePattern     = regexp.MustCompile(`(?i)^LED\d+(?:\.\d+)?W$`)
	digitPattern          = regexp.MustCompile(`\d`)
	dashSpacingPattern    = regexp.MustCompile(`\s*-\s*`)
	multiSpacePattern     = regexp.MustCompile(`\s{2,}`)
	wsPattern             = regexp.MustCompile(`\s+`)

	eqColonMakerModelPattern = regexp.MustCompile(
		`\b([A-Z]\d{1,2})\s*(\([^)]+\))?\s*[:：]\s*` +
			`([A-Za-z][A-Za-z0-9&._-]{1,30})\s+` +
			`(` + modelTokenPattern + `)`)
	makerColonModelPattern = regexp.MustCompile(
		`\b([A-Za-z][A-Za-z0-9&._-]{1,30})\s*[:：]\s*(` + modelTokenPattern + `)`)
	makerSpaceModelPattern = regexp.MustCompile(
		`\b([A-Za-z][A-Za-z0-9&._-]{1,30})\s+(` + modelTokenPattern + `)`)
)

func normalizeDash(value string) string {
	return dashVariantsPattern.ReplaceAllString(ocr.NormalizeText(value), "-")
}

func normalizeToken(value string) string {
	token := strings.ToUpper(normalizeDash(value))
	return strings.Trim(token, `[](){}<>|,.;:'"`)
}

func isEquipmentCode(value string) bool {
	return equipmentCodePattern.MatchString(normalizeToken(value))
}

// normalizeEquipmentLabel canonicalizes "D1" or "D1(調光)" labels,
// returning "" when the text is not a label.
func normalizeEquipmentLabel(value string) string {
	text := strings.ToUpper(normalizeDash(value))
	text = wsPattern.ReplaceAllString(text, "")
	m := equipmentLabelPattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	code := m[1]
	suffix := strings.TrimSpace(m[2])
	if suffix != "" {
		return code + "(" + suffix + ")"
	}
	return code
}

func isSymbolLike(value string) bool {
	return singleLetterPattern.MatchString(normalizeToken(value))
}

func cleanupModel(value string) string {
	text := normalizeDash(value)
	text = dashSpacingPattern.ReplaceAllString(text, "-")
	text = strings.Trim(text, " |[](){}<>,.;")
	text = multiSpacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func isLikelyMaker(value string) bool {
	maker := strings.TrimSpace(ocr.NormalizeText(value))
	if maker == "" {
		return false
	}
	if isEquipmentCode(maker) {
		return false
	}
	return len([]rune(maker)) >= 3
}

// isLikelyModel rejects the text that fools the model patterns: wire
// gauges, bare wattages and LED ratings.
func isLikelyModel(value string) bool {
	model := strings.ToUpper(cleanupModel(value))
	if len([]rune(model)) < 4 {
		return false
	}
	if !digitPattern.MatchString(model) {
		return false
	}
	if wireTypePattern.MatchString(model) {
		return false
	}
	if wattageOnlyPattern.MatchString(model) {
		return false
	}
	return !ledWattagePattern.MatchString(model)
}

// IsSectionTitle finds the 住戸内照明器具姿図 sheet title.
func IsSectionTitle(rowText string) bool {
	compact := ocr.CompactText(rowText)
	return strings.Contains(compact, "住戸内") && strings.Contains(compact, "照明器具姿図")
}
