// Package reconcile cross-checks the equipment schedule (機器表)
// against the panel schedule (盤表): rows are joined by equipment
// code and judged on presence, quantity, capacity and name, with a
// reasoned verdict per row.
package reconcile

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zumenkit/schedscan/internal/logger"
	"github.com/zumenkit/schedscan/internal/ocr"
)

var log = logger.GetLogger("reconcile")

// epsKW is the tolerance for capacity agreement.
const epsKW = 0.1

var blankTokens = map[string]bool{"": true, "-": true, "－": true, "—": true}

var (
	thousandsPattern    = regexp.MustCompile(`^[+-]?\d{1,3}(,\d{3})+(\.\d+)?$`)
	modeCapacityPattern = regexp.MustCompile(`\((冷|暖|低温)\)\s*([+-]?\d+(?:,\d{3})*(?:\.\d+)?)`)
)

var modeOrder = []string{"冷", "暖", "低温"}

var capacityModeHints = []struct {
	Mode     string
	Keywords []string
}{
	{"冷", []string{"冷房専用"}},
	{"暖", []string{"暖房専用"}},
	{"低温", []string{"低温専用"}},
}

type capacityKind string

const (
	capacityBlank      capacityKind = "blank"
	capacityNumeric    capacityKind = "numeric"
	capacityMulti      capacityKind = "multi"
	capacityNonNumeric capacityKind = "non_numeric"
)

// capacityVariant is one distinct capacity reading.
type capacityVariant struct {
	Display string
	Value   float64
	HasVal  bool
	Kind    capacityKind
}

func normalizeCell(text string) string {
	return strings.TrimSpace(ocr.NormalizeText(text))
}

func parseNumber(value string) (float64, bool) {
	text := normalizeCell(value)
	if blankTokens[text] {
		return 0, false
	}
	text = strings.ReplaceAll(text, ",", "")
	v, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func formatNumber(value float64) string {
	return strconv.FormatFloat(value, 'g', 12, 64)
}

// classifyCapacityText sorts a capacity cell into blank, a single
// number, a comma-separated candidate list, or free text.
func classifyCapacityText(raw string) capacityVariant {
	text := normalizeCell(raw)
	if blankTokens[text] {
		return capacityVariant{Kind: capacityBlank}
	}
	if strings.Contains(text, ",") && !thousandsPattern.MatchString(text) {
		return capacityVariant{Display: text, Kind: capacityMulti}
	}
	if v, ok := parseNumber(text); ok {
		return capacityVariant{Display: formatNumber(v), Value: v, HasVal: true, Kind: capacityNumeric}
	}
	return capacityVariant{Display: text, Kind: capacityNonNumeric}
}

func collectCapacityVariants(values []string) []capacityVariant {
	seen := map[string]bool{}
	var variants []capacityVariant
	for _, raw := range values {
		variant := classifyCapacityText(raw)
		if variant.Kind == capacityBlank {
			continue
		}
		key := variant.Display + "|" + string(variant.Kind)
		if seen[key] {
			continue
		}
		seen[key] = true
		variants = append(variants, variant)
	}
	return variants
}

func joinCapacityVariants(variants []capacityVariant) string {
	var parts []string
	for _, v := range variants {
		if v.Display != "" {
			parts = append(parts, v.Display)
		}
	}
	return strings.Join(parts, ",")
}

// extractModeCapacityValues reads per-mode capacities like
// (冷)2.8(暖)3.6 out of a power cell.
func extractModeCapacityValues(raw string) map[string]float64 {
	values := map[string]float64{}
	for _, m := range modeCapacityPattern.FindAllStringSubmatch(normalizeCell(raw), -1) {
		if v, ok := parseNumber(m[2]); ok {
			values[m[1]] = v
		}
	}
	return values
}

func formatModeCapacityValues(values map[string]float64) string {
	if len(values) == 0 {
		return ""
	}
	var modes []string
	for _, mode := range modeOrder {
		if _, ok := values[mode]; ok {
			modes = append(modes, mode)
		}
	}
	var extra []string
	for mode := range values {
		known := false
		for _, m := range modeOrder {
			if m == mode {
				known = true
				break
			}
		}
		if !known {
			extra = append(extra, mode)
		}
	}
	sort.Strings(extra)
	modes = append(modes, extra...)

	parts := make([]string, 0, len(modes))
	for _, mode := range modes {
		parts = append(parts, mode+"="+formatNumber(values[mode]))
	}
	return strings.Join(parts, ",")
}

// inferCapacityModeFromName reads a mode hint out of the equipment
// name. Two different hints at once leave the mode ambiguous.
func inferCapacityModeFromName(name string) (mode, keyword string, ambiguous bool) {
	normalized := normalizeCell(name)
	type match struct{ mode, keyword string }
	var matches []match
	for _, hint := range capacityModeHints {
		for _, kw := range hint.Keywords {
			if strings.Contains(normalized, kw) {
				matches = append(matches, match{hint.Mode, kw})
				break
			}
		}
	}
	switch {
	case len(matches) == 1:
		return matches[0].mode, matches[0].keyword, false
	case len(matches) >= 2:
		var keywords []string
		for _, m := range matches {
			keywords = append(keywords, m.keyword)
		}
		return "", strings.Join(keywords, ","), true
	}
	return "", "", false
}

func pickUniqueMaxMode(modeValues map[string]float64) (mode string, value float64, maxModes []string) {
	if len(modeValues) == 0 {
		return "", 0, nil
	}
	maxValue := math.Inf(-1)
	for _, v := range modeValues {
		if v > maxValue {
			maxValue = v
		}
	}
	for _, m := range modeOrder {
		if v, ok := modeValues[m]; ok && math.Abs(v-maxValue) <= 1e-9 {
			maxModes = append(maxModes, m)
		}
	}
	for m, v := range modeValues {
		known := false
		for _, om := range modeOrder {
			if om == m {
				known = true
				break
			}
		}
		if !known && math.Abs(v-maxValue) <= 1e-9 {
			maxModes = append(maxModes, m)
		}
	}
	if len(maxModes) == 1 {
		return maxModes[0], maxValue, maxModes
	}
	return "", maxValue, maxModes
}

// capacityResolution records which capacity value the judgment uses
// for one equipment schedule row, and why.
type capacityResolution struct {
	RawDisplay        string
	ModeValuesDisplay string
	SelectedMode      string
	SelectedDisplay   string
	SelectedValue     float64
	HasValue          bool
	SelectedKind      capacityKind
	Note              string
	ReasonCode        string
}

// resolveScheduleCapacity decides the capacity a schedule row is
// judged on: a plain number wins outright, per-mode values resolve
// through a name hint, then through the unique maximum unless strict
// mode disables the fallback.
func resolveScheduleCapacity(raw, equipmentName string, maxFallback bool) capacityResolution {
	rawDisplay := normalizeCell(raw)
	variants := collectCapacityVariants([]string{raw})
	variant := capacityVariant{Kind: capacityBlank}
	if len(variants) > 0 {
		variant = variants[0]
	}
	modeValues := extractModeCapacityValues(raw)
	modeValuesDisplay := formatModeCapacityValues(modeValues)

	res := capacityResolution{
		RawDisplay:        rawDisplay,
		ModeValuesDisplay: modeValuesDisplay,
		SelectedDisplay:   variant.Display,
		SelectedValue:     variant.Value,
		HasValue:          variant.HasVal,
		SelectedKind:      variant.Kind,
	}

	switch variant.Kind {
	case capacityBlank:
		res.ReasonCode = "BLANK"
		return res
	case capacityNumeric:
		res.SelectedMode = "単一値"
		res.Note = "単一数値を採用"
		res.ReasonCode = "SINGLE_NUMERIC"
		return res
	case capacityMulti:
		res.SelectedMode = "未確定"
		res.Note = "カンマ区切りの複数候補"
		res.ReasonCode = "MULTI_CANDIDATE_COMMA"
		return res
	}

	if len(modeValues) == 0 {
		res.SelectedMode = "未確定"
		res.Note = "数値化できない表記"
		res.ReasonCode = "NON_NUMERIC_TEXT"
		return res
	}
	if len(modeValues) == 1 {
		for mode, value := range modeValues {
			res.SelectedMode = mode
			res.SelectedDisplay = formatNumber(value)
			res.SelectedValue = value
			res.HasValue = true
			res.SelectedKind = capacityNumeric
			res.Note = "モード容量1候補のため(" + mode + ")を採用"
			res.ReasonCode = "MODE_SINGLE_CANDIDATE"
		}
		return res
	}

	hintedMode, hintedKeyword, hintAmbiguous := inferCapacityModeFromName(equipmentName)
	if hintedMode != "" {
		if value, ok := modeValues[hintedMode]; ok {
			res.SelectedMode = hintedMode
			res.SelectedDisplay = formatNumber(value)
			res.SelectedValue = value
			res.HasValue = true
			res.SelectedKind = capacityNumeric
			res.Note = "機器名称ヒント(" + hintedKeyword + ")で(" + hintedMode + ")を採用"
			res.ReasonCode = "MODE_BY_NAME_HINT"
			return res
		}
	}

	if !hintAmbiguous && maxFallback {
		maxMode, maxValue, maxModes := pickUniqueMaxMode(modeValues)
		if maxMode != "" {
			res.SelectedMode = "最大値(" + maxMode + ")"
			res.SelectedDisplay = formatNumber(maxValue)
			res.SelectedValue = maxValue
			res.HasValue = true
			res.SelectedKind = capacityNumeric
			res.Note = "機器名称からモード特定不可のため最大値を採用"
			res.ReasonCode = "MODE_BY_MAX_FALLBACK"
			return res
		}
		if len(maxModes) > 0 {
			var ordered []string
			for _, mode := range modeOrder {
				for _, m := range maxModes {
					if m == mode {
						ordered = append(ordered, mode)
					}
				}
			}
			res.SelectedMode = "未確定"
			res.Note = "機器名称からモード特定不可かつ最大値が複数(" + strings.Join(ordered, ",") + ")"
			res.ReasonCode = "MODE_MAX_TIE_UNRESOLVED"
			return res
		}
	}

	res.SelectedMode = "未確定"
	switch {
	case hintAmbiguous:
		res.Note = "機器名称ヒントが複数(" + hintedKeyword + ")でモード未確定"
		res.ReasonCode = "MODE_HINT_AMBIGUOUS"
	case !maxFallback:
		res.Note = "機器名称からモード特定不可(strict設定)"
		res.ReasonCode = "MODE_UNKNOWN_STRICT"
	default:
		res.Note = "機器名称からモード特定不可"
		res.ReasonCode = "MODE_UNKNOWN"
	}
	return res
}
