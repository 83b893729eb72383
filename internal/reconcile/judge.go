package reconcile

import (
	"math"
	"strings"
)

type judgment string

const (
	judgmentMatch    judgment = "match"
	judgmentMismatch judgment = "mismatch"
	judgmentReview   judgment = "review"
)

func toMark(code judgment) string {
	switch code {
	case judgmentMatch:
		return "◯"
	case judgmentMismatch:
		return "✗"
	}
	return "要確認"
}

func aggregateJudgments(codes ...judgment) judgment {
	hasMismatch := false
	for _, code := range codes {
		if code == judgmentReview {
			return judgmentReview
		}
		if code == judgmentMismatch {
			hasMismatch = true
		}
	}
	if hasMismatch {
		return judgmentMismatch
	}
	return judgmentMatch
}

func normalizeNameForCompare(text string) string {
	return strings.ToLower(compactCell(text))
}

func compactCell(text string) string {
	normalized := normalizeCell(text)
	normalized = strings.ReplaceAll(normalized, " ", "")
	return strings.ReplaceAll(normalized, "　", "")
}

func collectUniqueNonBlank(values []string) []string {
	var unique []string
	seen := map[string]bool{}
	for _, value := range values {
		text := normalizeCell(value)
		if text == "" {
			continue
		}
		normalized := normalizeNameForCompare(text)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		unique = append(unique, text)
	}
	return unique
}

func pickFirstNonBlank(values []string) string {
	for _, value := range values {
		if text := normalizeCell(value); text != "" {
			return text
		}
	}
	return ""
}

func evaluateName(equipmentName string, panelNameCandidates []string, existsCode judgment) (judgment, string) {
	if existsCode == judgmentMismatch {
		return judgmentMismatch, "盤表に記載なし"
	}
	if equipmentName == "" || len(panelNameCandidates) == 0 {
		return judgmentReview, "名称が不明"
	}
	if len(panelNameCandidates) >= 2 {
		return judgmentMismatch, "名称不一致"
	}
	if normalizeNameForCompare(equipmentName) == normalizeNameForCompare(panelNameCandidates[0]) {
		return judgmentMatch, ""
	}
	return judgmentMismatch, "名称不一致"
}

func evaluateQuantity(scheduleCount float64, hasScheduleCount bool, panelMatchCount int, existsCode judgment) (judgment, float64, bool, string) {
	countDiff := 0.0
	hasDiff := false
	if hasScheduleCount {
		countDiff = float64(panelMatchCount) - scheduleCount
		hasDiff = true
	}
	if existsCode == judgmentMismatch {
		return judgmentMismatch, countDiff, hasDiff, "盤表に記載なし"
	}
	if !hasScheduleCount {
		return judgmentReview, countDiff, hasDiff, "台数が不明"
	}
	if countDiff == 0 {
		return judgmentMatch, countDiff, hasDiff, ""
	}
	return judgmentMismatch, countDiff, hasDiff, "台数差分=" + formatNumber(countDiff)
}

func evaluateCapacity(scheduleVariant capacityVariant, panelVariants []capacityVariant, existsCode judgment) (judgment, float64, bool, string) {
	if existsCode == judgmentMismatch {
		return judgmentMismatch, 0, false, "盤表に記載なし"
	}
	if scheduleVariant.Kind == capacityBlank || len(panelVariants) == 0 {
		return judgmentReview, 0, false, "容量欠損"
	}
	if scheduleVariant.Kind == capacityMulti {
		return judgmentReview, 0, false, "容量が複数候補"
	}
	if scheduleVariant.Kind == capacityNonNumeric {
		return judgmentReview, 0, false, "容量が数値でない"
	}
	for _, v := range panelVariants {
		if v.Kind == capacityMulti {
			return judgmentReview, 0, false, "容量が複数候補"
		}
	}
	if len(panelVariants) > 1 {
		return judgmentReview, 0, false, "容量が複数候補"
	}

	panelVariant := panelVariants[0]
	if panelVariant.Kind == capacityNonNumeric {
		return judgmentReview, 0, false, "容量が数値でない"
	}
	if panelVariant.Kind != capacityNumeric || !scheduleVariant.HasVal || !panelVariant.HasVal {
		return judgmentReview, 0, false, "容量欠損"
	}

	diff := panelVariant.Value - scheduleVariant.Value
	if math.Abs(diff) <= epsKW {
		return judgmentMatch, diff, true, ""
	}
	return judgmentMismatch, diff, true, "容量差分=" + formatNumber(diff)
}

// buildLegacyReason reduces the per-axis outcomes to one headline
// reason, review reasons outranking mismatch reasons when the overall
// verdict is a review.
func buildLegacyReason(overall, existsCode, qtyCode judgment, qtyReason string, countDiff float64, hasCountDiff bool, capacityCode judgment, capacityReason string, nameCode judgment, nameReason string) string {
	var reviewReasons, mismatchReasons []string

	if existsCode == judgmentMismatch {
		mismatchReasons = append(mismatchReasons, "盤表に記載なし")
	}

	switch qtyCode {
	case judgmentReview:
		reviewReasons = append(reviewReasons, "台数差分=欠損")
	case judgmentMismatch:
		reason := qtyReason
		if reason == "" && hasCountDiff {
			reason = "台数差分=" + formatNumber(countDiff)
		}
		mismatchReasons = append(mismatchReasons, reason)
	}

	switch capacityCode {
	case judgmentReview:
		if capacityReason == "容量が複数候補" || capacityReason == "容量が数値でない" {
			reviewReasons = append(reviewReasons, capacityReason)
		} else {
			reviewReasons = append(reviewReasons, "容量欠損")
		}
	case judgmentMismatch:
		if capacityReason == "" {
			capacityReason = "容量不一致"
		}
		mismatchReasons = append(mismatchReasons, capacityReason)
	}

	switch nameCode {
	case judgmentReview:
		if nameReason == "" {
			nameReason = "名称が不明"
		}
		reviewReasons = append(reviewReasons, nameReason)
	case judgmentMismatch:
		if nameReason == "" {
			nameReason = "名称不一致"
		}
		mismatchReasons = append(mismatchReasons, nameReason)
	}

	if overall == judgmentReview {
		if len(reviewReasons) > 0 {
			return reviewReasons[0]
		}
		if len(mismatchReasons) > 0 {
			return mismatchReasons[0]
		}
		return ""
	}
	if len(mismatchReasons) > 0 {
		return mismatchReasons[0]
	}
	if len(reviewReasons) > 0 {
		return reviewReasons[0]
	}
	return ""
}

func pickReason(overall judgment, legacyReason string, fallbackReasons []string) string {
	if overall == judgmentMatch {
		return ""
	}
	if legacyReason != "" {
		return legacyReason
	}
	for _, reason := range fallbackReasons {
		if text := normalizeCell(reason); text != "" {
			return text
		}
	}
	if overall == judgmentReview {
		return "判定要確認"
	}
	return "不一致"
}

// traceRow is one panel schedule row as it appeared in its sheet.
type traceRow struct {
	Drawing  string
	Name     string
	Capacity string
	Voltage  string
}

func normalizeTraceValue(value string) string {
	if text := normalizeCell(value); text != "" {
		return text
	}
	return "?"
}

// formatTraceRows renders the distinct panel readings when a code was
// seen on more than one sheet. A single reading needs no trace.
func formatTraceRows(rows []traceRow) string {
	type traceKey struct{ drawing, name, capacity string }
	var orderedKeys []traceKey
	counts := map[traceKey]int{}
	for _, row := range rows {
		key := traceKey{
			normalizeTraceValue(row.Drawing),
			normalizeTraceValue(row.Name),
			normalizeTraceValue(row.Capacity),
		}
		if _, ok := counts[key]; !ok {
			orderedKeys = append(orderedKeys, key)
		}
		counts[key]++
	}
	if len(orderedKeys) <= 1 {
		return ""
	}

	parts := make([]string, 0, len(orderedKeys))
	for _, key := range orderedKeys {
		label := "図面:" + key.drawing + " 名称:" + key.name + " 容量:" + key.capacity
		if counts[key] > 1 {
			label += " x" + formatNumber(float64(counts[key]))
		}
		parts = append(parts, label)
	}
	return strings.Join(parts, " || ")
}
