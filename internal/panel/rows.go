package panel

import (
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/ocr"
)

var (
	japanesePattern       = regexp.MustCompile(`[ぁ-んァ-ン一-龥]`)
	plainNumberPattern    = regexp.MustCompile(`^[+-]?\d+(?:\.\d+)?$`)
	firstNumberPattern    = regexp.MustCompile(`[+-]?\d+(?:\.\d+)?`)
	threePhasePattern     = regexp.MustCompile(`3[Φφ/\+\$＊*]?200`)
	simpleVoltagePattern  = regexp.MustCompile(`^([+-]?\d+)(?:V)?$`)
	codePattern           = regexp.MustCompile(`[A-Z]{1,4}-[A-Z0-9]{1,6}`)
	codeWithTailPattern   = regexp.MustCompile(`^([A-Z]{1,4}-[A-Z0-9-]{1,12})(.+)$`)
	codeTrailingOCRLetter = regexp.MustCompile(`^([A-Z]{1,4}-[A-Z0-9-]*\d)[A-Z]{1,2}$`)
	leadingPunctPattern   = regexp.MustCompile(`^[\.,，．。・･·:：;；]+`)
	digitsOnlyPattern     = regexp.MustCompile(`^\d{2,}$`)
	anyDigitPattern       = regexp.MustCompile(`\d`)
)

// cells is one row's raw column text keyed by column name.
type cells struct {
	Code    string
	Name    string
	Voltage string
	Power   string
}

func (c cells) combined() string {
	return ocr.NormalizeText(c.Code + c.Name + c.Voltage + c.Power)
}

func cleanCell(text string) string {
	text = strings.TrimSpace(ocr.NormalizeText(text))
	text = strings.ReplaceAll(text, " ", "")
	return strings.Trim(text, "|,:;[]()")
}

func containsJapanese(text string) bool {
	return japanesePattern.MatchString(text)
}

// normalizePowerText canonicalizes a capacity cell. Values with more
// than three fractional digits are OCR noise (0.75255) and get rounded
// half-up to two places; normal precision passes through untouched.
func normalizePowerText(power string) string {
	norm := ocr.CompactText(power)
	norm = strings.ReplaceAll(norm, ",", "")
	if norm == "" {
		return ""
	}
	if !plainNumberPattern.MatchString(norm) {
		first := firstNumberPattern.FindString(norm)
		if first == "" {
			return ""
		}
		norm = first
	}
	if !strings.Contains(norm, ".") {
		return norm
	}
	fractional := norm[strings.Index(norm, ".")+1:]
	if len(fractional) <= 3 {
		return norm
	}

	value, err := strconv.ParseFloat(norm, 64)
	if err != nil {
		return norm
	}
	sign := 1.0
	if value < 0 {
		sign = -1.0
		value = -value
	}
	rounded := sign * math.Floor(value*100+0.5) / 100
	text := strconv.FormatFloat(rounded, 'f', 2, 64)
	text = strings.TrimRight(text, "0")
	text = strings.TrimRight(text, ".")
	return text
}

// normalizeVoltageText repairs the common OCR misreads of 1φ200 and
// 3φ200 voltage cells.
func normalizeVoltageText(volt string) string {
	norm := strings.ToUpper(ocr.CompactText(volt))
	if norm == "" {
		return ""
	}
	if norm == "1/200" {
		return "1φ200"
	}

	var digitsOnly strings.Builder
	for _, r := range norm {
		if r >= '0' && r <= '9' {
			digitsOnly.WriteRune(r)
		}
	}
	digits := digitsOnly.String()
	if threePhasePattern.MatchString(norm) {
		return "200"
	}
	switch digits {
	// A digit-only reading of exactly 200 is an OCR repair: noisy forms
	// like "2:00", "20.0" or "2-00" all mean the 200V cell.
	case "3200", "34200", "36200", "30200", "200":
		return "200"
	}

	if m := simpleVoltagePattern.FindStringSubmatch(norm); m != nil {
		return m[1]
	}
	return norm
}

// normalizeRowCells repairs the systematic OCR damage in one row:
// name text glued onto the code, stray letters on code tails, noise
// punctuation, and the known name misreads.
func normalizeRowCells(row cells) cells {
	code := row.Code
	name := row.Name

	codeUpper := strings.ToUpper(ocr.NormalizeText(code))
	if m := codeWithTailPattern.FindStringSubmatch(codeUpper); m != nil {
		pureCode := m[1]
		tail := ocr.NormalizeText(code)[len(pureCode):]
		hasKeyword := false
		for _, k := range rowFilterNameKeywords {
			if strings.Contains(tail, k) {
				hasKeyword = true
				break
			}
		}
		if tail != "" && (containsJapanese(tail) || hasKeyword) {
			code = pureCode
			name = tail + name
		}
	}

	codeUpper = strings.ToUpper(ocr.NormalizeText(code))
	if name == "" {
		if m := codeTrailingOCRLetter.FindStringSubmatch(codeUpper); m != nil {
			code = m[1]
			codeUpper = code
		}
	}

	if code != "" && !codePattern.MatchString(strings.ToUpper(ocr.NormalizeText(code))) {
		if name != "" {
			name = code + name
			code = ""
			codeUpper = ""
		}
	}

	name = leadingPunctPattern.ReplaceAllString(name, "")
	name = strings.TrimLeft(name, "-")

	if name == "" {
		switch {
		case strings.HasPrefix(codeUpper, "EF-") || strings.HasPrefix(codeUpper, "F-"):
			name = "排風機"
		case strings.HasPrefix(codeUpper, "SF-"):
			name = "送風機"
		case strings.HasPrefix(codeUpper, "PAC-"):
			name = "空調室内機"
		}
	}

	name = strings.ReplaceAll(name, "室內", "室内")
	if strings.HasPrefix(name, "湧水ポンプ") || strings.HasPrefix(name, "清水ポンプ") {
		name = "清水ポンプ"
	}

	return cells{
		Code:    cleanCell(code),
		Name:    cleanCell(name),
		Voltage: cleanCell(normalizeVoltageText(row.Voltage)),
		Power:   cleanCell(normalizePowerText(row.Power)),
	}
}

func isHeaderRowText(normalized string) bool {
	lowered := strings.ToLower(normalized)
	count := 0
	for _, k := range headerKeywords {
		if strings.Contains(lowered, k) {
			count++
		}
	}
	return count >= headerMinCategories
}

func isFooterRowText(normalized string) bool {
	lowered := strings.ToLower(normalized)
	for _, k := range footerKeywords {
		if strings.Contains(lowered, k) {
			return true
		}
	}
	return false
}

// isDataRow decides whether normalized cells form a real table row
// rather than a plan label, room name or legend fragment.
func isDataRow(row cells) bool {
	code := strings.ToUpper(ocr.NormalizeText(row.Code))
	name := ocr.NormalizeText(row.Name)
	volt := ocr.NormalizeText(row.Voltage)
	power := ocr.NormalizeText(row.Power)
	combined := strings.ToLower(code + name + volt + power)

	hasCode := codePattern.MatchString(code)
	hasName := name != ""
	hasVoltageNum := anyDigitPattern.MatchString(volt)
	hasPowerNum := anyDigitPattern.MatchString(power)

	if combined == "" {
		return false
	}
	if isHeaderRowText(combined) {
		return false
	}
	for _, kw := range []string{"盤姿図", "主開閉器", "トリップ", "ロック連動"} {
		if strings.Contains(combined, kw) {
			return false
		}
	}

	// Plan/location labels (SL-6, L-H2) carry a code but no values.
	if hasCode && !(hasName || hasVoltageNum || hasPowerNum) {
		return false
	}
	// Room labels carry a name but no values.
	if hasName && !hasCode && !hasVoltageNum && !hasPowerNum {
		return false
	}

	if hasCode && (hasName || hasVoltageNum || hasPowerNum) {
		return true
	}
	for _, k := range rowFilterNameKeywords {
		if strings.Contains(name, k) && (hasVoltageNum || hasPowerNum) {
			return true
		}
	}
	if strings.Contains(name, "同上用フロートスイッチ") || strings.Contains(name, "操作電源") {
		return true
	}
	if hasName && hasVoltageNum {
		return true
	}
	return hasName && hasPowerNum
}

// InferDynamicDataStartY finds where data rows begin below the header:
// the header's bottom edge plus an offset scaled to the glyph height.
func InferDynamicDataStartY(words []ocr.WordBox, headerY float64) float64 {
	var headerWords []ocr.WordBox
	for _, w := range words {
		if math.Abs(w.CenterY()-headerY) <= headerYCluster {
			headerWords = append(headerWords, w)
		}
	}
	if len(headerWords) == 0 {
		return headerY + tableDefaultStartOffset
	}
	headerBottom := headerWords[0].Y1
	var heights []float64
	for _, w := range headerWords {
		if w.Y1 > headerBottom {
			headerBottom = w.Y1
		}
		h := w.Height()
		if h < 1 {
			h = 1
		}
		heights = append(heights, h)
	}
	medianHeight, _ := median(heights)
	offset := medianHeight * 1.2
	if offset < tableMinStartOffset {
		offset = tableMinStartOffset
	}
	if offset > tableMaxStartOffset {
		offset = tableMaxStartOffset
	}
	return headerBottom + offset
}

// rowsResult carries parsed rows plus the tail state the expansion
// loop inspects.
type rowsResult struct {
	Rows                  []Row
	SawData               bool
	LastDataClusterBottom float64
	HasLastDataBottom     bool
	TrailingNonDataCount  int
	StoppedByFooter       bool
}

// rowsFromWords assembles data rows for a cropped table region. Words
// are in crop coordinates; row ys come back in crop coordinates too.
func rowsFromWords(words []ocr.WordBox, bounds ColumnBounds, yCluster, startY float64, trailingNonDataGap int) rowsResult {
	if startY <= 0 {
		startY = bounds.HeaderY + dataStartOffset
	}

	allRows := cluster.ByY(words, yCluster)
	var rows []cluster.Row
	for _, row := range allRows {
		if row.Y >= startY {
			rows = append(rows, row)
			continue
		}
		// Keep a straddling row whose words span the start line.
		top, bottom := row.Words[0].Y0, row.Words[0].Y1
		for _, w := range row.Words[1:] {
			if w.Y0 < top {
				top = w.Y0
			}
			if w.Y1 > bottom {
				bottom = w.Y1
			}
		}
		if top <= startY && startY <= bottom {
			rows = append(rows, row)
		}
	}

	var result rowsResult
	rowIdx := 1
	for _, row := range rows {
		byColumn := map[string][]ocr.WordBox{}
		for _, w := range row.Words {
			col := AssignColumn(w.CenterX(), bounds)
			if col != "" {
				byColumn[col] = append(byColumn[col], w)
			}
		}
		if len(byColumn) == 0 {
			continue
		}

		powerWords := byColumn[coreColumns[3]]
		sort.SliceStable(powerWords, func(i, j int) bool { return powerWords[i].X0 < powerWords[j].X0 })
		if len(powerWords) > 0 {
			var heights []float64
			for _, w := range row.Words {
				h := w.Height()
				if h < 1 {
					h = 1
				}
				heights = append(heights, h)
			}
			medianHeight, ok := median(heights)
			if ok && medianHeight > 0 {
				maxNoiseHeight := math.Max(36.0, medianHeight*2.2)
				var kept []ocr.WordBox
				for _, w := range powerWords {
					// Tall multi-digit blobs bleeding in from the
					// drawing frame are not capacity values.
					if w.Height() > maxNoiseHeight && digitsOnlyPattern.MatchString(ocr.CompactText(w.Text)) {
						continue
					}
					kept = append(kept, w)
				}
				if len(kept) > 0 {
					powerWords = kept
				}
			}
		}

		joinColumn := func(ws []ocr.WordBox) string {
			sort.SliceStable(ws, func(i, j int) bool { return ws[i].X0 < ws[j].X0 })
			var b strings.Builder
			for _, w := range ws {
				b.WriteString(w.Text)
			}
			return b.String()
		}
		raw := cells{
			Code:    cleanCell(joinColumn(byColumn[coreColumns[0]])),
			Name:    cleanCell(joinColumn(byColumn[coreColumns[1]])),
			Voltage: cleanCell(joinColumn(byColumn[coreColumns[2]])),
			Power:   cleanCell(joinColumn(powerWords)),
		}
		normalized := normalizeRowCells(raw)

		combined := normalized.combined()
		if isFooterRowText(combined) {
			result.StoppedByFooter = true
			break
		}
		if isHeaderRowText(combined) || !isDataRow(normalized) {
			if result.SawData {
				result.TrailingNonDataCount++
				if result.TrailingNonDataCount > trailingNonDataGap {
					break
				}
			}
			continue
		}

		result.SawData = true
		result.TrailingNonDataCount = 0
		bottom := row.Words[0].Y1
		for _, w := range row.Words[1:] {
			if w.Y1 > bottom {
				bottom = w.Y1
			}
		}
		result.LastDataClusterBottom = bottom
		result.HasLastDataBottom = true
		result.Rows = append(result.Rows, Row{
			RowIndex: rowIdx,
			RowY:     row.Y,
			Code:     normalized.Code,
			Name:     normalized.Name,
			Voltage:  normalized.Voltage,
			Power:    normalized.Power,
		})
		rowIdx++
	}
	return result
}
