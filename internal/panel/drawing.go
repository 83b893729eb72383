package panel

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/ocr"
)

const (
	drawingNoYCluster           = 22.0
	drawingNoLabelToValueOffset = 180.0
	drawingNoLabelXSlackLeft    = 120.0
	drawingNoLabelXSlackRight   = 320.0
	drawingNoValueYCluster      = 12.0
	drawingNoBottomYRatio       = 0.70
	drawingNoBottomXRatio       = 0.70
)

var (
	drawingNumberPattern = regexp.MustCompile(`^[A-Z]{1,4}-[A-Z0-9]{1,8}(?:-[A-Z0-9]{1,8})*$`)
	dashVariantPattern   = regexp.MustCompile("[‐‑‒–—―ー−－]")
)

// normalizeDrawingNumberCandidate canonicalizes one token and reports
// whether it looks like a drawing number (E-101, DK-3-2).
func normalizeDrawingNumberCandidate(text string) (string, bool) {
	normalized := strings.ToUpper(ocr.CompactText(text))
	normalized = dashVariantPattern.ReplaceAllString(normalized, "-")
	normalized = strings.Trim(normalized, "|,:;[](){}<>「」『』")
	if drawingNumberPattern.MatchString(normalized) {
		return normalized, true
	}
	return "", false
}

func isDrawingNumberLabel(text string) bool {
	normalized := ocr.CompactText(text)
	if strings.Contains(normalized, "図面番号") {
		return true
	}
	return strings.Contains(normalized, "図面") && strings.Contains(normalized, "番号")
}

// extractDrawingNumberFromWords finds the drawing number in a title
// block: first under the 図面番号 label, then anywhere in the
// bottom-right corner of the frame.
func extractDrawingNumberFromWords(words []ocr.WordBox, frameWidth, frameHeight float64) string {
	if len(words) == 0 {
		return ""
	}

	var labelRow *cluster.Row
	rows := cluster.ByY(words, drawingNoYCluster)
	for i := range rows {
		if !isDrawingNumberLabel(ocr.JoinRowText(rows[i].Words)) {
			continue
		}
		if labelRow == nil || rows[i].Y > labelRow.Y {
			labelRow = &rows[i]
		}
	}

	if labelRow != nil {
		labelXMin := labelRow.Words[0].X0
		labelXMax := labelRow.Words[0].X1
		for _, w := range labelRow.Words[1:] {
			if w.X0 < labelXMin {
				labelXMin = w.X0
			}
			if w.X1 > labelXMax {
				labelXMax = w.X1
			}
		}

		var below []ocr.WordBox
		for _, w := range words {
			cy := w.CenterY()
			if cy <= labelRow.Y+1.0 || cy > labelRow.Y+drawingNoLabelToValueOffset {
				continue
			}
			if w.X1 < labelXMin-drawingNoLabelXSlackLeft {
				continue
			}
			if w.X0 > labelXMax+drawingNoLabelXSlackRight {
				continue
			}
			below = append(below, w)
		}

		for _, row := range cluster.ByY(below, drawingNoValueYCluster) {
			joined := ocr.JoinRowText(row.Words)
			if candidate, ok := normalizeDrawingNumberCandidate(joined); ok {
				return candidate
			}
			for _, w := range row.Words {
				if candidate, ok := normalizeDrawingNumberCandidate(w.Text); ok {
					return candidate
				}
			}
		}
	}

	sorted := make([]ocr.WordBox, len(words))
	copy(sorted, words)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CenterY() != sorted[j].CenterY() {
			return sorted[i].CenterY() < sorted[j].CenterY()
		}
		return sorted[i].CenterX() < sorted[j].CenterX()
	})
	for _, w := range sorted {
		if w.CenterY() < frameHeight*drawingNoBottomYRatio {
			continue
		}
		if w.CenterX() < frameWidth*drawingNoBottomXRatio {
			continue
		}
		if candidate, ok := normalizeDrawingNumberCandidate(w.Text); ok {
			return candidate
		}
	}
	return ""
}

// extractDrawingNumberFromTextLayer reads the embedded text layer as a
// fallback when OCR missed the title block.
func extractDrawingNumberFromTextLayer(pdfPath string, page int) string {
	if page < 1 {
		return ""
	}
	f, reader, err := pdf.Open(pdfPath)
	if err != nil {
		log.Debug("text layer open failed", "pdf", pdfPath, "error", err)
		return ""
	}
	defer f.Close()
	if page > reader.NumPage() {
		return ""
	}

	p := reader.Page(page)
	if p.V.IsNull() {
		return ""
	}
	var pageWidth, pageHeight float64
	box := p.V.Key("MediaBox")
	if box.Len() >= 4 {
		pageWidth = box.Index(2).Float64() - box.Index(0).Float64()
		pageHeight = box.Index(3).Float64() - box.Index(1).Float64()
	}
	if pageWidth <= 0 || pageHeight <= 0 {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			log.Debug("text layer parse failed", "pdf", pdfPath, "page", page, "panic", fmt.Sprint(r))
		}
	}()
	content := p.Content()
	words := assembleTextLayerWords(content.Text, pageHeight)
	if len(words) == 0 {
		return ""
	}
	return extractDrawingNumberFromWords(words, pageWidth, pageHeight)
}

// assembleTextLayerWords glues per-glyph text fragments into word
// boxes in top-left origin coordinates.
func assembleTextLayerWords(texts []pdf.Text, pageHeight float64) []ocr.WordBox {
	sort.SliceStable(texts, func(i, j int) bool {
		if texts[i].Y != texts[j].Y {
			return texts[i].Y > texts[j].Y
		}
		return texts[i].X < texts[j].X
	})

	var words []ocr.WordBox
	var current *ocr.WordBox
	var builder strings.Builder
	var lastX, lastY float64

	flush := func() {
		if current == nil {
			return
		}
		current.Text = ocr.NormalizeText(builder.String())
		if current.Text != "" {
			words = append(words, *current)
		}
		current = nil
		builder.Reset()
	}

	for _, t := range texts {
		if strings.TrimSpace(t.S) == "" {
			flush()
			continue
		}
		height := t.FontSize
		if height <= 0 {
			height = 10
		}
		x0, x1 := t.X, t.X+t.W
		y0 := pageHeight - (t.Y + height)
		y1 := pageHeight - t.Y

		// Start a new word on a line break or a wide gap.
		gap := x0 - lastX
		if current == nil || t.Y != lastY || gap > height*0.6 {
			flush()
			current = &ocr.WordBox{X0: x0, Y0: y0, X1: x1, Y1: y1}
		} else {
			if x1 > current.X1 {
				current.X1 = x1
			}
			if y0 < current.Y0 {
				current.Y0 = y0
			}
			if y1 > current.Y1 {
				current.Y1 = y1
			}
		}
		builder.WriteString(t.S)
		lastX = x1
		lastY = t.Y
	}
	flush()
	return words
}

// resolveDrawingNumber tries the OCR word boxes, then the text layer.
// The second return names the winning source.
func resolveDrawingNumber(pdfPath string, page int, rightWords []ocr.WordBox, frameWidth, frameHeight float64) (string, string) {
	if number := extractDrawingNumberFromWords(rightWords, frameWidth, frameHeight); number != "" {
		return number, "vision"
	}
	if number := extractDrawingNumberFromTextLayer(pdfPath, page); number != "" {
		return number, "text_layer"
	}
	return "", "none"
}
