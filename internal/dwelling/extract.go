package dwelling

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/config"
	"github.com/zumenkit/schedscan/internal/geometry"
	"github.com/zumenkit/schedscan/internal/ocr"
	"github.com/zumenkit/schedscan/internal/output"
	"github.com/zumenkit/schedscan/internal/render"
)

const (
	yClusterTolerance = 14.0

	// Scan window below the sheet title.
	sectionLeftSlack   = 20.0
	sectionAboveTitle  = 20.0
	sectionBelowTitle  = 520.0
	anchorBandHeight   = 120.0
	splitDigitMaxGap   = 20.0
	anchorMaxDistance  = 520.0
	blockXTolerance    = 260.0
)

// Anchor is a fixture code drawn above the pictorial row.
type Anchor struct {
	X         float64
	Raw       string
	Equipment string
}

// Candidate is one maker/model hit before anchor assignment.
type Candidate struct {
	Page      int
	Block     int
	RowY      float64
	RowX      float64
	Equipment string
	Maker     string
	Model     string
}

// OutputRow is a finished listing entry.
type OutputRow struct {
	Equipment    string
	Manufacturer string
	Model        string
}

var outputColumns = []string{"器具記号", "メーカー", "相当型番"}

// sectionWords returns the words inside the scan window below the
// sheet title, plus the title's y. Pages without the title yield nil.
func sectionWords(words []ocr.WordBox) ([]ocr.WordBox, float64) {
	rows := cluster.ByY(words, yClusterTolerance)
	var title *cluster.Row
	for i := range rows {
		if IsSectionTitle(rows[i].Text()) {
			title = &rows[i]
			break
		}
	}
	if title == nil {
		return nil, 0
	}

	xMin := title.Words[0].X0
	for _, w := range title.Words[1:] {
		if w.X0 < xMin {
			xMin = w.X0
		}
	}
	xMin -= sectionLeftSlack
	yMin := title.Y - sectionAboveTitle
	yMax := title.Y + sectionBelowTitle

	var section []ocr.WordBox
	for _, w := range words {
		if w.X0 >= xMin && w.CenterY() >= yMin && w.CenterY() <= yMax {
			section = append(section, w)
		}
	}
	return section, title.Y
}

// detectAnchors finds fixture codes in the band under the title. OCR
// may split a code like "D1" into "D" and "1"; adjacent tokens with a
// small gap are recombined.
func detectAnchors(rows []cluster.Row, titleY float64) []Anchor {
	var anchors []Anchor
	type seenKey struct {
		raw string
		x   int
	}
	seen := map[seenKey]bool{}

	for _, row := range rows {
		if row.Y < titleY || row.Y > titleY+anchorBandHeight {
			continue
		}
		words := row.Words
		for idx := 0; idx < len(words); idx++ {
			token := normalizeToken(words[idx].Text)
			raw := token
			x := words[idx].X0

			if singleLetterPattern.MatchString(token) && idx+1 < len(words) {
				next := normalizeToken(words[idx+1].Text)
				if shortDigitsPattern.MatchString(next) {
					if gap := words[idx+1].X0 - words[idx].X1; gap <= splitDigitMaxGap {
						raw = token + next
						idx++
					}
				}
			}

			equipment := ""
			switch {
			case isEquipmentCode(raw):
				equipment = raw
			case isSymbolLike(raw):
				equipment = ""
			default:
				continue
			}

			key := seenKey{raw, int(x + 0.5)}
			if !seen[key] {
				anchors = append(anchors, Anchor{X: x, Raw: raw, Equipment: equipment})
				seen[key] = true
			}
		}
	}

	sort.SliceStable(anchors, func(i, j int) bool { return anchors[i].X < anchors[j].X })
	return anchors
}

var noteExclusionPattern = regexp.MustCompile(`^注記`)

func charPosToTokenIndex(tokens []string, runePos int) int {
	cursor := 0
	for idx, token := range tokens {
		next := cursor + len([]rune(token))
		if runePos >= cursor && runePos < next {
			return idx
		}
		cursor = next + 1
	}
	if len(tokens) == 0 {
		return 0
	}
	return len(tokens) - 1
}

// extractCandidatesFromRow recognizes maker/model pairs in one row.
// The explicit code:maker model form claims its span first; anonymous
// maker:model and maker-space-model hits fill in around it.
func extractCandidatesFromRow(row cluster.Row) []Candidate {
	words := row.Words
	if len(words) < 2 {
		return nil
	}

	tokens := make([]string, len(words))
	for i, w := range words {
		tokens[i] = ocr.NormalizeText(w.Text)
	}
	rowText := normalizeDash(strings.Join(tokens, " "))
	compact := ocr.CompactText(rowText)
	if strings.Contains(compact, "型番は相当品とする") || noteExclusionPattern.MatchString(compact) {
		return nil
	}

	type seenKey struct {
		equipment, maker, model string
		rowX                    float64
	}
	seen := map[seenKey]bool{}
	type span struct{ start, end int }
	var occupied []span
	var candidates []Candidate

	for _, loc := range eqColonMakerModelPattern.FindAllStringSubmatchIndex(rowText, -1) {
		suffix := ""
		if loc[4] >= 0 {
			suffix = rowText[loc[4]:loc[5]]
		}
		equipment := normalizeEquipmentLabel(strings.TrimSpace(rowText[loc[2]:loc[3]]) + suffix)
		maker := strings.TrimSpace(rowText[loc[6]:loc[7]])
		model := cleanupModel(strings.ToUpper(rowText[loc[8]:loc[9]]))
		if equipment == "" || !isLikelyMaker(maker) || !isLikelyModel(model) {
			continue
		}
		tokenIndex := charPosToTokenIndex(tokens, len([]rune(rowText[:loc[2]])))
		rowX := words[tokenIndex].X0
		key := seenKey{equipment, maker, model, rowX}
		if seen[key] {
			continue
		}
		seen[key] = true
		occupied = append(occupied, span{loc[0], loc[1]})
		candidates = append(candidates, Candidate{
			RowX:      rowX,
			Equipment: equipment,
			Maker:     maker,
			Model:     model,
		})
	}

	for _, pattern := range []*regexp.Regexp{makerColonModelPattern, makerSpaceModelPattern} {
		for _, loc := range pattern.FindAllStringSubmatchIndex(rowText, -1) {
			overlaps := false
			for _, s := range occupied {
				if loc[0] < s.end && loc[1] > s.start {
					overlaps = true
					break
				}
			}
			if overlaps {
				continue
			}
			maker := strings.TrimSpace(rowText[loc[2]:loc[3]])
			model := cleanupModel(strings.ToUpper(rowText[loc[4]:loc[5]]))
			if !isLikelyMaker(maker) || !isLikelyModel(model) {
				continue
			}
			tokenIndex := charPosToTokenIndex(tokens, len([]rune(rowText[:loc[2]])))
			rowX := words[tokenIndex].X0
			key := seenKey{"", maker, model, rowX}
			if seen[key] {
				continue
			}
			seen[key] = true
			candidates = append(candidates, Candidate{
				RowX:  rowX,
				Maker: maker,
				Model: model,
			})
		}
	}

	return candidates
}

// assignEquipmentFromAnchors resolves each anonymous candidate to the
// nearest fixture code above it. A candidate too far from every
// anchor, or nearest to a bare symbol, keeps an empty code.
func assignEquipmentFromAnchors(candidates []Candidate, anchors []Anchor) {
	if len(anchors) == 0 {
		return
	}
	for i := range candidates {
		if label := normalizeEquipmentLabel(candidates[i].Equipment); label != "" {
			candidates[i].Equipment = label
			continue
		}
		rowX := candidates[i].RowX
		nearest := anchors[0]
		for _, a := range anchors[1:] {
			if geometry.Abs(a.X-rowX) < geometry.Abs(nearest.X-rowX) {
				nearest = a
			}
		}
		if geometry.Abs(nearest.X-rowX) > anchorMaxDistance {
			candidates[i].Equipment = ""
			continue
		}
		if isEquipmentCode(nearest.Equipment) {
			candidates[i].Equipment = nearest.Equipment
		} else {
			candidates[i].Equipment = ""
		}
	}
}

func assignBlockIndexes(candidates []Candidate) {
	if len(candidates) == 0 {
		return
	}
	xs := make([]float64, len(candidates))
	for i, c := range candidates {
		xs[i] = c.RowX
	}
	centers := cluster.Centers(xs, blockXTolerance)
	for i := range candidates {
		if len(centers) == 0 {
			candidates[i].Block = 0
			continue
		}
		candidates[i].Block = cluster.NearestCenter(centers, candidates[i].RowX)
	}
}

// BuildOutputRows orders candidates and drops hits with neither maker
// nor model.
func BuildOutputRows(candidates []Candidate) []OutputRow {
	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Block != b.Block {
			return a.Block < b.Block
		}
		if a.RowY != b.RowY {
			return a.RowY < b.RowY
		}
		return a.RowX < b.RowX
	})

	var rows []OutputRow
	for _, c := range sorted {
		equipment := normalizeEquipmentLabel(c.Equipment)
		maker := strings.TrimSpace(ocr.NormalizeText(c.Maker))
		model := cleanupModel(c.Model)
		if maker == "" && model == "" {
			continue
		}
		rows = append(rows, OutputRow{
			Equipment:    equipment,
			Manufacturer: maker,
			Model:        model,
		})
	}
	return rows
}

// ExtractPageCandidates reconstructs the listing on one page. Pages
// without the sheet title produce nothing.
func ExtractPageCandidates(words []ocr.WordBox, pageNumber int) []Candidate {
	section, titleY := sectionWords(words)
	if len(section) == 0 {
		return nil
	}

	rows := cluster.ByY(section, yClusterTolerance)
	anchors := detectAnchors(rows, titleY)

	var candidates []Candidate
	for _, row := range rows {
		if row.Y <= titleY+anchorBandHeight {
			continue
		}
		for _, c := range extractCandidatesFromRow(row) {
			c.Page = pageNumber
			c.RowY = row.Y
			candidates = append(candidates, c)
		}
	}

	assignEquipmentFromAnchors(candidates, anchors)
	assignBlockIndexes(candidates)
	return candidates
}

// Extractor drives listing extraction for whole documents.
type Extractor struct {
	Config config.Config
	Source ocr.WordSource
}

func NewExtractor(cfg config.Config, source ocr.WordSource) *Extractor {
	return &Extractor{Config: cfg, Source: source}
}

// Result summarizes one document run.
type Result struct {
	Rows        []OutputRow
	RowsByPage  map[int]int
	FailedPages []int
}

func (e *Extractor) ExtractPDF(ctx context.Context, pdfPath string, page int) (*Result, error) {
	start := time.Now()
	pages, err := render.ResolvePages(pdfPath, page)
	if err != nil {
		return nil, err
	}

	result := &Result{RowsByPage: map[int]int{}}
	var candidates []Candidate
	for _, pageNumber := range pages {
		pngData, err := render.RenderPage(ctx, pdfPath, pageNumber, e.Config.DPI)
		if err != nil {
			log.Error("page render failed, skipping", "page", pageNumber, "error", err)
			result.FailedPages = append(result.FailedPages, pageNumber)
			continue
		}
		words, err := e.Source.Words(ctx, pngData)
		if err != nil {
			log.Error("page recognition failed, skipping", "page", pageNumber, "error", err)
			result.FailedPages = append(result.FailedPages, pageNumber)
			continue
		}
		pageCandidates := ExtractPageCandidates(words, pageNumber)
		result.RowsByPage[pageNumber] = len(pageCandidates)
		candidates = append(candidates, pageCandidates...)
	}

	result.Rows = BuildOutputRows(candidates)
	log.Info("dwelling fixture listing extracted",
		"pages", len(pages), "rows", len(result.Rows),
		"elapsed_ms", float64(time.Since(start))/float64(time.Millisecond))
	return result, nil
}

// WriteCSV writes the listing with the fixed column set.
func WriteCSV(rows []OutputRow, path string) error {
	records := make([][]string, 0, len(rows))
	for _, r := range rows {
		records = append(records, []string{r.Equipment, r.Manufacturer, r.Model})
	}
	return output.WriteCSV(path, outputColumns, records)
}
