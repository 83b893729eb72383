package panel

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/zumenkit/schedscan/internal/config"
	"github.com/zumenkit/schedscan/internal/geometry"
	"github.com/zumenkit/schedscan/internal/ocr"
	"github.com/zumenkit/schedscan/internal/output"
	"github.com/zumenkit/schedscan/internal/render"
)

// Row y-clustering for table body parsing.
const rowYCluster = 20.0

// Sheets laid out as two fixed half-page tables instead of free-form
// table regions.
var legacySplitPages = map[int]bool{1: true, 2: true}

// Extractor drives equipment schedule extraction for whole documents.
type Extractor struct {
	Config config.Config
	Source ocr.WordSource
}

func NewExtractor(cfg config.Config, source ocr.WordSource) *Extractor {
	return &Extractor{Config: cfg, Source: source}
}

// Result summarizes one document run.
type Result struct {
	RunID                string            `json:"run_id"`
	PDFPath              string            `json:"pdf_path"`
	Rows                 []Row             `json:"-"`
	RowCount             int               `json:"row_count"`
	DrawingNumber        string            `json:"drawing_number"`
	DrawingNumberSource  string            `json:"drawing_number_source"`
	Pages                []PageDiagnostics `json:"pages"`
	FailedPages          []int             `json:"failed_pages,omitempty"`
	FallbackPages        []int             `json:"fallback_pages,omitempty"`
	ElapsedMS            float64           `json:"elapsed_ms"`
}

// PageDiagnostics records what happened on one page.
type PageDiagnostics struct {
	Page                int    `json:"page"`
	RowCount            int    `json:"row_count"`
	TablesDetected      int    `json:"tables_detected"`
	DrawingNumber       string `json:"drawing_number"`
	DrawingNumberSource string `json:"drawing_number_source"`
	LegacyLayout        bool   `json:"legacy_layout"`
	FallbackUsed        bool   `json:"fallback_used"`
}

// pageExtraction carries one page's rows plus the words used for the
// drawing number lookup.
type pageExtraction struct {
	Rows           []Row
	TitleWords     []ocr.WordBox
	FrameW, FrameH float64
	Tables         int
}

// extractPageTables runs the table-region flow: locate every header
// anchor on the full page, grow each into a candidate region and parse
// the regions independently.
func (e *Extractor) extractPageTables(ctx context.Context, pageImage image.Image, pngData []byte) (pageExtraction, error) {
	pageW := float64(pageImage.Bounds().Dx())
	pageH := float64(pageImage.Bounds().Dy())

	words, err := e.Source.Words(ctx, pngData)
	if err != nil {
		return pageExtraction{}, err
	}
	candidates := DetectTableCandidates(words, pageW, pageH)

	extraction := pageExtraction{
		TitleWords: words,
		FrameW:     pageW,
		FrameH:     pageH,
		Tables:     len(candidates),
	}
	rowIndex := 1
	for tableIndex, candidate := range candidates {
		parsed, err := parseTableCandidate(ctx, e.Source, pageImage, candidate, tableIndex+1, rowYCluster)
		if err != nil {
			log.Warn("table parse failed", "table", tableIndex+1, "error", err)
			continue
		}
		for _, row := range parsed.Rows {
			row.Side = fmt.Sprintf("T%02d", tableIndex+1)
			row.RowIndex = rowIndex
			extraction.Rows = append(extraction.Rows, row)
			rowIndex++
		}
	}
	return extraction, nil
}

// extractPageSideSplit runs the fixed half-page flow: OCR the left and
// right halves separately and parse each as one table.
func (e *Extractor) extractPageSideSplit(ctx context.Context, pageImage image.Image) (pageExtraction, error) {
	pageW := float64(pageImage.Bounds().Dx())
	pageH := float64(pageImage.Bounds().Dy())

	var extraction pageExtraction
	for _, side := range []string{"L", "R"} {
		region := geometry.Rect{X0: 0, Y0: 0, X1: pageW / 2, Y1: pageH}
		if side == "R" {
			region = geometry.Rect{X0: pageW / 2, Y0: 0, X1: pageW, Y1: pageH}
		}
		words, err := ocrCrop(ctx, e.Source, pageImage, region)
		if err != nil {
			return pageExtraction{}, err
		}
		if len(words) == 0 {
			continue
		}
		if side == "R" {
			extraction.TitleWords = words
			extraction.FrameW = region.Width()
			extraction.FrameH = region.Height()
		}
		bounds := InferColumnBounds(words, region.Width())
		result := rowsFromWords(words, bounds, rowYCluster, 0, legacyTrailingNonDataGap)
		for _, row := range result.Rows {
			row.Side = side
			extraction.Rows = append(extraction.Rows, row)
		}
	}
	if extraction.FrameW == 0 {
		extraction.FrameW = pageW / 2
		extraction.FrameH = pageH
	}
	return extraction, nil
}

// extractPage picks the layout flow for a page and falls back to the
// other flow when the first finds nothing.
func (e *Extractor) extractPage(ctx context.Context, pdfPath string, pageNumber int) ([]Row, PageDiagnostics, error) {
	diag := PageDiagnostics{Page: pageNumber, LegacyLayout: legacySplitPages[pageNumber]}

	pngData, err := render.RenderPage(ctx, pdfPath, pageNumber, e.Config.DPI)
	if err != nil {
		return nil, diag, err
	}
	pageImage, err := render.DecodePNG(pngData)
	if err != nil {
		return nil, diag, err
	}

	var extraction pageExtraction
	if diag.LegacyLayout {
		extraction, err = e.extractPageSideSplit(ctx, pageImage)
		if err != nil {
			return nil, diag, fmt.Errorf("recognize page %d: %w", pageNumber, err)
		}
		if len(extraction.Rows) == 0 {
			diag.FallbackUsed = true
			extraction, err = e.extractPageTables(ctx, pageImage, pngData)
			if err != nil {
				return nil, diag, fmt.Errorf("recognize page %d: %w", pageNumber, err)
			}
		}
	} else {
		extraction, err = e.extractPageTables(ctx, pageImage, pngData)
		if err != nil {
			return nil, diag, fmt.Errorf("recognize page %d: %w", pageNumber, err)
		}
		if len(extraction.Rows) == 0 {
			diag.FallbackUsed = true
			extraction, err = e.extractPageSideSplit(ctx, pageImage)
			if err != nil {
				return nil, diag, fmt.Errorf("recognize page %d: %w", pageNumber, err)
			}
		}
	}
	diag.TablesDetected = extraction.Tables

	drawingNumber, source := resolveDrawingNumber(pdfPath, pageNumber, extraction.TitleWords, extraction.FrameW, extraction.FrameH)
	diag.DrawingNumber = drawingNumber
	diag.DrawingNumberSource = source
	diag.RowCount = len(extraction.Rows)

	rows := extraction.Rows
	for i := range rows {
		rows[i].Page = pageNumber
		rows[i].DrawingNumber = drawingNumber
	}
	return rows, diag, nil
}

// ExtractPDF runs the whole pipeline over the requested pages. A
// failing page is logged and skipped; only input-level problems abort
// the run.
func (e *Extractor) ExtractPDF(ctx context.Context, pdfPath string, page int) (*Result, error) {
	start := time.Now()

	pages, err := render.ResolvePages(pdfPath, page)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:               uuid.NewString(),
		PDFPath:             pdfPath,
		DrawingNumberSource: "none",
	}

	for _, pageNumber := range pages {
		rows, diag, err := e.extractPage(ctx, pdfPath, pageNumber)
		if err != nil {
			log.Error("page extraction failed, skipping", "page", pageNumber, "error", err)
			result.FailedPages = append(result.FailedPages, pageNumber)
			continue
		}
		if diag.FallbackUsed {
			result.FallbackPages = append(result.FallbackPages, pageNumber)
		}
		result.Rows = append(result.Rows, rows...)
		result.Pages = append(result.Pages, diag)
		if result.DrawingNumber == "" && diag.DrawingNumber != "" {
			result.DrawingNumber = diag.DrawingNumber
			result.DrawingNumberSource = diag.DrawingNumberSource
		}
	}

	sort.SliceStable(result.Rows, func(i, j int) bool {
		a, b := result.Rows[i], result.Rows[j]
		if a.Page != b.Page {
			return a.Page < b.Page
		}
		if a.Side != b.Side {
			return a.Side < b.Side
		}
		return a.RowIndex < b.RowIndex
	})
	result.RowCount = len(result.Rows)
	result.ElapsedMS = float64(time.Since(start)) / float64(time.Millisecond)
	log.Info("equipment schedule extracted",
		"pages", len(pages), "failed", len(result.FailedPages),
		"rows", result.RowCount, "drawing_number", result.DrawingNumber,
		"elapsed_ms", result.ElapsedMS)

	if e.Config.DebugDir != "" {
		if err := e.writeDiagnostics(result); err != nil {
			log.Warn("diagnostics write failed", "error", err)
		}
	}
	return result, nil
}

func (e *Extractor) writeDiagnostics(result *Result) error {
	if err := os.MkdirAll(e.Config.DebugDir, 0755); err != nil {
		return err
	}
	data, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(e.Config.DebugDir, fmt.Sprintf("panel-%s.json", result.RunID))
	return os.WriteFile(path, data, 0644)
}

// WriteCSV writes the reconstructed rows as UTF-8 CSV.
func WriteCSV(rows []Row, path string) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, []string{row.Code, row.Name, row.Voltage, row.Power, row.DrawingNumber})
	}
	return output.WriteCSV(path, outputColumns, records)
}
