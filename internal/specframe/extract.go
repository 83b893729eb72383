package specframe

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/zumenkit/schedscan/internal/config"
	"github.com/zumenkit/schedscan/internal/ocr"
	"github.com/zumenkit/schedscan/internal/output"
	"github.com/zumenkit/schedscan/internal/render"
)

// Extractor drives specification frame extraction for whole documents.
type Extractor struct {
	Config config.Config
	Source ocr.WordSource
}

func NewExtractor(cfg config.Config, source ocr.WordSource) *Extractor {
	return &Extractor{Config: cfg, Source: source}
}

// Result summarizes one document run.
type Result struct {
	RunID       string      `json:"run_id"`
	PDFPath     string      `json:"pdf_path"`
	Rows        []FrameRow  `json:"-"`
	RowCount    int         `json:"row_count"`
	RowsByPage  map[int]int `json:"rows_by_page"`
	FailedPages []int       `json:"failed_pages,omitempty"`
	ElapsedMS   float64     `json:"elapsed_ms"`
}

// ExtractPDF reconstructs the frames of every requested page. A
// failing page is logged and skipped.
func (e *Extractor) ExtractPDF(ctx context.Context, pdfPath string, page int) (*Result, error) {
	start := time.Now()

	pages, err := render.ResolvePages(pdfPath, page)
	if err != nil {
		return nil, err
	}

	result := &Result{
		RunID:      uuid.NewString(),
		PDFPath:    pdfPath,
		RowsByPage: map[int]int{},
	}

	for _, pageNumber := range pages {
		rows, err := e.extractPage(ctx, pdfPath, pageNumber)
		if err != nil {
			log.Error("page extraction failed, skipping", "page", pageNumber, "error", err)
			result.FailedPages = append(result.FailedPages, pageNumber)
			continue
		}
		result.RowsByPage[pageNumber] = len(rows)
		result.Rows = append(result.Rows, rows...)
	}

	result.Rows = SortReadingOrder(result.Rows)
	result.RowCount = len(result.Rows)
	result.ElapsedMS = float64(time.Since(start)) / float64(time.Millisecond)
	log.Info("specification frames extracted",
		"pages", len(pages), "failed", len(result.FailedPages),
		"rows", result.RowCount, "elapsed_ms", result.ElapsedMS)

	if e.Config.DebugDir != "" {
		if err := e.writeDiagnostics(result); err != nil {
			log.Warn("diagnostics write failed", "error", err)
		}
	}
	return result, nil
}

func (e *Extractor) extractPage(ctx context.Context, pdfPath string, pageNumber int) ([]FrameRow, error) {
	pngData, err := render.RenderPage(ctx, pdfPath, pageNumber, e.Config.DPI)
	if err != nil {
		return nil, err
	}
	words, err := e.Source.Words(ctx, pngData)
	if err != nil {
		return nil, fmt.Errorf("recognize page %d: %w", pageNumber, err)
	}

	segments := BuildSegments(words, pageNumber, segmentYCluster, segmentXGap)
	titleSegments := BuildSegments(words, pageNumber, segmentYCluster, titleSegmentXGap)
	return BuildFrameRows(segments, titleSegments), nil
}

func (e *Extractor) writeDiagnostics(result *Result) error {
	if err := os.MkdirAll(e.Config.DebugDir, 0755); err != nil {
		return err
	}
	data, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(e.Config.DebugDir, fmt.Sprintf("specframe-%s.json", result.RunID))
	return os.WriteFile(path, data, 0644)
}

// WriteCSV writes the frames as variable-width CSV rows.
func WriteCSV(rows []FrameRow, path string) error {
	records := make([][]string, 0, len(rows))
	for _, row := range rows {
		records = append(records, row.Values())
	}
	return output.WriteVariableCSV(path, records)
}
