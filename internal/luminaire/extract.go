package luminaire

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/zumenkit/schedscan/internal/cluster"
	"github.com/zumenkit/schedscan/internal/config"
	"github.com/zumenkit/schedscan/internal/lineassist"
	"github.com/zumenkit/schedscan/internal/ocr"
	"github.com/zumenkit/schedscan/internal/render"
)

const yClusterTolerance = 18.0

// Extractor drives fixture schedule extraction for whole documents.
type Extractor struct {
	Config   config.Config
	Source   ocr.WordSource
	Detector lineassist.ImageLineDetector
}

func NewExtractor(cfg config.Config, source ocr.WordSource, detector lineassist.ImageLineDetector) *Extractor {
	return &Extractor{Config: cfg, Source: source, Detector: detector}
}

// Result summarizes one document run.
type Result struct {
	RunID       string            `json:"run_id"`
	PDFPath     string            `json:"pdf_path"`
	Rows        []OutputRow       `json:"-"`
	RowCount    int               `json:"row_count"`
	Pages       []PageDiagnostics `json:"pages"`
	FailedPages []int             `json:"failed_pages,omitempty"`
	ElapsedMS   float64           `json:"elapsed_ms"`
}

// PageDiagnostics records what happened on one page.
type PageDiagnostics struct {
	Page           int          `json:"page"`
	WordCount      int          `json:"word_count"`
	RowCount       int          `json:"row_count"`
	HeaderIndexes  []int        `json:"header_indexes"`
	CandidateCount int          `json:"candidate_count"`
	LineAssist     []AssistInfo `json:"line_assist,omitempty"`
}

// ExtractPDF runs the whole pipeline: render, recognize, reconstruct,
// filter. A failing page is logged and skipped; only input-level
// problems abort the run.
func (e *Extractor) ExtractPDF(ctx context.Context, pdfPath string, page int) (*Result, error) {
	start := time.Now()

	pages, err := render.ResolvePages(pdfPath, page)
	if err != nil {
		return nil, err
	}
	_, pageHeightPt, err := render.PageSize(pdfPath, pages[0])
	if err != nil {
		log.Warn("page size unavailable, vector lines disabled", "error", err)
		pageHeightPt = 0
	}

	result := &Result{
		RunID:   uuid.NewString(),
		PDFPath: pdfPath,
	}

	var candidates []Candidate
	for _, pageNumber := range pages {
		pageCandidates, diag, err := e.extractPage(ctx, pdfPath, pageNumber, pageHeightPt)
		if err != nil {
			log.Error("page extraction failed, skipping", "page", pageNumber, "error", err)
			result.FailedPages = append(result.FailedPages, pageNumber)
			continue
		}
		candidates = append(candidates, pageCandidates...)
		result.Pages = append(result.Pages, diag)
	}

	result.Rows = BuildOutputRows(candidates)
	result.RowCount = len(result.Rows)
	result.ElapsedMS = float64(time.Since(start)) / float64(time.Millisecond)
	log.Info("fixture schedule extracted",
		"pages", len(pages), "failed", len(result.FailedPages),
		"rows", result.RowCount, "elapsed_ms", result.ElapsedMS)

	if e.Config.DebugDir != "" {
		if err := e.writeDiagnostics(result); err != nil {
			log.Warn("diagnostics write failed", "error", err)
		}
	}
	return result, nil
}

func (e *Extractor) extractPage(ctx context.Context, pdfPath string, pageNumber int, pageHeightPt float64) ([]Candidate, PageDiagnostics, error) {
	diag := PageDiagnostics{Page: pageNumber}

	pngData, err := render.RenderPage(ctx, pdfPath, pageNumber, e.Config.DPI)
	if err != nil {
		return nil, diag, err
	}
	pageImage, err := render.DecodePNG(pngData)
	if err != nil {
		return nil, diag, err
	}

	words, err := e.Source.Words(ctx, pngData)
	if err != nil {
		return nil, diag, fmt.Errorf("recognize page %d: %w", pageNumber, err)
	}
	diag.WordCount = len(words)

	candidates := e.extractPageCandidates(ctx, pdfPath, pageNumber, pageHeightPt, pageImage, words, &diag)
	diag.CandidateCount = len(candidates)
	return candidates, diag, nil
}

// extractPageCandidates reconstructs every schedule section on a page.
func (e *Extractor) extractPageCandidates(ctx context.Context, pdfPath string, pageNumber int, pageHeightPt float64, pageImage image.Image, words []ocr.WordBox, diag *PageDiagnostics) []Candidate {
	rows := cluster.ByY(words, yClusterTolerance)
	diag.RowCount = len(rows)

	var headerIndexes []int
	for idx, row := range rows {
		if IsHeaderRow(row.Text()) {
			headerIndexes = append(headerIndexes, idx)
		}
	}
	diag.HeaderIndexes = headerIndexes
	if len(headerIndexes) == 0 {
		log.Debug("no schedule header on page", "page", pageNumber, "rows", len(rows))
		return nil
	}

	bounds := pageImage.Bounds()
	pageW := float64(bounds.Dx())
	pageH := float64(bounds.Dy())

	assistConfig := lineassist.ConfigFrom(e.Config)

	var candidates []Candidate
	for headerPos, headerIndex := range headerIndexes {
		nextHeaderIndex := len(rows)
		if headerPos+1 < len(headerIndexes) {
			nextHeaderIndex = headerIndexes[headerPos+1]
		}
		sectionRows := rows[headerIndex+1 : nextHeaderIndex]

		var sectionCandidates []Candidate
		for _, row := range sectionRows {
			for _, c := range ExtractCandidatesFromRow(row) {
				c.Page = pageNumber
				c.Section = headerPos
				c.RowY = row.Y
				sectionCandidates = append(sectionCandidates, c)
			}
		}

		centers := BlockCenters(sectionCandidates)
		AssignBlockIndexes(sectionCandidates, centers)
		sectionBounds := SectionBounds(sectionRows, pageW, pageH)

		shouldRun := false
		var reasons []string
		switch assistConfig.Mode {
		case config.LineAssistOn:
			shouldRun = true
			reasons = []string{"forced"}
		case config.LineAssistAuto:
			shouldRun, reasons = ShouldRunAssist(sectionCandidates, centers, sectionBounds)
		}

		info := AssistInfo{
			Section:        headerPos,
			Mode:           string(assistConfig.Mode),
			Triggered:      shouldRun,
			TriggerReasons: reasons,
			RejectedReason: "mode_off_or_not_triggered",
		}
		if shouldRun {
			applied := ApplyAssist(ctx, sectionCandidates, AssistInput{
				PDFPath:      pdfPath,
				Page:         pageNumber,
				PageHeightPt: pageHeightPt,
				DPI:          e.Config.DPI,
				PageImage:    pageImage,
				Bounds:       sectionBounds,
				Centers:      centers,
				Config:       assistConfig,
				Detector:     e.Detector,
			})
			applied.Section = headerPos
			applied.Mode = info.Mode
			applied.Triggered = true
			applied.TriggerReasons = reasons
			info = applied
			if !info.Adopted {
				log.Info("line assist rejected",
					"page", pageNumber, "section", headerPos,
					"reason", info.RejectedReason, "confidence", info.Confidence)
			}
		}
		diag.LineAssist = append(diag.LineAssist, info)

		candidates = append(candidates, Propagate(sectionCandidates)...)
	}
	return candidates
}

func (e *Extractor) writeDiagnostics(result *Result) error {
	if err := os.MkdirAll(e.Config.DebugDir, 0755); err != nil {
		return err
	}
	data, err := sonic.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	path := filepath.Join(e.Config.DebugDir, fmt.Sprintf("luminaire-%s.json", result.RunID))
	return os.WriteFile(path, data, 0644)
}
