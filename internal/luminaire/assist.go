package luminaire

import (
	"context"
	"image"
	"sort"
	"time"

	"github.com/zumenkit/schedscan/internal/geometry"
	"github.com/zumenkit/schedscan/internal/lineassist"
)

const (
	assistContinuationRatio = 0.35
	assistDenseCenterGap    = 130.0
	assistCrossModelGap     = 420.0
	assistWideSectionWidth  = 900.0

	// Image scanning looks slightly beyond the word envelope because
	// the outer frame lines sit outside it.
	assistImageSlackX = 32.0
	assistImageSlackY = 16.0
)

// AssistInfo is the per-section gate record kept for diagnostics.
type AssistInfo struct {
	Section         int      `json:"section_index"`
	Mode            string   `json:"mode"`
	Triggered       bool     `json:"triggered"`
	TriggerReasons  []string `json:"trigger_reasons"`
	Invoked         bool     `json:"invoked"`
	Adopted         bool     `json:"adopted"`
	Confidence      float64  `json:"confidence"`
	RejectedReason  string   `json:"rejected_reason"`
	VectorLineCount int      `json:"vector_line_count"`
	ImageLineCount  int      `json:"image_line_count"`
	LineBlockCount  int      `json:"line_block_count"`
	ImageTimedOut   bool     `json:"image_timed_out"`
	ElapsedMS       float64  `json:"elapsed_ms"`
}

// ShouldRunAssist decides whether a section's word-derived blocks look
// unreliable enough to pay for line detection.
func ShouldRunAssist(candidates []Candidate, centers []float64, bounds geometry.Rect) (bool, []string) {
	var reasons []string
	total := len(candidates)
	if total == 0 {
		return false, nil
	}

	continuation := 0
	for _, c := range candidates {
		if c.Model != "" && c.Equipment == "" {
			continuation++
		}
	}
	if continuation >= 2 && float64(continuation)/float64(total) >= assistContinuationRatio {
		reasons = append(reasons, "high_continuation_ratio")
	}

	if len(centers) >= 2 {
		sorted := make([]float64, len(centers))
		copy(sorted, centers)
		sort.Float64s(sorted)
		minGap := sorted[1] - sorted[0]
		for i := 2; i < len(sorted); i++ {
			if gap := sorted[i] - sorted[i-1]; gap < minGap {
				minGap = gap
			}
		}
		if minGap < assistDenseCenterGap {
			reasons = append(reasons, "dense_x_centers")
		}
	}

	crossModel := 0
	for _, c := range candidates {
		if geometry.Abs(c.ModelX-c.RowX) > assistCrossModelGap {
			crossModel++
		}
	}
	if crossModel >= 2 {
		reasons = append(reasons, "cross_model_x")
	}

	width := geometry.Max(bounds.Width(), 1)
	if total <= 2 && width > assistWideSectionWidth {
		reasons = append(reasons, "sparse_candidates_in_wide_section")
	}

	return len(reasons) > 0, reasons
}

// AssistInput collects everything the gate needs for one section.
type AssistInput struct {
	PDFPath      string
	Page         int
	PageHeightPt float64
	DPI          int
	PageImage    image.Image
	Bounds       geometry.Rect
	Centers      []float64
	Config       lineassist.Config
	Detector     lineassist.ImageLineDetector
}

// ApplyAssist runs line detection and adopts the line-derived column
// blocks only when the confidence clears the threshold and a dry run
// of propagation measurably beats the word-derived baseline. The
// candidate slice's block indexes are updated in place on adoption.
func ApplyAssist(ctx context.Context, candidates []Candidate, in AssistInput) AssistInfo {
	info := AssistInfo{Mode: string(in.Config.Mode)}
	if len(candidates) == 0 {
		info.RejectedReason = "no_section_candidates"
		return info
	}

	info.Invoked = true
	start := time.Now()

	vectorLines, err := lineassist.CollectVectorLines(in.PDFPath, in.Page, in.Bounds, in.PageHeightPt, in.DPI)
	if err != nil {
		// Degraded, not fatal: image lines may still carry the gate.
		log.Warn("vector line collection failed", "page", in.Page, "error", err)
		vectorLines = nil
	}

	budget := time.Duration(in.Config.BudgetMS)*time.Millisecond - time.Since(start)
	imageRegion := geometry.Rect{
		X0: in.Bounds.X0 - assistImageSlackX,
		X1: in.Bounds.X1 + assistImageSlackX,
		Y0: in.Bounds.Y0 - assistImageSlackY,
		Y1: in.Bounds.Y1 + assistImageSlackY,
	}
	imageResult, err := in.Detector.DetectVerticalLines(ctx, in.PageImage, imageRegion, budget)
	if err != nil {
		log.Warn("image line detection failed", "page", in.Page, "error", err)
		imageResult = lineassist.ImageResult{}
	}

	merged := lineassist.Merge(vectorLines, imageResult.Lines)
	blocks := lineassist.BuildBlocks(merged, in.Bounds)

	info.VectorLineCount = len(vectorLines)
	info.ImageLineCount = len(imageResult.Lines)
	info.LineBlockCount = len(blocks)
	info.ImageTimedOut = imageResult.TimedOut
	info.ElapsedMS = float64(time.Since(start)) / float64(time.Millisecond)

	candidateXs := make([]float64, len(candidates))
	for i, c := range candidates {
		candidateXs[i] = c.RowX
	}
	info.Confidence = lineassist.Score(blocks, len(vectorLines), len(imageResult.Lines), candidateXs, len(in.Centers))

	if info.Confidence < in.Config.MinConfidence {
		info.RejectedReason = "confidence_below_threshold"
		return info
	}
	if len(blocks) == 0 {
		info.RejectedReason = "no_line_blocks"
		return info
	}

	blockCenters := make([]float64, len(blocks))
	for i, b := range blocks {
		blockCenters[i] = b.Center()
	}

	baselineRows := Propagate(candidates)
	baselineUnresolved := CountUnresolved(baselineRows)
	baselineAlignment := AverageModelBlockAlignment(baselineRows)

	assistedRows := make([]Candidate, len(candidates))
	copy(assistedRows, candidates)
	AssignBlockIndexes(assistedRows, blockCenters)
	assistedRows = Propagate(assistedRows)
	assistedUnresolved := CountUnresolved(assistedRows)
	assistedAlignment := AverageModelBlockAlignment(assistedRows)

	unresolvedImproved := assistedUnresolved < baselineUnresolved
	alignmentImproved := assistedAlignment+1.0 < baselineAlignment
	if !unresolvedImproved && !alignmentImproved {
		info.RejectedReason = "no_quality_gain"
		return info
	}

	for i := range candidates {
		candidates[i].Block = assistedRows[i].Block
	}
	info.Adopted = true
	return info
}
