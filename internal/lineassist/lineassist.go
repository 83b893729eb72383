// Package lineassist recovers ruled column separators for schedule
// sections where word positions alone cluster the columns badly. It
// combines vector lines from the PDF content stream with lines scanned
// out of the rendered image, then scores how trustworthy the resulting
// column blocks are. Callers adopt the blocks only when the score
// clears their threshold and the result measurably improves parsing.
package lineassist

import (
	"sort"

	"github.com/zumenkit/schedscan/internal/config"
	"github.com/zumenkit/schedscan/internal/geometry"
	"github.com/zumenkit/schedscan/internal/logger"
)

var log = logger.GetLogger("lineassist")

const (
	// A detected line must span at least this fraction of the section
	// height to count as a column separator.
	minLineHeightRatio = 0.35

	mergeToleranceX = 18.0
	minBlockWidth   = 70.0

	// Confidence weights. Coverage of candidate positions dominates;
	// raw line strength and structural plausibility refine it.
	weightCoverage   = 0.45
	weightStrength   = 0.25
	weightBlockCount = 0.20
	weightBaseline   = 0.10

	blockCountMin = 1
	blockCountMax = 8

	baselineCountSlack = 2
)

// Config narrows the global config to what the gate needs.
type Config struct {
	Mode          config.LineAssistMode
	BudgetMS      int
	MinConfidence float64
	Debug         bool
}

func ConfigFrom(cfg config.Config) Config {
	return Config{
		Mode:          cfg.LineAssist,
		BudgetMS:      cfg.LineAssistBudgetMS,
		MinConfidence: cfg.LineAssistMinConf,
		Debug:         cfg.LineAssistDebug,
	}
}

// VerticalLine is a near-vertical separator in page pixels.
type VerticalLine struct {
	X      float64
	Y0     float64
	Y1     float64
	Source string // "vector" or "image"
}

func (l VerticalLine) Length() float64 { return l.Y1 - l.Y0 }

// Block is a column interval between adjacent separators.
type Block struct {
	X0 float64
	X1 float64
}

func (b Block) Center() float64 { return (b.X0 + b.X1) / 2 }
func (b Block) Width() float64  { return b.X1 - b.X0 }

// Merge folds image lines into vector lines, collapsing separators
// within mergeToleranceX into one. Vector lines win ties because the
// content stream carries no raster noise.
func Merge(vector, image []VerticalLine) []VerticalLine {
	all := make([]VerticalLine, 0, len(vector)+len(image))
	all = append(all, vector...)
	all = append(all, image...)
	sort.SliceStable(all, func(i, j int) bool { return all[i].X < all[j].X })

	var merged []VerticalLine
	for _, l := range all {
		if len(merged) > 0 {
			last := &merged[len(merged)-1]
			if l.X-last.X <= mergeToleranceX {
				// Extend the span; keep the stronger source label.
				last.Y0 = geometry.Min(last.Y0, l.Y0)
				last.Y1 = geometry.Max(last.Y1, l.Y1)
				if last.Source != "vector" && l.Source == "vector" {
					last.Source = "vector"
				}
				continue
			}
		}
		merged = append(merged, l)
	}
	return merged
}

// BuildBlocks converts separators into column intervals across the
// section. Boundaries within mergeToleranceX of each other collapse,
// and slivers narrower than minBlockWidth are dropped.
func BuildBlocks(lines []VerticalLine, section geometry.Rect) []Block {
	bounds := []float64{section.X0}
	for _, l := range lines {
		if l.X >= section.X0 && l.X <= section.X1 {
			bounds = append(bounds, l.X)
		}
	}
	bounds = append(bounds, section.X1)
	sort.Float64s(bounds)

	var compact []float64
	for _, v := range bounds {
		if len(compact) == 0 || geometry.Abs(v-compact[len(compact)-1]) > mergeToleranceX {
			compact = append(compact, v)
		}
	}

	var blocks []Block
	for i := 0; i+1 < len(compact); i++ {
		if compact[i+1]-compact[i] < minBlockWidth {
			continue
		}
		blocks = append(blocks, Block{X0: compact[i], X1: compact[i+1]})
	}
	return blocks
}

// BlockIndex returns the index of the block containing x, falling back
// to the nearest block center.
func BlockIndex(blocks []Block, x float64) int {
	for i, b := range blocks {
		if x >= b.X0 && x <= b.X1 {
			return i
		}
	}
	best := -1
	bestDist := 0.0
	for i, b := range blocks {
		d := geometry.Abs(x - b.Center())
		if best < 0 || d < bestDist {
			best = i
			bestDist = d
		}
	}
	return best
}

const coverageSlackX = 8.0

// Score is the weighted confidence for a set of line-derived blocks.
//
// coverage: fraction of candidate x positions landing inside a block
// (with a small slack). strength: raw separator count against the 8
// columns a full schedule sheet carries. block count: 1.0 inside a
// plausible 1..8 range, 0.3 outside. baseline: 1.0 when the block
// count is within 2 of the word-derived column count, 0.5 otherwise.
func Score(blocks []Block, vectorCount, imageCount int, candidateXs []float64, baselineCenterCount int) float64 {
	if len(blocks) == 0 || len(candidateXs) == 0 {
		return 0
	}

	covered := 0
	for _, x := range candidateXs {
		for _, b := range blocks {
			if x >= b.X0-coverageSlackX && x <= b.X1+coverageSlackX {
				covered++
				break
			}
		}
	}
	coverage := float64(covered) / float64(len(candidateXs))

	strength := geometry.Min(float64(vectorCount+imageCount)/float64(blockCountMax), 1.0)

	blockCountScore := 0.3
	if len(blocks) >= blockCountMin && len(blocks) <= blockCountMax {
		blockCountScore = 1.0
	}

	baseline := baselineCenterCount
	if baseline < 1 {
		baseline = 1
	}
	baselineScore := 0.5
	diff := len(blocks) - baseline
	if diff < 0 {
		diff = -diff
	}
	if diff <= baselineCountSlack {
		baselineScore = 1.0
	}

	score := weightCoverage*coverage +
		weightStrength*strength +
		weightBlockCount*blockCountScore +
		weightBaseline*baselineScore
	log.Debug("line assist score",
		"coverage", coverage, "strength", strength,
		"blocks", len(blocks), "baseline_centers", baselineCenterCount,
		"score", score)
	return geometry.Clamp(score, 0, 1)
}
