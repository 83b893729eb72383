// Package ocr defines the word-box primitive every extractor consumes
// and the client that produces it from a rendered page image.
package ocr

import (
	"context"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/zumenkit/schedscan/internal/geometry"
)

// WordBox is a single recognized token with its pixel bounding box.
type WordBox struct {
	Text string
	X0   float64
	Y0   float64
	X1   float64
	Y1   float64
}

func (w WordBox) CenterX() float64 { return (w.X0 + w.X1) / 2 }
func (w WordBox) CenterY() float64 { return (w.Y0 + w.Y1) / 2 }
func (w WordBox) Width() float64   { return w.X1 - w.X0 }
func (w WordBox) Height() float64  { return w.Y1 - w.Y0 }

func (w WordBox) Rect() geometry.Rect {
	return geometry.Rect{X0: w.X0, Y0: w.Y0, X1: w.X1, Y1: w.Y1}
}

// WordSource yields word boxes for a rendered page. The real
// implementation wraps tesseract; tests substitute fixed boxes.
type WordSource interface {
	Words(ctx context.Context, imagePNG []byte) ([]WordBox, error)
}

// NormalizeText applies NFKC so full-width digits, letters and
// punctuation compare equal to their half-width forms.
func NormalizeText(s string) string {
	return strings.TrimSpace(norm.NFKC.String(s))
}

// CompactText strips all whitespace after normalization. Header
// keywords are matched against the compact form because OCR splits
// them unpredictably.
func CompactText(s string) string {
	normalized := NormalizeText(s)
	var b strings.Builder
	b.Grow(len(normalized))
	for _, r := range normalized {
		if r == ' ' || r == '\t' || r == '　' {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// JoinRowText concatenates word texts left to right with single spaces.
func JoinRowText(words []WordBox) string {
	parts := make([]string, 0, len(words))
	for _, w := range words {
		if w.Text != "" {
			parts = append(parts, w.Text)
		}
	}
	return strings.Join(parts, " ")
}
