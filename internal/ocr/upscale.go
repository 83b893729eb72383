package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"math"

	"github.com/zumenkit/schedscan/internal/geometry"
)

const (
	// Tesseract loses thin strokes on small crops; upscale until the
	// crop is at least this wide, capped so text does not blur out.
	cropMinWidth = 900.0
	cropMaxScale = 3.0
)

// PrepareCrop cuts region out of img, upscales it for recognition and
// returns the encoded PNG together with the applied scale factor.
func PrepareCrop(img image.Image, region geometry.Rect) ([]byte, float64, error) {
	bounds := img.Bounds()
	x0 := geometry.ClampInt(int(region.X0), bounds.Min.X, bounds.Max.X)
	y0 := geometry.ClampInt(int(region.Y0), bounds.Min.Y, bounds.Max.Y)
	x1 := geometry.ClampInt(int(math.Ceil(region.X1)), bounds.Min.X, bounds.Max.X)
	y1 := geometry.ClampInt(int(math.Ceil(region.Y1)), bounds.Min.Y, bounds.Max.Y)
	if x1-x0 < 2 || y1-y0 < 2 {
		return nil, 0, fmt.Errorf("crop region %v is empty", region)
	}

	scale := 1.0
	if w := float64(x1 - x0); w < cropMinWidth {
		scale = math.Min(cropMaxScale, cropMinWidth/w)
	}

	outW := int(float64(x1-x0) * scale)
	outH := int(float64(y1-y0) * scale)
	out := image.NewRGBA(image.Rect(0, 0, outW, outH))
	for oy := 0; oy < outH; oy++ {
		sy := y0 + int(float64(oy)/scale)
		if sy >= y1 {
			sy = y1 - 1
		}
		for ox := 0; ox < outW; ox++ {
			sx := x0 + int(float64(ox)/scale)
			if sx >= x1 {
				sx = x1 - 1
			}
			out.Set(ox, oy, img.At(sx, sy))
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		return nil, 0, fmt.Errorf("encode crop: %w", err)
	}
	return buf.Bytes(), scale, nil
}

// MapCropWords converts word boxes recognized inside an upscaled crop
// back to full-page coordinates.
func MapCropWords(words []WordBox, region geometry.Rect, scale float64) []WordBox {
	if scale <= 0 {
		scale = 1
	}
	mapped := make([]WordBox, 0, len(words))
	for _, w := range words {
		mapped = append(mapped, WordBox{
			Text: w.Text,
			X0:   region.X0 + w.X0/scale,
			Y0:   region.Y0 + w.Y0/scale,
			X1:   region.X0 + w.X1/scale,
			Y1:   region.Y0 + w.Y1/scale,
		})
	}
	return mapped
}
