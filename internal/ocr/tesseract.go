package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// TesseractClient recognizes word boxes with a local tesseract
// install. One client per page batch; gosseract clients are not safe
// for concurrent use.
type TesseractClient struct {
	Languages     string
	PageSegMode   int
	MinConfidence float64
}

func NewTesseractClient(languages string, pageSegMode int, minConfidence float64) *TesseractClient {
	return &TesseractClient{
		Languages:     languages,
		PageSegMode:   pageSegMode,
		MinConfidence: minConfidence,
	}
}

func (t *TesseractClient) Words(ctx context.Context, imagePNG []byte) ([]WordBox, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(strings.Split(t.Languages, "+")...); err != nil {
		return nil, fmt.Errorf("set ocr language %q: %w", t.Languages, err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(t.PageSegMode)); err != nil {
		return nil, fmt.Errorf("set page seg mode: %w", err)
	}
	if err := client.SetImageFromBytes(imagePNG); err != nil {
		return nil, fmt.Errorf("load page image: %w", err)
	}

	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return nil, fmt.Errorf("recognize words: %w", err)
	}

	words := make([]WordBox, 0, len(boxes))
	for _, box := range boxes {
		if box.Confidence < t.MinConfidence {
			continue
		}
		text := NormalizeText(box.Word)
		if text == "" {
			continue
		}
		words = append(words, WordBox{
			Text: text,
			X0:   float64(box.Box.Min.X),
			Y0:   float64(box.Box.Min.Y),
			X1:   float64(box.Box.Max.X),
			Y1:   float64(box.Box.Max.Y),
		})
	}
	return words, nil
}
