// Package render turns PDF pages into raster images for recognition.
// Rasterization shells out to pdftoppm; page counting and page-box
// lookup go through the pdf reader directly.
package render

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/ledongthuc/pdf"

	"github.com/zumenkit/schedscan/internal/logger"
)

var log = logger.GetLogger("render")

var (
	ErrMissingPDF     = errors.New("pdf file not found")
	ErrPageOutOfRange = errors.New("page out of range")
	ErrRenderFailed   = errors.New("page rasterization failed")
)

// CountPages reads the page count without rasterizing anything.
func CountPages(path string) (int, error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrMissingPDF, path)
		}
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	return reader.NumPage(), nil
}

// ResolvePages expands the requested page selection. page 0 means all
// pages; an explicit page beyond the document is a fatal input error.
func ResolvePages(path string, page int) ([]int, error) {
	total, err := CountPages(path)
	if err != nil {
		return nil, err
	}
	if total == 0 {
		return nil, fmt.Errorf("%w: document has no pages", ErrPageOutOfRange)
	}
	if page > 0 {
		if page > total {
			return nil, fmt.Errorf("%w: page %d of %d", ErrPageOutOfRange, page, total)
		}
		return []int{page}, nil
	}
	pages := make([]int, 0, total)
	for i := 1; i <= total; i++ {
		pages = append(pages, i)
	}
	return pages, nil
}

// PageSize returns the media box width and height in PDF points.
func PageSize(path string, page int) (w, h float64, err error) {
	f, reader, err := pdf.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()
	if page < 1 || page > reader.NumPage() {
		return 0, 0, fmt.Errorf("%w: page %d", ErrPageOutOfRange, page)
	}
	p := reader.Page(page)
	box := p.V.Key("MediaBox")
	if box.Len() < 4 {
		return 0, 0, fmt.Errorf("page %d has no media box", page)
	}
	x0 := box.Index(0).Float64()
	y0 := box.Index(1).Float64()
	x1 := box.Index(2).Float64()
	y1 := box.Index(3).Float64()
	return x1 - x0, y1 - y0, nil
}

// RenderPage rasterizes one page to PNG bytes at the given DPI.
func RenderPage(ctx context.Context, path string, page, dpi int) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrMissingPDF, path)
	}

	tmpDir, err := os.MkdirTemp("", "schedscan-render-")
	if err != nil {
		return nil, fmt.Errorf("create render dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	outBase := filepath.Join(tmpDir, fmt.Sprintf("page-%d", page))
	cmd := exec.CommandContext(ctx, "pdftoppm",
		"-f", fmt.Sprint(page),
		"-l", fmt.Sprint(page),
		"-r", fmt.Sprint(dpi),
		"-png", "-singlefile",
		path, outBase)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		log.Error("pdftoppm failed", "page", page, "stderr", stderr.String())
		return nil, fmt.Errorf("%w: page %d: %v", ErrRenderFailed, page, err)
	}

	data, err := os.ReadFile(outBase + ".png")
	if err != nil {
		return nil, fmt.Errorf("%w: page %d: missing output: %v", ErrRenderFailed, page, err)
	}
	return data, nil
}

// DecodePNG decodes rendered page bytes into an image for cropping
// and pixel-level line scanning.
func DecodePNG(data []byte) (image.Image, error) {
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode page image: %w", err)
	}
	return img, nil
}
