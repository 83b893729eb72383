package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/zumenkit/schedscan/internal/config"
	"github.com/zumenkit/schedscan/internal/dwelling"
	"github.com/zumenkit/schedscan/internal/lineassist"
	"github.com/zumenkit/schedscan/internal/logger"
	"github.com/zumenkit/schedscan/internal/luminaire"
	"github.com/zumenkit/schedscan/internal/ocr"
	"github.com/zumenkit/schedscan/internal/panel"
	"github.com/zumenkit/schedscan/internal/reconcile"
	"github.com/zumenkit/schedscan/internal/specframe"
)

var log = logger.GetLogger("schedscan")

var pipelineModes = []string{"luminaire", "dwelling", "specframe", "panel"}

func main() {
	pdfPath := flag.String("pdf", "", "input PDF path")
	page := flag.Int("pages", 0, "page to process (0 = all pages)")
	mode := flag.String("mode", "all", "pipeline: luminaire|dwelling|specframe|panel|all|reconcile")
	dpi := flag.Int("dpi", 0, "render DPI (overrides SCHEDSCAN_DPI)")
	outDir := flag.String("out", "out", "output directory")
	debugDir := flag.String("debug-dir", "", "debug artifact directory (overrides SCHEDSCAN_DEBUG_DIR)")
	scheduleCSV := flag.String("schedule-csv", "", "equipment schedule CSV (reconcile mode)")
	panelCSV := flag.String("panel-csv", "", "panel schedule CSV (reconcile mode)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Warn("dotenv load failed", "error", err)
	}
	cfg := config.Load()
	if *dpi > 0 {
		cfg.DPI = *dpi
	}
	if *debugDir != "" {
		cfg.DebugDir = *debugDir
	}

	if err := run(cfg, *mode, *pdfPath, *page, *outDir, *scheduleCSV, *panelCSV); err != nil {
		log.Error("run failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, mode, pdfPath string, page int, outDir, scheduleCSV, panelCSV string) error {
	start := time.Now()

	if mode == "reconcile" {
		if scheduleCSV == "" || panelCSV == "" {
			return fmt.Errorf("reconcile mode needs -schedule-csv and -panel-csv")
		}
		result, err := reconcile.Merge(cfg, scheduleCSV, panelCSV, filepath.Join(outDir, "judgment.csv"))
		if err != nil {
			return err
		}
		log.Info("done", "judgments", result.RowCount, "elapsed", time.Since(start))
		return nil
	}

	if pdfPath == "" {
		return fmt.Errorf("missing -pdf")
	}

	modes := []string{mode}
	if mode == "all" {
		modes = pipelineModes
	}
	for _, m := range modes {
		valid := false
		for _, known := range pipelineModes {
			if m == known {
				valid = true
			}
		}
		if !valid {
			return fmt.Errorf("unknown mode %q", m)
		}
	}

	log.Info("starting extraction",
		"pdf", pdfPath, "modes", strings.Join(modes, ","),
		"pages", page, "dpi", cfg.DPI)

	source := ocr.NewTesseractClient(cfg.OCRLanguages, cfg.OCRPageSegMode, cfg.OCRMinConfidence)
	var detector lineassist.ImageLineDetector = lineassist.GrayscaleDetector{}
	if cfg.LineAssist == config.LineAssistOff {
		detector = lineassist.NoopDetector{}
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, m := range modes {
		m := m
		g.Go(func() error {
			pipelineStart := time.Now()
			outCSV := filepath.Join(outDir, m+".csv")
			var err error
			switch m {
			case "luminaire":
				var result *luminaire.Result
				result, err = luminaire.NewExtractor(cfg, source, detector).ExtractPDF(ctx, pdfPath, page)
				if err == nil {
					err = luminaire.WriteCSV(result.Rows, outCSV)
				}
			case "dwelling":
				var result *dwelling.Result
				result, err = dwelling.NewExtractor(cfg, source).ExtractPDF(ctx, pdfPath, page)
				if err == nil {
					err = dwelling.WriteCSV(result.Rows, outCSV)
				}
			case "specframe":
				var result *specframe.Result
				result, err = specframe.NewExtractor(cfg, source).ExtractPDF(ctx, pdfPath, page)
				if err == nil {
					err = specframe.WriteCSV(result.Rows, outCSV)
				}
			case "panel":
				var result *panel.Result
				result, err = panel.NewExtractor(cfg, source).ExtractPDF(ctx, pdfPath, page)
				if err == nil {
					err = panel.WriteCSV(result.Rows, outCSV)
				}
			}
			if err != nil {
				return fmt.Errorf("%s: %w", m, err)
			}
			log.Info("pipeline finished", "mode", m, "out", outCSV, "elapsed", time.Since(pipelineStart))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("done", "elapsed", time.Since(start))
	return nil
}
