package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"log/slog"

	"github.com/gen2brain/go-fitz"
	"golang.org/x/sync/semaphore"

	"github.com/cyno-health/cyno/pkg/config"
)

// dualLayerThreshold is the primary-OCR average confidence below which the
// Azure fallback is consulted.
const dualLayerThreshold = 0.75

// PrimaryEngine is the local OCR layer (PaddleOCR sidecar).
type PrimaryEngine interface {
	Recognize(ctx context.Context, png []byte, useAngleCls bool) ([]TextBlock, error)
}

// SecondaryEngine is the remote OCR layer (Azure Document Intelligence).
// It is best-effort: implementations return nil on any failure.
type SecondaryEngine interface {
	Recognize(ctx context.Context, data []byte, contentType string) []TextBlock
	Configured() bool
}

// Extractor converts document bytes into a DocumentOCR, applying the
// dual-layer engine selection and block filter per page, with a
// content-hash cache in front of everything.
type Extractor struct {
	primary   PrimaryEngine
	secondary SecondaryEngine
	engine    config.OCREngine

	minConfidence float64
	maxDPI        int

	cache  *Cache
	ocrSem *semaphore.Weighted
	logger *slog.Logger
}

// NewExtractor wires the document extractor. ocrSem bounds concurrent
// primary-engine calls (the engine's own mutex further serializes inside).
func NewExtractor(primary PrimaryEngine, secondary SecondaryEngine, cfg *config.Settings, ocrSem *semaphore.Weighted) *Extractor {
	return &Extractor{
		primary:       primary,
		secondary:     secondary,
		engine:        cfg.OCREngine,
		minConfidence: cfg.OCRMinConfidence,
		maxDPI:        cfg.OCRMaxDPI,
		cache:         NewCache(cfg.OCRCacheMaxSize),
		ocrSem:        ocrSem,
		logger:        slog.Default(),
	}
}

// Extract runs OCR over a whole document. Results are cached by content
// hash, so re-analyzing an unchanged file never touches either engine.
func (e *Extractor) Extract(ctx context.Context, data []byte, kind SourceType) (*DocumentOCR, error) {
	key := Key(data)
	if cached, ok := e.cache.Get(key); ok {
		e.logger.Debug("OCR cache hit", "key", key, "pages", cached.TotalPages)
		return &cached, nil
	}

	var doc *DocumentOCR
	var err error
	switch kind {
	case SourceTypeImage:
		doc, err = e.extractImage(ctx, data)
	case SourceTypePDF:
		doc, err = e.extractPDF(ctx, data)
	default:
		return nil, fmt.Errorf("unsupported source type %q", kind)
	}
	if err != nil {
		return nil, err
	}

	e.cache.Set(key, *doc)
	return doc, nil
}

func (e *Extractor) extractImage(ctx context.Context, data []byte) (*DocumentOCR, error) {
	page := e.extractPage(ctx, data, 1)
	return &DocumentOCR{
		Pages:      []PageOCR{page},
		TotalPages: 1,
		SourceType: SourceTypeImage,
	}, nil
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (*DocumentOCR, error) {
	pdf, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, fmt.Errorf("open PDF: %w", err)
	}
	defer pdf.Close()

	pages := make([]PageOCR, 0, pdf.NumPage())
	for n := 0; n < pdf.NumPage(); n++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		img, err := pdf.ImageDPI(n, float64(e.maxDPI))
		if err != nil {
			e.logger.Error("Failed to rasterize PDF page", "page", n+1, "error", err)
			pages = append(pages, PageOCR{
				PageNumber: n + 1,
				Warnings:   []string{fmt.Sprintf("Page %d could not be rendered: %v", n+1, err)},
			})
			continue
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			e.logger.Error("Failed to encode PDF page", "page", n+1, "error", err)
			pages = append(pages, PageOCR{
				PageNumber: n + 1,
				Warnings:   []string{fmt.Sprintf("Page %d could not be encoded: %v", n+1, err)},
			})
			continue
		}

		pages = append(pages, e.extractPage(ctx, buf.Bytes(), n+1))
	}

	return &DocumentOCR{
		Pages:      pages,
		TotalPages: len(pages),
		SourceType: SourceTypePDF,
	}, nil
}

// extractPage runs the dual-layer selection for one page image.
func (e *Extractor) extractPage(ctx context.Context, pngData []byte, pageNumber int) PageOCR {
	page := PageOCR{PageNumber: pageNumber, Source: SourcePaddle}

	secondaryAvailable := e.secondary != nil && e.secondary.Configured()

	// Engine preference "azure" bypasses the primary entirely when the
	// remote engine is configured.
	if e.engine == config.OCREngineAzure && secondaryAvailable {
		page.Blocks = e.secondary.Recognize(ctx, pngData, "image/png")
		page.Source = SourceAzure
		e.finalizePage(&page)
		return page
	}

	primaryBlocks, err := e.runPrimary(ctx, pngData)
	if err != nil {
		e.logger.Error("Primary OCR failed", "page", pageNumber, "error", err)
		page.Warnings = append(page.Warnings, fmt.Sprintf("Primary OCR failed: %v", err))
		primaryBlocks = nil
	}
	page.Blocks = primaryBlocks

	primaryAvg := page.AverageConfidence()
	if primaryAvg < dualLayerThreshold {
		switch {
		case secondaryAvailable && (e.engine == config.OCREngineHybrid || e.engine == config.OCREngineAzure):
			azureBlocks := e.secondary.Recognize(ctx, pngData, "image/png")
			azureAvg := averageConfidence(azureBlocks)
			if azureAvg > primaryAvg {
				page.Blocks = azureBlocks
				page.Source = SourceAzure
				page.Warnings = append(page.Warnings, fmt.Sprintf(
					"Low primary OCR confidence (%.2f), switched to azure (%.2f)", primaryAvg, azureAvg))
			} else {
				page.Warnings = append(page.Warnings, fmt.Sprintf(
					"Low primary OCR confidence (%.2f), azure fallback not better (%.2f), kept paddle", primaryAvg, azureAvg))
			}
		default:
			page.Warnings = append(page.Warnings, fmt.Sprintf(
				"Low OCR confidence (%.2f) and no fallback engine configured", primaryAvg))
		}
	}

	e.finalizePage(&page)
	return page
}

func (e *Extractor) runPrimary(ctx context.Context, pngData []byte) ([]TextBlock, error) {
	if err := e.ocrSem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer e.ocrSem.Release(1)
	return e.primary.Recognize(ctx, pngData, true)
}

func (e *Extractor) finalizePage(page *PageOCR) {
	filtered, warnings := FilterBlocks(page.Blocks, e.minConfidence)
	page.Blocks = filtered
	page.Warnings = append(page.Warnings, warnings...)
	page.Finalize()
}

func averageConfidence(blocks []TextBlock) float64 {
	if len(blocks) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range blocks {
		sum += b.Confidence
	}
	return sum / float64(len(blocks))
}
