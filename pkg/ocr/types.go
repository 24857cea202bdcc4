// Package ocr turns medical document bytes (images, PDFs) into per-page text
// blocks using a dual-layer strategy: a local PaddleOCR sidecar first, with a
// conditional Azure Document Intelligence fallback when confidence is low.
package ocr

import "strings"

// Point is a single bbox corner in pixel coordinates.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// TextBlock is one recognized text region. Immutable once produced.
type TextBlock struct {
	Text       string   `json:"text"`
	Confidence float64  `json:"confidence"`
	BBox       [4]Point `json:"bbox"`
}

// Source identifies which engine produced a page.
type Source string

const (
	SourcePaddle Source = "paddle"
	SourceAzure  Source = "azure"
)

// PageOCR is the OCR result for one page. Text is derived from Blocks,
// joined by newlines, and the two are kept consistent by Finalize.
type PageOCR struct {
	PageNumber int         `json:"page_number"`
	Text       string      `json:"text"`
	Blocks     []TextBlock `json:"blocks"`
	Source     Source      `json:"source"`
	Warnings   []string    `json:"warnings,omitempty"`
}

// Finalize rebuilds the joined text from the block list.
func (p *PageOCR) Finalize() {
	lines := make([]string, len(p.Blocks))
	for i, b := range p.Blocks {
		lines[i] = b.Text
	}
	p.Text = strings.Join(lines, "\n")
}

// AverageConfidence is the mean block confidence, 0 for an empty page.
func (p *PageOCR) AverageConfidence() float64 {
	if len(p.Blocks) == 0 {
		return 0
	}
	sum := 0.0
	for _, b := range p.Blocks {
		sum += b.Confidence
	}
	return sum / float64(len(p.Blocks))
}

// SourceType distinguishes single-image inputs from multi-page PDFs.
type SourceType string

const (
	SourceTypeImage SourceType = "image"
	SourceTypePDF   SourceType = "pdf"
)

// DocumentOCR is the full OCR result for one document.
type DocumentOCR struct {
	Pages      []PageOCR  `json:"pages"`
	TotalPages int        `json:"total_pages"`
	SourceType SourceType `json:"source_type"`
}

// FullText concatenates all page texts, used to detect empty documents.
func (d *DocumentOCR) FullText() string {
	parts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		parts[i] = p.Text
	}
	return strings.Join(parts, "\n")
}
