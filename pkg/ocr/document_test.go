package ocr

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/semaphore"

	"github.com/cyno-health/cyno/pkg/config"
)

type fakePrimary struct {
	blocks []TextBlock
	err    error
	calls  atomic.Int32
}

func (f *fakePrimary) Recognize(_ context.Context, _ []byte, _ bool) ([]TextBlock, error) {
	f.calls.Add(1)
	return f.blocks, f.err
}

type fakeSecondary struct {
	blocks     []TextBlock
	configured bool
	calls      atomic.Int32
}

func (f *fakeSecondary) Recognize(_ context.Context, _ []byte, _ string) []TextBlock {
	f.calls.Add(1)
	return f.blocks
}

func (f *fakeSecondary) Configured() bool { return f.configured }

func testSettings(engine config.OCREngine) *config.Settings {
	return &config.Settings{
		OCREngine:        engine,
		OCRMinConfidence: 0.6,
		OCRMaxDPI:        300,
		OCRCacheMaxSize:  8,
	}
}

func newTestExtractor(primary PrimaryEngine, secondary SecondaryEngine, engine config.OCREngine) *Extractor {
	return NewExtractor(primary, secondary, testSettings(engine), semaphore.NewWeighted(4))
}

func TestExtract_Image_PrimaryOnly(t *testing.T) {
	primary := &fakePrimary{blocks: []TextBlock{
		{Text: "Hemoglobin 13.2 g/dL", Confidence: 0.95},
		{Text: "Patient: Jane Doe", Confidence: 0.92},
	}}
	e := newTestExtractor(primary, &fakeSecondary{}, config.OCREnginePaddle)

	doc, err := e.Extract(context.Background(), []byte("png-bytes"), SourceTypeImage)
	require.NoError(t, err)

	require.Len(t, doc.Pages, 1)
	page := doc.Pages[0]
	assert.Equal(t, 1, page.PageNumber)
	assert.Equal(t, SourcePaddle, page.Source)
	assert.Equal(t, "Hemoglobin 13.2 g/dL\nPatient: Jane Doe", page.Text)
	assert.Empty(t, page.Warnings)
}

func TestExtract_DualLayer_AzureWins(t *testing.T) {
	primary := &fakePrimary{blocks: []TextBlock{{Text: "Hemog1obin I3.2", Confidence: 0.5}}}
	secondary := &fakeSecondary{
		configured: true,
		blocks:     []TextBlock{{Text: "Hemoglobin 13.2 g/dL", Confidence: 0.9}},
	}
	e := newTestExtractor(primary, secondary, config.OCREngineHybrid)

	doc, err := e.Extract(context.Background(), []byte("scan"), SourceTypeImage)
	require.NoError(t, err)

	page := doc.Pages[0]
	assert.Equal(t, SourceAzure, page.Source)
	assert.Equal(t, "Hemoglobin 13.2 g/dL", page.Text)
	assert.Equal(t, int32(1), secondary.calls.Load())
	require.NotEmpty(t, page.Warnings)
	assert.Contains(t, page.Warnings[0], "switched to azure")
}

func TestExtract_DualLayer_PrimaryKeptWhenAzureNotBetter(t *testing.T) {
	primary := &fakePrimary{blocks: []TextBlock{{Text: "blurry result", Confidence: 0.7}}}
	secondary := &fakeSecondary{
		configured: true,
		blocks:     []TextBlock{{Text: "other", Confidence: 0.7}}, // equal, not strictly better
	}
	e := newTestExtractor(primary, secondary, config.OCREngineHybrid)

	doc, err := e.Extract(context.Background(), []byte("scan"), SourceTypeImage)
	require.NoError(t, err)

	page := doc.Pages[0]
	assert.Equal(t, SourcePaddle, page.Source)
	assert.Equal(t, "blurry result", page.Text)
	assert.Contains(t, page.Warnings[0], "kept paddle")
}

func TestExtract_DualLayer_SecondaryUnconfigured(t *testing.T) {
	primary := &fakePrimary{blocks: []TextBlock{{Text: "faint text", Confidence: 0.62}}}
	secondary := &fakeSecondary{configured: false}
	e := newTestExtractor(primary, secondary, config.OCREngineHybrid)

	doc, err := e.Extract(context.Background(), []byte("scan"), SourceTypeImage)
	require.NoError(t, err)

	page := doc.Pages[0]
	assert.Equal(t, SourcePaddle, page.Source)
	assert.Equal(t, int32(0), secondary.calls.Load())
	require.NotEmpty(t, page.Warnings)
	assert.Contains(t, page.Warnings[0], "no fallback engine")
}

func TestExtract_AzurePreference_BypassesPrimary(t *testing.T) {
	primary := &fakePrimary{blocks: []TextBlock{{Text: "paddle text", Confidence: 0.99}}}
	secondary := &fakeSecondary{
		configured: true,
		blocks:     []TextBlock{{Text: "azure text", Confidence: 0.9}},
	}
	e := newTestExtractor(primary, secondary, config.OCREngineAzure)

	doc, err := e.Extract(context.Background(), []byte("scan"), SourceTypeImage)
	require.NoError(t, err)

	assert.Equal(t, int32(0), primary.calls.Load())
	assert.Equal(t, SourceAzure, doc.Pages[0].Source)
	assert.Equal(t, "azure text", doc.Pages[0].Text)
}

func TestExtract_PrimaryError_EmptyPage(t *testing.T) {
	primary := &fakePrimary{err: assert.AnError}
	e := newTestExtractor(primary, &fakeSecondary{}, config.OCREnginePaddle)

	doc, err := e.Extract(context.Background(), []byte("scan"), SourceTypeImage)
	require.NoError(t, err)

	page := doc.Pages[0]
	assert.Empty(t, page.Blocks)
	assert.Empty(t, page.Text)
	assert.NotEmpty(t, page.Warnings)
}

func TestExtract_CacheHit_SkipsEngines(t *testing.T) {
	primary := &fakePrimary{blocks: []TextBlock{{Text: "Hemoglobin 13.2", Confidence: 0.95}}}
	e := newTestExtractor(primary, &fakeSecondary{}, config.OCREnginePaddle)
	data := []byte("same document bytes")

	first, err := e.Extract(context.Background(), data, SourceTypeImage)
	require.NoError(t, err)
	second, err := e.Extract(context.Background(), data, SourceTypeImage)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), primary.calls.Load())
}

func TestExtract_UnsupportedKind(t *testing.T) {
	e := newTestExtractor(&fakePrimary{}, &fakeSecondary{}, config.OCREnginePaddle)
	_, err := e.Extract(context.Background(), []byte("x"), SourceType("docx"))
	assert.Error(t, err)
}

func TestExtract_FilterAppliedAfterSelection(t *testing.T) {
	primary := &fakePrimary{blocks: []TextBlock{
		{Text: "COMPLETE BLOOD COUNT", Confidence: 0.99},
		{Text: "Hemoglobin 13.2 g/dL", Confidence: 0.95},
		{Text: "noise", Confidence: 0.2},
	}}
	e := newTestExtractor(primary, &fakeSecondary{}, config.OCREnginePaddle)

	doc, err := e.Extract(context.Background(), []byte("scan"), SourceTypeImage)
	require.NoError(t, err)

	page := doc.Pages[0]
	require.Len(t, page.Blocks, 1)
	assert.Equal(t, "Hemoglobin 13.2 g/dL", page.Text)
	// Average 0.71 < 0.75 with no fallback engine adds the low-confidence
	// warning; the filter adds one for the header and one for "noise".
	assert.Len(t, page.Warnings, 3)
}
