package ocr

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// PaddleClient talks to the local PaddleOCR serving sidecar. The sidecar's
// recognition pipeline is not safe for concurrent requests, so every call is
// serialized by a process-wide mutex; callers additionally bound parallelism
// with the OCR worker semaphore.
//
// Two pipeline variants exist, with and without angle classification, each
// initialized lazily on first use via a warmup request.
type PaddleClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger

	mu       sync.Mutex
	initOnce [2]sync.Once // [0] without angle cls, [1] with angle cls
	initErr  [2]error
}

// NewPaddleClient creates a client for the PaddleOCR sidecar at baseURL.
func NewPaddleClient(baseURL string) *PaddleClient {
	return &PaddleClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     slog.Default(),
	}
}

type paddleRequest struct {
	Images      []string `json:"images"`
	UseAngleCls bool     `json:"use_angle_cls"`
}

type paddleResult struct {
	Text       string         `json:"text"`
	Confidence float64        `json:"confidence"`
	TextRegion [4][2]float64  `json:"text_region"`
}

type paddleResponse struct {
	Status  string           `json:"status"`
	Message string           `json:"msg"`
	Results [][]paddleResult `json:"results"`
}

// Recognize runs OCR over a PNG-encoded image and returns its text blocks in
// reading order. useAngleCls enables the rotated-text classifier variant.
func (c *PaddleClient) Recognize(ctx context.Context, png []byte, useAngleCls bool) ([]TextBlock, error) {
	variant := 0
	if useAngleCls {
		variant = 1
	}
	c.initOnce[variant].Do(func() {
		// Warmup runs on its own context so a cancelled first caller
		// cannot poison the engine for everyone after it.
		warmCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()
		c.initErr[variant] = c.warmup(warmCtx, useAngleCls)
	})
	if c.initErr[variant] != nil {
		return nil, fmt.Errorf("paddle engine init (angle_cls=%v): %w", useAngleCls, c.initErr[variant])
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	return c.recognizeLocked(ctx, png, useAngleCls)
}

func (c *PaddleClient) recognizeLocked(ctx context.Context, png []byte, useAngleCls bool) ([]TextBlock, error) {
	payload, err := json.Marshal(paddleRequest{
		Images:      []string{base64.StdEncoding.EncodeToString(png)},
		UseAngleCls: useAngleCls,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal paddle request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/predict/ocr_system", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create paddle request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("paddle sidecar: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("paddle sidecar returned HTTP %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 50<<20))
	if err != nil {
		return nil, fmt.Errorf("read paddle response: %w", err)
	}

	var decoded paddleResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return nil, fmt.Errorf("decode paddle response: %w", err)
	}
	if decoded.Status != "" && decoded.Status != "000" && decoded.Status != "ok" {
		return nil, fmt.Errorf("paddle sidecar error: %s", decoded.Message)
	}
	if len(decoded.Results) == 0 {
		return nil, nil
	}

	blocks := make([]TextBlock, 0, len(decoded.Results[0]))
	for _, r := range decoded.Results[0] {
		blocks = append(blocks, TextBlock{
			Text:       r.Text,
			Confidence: r.Confidence,
			BBox:       regionToBBox(r.TextRegion),
		})
	}
	return blocks, nil
}

// warmup issues a tiny request so model loading happens once, not inside the
// first real page.
func (c *PaddleClient) warmup(ctx context.Context, useAngleCls bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.logger.Info("Initializing PaddleOCR engine", "use_angle_cls", useAngleCls)
	_, err := c.recognizeLocked(ctx, warmupPNG, useAngleCls)
	return err
}

func regionToBBox(region [4][2]float64) [4]Point {
	var bbox [4]Point
	for i, p := range region {
		bbox[i] = Point{X: p[0], Y: p[1]}
	}
	return bbox
}

// warmupPNG is a 1x1 white PNG used only to trigger model loading.
var warmupPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x02, 0x00, 0x00, 0x00, 0x90, 0x77, 0x53, 0xde, 0x00, 0x00, 0x00,
	0x0c, 0x49, 0x44, 0x41, 0x54, 0x08, 0xd7, 0x63, 0xf8, 0xff, 0xff, 0x3f,
	0x00, 0x05, 0xfe, 0x02, 0xfe, 0xdc, 0xcc, 0x59, 0xe7, 0x00, 0x00, 0x00,
	0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
