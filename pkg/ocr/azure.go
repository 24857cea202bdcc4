package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	azureAPIVersion = "2024-11-30"
	azureMaxPolls   = 30
	azurePollDelay  = 1 * time.Second

	// The read model does not report per-line confidence the way Paddle
	// does; observed accuracy is high, so every line gets this default
	// (word-level scores are decoded but not used).
	azureDefaultConfidence = 0.9
)

// AzureClient calls the Azure Document Intelligence prebuilt-read model.
// The API is submit-and-poll: POST returns 202 with an Operation-Location
// header, which is then polled at 1 Hz until succeeded/failed.
//
// Azure is a best-effort fallback layer: every failure path returns an empty
// block list rather than an error so the caller keeps the Paddle result.
type AzureClient struct {
	endpoint   string
	key        string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewAzureClient creates a Document Intelligence client. endpoint and key
// come straight from AZURE_DOC_INTELLIGENCE_* settings.
func NewAzureClient(endpoint, key string) *AzureClient {
	return &AzureClient{
		endpoint:   strings.TrimRight(endpoint, "/"),
		key:        key,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     slog.Default(),
	}
}

// Configured reports whether the client has credentials.
func (c *AzureClient) Configured() bool {
	return c.endpoint != "" && c.key != ""
}

type azureAnalyzeResult struct {
	Status        string `json:"status"`
	AnalyzeResult struct {
		Pages []struct {
			PageNumber int `json:"pageNumber"`
			Lines      []struct {
				Content string    `json:"content"`
				Polygon []float64 `json:"polygon"`
			} `json:"lines"`
			Words []struct {
				Content    string  `json:"content"`
				Confidence float64 `json:"confidence"`
			} `json:"words"`
		} `json:"pages"`
	} `json:"analyzeResult"`
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Recognize submits image or PDF bytes to the read model and returns the
// text blocks of the first analyzed page. Any failure returns nil:
// the fallback layer must never take the pipeline down.
func (c *AzureClient) Recognize(ctx context.Context, data []byte, contentType string) []TextBlock {
	if !c.Configured() {
		return nil
	}

	opLocation, err := c.submit(ctx, data, contentType)
	if err != nil {
		c.logger.Warn("Azure OCR submit failed, keeping primary result", "error", err)
		return nil
	}

	result, err := c.poll(ctx, opLocation)
	if err != nil {
		c.logger.Warn("Azure OCR poll failed, keeping primary result", "error", err)
		return nil
	}

	return c.blocksFromResult(result)
}

func (c *AzureClient) submit(ctx context.Context, data []byte, contentType string) (string, error) {
	url := fmt.Sprintf("%s/documentintelligence/documentModels/prebuilt-read:analyze?api-version=%s",
		c.endpoint, azureAPIVersion)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("create analyze request: %w", err)
	}
	req.Header.Set("Ocp-Apim-Subscription-Key", c.key)
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("analyze returned HTTP %d: %s", resp.StatusCode, string(body))
	}

	opLocation := resp.Header.Get("Operation-Location")
	if opLocation == "" {
		return "", fmt.Errorf("analyze response missing Operation-Location header")
	}
	return opLocation, nil
}

func (c *AzureClient) poll(ctx context.Context, opLocation string) (*azureAnalyzeResult, error) {
	for i := 0; i < azureMaxPolls; i++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(azurePollDelay):
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, opLocation, nil)
		if err != nil {
			return nil, fmt.Errorf("create poll request: %w", err)
		}
		req.Header.Set("Ocp-Apim-Subscription-Key", c.key)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("poll operation: %w", err)
		}

		var result azureAnalyzeResult
		decodeErr := json.NewDecoder(resp.Body).Decode(&result)
		resp.Body.Close()
		if decodeErr != nil {
			return nil, fmt.Errorf("decode poll response: %w", decodeErr)
		}

		switch result.Status {
		case "succeeded":
			return &result, nil
		case "failed":
			return nil, fmt.Errorf("analysis failed: %s", result.Error.Message)
		}
	}
	return nil, fmt.Errorf("analysis did not complete after %d polls", azureMaxPolls)
}

func (c *AzureClient) blocksFromResult(result *azureAnalyzeResult) []TextBlock {
	if len(result.AnalyzeResult.Pages) == 0 {
		return nil
	}
	page := result.AnalyzeResult.Pages[0]

	blocks := make([]TextBlock, 0, len(page.Lines))
	for _, line := range page.Lines {
		blocks = append(blocks, TextBlock{
			Text:       line.Content,
			Confidence: azureDefaultConfidence,
			BBox:       polygonToBBox(line.Polygon),
		})
	}
	return blocks
}

// polygonToBBox normalizes the read model's 8-coordinate polygon
// [x1 y1 x2 y2 x3 y3 x4 y4] to the 4-point bbox format Paddle uses.
func polygonToBBox(polygon []float64) [4]Point {
	var bbox [4]Point
	for i := 0; i < 4 && i*2+1 < len(polygon); i++ {
		bbox[i] = Point{X: polygon[i*2], Y: polygon[i*2+1]}
	}
	return bbox
}
