package ocr

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paddleServer(t *testing.T, handler func(req paddleRequest) paddleResponse) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/predict/ocr_system", r.URL.Path)
		var req paddleRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(handler(req))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPaddleRecognize_Blocks(t *testing.T) {
	srv := paddleServer(t, func(req paddleRequest) paddleResponse {
		require.Len(t, req.Images, 1)
		return paddleResponse{
			Status: "000",
			Results: [][]paddleResult{{
				{Text: "Hemoglobin 13.2 g/dL", Confidence: 0.97,
					TextRegion: [4][2]float64{{0, 0}, {200, 0}, {200, 20}, {0, 20}}},
			}},
		}
	})

	client := NewPaddleClient(srv.URL)
	blocks, err := client.Recognize(context.Background(), warmupPNG, true)
	require.NoError(t, err)

	require.Len(t, blocks, 1)
	assert.Equal(t, "Hemoglobin 13.2 g/dL", blocks[0].Text)
	assert.Equal(t, 0.97, blocks[0].Confidence)
	assert.Equal(t, Point{X: 200, Y: 20}, blocks[0].BBox[2])
}

func TestPaddleRecognize_AngleClsFlagForwarded(t *testing.T) {
	var sawAngleCls atomic.Bool
	srv := paddleServer(t, func(req paddleRequest) paddleResponse {
		if req.UseAngleCls {
			sawAngleCls.Store(true)
		}
		return paddleResponse{Status: "000", Results: [][]paddleResult{{}}}
	})

	client := NewPaddleClient(srv.URL)
	_, err := client.Recognize(context.Background(), warmupPNG, true)
	require.NoError(t, err)
	assert.True(t, sawAngleCls.Load())
}

func TestPaddleRecognize_SidecarError(t *testing.T) {
	srv := paddleServer(t, func(paddleRequest) paddleResponse {
		return paddleResponse{Status: "500", Message: "model not loaded"}
	})

	client := NewPaddleClient(srv.URL)
	_, err := client.Recognize(context.Background(), warmupPNG, false)
	assert.Error(t, err)
}

func TestPaddleRecognize_SerializedCalls(t *testing.T) {
	var inflight, maxSeen int32
	var mu sync.Mutex
	srv := paddleServer(t, func(paddleRequest) paddleResponse {
		mu.Lock()
		inflight++
		if inflight > maxSeen {
			maxSeen = inflight
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			inflight--
			mu.Unlock()
		}()
		return paddleResponse{Status: "000", Results: [][]paddleResult{{}}}
	})

	client := NewPaddleClient(srv.URL)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = client.Recognize(context.Background(), warmupPNG, false)
		}()
	}
	wg.Wait()

	// The engine mutex serializes all requests.
	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, int32(1), maxSeen)
}
