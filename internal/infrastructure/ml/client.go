package ml

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"LensInventory/internal/domain"
	"LensInventory/internal/infrastructure/retry"
	"LensInventory/internal/ports"
)

// Client talks to an external object-detection model over HTTP.
type Client struct {
	endpoint      string
	apiKey        string
	minConfidence float64
	retry         retry.Policy
	http          *http.Client
}

var _ ports.ObjectDetector = (*Client)(nil)

// Options tune a detection client.
type Options struct {
	Endpoint      string
	APIKey        string
	MinConfidence float64
	Timeout       time.Duration
	Retry         retry.Policy
}

// NewClient creates a reusable HTTP client.
func NewClient(opts Options) *Client {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		endpoint:      opts.Endpoint,
		apiKey:        opts.APIKey,
		minConfidence: opts.MinConfidence,
		retry:         opts.Retry,
		http:          &http.Client{Timeout: timeout},
	}
}

type detectResponse struct {
	Objects []domain.DetectedObject `json:"objects"`
}

// Detect sends the picture to the model and keeps detections above the
// configured confidence floor.
func (c *Client) Detect(ctx context.Context, image []byte) (domain.DetectionResult, error) {
	if len(image) == 0 {
		return domain.DetectionResult{}, fmt.Errorf("detect: empty image")
	}

	payload := map[string]any{
		"image": base64.StdEncoding.EncodeToString(image),
	}

	var resp detectResponse
	err := c.retry.Do(ctx, "detect objects", func(ctx context.Context) error {
		resp = detectResponse{}
		return c.post(ctx, "/detect", payload, &resp)
	})
	if err != nil {
		return domain.DetectionResult{}, err
	}

	kept := make([]domain.DetectedObject, 0, len(resp.Objects))
	for _, obj := range resp.Objects {
		if obj.Class == "" || obj.Confidence < c.minConfidence {
			continue
		}
		kept = append(kept, obj)
	}

	return domain.NewDetectionResult(kept), nil
}

func (c *Client) post(ctx context.Context, path string, payload any, v any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		closeErr := resp.Body.Close()
		if closeErr != nil {
			return fmt.Errorf("unexpected status %s, close body: %v", resp.Status, closeErr)
		}
		return fmt.Errorf("unexpected status %s", resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		_ = resp.Body.Close()
		return fmt.Errorf("decode response: %w", err)
	}

	if err := resp.Body.Close(); err != nil {
		return fmt.Errorf("close response body: %w", err)
	}

	return nil
}
