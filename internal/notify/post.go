package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// jsonPoster is the shared HTTP machinery for webhook-style senders: marshal
// a payload, POST it, and treat any non-2xx status as an error carrying the
// first KiB of the response body.
type jsonPoster struct {
	client *http.Client
}

func newJSONPoster() *jsonPoster {
	return &jsonPoster{
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (p *jsonPoster) post(ctx context.Context, url string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// labeled prefixes a title with an optional sender label.
func labeled(label, title string) string {
	if label == "" {
		return title
	}
	return fmt.Sprintf("[%s] %s", label, title)
}
