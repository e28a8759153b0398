package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// WebhookDispatcher POSTs the payload as JSON to a configured endpoint.
type WebhookDispatcher struct {
	URL    string
	client *http.Client
}

func NewWebhookDispatcher(url string) *WebhookDispatcher {
	return &WebhookDispatcher{
		URL:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

func (d *WebhookDispatcher) Send(ctx context.Context, p Payload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return Permanent(err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", d.URL, bytes.NewReader(body))
	if err != nil {
		return Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		// The endpoint rejected the payload; retrying cannot help.
		return Permanent(fmt.Errorf("webhook rejected with status %d", resp.StatusCode))
	default:
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
}
