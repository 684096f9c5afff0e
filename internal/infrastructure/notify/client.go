// Package notify is the HTTP adapter for the external admin notifier
// (webhook-style endpoint owned by the messaging stack).
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// Client implements ports.AdminNotifier by POSTing collection events to the
// configured webhook.
type Client struct {
	webhookURL string
	http       *http.Client
}

func NewClient(webhookURL string, timeout time.Duration) *Client {
	return &Client{
		webhookURL: webhookURL,
		http:       &http.Client{Timeout: timeout},
	}
}

// NotifyCollection delivers one admin notification. With no webhook
// configured delivery is skipped; the dispatcher still records the event.
func (c *Client) NotifyCollection(ctx context.Context, n domain.AdminNotification) error {
	if c.webhookURL == "" {
		return nil
	}

	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("notify: encode event: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("notify: deliver event for parcel %s: %w", n.ParcelID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("notify: deliver event for parcel %s: unexpected status %d", n.ParcelID, resp.StatusCode)
	}
	return nil
}
