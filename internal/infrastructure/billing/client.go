// Package billing is the HTTP adapter for the external invoicing system.
// The engine only ever reads invoice snapshots; invoices are created and
// settled elsewhere.
package billing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/wareflow/parcel-engine/internal/core/domain"
)

// Client implements ports.InvoiceLookup against the billing service's REST
// API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a billing client. timeout bounds every request,
// including connection setup.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Snapshot fetches the current state of one invoice.
func (c *Client) Snapshot(ctx context.Context, invoiceID string) (*domain.InvoiceSnapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/invoices/"+invoiceID, nil)
	if err != nil {
		return nil, fmt.Errorf("billing: build request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("billing: fetch invoice %s: %w", invoiceID, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("billing: fetch invoice %s: unexpected status %d", invoiceID, resp.StatusCode)
	}

	var snap domain.InvoiceSnapshot
	if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
		return nil, fmt.Errorf("billing: decode invoice %s: %w", invoiceID, err)
	}
	return &snap, nil
}
