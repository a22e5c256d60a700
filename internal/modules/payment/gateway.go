// README: External payment collaborator; the dispatcher only reacts to its outcomes.
package payment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"mealdrop/internal/types"
)

// Gateway is the opaque payment collaborator. Implementations report
// success or failure; capture and refund logic lives entirely behind it.
type Gateway interface {
	Capture(ctx context.Context, orderID types.ID, amount types.Money) error
	Refund(ctx context.Context, orderID types.ID, amount types.Money) error
}

// HTTPGateway speaks to the payment service over plain JSON POSTs.
type HTTPGateway struct {
	baseURL string
	client  *http.Client
}

func NewHTTPGateway(baseURL string) *HTTPGateway {
	return &HTTPGateway{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (g *HTTPGateway) Capture(ctx context.Context, orderID types.ID, amount types.Money) error {
	return g.post(ctx, "/capture", orderID, amount)
}

func (g *HTTPGateway) Refund(ctx context.Context, orderID types.ID, amount types.Money) error {
	return g.post(ctx, "/refund", orderID, amount)
}

func (g *HTTPGateway) post(ctx context.Context, path string, orderID types.ID, amount types.Money) error {
	body, err := json.Marshal(map[string]any{
		"order_id": orderID,
		"amount":   amount.Amount,
		"currency": amount.Currency,
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("payment %s: status %d", path, resp.StatusCode)
	}
	return nil
}
