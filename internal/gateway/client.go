// Package gateway implements the HTTP client for the external payment
// gateway. The only capability the rest of the system needs from it is
// "what does the gateway currently think this charge's status is".
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/cobranca/billing-backoffice/internal/domainerr"
	"github.com/cobranca/billing-backoffice/internal/models"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a gateway client. timeout bounds each status fetch; a
// fetch that exceeds it is reported as a transient failure so the caller's
// retry policy applies.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

type statusResponse struct {
	Status string `json:"status"`
}

// FetchStatus returns the gateway-reported status for gatewayChargeID.
// Network errors, timeouts and 5xx responses come back as transient
// integration failures; 4xx responses as definitive ones.
func (c *Client) FetchStatus(ctx context.Context, gatewayChargeID string) (models.ChargeStatus, error) {
	url := fmt.Sprintf("%s/v1/charges/%s", c.baseURL, gatewayChargeID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", domainerr.TransientGateway(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return "", domainerr.TransientGateway(fmt.Errorf("gateway returned %d", resp.StatusCode))
	case resp.StatusCode >= 400:
		return "", domainerr.DefinitiveGateway(fmt.Errorf("gateway returned %d", resp.StatusCode))
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", domainerr.DefinitiveGateway(fmt.Errorf("malformed gateway response: %w", err))
	}

	status, err := models.ParseChargeStatus(body.Status)
	if err != nil {
		return "", domainerr.DefinitiveGateway(err)
	}
	return status, nil
}
