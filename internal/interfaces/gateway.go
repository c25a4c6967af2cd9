package interfaces

import (
	"context"

	"github.com/cobranca/billing-backoffice/internal/models"
)

// GatewayClient fetches the authoritative remote status for a charge the
// gateway knows about. Errors are classified by the implementation:
// transient failures (timeouts, 5xx) are retryable, definitive ones are not.
type GatewayClient interface {
	FetchStatus(ctx context.Context, gatewayChargeID string) (models.ChargeStatus, error)
}
