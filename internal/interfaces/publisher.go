package interfaces

import (
	"context"

	"github.com/cobranca/billing-backoffice/internal/models"
)

// EventPublisher fans a committed domain event out to registered observers.
// Publish is fire-and-forget: it is called only after the transaction
// committed, and observer failures never surface to the caller.
type EventPublisher interface {
	PublishCharge(ctx context.Context, event models.ChargeEvent)
	PublishCustomer(ctx context.Context, event models.CustomerEvent)
}
