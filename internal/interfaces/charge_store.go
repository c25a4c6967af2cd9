package interfaces

import (
	"context"
	"time"

	"github.com/cobranca/billing-backoffice/internal/models"
)

// ChargeStore defines the contract for charge persistence. Implementations
// must exclude soft-deleted rows from every lookup and must make Mutate an
// atomic read-modify-write: the callback sees the freshly-read row under a
// row lock, and either the whole transition commits or none of it does.
type ChargeStore interface {
	Create(ctx context.Context, charge *models.Charge) error
	GetByID(ctx context.Context, id int64) (*models.Charge, error)
	GetByGatewayChargeID(ctx context.Context, gatewayChargeID string) (*models.Charge, error)
	List(ctx context.Context, filter models.ChargeFilter) ([]models.Charge, int64, error)

	// Mutate loads the charge inside a transaction, applies fn to it and
	// persists the result. An error from fn rolls the transaction back and
	// is returned unchanged.
	Mutate(ctx context.Context, id int64, fn func(*models.Charge) error) (*models.Charge, error)

	// SoftDelete marks the charge deleted without touching its status.
	// Distinct from cancellation.
	SoftDelete(ctx context.Context, id int64) error

	// ExpireOverdue atomically moves pending charges whose due date lies
	// before today to expired and returns the updated rows.
	ExpireOverdue(ctx context.Context, now time.Time) ([]models.Charge, error)
}
