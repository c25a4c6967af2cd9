package interfaces

import (
	"context"

	"github.com/cobranca/billing-backoffice/internal/models"
)

// CustomerStore defines the contract for customer persistence. The charge
// lifecycle only ever calls Exists; the rest serves the customer directory.
type CustomerStore interface {
	Create(ctx context.Context, customer *models.Customer) error
	GetByID(ctx context.Context, id int64) (*models.Customer, error)
	List(ctx context.Context, page, perPage int) ([]models.Customer, int64, error)
	Mutate(ctx context.Context, id int64, fn func(*models.Customer) error) (*models.Customer, error)
	SoftDelete(ctx context.Context, id int64) error
	Exists(ctx context.Context, id int64) (bool, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	ExistsByDocument(ctx context.Context, document string) (bool, error)
}
