package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateChargeInput is the already-validated payload handed to the lifecycle
// service. Structural validation (types, presence) happens at the HTTP
// boundary; business validation (amount, due date, customer) in the service.
type CreateChargeInput struct {
	CustomerID       int64
	Amount           decimal.Decimal
	Description      string
	PaymentMethod    PaymentMethod
	DueDate          time.Time
	PaymentGatewayID *int64
	Metadata         Metadata
}

// UpdateChargeInput carries optional field changes; nil means "leave as is".
type UpdateChargeInput struct {
	Amount      *decimal.Decimal
	Description *string
	DueDate     *time.Time
	Metadata    Metadata
}

type CreateCustomerInput struct {
	Name     string
	Email    string
	Document string
	Phone    *string
}

type UpdateCustomerInput struct {
	Name  *string
	Email *string
	Phone *string
}

// ChargeFilter narrows charge listings. Zero values mean "no filter".
type ChargeFilter struct {
	Statuses    []ChargeStatus
	CustomerID  *int64
	DueFrom     *time.Time
	DueTo       *time.Time
	OnlyOverdue bool
	Page        int
	PerPage     int
}

// Page bounds applied to every listing.
const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// Normalize clamps pagination to sane bounds.
func (f *ChargeFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PerPage < 1 {
		f.PerPage = DefaultPerPage
	}
	if f.PerPage > MaxPerPage {
		f.PerPage = MaxPerPage
	}
}
