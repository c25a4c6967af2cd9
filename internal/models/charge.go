package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type ChargeStatus string

const (
	StatusPending   ChargeStatus = "pending"
	StatusPaid      ChargeStatus = "paid"
	StatusCancelled ChargeStatus = "cancelled"
	StatusRefunded  ChargeStatus = "refunded"
	StatusExpired   ChargeStatus = "expired"
	StatusFailed    ChargeStatus = "failed"
)

// ParseChargeStatus maps a wire token to a ChargeStatus.
func ParseChargeStatus(s string) (ChargeStatus, error) {
	switch ChargeStatus(s) {
	case StatusPending, StatusPaid, StatusCancelled, StatusRefunded, StatusExpired, StatusFailed:
		return ChargeStatus(s), nil
	}
	return "", fmt.Errorf("unknown charge status %q", s)
}

type PaymentMethod string

const (
	MethodCreditCard PaymentMethod = "credit_card"
	MethodDebitCard  PaymentMethod = "debit_card"
	MethodBoleto     PaymentMethod = "boleto"
	MethodPix        PaymentMethod = "pix"
)

func ParsePaymentMethod(s string) (PaymentMethod, error) {
	switch PaymentMethod(s) {
	case MethodCreditCard, MethodDebitCard, MethodBoleto, MethodPix:
		return PaymentMethod(s), nil
	}
	return "", fmt.Errorf("unknown payment method %q", s)
}

// Charge is a monetary obligation owed by a customer, tracked through a
// fixed lifecycle. All mutations go through the lifecycle service; nothing
// writes charge fields directly.
type Charge struct {
	ID               int64           `json:"id"`
	CustomerID       int64           `json:"customer_id"`
	PaymentGatewayID *int64          `json:"payment_gateway_id,omitempty"`
	GatewayChargeID  *string         `json:"gateway_charge_id,omitempty"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	PaymentMethod    PaymentMethod   `json:"payment_method"`
	Status           ChargeStatus    `json:"status"`
	DueDate          time.Time       `json:"due_date"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	Metadata         Metadata        `json:"metadata,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        *time.Time      `json:"-"`
}

func (c *Charge) IsPaid() bool {
	return c.Status == StatusPaid
}

func (c *Charge) IsOverdue(now time.Time) bool {
	return !c.IsPaid() && DateOnly(c.DueDate).Before(DateOnly(now))
}

// CanBeCancelled reports whether the charge may transition to cancelled.
// Paid, cancelled and refunded charges are terminal for cancellation.
func (c *Charge) CanBeCancelled() bool {
	switch c.Status {
	case StatusPaid, StatusCancelled, StatusRefunded:
		return false
	}
	return true
}

// CanBeUpdated shares the cancellation guard: a charge that reached paid,
// cancelled or refunded no longer accepts field updates.
func (c *Charge) CanBeUpdated() bool {
	return c.CanBeCancelled()
}

// DateOnly normalizes t to midnight UTC of its calendar date. Due dates
// compare at day granularity, and anchoring every date to one zone keeps
// the comparison correct whether t came from a request parse, a DATE
// column scan or the host clock.
func DateOnly(t time.Time) time.Time {
	year, month, day := t.Date()
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
