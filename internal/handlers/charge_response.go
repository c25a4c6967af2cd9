package handlers

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/cobranca/billing-backoffice/internal/models"
)

type chargeResponse struct {
	ID               int64           `json:"id"`
	CustomerID       int64           `json:"customer_id"`
	PaymentGatewayID *int64          `json:"payment_gateway_id"`
	GatewayChargeID  *string         `json:"gateway_charge_id"`
	Amount           decimal.Decimal `json:"amount"`
	Description      string          `json:"description"`
	PaymentMethod    string          `json:"payment_method"`
	Status           string          `json:"status"`
	DueDate          string          `json:"due_date"`
	PaidAt           *string         `json:"paid_at"`
	Metadata         models.Metadata `json:"metadata"`
	IsPaid           bool            `json:"is_paid"`
	IsOverdue        bool            `json:"is_overdue"`
	CanBeCancelled   bool            `json:"can_be_cancelled"`
	CanBeUpdated     bool            `json:"can_be_updated"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

func newChargeResponse(charge *models.Charge) chargeResponse {
	resp := chargeResponse{
		ID:               charge.ID,
		CustomerID:       charge.CustomerID,
		PaymentGatewayID: charge.PaymentGatewayID,
		GatewayChargeID:  charge.GatewayChargeID,
		Amount:           charge.Amount,
		Description:      charge.Description,
		PaymentMethod:    string(charge.PaymentMethod),
		Status:           string(charge.Status),
		DueDate:          charge.DueDate.Format(time.DateOnly),
		Metadata:         charge.Metadata,
		IsPaid:           charge.IsPaid(),
		IsOverdue:        charge.IsOverdue(time.Now()),
		CanBeCancelled:   charge.CanBeCancelled(),
		CanBeUpdated:     charge.CanBeUpdated(),
		CreatedAt:        charge.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        charge.UpdatedAt.Format(time.RFC3339),
	}
	if charge.PaidAt != nil {
		paidAt := charge.PaidAt.Format(time.RFC3339)
		resp.PaidAt = &paidAt
	}
	return resp
}
