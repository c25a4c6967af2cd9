package service

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/cobranca/billing-backoffice/internal/domainerr"
	"github.com/cobranca/billing-backoffice/internal/interfaces"
	"github.com/cobranca/billing-backoffice/internal/models"
	"github.com/cobranca/billing-backoffice/internal/telemetry"
)

var maxChargeAmount = decimal.NewFromFloat(999999.99)

// ChargeService is the charge lifecycle engine. Every mutation runs as one
// transactional read-modify-write against the store: guards are evaluated
// on the row as read inside the transaction, and the matching domain event
// is published only after the commit succeeded.
type ChargeService struct {
	charges   interfaces.ChargeStore
	customers interfaces.CustomerStore
	publisher interfaces.EventPublisher
	now       func() time.Time
}

func NewChargeService(
	charges interfaces.ChargeStore,
	customers interfaces.CustomerStore,
	publisher interfaces.EventPublisher,
) *ChargeService {
	return &ChargeService{
		charges:   charges,
		customers: customers,
		publisher: publisher,
		now:       time.Now,
	}
}

// Create validates the input, persists a new pending charge and publishes
// charge.created.
func (s *ChargeService) Create(ctx context.Context, in models.CreateChargeInput) (*models.Charge, error) {
	exists, err := s.customers.Exists(ctx, in.CustomerID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, domainerr.CustomerNotFound(in.CustomerID)
	}

	if err := s.validateAmount(in.Amount); err != nil {
		return nil, err
	}
	if err := s.validateDueDate(in.DueDate); err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Description) == "" {
		return nil, domainerr.InvalidField("description", "must not be empty")
	}

	charge := &models.Charge{
		CustomerID:       in.CustomerID,
		PaymentGatewayID: in.PaymentGatewayID,
		Amount:           in.Amount,
		Description:      in.Description,
		PaymentMethod:    in.PaymentMethod,
		Status:           models.StatusPending,
		DueDate:          models.DateOnly(in.DueDate),
		Metadata:         in.Metadata,
	}

	if err := s.charges.Create(ctx, charge); err != nil {
		return nil, err
	}

	s.publishCharge(ctx, models.EventChargeCreated, charge)
	return charge, nil
}

// Update overwrites the supplied fields on a charge that is still open.
// Metadata is merged, never replaced.
func (s *ChargeService) Update(ctx context.Context, id int64, in models.UpdateChargeInput) (*models.Charge, error) {
	charge, err := s.charges.Mutate(ctx, id, func(c *models.Charge) error {
		if !c.CanBeUpdated() {
			return domainerr.ChargeCannotBeUpdated(id)
		}
		if in.Amount != nil {
			if err := s.validateAmount(*in.Amount); err != nil {
				return err
			}
			c.Amount = *in.Amount
		}
		if in.Description != nil {
			if strings.TrimSpace(*in.Description) == "" {
				return domainerr.InvalidField("description", "must not be empty")
			}
			c.Description = *in.Description
		}
		if in.DueDate != nil {
			if err := s.validateDueDate(*in.DueDate); err != nil {
				return err
			}
			c.DueDate = models.DateOnly(*in.DueDate)
		}
		if in.Metadata != nil {
			c.Metadata = c.Metadata.Merged(in.Metadata)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCharge(ctx, models.EventChargeUpdated, charge)
	return charge, nil
}

// Cancel transitions an open charge to cancelled, recording the reason in
// the audit metadata.
func (s *ChargeService) Cancel(ctx context.Context, id int64, reason string) (*models.Charge, error) {
	charge, err := s.charges.Mutate(ctx, id, func(c *models.Charge) error {
		switch c.Status {
		case models.StatusPaid:
			return domainerr.ChargeCannotBeCancelled("charge already paid")
		case models.StatusCancelled:
			return domainerr.ChargeCannotBeCancelled("charge already cancelled")
		case models.StatusRefunded:
			return domainerr.ChargeCannotBeCancelled("charge already refunded")
		}
		c.Status = models.StatusCancelled
		c.Metadata = c.Metadata.Merged(models.Metadata{
			"cancellation_reason": reason,
			"cancelled_at":        s.now().Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCharge(ctx, models.EventChargeCancelled, charge)
	return charge, nil
}

// MarkPaid transitions a charge to paid. Marking an already-paid charge is
// an idempotent success: the stored paidAt is kept and no event fires.
// Cancelled charges cannot be paid.
func (s *ChargeService) MarkPaid(ctx context.Context, id int64, paidAt *time.Time) (*models.Charge, error) {
	alreadyPaid := false

	charge, err := s.charges.Mutate(ctx, id, func(c *models.Charge) error {
		if c.Status == models.StatusPaid {
			alreadyPaid = true
			return nil
		}
		if c.Status == models.StatusCancelled {
			return domainerr.ChargeCannotBeCancelled("cannot mark cancelled charge as paid")
		}
		c.Status = models.StatusPaid
		if c.PaidAt == nil {
			when := s.now()
			if paidAt != nil {
				when = *paidAt
			}
			c.PaidAt = &when
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if !alreadyPaid {
		s.publishCharge(ctx, models.EventChargePaid, charge)
	}
	return charge, nil
}

// Refund transitions a paid charge to refunded. paidAt stays set: a refund
// overlays the paid state, it does not rewind it.
func (s *ChargeService) Refund(ctx context.Context, id int64, reason string) (*models.Charge, error) {
	charge, err := s.charges.Mutate(ctx, id, func(c *models.Charge) error {
		if c.Status != models.StatusPaid {
			return domainerr.ChargeNotRefundable()
		}
		c.Status = models.StatusRefunded
		c.Metadata = c.Metadata.Merged(models.Metadata{
			"refund_reason": reason,
			"refunded_at":   s.now().Format(time.RFC3339),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCharge(ctx, models.EventChargeRefunded, charge)
	return charge, nil
}

// ReconcileFromGateway applies a gateway-reported status. It is tolerant by
// design: any current status is accepted, and replaying the same reported
// status is a no-op beyond merging the supplied sync metadata.
func (s *ChargeService) ReconcileFromGateway(ctx context.Context, id int64, reported models.ChargeStatus, metadata models.Metadata) (*models.Charge, error) {
	var previous models.ChargeStatus

	charge, err := s.charges.Mutate(ctx, id, func(c *models.Charge) error {
		previous = c.Status
		c.Status = reported
		if reported == models.StatusPaid && c.PaidAt == nil {
			now := s.now()
			c.PaidAt = &now
		}
		if metadata != nil {
			c.Metadata = c.Metadata.Merged(metadata)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if previous != reported {
		name := models.EventChargeUpdated
		if reported == models.StatusPaid {
			name = models.EventChargePaid
		}
		s.publishCharge(ctx, name, charge)
	}
	return charge, nil
}

// Delete soft-deletes a charge. This is an administrative removal from all
// listings and lookups; it is not a cancellation and emits no event.
func (s *ChargeService) Delete(ctx context.Context, id int64) error {
	return s.charges.SoftDelete(ctx, id)
}

// ExpireOverdue moves pending charges past their due date to expired and
// returns how many moved.
func (s *ChargeService) ExpireOverdue(ctx context.Context) (int, error) {
	expired, err := s.charges.ExpireOverdue(ctx, s.now())
	if err != nil {
		return 0, err
	}

	for i := range expired {
		s.publishCharge(ctx, models.EventChargeUpdated, &expired[i])
	}

	if len(expired) > 0 {
		telemetry.Logger.Info("Expired overdue charges", zap.Int("count", len(expired)))
	}
	return len(expired), nil
}

func (s *ChargeService) Get(ctx context.Context, id int64) (*models.Charge, error) {
	return s.charges.GetByID(ctx, id)
}

func (s *ChargeService) GetByGatewayChargeID(ctx context.Context, gatewayChargeID string) (*models.Charge, error) {
	return s.charges.GetByGatewayChargeID(ctx, gatewayChargeID)
}

func (s *ChargeService) List(ctx context.Context, filter models.ChargeFilter) ([]models.Charge, int64, error) {
	return s.charges.List(ctx, filter)
}

func (s *ChargeService) publishCharge(ctx context.Context, name models.EventName, charge *models.Charge) {
	s.publisher.PublishCharge(ctx, models.ChargeEvent{
		Name:       name,
		Charge:     *charge,
		OccurredAt: s.now(),
	})
}

func (s *ChargeService) validateAmount(amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return domainerr.InvalidField("amount", "must be greater than 0")
	}
	if amount.GreaterThan(maxChargeAmount) {
		return domainerr.InvalidField("amount", "exceeds maximum of 999999.99")
	}
	if amount.Exponent() < -2 {
		return domainerr.InvalidField("amount", "must have at most 2 decimal places")
	}
	return nil
}

func (s *ChargeService) validateDueDate(dueDate time.Time) error {
	if models.DateOnly(dueDate).Before(models.DateOnly(s.now())) {
		return domainerr.InvalidField("due_date", "cannot be in the past")
	}
	return nil
}
