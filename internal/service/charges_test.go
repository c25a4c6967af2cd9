package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cobranca/billing-backoffice/internal/domainerr"
	"github.com/cobranca/billing-backoffice/internal/models"
)

func newTestEngine(t *testing.T) (*ChargeService, *fakeChargeStore, *fakeCustomerStore, *recordingPublisher) {
	t.Helper()
	charges := newFakeChargeStore()
	customers := newFakeCustomerStore()
	publisher := &recordingPublisher{}
	return NewChargeService(charges, customers, publisher), charges, customers, publisher
}

func validInput(customerID int64) models.CreateChargeInput {
	return models.CreateChargeInput{
		CustomerID:    customerID,
		Amount:        decimal.RequireFromString("150.50"),
		Description:   "monthly subscription",
		PaymentMethod: models.MethodPix,
		DueDate:       time.Now().AddDate(0, 0, 7),
	}
}

func TestCreateCharge(t *testing.T) {
	engine, _, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)

	assert.Equal(t, models.StatusPending, charge.Status)
	assert.Nil(t, charge.PaidAt)
	assert.True(t, charge.Amount.Equal(decimal.RequireFromString("150.50")))
	assert.Equal(t, []models.EventName{models.EventChargeCreated}, publisher.chargeEventNames())
}

func TestCreateChargeCustomerNotFound(t *testing.T) {
	engine, charges, _, publisher := newTestEngine(t)

	_, err := engine.Create(context.Background(), validInput(42))
	require.Error(t, err)
	assert.Equal(t, domainerr.KindNotFound, domainerr.KindOf(err))
	assert.Equal(t, "customer_not_found", domainerr.CodeOf(err))
	assert.Zero(t, charges.count())
	assert.Empty(t, publisher.chargeEventNames())
}

func TestCreateChargeInvalidAmount(t *testing.T) {
	engine, charges, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	for _, raw := range []string{"0", "-10.00"} {
		in := validInput(customerID)
		in.Amount = decimal.RequireFromString(raw)
		_, err := engine.Create(context.Background(), in)
		require.Error(t, err, "amount %s", raw)
		assert.Equal(t, domainerr.KindInvalidInput, domainerr.KindOf(err))
	}
	assert.Zero(t, charges.count())
}

func TestCreateChargeDueDateInPast(t *testing.T) {
	engine, charges, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	in := validInput(customerID)
	in.DueDate = time.Now().AddDate(0, 0, -1)

	_, err := engine.Create(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, domainerr.KindInvalidInput, domainerr.KindOf(err))
	assert.Zero(t, charges.count(), "no row may be written on validation failure")
}

func TestCreateChargeDueDateToday(t *testing.T) {
	engine, _, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	in := validInput(customerID)
	in.DueDate = time.Now()

	_, err := engine.Create(context.Background(), in)
	assert.NoError(t, err, "today is a valid due date")
}

func TestCreateChargeDueDateTodayWestOfUTC(t *testing.T) {
	engine, _, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	// Morning of the due date on a host five hours behind UTC; the due
	// date itself arrives parsed at UTC midnight, as the HTTP layer
	// produces it.
	west := time.FixedZone("UTC-5", -5*60*60)
	engine.now = func() time.Time { return time.Date(2026, 8, 31, 10, 0, 0, 0, west) }

	dueDate, err := time.Parse(time.DateOnly, "2026-08-31")
	require.NoError(t, err)

	in := validInput(customerID)
	in.DueDate = dueDate

	_, err = engine.Create(context.Background(), in)
	assert.NoError(t, err, "a charge due today is valid in every zone")
}

func TestUpdateCharge(t *testing.T) {
	engine, _, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	in := validInput(customerID)
	in.Metadata = models.Metadata{"origin": "import"}
	charge, err := engine.Create(context.Background(), in)
	require.NoError(t, err)

	newAmount := decimal.RequireFromString("200.00")
	updated, err := engine.Update(context.Background(), charge.ID, models.UpdateChargeInput{
		Amount:   &newAmount,
		Metadata: models.Metadata{"note": "renegotiated"},
	})
	require.NoError(t, err)

	assert.True(t, updated.Amount.Equal(newAmount))
	assert.Equal(t, models.StatusPending, updated.Status)
	assert.Equal(t, "import", updated.Metadata["origin"], "prior metadata keys must survive")
	assert.Equal(t, "renegotiated", updated.Metadata["note"])
	assert.Equal(t, []models.EventName{models.EventChargeCreated, models.EventChargeUpdated}, publisher.chargeEventNames())
}

func TestUpdatePaidChargeFails(t *testing.T) {
	engine, _, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)
	_, err = engine.MarkPaid(context.Background(), charge.ID, nil)
	require.NoError(t, err)

	amount := decimal.RequireFromString("99.99")
	_, err = engine.Update(context.Background(), charge.ID, models.UpdateChargeInput{Amount: &amount})
	require.Error(t, err)
	assert.Equal(t, domainerr.KindInvalidTransition, domainerr.KindOf(err))

	current, err := engine.Get(context.Background(), charge.ID)
	require.NoError(t, err)
	assert.True(t, current.Amount.Equal(decimal.RequireFromString("150.50")), "failed update must not change state")
}

func TestUpdateInvalidAmountLeavesStateUnchanged(t *testing.T) {
	engine, _, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)

	bad := decimal.RequireFromString("-1")
	_, err = engine.Update(context.Background(), charge.ID, models.UpdateChargeInput{Amount: &bad})
	require.Error(t, err)
	assert.Equal(t, domainerr.KindInvalidInput, domainerr.KindOf(err))

	current, err := engine.Get(context.Background(), charge.ID)
	require.NoError(t, err)
	assert.True(t, current.Amount.Equal(decimal.RequireFromString("150.50")))
}

func TestCancelCharge(t *testing.T) {
	engine, _, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	in := validInput(customerID)
	in.Metadata = models.Metadata{"origin": "import"}
	charge, err := engine.Create(context.Background(), in)
	require.NoError(t, err)

	cancelled, err := engine.Cancel(context.Background(), charge.ID, "customer request")
	require.NoError(t, err)

	assert.Equal(t, models.StatusCancelled, cancelled.Status)
	assert.Equal(t, "customer request", cancelled.Metadata["cancellation_reason"])
	assert.NotEmpty(t, cancelled.Metadata["cancelled_at"])
	assert.Equal(t, "import", cancelled.Metadata["origin"], "prior metadata keys must survive")
	assert.Contains(t, publisher.chargeEventNames(), models.EventChargeCancelled)
}

func TestCancelPaidChargeFails(t *testing.T) {
	engine, _, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)
	_, err = engine.MarkPaid(context.Background(), charge.ID, nil)
	require.NoError(t, err)

	_, err = engine.Cancel(context.Background(), charge.ID, "too late")
	require.Error(t, err)
	assert.Equal(t, domainerr.KindInvalidTransition, domainerr.KindOf(err))
	assert.Equal(t, "charge_cannot_be_cancelled", domainerr.CodeOf(err))

	current, err := engine.Get(context.Background(), charge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPaid, current.Status)
}

func TestMarkPaidIdempotent(t *testing.T) {
	engine, _, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)

	first, err := engine.MarkPaid(context.Background(), charge.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, first.PaidAt)

	second, err := engine.MarkPaid(context.Background(), charge.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, second.PaidAt)

	assert.True(t, first.PaidAt.Equal(*second.PaidAt), "paidAt must come from the first successful call")
	assert.Equal(t, []models.EventName{models.EventChargeCreated, models.EventChargePaid}, publisher.chargeEventNames(),
		"the replay must not publish a second paid event")
}

func TestMarkPaidExplicitTimestamp(t *testing.T) {
	engine, _, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)

	paidAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	paid, err := engine.MarkPaid(context.Background(), charge.ID, &paidAt)
	require.NoError(t, err)
	require.NotNil(t, paid.PaidAt)
	assert.True(t, paid.PaidAt.Equal(paidAt))
}

func TestMarkPaidCancelledChargeFails(t *testing.T) {
	engine, _, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)
	_, err = engine.Cancel(context.Background(), charge.ID, "gone")
	require.NoError(t, err)

	_, err = engine.MarkPaid(context.Background(), charge.ID, nil)
	require.Error(t, err)
	assert.Equal(t, domainerr.KindInvalidTransition, domainerr.KindOf(err))
}

func TestRefundPaidCharge(t *testing.T) {
	engine, _, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)
	paid, err := engine.MarkPaid(context.Background(), charge.ID, nil)
	require.NoError(t, err)

	refunded, err := engine.Refund(context.Background(), charge.ID, "duplicate charge")
	require.NoError(t, err)

	assert.Equal(t, models.StatusRefunded, refunded.Status)
	assert.Equal(t, "duplicate charge", refunded.Metadata["refund_reason"])
	require.NotNil(t, refunded.PaidAt)
	assert.True(t, refunded.PaidAt.Equal(*paid.PaidAt), "refund must not clear paidAt")
	assert.Contains(t, publisher.chargeEventNames(), models.EventChargeRefunded)
}

func TestRefundPendingChargeFails(t *testing.T) {
	engine, _, customers, _ := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)

	_, err = engine.Refund(context.Background(), charge.ID, "nope")
	require.Error(t, err)
	assert.Equal(t, "charge_not_refundable", domainerr.CodeOf(err))
}

func TestReconcileFromGatewayIdempotent(t *testing.T) {
	engine, _, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)

	first, err := engine.ReconcileFromGateway(context.Background(), charge.ID, models.StatusPaid,
		models.Metadata{"synced_at": "2026-01-01T00:00:00Z"})
	require.NoError(t, err)
	require.NotNil(t, first.PaidAt)

	second, err := engine.ReconcileFromGateway(context.Background(), charge.ID, models.StatusPaid,
		models.Metadata{"synced_at": "2026-01-02T00:00:00Z"})
	require.NoError(t, err)

	assert.Equal(t, first.Status, second.Status)
	assert.True(t, first.PaidAt.Equal(*second.PaidAt))
	assert.Equal(t, "2026-01-02T00:00:00Z", second.Metadata["synced_at"], "sync marker merges on replay")
	assert.Equal(t, []models.EventName{models.EventChargeCreated, models.EventChargePaid}, publisher.chargeEventNames(),
		"the replay publishes nothing")
}

func TestReconcileFromGatewayToFailed(t *testing.T) {
	engine, _, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)

	failed, err := engine.ReconcileFromGateway(context.Background(), charge.ID, models.StatusFailed, nil)
	require.NoError(t, err)

	assert.Equal(t, models.StatusFailed, failed.Status)
	assert.Nil(t, failed.PaidAt)
	assert.Equal(t, []models.EventName{models.EventChargeCreated, models.EventChargeUpdated}, publisher.chargeEventNames())
}

func TestDeleteIsNotCancellation(t *testing.T) {
	engine, _, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)

	require.NoError(t, engine.Delete(context.Background(), charge.ID))

	_, err = engine.Get(context.Background(), charge.ID)
	assert.Equal(t, domainerr.KindNotFound, domainerr.KindOf(err), "soft-deleted charges vanish from lookups")
	assert.NotContains(t, publisher.chargeEventNames(), models.EventChargeCancelled)
}

func TestExpireOverdue(t *testing.T) {
	engine, charges, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	in := validInput(customerID)
	charge, err := engine.Create(context.Background(), in)
	require.NoError(t, err)

	// Backdate the due date past expiry without going through the engine.
	_, err = charges.Mutate(context.Background(), charge.ID, func(c *models.Charge) error {
		c.DueDate = models.DateOnly(time.Now().AddDate(0, 0, -3))
		return nil
	})
	require.NoError(t, err)

	count, err := engine.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	current, err := engine.Get(context.Background(), charge.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusExpired, current.Status)
	assert.Contains(t, publisher.chargeEventNames(), models.EventChargeUpdated)
}

// Exactly one of two conflicting transitions may win; the loser re-evaluates
// its guard against the winner's committed state and fails.
func TestConcurrentCancelAndMarkPaid(t *testing.T) {
	engine, _, customers, publisher := newTestEngine(t)
	customerID := customers.addActive()

	charge, err := engine.Create(context.Background(), validInput(customerID))
	require.NoError(t, err)

	var wg sync.WaitGroup
	var cancelErr, payErr error
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cancelErr = engine.Cancel(context.Background(), charge.ID, "race")
	}()
	go func() {
		defer wg.Done()
		_, payErr = engine.MarkPaid(context.Background(), charge.ID, nil)
	}()
	wg.Wait()

	if cancelErr == nil {
		require.Error(t, payErr, "both transitions succeeded")
		assert.Equal(t, domainerr.KindInvalidTransition, domainerr.KindOf(payErr))
	} else {
		require.NoError(t, payErr, "both transitions failed")
		assert.Equal(t, domainerr.KindInvalidTransition, domainerr.KindOf(cancelErr))
	}

	current, err := engine.Get(context.Background(), charge.ID)
	require.NoError(t, err)
	assert.Contains(t, []models.ChargeStatus{models.StatusPaid, models.StatusCancelled}, current.Status)

	// created + exactly one transition event
	assert.Len(t, publisher.chargeEventNames(), 2)
}
