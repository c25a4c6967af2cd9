package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuards(t *testing.T) {
	cases := []struct {
		status      ChargeStatus
		cancellable bool
	}{
		{StatusPending, true},
		{StatusExpired, true},
		{StatusFailed, true},
		{StatusPaid, false},
		{StatusCancelled, false},
		{StatusRefunded, false},
	}

	for _, tc := range cases {
		c := &Charge{Status: tc.status}
		assert.Equal(t, tc.cancellable, c.CanBeCancelled(), "CanBeCancelled for %s", tc.status)
		assert.Equal(t, tc.cancellable, c.CanBeUpdated(), "CanBeUpdated for %s", tc.status)
	}
}

func TestIsOverdue(t *testing.T) {
	now := time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC)

	pastDue := &Charge{Status: StatusPending, DueDate: now.AddDate(0, 0, -1)}
	assert.True(t, pastDue.IsOverdue(now))

	dueToday := &Charge{Status: StatusPending, DueDate: now}
	assert.False(t, dueToday.IsOverdue(now), "due today is not overdue")

	paid := &Charge{Status: StatusPaid, DueDate: now.AddDate(0, 0, -30)}
	assert.False(t, paid.IsOverdue(now), "paid charges are never overdue")
}

func TestIsOverdueAcrossTimeZones(t *testing.T) {
	// Request due dates parse at UTC midnight; the host clock may sit in
	// any zone. Only the calendar dates matter.
	dueDate, err := time.Parse(time.DateOnly, "2026-08-31")
	require.NoError(t, err)
	charge := &Charge{Status: StatusPending, DueDate: dueDate}

	west := time.FixedZone("UTC-5", -5*60*60)
	assert.False(t, charge.IsOverdue(time.Date(2026, 8, 31, 10, 0, 0, 0, west)),
		"due today is not overdue west of UTC")
	assert.True(t, charge.IsOverdue(time.Date(2026, 9, 1, 0, 30, 0, 0, west)),
		"overdue once the local calendar day has passed")

	east := time.FixedZone("UTC+9", 9*60*60)
	assert.False(t, charge.IsOverdue(time.Date(2026, 8, 31, 23, 0, 0, 0, east)),
		"due today is not overdue east of UTC")
}

func TestDateOnlyNormalizesZone(t *testing.T) {
	west := time.FixedZone("UTC-5", -5*60*60)
	got := DateOnly(time.Date(2026, 8, 31, 10, 0, 0, 0, west))
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), got)
}

func TestParseChargeStatus(t *testing.T) {
	for _, token := range []string{"pending", "paid", "cancelled", "refunded", "expired", "failed"} {
		status, err := ParseChargeStatus(token)
		assert.NoError(t, err)
		assert.Equal(t, token, string(status))
	}

	_, err := ParseChargeStatus("settled")
	assert.Error(t, err)
}

func TestParsePaymentMethod(t *testing.T) {
	for _, token := range []string{"credit_card", "debit_card", "boleto", "pix"} {
		method, err := ParsePaymentMethod(token)
		assert.NoError(t, err)
		assert.Equal(t, token, string(method))
	}

	_, err := ParsePaymentMethod("cash")
	assert.Error(t, err)
}
