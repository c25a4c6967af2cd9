package models

import "time"

// EventName identifies a domain event emitted after a committed transition.
type EventName string

const (
	EventChargeCreated   EventName = "charge.created"
	EventChargeUpdated   EventName = "charge.updated"
	EventChargePaid      EventName = "charge.paid"
	EventChargeCancelled EventName = "charge.cancelled"
	EventChargeRefunded  EventName = "charge.refunded"

	EventCustomerCreated EventName = "customer.created"
	EventCustomerUpdated EventName = "customer.updated"
	EventCustomerDeleted EventName = "customer.deleted"
)

// ChargeEvent carries the full post-transition charge snapshot. Observers
// receive it after the transaction committed; the snapshot is theirs to keep.
type ChargeEvent struct {
	Name       EventName `json:"name"`
	Charge     Charge    `json:"charge"`
	OccurredAt time.Time `json:"occurred_at"`
}

// CustomerEvent mirrors ChargeEvent for the customer directory.
type CustomerEvent struct {
	Name       EventName `json:"name"`
	Customer   Customer  `json:"customer"`
	OccurredAt time.Time `json:"occurred_at"`
}
