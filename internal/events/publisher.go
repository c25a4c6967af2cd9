// Package events implements the in-process domain event bus. The publisher
// is constructed once in main and injected where needed; observers register
// at startup. Dispatch is synchronous and happens strictly after the
// originating transaction committed, so an observer failure can log and
// count but never roll anything back.
package events

import (
	"context"

	"go.uber.org/zap"

	"github.com/cobranca/billing-backoffice/internal/models"
	"github.com/cobranca/billing-backoffice/internal/telemetry"
)

// ChargeObserver receives committed charge events.
type ChargeObserver interface {
	Name() string
	HandleChargeEvent(ctx context.Context, event models.ChargeEvent) error
}

// CustomerObserver receives committed customer events.
type CustomerObserver interface {
	Name() string
	HandleCustomerEvent(ctx context.Context, event models.CustomerEvent) error
}

type Publisher struct {
	chargeObservers   []ChargeObserver
	customerObservers []CustomerObserver
}

func NewPublisher() *Publisher {
	return &Publisher{}
}

// RegisterChargeObserver appends an observer. Not safe for concurrent use;
// registration happens during startup, before the first publish.
func (p *Publisher) RegisterChargeObserver(o ChargeObserver) {
	p.chargeObservers = append(p.chargeObservers, o)
}

func (p *Publisher) RegisterCustomerObserver(o CustomerObserver) {
	p.customerObservers = append(p.customerObservers, o)
}

func (p *Publisher) PublishCharge(ctx context.Context, event models.ChargeEvent) {
	for _, o := range p.chargeObservers {
		dispatch(ctx, o.Name(), string(event.Name), func(ctx context.Context) error {
			return o.HandleChargeEvent(ctx, event)
		})
	}
}

func (p *Publisher) PublishCustomer(ctx context.Context, event models.CustomerEvent) {
	for _, o := range p.customerObservers {
		dispatch(ctx, o.Name(), string(event.Name), func(ctx context.Context) error {
			return o.HandleCustomerEvent(ctx, event)
		})
	}
}

// dispatch isolates one observer call: errors and panics are logged and
// swallowed so the remaining observers still run.
func dispatch(ctx context.Context, observer, event string, fn func(context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			telemetry.Logger.Error("Event observer panicked",
				zap.String("observer", observer),
				zap.String("event", event),
				zap.Any("panic", rec),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		telemetry.Logger.Error("Event observer failed",
			zap.String("observer", observer),
			zap.String("event", event),
			zap.Error(err),
		)
	}
}
