package service

import (
	"context"
	"sync"
	"time"

	"github.com/cobranca/billing-backoffice/internal/domainerr"
	"github.com/cobranca/billing-backoffice/internal/models"
)

// fakeChargeStore is an in-memory ChargeStore. Mutate serializes on a
// mutex, giving the same "loser sees the winner's committed state"
// behaviour as the row lock in postgres.
type fakeChargeStore struct {
	mu      sync.Mutex
	nextID  int64
	charges map[int64]*models.Charge
}

func newFakeChargeStore() *fakeChargeStore {
	return &fakeChargeStore{charges: map[int64]*models.Charge{}}
}

func copyCharge(c *models.Charge) *models.Charge {
	out := *c
	out.Metadata = c.Metadata.Merged(nil)
	return &out
}

func (f *fakeChargeStore) Create(_ context.Context, charge *models.Charge) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	charge.ID = f.nextID
	charge.CreatedAt = time.Now()
	charge.UpdatedAt = charge.CreatedAt
	f.charges[charge.ID] = copyCharge(charge)
	return nil
}

func (f *fakeChargeStore) GetByID(_ context.Context, id int64) (*models.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charges[id]
	if !ok || c.DeletedAt != nil {
		return nil, domainerr.ChargeNotFound(id)
	}
	return copyCharge(c), nil
}

func (f *fakeChargeStore) GetByGatewayChargeID(_ context.Context, gatewayChargeID string) (*models.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.charges {
		if c.DeletedAt == nil && c.GatewayChargeID != nil && *c.GatewayChargeID == gatewayChargeID {
			return copyCharge(c), nil
		}
	}
	return nil, domainerr.New(domainerr.KindNotFound, "charge_not_found", "no charge with gateway id %q", gatewayChargeID)
}

func (f *fakeChargeStore) List(_ context.Context, filter models.ChargeFilter) ([]models.Charge, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Charge
	for _, c := range f.charges {
		if c.DeletedAt == nil {
			out = append(out, *copyCharge(c))
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeChargeStore) Mutate(_ context.Context, id int64, fn func(*models.Charge) error) (*models.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.charges[id]
	if !ok || stored.DeletedAt != nil {
		return nil, domainerr.ChargeNotFound(id)
	}
	working := copyCharge(stored)
	if err := fn(working); err != nil {
		return nil, err
	}
	working.UpdatedAt = time.Now()
	f.charges[id] = copyCharge(working)
	return working, nil
}

func (f *fakeChargeStore) SoftDelete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.charges[id]
	if !ok || c.DeletedAt != nil {
		return domainerr.ChargeNotFound(id)
	}
	now := time.Now()
	c.DeletedAt = &now
	return nil
}

func (f *fakeChargeStore) ExpireOverdue(_ context.Context, now time.Time) ([]models.Charge, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var expired []models.Charge
	for _, c := range f.charges {
		if c.DeletedAt == nil && c.Status == models.StatusPending && models.DateOnly(c.DueDate).Before(models.DateOnly(now)) {
			c.Status = models.StatusExpired
			c.UpdatedAt = now
			expired = append(expired, *copyCharge(c))
		}
	}
	return expired, nil
}

func (f *fakeChargeStore) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.charges)
}

type fakeCustomerStore struct {
	mu        sync.Mutex
	nextID    int64
	customers map[int64]*models.Customer
}

func newFakeCustomerStore() *fakeCustomerStore {
	return &fakeCustomerStore{customers: map[int64]*models.Customer{}}
}

func (f *fakeCustomerStore) addActive() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	f.customers[f.nextID] = &models.Customer{
		ID:     f.nextID,
		Name:   "Customer",
		Email:  "customer@example.com",
		Status: models.CustomerActive,
	}
	return f.nextID
}

func (f *fakeCustomerStore) Create(_ context.Context, customer *models.Customer) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	customer.ID = f.nextID
	customer.CreatedAt = time.Now()
	customer.UpdatedAt = customer.CreatedAt
	cp := *customer
	f.customers[customer.ID] = &cp
	return nil
}

func (f *fakeCustomerStore) GetByID(_ context.Context, id int64) (*models.Customer, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok || c.DeletedAt != nil {
		return nil, domainerr.CustomerNotFound(id)
	}
	cp := *c
	return &cp, nil
}

func (f *fakeCustomerStore) List(_ context.Context, page, perPage int) ([]models.Customer, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Customer
	for _, c := range f.customers {
		if c.DeletedAt == nil {
			out = append(out, *c)
		}
	}
	return out, int64(len(out)), nil
}

// Mutate releases the lock while fn runs: the update closure re-enters the
// store for uniqueness lookups, which must not self-deadlock.
func (f *fakeCustomerStore) Mutate(_ context.Context, id int64, fn func(*models.Customer) error) (*models.Customer, error) {
	f.mu.Lock()
	stored, ok := f.customers[id]
	if !ok || stored.DeletedAt != nil {
		f.mu.Unlock()
		return nil, domainerr.CustomerNotFound(id)
	}
	working := *stored
	f.mu.Unlock()

	if err := fn(&working); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	working.UpdatedAt = time.Now()
	f.customers[id] = &working
	cp := working
	return &cp, nil
}

func (f *fakeCustomerStore) SoftDelete(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	if !ok || c.DeletedAt != nil {
		return domainerr.CustomerNotFound(id)
	}
	now := time.Now()
	c.DeletedAt = &now
	return nil
}

func (f *fakeCustomerStore) Exists(_ context.Context, id int64) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.customers[id]
	return ok && c.DeletedAt == nil, nil
}

func (f *fakeCustomerStore) ExistsByEmail(_ context.Context, email string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.customers {
		if c.DeletedAt == nil && c.Email == email {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeCustomerStore) ExistsByDocument(_ context.Context, document string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.customers {
		if c.DeletedAt == nil && c.Document == document {
			return true, nil
		}
	}
	return false, nil
}

// recordingPublisher captures published events in order.
type recordingPublisher struct {
	mu             sync.Mutex
	chargeEvents   []models.ChargeEvent
	customerEvents []models.CustomerEvent
}

func (p *recordingPublisher) PublishCharge(_ context.Context, event models.ChargeEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.chargeEvents = append(p.chargeEvents, event)
}

func (p *recordingPublisher) PublishCustomer(_ context.Context, event models.CustomerEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.customerEvents = append(p.customerEvents, event)
}

func (p *recordingPublisher) chargeEventNames() []models.EventName {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]models.EventName, len(p.chargeEvents))
	for i, e := range p.chargeEvents {
		names[i] = e.Name
	}
	return names
}
