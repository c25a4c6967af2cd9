package service

import (
	"context"
	"strings"
	"time"

	"github.com/cobranca/billing-backoffice/internal/domainerr"
	"github.com/cobranca/billing-backoffice/internal/interfaces"
	"github.com/cobranca/billing-backoffice/internal/models"
)

// CustomerService owns the customer directory. The charge lifecycle engine
// never talks to it directly; it only shares the store's Exists lookup.
type CustomerService struct {
	customers interfaces.CustomerStore
	publisher interfaces.EventPublisher
	now       func() time.Time
}

func NewCustomerService(customers interfaces.CustomerStore, publisher interfaces.EventPublisher) *CustomerService {
	return &CustomerService{
		customers: customers,
		publisher: publisher,
		now:       time.Now,
	}
}

func (s *CustomerService) Create(ctx context.Context, in models.CreateCustomerInput) (*models.Customer, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, domainerr.InvalidField("name", "must not be empty")
	}
	if !strings.Contains(in.Email, "@") {
		return nil, domainerr.InvalidField("email", "must be a valid email address")
	}
	if strings.TrimSpace(in.Document) == "" {
		return nil, domainerr.InvalidField("document", "must not be empty")
	}

	if taken, err := s.customers.ExistsByEmail(ctx, in.Email); err != nil {
		return nil, err
	} else if taken {
		return nil, domainerr.CustomerAlreadyExists("email", in.Email)
	}
	if taken, err := s.customers.ExistsByDocument(ctx, in.Document); err != nil {
		return nil, err
	} else if taken {
		return nil, domainerr.CustomerAlreadyExists("document", in.Document)
	}

	customer := &models.Customer{
		Name:     in.Name,
		Email:    in.Email,
		Document: in.Document,
		Phone:    in.Phone,
		Status:   models.CustomerActive,
	}
	if err := s.customers.Create(ctx, customer); err != nil {
		return nil, err
	}

	s.publishCustomer(ctx, models.EventCustomerCreated, customer)
	return customer, nil
}

func (s *CustomerService) Update(ctx context.Context, id int64, in models.UpdateCustomerInput) (*models.Customer, error) {
	if in.Email != nil {
		if !strings.Contains(*in.Email, "@") {
			return nil, domainerr.InvalidField("email", "must be a valid email address")
		}
	}

	customer, err := s.customers.Mutate(ctx, id, func(c *models.Customer) error {
		if !c.CanBeModified() {
			return domainerr.CustomerBlocked(id)
		}
		if in.Name != nil {
			c.Name = *in.Name
		}
		if in.Email != nil && *in.Email != c.Email {
			taken, err := s.customers.ExistsByEmail(ctx, *in.Email)
			if err != nil {
				return err
			}
			if taken {
				return domainerr.CustomerAlreadyExists("email", *in.Email)
			}
			c.Email = *in.Email
		}
		if in.Phone != nil {
			c.Phone = in.Phone
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCustomer(ctx, models.EventCustomerUpdated, customer)
	return customer, nil
}

// Delete soft-deletes a customer. Blocked customers must be unblocked first.
func (s *CustomerService) Delete(ctx context.Context, id int64) error {
	customer, err := s.customers.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if !customer.CanBeModified() {
		return domainerr.CustomerBlocked(id)
	}

	if err := s.customers.SoftDelete(ctx, id); err != nil {
		return err
	}

	s.publishCustomer(ctx, models.EventCustomerDeleted, customer)
	return nil
}

func (s *CustomerService) Activate(ctx context.Context, id int64) (*models.Customer, error) {
	return s.changeStatus(ctx, id, models.CustomerActive)
}

func (s *CustomerService) Deactivate(ctx context.Context, id int64) (*models.Customer, error) {
	return s.changeStatus(ctx, id, models.CustomerInactive)
}

func (s *CustomerService) Block(ctx context.Context, id int64) (*models.Customer, error) {
	return s.changeStatus(ctx, id, models.CustomerBlocked)
}

func (s *CustomerService) changeStatus(ctx context.Context, id int64, status models.CustomerStatus) (*models.Customer, error) {
	customer, err := s.customers.Mutate(ctx, id, func(c *models.Customer) error {
		c.Status = status
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.publishCustomer(ctx, models.EventCustomerUpdated, customer)
	return customer, nil
}

func (s *CustomerService) Get(ctx context.Context, id int64) (*models.Customer, error) {
	return s.customers.GetByID(ctx, id)
}

func (s *CustomerService) List(ctx context.Context, page, perPage int) ([]models.Customer, int64, error) {
	return s.customers.List(ctx, page, perPage)
}

func (s *CustomerService) publishCustomer(ctx context.Context, name models.EventName, customer *models.Customer) {
	s.publisher.PublishCustomer(ctx, models.CustomerEvent{
		Name:       name,
		Customer:   *customer,
		OccurredAt: s.now(),
	})
}
