package models

import (
	"fmt"
	"time"
)

type CustomerStatus string

const (
	CustomerActive   CustomerStatus = "active"
	CustomerInactive CustomerStatus = "inactive"
	CustomerBlocked  CustomerStatus = "blocked"
)

func ParseCustomerStatus(s string) (CustomerStatus, error) {
	switch CustomerStatus(s) {
	case CustomerActive, CustomerInactive, CustomerBlocked:
		return CustomerStatus(s), nil
	}
	return "", fmt.Errorf("unknown customer status %q", s)
}

type Customer struct {
	ID        int64          `json:"id"`
	Name      string         `json:"name"`
	Email     string         `json:"email"`
	Document  string         `json:"document"`
	Phone     *string        `json:"phone,omitempty"`
	Status    CustomerStatus `json:"status"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt *time.Time     `json:"-"`
}

// CanBeModified reports whether the customer accepts profile changes.
// Blocked customers are frozen until unblocked by an operator.
func (c *Customer) CanBeModified() bool {
	return c.Status != CustomerBlocked
}
