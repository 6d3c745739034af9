package partner

import (
	"context"
	"strings"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Customer is the buyer an order may reference. Customer management lives
// outside this service; orders only read name, phone and TIN.
type Customer struct {
	shared.BaseEntity
	Name  string
	Phone string
	TIN   string // tax identification number
}

// NewCustomer creates a new customer
func NewCustomer(name, phone, tin string) (*Customer, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.InvalidInput("Customer name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.InvalidInput("Customer name cannot exceed 200 characters")
	}
	return &Customer{
		BaseEntity: shared.NewBaseEntity(),
		Name:       name,
		Phone:      strings.TrimSpace(phone),
		TIN:        strings.TrimSpace(tin),
	}, nil
}

// CustomerRepository defines the interface for customer persistence
type CustomerRepository interface {
	// FindByID finds a customer by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Customer, error)
	// Create persists a new customer
	Create(ctx context.Context, customer *Customer) error
}
