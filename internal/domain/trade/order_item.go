package trade

import (
	"fmt"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/inventory"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is one line of an order. Product details are snapshotted so the
// line survives deletion of its product.
type OrderItem struct {
	shared.BaseEntity
	OrderID       uuid.UUID
	ProductID     *uuid.UUID
	ProductName   string
	Specification string
	IsBundle      bool
	Package       *int
	Quantity      int
	Unit          string
	UnitPrice     decimal.Decimal
	Price         decimal.Decimal
	Cost          decimal.Decimal
	ItemReceipt   ReceiptType
	Status        Status
	Allocations   []inventory.Allocation
}

// NewOrderItemInput carries what a reserved line needs to become an item
type NewOrderItemInput struct {
	OrderID     uuid.UUID
	Product     *catalog.Product
	Quantity    int
	Package     *int
	UnitPrice   decimal.NullDecimal // overrides the product selling price when valid
	Unit        string
	Receipt     ReceiptType
	Allocations []inventory.Allocation
}

// NewOrderItem creates a Done item priced at unit price x quantity
func NewOrderItem(pricing PricingEngine, in NewOrderItemInput) (*OrderItem, error) {
	if in.Product == nil {
		return nil, shared.InvalidInput("Order item requires a product")
	}
	if in.Quantity <= 0 {
		return nil, shared.InvalidInput("Quantity must be positive")
	}
	unitPrice := in.Product.SellingPrice
	if in.UnitPrice.Valid {
		if in.UnitPrice.Decimal.IsNegative() {
			return nil, shared.InvalidInput("Unit price cannot be negative")
		}
		unitPrice = in.UnitPrice.Decimal
	}
	unit := in.Unit
	if unit == "" {
		unit = in.Product.Unit
	}

	productID := in.Product.ID
	item := &OrderItem{
		BaseEntity:    shared.NewBaseEntity(),
		OrderID:       in.OrderID,
		ProductID:     &productID,
		ProductName:   in.Product.Name,
		Specification: in.Product.Specification,
		IsBundle:      in.Product.IsBundle,
		Package:       in.Package,
		Quantity:      in.Quantity,
		Unit:          catalog.NormalizeUnit(unit),
		UnitPrice:     unitPrice,
		ItemReceipt:   in.Receipt,
		Status:        StatusDone,
		Allocations:   in.Allocations,
	}
	item.Reprice(pricing, in.Product)
	return item, nil
}

// Reprice recomputes price from the unit price and cost from the product's buying price
func (i *OrderItem) Reprice(pricing PricingEngine, product *catalog.Product) {
	i.Price = pricing.LineTotal(i.UnitPrice, i.Quantity)
	if product != nil {
		i.Cost = product.CostFor(i.Quantity)
	}
	i.Touch()
}

// IsCancelled reports whether the item was cancelled
func (i *OrderItem) IsCancelled() bool {
	return i.Status == StatusCancelled
}

// EnsureAdjustable checks that quantity or package may change
func (i *OrderItem) EnsureAdjustable() error {
	if i.Status != StatusDone {
		return shared.InvalidTransition(fmt.Sprintf("Cannot change the quantity of a %s item", i.Status))
	}
	return nil
}

// Cancel zeroes the item and hands back the allocations to restock
func (i *OrderItem) Cancel() ([]inventory.Allocation, error) {
	if i.IsCancelled() {
		return nil, shared.ErrAlreadyCancelled
	}
	released := i.Allocations
	i.Allocations = nil
	i.Quantity = 0
	i.Package = new(int)
	i.UnitPrice = decimal.Zero
	i.Price = decimal.Zero
	i.Cost = decimal.Zero
	i.Status = StatusCancelled
	i.Touch()
	return released, nil
}

// RequestCancel moves a Done item to Pending, awaiting approval
func (i *OrderItem) RequestCancel() error {
	switch i.Status {
	case StatusCancelled:
		return shared.ErrAlreadyCancelled
	case StatusPending:
		return shared.InvalidTransition("Cancellation was already requested for this item")
	}
	i.Status = StatusPending
	i.Touch()
	return nil
}

// RejectCancel returns a Pending item to Done
func (i *OrderItem) RejectCancel() error {
	switch i.Status {
	case StatusCancelled:
		return shared.ErrAlreadyCancelled
	case StatusDone:
		return shared.InvalidTransition("No cancellation request is pending for this item")
	}
	i.Status = StatusDone
	i.Touch()
	return nil
}
