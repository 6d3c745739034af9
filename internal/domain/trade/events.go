package trade

import (
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event types
const (
	EventTypeOrderCreated       = "OrderCreated"
	EventTypeOrderUpdated       = "OrderUpdated"
	EventTypeOrderItemCancelled = "OrderItemCancelled"
	EventTypeOrderCancelled     = "OrderCancelled"
	EventTypeOrderDeleted       = "OrderDeleted"
	EventTypeOrderRejected      = "OrderRejected"
)

// OrderCreatedEvent is raised when an order is committed
type OrderCreatedEvent struct {
	shared.BaseDomainEvent
	ReceiptID   string          `json:"receipt_id,omitempty"`
	Receipt     ReceiptType     `json:"receipt"`
	ItemCount   int             `json:"item_count"`
	TotalAmount decimal.Decimal `json:"total_amount"`
}

// NewOrderCreatedEvent creates an OrderCreatedEvent
func NewOrderCreatedEvent(o *Order) *OrderCreatedEvent {
	e := &OrderCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCreated, AggregateTypeOrder, o.ID),
		Receipt:         o.Receipt,
		ItemCount:       len(o.Items),
		TotalAmount:     o.TotalAmount,
	}
	if o.ReceiptID != nil {
		e.ReceiptID = *o.ReceiptID
	}
	return e
}

// OrderUpdatedEvent is raised after an order or one of its items changed
type OrderUpdatedEvent struct {
	shared.BaseDomainEvent
	TotalAmount decimal.Decimal `json:"total_amount"`
	Status      Status          `json:"status"`
}

// NewOrderUpdatedEvent creates an OrderUpdatedEvent
func NewOrderUpdatedEvent(o *Order) *OrderUpdatedEvent {
	return &OrderUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderUpdated, AggregateTypeOrder, o.ID),
		TotalAmount:     o.TotalAmount,
		Status:          o.Status,
	}
}

// OrderItemCancelledEvent is raised for each force-cancelled item
type OrderItemCancelledEvent struct {
	shared.BaseDomainEvent
	ItemID uuid.UUID `json:"item_id"`
}

// NewOrderItemCancelledEvent creates an OrderItemCancelledEvent
func NewOrderItemCancelledEvent(orderID, itemID uuid.UUID) *OrderItemCancelledEvent {
	return &OrderItemCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderItemCancelled, AggregateTypeOrder, orderID),
		ItemID:          itemID,
	}
}

// OrderCancelledEvent is raised when every item of an order is cancelled
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
}

// NewOrderCancelledEvent creates an OrderCancelledEvent
func NewOrderCancelledEvent(orderID uuid.UUID) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, orderID),
	}
}

// OrderDeletedEvent is raised when an order is removed, explicitly or by losing its last item
type OrderDeletedEvent struct {
	shared.BaseDomainEvent
}

// NewOrderDeletedEvent creates an OrderDeletedEvent
func NewOrderDeletedEvent(orderID uuid.UUID) *OrderDeletedEvent {
	return &OrderDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDeleted, AggregateTypeOrder, orderID),
	}
}

// OrderRejectedEvent is raised after a rolled back order operation
type OrderRejectedEvent struct {
	shared.BaseDomainEvent
	Operation string `json:"operation"`
	Code      string `json:"code"`
}

// NewOrderRejectedEvent creates an OrderRejectedEvent
func NewOrderRejectedEvent(orderID uuid.UUID, operation, code string) *OrderRejectedEvent {
	return &OrderRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderRejected, AggregateTypeOrder, orderID),
		Operation:       operation,
		Code:            code,
	}
}
