package trade

import (
	"context"
	"time"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order log actions
const (
	ActionCreate        = "Create"
	ActionUpdate        = "Update"
	ActionRequestCancel = "Request Cancel"
	ActionCancel        = "Cancel"
	ActionRejectCancel  = "Reject Cancel"
	ActionDelete        = "Delete"
)

// Notes attached to order log entries
const (
	NoteCreatedItem     = "Created Order Item"
	NoteRequestedCancel = "Salesman requested cancellation"
)

// Payment log change types
const (
	ChangeStatusCreate  = "Status Create"
	ChangePaymentCreate = "Payment Create"
	ChangeStatusChange  = "Status Change"
	ChangePaymentUpdate = "Payment Update"
)

// AnonymousCustomer is the report name for orders without a customer
const AnonymousCustomer = "Anonymous Customer"

// OrderEvent is one order log entry
type OrderEvent struct {
	Actor         shared.Actor
	Action        string
	OrderID       uuid.UUID
	ProductName   string
	Specification string
	IsBundle      bool
	Quantity      int
	Price         decimal.Decimal
	Note          string
}

// NewOrderEvent builds a log entry describing an item
func NewOrderEvent(actor shared.Actor, action string, item *OrderItem, note string) OrderEvent {
	return OrderEvent{
		Actor:         actor,
		Action:        action,
		OrderID:       item.OrderID,
		ProductName:   item.ProductName,
		Specification: item.Specification,
		IsBundle:      item.IsBundle,
		Quantity:      item.Quantity,
		Price:         item.Price,
		Note:          note,
	}
}

// AuditSink receives order log entries inside the order transaction
type AuditSink interface {
	RecordOrderEvent(ctx context.Context, event OrderEvent) error
}

// Buyer is the customer data copied into report rows
type Buyer struct {
	Name  string
	Phone string
	TIN   string
}

// SoldLine is a denormalized report row for one sold item
type SoldLine struct {
	Actor         shared.Actor
	CustomerName  string
	CustomerPhone string
	CustomerTIN   string
	OrderDate     time.Time
	OrderID       uuid.UUID
	Receipt       ReceiptType
	Unit          string
	ProductName   string
	Specification string
	UnitPrice     decimal.Decimal
	Quantity      int
	SubTotal      decimal.Decimal
	VAT           decimal.Decimal
	PaymentStatus PaymentStatus
	TotalAmount   decimal.Decimal
}

// NewSoldLine builds the report row of an item. VAT is present only on
// receipted orders; a nil buyer is reported as an anonymous customer.
func NewSoldLine(pricing PricingEngine, actor shared.Actor, order *Order, item *OrderItem, buyer *Buyer) SoldLine {
	line := SoldLine{
		Actor:         actor,
		CustomerName:  AnonymousCustomer,
		OrderDate:     order.OrderDate,
		OrderID:       order.ID,
		Receipt:       order.Receipt,
		Unit:          item.Unit,
		ProductName:   item.ProductName,
		Specification: item.Specification,
		UnitPrice:     item.UnitPrice,
		Quantity:      item.Quantity,
		PaymentStatus: order.PaymentStatus,
	}
	if buyer != nil {
		line.CustomerName = buyer.Name
		line.CustomerPhone = buyer.Phone
		line.CustomerTIN = buyer.TIN
	}
	t := pricing.LineVAT(item.Price, order.VATType, order.Receipt)
	line.SubTotal = t.SubTotal
	line.VAT = t.VAT
	line.TotalAmount = t.TotalAmount
	return line
}

// ReportSink receives sold-line report rows
type ReportSink interface {
	RecordSoldLine(ctx context.Context, line SoldLine) error
}

// PaymentFieldChange is one payment log entry
type PaymentFieldChange struct {
	OrderID    uuid.UUID
	CustomerID *uuid.UUID
	ChangeType string
	FieldName  string
	OldValue   string
	NewValue   string
	Actor      shared.Actor
}

// PaymentAuditSink receives payment log entries
type PaymentAuditSink interface {
	RecordFieldChange(ctx context.Context, change PaymentFieldChange) error
}

// PaymentCreateEntries returns the three entries logged when an order is created
func PaymentCreateEntries(order *Order, actor shared.Actor) []PaymentFieldChange {
	p := order.Payment()
	return []PaymentFieldChange{
		paymentEntry(order, actor, ChangeStatusCreate, "payment_status", "", string(p.Status)),
		paymentEntry(order, actor, ChangePaymentCreate, "paid_amount", "", p.Paid.StringFixed(2)),
		paymentEntry(order, actor, ChangePaymentCreate, "unpaid_amount", "", p.Unpaid.StringFixed(2)),
	}
}

// PaymentChanges returns entries only for the fields that differ
func PaymentChanges(order *Order, actor shared.Actor, before Payment) []PaymentFieldChange {
	after := order.Payment()
	var out []PaymentFieldChange
	if before.Status != after.Status {
		out = append(out, paymentEntry(order, actor, ChangeStatusChange, "payment_status", string(before.Status), string(after.Status)))
	}
	if !before.Paid.Equal(after.Paid) {
		out = append(out, paymentEntry(order, actor, ChangePaymentUpdate, "paid_amount", before.Paid.StringFixed(2), after.Paid.StringFixed(2)))
	}
	if !before.Unpaid.Equal(after.Unpaid) {
		out = append(out, paymentEntry(order, actor, ChangePaymentUpdate, "unpaid_amount", before.Unpaid.StringFixed(2), after.Unpaid.StringFixed(2)))
	}
	return out
}

func paymentEntry(order *Order, actor shared.Actor, changeType, field, oldValue, newValue string) PaymentFieldChange {
	return PaymentFieldChange{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		ChangeType: changeType,
		FieldName:  field,
		OldValue:   oldValue,
		NewValue:   newValue,
		Actor:      actor,
	}
}
