package trade

import (
	"fmt"
	"time"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AggregateTypeOrder is the aggregate type for Order
const AggregateTypeOrder = "Order"

// TotalsMode selects how Refresh derives order amounts from line prices
type TotalsMode int

const (
	// TotalsByVATType follows the order's own VAT type
	TotalsByVATType TotalsMode = iota
	// TotalsInclusive treats line prices as VAT-inclusive; used by order update
	TotalsInclusive
)

// Order is the order aggregate root
type Order struct {
	shared.BaseAggregateRoot
	CustomerID    *uuid.UUID
	OrderDate     time.Time
	Status        Status
	Receipt       ReceiptType
	ReceiptID     *string
	VATType       VATType
	SubTotal      decimal.Decimal
	VAT           decimal.Decimal
	TotalAmount   decimal.Decimal
	PaymentStatus PaymentStatus
	PaidAmount    decimal.Decimal
	UnpaidAmount  decimal.Decimal
	NumberOfItems int
	ItemPending   int
	Credit        bool
	User          string
	UserEmail     string
	UserRole      string
	Items         []*OrderItem

	removedItemIDs []uuid.UUID
}

// NewOrderInput carries the header fields of a new order
type NewOrderInput struct {
	CustomerID    *uuid.UUID
	Receipt       ReceiptType
	VATType       VATType
	PaymentStatus PaymentStatus
	PaidAmount    decimal.Decimal
	Credit        bool
	Actor         shared.Actor
}

// NewOrder creates an order without items. Empty enum fields take the
// defaults No Receipt, Inclusive and Paid.
func NewOrder(in NewOrderInput) (*Order, error) {
	if in.Receipt == "" {
		in.Receipt = ReceiptNone
	}
	if in.VATType == "" {
		in.VATType = VATInclusive
	}
	if in.PaymentStatus == "" {
		in.PaymentStatus = PaymentPaid
	}
	if !in.Receipt.IsValid() {
		return nil, shared.InvalidInput(fmt.Sprintf("Unknown receipt type %q", in.Receipt))
	}
	if !in.VATType.IsValid() {
		return nil, shared.InvalidInput(fmt.Sprintf("Unknown VAT type %q", in.VATType))
	}
	if !in.PaymentStatus.IsValid() {
		return nil, shared.InvalidInput(fmt.Sprintf("Unknown payment status %q", in.PaymentStatus))
	}
	if in.PaidAmount.IsNegative() {
		return nil, shared.ErrNegativePayment
	}

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		CustomerID:        in.CustomerID,
		Status:            StatusDone,
		Receipt:           in.Receipt,
		VATType:           in.VATType,
		PaymentStatus:     in.PaymentStatus,
		PaidAmount:        in.PaidAmount,
		Credit:            in.Credit,
		User:              in.Actor.Name,
		UserEmail:         in.Actor.Email,
		UserRole:          in.Actor.Role,
	}
	o.OrderDate = o.CreatedAt
	return o, nil
}

// AssignReceiptID sets the zero-padded receipt number; unreceipted orders keep none
func (o *Order) AssignReceiptID(seq int) {
	if !o.Receipt.Receipted() {
		o.ReceiptID = nil
		return
	}
	id := fmt.Sprintf("%04d", seq)
	o.ReceiptID = &id
}

// AddItem appends an item to the order
func (o *Order) AddItem(item *OrderItem) {
	item.OrderID = o.ID
	o.Items = append(o.Items, item)
}

// Item returns the item with the given id
func (o *Order) Item(id uuid.UUID) (*OrderItem, error) {
	for _, it := range o.Items {
		if it.ID == id {
			return it, nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Order item %s not found in order %s", id, o.ID))
}

// RemoveItem detaches an item; the repository deletes it on save
func (o *Order) RemoveItem(id uuid.UUID) (*OrderItem, error) {
	for i, it := range o.Items {
		if it.ID == id {
			o.Items = append(o.Items[:i], o.Items[i+1:]...)
			o.removedItemIDs = append(o.removedItemIDs, id)
			return it, nil
		}
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Order item %s not found in order %s", id, o.ID))
}

// RemovedItemIDs returns items detached since load
func (o *Order) RemovedItemIDs() []uuid.UUID {
	return o.removedItemIDs
}

// ClearRemovedItems forgets detached items after they were deleted
func (o *Order) ClearRemovedItems() {
	o.removedItemIDs = nil
}

// Payment returns the current payment fields
func (o *Order) Payment() Payment {
	return Payment{Status: o.PaymentStatus, Paid: o.PaidAmount, Unpaid: o.UnpaidAmount}
}

// Refresh recomputes status, counters, totals and payment split from the
// items. It reports Empty when no item is left and the order must be deleted.
func (o *Order) Refresh(pricing PricingEngine, mode TotalsMode, autoFlip bool) Derived {
	d := DeriveStatus(o.Items)
	o.NumberOfItems = len(o.Items)
	if d.Empty {
		return d
	}
	o.Status = d.Status
	o.ItemPending = d.ItemPending

	if d.Status == StatusCancelled {
		o.SubTotal = decimal.Zero
		o.VAT = decimal.Zero
		o.TotalAmount = decimal.Zero
		o.PaymentStatus = PaymentUnpaid
		o.PaidAmount = decimal.Zero
		o.UnpaidAmount = decimal.Zero
		o.Touch()
		return d
	}

	prices := make([]decimal.Decimal, 0, len(o.Items))
	for _, it := range o.Items {
		prices = append(prices, it.Price)
	}
	var totals Totals
	if mode == TotalsInclusive {
		totals = pricing.InclusiveTotals(prices, o.Receipt)
	} else {
		totals = pricing.OrderTotals(prices, o.VATType, o.Receipt)
	}
	o.SubTotal = totals.SubTotal
	o.VAT = totals.VAT
	o.TotalAmount = totals.TotalAmount
	o.setPayment(Reconcile(o.Payment(), o.TotalAmount, autoFlip))
	o.Touch()
	return d
}

// ValidateInitialPayment checks the paid amount of a Pending order against its total
func (o *Order) ValidateInitialPayment() error {
	if o.PaymentStatus != PaymentPending {
		return nil
	}
	return ValidatePaid(o.PaidAmount, o.TotalAmount)
}

// ChangePaymentStatus switches payment status and re-derives the split
func (o *Order) ChangePaymentStatus(status PaymentStatus, autoFlip bool) error {
	if !status.IsValid() {
		return shared.InvalidInput(fmt.Sprintf("Unknown payment status %q", status))
	}
	if o.Status == StatusCancelled && status != PaymentUnpaid {
		return shared.InvalidTransition("A cancelled order cannot change payment status")
	}
	o.PaymentStatus = status
	o.setPayment(Reconcile(o.Payment(), o.TotalAmount, autoFlip))
	return nil
}

// ApplyPaidDelta adds delta to the paid amount of a Pending order. A zero
// delta is a no-op whatever the status.
func (o *Order) ApplyPaidDelta(delta decimal.Decimal, autoFlip bool) error {
	if delta.IsZero() {
		return nil
	}
	if o.PaymentStatus != PaymentPending {
		return shared.InvalidTransition(fmt.Sprintf("Paid amount can only change while payment is %s", PaymentPending))
	}
	paid := o.PaidAmount.Add(delta)
	if err := ValidatePaid(paid, o.TotalAmount); err != nil {
		return err
	}
	o.PaidAmount = paid
	o.setPayment(Reconcile(o.Payment(), o.TotalAmount, autoFlip))
	return nil
}

// ReconcilePayment re-derives paid and unpaid from the payment status and
// the current total.
func (o *Order) ReconcilePayment(autoFlip bool) {
	o.setPayment(Reconcile(o.Payment(), o.TotalAmount, autoFlip))
}

func (o *Order) setPayment(p Payment) {
	o.PaymentStatus = p.Status
	o.PaidAmount = p.Paid
	o.UnpaidAmount = p.Unpaid
}
