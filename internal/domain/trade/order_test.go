package trade

import (
	"errors"
	"testing"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/inventory"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pricing = NewPricingEngine(DefaultVATRate)

func newTestProduct(price string) *catalog.Product {
	stock := 100
	return &catalog.Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              "Cement",
		Specification:     "50kg",
		Unit:              "Bag",
		Stock:             &stock,
		SellingPrice:      dec(price),
		BuyingPrice:       decimal.NewNullDecimal(dec("3.00")),
	}
}

func newTestOrder(t *testing.T, in NewOrderInput, quantities ...int) *Order {
	t.Helper()
	o, err := NewOrder(in)
	require.NoError(t, err)
	for _, q := range quantities {
		item, err := NewOrderItem(pricing, NewOrderItemInput{Product: newTestProduct("5.00"), Quantity: q, Receipt: o.Receipt})
		require.NoError(t, err)
		o.AddItem(item)
	}
	return o
}

func TestNewOrder(t *testing.T) {
	t.Run("applies defaults", func(t *testing.T) {
		o, err := NewOrder(NewOrderInput{Actor: shared.Actor{Name: "abebe", Email: "a@example.com", Role: "salesman"}})
		require.NoError(t, err)
		assert.Equal(t, ReceiptNone, o.Receipt)
		assert.Equal(t, VATInclusive, o.VATType)
		assert.Equal(t, PaymentPaid, o.PaymentStatus)
		assert.Equal(t, StatusDone, o.Status)
		assert.Equal(t, "salesman", o.UserRole)
		assert.Equal(t, o.CreatedAt, o.OrderDate)
	})

	t.Run("rejects unknown enums", func(t *testing.T) {
		_, err := NewOrder(NewOrderInput{Receipt: "Maybe"})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
		_, err = NewOrder(NewOrderInput{VATType: "Sometimes"})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("rejects negative paid amount", func(t *testing.T) {
		_, err := NewOrder(NewOrderInput{PaymentStatus: PaymentPending, PaidAmount: dec("-1")})
		assert.True(t, errors.Is(err, shared.ErrNegativePayment))
	})
}

func TestOrder_AssignReceiptID(t *testing.T) {
	receipted := newTestOrder(t, NewOrderInput{Receipt: ReceiptIssued})
	receipted.AssignReceiptID(7)
	require.NotNil(t, receipted.ReceiptID)
	assert.Equal(t, "0007", *receipted.ReceiptID)

	receipted.AssignReceiptID(12345)
	assert.Equal(t, "12345", *receipted.ReceiptID)

	plain := newTestOrder(t, NewOrderInput{Receipt: ReceiptNone})
	plain.AssignReceiptID(3)
	assert.Nil(t, plain.ReceiptID)
}

func TestOrder_Refresh(t *testing.T) {
	t.Run("unreceipted line totals", func(t *testing.T) {
		o := newTestOrder(t, NewOrderInput{Receipt: ReceiptNone}, 10)

		d := o.Refresh(pricing, TotalsByVATType, false)
		assert.False(t, d.Empty)
		assert.Equal(t, "50.00", o.Items[0].Price.StringFixed(2))
		assert.Equal(t, "50.00", o.SubTotal.StringFixed(2))
		assert.True(t, o.VAT.IsZero())
		assert.Equal(t, "50.00", o.TotalAmount.StringFixed(2))
		assert.Equal(t, "50.00", o.PaidAmount.StringFixed(2))
		assert.Equal(t, 1, o.NumberOfItems)
	})

	t.Run("update mode is inclusive even for exclusive orders", func(t *testing.T) {
		o := newTestOrder(t, NewOrderInput{Receipt: ReceiptIssued, VATType: VATExclusive}, 23)

		o.Refresh(pricing, TotalsByVATType, false)
		assert.Equal(t, "132.25", o.TotalAmount.StringFixed(2))

		o.Refresh(pricing, TotalsInclusive, true)
		assert.Equal(t, "115.00", o.TotalAmount.StringFixed(2))
		assert.Equal(t, "100.00", o.SubTotal.StringFixed(2))
	})

	t.Run("all cancelled zeroes financials", func(t *testing.T) {
		o := newTestOrder(t, NewOrderInput{PaymentStatus: PaymentPending, PaidAmount: dec("10")}, 2, 3)
		o.Refresh(pricing, TotalsByVATType, false)
		for _, it := range o.Items {
			_, err := it.Cancel()
			require.NoError(t, err)
		}

		d := o.Refresh(pricing, TotalsByVATType, true)
		assert.Equal(t, StatusCancelled, d.Status)
		assert.Equal(t, StatusCancelled, o.Status)
		assert.Equal(t, PaymentUnpaid, o.PaymentStatus)
		assert.True(t, o.TotalAmount.IsZero())
		assert.True(t, o.PaidAmount.IsZero())
		assert.True(t, o.UnpaidAmount.IsZero())
	})

	t.Run("empty order reports deletion", func(t *testing.T) {
		o := newTestOrder(t, NewOrderInput{}, 1)
		_, err := o.RemoveItem(o.Items[0].ID)
		require.NoError(t, err)

		d := o.Refresh(pricing, TotalsInclusive, true)
		assert.True(t, d.Empty)
		assert.Len(t, o.RemovedItemIDs(), 1)
	})

	t.Run("pending payment splits paid and unpaid", func(t *testing.T) {
		o := newTestOrder(t, NewOrderInput{PaymentStatus: PaymentPending, PaidAmount: dec("20")}, 10)
		o.Refresh(pricing, TotalsByVATType, false)
		require.NoError(t, o.ValidateInitialPayment())
		assert.True(t, o.PaidAmount.Add(o.UnpaidAmount).Equal(o.TotalAmount))
	})

	t.Run("overpaid pending order fails validation on create", func(t *testing.T) {
		o := newTestOrder(t, NewOrderInput{PaymentStatus: PaymentPending, PaidAmount: dec("80")}, 10)
		o.Refresh(pricing, TotalsByVATType, false)
		assert.True(t, errors.Is(o.ValidateInitialPayment(), shared.ErrNegativePayment))
	})
}

func TestOrder_ApplyPaidDelta(t *testing.T) {
	t.Run("accumulates and flips when settled", func(t *testing.T) {
		o := newTestOrder(t, NewOrderInput{PaymentStatus: PaymentPending, PaidAmount: dec("20")}, 10)
		o.Refresh(pricing, TotalsByVATType, false)

		require.NoError(t, o.ApplyPaidDelta(dec("10"), true))
		assert.Equal(t, "30.00", o.PaidAmount.StringFixed(2))
		assert.Equal(t, "20.00", o.UnpaidAmount.StringFixed(2))

		require.NoError(t, o.ApplyPaidDelta(dec("20"), true))
		assert.Equal(t, PaymentPaid, o.PaymentStatus)
		assert.True(t, o.UnpaidAmount.IsZero())
	})

	t.Run("rejects going negative or beyond total", func(t *testing.T) {
		o := newTestOrder(t, NewOrderInput{PaymentStatus: PaymentPending, PaidAmount: dec("20")}, 10)
		o.Refresh(pricing, TotalsByVATType, false)

		assert.True(t, errors.Is(o.ApplyPaidDelta(dec("-21"), true), shared.ErrNegativePayment))
		assert.True(t, errors.Is(o.ApplyPaidDelta(dec("31"), true), shared.ErrNegativePayment))
		assert.Equal(t, "20.00", o.PaidAmount.StringFixed(2))
	})

	t.Run("only pending orders take a delta", func(t *testing.T) {
		o := newTestOrder(t, NewOrderInput{PaymentStatus: PaymentPaid}, 10)
		o.Refresh(pricing, TotalsByVATType, false)

		assert.NoError(t, o.ApplyPaidDelta(decimal.Zero, true))
		assert.True(t, errors.Is(o.ApplyPaidDelta(dec("1"), true), shared.ErrInvalidTransition))
	})
}

func TestOrder_Item(t *testing.T) {
	o := newTestOrder(t, NewOrderInput{}, 1)

	got, err := o.Item(o.Items[0].ID)
	require.NoError(t, err)
	assert.Same(t, o.Items[0], got)

	_, err = o.Item(uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	_, err = o.RemoveItem(uuid.New())
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestOrderItem_Transitions(t *testing.T) {
	newItem := func(t *testing.T) *OrderItem {
		item, err := NewOrderItem(pricing, NewOrderItemInput{
			Product:     newTestProduct("5.00"),
			Quantity:    4,
			Allocations: []inventory.Allocation{{Units: 4}},
		})
		require.NoError(t, err)
		return item
	}

	t.Run("new item is priced and costed", func(t *testing.T) {
		item := newItem(t)
		assert.Equal(t, StatusDone, item.Status)
		assert.Equal(t, "20.00", item.Price.StringFixed(2))
		assert.Equal(t, "12.00", item.Cost.StringFixed(2))
		assert.Equal(t, "Bag", item.Unit)
	})

	t.Run("unit price override wins", func(t *testing.T) {
		item, err := NewOrderItem(pricing, NewOrderItemInput{
			Product:   newTestProduct("5.00"),
			Quantity:  2,
			UnitPrice: decimal.NewNullDecimal(dec("7.50")),
		})
		require.NoError(t, err)
		assert.Equal(t, "15.00", item.Price.StringFixed(2))
	})

	t.Run("cancel zeroes and releases once", func(t *testing.T) {
		item := newItem(t)
		released, err := item.Cancel()
		require.NoError(t, err)
		assert.Equal(t, []inventory.Allocation{{Units: 4}}, released)
		assert.Equal(t, 0, item.Quantity)
		require.NotNil(t, item.Package)
		assert.Equal(t, 0, *item.Package)
		assert.True(t, item.Price.IsZero())
		assert.True(t, item.UnitPrice.IsZero())
		assert.True(t, item.Cost.IsZero())

		_, err = item.Cancel()
		assert.True(t, errors.Is(err, shared.ErrAlreadyCancelled))
	})

	t.Run("request and reject cancel", func(t *testing.T) {
		item := newItem(t)
		require.NoError(t, item.RequestCancel())
		assert.Equal(t, StatusPending, item.Status)
		assert.True(t, errors.Is(item.RequestCancel(), shared.ErrInvalidTransition))
		assert.True(t, errors.Is(item.EnsureAdjustable(), shared.ErrInvalidTransition))

		require.NoError(t, item.RejectCancel())
		assert.Equal(t, StatusDone, item.Status)
		assert.True(t, errors.Is(item.RejectCancel(), shared.ErrInvalidTransition))
		assert.NoError(t, item.EnsureAdjustable())
	})

	t.Run("cancelled item refuses every transition", func(t *testing.T) {
		item := newItem(t)
		_, err := item.Cancel()
		require.NoError(t, err)
		assert.True(t, errors.Is(item.RequestCancel(), shared.ErrAlreadyCancelled))
		assert.True(t, errors.Is(item.RejectCancel(), shared.ErrAlreadyCancelled))
		assert.True(t, errors.Is(item.EnsureAdjustable(), shared.ErrInvalidTransition))
	})
}
