package trade

import (
	"fmt"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Payment is the payment part of an order
type Payment struct {
	Status PaymentStatus
	Paid   decimal.Decimal
	Unpaid decimal.Decimal
}

// Reconcile derives paid and unpaid amounts from the payment status and total.
// With autoFlip a Pending payment that leaves nothing unpaid becomes Paid.
func Reconcile(p Payment, total decimal.Decimal, autoFlip bool) Payment {
	switch p.Status {
	case PaymentPaid:
		return Payment{Status: PaymentPaid, Paid: total, Unpaid: decimal.Zero}
	case PaymentUnpaid:
		return Payment{Status: PaymentUnpaid, Paid: decimal.Zero, Unpaid: total}
	}

	unpaid := total.Sub(p.Paid)
	if unpaid.IsNegative() {
		unpaid = decimal.Zero
	}
	if autoFlip && unpaid.IsZero() {
		return Payment{Status: PaymentPaid, Paid: total, Unpaid: decimal.Zero}
	}
	return Payment{Status: PaymentPending, Paid: p.Paid, Unpaid: unpaid}
}

// ValidatePaid checks 0 <= paid <= total
func ValidatePaid(paid, total decimal.Decimal) error {
	if paid.IsNegative() || paid.GreaterThan(total) {
		return shared.NewDomainError(shared.CodeNegativePayment,
			fmt.Sprintf("Paid amount %s must be between 0 and the order total %s", paid.StringFixed(2), total.StringFixed(2)))
	}
	return nil
}
