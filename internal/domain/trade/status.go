package trade

// Status is shared by orders and order items
type Status string

const (
	StatusDone      Status = "Done"
	StatusPending   Status = "Pending"
	StatusCancelled Status = "Cancelled"
)

// IsValid checks if the status is a valid Status
func (s Status) IsValid() bool {
	switch s {
	case StatusDone, StatusPending, StatusCancelled:
		return true
	}
	return false
}

// String returns the string representation of Status
func (s Status) String() string {
	return string(s)
}

// CanTransitionTo checks item transitions: Done -> Pending (request cancel),
// Pending -> Done (reject), Done|Pending -> Cancelled (force cancel).
func (s Status) CanTransitionTo(target Status) bool {
	switch s {
	case StatusDone:
		return target == StatusPending || target == StatusCancelled
	case StatusPending:
		return target == StatusDone || target == StatusCancelled
	case StatusCancelled:
		return false
	}
	return false
}

// ReceiptType says whether an order is issued with a tax receipt
type ReceiptType string

const (
	ReceiptIssued ReceiptType = "Receipt"
	ReceiptNone   ReceiptType = "No Receipt"
)

// IsValid checks if the receipt type is known
func (r ReceiptType) IsValid() bool {
	return r == ReceiptIssued || r == ReceiptNone
}

// Receipted reports whether VAT and receipt counters apply
func (r ReceiptType) Receipted() bool {
	return r == ReceiptIssued
}

// VATType says whether quoted prices already include VAT
type VATType string

const (
	VATInclusive VATType = "Inclusive"
	VATExclusive VATType = "Exclusive"
)

// IsValid checks if the VAT type is known
func (v VATType) IsValid() bool {
	return v == VATInclusive || v == VATExclusive
}

// PaymentStatus is the payment state of an order
type PaymentStatus string

const (
	PaymentPaid    PaymentStatus = "Paid"
	PaymentUnpaid  PaymentStatus = "Unpaid"
	PaymentPending PaymentStatus = "Pending"
)

// IsValid checks if the payment status is known
func (p PaymentStatus) IsValid() bool {
	switch p {
	case PaymentPaid, PaymentUnpaid, PaymentPending:
		return true
	}
	return false
}
