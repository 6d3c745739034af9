package inventory

import "github.com/google/uuid"

// Allocation is the cumulative stock an order line holds on one product.
// Releasing it applies the exact inverse of what was taken.
type Allocation struct {
	ProductID    uuid.UUID
	Units        int
	Packages     int
	ReceiptUnits int
}

// IsEmpty reports whether nothing is held
func (a Allocation) IsEmpty() bool {
	return a.Units == 0 && a.Packages == 0 && a.ReceiptUnits == 0
}

// Find returns the allocation for a product, or nil
func Find(allocs []Allocation, productID uuid.UUID) *Allocation {
	for i := range allocs {
		if allocs[i].ProductID == productID {
			return &allocs[i]
		}
	}
	return nil
}
