package trade

// Derived is the order state implied by its items
type Derived struct {
	Status      Status
	ItemPending int
	Empty       bool
}

// DeriveStatus computes order status and item_pending from item statuses.
// An empty order must be deleted by the caller.
func DeriveStatus(items []*OrderItem) Derived {
	if len(items) == 0 {
		return Derived{Empty: true}
	}
	var done, pending, cancelled int
	for _, it := range items {
		switch it.Status {
		case StatusDone:
			done++
		case StatusPending:
			pending++
		case StatusCancelled:
			cancelled++
		}
	}
	switch {
	case cancelled == len(items):
		return Derived{Status: StatusCancelled}
	case done > 0:
		return Derived{Status: StatusDone, ItemPending: pending}
	default:
		return Derived{Status: StatusPending}
	}
}
