package catalog

import (
	"time"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
)

// Bundle names the product that is sold as a bundle of components
type Bundle struct {
	shared.BaseEntity
	ProductID  uuid.UUID
	Components []Component
}

// Component is one product consumed per bundle unit
type Component struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	Quantity  int
}

// ComponentSpec is the requested shape of a component
type ComponentSpec struct {
	ProductID uuid.UUID
	Quantity  int
}

// NewBundle creates an empty bundle for a product
func NewBundle(productID uuid.UUID) *Bundle {
	return &Bundle{
		BaseEntity: shared.NewBaseEntity(),
		ProductID:  productID,
	}
}

// AddComponents appends components, rejecting duplicates within the request
// and against components already present.
func (b *Bundle) AddComponents(specs []ComponentSpec) error {
	seen := make(map[uuid.UUID]struct{}, len(b.Components)+len(specs))
	for _, c := range b.Components {
		seen[c.ProductID] = struct{}{}
	}

	added := make([]Component, 0, len(specs))
	for _, spec := range specs {
		if spec.ProductID == uuid.Nil {
			return shared.InvalidInput("Component product is required")
		}
		if spec.ProductID == b.ProductID {
			return shared.InvalidInput("A bundle cannot contain itself")
		}
		if _, dup := seen[spec.ProductID]; dup {
			return shared.ErrDuplicateComponent
		}
		qty := spec.Quantity
		if qty == 0 {
			qty = 1
		}
		if qty < 0 {
			return shared.InvalidInput("Component quantity must be positive")
		}
		seen[spec.ProductID] = struct{}{}
		added = append(added, Component{ID: uuid.New(), ProductID: spec.ProductID, Quantity: qty})
	}

	b.Components = append(b.Components, added...)
	b.UpdatedAt = time.Now()
	return nil
}

// ReplaceComponents swaps the component list for a new one
func (b *Bundle) ReplaceComponents(specs []ComponentSpec) error {
	previous := b.Components
	b.Components = nil
	if err := b.AddComponents(specs); err != nil {
		b.Components = previous
		return err
	}
	return nil
}

// ComponentProductIDs lists the component product ids in order
func (b *Bundle) ComponentProductIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(b.Components))
	for _, c := range b.Components {
		ids = append(ids, c.ProductID)
	}
	return ids
}
