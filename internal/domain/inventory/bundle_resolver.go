package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductSource yields products already locked by the current transaction
type ProductSource interface {
	Product(ctx context.Context, id uuid.UUID) (*catalog.Product, error)
}

// BundleFinder looks up a bundle by its product
type BundleFinder interface {
	FindByProductID(ctx context.Context, productID uuid.UUID) (*catalog.Bundle, error)
}

// ComponentNeed is one component product and how many units each bundle unit consumes
type ComponentNeed struct {
	Product *catalog.Product
	PerUnit int
}

// BundleResolver expands bundle products into their components
type BundleResolver struct {
	bundles  BundleFinder
	products ProductSource
	ledger   *StockLedger
}

// NewBundleResolver creates a BundleResolver
func NewBundleResolver(bundles BundleFinder, products ProductSource, ledger *StockLedger) *BundleResolver {
	return &BundleResolver{bundles: bundles, products: products, ledger: ledger}
}

// Resolve returns the components of a bundle product in definition order
func (r *BundleResolver) Resolve(ctx context.Context, product *catalog.Product) ([]ComponentNeed, error) {
	bundle, err := r.bundles.FindByProductID(ctx, product.ID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.NewDomainError(shared.CodeBundleNotFound,
				fmt.Sprintf("Product %s is flagged as a bundle but has no bundle definition", product.Name))
		}
		return nil, err
	}

	needs := make([]ComponentNeed, 0, len(bundle.Components))
	for _, c := range bundle.Components {
		p, err := r.products.Product(ctx, c.ProductID)
		if err != nil {
			return nil, fmt.Errorf("load component %s: %w", c.ProductID, err)
		}
		needs = append(needs, ComponentNeed{Product: p, PerUnit: c.Quantity})
	}
	return needs, nil
}

// Reserve takes quantity units of the bundle product and the matching component
// units. Every product is checked before any is mutated.
func (r *BundleResolver) Reserve(ctx context.Context, bundleProduct *catalog.Product, quantity int) ([]Allocation, error) {
	if quantity <= 0 {
		return nil, shared.InvalidInput("Quantity must be positive")
	}
	needs, err := r.Resolve(ctx, bundleProduct)
	if err != nil {
		return nil, err
	}

	if err := bundleProduct.CheckDelta(unitDelta(quantity)); err != nil {
		return nil, err
	}
	for _, n := range needs {
		if err := n.Product.CheckDelta(unitDelta(n.PerUnit * quantity)); err != nil {
			return nil, err
		}
	}

	allocs := make([]Allocation, 0, len(needs)+1)
	take := func(p *catalog.Product, units int) error {
		change, err := r.ledger.Apply(ctx, p, unitDelta(units))
		if err != nil {
			return err
		}
		allocs = append(allocs, Allocation{ProductID: p.ID, Units: -change.Units, Packages: -change.Packages})
		return nil
	}
	if err := take(bundleProduct, quantity); err != nil {
		return nil, err
	}
	for _, n := range needs {
		if err := take(n.Product, n.PerUnit*quantity); err != nil {
			return nil, err
		}
	}
	return allocs, nil
}

// ReleasePart gives back units bundle units from allocations that currently
// back held units, scaling each allocation proportionally. The returned slice
// holds the reduced allocations.
func (r *BundleResolver) ReleasePart(ctx context.Context, allocs []Allocation, held, units int) ([]Allocation, error) {
	if units <= 0 || units > held {
		return nil, shared.InvalidInput("Invalid bundle quantity to release")
	}
	out := make([]Allocation, len(allocs))
	for i, a := range allocs {
		p, err := r.products.Product(ctx, a.ProductID)
		if err != nil {
			return nil, err
		}
		give := a.Units / held * units
		if _, err := r.ledger.Apply(ctx, p, catalog.StockDelta{Units: give, PackagesExplicit: true}); err != nil {
			return nil, err
		}
		a.Units -= give
		out[i] = a
	}
	return out, nil
}

// Merge adds more allocations onto existing ones by product
func Merge(existing, more []Allocation) []Allocation {
	out := append([]Allocation(nil), existing...)
	for _, m := range more {
		if a := Find(out, m.ProductID); a != nil {
			a.Units += m.Units
			a.Packages += m.Packages
			a.ReceiptUnits += m.ReceiptUnits
			continue
		}
		out = append(out, m)
	}
	return out
}

func unitDelta(units int) catalog.StockDelta {
	return catalog.StockDelta{Units: -units, PackagesExplicit: true}
}
