package inventory

import (
	"context"
	"fmt"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductWriter persists mutated product counters
type ProductWriter interface {
	Save(ctx context.Context, product *catalog.Product) error
}

// Demand is what one order line asks of a simple product
type Demand struct {
	Quantity  int  // units, used when Packages is nil
	Packages  *int // whole packages; quantity becomes Packages * piece
	Receipted bool
}

// StockLedger applies counter changes to products and persists each one
// immediately, unless staging is used for a bulk restock.
type StockLedger struct {
	writer ProductWriter
	staged map[uuid.UUID]*catalog.Product
	order  []uuid.UUID
}

// NewStockLedger creates a ledger bound to a transactional product writer
func NewStockLedger(writer ProductWriter) *StockLedger {
	return &StockLedger{
		writer: writer,
		staged: make(map[uuid.UUID]*catalog.Product),
	}
}

// Reserve takes stock for a new order line and returns the allocation and the
// number of units taken.
func (l *StockLedger) Reserve(ctx context.Context, p *catalog.Product, d Demand) (Allocation, int, error) {
	alloc := Allocation{ProductID: p.ID}
	units := d.Quantity

	if d.Packages != nil {
		if !p.SoldByPackage() {
			return alloc, 0, shared.InvalidInput(fmt.Sprintf("Product %s is not sold by package", p.Name))
		}
		if *d.Packages <= 0 {
			return alloc, 0, shared.InvalidInput("Package must be positive")
		}
		units = *d.Packages * *p.Piece
	}
	if units <= 0 {
		return alloc, 0, shared.InvalidInput("Quantity must be positive")
	}

	if err := l.Take(ctx, p, &alloc, units, d.Packages, d.Receipted); err != nil {
		return Allocation{ProductID: p.ID}, 0, err
	}
	return alloc, units, nil
}

// Take consumes units more stock for an allocation (negative units give stock
// back). packages, when set, is an explicit package delta in the same direction.
// Receipt units follow units for receipted lines; on give-back they never exceed
// what the allocation holds.
func (l *StockLedger) Take(ctx context.Context, p *catalog.Product, alloc *Allocation, units int, packages *int, receipted bool) error {
	delta := catalog.StockDelta{Units: -units}
	if packages != nil {
		delta.Packages = -*packages
		delta.PackagesExplicit = true
	}
	if receipted {
		if units > 0 {
			delta.ReceiptUnits = -units
		} else {
			delta.ReceiptUnits = min(-units, alloc.ReceiptUnits)
		}
	}

	change, err := l.Apply(ctx, p, delta)
	if err != nil {
		return err
	}
	alloc.Units -= change.Units
	alloc.Packages -= change.Packages
	alloc.ReceiptUnits -= change.ReceiptUnits
	return nil
}

// Release gives back everything an allocation holds
func (l *StockLedger) Release(ctx context.Context, p *catalog.Product, alloc Allocation) error {
	_, err := l.Apply(ctx, p, inverse(alloc))
	return err
}

// Apply mutates the product and persists it
func (l *StockLedger) Apply(ctx context.Context, p *catalog.Product, d catalog.StockDelta) (catalog.StockChange, error) {
	change, err := p.ApplyDelta(d)
	if err != nil {
		return change, err
	}
	if err := l.writer.Save(ctx, p); err != nil {
		return change, fmt.Errorf("save product %s: %w", p.ID, err)
	}
	return change, nil
}

// StageRelease gives back an allocation in memory; Flush persists staged products.
func (l *StockLedger) StageRelease(p *catalog.Product, alloc Allocation) error {
	if _, err := p.ApplyDelta(inverse(alloc)); err != nil {
		return err
	}
	if _, ok := l.staged[p.ID]; !ok {
		l.order = append(l.order, p.ID)
	}
	l.staged[p.ID] = p
	return nil
}

// Flush saves every staged product once
func (l *StockLedger) Flush(ctx context.Context) error {
	for _, id := range l.order {
		if err := l.writer.Save(ctx, l.staged[id]); err != nil {
			return fmt.Errorf("save product %s: %w", id, err)
		}
	}
	l.staged = make(map[uuid.UUID]*catalog.Product)
	l.order = nil
	return nil
}

func inverse(alloc Allocation) catalog.StockDelta {
	return catalog.StockDelta{
		Units:            alloc.Units,
		Packages:         alloc.Packages,
		PackagesExplicit: true,
		ReceiptUnits:     alloc.ReceiptUnits,
	}
}
