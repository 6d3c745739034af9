package catalog

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultUnit is the unit label used when none is given
const DefaultUnit = "Pcs"

// Product is a stocked article. Stock, Package, Piece and ReceiptNo are
// nullable because not every product tracks every counter.
type Product struct {
	shared.BaseAggregateRoot
	Name          string
	CategoryID    *uuid.UUID
	SupplierID    *uuid.UUID
	Specification string
	Unit          string
	Package       *int // packages in stock
	Piece         *int // units per package
	Stock         *int // individual units in stock
	ReceiptNo     *int // units available for receipted sales
	BuyingPrice   decimal.NullDecimal
	SellingPrice  decimal.Decimal
	IsBundle      bool
}

// NewProductInput carries the fields for NewProduct
type NewProductInput struct {
	Name          string
	CategoryID    *uuid.UUID
	SupplierID    *uuid.UUID
	Specification string
	Unit          string
	Package       *int
	Piece         *int
	Stock         *int
	ReceiptNo     *int
	BuyingPrice   decimal.NullDecimal
	SellingPrice  decimal.Decimal
}

// NewProduct creates a product. When package and piece are both given and
// stock is not, stock is derived as package * piece.
func NewProduct(in NewProductInput) (*Product, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, shared.InvalidInput("Product name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.InvalidInput("Product name cannot exceed 200 characters")
	}
	for label, v := range map[string]*int{"package": in.Package, "piece": in.Piece, "stock": in.Stock, "receipt_no": in.ReceiptNo} {
		if v != nil && *v < 0 {
			return nil, shared.InvalidInput(fmt.Sprintf("Product %s cannot be negative", label))
		}
	}
	if in.SellingPrice.IsNegative() {
		return nil, shared.InvalidInput("Selling price cannot be negative")
	}
	if in.BuyingPrice.Valid && in.BuyingPrice.Decimal.IsNegative() {
		return nil, shared.InvalidInput("Buying price cannot be negative")
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		CategoryID:        in.CategoryID,
		SupplierID:        in.SupplierID,
		Specification:     strings.TrimSpace(in.Specification),
		Unit:              NormalizeUnit(in.Unit),
		Package:           in.Package,
		Piece:             in.Piece,
		Stock:             in.Stock,
		ReceiptNo:         in.ReceiptNo,
		BuyingPrice:       in.BuyingPrice,
		SellingPrice:      in.SellingPrice,
	}
	if p.Stock == nil && p.Package != nil && p.Piece != nil {
		stock := *p.Package * *p.Piece
		p.Stock = &stock
	}
	return p, nil
}

var unitCaser = cases.Title(language.Und)

// NormalizeUnit title-cases a unit label ("pcs" -> "Pcs")
func NormalizeUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return DefaultUnit
	}
	return unitCaser.String(unit)
}

// TracksStock reports whether the product has a stock level
func (p *Product) TracksStock() bool {
	return p.Stock != nil
}

// SoldByPackage reports whether package arithmetic applies
func (p *Product) SoldByPackage() bool {
	return p.Piece != nil && *p.Piece > 0
}

// CostFor returns the buying cost of units; zero when no buying price is set
func (p *Product) CostFor(units int) decimal.Decimal {
	if !p.BuyingPrice.Valid {
		return decimal.Zero
	}
	return p.BuyingPrice.Decimal.Mul(decimal.NewFromInt(int64(units))).Round(2)
}

// ChangeSellingPrice sets a new selling price and returns the old one
func (p *Product) ChangeSellingPrice(price decimal.Decimal) (decimal.Decimal, error) {
	if price.IsNegative() {
		return decimal.Zero, shared.InvalidInput("Selling price cannot be negative")
	}
	old := p.SellingPrice
	p.SellingPrice = price
	p.UpdatedAt = time.Now()
	return old, nil
}

// MarkBundle flags or unflags the product as a bundle
func (p *Product) MarkBundle(isBundle bool) {
	p.IsBundle = isBundle
	p.UpdatedAt = time.Now()
}

func intValue(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}
