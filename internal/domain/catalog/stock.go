package catalog

import (
	"fmt"
	"time"

	"github.com/erp/orderledger/internal/domain/shared"
)

// StockDelta is a signed change to a product's counters. Negative values consume stock.
//
// When PackagesExplicit is set the package count is authoritative and changes by
// Packages. Otherwise, if the product has both piece and package, package is
// re-derived as floor(stock / piece) after the unit change.
type StockDelta struct {
	Units            int
	Packages         int
	PackagesExplicit bool
	ReceiptUnits     int
}

// StockChange reports what ApplyDelta actually changed on each counter.
type StockChange struct {
	Units        int
	Packages     int
	ReceiptUnits int
}

// CheckDelta validates a delta without mutating the product.
func (p *Product) CheckDelta(d StockDelta) error {
	_, _, _, err := p.planDelta(d)
	return err
}

// ApplyDelta mutates stock, package and receipt_no. Nothing changes when any
// counter would become negative.
func (p *Product) ApplyDelta(d StockDelta) (StockChange, error) {
	stock, pkg, receipt, err := p.planDelta(d)
	if err != nil {
		return StockChange{}, err
	}

	change := StockChange{
		Units:        stock - intValue(p.Stock),
		Packages:     intValue(pkg) - intValue(p.Package),
		ReceiptUnits: intValue(receipt) - intValue(p.ReceiptNo),
	}
	p.Stock = &stock
	p.Package = pkg
	p.ReceiptNo = receipt
	p.UpdatedAt = time.Now()
	return change, nil
}

func (p *Product) planDelta(d StockDelta) (int, *int, *int, error) {
	if p.Stock == nil {
		return 0, nil, nil, shared.InvalidInput(fmt.Sprintf("Product %s has no stock level recorded", p.Name))
	}

	stock := *p.Stock + d.Units
	if stock < 0 {
		return 0, nil, nil, shared.InsufficientStock(p.Name, "stock", -d.Units, *p.Stock)
	}

	pkg := p.Package
	switch {
	case d.PackagesExplicit:
		if p.Package == nil {
			if d.Packages < 0 {
				return 0, nil, nil, shared.InsufficientStock(p.Name, "package", -d.Packages, 0)
			}
			break
		}
		v := *p.Package + d.Packages
		if v < 0 {
			return 0, nil, nil, shared.InsufficientStock(p.Name, "package", -d.Packages, *p.Package)
		}
		pkg = &v
	case d.Units != 0 && p.Package != nil && p.SoldByPackage():
		v := stock / *p.Piece
		pkg = &v
	}

	receipt := p.ReceiptNo
	if p.ReceiptNo != nil && d.ReceiptUnits != 0 {
		v := *p.ReceiptNo + d.ReceiptUnits
		if v < 0 {
			return 0, nil, nil, shared.InsufficientStock(p.Name, "receipt stock", -d.ReceiptUnits, *p.ReceiptNo)
		}
		receipt = &v
	}

	return stock, pkg, receipt, nil
}

// AddPackages restocks whole packages: stock = piece * (package + n) + stock mod piece.
func (p *Product) AddPackages(n int) (StockChange, error) {
	if !p.SoldByPackage() {
		return StockChange{}, shared.InvalidInput(fmt.Sprintf("Product %s has no piece count", p.Name))
	}
	if p.Stock == nil {
		p.Stock = new(int)
	}
	if p.Package == nil {
		p.Package = new(int)
	}
	piece := *p.Piece
	oldPkg := intValue(p.Package)
	oldStock := intValue(p.Stock)

	newPkg := oldPkg + n
	if newPkg < 0 {
		return StockChange{}, shared.InsufficientStock(p.Name, "package", -n, oldPkg)
	}
	newStock := piece*newPkg + oldStock%piece
	return p.ApplyDelta(StockDelta{
		Units:            newStock - oldStock,
		Packages:         n,
		PackagesExplicit: true,
	})
}

// AddStock restocks individual units; package is re-derived when piece is set.
func (p *Product) AddStock(n int) (StockChange, error) {
	if p.Stock == nil {
		p.Stock = new(int)
	}
	if p.Package == nil && p.SoldByPackage() {
		p.Package = new(int)
	}
	return p.ApplyDelta(StockDelta{Units: n})
}
