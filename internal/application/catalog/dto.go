package catalog

import (
	"time"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateProductRequest represents a request to create a product
type CreateProductRequest struct {
	Name          string              `json:"name" binding:"required,min=1,max=200"`
	CategoryID    *uuid.UUID          `json:"category_id"`
	SupplierID    *uuid.UUID          `json:"supplier_id"`
	Specification string              `json:"specification" binding:"max=200"`
	Unit          string              `json:"unit" binding:"max=20"`
	Package       *int                `json:"package" binding:"omitempty,min=0"`
	Piece         *int                `json:"piece" binding:"omitempty,min=0"`
	Stock         *int                `json:"stock" binding:"omitempty,min=0"`
	ReceiptNo     *int                `json:"receipt_no" binding:"omitempty,min=0"`
	BuyingPrice   decimal.NullDecimal `json:"buying_price"`
	SellingPrice  decimal.Decimal     `json:"selling_price"`
}

// AdjustStockRequest restocks a product by packages or by units. Exactly one must be set.
type AdjustStockRequest struct {
	AddPackages *int `json:"add_packages"`
	AddStock    *int `json:"add_stock"`
}

// ChangeSellingPriceRequest represents a selling price change
type ChangeSellingPriceRequest struct {
	SellingPrice decimal.Decimal `json:"selling_price" binding:"required"`
}

// ProductResponse represents a product in API responses
type ProductResponse struct {
	ID            uuid.UUID        `json:"id"`
	Name          string           `json:"name"`
	CategoryID    *uuid.UUID       `json:"category_id,omitempty"`
	SupplierID    *uuid.UUID       `json:"supplier_id,omitempty"`
	Specification string           `json:"specification"`
	Unit          string           `json:"unit"`
	Package       *int             `json:"package"`
	Piece         *int             `json:"piece"`
	Stock         *int             `json:"stock"`
	ReceiptNo     *int             `json:"receipt_no"`
	BuyingPrice   *decimal.Decimal `json:"buying_price"`
	SellingPrice  decimal.Decimal  `json:"selling_price"`
	IsBundle      bool             `json:"is_bundle"`
	Version       int              `json:"version"`
	UpdatedAt     time.Time        `json:"updated_at"`
}

// ToProductResponse converts a domain Product to ProductResponse
func ToProductResponse(p *catalog.Product) ProductResponse {
	resp := ProductResponse{
		ID:            p.ID,
		Name:          p.Name,
		CategoryID:    p.CategoryID,
		SupplierID:    p.SupplierID,
		Specification: p.Specification,
		Unit:          p.Unit,
		Package:       p.Package,
		Piece:         p.Piece,
		Stock:         p.Stock,
		ReceiptNo:     p.ReceiptNo,
		SellingPrice:  p.SellingPrice,
		IsBundle:      p.IsBundle,
		Version:       p.Version,
		UpdatedAt:     p.UpdatedAt,
	}
	if p.BuyingPrice.Valid {
		v := p.BuyingPrice.Decimal
		resp.BuyingPrice = &v
	}
	return resp
}

// ComponentRequest is one component of a bundle request
type ComponentRequest struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"min=0"`
}

// CreateBundleRequest creates a bundle for a product, or adds components to its existing bundle
type CreateBundleRequest struct {
	ProductID  uuid.UUID          `json:"product_id" binding:"required"`
	Components []ComponentRequest `json:"components" binding:"required,min=1,dive"`
}

// UpdateBundleRequest replaces a bundle's component list
type UpdateBundleRequest struct {
	Components []ComponentRequest `json:"components" binding:"required,min=1,dive"`
}

// BundleResponse represents a bundle in API responses
type BundleResponse struct {
	ID         uuid.UUID           `json:"id"`
	ProductID  uuid.UUID           `json:"product_id"`
	Components []ComponentResponse `json:"components"`
}

// ComponentResponse represents a bundle component in API responses
type ComponentResponse struct {
	ID        uuid.UUID `json:"id"`
	ProductID uuid.UUID `json:"product_id"`
	Quantity  int       `json:"quantity"`
}

// ToBundleResponse converts a domain Bundle to BundleResponse
func ToBundleResponse(b *catalog.Bundle) BundleResponse {
	comps := make([]ComponentResponse, 0, len(b.Components))
	for _, c := range b.Components {
		comps = append(comps, ComponentResponse{ID: c.ID, ProductID: c.ProductID, Quantity: c.Quantity})
	}
	return BundleResponse{ID: b.ID, ProductID: b.ProductID, Components: comps}
}

func toComponentSpecs(reqs []ComponentRequest) []catalog.ComponentSpec {
	specs := make([]catalog.ComponentSpec, 0, len(reqs))
	for _, r := range reqs {
		specs = append(specs, catalog.ComponentSpec{ProductID: r.ProductID, Quantity: r.Quantity})
	}
	return specs
}
