package models

import (
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	AggregateModel
	Name          string              `gorm:"type:varchar(200);not null;index:idx_product_identity,priority:1"`
	CategoryID    *uuid.UUID          `gorm:"type:uuid;index:idx_product_identity,priority:2"`
	SupplierID    *uuid.UUID          `gorm:"type:uuid;index"`
	Specification string              `gorm:"type:varchar(200);not null;default:'';index:idx_product_identity,priority:3"`
	Unit          string              `gorm:"type:varchar(20);not null;default:'Pcs'"`
	Package       *int                `gorm:"column:package"`
	Piece         *int                `gorm:"column:piece"`
	Stock         *int                `gorm:"column:stock"`
	ReceiptNo     *int                `gorm:"column:receipt_no"`
	BuyingPrice   decimal.NullDecimal `gorm:"type:decimal(18,2)"`
	SellingPrice  decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	IsBundle      bool                `gorm:"not null;default:false"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: m.ToAggregateRoot(),
		Name:              m.Name,
		CategoryID:        m.CategoryID,
		SupplierID:        m.SupplierID,
		Specification:     m.Specification,
		Unit:              m.Unit,
		Package:           m.Package,
		Piece:             m.Piece,
		Stock:             m.Stock,
		ReceiptNo:         m.ReceiptNo,
		BuyingPrice:       m.BuyingPrice,
		SellingPrice:      m.SellingPrice,
		IsBundle:          m.IsBundle,
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.Name = p.Name
	m.CategoryID = p.CategoryID
	m.SupplierID = p.SupplierID
	m.Specification = p.Specification
	m.Unit = p.Unit
	m.Package = p.Package
	m.Piece = p.Piece
	m.Stock = p.Stock
	m.ReceiptNo = p.ReceiptNo
	m.BuyingPrice = p.BuyingPrice
	m.SellingPrice = p.SellingPrice
	m.IsBundle = p.IsBundle
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}

// BundleModel is the persistence model for the Bundle domain entity.
type BundleModel struct {
	BaseModel
	ProductID  uuid.UUID              `gorm:"type:uuid;not null;uniqueIndex"`
	Components []BundleComponentModel `gorm:"foreignKey:BundleID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (BundleModel) TableName() string {
	return "bundles"
}

// BundleComponentModel is one component row of a bundle.
type BundleComponentModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primary_key"`
	BundleID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bundle_component,priority:1"`
	ProductID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_bundle_component,priority:2"`
	Quantity  int       `gorm:"not null;default:1"`
	Position  int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (BundleComponentModel) TableName() string {
	return "bundle_components"
}

// ToDomain converts the persistence model to a domain Bundle entity.
func (m *BundleModel) ToDomain() *catalog.Bundle {
	b := &catalog.Bundle{
		BaseEntity: m.BaseModel.ToDomain(),
		ProductID:  m.ProductID,
		Components: make([]catalog.Component, 0, len(m.Components)),
	}
	for _, c := range m.Components {
		b.Components = append(b.Components, catalog.Component{ID: c.ID, ProductID: c.ProductID, Quantity: c.Quantity})
	}
	return b
}

// BundleModelFromDomain creates a new persistence model from a domain Bundle entity.
func BundleModelFromDomain(b *catalog.Bundle) *BundleModel {
	m := &BundleModel{ProductID: b.ProductID}
	m.FromDomainBaseEntity(b.BaseEntity)
	for i, c := range b.Components {
		m.Components = append(m.Components, BundleComponentModel{
			ID:        c.ID,
			BundleID:  b.ID,
			ProductID: c.ProductID,
			Quantity:  c.Quantity,
			Position:  i,
		})
	}
	return m
}
