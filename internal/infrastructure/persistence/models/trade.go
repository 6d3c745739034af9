package models

import (
	"time"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/inventory"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	CustomerID    *uuid.UUID       `gorm:"type:uuid;index"`
	OrderDate     time.Time        `gorm:"not null;index"`
	Status        string           `gorm:"type:varchar(20);not null;default:'Done';index"`
	Receipt       string           `gorm:"type:varchar(20);not null;default:'No Receipt';index"`
	ReceiptID     *string          `gorm:"type:varchar(20)"`
	VATType       string           `gorm:"column:vat_type;type:varchar(20);not null;default:'Inclusive'"`
	SubTotal      decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	VAT           decimal.Decimal  `gorm:"column:vat;type:decimal(18,2);not null;default:0"`
	TotalAmount   decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentStatus string           `gorm:"type:varchar(20);not null;default:'Paid';index"`
	PaidAmount    decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	UnpaidAmount  decimal.Decimal  `gorm:"type:decimal(18,2);not null;default:0"`
	NumberOfItems int              `gorm:"not null;default:0"`
	ItemPending   int              `gorm:"not null;default:0"`
	Credit        bool             `gorm:"not null;default:false"`
	UserName      string           `gorm:"column:user_name;type:varchar(100)"`
	UserEmail     string           `gorm:"type:varchar(200)"`
	UserRole      string           `gorm:"type:varchar(50)"`
	Items         []OrderItemModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// ToDomain converts the persistence model to a domain Order aggregate.
func (m *OrderModel) ToDomain() *trade.Order {
	o := &trade.Order{
		BaseAggregateRoot: m.ToAggregateRoot(),
		CustomerID:        m.CustomerID,
		OrderDate:         m.OrderDate,
		Status:            trade.Status(m.Status),
		Receipt:           trade.ReceiptType(m.Receipt),
		ReceiptID:         m.ReceiptID,
		VATType:           trade.VATType(m.VATType),
		SubTotal:          m.SubTotal,
		VAT:               m.VAT,
		TotalAmount:       m.TotalAmount,
		PaymentStatus:     trade.PaymentStatus(m.PaymentStatus),
		PaidAmount:        m.PaidAmount,
		UnpaidAmount:      m.UnpaidAmount,
		NumberOfItems:     m.NumberOfItems,
		ItemPending:       m.ItemPending,
		Credit:            m.Credit,
		User:              m.UserName,
		UserEmail:         m.UserEmail,
		UserRole:          m.UserRole,
		Items:             make([]*trade.OrderItem, 0, len(m.Items)),
	}
	for i := range m.Items {
		o.Items = append(o.Items, m.Items[i].ToDomain())
	}
	return o
}

// FromDomain populates the header columns from a domain Order. Items are
// handled separately by the repository.
func (m *OrderModel) FromDomain(o *trade.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.CustomerID = o.CustomerID
	m.OrderDate = o.OrderDate
	m.Status = string(o.Status)
	m.Receipt = string(o.Receipt)
	m.ReceiptID = o.ReceiptID
	m.VATType = string(o.VATType)
	m.SubTotal = o.SubTotal
	m.VAT = o.VAT
	m.TotalAmount = o.TotalAmount
	m.PaymentStatus = string(o.PaymentStatus)
	m.PaidAmount = o.PaidAmount
	m.UnpaidAmount = o.UnpaidAmount
	m.NumberOfItems = o.NumberOfItems
	m.ItemPending = o.ItemPending
	m.Credit = o.Credit
	m.UserName = o.User
	m.UserEmail = o.UserEmail
	m.UserRole = o.UserRole
}

// OrderModelFromDomain creates a header-only persistence model from a domain Order.
func OrderModelFromDomain(o *trade.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// OrderItemModel is the persistence model for an order line.
type OrderItemModel struct {
	BaseModel
	OrderID       uuid.UUID             `gorm:"type:uuid;not null;index"`
	ProductID     *uuid.UUID            `gorm:"type:uuid;index"`
	ProductName   string                `gorm:"type:varchar(200);not null"`
	Specification string                `gorm:"type:varchar(200);not null;default:''"`
	IsBundle      bool                  `gorm:"not null;default:false"`
	Package       *int                  `gorm:"column:package"`
	Quantity      int                   `gorm:"not null;default:0"`
	Unit          string                `gorm:"type:varchar(20);not null"`
	UnitPrice     decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Price         decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	Cost          decimal.Decimal       `gorm:"type:decimal(18,2);not null;default:0"`
	ItemReceipt   string                `gorm:"type:varchar(20);not null"`
	Status        string                `gorm:"type:varchar(20);not null;default:'Done'"`
	Allocations   []ItemAllocationModel `gorm:"foreignKey:OrderItemID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// ToDomain converts the persistence model to a domain OrderItem.
func (m *OrderItemModel) ToDomain() *trade.OrderItem {
	item := &trade.OrderItem{
		BaseEntity:    m.BaseModel.ToDomain(),
		OrderID:       m.OrderID,
		ProductID:     m.ProductID,
		ProductName:   m.ProductName,
		Specification: m.Specification,
		IsBundle:      m.IsBundle,
		Package:       m.Package,
		Quantity:      m.Quantity,
		Unit:          m.Unit,
		UnitPrice:     m.UnitPrice,
		Price:         m.Price,
		Cost:          m.Cost,
		ItemReceipt:   trade.ReceiptType(m.ItemReceipt),
		Status:        trade.Status(m.Status),
	}
	for _, a := range m.Allocations {
		item.Allocations = append(item.Allocations, a.ToDomain())
	}
	return item
}

// OrderItemModelFromDomain creates a persistence model, allocations included,
// from a domain OrderItem.
func OrderItemModelFromDomain(item *trade.OrderItem) *OrderItemModel {
	m := &OrderItemModel{
		OrderID:       item.OrderID,
		ProductID:     item.ProductID,
		ProductName:   item.ProductName,
		Specification: item.Specification,
		IsBundle:      item.IsBundle,
		Package:       item.Package,
		Quantity:      item.Quantity,
		Unit:          item.Unit,
		UnitPrice:     item.UnitPrice,
		Price:         item.Price,
		Cost:          item.Cost,
		ItemReceipt:   string(item.ItemReceipt),
		Status:        string(item.Status),
	}
	m.FromDomainBaseEntity(item.BaseEntity)
	m.Allocations = AllocationModelsFromDomain(item.ID, item.Allocations)
	return m
}

// ItemAllocationModel records the stock an order item holds on one product,
// so that cancellation can restore exactly what was taken.
type ItemAllocationModel struct {
	ID           uuid.UUID `gorm:"type:uuid;primary_key"`
	OrderItemID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_item_allocation,priority:1"`
	ProductID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_item_allocation,priority:2"`
	Units        int       `gorm:"not null;default:0"`
	Packages     int       `gorm:"not null;default:0"`
	ReceiptUnits int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ItemAllocationModel) TableName() string {
	return "order_item_allocations"
}

// ToDomain converts the persistence model to a domain Allocation.
func (m *ItemAllocationModel) ToDomain() inventory.Allocation {
	return inventory.Allocation{
		ProductID:    m.ProductID,
		Units:        m.Units,
		Packages:     m.Packages,
		ReceiptUnits: m.ReceiptUnits,
	}
}

// AllocationModelsFromDomain converts the non-empty allocations of an item.
func AllocationModelsFromDomain(itemID uuid.UUID, allocs []inventory.Allocation) []ItemAllocationModel {
	out := make([]ItemAllocationModel, 0, len(allocs))
	for _, a := range allocs {
		if a.IsEmpty() {
			continue
		}
		out = append(out, ItemAllocationModel{
			ID:           uuid.New(),
			OrderItemID:  itemID,
			ProductID:    a.ProductID,
			Units:        a.Units,
			Packages:     a.Packages,
			ReceiptUnits: a.ReceiptUnits,
		})
	}
	return out
}

// ReceiptSequenceModel holds the next receipt number per receipt type.
type ReceiptSequenceModel struct {
	Receipt string `gorm:"type:varchar(20);primary_key"`
	NextVal int    `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (ReceiptSequenceModel) TableName() string {
	return "receipt_sequences"
}

// ActorColumns are the user columns shared by every log table.
type ActorColumns struct {
	UserName  string `gorm:"column:user_name;type:varchar(100)"`
	UserEmail string `gorm:"type:varchar(200)"`
	UserRole  string `gorm:"type:varchar(50)"`
}

func newActorColumns(a shared.Actor) ActorColumns {
	return ActorColumns{UserName: a.Name, UserEmail: a.Email, UserRole: a.Role}
}

// OrderLogModel is one order log row. It keeps no foreign key to orders so
// that history outlives the order.
type OrderLogModel struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`
	ActorColumns
	Action        string          `gorm:"type:varchar(30);not null"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductName   string          `gorm:"type:varchar(200)"`
	Specification string          `gorm:"type:varchar(200)"`
	IsBundle      bool            `gorm:"not null;default:false"`
	Quantity      int             `gorm:"not null;default:0"`
	Price         decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Note          string          `gorm:"type:varchar(255)"`
	CreatedAt     time.Time       `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (OrderLogModel) TableName() string {
	return "order_logs"
}

// OrderLogModelFromDomain creates a log row from an order event.
func OrderLogModelFromDomain(e trade.OrderEvent) *OrderLogModel {
	return &OrderLogModel{
		ID:            uuid.New(),
		ActorColumns:  newActorColumns(e.Actor),
		Action:        e.Action,
		OrderID:       e.OrderID,
		ProductName:   e.ProductName,
		Specification: e.Specification,
		IsBundle:      e.IsBundle,
		Quantity:      e.Quantity,
		Price:         e.Price,
		Note:          e.Note,
		CreatedAt:     time.Now(),
	}
}

// OrderPaymentLogModel is one payment field change row.
type OrderPaymentLogModel struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`
	ActorColumns
	OrderID    uuid.UUID  `gorm:"type:uuid;not null;index"`
	CustomerID *uuid.UUID `gorm:"type:uuid"`
	ChangeType string     `gorm:"type:varchar(30);not null"`
	FieldName  string     `gorm:"type:varchar(50);not null"`
	OldValue   string     `gorm:"type:varchar(100)"`
	NewValue   string     `gorm:"type:varchar(100)"`
	CreatedAt  time.Time  `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (OrderPaymentLogModel) TableName() string {
	return "order_payment_logs"
}

// OrderPaymentLogModelFromDomain creates a payment log row from a field change.
func OrderPaymentLogModelFromDomain(c trade.PaymentFieldChange) *OrderPaymentLogModel {
	return &OrderPaymentLogModel{
		ID:           uuid.New(),
		ActorColumns: newActorColumns(c.Actor),
		OrderID:      c.OrderID,
		CustomerID:   c.CustomerID,
		ChangeType:   c.ChangeType,
		FieldName:    c.FieldName,
		OldValue:     c.OldValue,
		NewValue:     c.NewValue,
		CreatedAt:    time.Now(),
	}
}

// ReportModel is a denormalized sold-line row.
type ReportModel struct {
	ID uuid.UUID `gorm:"type:uuid;primary_key"`
	ActorColumns
	CustomerName  string          `gorm:"type:varchar(200);not null"`
	CustomerPhone string          `gorm:"type:varchar(50)"`
	CustomerTIN   string          `gorm:"column:customer_tin;type:varchar(50)"`
	OrderDate     time.Time       `gorm:"not null;index"`
	OrderID       uuid.UUID       `gorm:"type:uuid;not null;index"`
	Receipt       string          `gorm:"type:varchar(20);not null"`
	Unit          string          `gorm:"type:varchar(20)"`
	ProductName   string          `gorm:"type:varchar(200);not null"`
	Specification string          `gorm:"type:varchar(200)"`
	UnitPrice     decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	Quantity      int             `gorm:"not null;default:0"`
	SubTotal      decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	VAT           decimal.Decimal `gorm:"column:vat;type:decimal(18,2);not null;default:0"`
	PaymentStatus string          `gorm:"type:varchar(20);not null"`
	TotalAmount   decimal.Decimal `gorm:"type:decimal(18,2);not null;default:0"`
	CreatedAt     time.Time       `gorm:"not null"`
}

// TableName returns the table name for GORM
func (ReportModel) TableName() string {
	return "reports"
}

// ReportModelFromDomain creates a report row from a sold line.
func ReportModelFromDomain(l trade.SoldLine) *ReportModel {
	return &ReportModel{
		ID:            uuid.New(),
		ActorColumns:  newActorColumns(l.Actor),
		CustomerName:  l.CustomerName,
		CustomerPhone: l.CustomerPhone,
		CustomerTIN:   l.CustomerTIN,
		OrderDate:     l.OrderDate,
		OrderID:       l.OrderID,
		Receipt:       string(l.Receipt),
		Unit:          l.Unit,
		ProductName:   l.ProductName,
		Specification: l.Specification,
		UnitPrice:     l.UnitPrice,
		Quantity:      l.Quantity,
		SubTotal:      l.SubTotal,
		VAT:           l.VAT,
		PaymentStatus: string(l.PaymentStatus),
		TotalAmount:   l.TotalAmount,
		CreatedAt:     time.Now(),
	}
}

// ProductLogModel is one product change row.
type ProductLogModel struct {
	ID          uuid.UUID `gorm:"type:uuid;primary_key"`
	ProductID   uuid.UUID `gorm:"type:uuid;not null;index"`
	ProductName string    `gorm:"type:varchar(200);not null"`
	Action      string    `gorm:"type:varchar(30);not null"`
	FieldName   string    `gorm:"type:varchar(50)"`
	OldValue    string    `gorm:"type:text"`
	NewValue    string    `gorm:"type:text"`
	UserName    string    `gorm:"column:user_name;type:varchar(100)"`
	CreatedAt   time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ProductLogModel) TableName() string {
	return "product_logs"
}

// ProductLogModelFromDomain creates a product log row from a change entry.
func ProductLogModelFromDomain(e catalog.ProductLogEntry) *ProductLogModel {
	return &ProductLogModel{
		ID:          uuid.New(),
		ProductID:   e.ProductID,
		ProductName: e.ProductName,
		Action:      e.Action,
		FieldName:   e.FieldName,
		OldValue:    e.OldValue,
		NewValue:    e.NewValue,
		UserName:    e.Actor,
		CreatedAt:   time.Now(),
	}
}
