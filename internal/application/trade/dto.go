package trade

import (
	"time"

	"github.com/erp/orderledger/internal/domain/inventory"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ==================== Order requests ====================

// CreateOrderRequest represents a request to create an order
type CreateOrderRequest struct {
	CustomerID    *uuid.UUID         `json:"customer_id"`
	Receipt       string             `json:"receipt" binding:"omitempty,receipt_type"`
	VATType       string             `json:"vat_type" binding:"omitempty,vat_type"`
	PaymentStatus string             `json:"payment_status" binding:"omitempty,payment_status"`
	PaidAmount    decimal.Decimal    `json:"paid_amount"`
	Credit        bool               `json:"credit"`
	Items         []OrderLineRequest `json:"items" binding:"required,dive"`
}

// OrderLineRequest represents one requested line. Package, when given,
// orders whole packages and takes precedence over quantity.
type OrderLineRequest struct {
	ProductID uuid.UUID           `json:"product_id" binding:"required"`
	Quantity  int                 `json:"quantity" binding:"min=0"`
	Package   *int                `json:"package" binding:"omitempty,min=1"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
	Unit      string              `json:"unit" binding:"max=20"`
}

// UpdateOrderRequest represents a request to update an order. Items, when
// present, is the complete desired item list: existing items missing from it
// are deleted and lines without an id are added.
type UpdateOrderRequest struct {
	CustomerID    *uuid.UUID           `json:"customer_id"`
	Credit        *bool                `json:"credit"`
	PaymentStatus *string              `json:"payment_status" binding:"omitempty,payment_status"`
	PaidDelta     decimal.NullDecimal  `json:"paid_amount"`
	Items         *[]UpdateLineRequest `json:"items" binding:"omitempty,dive"`
}

// UpdateLineRequest is one line of an order update
type UpdateLineRequest struct {
	ID        *uuid.UUID          `json:"id"`
	ProductID *uuid.UUID          `json:"product_id"`
	Quantity  *int                `json:"quantity" binding:"omitempty,min=1"`
	Package   *int                `json:"package" binding:"omitempty,min=1"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
	Unit      string              `json:"unit" binding:"max=20"`
}

// UpdateItemRequest represents a change to one item's quantity, package or unit price
type UpdateItemRequest struct {
	Quantity  *int                `json:"quantity" binding:"omitempty,min=1"`
	Package   *int                `json:"package" binding:"omitempty,min=1"`
	UnitPrice decimal.NullDecimal `json:"unit_price"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	Status        string `form:"status" binding:"omitempty,oneof=Done Pending Cancelled"`
	Receipt       string `form:"receipt" binding:"omitempty,receipt_type"`
	PaymentStatus string `form:"payment_status" binding:"omitempty,payment_status"`
	Page          int    `form:"page" binding:"omitempty,min=1"`
	PageSize      int    `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ==================== Order responses ====================

// OrderResponse represents an order in API responses
type OrderResponse struct {
	ID            uuid.UUID           `json:"id"`
	CustomerID    *uuid.UUID          `json:"customer_id,omitempty"`
	OrderDate     time.Time           `json:"order_date"`
	Status        string              `json:"status"`
	Receipt       string              `json:"receipt"`
	ReceiptID     *string             `json:"receipt_id,omitempty"`
	VATType       string              `json:"vat_type"`
	SubTotal      decimal.Decimal     `json:"sub_total"`
	VAT           decimal.Decimal     `json:"vat"`
	TotalAmount   decimal.Decimal     `json:"total_amount"`
	PaymentStatus string              `json:"payment_status"`
	PaidAmount    decimal.Decimal     `json:"paid_amount"`
	UnpaidAmount  decimal.Decimal     `json:"unpaid_amount"`
	NumberOfItems int                 `json:"number_of_items"`
	ItemPending   int                 `json:"item_pending"`
	Credit        bool                `json:"credit"`
	User          string              `json:"user"`
	UserEmail     string              `json:"user_email"`
	UserRole      string              `json:"user_role"`
	Items         []OrderItemResponse `json:"items"`
	Version       int                 `json:"version"`
	UpdatedAt     time.Time           `json:"updated_at"`
}

// OrderItemResponse represents an order item in API responses
type OrderItemResponse struct {
	ID            uuid.UUID            `json:"id"`
	ProductID     *uuid.UUID           `json:"product_id,omitempty"`
	ProductName   string               `json:"product_name"`
	Specification string               `json:"specification"`
	IsBundle      bool                 `json:"is_bundle"`
	Package       *int                 `json:"package,omitempty"`
	Quantity      int                  `json:"quantity"`
	Unit          string               `json:"unit"`
	UnitPrice     decimal.Decimal      `json:"unit_price"`
	Price         decimal.Decimal      `json:"price"`
	Cost          decimal.Decimal      `json:"cost"`
	ItemReceipt   string               `json:"item_receipt"`
	Status        string               `json:"status"`
	Allocations   []AllocationResponse `json:"allocations,omitempty"`
}

// AllocationResponse shows the stock an item holds on one product
type AllocationResponse struct {
	ProductID    uuid.UUID `json:"product_id"`
	Quantity     int       `json:"quantity"`
	Packages     int       `json:"packages"`
	ReceiptUnits int       `json:"receipt_units"`
}

// OrderResult is the outcome of an item-level operation. Order is nil when the
// operation removed the order's last item and the order was deleted.
type OrderResult struct {
	Order        *OrderResponse `json:"order,omitempty"`
	OrderDeleted bool           `json:"order_deleted"`
}

// ToOrderResponse converts a domain Order to OrderResponse
func ToOrderResponse(o *trade.Order) OrderResponse {
	items := make([]OrderItemResponse, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, ToOrderItemResponse(it))
	}
	return OrderResponse{
		ID:            o.ID,
		CustomerID:    o.CustomerID,
		OrderDate:     o.OrderDate,
		Status:        string(o.Status),
		Receipt:       string(o.Receipt),
		ReceiptID:     o.ReceiptID,
		VATType:       string(o.VATType),
		SubTotal:      o.SubTotal,
		VAT:           o.VAT,
		TotalAmount:   o.TotalAmount,
		PaymentStatus: string(o.PaymentStatus),
		PaidAmount:    o.PaidAmount,
		UnpaidAmount:  o.UnpaidAmount,
		NumberOfItems: o.NumberOfItems,
		ItemPending:   o.ItemPending,
		Credit:        o.Credit,
		User:          o.User,
		UserEmail:     o.UserEmail,
		UserRole:      o.UserRole,
		Items:         items,
		Version:       o.Version,
		UpdatedAt:     o.UpdatedAt,
	}
}

// ToOrderItemResponse converts a domain OrderItem to OrderItemResponse
func ToOrderItemResponse(it *trade.OrderItem) OrderItemResponse {
	return OrderItemResponse{
		ID:            it.ID,
		ProductID:     it.ProductID,
		ProductName:   it.ProductName,
		Specification: it.Specification,
		IsBundle:      it.IsBundle,
		Package:       it.Package,
		Quantity:      it.Quantity,
		Unit:          it.Unit,
		UnitPrice:     it.UnitPrice,
		Price:         it.Price,
		Cost:          it.Cost,
		ItemReceipt:   string(it.ItemReceipt),
		Status:        string(it.Status),
		Allocations:   toAllocationResponses(it.Allocations),
	}
}

func toAllocationResponses(allocs []inventory.Allocation) []AllocationResponse {
	if len(allocs) == 0 {
		return nil
	}
	out := make([]AllocationResponse, 0, len(allocs))
	for _, a := range allocs {
		out = append(out, AllocationResponse{
			ProductID:    a.ProductID,
			Quantity:     a.Units,
			Packages:     a.Packages,
			ReceiptUnits: a.ReceiptUnits,
		})
	}
	return out
}
