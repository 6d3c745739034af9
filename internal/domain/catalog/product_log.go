package catalog

import (
	"context"

	"github.com/google/uuid"
)

// Product log actions
const (
	ProductActionStockUpdate  = "Stock Update"
	ProductActionPriceChange  = "Selling Price Change"
	ProductActionCreate       = "Create"
	ProductActionBundleChange = "Bundle Update"
)

// ProductLogEntry is one append-only change record for a product
type ProductLogEntry struct {
	ProductID   uuid.UUID
	ProductName string
	Action      string
	FieldName   string
	OldValue    string
	NewValue    string
	Actor       string
}

// ProductLogSink receives product change records inside the caller's transaction
type ProductLogSink interface {
	RecordProductChange(ctx context.Context, entry ProductLogEntry) error
}
