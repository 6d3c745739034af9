package trade

import (
	"context"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository persists orders together with their items and allocations
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByIDForUpdate loads and row-locks the order inside a transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindOrderIDByItemID resolves the order an item belongs to
	FindOrderIDByItemID(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error)
	List(ctx context.Context, filter shared.Filter) ([]*Order, int64, error)
	Create(ctx context.Context, order *Order) error
	// Save writes the order header, upserts its items and deletes removed ones
	Save(ctx context.Context, order *Order) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ReceiptSequence hands out receipt numbers per receipt type
type ReceiptSequence interface {
	// Next returns the number for the next order of that type, starting at 0
	Next(ctx context.Context, receipt ReceiptType) (int, error)
}
