package catalog

import (
	"context"

	"github.com/google/uuid"
)

// ProductRepository defines persistence operations for products
type ProductRepository interface {
	// FindByID loads a product without locking
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// FindByIDsForUpdate loads and row-locks products in id order
	FindByIDsForUpdate(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*Product, error)
	// ExistsByIdentity checks the (name, category, specification) uniqueness rule
	ExistsByIdentity(ctx context.Context, name string, categoryID *uuid.UUID, specification string) (bool, error)
	Create(ctx context.Context, product *Product) error
	// Save persists counters and prices, failing with CONCURRENCY_CONFLICT on a stale version
	Save(ctx context.Context, product *Product) error
}

// BundleRepository defines persistence operations for bundles
type BundleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Bundle, error)
	FindByProductID(ctx context.Context, productID uuid.UUID) (*Bundle, error)
	FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*Bundle, error)
	// Save upserts the bundle row and replaces its component rows
	Save(ctx context.Context, bundle *Bundle) error
	Delete(ctx context.Context, id uuid.UUID) error
}
