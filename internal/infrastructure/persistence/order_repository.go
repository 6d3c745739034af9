package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/erp/orderledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// orderFilterColumns maps list filter keys to columns
var orderFilterColumns = map[string]string{
	"status":         "status",
	"receipt":        "receipt",
	"payment_status": "payment_status",
	"customer_id":    "customer_id",
}

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func (r *GormOrderRepository) withItems(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at, id")
		}).
		Preload("Items.Allocations")
}

// FindByID loads an order with its items and allocations
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var model models.OrderModel
	if err := r.withItems(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForUpdate row-locks the order header, then loads the aggregate
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var locked models.OrderModel
	if err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&locked, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return r.FindByID(ctx, id)
}

// FindOrderIDByItemID resolves the order an item belongs to
func (r *GormOrderRepository) FindOrderIDByItemID(ctx context.Context, itemID uuid.UUID) (uuid.UUID, error) {
	var item models.OrderItemModel
	if err := r.db.WithContext(ctx).
		Select("id", "order_id").
		First(&item, "id = ?", itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return uuid.Nil, shared.NewDomainError(shared.CodeNotFound, "Order item not found")
		}
		return uuid.Nil, err
	}
	return item.OrderID, nil
}

// List returns a page of orders, newest first, with the total match count
func (r *GormOrderRepository) List(ctx context.Context, filter shared.Filter) ([]*trade.Order, int64, error) {
	filter = filter.Normalize()

	var total int64
	if err := r.applyFilter(r.db.WithContext(ctx).Model(&models.OrderModel{}), filter).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortField, _ := filter.Filters["sort"].(string)
	sortOrder, _ := filter.Filters["order"].(string)

	var rows []models.OrderModel
	if err := r.applyFilter(r.withItems(ctx), filter).
		Clauses(orderSort.orderBy(sortField, sortOrder)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]*trade.Order, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].ToDomain())
	}
	return out, total, nil
}

func (r *GormOrderRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	for key, column := range orderFilterColumns {
		if v, ok := filter.Filters[key]; ok {
			query = query.Where(column+" = ?", v)
		}
	}
	return query
}

// Create inserts the order header, its items and their allocations
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Create(models.OrderModelFromDomain(order)).Error; err != nil {
		return err
	}
	for _, item := range order.Items {
		if err := r.insertItem(db, models.OrderItemModelFromDomain(item)); err != nil {
			return err
		}
	}
	return nil
}

// Save writes the header with optimistic locking, upserts every item,
// replaces their allocations and deletes removed items.
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	db := r.db.WithContext(ctx)
	now := time.Now()
	order.UpdatedAt = now
	header := models.OrderModelFromDomain(order)

	result := db.Model(&models.OrderModel{}).
		Where("id = ? AND version = ?", order.ID, order.Version).
		Updates(map[string]any{
			"customer_id":     header.CustomerID,
			"status":          header.Status,
			"receipt_id":      header.ReceiptID,
			"sub_total":       header.SubTotal,
			"vat":             header.VAT,
			"total_amount":    header.TotalAmount,
			"payment_status":  header.PaymentStatus,
			"paid_amount":     header.PaidAmount,
			"unpaid_amount":   header.UnpaidAmount,
			"number_of_items": header.NumberOfItems,
			"item_pending":    header.ItemPending,
			"credit":          header.Credit,
			"version":         order.Version + 1,
			"updated_at":      now,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.NewDomainError(shared.CodeConcurrency, "Order was modified by another transaction")
	}

	if removed := order.RemovedItemIDs(); len(removed) > 0 {
		if err := deleteItems(db, removed); err != nil {
			return err
		}
	}
	for _, item := range order.Items {
		m := models.OrderItemModelFromDomain(item)
		allocs := m.Allocations
		m.Allocations = nil
		if err := db.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"product_id", "package", "quantity", "unit", "unit_price",
				"price", "cost", "item_receipt", "status", "updated_at",
			}),
		}).Create(m).Error; err != nil {
			return err
		}
		if err := db.Where("order_item_id = ?", item.ID).Delete(&models.ItemAllocationModel{}).Error; err != nil {
			return err
		}
		if len(allocs) > 0 {
			if err := db.Create(&allocs).Error; err != nil {
				return err
			}
		}
	}

	order.Version++
	order.ClearRemovedItems()
	return nil
}

// Delete removes the order, its items and their allocations. Log and report
// rows are kept.
func (r *GormOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	var itemIDs []uuid.UUID
	if err := db.Model(&models.OrderItemModel{}).Where("order_id = ?", id).Pluck("id", &itemIDs).Error; err != nil {
		return err
	}
	if len(itemIDs) > 0 {
		if err := deleteItems(db, itemIDs); err != nil {
			return err
		}
	}
	result := db.Delete(&models.OrderModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormOrderRepository) insertItem(db *gorm.DB, m *models.OrderItemModel) error {
	allocs := m.Allocations
	m.Allocations = nil
	if err := db.Create(m).Error; err != nil {
		return err
	}
	if len(allocs) == 0 {
		return nil
	}
	return db.Create(&allocs).Error
}

func deleteItems(db *gorm.DB, ids []uuid.UUID) error {
	if err := db.Where("order_item_id IN ?", ids).Delete(&models.ItemAllocationModel{}).Error; err != nil {
		return err
	}
	return db.Where("id IN ?", ids).Delete(&models.OrderItemModel{}).Error
}

// Ensure GormOrderRepository implements OrderRepository
var _ trade.OrderRepository = (*GormOrderRepository)(nil)
