package persistence

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/orderledger/internal/application/transaction"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/inventory"
	"github.com/erp/orderledger/internal/domain/partner"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/erp/orderledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testPricing = trade.NewPricingEngine(decimal.RequireFromString("0.15"))

var testActor = shared.Actor{Name: "alice", Email: "alice@example.com", Role: "sales"}

// newStoredOrder builds an order with one item per product and persists it
func newStoredOrder(t *testing.T, repo *GormOrderRepository, products ...*catalog.Product) *trade.Order {
	t.Helper()
	order, err := trade.NewOrder(trade.NewOrderInput{Actor: testActor})
	require.NoError(t, err)
	for _, p := range products {
		item, err := trade.NewOrderItem(testPricing, trade.NewOrderItemInput{
			OrderID:     order.ID,
			Product:     p,
			Quantity:    2,
			Receipt:     order.Receipt,
			Allocations: []inventory.Allocation{{ProductID: p.ID, Units: 2}},
		})
		require.NoError(t, err)
		order.AddItem(item)
	}
	order.Refresh(testPricing, trade.TotalsByVATType, true)
	require.NoError(t, repo.Create(context.Background(), order))
	return order
}

func TestGormOrderRepository_CreateAndFind(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormOrderRepository(db.DB)
	ctx := context.Background()

	product := newTestCatalogProduct(t, "Cement")
	order := newStoredOrder(t, repo, product)

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, trade.StatusDone, loaded.Status)
	assert.Equal(t, trade.ReceiptNone, loaded.Receipt)
	assert.Equal(t, "alice", loaded.User)
	assert.Equal(t, 1, loaded.NumberOfItems)
	assert.True(t, loaded.TotalAmount.Equal(decimal.NewFromInt(100)))
	require.Len(t, loaded.Items, 1)
	assert.Equal(t, "Cement", loaded.Items[0].ProductName)
	require.Len(t, loaded.Items[0].Allocations, 1)
	assert.Equal(t, 2, loaded.Items[0].Allocations[0].Units)

	orderID, err := repo.FindOrderIDByItemID(ctx, loaded.Items[0].ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, orderID)

	locked, err := repo.FindByIDForUpdate(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, locked.ID)

	t.Run("unknown ids are not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
		_, err = repo.FindOrderIDByItemID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormOrderRepository_Save(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormOrderRepository(db.DB)
	ctx := context.Background()

	cement := newTestCatalogProduct(t, "Cement")
	sand := newTestCatalogProduct(t, "Sand")
	order := newStoredOrder(t, repo, cement, sand)

	loaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, loaded.Items, 2)

	kept := loaded.Items[0]
	kept.Quantity = 5
	kept.Allocations = []inventory.Allocation{{ProductID: *kept.ProductID, Units: 5}}
	kept.Reprice(testPricing, nil)
	_, err = loaded.RemoveItem(loaded.Items[1].ID)
	require.NoError(t, err)
	loaded.Refresh(testPricing, trade.TotalsInclusive, true)

	require.NoError(t, repo.Save(ctx, loaded))
	assert.Equal(t, 2, loaded.Version)
	assert.Empty(t, loaded.RemovedItemIDs())

	reloaded, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, reloaded.Items, 1)
	assert.Equal(t, 5, reloaded.Items[0].Quantity)
	require.Len(t, reloaded.Items[0].Allocations, 1)
	assert.Equal(t, 5, reloaded.Items[0].Allocations[0].Units)
	assert.True(t, reloaded.TotalAmount.Equal(decimal.NewFromInt(250)))

	var allocations int64
	require.NoError(t, db.DB.Model(&models.ItemAllocationModel{}).Count(&allocations).Error)
	assert.Equal(t, int64(1), allocations)

	t.Run("stale version is a concurrency conflict", func(t *testing.T) {
		stale := *order
		err := repo.Save(ctx, &stale)
		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
	})
}

func TestGormOrderRepository_Delete(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormOrderRepository(db.DB)
	audit := NewGormAuditRepository(db.DB)
	ctx := context.Background()

	order := newStoredOrder(t, repo, newTestCatalogProduct(t, "Cement"))
	require.NoError(t, audit.RecordOrderEvent(ctx, trade.NewOrderEvent(testActor, trade.ActionCreate, order.Items[0], trade.NoteCreatedItem)))

	require.NoError(t, repo.Delete(ctx, order.ID))

	_, err := repo.FindByID(ctx, order.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	var items, logs int64
	require.NoError(t, db.DB.Model(&models.OrderItemModel{}).Count(&items).Error)
	require.NoError(t, db.DB.Model(&models.OrderLogModel{}).Where("order_id = ?", order.ID).Count(&logs).Error)
	assert.Zero(t, items)
	assert.Equal(t, int64(1), logs, "log rows outlive the order")

	assert.ErrorIs(t, repo.Delete(ctx, order.ID), shared.ErrNotFound)
}

func TestGormOrderRepository_List(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormOrderRepository(db.DB)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		newStoredOrder(t, repo, newTestCatalogProduct(t, "Cement"))
	}
	receipted, err := trade.NewOrder(trade.NewOrderInput{Receipt: trade.ReceiptIssued, Actor: testActor})
	require.NoError(t, err)
	receipted.AssignReceiptID(0)
	require.NoError(t, repo.Create(ctx, receipted))

	tests := []struct {
		name      string
		filter    shared.Filter
		wantLen   int
		wantTotal int64
	}{
		{"all orders", shared.Filter{}, 4, 4},
		{"paged", shared.Filter{Page: 2, PageSize: 3}, 1, 4},
		{"by receipt", shared.Filter{Filters: map[string]any{"receipt": string(trade.ReceiptIssued)}}, 1, 1},
		{"unknown filter key is ignored", shared.Filter{Filters: map[string]any{"bogus": "x"}}, 4, 4},
		{"sorted by total", shared.Filter{Filters: map[string]any{"sort": "total_amount", "order": "asc"}}, 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders, total, err := repo.List(ctx, tt.filter)
			require.NoError(t, err)
			assert.Len(t, orders, tt.wantLen)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}

func TestGormReceiptSequence_Next(t *testing.T) {
	db := newSQLiteDatabase(t)
	seq := NewGormReceiptSequence(db.DB)
	ctx := context.Background()

	for want := 0; want < 3; want++ {
		got, err := seq.Next(ctx, trade.ReceiptIssued)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	got, err := seq.Next(ctx, trade.ReceiptNone)
	require.NoError(t, err)
	assert.Equal(t, 0, got, "each receipt type counts on its own")
}

func TestGormReceiptSequence_RollbackReissues(t *testing.T) {
	db := newSQLiteDatabase(t)
	scope := NewGormTransactionScope(db.DB)
	ctx := context.Background()
	errAbort := errors.New("abort")

	require.NoError(t, scope.Execute(ctx, func(repos transaction.Repositories) error {
		_, err := repos.Receipts().Next(ctx, trade.ReceiptIssued)
		return err
	}))

	err := scope.Execute(ctx, func(repos transaction.Repositories) error {
		n, err := repos.Receipts().Next(ctx, trade.ReceiptIssued)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
		return errAbort
	})
	require.ErrorIs(t, err, errAbort)

	n, err := NewGormReceiptSequence(db.DB).Next(ctx, trade.ReceiptIssued)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestGormBundleRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormBundleRepository(db.DB)
	ctx := context.Background()

	owner, a, b := uuid.New(), uuid.New(), uuid.New()
	bundle := catalog.NewBundle(owner)
	require.NoError(t, bundle.AddComponents([]catalog.ComponentSpec{{ProductID: a, Quantity: 2}, {ProductID: b}}))
	require.NoError(t, repo.Save(ctx, bundle))

	loaded, err := repo.FindByProductID(ctx, owner)
	require.NoError(t, err)
	require.Len(t, loaded.Components, 2)
	assert.Equal(t, a, loaded.Components[0].ProductID)
	assert.Equal(t, 2, loaded.Components[0].Quantity)
	assert.Equal(t, 1, loaded.Components[1].Quantity)

	require.NoError(t, loaded.ReplaceComponents([]catalog.ComponentSpec{{ProductID: b, Quantity: 3}}))
	require.NoError(t, repo.Save(ctx, loaded))

	byProduct, err := repo.FindByProductIDs(ctx, []uuid.UUID{owner, uuid.New()})
	require.NoError(t, err)
	require.Len(t, byProduct, 1)
	require.Len(t, byProduct[owner].Components, 1)
	assert.Equal(t, 3, byProduct[owner].Components[0].Quantity)

	require.NoError(t, repo.Delete(ctx, bundle.ID))
	_, err = repo.FindByID(ctx, bundle.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, bundle.ID), shared.ErrNotFound)
}

func TestGormCustomerRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	repo := NewGormCustomerRepository(db.DB)
	ctx := context.Background()

	customer, err := partner.NewCustomer("Abebe Construction", "0911000000", "0012345678")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, customer))

	loaded, err := repo.FindByID(ctx, customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "0012345678", loaded.TIN)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestGormAuditRepository(t *testing.T) {
	db := newSQLiteDatabase(t)
	orders := NewGormOrderRepository(db.DB)
	audit := NewGormAuditRepository(db.DB)
	ctx := context.Background()

	product := newTestCatalogProduct(t, "Cement")
	order := newStoredOrder(t, orders, product)
	item := order.Items[0]

	require.NoError(t, audit.RecordSoldLine(ctx, trade.NewSoldLine(testPricing, testActor, order, item, nil)))
	for _, change := range trade.PaymentCreateEntries(order, testActor) {
		require.NoError(t, audit.RecordFieldChange(ctx, change))
	}
	require.NoError(t, audit.RecordProductChange(ctx, catalog.ProductLogEntry{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      catalog.ProductActionStockUpdate,
		FieldName:   "stock",
		OldValue:    "50",
		NewValue:    "48",
		Actor:       testActor.DisplayName(),
	}))

	var report models.ReportModel
	require.NoError(t, db.DB.First(&report, "order_id = ?", order.ID).Error)
	assert.Equal(t, trade.AnonymousCustomer, report.CustomerName)

	var paymentLogs, productLogs int64
	require.NoError(t, db.DB.Model(&models.OrderPaymentLogModel{}).Count(&paymentLogs).Error)
	require.NoError(t, db.DB.Model(&models.ProductLogModel{}).Count(&productLogs).Error)
	assert.Equal(t, int64(3), paymentLogs)
	assert.Equal(t, int64(1), productLogs)
}
