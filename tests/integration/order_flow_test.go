package integration

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	catalogapp "github.com/erp/orderledger/internal/application/catalog"
	tradeapp "github.com/erp/orderledger/internal/application/trade"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/erp/orderledger/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	code := m.Run()
	CleanupSharedContainer()
	os.Exit(code)
}

func TestOrderFlowPostgres(t *testing.T) {
	tdb := NewSharedTestDB(t)
	ctx := context.Background()

	t.Run("create, reprice and cancel round trip", func(t *testing.T) {
		tdb.CleanTables()
		s := testutil.NewStackWithDB(t, tdb.DB)
		p := testutil.SeedProduct(t, s.DB, testutil.ProductSpec{Name: "Paint", Stock: 115, Package: 11, Piece: 10, ReceiptNo: 60, BuyingPrice: "4"})

		order, err := s.Orders.CreateOrder(ctx, testutil.Actor, tradeapp.CreateOrderRequest{
			Receipt: string(trade.ReceiptIssued),
			VATType: string(trade.VATInclusive),
			Items: []tradeapp.OrderLineRequest{{
				ProductID: p.ID,
				Quantity:  23,
				UnitPrice: decimal.NewNullDecimal(decimal.RequireFromString("11.50")),
			}},
		})
		require.NoError(t, err)
		assert.True(t, decimal.RequireFromString("264.50").Equal(order.TotalAmount))
		assert.True(t, decimal.RequireFromString("92").Equal(order.Items[0].Cost))

		stock, pkg, receiptNo := testutil.Counters(t, s.DB, p.ID)
		assert.Equal(t, []int{92, 9, 37}, []int{stock, pkg, receiptNo})

		fetched, err := s.Orders.GetOrder(ctx, order.ID)
		require.NoError(t, err)
		assert.Equal(t, order.ReceiptID, fetched.ReceiptID)
		require.Len(t, fetched.Items[0].Allocations, 1)
		assert.Equal(t, 23, fetched.Items[0].Allocations[0].ReceiptUnits)

		result, err := s.Orders.CancelOrder(ctx, testutil.Actor, order.ID)
		require.NoError(t, err)
		assert.Equal(t, "Cancelled", result.Order.Status)

		stock, _, receiptNo = testutil.Counters(t, s.DB, p.ID)
		assert.Equal(t, 115, stock)
		assert.Equal(t, 60, receiptNo)
	})

	t.Run("bundle shortage rolls back", func(t *testing.T) {
		tdb.CleanTables()
		s := testutil.NewStackWithDB(t, tdb.DB)
		x := testutil.SeedProduct(t, s.DB, testutil.ProductSpec{Name: "X", Stock: 5})
		y := testutil.SeedProduct(t, s.DB, testutil.ProductSpec{Name: "Y", Stock: 10})
		b := testutil.SeedProduct(t, s.DB, testutil.ProductSpec{Name: "B", Stock: 10})
		testutil.SeedBundle(t, s.DB, b,
			catalog.ComponentSpec{ProductID: x.ID, Quantity: 2},
			catalog.ComponentSpec{ProductID: y.ID, Quantity: 1},
		)

		_, err := s.Orders.CreateOrder(ctx, testutil.Actor, tradeapp.CreateOrderRequest{
			Items: []tradeapp.OrderLineRequest{{ProductID: b.ID, Quantity: 3}},
		})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, shared.CodeInsufficientStock, de.Code)

		for _, p := range []*catalog.Product{x, y, b} {
			stock, _, _ := testutil.Counters(t, s.DB, p.ID)
			assert.Equal(t, *p.Stock, stock, p.Name)
		}
	})

	t.Run("concurrent orders never oversell", func(t *testing.T) {
		tdb.CleanTables()
		s := testutil.NewStackWithDB(t, tdb.DB)
		p := testutil.SeedProduct(t, s.DB, testutil.ProductSpec{Name: "Scarce", Stock: 10})

		const workers = 8
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			accepted int
		)
		for range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Orders.CreateOrder(ctx, testutil.Actor, tradeapp.CreateOrderRequest{
					Items: []tradeapp.OrderLineRequest{{ProductID: p.ID, Quantity: 3}},
				})
				if err == nil {
					mu.Lock()
					accepted++
					mu.Unlock()
				}
			}()
		}
		wg.Wait()

		stock, _, _ := testutil.Counters(t, s.DB, p.ID)
		assert.Equal(t, 3, accepted)
		assert.Equal(t, 1, stock)
	})

	t.Run("restock through the catalog service", func(t *testing.T) {
		tdb.CleanTables()
		s := testutil.NewStackWithDB(t, tdb.DB)
		created, err := s.Products.CreateProduct(ctx, testutil.Actor, catalogapp.CreateProductRequest{
			Name:    "Tiles",
			Package: intPtr(0),
			Piece:   intPtr(12),
			Stock:   intPtr(5),
		})
		require.NoError(t, err)

		resp, err := s.Products.AdjustStock(ctx, testutil.Actor, created.ID, catalogapp.AdjustStockRequest{AddPackages: intPtr(2)})
		require.NoError(t, err)
		assert.Equal(t, 29, *resp.Stock)
		assert.Equal(t, 2, *resp.Package)
	})
}

func intPtr(v int) *int { return &v }
