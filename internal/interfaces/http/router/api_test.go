package router

import (
	"net/http"
	"testing"
	"time"

	catalogapp "github.com/erp/orderledger/internal/application/catalog"
	tradeapp "github.com/erp/orderledger/internal/application/trade"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/infrastructure/cache"
	"github.com/erp/orderledger/internal/interfaces/http/handler"
	"github.com/erp/orderledger/tests/testutil"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, stack *testutil.Stack, store shared.IdempotencyStore) *gin.Engine {
	t.Helper()
	sqlDB, err := stack.DB.DB()
	require.NoError(t, err)

	return NewEngine(Handlers{
		Orders:     handler.NewOrderHandler(stack.Orders),
		OrderItems: handler.NewOrderItemHandler(stack.Orders),
		Products:   handler.NewProductHandler(stack.Products),
		Bundles:    handler.NewBundleHandler(stack.Bundles),
		Health:     handler.NewHealthHandler(sqlDB),
	}, Options{Idempotency: store, IdempotencyTTL: time.Minute})
}

func orderBody(productID uuid.UUID, qty int, unitPrice string) map[string]any {
	line := map[string]any{"product_id": productID, "quantity": qty}
	if unitPrice != "" {
		line["unit_price"] = unitPrice
	}
	return map[string]any{"receipt": "No Receipt", "items": []any{line}}
}

func assertDecimal(t *testing.T, expected string, actual decimal.Decimal, field string) {
	t.Helper()
	assert.True(t, decimal.RequireFromString(expected).Equal(actual), "%s: expected %s, got %s", field, expected, actual)
}

func TestOrderAPI(t *testing.T) {
	t.Run("create prices the order and takes stock", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)
		p := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Widget", Stock: 100, SellingPrice: "7.00"})

		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", orderBody(p.ID, 10, "5.00"))
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

		order := testutil.DecodeData[tradeapp.OrderResponse](t, w)
		require.Len(t, order.Items, 1)
		assertDecimal(t, "50.00", order.Items[0].Price, "price")
		assertDecimal(t, "50.00", order.SubTotal, "sub_total")
		assertDecimal(t, "0", order.VAT, "vat")
		assertDecimal(t, "50.00", order.TotalAmount, "total_amount")
		assert.Equal(t, "Done", order.Status)
		assert.Equal(t, testutil.Actor.Name, order.User)

		stock, _, _ := testutil.Counters(t, stack.DB, p.ID)
		assert.Equal(t, 90, stock)
	})

	t.Run("insufficient stock is 422 and changes nothing", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)
		p := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Scarce", Stock: 3, SellingPrice: "1.00"})

		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", orderBody(p.ID, 4, ""))
		testutil.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, shared.CodeInsufficientStock)

		stock, _, _ := testutil.Counters(t, stack.DB, p.ID)
		assert.Equal(t, 3, stock)
	})

	t.Run("empty item list is 422", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)

		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", map[string]any{"items": []any{}})
		testutil.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, shared.CodeEmptyOrder)
	})

	t.Run("invalid enum is a validation error", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)
		p := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Widget", Stock: 5})

		body := orderBody(p.ID, 1, "1")
		body["vat_type"] = "Zero"
		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", body)
		testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "ERR_VALIDATION")
	})

	t.Run("unknown order is 404", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)

		w := testutil.DoJSON(t, engine, http.MethodGet, "/api/v1/orders/"+uuid.NewString(), nil)
		testutil.AssertErrorResponse(t, w, http.StatusNotFound, shared.CodeNotFound)
	})

	t.Run("idempotency key applies a create once", func(t *testing.T) {
		stack := testutil.NewStack(t)
		store := cache.NewInMemoryIdempotencyStore()
		t.Cleanup(func() { _ = store.Close() })
		engine := newTestEngine(t, stack, store)
		p := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Widget", Stock: 10, SellingPrice: "1.00"})
		key := map[string]string{"Idempotency-Key": "create-1"}

		first := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", orderBody(p.ID, 2, ""), key)
		require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

		second := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", orderBody(p.ID, 2, ""), key)
		testutil.AssertErrorResponse(t, second, http.StatusConflict, "ERR_DUPLICATE_REQUEST")

		stock, _, _ := testutil.Counters(t, stack.DB, p.ID)
		assert.Equal(t, 8, stock)
	})

	t.Run("list returns pagination meta", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)
		p := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Widget", Stock: 10, SellingPrice: "1.00"})
		for range 3 {
			w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", orderBody(p.ID, 1, ""))
			require.Equal(t, http.StatusCreated, w.Code)
		}

		w := testutil.DoJSON(t, engine, http.MethodGet, "/api/v1/orders?page=1&page_size=2&status=Done", nil)
		require.Equal(t, http.StatusOK, w.Code)
		env := testutil.DecodeEnvelope(t, w)
		require.NotNil(t, env.Meta)
		assert.Equal(t, int64(3), env.Meta.Total)
		assert.Equal(t, 2, env.Meta.PageSize)
		assert.Equal(t, 2, env.Meta.TotalPages)

		orders := testutil.DecodeData[[]tradeapp.OrderResponse](t, w)
		assert.Len(t, orders, 2)
	})

	t.Run("delete restocks and removes the order", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)
		p := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Widget", Stock: 10, SellingPrice: "1.00"})

		created := testutil.DecodeData[tradeapp.OrderResponse](t,
			testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", orderBody(p.ID, 4, "")))

		w := testutil.DoJSON(t, engine, http.MethodDelete, "/api/v1/orders/"+created.ID.String(), nil)
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

		stock, _, _ := testutil.Counters(t, stack.DB, p.ID)
		assert.Equal(t, 10, stock)

		w = testutil.DoJSON(t, engine, http.MethodGet, "/api/v1/orders/"+created.ID.String(), nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestOrderItemAPI(t *testing.T) {
	t.Run("cancel restocks and a second cancel is rejected", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)
		p := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Widget", Stock: 10, SellingPrice: "2.00"})

		created := testutil.DecodeData[tradeapp.OrderResponse](t,
			testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", orderBody(p.ID, 3, "")))
		itemPath := "/api/v1/order-items/" + created.Items[0].ID.String()

		w := testutil.DoJSON(t, engine, http.MethodPost, itemPath+"/cancel", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := testutil.DecodeData[tradeapp.OrderResult](t, w)
		require.NotNil(t, result.Order)
		assert.Equal(t, "Cancelled", result.Order.Status)

		w = testutil.DoJSON(t, engine, http.MethodPost, itemPath+"/cancel", nil)
		testutil.AssertErrorResponse(t, w, http.StatusConflict, shared.CodeAlreadyCancelled)

		stock, _, _ := testutil.Counters(t, stack.DB, p.ID)
		assert.Equal(t, 10, stock)
	})

	t.Run("deleting the last item deletes the order", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)
		p := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Widget", Stock: 10, SellingPrice: "2.00"})

		created := testutil.DecodeData[tradeapp.OrderResponse](t,
			testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", orderBody(p.ID, 3, "")))

		w := testutil.DoJSON(t, engine, http.MethodDelete, "/api/v1/order-items/"+created.Items[0].ID.String(), nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		result := testutil.DecodeData[tradeapp.OrderResult](t, w)
		assert.True(t, result.OrderDeleted)
		assert.Nil(t, result.Order)
	})

	t.Run("malformed item id is a bad request", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)

		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/order-items/123/cancel", nil)
		testutil.AssertErrorResponse(t, w, http.StatusBadRequest, "ERR_BAD_REQUEST")
	})
}

func TestCatalogAPI(t *testing.T) {
	t.Run("product lifecycle", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)

		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/products", map[string]any{
			"name": "Bolt", "stock": 5, "selling_price": "1.50",
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		product := testutil.DecodeData[catalogapp.ProductResponse](t, w)

		w = testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/products", map[string]any{
			"name": "Bolt", "stock": 1, "selling_price": "1.50",
		})
		testutil.AssertErrorResponse(t, w, http.StatusConflict, shared.CodeAlreadyExists)

		path := "/api/v1/products/" + product.ID.String()
		w = testutil.DoJSON(t, engine, http.MethodPost, path+"/stock", map[string]any{"add_stock": 7})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		updated := testutil.DecodeData[catalogapp.ProductResponse](t, w)
		require.NotNil(t, updated.Stock)
		assert.Equal(t, 12, *updated.Stock)

		w = testutil.DoJSON(t, engine, http.MethodPut, path+"/selling-price", map[string]any{"selling_price": "2.25"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assertDecimal(t, "2.25", testutil.DecodeData[catalogapp.ProductResponse](t, w).SellingPrice, "selling_price")

		w = testutil.DoJSON(t, engine, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("bundle lifecycle", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)
		kit := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Kit", Stock: 0})
		x := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "X", Stock: 5})
		y := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Y", Stock: 5})

		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/bundles", map[string]any{
			"product_id": kit.ID,
			"components": []any{
				map[string]any{"product_id": x.ID, "quantity": 2},
				map[string]any{"product_id": y.ID, "quantity": 1},
			},
		})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		bundle := testutil.DecodeData[catalogapp.BundleResponse](t, w)
		assert.Len(t, bundle.Components, 2)
		assert.True(t, testutil.ReloadProduct(t, stack.DB, kit.ID).IsBundle)

		path := "/api/v1/bundles/" + bundle.ID.String()
		w = testutil.DoJSON(t, engine, http.MethodPut, path, map[string]any{
			"components": []any{
				map[string]any{"product_id": x.ID, "quantity": 1},
				map[string]any{"product_id": x.ID, "quantity": 1},
			},
		})
		testutil.AssertErrorResponse(t, w, http.StatusConflict, shared.CodeDuplicateComponent)

		w = testutil.DoJSON(t, engine, http.MethodDelete, path, nil)
		require.Equal(t, http.StatusNoContent, w.Code, w.Body.String())

		w = testutil.DoJSON(t, engine, http.MethodGet, path, nil)
		testutil.AssertErrorResponse(t, w, http.StatusNotFound, shared.CodeNotFound)
	})

	t.Run("ordering a bundle beyond component stock", func(t *testing.T) {
		stack := testutil.NewStack(t)
		engine := newTestEngine(t, stack, nil)
		kit := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Kit", Stock: 10, SellingPrice: "9.00"})
		x := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "X", Stock: 5})
		y := testutil.SeedProduct(t, stack.DB, testutil.ProductSpec{Name: "Y", Stock: 5})
		testutil.SeedBundle(t, stack.DB, kit,
			catalog.ComponentSpec{ProductID: x.ID, Quantity: 2},
			catalog.ComponentSpec{ProductID: y.ID, Quantity: 1},
		)

		w := testutil.DoJSON(t, engine, http.MethodPost, "/api/v1/orders", orderBody(kit.ID, 3, ""))
		testutil.AssertErrorResponse(t, w, http.StatusUnprocessableEntity, shared.CodeInsufficientStock)

		for _, id := range []uuid.UUID{kit.ID, x.ID, y.ID} {
			before := map[uuid.UUID]int{kit.ID: 10, x.ID: 5, y.ID: 5}[id]
			stock, _, _ := testutil.Counters(t, stack.DB, id)
			assert.Equal(t, before, stock)
		}
	})
}
