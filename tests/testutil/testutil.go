// Package testutil provides shared fixtures for package and integration tests:
// sqlmock-backed GORM, an in-memory SQLite application stack, seeding helpers
// and polling assertions.
package testutil

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	catalogapp "github.com/erp/orderledger/internal/application/catalog"
	tradeapp "github.com/erp/orderledger/internal/application/trade"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/partner"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/erp/orderledger/internal/infrastructure/config"
	"github.com/erp/orderledger/internal/infrastructure/event"
	"github.com/erp/orderledger/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// VATRate is the rate every fixture stack prices with.
var VATRate = decimal.RequireFromString("0.15")

// Actor is the acting user of fixture operations.
var Actor = shared.Actor{Name: "tester", Email: "tester@example.com", Role: "sales"}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a GORM postgres dialector over sqlmock. It is closed
// when the test ends.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")
	t.Cleanup(func() { _ = mockDB.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	}), &gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err, "Failed to open GORM connection")

	return &MockDB{DB: gormDB, Mock: mock, SqlDB: mockDB}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewSQLiteDatabase opens a migrated in-memory SQLite database.
func NewSQLiteDatabase(t *testing.T) *persistence.Database {
	t.Helper()
	db, err := persistence.NewDatabase(&config.DatabaseConfig{Driver: config.DriverSQLite, Path: ":memory:"})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db
}

// Stack is a fully wired application over one database.
type Stack struct {
	DB       *gorm.DB
	Pricing  trade.PricingEngine
	Orders   *tradeapp.OrderService
	Products *catalogapp.ProductService
	Bundles  *catalogapp.BundleService
	Bus      *event.InMemoryEventBus
	Events   *RecordingHandler
}

// NewStack wires the services over an in-memory SQLite database. Every
// published event is captured by Events.
func NewStack(t *testing.T) *Stack {
	t.Helper()
	return NewStackWithDB(t, NewSQLiteDatabase(t).DB)
}

// NewStackWithDB wires the services over an existing database.
func NewStackWithDB(t *testing.T, db *gorm.DB) *Stack {
	t.Helper()

	logger := zap.NewNop()
	scope := persistence.NewGormTransactionScope(db)
	pricing := trade.NewPricingEngine(VATRate)

	bus := event.NewInMemoryEventBus(logger)
	recorder := NewRecordingHandler()
	bus.Subscribe(recorder)

	orders := tradeapp.NewOrderService(scope, persistence.NewGormOrderRepository(db), pricing, logger)
	orders.SetEventPublisher(bus)

	return &Stack{
		DB:       db,
		Pricing:  pricing,
		Orders:   orders,
		Products: catalogapp.NewProductService(scope, persistence.NewGormProductRepository(db), logger),
		Bundles:  catalogapp.NewBundleService(scope, persistence.NewGormBundleRepository(db), logger),
		Bus:      bus,
		Events:   recorder,
	}
}

// ProductSpec describes a seeded product. Zero Package or Piece leaves the
// counter unset.
type ProductSpec struct {
	Name         string
	Stock        int
	Package      int
	Piece        int
	ReceiptNo    int
	BuyingPrice  string
	SellingPrice string
}

// SeedProduct stores a product directly through the repository.
func SeedProduct(t *testing.T, db *gorm.DB, spec ProductSpec) *catalog.Product {
	t.Helper()

	in := catalog.NewProductInput{
		Name:         spec.Name,
		Stock:        intPtr(spec.Stock),
		ReceiptNo:    intPtr(spec.ReceiptNo),
		SellingPrice: decimal.RequireFromString(orDefault(spec.SellingPrice, "0")),
	}
	if spec.Package > 0 {
		in.Package = intPtr(spec.Package)
	}
	if spec.Piece > 0 {
		in.Piece = intPtr(spec.Piece)
	}
	if spec.BuyingPrice != "" {
		in.BuyingPrice = decimal.NewNullDecimal(decimal.RequireFromString(spec.BuyingPrice))
	}

	p, err := catalog.NewProduct(in)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormProductRepository(db).Create(context.Background(), p))
	return p
}

// SeedBundle flags bundleProduct as a bundle of the given components.
func SeedBundle(t *testing.T, db *gorm.DB, bundleProduct *catalog.Product, components ...catalog.ComponentSpec) *catalog.Bundle {
	t.Helper()
	ctx := context.Background()

	b := catalog.NewBundle(bundleProduct.ID)
	require.NoError(t, b.AddComponents(components))
	require.NoError(t, persistence.NewGormBundleRepository(db).Save(ctx, b))

	products := persistence.NewGormProductRepository(db)
	stored, err := products.FindByID(ctx, bundleProduct.ID)
	require.NoError(t, err)
	stored.MarkBundle(true)
	require.NoError(t, products.Save(ctx, stored))
	*bundleProduct = *stored
	return b
}

// SeedCustomer stores a customer.
func SeedCustomer(t *testing.T, db *gorm.DB, name, phone, tin string) *partner.Customer {
	t.Helper()
	c, err := partner.NewCustomer(name, phone, tin)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormCustomerRepository(db).Create(context.Background(), c))
	return c
}

// ReloadProduct reads the current state of a product.
func ReloadProduct(t *testing.T, db *gorm.DB, id uuid.UUID) *catalog.Product {
	t.Helper()
	p, err := persistence.NewGormProductRepository(db).FindByID(context.Background(), id)
	require.NoError(t, err)
	return p
}

// Counters returns stock, package and receipt_no of a product, treating
// unset counters as zero.
func Counters(t *testing.T, db *gorm.DB, id uuid.UUID) (stock, pkg, receiptNo int) {
	t.Helper()
	p := ReloadProduct(t, db, id)
	return deref(p.Stock), deref(p.Package), deref(p.ReceiptNo)
}

// NewTestUUID generates a deterministic UUID from seed.
func NewTestUUID(seed string) uuid.UUID {
	namespace := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")
	return uuid.NewSHA1(namespace, []byte(seed))
}

// ContextWithTimeout creates a context that is cancelled when the test ends.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// RequireEventually retries condition until it holds or timeout elapses.
func RequireEventually(t *testing.T, condition func() bool, timeout, interval time.Duration, msgAndArgs ...any) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return
		}
		time.Sleep(interval)
	}
	require.Fail(t, "Condition not met within timeout", msgAndArgs...)
}

func intPtr(v int) *int { return &v }

func deref(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
