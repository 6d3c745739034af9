package persistence

import (
	"context"

	"github.com/erp/orderledger/internal/application/transaction"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/partner"
	"github.com/erp/orderledger/internal/domain/trade"
	"gorm.io/gorm"
)

// GormTransactionScope implements transaction.Scope using GORM transactions.
// It provides atomic execution of multiple repository operations.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos transaction.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx, audit: NewGormAuditRepository(tx)})
	})
}

// gormTransactionalRepositories provides access to all repositories within a transaction.
type gormTransactionalRepositories struct {
	tx    *gorm.DB
	audit *GormAuditRepository
}

func (r *gormTransactionalRepositories) Products() catalog.ProductRepository {
	return NewGormProductRepository(r.tx)
}

func (r *gormTransactionalRepositories) Bundles() catalog.BundleRepository {
	return NewGormBundleRepository(r.tx)
}

func (r *gormTransactionalRepositories) ProductLog() catalog.ProductLogSink {
	return r.audit
}

func (r *gormTransactionalRepositories) Orders() trade.OrderRepository {
	return NewGormOrderRepository(r.tx)
}

func (r *gormTransactionalRepositories) Receipts() trade.ReceiptSequence {
	return NewGormReceiptSequence(r.tx)
}

func (r *gormTransactionalRepositories) OrderLog() trade.AuditSink {
	return r.audit
}

func (r *gormTransactionalRepositories) Reports() trade.ReportSink {
	return r.audit
}

func (r *gormTransactionalRepositories) PaymentLog() trade.PaymentAuditSink {
	return r.audit
}

func (r *gormTransactionalRepositories) Customers() partner.CustomerRepository {
	return NewGormCustomerRepository(r.tx)
}

// Ensure GormTransactionScope implements Scope
var _ transaction.Scope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements Repositories
var _ transaction.Repositories = (*gormTransactionalRepositories)(nil)
