package transaction

import (
	"context"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/partner"
	"github.com/erp/orderledger/internal/domain/trade"
)

// Scope runs a unit of work atomically. All repositories handed to fn share
// one database transaction; an error from fn rolls every write back.
type Scope interface {
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories gives access to the repositories and audit sinks bound to the
// current transaction.
type Repositories interface {
	Products() catalog.ProductRepository
	Bundles() catalog.BundleRepository
	ProductLog() catalog.ProductLogSink
	Orders() trade.OrderRepository
	Receipts() trade.ReceiptSequence
	OrderLog() trade.AuditSink
	Reports() trade.ReportSink
	PaymentLog() trade.PaymentAuditSink
	Customers() partner.CustomerRepository
}
