package persistence

import (
	"context"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/erp/orderledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormAuditRepository appends order, payment, report and product log rows.
// Rows are insert-only and carry no foreign keys to the records they
// describe.
type GormAuditRepository struct {
	db *gorm.DB
}

// NewGormAuditRepository creates a new GormAuditRepository
func NewGormAuditRepository(db *gorm.DB) *GormAuditRepository {
	return &GormAuditRepository{db: db}
}

// RecordOrderEvent appends an order log row
func (r *GormAuditRepository) RecordOrderEvent(ctx context.Context, event trade.OrderEvent) error {
	return r.db.WithContext(ctx).Create(models.OrderLogModelFromDomain(event)).Error
}

// RecordSoldLine appends a report row
func (r *GormAuditRepository) RecordSoldLine(ctx context.Context, line trade.SoldLine) error {
	return r.db.WithContext(ctx).Create(models.ReportModelFromDomain(line)).Error
}

// RecordFieldChange appends a payment log row
func (r *GormAuditRepository) RecordFieldChange(ctx context.Context, change trade.PaymentFieldChange) error {
	return r.db.WithContext(ctx).Create(models.OrderPaymentLogModelFromDomain(change)).Error
}

// RecordProductChange appends a product log row
func (r *GormAuditRepository) RecordProductChange(ctx context.Context, entry catalog.ProductLogEntry) error {
	return r.db.WithContext(ctx).Create(models.ProductLogModelFromDomain(entry)).Error
}

// Ensure GormAuditRepository implements every audit sink
var (
	_ trade.AuditSink        = (*GormAuditRepository)(nil)
	_ trade.ReportSink       = (*GormAuditRepository)(nil)
	_ trade.PaymentAuditSink = (*GormAuditRepository)(nil)
	_ catalog.ProductLogSink = (*GormAuditRepository)(nil)
)
