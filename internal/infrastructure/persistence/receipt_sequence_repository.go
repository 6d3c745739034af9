package persistence

import (
	"context"

	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/erp/orderledger/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormReceiptSequence hands out receipt numbers from the receipt_sequences
// table. The row is locked for the rest of the transaction, so numbers of
// rolled back orders are reissued while committed numbers never repeat.
type GormReceiptSequence struct {
	db *gorm.DB
}

// NewGormReceiptSequence creates a new GormReceiptSequence
func NewGormReceiptSequence(db *gorm.DB) *GormReceiptSequence {
	return &GormReceiptSequence{db: db}
}

// Next returns the current value for the receipt type and advances it
func (s *GormReceiptSequence) Next(ctx context.Context, receipt trade.ReceiptType) (int, error) {
	db := s.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.ReceiptSequenceModel{Receipt: string(receipt)}).Error; err != nil {
		return 0, err
	}

	var seq models.ReceiptSequenceModel
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&seq, "receipt = ?", string(receipt)).Error; err != nil {
		return 0, err
	}
	if err := db.Model(&models.ReceiptSequenceModel{}).
		Where("receipt = ?", seq.Receipt).
		Update("next_val", seq.NextVal+1).Error; err != nil {
		return 0, err
	}
	return seq.NextVal, nil
}

// Ensure GormReceiptSequence implements ReceiptSequence
var _ trade.ReceiptSequence = (*GormReceiptSequence)(nil)
