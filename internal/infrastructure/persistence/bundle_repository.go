package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBundleRepository implements BundleRepository using GORM
type GormBundleRepository struct {
	db *gorm.DB
}

// NewGormBundleRepository creates a new GormBundleRepository
func NewGormBundleRepository(db *gorm.DB) *GormBundleRepository {
	return &GormBundleRepository{db: db}
}

func (r *GormBundleRepository) withComponents(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Preload("Components", func(db *gorm.DB) *gorm.DB {
		return db.Order("position")
	})
}

// FindByID finds a bundle by its ID
func (r *GormBundleRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Bundle, error) {
	var model models.BundleModel
	if err := r.withComponents(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProductID finds the bundle defined for a product
func (r *GormBundleRepository) FindByProductID(ctx context.Context, productID uuid.UUID) (*catalog.Bundle, error) {
	var model models.BundleModel
	if err := r.withComponents(ctx).First(&model, "product_id = ?", productID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByProductIDs returns the bundles of the given products keyed by product ID
func (r *GormBundleRepository) FindByProductIDs(ctx context.Context, productIDs []uuid.UUID) (map[uuid.UUID]*catalog.Bundle, error) {
	out := make(map[uuid.UUID]*catalog.Bundle)
	if len(productIDs) == 0 {
		return out, nil
	}
	var rows []models.BundleModel
	if err := r.withComponents(ctx).Where("product_id IN ?", productIDs).Find(&rows).Error; err != nil {
		return nil, err
	}
	for i := range rows {
		out[rows[i].ProductID] = rows[i].ToDomain()
	}
	return out, nil
}

// Save upserts the bundle row and replaces its components
func (r *GormBundleRepository) Save(ctx context.Context, bundle *catalog.Bundle) error {
	bundle.UpdatedAt = time.Now()
	model := models.BundleModelFromDomain(bundle)
	components := model.Components
	model.Components = nil

	db := r.db.WithContext(ctx)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"updated_at"}),
	}).Create(model).Error; err != nil {
		return err
	}
	if err := db.Where("bundle_id = ?", bundle.ID).Delete(&models.BundleComponentModel{}).Error; err != nil {
		return err
	}
	if len(components) == 0 {
		return nil
	}
	return db.Create(&components).Error
}

// Delete removes a bundle and its components
func (r *GormBundleRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := r.db.WithContext(ctx)
	if err := db.Where("bundle_id = ?", id).Delete(&models.BundleComponentModel{}).Error; err != nil {
		return err
	}
	result := db.Delete(&models.BundleModel{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormBundleRepository implements BundleRepository
var _ catalog.BundleRepository = (*GormBundleRepository)(nil)
