package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/erp/orderledger/internal/application/transaction"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BundleService manages bundle definitions
type BundleService struct {
	scope   transaction.Scope
	bundles catalog.BundleRepository
	logger  *zap.Logger
}

// NewBundleService creates a new BundleService
func NewBundleService(scope transaction.Scope, bundles catalog.BundleRepository, logger *zap.Logger) *BundleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &BundleService{scope: scope, bundles: bundles, logger: logger}
}

// CreateBundle gets or creates the bundle of a product, flags the product as a
// bundle and adds the requested components.
func (s *BundleService) CreateBundle(ctx context.Context, actor shared.Actor, req CreateBundleRequest) (*BundleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bundle", "create", telemetry.SpanAttrProductID, req.ProductID)
	defer span.End()

	var result *catalog.Bundle
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		product, err := lockProduct(ctx, repos, req.ProductID)
		if err != nil {
			return err
		}
		bundle, err := repos.Bundles().FindByProductID(ctx, req.ProductID)
		switch {
		case errors.Is(err, shared.ErrNotFound):
			bundle = catalog.NewBundle(req.ProductID)
		case err != nil:
			return err
		}

		if err := bundle.AddComponents(toComponentSpecs(req.Components)); err != nil {
			return err
		}
		if err := ensureProductsExist(ctx, repos, req.Components); err != nil {
			return err
		}
		if err := repos.Bundles().Save(ctx, bundle); err != nil {
			return err
		}
		if err := markBundle(ctx, repos, product, true, actor); err != nil {
			return err
		}
		result = bundle
		return repos.ProductLog().RecordProductChange(ctx, bundleLogEntry(product, actor, describeComponents(bundle)))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("bundle saved",
		zap.String("bundle_id", result.ID.String()),
		zap.String("product_id", result.ProductID.String()),
		zap.Int("components", len(result.Components)),
	)
	resp := ToBundleResponse(result)
	return &resp, nil
}

// UpdateBundle replaces the component list of a bundle
func (s *BundleService) UpdateBundle(ctx context.Context, actor shared.Actor, bundleID uuid.UUID, req UpdateBundleRequest) (*BundleResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "bundle", "update", "bundle_id", bundleID)
	defer span.End()

	var result *catalog.Bundle
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		bundle, err := repos.Bundles().FindByID(ctx, bundleID)
		if err != nil {
			return err
		}
		if err := bundle.ReplaceComponents(toComponentSpecs(req.Components)); err != nil {
			return err
		}
		if err := ensureProductsExist(ctx, repos, req.Components); err != nil {
			return err
		}
		if err := repos.Bundles().Save(ctx, bundle); err != nil {
			return err
		}
		product, err := lockProduct(ctx, repos, bundle.ProductID)
		if err != nil {
			return err
		}
		result = bundle
		return repos.ProductLog().RecordProductChange(ctx, bundleLogEntry(product, actor, describeComponents(bundle)))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToBundleResponse(result)
	return &resp, nil
}

// DeleteBundle removes a bundle with its components and clears the product's bundle flag
func (s *BundleService) DeleteBundle(ctx context.Context, actor shared.Actor, bundleID uuid.UUID) error {
	ctx, span := telemetry.StartServiceSpan(ctx, "bundle", "delete", "bundle_id", bundleID)
	defer span.End()

	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		bundle, err := repos.Bundles().FindByID(ctx, bundleID)
		if err != nil {
			return err
		}
		if err := repos.Bundles().Delete(ctx, bundleID); err != nil {
			return err
		}
		product, err := lockProduct(ctx, repos, bundle.ProductID)
		if errors.Is(err, shared.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return markBundle(ctx, repos, product, false, actor)
	})
	telemetry.RecordError(span, err)
	return err
}

// GetBundle returns a bundle with its components
func (s *BundleService) GetBundle(ctx context.Context, bundleID uuid.UUID) (*BundleResponse, error) {
	bundle, err := s.bundles.FindByID(ctx, bundleID)
	if err != nil {
		return nil, err
	}
	resp := ToBundleResponse(bundle)
	return &resp, nil
}

func ensureProductsExist(ctx context.Context, repos transaction.Repositories, comps []ComponentRequest) error {
	for _, c := range comps {
		if _, err := repos.Products().FindByID(ctx, c.ProductID); err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Component product %s not found", c.ProductID))
			}
			return err
		}
	}
	return nil
}

func markBundle(ctx context.Context, repos transaction.Repositories, product *catalog.Product, isBundle bool, actor shared.Actor) error {
	if product.IsBundle == isBundle {
		return nil
	}
	old := product.IsBundle
	product.MarkBundle(isBundle)
	if err := repos.Products().Save(ctx, product); err != nil {
		return err
	}
	entry := bundleLogEntry(product, actor, fmt.Sprintf("%t", isBundle))
	entry.FieldName = "is_bundle"
	entry.OldValue = fmt.Sprintf("%t", old)
	return repos.ProductLog().RecordProductChange(ctx, entry)
}

func bundleLogEntry(product *catalog.Product, actor shared.Actor, newValue string) catalog.ProductLogEntry {
	return catalog.ProductLogEntry{
		ProductID:   product.ID,
		ProductName: product.Name,
		Action:      catalog.ProductActionBundleChange,
		FieldName:   "components",
		NewValue:    newValue,
		Actor:       actor.DisplayName(),
	}
}

func describeComponents(b *catalog.Bundle) string {
	parts := make([]string, 0, len(b.Components))
	for _, c := range b.Components {
		parts = append(parts, fmt.Sprintf("%s x%d", c.ProductID, c.Quantity))
	}
	return strings.Join(parts, ", ")
}
