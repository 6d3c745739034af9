package catalog

import (
	"context"
	"fmt"
	"strconv"

	"github.com/erp/orderledger/internal/application/transaction"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductService handles product creation, restocking and repricing
type ProductService struct {
	scope    transaction.Scope
	products catalog.ProductRepository
	logger   *zap.Logger
}

// NewProductService creates a new ProductService
func NewProductService(scope transaction.Scope, products catalog.ProductRepository, logger *zap.Logger) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{scope: scope, products: products, logger: logger}
}

// CreateProduct creates a product, enforcing the unique (name, category, specification) triple
func (s *ProductService) CreateProduct(ctx context.Context, actor shared.Actor, req CreateProductRequest) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "product", "create")
	defer span.End()

	product, err := catalog.NewProduct(catalog.NewProductInput{
		Name:          req.Name,
		CategoryID:    req.CategoryID,
		SupplierID:    req.SupplierID,
		Specification: req.Specification,
		Unit:          req.Unit,
		Package:       req.Package,
		Piece:         req.Piece,
		Stock:         req.Stock,
		ReceiptNo:     req.ReceiptNo,
		BuyingPrice:   req.BuyingPrice,
		SellingPrice:  req.SellingPrice,
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttributes(span, telemetry.SpanAttrProductID, product.ID)

	err = s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		exists, err := repos.Products().ExistsByIdentity(ctx, product.Name, product.CategoryID, product.Specification)
		if err != nil {
			return err
		}
		if exists {
			return shared.NewDomainError(shared.CodeAlreadyExists,
				fmt.Sprintf("Product %s with this category and specification already exists", product.Name))
		}
		if err := repos.Products().Create(ctx, product); err != nil {
			return err
		}
		return repos.ProductLog().RecordProductChange(ctx, catalog.ProductLogEntry{
			ProductID:   product.ID,
			ProductName: product.Name,
			Action:      catalog.ProductActionCreate,
			FieldName:   "stock",
			NewValue:    formatCount(product.Stock),
			Actor:       actor.DisplayName(),
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("product created", zap.String("product_id", product.ID.String()), zap.String("name", product.Name))
	resp := ToProductResponse(product)
	return &resp, nil
}

// GetProduct returns a product
func (s *ProductService) GetProduct(ctx context.Context, productID uuid.UUID) (*ProductResponse, error) {
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	resp := ToProductResponse(product)
	return &resp, nil
}

// AdjustStock restocks a product from a purchase, by whole packages or by units
func (s *ProductService) AdjustStock(ctx context.Context, actor shared.Actor, productID uuid.UUID, req AdjustStockRequest) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "product", "adjust_stock", telemetry.SpanAttrProductID, productID)
	defer span.End()

	if (req.AddPackages == nil) == (req.AddStock == nil) {
		return nil, shared.InvalidInput("Exactly one of add_packages or add_stock is required")
	}

	var result *catalog.Product
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		product, err := lockProduct(ctx, repos, productID)
		if err != nil {
			return err
		}
		oldStock, oldPkg := formatCount(product.Stock), formatCount(product.Package)
		if req.AddPackages != nil {
			_, err = product.AddPackages(*req.AddPackages)
		} else {
			_, err = product.AddStock(*req.AddStock)
		}
		if err != nil {
			return err
		}
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}

		changes := []catalog.ProductLogEntry{
			{FieldName: "stock", OldValue: oldStock, NewValue: formatCount(product.Stock)},
			{FieldName: "package", OldValue: oldPkg, NewValue: formatCount(product.Package)},
		}
		for _, c := range changes {
			if c.OldValue == c.NewValue {
				continue
			}
			c.ProductID = product.ID
			c.ProductName = product.Name
			c.Action = catalog.ProductActionStockUpdate
			c.Actor = actor.DisplayName()
			if err := repos.ProductLog().RecordProductChange(ctx, c); err != nil {
				return err
			}
		}
		result = product
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.logger.Info("product restocked",
		zap.String("product_id", productID.String()),
		zap.Stringp("stock", optionalCount(result.Stock)),
	)
	resp := ToProductResponse(result)
	return &resp, nil
}

// ChangeSellingPrice sets a product's selling price
func (s *ProductService) ChangeSellingPrice(ctx context.Context, actor shared.Actor, productID uuid.UUID, req ChangeSellingPriceRequest) (*ProductResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "product", "change_selling_price", telemetry.SpanAttrProductID, productID)
	defer span.End()

	var result *catalog.Product
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		product, err := lockProduct(ctx, repos, productID)
		if err != nil {
			return err
		}
		old, err := product.ChangeSellingPrice(req.SellingPrice)
		if err != nil {
			return err
		}
		if old.Equal(product.SellingPrice) {
			result = product
			return nil
		}
		if err := repos.Products().Save(ctx, product); err != nil {
			return err
		}
		result = product
		return repos.ProductLog().RecordProductChange(ctx, catalog.ProductLogEntry{
			ProductID:   product.ID,
			ProductName: product.Name,
			Action:      catalog.ProductActionPriceChange,
			FieldName:   "selling_price",
			OldValue:    old.StringFixed(2),
			NewValue:    product.SellingPrice.StringFixed(2),
			Actor:       actor.DisplayName(),
		})
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	resp := ToProductResponse(result)
	return &resp, nil
}

func lockProduct(ctx context.Context, repos transaction.Repositories, id uuid.UUID) (*catalog.Product, error) {
	locked, err := repos.Products().FindByIDsForUpdate(ctx, []uuid.UUID{id})
	if err != nil {
		return nil, err
	}
	p, ok := locked[id]
	if !ok {
		return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Product %s not found", id))
	}
	return p, nil
}

func formatCount(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optionalCount(v *int) *string {
	if v == nil {
		return nil
	}
	s := strconv.Itoa(*v)
	return &s
}
