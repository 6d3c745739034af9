package trade

import (
	"context"
	"fmt"

	"github.com/erp/orderledger/internal/application/transaction"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/inventory"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// itemChange is a requested change to one item. Package wins over quantity.
type itemChange struct {
	Quantity  *int
	Package   *int
	UnitPrice decimal.NullDecimal
}

// itemOp mutates one item of a locked order
type itemOp func(ctx context.Context, sess *session, repos transaction.Repositories, order *trade.Order, item *trade.OrderItem) error

// UpdateItem changes an item's quantity, package or unit price
func (s *OrderService) UpdateItem(ctx context.Context, actor shared.Actor, itemID uuid.UUID, req UpdateItemRequest) (*OrderResult, error) {
	return s.runItemOp(ctx, actor, "update_item", itemID, func(ctx context.Context, sess *session, repos transaction.Repositories, order *trade.Order, item *trade.OrderItem) error {
		return s.adjustItem(ctx, sess, repos, actor, item, itemChange(req))
	})
}

// CancelItem force-cancels an item and restocks exactly what it held
func (s *OrderService) CancelItem(ctx context.Context, actor shared.Actor, itemID uuid.UUID) (*OrderResult, error) {
	return s.runItemOp(ctx, actor, "cancel_item", itemID, func(ctx context.Context, sess *session, repos transaction.Repositories, order *trade.Order, item *trade.OrderItem) error {
		return s.cancelItem(ctx, sess, repos, actor, order, item, false)
	})
}

// RequestCancelItem marks a Done item as awaiting cancellation approval
func (s *OrderService) RequestCancelItem(ctx context.Context, actor shared.Actor, itemID uuid.UUID) (*OrderResult, error) {
	return s.runItemOp(ctx, actor, "request_cancel_item", itemID, func(ctx context.Context, sess *session, repos transaction.Repositories, order *trade.Order, item *trade.OrderItem) error {
		if err := item.RequestCancel(); err != nil {
			return err
		}
		return repos.OrderLog().RecordOrderEvent(ctx, trade.NewOrderEvent(actor, trade.ActionRequestCancel, item, trade.NoteRequestedCancel))
	})
}

// RejectCancelItem returns a Pending item to Done without touching stock
func (s *OrderService) RejectCancelItem(ctx context.Context, actor shared.Actor, itemID uuid.UUID) (*OrderResult, error) {
	return s.runItemOp(ctx, actor, "reject_cancel_item", itemID, func(ctx context.Context, sess *session, repos transaction.Repositories, order *trade.Order, item *trade.OrderItem) error {
		if err := item.RejectCancel(); err != nil {
			return err
		}
		return repos.OrderLog().RecordOrderEvent(ctx, trade.NewOrderEvent(actor, trade.ActionRejectCancel, item, ""))
	})
}

// DeleteItem removes an item with restock. Removing the last item deletes the order.
func (s *OrderService) DeleteItem(ctx context.Context, actor shared.Actor, itemID uuid.UUID) (*OrderResult, error) {
	return s.runItemOp(ctx, actor, "delete_item", itemID, func(ctx context.Context, sess *session, repos transaction.Repositories, order *trade.Order, item *trade.OrderItem) error {
		return s.removeItem(ctx, sess, repos, actor, order, item, false)
	})
}

// CancelOrder force-cancels every item that is not cancelled yet. Restock is
// batched so each product is written once.
func (s *OrderService) CancelOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResult, error) {
	return s.runOrderOp(ctx, actor, "cancel_order", orderID, func(ctx context.Context, sess *session, repos transaction.Repositories, order *trade.Order) error {
		cancelled := 0
		for _, item := range order.Items {
			if item.IsCancelled() {
				continue
			}
			if err := s.cancelItem(ctx, sess, repos, actor, order, item, true); err != nil {
				return err
			}
			cancelled++
		}
		if cancelled == 0 {
			return shared.NewDomainError(shared.CodeAlreadyCancelled, "Every item of this order is already cancelled")
		}
		return sess.flush(ctx)
	})
}

// RequestCancelOrder request-cancels every Done item of the order
func (s *OrderService) RequestCancelOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) (*OrderResult, error) {
	return s.runOrderOp(ctx, actor, "request_cancel_order", orderID, func(ctx context.Context, sess *session, repos transaction.Repositories, order *trade.Order) error {
		requested := 0
		for _, item := range order.Items {
			if item.Status != trade.StatusDone {
				continue
			}
			if err := item.RequestCancel(); err != nil {
				return err
			}
			if err := repos.OrderLog().RecordOrderEvent(ctx, trade.NewOrderEvent(actor, trade.ActionRequestCancel, item, trade.NoteRequestedCancel)); err != nil {
				return err
			}
			requested++
		}
		if requested == 0 {
			return shared.InvalidTransition("No item of this order can be requested for cancellation")
		}
		return nil
	})
}

// DeleteOrder restocks every item that still holds stock and deletes the order
func (s *OrderService) DeleteOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID) error {
	ctx, span := s.tracer.Start(ctx, "OrderService.DeleteOrder", trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		order, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		sess := newSession(repos)
		if err := sess.lockOrder(ctx, order); err != nil {
			return err
		}
		for _, item := range order.Items {
			if err := repos.OrderLog().RecordOrderEvent(ctx, trade.NewOrderEvent(actor, trade.ActionDelete, item, "")); err != nil {
				return err
			}
			if item.IsCancelled() {
				continue
			}
			if err := sess.restock(ctx, item.Allocations, true); err != nil {
				return err
			}
		}
		if err := sess.flush(ctx); err != nil {
			return err
		}
		return s.deleteEmptyOrder(ctx, repos, order)
	})
	if err != nil {
		return s.fail(ctx, span, "delete_order", orderID, err)
	}
	_, err = s.finish(ctx, "order deleted", orderID, nil, true)
	return err
}

// runItemOp locks the order owning itemID, runs op, then recomputes the order
// with its configured VAT type and either saves or deletes it.
func (s *OrderService) runItemOp(ctx context.Context, actor shared.Actor, operation string, itemID uuid.UUID, op itemOp) (*OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService."+operation, trace.WithAttributes(attribute.String("order_item.id", itemID.String())))
	defer span.End()

	orderID := uuid.Nil
	var result *trade.Order
	deleted := false
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		id, err := repos.Orders().FindOrderIDByItemID(ctx, itemID)
		if err != nil {
			return err
		}
		orderID = id
		order, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		item, err := order.Item(itemID)
		if err != nil {
			return err
		}
		before := snapshot(order)
		sess := newSession(repos)
		if err := sess.lock(ctx, allocationProducts(item)); err != nil {
			return err
		}
		if err := op(ctx, sess, repos, order, item); err != nil {
			return err
		}

		d := order.Refresh(s.pricing, trade.TotalsByVATType, true)
		if d.Empty {
			deleted = true
			return s.deleteEmptyOrder(ctx, repos, order)
		}
		result = order
		return s.saveOrder(ctx, repos, actor, order, before)
	})
	if err != nil {
		return nil, s.fail(ctx, span, operation, orderID, err)
	}
	return s.finish(ctx, "order item changed", orderID, result, deleted)
}

func (s *OrderService) runOrderOp(ctx context.Context, actor shared.Actor, operation string, orderID uuid.UUID, op func(ctx context.Context, sess *session, repos transaction.Repositories, order *trade.Order) error) (*OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService."+operation, trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	var result *trade.Order
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		order, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		before := snapshot(order)
		sess := newSession(repos)
		if err := sess.lockOrder(ctx, order); err != nil {
			return err
		}
		if err := op(ctx, sess, repos, order); err != nil {
			return err
		}
		order.Refresh(s.pricing, trade.TotalsByVATType, true)
		result = order
		return s.saveOrder(ctx, repos, actor, order, before)
	})
	if err != nil {
		return nil, s.fail(ctx, span, operation, orderID, err)
	}
	return s.finish(ctx, "order "+operation, orderID, result, false)
}

// cancelItem logs and cancels an item, then restocks its allocations
func (s *OrderService) cancelItem(ctx context.Context, sess *session, repos transaction.Repositories, actor shared.Actor, order *trade.Order, item *trade.OrderItem, staged bool) error {
	entry := trade.NewOrderEvent(actor, trade.ActionCancel, item, "")
	released, err := item.Cancel()
	if err != nil {
		return err
	}
	if err := sess.restock(ctx, released, staged); err != nil {
		return err
	}
	order.AddDomainEvent(trade.NewOrderItemCancelledEvent(order.ID, item.ID))
	return repos.OrderLog().RecordOrderEvent(ctx, entry)
}

// removeItem restocks a live item and detaches it from the order
func (s *OrderService) removeItem(ctx context.Context, sess *session, repos transaction.Repositories, actor shared.Actor, order *trade.Order, item *trade.OrderItem, staged bool) error {
	if !item.IsCancelled() {
		if err := sess.restock(ctx, item.Allocations, staged); err != nil {
			return err
		}
	}
	if _, err := order.RemoveItem(item.ID); err != nil {
		return err
	}
	return repos.OrderLog().RecordOrderEvent(ctx, trade.NewOrderEvent(actor, trade.ActionDelete, item, ""))
}

// adjustItem applies a quantity, package or unit price change to one item
func (s *OrderService) adjustItem(ctx context.Context, sess *session, repos transaction.Repositories, actor shared.Actor, item *trade.OrderItem, change itemChange) error {
	changed := false
	var product *catalog.Product
	if item.ProductID != nil {
		p, err := sess.Product(ctx, *item.ProductID)
		if err != nil {
			return err
		}
		product = p
	}

	if packageChanges(item, change) || (change.Package == nil && change.Quantity != nil && *change.Quantity != item.Quantity) {
		if err := item.EnsureAdjustable(); err != nil {
			return err
		}
		if product == nil {
			return shared.InvalidTransition(fmt.Sprintf("The product of item %s no longer exists", item.ID))
		}
		var err error
		if item.IsBundle {
			err = s.resizeBundleItem(ctx, sess, item, product, change)
		} else {
			err = s.resizeItem(ctx, sess, item, product, change)
		}
		if err != nil {
			return err
		}
		changed = true
	}

	if change.UnitPrice.Valid && !change.UnitPrice.Decimal.Equal(item.UnitPrice) {
		if item.IsCancelled() {
			return shared.InvalidTransition("Cannot reprice a cancelled item")
		}
		if change.UnitPrice.Decimal.IsNegative() {
			return shared.InvalidInput("Unit price cannot be negative")
		}
		item.UnitPrice = change.UnitPrice.Decimal
		changed = true
	}

	if !changed {
		return nil
	}
	item.Reprice(s.pricing, product)
	return repos.OrderLog().RecordOrderEvent(ctx, trade.NewOrderEvent(actor, trade.ActionUpdate, item, ""))
}

// packageChanges reports whether change asks for a package count the item
// does not already hold.
func packageChanges(item *trade.OrderItem, change itemChange) bool {
	if change.Package == nil {
		return false
	}
	return item.Package == nil || *item.Package != *change.Package
}

func (s *OrderService) resizeBundleItem(ctx context.Context, sess *session, item *trade.OrderItem, product *catalog.Product, change itemChange) error {
	if change.Package != nil {
		return shared.InvalidInput(fmt.Sprintf("Bundle %s is ordered by quantity, not by package", product.Name))
	}
	target := *change.Quantity
	if target <= 0 {
		return shared.InvalidInput("Quantity must be positive")
	}
	switch delta := target - item.Quantity; {
	case delta > 0:
		more, err := sess.resolver.Reserve(ctx, product, delta)
		if err != nil {
			return err
		}
		item.Allocations = inventory.Merge(item.Allocations, more)
	case delta < 0:
		reduced, err := sess.resolver.ReleasePart(ctx, item.Allocations, item.Quantity, -delta)
		if err != nil {
			return err
		}
		item.Allocations = reduced
	}
	item.Quantity = target
	return nil
}

func (s *OrderService) resizeItem(ctx context.Context, sess *session, item *trade.OrderItem, product *catalog.Product, change itemChange) error {
	if inventory.Find(item.Allocations, product.ID) == nil {
		item.Allocations = append(item.Allocations, inventory.Allocation{ProductID: product.ID})
	}
	alloc := inventory.Find(item.Allocations, product.ID)
	receipted := item.ItemReceipt.Receipted()

	if change.Package != nil {
		if !product.SoldByPackage() {
			return shared.InvalidInput(fmt.Sprintf("Product %s is not sold by package", product.Name))
		}
		target := *change.Package
		if target <= 0 {
			return shared.InvalidInput("Package must be positive")
		}
		held := alloc.Packages
		if item.Package != nil {
			held = *item.Package
		}
		pkgDelta := target - held
		units := target**product.Piece - item.Quantity
		if units != 0 || pkgDelta != 0 {
			if err := sess.ledger.Take(ctx, product, alloc, units, &pkgDelta, receipted); err != nil {
				return err
			}
		}
		item.Package = &target
		item.Quantity = target * *product.Piece
		return nil
	}

	target := *change.Quantity
	if target <= 0 {
		return shared.InvalidInput("Quantity must be positive")
	}
	if err := sess.ledger.Take(ctx, product, alloc, target-item.Quantity, nil, receipted); err != nil {
		return err
	}
	item.Quantity = target
	item.Package = nil
	return nil
}
