package trade

import (
	"context"
	"errors"
	"fmt"

	"github.com/erp/orderledger/internal/application/transaction"
	"github.com/erp/orderledger/internal/domain/inventory"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const tracerName = "github.com/erp/orderledger/internal/application/trade"

// OrderService is the transaction boundary for every order operation. Each
// call runs in one database transaction; any failure leaves products, orders
// and audit sinks exactly as they were.
type OrderService struct {
	scope          transaction.Scope
	orders         trade.OrderRepository
	pricing        trade.PricingEngine
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
	tracer         trace.Tracer
}

// NewOrderService creates a new OrderService. orders is used for reads outside a transaction.
func NewOrderService(scope transaction.Scope, orders trade.OrderRepository, pricing trade.PricingEngine, logger *zap.Logger) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OrderService{
		scope:   scope,
		orders:  orders,
		pricing: pricing,
		logger:  logger,
		tracer:  otel.Tracer(tracerName),
	}
}

// SetEventPublisher sets the publisher that receives events after commit
func (s *OrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// CreateOrder validates availability, takes stock for every line and creates
// the order with its items, audit rows, report rows and payment log.
func (s *OrderService) CreateOrder(ctx context.Context, actor shared.Actor, req CreateOrderRequest) (*OrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.CreateOrder", trace.WithAttributes(
		attribute.Int("order.lines", len(req.Items)),
		attribute.String("order.receipt", req.Receipt),
	))
	defer span.End()

	if len(req.Items) == 0 {
		return nil, s.fail(ctx, span, "create", uuid.Nil, shared.ErrEmptyOrder)
	}

	var created *trade.Order
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		sess := newSession(repos)
		ids := make([]uuid.UUID, 0, len(req.Items))
		for _, line := range req.Items {
			ids = append(ids, line.ProductID)
		}
		if err := sess.lock(ctx, ids); err != nil {
			return err
		}
		for _, line := range req.Items {
			p, err := sess.Product(ctx, line.ProductID)
			if err != nil {
				return err
			}
			if !p.TracksStock() {
				return shared.InvalidInput(fmt.Sprintf("Product %s has no stock level recorded", p.Name))
			}
		}

		buyer, err := s.buyer(ctx, repos, req.CustomerID)
		if err != nil {
			return err
		}

		order, err := trade.NewOrder(trade.NewOrderInput{
			CustomerID:    req.CustomerID,
			Receipt:       trade.ReceiptType(req.Receipt),
			VATType:       trade.VATType(req.VATType),
			PaymentStatus: trade.PaymentStatus(req.PaymentStatus),
			PaidAmount:    req.PaidAmount,
			Credit:        req.Credit,
			Actor:         actor,
		})
		if err != nil {
			return err
		}
		if order.Receipt.Receipted() {
			seq, err := repos.Receipts().Next(ctx, order.Receipt)
			if err != nil {
				return fmt.Errorf("next receipt number: %w", err)
			}
			order.AssignReceiptID(seq)
		}

		for _, line := range req.Items {
			item, err := s.reserveLine(ctx, sess, order, newLine{
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				Package:   line.Package,
				UnitPrice: line.UnitPrice,
				Unit:      line.Unit,
			})
			if err != nil {
				return err
			}
			order.AddItem(item)
		}

		order.Refresh(s.pricing, trade.TotalsByVATType, false)
		if err := order.ValidateInitialPayment(); err != nil {
			return err
		}
		if err := repos.Orders().Create(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		for _, item := range order.Items {
			if err := repos.OrderLog().RecordOrderEvent(ctx, trade.NewOrderEvent(actor, trade.ActionCreate, item, trade.NoteCreatedItem)); err != nil {
				return err
			}
			if err := repos.Reports().RecordSoldLine(ctx, trade.NewSoldLine(s.pricing, actor, order, item, buyer)); err != nil {
				return err
			}
		}
		if err := recordPayment(ctx, repos, trade.PaymentCreateEntries(order, actor)); err != nil {
			return err
		}

		order.AddDomainEvent(trade.NewOrderCreatedEvent(order))
		created = order
		return nil
	})
	if err != nil {
		return nil, s.fail(ctx, span, "create", uuid.Nil, err)
	}

	s.publish(ctx, created)
	s.logger.Info("order created",
		zap.String("order_id", created.ID.String()),
		zap.Stringp("receipt_id", created.ReceiptID),
		zap.Int("items", len(created.Items)),
		zap.String("total_amount", created.TotalAmount.StringFixed(2)),
	)
	span.SetAttributes(attribute.String("order.id", created.ID.String()))
	resp := ToOrderResponse(created)
	return &resp, nil
}

// UpdateOrder applies header changes and, when Items is given, diffs the item
// list: missing items are deleted with restock, known items are adjusted and
// lines without id are added. Totals are recomputed VAT-inclusive.
func (s *OrderService) UpdateOrder(ctx context.Context, actor shared.Actor, orderID uuid.UUID, req UpdateOrderRequest) (*OrderResult, error) {
	ctx, span := s.tracer.Start(ctx, "OrderService.UpdateOrder", trace.WithAttributes(attribute.String("order.id", orderID.String())))
	defer span.End()

	var result *trade.Order
	deleted := false
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		order, err := repos.Orders().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		before := snapshot(order)
		sess := newSession(repos)

		if req.Items != nil {
			if err := s.applyItemDiff(ctx, sess, repos, actor, order, *req.Items); err != nil {
				return err
			}
		}
		if req.CustomerID != nil {
			if _, err := repos.Customers().FindByID(ctx, *req.CustomerID); err != nil {
				return err
			}
			order.CustomerID = req.CustomerID
		}
		if req.Credit != nil {
			order.Credit = *req.Credit
		}
		if req.PaymentStatus != nil {
			if err := order.ChangePaymentStatus(trade.PaymentStatus(*req.PaymentStatus), true); err != nil {
				return err
			}
		}

		d := order.Refresh(s.pricing, trade.TotalsInclusive, false)
		if d.Empty {
			deleted = true
			return s.deleteEmptyOrder(ctx, repos, order)
		}
		if req.PaidDelta.Valid {
			if err := order.ApplyPaidDelta(req.PaidDelta.Decimal, false); err != nil {
				return err
			}
		}
		order.ReconcilePayment(true)
		result = order
		return s.saveOrder(ctx, repos, actor, order, before)
	})
	if err != nil {
		return nil, s.fail(ctx, span, "update", orderID, err)
	}
	return s.finish(ctx, "order updated", orderID, result, deleted)
}

// GetOrder returns an order with its items
func (s *OrderService) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// ListOrders returns a page of orders and the total count
func (s *OrderService) ListOrders(ctx context.Context, filter OrderListFilter) ([]OrderResponse, int64, error) {
	f := shared.Filter{Page: filter.Page, PageSize: filter.PageSize, Filters: map[string]any{}}
	if filter.Status != "" {
		f.Filters["status"] = filter.Status
	}
	if filter.Receipt != "" {
		f.Filters["receipt"] = filter.Receipt
	}
	if filter.PaymentStatus != "" {
		f.Filters["payment_status"] = filter.PaymentStatus
	}

	orders, total, err := s.orders.List(ctx, f.Normalize())
	if err != nil {
		return nil, 0, err
	}
	out := make([]OrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, ToOrderResponse(o))
	}
	return out, total, nil
}

// newLine is a line to reserve, from either a create or an update request
type newLine struct {
	ProductID uuid.UUID
	Quantity  int
	Package   *int
	UnitPrice decimal.NullDecimal
	Unit      string
}

// reserveLine takes stock for a new line and builds its item. Bundles take
// stock through the resolver; simple products through the ledger.
func (s *OrderService) reserveLine(ctx context.Context, sess *session, order *trade.Order, line newLine) (*trade.OrderItem, error) {
	p, err := sess.Product(ctx, line.ProductID)
	if err != nil {
		return nil, err
	}
	if !p.TracksStock() {
		return nil, shared.InvalidInput(fmt.Sprintf("Product %s has no stock level recorded", p.Name))
	}

	var (
		allocs   []inventory.Allocation
		quantity int
		packages *int
	)
	if p.IsBundle {
		if line.Package != nil {
			return nil, shared.InvalidInput(fmt.Sprintf("Bundle %s is ordered by quantity, not by package", p.Name))
		}
		allocs, err = sess.resolver.Reserve(ctx, p, line.Quantity)
		if err != nil {
			return nil, err
		}
		quantity = line.Quantity
	} else {
		alloc, units, err := sess.ledger.Reserve(ctx, p, inventory.Demand{
			Quantity:  line.Quantity,
			Packages:  line.Package,
			Receipted: order.Receipt.Receipted(),
		})
		if err != nil {
			return nil, err
		}
		allocs = []inventory.Allocation{alloc}
		quantity = units
		packages = line.Package
	}

	return trade.NewOrderItem(s.pricing, trade.NewOrderItemInput{
		OrderID:     order.ID,
		Product:     p,
		Quantity:    quantity,
		Package:     packages,
		UnitPrice:   line.UnitPrice,
		Unit:        line.Unit,
		Receipt:     order.Receipt,
		Allocations: allocs,
	})
}

func (s *OrderService) applyItemDiff(ctx context.Context, sess *session, repos transaction.Repositories, actor shared.Actor, order *trade.Order, lines []UpdateLineRequest) error {
	keep := make(map[uuid.UUID]UpdateLineRequest, len(lines))
	var added []UpdateLineRequest
	extra := make([]uuid.UUID, 0, len(lines))
	for _, line := range lines {
		if line.ID == nil {
			if line.ProductID == nil {
				return shared.InvalidInput("A new order line requires product_id")
			}
			extra = append(extra, *line.ProductID)
			added = append(added, line)
			continue
		}
		if _, err := order.Item(*line.ID); err != nil {
			return err
		}
		keep[*line.ID] = line
	}
	if err := sess.lockOrder(ctx, order, extra...); err != nil {
		return err
	}

	for _, item := range append([]*trade.OrderItem(nil), order.Items...) {
		line, ok := keep[item.ID]
		if !ok {
			if err := s.removeItem(ctx, sess, repos, actor, order, item, false); err != nil {
				return err
			}
			continue
		}
		if err := s.adjustItem(ctx, sess, repos, actor, item, itemChange{
			Quantity:  line.Quantity,
			Package:   line.Package,
			UnitPrice: line.UnitPrice,
		}); err != nil {
			return err
		}
	}
	buyer, err := s.buyer(ctx, repos, order.CustomerID)
	if err != nil {
		return err
	}
	for _, line := range added {
		nl := newLine{ProductID: *line.ProductID, Package: line.Package, UnitPrice: line.UnitPrice, Unit: line.Unit}
		if line.Quantity != nil {
			nl.Quantity = *line.Quantity
		}
		item, err := s.reserveLine(ctx, sess, order, nl)
		if err != nil {
			return err
		}
		order.AddItem(item)
		if err := repos.OrderLog().RecordOrderEvent(ctx, trade.NewOrderEvent(actor, trade.ActionCreate, item, trade.NoteCreatedItem)); err != nil {
			return err
		}
		if err := repos.Reports().RecordSoldLine(ctx, trade.NewSoldLine(s.pricing, actor, order, item, buyer)); err != nil {
			return err
		}
	}
	return nil
}

func (s *OrderService) buyer(ctx context.Context, repos transaction.Repositories, customerID *uuid.UUID) (*trade.Buyer, error) {
	if customerID == nil {
		return nil, nil
	}
	c, err := repos.Customers().FindByID(ctx, *customerID)
	if err != nil {
		return nil, err
	}
	return &trade.Buyer{Name: c.Name, Phone: c.Phone, TIN: c.TIN}, nil
}

// orderSnapshot is the state compared after a mutation
type orderSnapshot struct {
	payment trade.Payment
	status  trade.Status
}

func snapshot(order *trade.Order) orderSnapshot {
	return orderSnapshot{payment: order.Payment(), status: order.Status}
}

// saveOrder persists the order and logs payment fields that changed
func (s *OrderService) saveOrder(ctx context.Context, repos transaction.Repositories, actor shared.Actor, order *trade.Order, before orderSnapshot) error {
	if err := repos.Orders().Save(ctx, order); err != nil {
		return fmt.Errorf("save order: %w", err)
	}
	if err := recordPayment(ctx, repos, trade.PaymentChanges(order, actor, before.payment)); err != nil {
		return err
	}
	if order.Status == trade.StatusCancelled && before.status != trade.StatusCancelled {
		order.AddDomainEvent(trade.NewOrderCancelledEvent(order.ID))
	}
	order.AddDomainEvent(trade.NewOrderUpdatedEvent(order))
	return nil
}

func (s *OrderService) deleteEmptyOrder(ctx context.Context, repos transaction.Repositories, order *trade.Order) error {
	if err := repos.Orders().Delete(ctx, order.ID); err != nil {
		return fmt.Errorf("delete order: %w", err)
	}
	return nil
}

func recordPayment(ctx context.Context, repos transaction.Repositories, changes []trade.PaymentFieldChange) error {
	for _, c := range changes {
		if err := repos.PaymentLog().RecordFieldChange(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// publish hands the order's events to the bus after commit. Handler errors
// are logged; the transaction is already committed.
func (s *OrderService) publish(ctx context.Context, order *trade.Order) {
	if order == nil {
		return
	}
	events := order.GetDomainEvents()
	order.ClearDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish order events", zap.String("order_id", order.ID.String()), zap.Error(err))
	}
}

func (s *OrderService) finish(ctx context.Context, msg string, orderID uuid.UUID, order *trade.Order, deleted bool) (*OrderResult, error) {
	if deleted {
		s.publishEvents(ctx, trade.NewOrderDeletedEvent(orderID))
		s.logger.Info(msg, zap.String("order_id", orderID.String()), zap.Bool("order_deleted", true))
		return &OrderResult{OrderDeleted: true}, nil
	}
	s.publish(ctx, order)
	s.logger.Info(msg,
		zap.String("order_id", orderID.String()),
		zap.Stringp("receipt_id", order.ReceiptID),
		zap.Int("items", len(order.Items)),
		zap.String("total_amount", order.TotalAmount.StringFixed(2)),
	)
	resp := ToOrderResponse(order)
	return &OrderResult{Order: &resp}, nil
}

func (s *OrderService) publishEvents(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish order events", zap.Error(err))
	}
}

// fail records a rejected operation on the span, log and event bus
func (s *OrderService) fail(ctx context.Context, span trace.Span, operation string, orderID uuid.UUID, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	var de *shared.DomainError
	if errors.As(err, &de) {
		s.logger.Warn("order operation rejected",
			zap.String("operation", operation),
			zap.String("order_id", orderID.String()),
			zap.String("code", de.Code),
			zap.String("reason", de.Message),
		)
		s.publishEvents(ctx, trade.NewOrderRejectedEvent(orderID, operation, de.Code))
		return err
	}
	s.logger.Error("order operation failed",
		zap.String("operation", operation),
		zap.String("order_id", orderID.String()),
		zap.Error(err),
	)
	return err
}
