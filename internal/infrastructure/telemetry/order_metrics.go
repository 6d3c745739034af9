package telemetry

import (
	"context"

	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/domain/trade"
	"go.opentelemetry.io/otel/metric"
)

// OrderMetrics turns committed order events into counters. It is subscribed
// to the event bus, so only committed work is counted.
type OrderMetrics struct {
	created        *Counter
	updated        *Counter
	itemsCancelled *Counter
	cancelled      *Counter
	deleted        *Counter
	rejected       *Counter
	amount         *Histogram
}

// NewOrderMetrics creates the order instruments on meter
func NewOrderMetrics(meter metric.Meter) (*OrderMetrics, error) {
	var (
		m   OrderMetrics
		err error
	)
	counters := []struct {
		target      **Counter
		name        string
		description string
	}{
		{&m.created, "orders.created", "Orders committed"},
		{&m.updated, "orders.updated", "Order updates committed"},
		{&m.itemsCancelled, "order_items.cancelled", "Order items force-cancelled"},
		{&m.cancelled, "orders.cancelled", "Orders whose every item was cancelled"},
		{&m.deleted, "orders.deleted", "Orders deleted"},
		{&m.rejected, "orders.rejected", "Order operations rolled back"},
	}
	for _, c := range counters {
		if *c.target, err = NewCounter(meter, c.name, c.description, "{order}"); err != nil {
			return nil, err
		}
	}
	m.amount, err = NewHistogram(meter, HistogramOpts{
		Name:        "orders.amount",
		Description: "Total amount of created orders",
		Unit:        "{currency}",
		Boundaries:  OrderAmountBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// EventTypes returns the order events counted
func (m *OrderMetrics) EventTypes() []string {
	return []string{
		trade.EventTypeOrderCreated,
		trade.EventTypeOrderUpdated,
		trade.EventTypeOrderItemCancelled,
		trade.EventTypeOrderCancelled,
		trade.EventTypeOrderDeleted,
		trade.EventTypeOrderRejected,
	}
}

// Handle records one event
func (m *OrderMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *trade.OrderCreatedEvent:
		m.created.Inc(ctx, AttrReceipt.String(string(e.Receipt)))
		m.amount.Record(ctx, e.TotalAmount.InexactFloat64(), AttrReceipt.String(string(e.Receipt)))
	case *trade.OrderUpdatedEvent:
		m.updated.Inc(ctx)
	case *trade.OrderItemCancelledEvent:
		m.itemsCancelled.Inc(ctx)
	case *trade.OrderCancelledEvent:
		m.cancelled.Inc(ctx)
	case *trade.OrderDeletedEvent:
		m.deleted.Inc(ctx)
	case *trade.OrderRejectedEvent:
		m.rejected.Inc(ctx, AttrOperation.String(e.Operation), AttrErrorCode.String(e.Code))
	}
	return nil
}

// Ensure OrderMetrics implements EventHandler
var _ shared.EventHandler = (*OrderMetrics)(nil)
