package inventory

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	saved []uuid.UUID
	err   error
}

func (w *recordingWriter) Save(_ context.Context, p *catalog.Product) error {
	if w.err != nil {
		return w.err
	}
	w.saved = append(w.saved, p.ID)
	return nil
}

func intPtr(v int) *int { return &v }

func newProduct(name string, stock, pkg, piece, receipt *int) *catalog.Product {
	return &catalog.Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Stock:             stock,
		Package:           pkg,
		Piece:             piece,
		ReceiptNo:         receipt,
	}
}

func TestStockLedger_Reserve(t *testing.T) {
	ctx := context.Background()

	t.Run("unit demand persists immediately", func(t *testing.T) {
		w := &recordingWriter{}
		l := NewStockLedger(w)
		p := newProduct("P", intPtr(100), nil, nil, nil)

		alloc, units, err := l.Reserve(ctx, p, Demand{Quantity: 10})
		require.NoError(t, err)
		assert.Equal(t, 10, units)
		assert.Equal(t, 90, *p.Stock)
		assert.Equal(t, Allocation{ProductID: p.ID, Units: 10}, alloc)
		assert.Equal(t, []uuid.UUID{p.ID}, w.saved)
	})

	t.Run("receipted unit demand with derived package", func(t *testing.T) {
		l := NewStockLedger(&recordingWriter{})
		p := newProduct("P", intPtr(115), intPtr(10), intPtr(10), intPtr(60))

		alloc, units, err := l.Reserve(ctx, p, Demand{Quantity: 23, Receipted: true})
		require.NoError(t, err)
		assert.Equal(t, 23, units)
		assert.Equal(t, 92, *p.Stock)
		assert.Equal(t, 9, *p.Package)
		assert.Equal(t, 37, *p.ReceiptNo)
		assert.Equal(t, Allocation{ProductID: p.ID, Units: 23, Packages: 1, ReceiptUnits: 23}, alloc)
	})

	t.Run("package demand converts to units", func(t *testing.T) {
		l := NewStockLedger(&recordingWriter{})
		p := newProduct("P", intPtr(100), intPtr(10), intPtr(10), nil)

		alloc, units, err := l.Reserve(ctx, p, Demand{Packages: intPtr(3)})
		require.NoError(t, err)
		assert.Equal(t, 30, units)
		assert.Equal(t, 70, *p.Stock)
		assert.Equal(t, 7, *p.Package)
		assert.Equal(t, 3, alloc.Packages)
	})

	t.Run("package demand needs a piece count", func(t *testing.T) {
		l := NewStockLedger(&recordingWriter{})
		p := newProduct("P", intPtr(100), nil, nil, nil)

		_, _, err := l.Reserve(ctx, p, Demand{Packages: intPtr(1)})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("insufficient stock does not persist", func(t *testing.T) {
		w := &recordingWriter{}
		l := NewStockLedger(w)
		p := newProduct("P", intPtr(5), nil, nil, nil)

		_, _, err := l.Reserve(ctx, p, Demand{Quantity: 6})
		assert.True(t, errors.Is(err, shared.ErrInsufficientStock))
		assert.Equal(t, 5, *p.Stock)
		assert.Empty(t, w.saved)
	})

	t.Run("rejects non-positive quantity", func(t *testing.T) {
		l := NewStockLedger(&recordingWriter{})
		p := newProduct("P", intPtr(5), nil, nil, nil)

		_, _, err := l.Reserve(ctx, p, Demand{Quantity: 0})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

func TestStockLedger_TakeAndRelease(t *testing.T) {
	ctx := context.Background()

	t.Run("partial give-back then full release is exact", func(t *testing.T) {
		l := NewStockLedger(&recordingWriter{})
		p := newProduct("P", intPtr(115), intPtr(10), intPtr(10), intPtr(60))

		alloc, _, err := l.Reserve(ctx, p, Demand{Quantity: 23, Receipted: true})
		require.NoError(t, err)

		require.NoError(t, l.Take(ctx, p, &alloc, -3, nil, true))
		assert.Equal(t, 95, *p.Stock)
		assert.Equal(t, 20, alloc.Units)
		assert.Equal(t, 20, alloc.ReceiptUnits)

		require.NoError(t, l.Release(ctx, p, alloc))
		assert.Equal(t, 115, *p.Stock)
		assert.Equal(t, 10, *p.Package)
		assert.Equal(t, 60, *p.ReceiptNo)
	})

	t.Run("write failure surfaces", func(t *testing.T) {
		l := NewStockLedger(&recordingWriter{err: errors.New("db down")})
		p := newProduct("P", intPtr(10), nil, nil, nil)

		_, _, err := l.Reserve(ctx, p, Demand{Quantity: 1})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "db down")
	})
}

func TestStockLedger_StageAndFlush(t *testing.T) {
	ctx := context.Background()
	w := &recordingWriter{}
	l := NewStockLedger(w)
	p := newProduct("P", intPtr(80), nil, nil, nil)

	require.NoError(t, l.StageRelease(p, Allocation{ProductID: p.ID, Units: 10}))
	require.NoError(t, l.StageRelease(p, Allocation{ProductID: p.ID, Units: 5}))
	assert.Equal(t, 95, *p.Stock)
	assert.Empty(t, w.saved)

	require.NoError(t, l.Flush(ctx))
	assert.Equal(t, []uuid.UUID{p.ID}, w.saved)
}
