package trade

import (
	"context"
	"fmt"
	"slices"

	"github.com/erp/orderledger/internal/application/transaction"
	"github.com/erp/orderledger/internal/domain/catalog"
	"github.com/erp/orderledger/internal/domain/inventory"
	"github.com/erp/orderledger/internal/domain/shared"
	"github.com/erp/orderledger/internal/domain/trade"
	"github.com/google/uuid"
)

// session caches the products locked by one transaction so every stock
// change inside it works on the same instance.
type session struct {
	repos    transaction.Repositories
	products map[uuid.UUID]*catalog.Product
	ledger   *inventory.StockLedger
	resolver *inventory.BundleResolver
}

func newSession(repos transaction.Repositories) *session {
	s := &session{
		repos:    repos,
		products: make(map[uuid.UUID]*catalog.Product),
	}
	s.ledger = inventory.NewStockLedger(repos.Products())
	s.resolver = inventory.NewBundleResolver(repos.Bundles(), s, s.ledger)
	return s
}

// lock row-locks the given products and the components of any bundle among
// them. Products are locked in ascending id order to keep lock acquisition
// consistent across concurrent transactions.
func (s *session) lock(ctx context.Context, ids []uuid.UUID) error {
	want := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := s.products[id]; !ok && !slices.Contains(want, id) {
			want = append(want, id)
		}
	}
	if len(want) == 0 {
		return nil
	}

	bundles, err := s.repos.Bundles().FindByProductIDs(ctx, want)
	if err != nil {
		return fmt.Errorf("load bundles: %w", err)
	}
	for _, b := range bundles {
		for _, id := range b.ComponentProductIDs() {
			if _, ok := s.products[id]; !ok && !slices.Contains(want, id) {
				want = append(want, id)
			}
		}
	}
	slices.SortFunc(want, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })

	locked, err := s.repos.Products().FindByIDsForUpdate(ctx, want)
	if err != nil {
		return fmt.Errorf("lock products: %w", err)
	}
	for id, p := range locked {
		s.products[id] = p
	}
	return nil
}

// Product implements inventory.ProductSource
func (s *session) Product(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	if err := s.lock(ctx, []uuid.UUID{id}); err != nil {
		return nil, err
	}
	if p, ok := s.products[id]; ok {
		return p, nil
	}
	return nil, shared.NewDomainError(shared.CodeNotFound, fmt.Sprintf("Product %s not found", id))
}

// lockOrder locks every product the order's items hold stock on
func (s *session) lockOrder(ctx context.Context, o *trade.Order, extra ...uuid.UUID) error {
	ids := append([]uuid.UUID(nil), extra...)
	for _, it := range o.Items {
		ids = append(ids, allocationProducts(it)...)
	}
	return s.lock(ctx, ids)
}

// restock gives back everything an item holds. Products that no longer exist
// are skipped. With staged set, saves are deferred until flush.
func (s *session) restock(ctx context.Context, allocs []inventory.Allocation, staged bool) error {
	for _, a := range allocs {
		if a.IsEmpty() {
			continue
		}
		p, ok := s.products[a.ProductID]
		if !ok {
			continue
		}
		if staged {
			if err := s.ledger.StageRelease(p, a); err != nil {
				return err
			}
			continue
		}
		if err := s.ledger.Release(ctx, p, a); err != nil {
			return err
		}
	}
	return nil
}

func (s *session) flush(ctx context.Context) error {
	return s.ledger.Flush(ctx)
}

func allocationProducts(it *trade.OrderItem) []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(it.Allocations)+1)
	if it.ProductID != nil {
		ids = append(ids, *it.ProductID)
	}
	for _, a := range it.Allocations {
		ids = append(ids, a.ProductID)
	}
	return ids
}
