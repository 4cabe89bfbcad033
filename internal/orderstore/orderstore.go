// Package orderstore is a minimal in-memory xemm.ActiveOrderProvider for
// the demo process harness. It only reacts to the Supervisor results the
// Strategy Core reports through Strategy.OnResult; it never talks to a
// real exchange's order-event stream.
package orderstore

import (
	"sync"

	"github.com/quantedge/xemm-core/pkg/xemm"
)

// Store holds the active maker orders per pair.
type Store struct {
	mu     sync.Mutex
	orders map[xemm.PairHandle]map[xemm.ClientOrderId]xemm.TrackedOrder
}

// New constructs an empty Store.
func New() *Store {
	return &Store{orders: make(map[xemm.PairHandle]map[xemm.ClientOrderId]xemm.TrackedOrder)}
}

// ApplyResult folds one Supervisor.Evaluate outcome into the store: newly
// placed orders are added, cancelled ids are removed. Wire this as
// Strategy.OnResult.
func (s *Store) ApplyResult(pair xemm.MarketPair, result xemm.Result) {
	s.mu.Lock()
	defer s.mu.Unlock()

	bucket, ok := s.orders[pair.Handle]
	if !ok {
		bucket = make(map[xemm.ClientOrderId]xemm.TrackedOrder)
		s.orders[pair.Handle] = bucket
	}

	for _, id := range result.Cancelled {
		delete(bucket, id)
	}
	if result.PlacedBid != nil {
		bucket[result.PlacedBid.ID] = *result.PlacedBid
	}
	if result.PlacedAsk != nil {
		bucket[result.PlacedAsk.ID] = *result.PlacedAsk
	}
}

// Remove drops id from its pair's bucket, for an order that has completed.
// The Strategy Core does not call it; its only hook into this store is
// Strategy.OnResult.
func (s *Store) Remove(pair xemm.MarketPair, id xemm.ClientOrderId) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if bucket, ok := s.orders[pair.Handle]; ok {
		delete(bucket, id)
	}
}

// ActiveOrders implements xemm.ActiveOrderProvider.
func (s *Store) ActiveOrders(pair xemm.MarketPair) []xemm.TrackedOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	bucket := s.orders[pair.Handle]
	out := make([]xemm.TrackedOrder, 0, len(bucket))
	for _, o := range bucket {
		out = append(out, o)
	}
	return out
}

// HasInFlightCancel always reports false: the paper venue's Cancel is
// synchronous, so there is never an observable in-flight window.
func (s *Store) HasInFlightCancel(id xemm.ClientOrderId) bool {
	return false
}
