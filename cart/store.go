// Package cart holds per-visitor cart state. Stores live in memory only and
// are lost on restart.
package cart

import (
	"sync"

	"github.com/antonioqueb/ooak/models"
	"github.com/shopspring/decimal"
)

// Snapshot is an immutable view of a store handed to subscribers.
type Snapshot struct {
	Items []models.CartItem
	Total float64
	Count int
}

// Store is a single cart. All methods are safe for concurrent use.
type Store struct {
	mu     sync.Mutex
	items  []models.CartItem
	subs   map[int]func(Snapshot)
	nextID int

	// notifyMu orders deliveries. It is taken before mu is released.
	notifyMu sync.Mutex
}

func NewStore() *Store {
	return &Store{subs: make(map[int]func(Snapshot))}
}

// Add appends item or, when an item with the same ID exists, adds to its
// quantity. Items with a quantity below 1 are ignored.
func (s *Store) Add(item models.CartItem) {
	if item.Quantity < 1 {
		return
	}
	s.mu.Lock()
	merged := false
	for i := range s.items {
		if s.items[i].ID == item.ID {
			s.items[i].Quantity += item.Quantity
			merged = true
			break
		}
	}
	if !merged {
		s.items = append(s.items, item)
	}
	s.unlockAndNotify()
}

// Remove deletes the item with the given ID. It reports whether anything was removed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	if !s.removeLocked(id) {
		s.mu.Unlock()
		return false
	}
	s.unlockAndNotify()
	return true
}

// SetQuantity sets the quantity of an existing item. Negative values clamp to
// 0 and 0 removes the item. It reports whether the item exists.
func (s *Store) SetQuantity(id string, quantity int) bool {
	if quantity < 0 {
		quantity = 0
	}
	s.mu.Lock()
	found := false
	for i := range s.items {
		if s.items[i].ID == id {
			found = true
			if quantity == 0 {
				s.removeLocked(id)
			} else {
				s.items[i].Quantity = quantity
			}
			break
		}
	}
	if !found {
		s.mu.Unlock()
		return false
	}
	s.unlockAndNotify()
	return true
}

// Clear empties the cart.
func (s *Store) Clear() {
	s.mu.Lock()
	s.items = nil
	s.unlockAndNotify()
}

// Items returns a copy of the cart lines in insertion order.
func (s *Store) Items() []models.CartItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Total is the sum of price × quantity.
func (s *Store) Total() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return totalOf(s.items)
}

// Snapshot returns items, total and count read under one lock.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to be called with a snapshot after every change,
// in the order the changes were made. fn may read the store but must not
// modify it. The returned function removes the subscription.
func (s *Store) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

// unlockAndNotify snapshots the change while mu is still held, then releases
// mu and runs subscribers under notifyMu.
func (s *Store) unlockAndNotify() {
	if len(s.subs) == 0 {
		s.mu.Unlock()
		return
	}
	snap := s.snapshotLocked()
	fns := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	s.mu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

func (s *Store) removeLocked(id string) bool {
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return true
		}
	}
	return false
}

func (s *Store) copyLocked() []models.CartItem {
	out := make([]models.CartItem, len(s.items))
	copy(out, s.items)
	return out
}

func (s *Store) snapshotLocked() Snapshot {
	return Snapshot{
		Items: s.copyLocked(),
		Total: totalOf(s.items),
		Count: countOf(s.items),
	}
}

func totalOf(items []models.CartItem) float64 {
	total := decimal.Zero
	for _, it := range items {
		total = total.Add(decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	f, _ := total.Float64()
	return f
}

func countOf(items []models.CartItem) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}
