package cart

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	store    *Store
	lastSeen time.Time
}

// Registry maps cart ids to stores and evicts carts idle for longer than ttl.
type Registry struct {
	mu        sync.Mutex
	carts     map[string]*entry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewRegistry creates a registry and starts its cleanup loop. Call Close to stop it.
func NewRegistry(ttl time.Duration) *Registry {
	r := &Registry{
		carts:    make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
		stopChan: make(chan struct{}),
	}

	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	r.wg.Add(1)
	go r.cleanupLoop(interval)
	return r
}

// Get returns the cart for id, creating it when absent. An empty or
// malformed id gets a fresh uuid, returned alongside the store.
func (r *Registry) Get(id string) (string, *Store) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.carts[id]
	if !ok {
		e = &entry{store: NewStore()}
		r.carts[id] = e
	}
	e.lastSeen = r.now()
	return id, e.store
}

// Lookup returns an existing cart without creating one.
func (r *Registry) Lookup(id string) (*Store, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.carts[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = r.now()
	return e.store, true
}

// Size returns the number of live carts.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.carts)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (r *Registry) Close() {
	r.closeOnce.Do(func() {
		close(r.stopChan)
		r.wg.Wait()
	})
}

func (r *Registry) cleanupLoop(interval time.Duration) {
	defer r.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopChan:
			return
		case <-ticker.C:
			r.evictIdle()
		}
	}
}

func (r *Registry) evictIdle() {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.now().Add(-r.ttl)
	for id, e := range r.carts {
		if e.lastSeen.Before(cutoff) {
			delete(r.carts, id)
		}
	}
}
