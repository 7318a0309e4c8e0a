package repository

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

type memRecord struct {
	token     string
	orderID   string
	done      bool
	expiresAt time.Time
}

// MemoryLedger is a SyncLedger for single-instance deployments and tests.
type MemoryLedger struct {
	mu        sync.Mutex
	records   map[string]*memRecord
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewMemoryLedger creates a ledger and starts a cleanup loop for expired records.
func NewMemoryLedger() *MemoryLedger {
	l := &MemoryLedger{
		records:  make(map[string]*memRecord),
		now:      time.Now,
		stopChan: make(chan struct{}),
	}
	l.wg.Add(1)
	go l.cleanupLoop()
	return l
}

func (l *MemoryLedger) Claim(_ context.Context, sessionID string, ttl time.Duration) (Claim, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if rec, ok := l.records[sessionID]; ok && now.Before(rec.expiresAt) {
		if rec.done {
			return Claim{State: ClaimCompleted, OrderID: rec.orderID}, nil
		}
		return Claim{State: ClaimInProgress}, nil
	}

	token := uuid.NewString()
	l.records[sessionID] = &memRecord{token: token, expiresAt: now.Add(ttl)}
	return Claim{State: ClaimAcquired, Token: token}, nil
}

func (l *MemoryLedger) Complete(_ context.Context, sessionID, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.records[sessionID] = &memRecord{
		orderID:   orderID,
		done:      true,
		expiresAt: l.now().Add(syncedRetention),
	}
	return nil
}

func (l *MemoryLedger) Release(_ context.Context, sessionID, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if rec, ok := l.records[sessionID]; ok && !rec.done && rec.token == token {
		delete(l.records, sessionID)
	}
	return nil
}

// Size returns the number of tracked sessions.
func (l *MemoryLedger) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (l *MemoryLedger) Close() error {
	l.closeOnce.Do(func() {
		close(l.stopChan)
		l.wg.Wait()
	})
	return nil
}

func (l *MemoryLedger) cleanupLoop() {
	defer l.wg.Done()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-l.stopChan:
			return
		case <-ticker.C:
			l.cleanup()
		}
	}
}

func (l *MemoryLedger) cleanup() {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for id, rec := range l.records {
		if now.After(rec.expiresAt) {
			delete(l.records, id)
		}
	}
}

var _ SyncLedger = (*MemoryLedger)(nil)
