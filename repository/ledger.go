package repository

import (
	"context"
	"time"
)

// ClaimState is the outcome of claiming a checkout session for order sync.
type ClaimState int

const (
	// ClaimAcquired means the caller owns the sync and must Complete or Release.
	ClaimAcquired ClaimState = iota
	// ClaimInProgress means another caller holds a live claim.
	ClaimInProgress
	// ClaimCompleted means the session already produced an ERP order.
	ClaimCompleted
)

func (s ClaimState) String() string {
	switch s {
	case ClaimAcquired:
		return "acquired"
	case ClaimInProgress:
		return "in_progress"
	case ClaimCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

type Claim struct {
	State ClaimState
	// Token identifies an acquired claim; Release only drops a claim whose token matches.
	Token string
	// OrderID is set when State is ClaimCompleted.
	OrderID string
}

// SyncLedger records which checkout sessions have been turned into ERP orders.
// A claim older than its ttl is considered abandoned and can be taken over.
type SyncLedger interface {
	Claim(ctx context.Context, sessionID string, ttl time.Duration) (Claim, error)
	Complete(ctx context.Context, sessionID, orderID string) error
	Release(ctx context.Context, sessionID, token string) error
}

// syncedRetention bounds how long completed sessions are remembered by the
// expiring ledgers. Stripe stops redelivering events after three days.
const syncedRetention = 30 * 24 * time.Hour
