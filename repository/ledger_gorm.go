package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	SyncStatusPending = "pending"
	SyncStatusSynced  = "synced"
)

// OrderSync is one row per checkout session that reached order sync.
type OrderSync struct {
	ID              uuid.UUID `gorm:"type:uuid;primaryKey"`
	StripeSessionID string    `gorm:"type:varchar(255);uniqueIndex;not null"`
	Status          string    `gorm:"type:varchar(20);not null"`
	ClaimToken      string    `gorm:"type:varchar(64)"`
	ERPOrderID      *string   `gorm:"type:varchar(255)"`
	ClaimedAt       time.Time `gorm:"not null"`
	SyncedAt        *time.Time
	CreatedAt       time.Time `gorm:"autoCreateTime"`
	UpdatedAt       time.Time `gorm:"autoUpdateTime"`
}

// GormLedger is a durable SyncLedger backed by Postgres.
type GormLedger struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormLedger(db *gorm.DB) *GormLedger {
	return &GormLedger{db: db, now: time.Now}
}

func (l *GormLedger) Claim(ctx context.Context, sessionID string, ttl time.Duration) (Claim, error) {
	now := l.now()
	token := uuid.NewString()

	rec := OrderSync{
		ID:              uuid.New(),
		StripeSessionID: sessionID,
		Status:          SyncStatusPending,
		ClaimToken:      token,
		ClaimedAt:       now,
	}
	res := l.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&rec)
	if res.Error != nil {
		return Claim{}, fmt.Errorf("claim session %s: %w", sessionID, res.Error)
	}
	if res.RowsAffected == 1 {
		return Claim{State: ClaimAcquired, Token: token}, nil
	}

	var existing OrderSync
	err := l.db.WithContext(ctx).Where("stripe_session_id = ?", sessionID).First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		// Released between the insert and the read; let the caller retry later.
		return Claim{State: ClaimInProgress}, nil
	}
	if err != nil {
		return Claim{}, fmt.Errorf("read claim for session %s: %w", sessionID, err)
	}

	if existing.Status == SyncStatusSynced {
		orderID := ""
		if existing.ERPOrderID != nil {
			orderID = *existing.ERPOrderID
		}
		return Claim{State: ClaimCompleted, OrderID: orderID}, nil
	}

	// Take over an abandoned claim.
	res = l.db.WithContext(ctx).Model(&OrderSync{}).
		Where("stripe_session_id = ? AND status = ? AND claimed_at < ?", sessionID, SyncStatusPending, now.Add(-ttl)).
		Updates(map[string]interface{}{"claim_token": token, "claimed_at": now})
	if res.Error != nil {
		return Claim{}, fmt.Errorf("take over claim for session %s: %w", sessionID, res.Error)
	}
	if res.RowsAffected == 1 {
		return Claim{State: ClaimAcquired, Token: token}, nil
	}
	return Claim{State: ClaimInProgress}, nil
}

func (l *GormLedger) Complete(ctx context.Context, sessionID, orderID string) error {
	now := l.now()
	rec := OrderSync{
		ID:              uuid.New(),
		StripeSessionID: sessionID,
		Status:          SyncStatusSynced,
		ERPOrderID:      &orderID,
		ClaimedAt:       now,
		SyncedAt:        &now,
	}
	err := l.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "stripe_session_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "erp_order_id", "synced_at", "updated_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("complete session %s: %w", sessionID, err)
	}
	return nil
}

func (l *GormLedger) Release(ctx context.Context, sessionID, token string) error {
	err := l.db.WithContext(ctx).
		Where("stripe_session_id = ? AND claim_token = ? AND status = ?", sessionID, token, SyncStatusPending).
		Delete(&OrderSync{}).Error
	if err != nil {
		return fmt.Errorf("release session %s: %w", sessionID, err)
	}
	return nil
}

var _ SyncLedger = (*GormLedger)(nil)
