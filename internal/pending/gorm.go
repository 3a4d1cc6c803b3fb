package pending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Record is the database row behind a Marker
type Record struct {
	ID            uint            `gorm:"primaryKey"`
	UserKey       string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_pending_user_tx"`
	TransactionID int             `gorm:"not null;uniqueIndex:idx_pending_user_tx"`
	OrderID       int             `gorm:"not null"`
	Amount        decimal.Decimal `gorm:"type:numeric(14,2);not null"`
	CreatedAt     time.Time       `gorm:"index"`
}

// TableName pins the table name
func (Record) TableName() string {
	return "pending_payments"
}

func (r Record) marker() Marker {
	return Marker{
		UserKey:       r.UserKey,
		OrderID:       r.OrderID,
		TransactionID: r.TransactionID,
		Amount:        r.Amount,
		CreatedAt:     r.CreatedAt,
	}
}

// GormStore keeps markers in PostgreSQL
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a store on db; the table must already be migrated
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Save inserts the marker or replaces the one for the same transaction
func (s *GormStore) Save(ctx context.Context, m Marker) error {
	if err := m.validate(); err != nil {
		return err
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now().UTC()
	}

	rec := Record{
		UserKey:       m.UserKey,
		TransactionID: m.TransactionID,
		OrderID:       m.OrderID,
		Amount:        m.Amount,
		CreatedAt:     m.CreatedAt,
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_key"}, {Name: "transaction_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"order_id", "amount", "created_at"}),
	}).Create(&rec).Error
	if err != nil {
		return fmt.Errorf("save pending payment: %w", err)
	}
	return nil
}

// Latest returns the newest marker of the user
func (s *GormStore) Latest(ctx context.Context, userKey string) (Marker, bool, error) {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("user_key = ?", userKey).
		Order("created_at DESC").
		First(&rec).Error
	return found(rec, err)
}

// Find returns the marker for one transaction
func (s *GormStore) Find(ctx context.Context, userKey string, transactionID int) (Marker, bool, error) {
	var rec Record
	err := s.db.WithContext(ctx).
		Where("user_key = ? AND transaction_id = ?", userKey, transactionID).
		First(&rec).Error
	return found(rec, err)
}

// Clear deletes the marker; a missing marker is not an error
func (s *GormStore) Clear(ctx context.Context, userKey string, transactionID int) error {
	err := s.db.WithContext(ctx).
		Where("user_key = ? AND transaction_id = ?", userKey, transactionID).
		Delete(&Record{}).Error
	if err != nil {
		return fmt.Errorf("clear pending payment: %w", err)
	}
	return nil
}

// Purge removes markers created before the cutoff
func (s *GormStore) Purge(ctx context.Context, before time.Time) (int64, error) {
	res := s.db.WithContext(ctx).Where("created_at < ?", before).Delete(&Record{})
	if res.Error != nil {
		return 0, fmt.Errorf("purge pending payments: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Count returns the number of outstanding markers
func (s *GormStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&Record{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count pending payments: %w", err)
	}
	return n, nil
}

func found(rec Record, err error) (Marker, bool, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Marker{}, false, nil
	}
	if err != nil {
		return Marker{}, false, fmt.Errorf("load pending payment: %w", err)
	}
	return rec.marker(), true, nil
}
