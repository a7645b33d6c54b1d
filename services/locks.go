package services

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/storage"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Domain errors surfaced to handlers as machine-readable codes.
var (
	ErrIneligibleStatus = errors.New("ineligible_status")
	ErrNoPublishWindow  = errors.New("no_publish_window")
	ErrWindowExpired    = errors.New("window_expired")
	ErrLockNotFound     = errors.New("lock_not_found")
	ErrLockNotActive    = errors.New("lock_not_active")
)

const (
	// Early-Bird purchase window after publication.
	EarlyBirdWindow = 48 * time.Hour

	// How long an active lock holds the listing off the market.
	LockDuration = 7 * 24 * time.Hour

	// Manual reopen back-dates published_at by this much so the listing
	// does not immediately re-qualify for a fresh Early-Bird window.
	ReopenBackdate = 72 * time.Hour

	// Floor on the lock fee, in XOF.
	MinLockFee int64 = 10000
)

// LockNotifier receives lifecycle events. Notifications are a side
// effect; dispatch failures never roll back a transition.
type LockNotifier interface {
	DispatchLockEvent(ev LockEvent)
}

// LockService drives the property lock state machine.
type LockService struct {
	notifier LockNotifier
}

func NewLockService(notifier LockNotifier) *LockService {
	return &LockService{notifier: notifier}
}

// CheckEligibility gates lock initiation: the listing must be en_ligne
// and within 48 hours of publication.
func (s *LockService) CheckEligibility(property *models.Property, now time.Time) error {
	if property.Status != models.PropertyStatusPublished {
		return ErrIneligibleStatus
	}
	if property.PublishedAt == nil {
		return ErrNoPublishWindow
	}
	if now.Sub(*property.PublishedAt) > EarlyBirdWindow {
		return ErrWindowExpired
	}
	return nil
}

// LockFee computes the Early-Bird fee: 10% of the monthly rent with a
// 10 000 XOF floor, rounded to whole francs (XOF has no subunit).
func LockFee(rent int64) int64 {
	fee := decimal.NewFromInt(rent).
		Mul(decimal.NewFromFloat(0.10)).
		Round(0).
		IntPart()
	if fee < MinLockFee {
		return MinLockFee
	}
	return fee
}

// HandleDepositCompleted creates the lock once a property_lock deposit is
// confirmed. Idempotent: callbacks are delivered at least once, so an
// existing active lock for the same transaction or property short-circuits
// to a no-op, and a property that already left en_ligne is never dragged
// back to locked.
func (s *LockService) HandleDepositCompleted(transaction *models.Transaction, now time.Time) error {
	if transaction.Type != models.TransactionTypePropertyLock {
		return nil
	}
	if transaction.PropertyID == nil || transaction.UserID == nil {
		return fmt.Errorf("property_lock transaction %d has no property or user", transaction.ID)
	}

	var existing models.PropertyLock
	err := storage.DB.
		Where("status = ? AND (transaction_id = ? OR property_id = ?)",
			models.LockStatusActive, transaction.ID, *transaction.PropertyID).
		First(&existing).Error
	if err == nil {
		log.Printf("🔒 LOCK: active lock %d already exists for transaction %d, skipping", existing.ID, transaction.ID)
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	var property models.Property
	if err := storage.DB.First(&property, *transaction.PropertyID).Error; err != nil {
		return fmt.Errorf("property %d not found for completed deposit: %v", *transaction.PropertyID, err)
	}

	// A late redelivery can land after the listing already left the
	// market (finalized, expired, re-locked). Never drag it back.
	if property.Status != models.PropertyStatusPublished {
		log.Printf("🔒 LOCK: property %d is %q, ignoring deposit %s (refund to review)",
			property.ID, property.Status, transaction.DepositID)
		return nil
	}

	lock := models.PropertyLock{
		PropertyID:    property.ID,
		RenterID:      *transaction.UserID,
		TransactionID: transaction.ID,
		LockFee:       transaction.Amount,
		Status:        models.LockStatusActive,
		LockedAt:      now,
		ExpiresAt:     now.Add(LockDuration),
	}

	// Lock row first, property status last: a failure in between leaves
	// the listing visibly unchanged rather than locked with no lock row.
	err = storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&lock).Error; err != nil {
			return err
		}
		res := tx.Model(&models.Property{}).
			Where("id = ? AND status = ?", property.ID, models.PropertyStatusPublished).
			Update("status", models.PropertyStatusLocked)
		if res.Error != nil {
			return res.Error
		}
		// Status changed under us; roll back the lock row too.
		if res.RowsAffected == 0 {
			return ErrIneligibleStatus
		}
		return nil
	})
	if errors.Is(err, ErrIneligibleStatus) {
		log.Printf("🔒 LOCK: property %d left %q during deposit %s, ignoring (refund to review)",
			property.ID, models.PropertyStatusPublished, transaction.DepositID)
		return nil
	}
	if err != nil {
		return err
	}

	log.Printf("🔒 LOCK: property %d locked by user %d until %s", property.ID, *transaction.UserID, lock.ExpiresAt.Format(time.RFC3339))

	s.notifier.DispatchLockEvent(LockEvent{
		Kind:       LockEventDay0,
		LockID:     lock.ID,
		PropertyID: property.ID,
		AgentID:    property.AgentID,
		RenterID:   *transaction.UserID,
		Title:      property.Title,
		Address:    property.AddressLine1,
	})

	return nil
}

// Finalize marks a locked property as rented. Staff action; the lock must
// still be active at the moment of the write.
func (s *LockService) Finalize(lockID uint, now time.Time) (*models.PropertyLock, error) {
	lock, property, err := s.resolveLock(lockID, now, models.PropertyStatusFinalized, models.LockStatusFinalized, nil)
	if err != nil {
		return nil, err
	}

	s.notifier.DispatchLockEvent(LockEvent{
		Kind:       LockEventFinalized,
		LockID:     lock.ID,
		PropertyID: property.ID,
		AgentID:    property.AgentID,
		RenterID:   lock.RenterID,
		Title:      property.Title,
		Address:    property.AddressLine1,
	})

	return lock, nil
}

// Reopen cancels an active lock and puts the listing back en_ligne. The
// publish date is back-dated by 3 days so the listing does not instantly
// re-enter the Early-Bird window. Auto-expiry deliberately does not
// back-date; the asymmetry is preserved from observed behavior.
func (s *LockService) Reopen(lockID uint, now time.Time) (*models.PropertyLock, error) {
	backdated := now.Add(-ReopenBackdate)
	lock, property, err := s.resolveLock(lockID, now, models.PropertyStatusPublished, models.LockStatusExpired, &backdated)
	if err != nil {
		return nil, err
	}

	s.notifier.DispatchLockEvent(LockEvent{
		Kind:       LockEventReopened,
		LockID:     lock.ID,
		PropertyID: property.ID,
		AgentID:    property.AgentID,
		RenterID:   lock.RenterID,
		Title:      property.Title,
		Address:    property.AddressLine1,
	})

	return lock, nil
}

// AutoExpire resolves a lock whose 7 days ran out. Sweeper-driven; the
// publish date is left untouched.
func (s *LockService) AutoExpire(lockID uint, now time.Time) error {
	lock, property, err := s.resolveLock(lockID, now, models.PropertyStatusPublished, models.LockStatusExpired, nil)
	if err != nil {
		return err
	}

	s.notifier.DispatchLockEvent(LockEvent{
		Kind:       LockEventDay7,
		LockID:     lock.ID,
		PropertyID: property.ID,
		AgentID:    property.AgentID,
		RenterID:   lock.RenterID,
		Title:      property.Title,
		Address:    property.AddressLine1,
	})

	return nil
}

// resolveLock performs a terminal transition: re-reads the lock inside
// the transaction, requires it still active, then updates lock and
// property together. Second writer in a race loses cleanly with
// ErrLockNotActive.
func (s *LockService) resolveLock(lockID uint, now time.Time, propertyStatus, lockStatus string, publishedAt *time.Time) (*models.PropertyLock, *models.Property, error) {
	var lock models.PropertyLock
	var property models.Property

	err := storage.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&lock, lockID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrLockNotFound
			}
			return err
		}
		if lock.Status != models.LockStatusActive {
			return ErrLockNotActive
		}
		if err := tx.First(&property, lock.PropertyID).Error; err != nil {
			return fmt.Errorf("property %d not found for lock %d: %v", lock.PropertyID, lock.ID, err)
		}

		lock.Status = lockStatus
		lock.ResolvedAt = &now
		if err := tx.Save(&lock).Error; err != nil {
			return err
		}

		updates := map[string]interface{}{"status": propertyStatus}
		if publishedAt != nil {
			updates["published_at"] = *publishedAt
		}
		return tx.Model(&models.Property{}).Where("id = ?", property.ID).Updates(updates).Error
	})
	if err != nil {
		return nil, nil, err
	}

	return &lock, &property, nil
}
