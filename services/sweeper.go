package services

import (
	"log"
	"time"

	"github.com/saliftankoano/roogo-web-sub000/models"
	"github.com/saliftankoano/roogo-web-sub000/storage"
)

// SweepSummary aggregates one sweep run. Individual lock failures are
// counted, never fatal; the next cadence retries anything unflagged.
type SweepSummary struct {
	Processed int `json:"processed"`
	Day3Sent  int `json:"day3Sent"`
	Day5Sent  int `json:"day5Sent"`
	Expired   int `json:"expired"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`
}

// LockSweeper advances every active lock through its day-based
// checkpoints. Stateless: each run loads the full active set and
// evaluates each lock independently, so re-running is safe.
type LockSweeper struct {
	locks    *LockService
	notifier LockNotifier
}

func NewLockSweeper(locks *LockService, notifier LockNotifier) *LockSweeper {
	return &LockSweeper{locks: locks, notifier: notifier}
}

func (s *LockSweeper) Run(now time.Time) SweepSummary {
	var summary SweepSummary

	var locks []models.PropertyLock
	if err := storage.DB.Preload("Property").
		Where("status = ?", models.LockStatusActive).
		Find(&locks).Error; err != nil {
		log.Printf("❌ SWEEP ERROR: loading active locks: %v", err)
		summary.Failed++
		return summary
	}

	for i := range locks {
		lock := &locks[i]
		summary.Processed++

		// Listing deleted or unavailable: skip, keep the batch going.
		if lock.Property.ID == 0 {
			log.Printf("⚠️  SWEEP: lock %d references missing property %d, skipping", lock.ID, lock.PropertyID)
			summary.Skipped++
			continue
		}

		// Expiry takes priority over any pending checkpoint.
		if !now.Before(lock.ExpiresAt) {
			if err := s.locks.AutoExpire(lock.ID, now); err != nil {
				log.Printf("❌ SWEEP ERROR: auto-expire lock %d: %v", lock.ID, err)
				summary.Failed++
			} else {
				summary.Expired++
			}
			continue
		}

		diffDays := int(now.Sub(lock.LockedAt).Hours() / 24)

		if diffDays >= 5 && !lock.NotificationSentDay5 {
			if err := s.sendCheckpoint(lock, LockEventDay5, "notification_sent_day5"); err != nil {
				summary.Failed++
			} else {
				summary.Day5Sent++
			}
			// Day-3 is not retried in the same pass.
			continue
		}

		if diffDays >= 3 && !lock.NotificationSentDay3 {
			if err := s.sendCheckpoint(lock, LockEventDay3, "notification_sent_day3"); err != nil {
				summary.Failed++
			} else {
				summary.Day3Sent++
			}
		}
	}

	log.Printf("🧹 SWEEP: processed=%d day3=%d day5=%d expired=%d skipped=%d failed=%d",
		summary.Processed, summary.Day3Sent, summary.Day5Sent, summary.Expired, summary.Skipped, summary.Failed)

	return summary
}

// sendCheckpoint dispatches a reminder and then persists the flag. The
// flag is only written after dispatch, so a failed persist means the next
// run retries; two overlapping sweeps can in principle both pass the flag
// read before either writes, which is accepted residual risk.
func (s *LockSweeper) sendCheckpoint(lock *models.PropertyLock, kind LockEventKind, flagColumn string) error {
	s.notifier.DispatchLockEvent(LockEvent{
		Kind:       kind,
		LockID:     lock.ID,
		PropertyID: lock.PropertyID,
		AgentID:    lock.Property.AgentID,
		RenterID:   lock.RenterID,
		Title:      lock.Property.Title,
		Address:    lock.Property.AddressLine1,
	})

	if err := storage.DB.Model(lock).Update(flagColumn, true).Error; err != nil {
		log.Printf("❌ SWEEP ERROR: persisting %s for lock %d: %v", flagColumn, lock.ID, err)
		return err
	}
	return nil
}
