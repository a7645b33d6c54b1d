package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	LockStatusActive    = "active"
	LockStatusFinalized = "finalized"
	LockStatusExpired   = "expired"
)

// PropertyLock is an Early-Bird reservation: the renter paid the lock fee
// and the listing is off the market until the lock resolves. At most one
// active lock may exist per property; the property's own status gate
// enforces this (a lock is only created when the property flips to
// locked, and finalize/reopen always resolve the lock in the same step).
type PropertyLock struct {
	gorm.Model
	PropertyID    uint       `json:"propertyID" gorm:"not null;index"`
	RenterID      uint       `json:"renterID" gorm:"not null;index"`
	TransactionID uint       `json:"transactionID" gorm:"not null;index"`
	LockFee       int64      `json:"lockFee" gorm:"not null"`
	Status        string     `json:"status" gorm:"type:varchar(20);default:'active';index"`
	LockedAt      time.Time  `json:"lockedAt" gorm:"not null"`
	ExpiresAt     time.Time  `json:"expiresAt" gorm:"not null;index"`
	ResolvedAt    *time.Time `json:"resolvedAt"`

	// Day-3 and day-5 reminder checkpoints. Day 0 and day 7 are implicit
	// from creation and expiry.
	NotificationSentDay3 bool `json:"notificationSentDay3" gorm:"default:false"`
	NotificationSentDay5 bool `json:"notificationSentDay5" gorm:"default:false"`

	Property    Property    `json:"property" gorm:"foreignKey:PropertyID"`
	Renter      User        `json:"renter" gorm:"foreignKey:RenterID"`
	Transaction Transaction `json:"transaction" gorm:"foreignKey:TransactionID"`
}
