package models

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Internal ledger statuses. The gateway's own vocabulary is wider
// (COMPLETED, ACCEPTED, FAILED, CANCELLED, REJECTED, REFUNDED, SUBMITTED)
// and is mapped down by services.MapDepositStatus.
const (
	TransactionStatusPending   = "pending"
	TransactionStatusSubmitted = "submitted"
	TransactionStatusCompleted = "completed"
	TransactionStatusFailed    = "failed"
	TransactionStatusRefunded  = "refunded"
)

const (
	TransactionTypePropertyLock      = "property_lock"
	TransactionTypeBoost             = "boost"
	TransactionTypeListingSubmission = "listing_submission"
	TransactionTypeStaffListing      = "staff_listing"
)

// Transaction records every payment attempt, keyed by the gateway's
// deposit id. Rows are created pending, flipped to a terminal status
// exactly once by the callback or a status poll, and never deleted.
type Transaction struct {
	gorm.Model
	DepositID     string         `json:"depositID" gorm:"uniqueIndex;size:64;not null"`
	Amount        int64          `json:"amount" gorm:"not null"`
	Currency      string         `json:"currency" gorm:"type:varchar(10);default:'XOF'"`
	Status        string         `json:"status" gorm:"type:varchar(20);default:'pending';index"`
	Type          string         `json:"type" gorm:"type:varchar(30);index"`
	PropertyID    *uint          `json:"propertyID" gorm:"index"`
	UserID        *uint          `json:"userID" gorm:"index"`
	PhoneNumber   string         `json:"phoneNumber"`
	Provider      string         `json:"provider"` // orange_money, moov_money
	FailureReason string         `json:"failureReason"`
	Metadata      datatypes.JSON `json:"metadata"` // raw gateway payload, opaque
}
