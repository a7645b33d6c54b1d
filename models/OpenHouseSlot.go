package models

import (
	"time"

	"gorm.io/gorm"
)

// OpenHouseSlot is a bookable visiting window for a listing on a given
// date. Times are stored as "HH:MM" strings and compared as
// minutes-since-midnight; for one property and date no two slots may
// overlap on the half-open interval [start, end).
type OpenHouseSlot struct {
	gorm.Model
	PropertyID uint      `json:"propertyID" gorm:"not null;index"`
	Date       time.Time `json:"date" gorm:"not null;index"`
	StartTime  string    `json:"startTime" gorm:"type:varchar(10);not null"`
	EndTime    string    `json:"endTime" gorm:"type:varchar(10);not null"`
	Capacity   int       `json:"capacity" gorm:"not null"`
	Property   Property  `json:"property" gorm:"foreignKey:PropertyID"`
}

const (
	OpenHouseBookingConfirmed = "confirmed"
	OpenHouseBookingCancelled = "cancelled"
)

// OpenHouseBooking counts a visitor against a slot's capacity.
type OpenHouseBooking struct {
	gorm.Model
	SlotID    uint          `json:"slotID" gorm:"not null;index"`
	VisitorID uint          `json:"visitorID" gorm:"not null;index"`
	Status    string        `json:"status" gorm:"type:varchar(20);default:'confirmed';index"`
	Notes     string        `json:"notes"`
	Slot      OpenHouseSlot `json:"slot" gorm:"foreignKey:SlotID"`
	Visitor   User          `json:"visitor" gorm:"foreignKey:VisitorID"`
}
