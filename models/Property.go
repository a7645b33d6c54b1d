package models

import (
	"time"

	"gorm.io/gorm"
)

// Property statuses follow the listing lifecycle: a submission starts
// en_attente, goes en_ligne once approved, and moves through
// locked/finalized/expired as Early-Bird locks are purchased and resolved.
const (
	PropertyStatusPending   = "en_attente"
	PropertyStatusPublished = "en_ligne"
	PropertyStatusLocked    = "locked"
	PropertyStatusFinalized = "finalized"
	PropertyStatusExpired   = "expired"
)

type Property struct {
	gorm.Model
	AgentID      uint    `json:"agentID"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	PropertyType string  `json:"propertyType"` // villa, appartement, studio, chambre
	AddressLine1 string  `json:"addressLine1"`
	AddressLine2 string  `json:"addressLine2"`
	City         string  `json:"city"`
	Country      string  `json:"country"`
	Lat          float32 `json:"lat"`
	Lng          float32 `json:"lng"`
	Bedrooms     int     `json:"bedrooms"`
	Bathrooms    int     `json:"bathrooms"`

	// Monthly rent in XOF. XOF has no subunit, amounts are whole francs.
	Price    int64  `json:"price"`
	Currency string `json:"currency" gorm:"type:varchar(10);default:'XOF'"`

	Status string `json:"status" gorm:"type:varchar(20);default:'en_attente';index"`

	// Set when the listing goes en_ligne; start of the 48h Early-Bird window.
	PublishedAt *time.Time `json:"publishedAt"`

	// Max open-house slots for this listing. Nil or 0 means unlimited.
	OpenHouseLimit *int `json:"openHouseLimit"`

	Agent User `json:"agent" gorm:"foreignKey:AgentID;references:ID"`
}
