package models

import (
	"gorm.io/gorm"
)

// Notification keeps an in-app history of every push the dispatcher
// attempted. Delivery is best-effort; Delivered records the outcome but a
// failed push still leaves a row the user can see in the app.
type Notification struct {
	gorm.Model
	UserID     uint   `json:"userID" gorm:"not null;index"`
	Type       string `json:"type" gorm:"type:varchar(40);index"`
	Title      string `json:"title"`
	Body       string `json:"body"`
	PropertyID *uint  `json:"propertyID" gorm:"index"`
	Delivered  bool   `json:"delivered" gorm:"default:false"`
	IsRead     bool   `json:"isRead" gorm:"default:false"`
}
