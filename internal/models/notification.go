package models

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

// ErrTimelineImmutable is returned when something tries to update a timeline entry
var ErrTimelineImmutable = errors.New("timeline entries are append-only")

// Notification is a persisted alert for one user
type Notification struct {
	ID        string           `gorm:"type:char(36);primaryKey" json:"id"`
	UserID    string           `gorm:"type:char(36);not null;index:idx_notifications_user" json:"userId"`
	Type      NotificationType `gorm:"size:16;not null" json:"type"`
	Title     string           `gorm:"size:255;not null" json:"title"`
	Message   string           `gorm:"type:text" json:"message"`
	Read      bool             `gorm:"column:is_read;not null;index:idx_notifications_user" json:"read"`
	ReadAt    *time.Time       `json:"readAt,omitempty"`
	Priority  Priority         `gorm:"size:16;not null" json:"priority"`
	Event     string           `gorm:"size:64" json:"event"`
	Payload   JSON             `json:"payload"`
	CreatedAt time.Time        `gorm:"index" json:"createdAt"`
}

// TableName overrides the table name for Notification
func (Notification) TableName() string {
	return "notifications"
}

// BeforeCreate assigns a UUID when the caller did not
func (n *Notification) BeforeCreate(_ *gorm.DB) error {
	newID(&n.ID)
	return nil
}
