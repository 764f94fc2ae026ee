package models

import (
	"time"

	"gorm.io/gorm"
)

// TimelineEntry is an immutable audit record of one lifecycle event
type TimelineEntry struct {
	ID            string            `gorm:"type:char(36);primaryKey" json:"id"`
	ApplicationID string            `gorm:"type:char(36);not null;index" json:"applicationId"`
	Status        ApplicationStatus `gorm:"size:32;not null" json:"status"`
	Note          string            `gorm:"type:text" json:"note"`
	Progress      int               `gorm:"not null" json:"progress"`
	AuthorID      string            `gorm:"type:char(36)" json:"authorId"`
	CreatedAt     time.Time         `gorm:"index" json:"createdAt"`
}

// TableName overrides the table name for TimelineEntry
func (TimelineEntry) TableName() string {
	return "timeline_entries"
}

// BeforeCreate assigns a UUID when the caller did not
func (e *TimelineEntry) BeforeCreate(_ *gorm.DB) error {
	newID(&e.ID)
	return nil
}

// BeforeUpdate refuses to rewrite history
func (e *TimelineEntry) BeforeUpdate(_ *gorm.DB) error {
	return ErrTimelineImmutable
}
