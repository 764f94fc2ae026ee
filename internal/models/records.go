package models

import (
	"time"

	"gorm.io/gorm"
)

// Document is metadata for a file attached to an application; the bytes live in the media store
type Document struct {
	Base
	ApplicationID string `gorm:"type:char(36);not null;index" json:"applicationId"`
	ClientID      string `gorm:"type:char(36);not null;index" json:"clientId"`
	Name          string `gorm:"size:255;not null" json:"name"`
	URL           string `gorm:"size:1024;not null" json:"url"`
	ContentType   string `gorm:"size:128" json:"contentType"`
	Size          int64  `json:"size"`
}

// TableName overrides the table name for Document
func (Document) TableName() string {
	return "documents"
}

// Task is the work item an employee receives when assigned
type Task struct {
	Base
	ApplicationID string `gorm:"type:char(36);not null;index" json:"applicationId"`
	ClientID      string `gorm:"type:char(36);not null;index" json:"clientId"`
	EmployeeID    string `gorm:"type:char(36);not null;index" json:"employeeId"`
	Title         string `gorm:"size:255;not null" json:"title"`
	Status        string `gorm:"size:16;not null" json:"status"`
}

// TableName overrides the table name for Task
func (Task) TableName() string {
	return "tasks"
}

// Message is one chat line on an application
type Message struct {
	ID            string    `gorm:"type:char(36);primaryKey" json:"id"`
	ApplicationID string    `gorm:"type:char(36);not null;index" json:"applicationId"`
	ClientID      string    `gorm:"type:char(36);not null;index" json:"clientId"`
	SenderID      string    `gorm:"type:char(36);not null" json:"senderId"`
	Content       string    `gorm:"type:text;not null" json:"content"`
	CreatedAt     time.Time `json:"createdAt"`
}

// TableName overrides the table name for Message
func (Message) TableName() string {
	return "messages"
}

// BeforeCreate assigns a UUID when the caller did not
func (m *Message) BeforeCreate(_ *gorm.DB) error {
	newID(&m.ID)
	return nil
}

// Ticket is a client support request
type Ticket struct {
	Base
	ClientID string `gorm:"type:char(36);not null;index" json:"clientId"`
	Subject  string `gorm:"size:255;not null" json:"subject"`
	Body     string `gorm:"type:text" json:"body"`
	Status   string `gorm:"size:16;not null" json:"status"`
}

// TableName overrides the table name for Ticket
func (Ticket) TableName() string {
	return "tickets"
}

// BeforeCreate assigns a UUID when the caller did not
func (a *Assignment) BeforeCreate(_ *gorm.DB) error {
	newID(&a.ID)
	return nil
}

// All lists every model in migration order
func All() []interface{} {
	return []interface{}{
		&User{},
		&Application{},
		&Assignment{},
		&TimelineEntry{},
		&Payment{},
		&Installment{},
		&Notification{},
		&Document{},
		&Task{},
		&Message{},
		&Ticket{},
	}
}
