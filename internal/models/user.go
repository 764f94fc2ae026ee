package models

import (
	"gorm.io/datatypes"
)

// UserSettings are per-user delivery preferences
type UserSettings struct {
	EmailNotifications bool   `json:"emailNotifications"`
	SMSNotifications   bool   `json:"smsNotifications"`
	Language           string `json:"language,omitempty"`
}

// User is an authenticated principal: a client, an employee or an admin
type User struct {
	Base
	Email        string                           `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash string                           `gorm:"size:255;not null" json:"-"`
	Name         string                           `gorm:"size:255" json:"name"`
	Phone        string                           `gorm:"size:32" json:"phone,omitempty"`
	Role         Role                             `gorm:"size:16;not null;index" json:"role"`
	Settings     datatypes.JSONType[UserSettings] `json:"settings"`
}

// TableName overrides the table name for User
func (User) TableName() string {
	return "users"
}
