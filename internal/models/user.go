package models

import (
	"time"

	"gorm.io/gorm"
)

// UserType represents the type of API user
type UserType string

const (
	UserTypeAdmin    UserType = "admin"
	UserTypeOperator UserType = "operator"
)

// User is an API user of the provisioning service, not a subscriber.
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	Username     string         `gorm:"size:64;not null;uniqueIndex" json:"username"`
	PasswordHash string         `gorm:"size:100;not null" json:"-"`
	UserType     UserType       `gorm:"size:20;default:operator" json:"user_type"`
	IsActive     bool           `gorm:"default:true" json:"is_active"`
	LastLoginAt  *time.Time     `json:"last_login_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

func (User) TableName() string {
	return "naps_users"
}
