package models

import (
	"time"

	"gorm.io/gorm"
)

// Customer is the subscriber record on the provisioning side. The RADIUS
// credential itself lives in radcheck; this row carries plan membership and
// the ONU placement.
type Customer struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Username  string `gorm:"size:64;not null;uniqueIndex" json:"username"`
	FullName  string `gorm:"size:150" json:"full_name"`
	PlanCode  string `gorm:"size:50" json:"plan_code"`
	Suspended bool   `gorm:"default:false" json:"suspended"`

	// ONU placement, empty until a ProvisionONU intent succeeds.
	OltIP         string `gorm:"size:45" json:"olt_ip"`
	OnuDescriptor string `gorm:"size:100" json:"onu_descriptor"`
	OnuSerial     string `gorm:"size:50" json:"onu_serial"`
	OnuMode       string `gorm:"size:30" json:"onu_mode"`

	SubscriptionUntil *time.Time     `json:"subscription_until"`
	CreatedAt         time.Time      `json:"created_at"`
	UpdatedAt         time.Time      `json:"updated_at"`
	DeletedAt         gorm.DeletedAt `gorm:"index" json:"-"`
}

func (Customer) TableName() string {
	return "naps_customers"
}

// HasONU reports whether the customer currently has provisioned equipment.
func (c *Customer) HasONU() bool {
	return c.OnuDescriptor != ""
}
