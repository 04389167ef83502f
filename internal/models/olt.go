package models

import (
	"time"
)

// Olt is an access device record. TelnetPassword is stored sealed (AES-GCM)
// and never serialised.
type Olt struct {
	ID                   uint      `gorm:"primaryKey" json:"id"`
	Name                 string    `gorm:"size:100;not null" json:"name"`
	IP                   string    `gorm:"size:45;not null;uniqueIndex" json:"ip"`
	Manufacturer         string    `gorm:"size:50;default:'ZTE'" json:"manufacturer"`
	Model                string    `gorm:"size:50" json:"model"`
	UseCustomCredentials bool      `gorm:"default:false" json:"use_custom_credentials"`
	TelnetUsername       string    `gorm:"size:100" json:"telnet_username"`
	TelnetPassword       string    `gorm:"size:255" json:"-"`
	VlanInternet         string    `gorm:"size:255" json:"vlan_internet"` // CSV
	VlanTV               string    `gorm:"size:255" json:"vlan_tv"`
	VlanVoice            string    `gorm:"size:255" json:"vlan_voice"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

func (Olt) TableName() string {
	return "naps_olts"
}
