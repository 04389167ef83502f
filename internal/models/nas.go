package models

// Nas is the FreeRADIUS nas table, the clients FreeRADIUS will accept
// requests from. Unique on nasname. Ports is an integer or NULL, never a
// comma list.
type Nas struct {
	ID          uint   `gorm:"column:id;primaryKey" json:"id"`
	NasName     string `gorm:"column:nasname;size:128;not null;uniqueIndex" json:"nasname"`
	ShortName   string `gorm:"column:shortname;size:32" json:"shortname"`
	Type        string `gorm:"column:type;size:30;default:other" json:"type"`
	Ports       *int   `gorm:"column:ports" json:"ports"`
	Secret      string `gorm:"column:secret;size:60;not null" json:"-"` // Hidden from API responses for security
	Server      string `gorm:"column:server;size:64" json:"server"`
	Community   string `gorm:"column:community;size:50" json:"community"`
	Description string `gorm:"column:description;size:200" json:"description"`

	HasSecret bool `gorm:"-" json:"has_secret"` // Computed field to indicate if secret is set
}

func (Nas) TableName() string {
	return "nas"
}
