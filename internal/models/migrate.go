package models

import (
	"gorm.io/gorm"
)

// AutoMigrate creates missing tables. The FreeRADIUS tables normally already
// exist on a live radius database; creating them here only matters for fresh
// installs and test databases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&Nas{},
		&RadCheck{},
		&RadReply{},
		&RadGroupReply{},
		&RadUserGroup{},
		&RadAcct{},
		&RadPostAuth{},
		&RadIPPool{},
		&User{},
		&Olt{},
		&Customer{},
	)
}
