package database

import (
	"gorm.io/gorm"

	"github.com/s/peripatos/internal/storage/sqlstore"
)

func AutoMigrate(db *gorm.DB) error {
	return sqlstore.Migrate(db)
}
