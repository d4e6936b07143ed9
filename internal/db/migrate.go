package db

import (
	"fmt"

	"gorm.io/gorm"

	"photogram/internal/models"
)

// Migrate crea o actualiza tablas, índices únicos y claves foráneas.
func Migrate(gdb *gorm.DB) error {
	if err := gdb.AutoMigrate(models.All()...); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}
