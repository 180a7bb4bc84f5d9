package db

import (
	"github.com/pipdock/backend/internal/domain"
	"gorm.io/gorm"
)

func RunMigrations(conn *gorm.DB) error {
	return conn.AutoMigrate(
		&domain.RegistryEntry{},
		&domain.Setting{},
	)
}
