package database

import (
	"fmt"
	"time"

	"github.com/jinzhu/gorm"
	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"partscope/internal/models"
)

// InitDB opens the SQLite database and configures the connection pool.
func InitDB(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.DB().SetMaxIdleConns(10)
	db.DB().SetMaxOpenConns(100)
	db.DB().SetConnMaxLifetime(time.Hour)

	return db, nil
}

// Migrate creates or updates all required tables.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.InventoryItem{},
		&models.PredictionLog{},
		&models.User{},
	).Error
}

// SeedDefaultData ensures the operator accounts backing the token endpoint
// exist.
func SeedDefaultData(db *gorm.DB) error {
	var count int64
	if err := db.Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	defaultUsers := []models.User{
		{Username: "demo_user", Email: "demo@example.com"},
		{Username: "admin", Email: "admin@example.com"},
		{Username: "inspector", Email: "inspector@example.com"},
	}
	for _, user := range defaultUsers {
		if err := db.Create(&user).Error; err != nil {
			return err
		}
	}
	return nil
}
