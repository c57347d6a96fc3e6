package database

import (
	"log"

	"github.com/evemgr/pricing-core/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Initialize(dbPath string) error {
	var err error
	DB, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	log.Println("Database connected successfully")

	// Remove rows that would violate the unique indexes before AutoMigrate
	// tries to create them
	if err := cleanupDuplicateRows(DB); err != nil {
		return err
	}

	err = DB.AutoMigrate(
		&models.ItemType{},
		&models.MarketPriceSnapshot{},
		&models.PriceHistoryDay{},
		&models.TypeSubscription{},
		&models.Appraisal{},
		&models.AppraisalItem{},
	)
	if err != nil {
		return err
	}

	log.Println("Database migration completed")
	return nil
}

func GetDB() *gorm.DB {
	return DB
}
