package services

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/evemgr/pricing-core/internal/config"
	"github.com/evemgr/pricing-core/internal/models"
)

// newTestDB opens a fresh in-memory database with the full schema migrated.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}

	err = db.AutoMigrate(
		&models.ItemType{},
		&models.MarketPriceSnapshot{},
		&models.PriceHistoryDay{},
		&models.TypeSubscription{},
		&models.Appraisal{},
		&models.AppraisalItem{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	return db
}

// newTestConfig returns a config suitable for tests: a single jita market,
// no batch delay, and a short cache TTL.
func newTestConfig() *config.Config {
	cfg := &config.Config{}
	cfg.Port = "8080"

	cfg.ESI.MaxPages = 10

	cfg.Pricing.DefaultMarket = "jita"
	cfg.Pricing.Markets = map[string]config.Market{
		"jita": {Name: "Jita", RegionID: 10000002, SystemIDs: []int32{30000142}},
	}
	cfg.Pricing.BatchSize = 10
	cfg.Pricing.BatchDelay = 0
	cfg.Pricing.BuyPercentile = 0.99
	cfg.Pricing.SellPercentile = 0.01
	cfg.Pricing.MinOrderVolume = 2
	cfg.Pricing.HistoryRetentionDays = 90

	cfg.Cache.PriceTTL = time.Minute

	cfg.Appraisal.DefaultPercentage = 100
	cfg.Appraisal.RetentionDays = 30
	cfg.Appraisal.MaxItems = 1000

	return cfg
}

func seedItemTypes(t *testing.T, db *gorm.DB, types ...models.ItemType) {
	t.Helper()
	for i := range types {
		if err := db.Create(&types[i]).Error; err != nil {
			t.Fatalf("Failed to seed item type %s: %v", types[i].TypeName, err)
		}
	}
}
