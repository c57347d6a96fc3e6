package database

import (
	"log"

	"gorm.io/gorm"
)

// cleanupDuplicateRows removes duplicate snapshot and subscription rows that
// predate the unique indexes. Runs BEFORE AutoMigrate so index creation cannot
// fail on legacy data. Keeps the most recent row of each group.
func cleanupDuplicateRows(db *gorm.DB) error {
	if db.Migrator().HasTable("market_price_snapshots") {
		result := db.Exec(`
			DELETE FROM market_price_snapshots
			WHERE id NOT IN (
				SELECT MAX(id)
				FROM market_price_snapshots
				GROUP BY type_id, market, side
			)
		`)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			log.Printf("Cleaned up %d duplicate market_price_snapshots entries", result.RowsAffected)
		}
	}

	if db.Migrator().HasTable("price_history_days") {
		result := db.Exec(`
			DELETE FROM price_history_days
			WHERE id NOT IN (
				SELECT MAX(id)
				FROM price_history_days
				GROUP BY type_id, market, date
			)
		`)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			log.Printf("Cleaned up %d duplicate price_history_days entries", result.RowsAffected)
		}
	}

	if db.Migrator().HasTable("type_subscriptions") {
		result := db.Exec(`
			DELETE FROM type_subscriptions
			WHERE id NOT IN (
				SELECT MAX(id)
				FROM type_subscriptions
				GROUP BY plugin_name, type_id, market
			)
		`)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected > 0 {
			log.Printf("Cleaned up %d duplicate type_subscriptions entries", result.RowsAffected)
		}
	}

	return nil
}
