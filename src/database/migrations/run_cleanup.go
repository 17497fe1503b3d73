package migrations

import (
	"fmt"

	"gorm.io/gorm"
)

// normalizeRunSymbols uppercases symbols stored by early ingest versions so
// range queries and run lookups hit one spelling per instrument.
func normalizeRunSymbols(db *gorm.DB) error {
	tables := []string{"backtest_runs", "backtest_trades", "ohlcv_1m", "ohlcv_1h"}

	for _, table := range tables {
		if !db.Migrator().HasTable(table) {
			continue
		}
		if err := db.Exec(fmt.Sprintf("UPDATE %s SET symbol = UPPER(symbol) WHERE symbol <> UPPER(symbol)", table)).Error; err != nil {
			return fmt.Errorf("normalize symbols on %s: %w", table, err)
		}
	}

	return nil
}

// backfillRunFinishedAt closes out runs recorded before finished_at existed;
// their creation time is the best available completion estimate.
func backfillRunFinishedAt(db *gorm.DB) error {
	if !db.Migrator().HasTable("backtest_runs") {
		return nil
	}

	return db.Exec("UPDATE backtest_runs SET finished_at = created_at WHERE finished_at IS NULL").Error
}
