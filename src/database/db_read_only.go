package database

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

// ReadOnlyDB is the connection the results API serves from. The database user
// for this connection should have SELECT-only permissions; when no read-only
// URL is configured the API falls back to MainDB.
var ReadOnlyDB *gorm.DB

// InitReadOnlyDB initializes the read-only database connection.
// It does not run any migrations and should only be used for reading data.
func InitReadOnlyDB() error {
	config := GetConfig()
	if config.DatabaseURLReadOnly == "" {
		ReadOnlyDB = MainDB
		logrus.Info("[ReadOnlyDB] no read-only URL configured, serving from MainDB")
		return nil
	}

	db, err := gorm.Open(postgres.Open(config.DatabaseURLReadOnly),
		&gorm.Config{
			PrepareStmt:    true,
			TranslateError: true,
			Logger:         logger.Default.LogMode(logger.LogLevel(config.GormLogLevel)),
		},
	)
	if err != nil {
		return fmt.Errorf("failed to connect to read-only database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get sql.DB from ReadOnlyDB: %w", err)
	}

	if err := sqlDB.Ping(); err != nil {
		return fmt.Errorf("failed to ping ReadOnlyDB: %w", err)
	}

	// Confirm the runs table is really reachable before serving from it.
	var count int64
	if err := db.Model(&model.BacktestRun{}).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to access backtest_runs: %w", err)
	}

	logrus.WithField("runs", count).Info("[ReadOnlyDB] backtest_runs reachable")

	ReadOnlyDB = db

	return nil
}
