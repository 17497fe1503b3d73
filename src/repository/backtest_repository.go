package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/davidgonveg/trading-advisor-sub002/src/database"
	"github.com/davidgonveg/trading-advisor-sub002/src/engine"
	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

const insertBatchSize = 500

// BacktestRepository handles read/write operations for runs and their trades
// and equity rows.
type BacktestRepository struct {
	db *gorm.DB
}

// NewBacktestRepository creates a new repository instance using the main read/write database.
func NewBacktestRepository() *BacktestRepository {
	logger.WithField("component", "BacktestRepository").
		Info("Creating new BacktestRepository with MainDB")

	return &BacktestRepository{
		db: database.MainDB,
	}
}

// WithDB allows overriding the underlying *gorm.DB instance.
// Useful for tests or when using a specific session/transaction.
func (r *BacktestRepository) WithDB(db *gorm.DB) *BacktestRepository {
	return &BacktestRepository{db: db}
}

// SaveResult persists one finished run with its full trade log and equity
// curve in a single transaction. The run ID is stamped onto copies of the
// trades and snapshots; the in-memory result is never mutated.
func (r *BacktestRepository) SaveResult(
	ctx context.Context,
	run *model.BacktestRun,
	result *engine.Result,
	params map[string]any,
) error {
	if params != nil {
		raw, err := json.Marshal(params)
		if err != nil {
			return fmt.Errorf("marshal params: %w", err)
		}
		run.ParamsJSON = string(raw)
	}

	now := time.Now().UTC()
	run.FinishedAt = &now

	trades := make([]model.Trade, len(result.Trades))
	for i, trade := range result.Trades {
		trades[i] = trade
		trades[i].RunID = run.ID
	}

	curve := make([]model.EquitySnapshot, len(result.EquityCurve))
	for i, snap := range result.EquityCurve {
		curve[i] = snap
		curve[i].RunID = run.ID
	}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(run).Error; err != nil {
			return fmt.Errorf("create run: %w", err)
		}
		if len(trades) > 0 {
			if err := tx.CreateInBatches(trades, insertBatchSize).Error; err != nil {
				return fmt.Errorf("create trades: %w", err)
			}
		}
		if len(curve) > 0 {
			if err := tx.CreateInBatches(curve, insertBatchSize).Error; err != nil {
				return fmt.Errorf("create equity curve: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		logger.WithFields(map[string]interface{}{
			"repo":   "BacktestRepository",
			"op":     "SaveResult",
			"run_id": run.ID,
		}).WithError(err).Error("Failed to save run")

		return err
	}

	logger.WithFields(map[string]interface{}{
		"repo":   "BacktestRepository",
		"op":     "SaveResult",
		"run_id": run.ID,
		"trades": len(trades),
	}).Info("Run saved successfully")

	return nil
}

// FindRunByID fetches a single run by its ID.
// Returns (nil, nil) if the run is not found.
func (r *BacktestRepository) FindRunByID(
	ctx context.Context,
	id string,
) (*model.BacktestRun, error) {
	var run model.BacktestRun
	err := r.db.WithContext(ctx).
		Where("id = ?", id).
		First(&run).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first. An empty symbol lists
// all symbols.
func (r *BacktestRepository) ListRuns(
	ctx context.Context,
	symbol string,
	limit int,
) ([]model.BacktestRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := r.db.WithContext(ctx).Model(&model.BacktestRun{})
	if symbol != "" {
		query = query.Where("symbol = ?", symbol)
	}

	var runs []model.BacktestRun
	err := query.
		Order("created_at DESC").
		Limit(limit).
		Find(&runs).Error
	if err != nil {
		return nil, err
	}
	return runs, nil
}

// TradesForRun returns a run's fill log in execution order.
func (r *BacktestRepository) TradesForRun(
	ctx context.Context,
	runID string,
) ([]model.Trade, error) {
	var trades []model.Trade
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("timestamp ASC").
		Find(&trades).Error
	if err != nil {
		return nil, err
	}
	return trades, nil
}

// EquityForRun returns a run's equity curve in time order.
func (r *BacktestRepository) EquityForRun(
	ctx context.Context,
	runID string,
) ([]model.EquitySnapshot, error) {
	var curve []model.EquitySnapshot
	err := r.db.WithContext(ctx).
		Where("run_id = ?", runID).
		Order("timestamp ASC").
		Find(&curve).Error
	if err != nil {
		return nil, err
	}
	return curve, nil
}
