package repository

import (
	"context"
	"errors"
	"time"

	logger "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/davidgonveg/trading-advisor-sub002/src/database"
	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

var ErrInvalidInterval = errors.New("invalid interval. allowed: 1m,5m,15m,30m,1h,4h,1d")

// allowedIntervals are the aggregation targets built from stored 1m candles.
var allowedIntervals = map[time.Duration]bool{
	time.Minute:      true,
	5 * time.Minute:  true,
	15 * time.Minute: true,
	30 * time.Minute: true,
	time.Hour:        true,
	4 * time.Hour:    true,
	24 * time.Hour:   true,
}

type OHLCVRepository struct {
	db *gorm.DB
}

// NewOHLCVRepository creates a new repository using the main database.
func NewOHLCVRepository() *OHLCVRepository {
	return &OHLCVRepository{db: database.MainDB}
}

func (r *OHLCVRepository) WithDB(db *gorm.DB) *OHLCVRepository {
	return &OHLCVRepository{db: db}
}

// FetchRange returns the stored 1m candles for symbol in [from, to], ascending.
func (r *OHLCVRepository) FetchRange(
	ctx context.Context,
	symbol string,
	from, to time.Time,
) ([]model.OHLCV1m, error) {
	var rows []model.OHLCV1m
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND datetime >= ? AND datetime <= ?", symbol, from, to).
		Order("datetime ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// FetchRecent1m returns up to limit 1m candles at or before to, ascending.
func (r *OHLCVRepository) FetchRecent1m(
	ctx context.Context,
	symbol string,
	to time.Time,
	limit int,
) ([]model.OHLCV1m, error) {
	if limit <= 0 {
		limit = 200
	}

	var rows []model.OHLCV1m
	err := r.db.WithContext(ctx).
		Where("symbol = ? AND datetime <= ?", symbol, to).
		Order("datetime DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	// reverse to ascending chronological order for easier logic
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
	return rows, nil
}

// BarsForRange loads the 1m candles for [from, to], aggregates them to the
// requested interval and converts them into engine bars.
func (r *OHLCVRepository) BarsForRange(
	ctx context.Context,
	symbol string,
	from, to time.Time,
	interval time.Duration,
) ([]model.Bar, error) {
	rows, err := r.FetchRange(ctx, symbol, from, to)
	if err != nil {
		return nil, err
	}

	if interval > time.Minute {
		rows, err = AggregateFrom1m(rows, interval)
		if err != nil {
			return nil, err
		}
	}

	bars := make([]model.Bar, len(rows))
	for i := range rows {
		bars[i] = rows[i].Base().Bar()
	}

	logger.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"interval": interval.String(),
		"bars":     len(bars),
	}).Debug("bars loaded")

	return bars, nil
}

func bucketStart(t time.Time, interval time.Duration) time.Time {
	// Works for intervals that are multiples of 1 minute
	// Align to wall-clock boundaries: 12:07 with 5m => 12:05
	secs := t.Unix()
	step := int64(interval.Seconds())
	return time.Unix((secs/step)*step, 0).UTC()
}

// AggregateFrom1m rolls ascending 1m candles up into interval buckets:
// first open, max high, min low, last close, summed volume.
func AggregateFrom1m(
	candles []model.OHLCV1m,
	interval time.Duration,
) ([]model.OHLCV1m, error) {
	if !allowedIntervals[interval] {
		return nil, ErrInvalidInterval
	}

	if len(candles) == 0 {
		return []model.OHLCV1m{}, nil
	}

	out := make([]model.OHLCV1m, 0, len(candles)/int(interval.Minutes())+2)

	var cur model.OHLCV1m
	var curBucket time.Time
	hasCur := false

	for _, c := range candles {
		b := bucketStart(c.Datetime, interval)

		if !hasCur || !b.Equal(curBucket) {
			// flush previous bucket
			if hasCur {
				out = append(out, cur)
			}
			// start new bucket
			curBucket = b
			hasCur = true
			cur = model.OHLCV1m{
				Symbol:   c.Symbol,
				Datetime: curBucket, // bucket open time
				Open:     c.Open,
				High:     c.High,
				Low:      c.Low,
				Close:    c.Close,
				Volume:   c.Volume,
			}
			continue
		}

		// aggregate
		if c.High.GreaterThan(cur.High) {
			cur.High = c.High
		}
		if c.Low.LessThan(cur.Low) {
			cur.Low = c.Low
		}
		cur.Close = c.Close
		cur.Volume = cur.Volume.Add(c.Volume)
	}

	if hasCur {
		out = append(out, cur)
	}

	return out, nil
}
