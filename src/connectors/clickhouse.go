package connectors

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	logger "github.com/sirupsen/logrus"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

// ClickHouseBarSource reads candles from a ClickHouse market-data warehouse.
// It is an alternative to the gorm-backed OHLCV store for datasets too large
// to keep in Postgres or sqlite.
type ClickHouseBarSource struct {
	conn  driver.Conn
	table string
}

func NewClickHouseBarSource(cfg Config) (*ClickHouseBarSource, error) {
	conn, err := clickhouse.Open(&clickhouse.Options{
		Addr: []string{cfg.ClickHouseAddr},
		Auth: clickhouse.Auth{
			Database: cfg.ClickHouseDatabase,
			Username: cfg.ClickHouseUser,
			Password: cfg.ClickHousePassword,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to ClickHouse: %w", err)
	}

	return &ClickHouseBarSource{conn: conn, table: cfg.ClickHouseTable}, nil
}

func (s *ClickHouseBarSource) Close() error {
	return s.conn.Close()
}

// FetchBars returns the candles for symbol in [from, to] as engine bars,
// ascending by time.
func (s *ClickHouseBarSource) FetchBars(ctx context.Context, symbol string, from, to time.Time) ([]model.Bar, error) {
	query := fmt.Sprintf(`
		SELECT datetime, open, high, low, close, volume
		FROM %s
		WHERE symbol = ? AND datetime >= ? AND datetime <= ?
		ORDER BY datetime ASC`, s.table)

	rows, err := s.conn.Query(ctx, query, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("clickhouse query: %w", err)
	}
	defer rows.Close()

	var bars []model.Bar
	for rows.Next() {
		var (
			ts                           time.Time
			open, high, low, closeP, vol float64
		)
		if err := rows.Scan(&ts, &open, &high, &low, &closeP, &vol); err != nil {
			return nil, fmt.Errorf("clickhouse scan: %w", err)
		}
		bars = append(bars, model.Bar{
			Timestamp: ts.UTC(),
			Open:      open,
			High:      high,
			Low:       low,
			Close:     closeP,
			Volume:    vol,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("clickhouse rows: %w", err)
	}

	logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"bars":   len(bars),
	}).Debug("clickhouse bars loaded")

	return bars, nil
}
