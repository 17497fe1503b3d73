package data

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
)

// LoadCSV reads a bar series from a CSV file with a header row of
// timestamp,open,high,low,close[,volume]. Timestamps are RFC3339 or unix
// seconds. Any further numeric column becomes a per-bar indicator under its
// header name, which is what the admission gate scores. The returned series
// is validated against the engine's contract.
func LoadCSV(path string) ([]model.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bars file: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, required := range []string{"timestamp", "open", "high", "low", "close"} {
		if _, ok := cols[required]; !ok {
			return nil, fmt.Errorf("missing column %q", required)
		}
	}

	var bars []model.Bar
	line := 1
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		ts, err := parseTimestamp(record[cols["timestamp"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		bar := model.Bar{Timestamp: ts}
		for _, field := range []struct {
			name string
			dst  *float64
		}{
			{"open", &bar.Open},
			{"high", &bar.High},
			{"low", &bar.Low},
			{"close", &bar.Close},
		} {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[cols[field.name]]), 64)
			if err != nil {
				return nil, fmt.Errorf("line %d: column %s: %w", line, field.name, err)
			}
			*field.dst = v
		}

		if idx, ok := cols["volume"]; ok && idx < len(record) {
			if v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64); err == nil {
				bar.Volume = v
			}
		}

		for name, idx := range cols {
			switch name {
			case "timestamp", "open", "high", "low", "close", "volume":
				continue
			}
			if idx >= len(record) {
				continue
			}
			v, err := strconv.ParseFloat(strings.TrimSpace(record[idx]), 64)
			if err != nil {
				continue
			}
			if bar.Indicators == nil {
				bar.Indicators = make(map[string]float64)
			}
			bar.Indicators[name] = v
		}

		bars = append(bars, bar)
	}

	if err := model.ValidateSeries(bars); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return bars, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)

	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), nil
	}
	if secs, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.Unix(secs, 0).UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable timestamp %q", raw)
}
