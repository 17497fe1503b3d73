package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "bars.csv")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadCSV(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume
2024-03-01T00:00:00Z,100,105,99,103,1500
2024-03-02T00:00:00Z,103,108,102,107,1800
`)

	bars, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}

	if len(bars) != 2 {
		t.Fatalf("expected 2 bars, got %d", len(bars))
	}
	if bars[0].Open != 100 || bars[0].Volume != 1500 {
		t.Fatalf("first bar wrong: %+v", bars[0])
	}
	want := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	if !bars[1].Timestamp.Equal(want) {
		t.Fatalf("timestamp wrong: %s", bars[1].Timestamp)
	}
}

func TestLoadCSVIndicatorColumns(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close,volume,rsi,macd
2024-03-01T00:00:00Z,100,105,99,103,1500,85,1.2
2024-03-02T00:00:00Z,103,108,102,107,1800,42,-0.4
`)

	bars, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}

	if bars[0].Indicators == nil {
		t.Fatal("extra numeric columns must load as indicators")
	}
	if bars[0].Indicators["rsi"] != 85 || bars[0].Indicators["macd"] != 1.2 {
		t.Fatalf("bar 0 indicators wrong: %+v", bars[0].Indicators)
	}
	if bars[1].Indicators["rsi"] != 42 {
		t.Fatalf("bar 1 indicators wrong: %+v", bars[1].Indicators)
	}
	if _, ok := bars[0].Indicators["volume"]; ok {
		t.Fatal("OHLCV columns must not leak into indicators")
	}
}

func TestLoadCSVUnixTimestamps(t *testing.T) {
	path := writeCSV(t, `timestamp,open,high,low,close
1709251200,100,105,99,103
1709337600,103,108,102,107
`)

	bars, err := LoadCSV(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bars[0].Timestamp.Equal(time.Unix(1709251200, 0).UTC()) {
		t.Fatalf("unix timestamp wrong: %s", bars[0].Timestamp)
	}
}

func TestLoadCSVRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{name: "missing column", body: "timestamp,open,high,low\n2024-03-01T00:00:00Z,1,2,0\n"},
		{name: "bad price", body: "timestamp,open,high,low,close\n2024-03-01T00:00:00Z,x,2,0,1\n"},
		{name: "bad timestamp", body: "timestamp,open,high,low,close\nyesterday,1,2,0,1\n"},
		{name: "out of order", body: "timestamp,open,high,low,close\n2024-03-02T00:00:00Z,1,2,0,1\n2024-03-01T00:00:00Z,1,2,0,1\n"},
		{name: "empty file", body: "timestamp,open,high,low,close\n"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadCSV(writeCSV(t, tc.body)); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}
