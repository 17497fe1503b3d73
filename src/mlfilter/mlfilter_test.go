package mlfilter

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	logrustest "github.com/sirupsen/logrus/hooks/test"
)

func nullLogger() *logrus.Entry {
	log, _ := logrustest.NewNullLogger()
	return logrus.NewEntry(log)
}

func writeModel(t *testing.T, path, body string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestPredictDisabledIsOpen(t *testing.T) {
	f := New(Config{Enabled: false}, nullLogger())
	if got := f.Predict(map[string]float64{"rsi": 70}, nil, "AAPL"); got != 1.0 {
		t.Fatalf("disabled filter must admit everything, got %.4f", got)
	}
}

func TestPredictMissingModelFailsOpen(t *testing.T) {
	f := New(Config{Enabled: true, ModelPath: filepath.Join(t.TempDir(), "nope.json")}, nullLogger())
	if got := f.Predict(map[string]float64{"rsi": 70}, nil, "AAPL"); got != 1.0 {
		t.Fatalf("missing model must fail open, got %.4f", got)
	}
}

func TestPredictMalformedModelFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeModel(t, path, `{"features": ["rsi"], "weights": [0.5, 0.5]}`)

	f := New(Config{Enabled: true, ModelPath: path}, nullLogger())
	if got := f.Predict(map[string]float64{"rsi": 70}, nil, "AAPL"); got != 1.0 {
		t.Fatalf("feature/weight mismatch must fail open, got %.4f", got)
	}
}

func TestPredictLogistic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeModel(t, path, `{"features": ["rsi"], "weights": [2.0], "intercept": -1.0}`)

	f := New(Config{Enabled: true, ModelPath: path}, nullLogger())
	got := f.Predict(map[string]float64{"rsi": 1.0}, nil, "AAPL")
	want := 1.0 / (1.0 + math.Exp(-(2.0*1.0 - 1.0)))
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("logistic score: want %.6f, got %.6f", want, got)
	}
}

func TestPredictLaggedFeatures(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeModel(t, path, `{"features": ["rsi", "rsi_L1", "rsi_L2"], "weights": [1.0, 1.0, 1.0], "intercept": 0}`)

	f := New(Config{Enabled: true, ModelPath: path, Lookback: 5}, nullLogger())
	recent := []map[string]float64{
		{"rsi": 0.2}, // one bar back
		{"rsi": 0.3}, // two bars back
	}
	got := f.Predict(map[string]float64{"rsi": 0.1}, recent, "AAPL")
	want := 1.0 / (1.0 + math.Exp(-(0.1 + 0.2 + 0.3)))
	if math.Abs(got-want) > 1e-12 {
		t.Fatalf("lagged features: want %.6f, got %.6f", want, got)
	}
}

func TestPredictMissingFeatureFailsOpen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.json")
	writeModel(t, path, `{"features": ["macd"], "weights": [1.0], "intercept": 0}`)

	f := New(Config{Enabled: true, ModelPath: path}, nullLogger())
	if got := f.Predict(map[string]float64{"rsi": 70}, nil, "AAPL"); got != 1.0 {
		t.Fatalf("untrained feature set must fail open, got %.4f", got)
	}
}

func TestPerSymbolModelPrecedence(t *testing.T) {
	dir := t.TempDir()
	writeModel(t, filepath.Join(dir, "AAPL.json"), `{"features": [], "weights": [], "intercept": 10}`)
	global := filepath.Join(dir, "global.model")
	writeModel(t, global, `{"features": [], "weights": [], "intercept": -10}`)

	f := New(Config{Enabled: true, ModelPath: global, ModelDir: dir}, nullLogger())

	if got := f.Predict(nil, nil, "AAPL"); got < 0.99 {
		t.Fatalf("AAPL must use its own model (intercept 10), got %.6f", got)
	}
	if got := f.Predict(nil, nil, "MSFT"); got > 0.01 {
		t.Fatalf("MSFT must fall back to the global model (intercept -10), got %.6f", got)
	}
}
