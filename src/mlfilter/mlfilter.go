package mlfilter

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	logger "github.com/sirupsen/logrus"
)

// Config selects which trained model gates signal admission.
type Config struct {
	Enabled   bool    `yaml:"enabled" json:"enabled"`
	Threshold float64 `yaml:"threshold" json:"threshold"`
	// ModelPath points at a single global model file.
	ModelPath string `yaml:"model_path" json:"model_path"`
	// ModelDir holds one <SYMBOL>.json per symbol; when set it takes
	// precedence over ModelPath for symbols that have a file.
	ModelDir string `yaml:"model_dir" json:"model_dir"`
	// Lookback is how many prior bars of indicators feed lagged features.
	Lookback int `yaml:"lookback" json:"lookback"`
}

// logisticModel is the serialized form produced by the offline trainer:
// parallel feature-name and weight arrays plus an intercept.
type logisticModel struct {
	Features  []string  `json:"features"`
	Weights   []float64 `json:"weights"`
	Intercept float64   `json:"intercept"`
}

// Filter scores non-HOLD signals with a logistic model and admits those at
// or above the threshold. Every failure mode fails OPEN: a missing or broken
// model, or features the model was not trained on, yields probability 1.0
// so the run degrades to unfiltered rather than silently trading nothing.
type Filter struct {
	cfg    Config
	log    *logger.Entry
	global *logisticModel
	models map[string]*logisticModel
}

// New loads the configured models eagerly so Predict stays side-effect-free.
// Load failures are logged and leave the filter open.
func New(cfg Config, log *logger.Entry) *Filter {
	if log == nil {
		log = logger.NewEntry(logger.StandardLogger())
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = 0.5
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 5
	}

	f := &Filter{cfg: cfg, log: log, models: make(map[string]*logisticModel)}
	if !cfg.Enabled {
		return f
	}

	if cfg.ModelPath != "" {
		m, err := loadModel(cfg.ModelPath)
		if err != nil {
			log.WithError(err).WithField("path", cfg.ModelPath).
				Warn("global model unavailable, admission gate fails open")
		} else {
			f.global = m
		}
	}

	if cfg.ModelDir != "" {
		entries, err := os.ReadDir(cfg.ModelDir)
		if err != nil {
			log.WithError(err).WithField("dir", cfg.ModelDir).
				Warn("model dir unavailable, admission gate fails open")
			return f
		}
		for _, entry := range entries {
			name := entry.Name()
			if entry.IsDir() || !strings.HasSuffix(name, ".json") {
				continue
			}
			symbol := strings.TrimSuffix(name, ".json")
			m, err := loadModel(filepath.Join(cfg.ModelDir, name))
			if err != nil {
				log.WithError(err).WithField("symbol", symbol).
					Warn("per-symbol model unavailable, admission gate fails open")
				continue
			}
			f.models[symbol] = m
		}
	}

	return f
}

func (f *Filter) Enabled() bool      { return f.cfg.Enabled }
func (f *Filter) Threshold() float64 { return f.cfg.Threshold }
func (f *Filter) Lookback() int      { return f.cfg.Lookback }

// Predict returns the admission probability for a signal on the current bar.
// current holds the bar's indicators; recent holds prior bars' indicators
// newest-first and feeds lagged features named <key>_L<n>.
func (f *Filter) Predict(current map[string]float64, recent []map[string]float64, symbol string) float64 {
	if !f.cfg.Enabled {
		return 1.0
	}

	m := f.models[symbol]
	if m == nil {
		m = f.global
	}
	if m == nil {
		return 1.0
	}

	features := make(map[string]float64, len(current)*(1+len(recent)))
	for k, v := range current {
		features[k] = v
	}
	for lag, row := range recent {
		if lag >= f.cfg.Lookback {
			break
		}
		for k, v := range row {
			features[fmt.Sprintf("%s_L%d", k, lag+1)] = v
		}
	}

	score := m.Intercept
	for i, name := range m.Features {
		v, ok := features[name]
		if !ok {
			// The model expects a feature this run never computed; the
			// trained weights are meaningless here, so fail open.
			f.log.WithFields(logger.Fields{"symbol": symbol, "feature": name}).
				Debug("model feature missing, admission gate fails open")
			return 1.0
		}
		score += m.Weights[i] * v
	}

	prob := 1.0 / (1.0 + math.Exp(-score))
	if math.IsNaN(prob) {
		return 1.0
	}
	return prob
}

func loadModel(path string) (*logisticModel, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var m logisticModel
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	if len(m.Features) != len(m.Weights) {
		return nil, fmt.Errorf("model %s: %d features but %d weights", path, len(m.Features), len(m.Weights))
	}
	return &m, nil
}
