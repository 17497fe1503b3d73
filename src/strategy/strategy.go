package strategy

import (
	"fmt"

	"github.com/davidgonveg/trading-advisor-sub002/src/model"
	"github.com/davidgonveg/trading-advisor-sub002/src/portfolio"
)

// Strategy is the decision layer of a run. OnBar receives the bar history up
// to and including the current bar and a read-only portfolio view; it must
// not mutate either, and must be a pure function of them so replays are
// reproducible. Orders derived from the returned signal execute on the next
// bar, never the current one.
type Strategy interface {
	// Setup applies the run parameters before the first bar. Unknown keys
	// are ignored; invalid values are an error.
	Setup(params map[string]any) error

	// OnBar decides on history[len(history)-1], the newest bar.
	OnBar(history []model.Bar, ctx portfolio.Context) (model.Signal, error)

	// Params reports the effective parameters after Setup, for run records.
	Params() map[string]any
}

// IndicatorReporter is implemented by strategies that expose the indicator
// values behind their latest decision. The engine merges them with the bar's
// own indicators before consulting the admission gate and the audit trail.
type IndicatorReporter interface {
	LastIndicators() map[string]float64
}

// floatParam reads a numeric parameter, accepting the types YAML and JSON
// decoders produce.
func floatParam(params map[string]any, key string, def float64) (float64, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	switch v := raw.(type) {
	case float64:
		return v, nil
	case float32:
		return float64(v), nil
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	default:
		return 0, fmt.Errorf("parameter %q: expected number, got %T", key, raw)
	}
}

func intParam(params map[string]any, key string, def int) (int, error) {
	f, err := floatParam(params, key, float64(def))
	if err != nil {
		return 0, err
	}
	n := int(f)
	if float64(n) != f {
		return 0, fmt.Errorf("parameter %q: expected integer, got %v", key, f)
	}
	return n, nil
}

func boolParam(params map[string]any, key string, def bool) (bool, error) {
	raw, ok := params[key]
	if !ok {
		return def, nil
	}
	v, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("parameter %q: expected bool, got %T", key, raw)
	}
	return v, nil
}

// hasLong reports whether any position in the context is long; single-symbol
// runs hold at most one entry.
func hasLong(ctx portfolio.Context) bool {
	for _, qty := range ctx.Positions {
		if qty > 0 {
			return true
		}
	}
	return false
}

func hasShort(ctx portfolio.Context) bool {
	for _, qty := range ctx.Positions {
		if qty < 0 {
			return true
		}
	}
	return false
}
