package strategy

import "fmt"

// New returns a fresh, un-setup strategy by its registered name.
func New(name string) (Strategy, error) {
	switch name {
	case "ema_cross":
		return &EMACross{}, nil
	case "mean_reversion":
		return &MeanReversion{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q", name)
	}
}

// Names lists the registered strategy names for CLI help and validation.
func Names() []string {
	return []string{"ema_cross", "mean_reversion"}
}
