package app

import (
	"encoding/json"
	"fmt"
	"os"

	"trust-plane/internal/wrgate"
)

// GateResult bundles threshold resolution with the selected winner for
// printing.
type GateResult struct {
	Resolution wrgate.Resolution `json:"resolution"`
	Selected   *wrgate.Candidate `json:"selected,omitempty"`
}

// ResolveGate reads a candidate set from a JSON file, fills missing Wilson
// lower bounds, and resolves which strategy, if any, the gate admits.
func (a *App) ResolveGate(candidatesPath string) error {
	data, err := os.ReadFile(candidatesPath)
	if err != nil {
		return fmt.Errorf("read candidates file: %w", err)
	}
	var candidates []wrgate.Candidate
	if err := json.Unmarshal(data, &candidates); err != nil {
		return fmt.Errorf("decode candidates file: %w", err)
	}

	for i := range candidates {
		candidates[i].Meta = wrgate.FillWilsonLower(candidates[i].Meta)
	}

	cfg := wrgate.Config{
		Method:               wrgate.Method(a.Config.Gate.Method),
		MinTrades:            a.Config.Gate.MinTrades,
		PrimaryThresholdPct:  a.Config.Gate.PrimaryThresholdPct,
		FallbackThresholdPct: a.Config.Gate.FallbackThresholdPct,
		TieBreak:             a.Config.Gate.TieBreak,
	}

	resolution := wrgate.ResolveAdaptiveThreshold(candidates, cfg)
	result := GateResult{Resolution: resolution}
	if winner, ok := wrgate.SelectBest(resolution.Eligible, cfg.TieBreak); ok {
		result.Selected = &winner
		a.Logger.Info().
			Str("mode", string(resolution.Mode)).
			Float64("threshold_pct", resolution.ThresholdPct).
			Str("strategy_id", winner.StrategyID).
			Msg("gate admitted a strategy")
	} else {
		a.Logger.Info().Str("mode", string(resolution.Mode)).Msg("gate admitted no strategy")
	}
	return printJSON(result)
}
