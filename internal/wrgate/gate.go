// Package wrgate decides which trading strategy candidate, if any, is
// statistically justified to run live, using only backtest metadata. The
// gate is fail-closed: every ambiguous or insufficient condition denies.
package wrgate

import (
	"math"
	"sort"
)

// Method selects which win-rate metric the gate compares against the
// threshold.
type Method string

const (
	// MethodWilson95Lower uses the Wilson 95% lower bound when present,
	// falling back to the point estimate when it is not.
	MethodWilson95Lower Method = "wilson95_lower"
	// MethodPoint always uses the raw point win rate.
	MethodPoint Method = "point"
)

// Default thresholds and sample floor.
const (
	DefaultPrimaryThresholdPct  = 70.0
	DefaultFallbackThresholdPct = 50.0
	DefaultMinTrades            = 50
)

// Reason explains a qualification outcome. Everything except ReasonPassed
// denies.
type Reason string

const (
	ReasonMissingMeta        Reason = "missing_meta"
	ReasonNotBacktested      Reason = "not_backtested"
	ReasonInsufficientSample Reason = "insufficient_sample"
	ReasonMissingMetric      Reason = "missing_metric"
	ReasonBelowThreshold     Reason = "below_threshold"
	ReasonPassed             Reason = "passed"
)

// BacktestMeta is a strategy's persisted backtest summary.
type BacktestMeta struct {
	Backtested        bool     `json:"backtested"`
	TotalTrades       int      `json:"totalTrades"`
	WinRatePct        float64  `json:"winRatePct"`
	WinRateLower95Pct *float64 `json:"winRateLower95Pct,omitempty"`
	NetPnlPct         float64  `json:"netPnlPct"`
	ProfitFactor      float64  `json:"profitFactor"`
}

// Candidate is one strategy competing for live capital.
type Candidate struct {
	StrategyID string        `json:"strategyId"`
	Meta       *BacktestMeta `json:"meta"`
	// ThresholdPct optionally overrides the primary threshold for this
	// candidate only.
	ThresholdPct *float64 `json:"thresholdPct,omitempty"`
}

// Qualification is the outcome of evaluating one candidate at a threshold.
type Qualification struct {
	Passed              bool    `json:"passed"`
	Reason              Reason  `json:"reason"`
	EffectiveWinRatePct float64 `json:"effectiveWinRatePct"`
}

// Config tunes the gate. Zero values take the documented defaults; TieBreak
// is a design default and deliberately configuration-adjustable.
type Config struct {
	Method               Method   `json:"method"`
	MinTrades            int      `json:"minTrades"`
	PrimaryThresholdPct  float64  `json:"primaryThresholdPct"`
	FallbackThresholdPct float64  `json:"fallbackThresholdPct"`
	TieBreak             []string `json:"tieBreak,omitempty"`
}

// Tie-break sort keys.
const (
	TieBreakNetPnl       = "net_pnl"
	TieBreakWilsonLower  = "wilson_lower"
	TieBreakProfitFactor = "profit_factor"
	TieBreakWinRate      = "win_rate"
	TieBreakTrades       = "trades"
)

var defaultTieBreak = []string{
	TieBreakNetPnl,
	TieBreakWilsonLower,
	TieBreakProfitFactor,
	TieBreakWinRate,
	TieBreakTrades,
}

func (c Config) withDefaults() Config {
	if c.Method == "" {
		c.Method = MethodWilson95Lower
	}
	if c.MinTrades <= 0 {
		c.MinTrades = DefaultMinTrades
	}
	if c.PrimaryThresholdPct <= 0 {
		c.PrimaryThresholdPct = DefaultPrimaryThresholdPct
	}
	if c.FallbackThresholdPct <= 0 {
		c.FallbackThresholdPct = DefaultFallbackThresholdPct
	}
	if len(c.TieBreak) == 0 {
		c.TieBreak = defaultTieBreak
	}
	return c
}

// Qualify runs the ordered fail-closed chain for one strategy's metadata
// against a threshold.
func Qualify(meta *BacktestMeta, cfg Config, thresholdPct float64) Qualification {
	cfg = cfg.withDefaults()

	if meta == nil {
		return Qualification{Reason: ReasonMissingMeta}
	}
	if !meta.Backtested {
		return Qualification{Reason: ReasonNotBacktested}
	}
	if meta.TotalTrades < cfg.MinTrades {
		return Qualification{Reason: ReasonInsufficientSample}
	}

	metric, ok := effectiveWinRate(meta, cfg.Method)
	if !ok {
		return Qualification{Reason: ReasonMissingMetric}
	}
	if metric < thresholdPct {
		return Qualification{Reason: ReasonBelowThreshold, EffectiveWinRatePct: metric}
	}
	return Qualification{Passed: true, Reason: ReasonPassed, EffectiveWinRatePct: metric}
}

func effectiveWinRate(meta *BacktestMeta, method Method) (float64, bool) {
	if method == MethodWilson95Lower && meta.WinRateLower95Pct != nil {
		return *meta.WinRateLower95Pct, true
	}
	if meta.WinRatePct <= 0 {
		return 0, false
	}
	return meta.WinRatePct, true
}

// Mode reports which threshold tier produced the eligible set.
type Mode string

const (
	ModePrimary  Mode = "primary"
	ModeFallback Mode = "fallback"
	ModeNone     Mode = "none"
)

// Resolution is the outcome of adaptive threshold resolution over a
// candidate set.
type Resolution struct {
	Mode         Mode                     `json:"mode"`
	ThresholdPct float64                  `json:"thresholdPct"`
	Eligible     []Candidate              `json:"eligible"`
	Outcomes     map[string]Qualification `json:"outcomes"`
}

// ResolveAdaptiveThreshold tries every candidate against the primary
// threshold (per-candidate overrides allowed), then the full set against the
// fallback threshold, and otherwise returns an empty eligible set with
// mode=none. It never defaults to allow.
func ResolveAdaptiveThreshold(candidates []Candidate, cfg Config) Resolution {
	cfg = cfg.withDefaults()

	primary := Resolution{Mode: ModePrimary, ThresholdPct: cfg.PrimaryThresholdPct, Outcomes: make(map[string]Qualification)}
	for _, candidate := range candidates {
		threshold := cfg.PrimaryThresholdPct
		if candidate.ThresholdPct != nil && *candidate.ThresholdPct > 0 {
			threshold = *candidate.ThresholdPct
		}
		q := Qualify(candidate.Meta, cfg, threshold)
		primary.Outcomes[candidate.StrategyID] = q
		if q.Passed {
			primary.Eligible = append(primary.Eligible, candidate)
		}
	}
	if len(primary.Eligible) > 0 {
		return primary
	}

	fallback := Resolution{Mode: ModeFallback, ThresholdPct: cfg.FallbackThresholdPct, Outcomes: make(map[string]Qualification)}
	for _, candidate := range candidates {
		q := Qualify(candidate.Meta, cfg, cfg.FallbackThresholdPct)
		fallback.Outcomes[candidate.StrategyID] = q
		if q.Passed {
			fallback.Eligible = append(fallback.Eligible, candidate)
		}
	}
	if len(fallback.Eligible) > 0 {
		return fallback
	}

	return Resolution{Mode: ModeNone, Outcomes: fallback.Outcomes}
}

// SelectBest orders survivors by the tie-break chain and returns the winner.
// Strategy id is always the final, deterministic tie-break; ties are never
// resolved by insertion order.
func SelectBest(eligible []Candidate, tieBreak []string) (Candidate, bool) {
	if len(eligible) == 0 {
		return Candidate{}, false
	}
	if len(tieBreak) == 0 {
		tieBreak = defaultTieBreak
	}

	ranked := make([]Candidate, len(eligible))
	copy(ranked, eligible)

	sort.SliceStable(ranked, func(i, j int) bool {
		for _, key := range tieBreak {
			a, b := tieBreakValue(ranked[i].Meta, key), tieBreakValue(ranked[j].Meta, key)
			if a != b {
				return a > b
			}
		}
		return ranked[i].StrategyID < ranked[j].StrategyID
	})
	return ranked[0], true
}

func tieBreakValue(meta *BacktestMeta, key string) float64 {
	if meta == nil {
		return math.Inf(-1)
	}
	switch key {
	case TieBreakNetPnl:
		return meta.NetPnlPct
	case TieBreakWilsonLower:
		if meta.WinRateLower95Pct != nil {
			return *meta.WinRateLower95Pct
		}
		return math.Inf(-1)
	case TieBreakProfitFactor:
		return meta.ProfitFactor
	case TieBreakWinRate:
		return meta.WinRatePct
	case TieBreakTrades:
		return float64(meta.TotalTrades)
	default:
		return 0
	}
}
