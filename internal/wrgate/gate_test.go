package wrgate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func meta(trades int, wrPct float64) *BacktestMeta {
	return &BacktestMeta{Backtested: true, TotalTrades: trades, WinRatePct: wrPct}
}

func ptr(v float64) *float64 { return &v }

func TestQualifyFailClosedChain(t *testing.T) {
	cfg := Config{MinTrades: 50}

	assert.Equal(t, ReasonMissingMeta, Qualify(nil, cfg, 70).Reason)
	assert.Equal(t, ReasonNotBacktested, Qualify(&BacktestMeta{}, cfg, 70).Reason)
	assert.Equal(t, ReasonInsufficientSample, Qualify(meta(49, 90), cfg, 70).Reason)
	assert.Equal(t, ReasonMissingMetric, Qualify(&BacktestMeta{Backtested: true, TotalTrades: 100}, cfg, 70).Reason)
	assert.Equal(t, ReasonBelowThreshold, Qualify(meta(100, 65), cfg, 70).Reason)

	passed := Qualify(meta(100, 72), cfg, 70)
	assert.True(t, passed.Passed)
	assert.Equal(t, ReasonPassed, passed.Reason)
	assert.Equal(t, 72.0, passed.EffectiveWinRatePct)
}

func TestQualifyWilsonMethodPrefersLowerBound(t *testing.T) {
	cfg := Config{Method: MethodWilson95Lower, MinTrades: 50}
	m := meta(100, 78)
	m.WinRateLower95Pct = ptr(68.9)

	q := Qualify(m, cfg, 70)
	assert.False(t, q.Passed)
	assert.Equal(t, 68.9, q.EffectiveWinRatePct)

	// Absent bound falls back to the point estimate.
	q = Qualify(meta(100, 78), cfg, 70)
	assert.True(t, q.Passed)
	assert.Equal(t, 78.0, q.EffectiveWinRatePct)
}

func TestQualifyPointMethodIgnoresBound(t *testing.T) {
	cfg := Config{Method: MethodPoint, MinTrades: 50}
	m := meta(100, 74)
	m.WinRateLower95Pct = ptr(60)

	q := Qualify(m, cfg, 70)
	assert.True(t, q.Passed)
	assert.Equal(t, 74.0, q.EffectiveWinRatePct)
}

func TestResolvePrimaryExcludesSmallSample(t *testing.T) {
	candidates := []Candidate{
		{StrategyID: "A", Meta: meta(120, 72)},
		{StrategyID: "B", Meta: meta(40, 90)},
	}
	res := ResolveAdaptiveThreshold(candidates, Config{Method: MethodPoint, MinTrades: 50, PrimaryThresholdPct: 70})

	assert.Equal(t, ModePrimary, res.Mode)
	require.Len(t, res.Eligible, 1)
	assert.Equal(t, "A", res.Eligible[0].StrategyID)
	assert.Equal(t, ReasonInsufficientSample, res.Outcomes["B"].Reason)
}

func TestResolveFallsBackToLowerThreshold(t *testing.T) {
	candidates := []Candidate{
		{StrategyID: "A", Meta: meta(120, 62)},
		{StrategyID: "B", Meta: meta(80, 44)},
	}
	res := ResolveAdaptiveThreshold(candidates, Config{Method: MethodPoint})

	assert.Equal(t, ModeFallback, res.Mode)
	assert.Equal(t, DefaultFallbackThresholdPct, res.ThresholdPct)
	require.Len(t, res.Eligible, 1)
	assert.Equal(t, "A", res.Eligible[0].StrategyID)
}

func TestResolveFailClosedWhenNothingQualifies(t *testing.T) {
	candidates := []Candidate{
		{StrategyID: "A", Meta: meta(120, 30)},
		{StrategyID: "B", Meta: nil},
	}
	res := ResolveAdaptiveThreshold(candidates, Config{Method: MethodPoint})

	assert.Equal(t, ModeNone, res.Mode)
	assert.Empty(t, res.Eligible)
	assert.Equal(t, ReasonMissingMeta, res.Outcomes["B"].Reason)
}

func TestResolvePerCandidateOverrideAppliesToPrimaryOnly(t *testing.T) {
	candidates := []Candidate{
		{StrategyID: "A", Meta: meta(120, 66), ThresholdPct: ptr(65)},
		{StrategyID: "B", Meta: meta(120, 66)},
	}
	res := ResolveAdaptiveThreshold(candidates, Config{Method: MethodPoint, PrimaryThresholdPct: 70})

	assert.Equal(t, ModePrimary, res.Mode)
	require.Len(t, res.Eligible, 1)
	assert.Equal(t, "A", res.Eligible[0].StrategyID)
}

func TestSelectBestTieBreakChain(t *testing.T) {
	a := Candidate{StrategyID: "a", Meta: &BacktestMeta{Backtested: true, TotalTrades: 200, WinRatePct: 71, NetPnlPct: 14, ProfitFactor: 1.8}}
	b := Candidate{StrategyID: "b", Meta: &BacktestMeta{Backtested: true, TotalTrades: 150, WinRatePct: 75, NetPnlPct: 22, ProfitFactor: 1.4}}
	c := Candidate{StrategyID: "c", Meta: &BacktestMeta{Backtested: true, TotalTrades: 150, WinRatePct: 75, NetPnlPct: 22, ProfitFactor: 2.1}}

	// Net PnL dominates; within equal PnL, profit factor decides (no wilson
	// bounds present).
	best, ok := SelectBest([]Candidate{a, b, c}, nil)
	require.True(t, ok)
	assert.Equal(t, "c", best.StrategyID)
}

func TestSelectBestLexicographicFinalTieBreak(t *testing.T) {
	shared := BacktestMeta{Backtested: true, TotalTrades: 100, WinRatePct: 72, NetPnlPct: 10, ProfitFactor: 1.5}
	m1, m2 := shared, shared

	best, ok := SelectBest([]Candidate{
		{StrategyID: "zeta", Meta: &m1},
		{StrategyID: "alpha", Meta: &m2},
	}, nil)
	require.True(t, ok)
	assert.Equal(t, "alpha", best.StrategyID)
}

func TestSelectBestConfigurableOrder(t *testing.T) {
	a := Candidate{StrategyID: "a", Meta: &BacktestMeta{Backtested: true, TotalTrades: 400, WinRatePct: 70, NetPnlPct: 5}}
	b := Candidate{StrategyID: "b", Meta: &BacktestMeta{Backtested: true, TotalTrades: 100, WinRatePct: 70, NetPnlPct: 9}}

	best, ok := SelectBest([]Candidate{a, b}, []string{TieBreakTrades})
	require.True(t, ok)
	assert.Equal(t, "a", best.StrategyID)
}

func TestSelectBestEmpty(t *testing.T) {
	_, ok := SelectBest(nil, nil)
	assert.False(t, ok)
}

func TestWilsonLowerBound(t *testing.T) {
	// 72% over 120 trades: bound sits well below the point estimate but
	// above 60%.
	lower := WilsonLower95Pct(72, 120)
	assert.Less(t, lower, 72.0)
	assert.Greater(t, lower, 60.0)

	// Small samples are punished harder.
	small := WilsonLower95Pct(90, 10)
	assert.Less(t, small, 60.0)

	assert.Equal(t, 0.0, WilsonLower95Pct(50, 0))
}

func TestFillWilsonLower(t *testing.T) {
	filled := FillWilsonLower(meta(120, 72))
	require.NotNil(t, filled.WinRateLower95Pct)
	assert.InDelta(t, WilsonLower95Pct(72, 120), *filled.WinRateLower95Pct, 1e-9)

	already := meta(120, 72)
	already.WinRateLower95Pct = ptr(68)
	assert.Equal(t, 68.0, *FillWilsonLower(already).WinRateLower95Pct)

	assert.Nil(t, FillWilsonLower(nil))
}
