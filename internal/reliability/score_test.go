package reliability

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScorePerfectProbe(t *testing.T) {
	score := Score(Probe{OK: true, LatencyMs: 0, HTTPStatus: 200, FreshnessMs: 0, ErrorBudgetBurn: 0})
	assert.Equal(t, 1.0, score)
}

func TestScoreHardFailureAlone(t *testing.T) {
	score := Score(Probe{OK: false})
	assert.InDelta(t, 0.55, score, 1e-9)
}

func TestScoreLatencyCapped(t *testing.T) {
	// 40s of latency saturates the latency penalty; beyond that it stays flat.
	atCap := Score(Probe{OK: true, LatencyMs: 40_000, HTTPStatus: 200})
	beyond := Score(Probe{OK: true, LatencyMs: 400_000, HTTPStatus: 200})
	assert.InDelta(t, 0.75, atCap, 1e-9)
	assert.Equal(t, atCap, beyond)
}

func TestScoreHTTPStatusScaling(t *testing.T) {
	s400 := Score(Probe{OK: true, HTTPStatus: 400})
	s500 := Score(Probe{OK: true, HTTPStatus: 500})
	assert.Greater(t, s400, s500)
	assert.InDelta(t, 1.0-(1.0/800.0)*0.35, s400, 1e-9)
}

func TestScoreStaleness(t *testing.T) {
	dayOld := Score(Probe{OK: true, HTTPStatus: 200, FreshnessMs: 86_400_000})
	assert.InDelta(t, 0.80, dayOld, 1e-9)
}

func TestScoreBurn(t *testing.T) {
	assert.InDelta(t, 0.80, Score(Probe{OK: true, HTTPStatus: 200, ErrorBudgetBurn: 1.0}), 1e-9)
	assert.InDelta(t, 0.90, Score(Probe{OK: true, HTTPStatus: 200, ErrorBudgetBurn: 0.5}), 1e-9)
}

func TestScoreNeverNegative(t *testing.T) {
	worst := Score(Probe{OK: false, LatencyMs: 1e9, HTTPStatus: 599, FreshnessMs: 1e12, ErrorBudgetBurn: 1})
	assert.GreaterOrEqual(t, worst, 0.0)
}

func TestRedundancy(t *testing.T) {
	assert.Equal(t, StateSingleSource, Redundancy(0))
	assert.Equal(t, StateSingleSource, Redundancy(1))
	assert.Equal(t, StateDegraded, Redundancy(2))
	assert.Equal(t, StateHealthy, Redundancy(3))
	assert.Equal(t, StateHealthy, Redundancy(7))
}
