// Package reliability converts raw probe observations into a bounded trust
// score and classifies how much source redundancy backs a data point.
package reliability

// Probe is a single observation of one upstream market-data source. It is
// produced per network call and consumed immediately; never persisted raw.
type Probe struct {
	OK              bool
	LatencyMs       float64
	HTTPStatus      int
	FreshnessMs     float64
	ErrorBudgetBurn float64
}

// Penalty caps. Each dimension is capped independently so a single slow but
// correct response is never scored as badly as one that is down and wrong.
const (
	failurePenaltyCap   = 0.45
	latencyPenaltyCap   = 0.25
	statusPenaltyCap    = 0.35
	freshnessPenaltyCap = 0.20
	burnPenaltyCap      = 0.20

	latencyScaleMs   = 40_000.0
	freshnessScaleMs = 86_400_000.0
)

// Score maps a probe onto [0,1]. Penalties are additive, independently
// capped, subtracted from 1.0 and clamped.
func Score(p Probe) float64 {
	penalty := 0.0

	if !p.OK {
		penalty += failurePenaltyCap
	}
	if p.LatencyMs > 0 {
		penalty += capped(p.LatencyMs/latencyScaleMs*latencyPenaltyCap, latencyPenaltyCap)
	}
	if p.HTTPStatus >= 400 {
		penalty += capped(float64(p.HTTPStatus-399)/800.0*statusPenaltyCap, statusPenaltyCap)
	}
	if p.FreshnessMs > 0 {
		penalty += capped(p.FreshnessMs/freshnessScaleMs*freshnessPenaltyCap, freshnessPenaltyCap)
	}
	if p.ErrorBudgetBurn > 0 {
		penalty += capped(p.ErrorBudgetBurn*burnPenaltyCap, burnPenaltyCap)
	}

	score := 1.0 - penalty
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func capped(v, cap float64) float64 {
	if v > cap {
		return cap
	}
	if v < 0 {
		return 0
	}
	return v
}

// State classifies how many independent sources corroborate a value.
type State string

const (
	// StateSingleSource means at most one active source backs the value;
	// callers should require cross-source confirmation before acting.
	StateSingleSource State = "single_source"
	StateDegraded     State = "degraded"
	StateHealthy      State = "healthy"
)

// Redundancy classifies the number of active sources behind a data point.
func Redundancy(activeSourceCount int) State {
	switch {
	case activeSourceCount <= 1:
		return StateSingleSource
	case activeSourceCount == 2:
		return StateDegraded
	default:
		return StateHealthy
	}
}
