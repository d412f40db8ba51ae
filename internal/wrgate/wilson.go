package wrgate

import "math"

// z score for a one-sided 95% bound.
const wilsonZ95 = 1.959963984540054

// WilsonLower95Pct returns the Wilson 95% lower confidence bound, in
// percent, of a true win rate observed as winRatePct over n trades. It is
// deliberately conservative: small samples are pulled well below their point
// estimate, which is why the gate prefers it over the raw win rate.
func WilsonLower95Pct(winRatePct float64, n int) float64 {
	if n <= 0 {
		return 0
	}
	p := winRatePct / 100
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}

	nf := float64(n)
	z2 := wilsonZ95 * wilsonZ95
	denominator := 1 + z2/nf
	center := p + z2/(2*nf)
	margin := wilsonZ95 * math.Sqrt(p*(1-p)/nf+z2/(4*nf*nf))

	lower := (center - margin) / denominator
	if lower < 0 {
		lower = 0
	}
	return lower * 100
}

// FillWilsonLower populates WinRateLower95Pct on metadata that is backtested
// but missing the precomputed bound. Metadata already carrying a bound is
// returned unchanged.
func FillWilsonLower(meta *BacktestMeta) *BacktestMeta {
	if meta == nil || !meta.Backtested || meta.WinRateLower95Pct != nil || meta.TotalTrades <= 0 {
		return meta
	}
	lower := WilsonLower95Pct(meta.WinRatePct, meta.TotalTrades)
	filled := *meta
	filled.WinRateLower95Pct = &lower
	return &filled
}
