// Package probe implements the thin fetch+classify contract against
// upstream market-data feeds: one GET per source, classified into a
// reliability probe. Everything richer than that lives upstream.
package probe

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"trust-plane/internal/reliability"
)

// errorBudgetWindow is how many recent probes feed the burn estimate.
const errorBudgetWindow = 20

// Source is one upstream feed endpoint to watch.
type Source struct {
	Name string
	URL  string
}

// Prober fetches and classifies sources.
type Prober struct {
	client *http.Client
	logger zerolog.Logger

	mu      sync.Mutex
	history map[string][]bool
}

// New constructs a prober with one shared HTTP client.
func New(timeout time.Duration, logger zerolog.Logger) *Prober {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Prober{
		client:  &http.Client{Timeout: timeout},
		logger:  logger.With().Str("component", "prober").Logger(),
		history: make(map[string][]bool),
	}
}

// Check performs one GET against the source and classifies the result.
func (p *Prober) Check(ctx context.Context, source Source) reliability.Probe {
	started := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, source.URL, nil)
	if err != nil {
		return p.classify(source, false, time.Since(started), 0, 0)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return p.classify(source, false, time.Since(started), 0, 0)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<20))

	ok := resp.StatusCode < 400
	return p.classify(source, ok, time.Since(started), resp.StatusCode, freshnessFrom(resp))
}

func (p *Prober) classify(source Source, ok bool, latency time.Duration, status int, freshnessMs float64) reliability.Probe {
	burn := p.recordOutcome(source.Name, ok)
	probe := reliability.Probe{
		OK:              ok,
		LatencyMs:       float64(latency.Milliseconds()),
		HTTPStatus:      status,
		FreshnessMs:     freshnessMs,
		ErrorBudgetBurn: burn,
	}
	p.logger.Debug().Str("source", source.Name).Bool("ok", ok).
		Float64("latency_ms", probe.LatencyMs).Int("status", status).
		Msg("source probed")
	return probe
}

// recordOutcome keeps a short rolling window of outcomes per source and
// returns the failure share as the error budget burn.
func (p *Prober) recordOutcome(source string, ok bool) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()

	window := append(p.history[source], ok)
	if len(window) > errorBudgetWindow {
		window = window[len(window)-errorBudgetWindow:]
	}
	p.history[source] = window

	failures := 0
	for _, succeeded := range window {
		if !succeeded {
			failures++
		}
	}
	return float64(failures) / float64(len(window))
}

// freshnessFrom derives payload staleness from response caching headers when
// present.
func freshnessFrom(resp *http.Response) float64 {
	if age := resp.Header.Get("Age"); age != "" {
		if seconds, err := strconv.ParseFloat(age, 64); err == nil && seconds > 0 {
			return seconds * 1000
		}
	}
	if lastModified := resp.Header.Get("Last-Modified"); lastModified != "" {
		if at, err := http.ParseTime(lastModified); err == nil {
			if stale := time.Since(at); stale > 0 {
				return float64(stale.Milliseconds())
			}
		}
	}
	return 0
}
