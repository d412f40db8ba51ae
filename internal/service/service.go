// Package service hosts the periodic health check loop: probe every
// configured source, score it, and overwrite its health snapshot.
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"trust-plane/internal/health"
	"trust-plane/internal/probe"
	"trust-plane/internal/reliability"
	"trust-plane/internal/scheduler"
)

// SourceChecker performs one probe; satisfied by *probe.Prober.
type SourceChecker interface {
	Check(ctx context.Context, source probe.Source) reliability.Probe
}

// SnapshotRecorder persists one health snapshot; satisfied by
// *health.Store.
type SnapshotRecorder interface {
	Record(ctx context.Context, snap health.Snapshot) error
	Summarize() (health.Summary, error)
}

// Service runs the health sweep on a schedule.
type Service struct {
	scheduler *scheduler.Scheduler
	checker   SourceChecker
	store     SnapshotRecorder
	sources   []probe.Source
	limiter   *rate.Limiter
	logger    zerolog.Logger
}

// New constructs the health check service. ratePerSecond caps how fast the
// sweep hits upstream feeds.
func New(sched *scheduler.Scheduler, checker SourceChecker, store SnapshotRecorder, sources []probe.Source, ratePerSecond float64, logger zerolog.Logger) *Service {
	if ratePerSecond <= 0 {
		ratePerSecond = 4
	}
	return &Service{
		scheduler: sched,
		checker:   checker,
		store:     store,
		sources:   sources,
		limiter:   rate.NewLimiter(rate.Limit(ratePerSecond), 1),
		logger:    logger.With().Str("component", "health_service").Logger(),
	}
}

// Run begins the periodic sweep loop.
func (s *Service) Run(ctx context.Context) error {
	if s.scheduler == nil {
		return fmt.Errorf("scheduler not configured")
	}
	if len(s.sources) == 0 {
		return fmt.Errorf("no probe sources configured")
	}
	return s.scheduler.Run(ctx, s.Sweep)
}

// Sweep probes every source once and records the resulting snapshots. The
// redundancy state written with each snapshot reflects how many sources
// responded ok in this sweep.
func (s *Service) Sweep(ctx context.Context, bucket time.Time) error {
	probes := make(map[string]reliability.Probe, len(s.sources))
	activeCount := 0

	for _, source := range s.sources {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		result := s.checker.Check(ctx, source)
		probes[source.Name] = result
		if result.OK {
			activeCount++
		}
	}

	redundancy := reliability.Redundancy(activeCount)
	checkedAt := time.Now().UTC()

	for _, source := range s.sources {
		result := probes[source.Name]
		snap := health.Snapshot{
			Source:           source.Name,
			CheckedAt:        checkedAt,
			OK:               result.OK,
			LatencyMs:        result.LatencyMs,
			HTTPStatus:       result.HTTPStatus,
			FreshnessMs:      result.FreshnessMs,
			ReliabilityScore: reliability.Score(result),
			ErrorBudgetBurn:  result.ErrorBudgetBurn,
			RedundancyState:  redundancy,
		}
		if err := s.store.Record(ctx, snap); err != nil {
			return fmt.Errorf("record snapshot for %s: %w", source.Name, err)
		}
	}

	summary, err := s.store.Summarize()
	if err != nil {
		return err
	}
	s.logger.Info().Time("bucket", bucket).
		Int("total", summary.TotalSources).
		Int("healthy", summary.HealthySources).
		Int("degraded", summary.DegradedSources).
		Str("redundancy", string(redundancy)).
		Msg("health sweep recorded")
	return nil
}
