// Package health keeps the authoritative "is this feed trustworthy right
// now" view: exactly one current snapshot per market-data source.
package health

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"trust-plane/internal/mirror"
	"trust-plane/internal/reliability"
)

// healthyScoreFloor is the reliability score at or above which an ok source
// counts as healthy in the summary.
const healthyScoreFloor = 0.8

// Snapshot is the current health state of one source, overwritten on every
// probe rather than appended.
type Snapshot struct {
	Source           string            `json:"source"`
	CheckedAt        time.Time         `json:"checkedAt"`
	OK               bool              `json:"ok"`
	LatencyMs        float64           `json:"latencyMs"`
	HTTPStatus       int               `json:"httpStatus"`
	FreshnessMs      float64           `json:"freshnessMs"`
	ReliabilityScore float64           `json:"reliabilityScore"`
	ErrorBudgetBurn  float64           `json:"errorBudgetBurn"`
	RedundancyState  reliability.State `json:"redundancyState"`
}

// Summary is the aggregate signal an operator or circuit-breaker reads to
// decide whether to disable a feed.
type Summary struct {
	UpdatedAt       time.Time  `json:"updatedAt"`
	TotalSources    int        `json:"totalSources"`
	HealthySources  int        `json:"healthySources"`
	DegradedSources int        `json:"degradedSources"`
	Snapshots       []Snapshot `json:"snapshots"`
}

type objectMirror interface {
	Put(ctx context.Context, key string, data []byte) error
}

type docMirror interface {
	Upsert(ctx context.Context, collection, docID string, doc []byte) error
}

// Store persists health snapshots: local JSON file per source synchronously,
// then best-effort mirrors.
type Store struct {
	root    string
	fanout  *mirror.Fanout
	objects objectMirror
	docs    docMirror
	logger  zerolog.Logger
}

// NewStore constructs the health store rooted at dir. Mirrors may be nil.
func NewStore(dir string, fanout *mirror.Fanout, objects objectMirror, docs docMirror, logger zerolog.Logger) *Store {
	return &Store{
		root:    dir,
		fanout:  fanout,
		objects: objects,
		docs:    docs,
		logger:  logger.With().Str("component", "health_store").Logger(),
	}
}

// Record overwrites the current snapshot for snap.Source. The local write is
// synchronous and its failure is the caller's; mirror writes are
// fire-and-forget so health telemetry never blocks trading work.
func (s *Store) Record(ctx context.Context, snap Snapshot) error {
	if strings.TrimSpace(snap.Source) == "" {
		return errors.New("health: snapshot source is required")
	}
	if snap.CheckedAt.IsZero() {
		snap.CheckedAt = time.Now().UTC()
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal health snapshot: %w", err)
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("create health root: %w", err)
	}
	path := filepath.Join(s.root, sourceFileName(snap.Source))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write health snapshot: %w", err)
	}

	if s.fanout != nil {
		s.fanout.Dispatch(ctx,
			mirror.Task{Name: "object_store", Write: s.objectTask(snap.Source, data)},
			mirror.Task{Name: "doc_store", Write: s.docTask(snap.Source, data)},
		)
	}
	return nil
}

func (s *Store) objectTask(source string, data []byte) func(context.Context) error {
	if s.objects == nil {
		return nil
	}
	key := fmt.Sprintf("source-health/%s.json", source)
	return func(ctx context.Context) error {
		return s.objects.Put(ctx, key, data)
	}
}

func (s *Store) docTask(source string, data []byte) func(context.Context) error {
	if s.docs == nil {
		return nil
	}
	return func(ctx context.Context) error {
		return s.docs.Upsert(ctx, mirror.CollectionSourceHealth, source, data)
	}
}

// Snapshots returns every current snapshot sorted by source name so output
// is deterministic.
func (s *Store) Snapshots() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read health root: %w", err)
	}

	snapshots := make([]Snapshot, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.root, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read health snapshot %s: %w", entry.Name(), err)
		}
		var snap Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			s.logger.Warn().Err(err).Str("file", entry.Name()).Msg("skipping unreadable snapshot")
			continue
		}
		snapshots = append(snapshots, snap)
	}

	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Source < snapshots[j].Source })
	return snapshots, nil
}

// Summarize aggregates the current snapshots.
func (s *Store) Summarize() (Summary, error) {
	snapshots, err := s.Snapshots()
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{
		UpdatedAt:    time.Now().UTC(),
		TotalSources: len(snapshots),
		Snapshots:    snapshots,
	}
	for _, snap := range snapshots {
		if snap.OK && snap.ReliabilityScore >= healthyScoreFloor {
			summary.HealthySources++
		} else {
			summary.DegradedSources++
		}
	}
	return summary, nil
}

func sourceFileName(source string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, source)
	return cleaned + ".json"
}
