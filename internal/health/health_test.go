package health

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"trust-plane/internal/mirror"
	"trust-plane/internal/reliability"
)

type capturingMirror struct {
	mu   sync.Mutex
	keys []string
	fail bool
}

func (m *capturingMirror) Put(ctx context.Context, key string, data []byte) error {
	if m.fail {
		return errors.New("bucket down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, key)
	return nil
}

func (m *capturingMirror) Upsert(ctx context.Context, collection, docID string, doc []byte) error {
	if m.fail {
		return errors.New("docdb down")
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.keys = append(m.keys, collection+"/"+docID)
	return nil
}

func (m *capturingMirror) recorded() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.keys...)
}

func newTestStore(t *testing.T, obj *capturingMirror) *Store {
	t.Helper()
	fan := mirror.NewFanout(200*time.Millisecond, zerolog.Nop())
	return NewStore(t.TempDir(), fan, obj, obj, zerolog.Nop())
}

func TestRecordOverwritesPerSource(t *testing.T) {
	store := newTestStore(t, &capturingMirror{})
	ctx := context.Background()

	first := Snapshot{Source: "dexscreener", OK: true, ReliabilityScore: 0.95, RedundancyState: reliability.StateHealthy}
	if err := store.Record(ctx, first); err != nil {
		t.Fatalf("record: %v", err)
	}
	second := first
	second.OK = false
	second.ReliabilityScore = 0.41
	if err := store.Record(ctx, second); err != nil {
		t.Fatalf("record overwrite: %v", err)
	}

	snapshots, err := store.Snapshots()
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	if len(snapshots) != 1 {
		t.Fatalf("expected exactly one snapshot per source, got %d", len(snapshots))
	}
	if snapshots[0].OK || snapshots[0].ReliabilityScore != 0.41 {
		t.Fatalf("snapshot was not overwritten: %+v", snapshots[0])
	}
}

func TestRecordRequiresSource(t *testing.T) {
	store := newTestStore(t, &capturingMirror{})
	if err := store.Record(context.Background(), Snapshot{}); err == nil {
		t.Fatal("empty source must be rejected")
	}
}

func TestRecordSurvivesMirrorFailure(t *testing.T) {
	store := newTestStore(t, &capturingMirror{fail: true})
	err := store.Record(context.Background(), Snapshot{Source: "geckoterminal", OK: true, ReliabilityScore: 1})
	if err != nil {
		t.Fatalf("mirror failure must not surface: %v", err)
	}
}

func TestSnapshotsSortedBySource(t *testing.T) {
	store := newTestStore(t, &capturingMirror{})
	ctx := context.Background()
	for _, source := range []string{"tradingview", "dexscreener", "geckoterminal"} {
		if err := store.Record(ctx, Snapshot{Source: source, OK: true, ReliabilityScore: 1}); err != nil {
			t.Fatalf("record %s: %v", source, err)
		}
	}

	snapshots, err := store.Snapshots()
	if err != nil {
		t.Fatalf("snapshots: %v", err)
	}
	want := []string{"dexscreener", "geckoterminal", "tradingview"}
	for i, source := range want {
		if snapshots[i].Source != source {
			t.Fatalf("expected %s at index %d, got %s", source, i, snapshots[i].Source)
		}
	}
}

func TestSummarizeCountsHealthyAndDegraded(t *testing.T) {
	store := newTestStore(t, &capturingMirror{})
	ctx := context.Background()

	cases := []Snapshot{
		{Source: "a", OK: true, ReliabilityScore: 0.95},
		{Source: "b", OK: true, ReliabilityScore: 0.80}, // boundary counts as healthy
		{Source: "c", OK: true, ReliabilityScore: 0.79},
		{Source: "d", OK: false, ReliabilityScore: 0.99}, // not ok is never healthy
	}
	for _, snap := range cases {
		if err := store.Record(ctx, snap); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	summary, err := store.Summarize()
	if err != nil {
		t.Fatalf("summarize: %v", err)
	}
	if summary.TotalSources != 4 || summary.HealthySources != 2 || summary.DegradedSources != 2 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.UpdatedAt.IsZero() {
		t.Fatal("summary must carry a timestamp")
	}
}

func TestSummarizeEmptyRoot(t *testing.T) {
	store := newTestStore(t, &capturingMirror{})
	summary, err := store.Summarize()
	if err != nil {
		t.Fatalf("summarize empty: %v", err)
	}
	if summary.TotalSources != 0 {
		t.Fatalf("expected zero sources, got %d", summary.TotalSources)
	}
}

func TestMirrorKeysFollowLayout(t *testing.T) {
	obj := &capturingMirror{}
	store := newTestStore(t, obj)
	if err := store.Record(context.Background(), Snapshot{Source: "dexscreener", OK: true, ReliabilityScore: 1}); err != nil {
		t.Fatalf("record: %v", err)
	}
	foundObject := false
	for _, key := range obj.recorded() {
		if key == "source-health/dexscreener.json" {
			foundObject = true
		}
	}
	if !foundObject {
		t.Fatalf("object mirror key layout not honoured: %v", obj.keys)
	}
}
