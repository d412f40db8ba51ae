package evidence

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
)

// ErrNotFound is returned when no record exists for a trade id.
var ErrNotFound = errors.New("evidence: not found")

const dayLayout = "2006-01-02"

type objectMirror interface {
	Put(ctx context.Context, key string, data []byte) error
}

type docMirror interface {
	Upsert(ctx context.Context, collection, docID string, doc []byte) error
}

// Store keeps evidence on local disk under {day}/{surface}/{tradeId}.json.
// The local write is synchronous; the two mirror writes run under the
// bounded fanout timeout so a slow mirror cannot stall the hot path.
type Store struct {
	root    string
	fanout  *mirror.Fanout
	objects objectMirror
	docs    docMirror
	logger  zerolog.Logger
}

// NewStore constructs the evidence store rooted at dir. Mirrors may be nil.
func NewStore(dir string, fanout *mirror.Fanout, objects objectMirror, docs docMirror, logger zerolog.Logger) *Store {
	return &Store{
		root:    dir,
		fanout:  fanout,
		objects: objects,
		docs:    docs,
		logger:  logger.With().Str("component", "evidence_store").Logger(),
	}
}

// Upsert writes or replaces the record for ev.TradeID. A retry for a known
// id overwrites the existing record in place, whatever day it was filed
// under, so a confirm arriving the next day never forks a duplicate.
func (s *Store) Upsert(ctx context.Context, ev TradeEvidenceV2) error {
	if strings.TrimSpace(ev.TradeID) == "" {
		return errors.New("evidence: tradeId is required")
	}
	if strings.TrimSpace(ev.Surface) == "" {
		return errors.New("evidence: surface is required")
	}
	if ev.Outcome == "" {
		ev.Outcome = OutcomeUnresolved
	}
	if ev.DecisionTs.IsZero() {
		ev.DecisionTs = time.Now().UTC()
	}

	day, surface := ev.DecisionTs.UTC().Format(dayLayout), sanitizeSegment(ev.Surface)
	if existing, err := s.findPath(ev.TradeID); err == nil {
		day, surface = existing.day, existing.surface
	}

	data, err := json.MarshalIndent(ev, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal evidence: %w", err)
	}

	dir := filepath.Join(s.root, day, surface)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create evidence dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, sanitizeSegment(ev.TradeID)+".json"), data, 0o644); err != nil {
		return fmt.Errorf("write evidence: %w", err)
	}

	if s.fanout != nil {
		key := fmt.Sprintf("trades/%s/%s/%s.json", day, surface, ev.TradeID)
		docID := fmt.Sprintf("%s/%s/%s", day, surface, ev.TradeID)

		var objectTask, docTask func(context.Context) error
		if s.objects != nil {
			objectTask = func(ctx context.Context) error { return s.objects.Put(ctx, key, data) }
		}
		if s.docs != nil {
			docTask = func(ctx context.Context) error {
				return s.docs.Upsert(ctx, mirror.CollectionTradeEvidence, docID, data)
			}
		}
		s.fanout.Dispatch(ctx,
			mirror.Task{Name: "object_store", Write: objectTask},
			mirror.Task{Name: "doc_store", Write: docTask},
		)
	}
	return nil
}

// Get returns the record for tradeID, scanning the most recent days first.
func (s *Store) Get(tradeID string) (TradeEvidenceV2, error) {
	location, err := s.findPath(tradeID)
	if err != nil {
		return TradeEvidenceV2{}, err
	}
	return s.read(location)
}

// Records returns all matching evidence records, newest day first.
func (s *Store) Records(filter Filter) ([]TradeEvidenceV2, error) {
	return s.scan(filter)
}

// Summarize aggregates slippage and outcomes over matching records.
func (s *Store) Summarize(filter Filter) (Summary, error) {
	records, err := s.scan(filter)
	if err != nil {
		return Summary{}, err
	}

	summary := Summary{Count: len(records), Outcomes: make(map[Outcome]int)}
	slippages := make([]float64, 0, len(records))
	for _, record := range records {
		summary.Outcomes[record.Outcome]++
		slippages = append(slippages, record.SlippageBps)
	}

	sort.Float64s(slippages)
	summary.MedianSlippageBps = nearestRank(slippages, 50)
	summary.P95SlippageBps = nearestRank(slippages, 95)
	return summary, nil
}

type recordLocation struct {
	day     string
	surface string
	file    string
}

func (s *Store) findPath(tradeID string) (recordLocation, error) {
	if strings.TrimSpace(tradeID) == "" {
		return recordLocation{}, ErrNotFound
	}
	fileName := sanitizeSegment(tradeID) + ".json"

	days, err := s.listDays()
	if err != nil {
		return recordLocation{}, err
	}
	for _, day := range days { // newest first: recent trades are looked up most
		surfaces, err := os.ReadDir(filepath.Join(s.root, day))
		if err != nil {
			continue
		}
		for _, surface := range surfaces {
			if !surface.IsDir() {
				continue
			}
			candidate := recordLocation{day: day, surface: surface.Name(), file: fileName}
			if _, err := os.Stat(filepath.Join(s.root, day, surface.Name(), fileName)); err == nil {
				return candidate, nil
			}
		}
	}
	return recordLocation{}, ErrNotFound
}

func (s *Store) listDays() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read evidence root: %w", err)
	}

	days := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			days = append(days, entry.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(days)))
	return days, nil
}

func (s *Store) read(location recordLocation) (TradeEvidenceV2, error) {
	data, err := os.ReadFile(filepath.Join(s.root, location.day, location.surface, location.file))
	if err != nil {
		return TradeEvidenceV2{}, fmt.Errorf("read evidence: %w", err)
	}
	var ev TradeEvidenceV2
	if err := json.Unmarshal(data, &ev); err != nil {
		return TradeEvidenceV2{}, fmt.Errorf("decode evidence: %w", err)
	}
	return ev, nil
}

func (s *Store) scan(filter Filter) ([]TradeEvidenceV2, error) {
	days, err := s.listDays()
	if err != nil {
		return nil, err
	}

	var records []TradeEvidenceV2
	for _, day := range days {
		surfaces, err := os.ReadDir(filepath.Join(s.root, day))
		if err != nil {
			continue
		}
		for _, surfaceEntry := range surfaces {
			if !surfaceEntry.IsDir() {
				continue
			}
			if filter.Surface != "" && surfaceEntry.Name() != sanitizeSegment(filter.Surface) {
				continue
			}
			files, err := os.ReadDir(filepath.Join(s.root, day, surfaceEntry.Name()))
			if err != nil {
				continue
			}
			for _, file := range files {
				if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
					continue
				}
				ev, err := s.read(recordLocation{day: day, surface: surfaceEntry.Name(), file: file.Name()})
				if err != nil {
					s.logger.Warn().Err(err).Str("file", file.Name()).Msg("skipping unreadable evidence record")
					continue
				}
				if filter.StrategyID != "" && ev.StrategyID != filter.StrategyID {
					continue
				}
				records = append(records, ev)
			}
		}
	}
	return records, nil
}

// nearestRank computes the pth percentile over a sorted slice using
// nearest-rank indexing, not interpolation.
func nearestRank(sorted []float64, p int) float64 {
	if len(sorted) == 0 {
		return 0
	}
	rank := (p*len(sorted) + 99) / 100 // ceil(p/100 * n)
	if rank < 1 {
		rank = 1
	}
	if rank > len(sorted) {
		rank = len(sorted)
	}
	return sorted[rank-1]
}

func sanitizeSegment(v string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			return r
		default:
			return '-'
		}
	}, v)
}
