package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	chart "github.com/wcharczuk/go-chart/v2"

	"trust-plane/internal/evidence"
)

// UpsertEvidence records one trade evidence document read from a JSON file.
func (a *App) UpsertEvidence(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read evidence file: %w", err)
	}
	var ev evidence.TradeEvidenceV2
	if err := json.Unmarshal(data, &ev); err != nil {
		return fmt.Errorf("decode evidence file: %w", err)
	}

	store, closeMirrors := a.evidenceStore(ctx)
	defer closeMirrors()

	if err := store.Upsert(ctx, ev); err != nil {
		return err
	}
	a.Logger.Info().Str("trade_id", ev.TradeID).Str("outcome", string(ev.Outcome)).Msg("evidence recorded")
	return nil
}

// GetEvidence prints the record for one trade id.
func (a *App) GetEvidence(ctx context.Context, tradeID string) error {
	store, closeMirrors := a.evidenceStore(ctx)
	defer closeMirrors()

	ev, err := store.Get(tradeID)
	if err != nil {
		return err
	}
	return printJSON(ev)
}

// SummarizeEvidence prints slippage percentiles and the outcome histogram
// for matching records.
func (a *App) SummarizeEvidence(ctx context.Context, filter evidence.Filter) error {
	store, closeMirrors := a.evidenceStore(ctx)
	defer closeMirrors()

	summary, err := store.Summarize(filter)
	if err != nil {
		return err
	}
	return printJSON(summary)
}

// ChartEvidenceOptions configure the slippage distribution export.
type ChartEvidenceOptions struct {
	Surface    string
	StrategyID string
	PNGPath    string
}

// ChartEvidence renders the slippage distribution of matching trades as a
// PNG percentile curve.
func (a *App) ChartEvidence(ctx context.Context, opts ChartEvidenceOptions) error {
	if opts.PNGPath == "" {
		return errors.New("--png output path is required")
	}

	store, closeMirrors := a.evidenceStore(ctx)
	defer closeMirrors()

	records, err := store.Records(evidence.Filter{Surface: opts.Surface, StrategyID: opts.StrategyID})
	if err != nil {
		return err
	}
	if len(records) == 0 {
		a.Logger.Info().Msg("no evidence records match; nothing to chart")
		return nil
	}

	slippages := make([]float64, 0, len(records))
	for _, record := range records {
		slippages = append(slippages, record.SlippageBps)
	}
	sort.Float64s(slippages)

	percentiles := make([]float64, len(slippages))
	for i := range slippages {
		percentiles[i] = float64(i+1) / float64(len(slippages)) * 100
	}

	graph := chart.Chart{
		Width:  1280,
		Height: 720,
		XAxis: chart.XAxis{
			Name: "Percentile",
		},
		YAxis: chart.YAxis{
			Name: "Slippage (bps)",
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "Slippage distribution",
				XValues: percentiles,
				YValues: slippages,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	if dir := filepath.Dir(opts.PNGPath); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	file, err := os.Create(opts.PNGPath)
	if err != nil {
		return err
	}
	defer file.Close()

	a.Logger.Info().Int("trades", len(records)).Str("png", opts.PNGPath).Msg("exporting slippage distribution")
	return graph.Render(chart.PNG, file)
}
