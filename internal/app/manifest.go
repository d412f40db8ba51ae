package app

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"trust-plane/internal/manifest"
)

// ManifestOptions configure the manifest build command.
type ManifestOptions struct {
	Family      string
	Surface     string
	From        time.Time
	To          time.Time
	RecordsPath string
	Persist     bool
}

// BuildManifest fingerprints a batch of records read from a JSON array file
// and optionally persists the result.
func (a *App) BuildManifest(ctx context.Context, opts ManifestOptions) error {
	data, err := os.ReadFile(opts.RecordsPath)
	if err != nil {
		return fmt.Errorf("read records file: %w", err)
	}

	var records []any
	if err := json.Unmarshal(data, &records); err != nil {
		return fmt.Errorf("decode records file (expected a JSON array): %w", err)
	}

	built, err := manifest.Build(manifest.BuildInput{
		Family:    opts.Family,
		Surface:   opts.Surface,
		TimeRange: manifest.TimeRange{From: opts.From, To: opts.To},
		Records:   records,
	})
	if err != nil {
		return err
	}

	if opts.Persist {
		store, closeMirrors := a.manifestStore(ctx)
		defer closeMirrors()
		if err := store.Persist(ctx, built); err != nil {
			return err
		}
		a.Logger.Info().Str("dataset_id", built.DatasetID).Str("family", built.Family).
			Int("records", built.RecordCount).Msg("manifest persisted")
	}

	return printJSON(built)
}

func printJSON(v any) error {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
