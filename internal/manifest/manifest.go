// Package manifest produces content-addressed fingerprints of dataset
// snapshots so a pipeline re-run over the same logical data is provably
// identical, independent of record fetch order.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"trust-plane/internal/canonical"
)

// SchemaVersion identifies the manifest layout.
const SchemaVersion = "v2"

// datasetIDHexLen is the hash prefix length used for the dataset id.
const datasetIDHexLen = 16

// TimeRange bounds the records covered by a manifest.
type TimeRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// ManifestV2 is one dataset snapshot fingerprint. Immutable once persisted;
// superseded by a new manifest, never mutated.
type ManifestV2 struct {
	DatasetID     string         `json:"datasetId"`
	Family        string         `json:"family"`
	Surface       string         `json:"surface"`
	TimeRange     TimeRange      `json:"timeRange"`
	SchemaVersion string         `json:"schemaVersion"`
	RecordCount   int            `json:"recordCount"`
	SHA256        string         `json:"sha256"`
	SourceMix     map[string]int `json:"sourceMix"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// BuildInput carries one batch of records to fingerprint. Records may be any
// JSON-serialisable values; a record exposing a provenance source (either a
// top-level "source" field or a "provenance" object with one) is tallied
// under that source, everything else under "unknown".
type BuildInput struct {
	Family    string
	Surface   string
	TimeRange TimeRange
	Records   []any
}

// Build derives a deterministic manifest for the batch.
func Build(input BuildInput) (ManifestV2, error) {
	if strings.TrimSpace(input.Family) == "" {
		return ManifestV2{}, errors.New("manifest: family is required")
	}
	if strings.TrimSpace(input.Surface) == "" {
		return ManifestV2{}, errors.New("manifest: surface is required")
	}

	sourceMix := make(map[string]int)
	serialized := make([]string, 0, len(input.Records))
	for i, record := range input.Records {
		sourceMix[recordSource(record)]++

		data, err := canonical.Marshal(record)
		if err != nil {
			return ManifestV2{}, fmt.Errorf("canonicalize record %d: %w", i, err)
		}
		serialized = append(serialized, string(data))
	}

	// Lexicographic order makes the hash independent of fetch order.
	sort.Strings(serialized)

	digest, err := canonical.Marshal(map[string]any{
		"family":    input.Family,
		"surface":   input.Surface,
		"timeRange": map[string]string{
			"from": input.TimeRange.From.UTC().Format(time.RFC3339Nano),
			"to":   input.TimeRange.To.UTC().Format(time.RFC3339Nano),
		},
		"records":   serialized,
		"sourceMix": sourceMix,
	})
	if err != nil {
		return ManifestV2{}, err
	}

	sum := sha256.Sum256(digest)
	hash := hex.EncodeToString(sum[:])

	return ManifestV2{
		DatasetID:     hash[:datasetIDHexLen],
		Family:        input.Family,
		Surface:       input.Surface,
		TimeRange:     input.TimeRange,
		SchemaVersion: SchemaVersion,
		RecordCount:   len(input.Records),
		SHA256:        hash,
		SourceMix:     sourceMix,
		CreatedAt:     time.Now().UTC(),
	}, nil
}

func recordSource(record any) string {
	fields, ok := record.(map[string]any)
	if !ok {
		return "unknown"
	}
	if src, ok := fields["source"].(string); ok && src != "" {
		return src
	}
	if prov, ok := fields["provenance"].(map[string]any); ok {
		if src, ok := prov["source"].(string); ok && src != "" {
			return src
		}
	}
	return "unknown"
}
