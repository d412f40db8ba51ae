// Package provenance attaches origin metadata to every ingested data point
// so that silent upstream format drift can be detected later without
// retaining the payload itself.
package provenance

import (
	"time"

	"trust-plane/internal/canonical"
)

// SchemaVersion identifies the provenance record layout.
const SchemaVersion = "v2"

// DataPointProvenance records where a value came from and exactly what bytes
// were received. Immutable once created.
type DataPointProvenance struct {
	Source           string    `json:"source"`
	FetchedAt        time.Time `json:"fetchedAt"`
	LatencyMs        float64   `json:"latencyMs"`
	HTTPStatus       int       `json:"httpStatus"`
	SchemaVersion    string    `json:"schemaVersion"`
	ReliabilityScore float64   `json:"reliabilityScore"`
	RawHash          string    `json:"rawHash"`
}

// Options carry the optional timing fields of Build.
type Options struct {
	FetchedAt  time.Time
	LatencyMs  float64
	HTTPStatus int
}

// Build wraps a fetched raw value with source, timing, and a content hash.
// The hash covers the canonical JSON form of raw, so two calls on
// byte-identical payloads always agree regardless of call time.
func Build(source string, raw any, reliabilityScore float64, opts Options) (DataPointProvenance, error) {
	hash, err := canonical.HashHex(raw)
	if err != nil {
		return DataPointProvenance{}, err
	}

	fetchedAt := opts.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now().UTC()
	}

	return DataPointProvenance{
		Source:           source,
		FetchedAt:        fetchedAt.UTC(),
		LatencyMs:        opts.LatencyMs,
		HTTPStatus:       opts.HTTPStatus,
		SchemaVersion:    SchemaVersion,
		ReliabilityScore: reliabilityScore,
		RawHash:          hash,
	}, nil
}
