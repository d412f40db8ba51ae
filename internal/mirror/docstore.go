package mirror

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Collections recognised by the document mirror.
const (
	CollectionTradeEvidence    = "trade_evidence"
	CollectionDatasetManifests = "dataset_manifests"
	CollectionSourceHealth     = "source_health"
)

var docCollections = []string{
	CollectionTradeEvidence,
	CollectionDatasetManifests,
	CollectionSourceHealth,
}

// DocStoreOptions configure the optional document-database mirror.
type DocStoreOptions struct {
	Enabled bool
	DSN     string
}

// DocStore mirrors documents into per-collection JSONB tables keyed by a
// sanitised natural id. Feature-flagged off by default; unreachable at
// startup means disabled, not fatal.
type DocStore struct {
	pool    *pgxpool.Pool
	enabled bool
	logger  zerolog.Logger
}

// NewDocStore connects, pings, and provisions the collection tables. Any
// startup failure fails open with the mirror disabled.
func NewDocStore(ctx context.Context, opts DocStoreOptions, logger zerolog.Logger) *DocStore {
	store := &DocStore{logger: logger.With().Str("component", "doc_mirror").Logger()}

	if !opts.Enabled || opts.DSN == "" {
		return store
	}

	pool, err := pgxpool.New(ctx, opts.DSN)
	if err != nil {
		store.logger.Warn().Err(err).Msg("doc mirror pool init failed; mirror disabled")
		return store
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(checkCtx); err != nil {
		store.logger.Warn().Err(err).Msg("doc mirror unreachable; mirror disabled")
		pool.Close()
		return store
	}

	for _, collection := range docCollections {
		ddl := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
            doc_id     TEXT PRIMARY KEY,
            doc        JSONB NOT NULL,
            updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
        );`, collection)
		if _, err := pool.Exec(checkCtx, ddl); err != nil {
			store.logger.Warn().Err(err).Str("collection", collection).
				Msg("doc mirror schema provisioning failed; mirror disabled")
			pool.Close()
			return store
		}
	}

	store.pool = pool
	store.enabled = true
	return store
}

// Enabled reports whether upserts will actually reach the database.
func (s *DocStore) Enabled() bool {
	return s != nil && s.enabled
}

// Close releases the connection pool.
func (s *DocStore) Close() {
	if s != nil && s.pool != nil {
		s.pool.Close()
	}
}

// Upsert writes one document into a collection, replacing any previous
// version under the same id.
func (s *DocStore) Upsert(ctx context.Context, collection, docID string, doc []byte) error {
	if !s.Enabled() {
		return nil
	}
	if !knownCollection(collection) {
		return fmt.Errorf("unknown doc collection %q", collection)
	}

	sql := fmt.Sprintf(`INSERT INTO %s (doc_id, doc, updated_at)
        VALUES ($1, $2, now())
        ON CONFLICT (doc_id) DO UPDATE
        SET doc = EXCLUDED.doc, updated_at = EXCLUDED.updated_at;`, collection)

	_, err := s.pool.Exec(ctx, sql, SanitizeDocID(docID), doc)
	return err
}

func knownCollection(name string) bool {
	for _, c := range docCollections {
		if c == name {
			return true
		}
	}
	return false
}

// SanitizeDocID flattens a natural key (which may contain path separators)
// into a document id.
func SanitizeDocID(id string) string {
	var b strings.Builder
	b.Grow(len(id))
	for _, r := range id {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '-', r == '_', r == '.':
			b.WriteRune(r)
		default:
			b.WriteByte(':')
		}
	}
	return b.String()
}
