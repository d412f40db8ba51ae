package manifest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"

	"trust-plane/internal/mirror"
)

// ErrNotFound is returned when no manifest exists under a family/dataset id.
var ErrNotFound = errors.New("manifest: not found")

type objectMirror interface {
	Put(ctx context.Context, key string, data []byte) error
}

type docMirror interface {
	Upsert(ctx context.Context, collection, docID string, doc []byte) error
}

// Store persists manifests to local disk keyed by family/datasetId, with
// best-effort mirrors using the same fire-and-forget discipline as the
// health store.
type Store struct {
	root    string
	fanout  *mirror.Fanout
	objects objectMirror
	docs    docMirror
	logger  zerolog.Logger
}

// NewStore constructs the manifest store rooted at dir. Mirrors may be nil.
func NewStore(dir string, fanout *mirror.Fanout, objects objectMirror, docs docMirror, logger zerolog.Logger) *Store {
	return &Store{
		root:    dir,
		fanout:  fanout,
		objects: objects,
		docs:    docs,
		logger:  logger.With().Str("component", "manifest_store").Logger(),
	}
}

// Persist writes the manifest locally (synchronous, caller sees failure) and
// mirrors it best-effort.
func (s *Store) Persist(ctx context.Context, m ManifestV2) error {
	if m.DatasetID == "" || m.Family == "" {
		return errors.New("manifest: datasetId and family are required to persist")
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	dir := filepath.Join(s.root, m.Family, m.DatasetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create manifest dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "manifest.v2.json"), data, 0o644); err != nil {
		return fmt.Errorf("write manifest: %w", err)
	}

	if s.fanout != nil {
		key := fmt.Sprintf("datasets/%s/%s/manifest.v2.json", m.Family, m.DatasetID)
		docID := m.Family + ":" + m.DatasetID

		var objectTask, docTask func(context.Context) error
		if s.objects != nil {
			objectTask = func(ctx context.Context) error { return s.objects.Put(ctx, key, data) }
		}
		if s.docs != nil {
			docTask = func(ctx context.Context) error {
				return s.docs.Upsert(ctx, mirror.CollectionDatasetManifests, docID, data)
			}
		}
		s.fanout.Dispatch(ctx,
			mirror.Task{Name: "object_store", Write: objectTask},
			mirror.Task{Name: "doc_store", Write: docTask},
		)
	}
	return nil
}

// Load reads a persisted manifest back.
func (s *Store) Load(family, datasetID string) (ManifestV2, error) {
	path := filepath.Join(s.root, family, datasetID, "manifest.v2.json")
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ManifestV2{}, ErrNotFound
		}
		return ManifestV2{}, fmt.Errorf("read manifest: %w", err)
	}

	var m ManifestV2
	if err := json.Unmarshal(data, &m); err != nil {
		return ManifestV2{}, fmt.Errorf("decode manifest: %w", err)
	}
	return m, nil
}
