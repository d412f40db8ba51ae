package mirror

import (
	"bytes"
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rs/zerolog"
)

// ObjectStoreOptions configure the S3-compatible mirror bucket.
type ObjectStoreOptions struct {
	Enabled   bool
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	UseSSL    bool
}

// ObjectStore mirrors JSON documents into an object-storage bucket. When
// disabled or unreachable at startup it degrades to a silent no-op.
type ObjectStore struct {
	client  *minio.Client
	bucket  string
	enabled bool
	logger  zerolog.Logger
}

// NewObjectStore builds the bucket client and checks connectivity once.
// Connectivity failure fails open: the mirror is disabled, not the process.
func NewObjectStore(ctx context.Context, opts ObjectStoreOptions, logger zerolog.Logger) *ObjectStore {
	store := &ObjectStore{
		bucket: opts.Bucket,
		logger: logger.With().Str("component", "object_mirror").Logger(),
	}

	if !opts.Enabled || opts.Endpoint == "" || opts.Bucket == "" {
		return store
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, ""),
		Secure: opts.UseSSL,
	})
	if err != nil {
		store.logger.Warn().Err(err).Msg("object mirror client init failed; mirror disabled")
		return store
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, opts.Bucket)
	if err != nil || !exists {
		store.logger.Warn().Err(err).Str("bucket", opts.Bucket).Bool("exists", exists).
			Msg("object mirror bucket unreachable; mirror disabled")
		return store
	}

	store.client = client
	store.enabled = true
	return store
}

// Enabled reports whether writes will actually reach the bucket.
func (s *ObjectStore) Enabled() bool {
	return s != nil && s.enabled
}

// Put uploads one JSON document under the given key.
func (s *ObjectStore) Put(ctx context.Context, key string, data []byte) error {
	if !s.Enabled() {
		return nil
	}
	_, err := s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: "application/json",
	})
	return err
}
