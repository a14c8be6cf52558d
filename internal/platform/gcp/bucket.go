package gcp

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"github.com/avast/retry-go/v4"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	apperr "github.com/yungbote/studydeck-backend/internal/pkg/errors"
	"github.com/yungbote/studydeck-backend/internal/pkg/logger"
)

type StorageMode string

const (
	StorageModeGCS         StorageMode = "gcs"
	StorageModeGCSEmulator StorageMode = "gcs_emulator"
)

type BucketConfig struct {
	Mode            StorageMode
	Bucket          string
	CredentialsFile string
	EmulatorHost    string
	// Attempts bounds retries of transient write/read failures.
	Attempts uint
}

// BucketStore keeps uploaded documents in a single GCS bucket.
type BucketStore struct {
	log    *logger.Logger
	client *storage.Client
	bucket string
	opts   []retry.Option
}

func NewBucketStore(ctx context.Context, log *logger.Logger, cfg BucketConfig) (*BucketStore, error) {
	serviceLog := log.With("service", "BucketStore")
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("missing storage bucket name")
	}
	client, err := newStorageClient(ctx, serviceLog, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}
	attempts := cfg.Attempts
	if attempts == 0 {
		attempts = 3
	}
	return &BucketStore{
		log:    serviceLog,
		client: client,
		bucket: cfg.Bucket,
		opts: []retry.Option{
			retry.Attempts(attempts),
			retry.Delay(200 * time.Millisecond),
			retry.DelayType(retry.BackOffDelay),
			retry.LastErrorOnly(true),
			retry.RetryIf(func(err error) bool {
				return !errors.Is(err, storage.ErrObjectNotExist) && !errors.Is(err, context.Canceled)
			}),
		},
	}, nil
}

func newStorageClient(ctx context.Context, log *logger.Logger, cfg BucketConfig) (*storage.Client, error) {
	switch cfg.Mode {
	case "", StorageModeGCS:
		opts := []option.ClientOption{option.WithScopes(storage.ScopeReadWrite)}
		if path := strings.TrimSpace(cfg.CredentialsFile); path != "" {
			opts = append(opts, option.WithCredentialsFile(path))
		} else {
			log.Warn("no credentials file configured; relying on application default credentials")
		}
		return storage.NewClient(ctx, opts...)
	case StorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(cfg.EmulatorHost), "/")
		if endpoint == "" {
			return nil, fmt.Errorf("emulator mode requires an emulator host")
		}
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("unsupported storage mode %q", cfg.Mode)
	}
}

// Put buffers body so a failed attempt can be replayed.
func (s *BucketStore) Put(ctx context.Context, key string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read upload body: %w", err)
	}
	return retry.Do(func() error {
		wctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		w := s.client.Bucket(s.bucket).Object(key).NewWriter(wctx)
		if _, err := w.Write(data); err != nil {
			_ = w.Close()
			return fmt.Errorf("write object %q: %w", key, err)
		}
		if err := w.Close(); err != nil {
			return fmt.Errorf("close object writer %q: %w", key, err)
		}
		return nil
	}, s.retryOpts(ctx, retry.OnRetry(func(n uint, err error) {
		s.log.Warn("retrying object upload", "key", key, "attempt", n+1, "error", err)
	}))...)
}

func (s *BucketStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	var rc io.ReadCloser
	err := retry.Do(func() error {
		r, err := s.client.Bucket(s.bucket).Object(key).NewReader(ctx)
		if err != nil {
			return err
		}
		rc = r
		return nil
	}, s.retryOpts(ctx)...)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, fmt.Errorf("object %q: %w", key, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("open object %q: %w", key, err)
	}
	return rc, nil
}

func (s *BucketStore) Delete(ctx context.Context, key string) error {
	dctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	err := s.client.Bucket(s.bucket).Object(key).Delete(dctx)
	if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
		return fmt.Errorf("delete object %q: %w", key, err)
	}
	return nil
}

func (s *BucketStore) List(ctx context.Context, prefix string) ([]string, error) {
	lctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := s.client.Bucket(s.bucket).Objects(lctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (s *BucketStore) retryOpts(ctx context.Context, extra ...retry.Option) []retry.Option {
	out := make([]retry.Option, 0, len(s.opts)+len(extra)+1)
	out = append(out, s.opts...)
	out = append(out, retry.Context(ctx))
	return append(out, extra...)
}

func (s *BucketStore) Close() error {
	return s.client.Close()
}
