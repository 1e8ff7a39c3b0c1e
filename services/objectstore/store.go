// Package objectstore uploads media to an S3-compatible bucket.
package objectstore

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/jpillora/backoff"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/pkg/errors"

	"github.com/trezcool/khidmat/core"
	"github.com/trezcool/khidmat/core/media"
)

const (
	maxAttempts  = 3
	cacheControl = "public, max-age=31536000, immutable"
)

var ErrNotConfigured = errors.New("object storage is not configured")

// AttemptObserver is told the outcome ("ok", "retry", "failed") of every upload attempt.
type AttemptObserver interface {
	UploadAttempt(outcome string)
}

type putter interface {
	PutObject(ctx context.Context, bucket, key string, r io.Reader, size int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

type Store struct {
	client        putter
	minio         *minio.Client
	bucket        string
	publicBaseURL string
	logger        core.Logger
	observer      AttemptObserver

	minWait, maxWait time.Duration
}

var _ media.Uploader = (*Store)(nil)

// NewStore connects to the configured endpoint. With no endpoint, uploads fail with ErrNotConfigured.
func NewStore(conf *core.Config, logger core.Logger, observer AttemptObserver) (*Store, error) {
	sc := conf.Storage
	store := &Store{
		bucket:        sc.Bucket,
		publicBaseURL: sc.PublicBaseURL,
		logger:        logger,
		observer:      observer,
		minWait:       200 * time.Millisecond,
		maxWait:       2 * time.Second,
	}
	if sc.Endpoint == "" {
		return store, nil
	}

	client, err := minio.New(sc.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(sc.AccessKey, sc.SecretKey, ""),
		Secure: sc.UseSSL,
		Region: sc.Region,
	})
	if err != nil {
		return nil, errors.Wrap(err, "creating s3 client")
	}
	store.client = client
	store.minio = client
	return store, nil
}

// EnsureBucket creates the bucket if it does not exist yet.
func (s *Store) EnsureBucket(ctx context.Context, region string) error {
	if s.minio == nil {
		return nil
	}
	exists, err := s.minio.BucketExists(ctx, s.bucket)
	if err != nil {
		return errors.Wrapf(err, "checking bucket %s", s.bucket)
	}
	if exists {
		return nil
	}
	return errors.Wrapf(s.minio.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: region}), "creating bucket %s", s.bucket)
}

// Upload puts the object, retrying up to 3 attempts with jittered exponential backoff.
// body is rewound before every attempt.
func (s *Store) Upload(ctx context.Context, key string, body io.ReadSeeker, size int64, contentType string) (string, error) {
	if s.client == nil {
		return "", ErrNotConfigured
	}

	b := &backoff.Backoff{Min: s.minWait, Max: s.maxWait, Factor: 2, Jitter: true}
	opts := minio.PutObjectOptions{ContentType: contentType, CacheControl: cacheControl}

	for {
		if _, err := body.Seek(0, io.SeekStart); err != nil {
			return "", errors.Wrap(err, "rewinding upload body")
		}
		_, err := s.client.PutObject(ctx, s.bucket, key, body, size, opts)
		if err == nil {
			s.observe("ok")
			return s.URL(key), nil
		}

		attempt := int(b.Attempt()) + 1
		if attempt >= maxAttempts || ctx.Err() != nil {
			s.observe("failed")
			return "", errors.Wrapf(err, "uploading %s (%d attempts)", key, attempt)
		}
		s.observe("retry")

		wait := b.Duration()
		s.logger.Warn(fmt.Sprintf("upload of %s failed on attempt %d of %d, retrying in %s", key, attempt, maxAttempts, wait), err)

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.observe("failed")
			return "", errors.Wrapf(ctx.Err(), "uploading %s", key)
		case <-timer.C:
		}
	}
}

// URL returns the public URL of `key`.
func (s *Store) URL(key string) string {
	return s.publicBaseURL + "/" + key
}

func (s *Store) observe(outcome string) {
	if s.observer != nil {
		s.observer.UploadAttempt(outcome)
	}
}
