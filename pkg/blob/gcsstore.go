package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/rs/zerolog"
)

// GCSStoreConfig holds configuration for the Google Cloud Storage photo store.
type GCSStoreConfig struct {
	BucketName   string
	ObjectPrefix string
	// PublicURLBase overrides the default https://storage.googleapis.com base
	// for direct URLs, e.g. when serving through a CDN.
	PublicURLBase string
}

// GCSStore implements the Store interface on Google Cloud Storage. Uploads
// stream through a counting writer so callers can observe progress; the
// terminal Handle carries both the object path and a direct URL.
type GCSStore struct {
	client GCSClient
	config GCSStoreConfig
	logger zerolog.Logger
}

// NewGCSStore creates a photo store backed by Google Cloud Storage.
func NewGCSStore(gcsClient GCSClient, config GCSStoreConfig, logger zerolog.Logger) (*GCSStore, error) {
	if gcsClient == nil {
		return nil, errors.New("GCS client cannot be nil")
	}
	if config.BucketName == "" {
		return nil, errors.New("GCS bucket name is required")
	}
	if config.PublicURLBase == "" {
		config.PublicURLBase = "https://storage.googleapis.com/" + config.BucketName
	}
	return &GCSStore{
		client: gcsClient,
		config: config,
		logger: logger.With().Str("component", "GCSStore").Logger(),
	}, nil
}

// Upload streams the reader's content to a new GCS object and returns its
// handle. If size is positive and onProgress is non-nil, progress is reported
// as whole percentages; the final 100 is always reported before returning.
func (s *GCSStore) Upload(ctx context.Context, name string, r io.Reader, size int64, onProgress ProgressFunc) (Handle, error) {
	if name == "" {
		return Handle{}, errors.New("object name is required")
	}
	objectPath := path.Join(s.config.ObjectPrefix, name)
	w := s.client.Bucket(s.config.BucketName).Object(objectPath).NewWriter(ctx)

	var dst io.Writer = w
	if onProgress != nil && size > 0 {
		dst = &progressWriter{inner: w, total: size, onProgress: onProgress}
	}

	if _, err := io.Copy(dst, r); err != nil {
		_ = w.Close()
		s.logger.Error().Err(err).Str("object", objectPath).Msg("Failed to stream content to GCS.")
		return Handle{}, fmt.Errorf("gcs upload of %s: %w", objectPath, err)
	}
	if err := w.Close(); err != nil {
		s.logger.Error().Err(err).Str("object", objectPath).Msg("Failed to finalize GCS object.")
		return Handle{}, fmt.Errorf("gcs finalize of %s: %w", objectPath, err)
	}
	if onProgress != nil {
		onProgress(100)
	}

	s.logger.Debug().Str("object", objectPath).Msg("Uploaded photo to GCS.")
	return Handle{
		Object: objectPath,
		URL:    s.config.PublicURLBase + "/" + objectPath,
	}, nil
}

// Bytes fetches an object's full content by its handle.
func (s *GCSStore) Bytes(ctx context.Context, h Handle) ([]byte, error) {
	if h.Object == "" {
		return nil, errors.New("handle has no object path")
	}
	r, err := s.client.Bucket(s.config.BucketName).Object(h.Object).NewReader(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs open of %s: %w", h.Object, err)
	}
	defer func() {
		_ = r.Close()
	}()
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("gcs read of %s: %w", h.Object, err)
	}
	return data, nil
}

// Close is a no-op; the underlying client's lifecycle is managed externally.
func (s *GCSStore) Close() error {
	return nil
}

// progressWriter reports whole-percentage progress as bytes pass through.
// It never reports 100 itself; the caller does that after a successful close.
type progressWriter struct {
	inner      io.Writer
	total      int64
	written    int64
	lastPct    int
	onProgress ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.inner.Write(b)
	p.written += int64(n)
	pct := int(p.written * 100 / p.total)
	if pct > 99 {
		pct = 99
	}
	if pct > p.lastPct {
		p.lastPct = pct
		p.onProgress(pct)
	}
	return n, err
}
