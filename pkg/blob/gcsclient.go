package blob

import (
	"context"
	"io"

	"cloud.google.com/go/storage"
)

// The photo store touches a deliberately small slice of the Cloud Storage
// surface: resolve a bucket, resolve an object, stream it in or out. These
// interfaces capture exactly that slice so GCSStore can be unit tested
// against in-memory doubles.

// GCSClient abstracts the top-level *storage.Client.
type GCSClient interface {
	Bucket(name string) GCSBucketHandle
}

// GCSBucketHandle abstracts a *storage.BucketHandle.
type GCSBucketHandle interface {
	Object(name string) GCSObjectHandle
}

// GCSObjectHandle abstracts a *storage.ObjectHandle. Writers commit the
// object on Close; a write error followed by Close leaves no object behind.
type GCSObjectHandle interface {
	NewWriter(ctx context.Context) io.WriteCloser
	NewReader(ctx context.Context) (io.ReadCloser, error)
}

// NewGCSClientAdapter wraps a concrete *storage.Client so it satisfies
// GCSClient. A nil client yields a nil adapter, which NewGCSStore rejects.
func NewGCSClientAdapter(client *storage.Client) GCSClient {
	if client == nil {
		return nil
	}
	return &storageClientAdapter{client: client}
}

type storageClientAdapter struct {
	client *storage.Client
}

func (a *storageClientAdapter) Bucket(name string) GCSBucketHandle {
	return &storageBucketAdapter{handle: a.client.Bucket(name)}
}

type storageBucketAdapter struct {
	handle *storage.BucketHandle
}

func (a *storageBucketAdapter) Object(name string) GCSObjectHandle {
	return &storageObjectAdapter{handle: a.handle.Object(name)}
}

type storageObjectAdapter struct {
	handle *storage.ObjectHandle
}

func (a *storageObjectAdapter) NewWriter(ctx context.Context) io.WriteCloser {
	return a.handle.NewWriter(ctx)
}

func (a *storageObjectAdapter) NewReader(ctx context.Context) (io.ReadCloser, error) {
	return a.handle.NewReader(ctx)
}
