package blob

import (
	"context"
	"io"
)

// ====================================================================================
// Photos are stored outside the record model. A listing only ever carries a
// Handle: an opaque reference to binary content held by an external store.
// The cache layer neither creates nor inspects handles; it passes them
// through between the upload collaborator and the backend.
// ====================================================================================

// Handle is an opaque reference to one stored photo. It is a plain value so
// it can live inside record snapshots and survive serialization.
type Handle struct {
	// Object is the store-side path of the content, empty for handles built
	// directly from a URL.
	Object string `json:"object" firestore:"object"`
	// URL is a direct, publicly resolvable location for the bytes.
	URL string `json:"url" firestore:"url"`
}

// FromURL builds a Handle for content that already lives at a known URL.
func FromURL(url string) Handle {
	return Handle{URL: url}
}

// DirectURL returns the publicly resolvable location of the content.
func (h Handle) DirectURL() string {
	return h.URL
}

// IsZero reports whether the handle references nothing.
func (h Handle) IsZero() bool {
	return h.Object == "" && h.URL == ""
}

// ProgressFunc receives upload progress as a 0-100 percentage. Implementations
// of Store call it from the uploading goroutine; the final call is always 100,
// made before Upload returns. A nil ProgressFunc disables reporting.
type ProgressFunc func(percent int)

// Store is the contract for the external photo store. Upload streams the
// content and resolves to the terminal Handle; Bytes fetches content back by
// its handle. Both are fallible and respect context cancellation.
type Store interface {
	Upload(ctx context.Context, name string, r io.Reader, size int64, onProgress ProgressFunc) (Handle, error)
	Bytes(ctx context.Context, h Handle) ([]byte, error)
	io.Closer
}
