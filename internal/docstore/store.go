package docstore

import (
	"context"
	"io"
)

// Store holds nomination documents (photos, manifestos). Core data only ever
// carries the object key; bytes live here.
type Store interface {
	// Put stores the object under a generated key within the prefix and
	// returns that key.
	Put(ctx context.Context, prefix, filename string, r io.Reader, size int64, contentType string) (key string, err error)

	// URL returns a URL under which the object can be fetched.
	URL(ctx context.Context, key string) (string, error)
}
