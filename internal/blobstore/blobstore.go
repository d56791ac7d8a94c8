// Package blobstore fetches byte ranges of member data out of a backing
// object store. Callers address objects by an opaque source string (as
// carried on a manifest entry) and ask for a half-open byte range; the
// store is responsible for retrying transient failures transparently.
package blobstore

import (
	"context"
	"errors"
	"io"
)

// Source fetches byte ranges from a backing store. Implementations retry
// transient failures internally; the reader FetchRange returns either
// delivers exactly end-start bytes or ends with a fatal error, which may
// surface from Read rather than from FetchRange itself.
type Source interface {
	// FetchRange returns a reader over the half-open byte range
	// [start, end) of the object identified by key. The caller must
	// Close the returned reader.
	FetchRange(ctx context.Context, key string, start, end uint64) (io.ReadCloser, error)
}

// ErrKeyInvalid means a manifest entry's source string could not be
// parsed into an object reference this store understands.
var ErrKeyInvalid = errors.New("blobstore: invalid source key")
