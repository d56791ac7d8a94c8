package zipengine

import "errors"

// Error kinds from the engine's error taxonomy. Handlers match against
// these with errors.Is and translate to HTTP status codes; they are never
// returned bare, always wrapped with context via fmt.Errorf's %w.
var (
	// ErrManifestInvalid covers a manifest that failed to parse or that
	// violates a layout constraint (oversize filename, too many entries).
	// It is always surfaced before any response bytes are written.
	ErrManifestInvalid = errors.New("zipengine: manifest invalid")

	// ErrPlanOverflow means the archive's total length would exceed the
	// host's signed 64-bit address space.
	ErrPlanOverflow = errors.New("zipengine: plan exceeds addressable length")

	// ErrFetchFatal means a blob-store read failed in a way the fetcher's
	// retry policy does not cover: a 404 for a listed object, exhausted
	// retries, or a byte-count mismatch against the manifest's declared
	// length. The stream is truncated when this occurs mid-response.
	ErrFetchFatal = errors.New("zipengine: blob fetch failed")
)
