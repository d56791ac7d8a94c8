// Package streamhttp parses HTTP Range requests and writes the headers
// and status line for a range-capable response over an archive of known
// total length.
package streamhttp

import (
	"errors"
	"strconv"
	"strings"

	"zipstream/internal/zipengine"
)

// ErrInvalidRange means the Range header's unit or number syntax was
// malformed; callers respond 400 for it. A range that parses but falls
// outside the resource, or that names multiple ranges, is not an error:
// ParseRange returns (Range{}, false, nil) and the caller serves the full
// resource, per the resolution documented for unsatisfiable ranges.
var ErrInvalidRange = errors.New("streamhttp: invalid range header")

// ParseRange parses a Range header value ("bytes=...") against a resource
// of the given total length. It returns (range, true, nil) for a
// satisfiable single range, (Range{}, false, nil) for a missing, multi-
// range, or out-of-bounds request (serve the full resource instead), and
// a non-nil error only for a header that is syntactically invalid.
func ParseRange(headerVal string, totalLen uint64) (zipengine.Range, bool, error) {
	if headerVal == "" {
		return zipengine.Range{}, false, nil
	}
	if !strings.HasPrefix(headerVal, "bytes=") {
		return zipengine.Range{}, false, ErrInvalidRange
	}

	spec := strings.TrimSpace(headerVal[len("bytes="):])
	if strings.Contains(spec, ",") {
		// Multiple ranges are legal syntax but unsupported; treat as if
		// no Range header were sent at all.
		return zipengine.Range{}, false, nil
	}

	switch {
	case strings.HasPrefix(spec, "-"):
		n, err := strconv.ParseUint(spec[1:], 10, 64)
		if err != nil {
			return zipengine.Range{}, false, ErrInvalidRange
		}
		if n >= totalLen {
			return zipengine.Range{}, false, nil
		}
		return zipengine.Range{Start: totalLen - n, End: totalLen}, true, nil

	case strings.HasSuffix(spec, "-"):
		n, err := strconv.ParseUint(spec[:len(spec)-1], 10, 64)
		if err != nil {
			return zipengine.Range{}, false, ErrInvalidRange
		}
		if n >= totalLen {
			return zipengine.Range{}, false, nil
		}
		return zipengine.Range{Start: n, End: totalLen}, true, nil

	default:
		dash := strings.IndexByte(spec, '-')
		if dash < 0 {
			return zipengine.Range{}, false, ErrInvalidRange
		}
		start, err := strconv.ParseUint(spec[:dash], 10, 64)
		if err != nil {
			return zipengine.Range{}, false, ErrInvalidRange
		}
		end, err := strconv.ParseUint(spec[dash+1:], 10, 64)
		if err != nil {
			return zipengine.Range{}, false, ErrInvalidRange
		}
		if end >= totalLen || start > end {
			return zipengine.Range{}, false, nil
		}
		return zipengine.Range{Start: start, End: end + 1}, true, nil
	}
}
