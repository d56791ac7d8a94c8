package zipengine

import "fmt"

// Range is a half-open byte interval [Start, End) over the virtual
// archive.
type Range struct {
	Start uint64
	End   uint64
}

// Len returns the number of bytes the range covers.
func (r Range) Len() uint64 { return r.End - r.Start }

// SliceKind distinguishes the two kinds of Slice.
type SliceKind int

const (
	// SliceMeta is a sub-slice of a precomputed metadata blob (a local
	// header, the central directory, or the EOCD trio).
	SliceMeta SliceKind = iota

	// SliceData is a byte range within a member's payload, to be read
	// from the blob store.
	SliceData
)

// Slice is one contiguous region of the requested interval: either bytes
// already in hand (SliceMeta) or a range to fetch from a blob (SliceData).
type Slice struct {
	Kind SliceKind

	// Meta holds the exact output bytes, already sliced, for SliceMeta.
	Meta []byte

	// Source, MemberStart, and MemberEnd describe a SliceData slice: the
	// half-open byte range [MemberStart, MemberEnd) within the member
	// identified by Source.
	Source      string
	MemberStart uint64
	MemberEnd   uint64
}

// region is one contiguous piece of the virtual archive's address space,
// in the order the address space is laid out: every member's local
// header followed by its data, then the central directory, then the EOCD
// trio.
type region struct {
	length uint64
	meta   []byte // non-nil for a metadata region
	source string // non-empty for a data region
}

func (p *Plan) regions() []region {
	regions := make([]region, 0, len(p.members)*2+2)
	for _, mem := range p.members {
		regions = append(regions, region{length: uint64(len(mem.encodedLocalHeader)), meta: mem.encodedLocalHeader})
		if mem.entry.Length > 0 {
			regions = append(regions, region{length: mem.entry.Length, source: mem.entry.Source})
		}
	}
	if len(p.centralDirectoryBytes) > 0 {
		regions = append(regions, region{length: uint64(len(p.centralDirectoryBytes)), meta: p.centralDirectoryBytes})
	}
	regions = append(regions, region{length: uint64(len(p.eocdBytes)), meta: p.eocdBytes})
	return regions
}

// Resolve walks the plan's virtual address space and returns the ordered
// list of slices whose concatenation equals the bytes in rng. Resolve is a
// pure function of (p, rng); the same inputs always produce the same
// slices.
func Resolve(p *Plan, rng Range) ([]Slice, error) {
	if rng.Start > rng.End || rng.End > p.totalLength {
		return nil, fmt.Errorf("range [%d, %d) outside [0, %d)", rng.Start, rng.End, p.totalLength)
	}
	if rng.Start == rng.End {
		return nil, nil
	}

	var slices []Slice
	var cursor uint64

	for _, reg := range p.regions() {
		regionStart := cursor
		regionEnd := cursor + reg.length
		cursor = regionEnd

		if regionEnd <= rng.Start {
			continue
		}
		if regionStart >= rng.End {
			break
		}

		lo := max64(regionStart, rng.Start)
		hi := min64(regionEnd, rng.End)
		if lo >= hi {
			continue
		}

		relStart := lo - regionStart
		relEnd := hi - regionStart

		if reg.meta != nil {
			slices = append(slices, Slice{Kind: SliceMeta, Meta: reg.meta[relStart:relEnd]})
		} else {
			slices = append(slices, Slice{
				Kind:        SliceData,
				Source:      reg.source,
				MemberStart: relStart,
				MemberEnd:   relEnd,
			})
		}
	}

	return slices, nil
}

func max64(a, b uint64) uint64 {
	if a > b {
		return a
	}
	return b
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
