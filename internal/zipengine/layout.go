package zipengine

import (
	"fmt"
	"math"
)

// memberLayout is the precomputed placement of one manifest entry within
// the virtual archive.
type memberLayout struct {
	entry              Entry
	localHeaderOffset  uint64
	dataOffset         uint64
	encodedLocalHeader []byte
	encodedCDEntry     []byte
}

// Plan is the immutable, precomputed description of a virtual archive's
// byte layout, built once per request from a Manifest. Every offset and
// every metadata byte it holds is final the moment BuildPlan returns.
type Plan struct {
	filename string
	members  []memberLayout

	centralDirectoryOffset uint64
	centralDirectoryBytes  []byte // concatenation of all encoded CD entries, in order
	eocdBytes              []byte
	totalLength            uint64
}

// BuildPlan computes the layout of the archive described by m. It is pure:
// the same manifest always yields a byte-identical plan.
func BuildPlan(m *Manifest) (*Plan, error) {
	if len(m.Entries) > sentinel32 {
		return nil, fmt.Errorf("%w: %d entries exceeds the zip64 entry count limit", ErrManifestInvalid, len(m.Entries))
	}

	members := make([]memberLayout, len(m.Entries))
	var offset uint64

	for i, e := range m.Entries {
		if len(e.ArchiveName) > sentinel16 {
			return nil, fmt.Errorf("%w: entries[%d]: archive_name exceeds %d bytes", ErrManifestInvalid, i, sentinel16)
		}

		localHeaderOffset := offset
		header := localFileHeader(e)
		dataOffset := localHeaderOffset + uint64(len(header))

		next, err := addOffsets(dataOffset, e.Length)
		if err != nil {
			return nil, err
		}

		members[i] = memberLayout{
			entry:              e,
			localHeaderOffset:  localHeaderOffset,
			dataOffset:         dataOffset,
			encodedLocalHeader: header,
			encodedCDEntry:     centralDirectoryEntry(e, localHeaderOffset),
		}
		offset = next
	}

	centralDirectoryOffset := offset
	var cdBytes []byte
	for _, mem := range members {
		cdBytes = append(cdBytes, mem.encodedCDEntry...)
	}
	centralDirectoryLength := uint64(len(cdBytes))

	offset, err := addOffsets(offset, centralDirectoryLength)
	if err != nil {
		return nil, err
	}

	eocd := eocdTrio(centralDirectoryOffset, centralDirectoryLength, uint64(len(members)))
	totalLength, err := addOffsets(offset, uint64(len(eocd)))
	if err != nil {
		return nil, err
	}

	return &Plan{
		filename:               m.Filename,
		members:                members,
		centralDirectoryOffset: centralDirectoryOffset,
		centralDirectoryBytes:  cdBytes,
		eocdBytes:              eocd,
		totalLength:            totalLength,
	}, nil
}

// addOffsets adds two non-negative byte counts, failing with
// ErrPlanOverflow if the result would exceed what a signed 64-bit archive
// offset can address.
func addOffsets(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a || sum > math.MaxInt64 {
		return 0, fmt.Errorf("%w: offset %d + %d overflows", ErrPlanOverflow, a, b)
	}
	return sum, nil
}

// ContentLength is the total archive length in bytes, advertised as the
// response's Content-Length.
func (p *Plan) ContentLength() uint64 { return p.totalLength }

// Filename is the manifest's requested download name.
func (p *Plan) Filename() string { return p.filename }

// NumEntries returns the number of members in the plan.
func (p *Plan) NumEntries() int { return len(p.members) }
