package zipengine

import (
	"encoding/binary"
	"time"
)

// Byte layout constants from APPNOTE 6.3.x. The codec always emits the
// ZIP64 extra for per-entry sizes and offsets; it never tries the
// "only when oversized" optimization some zip writers use, because a
// range-streamed archive's layout must be fixed before any byte is
// written, and a uniform encoding keeps the layout planner's first pass
// exact instead of needing a second pass once true sizes are known.
const (
	versionZip64 = 45

	sigLocalFileHeader  = 0x04034b50
	sigCentralDirectory = 0x02014b50
	sigZip64EOCDRecord  = 0x06064b50
	sigZip64EOCDLocator = 0x07064b50
	sigEOCDRecord       = 0x06054b50

	zip64ExtraHeaderID = 0x0001

	sentinel32 = 0xFFFFFFFF
	sentinel16 = 0xFFFF
)

// dosDateTime converts a UTC instant into the MS-DOS date/time pair used
// throughout the ZIP format. Seconds are truncated to an even number, per
// the two-second resolution of the DOS time field.
func dosDateTime(t time.Time) (date uint16, timeField uint16) {
	t = t.UTC()
	year := t.Year() - 1980
	if year < 0 {
		year = 0
	}
	date = uint16(t.Day()) | uint16(t.Month())<<5 | uint16(year)<<9
	timeField = uint16(t.Second()/2) | uint16(t.Minute())<<5 | uint16(t.Hour())<<11
	return date, timeField
}

func isNonASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return true
		}
	}
	return false
}

func generalPurposeFlag(archiveName string) uint16 {
	if isNonASCII(archiveName) {
		return 1 << 11
	}
	return 0
}

// localFileHeader encodes the local file header that precedes a member's
// data, including its fixed-length ZIP64 extra field.
func localFileHeader(e Entry) []byte {
	name := []byte(e.ArchiveName)
	date, timeField := dosDateTime(e.LastModified)

	buf := make([]byte, 30+len(name)+20)
	binary.LittleEndian.PutUint32(buf[0:], sigLocalFileHeader)
	binary.LittleEndian.PutUint16(buf[4:], versionZip64)
	binary.LittleEndian.PutUint16(buf[6:], generalPurposeFlag(e.ArchiveName))
	binary.LittleEndian.PutUint16(buf[8:], 0) // compression method: STORED
	binary.LittleEndian.PutUint16(buf[10:], timeField)
	binary.LittleEndian.PutUint16(buf[12:], date)
	binary.LittleEndian.PutUint32(buf[14:], e.CRC32)
	binary.LittleEndian.PutUint32(buf[18:], sentinel32) // compressed size
	binary.LittleEndian.PutUint32(buf[22:], sentinel32)  // uncompressed size
	binary.LittleEndian.PutUint16(buf[26:], uint16(len(name)))
	binary.LittleEndian.PutUint16(buf[28:], 20) // extra field length

	off := 30
	copy(buf[off:], name)
	off += len(name)

	binary.LittleEndian.PutUint16(buf[off:], zip64ExtraHeaderID)
	binary.LittleEndian.PutUint16(buf[off+2:], 16)
	binary.LittleEndian.PutUint64(buf[off+4:], e.Length)  // uncompressed size
	binary.LittleEndian.PutUint64(buf[off+12:], e.Length) // compressed size

	return buf
}

// centralDirectoryEntry encodes a member's central directory record,
// including the local header offset, with a ZIP64 extra carrying the
// uncompressed size, compressed size, and local header offset in that
// order.
func centralDirectoryEntry(e Entry, localHeaderOffset uint64) []byte {
	name := []byte(e.ArchiveName)
	date, timeField := dosDateTime(e.LastModified)

	buf := make([]byte, 46+len(name)+28)
	binary.LittleEndian.PutUint32(buf[0:], sigCentralDirectory)
	binary.LittleEndian.PutUint16(buf[4:], versionZip64) // version made by (host = 0, FAT)
	binary.LittleEndian.PutUint16(buf[6:], versionZip64) // version needed to extract
	binary.LittleEndian.PutUint16(buf[8:], generalPurposeFlag(e.ArchiveName))
	binary.LittleEndian.PutUint16(buf[10:], 0) // compression method: STORED
	binary.LittleEndian.PutUint16(buf[12:], timeField)
	binary.LittleEndian.PutUint16(buf[14:], date)
	binary.LittleEndian.PutUint32(buf[16:], e.CRC32)
	binary.LittleEndian.PutUint32(buf[20:], sentinel32) // compressed size
	binary.LittleEndian.PutUint32(buf[24:], sentinel32) // uncompressed size
	binary.LittleEndian.PutUint16(buf[28:], uint16(len(name)))
	binary.LittleEndian.PutUint16(buf[30:], 28) // extra field length
	binary.LittleEndian.PutUint16(buf[32:], 0)  // file comment length
	binary.LittleEndian.PutUint16(buf[34:], 0)  // disk number start
	binary.LittleEndian.PutUint16(buf[36:], 0)  // internal file attributes
	binary.LittleEndian.PutUint32(buf[38:], 0)  // external file attributes
	binary.LittleEndian.PutUint32(buf[42:], sentinel32) // local header offset

	off := 46
	copy(buf[off:], name)
	off += len(name)

	binary.LittleEndian.PutUint16(buf[off:], zip64ExtraHeaderID)
	binary.LittleEndian.PutUint16(buf[off+2:], 24)
	binary.LittleEndian.PutUint64(buf[off+4:], e.Length)         // uncompressed size
	binary.LittleEndian.PutUint64(buf[off+12:], e.Length)        // compressed size
	binary.LittleEndian.PutUint64(buf[off+20:], localHeaderOffset)

	return buf
}

// eocdTrio encodes the ZIP64 end-of-central-directory record, the ZIP64
// end-of-central-directory locator, and the classic end-of-central-
// directory record, concatenated in that order. The ZIP64 record and
// locator are always present; the classic record carries real values in
// its 16/32-bit fields whenever they fit, falling back to the sentinel
// only for the fields that don't, so that tools reading only the classic
// record still see accurate counts for small archives.
func eocdTrio(centralDirectoryOffset, centralDirectoryLength, numEntries uint64) []byte {
	zip64EOCDOffset := centralDirectoryOffset + centralDirectoryLength

	buf := make([]byte, 56+20+22)

	// ZIP64 end of central directory record.
	binary.LittleEndian.PutUint32(buf[0:], sigZip64EOCDRecord)
	binary.LittleEndian.PutUint64(buf[4:], 56-12) // size of remainder of this record
	binary.LittleEndian.PutUint16(buf[12:], versionZip64)
	binary.LittleEndian.PutUint16(buf[14:], versionZip64)
	binary.LittleEndian.PutUint32(buf[16:], 0) // number of this disk
	binary.LittleEndian.PutUint32(buf[20:], 0) // disk with start of central directory
	binary.LittleEndian.PutUint64(buf[24:], numEntries)
	binary.LittleEndian.PutUint64(buf[32:], numEntries)
	binary.LittleEndian.PutUint64(buf[40:], centralDirectoryLength)
	binary.LittleEndian.PutUint64(buf[48:], centralDirectoryOffset)

	// ZIP64 end of central directory locator.
	binary.LittleEndian.PutUint32(buf[56:], sigZip64EOCDLocator)
	binary.LittleEndian.PutUint32(buf[60:], 0)
	binary.LittleEndian.PutUint64(buf[64:], zip64EOCDOffset)
	binary.LittleEndian.PutUint32(buf[72:], 1)

	// End of central directory record.
	entries16 := uint16(sentinel16)
	if numEntries < sentinel16 {
		entries16 = uint16(numEntries)
	}
	cdLength32 := uint32(sentinel32)
	if centralDirectoryLength < sentinel32 {
		cdLength32 = uint32(centralDirectoryLength)
	}
	cdOffset32 := uint32(sentinel32)
	if centralDirectoryOffset < sentinel32 {
		cdOffset32 = uint32(centralDirectoryOffset)
	}

	eocd := buf[76:]
	binary.LittleEndian.PutUint32(eocd[0:], sigEOCDRecord)
	binary.LittleEndian.PutUint16(eocd[4:], 0)
	binary.LittleEndian.PutUint16(eocd[6:], 0)
	binary.LittleEndian.PutUint16(eocd[8:], entries16)
	binary.LittleEndian.PutUint16(eocd[10:], entries16)
	binary.LittleEndian.PutUint32(eocd[12:], cdLength32)
	binary.LittleEndian.PutUint32(eocd[16:], cdOffset32)
	binary.LittleEndian.PutUint16(eocd[20:], 0) // comment length

	return buf
}
