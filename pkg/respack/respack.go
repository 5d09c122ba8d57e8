// Package respack provides reading functionality for id-engine style
// .index / .resources archive pairs.
package respack

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// headerTableOffset is where the entry count starts inside the .index file.
// The preamble before it is preserved but not interpreted.
const headerTableOffset = 0x24

// auxRecordSize is the size of one opaque per-entry aux record.
const auxRecordSize = 0x18

// auxTrailerSize is the padding that follows the aux record block.
const auxTrailerSize = 5

// Archive errors.
var (
	// ErrMalformedIndex indicates an index whose header or entry table is
	// inconsistent with the file size. Fatal for that archive only.
	ErrMalformedIndex = errors.New("respack: malformed index")

	// ErrMissingResourceFile indicates an entry referencing a numbered
	// resource file that is not present on disk.
	ErrMissingResourceFile = errors.New("respack: missing resource file")

	// ErrOutOfRange indicates an entry whose byte range exceeds the length
	// of its resource file.
	ErrOutOfRange = errors.New("respack: entry range exceeds resource file")
)

// Kind classifies an entry by its type tag for decoder dispatch.
type Kind int

const (
	// KindUnknown covers every tag without a dedicated decoder. Unknown
	// entries are still extracted as raw byte dumps.
	KindUnknown Kind = iota
	KindModel
	KindStaticModel
	KindImage
	KindTileIndex
	KindSound
)

// String returns a short directory-friendly name for the kind.
func (k Kind) String() string {
	switch k {
	case KindModel:
		return "model"
	case KindStaticModel:
		return "staticmodel"
	case KindImage:
		return "image"
	case KindTileIndex:
		return "tileindex"
	case KindSound:
		return "sound"
	default:
		return "unknown"
	}
}

// kindByTag maps index type tags to decoder kinds. New tags are added as
// table entries; anything not listed stays KindUnknown.
var kindByTag = map[string]Kind{
	"model":      KindModel,
	"baseModel":  KindModel,
	"bmodel":     KindStaticModel,
	"image":      KindImage,
	"idxma":      KindTileIndex,
	"sample":     KindSound,
	"streamed":   KindSound,
	"soundClass": KindSound,
}

// kindByExt backs up the tag table using the entry name extension.
var kindByExt = map[string]Kind{
	".bmd6model": KindModel,
	".bmodel":    KindStaticModel,
	".bimage":    KindImage,
	".idxma":     KindTileIndex,
	".wav":       KindSound,
	".ogg":       KindSound,
	".msadpcm":   KindSound,
}

// AuxRecord is one opaque 24-byte per-entry record from the index table.
// The last eight bytes carry an (offset, size) pair for streamed payloads.
type AuxRecord struct {
	Data [auxRecordSize]byte
}

// Entry represents a single file entry in the archive index.
type Entry struct {
	Type      string // asset type tag
	Source    string // original source path recorded by the build
	Name      string // entry name, unique within the index
	FileIndex uint32 // numbered resource file holding the payload
	Offset    uint64
	Size      uint32 // decompressed size
	ZSize     uint32 // stored size
	Aux       []AuxRecord
}

// Compressed reports whether the payload is a raw deflate stream.
// Stored entries have equal sizes.
func (e *Entry) Compressed() bool { return e.Size != e.ZSize }

// Kind resolves the decoder kind from the type tag, falling back to the
// entry name extension.
func (e *Entry) Kind() Kind {
	if k, ok := kindByTag[e.Type]; ok {
		return k
	}
	if k, ok := kindByExt[strings.ToLower(filepath.Ext(e.Name))]; ok {
		return k
	}
	return KindUnknown
}

// Archive represents a parsed .index file.
type Archive struct {
	path     string
	entries  []*Entry
	byName   map[string]*Entry
	warnings []string
}

// OpenIndex reads and parses an .index file.
func OpenIndex(path string) (*Archive, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading index: %w", err)
	}
	a, err := ParseIndex(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	a.path = path
	return a, nil
}

// ParseIndex parses index table bytes into an Archive.
//
// Unknown type tags are kept (the entry decodes as a raw dump later). A
// table that runs past the end of the buffer stops there: entries parsed
// before the truncation point are kept and the cut is recorded as a
// warning, so a damaged tail never blocks extraction of the rest.
func ParseIndex(data []byte) (*Archive, error) {
	if len(data) < headerTableOffset+8 {
		return nil, fmt.Errorf("%w: %d byte header", ErrMalformedIndex, len(data))
	}

	count := binary.BigEndian.Uint32(data[headerTableOffset:])
	// Four flag bytes follow the count; they are not interpreted.
	off := headerTableOffset + 8

	a := &Archive{
		entries: make([]*Entry, 0, count),
		byName:  make(map[string]*Entry, count),
	}

	fileIndex := uint32(0)
	for i := uint32(0); i < count; i++ {
		e, next, err := parseEntry(data, off, fileIndex)
		if err != nil {
			a.warnings = append(a.warnings, fmt.Sprintf(
				"index table truncated at entry %d of %d; keeping %d entries", i, count, len(a.entries)))
			break
		}
		off = next

		a.entries = append(a.entries, e)
		if _, dup := a.byName[e.Name]; dup {
			a.warnings = append(a.warnings, fmt.Sprintf("duplicate entry name %q", e.Name))
		} else {
			a.byName[e.Name] = e
		}

		// A resource file number trails every entry except the last and
		// applies to the entry after it.
		if i != count-1 {
			if off+4 > len(data) {
				a.warnings = append(a.warnings, fmt.Sprintf(
					"index table truncated at entry %d of %d; keeping %d entries", i+1, count, len(a.entries)))
				break
			}
			fileIndex = binary.BigEndian.Uint32(data[off:])
			off += 4
		}
	}

	a.checkOverlaps()
	return a, nil
}

// parseEntry reads one entry record. A record cut off by the end of the
// buffer fails with ErrMalformedIndex; the caller decides what happens to
// the entries before it.
func parseEntry(data []byte, off int, fileIndex uint32) (*Entry, int, error) {
	e := &Entry{FileIndex: fileIndex}

	var ok bool
	if e.Type, off, ok = readBlob(data, off); !ok {
		return nil, off, ErrMalformedIndex
	}
	if e.Source, off, ok = readBlob(data, off); !ok {
		return nil, off, ErrMalformedIndex
	}
	if e.Name, off, ok = readBlob(data, off); !ok {
		return nil, off, ErrMalformedIndex
	}

	if off+16 > len(data) {
		return nil, off, ErrMalformedIndex
	}
	e.Offset = uint64(binary.BigEndian.Uint32(data[off:]))
	e.Size = binary.BigEndian.Uint32(data[off+4:])
	e.ZSize = binary.BigEndian.Uint32(data[off+8:])
	auxCount := binary.BigEndian.Uint32(data[off+12:])
	off += 16

	auxBytes := int(auxCount) * auxRecordSize
	if auxCount > uint32(len(data)) || off+auxBytes+auxTrailerSize > len(data) {
		return nil, off, ErrMalformedIndex
	}
	e.Aux = make([]AuxRecord, auxCount)
	for j := range e.Aux {
		copy(e.Aux[j].Data[:], data[off+j*auxRecordSize:])
	}
	off += auxBytes + auxTrailerSize

	return e, off, nil
}

// readBlob reads a little-endian length-prefixed string.
func readBlob(data []byte, off int) (string, int, bool) {
	if off+4 > len(data) {
		return "", off, false
	}
	n := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	if n < 0 || off+n > len(data) {
		return "", off, false
	}
	s := strings.TrimRight(string(data[off:off+n]), "\x00")
	return s, off + n, true
}

// checkOverlaps records overlapping byte ranges as warnings. Malformed
// archives with overlapping entries still extract; the warning surfaces in
// the run statistics instead.
func (a *Archive) checkOverlaps() {
	byFile := make(map[uint32][]*Entry)
	for _, e := range a.entries {
		if e.ZSize > 0 {
			byFile[e.FileIndex] = append(byFile[e.FileIndex], e)
		}
	}
	for file, entries := range byFile {
		sort.Slice(entries, func(i, j int) bool { return entries[i].Offset < entries[j].Offset })
		for i := 1; i < len(entries); i++ {
			prev, cur := entries[i-1], entries[i]
			if prev.Offset+uint64(prev.ZSize) > cur.Offset {
				a.warnings = append(a.warnings, fmt.Sprintf(
					"entries %q and %q overlap in resource file %d", prev.Name, cur.Name, file))
			}
		}
	}
}

// Path returns the index file path, if the archive was opened from disk.
func (a *Archive) Path() string { return a.path }

// Entries returns all entries in table order. The slice and the entries it
// points to must be treated as read-only.
func (a *Archive) Entries() []*Entry { return a.entries }

// Lookup returns the entry with the given name.
func (a *Archive) Lookup(name string) (*Entry, bool) {
	e, ok := a.byName[name]
	return e, ok
}

// Len returns the number of entries.
func (a *Archive) Len() int { return len(a.entries) }

// Warnings returns non-fatal inconsistencies found during parsing, such as
// overlapping byte ranges or duplicate names.
func (a *Archive) Warnings() []string { return a.warnings }
