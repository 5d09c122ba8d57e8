// IDXMA virtual texture tile index parser. The index maps
// (mip, tileX, tileY) coordinates to byte ranges inside numbered
// streamed resource files; payload retrieval goes through a RangeReader
// so the caller decides which file set backs it.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
)

// Tile index errors.
var (
	ErrInvalidTileMagic   = errors.New("invalid tile index magic: expected 'IDXM'")
	ErrTruncatedTileIndex = errors.New("truncated tile index")
	ErrDuplicateTile      = errors.New("duplicate tile coordinate")
	ErrTileNotFound       = errors.New("tile not found")
)

const (
	tileHeaderSize = 12
	tileRecordSize = 20
)

// RangeReader resolves a byte range inside a numbered resource file.
// *respack.ResourceSet satisfies it.
type RangeReader interface {
	ReadRange(fileIndex uint32, offset uint64, size uint32) ([]byte, error)
}

// TileRecord locates one tile payload.
type TileRecord struct {
	Mip       uint16
	X, Y      uint16
	FileIndex uint16
	Offset    uint64
	Size      uint32
}

// TileGap reports a mip level whose tile grid is incomplete. Gaps are
// statistics, not errors; lookup of the present tiles still works.
type TileGap struct {
	Mip      uint16
	Present  int
	Expected int
}

type tileKey struct {
	mip, x, y uint16
}

// TileIndex is a parsed tile index table.
type TileIndex struct {
	Version  uint32
	Tiles    []TileRecord
	byKey    map[tileKey]*TileRecord
	warnings []string
}

// ParseTileIndex parses tile index bytes. Duplicate coordinates make
// the whole table untrustworthy and fail the parse; overlapping byte
// ranges only produce warnings.
func ParseTileIndex(data []byte) (*TileIndex, error) {
	if len(data) < tileHeaderSize {
		return nil, ErrTruncatedTileIndex
	}
	if !bytes.Equal(data[:4], []byte("IDXM")) {
		return nil, ErrInvalidTileMagic
	}

	t := &TileIndex{
		Version: binary.BigEndian.Uint32(data[4:]),
	}
	count := int(binary.BigEndian.Uint32(data[8:]))

	if tileHeaderSize+count*tileRecordSize > len(data) {
		return nil, fmt.Errorf("%w: %d records declared", ErrTruncatedTileIndex, count)
	}

	t.Tiles = make([]TileRecord, count)
	t.byKey = make(map[tileKey]*TileRecord, count)
	for i := range t.Tiles {
		rec := &t.Tiles[i]
		off := tileHeaderSize + i*tileRecordSize
		rec.Mip = binary.BigEndian.Uint16(data[off:])
		rec.X = binary.BigEndian.Uint16(data[off+2:])
		rec.Y = binary.BigEndian.Uint16(data[off+4:])
		rec.FileIndex = binary.BigEndian.Uint16(data[off+6:])
		rec.Offset = binary.BigEndian.Uint64(data[off+8:])
		rec.Size = binary.BigEndian.Uint32(data[off+16:])

		key := tileKey{rec.Mip, rec.X, rec.Y}
		if _, dup := t.byKey[key]; dup {
			return nil, fmt.Errorf("%w: mip %d (%d,%d)", ErrDuplicateTile, rec.Mip, rec.X, rec.Y)
		}
		t.byKey[key] = rec
	}

	t.checkOverlaps()
	return t, nil
}

// Lookup returns the record for one tile coordinate.
func (t *TileIndex) Lookup(mip, x, y uint16) (*TileRecord, bool) {
	rec, ok := t.byKey[tileKey{mip, x, y}]
	return rec, ok
}

// ExtractTile resolves a tile's byte range through the reader.
func (t *TileIndex) ExtractTile(r RangeReader, mip, x, y uint16) ([]byte, error) {
	rec, ok := t.Lookup(mip, x, y)
	if !ok {
		return nil, fmt.Errorf("%w: mip %d (%d,%d)", ErrTileNotFound, mip, x, y)
	}
	return r.ReadRange(uint32(rec.FileIndex), rec.Offset, rec.Size)
}

// Len returns the number of tiles in the index.
func (t *TileIndex) Len() int { return len(t.Tiles) }

// Warnings returns non-fatal findings recorded during parsing.
func (t *TileIndex) Warnings() []string { return t.warnings }

// Gaps reports incomplete mip levels. The expected grid per mip is
// derived from mip 0's extent, halving per level down to a single tile;
// a mip with fewer tiles than its grid (or none at all, when deeper
// levels exist in the pyramid) counts as one gap.
func (t *TileIndex) Gaps() []TileGap {
	if len(t.Tiles) == 0 {
		return nil
	}

	// Extent of mip 0 and the deepest mip actually present.
	var w0, h0 int
	maxMip := uint16(0)
	perMip := make(map[uint16]int)
	for i := range t.Tiles {
		rec := &t.Tiles[i]
		perMip[rec.Mip]++
		if rec.Mip == 0 {
			if int(rec.X)+1 > w0 {
				w0 = int(rec.X) + 1
			}
			if int(rec.Y)+1 > h0 {
				h0 = int(rec.Y) + 1
			}
		}
		if rec.Mip > maxMip {
			maxMip = rec.Mip
		}
	}
	if w0 == 0 || h0 == 0 {
		return nil // no mip 0, extent unknown
	}

	// Pyramid depth: halve until 1x1.
	depth := uint16(0)
	for w, h := w0, h0; w > 1 || h > 1; depth++ {
		w, h = (w+1)/2, (h+1)/2
	}
	if maxMip > depth {
		depth = maxMip
	}

	var gaps []TileGap
	w, h := w0, h0
	for mip := uint16(0); mip <= depth; mip++ {
		expected := w * h
		if present := perMip[mip]; present < expected {
			gaps = append(gaps, TileGap{Mip: mip, Present: present, Expected: expected})
		}
		w, h = (w+1)/2, (h+1)/2
	}
	return gaps
}

// checkOverlaps records overlapping byte ranges within one streamed
// file as warnings.
func (t *TileIndex) checkOverlaps() {
	byFile := make(map[uint16][]*TileRecord)
	for i := range t.Tiles {
		if t.Tiles[i].Size > 0 {
			byFile[t.Tiles[i].FileIndex] = append(byFile[t.Tiles[i].FileIndex], &t.Tiles[i])
		}
	}
	for file, recs := range byFile {
		sort.Slice(recs, func(i, j int) bool { return recs[i].Offset < recs[j].Offset })
		for i := 1; i < len(recs); i++ {
			prev, cur := recs[i-1], recs[i]
			if prev.Offset+uint64(prev.Size) > cur.Offset {
				t.warnings = append(t.warnings, fmt.Sprintf(
					"tiles mip %d (%d,%d) and mip %d (%d,%d) overlap in streamed file %d",
					prev.Mip, prev.X, prev.Y, cur.Mip, cur.X, cur.Y, file))
			}
		}
	}
}
