// BMD6 (skinned mesh) format parser.
package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Mesh format errors.
var (
	ErrInvalidModelMagic       = errors.New("invalid model magic: expected 'BMD6'")
	ErrTruncatedModelData      = errors.New("truncated model data")
	ErrInvalidBoneTable        = errors.New("invalid bone table")
	ErrUnsupportedVertexFormat = errors.New("unsupported vertex format")
	ErrIndexOutOfBounds        = errors.New("triangle index out of bounds")
)

const (
	modelHeaderSize = 64
	boneNameSize    = 24
	boneRecordSize  = boneNameSize + 2 + 12*4
	materialRefSize = 24
)

// submeshMarker precedes every vertex/index block in a skinned mesh.
var submeshMarker = []byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00}

// VertexLayout is the per-submesh attribute flag word. Recognized
// combinations live in vertexLayouts; anything else fails that submesh
// with ErrUnsupportedVertexFormat.
type VertexLayout uint16

const (
	LayoutPosition VertexLayout = 0x0001 // position only
	LayoutUV       VertexLayout = 0x0003 // position + UV
	LayoutNormal   VertexLayout = 0x0007 // position + UV + normal
	LayoutSkinned  VertexLayout = 0x000F // position + UV + normal + skin
)

// vertexLayoutInfo describes how one recognized flag combination packs
// its attributes into the interleaved vertex buffer.
type vertexLayoutInfo struct {
	Stride    int
	HasUV     bool
	HasNormal bool
	HasSkin   bool
}

// vertexLayouts is extensible: new flag words observed in newer archives
// get a row here instead of code changes in the parser.
var vertexLayouts = map[VertexLayout]vertexLayoutInfo{
	LayoutPosition: {Stride: 12},
	LayoutUV:       {Stride: 32, HasUV: true},
	LayoutNormal:   {Stride: 32, HasUV: true, HasNormal: true},
	LayoutSkinned:  {Stride: 40, HasUV: true, HasNormal: true, HasSkin: true},
}

// Bone is one entry of the skeleton table.
type Bone struct {
	Name     string
	Parent   int16       // index of parent bone, -1 for the root
	BindPose [12]float32 // 3x4 row-major bind transform
}

// Submesh is one self-contained vertex/index block. Optional attribute
// slices are nil when the layout does not carry them.
type Submesh struct {
	Material    string
	Layout      VertexLayout
	Positions   [][3]float32
	UVs         [][2]float32
	Normals     [][3]float32
	BoneIndices [][4]uint8
	BoneWeights [][4]uint8
	Indices     []uint16 // triangle list, 3 per face
}

// SubmeshError records a failure confined to a single submesh. The rest
// of the mesh still decodes.
type SubmeshError struct {
	Part int
	Err  error
}

func (e *SubmeshError) Error() string {
	return fmt.Sprintf("submesh %d: %v", e.Part, e.Err)
}

func (e *SubmeshError) Unwrap() error { return e.Err }

// Model is a decoded mesh asset: a shared skeleton plus an ordered list
// of submeshes, each exported independently.
type Model struct {
	Version   uint16
	Scale     float32
	Bones     []Bone
	Submeshes []Submesh
	Failed    []SubmeshError // per-submesh failures kept for reporting
}

// ParseBMD6Model parses skinned mesh data from a byte slice. Winding and
// handedness are preserved exactly as stored; coordinate conversion is
// the exporter's job.
func ParseBMD6Model(data []byte) (*Model, error) {
	if len(data) < modelHeaderSize {
		return nil, ErrTruncatedModelData
	}
	if !bytes.Equal(data[:4], []byte("BMD6")) {
		return nil, ErrInvalidModelMagic
	}

	m := &Model{
		Version: binary.BigEndian.Uint16(data[4:]),
		Scale:   math.Float32frombits(binary.BigEndian.Uint32(data[8:])),
	}
	boneCount := int(binary.BigEndian.Uint16(data[6:]))

	off := modelHeaderSize
	if off+boneCount*boneRecordSize > len(data) {
		return nil, fmt.Errorf("%w: bone table needs %d bytes", ErrTruncatedModelData, boneCount*boneRecordSize)
	}

	m.Bones = make([]Bone, boneCount)
	for i := range m.Bones {
		b := &m.Bones[i]
		b.Name = readFixedString(data[off : off+boneNameSize])
		b.Parent = int16(binary.BigEndian.Uint16(data[off+boneNameSize:]))
		if int(b.Parent) >= i || b.Parent < -1 {
			return nil, fmt.Errorf("%w: bone %d has parent %d", ErrInvalidBoneTable, i, b.Parent)
		}
		for j := range b.BindPose {
			b.BindPose[j] = math.Float32frombits(binary.BigEndian.Uint32(data[off+boneNameSize+2+j*4:]))
		}
		off += boneRecordSize
	}

	// Submesh blocks are located by marker scan rather than a count in
	// the header; the space between blocks is opaque.
	part := 0
	for {
		rel := bytes.Index(data[off:], submeshMarker)
		if rel == -1 {
			break
		}
		off += rel + len(submeshMarker)

		sub, next, err := parseSubmesh(data, off)
		if err != nil {
			m.Failed = append(m.Failed, SubmeshError{Part: part, Err: err})
		} else {
			m.Submeshes = append(m.Submeshes, *sub)
		}
		if next <= off {
			break // truncated block, nothing further to scan
		}
		off = next
		part++
	}

	return m, nil
}

// parseSubmesh decodes the block following a submesh marker. It returns
// the offset just past the block so the caller can continue scanning;
// on failure the returned offset points past the header so the scan can
// resume at the next marker.
func parseSubmesh(data []byte, off int) (*Submesh, int, error) {
	const headerSize = 2 + 2 + 2 + materialRefSize
	if off+headerSize > len(data) {
		return nil, off, ErrTruncatedModelData
	}

	vertexCount := int(binary.BigEndian.Uint16(data[off:]))
	layout := VertexLayout(binary.BigEndian.Uint16(data[off+2:]))
	triangleCount := int(binary.BigEndian.Uint16(data[off+4:]))
	material := readFixedString(data[off+6 : off+6+materialRefSize])
	off += headerSize

	info, ok := vertexLayouts[layout]
	if !ok {
		return nil, off, fmt.Errorf("%w: flags 0x%04X", ErrUnsupportedVertexFormat, uint16(layout))
	}

	vertexBytes := vertexCount * info.Stride
	indexBytes := triangleCount * 3 * 2
	if off+vertexBytes+indexBytes > len(data) {
		return nil, off, fmt.Errorf("%w: submesh needs %d bytes", ErrTruncatedModelData, vertexBytes+indexBytes)
	}

	sub := &Submesh{Material: material, Layout: layout}
	readVertexBuffer(sub, data[off:off+vertexBytes], vertexCount, info)
	off += vertexBytes

	sub.Indices = make([]uint16, 0, triangleCount*3)
	for i := 0; i < triangleCount*3; i++ {
		idx := binary.BigEndian.Uint16(data[off+i*2:])
		if int(idx) >= vertexCount {
			return nil, off + indexBytes, fmt.Errorf("%w: index %d >= %d vertices", ErrIndexOutOfBounds, idx, vertexCount)
		}
		sub.Indices = append(sub.Indices, idx)
	}

	return sub, off + indexBytes, nil
}

// readVertexBuffer de-interleaves one vertex buffer into the submesh's
// attribute slices according to the layout table row.
func readVertexBuffer(sub *Submesh, buf []byte, count int, info vertexLayoutInfo) {
	sub.Positions = make([][3]float32, count)
	if info.HasUV {
		sub.UVs = make([][2]float32, count)
	}
	if info.HasNormal {
		sub.Normals = make([][3]float32, count)
	}
	if info.HasSkin {
		sub.BoneIndices = make([][4]uint8, count)
		sub.BoneWeights = make([][4]uint8, count)
	}

	f32 := func(off int) float32 {
		return math.Float32frombits(binary.BigEndian.Uint32(buf[off:]))
	}

	for i := 0; i < count; i++ {
		base := i * info.Stride
		sub.Positions[i] = [3]float32{f32(base), f32(base + 4), f32(base + 8)}
		if info.HasUV {
			sub.UVs[i] = [2]float32{f32(base + 12), f32(base + 16)}
		}
		if info.HasNormal {
			sub.Normals[i] = [3]float32{f32(base + 20), f32(base + 24), f32(base + 28)}
		}
		if info.HasSkin {
			copy(sub.BoneIndices[i][:], buf[base+32:base+36])
			copy(sub.BoneWeights[i][:], buf[base+36:base+40])
		}
	}
}

// readFixedString trims a fixed-width NUL-padded byte field.
func readFixedString(b []byte) string {
	if i := bytes.IndexByte(b, 0); i >= 0 {
		b = b[:i]
	}
	return string(b)
}
