// BMODEL (static mesh) format parser. Shares the vertex layout registry
// and Model/Submesh types with the skinned variant; the differences are
// the marker, the header shape, and triangle-strip index buffers.
package formats

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

const staticHeaderSize = 32

// staticMarker precedes every submesh block in a static mesh.
var staticMarker = []byte{0xFF, 0xFF, 0xFF, 0xFF}

// stripTerminator ends one triangle strip inside the index buffer.
const stripTerminator = 0xFFFF

// ParseBModel parses static mesh data from a byte slice. Static meshes
// carry no skeleton; Bones is always empty.
func ParseBModel(data []byte) (*Model, error) {
	if len(data) < staticHeaderSize {
		return nil, ErrTruncatedModelData
	}

	m := &Model{}

	part := 0
	off := staticHeaderSize
	for {
		rel := bytes.Index(data[off:], staticMarker)
		if rel == -1 {
			break
		}
		off += rel + len(staticMarker)

		sub, next, err := parseStaticSubmesh(data, off)
		if err != nil {
			m.Failed = append(m.Failed, SubmeshError{Part: part, Err: err})
		} else {
			m.Submeshes = append(m.Submeshes, *sub)
		}
		if next <= off {
			break
		}
		off = next
		part++
	}

	return m, nil
}

// parseStaticSubmesh decodes the block following a static marker:
// 6 opaque bytes, vertex count, layout flags, total strip index count,
// a material reference plus 20 reserved bytes, then the vertex and
// strip index buffers.
func parseStaticSubmesh(data []byte, off int) (*Submesh, int, error) {
	const headerSize = 6 + 2 + 2 + 2 + materialRefSize + 20
	if off+headerSize > len(data) {
		return nil, off, ErrTruncatedModelData
	}

	vertexCount := int(binary.BigEndian.Uint16(data[off+6:]))
	layout := VertexLayout(binary.BigEndian.Uint16(data[off+8:]))
	indexCount := int(binary.BigEndian.Uint16(data[off+10:]))
	material := readFixedString(data[off+12 : off+12+materialRefSize])
	off += headerSize

	info, ok := vertexLayouts[layout]
	if !ok {
		return nil, off, fmt.Errorf("%w: flags 0x%04X", ErrUnsupportedVertexFormat, uint16(layout))
	}

	vertexBytes := vertexCount * info.Stride
	indexBytes := indexCount * 2
	if off+vertexBytes+indexBytes > len(data) {
		return nil, off, fmt.Errorf("%w: submesh needs %d bytes", ErrTruncatedModelData, vertexBytes+indexBytes)
	}

	sub := &Submesh{Material: material, Layout: layout}
	readVertexBuffer(sub, data[off:off+vertexBytes], vertexCount, info)
	off += vertexBytes

	strip := make([]uint16, indexCount)
	for i := range strip {
		strip[i] = binary.BigEndian.Uint16(data[off+i*2:])
	}
	off += indexBytes

	indices, err := unrollStrips(strip, vertexCount)
	if err != nil {
		return nil, off, err
	}
	sub.Indices = indices

	return sub, off, nil
}

// unrollStrips converts terminator-separated triangle strips into a flat
// triangle list, alternating winding so all faces keep one orientation.
func unrollStrips(strip []uint16, vertexCount int) ([]uint16, error) {
	var out []uint16

	emit := func(run []uint16) error {
		for i := 0; i+2 < len(run); i++ {
			a, b, c := run[i], run[i+1], run[i+2]
			if i%2 == 1 {
				b, c = c, b
			}
			for _, idx := range [3]uint16{a, b, c} {
				if int(idx) >= vertexCount {
					return fmt.Errorf("%w: index %d >= %d vertices", ErrIndexOutOfBounds, idx, vertexCount)
				}
			}
			out = append(out, a, b, c)
		}
		return nil
	}

	start := 0
	for i, idx := range strip {
		if idx != stripTerminator {
			continue
		}
		if err := emit(strip[start:i]); err != nil {
			return nil, err
		}
		start = i + 1
	}
	if err := emit(strip[start:]); err != nil {
		return nil, err
	}

	return out, nil
}
