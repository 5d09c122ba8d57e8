package formats

import (
	"bytes"
	"encoding/binary"
	"errors"
	"testing"
)

// buildStaticModel assembles a static mesh buffer: one submesh per
// part, with a terminator-separated strip index buffer.
func buildStaticModel(parts []modelPart, strips [][]uint16) []byte {
	var buf bytes.Buffer
	buf.Write(make([]byte, staticHeaderSize))

	for i, p := range parts {
		buf.Write(staticMarker)
		buf.Write(make([]byte, 6))
		binary.Write(&buf, binary.BigEndian, uint16(len(p.positions)))
		binary.Write(&buf, binary.BigEndian, uint16(p.layout))
		binary.Write(&buf, binary.BigEndian, uint16(len(strips[i])))
		writeFixed(&buf, p.material, materialRefSize)
		buf.Write(make([]byte, 20))
		writeVertices(&buf, p)
		for _, idx := range strips[i] {
			binary.Write(&buf, binary.BigEndian, idx)
		}
	}

	return buf.Bytes()
}

func TestParseBModel_StripUnroll(t *testing.T) {
	p := quadPart(LayoutUV)
	p.tris = nil
	// One strip covering the quad: alternating winding keeps both
	// triangles facing the same way.
	data := buildStaticModel([]modelPart{p}, [][]uint16{{0, 1, 3, 2}})

	m, err := ParseBModel(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if len(m.Submeshes) != 1 || len(m.Failed) != 0 {
		t.Fatalf("expected 1 clean submesh, got %d (failed %+v)", len(m.Submeshes), m.Failed)
	}
	if len(m.Bones) != 0 {
		t.Error("static meshes carry no skeleton")
	}

	want := []uint16{
		0, 1, 3, // even triangle, stored order
		1, 2, 3, // odd triangle, swapped to keep winding
	}
	got := m.Submeshes[0].Indices
	if len(got) != len(want) {
		t.Fatalf("expected %d indices, got %d", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: expected %d, got %d", i, want[i], got[i])
		}
	}
}

func TestParseBModel_TerminatorSplitsStrips(t *testing.T) {
	p := quadPart(LayoutUV)
	p.tris = nil
	// Two strips of 3 indices each: 2 triangles total, the terminator
	// must not bridge them.
	data := buildStaticModel([]modelPart{p}, [][]uint16{{0, 1, 2, stripTerminator, 1, 2, 3}})

	m, err := ParseBModel(data)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got := len(m.Submeshes[0].Indices); got != 6 {
		t.Errorf("expected 6 indices (2 triangles), got %d", got)
	}
}

func TestParseBModel_IndexOutOfBounds(t *testing.T) {
	p := quadPart(LayoutUV)
	p.tris = nil
	data := buildStaticModel([]modelPart{p}, [][]uint16{{0, 1, 4}})

	m, err := ParseBModel(data)
	if err != nil {
		t.Fatalf("a bad submesh must not fail the whole mesh: %v", err)
	}
	if len(m.Submeshes) != 0 || len(m.Failed) != 1 {
		t.Fatalf("expected one failed submesh, got %d/%d", len(m.Submeshes), len(m.Failed))
	}
	if !errors.Is(m.Failed[0].Err, ErrIndexOutOfBounds) {
		t.Errorf("expected ErrIndexOutOfBounds, got %v", m.Failed[0].Err)
	}
}

func TestParseBModel_Truncated(t *testing.T) {
	if _, err := ParseBModel(make([]byte, 8)); !errors.Is(err, ErrTruncatedModelData) {
		t.Errorf("expected ErrTruncatedModelData, got %v", err)
	}
}
