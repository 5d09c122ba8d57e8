package extract

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowbyte/idres/internal/logger"
	"github.com/crowbyte/idres/pkg/export"
	"github.com/crowbyte/idres/pkg/respack"
)

func TestMain(m *testing.M) {
	logger.InitWithFileConfig("error", logger.FileConfig{}, false)
	os.Exit(m.Run())
}

// indexEntry describes one entry for buildArchive.
type indexEntry struct {
	typ     string
	name    string
	payload []byte
}

// buildArchive writes a synthetic .index / .resources pair holding the
// given stored (uncompressed) entries and returns the index path.
func buildArchive(t *testing.T, dir string, entries []indexEntry) string {
	t.Helper()

	var res bytes.Buffer
	var idx bytes.Buffer
	idx.Write(make([]byte, 0x24))
	binary.Write(&idx, binary.BigEndian, uint32(len(entries)))
	binary.Write(&idx, binary.BigEndian, uint32(0))

	writeBlob := func(s string) {
		binary.Write(&idx, binary.LittleEndian, uint32(len(s)))
		idx.WriteString(s)
	}

	for i, e := range entries {
		offset := uint32(res.Len())
		res.Write(e.payload)

		writeBlob(e.typ)
		writeBlob("src/" + e.name)
		writeBlob(e.name)
		binary.Write(&idx, binary.BigEndian, offset)
		binary.Write(&idx, binary.BigEndian, uint32(len(e.payload)))
		binary.Write(&idx, binary.BigEndian, uint32(len(e.payload)))
		binary.Write(&idx, binary.BigEndian, uint32(0)) // no aux records
		idx.Write(make([]byte, 5))
		if i != len(entries)-1 {
			binary.Write(&idx, binary.BigEndian, uint32(0)) // all in file 0
		}
	}

	indexPath := filepath.Join(dir, "game.index")
	require.NoError(t, os.WriteFile(indexPath, idx.Bytes(), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "game.resources"), res.Bytes(), 0644))
	return indexPath
}

// meshPayload builds a minimal skinned mesh: no bones, one
// position-only submesh with a single triangle.
func meshPayload() []byte {
	var buf bytes.Buffer
	header := make([]byte, 64)
	copy(header, "BMD6")
	binary.BigEndian.PutUint16(header[4:], 6)
	buf.Write(header)

	buf.Write([]byte{0x00, 0x00, 0x00, 0x01, 0x00, 0x00}) // submesh marker
	binary.Write(&buf, binary.BigEndian, uint16(3))       // vertices
	binary.Write(&buf, binary.BigEndian, uint16(0x0001))  // position only
	binary.Write(&buf, binary.BigEndian, uint16(1))       // triangles
	material := make([]byte, 24)
	copy(material, "models/mat/test")
	buf.Write(material)
	for _, f := range []float32{0, 0, 0, 1, 0, 0, 0, 1, 0} {
		binary.Write(&buf, binary.BigEndian, math.Float32bits(f))
	}
	for _, idx := range []uint16{0, 1, 2} {
		binary.Write(&buf, binary.BigEndian, idx)
	}
	return buf.Bytes()
}

// imagePayload builds a 4x4 RGBA8 raster.
func imagePayload() []byte {
	header := make([]byte, 0x48)
	binary.BigEndian.PutUint16(header[0x0E:], 4)
	binary.BigEndian.PutUint16(header[0x12:], 4)
	header[0x16] = 1
	header[0x23] = 0x07 // RGBA8
	pixels := make([]byte, 4*4*4)
	for i := range pixels {
		pixels[i] = byte(i)
	}
	return append(header, pixels...)
}

func TestRunner_EndToEnd(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "out")

	indexPath := buildArchive(t, dir, []indexEntry{
		{typ: "baseModel", name: "models/crate.bmd6model", payload: meshPayload()},
		{typ: "image", name: "art/wall.bimage", payload: imagePayload()},
		{typ: "declFolder", name: "generated/foo.decl", payload: []byte("opaque decl data")},
	})

	archive, err := respack.OpenIndex(indexPath)
	require.NoError(t, err)

	set := respack.OpenResources(indexPath)
	defer set.Close()

	runner := NewRunner(archive, set, Options{
		OutputDir: outDir,
		Workers:   2,
		Mesh:      export.DefaultMeshOptions(),
	})

	stats, err := runner.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, stats.Processed)
	assert.Equal(t, 3, stats.Succeeded)
	assert.Equal(t, 0, stats.Failed)
	assert.Equal(t, 0, stats.SubmeshFailed)

	// One OBJ part for the single submesh.
	objPath := filepath.Join(outDir, "models", "models", "crate_part1.obj")
	objData, err := os.ReadFile(objPath)
	require.NoError(t, err, "mesh output missing")
	assert.Contains(t, string(objData), "v ")
	assert.Contains(t, string(objData), "f ")

	// PNG output for the raster.
	pngData, err := os.ReadFile(filepath.Join(outDir, "images", "art", "wall.png"))
	require.NoError(t, err, "raster output missing")
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, pngData[:4])

	// Unknown type falls through to a raw dump.
	rawData, err := os.ReadFile(filepath.Join(outDir, "raw", "generated", "foo.decl"))
	require.NoError(t, err, "raw dump missing")
	assert.Equal(t, []byte("opaque decl data"), rawData)
}

func TestRunner_FailuresAreCounted(t *testing.T) {
	dir := t.TempDir()

	// Truncated image payload: header promises 4x4 RGBA8 but carries
	// no pixel bytes.
	badImage := imagePayload()[:0x48]
	indexPath := buildArchive(t, dir, []indexEntry{
		{typ: "image", name: "art/broken.bimage", payload: badImage},
		{typ: "image", name: "art/good.bimage", payload: imagePayload()},
	})

	archive, err := respack.OpenIndex(indexPath)
	require.NoError(t, err)

	set := respack.OpenResources(indexPath)
	defer set.Close()

	runner := NewRunner(archive, set, Options{OutputDir: filepath.Join(dir, "out")})
	stats, err := runner.Run(context.Background())
	require.NoError(t, err, "entry failures must not fail the run")

	assert.Equal(t, 2, stats.Processed)
	assert.Equal(t, 1, stats.Succeeded)
	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.ByReason["truncated payload"])
}

func TestRunner_CancellationStopsIntake(t *testing.T) {
	dir := t.TempDir()

	entries := make([]indexEntry, 50)
	for i := range entries {
		entries[i] = indexEntry{
			typ:     "declFolder",
			name:    filepath.Join("decls", string(rune('a'+i%26))+string(rune('0'+i/26))),
			payload: []byte("x"),
		}
	}
	indexPath := buildArchive(t, dir, entries)

	archive, err := respack.OpenIndex(indexPath)
	require.NoError(t, err)

	set := respack.OpenResources(indexPath)
	defer set.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel() // cancelled before the run starts

	runner := NewRunner(archive, set, Options{OutputDir: filepath.Join(dir, "out"), Workers: 1})
	stats, err := runner.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Less(t, stats.Processed, len(entries), "intake should stop early")
}

func TestSanitizeName(t *testing.T) {
	cases := map[string]string{
		"art/wall.bimage":     "art/wall.bimage",
		"../../etc/passwd":    "etc/passwd",
		"c:\\textures\\a.dds": "c_/textures/a.dds",
		"":                    "_unnamed",
		"./a//b":              "a/b",
	}
	for in, want := range cases {
		if got := sanitizeName(in); got != filepath.FromSlash(want) && got != want {
			t.Errorf("sanitizeName(%q) = %q, want %q", in, got, want)
		}
	}
}
