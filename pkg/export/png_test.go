package export

import (
	"bytes"
	"image/png"
	"testing"

	"github.com/crowbyte/idres/pkg/formats"
)

func TestWritePNG(t *testing.T) {
	src := &formats.Image{
		Width:  2,
		Height: 2,
		Pixels: []byte{
			255, 0, 0, 255, 0, 255, 0, 255,
			0, 0, 255, 255, 255, 255, 255, 128,
		},
	}

	var buf bytes.Buffer
	if err := WritePNG(&buf, src); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	decoded, err := png.Decode(&buf)
	if err != nil {
		t.Fatalf("output is not a valid PNG: %v", err)
	}
	bounds := decoded.Bounds()
	if bounds.Dx() != 2 || bounds.Dy() != 2 {
		t.Errorf("expected 2x2, got %dx%d", bounds.Dx(), bounds.Dy())
	}

	r, g, b, _ := decoded.At(0, 0).RGBA()
	if r>>8 != 255 || g>>8 != 0 || b>>8 != 0 {
		t.Errorf("pixel (0,0): expected red, got (%d,%d,%d)", r>>8, g>>8, b>>8)
	}
}

func TestWriteRaw(t *testing.T) {
	var buf bytes.Buffer
	blob := []byte{1, 2, 3}
	if err := WriteRaw(&buf, blob); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	if !bytes.Equal(buf.Bytes(), blob) {
		t.Error("raw dump must be byte-identical")
	}
}
