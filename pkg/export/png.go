package export

import (
	"image"
	"image/png"
	"io"

	"github.com/crowbyte/idres/pkg/formats"
)

// WritePNG encodes the decoded top mip level as a PNG.
func WritePNG(w io.Writer, img *formats.Image) error {
	out := image.NewNRGBA(image.Rect(0, 0, img.Width, img.Height))
	copy(out.Pix, img.Pixels)
	return png.Encode(w, out)
}
