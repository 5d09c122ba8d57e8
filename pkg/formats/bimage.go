// BIMAGE raster format parser. Decodes the top mip level into an RGBA
// plane; block-compressed payloads (BC1/BC3) are expanded here, further
// transcoding is the exporter's job.
package formats

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// Raster format errors.
var (
	ErrTruncatedImageData     = errors.New("truncated image data")
	ErrUnsupportedPixelFormat = errors.New("unsupported pixel format")
	ErrTruncatedPayload       = errors.New("truncated pixel payload")
)

const (
	imageHeaderSize   = 0x48
	imageWidthOffset  = 0x0E
	imageHeightOffset = 0x12
	imageMipsOffset   = 0x16
	imageFormatOffset = 0x23
)

// PixelFormat is the header's format tag.
type PixelFormat uint8

const (
	PixelRGBA8 PixelFormat = 0x07
	PixelBGRA8 PixelFormat = 0x08
	PixelBC1   PixelFormat = 0x0A
	PixelBC3   PixelFormat = 0x0B
)

// String returns a human-readable format name.
func (f PixelFormat) String() string {
	if c, ok := pixelCodecs[f]; ok {
		return c.name
	}
	return fmt.Sprintf("Unknown(0x%02X)", uint8(f))
}

// pixelCodec describes one recognized format tag. blockBytes is the
// size of a 4x4 texel block for compressed formats, 0 for
// per-pixel formats.
type pixelCodec struct {
	name       string
	blockBytes int
	decode     func(payload []byte, w, h int) []byte
}

// pixelCodecs is the extensible tag table; new tags observed in newer
// archives get a row here. Unknown tags fail with
// ErrUnsupportedPixelFormat.
var pixelCodecs = map[PixelFormat]pixelCodec{
	PixelRGBA8: {name: "RGBA8", decode: decodeRGBA8},
	PixelBGRA8: {name: "BGRA8", decode: decodeBGRA8},
	PixelBC1:   {name: "BC1", blockBytes: 8, decode: decodeBC1},
	PixelBC3:   {name: "BC3", blockBytes: 16, decode: decodeBC3},
}

// Image is a decoded raster asset. Pixels holds mip 0 as tightly packed
// RGBA rows, top to bottom. MipData keeps the remaining payload bytes
// (lower mips) raw.
type Image struct {
	Width    int
	Height   int
	Format   PixelFormat
	MipCount int
	Pixels   []byte
	MipData  []byte
}

// mip0Size returns the byte size of the top mip level for the codec.
func (c pixelCodec) mip0Size(w, h int) int {
	if c.blockBytes > 0 {
		return ((w + 3) / 4) * ((h + 3) / 4) * c.blockBytes
	}
	return w * h * 4
}

// ParseBImage parses raster data from a byte slice.
func ParseBImage(data []byte) (*Image, error) {
	if len(data) < imageHeaderSize {
		return nil, ErrTruncatedImageData
	}

	img := &Image{
		Width:    int(binary.BigEndian.Uint16(data[imageWidthOffset:])),
		Height:   int(binary.BigEndian.Uint16(data[imageHeightOffset:])),
		MipCount: int(data[imageMipsOffset]),
		Format:   PixelFormat(data[imageFormatOffset]),
	}

	codec, ok := pixelCodecs[img.Format]
	if !ok {
		return nil, fmt.Errorf("%w: tag 0x%02X", ErrUnsupportedPixelFormat, uint8(img.Format))
	}

	payload := data[imageHeaderSize:]
	need := codec.mip0Size(img.Width, img.Height)
	if len(payload) < need {
		return nil, fmt.Errorf("%w: %dx%d %s needs %d bytes, have %d",
			ErrTruncatedPayload, img.Width, img.Height, codec.name, need, len(payload))
	}

	img.Pixels = codec.decode(payload[:need], img.Width, img.Height)
	img.MipData = payload[need:]
	return img, nil
}

func decodeRGBA8(payload []byte, w, h int) []byte {
	out := make([]byte, w*h*4)
	copy(out, payload)
	return out
}

func decodeBGRA8(payload []byte, w, h int) []byte {
	out := make([]byte, w*h*4)
	for i := 0; i < len(out); i += 4 {
		out[i] = payload[i+2]
		out[i+1] = payload[i+1]
		out[i+2] = payload[i]
		out[i+3] = payload[i+3]
	}
	return out
}

// expand565 converts an RGB565 word to 8-bit channels.
func expand565(c uint16) (r, g, b uint8) {
	r = uint8((uint32(c>>11&0x1F) * 255) / 31)
	g = uint8((uint32(c>>5&0x3F) * 255) / 63)
	b = uint8((uint32(c&0x1F) * 255) / 31)
	return
}

func decodeBC1(payload []byte, w, h int) []byte {
	out := make([]byte, w*h*4)
	bw, bh := (w+3)/4, (h+3)/4

	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			block := payload[(by*bw+bx)*8:]
			c0 := binary.LittleEndian.Uint16(block)
			c1 := binary.LittleEndian.Uint16(block[2:])
			bits := binary.LittleEndian.Uint32(block[4:])

			var palette [4][4]uint8
			r0, g0, b0 := expand565(c0)
			r1, g1, b1 := expand565(c1)
			palette[0] = [4]uint8{r0, g0, b0, 255}
			palette[1] = [4]uint8{r1, g1, b1, 255}
			if c0 > c1 {
				palette[2] = [4]uint8{lerp3(r0, r1), lerp3(g0, g1), lerp3(b0, b1), 255}
				palette[3] = [4]uint8{lerp3(r1, r0), lerp3(g1, g0), lerp3(b1, b0), 255}
			} else {
				palette[2] = [4]uint8{mid(r0, r1), mid(g0, g1), mid(b0, b1), 255}
				palette[3] = [4]uint8{0, 0, 0, 0} // 1-bit punch-through alpha
			}

			writeBlock(out, w, h, bx, by, func(px, py int) [4]uint8 {
				return palette[bits>>((py*4+px)*2)&0x3]
			})
		}
	}
	return out
}

func decodeBC3(payload []byte, w, h int) []byte {
	out := make([]byte, w*h*4)
	bw, bh := (w+3)/4, (h+3)/4

	for by := 0; by < bh; by++ {
		for bx := 0; bx < bw; bx++ {
			block := payload[(by*bw+bx)*16:]

			a0, a1 := block[0], block[1]
			alphaBits := binary.LittleEndian.Uint64(block) >> 16

			var alphas [8]uint8
			alphas[0], alphas[1] = a0, a1
			if a0 > a1 {
				for i := 1; i < 7; i++ {
					alphas[i+1] = uint8((int(7-i)*int(a0) + i*int(a1)) / 7)
				}
			} else {
				for i := 1; i < 5; i++ {
					alphas[i+1] = uint8((int(5-i)*int(a0) + i*int(a1)) / 5)
				}
				alphas[6], alphas[7] = 0, 255
			}

			c0 := binary.LittleEndian.Uint16(block[8:])
			c1 := binary.LittleEndian.Uint16(block[10:])
			colorBits := binary.LittleEndian.Uint32(block[12:])

			var palette [4][3]uint8
			r0, g0, b0 := expand565(c0)
			r1, g1, b1 := expand565(c1)
			palette[0] = [3]uint8{r0, g0, b0}
			palette[1] = [3]uint8{r1, g1, b1}
			palette[2] = [3]uint8{lerp3(r0, r1), lerp3(g0, g1), lerp3(b0, b1)}
			palette[3] = [3]uint8{lerp3(r1, r0), lerp3(g1, g0), lerp3(b1, b0)}

			writeBlock(out, w, h, bx, by, func(px, py int) [4]uint8 {
				c := palette[colorBits>>((py*4+px)*2)&0x3]
				a := alphas[alphaBits>>((py*4+px)*3)&0x7]
				return [4]uint8{c[0], c[1], c[2], a}
			})
		}
	}
	return out
}

// writeBlock places a decoded 4x4 block into the RGBA plane, clamping
// partial blocks at the right and bottom edges.
func writeBlock(out []byte, w, h, bx, by int, texel func(px, py int) [4]uint8) {
	for py := 0; py < 4; py++ {
		for px := 0; px < 4; px++ {
			x, y := bx*4+px, by*4+py
			if x >= w || y >= h {
				continue
			}
			p := texel(px, py)
			copy(out[(y*w+x)*4:], p[:])
		}
	}
}

// lerp3 is the 2:1 interpolation used by the BC color palettes.
func lerp3(a, b uint8) uint8 { return uint8((2*int(a) + int(b)) / 3) }

func mid(a, b uint8) uint8 { return uint8((int(a) + int(b)) / 2) }
