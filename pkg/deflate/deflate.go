// Package deflate decompresses raw RFC 1951 streams whose decompressed
// size is known in advance, as stored in resource archive index entries.
package deflate

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/flate"
)

// ErrCorruptStream indicates a deflate bitstream that ends early, contains
// an invalid block, or does not produce the declared number of bytes.
var ErrCorruptStream = errors.New("deflate: corrupt stream")

// Decompress inflates a raw deflate stream (no zlib or gzip framing) and
// returns exactly expected bytes. It fails with ErrCorruptStream if the
// stream is invalid or its output size does not match.
func Decompress(compressed []byte, expected uint32) ([]byte, error) {
	fr := flate.NewReader(bytes.NewReader(compressed))
	defer fr.Close()

	out := make([]byte, expected)
	if _, err := io.ReadFull(fr, out); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}

	// The stream must end exactly at the declared size.
	var extra [1]byte
	if n, err := fr.Read(extra[:]); n != 0 {
		return nil, fmt.Errorf("%w: output exceeds declared size %d", ErrCorruptStream, expected)
	} else if err != nil && err != io.EOF {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStream, err)
	}

	return out, nil
}
