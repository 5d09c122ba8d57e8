package export

import "io"

// WriteRaw dumps an undecoded payload as-is. Entries with unrecognized
// type tags still get extracted this way.
func WriteRaw(w io.Writer, blob []byte) error {
	_, err := w.Write(blob)
	return err
}
