package respack

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/crowbyte/idres/pkg/deflate"
)

// ResourceSet resolves numbered resource files and reads byte ranges out of
// them. Files are opened lazily, read-only, and shared across workers; all
// reads go through ReadAt so a single handle per file is safe.
type ResourceSet struct {
	names func(index uint32) []string

	mu    sync.Mutex
	files map[uint32]*os.File
	sizes map[uint32]int64
}

// OpenResources returns the resource set paired with an .index file:
// basename.resources for file 0 and basename_chunk{N}.resources for the
// rest. Chunk 0 may also stand in for the unnumbered file.
func OpenResources(indexPath string) *ResourceSet {
	base := strings.TrimSuffix(indexPath, ".index")
	return &ResourceSet{
		names: func(index uint32) []string {
			if index == 0 {
				return []string{
					base + ".resources",
					base + "_chunk0.resources",
				}
			}
			return []string{fmt.Sprintf("%s_chunk%d.resources", base, index)}
		},
		files: make(map[uint32]*os.File),
		sizes: make(map[uint32]int64),
	}
}

// streamedNames maps streamed sound/tile file indices to file names: index 0
// is the main streamed store, 1-4 are the language variants.
var streamedNames = []string{
	"streamed.resources",
	"english.streamed",
	"french.streamed",
	"italian.streamed",
	"spanish.streamed",
}

// OpenStreamed returns the resource set for streamed payloads (virtual
// texture tiles and sound containers) in the given directory. Indices past
// the known names resolve to streamed{N}.resources.
func OpenStreamed(dir string) *ResourceSet {
	return &ResourceSet{
		names: func(index uint32) []string {
			if int(index) < len(streamedNames) {
				return []string{dir + string(os.PathSeparator) + streamedNames[index]}
			}
			return []string{fmt.Sprintf("%s%cstreamed%d.resources", dir, os.PathSeparator, index)}
		},
		files: make(map[uint32]*os.File),
		sizes: make(map[uint32]int64),
	}
}

// file returns the opened resource file and its size for the given index.
func (s *ResourceSet) file(index uint32) (*os.File, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f, ok := s.files[index]; ok {
		return f, s.sizes[index], nil
	}

	var lastErr error
	for _, name := range s.names(index) {
		f, err := os.Open(name)
		if err != nil {
			lastErr = err
			continue
		}
		info, err := f.Stat()
		if err != nil {
			f.Close()
			return nil, 0, fmt.Errorf("stat %s: %w", name, err)
		}
		s.files[index] = f
		s.sizes[index] = info.Size()
		return f, info.Size(), nil
	}
	return nil, 0, fmt.Errorf("%w: file %d: %v", ErrMissingResourceFile, index, lastErr)
}

// ReadRange reads size bytes at offset from the numbered resource file.
func (s *ResourceSet) ReadRange(index uint32, offset uint64, size uint32) ([]byte, error) {
	f, fileSize, err := s.file(index)
	if err != nil {
		return nil, err
	}
	// Checked separately so a hostile offset near math.MaxUint64 cannot
	// wrap the sum past the bound.
	if offset > uint64(fileSize) || uint64(size) > uint64(fileSize)-offset {
		return nil, fmt.Errorf("%w: file %d: %d+%d > %d", ErrOutOfRange, index, offset, size, fileSize)
	}
	buf := make([]byte, size)
	if _, err := f.ReadAt(buf, int64(offset)); err != nil {
		return nil, fmt.Errorf("reading resource file %d: %w", index, err)
	}
	return buf, nil
}

// ReadEntry resolves an index entry into its decompressed payload.
// The returned buffer length always equals the entry's declared size.
func (s *ResourceSet) ReadEntry(e *Entry) ([]byte, error) {
	raw, err := s.ReadRange(e.FileIndex, e.Offset, e.ZSize)
	if err != nil {
		return nil, err
	}
	if !e.Compressed() {
		return raw, nil
	}
	return deflate.Decompress(raw, e.Size)
}

// Close closes every opened resource file.
func (s *ResourceSet) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var firstErr error
	for _, f := range s.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	s.files = make(map[uint32]*os.File)
	s.sizes = make(map[uint32]int64)
	return firstErr
}
