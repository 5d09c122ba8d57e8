// Package extract walks a parsed archive and writes every entry it can
// decode to disk, collecting per-entry outcomes into run statistics.
package extract

import (
	"errors"
	"sync"

	"github.com/crowbyte/idres/pkg/deflate"
	"github.com/crowbyte/idres/pkg/formats"
	"github.com/crowbyte/idres/pkg/respack"
)

// Outcome records the result of extracting one entry.
type Outcome struct {
	Name    string
	Kind    respack.Kind
	Outputs []string // paths written
	Err     error    // nil on success
}

// Stats aggregates outcomes over a run. Submesh failures and tile gaps
// do not fail their entry; they are counted separately.
type Stats struct {
	mu sync.Mutex

	Processed     int
	Succeeded     int
	Failed        int
	ByReason      map[string]int
	SubmeshFailed int
	TileGaps      int
	Warnings      []string
}

func newStats() *Stats {
	return &Stats{ByReason: make(map[string]int)}
}

func (s *Stats) record(o Outcome) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.Processed++
	if o.Err == nil {
		s.Succeeded++
		return
	}
	s.Failed++
	s.ByReason[reasonOf(o.Err)]++
}

func (s *Stats) addSubmeshFailures(errs []formats.SubmeshError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.SubmeshFailed += len(errs)
	for i := range errs {
		s.ByReason[reasonOf(errs[i].Err)]++
	}
}

func (s *Stats) addTileGaps(gaps []formats.TileGap) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.TileGaps += len(gaps)
}

func (s *Stats) warn(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Warnings = append(s.Warnings, msg)
}

// reasonOf maps an error chain to a stable statistics bucket.
func reasonOf(err error) string {
	switch {
	case errors.Is(err, respack.ErrMissingResourceFile):
		return "missing resource file"
	case errors.Is(err, respack.ErrOutOfRange):
		return "out of range"
	case errors.Is(err, deflate.ErrCorruptStream):
		return "corrupt stream"
	case errors.Is(err, formats.ErrUnsupportedVertexFormat):
		return "unsupported vertex format"
	case errors.Is(err, formats.ErrIndexOutOfBounds):
		return "index out of bounds"
	case errors.Is(err, formats.ErrUnsupportedPixelFormat):
		return "unsupported pixel format"
	case errors.Is(err, formats.ErrTruncatedPayload):
		return "truncated payload"
	case errors.Is(err, formats.ErrTruncatedModelData):
		return "truncated model data"
	case errors.Is(err, formats.ErrDuplicateTile):
		return "duplicate tile"
	default:
		return "other"
	}
}
