package respack

import (
	"fmt"
	"sync"
)

// Library holds several opened archives and resolves entries across them.
// Archives are searched in reverse order, so the last added wins on name
// collisions, and a single bad archive never blocks the others.
type Library struct {
	mu       sync.RWMutex
	archives []*openedArchive
	failed   []string
}

type openedArchive struct {
	archive *Archive
	set     *ResourceSet
}

// NewLibrary creates an empty archive library.
func NewLibrary() *Library {
	return &Library{}
}

// AddArchive opens an .index file plus its paired resource files and adds
// them to the library. An open failure is recorded and returned but leaves
// previously added archives usable.
func (l *Library) AddArchive(indexPath string) error {
	archive, err := OpenIndex(indexPath)
	if err != nil {
		l.mu.Lock()
		l.failed = append(l.failed, indexPath)
		l.mu.Unlock()
		return fmt.Errorf("opening archive %s: %w", indexPath, err)
	}

	l.mu.Lock()
	l.archives = append(l.archives, &openedArchive{
		archive: archive,
		set:     OpenResources(indexPath),
	})
	l.mu.Unlock()
	return nil
}

// Read resolves a named entry across all archives.
func (l *Library) Read(name string) ([]byte, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	for i := len(l.archives) - 1; i >= 0; i-- {
		if e, ok := l.archives[i].archive.Lookup(name); ok {
			return l.archives[i].set.ReadEntry(e)
		}
	}
	return nil, fmt.Errorf("entry not found: %s", name)
}

// Archives returns the opened archives in add order.
func (l *Library) Archives() []*Archive {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]*Archive, len(l.archives))
	for i, oa := range l.archives {
		out[i] = oa.archive
	}
	return out
}

// Failed returns the index paths that could not be opened.
func (l *Library) Failed() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.failed
}

// Close closes all resource files held by the library.
func (l *Library) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, oa := range l.archives {
		oa.set.Close()
	}
	l.archives = nil
}
