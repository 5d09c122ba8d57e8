package extract

import (
	"context"
	"runtime"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/crowbyte/idres/internal/logger"
	"github.com/crowbyte/idres/pkg/export"
	"github.com/crowbyte/idres/pkg/respack"
)

// Options configure an extraction run.
type Options struct {
	OutputDir string
	Workers   int // 0 = one per CPU
	Mesh      export.MeshOptions

	// Streamed backs tile and sound payloads; nil disables demuxing
	// and those entries fall back to raw dumps of their index data.
	Streamed *respack.ResourceSet

	// Languages filters streamed sound variants; empty means all.
	Languages []respack.Language
}

// Runner extracts every entry of one archive.
type Runner struct {
	archive *respack.Archive
	set     *respack.ResourceSet
	opts    Options
}

// NewRunner pairs a parsed archive with its resource file set.
func NewRunner(archive *respack.Archive, set *respack.ResourceSet, opts Options) *Runner {
	return &Runner{archive: archive, set: set, opts: opts}
}

// Run extracts all entries with a bounded worker pool. Entry failures
// are counted, never fatal; the returned error reflects only pool
// plumbing (context cancellation). Cancelling the context stops intake
// of new entries but lets in-flight entries finish.
func (r *Runner) Run(ctx context.Context) (*Stats, error) {
	workers := r.opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	stats := newStats()
	for _, w := range r.archive.Warnings() {
		stats.warn(w)
	}

	entries := make(chan *respack.Entry)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(entries)
		for _, e := range r.archive.Entries() {
			select {
			case entries <- e:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		return nil
	})

	for i := 0; i < workers; i++ {
		g.Go(func() error {
			for e := range entries {
				o := r.extractEntry(e, stats)
				stats.record(o)
				if o.Err != nil {
					logger.Log.Warn("entry failed",
						zap.String("entry", o.Name),
						zap.Stringer("kind", o.Kind),
						zap.Error(o.Err))
				} else {
					logger.Log.Debug("entry extracted",
						zap.String("entry", o.Name),
						zap.Int("outputs", len(o.Outputs)))
				}
			}
			return nil
		})
	}

	err := g.Wait()
	return stats, err
}
