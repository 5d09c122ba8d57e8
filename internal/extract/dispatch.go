package extract

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/crowbyte/idres/pkg/export"
	"github.com/crowbyte/idres/pkg/formats"
	"github.com/crowbyte/idres/pkg/respack"
)

// extractEntry resolves one entry's payload and routes it by kind.
// Unknown kinds dump raw bytes; only resolution and entry-level decode
// failures populate Outcome.Err.
func (r *Runner) extractEntry(e *respack.Entry, stats *Stats) Outcome {
	o := Outcome{Name: e.Name, Kind: e.Kind()}

	// Sound entries carry no payload of their own; their bytes live in
	// the streamed files referenced by the aux records.
	if o.Kind == respack.KindSound {
		o.Outputs, o.Err = r.extractSound(e)
		return o
	}

	blob, err := r.set.ReadEntry(e)
	if err != nil {
		o.Err = err
		return o
	}

	switch o.Kind {
	case respack.KindModel:
		o.Outputs, o.Err = r.extractMesh(e.Name, blob, stats, formats.ParseBMD6Model)
	case respack.KindStaticModel:
		o.Outputs, o.Err = r.extractMesh(e.Name, blob, stats, formats.ParseBModel)
	case respack.KindImage:
		o.Outputs, o.Err = r.extractImage(e.Name, blob)
	case respack.KindTileIndex:
		o.Outputs, o.Err = r.extractTileIndex(e.Name, blob, stats)
	default:
		o.Outputs, o.Err = r.dumpRaw(e.Name, blob)
	}
	return o
}

func (r *Runner) extractMesh(name string, blob []byte, stats *Stats, parse func([]byte) (*formats.Model, error)) ([]string, error) {
	model, err := parse(blob)
	if err != nil {
		return nil, err
	}
	stats.addSubmeshFailures(model.Failed)

	base := strings.TrimSuffix(sanitizeName(name), path.Ext(name))
	var outputs []string
	for i := range model.Submeshes {
		out := filepath.Join(r.opts.OutputDir, "models", fmt.Sprintf("%s_part%d.obj", base, i+1))
		f, err := createOutput(out)
		if err != nil {
			return outputs, err
		}
		err = export.WriteOBJ(f, &model.Submeshes[i], r.opts.Mesh)
		if cerr := f.Close(); err == nil {
			err = cerr
		}
		if err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (r *Runner) extractImage(name string, blob []byte) ([]string, error) {
	img, err := formats.ParseBImage(blob)
	if err != nil {
		return nil, err
	}

	base := strings.TrimSuffix(sanitizeName(name), path.Ext(name))
	out := filepath.Join(r.opts.OutputDir, "images", base+".png")
	f, err := createOutput(out)
	if err != nil {
		return nil, err
	}
	err = export.WritePNG(f, img)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return []string{out}, nil
}

// extractTileIndex validates the tile table, records grid gaps, and
// keeps the raw table on disk for downstream atlas tooling.
func (r *Runner) extractTileIndex(name string, blob []byte, stats *Stats) ([]string, error) {
	idx, err := formats.ParseTileIndex(blob)
	if err != nil {
		return nil, err
	}
	stats.addTileGaps(idx.Gaps())
	for _, w := range idx.Warnings() {
		stats.warn(w)
	}

	out := filepath.Join(r.opts.OutputDir, "tiles", sanitizeName(name))
	if err := writeOutput(out, blob); err != nil {
		return nil, err
	}
	return []string{out}, nil
}

func (r *Runner) extractSound(e *respack.Entry) ([]string, error) {
	refs, ok := respack.SoundRefs(e)
	if !ok || r.opts.Streamed == nil {
		// Nothing to demux; keep the entry's own bytes if it has any.
		blob, err := r.set.ReadEntry(e)
		if err != nil {
			return nil, err
		}
		return r.dumpRaw(e.Name, blob)
	}

	base := sanitizeName(e.Name)
	var outputs []string
	for _, ref := range refs {
		if !r.wantLanguage(ref.Language) {
			continue
		}
		payload, err := r.opts.Streamed.ReadRange(uint32(ref.Language), ref.Offset, ref.Size)
		if err != nil {
			return outputs, err
		}
		out := filepath.Join(r.opts.OutputDir, "sounds", base+"."+ref.Language.String())
		if err := writeOutput(out, payload); err != nil {
			return outputs, err
		}
		outputs = append(outputs, out)
	}
	return outputs, nil
}

func (r *Runner) wantLanguage(lang respack.Language) bool {
	if len(r.opts.Languages) == 0 || lang == respack.LangMain {
		return true
	}
	for _, l := range r.opts.Languages {
		if l == lang {
			return true
		}
	}
	return false
}

func (r *Runner) dumpRaw(name string, blob []byte) ([]string, error) {
	out := filepath.Join(r.opts.OutputDir, "raw", sanitizeName(name))
	if err := writeOutput(out, blob); err != nil {
		return nil, err
	}
	return []string{out}, nil
}

// sanitizeName makes an entry identifier safe to use as a relative
// output path: no drive colons, no parent traversal, forward slashes
// preserved as directories.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = strings.ReplaceAll(name, ":", "_")

	parts := strings.Split(name, "/")
	kept := parts[:0]
	for _, p := range parts {
		if p == "" || p == "." || p == ".." {
			continue
		}
		kept = append(kept, p)
	}
	if len(kept) == 0 {
		return "_unnamed"
	}
	return path.Join(kept...)
}

func createOutput(out string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return nil, err
	}
	return os.Create(out)
}

func writeOutput(out string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(out), 0755); err != nil {
		return err
	}
	return os.WriteFile(out, data, 0644)
}
