// idres is a CLI utility for extracting id-engine .index/.resources
// archives.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"

	"github.com/crowbyte/idres/internal/config"
	"github.com/crowbyte/idres/internal/extract"
	"github.com/crowbyte/idres/internal/logger"
	"github.com/crowbyte/idres/pkg/export"
	"github.com/crowbyte/idres/pkg/formats"
	"github.com/crowbyte/idres/pkg/respack"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "info":
		cmdInfo(args)
	case "list", "ls":
		cmdList(args)
	case "extract", "x":
		cmdExtract(args)
	case "tiles":
		cmdTiles(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`idres - id-engine resource archive extraction utility

Usage:
  idres <command> [options]

Commands:
  info <file.index>                   Show archive information
  list [options] <file.index> [pattern]    List entries (optional glob pattern)
  extract [options] <file.index>...        Extract all entries
  tiles [options] <file.index> <entry>     Inspect or extract virtual texture tiles

Examples:
  idres info base.index
  idres list base.index "*.bimage"
  idres extract -out ./extracted -workers 8 base.index
  idres tiles -streamed ./streamed base.index textures/world.idxma`)
}

func openArchive(path string) *respack.Archive {
	archive, err := respack.OpenIndex(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	return archive
}

func cmdInfo(args []string) {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: idres info <file.index>")
		os.Exit(1)
	}

	archive := openArchive(args[0])

	kindCount := make(map[string]int)
	tagCount := make(map[string]int)
	var totalSize, totalStored uint64
	for _, e := range archive.Entries() {
		kindCount[e.Kind().String()]++
		tagCount[e.Type]++
		totalSize += uint64(e.Size)
		totalStored += uint64(e.ZSize)
	}

	fmt.Printf("Archive:  %s\n", args[0])
	fmt.Printf("Entries:  %d\n", archive.Len())
	fmt.Printf("Size:     %.2f MB (%.2f MB stored)\n",
		float64(totalSize)/(1024*1024), float64(totalStored)/(1024*1024))
	fmt.Println()
	fmt.Println("Entries by kind:")

	type stat struct {
		name  string
		count int
	}
	var stats []stat
	for name, count := range kindCount {
		stats = append(stats, stat{name, count})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].count > stats[j].count })
	for _, s := range stats {
		fmt.Printf("  %-12s %d\n", s.name, s.count)
	}

	fmt.Println()
	fmt.Println("Entries by type tag:")
	stats = stats[:0]
	for name, count := range tagCount {
		stats = append(stats, stat{name, count})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].count > stats[j].count })
	for _, s := range stats {
		if s.count >= 10 {
			fmt.Printf("  %-20s %d\n", s.name, s.count)
		}
	}

	for _, w := range archive.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func cmdList(args []string) {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	limit := fs.Int("n", 0, "Limit output to N entries (0 = all)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: idres list <file.index> [pattern]")
		os.Exit(1)
	}

	archive := openArchive(fs.Arg(0))

	pattern := ""
	if fs.NArg() > 1 {
		pattern = strings.ToLower(fs.Arg(1))
	}

	count := 0
	for _, e := range archive.Entries() {
		if pattern != "" {
			matched, _ := filepath.Match(pattern, strings.ToLower(filepath.Base(e.Name)))
			if !matched && !strings.Contains(strings.ToLower(e.Name), pattern) {
				continue
			}
		}
		fmt.Printf("%-12s %10d  %s\n", e.Kind(), e.Size, e.Name)
		count++
		if *limit > 0 && count >= *limit {
			break
		}
	}

	if pattern != "" {
		fmt.Fprintf(os.Stderr, "\n(%d entries matched)\n", count)
	}
}

func cmdExtract(args []string) {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	flags := config.RegisterFlags(fs)
	streamedDir := fs.String("streamed", "", "Directory with streamed resource files")
	fs.Parse(args)

	cfg, err := config.Load(flags.ConfigPath())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	flags.Apply(cfg)
	if *streamedDir != "" {
		cfg.Archives.StreamedDir = *streamedDir
	}

	indexPaths := fs.Args()
	if len(indexPaths) == 0 {
		indexPaths = cfg.Archives.IndexPaths
	}
	if len(indexPaths) == 0 {
		fmt.Fprintln(os.Stderr, "Usage: idres extract [options] <file.index>...")
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	opts := extract.Options{
		OutputDir: cfg.Extract.OutputDir,
		Workers:   cfg.Extract.Workers,
		Mesh: export.MeshOptions{
			RotateXNeg90:  cfg.Export.RotateXNeg90,
			FlipUV:        cfg.Export.FlipUV,
			FlipWinding:   cfg.Export.FlipWinding,
			SmoothNormals: cfg.Export.SmoothNormals,
		},
		Languages: parseLanguages(cfg.Extract.Languages),
	}
	if cfg.Archives.StreamedDir != "" {
		streamed := respack.OpenStreamed(cfg.Archives.StreamedDir)
		defer streamed.Close()
		opts.Streamed = streamed
	}

	// Ctrl-C stops intake; in-flight entries finish.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	failures := 0
	for _, indexPath := range indexPaths {
		archive, err := respack.OpenIndex(indexPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			failures++
			continue
		}

		set := respack.OpenResources(indexPath)
		runner := extract.NewRunner(archive, set, opts)
		stats, err := runner.Run(ctx)
		set.Close()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Run stopped: %v\n", err)
		}

		if len(indexPaths) > 1 {
			fmt.Printf("\n== %s ==\n", indexPath)
		}
		printStats(stats)
		failures += stats.Failed
		if ctx.Err() != nil {
			break
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func printStats(stats *extract.Stats) {
	fmt.Printf("\nProcessed: %d\n", stats.Processed)
	fmt.Printf("Succeeded: %d\n", stats.Succeeded)
	fmt.Printf("Failed:    %d\n", stats.Failed)
	if stats.SubmeshFailed > 0 {
		fmt.Printf("Submeshes skipped: %d\n", stats.SubmeshFailed)
	}
	if stats.TileGaps > 0 {
		fmt.Printf("Tile grid gaps: %d\n", stats.TileGaps)
	}
	if len(stats.ByReason) > 0 {
		fmt.Println("\nFailures by reason:")
		for reason, count := range stats.ByReason {
			fmt.Printf("  %-28s %d\n", reason, count)
		}
	}
	for _, w := range stats.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
}

func parseLanguages(names []string) []respack.Language {
	byName := map[string]respack.Language{
		"main":    respack.LangMain,
		"english": respack.LangEnglish,
		"french":  respack.LangFrench,
		"italian": respack.LangItalian,
		"spanish": respack.LangSpanish,
	}
	var langs []respack.Language
	for _, n := range names {
		if l, ok := byName[strings.ToLower(n)]; ok {
			langs = append(langs, l)
		}
	}
	return langs
}

func cmdTiles(args []string) {
	fs := flag.NewFlagSet("tiles", flag.ExitOnError)
	streamedDir := fs.String("streamed", "", "Directory with streamed resource files")
	tile := fs.String("tile", "", "Extract one tile given as mip,x,y")
	out := fs.String("out", ".", "Output directory for extracted tiles")
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: idres tiles [options] <file.index> <entry>")
		os.Exit(1)
	}

	indexPath := fs.Arg(0)
	archive := openArchive(indexPath)

	entry, ok := archive.Lookup(fs.Arg(1))
	if !ok {
		fmt.Fprintf(os.Stderr, "Entry not found: %s\n", fs.Arg(1))
		os.Exit(1)
	}

	set := respack.OpenResources(indexPath)
	defer set.Close()

	blob, err := set.ReadEntry(entry)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading entry: %v\n", err)
		os.Exit(1)
	}

	idx, err := formats.ParseTileIndex(blob)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error parsing tile index: %v\n", err)
		os.Exit(1)
	}

	if *tile == "" {
		fmt.Printf("Tile index: %s (version %d, %d tiles)\n", entry.Name, idx.Version, idx.Len())
		for _, rec := range idx.Tiles {
			fmt.Printf("  mip %2d (%4d,%4d)  file %d  offset 0x%X  size %d\n",
				rec.Mip, rec.X, rec.Y, rec.FileIndex, rec.Offset, rec.Size)
		}
		for _, gap := range idx.Gaps() {
			fmt.Fprintf(os.Stderr, "gap: mip %d has %d of %d tiles\n", gap.Mip, gap.Present, gap.Expected)
		}
		for _, w := range idx.Warnings() {
			fmt.Fprintf(os.Stderr, "warning: %s\n", w)
		}
		return
	}

	var mip, x, y uint16
	if _, err := fmt.Sscanf(*tile, "%d,%d,%d", &mip, &x, &y); err != nil {
		fmt.Fprintln(os.Stderr, "Invalid -tile, expected mip,x,y")
		os.Exit(1)
	}
	if *streamedDir == "" {
		fmt.Fprintln(os.Stderr, "-streamed is required to extract tile payloads")
		os.Exit(1)
	}

	streamed := respack.OpenStreamed(*streamedDir)
	defer streamed.Close()

	payload, err := idx.ExtractTile(streamed, mip, x, y)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	outputPath := filepath.Join(*out, fmt.Sprintf("%s_m%d_%d_%d.tile", filepath.Base(entry.Name), mip, x, y))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		fmt.Fprintf(os.Stderr, "Error creating directory: %v\n", err)
		os.Exit(1)
	}
	if err := os.WriteFile(outputPath, payload, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(payload))
}
