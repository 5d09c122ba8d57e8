package config

import (
	"flag"
	"os"
	"path/filepath"
	"testing"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Extract.OutputDir != "extracted" {
		t.Errorf("unexpected default output dir %q", cfg.Extract.OutputDir)
	}
	if !cfg.Export.RotateXNeg90 || !cfg.Export.SmoothNormals {
		t.Error("mesh transforms should default on")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("unexpected default log level %q", cfg.Logging.Level)
	}
}

func TestLoadLayering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "idres.yaml")
	content := `
extract:
  output_dir: /tmp/out
  workers: 4
logging:
  level: warn
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	// File values win over defaults.
	if cfg.Extract.OutputDir != "/tmp/out" || cfg.Extract.Workers != 4 {
		t.Errorf("file values not applied: %+v", cfg.Extract)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("file log level not applied: %q", cfg.Logging.Level)
	}
	// Untouched sections keep their defaults.
	if !cfg.Export.FlipUV {
		t.Error("unset export section should keep defaults")
	}
}

func TestFlagsOverride(t *testing.T) {
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	flags := RegisterFlags(fs)
	if err := fs.Parse([]string{"-out", "/tmp/cli", "-debug", "-no-transforms"}); err != nil {
		t.Fatal(err)
	}

	cfg := Default()
	flags.Apply(cfg)

	if cfg.Extract.OutputDir != "/tmp/cli" {
		t.Errorf("flag output dir not applied: %q", cfg.Extract.OutputDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("debug flag not applied: %q", cfg.Logging.Level)
	}
	if cfg.Export.RotateXNeg90 || cfg.Export.SmoothNormals {
		t.Error("-no-transforms should clear the export transforms")
	}
}

func TestSaveTo(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sub", "config.yaml")

	cfg := Default()
	cfg.Extract.Workers = 7
	if err := cfg.SaveTo(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Extract.Workers != 7 {
		t.Errorf("round-trip lost workers: %d", loaded.Extract.Workers)
	}
}
