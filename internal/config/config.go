// Package config handles extraction tool configuration loading and
// management.
package config

// Config holds all extraction settings.
type Config struct {
	Archives ArchiveConfig `yaml:"archives"`
	Extract  ExtractConfig `yaml:"extract"`
	Export   ExportConfig  `yaml:"export"`
	Logging  LoggingConfig `yaml:"logging"`
}

// ArchiveConfig holds input archive locations.
type ArchiveConfig struct {
	IndexPaths  []string `yaml:"index_paths"`  // .index files to open
	StreamedDir string   `yaml:"streamed_dir"` // directory holding streamed resource files
}

// ExtractConfig holds extraction run settings.
type ExtractConfig struct {
	OutputDir string   `yaml:"output_dir"`
	Workers   int      `yaml:"workers"` // 0 = one per CPU
	Languages []string `yaml:"languages"`
}

// ExportConfig holds mesh export transform settings.
type ExportConfig struct {
	RotateXNeg90  bool `yaml:"rotate_x_neg90"`
	FlipUV        bool `yaml:"flip_uv"`
	FlipWinding   bool `yaml:"flip_winding"`
	SmoothNormals bool `yaml:"smooth_normals"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Extract: ExtractConfig{
			OutputDir: "extracted",
			Workers:   0,
			Languages: []string{"english"},
		},
		Export: ExportConfig{
			RotateXNeg90:  true,
			FlipUV:        true,
			FlipWinding:   true,
			SmoothNormals: true,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
