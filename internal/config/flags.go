package config

import "flag"

// Flags holds CLI overrides registered on a subcommand's flag set.
type Flags struct {
	configPath *string
	outputDir  *string
	workers    *int
	debug      *bool
	logFile    *string
	flat       *bool
}

// RegisterFlags adds the shared config overrides to a flag set. Parse
// the set, then call Apply.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	return &Flags{
		configPath: fs.String("config", "", "Path to config file"),
		outputDir:  fs.String("out", "", "Output directory"),
		workers:    fs.Int("workers", 0, "Worker count (0 = one per CPU)"),
		debug:      fs.Bool("debug", false, "Enable debug logging"),
		logFile:    fs.String("logfile", "", "Also log to this file"),
		flat:       fs.Bool("no-transforms", false, "Export meshes without coordinate transforms"),
	}
}

// ConfigPath returns the explicit config path, if one was given.
func (f *Flags) ConfigPath() string { return *f.configPath }

// Apply applies CLI flag overrides to the config.
func (f *Flags) Apply(cfg *Config) {
	if *f.outputDir != "" {
		cfg.Extract.OutputDir = *f.outputDir
	}
	if *f.workers > 0 {
		cfg.Extract.Workers = *f.workers
	}
	if *f.debug {
		cfg.Logging.Level = "debug"
	}
	if *f.logFile != "" {
		cfg.Logging.LogFile = *f.logFile
	}
	if *f.flat {
		cfg.Export = ExportConfig{}
	}
}
