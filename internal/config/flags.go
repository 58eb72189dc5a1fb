package config

import (
	"flag"
	"strings"
)

// Flags holds command-line overrides. Only flags given on the command line apply.
type Flags struct {
	set *flag.FlagSet

	Config        string
	Debug         bool
	Padding       int
	Resolution    int
	TexelsPerUnit float64
	MaxAtlasSize  int
	RotationStep  float64
	Workers       int
	LogFile       string
	OutDir        string
	Formats       string
	Preview       bool
}

// RegisterFlags adds the shared configuration flags to fs.
func RegisterFlags(fs *flag.FlagSet) *Flags {
	f := &Flags{set: fs}
	fs.StringVar(&f.Config, "config", "", "Path to config file")
	fs.BoolVar(&f.Debug, "debug", false, "Enable debug logging")
	fs.IntVar(&f.Padding, "padding", 0, "Texels of padding around each chart")
	fs.IntVar(&f.Resolution, "resolution", 0, "Fixed atlas resolution (0 grows a single atlas)")
	fs.Float64Var(&f.TexelsPerUnit, "texels-per-unit", 0, "Texel density (0 estimates it)")
	fs.IntVar(&f.MaxAtlasSize, "max-atlas-size", 0, "Largest atlas side when growing")
	fs.Float64Var(&f.RotationStep, "rotation-step", 0, "Chart rotation step in degrees")
	fs.IntVar(&f.Workers, "workers", 0, "Worker goroutines (0 uses every CPU)")
	fs.StringVar(&f.LogFile, "log-file", "", "Also log to this file, with rotation")
	fs.StringVar(&f.OutDir, "out", "", "Output directory")
	fs.StringVar(&f.Formats, "formats", "", "Comma separated output formats (obj, glb)")
	fs.BoolVar(&f.Preview, "preview", false, "Write a PNG preview of every atlas")
	return f
}

// ConfigPath returns the explicit config path if provided via -config.
func (f *Flags) ConfigPath() string {
	return f.Config
}

// applyFlags applies CLI flag overrides to the config.
func (f *Flags) applyFlags(cfg *Config) {
	given := map[string]bool{}
	if f.set != nil {
		f.set.Visit(func(fl *flag.Flag) { given[fl.Name] = true })
	}

	if f.Debug {
		cfg.Logging.Level = "debug"
	}
	if given["padding"] {
		cfg.Pack.Padding = f.Padding
	}
	if given["resolution"] {
		cfg.Pack.Resolution = f.Resolution
	}
	if given["texels-per-unit"] {
		cfg.Pack.TexelsPerUnit = f.TexelsPerUnit
	}
	if given["max-atlas-size"] {
		cfg.Pack.MaxAtlasSize = f.MaxAtlasSize
	}
	if given["rotation-step"] {
		cfg.Pack.RotationStep = f.RotationStep
	}
	if given["workers"] {
		cfg.Workers = f.Workers
	}
	if f.LogFile != "" {
		cfg.Logging.LogFile = f.LogFile
	}
	if f.OutDir != "" {
		cfg.Output.Dir = f.OutDir
	}
	if f.Formats != "" {
		cfg.Output.Formats = splitList(f.Formats)
	}
	if f.Preview {
		cfg.Output.Preview = true
	}
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
