// Package config handles uvatlas configuration loading and management.
package config

import (
	"fmt"

	"github.com/Faultbox/uvatlas/internal/logger"
	"github.com/Faultbox/uvatlas/pkg/atlas"
)

// Output formats understood by the generate command.
const (
	FormatOBJ = "obj"
	FormatGLB = "glb"
)

// Config holds all uvatlas settings.
type Config struct {
	Chart   atlas.ChartOptions `yaml:"chart"`
	Pack    atlas.PackOptions  `yaml:"pack"`
	Output  OutputConfig       `yaml:"output"`
	Logging LoggingConfig      `yaml:"logging"`
	// Workers is the number of goroutines used by the pipeline; 0 uses every CPU.
	Workers int `yaml:"workers"`
}

// OutputConfig holds where and how results are written.
type OutputConfig struct {
	Dir     string   `yaml:"dir"`
	Formats []string `yaml:"formats"`
	// Preview writes a PNG of the chart layout per atlas.
	Preview      bool `yaml:"preview"`
	PreviewScale int  `yaml:"preview_scale"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level"`
	LogFile string `yaml:"log_file"`
	JSON    bool   `yaml:"json"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Chart: atlas.DefaultChartOptions(),
		Pack:  atlas.DefaultPackOptions(),
		Output: OutputConfig{
			Dir:          ".",
			Formats:      []string{FormatOBJ},
			PreviewScale: 1,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate checks the settings the atlas options do not cover.
func (c *Config) Validate() error {
	if err := c.Chart.Validate(); err != nil {
		return fmt.Errorf("chart: %w", err)
	}
	if err := c.Pack.Validate(); err != nil {
		return fmt.Errorf("pack: %w", err)
	}
	for _, f := range c.Output.Formats {
		if f != FormatOBJ && f != FormatGLB {
			return fmt.Errorf("output: unknown format %q (want %s or %s)", f, FormatOBJ, FormatGLB)
		}
	}
	if c.Output.PreviewScale < 1 {
		return fmt.Errorf("output: preview_scale must be at least 1, got %d", c.Output.PreviewScale)
	}
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	return nil
}

// Options returns the pipeline options.
func (c *Config) Options() (atlas.ChartOptions, atlas.PackOptions) {
	return c.Chart, c.Pack
}

// LoggerOptions returns the logger settings for the console writer.
func (c *Config) LoggerOptions() logger.Options {
	opts := logger.Options{Level: c.Logging.Level, JSON: c.Logging.JSON}
	if c.Logging.LogFile != "" {
		opts.File = logger.DefaultFileConfig(c.Logging.LogFile)
	}
	return opts
}

// HasFormat reports whether format is one of the configured outputs.
func (c *Config) HasFormat(format string) bool {
	for _, f := range c.Output.Formats {
		if f == format {
			return true
		}
	}
	return false
}
