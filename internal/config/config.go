// Package config loads the cperconv settings file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/arloliu/cper/format"
)

// Config holds the CLI defaults. Command-line flags override every field.
type Config struct {
	Format      format.TreeFormat
	Indent      string
	Compression format.CompressionType
	Workers     int
	LogLevel    string
}

type fileConfig struct {
	Format      string `toml:"format"`
	Indent      string `toml:"indent"`
	Compression string `toml:"compression"`
	Workers     int    `toml:"workers"`
	LogLevel    string `toml:"log_level"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Format:      format.TreeJSON,
		Indent:      "  ",
		Compression: format.CompressionNone,
		Workers:     runtime.NumCPU(),
		LogLevel:    "info",
	}
}

// DefaultPath returns the settings file location under the user config
// directory, or an empty string when there is none.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}

	return filepath.Join(dir, "cperconv", "config.toml")
}

// Load reads the settings file at path over Default.
//
// A missing file is not an error when optional is true, which is how the
// default path is read. Unknown keys are rejected.
func Load(path string, optional bool) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}

		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown key %q", path, undecoded[0].String())
	}

	if meta.IsDefined("format") {
		f, err := format.ParseTreeFormat(strings.TrimSpace(raw.Format))
		if err != nil {
			return Config{}, fmt.Errorf("parse format: %w", err)
		}
		cfg.Format = f
	}

	if meta.IsDefined("indent") {
		cfg.Indent = raw.Indent
	}

	if meta.IsDefined("compression") {
		c, err := format.ParseCompressionType(strings.TrimSpace(raw.Compression))
		if err != nil {
			return Config{}, fmt.Errorf("parse compression: %w", err)
		}
		cfg.Compression = c
	}

	if meta.IsDefined("workers") {
		if raw.Workers < 1 {
			return Config{}, fmt.Errorf("parse workers: must be positive, got %d", raw.Workers)
		}
		cfg.Workers = raw.Workers
	}

	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}

	return cfg, nil
}
