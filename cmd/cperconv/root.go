package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/arloliu/cper/format"
	"github.com/arloliu/cper/internal/config"
	"github.com/arloliu/cper/internal/logging"
)

var (
	// Global flags
	configPath   string
	logLevel     string
	treeFormat   string
	indent       string
	compressWith string
)

// settings is the effective configuration: the config file overridden by
// flags. It is filled in before any subcommand runs.
var settings = config.Default()

var logger = zerolog.Nop()

var rootCmd = &cobra.Command{
	Use:   "cperconv",
	Short: "Convert UEFI CPER error records to and from a readable tree",
	Long: `cperconv converts UEFI Common Platform Error Records between their
binary form and an intermediate tree in JSON, YAML or CBOR. Conversion is
lossless in both directions, so an edited tree encodes back to a record.

Input files compressed with zstd, S2 or LZ4 are detected and decompressed.`,
	Version:           "0.1.0",
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default $XDG_CONFIG_HOME/cperconv/config.toml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (env "+logging.EnvLevel+")")
	rootCmd.PersistentFlags().StringVarP(&treeFormat, "format", "f", "", "Tree format: json, yaml, cbor")
	rootCmd.PersistentFlags().StringVar(&indent, "indent", "", "JSON indent (empty string for compact output)")
	rootCmd.PersistentFlags().StringVar(&compressWith, "compress", "", "Compress output: none, zstd, s2, lz4")
}

// setup loads the config file and applies flag overrides.
func setup(cmd *cobra.Command, _ []string) error {
	path, optional := configPath, false
	if path == "" {
		path, optional = config.DefaultPath(), true
	}

	cfg, err := config.Load(path, optional)
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("format") {
		if cfg.Format, err = format.ParseTreeFormat(treeFormat); err != nil {
			return err
		}
	}
	if flags.Changed("indent") {
		cfg.Indent = indent
	}
	if flags.Changed("compress") {
		if cfg.Compression, err = format.ParseCompressionType(compressWith); err != nil {
			return err
		}
	}
	settings = cfg

	logger, err = logging.New(os.Stderr, logging.ResolveLevel(logLevel, cfg.LogLevel))
	if err != nil {
		return err
	}
	logger.Debug().Str("config", path).Str("format", cfg.Format.String()).
		Str("compression", cfg.Compression.String()).Msg("settings loaded")

	return nil
}

func execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
