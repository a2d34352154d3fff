package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/arloliu/cper/generator"
)

var (
	genSeed     uint64
	genSections []string
	genCount    int
	genList     bool
)

func init() {
	rootCmd.AddCommand(newGenerateCmd())
}

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [output]",
		Short: "Generate pseudo-random records for testing",
		Long: `The generate command writes records with one pseudo-random section per
--sections entry. A fixed --seed reproduces the same records. With --count
greater than one the output must be a directory and records are written as
record-0001.cper, record-0002.cper and so on.

Example:
  cperconv generate --sections generic,memory,pcie out.cper
  cperconv generate --seed 42 --count 100 --sections arm corpus/
  cperconv generate --list`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("seed") {
				genSeed = uint64(time.Now().UnixNano())
			}

			return runGenerate(args)
		},
	}
	cmd.Flags().Uint64Var(&genSeed, "seed", 0, "Random seed (default: time based)")
	cmd.Flags().StringSliceVarP(&genSections, "sections", "s", []string{"generic"}, "Section keys, in record order")
	cmd.Flags().IntVarP(&genCount, "count", "n", 1, "Number of records")
	cmd.Flags().BoolVar(&genList, "list", false, "List section keys and exit")

	return cmd
}

func runGenerate(args []string) error {
	if genList {
		_, err := fmt.Fprintln(os.Stdout, strings.Join(generator.Keys(), "\n"))
		return err
	}
	if genCount < 1 {
		return fmt.Errorf("count must be positive, got %d", genCount)
	}

	var out string
	if len(args) == 1 {
		out = args[0]
	}
	if genCount > 1 && out == "" {
		return fmt.Errorf("an output directory is required with --count %d", genCount)
	}

	logger.Info().Uint64("seed", genSeed).Strs("sections", genSections).Int("count", genCount).Msg("generating records")

	gen := generator.NewSeeded(genSeed)
	if genCount == 1 {
		data, err := gen.Record(genSections...)
		if err != nil {
			return err
		}

		return writeOutput(out, data, false)
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return err
	}
	for i := range genCount {
		data, err := gen.Record(genSections...)
		if err != nil {
			return err
		}
		name := filepath.Join(out, outputExt(fmt.Sprintf("record-%04d.cper", i+1)))
		if err := writeOutput(name, data, false); err != nil {
			return err
		}
	}

	return nil
}
