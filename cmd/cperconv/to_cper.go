package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arloliu/cper"
)

var single bool

func init() {
	rootCmd.AddCommand(newToCPERCmd())
}

func newToCPERCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "to-cper <input> [output]",
		Short: "Encode a tree back to a binary record",
		Long: `The to-cper command reads a tree in JSON, YAML or CBOR and writes the
binary record. The tree format is detected unless --format is given, and
JSON may contain comments. Offsets, lengths and counts are recomputed, so
they need not be kept in sync when editing a tree.

Example:
  cperconv to-cper error.json error.cper
  cperconv to-cper section.yaml payload.bin --single`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []cper.Option
			if cmd.Flags().Changed("format") {
				opts = append(opts, cper.WithFormat(settings.Format))
			}

			return runToCPER(args, opts)
		},
	}
	cmd.Flags().BoolVar(&single, "single", false, "Input is a single-section tree")

	return cmd
}

func runToCPER(args []string, opts []cper.Option) error {
	tree, err := readInput(args[0])
	if err != nil {
		return err
	}

	var out []byte
	if single {
		out, err = cper.TreeToSingleSection(tree, opts...)
	} else {
		out, err = cper.TreeToRecord(tree, opts...)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	return writeOutput(outputArg(args), out, false)
}
