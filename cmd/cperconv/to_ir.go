package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arloliu/cper"
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/section"
)

var sectionType string

func init() {
	rootCmd.AddCommand(newToIRCmd())
}

func newToIRCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "to-ir <input> [output]",
		Short: "Convert a binary record to its tree",
		Long: `The to-ir command decodes a binary CPER record and writes its tree.
Use "-" to read from stdin. Output goes to stdout unless a file is named.

With --section the input is a bare section payload instead of a record. The
section type is a GUID or a section key such as "memory" or "pcie".

Example:
  cperconv to-ir error.cper
  cperconv to-ir error.cper error.yaml --format yaml
  cperconv to-ir payload.bin --section memory`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runToIR(args)
		},
	}
	cmd.Flags().StringVar(&sectionType, "section", "", "Treat input as a single section of this type (GUID or key)")

	return cmd
}

func runToIR(args []string) error {
	data, err := readInput(args[0])
	if err != nil {
		return err
	}

	opts := []cper.Option{cper.WithFormat(settings.Format), cper.WithIndent(settings.Indent)}

	var tree []byte
	if sectionType != "" {
		g, err := parseSectionType(sectionType)
		if err != nil {
			return err
		}
		tree, err = cper.SingleSectionToTree(data, g, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	} else {
		tree, err = cper.RecordToTree(data, opts...)
		if err != nil {
			return fmt.Errorf("%s: %w", args[0], err)
		}
	}

	return writeOutput(outputArg(args), tree, treeText())
}

// parseSectionType accepts a GUID or a registered section key.
func parseSectionType(s string) (guid.GUID, error) {
	if c, ok := section.DefaultRegistry().LookupKey(s); ok {
		return c.GUID, nil
	}

	g, err := guid.Parse(s)
	if err != nil {
		return guid.GUID{}, fmt.Errorf("unknown section type %q", s)
	}

	return g, nil
}

func outputArg(args []string) string {
	if len(args) > 1 {
		return args[1]
	}

	return ""
}
