// Package cper converts UEFI Common Platform Error Records (CPER) to and from
// a human-readable intermediate tree, losslessly and in both directions.
//
// A record is a 128-byte header, a table of section descriptors and the
// section payloads. The tree spells out every field by name: validation and
// flag bits become named booleans, enumerations carry their label next to the
// value, and GUIDs are printed with the name of what they identify. Section
// types without a codec keep their payload as base64, so every record
// converts.
//
// # Basic Usage
//
// Converting a record to its JSON tree and back:
//
//	import "github.com/arloliu/cper"
//
//	tree, err := cper.RecordToTree(recordBytes, cper.WithIndent("  "))
//	if err != nil {
//	    return err
//	}
//
//	// ... edit the tree ...
//
//	out, err := cper.TreeToRecord(tree)
//
// Converting a bare section payload, whose type the caller supplies:
//
//	tree, err := cper.SingleSectionToTree(payload, section.MemoryGUID)
//	payload, err = cper.TreeToSingleSection(tree)
//
// Trees can also be rendered as YAML or CBOR with WithFormat. On input the
// format is detected when WithFormat is not given, and JSON may carry
// comments.
//
// # Errors
//
// Every error wraps errs.ErrMalformedRecord (bad binary input) or
// errs.ErrInvalidTree (a tree that cannot be encoded). Test with errors.Is.
//
// # Package Structure
//
// This package wraps the record, section and ir packages for the common
// cases. Use record.Decode and record.Encode directly to work with the typed
// Record value instead of rendered bytes.
package cper

import (
	"fmt"

	"github.com/arloliu/cper/format"
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/internal/options"
	"github.com/arloliu/cper/ir"
	"github.com/arloliu/cper/record"
	"github.com/arloliu/cper/section"
)

// Config holds the conversion settings.
type Config struct {
	format   format.TreeFormat // zero renders JSON and detects on input
	indent   string
	registry *section.Registry
}

// Option configures a conversion.
type Option = options.Option[*Config]

// WithFormat selects the tree format for output and input.
func WithFormat(f format.TreeFormat) Option {
	return options.New(func(c *Config) error {
		switch f {
		case format.TreeJSON, format.TreeYAML, format.TreeCBOR:
			c.format = f
			return nil
		default:
			return fmt.Errorf("unsupported tree format: %s", f)
		}
	})
}

// WithIndent pretty-prints JSON output with the given indent.
func WithIndent(indent string) Option {
	return options.NoError(func(c *Config) {
		c.indent = indent
	})
}

// WithRegistry selects the section registry. A nil registry keeps the
// default.
func WithRegistry(r *section.Registry) Option {
	return options.NoError(func(c *Config) {
		if r != nil {
			c.registry = r
		}
	})
}

func newConfig(opts []Option) (*Config, error) {
	c := &Config{registry: section.DefaultRegistry()}
	if err := options.Apply(c, opts...); err != nil {
		return nil, err
	}

	return c, nil
}

func (c *Config) outputFormat() format.TreeFormat {
	if c.format == 0 {
		return format.TreeJSON
	}

	return c.format
}

func (c *Config) treeJSON(tree []byte) ([]byte, error) {
	f := c.format
	if f == 0 {
		f = ir.Detect(tree)
	}

	return ir.ToJSON(tree, f)
}

// RecordToTree decodes a binary record and renders its tree.
//
// Parameters:
//   - data: record bytes
//   - opts: WithFormat, WithIndent, WithRegistry
//
// Returns:
//   - []byte: rendered tree
//   - error: ErrMalformedRecord if data is not a valid record
func RecordToTree(data []byte, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	rec, err := record.Decode(data, record.WithRegistry(cfg.registry))
	if err != nil {
		return nil, err
	}

	return ir.Render(rec, cfg.outputFormat(), cfg.indent)
}

// TreeToRecord parses a rendered tree and encodes the binary record.
// Offsets, lengths, counts and the record length are recomputed.
//
// Parameters:
//   - tree: rendered tree in JSON, JSONC, YAML or CBOR
//   - opts: WithFormat, WithRegistry
//
// Returns:
//   - []byte: record bytes
//   - error: ErrInvalidTree if the tree cannot be encoded
func TreeToRecord(tree []byte, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	js, err := cfg.treeJSON(tree)
	if err != nil {
		return nil, err
	}
	rec, err := record.ParseTree(js, record.WithRegistry(cfg.registry))
	if err != nil {
		return nil, err
	}

	return record.Encode(rec, record.WithRegistry(cfg.registry))
}

// SingleSectionToTree decodes one section payload of type sectionType and
// renders its tree.
func SingleSectionToTree(data []byte, sectionType guid.GUID, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	s, err := record.DecodeSingle(data, sectionType, record.WithRegistry(cfg.registry))
	if err != nil {
		return nil, err
	}

	return ir.Render(s, cfg.outputFormat(), cfg.indent)
}

// TreeToSingleSection parses a single-section tree and encodes its payload.
// The section type is taken from the tree.
func TreeToSingleSection(tree []byte, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	js, err := cfg.treeJSON(tree)
	if err != nil {
		return nil, err
	}
	s, err := record.ParseSingleTree(js, record.WithRegistry(cfg.registry))
	if err != nil {
		return nil, err
	}

	return record.EncodeSingle(s, record.WithRegistry(cfg.registry))
}

// NormalizeRecord decodes and re-encodes a record. The result has reserved
// bytes zeroed, gaps between payloads removed and derived fields recomputed,
// so two records that carry the same information normalise to the same
// bytes.
func NormalizeRecord(data []byte, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	rec, err := record.Decode(data, record.WithRegistry(cfg.registry))
	if err != nil {
		return nil, err
	}

	return record.Encode(rec, record.WithRegistry(cfg.registry))
}
