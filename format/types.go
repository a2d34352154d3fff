// Package format names the on-disk representations handled by the converter:
// the rendering of the intermediate tree and the compression wrapped around
// record files.
package format

import (
	"fmt"
	"strings"
)

type (
	TreeFormat      uint8
	CompressionType uint8
)

const (
	TreeJSON TreeFormat = 0x1 // TreeJSON renders the tree as JSON; JSONC is accepted on input.
	TreeYAML TreeFormat = 0x2 // TreeYAML renders the tree as YAML.
	TreeCBOR TreeFormat = 0x3 // TreeCBOR renders the tree as deterministic CBOR.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents a Zstandard frame.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents an S2 stream.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents an LZ4 frame.
)

func (f TreeFormat) String() string {
	switch f {
	case TreeJSON:
		return "JSON"
	case TreeYAML:
		return "YAML"
	case TreeCBOR:
		return "CBOR"
	default:
		return "Unknown"
	}
}

// Ext returns the conventional file extension for f, including the dot.
func (f TreeFormat) Ext() string {
	switch f {
	case TreeYAML:
		return ".yaml"
	case TreeCBOR:
		return ".cbor"
	default:
		return ".json"
	}
}

// ParseTreeFormat parses a tree format name as used in flags and config files.
func ParseTreeFormat(s string) (TreeFormat, error) {
	switch strings.ToLower(s) {
	case "json", "jsonc":
		return TreeJSON, nil
	case "yaml", "yml":
		return TreeYAML, nil
	case "cbor":
		return TreeCBOR, nil
	default:
		return 0, fmt.Errorf("unknown tree format %q", s)
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}

// ParseCompressionType parses a compression name as used in flags and config files.
func ParseCompressionType(s string) (CompressionType, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return CompressionNone, nil
	case "zstd", "zst":
		return CompressionZstd, nil
	case "s2":
		return CompressionS2, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q", s)
	}
}
