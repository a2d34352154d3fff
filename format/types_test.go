package format

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseTreeFormat(t *testing.T) {
	tests := []struct {
		in   string
		want TreeFormat
	}{
		{"json", TreeJSON},
		{"JSONC", TreeJSON},
		{"yml", TreeYAML},
		{"yaml", TreeYAML},
		{"cbor", TreeCBOR},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseTreeFormat(tt.in)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := ParseTreeFormat("xml")
	require.Error(t, err)
}

func TestParseCompressionType(t *testing.T) {
	c, err := ParseCompressionType("")
	require.NoError(t, err)
	require.Equal(t, CompressionNone, c)

	c, err = ParseCompressionType("ZSTD")
	require.NoError(t, err)
	require.Equal(t, CompressionZstd, c)
	require.Equal(t, "Zstd", c.String())

	_, err = ParseCompressionType("brotli")
	require.Error(t, err)
}

func TestTreeFormatExt(t *testing.T) {
	require.Equal(t, ".json", TreeJSON.Ext())
	require.Equal(t, ".yaml", TreeYAML.Ext())
	require.Equal(t, ".cbor", TreeCBOR.Ext())
	require.Equal(t, "Unknown", TreeFormat(9).String())
}
