package options

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// converter mimics the config structs the conversion entry points build.
type converter struct {
	format   string
	indent   string
	registry []string
	applied  []string
}

var errUnknownFormat = errors.New("unknown format")

func withFormat(f string) Option[*converter] {
	return New(func(c *converter) error {
		if f != "json" && f != "yaml" {
			return errUnknownFormat
		}
		c.format = f
		c.applied = append(c.applied, "format")

		return nil
	})
}

func withIndent(indent string) Option[*converter] {
	return NoError(func(c *converter) {
		c.indent = indent
		c.applied = append(c.applied, "indent")
	})
}

func withCodecs(keys ...string) Option[*converter] {
	return NoError(func(c *converter) {
		c.registry = append(c.registry, keys...)
		c.applied = append(c.applied, "codecs")
	})
}

func TestNew(t *testing.T) {
	t.Run("applies a valid value", func(t *testing.T) {
		c := &converter{}
		require.NoError(t, withFormat("yaml").apply(c))
		require.Equal(t, "yaml", c.format)
	})

	t.Run("propagates the error", func(t *testing.T) {
		c := &converter{}
		err := withFormat("xml").apply(c)
		require.ErrorIs(t, err, errUnknownFormat)
		require.Empty(t, c.format)
	})

	t.Run("nil function is a no-op", func(t *testing.T) {
		var fn func(*converter) error
		require.NoError(t, New(fn).apply(&converter{}))
	})
}

func TestNoError(t *testing.T) {
	c := &converter{}
	require.NoError(t, withIndent("\t").apply(c))
	require.Equal(t, "\t", c.indent)
}

func TestApply(t *testing.T) {
	t.Run("applies in order", func(t *testing.T) {
		c := &converter{}
		err := Apply(c, withCodecs("generic"), withFormat("json"), withIndent("  "), withCodecs("memory"))
		require.NoError(t, err)
		require.Equal(t, []string{"codecs", "format", "indent", "codecs"}, c.applied)
		require.Equal(t, []string{"generic", "memory"}, c.registry)
	})

	t.Run("later options win", func(t *testing.T) {
		c := &converter{}
		require.NoError(t, Apply(c, withIndent("  "), withIndent("")))
		require.Empty(t, c.indent)
	})

	t.Run("stops at the first error", func(t *testing.T) {
		c := &converter{}
		err := Apply(c, withIndent("  "), withFormat("xml"), withCodecs("memory"))
		require.ErrorIs(t, err, errUnknownFormat)
		require.Equal(t, []string{"indent"}, c.applied)
		require.Empty(t, c.registry)
	})

	t.Run("skips nil options", func(t *testing.T) {
		c := &converter{}
		require.NoError(t, Apply(c, nil, withIndent("  "), nil))
		require.Equal(t, "  ", c.indent)
	})

	t.Run("no options", func(t *testing.T) {
		c := &converter{}
		require.NoError(t, Apply(c))
		require.Equal(t, &converter{}, c)
	})
}

func TestPrimitiveTarget(t *testing.T) {
	var workers int
	require.NoError(t, Apply(&workers, NoError(func(n *int) { *n = 4 })))
	require.Equal(t, 4, workers)
}
