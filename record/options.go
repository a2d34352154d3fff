package record

import (
	"github.com/arloliu/cper/internal/options"
	"github.com/arloliu/cper/section"
)

// Config holds the settings shared by the record and single-section codecs.
type Config struct {
	registry *section.Registry
}

// Option configures a record or single-section conversion.
type Option = options.Option[*Config]

// WithRegistry selects the section registry used to resolve section types.
// A nil registry keeps the default, section.DefaultRegistry().
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
