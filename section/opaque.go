package section

import (
	"bytes"

	"github.com/arloliu/cper/errs"
)

// Opaque preserves a payload whose type has no codec. It renders as its
// length and the base64 of its bytes.
type Opaque struct {
	Length int    `json:"length"`
	Data   []byte `json:"data"`
}

func newOpaque() Body {
	return &Opaque{}
}

// Parse implements Body. Any payload, including an empty one, is accepted.
func (o *Opaque) Parse(data []byte) error {
	o.Length = len(data)
	o.Data = bytes.Clone(data)
	if o.Data == nil {
		o.Data = []byte{}
	}

	return nil
}

// Bytes implements Body.
func (o *Opaque) Bytes() ([]byte, error) {
	if o.Length != len(o.Data) {
		return nil, errs.InvalidTree("opaque section: length %d does not match %d data bytes", o.Length, len(o.Data))
	}

	return bytes.Clone(o.Data), nil
}
