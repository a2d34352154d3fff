// Package bitfield converts packed integer fields to and from their named
// intermediate-tree forms.
//
// Three shapes cover every packed field in a CPER record:
//
//   - Named: a validity bitmask or an independent flag set, one boolean per
//     named bit position, emitted in bit order.
//   - Enum: a small integer with an optional human-readable label.
//   - Packer/Field: multi-bit subfields inside a wider register.
//
// Bit positions that have no name are reserved. They are never emitted and
// always encode as zero, which is how reserved bits are normalised.
package bitfield

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/arloliu/cper/errs"
)

// Bit is one named bit position and its state.
type Bit struct {
	Name string
	Set  bool
}

// Named is an ordered mapping of bit name to boolean.
//
// It marshals as a JSON object whose keys keep bit order, so the tree reads in
// the same order as the specification tables.
type Named []Bit

// ToNamed maps each bit position i in [0, bitCount) to names[i].
//
// Positions at or beyond len(names) are treated as reserved and not emitted.
func ToNamed(value uint64, bitCount int, names []string) Named {
	n := min(bitCount, len(names), 64)
	if n <= 0 {
		return Named{}
	}

	out := make(Named, n)
	for i := range n {
		out[i] = Bit{Name: names[i], Set: (value>>uint(i))&1 == 1}
	}

	return out
}

// FromNamed is the inverse of ToNamed.
//
// Bits not present in named, and bits without a name, encode as zero. A name
// that is not in names fails with ErrInvalidTree.
func FromNamed(named Named, names []string) (uint64, error) {
	var value uint64
	for _, b := range named {
		idx := slices.Index(names, b.Name)
		if idx < 0 || idx >= 64 {
			return 0, errs.InvalidTree("undefined bit %q", b.Name)
		}
		if b.Set {
			value |= 1 << uint(idx)
		}
	}

	return value, nil
}

// Get returns the state of the named bit, false when absent.
func (n Named) Get(name string) bool {
	for _, b := range n {
		if b.Name == name {
			return b.Set
		}
	}

	return false
}

// MarshalJSON implements json.Marshaler.
func (n Named) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, b := range n {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(b.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if b.Set {
			buf.WriteString("true")
		} else {
			buf.WriteString("false")
		}
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping key order.
func (n *Named) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		return nil
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errs.InvalidTree("bitfield: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errs.InvalidTree("bitfield: expected object, got %v", tok)
	}

	out := Named{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errs.InvalidTree("bitfield: %v", err)
		}
		key, _ := keyTok.(string)

		valTok, err := dec.Token()
		if err != nil {
			return errs.InvalidTree("bitfield: %v", err)
		}
		set, ok := valTok.(bool)
		if !ok {
			return errs.InvalidTree("bitfield: bit %q must be a boolean", key)
		}
		if slices.ContainsFunc(out, func(b Bit) bool { return b.Name == key }) {
			return errs.InvalidTree("bitfield: duplicate bit %q", key)
		}
		out = append(out, Bit{Name: key, Set: set})
	}

	*n = out

	return nil
}
