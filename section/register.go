package section

import (
	"bytes"
	"encoding/json"

	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/ir"
)

type fieldKind uint8

const (
	kindBits fieldKind = iota
	kindEnum
	kindUint
	kindFlag
)

// regField is one subfield of a packed 64-bit register.
type regField struct {
	key    string
	kind   fieldKind
	shift  uint
	width  uint
	names  []string          // kindBits
	labels map[uint64]string // kindEnum
}

func bitsAt(key string, shift, width uint, names ...string) regField {
	return regField{key: key, kind: kindBits, shift: shift, width: width, names: names}
}

func enumAt(key string, shift, width uint, labels map[uint64]string) regField {
	return regField{key: key, kind: kindEnum, shift: shift, width: width, labels: labels}
}

func uintAt(key string, shift, width uint) regField {
	return regField{key: key, kind: kindUint, shift: shift, width: width}
}

func flagAt(key string, bit uint) regField {
	return regField{key: key, kind: kindFlag, shift: bit, width: 1}
}

// regLayout describes how a packed register renders in the tree. Bits that no
// field covers are reserved.
type regLayout []regField

// Mask returns the bits that the layout preserves.
func (l regLayout) Mask() uint64 {
	var m uint64
	for _, f := range l {
		width := f.width
		if f.kind == kindBits {
			width = min(width, uint(len(f.names)))
		}
		m |= bitfield.Mask(width) << f.shift
	}

	return m
}

// Register is a packed 64-bit value rendered through a layout chosen by a
// sibling field, such as the error type GUID of an IA32/X64 error structure.
// Without a layout it renders as {"value": n}.
type Register struct {
	Value  uint64
	layout regLayout
}

type rawRegister struct {
	Value uint64 `json:"value"`
}

func newRegister(v uint64, l regLayout) Register {
	return Register{Value: v & maskOr(l), layout: l}
}

func maskOr(l regLayout) uint64 {
	if l == nil {
		return ^uint64(0)
	}

	return l.Mask()
}

// decodeRegister parses the tree form of a register against layout l.
func decodeRegister(data json.RawMessage, l regLayout, where string) (Register, error) {
	r := Register{layout: l}
	if err := json.Unmarshal(data, &r); err != nil {
		return Register{}, errs.Within(where, err)
	}

	return r, nil
}

// MarshalJSON implements json.Marshaler.
func (r Register) MarshalJSON() ([]byte, error) {
	if r.layout == nil {
		return json.Marshal(rawRegister{Value: r.Value})
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range r.layout {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.key)
		buf.Write(key)
		buf.WriteByte(':')

		field := bitfield.Field(r.Value, f.shift, f.width)
		var v any
		switch f.kind {
		case kindBits:
			v = bitfield.ToNamed(field, int(f.width), f.names)
		case kindEnum:
			v = bitfield.Lookup(field, f.labels)
		case kindUint:
			v = field
		case kindFlag:
			v = field == 1
		}
		enc, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		buf.Write(enc)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler. The layout must be set before
// decoding; every layout field is required.
func (r *Register) UnmarshalJSON(data []byte) error {
	if r.layout == nil {
		var raw rawRegister
		if err := ir.DecodeStrict(data, &raw); err != nil {
			return err
		}
		r.Value = raw.Value

		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(data, &obj); err != nil {
		return errs.InvalidTree("register: %v", err)
	}

	var p bitfield.Packer
	for _, f := range r.layout {
		raw, ok := obj[f.key]
		if !ok || string(raw) == "null" {
			return errs.InvalidTree("%s: missing required field", f.key)
		}
		delete(obj, f.key)

		var field uint64
		switch f.kind {
		case kindBits:
			var named bitfield.Named
			if err := json.Unmarshal(raw, &named); err != nil {
				return errs.Within(f.key, err)
			}
			v, err := bitfield.FromNamed(named, f.names)
			if err != nil {
				return errs.Within(f.key, err)
			}
			field = v
		case kindEnum:
			var e bitfield.Enum
			if err := ir.DecodeStrict(raw, &e); err != nil {
				return errs.Within(f.key, err)
			}
			field = e.Value
		case kindUint:
			if err := json.Unmarshal(raw, &field); err != nil {
				return errs.InvalidTree("%s: %v", f.key, err)
			}
		case kindFlag:
			var set bool
			if err := json.Unmarshal(raw, &set); err != nil {
				return errs.InvalidTree("%s: %v", f.key, err)
			}
			if set {
				field = 1
			}
		}
		p.Put(f.key, field, f.shift, f.width)
	}
	for key := range obj {
		return errs.InvalidTree("unknown field %q", key)
	}

	v, err := p.Value()
	if err != nil {
		return err
	}
	r.Value = v

	return nil
}
