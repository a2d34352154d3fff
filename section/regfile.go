package section

import (
	"bytes"
	"encoding/json"

	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/internal/wire"
)

// regSlot is one register in a saved register file. Slots without a name are
// reserved padding.
type regSlot struct {
	name string
	size int // 2, 4 or 8 bytes
}

type regFileLayout []regSlot

func (l regFileLayout) size() int {
	total := 0
	for _, s := range l {
		total += s.size
	}

	return total
}

func slots(size int, names ...string) []regSlot {
	out := make([]regSlot, len(names))
	for i, n := range names {
		out[i] = regSlot{name: n, size: size}
	}

	return out
}

func joinSlots(groups ...[]regSlot) regFileLayout {
	var out regFileLayout
	for _, g := range groups {
		out = append(out, g...)
	}

	return out
}

// RegisterValue is one named register.
type RegisterValue struct {
	Name  string
	Value uint64
}

// Registers is a saved register file rendered as an ordered JSON object of
// register name to value.
type Registers []RegisterValue

func (l regFileLayout) decode(data []byte) (Registers, error) {
	r := wire.NewReader(data, "register array")
	out := make(Registers, 0, len(l))
	for _, s := range l {
		var v uint64
		switch s.size {
		case 2:
			v = uint64(r.U16())
		case 4:
			v = uint64(r.U32())
		default:
			v = r.U64()
		}
		if s.name != "" {
			out = append(out, RegisterValue{Name: s.name, Value: v})
		}
	}

	return out, r.Err()
}

func (l regFileLayout) encode(regs Registers) ([]byte, error) {
	byName := make(map[string]uint64, len(regs))
	for _, rv := range regs {
		if _, dup := byName[rv.Name]; dup {
			return nil, errs.InvalidTree("registers: duplicate register %q", rv.Name)
		}
		byName[rv.Name] = rv.Value
	}

	w := wire.NewWriter(l.size())
	used := 0
	for _, s := range l {
		if s.name == "" {
			w.Zero(s.size)
			continue
		}
		v, ok := byName[s.name]
		if !ok {
			return nil, errs.InvalidTree("registers: missing register %q", s.name)
		}
		used++
		if s.size < 8 && v>>(8*s.size) != 0 {
			return nil, errs.InvalidTree("registers: %s value %#x does not fit in %d bytes", s.name, v, s.size)
		}
		switch s.size {
		case 2:
			w.U16(uint16(v))
		case 4:
			w.U32(uint32(v))
		default:
			w.U64(v)
		}
	}
	if used != len(byName) {
		for name := range byName {
			if !l.has(name) {
				return nil, errs.InvalidTree("registers: unknown register %q", name)
			}
		}
	}

	return w.Bytes(), nil
}

func (l regFileLayout) has(name string) bool {
	for _, s := range l {
		if s.name == name {
			return true
		}
	}

	return false
}

// MarshalJSON implements json.Marshaler.
func (r Registers) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, rv := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(rv.Name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, _ := json.Marshal(rv.Value)
		buf.Write(val)
	}
	buf.WriteByte('}')

	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler, keeping key order.
func (r *Registers) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return errs.InvalidTree("registers: %v", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return errs.InvalidTree("registers: want an object")
	}

	out := Registers{}
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return errs.InvalidTree("registers: %v", err)
		}
		key, _ := keyTok.(string)

		var v uint64
		if err := dec.Decode(&v); err != nil {
			return errs.InvalidTree("registers: %s: %v", key, err)
		}
		out = append(out, RegisterValue{Name: key, Value: v})
	}
	*r = out

	return nil
}
