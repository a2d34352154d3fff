package bitfield

import "github.com/arloliu/cper/errs"

// Enum is a small integer together with its label, when one is known.
//
// Value is authoritative on the encode path; Name is informational.
type Enum struct {
	Value uint64 `json:"value"`
	Name  string `json:"name,omitempty"`
}

// Lookup pairs value with its label from names. Unknown values keep an empty
// name so they still round-trip through Value.
func Lookup(value uint64, names map[uint64]string) Enum {
	return Enum{Value: value, Name: names[value]}
}

// Mask returns a mask of the low width bits.
func Mask(width uint) uint64 {
	if width >= 64 {
		return ^uint64(0)
	}

	return 1<<width - 1
}

// Field extracts the width-bit subfield that starts at bit shift.
func Field(value uint64, shift, width uint) uint64 {
	return (value >> shift) & Mask(width)
}

// Flag reports whether bit is set in value.
func Flag(value uint64, bit uint) bool {
	return (value>>bit)&1 == 1
}

// Packer assembles a packed register from subfields.
//
// The first subfield that does not fit its width is recorded and returned by
// Value; later calls are ignored. Bits that no subfield covers stay zero.
type Packer struct {
	value uint64
	err   error
}

// Put stores field in the width bits starting at shift.
func (p *Packer) Put(name string, field uint64, shift, width uint) {
	if p.err != nil {
		return
	}
	if field > Mask(width) {
		p.err = errs.InvalidTree("%s: value %d does not fit in %d bits", name, field, width)
		return
	}
	p.value |= field << shift
}

// Flag sets bit when set is true.
func (p *Packer) Flag(set bool, bit uint) {
	if set {
		p.value |= 1 << bit
	}
}

// Value returns the packed register or the first range error.
func (p *Packer) Value() (uint64, error) {
	return p.value, p.err
}
