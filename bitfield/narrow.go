package bitfield

import "github.com/arloliu/cper/errs"

// Narrow converts tree integers to fixed-width binary fields.
//
// Tree enums carry uint64 values; the first value that does not fit its field
// is recorded and reported by Err, later conversions return zero.
type Narrow struct {
	err error
}

func (n *Narrow) check(name string, v uint64, width uint) bool {
	if n.err != nil {
		return false
	}
	if v > Mask(width) {
		n.err = errs.InvalidTree("%s: value %d does not fit in %d bits", name, v, width)
		return false
	}

	return true
}

// U8 narrows v to 8 bits.
func (n *Narrow) U8(name string, v uint64) uint8 {
	if !n.check(name, v, 8) {
		return 0
	}

	return uint8(v)
}

// U16 narrows v to 16 bits.
func (n *Narrow) U16(name string, v uint64) uint16 {
	if !n.check(name, v, 16) {
		return 0
	}

	return uint16(v)
}

// U32 narrows v to 32 bits.
func (n *Narrow) U32(name string, v uint64) uint32 {
	if !n.check(name, v, 32) {
		return 0
	}

	return uint32(v)
}

// Bits converts a Named bitfield, recording an undefined bit name.
func (n *Narrow) Bits(name string, named Named, names []string) uint64 {
	if n.err != nil {
		return 0
	}
	v, err := FromNamed(named, names)
	if err != nil {
		n.err = errs.Within(name, err)
		return 0
	}

	return v
}

// Keep records err if no earlier error was recorded.
func (n *Narrow) Keep(err error) {
	if n.err == nil && err != nil {
		n.err = err
	}
}

// Err returns the first conversion error.
func (n *Narrow) Err() error {
	return n.err
}
