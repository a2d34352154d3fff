package section

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"unicode/utf8"

	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/internal/wire"
)

// Revision is a two-byte revision field, major in the high byte.
type Revision struct {
	Major uint8 `json:"major"`
	Minor uint8 `json:"minor"`
}

// RevisionOf splits a packed revision.
func RevisionOf(v uint16) Revision {
	return Revision{Major: uint8(v >> 8), Minor: uint8(v)}
}

// Uint16 packs r.
func (r Revision) Uint16() uint16 {
	return uint16(r.Major)<<8 | uint16(r.Minor)
}

// ErrorStatus is the 64-bit generic error status shared by the memory and PCI
// sections. Bits 0-7 and 23-63 are reserved.
type ErrorStatus struct {
	ErrorType     bitfield.Enum `json:"errorType"`
	AddressSignal bool          `json:"addressSignal"`
	Control       bool          `json:"control"`
	Data          bool          `json:"data"`
	Responder     bool          `json:"responder"`
	Requester     bool          `json:"requester"`
	FirstError    bool          `json:"firstError"`
	Overflow      bool          `json:"overflow"`
}

var errorStatusTypes = map[uint64]string{
	1:  "ERR_INTERNAL",
	4:  "ERR_MEM",
	5:  "ERR_TLB",
	6:  "ERR_CACHE",
	7:  "ERR_FUNCTION",
	8:  "ERR_SELFTEST",
	9:  "ERR_FLOW",
	16: "ERR_BUS",
	17: "ERR_MAP",
	18: "ERR_IMPROPER",
	19: "ERR_UNIMPL",
	20: "ERR_LOL",
	21: "ERR_RESPONSE",
	22: "ERR_PARITY",
	23: "ERR_PROTOCOL",
	24: "ERR_ERROR",
	25: "ERR_TIMEOUT",
	26: "ERR_POISONED",
}

func errorStatusOf(v uint64) ErrorStatus {
	return ErrorStatus{
		ErrorType:     bitfield.Lookup(bitfield.Field(v, 8, 8), errorStatusTypes),
		AddressSignal: bitfield.Flag(v, 16),
		Control:       bitfield.Flag(v, 17),
		Data:          bitfield.Flag(v, 18),
		Responder:     bitfield.Flag(v, 19),
		Requester:     bitfield.Flag(v, 20),
		FirstError:    bitfield.Flag(v, 21),
		Overflow:      bitfield.Flag(v, 22),
	}
}

func (s ErrorStatus) pack() (uint64, error) {
	var p bitfield.Packer
	p.Put("errorStatus.errorType", s.ErrorType.Value, 8, 8)
	p.Flag(s.AddressSignal, 16)
	p.Flag(s.Control, 17)
	p.Flag(s.Data, 18)
	p.Flag(s.Responder, 19)
	p.Flag(s.Requester, 20)
	p.Flag(s.FirstError, 21)
	p.Flag(s.Overflow, 22)

	return p.Value()
}

// Text is a fixed-size, NUL-padded character field.
//
// It renders as a JSON string when the bytes are valid UTF-8 up to the first
// NUL and zero afterwards. Any other content renders as {"raw": base64} of the
// whole field so that no byte is lost.
type Text []byte

type rawText struct {
	Raw []byte `json:"raw"`
}

func (t Text) clean() (string, bool) {
	end := bytes.IndexByte(t, 0)
	if end < 0 {
		end = len(t)
	}
	for _, b := range t[end:] {
		if b != 0 {
			return "", false
		}
	}
	if !utf8.Valid(t[:end]) {
		return "", false
	}

	return string(t[:end]), true
}

// String returns the text up to the first NUL.
func (t Text) String() string {
	end := bytes.IndexByte(t, 0)
	if end < 0 {
		return string(t)
	}

	return string(t[:end])
}

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	if s, ok := t.clean(); ok {
		return json.Marshal(s)
	}

	return json.Marshal(rawText{Raw: []byte(t)})
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return errs.InvalidTree("text: %v", err)
		}
		*t = Text(s)

		return nil
	}

	var raw rawText
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return errs.InvalidTree("text: want a string or {\"raw\": base64}: %v", err)
	}
	*t = Text(raw.Raw)

	return nil
}

func putText(w *wire.Writer, name string, t Text, n int) error {
	if len(t) > n {
		return errs.InvalidTree("%s: %d bytes exceed the %d-byte field", name, len(t), n)
	}
	w.Fixed(t, n)

	return nil
}

// putBlob writes b, which must be exactly n bytes.
func putBlob(w *wire.Writer, name string, b []byte, n int) error {
	if len(b) != n {
		return errs.InvalidTree("%s: want %d bytes, have %d", name, n, len(b))
	}
	w.Write(b)

	return nil
}

// PCI slot numbers occupy bits 3-15 of a 16-bit field.
func slotNumber(v uint16) uint16 {
	return v >> 3
}

func putSlot(n *bitfield.Narrow, name string, slot uint16) uint16 {
	if slot > 0x1FFF {
		n.Keep(errs.InvalidTree("%s: slot number %d does not fit in 13 bits", name, slot))
		return 0
	}

	return slot << 3
}

// classCode reads a 24-bit little-endian PCI class code.
func classCode(b []byte) uint32 {
	if len(b) < 3 {
		return 0
	}

	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16
}

func putClassCode(w *wire.Writer, n *bitfield.Narrow, name string, v uint32) {
	if v > 0xFFFFFF {
		n.Keep(errs.InvalidTree("%s: class code %#x does not fit in 24 bits", name, v))
	}
	w.U8(uint8(v))
	w.U8(uint8(v >> 8))
	w.U8(uint8(v >> 16))
}

func putU32(b []byte, v uint32) {
	binary.LittleEndian.PutUint32(b, v)
}
