package record

import (
	"encoding/json"
	"fmt"
	"slices"

	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/internal/wire"
	"github.com/arloliu/cper/section"
)

const (
	// HeaderSize is the size of the record header.
	HeaderSize = 128

	// SignatureStart is "CPER" read as a little-endian uint32.
	SignatureStart uint32 = 0x52455043
	// SignatureEnd terminates the signature block.
	SignatureEnd uint32 = 0xFFFFFFFF

	headerReserved = 12
)

var headerValidNames = []string{"platformIDValid", "timestampValid", "partitionIDValid"}

var headerFlagNames = []string{"recovered", "previousError", "simulated"}

var headerFlagLabels = map[uint64]string{
	1: "HW_ERROR_FLAGS_RECOVERED",
	2: "HW_ERROR_FLAGS_PREVERR",
	4: "HW_ERROR_FLAGS_SIMULATED",
}

// Severities used by the header and by section descriptors.
var severityNames = map[uint64]string{
	0: "Recoverable",
	1: "Fatal",
	2: "Corrected",
	3: "Informational",
}

// Header is the fixed 128-byte record header.
//
// SectionCount and RecordLength describe the record they were decoded from;
// Encode recomputes both.
type Header struct {
	Revision           section.Revision `json:"revision"`
	SectionCount       uint16           `json:"sectionCount,omitempty"`
	Severity           bitfield.Enum    `json:"severity"`
	ValidationBits     bitfield.Named   `json:"validationBits"`
	RecordLength       uint32           `json:"recordLength,omitempty"`
	Timestamp          Timestamp        `json:"timestamp"`
	TimestampIsPrecise bool             `json:"timestampIsPrecise"`
	PlatformID         guid.GUID        `json:"platformID"`
	PartitionID        guid.GUID        `json:"partitionID"`
	CreatorID          guid.GUID        `json:"creatorID"`
	NotificationType   guid.Ref         `json:"notificationType"`
	RecordID           uint64           `json:"recordID"`
	Flags              HeaderFlags      `json:"flags"`
	PersistenceInfo    uint64           `json:"persistenceInfo"`
}

// HeaderFlags is the header flags field.
//
// Value is authoritative. Name labels a value with exactly one known flag set.
// Bits is the per-flag view; when present in a tree it must agree with Value.
type HeaderFlags struct {
	Value uint32         `json:"value"`
	Name  string         `json:"name,omitempty"`
	Bits  bitfield.Named `json:"bits,omitempty"`
}

func headerFlagsOf(v uint32) HeaderFlags {
	return HeaderFlags{
		Value: v,
		Name:  headerFlagLabels[uint64(v)],
		Bits:  bitfield.ToNamed(uint64(v), 32, headerFlagNames),
	}
}

func (f HeaderFlags) check() error {
	for _, b := range f.Bits {
		idx := slices.Index(headerFlagNames, b.Name)
		if idx < 0 {
			return errs.InvalidTree("flags.bits: undefined bit %q", b.Name)
		}
		if bitfield.Flag(uint64(f.Value), uint(idx)) != b.Set {
			return errs.InvalidTree("flags.bits.%s: disagrees with flags.value %#x", b.Name, f.Value)
		}
	}

	return nil
}

// Timestamp is the BCD-encoded record timestamp. Each byte holds two BCD
// digits; the precise flag is carried separately on the header.
type Timestamp struct {
	Seconds uint8
	Minutes uint8
	Hours   uint8
	Day     uint8
	Month   uint8
	Year    uint8
	Century uint8
}

// String renders t as "CCYY-MM-DDTHH:MM:SS". Every byte prints as two hex
// digits, which reads as the decimal date for valid BCD and keeps invalid
// nibbles intact.
func (t Timestamp) String() string {
	return fmt.Sprintf("%02x%02x-%02x-%02xT%02x:%02x:%02x",
		t.Century, t.Year, t.Month, t.Day, t.Hours, t.Minutes, t.Seconds)
}

// ParseTimestamp is the inverse of Timestamp.String.
func ParseTimestamp(s string) (Timestamp, error) {
	const layout = "CCYY-MM-DDTHH:MM:SS"
	if len(s) != len(layout) {
		return Timestamp{}, errs.InvalidTree("timestamp %q: want %s", s, layout)
	}
	for i := range layout {
		if sep := layout[i]; sep == '-' || sep == 'T' || sep == ':' {
			if s[i] != sep {
				return Timestamp{}, errs.InvalidTree("timestamp %q: want %s", s, layout)
			}
		}
	}

	var parseErr error
	pair := func(at int) uint8 {
		hi, ok1 := hexDigit(s[at])
		lo, ok2 := hexDigit(s[at+1])
		if !ok1 || !ok2 {
			parseErr = errs.InvalidTree("timestamp %q: %q is not two hex digits", s, s[at:at+2])
		}

		return hi<<4 | lo
	}

	t := Timestamp{
		Century: pair(0),
		Year:    pair(2),
		Month:   pair(5),
		Day:     pair(8),
		Hours:   pair(11),
		Minutes: pair(14),
		Seconds: pair(17),
	}
	if parseErr != nil {
		return Timestamp{}, parseErr
	}

	return t, nil
}

func hexDigit(c byte) (uint8, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	default:
		return 0, false
	}
}

// MarshalJSON implements json.Marshaler.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return errs.InvalidTree("timestamp: %v", err)
	}
	parsed, err := ParseTimestamp(s)
	if err != nil {
		return err
	}
	*t = parsed

	return nil
}

// ParseHeader decodes the record header at the start of data.
//
// Parameters:
//   - data: record bytes; only the first HeaderSize bytes are read
//
// Returns:
//   - Header: decoded header
//   - int: bytes consumed, always HeaderSize on success
//   - error: ErrMalformedRecord if data is short or a signature does not match
func ParseHeader(data []byte) (Header, int, error) {
	if len(data) < HeaderSize {
		return Header{}, 0, errs.Malformed("record header: want %d bytes, have %d", HeaderSize, len(data))
	}

	r := wire.NewReader(data[:HeaderSize], "record header")
	if sig := r.U32(); sig != SignatureStart {
		return Header{}, 0, errs.Malformed("record header: signature %#08x, want %#08x", sig, SignatureStart)
	}

	var h Header
	h.Revision = section.RevisionOf(r.U16())
	if sig := r.U32(); sig != SignatureEnd {
		return Header{}, 0, errs.Malformed("record header: signature end %#08x, want %#08x", sig, SignatureEnd)
	}
	h.SectionCount = r.U16()
	h.Severity = bitfield.Lookup(uint64(r.U32()), severityNames)
	h.ValidationBits = bitfield.ToNamed(uint64(r.U32()), 32, headerValidNames)
	h.RecordLength = r.U32()

	h.Timestamp.Seconds = r.U8()
	h.Timestamp.Minutes = r.U8()
	h.Timestamp.Hours = r.U8()
	h.TimestampIsPrecise = r.U8()&1 == 1
	h.Timestamp.Day = r.U8()
	h.Timestamp.Month = r.U8()
	h.Timestamp.Year = r.U8()
	h.Timestamp.Century = r.U8()

	h.PlatformID = r.GUID()
	h.PartitionID = r.GUID()
	h.CreatorID = r.GUID()
	notify := r.GUID()
	h.NotificationType = guid.Ref{GUID: notify, Name: section.NotificationName(notify)}
	h.RecordID = r.U64()
	h.Flags = headerFlagsOf(r.U32())
	h.PersistenceInfo = r.U64()
	r.Skip(headerReserved)

	if err := r.Err(); err != nil {
		return Header{}, 0, err
	}

	return h, HeaderSize, nil
}

// Bytes encodes h. Reserved bytes and reserved timestamp flag bits are
// written as zero.
func (h *Header) Bytes() ([]byte, error) {
	if err := h.Flags.check(); err != nil {
		return nil, err
	}

	var n bitfield.Narrow
	w := wire.NewWriter(HeaderSize)
	w.U32(SignatureStart)
	w.U16(h.Revision.Uint16())
	w.U32(SignatureEnd)
	w.U16(h.SectionCount)
	w.U32(n.U32("severity", h.Severity.Value))
	w.U32(uint32(n.Bits("validationBits", h.ValidationBits, headerValidNames)))
	w.U32(h.RecordLength)

	w.U8(h.Timestamp.Seconds)
	w.U8(h.Timestamp.Minutes)
	w.U8(h.Timestamp.Hours)
	if h.TimestampIsPrecise {
		w.U8(1)
	} else {
		w.U8(0)
	}
	w.U8(h.Timestamp.Day)
	w.U8(h.Timestamp.Month)
	w.U8(h.Timestamp.Year)
	w.U8(h.Timestamp.Century)

	w.GUID(h.PlatformID)
	w.GUID(h.PartitionID)
	w.GUID(h.CreatorID)
	w.GUID(h.NotificationType.GUID)
	w.U64(h.RecordID)
	w.U32(h.Flags.Value)
	w.U64(h.PersistenceInfo)
	w.Zero(headerReserved)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
