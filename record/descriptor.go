package record

import (
	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/internal/wire"
	"github.com/arloliu/cper/section"
)

const (
	// DescriptorSize is the size of one section descriptor.
	DescriptorSize = 72

	fruTextSize = 20
)

var descriptorValidNames = []string{"fruIDValid", "fruStringValid"}

var descriptorFlagNames = []string{
	"primary",
	"containmentWarning",
	"reset",
	"errorThresholdExceeded",
	"resourceNotAccessible",
	"latentError",
	"propagated",
	"overflow",
}

// Descriptor locates and describes one section payload.
//
// SectionOffset and SectionLength are informational in a tree; Encode
// recomputes them from the encoded payloads.
type Descriptor struct {
	SectionOffset  uint32           `json:"sectionOffset,omitempty"`
	SectionLength  uint32           `json:"sectionLength,omitempty"`
	Revision       section.Revision `json:"revision"`
	ValidationBits bitfield.Named   `json:"validationBits"`
	Flags          bitfield.Named   `json:"flags"`
	SectionType    guid.Ref         `json:"sectionType"`
	FRUID          guid.GUID        `json:"fruID"`
	Severity       bitfield.Enum    `json:"severity"`
	FRUText        section.Text     `json:"fruText"`
}

// ParseDescriptors decodes count descriptors from the start of data.
// Section type names are left empty; the record decoder fills them from its
// registry.
func ParseDescriptors(data []byte, count int) ([]Descriptor, error) {
	if need := count * DescriptorSize; len(data) < need {
		return nil, errs.Malformed("descriptor table: %d descriptors need %d bytes, have %d", count, need, len(data))
	}

	out := make([]Descriptor, count)
	r := wire.NewReader(data, "descriptor table")
	for i := range out {
		d := &out[i]
		d.SectionOffset = r.U32()
		d.SectionLength = r.U32()
		d.Revision = section.RevisionOf(r.U16())
		d.ValidationBits = bitfield.ToNamed(uint64(r.U8()), 8, descriptorValidNames)
		r.Skip(1)
		d.Flags = bitfield.ToNamed(uint64(r.U32()), 32, descriptorFlagNames)
		d.SectionType = guid.Ref{GUID: r.GUID()}
		d.FRUID = r.GUID()
		d.Severity = bitfield.Lookup(uint64(r.U32()), severityNames)
		d.FRUText = section.Text(r.Bytes(fruTextSize))
	}

	if err := r.Err(); err != nil {
		return nil, err
	}

	return out, nil
}

// Bytes encodes d. The reserved byte and reserved validation and flag bits
// are written as zero.
func (d *Descriptor) Bytes() ([]byte, error) {
	if len(d.FRUText) > fruTextSize {
		return nil, errs.InvalidTree("fruText: %d bytes exceed the %d-byte field", len(d.FRUText), fruTextSize)
	}

	var n bitfield.Narrow
	w := wire.NewWriter(DescriptorSize)
	w.U32(d.SectionOffset)
	w.U32(d.SectionLength)
	w.U16(d.Revision.Uint16())
	w.U8(uint8(n.Bits("validationBits", d.ValidationBits, descriptorValidNames)))
	w.Zero(1)
	w.U32(uint32(n.Bits("flags", d.Flags, descriptorFlagNames)))
	w.GUID(d.SectionType.GUID)
	w.GUID(d.FRUID)
	w.U32(n.U32("severity", d.Severity.Value))
	w.Fixed(d.FRUText, fruTextSize)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
