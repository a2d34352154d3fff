package section

import (
	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/internal/wire"
)

const (
	DMArGenericSize = 32
	DMArVTdSize     = 144
	DMArIOMMUSize   = 144
)

var dmarFaultReasons = map[uint64]string{
	0x01: "Domain mapping table entry is not present",
	0x02: "Invalid domain mapping table entry",
	0x03: "DMAr unit's attempt to access the domain mapping table resulted in an error",
	0x04: "Reserved bit set to non-zero value in the domain mapping table",
	0x05: "DMA request to access an address beyond the device address width",
	0x06: "Invalid read or write access",
	0x07: "Invalid device request",
	0x08: "DMAr unit's attempt to access the address translation table resulted in an error",
	0x09: "Reserved bit set to non-zero value in the address translation table",
	0x0A: "Illegal command",
	0x0B: "Command buffer access error",
}

var (
	dmarAccessTypes   = map[uint64]string{0: "Read", 1: "Write"}
	dmarAddressTypes  = map[uint64]string{0: "Untranslated Request", 1: "Translation Request"}
	dmarArchitectures = map[uint64]string{1: "VT-d", 2: "IOMMU"}
)

// DMArGeneric is the generic DMA remapping error section. The last 16 bytes
// of the payload are reserved.
//
// The enumerated fields are plain integers; the description fields are
// informational and ignored on encode.
type DMArGeneric struct {
	RequesterID            uint16 `json:"requesterID"`
	SegmentNumber          uint16 `json:"segmentNumber"`
	FaultReason            uint8  `json:"faultReason"`
	FaultReasonDescription string `json:"faultReasonDescription,omitempty"`
	AccessType             uint8  `json:"accessType"`
	AccessTypeDescription  string `json:"accessTypeDescription,omitempty"`
	AddressType            uint8  `json:"addressType"`
	AddressTypeDescription string `json:"addressTypeDescription,omitempty"`
	ArchitectureType       uint8  `json:"architectureType"`
	ArchitectureName       string `json:"architectureTypeDescription,omitempty"`
	DeviceAddress          uint64 `json:"deviceAddress"`
}

// Parse implements Body.
func (s *DMArGeneric) Parse(data []byte) error {
	if len(data) != DMArGenericSize {
		return errs.Malformed("DMAr generic section: want %d bytes, have %d", DMArGenericSize, len(data))
	}

	r := wire.NewReader(data, "DMAr generic section")
	s.RequesterID = r.U16()
	s.SegmentNumber = r.U16()
	s.FaultReason = r.U8()
	s.FaultReasonDescription = dmarFaultReasons[uint64(s.FaultReason)]
	s.AccessType = r.U8()
	s.AccessTypeDescription = dmarAccessTypes[uint64(s.AccessType)]
	s.AddressType = r.U8()
	s.AddressTypeDescription = dmarAddressTypes[uint64(s.AddressType)]
	s.ArchitectureType = r.U8()
	s.ArchitectureName = dmarArchitectures[uint64(s.ArchitectureType)]
	s.DeviceAddress = r.U64()
	r.Skip(16)

	return r.Err()
}

// Bytes implements Body.
func (s *DMArGeneric) Bytes() ([]byte, error) {
	w := wire.NewWriter(DMArGenericSize)
	w.U16(s.RequesterID)
	w.U16(s.SegmentNumber)
	w.U8(s.FaultReason)
	w.U8(s.AccessType)
	w.U8(s.AddressType)
	w.U8(s.ArchitectureType)
	w.U64(s.DeviceAddress)
	w.Zero(16)

	return w.Bytes(), nil
}

// VTdFaultRecord is the 128-bit VT-d fault recording register.
// Bits 0-11 and 80-91 are reserved.
type VTdFaultRecord struct {
	FaultInformation           uint64 `json:"faultInformation"`
	SourceIdentifier           uint16 `json:"sourceIdentifier"`
	Type2                      bool   `json:"type2"`
	PrivilegeModeRequested     bool   `json:"privilegeModeRequested"`
	ExecutePermissionRequested bool   `json:"executePermissionRequested"`
	PASIDPresent               bool   `json:"pasidPresent"`
	FaultReason                uint8  `json:"faultReason"`
	PASIDValue                 uint32 `json:"pasidValue"`
	AddressType                uint8  `json:"addressType"`
	Type1                      bool   `json:"type1"`
	Fault                      bool   `json:"fault"`
}

func vtdFaultRecordOf(lo, hi uint64) VTdFaultRecord {
	return VTdFaultRecord{
		FaultInformation:           bitfield.Field(lo, 12, 52),
		SourceIdentifier:           uint16(bitfield.Field(hi, 0, 16)),
		Type2:                      bitfield.Flag(hi, 28),
		PrivilegeModeRequested:     bitfield.Flag(hi, 29),
		ExecutePermissionRequested: bitfield.Flag(hi, 30),
		PASIDPresent:               bitfield.Flag(hi, 31),
		FaultReason:                uint8(bitfield.Field(hi, 32, 8)),
		PASIDValue:                 uint32(bitfield.Field(hi, 40, 20)),
		AddressType:                uint8(bitfield.Field(hi, 60, 2)),
		Type1:                      bitfield.Flag(hi, 62),
		Fault:                      bitfield.Flag(hi, 63),
	}
}

func (f VTdFaultRecord) pack() (lo, hi uint64, err error) {
	var pl bitfield.Packer
	pl.Put("faultRecord.faultInformation", f.FaultInformation, 12, 52)
	lo, err = pl.Value()
	if err != nil {
		return 0, 0, err
	}

	var ph bitfield.Packer
	ph.Put("faultRecord.sourceIdentifier", uint64(f.SourceIdentifier), 0, 16)
	ph.Flag(f.Type2, 28)
	ph.Flag(f.PrivilegeModeRequested, 29)
	ph.Flag(f.ExecutePermissionRequested, 30)
	ph.Flag(f.PASIDPresent, 31)
	ph.Put("faultRecord.faultReason", uint64(f.FaultReason), 32, 8)
	ph.Put("faultRecord.pasidValue", uint64(f.PASIDValue), 40, 20)
	ph.Put("faultRecord.addressType", uint64(f.AddressType), 60, 2)
	ph.Flag(f.Type1, 62)
	ph.Flag(f.Fault, 63)
	hi, err = ph.Value()

	return lo, hi, err
}

// PageTableEntries are the page table entries of levels 6 down to 1 captured
// for a DMA remapping fault.
type PageTableEntries struct {
	Level6 uint64 `json:"level6"`
	Level5 uint64 `json:"level5"`
	Level4 uint64 `json:"level4"`
	Level3 uint64 `json:"level3"`
	Level2 uint64 `json:"level2"`
	Level1 uint64 `json:"level1"`
}

func readPTEs(r *wire.Reader) PageTableEntries {
	return PageTableEntries{
		Level6: r.U64(), Level5: r.U64(), Level4: r.U64(),
		Level3: r.U64(), Level2: r.U64(), Level1: r.U64(),
	}
}

func writePTEs(w *wire.Writer, p PageTableEntries) {
	w.U64(p.Level6)
	w.U64(p.Level5)
	w.U64(p.Level4)
	w.U64(p.Level3)
	w.U64(p.Level2)
	w.U64(p.Level1)
}

// DMArVTd is the Intel VT-d DMA remapping error section.
type DMArVTd struct {
	Version            uint8            `json:"version"`
	Revision           uint8            `json:"revision"`
	OEMID              Text             `json:"oemID"`
	Capability         uint64           `json:"capabilityRegister"`
	ExtendedCapability uint64           `json:"extendedCapabilityRegister"`
	GlobalCommand      uint32           `json:"globalCommandRegister"`
	GlobalStatus       uint32           `json:"globalStatusRegister"`
	FaultStatus        uint32           `json:"faultStatusRegister"`
	FaultRecord        VTdFaultRecord   `json:"faultRecord"`
	RootEntry          []byte           `json:"rootEntry"`
	ContextEntry       []byte           `json:"contextEntry"`
	PageTableEntries   PageTableEntries `json:"pageTableEntries"`
}

// Parse implements Body.
func (s *DMArVTd) Parse(data []byte) error {
	if len(data) != DMArVTdSize {
		return errs.Malformed("VT-d section: want %d bytes, have %d", DMArVTdSize, len(data))
	}

	r := wire.NewReader(data, "VT-d section")
	s.Version = r.U8()
	s.Revision = r.U8()
	s.OEMID = Text(r.Bytes(6))
	s.Capability = r.U64()
	s.ExtendedCapability = r.U64()
	s.GlobalCommand = r.U32()
	s.GlobalStatus = r.U32()
	s.FaultStatus = r.U32()
	r.Skip(12)
	lo := r.U64()
	hi := r.U64()
	s.FaultRecord = vtdFaultRecordOf(lo, hi)
	s.RootEntry = r.Bytes(16)
	s.ContextEntry = r.Bytes(16)
	s.PageTableEntries = readPTEs(r)

	return r.Err()
}

// Bytes implements Body.
func (s *DMArVTd) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	w := wire.NewWriter(DMArVTdSize)
	w.U8(s.Version)
	w.U8(s.Revision)
	n.Keep(putText(w, "oemID", s.OEMID, 6))
	w.U64(s.Capability)
	w.U64(s.ExtendedCapability)
	w.U32(s.GlobalCommand)
	w.U32(s.GlobalStatus)
	w.U32(s.FaultStatus)
	w.Zero(12)
	lo, hi, err := s.FaultRecord.pack()
	n.Keep(err)
	w.U64(lo)
	w.U64(hi)
	n.Keep(putBlob(w, "rootEntry", s.RootEntry, 16))
	n.Keep(putBlob(w, "contextEntry", s.ContextEntry, 16))
	writePTEs(w, s.PageTableEntries)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// DMArIOMMU is the AMD IOMMU DMA remapping error section.
type DMArIOMMU struct {
	Revision         uint8            `json:"revision"`
	Control          uint64           `json:"controlRegister"`
	Status           uint64           `json:"statusRegister"`
	EventLogEntry    []byte           `json:"eventLogEntry"`
	DeviceTableEntry []byte           `json:"deviceTableEntry"`
	PageTableEntries PageTableEntries `json:"pageTableEntries"`
}

// Parse implements Body.
func (s *DMArIOMMU) Parse(data []byte) error {
	if len(data) != DMArIOMMUSize {
		return errs.Malformed("IOMMU section: want %d bytes, have %d", DMArIOMMUSize, len(data))
	}

	r := wire.NewReader(data, "IOMMU section")
	s.Revision = r.U8()
	r.Skip(7)
	s.Control = r.U64()
	s.Status = r.U64()
	r.Skip(8)
	s.EventLogEntry = r.Bytes(16)
	r.Skip(16)
	s.DeviceTableEntry = r.Bytes(32)
	s.PageTableEntries = readPTEs(r)

	return r.Err()
}

// Bytes implements Body.
func (s *DMArIOMMU) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	w := wire.NewWriter(DMArIOMMUSize)
	w.U8(s.Revision)
	w.Zero(7)
	w.U64(s.Control)
	w.U64(s.Status)
	w.Zero(8)
	n.Keep(putBlob(w, "eventLogEntry", s.EventLogEntry, 16))
	w.Zero(16)
	n.Keep(putBlob(w, "deviceTableEntry", s.DeviceTableEntry, 32))
	writePTEs(w, s.PageTableEntries)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
