package section

import (
	"encoding/json"

	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/internal/wire"
	"github.com/arloliu/cper/ir"
)

const (
	ccixHeaderSize         = 16
	cxlComponentHeaderSize = 32
	cxlProtocolHeaderSize  = 116
)

var ccixValidNames = []string{"ccixSourceIDValid", "ccixPortIDValid", "ccixPERLogValid"}

var cxlComponentValidNames = []string{"deviceIDValid", "deviceSerialValid", "cxlComponentEventLogValid"}

var cxlProtocolValidNames = []string{
	"cxlAgentTypeValid",
	"cxlAgentAddressValid",
	"deviceIDValid",
	"deviceSerialValid",
	"capabilityStructureValid",
	"cxlDVSECValid",
	"cxlErrorLogValid",
}

var cxlAgentTypes = map[uint64]string{0: "CXL 1.1 Device", 1: "CXL 1.1 Host Downstream Port"}

// Agent address layouts, selected by agent type. Device agents carry a PCI
// address; downstream ports carry the RCRB base address.
var (
	cxlDeviceAddress = regLayout{
		uintAt("functionNumber", 0, 8),
		uintAt("deviceNumber", 8, 8),
		uintAt("busNumber", 16, 8),
		uintAt("segmentNumber", 24, 16),
	}
	cxlPortAddress = regLayout{
		uintAt("portRCRBBaseAddress", 0, 64),
	}
)

func cxlAgentLayout(agentType uint64) regLayout {
	switch agentType {
	case 0:
		return cxlDeviceAddress
	case 1:
		return cxlPortAddress
	default:
		return nil
	}
}

// CXLAgentAddressMask returns the bits of the agent address defined for the
// given agent type.
func CXLAgentAddressMask(agentType uint64) uint64 {
	return maskOr(cxlAgentLayout(agentType))
}

// CCIXPER is the CCIX protocol error record section. Length covers the
// 16-byte header and the PER log; it is recomputed on encode.
type CCIXPER struct {
	Length         uint32         `json:"length,omitempty"`
	ValidationBits bitfield.Named `json:"validationBits"`
	CCIXSourceID   uint8          `json:"ccixSourceID"`
	CCIXPortID     uint8          `json:"ccixPortID"`
	PERLog         []byte         `json:"ccixPERLog,omitempty"`
}

// Parse implements Body.
func (s *CCIXPER) Parse(data []byte) error {
	r := wire.NewReader(data, "CCIX PER section")
	s.Length = r.U32()
	s.ValidationBits = bitfield.ToNamed(r.U64(), 64, ccixValidNames)
	s.CCIXSourceID = r.U8()
	s.CCIXPortID = r.U8() & 0x1F
	r.Skip(2)
	if err := r.Err(); err != nil {
		return err
	}
	if int(s.Length) != len(data) {
		return errs.Malformed("CCIX PER section: declared length %d, payload is %d bytes", s.Length, len(data))
	}
	s.PERLog = r.Rest()

	return r.Err()
}

// Bytes implements Body.
func (s *CCIXPER) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	total := ccixHeaderSize + len(s.PERLog)
	if uint64(total) > 0xFFFFFFFF {
		return nil, errs.InvalidTree("CCIX PER section: log of %d bytes is too large", len(s.PERLog))
	}
	if s.CCIXPortID > 0x1F {
		return nil, errs.InvalidTree("ccixPortID: value %d does not fit in 5 bits", s.CCIXPortID)
	}

	w := wire.NewWriter(total)
	w.U32(uint32(total))
	w.U64(n.Bits("validationBits", s.ValidationBits, ccixValidNames))
	w.U8(s.CCIXSourceID)
	w.U8(s.CCIXPortID)
	w.Zero(2)
	w.Write(s.PERLog)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// CXLComponentDeviceID identifies the device that logged a CXL component event.
type CXLComponentDeviceID struct {
	VendorID       uint16 `json:"vendorID"`
	DeviceID       uint16 `json:"deviceID"`
	FunctionNumber uint8  `json:"functionNumber"`
	DeviceNumber   uint8  `json:"deviceNumber"`
	BusNumber      uint8  `json:"busNumber"`
	SegmentNumber  uint16 `json:"segmentNumber"`
	SlotNumber     uint16 `json:"slotNumber"`
}

// CXLComponent is a CXL component event section. One codec serves every
// component event type; the event record itself is carried as bytes.
// Length is recomputed on encode.
type CXLComponent struct {
	Length         uint32               `json:"length,omitempty"`
	ValidationBits bitfield.Named       `json:"validationBits"`
	DeviceID       CXLComponentDeviceID `json:"deviceID"`
	DeviceSerial   uint64               `json:"deviceSerial"`
	EventLog       []byte               `json:"cxlComponentEventLog,omitempty"`
}

// Parse implements Body.
func (s *CXLComponent) Parse(data []byte) error {
	r := wire.NewReader(data, "CXL component section")
	s.Length = r.U32()
	s.ValidationBits = bitfield.ToNamed(r.U64(), 64, cxlComponentValidNames)

	d := &s.DeviceID
	d.VendorID = r.U16()
	d.DeviceID = r.U16()
	d.FunctionNumber = r.U8()
	d.DeviceNumber = r.U8()
	d.BusNumber = r.U8()
	d.SegmentNumber = r.U16()
	d.SlotNumber = slotNumber(r.U16())
	r.Skip(1)

	s.DeviceSerial = r.U64()
	if err := r.Err(); err != nil {
		return err
	}
	if int(s.Length) < cxlComponentHeaderSize || int(s.Length) != len(data) {
		return errs.Malformed("CXL component section: declared length %d, payload is %d bytes", s.Length, len(data))
	}
	s.EventLog = r.Rest()

	return r.Err()
}

// Bytes implements Body.
func (s *CXLComponent) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	total := cxlComponentHeaderSize + len(s.EventLog)
	if uint64(total) > 0xFFFFFFFF {
		return nil, errs.InvalidTree("CXL component section: event log of %d bytes is too large", len(s.EventLog))
	}

	w := wire.NewWriter(total)
	w.U32(uint32(total))
	w.U64(n.Bits("validationBits", s.ValidationBits, cxlComponentValidNames))

	d := s.DeviceID
	w.U16(d.VendorID)
	w.U16(d.DeviceID)
	w.U8(d.FunctionNumber)
	w.U8(d.DeviceNumber)
	w.U8(d.BusNumber)
	w.U16(d.SegmentNumber)
	w.U16(putSlot(&n, "deviceID.slotNumber", d.SlotNumber))
	w.Zero(1)

	w.U64(s.DeviceSerial)
	w.Write(s.EventLog)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// CXLProtocolDeviceID identifies the device that reported a CXL protocol error.
type CXLProtocolDeviceID struct {
	VendorID          uint16 `json:"vendorID"`
	DeviceID          uint16 `json:"deviceID"`
	SubsystemVendorID uint16 `json:"subsystemVendorID"`
	SubsystemDeviceID uint16 `json:"subsystemDeviceID"`
	ClassCode         uint16 `json:"classCode"`
	SlotNumber        uint16 `json:"slotNumber"`
}

// CXLProtocol is the CXL protocol error section. The DVSEC and error log
// lengths are taken from the data present in the tree.
type CXLProtocol struct {
	ValidationBits      bitfield.Named      `json:"validationBits"`
	AgentType           bitfield.Enum       `json:"agentType"`
	AgentAddress        Register            `json:"cxlAgentAddress"`
	DeviceID            CXLProtocolDeviceID `json:"deviceID"`
	DeviceSerial        uint64              `json:"deviceSerial"`
	CapabilityStructure []byte              `json:"capabilityStructure"`
	DVSEC               []byte              `json:"cxlDVSEC,omitempty"`
	ErrorLog            []byte              `json:"cxlErrorLog,omitempty"`
}

// UnmarshalJSON decodes the agent address with the layout selected by the
// agent type.
func (s *CXLProtocol) UnmarshalJSON(data []byte) error {
	type plain CXLProtocol
	var aux struct {
		plain
		AgentAddress json.RawMessage `json:"cxlAgentAddress"`
	}
	if err := ir.DecodeStrict(data, &aux); err != nil {
		return err
	}

	addr, err := decodeRegister(aux.AgentAddress, cxlAgentLayout(aux.AgentType.Value), "cxlAgentAddress")
	if err != nil {
		return err
	}

	*s = CXLProtocol(aux.plain)
	s.AgentAddress = addr

	return nil
}

// Parse implements Body.
func (s *CXLProtocol) Parse(data []byte) error {
	r := wire.NewReader(data, "CXL protocol section")
	s.ValidationBits = bitfield.ToNamed(r.U64(), 64, cxlProtocolValidNames)
	s.AgentType = bitfield.Lookup(uint64(r.U8()), cxlAgentTypes)
	r.Skip(7)
	s.AgentAddress = newRegister(r.U64(), cxlAgentLayout(s.AgentType.Value))

	d := &s.DeviceID
	d.VendorID = r.U16()
	d.DeviceID = r.U16()
	d.SubsystemVendorID = r.U16()
	d.SubsystemDeviceID = r.U16()
	d.ClassCode = r.U16()
	d.SlotNumber = slotNumber(r.U16())
	r.Skip(4)

	s.DeviceSerial = r.U64()
	s.CapabilityStructure = r.Bytes(60)
	dvsecLen := int(r.U16())
	errLogLen := int(r.U16())
	r.Skip(4)
	if err := r.Err(); err != nil {
		return err
	}
	if want := cxlProtocolHeaderSize + dvsecLen + errLogLen; want != len(data) {
		return errs.Malformed("CXL protocol section: DVSEC %d and error log %d bytes need %d, payload is %d", dvsecLen, errLogLen, want, len(data))
	}
	if dvsecLen > 0 {
		s.DVSEC = r.Bytes(dvsecLen)
	}
	if errLogLen > 0 {
		s.ErrorLog = r.Bytes(errLogLen)
	}

	return r.Err()
}

// Bytes implements Body.
func (s *CXLProtocol) Bytes() ([]byte, error) {
	if len(s.DVSEC) > 0xFFFF || len(s.ErrorLog) > 0xFFFF {
		return nil, errs.InvalidTree("CXL protocol section: DVSEC and error log are limited to 65535 bytes")
	}

	var n bitfield.Narrow
	w := wire.NewWriter(cxlProtocolHeaderSize + len(s.DVSEC) + len(s.ErrorLog))
	w.U64(n.Bits("validationBits", s.ValidationBits, cxlProtocolValidNames))
	w.U8(n.U8("agentType", s.AgentType.Value))
	w.Zero(7)
	w.U64(s.AgentAddress.Value & CXLAgentAddressMask(s.AgentType.Value))

	d := s.DeviceID
	w.U16(d.VendorID)
	w.U16(d.DeviceID)
	w.U16(d.SubsystemVendorID)
	w.U16(d.SubsystemDeviceID)
	w.U16(d.ClassCode)
	w.U16(putSlot(&n, "deviceID.slotNumber", d.SlotNumber))
	w.Zero(4)

	w.U64(s.DeviceSerial)
	n.Keep(putBlob(w, "capabilityStructure", s.CapabilityStructure, 60))
	w.U16(uint16(len(s.DVSEC)))
	w.U16(uint16(len(s.ErrorLog)))
	w.Zero(4)
	w.Write(s.DVSEC)
	w.Write(s.ErrorLog)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
