package section

import (
	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/internal/wire"
)

const (
	PCIBusSize          = 72
	pciDeviceHeaderSize = 40
	pciRegisterPairSize = 16
)

var pciBusValidNames = []string{
	"errorStatusValid",
	"errorTypeValid",
	"busIDValid",
	"busAddressValid",
	"busDataValid",
	"commandValid",
	"requestorIDValid",
	"completerIDValid",
	"targetIDValid",
}

var pciBusErrorTypes = map[uint64]string{
	0: "Unknown/OEM Specific Error",
	1: "Data Parity Error",
	2: "System Error",
	3: "Master Abort",
	4: "Bus Timeout/No Device Present",
	5: "Master Data Parity Error",
	6: "Address Parity Error",
	7: "Command Parity Error",
}

var pciDeviceValidNames = []string{
	"errorStatusValid",
	"idInfoValid",
	"memoryNumberValid",
	"ioNumberValid",
	"registerDataPairValid",
}

// PCIBusID is the bus identifier: bus number in the low byte, segment in the
// high byte.
type PCIBusID struct {
	BusNumber     uint8 `json:"busNumber"`
	SegmentNumber uint8 `json:"segmentNumber"`
}

// PCIBus is the PCI/PCI-X bus error section.
//
// Bit 56 of the bus command selects PCI-X; the whole field round-trips as a
// single value.
type PCIBus struct {
	ValidationBits bitfield.Named `json:"validationBits"`
	ErrorStatus    ErrorStatus    `json:"errorStatus"`
	ErrorType      bitfield.Enum  `json:"errorType"`
	BusID          PCIBusID       `json:"busID"`
	BusAddress     uint64         `json:"busAddress"`
	BusData        uint64         `json:"busData"`
	BusCommand     uint64         `json:"busCommand"`
	BusCommandType string         `json:"busCommandType,omitempty"`
	RequestorID    uint64         `json:"busRequestorID"`
	CompleterID    uint64         `json:"busCompleterID"`
	TargetID       uint64         `json:"targetID"`
}

// Parse implements Body.
func (s *PCIBus) Parse(data []byte) error {
	if len(data) != PCIBusSize {
		return errs.Malformed("PCI bus section: want %d bytes, have %d", PCIBusSize, len(data))
	}

	r := wire.NewReader(data, "PCI bus section")
	s.ValidationBits = bitfield.ToNamed(r.U64(), 64, pciBusValidNames)
	s.ErrorStatus = errorStatusOf(r.U64())
	s.ErrorType = bitfield.Lookup(uint64(r.U16()), pciBusErrorTypes)
	busID := r.U16()
	s.BusID = PCIBusID{BusNumber: uint8(busID), SegmentNumber: uint8(busID >> 8)}
	r.Skip(4)
	s.BusAddress = r.U64()
	s.BusData = r.U64()
	s.BusCommand = r.U64()
	s.BusCommandType = "PCI"
	if bitfield.Flag(s.BusCommand, 56) {
		s.BusCommandType = "PCI-X"
	}
	s.RequestorID = r.U64()
	s.CompleterID = r.U64()
	s.TargetID = r.U64()

	return r.Err()
}

// Bytes implements Body. BusCommandType is informational.
func (s *PCIBus) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	w := wire.NewWriter(PCIBusSize)
	w.U64(n.Bits("validationBits", s.ValidationBits, pciBusValidNames))
	status, err := s.ErrorStatus.pack()
	n.Keep(err)
	w.U64(status)
	w.U16(n.U16("errorType", s.ErrorType.Value))
	w.U16(uint16(s.BusID.SegmentNumber)<<8 | uint16(s.BusID.BusNumber))
	w.Zero(4)
	w.U64(s.BusAddress)
	w.U64(s.BusData)
	w.U64(s.BusCommand)
	w.U64(s.RequestorID)
	w.U64(s.CompleterID)
	w.U64(s.TargetID)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// PCIDeviceIDInfo identifies a PCI component.
type PCIDeviceIDInfo struct {
	VendorID       uint16 `json:"vendorID"`
	DeviceID       uint16 `json:"deviceID"`
	ClassCode      uint32 `json:"classCode"`
	FunctionNumber uint8  `json:"functionNumber"`
	DeviceNumber   uint8  `json:"deviceNumber"`
	BusNumber      uint8  `json:"busNumber"`
	SegmentNumber  uint8  `json:"segmentNumber"`
}

// RegisterPair is one address/value pair of a PCI component section.
type RegisterPair struct {
	FirstHalf  uint64 `json:"firstHalf"`
	SecondHalf uint64 `json:"secondHalf"`
}

// PCIDevice is the PCI component/device error section. The register data
// pairs hold MemoryNumber memory pairs followed by IONumber I/O pairs.
type PCIDevice struct {
	ValidationBits    bitfield.Named  `json:"validationBits"`
	ErrorStatus       ErrorStatus     `json:"errorStatus"`
	IDInfo            PCIDeviceIDInfo `json:"idInfo"`
	MemoryNumber      uint32          `json:"memoryNumber"`
	IONumber          uint32          `json:"ioNumber"`
	RegisterDataPairs []RegisterPair  `json:"registerDataPairs"`
}

// Parse implements Body.
func (s *PCIDevice) Parse(data []byte) error {
	r := wire.NewReader(data, "PCI device section")
	s.ValidationBits = bitfield.ToNamed(r.U64(), 64, pciDeviceValidNames)
	s.ErrorStatus = errorStatusOf(r.U64())

	id := &s.IDInfo
	id.VendorID = r.U16()
	id.DeviceID = r.U16()
	id.ClassCode = classCode(r.Bytes(3))
	id.FunctionNumber = r.U8()
	id.DeviceNumber = r.U8()
	id.BusNumber = r.U8()
	id.SegmentNumber = r.U8()
	r.Skip(5)

	s.MemoryNumber = r.U32()
	s.IONumber = r.U32()
	if err := r.Err(); err != nil {
		return err
	}

	pairs := uint64(s.MemoryNumber) + uint64(s.IONumber)
	if want := pciDeviceHeaderSize + pairs*pciRegisterPairSize; want != uint64(len(data)) {
		return errs.Malformed("PCI device section: %d register pairs need %d bytes, payload is %d", pairs, want, len(data))
	}

	s.RegisterDataPairs = make([]RegisterPair, pairs)
	for i := range s.RegisterDataPairs {
		s.RegisterDataPairs[i] = RegisterPair{FirstHalf: r.U64(), SecondHalf: r.U64()}
	}

	return r.Err()
}

// Bytes implements Body.
func (s *PCIDevice) Bytes() ([]byte, error) {
	pairs := uint64(s.MemoryNumber) + uint64(s.IONumber)
	if pairs != uint64(len(s.RegisterDataPairs)) {
		return nil, errs.InvalidTree("PCI device section: memoryNumber+ioNumber is %d, tree has %d register pairs", pairs, len(s.RegisterDataPairs))
	}

	var n bitfield.Narrow
	w := wire.NewWriter(pciDeviceHeaderSize + len(s.RegisterDataPairs)*pciRegisterPairSize)
	w.U64(n.Bits("validationBits", s.ValidationBits, pciDeviceValidNames))
	status, err := s.ErrorStatus.pack()
	n.Keep(err)
	w.U64(status)

	id := s.IDInfo
	w.U16(id.VendorID)
	w.U16(id.DeviceID)
	putClassCode(w, &n, "idInfo.classCode", id.ClassCode)
	w.U8(id.FunctionNumber)
	w.U8(id.DeviceNumber)
	w.U8(id.BusNumber)
	w.U8(id.SegmentNumber)
	w.Zero(5)

	w.U32(s.MemoryNumber)
	w.U32(s.IONumber)
	for _, p := range s.RegisterDataPairs {
		w.U64(p.FirstHalf)
		w.U64(p.SecondHalf)
	}

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
