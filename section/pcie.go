package section

import (
	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/internal/wire"
)

// PCIeSize is the payload size of a PCI Express error section.
const PCIeSize = 208

var pcieValidNames = []string{
	"portTypeValid",
	"versionValid",
	"commandStatusValid",
	"deviceIDValid",
	"deviceSerialNumberValid",
	"bridgeControlStatusValid",
	"capabilityStructureStatusValid",
	"aerInfoValid",
}

var pciePortTypes = map[uint64]string{
	0:  "PCI Express End Point",
	1:  "Legacy PCI End Point Device",
	4:  "Root Port",
	5:  "Upstream Switch Port",
	6:  "Downstream Switch Port",
	7:  "PCI Express to PCI/PCI-X Bridge",
	8:  "PCI/PCI-X Bridge to PCI Express Bridge",
	9:  "Root Complex Integrated Endpoint Device",
	10: "Root Complex Event Collector",
}

// PCIeDeviceID identifies the device that reported a PCIe error.
type PCIeDeviceID struct {
	VendorID           uint16 `json:"vendorID"`
	DeviceID           uint16 `json:"deviceID"`
	ClassCode          uint32 `json:"classCode"`
	FunctionNumber     uint8  `json:"functionNumber"`
	DeviceNumber       uint8  `json:"deviceNumber"`
	SegmentNumber      uint16 `json:"segmentNumber"`
	PrimaryBusNumber   uint8  `json:"primaryOrDeviceBusNumber"`
	SecondaryBusNumber uint8  `json:"secondaryBusNumber"`
	SlotNumber         uint16 `json:"slotNumber"`
}

// CommandStatus holds a pair of 16-bit PCI configuration registers.
type CommandStatus struct {
	Command uint16 `json:"commandRegister"`
	Status  uint16 `json:"statusRegister"`
}

// BridgeControlStatus holds the bridge secondary status and control registers.
type BridgeControlStatus struct {
	SecondaryStatus uint16 `json:"secondaryStatusRegister"`
	Control         uint16 `json:"controlRegister"`
}

// PCIe is the PCI Express error section.
type PCIe struct {
	ValidationBits      bitfield.Named      `json:"validationBits"`
	PortType            bitfield.Enum       `json:"portType"`
	Version             Revision            `json:"version"`
	CommandStatus       CommandStatus       `json:"commandStatus"`
	DeviceID            PCIeDeviceID        `json:"deviceID"`
	DeviceSerialNumber  uint64              `json:"deviceSerialNumber"`
	BridgeControlStatus BridgeControlStatus `json:"bridgeControlStatus"`
	CapabilityStructure []byte              `json:"capabilityStructure"`
	AERInfo             []byte              `json:"aerInfo"`
}

// Parse implements Body.
func (s *PCIe) Parse(data []byte) error {
	if len(data) != PCIeSize {
		return errs.Malformed("PCIe section: want %d bytes, have %d", PCIeSize, len(data))
	}

	r := wire.NewReader(data, "PCIe section")
	s.ValidationBits = bitfield.ToNamed(r.U64(), 64, pcieValidNames)
	s.PortType = bitfield.Lookup(uint64(r.U32()), pciePortTypes)
	version := r.U32()
	s.Version = Revision{Major: uint8(version >> 8), Minor: uint8(version)}
	s.CommandStatus = CommandStatus{Command: r.U16(), Status: r.U16()}
	r.Skip(4)

	d := &s.DeviceID
	d.VendorID = r.U16()
	d.DeviceID = r.U16()
	d.ClassCode = classCode(r.Bytes(3))
	d.FunctionNumber = r.U8()
	d.DeviceNumber = r.U8()
	d.SegmentNumber = r.U16()
	d.PrimaryBusNumber = r.U8()
	d.SecondaryBusNumber = r.U8()
	d.SlotNumber = slotNumber(r.U16())
	r.Skip(1)

	s.DeviceSerialNumber = r.U64()
	s.BridgeControlStatus = BridgeControlStatus{SecondaryStatus: r.U16(), Control: r.U16()}
	s.CapabilityStructure = r.Bytes(60)
	s.AERInfo = r.Bytes(96)

	return r.Err()
}

// Bytes implements Body.
func (s *PCIe) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	w := wire.NewWriter(PCIeSize)
	w.U64(n.Bits("validationBits", s.ValidationBits, pcieValidNames))
	w.U32(n.U32("portType", s.PortType.Value))
	w.U32(uint32(s.Version.Uint16()))
	w.U16(s.CommandStatus.Command)
	w.U16(s.CommandStatus.Status)
	w.Zero(4)

	d := s.DeviceID
	w.U16(d.VendorID)
	w.U16(d.DeviceID)
	putClassCode(w, &n, "deviceID.classCode", d.ClassCode)
	w.U8(d.FunctionNumber)
	w.U8(d.DeviceNumber)
	w.U16(d.SegmentNumber)
	w.U8(d.PrimaryBusNumber)
	w.U8(d.SecondaryBusNumber)
	w.U16(putSlot(&n, "deviceID.slotNumber", d.SlotNumber))
	w.Zero(1)

	w.U64(s.DeviceSerialNumber)
	w.U16(s.BridgeControlStatus.SecondaryStatus)
	w.U16(s.BridgeControlStatus.Control)
	n.Keep(putBlob(w, "capabilityStructure", s.CapabilityStructure, 60))
	n.Keep(putBlob(w, "aerInfo", s.AERInfo, 96))

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
