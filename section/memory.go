package section

import (
	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/internal/wire"
)

const (
	MemorySize  = 80
	Memory2Size = 96
)

var memoryValidNames = []string{
	"errorStatusValid",
	"physicalAddressValid",
	"physicalAddressMaskValid",
	"nodeValid",
	"cardValid",
	"moduleValid",
	"bankValid",
	"deviceValid",
	"rowValid",
	"columnValid",
	"bitPositionValid",
	"platformRequestorIDValid",
	"platformResponderIDValid",
	"memoryPlatformTargetValid",
	"memoryErrorTypeValid",
	"rankNumberValid",
	"cardHandleValid",
	"moduleHandleValid",
	"extendedRowBitsValid",
	"bankGroupValid",
	"bankAddressValid",
	"chipIdentificationValid",
}

var memory2ValidNames = []string{
	"errorStatusValid",
	"physicalAddressValid",
	"physicalAddressMaskValid",
	"nodeValid",
	"cardValid",
	"moduleValid",
	"bankValid",
	"deviceValid",
	"rowValid",
	"columnValid",
	"rankValid",
	"bitPositionValid",
	"chipIDValid",
	"memoryErrorTypeValid",
	"statusValid",
	"requestorIDValid",
	"responderIDValid",
	"targetIDValid",
	"cardHandleValid",
	"moduleHandleValid",
	"bankGroupValid",
	"bankAddressValid",
}

var memoryErrorTypes = map[uint64]string{
	0:  "Unknown",
	1:  "No Error",
	2:  "Single-bit ECC",
	3:  "Multi-bit ECC",
	4:  "Single-symbol ChipKill ECC",
	5:  "Multi-symbol ChipKill ECC",
	6:  "Master Abort",
	7:  "Target Abort",
	8:  "Parity Error",
	9:  "Watchdog Timeout",
	10: "Invalid Address",
	11: "Mirror Broken",
	12: "Memory Sparing",
	13: "Scrub Corrected Error",
	14: "Scrub Uncorrected Error",
	15: "Physical Memory Map-out Event",
}

// Memory is the platform memory error section.
//
// The extended field carries row bits 16-18 in bits 0-2 and the chip
// identification in bits 5-7; bits 3-4 are reserved.
type Memory struct {
	ValidationBits      bitfield.Named `json:"validationBits"`
	ErrorStatus         ErrorStatus    `json:"errorStatus"`
	PhysicalAddress     uint64         `json:"physicalAddress"`
	PhysicalAddressMask uint64         `json:"physicalAddressMask"`
	Node                uint16         `json:"node"`
	Card                uint16         `json:"card"`
	ModuleRank          uint16         `json:"moduleRank"`
	Bank                uint16         `json:"bank"`
	Device              uint16         `json:"device"`
	Row                 uint16         `json:"row"`
	Column              uint16         `json:"column"`
	BitPosition         uint16         `json:"bitPosition"`
	RequestorID         uint64         `json:"requestorID"`
	ResponderID         uint64         `json:"responderID"`
	TargetID            uint64         `json:"targetID"`
	MemoryErrorType     bitfield.Enum  `json:"memoryErrorType"`
	ExtendedRowBits     uint8          `json:"extendedRowBits"`
	ChipIdentification  uint8          `json:"chipIdentification"`
	RankNumber          uint16         `json:"rankNumber"`
	CardHandle          uint16         `json:"cardHandle"`
	ModuleHandle        uint16         `json:"moduleHandle"`
}

// Parse implements Body.
func (s *Memory) Parse(data []byte) error {
	if len(data) != MemorySize {
		return errs.Malformed("memory section: want %d bytes, have %d", MemorySize, len(data))
	}

	r := wire.NewReader(data, "memory section")
	s.ValidationBits = bitfield.ToNamed(r.U64(), 64, memoryValidNames)
	s.ErrorStatus = errorStatusOf(r.U64())
	s.PhysicalAddress = r.U64()
	s.PhysicalAddressMask = r.U64()
	s.Node = r.U16()
	s.Card = r.U16()
	s.ModuleRank = r.U16()
	s.Bank = r.U16()
	s.Device = r.U16()
	s.Row = r.U16()
	s.Column = r.U16()
	s.BitPosition = r.U16()
	s.RequestorID = r.U64()
	s.ResponderID = r.U64()
	s.TargetID = r.U64()
	s.MemoryErrorType = bitfield.Lookup(uint64(r.U8()), memoryErrorTypes)
	extended := uint64(r.U8())
	s.ExtendedRowBits = uint8(bitfield.Field(extended, 0, 3))
	s.ChipIdentification = uint8(bitfield.Field(extended, 5, 3))
	s.RankNumber = r.U16()
	s.CardHandle = r.U16()
	s.ModuleHandle = r.U16()

	return r.Err()
}

// Bytes implements Body.
func (s *Memory) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	w := wire.NewWriter(MemorySize)
	w.U64(n.Bits("validationBits", s.ValidationBits, memoryValidNames))
	status, err := s.ErrorStatus.pack()
	n.Keep(err)
	w.U64(status)
	w.U64(s.PhysicalAddress)
	w.U64(s.PhysicalAddressMask)
	w.U16(s.Node)
	w.U16(s.Card)
	w.U16(s.ModuleRank)
	w.U16(s.Bank)
	w.U16(s.Device)
	w.U16(s.Row)
	w.U16(s.Column)
	w.U16(s.BitPosition)
	w.U64(s.RequestorID)
	w.U64(s.ResponderID)
	w.U64(s.TargetID)
	w.U8(n.U8("memoryErrorType", s.MemoryErrorType.Value))

	var p bitfield.Packer
	p.Put("extendedRowBits", uint64(s.ExtendedRowBits), 0, 3)
	p.Put("chipIdentification", uint64(s.ChipIdentification), 5, 3)
	extended, err := p.Value()
	n.Keep(err)
	w.U8(uint8(extended))

	w.U16(s.RankNumber)
	w.U16(s.CardHandle)
	w.U16(s.ModuleHandle)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

// Memory2 is the platform memory error section, revision 2.
type Memory2 struct {
	ValidationBits      bitfield.Named `json:"validationBits"`
	ErrorStatus         ErrorStatus    `json:"errorStatus"`
	PhysicalAddress     uint64         `json:"physicalAddress"`
	PhysicalAddressMask uint64         `json:"physicalAddressMask"`
	Node                uint16         `json:"node"`
	Card                uint16         `json:"card"`
	Module              uint16         `json:"module"`
	Bank                uint16         `json:"bank"`
	Device              uint32         `json:"device"`
	Row                 uint32         `json:"row"`
	Column              uint32         `json:"column"`
	Rank                uint32         `json:"rank"`
	BitPosition         uint32         `json:"bitPosition"`
	ChipID              uint8          `json:"chipID"`
	MemoryErrorType     bitfield.Enum  `json:"memoryErrorType"`
	Status              Memory2Status  `json:"status"`
	RequestorID         uint64         `json:"requestorID"`
	ResponderID         uint64         `json:"responderID"`
	TargetID            uint64         `json:"targetID"`
	CardHandle          uint32         `json:"cardHandle"`
	ModuleHandle        uint32         `json:"moduleHandle"`
}

// Memory2Status is the one-byte status field: bit 0 marks a corrected error.
type Memory2Status struct {
	Value     uint8 `json:"value"`
	Corrected bool  `json:"corrected,omitempty"`
}

// Parse implements Body.
func (s *Memory2) Parse(data []byte) error {
	if len(data) != Memory2Size {
		return errs.Malformed("memory2 section: want %d bytes, have %d", Memory2Size, len(data))
	}

	r := wire.NewReader(data, "memory2 section")
	s.ValidationBits = bitfield.ToNamed(r.U64(), 64, memory2ValidNames)
	s.ErrorStatus = errorStatusOf(r.U64())
	s.PhysicalAddress = r.U64()
	s.PhysicalAddressMask = r.U64()
	s.Node = r.U16()
	s.Card = r.U16()
	s.Module = r.U16()
	s.Bank = r.U16()
	s.Device = r.U32()
	s.Row = r.U32()
	s.Column = r.U32()
	s.Rank = r.U32()
	s.BitPosition = r.U32()
	s.ChipID = r.U8()
	s.MemoryErrorType = bitfield.Lookup(uint64(r.U8()), memoryErrorTypes)
	status := r.U8()
	s.Status = Memory2Status{Value: status, Corrected: status&1 == 1}
	r.Skip(1)
	s.RequestorID = r.U64()
	s.ResponderID = r.U64()
	s.TargetID = r.U64()
	s.CardHandle = r.U32()
	s.ModuleHandle = r.U32()

	return r.Err()
}

// Bytes implements Body. The status value is authoritative; the corrected
// flag is informational.
func (s *Memory2) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	w := wire.NewWriter(Memory2Size)
	w.U64(n.Bits("validationBits", s.ValidationBits, memory2ValidNames))
	status, err := s.ErrorStatus.pack()
	n.Keep(err)
	w.U64(status)
	w.U64(s.PhysicalAddress)
	w.U64(s.PhysicalAddressMask)
	w.U16(s.Node)
	w.U16(s.Card)
	w.U16(s.Module)
	w.U16(s.Bank)
	w.U32(s.Device)
	w.U32(s.Row)
	w.U32(s.Column)
	w.U32(s.Rank)
	w.U32(s.BitPosition)
	w.U8(s.ChipID)
	w.U8(n.U8("memoryErrorType", s.MemoryErrorType.Value))
	w.U8(s.Status.Value)
	w.Zero(1)
	w.U64(s.RequestorID)
	w.U64(s.ResponderID)
	w.U64(s.TargetID)
	w.U32(s.CardHandle)
	w.U32(s.ModuleHandle)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
