package section

import (
	"encoding/json"
	"strconv"

	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/internal/wire"
	"github.com/arloliu/cper/ir"
)

const (
	armHeaderSize    = 40
	armErrorInfoSize = 32
	armContextHeader = 8
)

var armValidNames = []string{
	"mpidrValid",
	"errorAffinityLevelValid",
	"runningStateValid",
	"vendorSpecificInfoValid",
}

var armErrorValidNames = []string{
	"multipleErrorValid",
	"flagsValid",
	"errorInformationValid",
	"virtualFaultAddressValid",
	"physicalFaultAddressValid",
}

var armErrorFlagNames = []string{"firstErrorCaptured", "lastErrorCaptured", "propagated", "overflow"}

var (
	armErrorTypes   = map[uint64]string{0: "Cache Error", 1: "TLB Error", 2: "Bus Error", 3: "Micro-Architectural Error"}
	armTransactions = map[uint64]string{0: "Instruction", 1: "Data Access", 2: "Generic"}
	armCacheOps     = map[uint64]string{
		0: "Generic Error", 1: "Generic Read", 2: "Generic Write", 3: "Data Read", 4: "Data Write",
		5: "Instruction Fetch", 6: "Prefetch", 7: "Eviction", 8: "Snooping", 9: "Snooped", 10: "Management",
	}
	armTLBOps = map[uint64]string{
		0: "Generic Error", 1: "Generic Read", 2: "Generic Write", 3: "Data Read", 4: "Data Write",
		5: "Instruction Fetch", 6: "Prefetch", 7: "Local Management Operation", 8: "External Management Operation",
	}
	armBusOps = map[uint64]string{
		0: "Generic Error", 1: "Generic Read", 2: "Generic Write", 3: "Data Read", 4: "Data Write",
		5: "Instruction Fetch", 6: "Prefetch",
	}
	armParticipation = map[uint64]string{
		0: "Local Processor Originated Request", 1: "Local Processor Responded to Request",
		2: "Local Processor Observed", 3: "Generic",
	}
	armAddressSpaces = map[uint64]string{0: "External Memory Access", 1: "Internal Memory Access", 3: "Device Memory Access"}
	armContextTypes  = map[uint64]string{
		0: "AArch32 General Purpose Registers", 1: "AArch32 EL1 Context Registers",
		2: "AArch32 EL2 Context Registers", 3: "AArch32 Secure Context Registers",
		4: "AArch64 General Purpose Registers", 5: "AArch64 EL1 Context Registers",
		6: "AArch64 EL2 Context Registers", 7: "AArch64 EL3 Context Registers",
		8: "Miscellaneous System Register Structure",
	}
)

func armCacheLayout(ops map[uint64]string) regLayout {
	return regLayout{
		bitsAt("validationBits", 0, 16,
			"transactionTypeValid", "operationValid", "levelValid", "processorContextCorruptValid",
			"correctedValid", "precisePCValid", "restartablePCValid"),
		enumAt("transactionType", 16, 2, armTransactions),
		enumAt("operation", 18, 4, ops),
		uintAt("level", 22, 3),
		flagAt("processorContextCorrupt", 25),
		flagAt("corrected", 26),
		flagAt("precisePC", 27),
		flagAt("restartablePC", 28),
	}
}

var (
	armCacheInfo = armCacheLayout(armCacheOps)
	armTLBInfo   = armCacheLayout(armTLBOps)
	armBusInfo   = regLayout{
		bitsAt("validationBits", 0, 16,
			"transactionTypeValid", "operationValid", "levelValid", "processorContextCorruptValid",
			"correctedValid", "precisePCValid", "restartablePCValid", "participationTypeValid",
			"timedOutValid", "addressSpaceValid", "memoryAttributesValid", "accessModeValid"),
		enumAt("transactionType", 16, 2, armTransactions),
		enumAt("operation", 18, 4, armBusOps),
		uintAt("level", 22, 3),
		flagAt("processorContextCorrupt", 25),
		flagAt("corrected", 26),
		flagAt("precisePC", 27),
		flagAt("restartablePC", 28),
		enumAt("participationType", 29, 2, armParticipation),
		flagAt("timedOut", 31),
		enumAt("addressSpace", 32, 2, armAddressSpaces),
		uintAt("memoryAttributes", 34, 9),
		flagAt("accessMode", 43),
	}
)

func armInfoLayout(errorType uint64) regLayout {
	switch errorType {
	case 0:
		return armCacheInfo
	case 1:
		return armTLBInfo
	case 2:
		return armBusInfo
	default:
		return nil
	}
}

// ARMErrorInfoMask returns the bits of the error information field defined
// for an ARM error structure of the given type.
func ARMErrorInfoMask(errorType uint64) uint64 {
	return maskOr(armInfoLayout(errorType))
}

// ARM is the ARM processor error section.
type ARM struct {
	ValidationBits     bitfield.Named `json:"validationBits"`
	ErrorAffinityLevel uint8          `json:"errorAffinityLevel"`
	MPIDR              uint64         `json:"mpidrEl1"`
	MIDR               uint64         `json:"midrEl1"`
	Running            bool           `json:"running"`
	PSCIState          uint32         `json:"psciState"`
	ErrorInfo          []ARMErrorInfo `json:"errorInfo"`
	ContextInfo        []ARMContext   `json:"contextInfo"`
	VendorSpecificInfo []byte         `json:"vendorSpecificInfo,omitempty"`
}

// ARMErrorInfo is one ARM processor error information structure.
type ARMErrorInfo struct {
	Version              uint8          `json:"version"`
	ValidationBits       bitfield.Named `json:"validationBits"`
	ErrorType            bitfield.Enum  `json:"errorType"`
	MultipleError        uint16         `json:"multipleError"`
	Flags                bitfield.Named `json:"flags"`
	ErrorInformation     Register       `json:"errorInformation"`
	VirtualFaultAddress  uint64         `json:"virtualFaultAddress"`
	PhysicalFaultAddress uint64         `json:"physicalFaultAddress"`
}

// ARMContext is one ARM processor context information structure.
type ARMContext struct {
	Version             uint16        `json:"version"`
	RegisterContextType bitfield.Enum `json:"registerContextType"`
	RegisterArray       []byte        `json:"registerArray,omitempty"`
}

// UnmarshalJSON decodes the error information with the layout selected by the
// error type.
func (e *ARMErrorInfo) UnmarshalJSON(data []byte) error {
	type plain ARMErrorInfo
	var aux struct {
		plain
		ErrorInformation json.RawMessage `json:"errorInformation"`
	}
	if err := ir.DecodeStrict(data, &aux); err != nil {
		return err
	}

	info, err := decodeRegister(aux.ErrorInformation, armInfoLayout(aux.ErrorType.Value), "errorInformation")
	if err != nil {
		return err
	}

	*e = ARMErrorInfo(aux.plain)
	e.ErrorInformation = info

	return nil
}

// Parse implements Body.
func (s *ARM) Parse(data []byte) error {
	r := wire.NewReader(data, "ARM section")
	s.ValidationBits = bitfield.ToNamed(uint64(r.U32()), 32, armValidNames)
	errorNum := int(r.U16())
	contextNum := int(r.U16())
	sectionLength := r.U32()
	s.ErrorAffinityLevel = r.U8()
	r.Skip(3)
	s.MPIDR = r.U64()
	s.MIDR = r.U64()
	s.Running = r.U32()&1 == 1
	s.PSCIState = r.U32()
	if err := r.Err(); err != nil {
		return err
	}
	if int(sectionLength) != len(data) {
		return errs.Malformed("ARM section: declared length %d, payload is %d bytes", sectionLength, len(data))
	}

	s.ErrorInfo = make([]ARMErrorInfo, 0, min(errorNum, r.Remaining()/armErrorInfoSize))
	for i := 0; i < errorNum && r.Err() == nil; i++ {
		var e ARMErrorInfo
		e.Version = r.U8()
		length := r.U8()
		e.ValidationBits = bitfield.ToNamed(uint64(r.U16()), 16, armErrorValidNames)
		e.ErrorType = bitfield.Lookup(uint64(r.U8()), armErrorTypes)
		e.MultipleError = r.U16()
		e.Flags = bitfield.ToNamed(uint64(r.U8()), 8, armErrorFlagNames)
		e.ErrorInformation = newRegister(r.U64(), armInfoLayout(e.ErrorType.Value))
		e.VirtualFaultAddress = r.U64()
		e.PhysicalFaultAddress = r.U64()
		if r.Err() == nil && length != armErrorInfoSize {
			return errs.Malformed("ARM section: error information %d has length %d, want %d", i, length, armErrorInfoSize)
		}
		s.ErrorInfo = append(s.ErrorInfo, e)
	}

	s.ContextInfo = make([]ARMContext, 0, min(contextNum, r.Remaining()/armContextHeader))
	for i := 0; i < contextNum && r.Err() == nil; i++ {
		var c ARMContext
		c.Version = r.U16()
		c.RegisterContextType = bitfield.Lookup(uint64(r.U16()), armContextTypes)
		size := r.U32()
		if uint64(size) > uint64(r.Remaining()) {
			return errs.Malformed("ARM section: context %d register array of %d bytes exceeds payload", i, size)
		}
		c.RegisterArray = r.Bytes(int(size))
		s.ContextInfo = append(s.ContextInfo, c)
	}
	if err := r.Err(); err != nil {
		return err
	}

	if r.Remaining() > 0 {
		s.VendorSpecificInfo = r.Rest()
	}

	return nil
}

// Bytes implements Body.
func (s *ARM) Bytes() ([]byte, error) {
	if len(s.ErrorInfo) > 0xFFFF || len(s.ContextInfo) > 0xFFFF {
		return nil, errs.InvalidTree("ARM section: too many error or context structures")
	}

	var n bitfield.Narrow
	w := wire.NewWriter(armHeaderSize + len(s.ErrorInfo)*armErrorInfoSize)
	w.U32(uint32(n.Bits("validationBits", s.ValidationBits, armValidNames)))
	w.U16(uint16(len(s.ErrorInfo)))
	w.U16(uint16(len(s.ContextInfo)))
	w.U32(0) // section length, patched below
	w.U8(s.ErrorAffinityLevel)
	w.Zero(3)
	w.U64(s.MPIDR)
	w.U64(s.MIDR)
	if s.Running {
		w.U32(1)
	} else {
		w.U32(0)
	}
	w.U32(s.PSCIState)

	for i, e := range s.ErrorInfo {
		path := "errorInfo[" + strconv.Itoa(i) + "]"
		w.U8(e.Version)
		w.U8(armErrorInfoSize)
		w.U16(uint16(n.Bits(path+".validationBits", e.ValidationBits, armErrorValidNames)))
		w.U8(n.U8(path+".errorType", e.ErrorType.Value))
		w.U16(e.MultipleError)
		w.U8(uint8(n.Bits(path+".flags", e.Flags, armErrorFlagNames)))
		w.U64(e.ErrorInformation.Value & ARMErrorInfoMask(e.ErrorType.Value))
		w.U64(e.VirtualFaultAddress)
		w.U64(e.PhysicalFaultAddress)
	}

	for i, c := range s.ContextInfo {
		path := "contextInfo[" + strconv.Itoa(i) + "]"
		w.U16(c.Version)
		w.U16(n.U16(path+".registerContextType", c.RegisterContextType.Value))
		w.U32(uint32(len(c.RegisterArray)))
		w.Write(c.RegisterArray)
	}
	w.Write(s.VendorSpecificInfo)

	if err := n.Err(); err != nil {
		return nil, err
	}

	out := w.Bytes()
	if uint64(len(out)) > 0xFFFFFFFF {
		return nil, errs.InvalidTree("ARM section: %d bytes exceed the section length field", len(out))
	}
	putU32(out[8:], uint32(len(out)))

	return out, nil
}
