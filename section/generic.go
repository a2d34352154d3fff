package section

import (
	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/internal/wire"
)

// GenericProcessorSize is the payload size of a processor generic section.
const GenericProcessorSize = 192

var genericValidNames = []string{
	"processorTypeValid",
	"processorISAValid",
	"processorErrorTypeValid",
	"operationValid",
	"flagsValid",
	"levelValid",
	"cpuVersionValid",
	"cpuBrandInfoValid",
	"cpuIDValid",
	"targetAddressValid",
	"requestorIDValid",
	"responderIDValid",
	"instructionIPValid",
}

var genericFlagNames = []string{"restartable", "preciseIP", "overflow", "corrected"}

var (
	processorTypes = map[uint64]string{0: "IA32/X64", 1: "IA64", 2: "ARM"}
	processorISAs  = map[uint64]string{0: "IA32", 1: "IA64", 2: "X64", 3: "ARM A32/T32", 4: "ARM A64"}
	processorErrs  = map[uint64]string{0: "Unknown", 1: "Cache Error", 2: "TLB Error", 4: "Bus Error", 8: "Micro-Architectural Error"}
	processorOps   = map[uint64]string{0: "Unknown or Generic", 1: "Data Read", 2: "Data Write", 3: "Instruction Execution"}
)

// GenericProcessor is the processor generic error section.
type GenericProcessor struct {
	ValidationBits bitfield.Named `json:"validationBits"`
	ProcessorType  bitfield.Enum  `json:"processorType"`
	ProcessorISA   bitfield.Enum  `json:"processorISA"`
	ErrorType      bitfield.Enum  `json:"errorType"`
	Operation      bitfield.Enum  `json:"operation"`
	Flags          bitfield.Named `json:"flags"`
	Level          uint8          `json:"level"`
	CPUVersionInfo uint64         `json:"cpuVersionInfo"`
	CPUBrandString Text           `json:"cpuBrandString"`
	ProcessorID    uint64         `json:"processorID"`
	TargetAddress  uint64         `json:"targetAddress"`
	RequestorID    uint64         `json:"requestorID"`
	ResponderID    uint64         `json:"responderID"`
	InstructionIP  uint64         `json:"instructionIP"`
}

// Parse implements Body.
func (s *GenericProcessor) Parse(data []byte) error {
	if len(data) != GenericProcessorSize {
		return errs.Malformed("processor generic section: want %d bytes, have %d", GenericProcessorSize, len(data))
	}

	r := wire.NewReader(data, "processor generic section")
	s.ValidationBits = bitfield.ToNamed(r.U64(), 64, genericValidNames)
	s.ProcessorType = bitfield.Lookup(uint64(r.U8()), processorTypes)
	s.ProcessorISA = bitfield.Lookup(uint64(r.U8()), processorISAs)
	s.ErrorType = bitfield.Lookup(uint64(r.U8()), processorErrs)
	s.Operation = bitfield.Lookup(uint64(r.U8()), processorOps)
	s.Flags = bitfield.ToNamed(uint64(r.U8()), 8, genericFlagNames)
	s.Level = r.U8()
	r.Skip(2)
	s.CPUVersionInfo = r.U64()
	s.CPUBrandString = Text(r.Bytes(128))
	s.ProcessorID = r.U64()
	s.TargetAddress = r.U64()
	s.RequestorID = r.U64()
	s.ResponderID = r.U64()
	s.InstructionIP = r.U64()

	return r.Err()
}

// Bytes implements Body.
func (s *GenericProcessor) Bytes() ([]byte, error) {
	var n bitfield.Narrow
	w := wire.NewWriter(GenericProcessorSize)
	w.U64(n.Bits("validationBits", s.ValidationBits, genericValidNames))
	w.U8(n.U8("processorType", s.ProcessorType.Value))
	w.U8(n.U8("processorISA", s.ProcessorISA.Value))
	w.U8(n.U8("errorType", s.ErrorType.Value))
	w.U8(n.U8("operation", s.Operation.Value))
	w.U8(uint8(n.Bits("flags", s.Flags, genericFlagNames)))
	w.U8(s.Level)
	w.Zero(2)
	w.U64(s.CPUVersionInfo)
	n.Keep(putText(w, "cpuBrandString", s.CPUBrandString, 128))
	w.U64(s.ProcessorID)
	w.U64(s.TargetAddress)
	w.U64(s.RequestorID)
	w.U64(s.ResponderID)
	w.U64(s.InstructionIP)

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}
