package section

import (
	"encoding/json"
	"strconv"

	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/internal/wire"
	"github.com/arloliu/cper/ir"
)

const (
	ia32HeaderSize    = 64
	ia32ErrorInfoSize = 64
	ia32MaxEntries    = 63
)

var ia32ValidNames = []string{"localAPICIDValid", "cpuIDInfoValid"}

var ia32ErrorValidNames = []string{
	"checkInfoValid",
	"targetAddressIDValid",
	"requestorIDValid",
	"responderIDValid",
	"instructionPointerValid",
}

var (
	ia32Transactions = map[uint64]string{0: "Instruction", 1: "Data Access", 2: "Generic"}
	ia32CacheOps     = map[uint64]string{
		0: "Generic Error", 1: "Generic Read", 2: "Generic Write", 3: "Data Read",
		4: "Data Write", 5: "Instruction Fetch", 6: "Prefetch", 7: "Eviction", 8: "Snoop",
	}
	ia32BusOps = map[uint64]string{
		0: "Generic Error", 1: "Generic Read", 2: "Generic Write", 3: "Data Read",
		4: "Data Write", 5: "Instruction Fetch", 6: "Prefetch",
	}
	ia32Participation = map[uint64]string{
		0: "Local Processor Originated Request", 1: "Local Processor Responded to Request",
		2: "Local Processor Observed", 3: "Generic",
	}
	ia32AddressSpaces = map[uint64]string{0: "Memory Access", 2: "I/O", 3: "Other Transaction"}
	ia32MSErrorTypes  = map[uint64]string{
		0: "No Error", 1: "Unclassified", 2: "Microcode ROM Parity Error",
		3: "External Error", 4: "FRC Error", 5: "Internal Unclassified",
	}
	ia32ContextTypes = map[uint64]string{
		0: "Unclassified Data", 1: "MSR Registers", 2: "32-bit Mode Execution Context",
		3: "64-bit Mode Execution Context", 4: "FXSave Context", 5: "32-bit Debug Registers",
		6: "64-bit Debug Registers", 7: "Memory Mapped Registers",
	}
)

var ia32CacheCheck = regLayout{
	bitsAt("validationBits", 0, 16,
		"transactionTypeValid", "operationValid", "levelValid", "processorContextCorruptValid",
		"uncorrectedValid", "preciseIPValid", "restartableIPValid", "overflowValid"),
	enumAt("transactionType", 16, 2, ia32Transactions),
	enumAt("operation", 18, 4, ia32CacheOps),
	uintAt("level", 22, 3),
	flagAt("processorContextCorrupt", 25),
	flagAt("uncorrected", 26),
	flagAt("preciseIP", 27),
	flagAt("restartableIP", 28),
	flagAt("overflow", 29),
}

var ia32BusCheck = regLayout{
	bitsAt("validationBits", 0, 16,
		"transactionTypeValid", "operationValid", "levelValid", "processorContextCorruptValid",
		"uncorrectedValid", "preciseIPValid", "restartableIPValid", "overflowValid",
		"participationTypeValid", "timeoutValid", "addressSpaceValid"),
	enumAt("transactionType", 16, 2, ia32Transactions),
	enumAt("operation", 18, 4, ia32BusOps),
	uintAt("level", 22, 3),
	flagAt("processorContextCorrupt", 25),
	flagAt("uncorrected", 26),
	flagAt("preciseIP", 27),
	flagAt("restartableIP", 28),
	flagAt("overflow", 29),
	enumAt("participationType", 30, 2, ia32Participation),
	flagAt("timedOut", 32),
	enumAt("addressSpace", 33, 2, ia32AddressSpaces),
}

var ia32MSCheck = regLayout{
	bitsAt("validationBits", 0, 16,
		"errorTypeValid", "processorContextCorruptValid", "uncorrectedValid",
		"preciseIPValid", "restartableIPValid", "overflowValid"),
	enumAt("errorType", 16, 3, ia32MSErrorTypes),
	flagAt("processorContextCorrupt", 19),
	flagAt("uncorrected", 20),
	flagAt("preciseIP", 21),
	flagAt("restartableIP", 22),
	flagAt("overflow", 23),
}

var ia32CheckNames = map[guid.GUID]string{
	IA32CacheCheckGUID: "Cache Error",
	IA32TLBCheckGUID:   "TLB Error",
	IA32BusCheckGUID:   "Bus Error",
	IA32MSCheckGUID:    "MS Error",
}

// IA32CheckInfoMask returns the bits of the check information field that are
// defined for error structure type g. Unknown types keep every bit.
func IA32CheckInfoMask(g guid.GUID) uint64 {
	return maskOr(ia32CheckLayout(g))
}

func ia32CheckLayout(g guid.GUID) regLayout {
	switch g {
	case IA32CacheCheckGUID, IA32TLBCheckGUID:
		return ia32CacheCheck
	case IA32BusCheckGUID:
		return ia32BusCheck
	case IA32MSCheckGUID:
		return ia32MSCheck
	default:
		return nil
	}
}

// Execution context register files, selected by register context type.
var (
	ia32Registers = joinSlots(
		slots(4, "eax", "ebx", "ecx", "edx", "esi", "edi", "ebp", "esp"),
		slots(2, "cs", "ds", "ss", "es", "fs", "gs"),
		slots(4, "eflags", "eip", "cr0", "cr1", "cr2", "cr3", "cr4"),
		slots(8, "gdtr", "idtr"),
		slots(2, "ldtr", "tr"),
	)
	x64Registers = joinSlots(
		slots(8, "rax", "rbx", "rcx", "rdx", "rsi", "rdi", "rbp", "rsp",
			"r8", "r9", "r10", "r11", "r12", "r13", "r14", "r15"),
		slots(2, "cs", "ds", "ss", "es", "fs", "gs"),
		[]regSlot{{size: 4}},
		slots(8, "rflags", "rip", "cr0", "cr1", "cr2", "cr3", "cr4", "cr8",
			"gdtr0", "gdtr1", "idtr0", "idtr1"),
		slots(2, "ldtr", "tr"),
	)
)

func ia32RegisterLayout(contextType uint64) regFileLayout {
	switch contextType {
	case 2:
		return ia32Registers
	case 3:
		return x64Registers
	default:
		return nil
	}
}

// CPUIDInfo holds the EAX, EBX, ECX and EDX values returned by CPUID with
// EAX=1. The trailing 16 bytes of the field are reserved.
type CPUIDInfo struct {
	EAX uint64 `json:"eax"`
	EBX uint64 `json:"ebx"`
	ECX uint64 `json:"ecx"`
	EDX uint64 `json:"edx"`
}

// IA32X64 is the IA32/X64 processor error section.
type IA32X64 struct {
	ValidationBits bitfield.Named     `json:"validationBits"`
	LocalAPICID    uint64             `json:"localAPICID"`
	CPUIDInfo      CPUIDInfo          `json:"cpuidInfo"`
	ErrorInfo      []IA32X64ErrorInfo `json:"processorErrorInfo"`
	ContextInfo    []IA32X64Context   `json:"processorContextInfo"`
}

// IA32X64ErrorInfo is one processor error information structure.
type IA32X64ErrorInfo struct {
	Type               guid.Ref       `json:"type"`
	ValidationBits     bitfield.Named `json:"validationBits"`
	CheckInfo          Register       `json:"checkInfo"`
	TargetAddressID    uint64         `json:"targetAddressID"`
	RequestorID        uint64         `json:"requestorID"`
	ResponderID        uint64         `json:"responderID"`
	InstructionPointer uint64         `json:"instructionPointer"`
}

// IA32X64Context is one processor context information structure.
//
// Execution contexts whose array has exactly the architectural size render
// as named registers; every other array renders as base64.
type IA32X64Context struct {
	RegisterContextType bitfield.Enum `json:"registerContextType"`
	RegisterArraySize   uint16        `json:"registerArraySize,omitempty"`
	MSRAddress          uint32        `json:"msrAddress"`
	MMRegisterAddress   uint64        `json:"mmRegisterAddress"`
	Registers           Registers     `json:"registers,omitempty"`
	RegisterArray       []byte        `json:"registerArray,omitempty"`
}

// UnmarshalJSON decodes the check information with the layout selected by the
// structure type.
func (e *IA32X64ErrorInfo) UnmarshalJSON(data []byte) error {
	type plain IA32X64ErrorInfo
	var aux struct {
		plain
		CheckInfo json.RawMessage `json:"checkInfo"`
	}
	if err := ir.DecodeStrict(data, &aux); err != nil {
		return err
	}

	check, err := decodeRegister(aux.CheckInfo, ia32CheckLayout(aux.Type.GUID), "checkInfo")
	if err != nil {
		return err
	}

	*e = IA32X64ErrorInfo(aux.plain)
	e.CheckInfo = check

	return nil
}

// Parse implements Body.
func (s *IA32X64) Parse(data []byte) error {
	r := wire.NewReader(data, "IA32/X64 section")
	valid := r.U64()
	s.ValidationBits = bitfield.ToNamed(valid, 2, ia32ValidNames)
	errorNum := int(bitfield.Field(valid, 2, 6))
	contextNum := int(bitfield.Field(valid, 8, 6))

	s.LocalAPICID = r.U64()
	s.CPUIDInfo = CPUIDInfo{EAX: r.U64(), EBX: r.U64(), ECX: r.U64(), EDX: r.U64()}
	r.Skip(16)
	if err := r.Err(); err != nil {
		return err
	}

	s.ErrorInfo = make([]IA32X64ErrorInfo, errorNum)
	for i := range s.ErrorInfo {
		e := &s.ErrorInfo[i]
		e.Type = guid.Ref{GUID: r.GUID()}
		e.Type.Name = ia32CheckNames[e.Type.GUID]
		e.ValidationBits = bitfield.ToNamed(r.U64(), 64, ia32ErrorValidNames)
		e.CheckInfo = newRegister(r.U64(), ia32CheckLayout(e.Type.GUID))
		e.TargetAddressID = r.U64()
		e.RequestorID = r.U64()
		e.ResponderID = r.U64()
		e.InstructionPointer = r.U64()
	}

	s.ContextInfo = make([]IA32X64Context, contextNum)
	for i := range s.ContextInfo {
		c := &s.ContextInfo[i]
		c.RegisterContextType = bitfield.Lookup(uint64(r.U16()), ia32ContextTypes)
		c.RegisterArraySize = r.U16()
		c.MSRAddress = r.U32()
		c.MMRegisterAddress = r.U64()
		array := r.Bytes(int(c.RegisterArraySize))
		if r.Err() != nil {
			break
		}

		layout := ia32RegisterLayout(c.RegisterContextType.Value)
		if layout != nil && layout.size() == len(array) {
			regs, err := layout.decode(array)
			if err != nil {
				return err
			}
			c.Registers = regs
		} else {
			c.RegisterArray = array
		}
	}
	if err := r.Err(); err != nil {
		return err
	}
	if r.Remaining() != 0 {
		return errs.Malformed("IA32/X64 section: %d trailing bytes after context information", r.Remaining())
	}

	return nil
}

// Bytes implements Body.
func (s *IA32X64) Bytes() ([]byte, error) {
	if len(s.ErrorInfo) > ia32MaxEntries || len(s.ContextInfo) > ia32MaxEntries {
		return nil, errs.InvalidTree("IA32/X64 section: at most %d error and %d context structures", ia32MaxEntries, ia32MaxEntries)
	}

	var n bitfield.Narrow
	valid := n.Bits("validationBits", s.ValidationBits, ia32ValidNames)
	valid |= uint64(len(s.ErrorInfo)) << 2
	valid |= uint64(len(s.ContextInfo)) << 8

	w := wire.NewWriter(ia32HeaderSize + len(s.ErrorInfo)*ia32ErrorInfoSize)
	w.U64(valid)
	w.U64(s.LocalAPICID)
	w.U64(s.CPUIDInfo.EAX)
	w.U64(s.CPUIDInfo.EBX)
	w.U64(s.CPUIDInfo.ECX)
	w.U64(s.CPUIDInfo.EDX)
	w.Zero(16)

	for i, e := range s.ErrorInfo {
		w.GUID(e.Type.GUID)
		w.U64(n.Bits(errorPath(i, "validationBits"), e.ValidationBits, ia32ErrorValidNames))
		w.U64(e.CheckInfo.Value & IA32CheckInfoMask(e.Type.GUID))
		w.U64(e.TargetAddressID)
		w.U64(e.RequestorID)
		w.U64(e.ResponderID)
		w.U64(e.InstructionPointer)
	}

	for i, c := range s.ContextInfo {
		array := c.RegisterArray
		if len(c.Registers) > 0 {
			layout := ia32RegisterLayout(c.RegisterContextType.Value)
			if layout == nil {
				return nil, errs.InvalidTree("processorContextInfo[%d]: named registers need an execution context type", i)
			}
			enc, err := layout.encode(c.Registers)
			if err != nil {
				return nil, errs.Within(contextPath(i), err)
			}
			array = enc
		}
		if len(array) > 0xFFFF {
			return nil, errs.InvalidTree("processorContextInfo[%d]: register array of %d bytes is too large", i, len(array))
		}

		w.U16(n.U16(contextPath(i)+".registerContextType", c.RegisterContextType.Value))
		w.U16(uint16(len(array)))
		w.U32(c.MSRAddress)
		w.U64(c.MMRegisterAddress)
		w.Write(array)
	}

	if err := n.Err(); err != nil {
		return nil, err
	}

	return w.Bytes(), nil
}

func errorPath(i int, field string) string {
	return "processorErrorInfo[" + strconv.Itoa(i) + "]." + field
}

func contextPath(i int) string {
	return "processorContextInfo[" + strconv.Itoa(i) + "]"
}
