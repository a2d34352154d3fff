package section

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/cper/bitfield"
	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/internal/wire"
	"github.com/arloliu/cper/ir"
)

// roundTrip checks payload -> body -> payload and payload -> tree -> payload.
func roundTrip(t *testing.T, newBody func() Body, payload []byte) []byte {
	t.Helper()

	body := newBody()
	require.NoError(t, body.Parse(payload))

	out, err := body.Bytes()
	require.NoError(t, err)
	require.Equal(t, payload, out, "binary round trip")

	tree, err := json.Marshal(body)
	require.NoError(t, err)

	back := newBody()
	require.NoError(t, ir.DecodeStrict(tree, back), "tree: %s", tree)

	out, err = back.Bytes()
	require.NoError(t, err)
	require.Equal(t, payload, out, "tree round trip")

	return tree
}

func newOf[T any, P interface {
	*T
	Body
}]() func() Body {
	return func() Body { return P(new(T)) }
}

func TestRegistry(t *testing.T) {
	reg := DefaultRegistry()

	t.Run("Known GUID", func(t *testing.T) {
		c, ok := reg.Lookup(MemoryGUID)
		require.True(t, ok)
		require.Equal(t, "memory", c.Key)
		require.Equal(t, "Platform Memory", reg.Name(MemoryGUID))
		require.IsType(t, &Memory{}, c.New())
	})

	t.Run("Lookup by key", func(t *testing.T) {
		c, ok := reg.LookupKey("dmarvtd")
		require.True(t, ok)
		require.Equal(t, DMArVTdGUID, c.GUID)

		_, ok = reg.LookupKey("nope")
		require.False(t, ok)
	})

	t.Run("Unknown GUID falls back to opaque", func(t *testing.T) {
		g := guid.MustParse("01234567-89ab-cdef-0123-456789abcdef")
		_, ok := reg.Lookup(g)
		require.False(t, ok)

		c := reg.Resolve(g)
		require.Equal(t, g, c.GUID)
		require.Equal(t, UnknownName, c.Name)
		require.IsType(t, &Opaque{}, c.New())
		require.Empty(t, reg.Name(g))
	})

	t.Run("IPF is opaque", func(t *testing.T) {
		require.IsType(t, &Opaque{}, reg.Resolve(IPFGUID).New())
	})

	t.Run("Every CXL component type shares one codec", func(t *testing.T) {
		for _, g := range CXLComponentGUIDs {
			require.IsType(t, &CXLComponent{}, reg.Resolve(g).New())
		}
	})

	t.Run("First registration wins", func(t *testing.T) {
		r := NewRegistry(
			Codec{Key: "a", GUID: MemoryGUID, New: newOf[Memory]()},
			Codec{Key: "b", GUID: MemoryGUID, New: newOf[Memory2]()},
		)
		require.Len(t, r.Codecs(), 1)
		require.IsType(t, &Memory{}, r.Resolve(MemoryGUID).New())
	})

	require.Len(t, reg.Codecs(), 21)
}

func TestOpaque(t *testing.T) {
	for _, size := range []int{0, 1, 7, 300} {
		payload := bytes.Repeat([]byte{0xA5}, size)
		g := guid.MustParse("01234567-89ab-cdef-0123-456789abcdef")

		body, err := DefaultRegistry().Decode(g, payload)
		require.NoError(t, err)

		tree := roundTrip(t, newOpaque, payload)
		require.Contains(t, string(tree), `"length":`)

		out, err := body.Bytes()
		require.NoError(t, err)
		require.Len(t, out, size)
	}

	t.Run("Length mismatch", func(t *testing.T) {
		o := &Opaque{Length: 3, Data: []byte{1}}
		_, err := o.Bytes()
		require.ErrorIs(t, err, errs.ErrInvalidTree)
	})
}

func TestDMArGenericScenario(t *testing.T) {
	w := wire.NewWriter(DMArGenericSize)
	w.U16(0x0100)
	w.U16(0)
	w.U8(3) // fault reason
	w.U8(1) // write
	w.U8(0)
	w.U8(1)
	w.U64(0xFEE00000)
	w.Write(bytes.Repeat([]byte{0xFF}, 16)) // reserved, not zero
	payload := w.Bytes()

	var s DMArGeneric
	require.NoError(t, s.Parse(payload))

	tree, err := json.Marshal(&s)
	require.NoError(t, err)
	var obj map[string]any
	require.NoError(t, json.Unmarshal(tree, &obj))
	require.EqualValues(t, 3, obj["faultReason"])
	require.EqualValues(t, 1, obj["accessType"])
	require.Equal(t, "VT-d", obj["architectureTypeDescription"])

	out, err := s.Bytes()
	require.NoError(t, err)
	require.Equal(t, payload[:16], out[:16])
	require.Equal(t, make([]byte, 16), out[16:])
}

func TestDMArGenericWrongSize(t *testing.T) {
	var s DMArGeneric
	require.ErrorIs(t, s.Parse(make([]byte, 31)), errs.ErrMalformedRecord)
}

func ccixPayload(length uint32, log []byte) []byte {
	w := wire.NewWriter(16 + len(log))
	w.U32(length)
	w.U64(0b111)
	w.U8(0x12)
	w.U8(0x07)
	w.Zero(2)
	w.Write(log)

	return w.Bytes()
}

func TestCCIXPER(t *testing.T) {
	t.Run("Length 16 has an empty log", func(t *testing.T) {
		var s CCIXPER
		require.NoError(t, s.Parse(ccixPayload(16, nil)))
		require.Empty(t, s.PERLog)

		roundTrip(t, newOf[CCIXPER](), ccixPayload(16, nil))
	})

	t.Run("Log follows the header", func(t *testing.T) {
		log := []byte{1, 2, 3, 4, 5}
		var s CCIXPER
		require.NoError(t, s.Parse(ccixPayload(21, log)))
		require.Equal(t, log, s.PERLog)
		require.True(t, s.ValidationBits.Get("ccixPERLogValid"))

		roundTrip(t, newOf[CCIXPER](), ccixPayload(21, log))
	})

	t.Run("Declared length shorter than header", func(t *testing.T) {
		var s CCIXPER
		require.ErrorIs(t, s.Parse(ccixPayload(8, nil)), errs.ErrMalformedRecord)
	})

	t.Run("Declared length disagrees with payload", func(t *testing.T) {
		var s CCIXPER
		require.ErrorIs(t, s.Parse(ccixPayload(40, []byte{1})), errs.ErrMalformedRecord)
	})

	t.Run("Short payload", func(t *testing.T) {
		var s CCIXPER
		require.ErrorIs(t, s.Parse([]byte{16, 0, 0, 0}), errs.ErrMalformedRecord)
	})

	t.Run("Length is recomputed", func(t *testing.T) {
		s := CCIXPER{Length: 99, ValidationBits: bitfield.Named{}, PERLog: []byte{9, 9}}
		out, err := s.Bytes()
		require.NoError(t, err)
		require.Equal(t, []byte{18, 0, 0, 0}, out[:4])
	})
}

func cxlComponentPayload(length uint32, log []byte) []byte {
	w := wire.NewWriter(32 + len(log))
	w.U32(length)
	w.U64(0b011)
	w.U16(0x8086)
	w.U16(0x0B5A)
	w.U8(1)
	w.U8(2)
	w.U8(3)
	w.U16(4)
	w.U16(5 << 3)
	w.Zero(1)
	w.U64(0xDEADBEEF)
	w.Write(log)

	return w.Bytes()
}

func TestCXLComponent(t *testing.T) {
	t.Run("Round trip with event log", func(t *testing.T) {
		log := bytes.Repeat([]byte{0x42}, 48)
		tree := roundTrip(t, newOf[CXLComponent](), cxlComponentPayload(80, log))
		require.Contains(t, string(tree), `"slotNumber":5`)
	})

	t.Run("Header only", func(t *testing.T) {
		roundTrip(t, newOf[CXLComponent](), cxlComponentPayload(32, nil))
	})

	t.Run("Declared length below header size", func(t *testing.T) {
		var s CXLComponent
		require.ErrorIs(t, s.Parse(cxlComponentPayload(8, nil)), errs.ErrMalformedRecord)
	})

	t.Run("Declared length beyond payload", func(t *testing.T) {
		var s CXLComponent
		require.ErrorIs(t, s.Parse(cxlComponentPayload(0xFFFFFFFF, nil)), errs.ErrMalformedRecord)
	})
}

func TestCXLProtocol(t *testing.T) {
	build := func(agentType uint8, address uint64, dvsec, errLog []byte) []byte {
		w := wire.NewWriter(116)
		w.U64(0x7F)
		w.U8(agentType)
		w.Zero(7)
		w.U64(address)
		w.U16(1)
		w.U16(2)
		w.U16(3)
		w.U16(4)
		w.U16(5)
		w.U16(6 << 3)
		w.Zero(4)
		w.U64(7)
		w.Write(bytes.Repeat([]byte{0xCA}, 60))
		w.U16(uint16(len(dvsec)))
		w.U16(uint16(len(errLog)))
		w.Zero(4)
		w.Write(dvsec)
		w.Write(errLog)

		return w.Bytes()
	}

	t.Run("Device agent", func(t *testing.T) {
		payload := build(0, 0x0000_0001_0203_0405&CXLAgentAddressMask(0), []byte{1, 2}, []byte{3, 4, 5})
		tree := roundTrip(t, newOf[CXLProtocol](), payload)
		require.Contains(t, string(tree), `"busNumber":`)
	})

	t.Run("Port agent", func(t *testing.T) {
		payload := build(1, 0xFEDC_BA98_7654_3210, nil, nil)
		tree := roundTrip(t, newOf[CXLProtocol](), payload)
		require.Contains(t, string(tree), `"portRCRBBaseAddress":18364758544493064720`)
	})

	t.Run("Unknown agent type keeps the raw address", func(t *testing.T) {
		payload := build(7, 0x1122_3344_5566_7788, nil, []byte{1})
		tree := roundTrip(t, newOf[CXLProtocol](), payload)
		require.Contains(t, string(tree), `"cxlAgentAddress":{"value":1234605616436508552}`)
	})

	t.Run("Lengths disagree with payload", func(t *testing.T) {
		payload := build(0, 0, []byte{1, 2}, nil)
		var s CXLProtocol
		require.ErrorIs(t, s.Parse(payload[:len(payload)-1]), errs.ErrMalformedRecord)
	})
}

func TestMemoryNormalisesReservedBits(t *testing.T) {
	w := wire.NewWriter(MemorySize)
	w.U64(0x3FFFFF)
	w.U64(0xFFFF_FFFF_FFFF_FFFF) // error status with reserved bits set
	w.U64(0x1000)
	w.U64(0xFFFF_F000)
	for i := range 8 {
		w.U16(uint16(i + 1))
	}
	w.U64(1)
	w.U64(2)
	w.U64(3)
	w.U8(3)
	w.U8(0xFF) // extended: bits 3-4 reserved
	w.U16(4)
	w.U16(5)
	w.U16(6)
	payload := w.Bytes()

	var s Memory
	require.NoError(t, s.Parse(payload))
	require.Equal(t, "Multi-bit ECC", s.MemoryErrorType.Name)
	require.Equal(t, uint8(7), s.ExtendedRowBits)
	require.Equal(t, uint8(7), s.ChipIdentification)
	require.True(t, s.ErrorStatus.Overflow)

	out, err := s.Bytes()
	require.NoError(t, err)
	require.Equal(t, uint64(0x7FFF00), leU64(out[8:]))
	require.Equal(t, uint8(0xE7), out[73])

	roundTrip(t, newOf[Memory](), out)
}

func TestMemory2(t *testing.T) {
	w := wire.NewWriter(Memory2Size)
	w.U64(0x3FFFFF)
	w.U64(0x7FFF00)
	w.U64(0x2000)
	w.U64(0xF000)
	for i := range 4 {
		w.U16(uint16(i))
	}
	for i := range 5 {
		w.U32(uint32(i * 1000))
	}
	w.U8(2)
	w.U8(14)
	w.U8(1)
	w.Zero(1)
	w.U64(7)
	w.U64(8)
	w.U64(9)
	w.U32(10)
	w.U32(11)

	tree := roundTrip(t, newOf[Memory2](), w.Bytes())
	require.Contains(t, string(tree), `"corrected":true`)
	require.Contains(t, string(tree), `Scrub Uncorrected Error`)
}

func TestGenericProcessor(t *testing.T) {
	w := wire.NewWriter(GenericProcessorSize)
	w.U64(0x1FFF)
	w.U8(0)
	w.U8(2)
	w.U8(1)
	w.U8(2)
	w.U8(0x0F)
	w.U8(1)
	w.Zero(2)
	w.U64(0x000906EA)
	w.Fixed([]byte("Intel(R) Xeon(R) CPU"), 128)
	for i := range 5 {
		w.U64(uint64(i) << 12)
	}
	payload := w.Bytes()

	tree := roundTrip(t, newOf[GenericProcessor](), payload)
	require.Contains(t, string(tree), `"cpuBrandString":"Intel(R) Xeon(R) CPU"`)
	require.Contains(t, string(tree), `"name":"X64"`)

	t.Run("Brand string with bytes after the terminator", func(t *testing.T) {
		dirty := bytes.Clone(payload)
		dirty[24+100] = 0x80
		tree := roundTrip(t, newOf[GenericProcessor](), dirty)
		require.Contains(t, string(tree), `"cpuBrandString":{"raw":`)
	})

	t.Run("Reserved flag bits are dropped", func(t *testing.T) {
		dirty := bytes.Clone(payload)
		dirty[12] = 0xFF
		dirty[14] = 0xAA
		var s GenericProcessor
		require.NoError(t, s.Parse(dirty))
		out, err := s.Bytes()
		require.NoError(t, err)
		require.Equal(t, payload, out)
	})

	t.Run("Enum out of range", func(t *testing.T) {
		var s GenericProcessor
		require.NoError(t, s.Parse(payload))
		s.ProcessorISA.Value = 300
		_, err := s.Bytes()
		require.ErrorIs(t, err, errs.ErrInvalidTree)
	})
}

func ia32Payload(errInfo [][2]any, contexts [][2]any) []byte {
	w := wire.NewWriter(256)
	w.U64(0b11 | uint64(len(errInfo))<<2 | uint64(len(contexts))<<8)
	w.U64(0x20)
	w.U64(0x000906EA)
	w.U64(0x00100800)
	w.U64(0x7FFAFBFF)
	w.U64(0xBFEBFBFF)
	w.Zero(16)
	for _, e := range errInfo {
		g := e[0].(guid.GUID)
		w.GUID(g)
		w.U64(0x1F)
		w.U64(e[1].(uint64))
		w.U64(0x1000)
		w.U64(0x2000)
		w.U64(0x3000)
		w.U64(0xFFFF_8000_0000_1234)
	}
	for _, c := range contexts {
		array := c[1].([]byte)
		w.U16(c[0].(uint16))
		w.U16(uint16(len(array)))
		w.U32(0x179)
		w.U64(0)
		w.Write(array)
	}

	return w.Bytes()
}

func TestIA32X64(t *testing.T) {
	x64 := make([]byte, 244)
	for i := range x64 {
		x64[i] = byte(i)
	}
	x64[140], x64[141], x64[142], x64[143] = 0, 0, 0, 0 // reserved after segments

	payload := ia32Payload(
		[][2]any{
			{IA32CacheCheckGUID, uint64(0x3FFF00FF) & IA32CheckInfoMask(IA32CacheCheckGUID)},
			{IA32BusCheckGUID, uint64(0x7_FFFF_07FF)},
			{IA32MSCheckGUID, uint64(0xFF003F)},
			{guid.MustParse("01234567-89ab-cdef-0123-456789abcdef"), uint64(0xFFFF_FFFF_FFFF_FFFF)},
		},
		[][2]any{
			{uint16(3), x64},
			{uint16(2), make([]byte, 92)},
			{uint16(1), []byte{1, 2, 3, 4, 5, 6, 7, 8}},
			{uint16(3), make([]byte, 8)}, // wrong size renders as base64
		},
	)

	tree := roundTrip(t, newOf[IA32X64](), payload)
	s := string(tree)
	require.Contains(t, s, `"rax":`)
	require.Contains(t, s, `"eax":`)
	require.Contains(t, s, `"participationType":`)
	require.Contains(t, s, `"checkInfo":{"value":18446744073709551615}`)
	require.Contains(t, s, `"registerArray":"AQIDBAUGBwg="`)

	t.Run("Trailing bytes", func(t *testing.T) {
		var body IA32X64
		require.ErrorIs(t, body.Parse(append(bytes.Clone(payload), 0)), errs.ErrMalformedRecord)
	})

	t.Run("Truncated context", func(t *testing.T) {
		var body IA32X64
		require.ErrorIs(t, body.Parse(payload[:len(payload)-1]), errs.ErrMalformedRecord)
	})

	t.Run("Missing register in tree", func(t *testing.T) {
		var body IA32X64
		require.NoError(t, body.Parse(payload))
		body.ContextInfo[0].Registers = body.ContextInfo[0].Registers[1:]
		_, err := body.Bytes()
		require.ErrorIs(t, err, errs.ErrInvalidTree)
	})

	t.Run("Check info layout mismatch in tree", func(t *testing.T) {
		doc := `{"type":{"guid":"a55701f5-e3ef-43de-ac72-249b573fad2c"},"validationBits":{},` +
			`"checkInfo":{"value":1},"targetAddressID":0,"requestorID":0,"responderID":0,"instructionPointer":0}`
		var e IA32X64ErrorInfo
		require.ErrorIs(t, ir.DecodeStrict([]byte(doc), &e), errs.ErrInvalidTree)
	})
}

func TestCheckInfoMasks(t *testing.T) {
	require.Equal(t, uint64(0x3FFF00FF), IA32CheckInfoMask(IA32CacheCheckGUID))
	require.Equal(t, uint64(0x3FFF00FF), IA32CheckInfoMask(IA32TLBCheckGUID))
	require.Equal(t, uint64(0x7_FFFF_07FF), IA32CheckInfoMask(IA32BusCheckGUID))
	require.Equal(t, uint64(0xFF003F), IA32CheckInfoMask(IA32MSCheckGUID))
	require.Equal(t, ^uint64(0), IA32CheckInfoMask(guid.Nil))

	require.Equal(t, uint64(0x1FFF007F), ARMErrorInfoMask(0))
	require.Equal(t, uint64(0xFFF_FFFF_0FFF), ARMErrorInfoMask(2))
	require.Equal(t, ^uint64(0), ARMErrorInfoMask(3))
}

func armPayload(errorTypes []uint8, contexts [][]byte, vendor []byte) []byte {
	w := wire.NewWriter(256)
	w.U32(0xF)
	w.U16(uint16(len(errorTypes)))
	w.U16(uint16(len(contexts)))
	w.U32(0) // patched
	w.U8(2)
	w.Zero(3)
	w.U64(0x80000001)
	w.U64(0x410FD0C0)
	w.U32(1)
	w.U32(0)
	for _, et := range errorTypes {
		w.U8(0)
		w.U8(32)
		w.U16(0x1F)
		w.U8(et)
		w.U16(2)
		w.U8(0x0F)
		w.U64(0x0000_0FFF_FFFF_0FFF & ARMErrorInfoMask(uint64(et)))
		w.U64(0xFFFF_0000)
		w.U64(0x8000_0000)
	}
	for _, c := range contexts {
		w.U16(0)
		w.U16(4)
		w.U32(uint32(len(c)))
		w.Write(c)
	}
	w.Write(vendor)

	out := w.Bytes()
	putU32(out[8:], uint32(len(out)))

	return out
}

func TestARM(t *testing.T) {
	payload := armPayload([]uint8{0, 1, 2, 3}, [][]byte{bytes.Repeat([]byte{7}, 16)}, []byte("vendor"))
	tree := roundTrip(t, newOf[ARM](), payload)
	require.Contains(t, string(tree), `"memoryAttributes":`)
	require.Contains(t, string(tree), `"vendorSpecificInfo":`)

	t.Run("No vendor data", func(t *testing.T) {
		roundTrip(t, newOf[ARM](), armPayload([]uint8{0}, nil, nil))
	})

	t.Run("Section length mismatch", func(t *testing.T) {
		bad := bytes.Clone(payload)
		putU32(bad[8:], uint32(len(bad)+1))
		var s ARM
		require.ErrorIs(t, s.Parse(bad), errs.ErrMalformedRecord)
	})

	t.Run("Error info length byte", func(t *testing.T) {
		bad := bytes.Clone(payload)
		bad[armHeaderSize+1] = 31
		var s ARM
		require.ErrorIs(t, s.Parse(bad), errs.ErrMalformedRecord)
	})

	t.Run("Context larger than payload", func(t *testing.T) {
		bad := armPayload(nil, [][]byte{{1, 2}}, nil)
		putU32(bad[armHeaderSize+4:], 1000)
		var s ARM
		require.ErrorIs(t, s.Parse(bad), errs.ErrMalformedRecord)
	})
}

func TestPCIe(t *testing.T) {
	w := wire.NewWriter(PCIeSize)
	w.U64(0xFF)
	w.U32(4)
	w.U32(0x0302)
	w.U16(0x0547)
	w.U16(0x0010)
	w.Zero(4)
	w.U16(0x8086)
	w.U16(0x2030)
	w.Write([]byte{0x00, 0x04, 0x06})
	w.U8(0)
	w.U8(1)
	w.U16(0)
	w.U8(0x17)
	w.U8(0x18)
	w.U16(9 << 3)
	w.Zero(1)
	w.U64(0x1122334455667788)
	w.U16(0x2000)
	w.U16(0x0003)
	w.Write(bytes.Repeat([]byte{0xC0}, 60))
	w.Write(bytes.Repeat([]byte{0xAE}, 96))

	tree := roundTrip(t, newOf[PCIe](), w.Bytes())
	require.Contains(t, string(tree), `"name":"Root Port"`)
	require.Contains(t, string(tree), `"classCode":394240`)
	require.Contains(t, string(tree), `"version":{"major":3,"minor":2}`)

	t.Run("Capability of the wrong size", func(t *testing.T) {
		var s PCIe
		require.NoError(t, s.Parse(w.Bytes()))
		s.CapabilityStructure = s.CapabilityStructure[:59]
		_, err := s.Bytes()
		require.ErrorIs(t, err, errs.ErrInvalidTree)
	})
}

func TestPCIBusAndDevice(t *testing.T) {
	t.Run("Bus", func(t *testing.T) {
		w := wire.NewWriter(PCIBusSize)
		w.U64(0x1FF)
		w.U64(0x160000 | 22<<8)
		w.U16(2)
		w.U16(0x0105)
		w.Zero(4)
		w.U64(0xCAFE)
		w.U64(0xBEEF)
		w.U64(1 << 56)
		w.U64(1)
		w.U64(2)
		w.U64(3)

		tree := roundTrip(t, newOf[PCIBus](), w.Bytes())
		require.Contains(t, string(tree), `"busCommandType":"PCI-X"`)
		require.Contains(t, string(tree), `"busID":{"busNumber":5,"segmentNumber":1}`)
		require.Contains(t, string(tree), `"ERR_PARITY"`)
	})

	device := func(mem, io uint32, pairs int) []byte {
		w := wire.NewWriter(40 + 16*pairs)
		w.U64(0x1F)
		w.U64(0)
		w.U16(0x10DE)
		w.U16(0x1234)
		w.Write([]byte{0, 2, 3})
		w.U8(1)
		w.U8(2)
		w.U8(3)
		w.U8(4)
		w.Zero(5)
		w.U32(mem)
		w.U32(io)
		for i := range pairs {
			w.U64(uint64(i))
			w.U64(uint64(i) * 2)
		}

		return w.Bytes()
	}

	t.Run("Device", func(t *testing.T) {
		roundTrip(t, newOf[PCIDevice](), device(2, 1, 3))
		roundTrip(t, newOf[PCIDevice](), device(0, 0, 0))
	})

	t.Run("Device pair count disagrees with payload", func(t *testing.T) {
		var s PCIDevice
		require.ErrorIs(t, s.Parse(device(2, 2, 3)), errs.ErrMalformedRecord)
		require.ErrorIs(t, s.Parse(device(0xFFFFFFFF, 0xFFFFFFFF, 0)), errs.ErrMalformedRecord)
	})

	t.Run("Device pair count disagrees with tree", func(t *testing.T) {
		var s PCIDevice
		require.NoError(t, s.Parse(device(1, 1, 2)))
		s.IONumber = 5
		_, err := s.Bytes()
		require.ErrorIs(t, err, errs.ErrInvalidTree)
	})
}

func TestFirmware(t *testing.T) {
	w := wire.NewWriter(FirmwareSize)
	w.U8(2)
	w.U8(1)
	w.Zero(6)
	w.U64(0x1234)
	w.GUID(FirmwareGUID)

	tree := roundTrip(t, newOf[Firmware](), w.Bytes())
	require.Contains(t, string(tree), `"recordIDGUID":"81212a96-09ed-4996-9471-8d729c8e69ed"`)
}

func TestDMArVTdAndIOMMU(t *testing.T) {
	t.Run("VT-d", func(t *testing.T) {
		w := wire.NewWriter(DMArVTdSize)
		w.U8(1)
		w.U8(0)
		w.Fixed([]byte("INTEL"), 6)
		w.U64(0xD2008C40660462)
		w.U64(0xF050DA)
		w.U32(0xC0000000)
		w.U32(0xC0000000)
		w.U32(0x2)
		w.Write(bytes.Repeat([]byte{0xFF}, 12)) // reserved
		w.U64(0xFFFF_FFFF_FFFF_FFFF)            // fault info plus reserved bits 0-11
		w.U64(0xFFFF_FFFF_FFFF_FFFF)            // reserved bits 80-91
		w.Write(bytes.Repeat([]byte{1}, 16))
		w.Write(bytes.Repeat([]byte{2}, 16))
		for i := range 6 {
			w.U64(uint64(i))
		}

		var s DMArVTd
		require.NoError(t, s.Parse(w.Bytes()))
		require.Equal(t, "INTEL", s.OEMID.String())
		require.True(t, s.FaultRecord.Fault)
		require.Equal(t, uint32(0xFFFFF), s.FaultRecord.PASIDValue)

		out, err := s.Bytes()
		require.NoError(t, err)
		require.Equal(t, make([]byte, 12), out[36:48])
		require.Equal(t, uint64(0xFFFF_FFFF_FFFF_F000), leU64(out[48:]))
		require.Equal(t, uint64(0xFFFF_FFFF_F000_FFFF), leU64(out[56:]))

		roundTrip(t, newOf[DMArVTd](), out)
	})

	t.Run("VT-d fault record overflow in tree", func(t *testing.T) {
		s := DMArVTd{RootEntry: make([]byte, 16), ContextEntry: make([]byte, 16)}
		s.FaultRecord.PASIDValue = 1 << 20
		_, err := s.Bytes()
		require.ErrorIs(t, err, errs.ErrInvalidTree)
	})

	t.Run("IOMMU", func(t *testing.T) {
		raw := bytes.Repeat([]byte{0xEE}, DMArIOMMUSize)

		var s DMArIOMMU
		require.NoError(t, s.Parse(raw))
		out, err := s.Bytes()
		require.NoError(t, err)
		require.Equal(t, make([]byte, 7), out[1:8])
		require.Equal(t, make([]byte, 8), out[24:32])
		require.Equal(t, make([]byte, 16), out[48:64])
		require.Equal(t, raw[64:], out[64:])

		roundTrip(t, newOf[DMArIOMMU](), out)
	})
}

func TestTextJSON(t *testing.T) {
	t.Run("Clean text is a string", func(t *testing.T) {
		data, err := json.Marshal(Text("abc\x00\x00"))
		require.NoError(t, err)
		require.Equal(t, `"abc"`, string(data))
	})

	t.Run("Dirty text is raw", func(t *testing.T) {
		data, err := json.Marshal(Text("a\x00b"))
		require.NoError(t, err)
		require.Equal(t, `{"raw":"YQBi"}`, string(data))

		var back Text
		require.NoError(t, json.Unmarshal(data, &back))
		require.Equal(t, Text("a\x00b"), back)
	})

	t.Run("Wrong shape", func(t *testing.T) {
		var back Text
		require.ErrorIs(t, json.Unmarshal([]byte(`{"other":1}`), &back), errs.ErrInvalidTree)
	})

	t.Run("Too long for the field", func(t *testing.T) {
		w := wire.NewWriter(4)
		require.ErrorIs(t, putText(w, "fruText", Text("12345"), 4), errs.ErrInvalidTree)
	})
}

func TestRegisterJSON(t *testing.T) {
	r := newRegister(0x3FFF00FF, ia32CacheCheck)

	data, err := json.Marshal(r)
	require.NoError(t, err)
	require.Contains(t, string(data), `{"validationBits":{"transactionTypeValid":true`)

	t.Run("Unknown subfield", func(t *testing.T) {
		_, err := decodeRegister([]byte(`{"value":1}`), ia32MSCheck, "checkInfo")
		require.ErrorIs(t, err, errs.ErrInvalidTree)
	})

	t.Run("Subfield too wide", func(t *testing.T) {
		doc := bytes.Replace(data, []byte(`"level":7`), []byte(`"level":8`), 1)
		_, err := decodeRegister(doc, ia32CacheCheck, "checkInfo")
		require.ErrorIs(t, err, errs.ErrInvalidTree)
	})

	back, err := decodeRegister(data, ia32CacheCheck, "checkInfo")
	require.NoError(t, err)
	require.Equal(t, r.Value, back.Value)
}

func TestRevision(t *testing.T) {
	r := RevisionOf(0x0104)
	require.Equal(t, Revision{Major: 1, Minor: 4}, r)
	require.Equal(t, uint16(0x0104), r.Uint16())
}

func leU64(b []byte) uint64 {
	return wire.NewReader(b, "test").U64()
}
