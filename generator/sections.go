package generator

import (
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/internal/wire"
	"github.com/arloliu/cper/section"
)

var ia32CheckTypes = []guid.GUID{
	section.IA32CacheCheckGUID,
	section.IA32TLBCheckGUID,
	section.IA32BusCheckGUID,
	section.IA32MSCheckGUID,
}

func (g *Generator) generic() (guid.GUID, []byte) {
	w := wire.NewWriter(section.GenericProcessorSize)
	w.U64(g.u64() & 0x1FFF)
	w.U8(g.u8())
	w.U8(g.u8())
	w.U8(g.u8())
	w.U8(g.u8())
	w.U8(g.u8() & 0x0F)
	w.U8(g.u8())
	w.Zero(2)
	w.U64(g.u64())
	w.Fixed(g.text(127), 128)
	for range 5 {
		w.U64(g.u64())
	}

	return section.GenericProcessorGUID, w.Bytes()
}

func (g *Generator) ia32x64() (guid.GUID, []byte) {
	errorNum := 1 + g.rng.IntN(4)
	contextNum := 1 + g.rng.IntN(4)

	w := wire.NewWriter(64 + errorNum*64)
	w.U64(g.u64()&0x3 | uint64(errorNum)<<2 | uint64(contextNum)<<8)
	w.U64(g.u64())
	for range 4 {
		w.U64(g.u64())
	}
	w.Zero(16)

	for range errorNum {
		typ := g.pick(ia32CheckTypes)
		w.GUID(typ)
		w.U64(g.u64() & 0x1F)
		w.U64(g.u64() & section.IA32CheckInfoMask(typ))
		for range 4 {
			w.U64(g.u64())
		}
	}

	for range contextNum {
		contextType := uint16(g.rng.IntN(8))
		var array []byte
		switch contextType {
		case 2:
			array = g.bytes(92)
		case 3:
			array = g.bytes(244)
			clear(array[140:144]) // reserved after the segment selectors
		default:
			array = g.bytes(8 * g.rng.IntN(9))
		}
		w.U16(contextType)
		w.U16(uint16(len(array)))
		w.U32(g.u32())
		w.U64(g.u64())
		w.Write(array)
	}

	return section.IA32X64GUID, w.Bytes()
}

func (g *Generator) ipf() (guid.GUID, []byte) {
	return section.IPFGUID, g.bytes(g.rng.IntN(65))
}

func (g *Generator) arm() (guid.GUID, []byte) {
	errorNum := 1 + g.rng.IntN(4)
	contextNum := 1 + g.rng.IntN(3)

	w := wire.NewWriter(40 + errorNum*32)
	w.U32(g.u32() & 0xF)
	w.U16(uint16(errorNum))
	w.U16(uint16(contextNum))
	w.U32(0) // section length, patched below
	w.U8(g.u8())
	w.Zero(3)
	w.U64(g.u64())
	w.U64(g.u64())
	w.U32(g.u32() & 0x1)
	w.U32(g.u32())

	for range errorNum {
		errorType := uint8(g.rng.IntN(4))
		w.U8(g.u8())
		w.U8(32)
		w.U16(g.u16() & 0x1F)
		w.U8(errorType)
		w.U16(g.u16())
		w.U8(g.u8() & 0x0F)
		w.U64(g.u64() & section.ARMErrorInfoMask(uint64(errorType)))
		w.U64(g.u64())
		w.U64(g.u64())
	}

	for range contextNum {
		array := g.bytes(8 * g.rng.IntN(9))
		w.U16(g.u16())
		w.U16(uint16(g.rng.IntN(9)))
		w.U32(uint32(len(array)))
		w.Write(array)
	}
	w.Write(g.bytes(g.rng.IntN(17)))

	out := w.Bytes()
	length := uint32(len(out))
	out[8], out[9], out[10], out[11] = byte(length), byte(length>>8), byte(length>>16), byte(length>>24)

	return section.ARMGUID, out
}

func (g *Generator) memory() (guid.GUID, []byte) {
	w := wire.NewWriter(section.MemorySize)
	w.U64(g.u64() & 0x3FFFFF)
	w.U64(g.errorStatus())
	w.U64(g.u64())
	w.U64(g.u64())
	for range 8 {
		w.U16(g.u16())
	}
	for range 3 {
		w.U64(g.u64())
	}
	w.U8(g.u8())
	w.U8(g.u8() & 0xE7)
	for range 3 {
		w.U16(g.u16())
	}

	return section.MemoryGUID, w.Bytes()
}

func (g *Generator) memory2() (guid.GUID, []byte) {
	w := wire.NewWriter(section.Memory2Size)
	w.U64(g.u64() & 0x3FFFFF)
	w.U64(g.errorStatus())
	w.U64(g.u64())
	w.U64(g.u64())
	for range 4 {
		w.U16(g.u16())
	}
	for range 5 {
		w.U32(g.u32())
	}
	w.U8(g.u8())
	w.U8(g.u8())
	w.U8(g.u8())
	w.Zero(1)
	for range 3 {
		w.U64(g.u64())
	}
	w.U32(g.u32())
	w.U32(g.u32())

	return section.Memory2GUID, w.Bytes()
}

func (g *Generator) pcie() (guid.GUID, []byte) {
	w := wire.NewWriter(section.PCIeSize)
	w.U64(g.u64() & 0xFF)
	w.U32(uint32(g.rng.IntN(11)))
	w.U32(uint32(g.u16()))
	w.U16(g.u16())
	w.U16(g.u16())
	w.Zero(4)

	w.U16(g.u16())
	w.U16(g.u16())
	w.Write(g.bytes(3))
	w.U8(g.u8())
	w.U8(g.u8())
	w.U16(g.u16())
	w.U8(g.u8())
	w.U8(g.u8())
	w.U16(g.u16() &^ 0x7)
	w.Zero(1)

	w.U64(g.u64())
	w.U16(g.u16())
	w.U16(g.u16())
	w.Write(g.bytes(60))
	w.Write(g.bytes(96))

	return section.PCIeGUID, w.Bytes()
}

func (g *Generator) firmware() (guid.GUID, []byte) {
	w := wire.NewWriter(section.FirmwareSize)
	w.U8(uint8(g.rng.IntN(3)))
	w.U8(g.u8())
	w.Zero(6)
	w.U64(g.u64())
	w.GUID(g.guid())

	return section.FirmwareGUID, w.Bytes()
}

func (g *Generator) pciBus() (guid.GUID, []byte) {
	w := wire.NewWriter(section.PCIBusSize)
	w.U64(g.u64() & 0x1FF)
	w.U64(g.errorStatus())
	w.U16(uint16(g.rng.IntN(8)))
	w.U16(g.u16())
	w.Zero(4)
	for range 6 {
		w.U64(g.u64())
	}

	return section.PCIBusGUID, w.Bytes()
}

func (g *Generator) pciDevice() (guid.GUID, []byte) {
	memNum := g.rng.IntN(5)
	ioNum := g.rng.IntN(5)

	w := wire.NewWriter(40 + 16*(memNum+ioNum))
	w.U64(g.u64() & 0x1F)
	w.U64(g.errorStatus())
	w.U16(g.u16())
	w.U16(g.u16())
	w.Write(g.bytes(3))
	for range 4 {
		w.U8(g.u8())
	}
	w.Zero(5)
	w.U32(uint32(memNum))
	w.U32(uint32(ioNum))
	for range memNum + ioNum {
		w.U64(g.u64())
		w.U64(g.u64())
	}

	return section.PCIDeviceGUID, w.Bytes()
}

func (g *Generator) dmarGeneric() (guid.GUID, []byte) {
	w := wire.NewWriter(section.DMArGenericSize)
	w.U16(g.u16())
	w.U16(g.u16())
	w.U8(uint8(g.rng.IntN(0x0C)))
	w.U8(uint8(g.rng.IntN(2)))
	w.U8(uint8(g.rng.IntN(2)))
	w.U8(uint8(1 + g.rng.IntN(2)))
	w.U64(g.u64())
	w.Zero(16)

	return section.DMArGenericGUID, w.Bytes()
}

func (g *Generator) dmarVTd() (guid.GUID, []byte) {
	w := wire.NewWriter(section.DMArVTdSize)
	w.U8(g.u8())
	w.U8(g.u8())
	w.Fixed(g.text(6), 6)
	w.U64(g.u64())
	w.U64(g.u64())
	w.U32(g.u32())
	w.U32(g.u32())
	w.U32(g.u32())
	w.Zero(12)
	w.U64(g.u64() &^ 0xFFF)
	w.U64(g.u64() &^ (0xFFF << 16))
	w.Write(g.bytes(16))
	w.Write(g.bytes(16))
	for range 6 {
		w.U64(g.u64())
	}

	return section.DMArVTdGUID, w.Bytes()
}

func (g *Generator) dmarIOMMU() (guid.GUID, []byte) {
	w := wire.NewWriter(section.DMArIOMMUSize)
	w.U8(g.u8())
	w.Zero(7)
	w.U64(g.u64())
	w.U64(g.u64())
	w.Zero(8)
	w.Write(g.bytes(16))
	w.Zero(16)
	w.Write(g.bytes(32))
	for range 6 {
		w.U64(g.u64())
	}

	return section.DMArIOMMUGUID, w.Bytes()
}

func (g *Generator) ccixPER() (guid.GUID, []byte) {
	log := g.bytes(g.rng.IntN(65))

	w := wire.NewWriter(16 + len(log))
	w.U32(uint32(16 + len(log)))
	w.U64(g.u64() & 0x7)
	w.U8(g.u8())
	w.U8(g.u8() & 0x1F)
	w.Zero(2)
	w.Write(log)

	return section.CCIXPERGUID, w.Bytes()
}

func (g *Generator) cxlProtocol() (guid.GUID, []byte) {
	agentType := uint8(g.rng.IntN(2))
	dvsec := g.bytes(g.rng.IntN(33))
	errLog := g.bytes(g.rng.IntN(33))

	w := wire.NewWriter(116 + len(dvsec) + len(errLog))
	w.U64(g.u64() & 0x7F)
	w.U8(agentType)
	w.Zero(7)
	w.U64(g.u64() & section.CXLAgentAddressMask(uint64(agentType)))
	for range 5 {
		w.U16(g.u16())
	}
	w.U16(g.u16() &^ 0x7)
	w.Zero(4)
	w.U64(g.u64())
	w.Write(g.bytes(60))
	w.U16(uint16(len(dvsec)))
	w.U16(uint16(len(errLog)))
	w.Zero(4)
	w.Write(dvsec)
	w.Write(errLog)

	return section.CXLProtocolGUID, w.Bytes()
}

func (g *Generator) cxlComponent() (guid.GUID, []byte) {
	log := g.bytes(g.rng.IntN(65))

	w := wire.NewWriter(32 + len(log))
	w.U32(uint32(32 + len(log)))
	w.U64(g.u64() & 0x7)
	w.U16(g.u16())
	w.U16(g.u16())
	w.U8(g.u8())
	w.U8(g.u8())
	w.U8(g.u8())
	w.U16(g.u16())
	w.U16(g.u16() &^ 0x7)
	w.Zero(1)
	w.U64(g.u64())
	w.Write(log)

	return g.pick(section.CXLComponentGUIDs), w.Bytes()
}

func (g *Generator) unknown() (guid.GUID, []byte) {
	reg := section.DefaultRegistry()
	typ := g.guid()
	for {
		if _, known := reg.Lookup(typ); !known {
			break
		}
		typ = g.guid()
	}

	return typ, g.bytes(g.rng.IntN(65))
}
