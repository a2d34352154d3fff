// Package generator produces pseudo-random CPER records and section payloads
// for tests and for the cperconv generate command.
//
// Every value is drawn from a caller-supplied random source, so a fixed seed
// yields the same bytes on every run. Generated payloads are normalised:
// reserved bits and bytes are zero and variable lengths agree with their
// length fields, so each record round-trips byte for byte.
package generator

import (
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/internal/wire"
	"github.com/arloliu/cper/section"
)

// UnknownKey generates an opaque payload under a random, unregistered GUID.
const UnknownKey = "unknown"

const (
	headerSize     = 128
	descriptorSize = 72
)

type sectionFunc func(g *Generator) (guid.GUID, []byte)

var sectionFuncs = map[string]sectionFunc{
	"generic":      (*Generator).generic,
	"ia32x64":      (*Generator).ia32x64,
	"ipf":          (*Generator).ipf,
	"arm":          (*Generator).arm,
	"memory":       (*Generator).memory,
	"memory2":      (*Generator).memory2,
	"pcie":         (*Generator).pcie,
	"firmware":     (*Generator).firmware,
	"pcibus":       (*Generator).pciBus,
	"pcidev":       (*Generator).pciDevice,
	"dmargeneric":  (*Generator).dmarGeneric,
	"dmarvtd":      (*Generator).dmarVTd,
	"dmariommu":    (*Generator).dmarIOMMU,
	"ccixper":      (*Generator).ccixPER,
	"cxlprotocol":  (*Generator).cxlProtocol,
	"cxlcomponent": (*Generator).cxlComponent,
	UnknownKey:     (*Generator).unknown,
}

// Keys returns the section keys the generator accepts, sorted.
func Keys() []string {
	keys := make([]string, 0, len(sectionFuncs))
	for k := range sectionFuncs {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	return keys
}

// Generator draws records from a random source. It is not safe for
// concurrent use; give each goroutine its own Generator.
type Generator struct {
	rng *rand.Rand
}

// New returns a generator reading from rng.
func New(rng *rand.Rand) *Generator {
	return &Generator{rng: rng}
}

// NewSeeded returns a generator with a PCG source seeded by seed.
func NewSeeded(seed uint64) *Generator {
	return New(rand.New(rand.NewPCG(seed, seed^0x9E3779B97F4A7C15)))
}

// Section generates one payload for the section type named by key.
//
// Parameters:
//   - key: a key from Keys, such as "generic" or "ia32x64"
//
// Returns:
//   - guid.GUID: the section type of the payload
//   - []byte: normalised payload bytes
//   - error: non-nil if key is unknown
func (g *Generator) Section(key string) (guid.GUID, []byte, error) {
	fn, ok := sectionFuncs[key]
	if !ok {
		return guid.GUID{}, nil, fmt.Errorf("generator: unknown section type %q", key)
	}
	typ, payload := fn(g)

	return typ, payload, nil
}

// Record generates a complete record with one section per key, in order.
func (g *Generator) Record(keys ...string) ([]byte, error) {
	if len(keys) > 0xFFFF {
		return nil, fmt.Errorf("generator: %d sections exceed the section count field", len(keys))
	}

	types := make([]guid.GUID, len(keys))
	payloads := make([][]byte, len(keys))
	total := headerSize + descriptorSize*len(keys)
	for i, key := range keys {
		typ, payload, err := g.Section(key)
		if err != nil {
			return nil, err
		}
		types[i], payloads[i] = typ, payload
		total += len(payload)
	}

	w := wire.NewWriter(total)
	g.header(w, len(keys), total)

	offset := headerSize + descriptorSize*len(keys)
	for i := range keys {
		g.descriptor(w, types[i], offset, len(payloads[i]))
		offset += len(payloads[i])
	}
	for _, p := range payloads {
		w.Write(p)
	}

	return w.Bytes(), nil
}

func (g *Generator) header(w *wire.Writer, count, total int) {
	w.U32(0x52455043)
	w.U16(g.u16())
	w.U32(0xFFFFFFFF)
	w.U16(uint16(count))
	w.U32(g.rng.Uint32N(4))
	w.U32(g.u32() & 0x7)
	w.U32(uint32(total))

	w.U8(bcd(g.rng.IntN(60)))
	w.U8(bcd(g.rng.IntN(60)))
	w.U8(bcd(g.rng.IntN(24)))
	w.U8(g.u8() & 0x1)
	w.U8(bcd(1 + g.rng.IntN(28)))
	w.U8(bcd(1 + g.rng.IntN(12)))
	w.U8(bcd(g.rng.IntN(100)))
	w.U8(bcd(19 + g.rng.IntN(2)))

	w.GUID(g.guid())
	w.GUID(g.guid())
	w.GUID(g.guid())
	w.GUID(g.pick(section.NotificationTypes()))
	w.U64(g.u64())
	w.U32(4) // simulated
	w.U64(g.u64())
	w.Zero(12)
}

func (g *Generator) descriptor(w *wire.Writer, typ guid.GUID, offset, length int) {
	w.U32(uint32(offset))
	w.U32(uint32(length))
	w.U16(g.u16())
	w.U8(g.u8() & 0x3)
	w.Zero(1)
	w.U32(g.u32() & 0xFF)
	w.GUID(typ)
	w.GUID(g.guid())
	w.U32(g.rng.Uint32N(4))
	w.Fixed(g.text(19), 20)
}

func (g *Generator) u8() uint8   { return uint8(g.rng.Uint32()) }
func (g *Generator) u16() uint16 { return uint16(g.rng.Uint32()) }
func (g *Generator) u32() uint32 { return g.rng.Uint32() }
func (g *Generator) u64() uint64 { return g.rng.Uint64() }

func (g *Generator) bytes(n int) []byte {
	out := make([]byte, n)
	for i := range out {
		out[i] = g.u8()
	}

	return out
}

// text returns up to maxLen printable ASCII bytes.
func (g *Generator) text(maxLen int) []byte {
	out := make([]byte, g.rng.IntN(maxLen+1))
	for i := range out {
		out[i] = byte(' ' + g.rng.IntN('~'-' '+1))
	}

	return out
}

func (g *Generator) guid() guid.GUID {
	return guid.FromBytes(g.bytes(16))
}

func (g *Generator) pick(options []guid.GUID) guid.GUID {
	return options[g.rng.IntN(len(options))]
}

// errorStatus returns a generic error status with only defined bits set.
func (g *Generator) errorStatus() uint64 {
	return g.u64() & 0x7FFF00
}

func bcd(v int) uint8 {
	return uint8(v/10)<<4 | uint8(v%10)
}
