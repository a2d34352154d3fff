package section

import (
	"sync"

	"github.com/arloliu/cper/guid"
)

// Body is the decoded form of one section payload.
//
// Parse decodes a payload of exactly the descriptor's length; it must not
// retain data. Bytes produces the payload back, with reserved spans zeroed.
// Every Body is also a JSON value: it marshals to its tree form and, given a
// zero value from Codec.New, unmarshals from it.
type Body interface {
	Parse(data []byte) error
	Bytes() ([]byte, error)
}

// Codec binds a section type GUID to the body that decodes it.
type Codec struct {
	// Key is a short identifier used by the generator and the command line.
	Key string
	// Name is the human-readable section name emitted next to the GUID.
	Name string
	GUID guid.GUID
	New  func() Body
}

// Registry maps section type GUIDs to codecs. GUIDs without a codec resolve
// to the opaque codec, so every payload decodes.
//
// A Registry is immutable after construction and safe for concurrent use.
type Registry struct {
	codecs []Codec
	byGUID map[guid.GUID]int
	byKey  map[string]int
}

// NewRegistry builds a registry from codecs. When two codecs share a GUID or a
// key, the first one wins.
func NewRegistry(codecs ...Codec) *Registry {
	r := &Registry{
		codecs: make([]Codec, 0, len(codecs)),
		byGUID: make(map[guid.GUID]int, len(codecs)),
		byKey:  make(map[string]int, len(codecs)),
	}
	for _, c := range codecs {
		if _, dup := r.byGUID[c.GUID]; dup {
			continue
		}
		idx := len(r.codecs)
		r.codecs = append(r.codecs, c)
		r.byGUID[c.GUID] = idx
		if _, dup := r.byKey[c.Key]; !dup && c.Key != "" {
			r.byKey[c.Key] = idx
		}
	}

	return r
}

// Lookup returns the codec registered for g.
func (r *Registry) Lookup(g guid.GUID) (Codec, bool) {
	idx, ok := r.byGUID[g]
	if !ok {
		return Codec{}, false
	}

	return r.codecs[idx], true
}

// LookupKey returns the codec registered under key.
func (r *Registry) LookupKey(key string) (Codec, bool) {
	idx, ok := r.byKey[key]
	if !ok {
		return Codec{}, false
	}

	return r.codecs[idx], true
}

// UnknownName names section types that have no registered codec.
const UnknownName = "Unknown"

// Resolve returns the codec for g, or the opaque codec named UnknownName
// when g is unknown.
func (r *Registry) Resolve(g guid.GUID) Codec {
	if c, ok := r.Lookup(g); ok {
		return c
	}

	return Codec{Key: "unknown", Name: UnknownName, GUID: g, New: newOpaque}
}

// Name returns the registered name for g, or an empty string.
func (r *Registry) Name(g guid.GUID) string {
	c, _ := r.Lookup(g)
	return c.Name
}

// Codecs returns the registered codecs in registration order.
func (r *Registry) Codecs() []Codec {
	out := make([]Codec, len(r.codecs))
	copy(out, r.codecs)

	return out
}

// Decode parses data with the codec resolved for g.
//
// Parameters:
//   - g: section type GUID from the descriptor
//   - data: payload bytes, exactly the descriptor's section length
//
// Returns:
//   - Body: decoded section
//   - error: ErrMalformedRecord if the payload does not match the layout
func (r *Registry) Decode(g guid.GUID, data []byte) (Body, error) {
	body := r.Resolve(g).New()
	if err := body.Parse(data); err != nil {
		return nil, err
	}

	return body, nil
}

// Builtin returns the codecs for every section type this package knows.
func Builtin() []Codec {
	codecs := []Codec{
		{Key: "generic", Name: "Processor Generic", GUID: GenericProcessorGUID, New: func() Body { return &GenericProcessor{} }},
		{Key: "ia32x64", Name: "IA32/X64", GUID: IA32X64GUID, New: func() Body { return &IA32X64{} }},
		{Key: "ipf", Name: "IPF", GUID: IPFGUID, New: newOpaque},
		{Key: "arm", Name: "ARM", GUID: ARMGUID, New: func() Body { return &ARM{} }},
		{Key: "memory", Name: "Platform Memory", GUID: MemoryGUID, New: func() Body { return &Memory{} }},
		{Key: "memory2", Name: "Platform Memory 2", GUID: Memory2GUID, New: func() Body { return &Memory2{} }},
		{Key: "pcie", Name: "PCIe", GUID: PCIeGUID, New: func() Body { return &PCIe{} }},
		{Key: "firmware", Name: "Firmware Error Record Reference", GUID: FirmwareGUID, New: func() Body { return &Firmware{} }},
		{Key: "pcibus", Name: "PCI/PCI-X Bus", GUID: PCIBusGUID, New: func() Body { return &PCIBus{} }},
		{Key: "pcidev", Name: "PCI Component/Device", GUID: PCIDeviceGUID, New: func() Body { return &PCIDevice{} }},
		{Key: "dmargeneric", Name: "DMAr Generic", GUID: DMArGenericGUID, New: func() Body { return &DMArGeneric{} }},
		{Key: "dmarvtd", Name: "Intel VT-d DMAr", GUID: DMArVTdGUID, New: func() Body { return &DMArVTd{} }},
		{Key: "dmariommu", Name: "IOMMU DMAr", GUID: DMArIOMMUGUID, New: func() Body { return &DMArIOMMU{} }},
		{Key: "ccixper", Name: "CCIX PER Log Error", GUID: CCIXPERGUID, New: func() Body { return &CCIXPER{} }},
		{Key: "cxlprotocol", Name: "CXL Protocol Error", GUID: CXLProtocolGUID, New: func() Body { return &CXLProtocol{} }},
	}

	componentNames := []string{
		"CXL General Media Error",
		"CXL DRAM Error",
		"CXL Memory Module Error",
		"CXL Physical Switch Error",
		"CXL Virtual Switch Error",
		"CXL MLD Port Error",
	}
	for i, g := range CXLComponentGUIDs {
		key := ""
		if i == 0 {
			key = "cxlcomponent"
		}
		codecs = append(codecs, Codec{
			Key:  key,
			Name: componentNames[i],
			GUID: g,
			New:  func() Body { return &CXLComponent{} },
		})
	}

	return codecs
}

// DefaultRegistry returns the registry of built-in codecs.
var DefaultRegistry = sync.OnceValue(func() *Registry {
	return NewRegistry(Builtin()...)
})
