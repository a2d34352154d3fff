package record

import (
	"encoding/json"

	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/ir"
	"github.com/arloliu/cper/section"
)

// Single is a bare section payload without a record header or descriptor.
//
// A bare payload does not carry its type, so the caller names it on decode.
// The tree form records it under "sectionType" and encoding takes it from
// there.
type Single struct {
	SectionType guid.Ref     `json:"sectionType"`
	Section     section.Body `json:"section"`
}

type singleTree struct {
	SectionType guid.Ref        `json:"sectionType"`
	Section     json.RawMessage `json:"section"`
}

// DecodeSingle parses a bare section payload of type sectionType. Unknown
// types decode to section.Opaque.
func DecodeSingle(data []byte, sectionType guid.GUID, opts ...Option) (*Single, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	codec := cfg.registry.Resolve(sectionType)
	body := codec.New()
	if err := body.Parse(data); err != nil {
		return nil, errs.Within("section", err)
	}

	return &Single{
		SectionType: guid.Ref{GUID: sectionType, Name: codec.Name},
		Section:     body,
	}, nil
}

// EncodeSingle produces the payload bytes of s.
func EncodeSingle(s *Single, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errs.InvalidTree("nil section")
	}
	if err := checkBody(cfg.registry, s.SectionType.GUID, s.Section); err != nil {
		return nil, errs.Within("section", err)
	}

	out, err := s.Section.Bytes()
	if err != nil {
		return nil, errs.Within("section", err)
	}

	return out, nil
}

// ParseSingleTree decodes the tree form of a single section.
func ParseSingleTree(data []byte, opts ...Option) (*Single, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return parseSingleTree(data, cfg.registry)
}

// UnmarshalJSON implements json.Unmarshaler with the default registry.
func (s *Single) UnmarshalJSON(data []byte) error {
	single, err := parseSingleTree(data, section.DefaultRegistry())
	if err != nil {
		return err
	}
	*s = *single

	return nil
}

func parseSingleTree(data []byte, reg *section.Registry) (*Single, error) {
	var tree singleTree
	if err := ir.DecodeStrict(data, &tree); err != nil {
		return nil, err
	}

	body := reg.Resolve(tree.SectionType.GUID).New()
	if err := ir.DecodeStrict(tree.Section, body); err != nil {
		return nil, errs.Within("section", err)
	}

	return &Single{SectionType: tree.SectionType, Section: body}, nil
}
