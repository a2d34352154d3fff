package record

import (
	"bytes"
	"encoding/json"
	"math"
	"reflect"
	"strconv"

	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/guid"
	"github.com/arloliu/cper/internal/pool"
	"github.com/arloliu/cper/ir"
	"github.com/arloliu/cper/section"
)

// Record is a decoded CPER record. It is also the intermediate tree: it
// marshals to {"header", "sectionDescriptors", "sections"} and Sections[i]
// is the body for Descriptors[i].
type Record struct {
	Header      Header         `json:"header"`
	Descriptors []Descriptor   `json:"sectionDescriptors"`
	Sections    []section.Body `json:"sections"`
}

type recordTree struct {
	Header      Header            `json:"header"`
	Descriptors []Descriptor      `json:"sectionDescriptors"`
	Sections    []json.RawMessage `json:"sections"`
}

// Decode parses a binary record.
//
// Bytes after the header's record length are ignored. Section payloads must
// follow the descriptor table in descriptor order without overlapping; gaps
// between payloads are tolerated and dropped by Encode.
//
// Parameters:
//   - data: record bytes
//   - opts: conversion options such as WithRegistry
//
// Returns:
//   - *Record: decoded record
//   - error: ErrMalformedRecord if the record or any section is malformed
func Decode(data []byte, opts ...Option) (*Record, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	hdr, _, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}

	recordLen := uint64(hdr.RecordLength)
	if recordLen > uint64(len(data)) {
		return nil, errs.Malformed("record length %d exceeds the %d-byte buffer", recordLen, len(data))
	}
	tableEnd := uint64(HeaderSize) + uint64(DescriptorSize)*uint64(hdr.SectionCount)
	if recordLen < tableEnd {
		return nil, errs.Malformed("record length %d is shorter than the header and %d descriptors", recordLen, hdr.SectionCount)
	}

	data = data[:recordLen]
	descs, err := ParseDescriptors(data[HeaderSize:], int(hdr.SectionCount))
	if err != nil {
		return nil, err
	}

	sections := make([]section.Body, len(descs))
	prevEnd := tableEnd
	for i := range descs {
		d := &descs[i]
		start := uint64(d.SectionOffset)
		end := start + uint64(d.SectionLength)
		if start < prevEnd || end > recordLen {
			return nil, errs.Malformed("section %d: payload [%d, %d) overlaps the previous section or lies outside the %d-byte record",
				i, start, end, recordLen)
		}

		codec := cfg.registry.Resolve(d.SectionType.GUID)
		d.SectionType.Name = codec.Name
		body := codec.New()
		if err := body.Parse(data[start:end]); err != nil {
			return nil, errs.Within(sectionPath(i), err)
		}
		sections[i] = body
		prevEnd = end
	}

	return &Record{Header: hdr, Descriptors: descs, Sections: sections}, nil
}

// Encode produces the binary form of rec.
//
// Section offsets and lengths, the section count and the record length are
// recomputed; the values carried in rec are ignored. Each body must have the
// type the registry resolves for its descriptor's section type.
//
// Parameters:
//   - rec: record to encode; it is not modified
//   - opts: conversion options such as WithRegistry
//
// Returns:
//   - []byte: record bytes
//   - error: ErrInvalidTree if rec cannot be encoded
func Encode(rec *Record, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, errs.InvalidTree("nil record")
	}

	count := len(rec.Descriptors)
	if count != len(rec.Sections) {
		return nil, errs.InvalidTree("%d section descriptors but %d sections", count, len(rec.Sections))
	}
	if count > math.MaxUint16 {
		return nil, errs.InvalidTree("%d sections exceed the section count field", count)
	}

	payloads := make([][]byte, count)
	tableEnd := HeaderSize + DescriptorSize*count
	total := uint64(tableEnd)
	for i, body := range rec.Sections {
		if err := checkBody(cfg.registry, rec.Descriptors[i].SectionType.GUID, body); err != nil {
			return nil, errs.Within(sectionPath(i), err)
		}
		payload, err := body.Bytes()
		if err != nil {
			return nil, errs.Within(sectionPath(i), err)
		}
		payloads[i] = payload
		total += uint64(len(payload))
	}
	if total > math.MaxUint32 {
		return nil, errs.InvalidTree("record of %d bytes exceeds the record length field", total)
	}

	hdr := rec.Header
	hdr.SectionCount = uint16(count)
	hdr.RecordLength = uint32(total)
	hb, err := hdr.Bytes()
	if err != nil {
		return nil, errs.Within("header", err)
	}

	buf := pool.GetRecordBuffer()
	defer pool.PutRecordBuffer(buf)
	buf.Grow(int(total))
	_, _ = buf.Write(hb)

	offset := tableEnd
	for i := range rec.Descriptors {
		d := rec.Descriptors[i]
		d.SectionOffset = uint32(offset)
		d.SectionLength = uint32(len(payloads[i]))
		db, err := d.Bytes()
		if err != nil {
			return nil, errs.Within("sectionDescriptors["+strconv.Itoa(i)+"]", err)
		}
		_, _ = buf.Write(db)
		offset += len(payloads[i])
	}
	for _, p := range payloads {
		_, _ = buf.Write(p)
	}

	return bytes.Clone(buf.Bytes()), nil
}

// ParseTree decodes the JSON tree form of a record. Each section is decoded
// strictly with the codec the registry resolves for its descriptor.
func ParseTree(data []byte, opts ...Option) (*Record, error) {
	cfg, err := newConfig(opts)
	if err != nil {
		return nil, err
	}

	return parseTree(data, cfg.registry)
}

// UnmarshalJSON implements json.Unmarshaler with the default registry.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := parseTree(data, section.DefaultRegistry())
	if err != nil {
		return err
	}
	*r = *rec

	return nil
}

func parseTree(data []byte, reg *section.Registry) (*Record, error) {
	var tree recordTree
	if err := ir.DecodeStrict(data, &tree); err != nil {
		return nil, err
	}
	if len(tree.Descriptors) != len(tree.Sections) {
		return nil, errs.InvalidTree("%d section descriptors but %d sections", len(tree.Descriptors), len(tree.Sections))
	}

	sections := make([]section.Body, len(tree.Sections))
	for i, raw := range tree.Sections {
		body := reg.Resolve(tree.Descriptors[i].SectionType.GUID).New()
		if err := ir.DecodeStrict(raw, body); err != nil {
			return nil, errs.Within(sectionPath(i), err)
		}
		sections[i] = body
	}

	return &Record{Header: tree.Header, Descriptors: tree.Descriptors, Sections: sections}, nil
}

// checkBody rejects a missing body or one whose type differs from the codec
// resolved for its section type.
func checkBody(reg *section.Registry, g guid.GUID, body section.Body) error {
	if body == nil {
		return errs.InvalidTree("missing section body")
	}
	if v := reflect.ValueOf(body); v.Kind() == reflect.Pointer && v.IsNil() {
		return errs.InvalidTree("missing section body")
	}

	want := reg.Resolve(g).New()
	if reflect.TypeOf(body) != reflect.TypeOf(want) {
		return errs.InvalidTree("body %T does not match section type, want %T", body, want)
	}

	return nil
}

func sectionPath(i int) string {
	return "sections[" + strconv.Itoa(i) + "]"
}
