// Package section decodes and encodes the payloads of CPER sections.
//
// Each section type is selected by a GUID from its descriptor. A Registry maps
// those GUIDs to codecs; a GUID without a codec falls back to Opaque, which
// preserves the payload as base64 so every record decodes.
//
// # Bodies
//
// A codec produces a Body: a typed Go value that parses a payload and writes
// it back. Bodies are also the intermediate tree for their section. They
// marshal to JSON with field names that follow the UEFI tables, and unmarshal
// strictly from the same shape.
//
//	reg := section.DefaultRegistry()
//	body, err := reg.Decode(section.MemoryGUID, payload)
//	if err != nil {
//		return err
//	}
//	tree, err := json.Marshal(body)
//
// # Field conventions
//
//   - Validation masks and flag sets render as ordered objects of named
//     booleans (see package bitfield). Unnamed bits are reserved.
//   - Enumerations render as {"value": n, "name": "..."}; value is
//     authoritative on encode.
//   - Packed registers whose layout depends on a sibling field, such as the
//     IA32/X64 check information, render through that layout and fall back
//     to {"value": n} for unknown types.
//   - Variable-length byte regions and fixed binary blobs render as base64.
//   - Length and count fields that describe data present in the tree are
//     recomputed on encode.
//
// Reserved bits and reserved byte spans are dropped on decode and written as
// zero on encode, so decode followed by encode normalises a payload, and a
// normalised payload round-trips byte for byte.
package section
