// Package record converts complete CPER records and bare section payloads
// between their binary form and the intermediate tree.
//
// A record is a 128-byte header, a table of 72-byte section descriptors and
// the section payloads the descriptors point at. Decode walks that layout and
// hands each payload to the codec its descriptor's section type resolves to
// in a section.Registry; unknown types decode as section.Opaque. Encode is the
// inverse and recomputes every derived field, so a tree edited by hand does
// not need its offsets, lengths or counts kept in sync.
//
// Basic usage:
//
//	rec, err := record.Decode(data)
//	if err != nil {
//	    return err
//	}
//	tree, err := ir.MarshalJSON(rec, "  ")
//	...
//	rec, err = record.ParseTree(tree)
//	out, err := record.Encode(rec)
//
// DecodeSingle, EncodeSingle and ParseSingleTree do the same for one section
// payload without a header or descriptor.
package record
