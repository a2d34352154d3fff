// Package ir moves intermediate trees between their in-memory Go form and the
// document formats a user edits: JSON (with JSONC input), YAML and CBOR.
//
// Decoding is strict. DecodeStrict rejects missing required fields, unknown
// keys and type mismatches with errs.ErrInvalidTree, naming the offending path.
// YAML and CBOR documents are converted to JSON first with ToJSON, so every
// format goes through the same validation.
//
// Rendering keeps struct field order for JSON and YAML. CBOR output uses Core
// Deterministic Encoding, which sorts map keys.
package ir
