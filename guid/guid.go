// Package guid reads, writes and formats the 128-bit EFI_GUID identifiers that
// select CPER section types, notification types and creator IDs.
//
// An EFI_GUID is stored with its first three fields little-endian and the last
// eight bytes in order, the same mixed-endian layout Windows uses. The GUID
// type is the go-winio GUID, so its String/MarshalText forms are the canonical
// lower-case "xxxxxxxx-xxxx-xxxx-xxxx-xxxxxxxxxxxx" text.
package guid

import (
	winguid "github.com/Microsoft/go-winio/pkg/guid"

	"github.com/arloliu/cper/errs"
)

// Size is the encoded size of an EFI_GUID in bytes.
const Size = 16

// GUID is an EFI_GUID. It is comparable; two GUIDs are equal exactly when
// their encoded bytes are equal.
type GUID = winguid.GUID

// Nil is the all-zero GUID.
var Nil GUID

// FromBytes decodes an EFI_GUID from the first Size bytes of b.
// The caller guarantees len(b) >= Size.
func FromBytes(b []byte) GUID {
	var raw [Size]byte
	copy(raw[:], b[:Size])

	return winguid.FromWindowsArray(raw)
}

// Bytes returns the 16-byte EFI encoding of g.
func Bytes(g GUID) [Size]byte {
	return g.ToWindowsArray()
}

// Parse parses the text form of a GUID, with or without surrounding braces.
func Parse(s string) (GUID, error) {
	if len(s) == 38 && s[0] == '{' && s[37] == '}' {
		s = s[1:37]
	}

	g, err := winguid.FromString(s)
	if err != nil {
		return Nil, errs.InvalidTree("guid %q: %v", s, err)
	}

	return g, nil
}

// MustParse is Parse for package-level tables; it panics on malformed input.
func MustParse(s string) GUID {
	g, err := Parse(s)
	if err != nil {
		panic(err)
	}

	return g
}

// Equal reports whether a and b encode to the same 16 bytes.
func Equal(a, b GUID) bool {
	return a == b
}

// Ref is a GUID together with the name of what it identifies.
// It renders as {"guid": "...", "name": "..."} in the intermediate tree.
type Ref struct {
	GUID GUID   `json:"guid"`
	Name string `json:"name,omitempty"`
}
