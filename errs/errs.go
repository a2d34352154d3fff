// Package errs defines the error values shared by the cper packages.
//
// Every failure returned by a decode or encode call wraps exactly one of the
// sentinels below, so callers can classify errors with errors.Is without
// depending on message text:
//
//	tree, err := cper.RecordToTree(data)
//	if errors.Is(err, errs.ErrMalformedRecord) {
//	    // the binary input is truncated or inconsistent
//	}
//
// Unknown section types are not errors; they decode through the opaque codec.
package errs

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord indicates binary input that cannot be decoded: a buffer
	// shorter than a fixed structure, a signature mismatch, declared lengths that
	// disagree with the buffer, or a variable-length computation that would
	// underflow.
	ErrMalformedRecord = errors.New("cper: malformed record")

	// ErrInvalidTree indicates an intermediate tree that cannot be encoded: a
	// missing required field, a field of the wrong type, or a bitfield naming an
	// undefined bit.
	ErrInvalidTree = errors.New("cper: invalid tree")
)

// Malformed returns an error wrapping ErrMalformedRecord with a formatted detail.
func Malformed(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrMalformedRecord, fmt.Sprintf(format, args...))
}

// InvalidTree returns an error wrapping ErrInvalidTree with a formatted detail.
func InvalidTree(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidTree, fmt.Sprintf(format, args...))
}

// Within prefixes err with the name of the structure being processed while
// keeping the wrapped sentinel intact. A nil err returns nil.
func Within(where string, err error) error {
	if err == nil {
		return nil
	}

	return fmt.Errorf("%s: %w", where, err)
}
