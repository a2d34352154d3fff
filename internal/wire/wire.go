// Package wire provides bounds-checked little-endian field readers and writers
// for fixed-layout binary structures.
//
// Reader keeps a sticky error: the first read that would run past the end of
// the buffer records an ErrMalformedRecord and every later read returns zero
// values. Codecs read all fields and check Err once, which keeps field lists
// readable while still never touching memory outside the input slice.
package wire

import (
	"encoding/binary"

	"github.com/arloliu/cper/errs"
	"github.com/arloliu/cper/guid"
)

// Reader decodes fields sequentially from a byte slice.
type Reader struct {
	data []byte
	off  int
	what string
	err  error
}

// NewReader returns a Reader over data. what names the structure for error
// messages.
func NewReader(data []byte, what string) *Reader {
	return &Reader{data: data, what: what}
}

// Err returns the first bounds error, if any.
func (r *Reader) Err() error {
	return r.err
}

// Offset returns the number of bytes consumed so far.
func (r *Reader) Offset() int {
	return r.off
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.data) - r.off
}

func (r *Reader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || n > len(r.data)-r.off {
		r.err = errs.Malformed("%s: need %d bytes at offset %d, have %d", r.what, n, r.off, len(r.data)-r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n

	return b
}

// U8 reads one byte.
func (r *Reader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}

	return b[0]
}

// U16 reads a little-endian uint16.
func (r *Reader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint16(b)
}

// U32 reads a little-endian uint32.
func (r *Reader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint32(b)
}

// U64 reads a little-endian uint64.
func (r *Reader) U64() uint64 {
	b := r.take(8)
	if b == nil {
		return 0
	}

	return binary.LittleEndian.Uint64(b)
}

// GUID reads a 16-byte EFI_GUID.
func (r *Reader) GUID() guid.GUID {
	b := r.take(guid.Size)
	if b == nil {
		return guid.Nil
	}

	return guid.FromBytes(b)
}

// Bytes reads n bytes into a new slice owned by the caller.
func (r *Reader) Bytes(n int) []byte {
	b := r.take(n)
	if b == nil {
		return nil
	}

	return append(make([]byte, 0, n), b...)
}

// Skip discards n bytes, typically a reserved span.
func (r *Reader) Skip(n int) {
	r.take(n)
}

// Rest reads every remaining byte.
func (r *Reader) Rest() []byte {
	return r.Bytes(r.Remaining())
}

// Writer appends little-endian fields to a growing buffer.
type Writer struct {
	buf []byte
}

// NewWriter returns a Writer with capacity for size bytes.
func NewWriter(size int) *Writer {
	return &Writer{buf: make([]byte, 0, size)}
}

// U8 appends one byte.
func (w *Writer) U8(v uint8) {
	w.buf = append(w.buf, v)
}

// U16 appends a little-endian uint16.
func (w *Writer) U16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

// U32 appends a little-endian uint32.
func (w *Writer) U32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

// U64 appends a little-endian uint64.
func (w *Writer) U64(v uint64) {
	w.buf = binary.LittleEndian.AppendUint64(w.buf, v)
}

// GUID appends the 16-byte EFI encoding of g.
func (w *Writer) GUID(g guid.GUID) {
	raw := guid.Bytes(g)
	w.buf = append(w.buf, raw[:]...)
}

// Write appends b verbatim.
func (w *Writer) Write(b []byte) {
	w.buf = append(w.buf, b...)
}

// Fixed appends b truncated or zero padded to exactly n bytes.
func (w *Writer) Fixed(b []byte, n int) {
	if len(b) > n {
		b = b[:n]
	}
	w.buf = append(w.buf, b...)
	w.Zero(n - len(b))
}

// Zero appends n zero bytes.
func (w *Writer) Zero(n int) {
	for range n {
		w.buf = append(w.buf, 0)
	}
}

// Len returns the number of bytes written.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Bytes returns the written bytes.
func (w *Writer) Bytes() []byte {
	return w.buf
}
