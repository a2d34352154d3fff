// Package pool recycles the byte buffers used to assemble binary records and
// render trees.
package pool

import (
	"slices"
	"sync"
)

// Buffer sizes. A typical record is a few hundred bytes and its JSON tree a
// few kilobytes; buffers that grew past the limit are not recycled.
const (
	RecordBufferSize  = 4 << 10
	RecordBufferLimit = 256 << 10
	TreeBufferSize    = 16 << 10
	TreeBufferLimit   = 1 << 20
)

// ByteBuffer is an append-only byte buffer. It implements io.Writer.
type ByteBuffer struct {
	B []byte
}

// Bytes returns the buffered bytes. They stay valid until the buffer is
// reset or returned to its pool.
func (b *ByteBuffer) Bytes() []byte { return b.B }

// Len returns the number of buffered bytes.
func (b *ByteBuffer) Len() int { return len(b.B) }

// Cap returns the buffer capacity.
func (b *ByteBuffer) Cap() int { return cap(b.B) }

// Reset empties the buffer and keeps its memory.
func (b *ByteBuffer) Reset() { b.B = b.B[:0] }

// Grow makes room for n more bytes.
func (b *ByteBuffer) Grow(n int) {
	b.B = slices.Grow(b.B, n)
}

// Write appends p.
func (b *ByteBuffer) Write(p []byte) (int, error) {
	b.B = append(b.B, p...)
	return len(p), nil
}

// Pool hands out ByteBuffers of an initial size and drops buffers that grew
// beyond limit when they come back. A zero limit keeps every buffer.
type Pool struct {
	p     sync.Pool
	limit int
}

// NewPool creates a Pool.
func NewPool(size, limit int) *Pool {
	return &Pool{
		p: sync.Pool{New: func() any {
			return &ByteBuffer{B: make([]byte, 0, size)}
		}},
		limit: limit,
	}
}

// Get returns an empty buffer.
func (p *Pool) Get() *ByteBuffer {
	b, _ := p.p.Get().(*ByteBuffer)
	return b
}

// Put resets b and returns it to the pool. Nil is ignored.
func (p *Pool) Put(b *ByteBuffer) {
	if b == nil || (p.limit > 0 && cap(b.B) > p.limit) {
		return
	}
	b.Reset()
	p.p.Put(b)
}

var (
	records = NewPool(RecordBufferSize, RecordBufferLimit)
	trees   = NewPool(TreeBufferSize, TreeBufferLimit)
)

// GetRecordBuffer returns a buffer for assembling a binary record.
func GetRecordBuffer() *ByteBuffer { return records.Get() }

// PutRecordBuffer recycles a buffer from GetRecordBuffer.
func PutRecordBuffer(b *ByteBuffer) { records.Put(b) }

// GetTreeBuffer returns a buffer for rendering a tree.
func GetTreeBuffer() *ByteBuffer { return trees.Get() }

// PutTreeBuffer recycles a buffer from GetTreeBuffer.
func PutTreeBuffer(b *ByteBuffer) { trees.Put(b) }
