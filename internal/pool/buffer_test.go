package pool

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteBufferWrite(t *testing.T) {
	var b ByteBuffer

	_, err := fmt.Fprintf(&b, "%s-%d", "CPER", 1)
	require.NoError(t, err)
	n, err := b.Write([]byte("+body"))
	require.NoError(t, err)

	assert.Equal(t, 5, n)
	assert.Equal(t, "CPER-1+body", string(b.Bytes()))
	assert.Equal(t, 11, b.Len())
}

func TestByteBufferGrow(t *testing.T) {
	b := &ByteBuffer{B: make([]byte, 0, 8)}
	_, _ = b.Write([]byte("header"))

	b.Grow(2)
	assert.Equal(t, 8, b.Cap(), "enough room already")

	b.Grow(1000)
	assert.GreaterOrEqual(t, b.Cap(), 1006)
	assert.Equal(t, "header", string(b.Bytes()))
}

func TestByteBufferReset(t *testing.T) {
	b := &ByteBuffer{}
	_, _ = b.Write(make([]byte, 100))
	capBefore := b.Cap()

	b.Reset()
	assert.Zero(t, b.Len())
	assert.Equal(t, capBefore, b.Cap())
}

func TestPackagePools(t *testing.T) {
	rec := GetRecordBuffer()
	defer PutRecordBuffer(rec)
	assert.Zero(t, rec.Len())
	assert.GreaterOrEqual(t, rec.Cap(), RecordBufferSize)

	tree := GetTreeBuffer()
	defer PutTreeBuffer(tree)
	assert.Zero(t, tree.Len())
	assert.GreaterOrEqual(t, tree.Cap(), TreeBufferSize)

	assert.NotPanics(t, func() {
		PutRecordBuffer(nil)
		PutTreeBuffer(nil)
	})
}

func TestPoolLimit(t *testing.T) {
	tests := []struct {
		name      string
		limit     int
		grow      int
		wantReset bool
	}{
		{name: "within limit", limit: 64, grow: 0, wantReset: true},
		{name: "over limit is dropped", limit: 64, grow: 1024, wantReset: false},
		{name: "zero limit keeps all", limit: 0, grow: 1 << 20, wantReset: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPool(16, tt.limit)
			b := p.Get()
			b.Grow(tt.grow)
			_, _ = b.Write([]byte("x"))

			p.Put(b)
			if tt.wantReset {
				assert.Zero(t, b.Len())
			} else {
				assert.Equal(t, 1, b.Len(), "dropped buffers are left untouched")
			}
		})
	}
}

func TestPoolConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 200 {
				b := GetRecordBuffer()
				_, _ = b.Write([]byte("data"))
				assert.Equal(t, 4, b.Len())
				PutRecordBuffer(b)
			}
		}()
	}
	wg.Wait()
}

func BenchmarkRecordBuffer(b *testing.B) {
	payload := make([]byte, 1024)
	b.ReportAllocs()
	for b.Loop() {
		buf := GetRecordBuffer()
		_, _ = buf.Write(payload)
		PutRecordBuffer(buf)
	}
}
