package compress

import (
	"bytes"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/cper/format"
	"github.com/arloliu/cper/generator"
)

// getAllCodecs returns all available codec implementations for testing
func getAllCodecs() map[string]Codec {
	return map[string]Codec{
		"NoOp": NewNoOpCompressor(),
		"LZ4":  NewLZ4Compressor(),
		"S2":   NewS2Compressor(),
		"Zstd": NewZstdCompressor(),
	}
}

func sampleRecord(t testing.TB) []byte {
	t.Helper()

	data, err := generator.NewSeeded(1).Record(generator.Keys()...)
	require.NoError(t, err)

	return data
}

func TestCreateCodec(t *testing.T) {
	tests := []struct {
		ct      format.CompressionType
		want    Codec
		wantErr bool
	}{
		{ct: format.CompressionNone, want: NoOpCompressor{}},
		{ct: format.CompressionZstd, want: ZstdCompressor{}},
		{ct: format.CompressionS2, want: S2Compressor{}},
		{ct: format.CompressionLZ4, want: LZ4Compressor{}},
		{ct: format.CompressionType(0), wantErr: true},
		{ct: format.CompressionType(99), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ct.String(), func(t *testing.T) {
			codec, err := CreateCodec(tt.ct, "output")
			if tt.wantErr {
				require.Error(t, err)
				require.Contains(t, err.Error(), "output")
				return
			}
			require.NoError(t, err)
			require.IsType(t, tt.want, codec)

			got, err := GetCodec(tt.ct)
			require.NoError(t, err)
			require.IsType(t, tt.want, got)
		})
	}

	_, err := GetCodec(format.CompressionType(99))
	require.Error(t, err)
}

func TestAllCodecs_EmptyData(t *testing.T) {
	for name, codec := range getAllCodecs() {
		t.Run(name, func(t *testing.T) {
			decompressed, err := codec.Decompress(nil)
			require.NoError(t, err)
			require.Empty(t, decompressed)

			compressed, err := codec.Compress([]byte{})
			require.NoError(t, err)
			decompressed, err = codec.Decompress(compressed)
			require.NoError(t, err)
			require.Empty(t, decompressed)
		})
	}
}

func TestAllCodecs_RoundTrip(t *testing.T) {
	testCases := []struct {
		name string
		data []byte
	}{
		{name: "single_byte", data: []byte{0x42}},
		{name: "binary_data", data: []byte{0x00, 0x01, 0x02, 0x03, 0xFF, 0xFE, 0xFD, 0xFC}},
		{name: "repeated_pattern", data: bytes.Repeat([]byte("CPER"), 1000)},
		{name: "record", data: sampleRecord(t)},
		{name: "tree", data: bytes.Repeat([]byte(`{"header":{"revision":{"major":1,"minor":0}}}`), 512)},
	}

	for name, codec := range getAllCodecs() {
		for _, tc := range testCases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				compressed, err := codec.Compress(tc.data)
				require.NoError(t, err)

				decompressed, err := codec.Decompress(compressed)
				require.NoError(t, err)
				require.Equal(t, tc.data, decompressed)
			})
		}
	}
}

func TestDetect(t *testing.T) {
	record := sampleRecord(t)
	require.Equal(t, format.CompressionNone, Detect(record))
	require.Equal(t, format.CompressionNone, Detect([]byte(`{"header":{}}`)))
	require.Equal(t, format.CompressionNone, Detect(nil))

	for _, ct := range []format.CompressionType{format.CompressionZstd, format.CompressionS2, format.CompressionLZ4} {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := GetCodec(ct)
			require.NoError(t, err)
			frame, err := codec.Compress(record)
			require.NoError(t, err)
			require.Equal(t, ct, Detect(frame))

			out, got, err := Unwrap(frame)
			require.NoError(t, err)
			require.Equal(t, ct, got)
			require.Equal(t, record, out)
		})
	}
}

func TestUnwrapUncompressed(t *testing.T) {
	record := sampleRecord(t)

	out, ct, err := Unwrap(record)
	require.NoError(t, err)
	require.Equal(t, format.CompressionNone, ct)
	require.Equal(t, record, out)
}

func TestUnwrapCorrupted(t *testing.T) {
	record := sampleRecord(t)

	for _, ct := range []format.CompressionType{format.CompressionZstd, format.CompressionS2, format.CompressionLZ4} {
		t.Run(ct.String(), func(t *testing.T) {
			codec, err := GetCodec(ct)
			require.NoError(t, err)
			frame, err := codec.Compress(record)
			require.NoError(t, err)

			// Keep the magic so detection still picks the codec.
			truncated := frame[:len(frame)/2]
			_, got, err := Unwrap(truncated)
			require.Error(t, err)
			require.Equal(t, ct, got)
		})
	}
}

func TestAllCodecs_InvalidData(t *testing.T) {
	garbage := []byte("this is not a compressed frame of any kind")

	for name, codec := range getAllCodecs() {
		if name == "NoOp" {
			continue
		}
		t.Run(name, func(t *testing.T) {
			_, err := codec.Decompress(garbage)
			require.Error(t, err)
		})
	}
}

func TestAllCodecs_ConcurrentUsage(t *testing.T) {
	record := sampleRecord(t)

	for name, codec := range getAllCodecs() {
		t.Run(name, func(t *testing.T) {
			var wg sync.WaitGroup
			errCh := make(chan error, 16)
			for range 16 {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range 20 {
						compressed, err := codec.Compress(record)
						if err != nil {
							errCh <- err
							return
						}
						out, err := codec.Decompress(compressed)
						if err != nil {
							errCh <- err
							return
						}
						if !bytes.Equal(record, out) {
							errCh <- fmt.Errorf("%s: round trip mismatch", name)
							return
						}
					}
				}()
			}
			wg.Wait()
			close(errCh)

			for err := range errCh {
				require.NoError(t, err)
			}
		})
	}
}
