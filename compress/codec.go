package compress

import (
	"bytes"
	"fmt"

	"github.com/arloliu/cper/format"
)

// Compressor compresses a whole record or tree file into one self-describing
// frame.
type Compressor interface {
	// Compress compresses data and returns a newly allocated frame.
	//
	// Memory management:
	//   - Returned slice is owned by the caller
	//   - Input slice is not modified
	//   - Internal encoders may be reused across calls
	Compress(data []byte) ([]byte, error)
}

// Decompressor reverses a Compressor of the same algorithm.
//
// Example:
//
//	codec, _ := compress.GetCodec(format.CompressionZstd)
//	original, err := codec.Decompress(frame)
//	if err != nil {
//	    return fmt.Errorf("decompression failed: %w", err)
//	}
//
// Implementations are safe for concurrent use.
type Decompressor interface {
	// Decompress validates the frame and returns the original bytes.
	//
	// Error conditions:
	//   - data is not a frame of this algorithm
	//   - data is truncated or corrupted
	Decompress(data []byte) ([]byte, error)
}

// Codec combines both compression and decompression capabilities.
type Codec interface {
	Compressor
	Decompressor
}

// maxDecodedSize bounds the memory a single zstd frame may expand to.
const maxDecodedSize = 1 << 30

// Frame magic numbers, as they appear at the start of a file.
var (
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	s2Magic   = []byte("\xff\x06\x00\x00S2sTwO")
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// Detect returns the compression of data from its frame magic.
// Data without a known magic is reported as format.CompressionNone.
func Detect(data []byte) format.CompressionType {
	switch {
	case bytes.HasPrefix(data, zstdMagic):
		return format.CompressionZstd
	case bytes.HasPrefix(data, s2Magic):
		return format.CompressionS2
	case bytes.HasPrefix(data, lz4Magic):
		return format.CompressionLZ4
	default:
		return format.CompressionNone
	}
}

// Unwrap decompresses data with the codec its magic selects and returns
// uncompressed data unchanged.
//
// Parameters:
//   - data: file contents, compressed or not
//
// Returns:
//   - []byte: uncompressed contents
//   - format.CompressionType: the detected compression
//   - error: decompression failure for a recognised but corrupted frame
func Unwrap(data []byte) ([]byte, format.CompressionType, error) {
	ct := Detect(data)
	codec, err := GetCodec(ct)
	if err != nil {
		return nil, ct, err
	}

	out, err := codec.Decompress(data)
	if err != nil {
		return nil, ct, fmt.Errorf("%s input: %w", ct, err)
	}

	return out, ct, nil
}

// CreateCodec is a factory function that creates a Codec based on the specified compression type.
//
// Parameters:
//   - compressionType: Type of compression (None, Zstd, S2, or LZ4)
//   - target: Description of target usage (for error messages)
//
// Returns:
//   - Codec: Compressor instance for the specified type
//   - error: Invalid compression type error
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}

var builtinCodecs = map[format.CompressionType]Codec{
	format.CompressionNone: NewNoOpCompressor(),
	format.CompressionZstd: NewZstdCompressor(),
	format.CompressionS2:   NewS2Compressor(),
	format.CompressionLZ4:  NewLZ4Compressor(),
}

// GetCodec retrieves a built-in Codec for the specified compression type.
func GetCodec(compressionType format.CompressionType) (Codec, error) {
	if codec, ok := builtinCodecs[compressionType]; ok {
		return codec, nil
	}

	return nil, fmt.Errorf("unsupported compression type: %s", compressionType)
}
