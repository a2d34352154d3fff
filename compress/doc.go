// Package compress wraps record and tree files in zstd, S2 or LZ4 frames.
//
// Every codec writes a self-describing frame, so a reader does not need to
// be told how a file was compressed:
//
//	data, ct, err := compress.Unwrap(fileBytes)
//	if err != nil {
//	    return err
//	}
//	log.Debug().Stringer("compression", ct).Msg("input read")
//
// Detect looks only at the frame magic:
//
//   - zstd: 28 b5 2f fd
//   - S2: the stream identifier ff 06 00 00 "S2sTwO"
//   - LZ4: 04 22 4d 18
//
// Anything else, including a raw CPER record (which begins with "CPER") and
// a JSON, YAML or CBOR tree, is reported as format.CompressionNone.
//
// # Codecs
//
//	codec, err := compress.CreateCodec(format.CompressionZstd, "output")
//	frame, err := codec.Compress(recordBytes)
//	original, err := codec.Decompress(frame)
//
// Zstd gives the best ratio and is the default for archived record sets. S2
// and LZ4 trade ratio for speed. Zstd uses the pure-Go klauspost encoder
// unless the package is built with cgo and the gozstd tag, which switches to
// the libzstd binding.
//
// All codecs are stateless values backed by pooled encoders and are safe for
// concurrent use.
package compress
