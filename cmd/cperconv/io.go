package main

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/arloliu/cper/compress"
	"github.com/arloliu/cper/format"
)

// readInput reads a file, or stdin for "-", and undoes any compression.
func readInput(path string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	out, ct, err := compress.Unwrap(data)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if ct != format.CompressionNone {
		logger.Debug().Str("file", path).Str("compression", ct.String()).
			Int("size", len(data)).Int("decompressed", len(out)).Msg("input decompressed")
	}

	return out, nil
}

// encodeOutput compresses data with the configured codec. Uncompressed text
// gets a trailing newline.
func encodeOutput(data []byte, text bool) ([]byte, error) {
	if settings.Compression == format.CompressionNone {
		if text && !bytes.HasSuffix(data, []byte("\n")) {
			data = append(data, '\n')
		}

		return data, nil
	}

	codec, err := compress.CreateCodec(settings.Compression, "output")
	if err != nil {
		return nil, err
	}

	return codec.Compress(data)
}

// writeOutput writes data to path, or stdout for "" and "-".
func writeOutput(path string, data []byte, text bool) error {
	out, err := encodeOutput(data, text)
	if err != nil {
		return err
	}

	if path == "" || path == "-" {
		_, err = os.Stdout.Write(out)
		return err
	}
	if err := os.WriteFile(path, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	logger.Debug().Str("file", path).Int("size", len(out)).Msg("output written")

	return nil
}

// treeText reports whether the configured tree format is text.
func treeText() bool {
	return settings.Format != format.TreeCBOR
}

// outputExt returns the file extension for a converted file.
func outputExt(base string) string {
	switch settings.Compression {
	case format.CompressionZstd:
		return base + ".zst"
	case format.CompressionS2:
		return base + ".s2"
	case format.CompressionLZ4:
		return base + ".lz4"
	default:
		return base
	}
}
