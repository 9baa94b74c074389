package format

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// DefaultMaxSize bounds decompressed output when no limit is given.
const DefaultMaxSize = 4 << 30

// ErrTooLarge is returned when decompressed output exceeds the limit.
var ErrTooLarge = errors.New("decompressed size exceeds limit")

// Decompress unwraps a gzip, zstd or LZ4 stream, detected from its magic
// bytes. Any other input is returned unchanged with its detected format.
// Output larger than maxSize fails with ErrTooLarge; maxSize <= 0 means
// DefaultMaxSize.
func Decompress(data []byte, maxSize int64) ([]byte, Format, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}

	f := DetectFromMagic(data)
	var (
		r   io.Reader
		err error
	)
	switch f {
	case Gzip:
		var zr *gzip.Reader
		zr, err = gzip.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, f, fmt.Errorf("gzip: %w", err)
		}
		defer zr.Close()
		r = zr
	case Zstd:
		var zr *zstd.Decoder
		zr, err = zstd.NewReader(bytes.NewReader(data),
			zstd.WithDecoderConcurrency(1),
			zstd.WithDecoderMaxMemory(uint64(maxSize)))
		if err != nil {
			return nil, f, fmt.Errorf("zstd: %w", err)
		}
		defer zr.Close()
		r = zr
	case LZ4:
		r = lz4.NewReader(bytes.NewReader(data))
	default:
		return data, f, nil
	}

	out, err := io.ReadAll(io.LimitReader(r, maxSize+1))
	if err != nil {
		return nil, f, fmt.Errorf("%s: %w", f, err)
	}
	if int64(len(out)) > maxSize {
		return nil, f, fmt.Errorf("%s: more than %d bytes: %w", f, maxSize, ErrTooLarge)
	}
	return out, f, nil
}
