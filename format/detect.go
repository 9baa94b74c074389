// Package format provides file format detection and decompression for
// GDSII streams.
package format

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Format represents a recognized input format.
type Format int

const (
	// Unknown indicates an unrecognized format.
	Unknown Format = iota
	// GDSII indicates an uncompressed GDSII stream.
	GDSII
	// Gzip indicates a gzip-compressed stream.
	Gzip
	// Zstd indicates a zstd-compressed stream.
	Zstd
	// LZ4 indicates an LZ4 frame.
	LZ4
)

// String returns the string representation of the format.
func (f Format) String() string {
	switch f {
	case GDSII:
		return "GDSII"
	case Gzip:
		return "gzip"
	case Zstd:
		return "zstd"
	case LZ4:
		return "lz4"
	default:
		return "Unknown"
	}
}

// Extension returns the typical file extension for the format.
func (f Format) Extension() string {
	switch f {
	case GDSII:
		return ".gds"
	case Gzip:
		return ".gz"
	case Zstd:
		return ".zst"
	case LZ4:
		return ".lz4"
	default:
		return ""
	}
}

// Compressed reports whether the format wraps another stream
func (f Format) Compressed() bool {
	return f == Gzip || f == Zstd || f == LZ4
}

// Detect determines the outer format from the filename extension, so
// "chip.gds.gz" is Gzip.
func Detect(filename string) Format {
	ext := strings.ToLower(filepath.Ext(filename))
	switch ext {
	case ".gds", ".gdsii", ".gds2", ".sf", ".strm":
		return GDSII
	case ".gz", ".gzip":
		return Gzip
	case ".zst", ".zstd":
		return Zstd
	case ".lz4":
		return LZ4
	default:
		return Unknown
	}
}

var (
	// a HEADER record: total length 6, type 0x0002
	gdsMagic  = []byte{0x00, 0x06, 0x00, 0x02}
	gzipMagic = []byte{0x1F, 0x8B}
	zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}
	lz4Magic  = []byte{0x04, 0x22, 0x4D, 0x18}
)

// DetectFromMagic checks leading bytes to determine the format.
// This provides more reliable detection than extension-based detection.
func DetectFromMagic(data []byte) Format {
	switch {
	case bytes.HasPrefix(data, gdsMagic):
		return GDSII
	case bytes.HasPrefix(data, gzipMagic):
		return Gzip
	case bytes.HasPrefix(data, zstdMagic):
		return Zstd
	case bytes.HasPrefix(data, lz4Magic):
		return LZ4
	default:
		return Unknown
	}
}
