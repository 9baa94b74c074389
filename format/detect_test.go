package format

import (
	"bytes"
	"errors"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// sample is the start of a GDSII stream: HEADER 600 and an empty ENDLIB
var sample = []byte{0x00, 0x06, 0x00, 0x02, 0x02, 0x58, 0x00, 0x04, 0x04, 0x00}

func TestFormat_String(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{GDSII, "GDSII"},
		{Gzip, "gzip"},
		{Zstd, "zstd"},
		{LZ4, "lz4"},
		{Unknown, "Unknown"},
		{Format(99), "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.format.String(); got != tt.want {
			t.Errorf("Format(%d).String() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestFormat_Extension(t *testing.T) {
	tests := []struct {
		format Format
		want   string
	}{
		{GDSII, ".gds"},
		{Gzip, ".gz"},
		{Zstd, ".zst"},
		{LZ4, ".lz4"},
		{Unknown, ""},
	}

	for _, tt := range tests {
		if got := tt.format.Extension(); got != tt.want {
			t.Errorf("Format(%d).Extension() = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestDetect(t *testing.T) {
	tests := []struct {
		filename string
		want     Format
	}{
		{"chip.gds", GDSII},
		{"chip.GDS", GDSII},
		{"chip.gdsii", GDSII},
		{"chip.gds2", GDSII},
		{"chip.strm", GDSII},
		{"chip.gds.gz", Gzip},
		{"chip.gds.zst", Zstd},
		{"chip.gds.lz4", LZ4},
		{"chip.oas", Unknown},
		{"chip", Unknown},
		{"", Unknown},
		{"/path/to/top.gds", GDSII},
	}

	for _, tt := range tests {
		if got := Detect(tt.filename); got != tt.want {
			t.Errorf("Detect(%q) = %v, want %v", tt.filename, got, tt.want)
		}
	}
}

func TestDetectFromMagic(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"GDSII header", sample, GDSII},
		{"gzip", []byte{0x1F, 0x8B, 0x08, 0x00}, Gzip},
		{"zstd", []byte{0x28, 0xB5, 0x2F, 0xFD, 0x00}, Zstd},
		{"lz4", []byte{0x04, 0x22, 0x4D, 0x18, 0x64}, LZ4},
		{"little-endian header", []byte{0x06, 0x00, 0x02, 0x00}, Unknown},
		{"empty data", []byte{}, Unknown},
		{"short data", []byte{0x00, 0x06}, Unknown},
		{"text file", []byte("Hello, World!"), Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DetectFromMagic(tt.data); got != tt.want {
				t.Errorf("DetectFromMagic() = %v, want %v", got, tt.want)
			}
		})
	}
}

// ============================================================================
// Decompress Tests
// ============================================================================

func gzipped(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func zstded(t *testing.T, data []byte) []byte {
	t.Helper()
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		t.Fatal(err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil)
}

func lz4ed(t *testing.T, data []byte) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := lz4.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := w.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDecompress(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want Format
	}{
		{"plain", sample, GDSII},
		{"gzip", gzipped(t, sample), Gzip},
		{"zstd", zstded(t, sample), Zstd},
		{"lz4", lz4ed(t, sample), LZ4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, f, err := Decompress(tt.data, 0)
			if err != nil {
				t.Fatalf("Decompress() error = %v", err)
			}
			if f != tt.want {
				t.Errorf("format = %v, want %v", f, tt.want)
			}
			if !bytes.Equal(out, sample) {
				t.Errorf("Decompress() = %x, want %x", out, sample)
			}
		})
	}
}

func TestDecompressLimit(t *testing.T) {
	big := make([]byte, 4096)
	_, _, err := Decompress(gzipped(t, big), 1024)
	if !errors.Is(err, ErrTooLarge) {
		t.Errorf("Decompress() error = %v, want ErrTooLarge", err)
	}

	out, _, err := Decompress(gzipped(t, big), 4096)
	if err != nil || len(out) != 4096 {
		t.Errorf("Decompress() at limit = %d bytes, %v", len(out), err)
	}
}

func TestDecompressCorrupt(t *testing.T) {
	data := gzipped(t, sample)
	data = data[:len(data)-6]
	if _, _, err := Decompress(data, 0); err == nil {
		t.Error("Decompress(truncated gzip) error = nil")
	}
}

func TestCompressed(t *testing.T) {
	if GDSII.Compressed() || Unknown.Compressed() {
		t.Error("plain formats reported as compressed")
	}
	if !Gzip.Compressed() || !Zstd.Compressed() || !LZ4.Compressed() {
		t.Error("compressed formats not reported as compressed")
	}
}
