package core

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// Uint16 decodes a payload holding exactly one big-endian uint16
func Uint16(payload []byte) (uint16, error) {
	if len(payload) != 2 {
		return 0, fmt.Errorf("expected 2 bytes, got %d: %w", len(payload), ErrMalformedLength)
	}
	return binary.BigEndian.Uint16(payload), nil
}

// Uint16s decodes a payload holding exactly n big-endian uint16 values
func Uint16s(payload []byte, n int) ([]uint16, error) {
	if len(payload) != 2*n {
		return nil, fmt.Errorf("expected %d bytes, got %d: %w", 2*n, len(payload), ErrMalformedLength)
	}
	out := make([]uint16, n)
	for i := range out {
		out[i] = binary.BigEndian.Uint16(payload[2*i:])
	}
	return out, nil
}

// Int32 decodes a payload holding exactly one big-endian int32
func Int32(payload []byte) (int32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("expected 4 bytes, got %d: %w", len(payload), ErrMalformedLength)
	}
	return int32(binary.BigEndian.Uint32(payload)), nil
}

// Real8 decodes a payload holding exactly one Excess-64 real
func Real8(payload []byte) (float64, error) {
	if len(payload) != 8 {
		return 0, fmt.Errorf("expected 8 bytes, got %d: %w", len(payload), ErrMalformedLength)
	}
	return DecodeReal8(payload), nil
}

// DecodeReal8 converts the first 8 bytes of b from the GDSII Excess-64
// format: 1 sign bit, 7-bit base-16 exponent biased by 64, and a 56-bit
// mantissa read as a fraction of 2^56.
func DecodeReal8(b []byte) float64 {
	_ = b[7]
	mantissa := binary.BigEndian.Uint64(b) & 0x00FFFFFFFFFFFFFF
	if mantissa == 0 {
		return 0
	}
	exponent := int(b[0]&0x7F) - 64
	v := math.Ldexp(float64(mantissa), 4*exponent-56)
	if b[0]&0x80 != 0 {
		v = -v
	}
	return v
}

// String decodes a NUL-padded ASCII payload. Text stops at the first NUL.
// Bytes outside ASCII are read as ISO-8859-1 so the result is always valid
// UTF-8.
func String(payload []byte) string {
	if i := bytes.IndexByte(payload, 0); i >= 0 {
		payload = payload[:i]
	}
	if isASCII(payload) {
		return string(payload)
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(payload)
	if err != nil {
		return string(bytes.ToValidUTF8(payload, nil))
	}
	return string(decoded)
}

func isASCII(b []byte) bool {
	for _, c := range b {
		if c >= utf8.RuneSelf {
			return false
		}
	}
	return true
}

// Timestamps decodes a BGNLIB or BGNSTR payload: two runs of six uint16
// values (year, month, day, hour, minute, second), creation first.
func Timestamps(payload []byte) (created, modified [6]uint16, err error) {
	if len(payload) != 24 {
		return created, modified, fmt.Errorf("expected 24 bytes, got %d: %w", len(payload), ErrMalformedLength)
	}
	for i := 0; i < 6; i++ {
		created[i] = binary.BigEndian.Uint16(payload[2*i:])
		modified[i] = binary.BigEndian.Uint16(payload[12+2*i:])
	}
	return created, modified, nil
}

// VertexCount validates an XY payload and returns the number of (x, y)
// pairs it holds. Each coordinate is a 4-byte integer, so a vertex is 8
// bytes.
func VertexCount(payload []byte) (int, error) {
	if len(payload) == 0 || len(payload)%8 != 0 {
		return 0, fmt.Errorf("XY payload of %d bytes is not a positive multiple of 8: %w", len(payload), ErrMalformedLength)
	}
	return len(payload) / 8, nil
}

// Vertex returns the i-th coordinate pair of an XY payload already
// validated by VertexCount.
func Vertex(payload []byte, i int) (x, y int32) {
	p := payload[8*i : 8*i+8]
	return int32(binary.BigEndian.Uint32(p)), int32(binary.BigEndian.Uint32(p[4:]))
}
