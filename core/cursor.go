package core

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Cursor is a bounds-checked read position over a byte slice.
// The cursor borrows the buffer; slices it returns alias it.
type Cursor struct {
	buf []byte
	pos int
}

// NewCursor creates a cursor positioned at the start of buf
func NewCursor(buf []byte) *Cursor {
	return &Cursor{buf: buf}
}

// Len returns the length of the underlying buffer
func (c *Cursor) Len() int {
	return len(c.buf)
}

// Tell returns the current position
func (c *Cursor) Tell() int {
	return c.pos
}

// Remaining returns the number of unread bytes
func (c *Cursor) Remaining() int {
	return len(c.buf) - c.pos
}

// AtEnd reports whether every byte has been consumed
func (c *Cursor) AtEnd() bool {
	return c.pos >= len(c.buf)
}

// ReadExact returns the next n bytes and advances past them.
// The position is left unchanged on error.
func (c *Cursor) ReadExact(n int) ([]byte, error) {
	if n < 0 {
		return nil, fmt.Errorf("negative read of %d bytes: %w", n, ErrMalformedLength)
	}
	if n > c.Remaining() {
		return nil, fmt.Errorf("need %d bytes at offset %d, %d remain: %w", n, c.pos, c.Remaining(), ErrTruncated)
	}
	b := c.buf[c.pos : c.pos+n : c.pos+n]
	c.pos += n
	return b, nil
}

// Skip advances n bytes without returning them
func (c *Cursor) Skip(n int) error {
	_, err := c.ReadExact(n)
	return err
}

// Seek moves the cursor. whence is one of io.SeekStart, io.SeekCurrent or
// io.SeekEnd. The target must lie within [0, Len()].
func (c *Cursor) Seek(offset int64, whence int) (int64, error) {
	var base int64
	switch whence {
	case io.SeekStart:
		base = 0
	case io.SeekCurrent:
		base = int64(c.pos)
	case io.SeekEnd:
		base = int64(len(c.buf))
	default:
		return int64(c.pos), fmt.Errorf("invalid whence %d", whence)
	}

	target := base + offset
	if target < 0 || target > int64(len(c.buf)) {
		return int64(c.pos), fmt.Errorf("target %d outside [0, %d]: %w", target, len(c.buf), ErrOutOfRange)
	}
	c.pos = int(target)
	return target, nil
}

// ReadUint16 reads a big-endian uint16
func (c *Cursor) ReadUint16() (uint16, error) {
	b, err := c.ReadExact(2)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(b), nil
}

// ReadInt32 reads a big-endian two's complement int32
func (c *Cursor) ReadInt32() (int32, error) {
	b, err := c.ReadExact(4)
	if err != nil {
		return 0, err
	}
	return int32(binary.BigEndian.Uint32(b)), nil
}

// ReadReal8 reads an 8-byte Excess-64 real
func (c *Cursor) ReadReal8() (float64, error) {
	b, err := c.ReadExact(8)
	if err != nil {
		return 0, err
	}
	return DecodeReal8(b), nil
}
