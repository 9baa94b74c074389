// Package gdstest builds GDSII byte streams in memory for tests.
package gdstest

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/tsawler/gdsii/core"
)

// Builder appends GDSII records to an in-memory buffer
type Builder struct {
	buf bytes.Buffer
}

// New creates an empty builder
func New() *Builder {
	return &Builder{}
}

// Bytes returns a copy of the records written so far
func (b *Builder) Bytes() []byte {
	return append([]byte(nil), b.buf.Bytes()...)
}

// Len returns the number of bytes written so far
func (b *Builder) Len() int {
	return b.buf.Len()
}

// Raw appends bytes verbatim, with no header
func (b *Builder) Raw(p []byte) *Builder {
	b.buf.Write(p)
	return b
}

// Record appends a record with the given payload
func (b *Builder) Record(t core.RecordType, payload []byte) *Builder {
	var hdr [4]byte
	binary.BigEndian.PutUint16(hdr[0:], uint16(len(payload)+core.HeaderSize))
	binary.BigEndian.PutUint16(hdr[2:], uint16(t))
	b.buf.Write(hdr[:])
	b.buf.Write(payload)
	return b
}

// Empty appends a record with no payload
func (b *Builder) Empty(t core.RecordType) *Builder {
	return b.Record(t, nil)
}

// Int16s appends a record of big-endian 16-bit values
func (b *Builder) Int16s(t core.RecordType, vals ...uint16) *Builder {
	p := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint16(p[2*i:], v)
	}
	return b.Record(t, p)
}

// Int32s appends a record of big-endian 32-bit values
func (b *Builder) Int32s(t core.RecordType, vals ...int32) *Builder {
	p := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(p[4*i:], uint32(v))
	}
	return b.Record(t, p)
}

// Real8s appends a record of Excess-64 reals
func (b *Builder) Real8s(t core.RecordType, vals ...float64) *Builder {
	p := make([]byte, 0, 8*len(vals))
	for _, v := range vals {
		p = append(p, EncodeReal8(v)...)
	}
	return b.Record(t, p)
}

// ASCII appends a string record, NUL-padded to an even length
func (b *Builder) ASCII(t core.RecordType, s string) *Builder {
	p := []byte(s)
	if len(p)%2 != 0 {
		p = append(p, 0)
	}
	return b.Record(t, p)
}

// XY appends an XY record from flattened x, y pairs
func (b *Builder) XY(coords ...int32) *Builder {
	return b.Int32s(core.RecXY, coords...)
}

// Header appends HEADER, BGNLIB and LIBNAME
func (b *Builder) Header(name string) *Builder {
	b.Int16s(core.RecHeader, 600)
	b.Int16s(core.RecBgnLib,
		2024, 1, 2, 3, 4, 5,
		2024, 6, 7, 8, 9, 10)
	return b.ASCII(core.RecLibName, name)
}

// Units appends a UNITS record
func (b *Builder) Units(userPerDB, metersPerDB float64) *Builder {
	return b.Real8s(core.RecUnits, userPerDB, metersPerDB)
}

// BeginStructure appends BGNSTR and STRNAME
func (b *Builder) BeginStructure(name string) *Builder {
	b.Int16s(core.RecBgnStr,
		2023, 12, 31, 23, 59, 58,
		2024, 1, 1, 0, 0, 1)
	return b.ASCII(core.RecStrName, name)
}

// EndStructure appends ENDSTR
func (b *Builder) EndStructure() *Builder {
	return b.Empty(core.RecEndStr)
}

// EndLibrary appends ENDLIB
func (b *Builder) EndLibrary() *Builder {
	return b.Empty(core.RecEndLib)
}

// Boundary appends a complete BOUNDARY element
func (b *Builder) Boundary(layer, datatype uint16, coords ...int32) *Builder {
	b.Empty(core.RecBoundary)
	b.Int16s(core.RecLayer, layer)
	b.Int16s(core.RecDatatype, datatype)
	b.XY(coords...)
	return b.Empty(core.RecEndEl)
}

// Text appends a complete TEXT element
func (b *Builder) Text(layer uint16, text string, x, y int32) *Builder {
	b.Empty(core.RecText)
	b.Int16s(core.RecLayer, layer)
	b.Int16s(core.RecTextType, 0)
	b.XY(x, y)
	b.ASCII(core.RecString, text)
	return b.Empty(core.RecEndEl)
}

// SRef appends a complete SREF element without a transform
func (b *Builder) SRef(name string, x, y int32) *Builder {
	b.Empty(core.RecSRef)
	b.ASCII(core.RecSName, name)
	b.XY(x, y)
	return b.Empty(core.RecEndEl)
}

// MinimalLibrary returns HEADER, BGNLIB, LIBNAME, UNITS and ENDLIB with
// conventional units of 1e-3 user units and 1e-9 meters per database unit.
func MinimalLibrary(name string) []byte {
	return New().Header(name).Units(1e-3, 1e-9).EndLibrary().Bytes()
}

// EncodeReal8 converts v to the 8-byte Excess-64 format
func EncodeReal8(v float64) []byte {
	out := make([]byte, 8)
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return out
	}

	var sign byte
	if v < 0 {
		sign = 0x80
		v = -v
	}

	exp := 0
	for v >= 1 {
		v /= 16
		exp++
	}
	for v < 1.0/16 {
		v *= 16
		exp--
	}

	binary.BigEndian.PutUint64(out, uint64(math.Ldexp(v, 56)))
	out[0] = sign | byte(exp+64)
	return out
}
