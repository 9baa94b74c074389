package core

import (
	"fmt"
	"io"
)

// RecordType identifies a GDSII record. The high byte is the record number,
// the low byte the payload data type.
type RecordType uint16

const (
	RecHeader       RecordType = 0x0002
	RecBgnLib       RecordType = 0x0102
	RecLibName      RecordType = 0x0206
	RecUnits        RecordType = 0x0305
	RecEndLib       RecordType = 0x0400
	RecBgnStr       RecordType = 0x0502
	RecStrName      RecordType = 0x0606
	RecEndStr       RecordType = 0x0700
	RecBoundary     RecordType = 0x0800
	RecPath         RecordType = 0x0900
	RecSRef         RecordType = 0x0A00
	RecARef         RecordType = 0x0B00
	RecText         RecordType = 0x0C00
	RecLayer        RecordType = 0x0D02
	RecDatatype     RecordType = 0x0E02
	RecWidth        RecordType = 0x0F03
	RecXY           RecordType = 0x1003
	RecEndEl        RecordType = 0x1100
	RecSName        RecordType = 0x1206
	RecColRow       RecordType = 0x1302
	RecNode         RecordType = 0x1500
	RecTextType     RecordType = 0x1602
	RecPresentation RecordType = 0x1701
	RecString       RecordType = 0x1906
	RecSTrans       RecordType = 0x1A01
	RecMag          RecordType = 0x1B05
	RecAngle        RecordType = 0x1C05
	RecPathType     RecordType = 0x2102
	RecElFlags      RecordType = 0x2601
	RecNodeType     RecordType = 0x2A02
	RecPropAttr     RecordType = 0x2B02
	RecPropValue    RecordType = 0x2C06
	RecBox          RecordType = 0x2D00
	RecBoxType      RecordType = 0x2E02
	RecPlex         RecordType = 0x2F03
	RecBgnExtn      RecordType = 0x3003
	RecEndExtn      RecordType = 0x3103
)

var recordNames = map[RecordType]string{
	RecHeader:       "HEADER",
	RecBgnLib:       "BGNLIB",
	RecLibName:      "LIBNAME",
	RecUnits:        "UNITS",
	RecEndLib:       "ENDLIB",
	RecBgnStr:       "BGNSTR",
	RecStrName:      "STRNAME",
	RecEndStr:       "ENDSTR",
	RecBoundary:     "BOUNDARY",
	RecPath:         "PATH",
	RecSRef:         "SREF",
	RecARef:         "AREF",
	RecText:         "TEXT",
	RecLayer:        "LAYER",
	RecDatatype:     "DATATYPE",
	RecWidth:        "WIDTH",
	RecXY:           "XY",
	RecEndEl:        "ENDEL",
	RecSName:        "SNAME",
	RecColRow:       "COLROW",
	RecNode:         "NODE",
	RecTextType:     "TEXTTYPE",
	RecPresentation: "PRESENTATION",
	RecString:       "STRING",
	RecSTrans:       "STRANS",
	RecMag:          "MAG",
	RecAngle:        "ANGLE",
	RecPathType:     "PATHTYPE",
	RecElFlags:      "ELFLAGS",
	RecNodeType:     "NODETYPE",
	RecPropAttr:     "PROPATTR",
	RecPropValue:    "PROPVALUE",
	RecBox:          "BOX",
	RecBoxType:      "BOXTYPE",
	RecPlex:         "PLEX",
	RecBgnExtn:      "BGNEXTN",
	RecEndExtn:      "ENDEXTN",
}

// String returns the record mnemonic, or its hex code if unknown
func (t RecordType) String() string {
	if name, ok := recordNames[t]; ok {
		return name
	}
	return fmt.Sprintf("RECORD(0x%04X)", uint16(t))
}

// IsElementStart reports whether t opens an element
func (t RecordType) IsElementStart() bool {
	switch t {
	case RecBoundary, RecPath, RecSRef, RecARef, RecText, RecBox, RecNode:
		return true
	}
	return false
}

// DataType is the payload encoding named by the low byte of a record type
type DataType uint8

const (
	DataNone     DataType = 0x00
	DataBitArray DataType = 0x01
	DataInt16    DataType = 0x02
	DataInt32    DataType = 0x03
	DataReal4    DataType = 0x04
	DataReal8    DataType = 0x05
	DataASCII    DataType = 0x06
)

// DataType returns the payload encoding of the record type
func (t RecordType) DataType() DataType {
	return DataType(t & 0xFF)
}

// HeaderSize is the size of a record header in bytes
const HeaderSize = 4

// Record locates one record in the buffer. Its payload is not copied.
type Record struct {
	Type   RecordType
	Offset int // offset of the record header
	Length int // payload length, header excluded
}

// PayloadOffset returns the offset of the first payload byte
func (r Record) PayloadOffset() int {
	return r.Offset + HeaderSize
}

// End returns the offset just past the record
func (r Record) End() int {
	return r.Offset + HeaderSize + r.Length
}

// Scanner reads GDSII records from a byte buffer
type Scanner struct {
	cur *Cursor
}

// NewScanner creates a scanner positioned at the start of buf
func NewScanner(buf []byte) *Scanner {
	return &Scanner{cur: NewCursor(buf)}
}

// Offset returns the current byte offset
func (s *Scanner) Offset() int {
	return s.cur.Tell()
}

// AtEnd reports whether the whole buffer has been consumed
func (s *Scanner) AtEnd() bool {
	return s.cur.AtEnd()
}

// Len returns the size of the scanned buffer
func (s *Scanner) Len() int {
	return s.cur.Len()
}

// Seek moves to an absolute offset
func (s *Scanner) Seek(offset int) error {
	_, err := s.cur.Seek(int64(offset), io.SeekStart)
	return err
}

// ReadHeader reads a record header and leaves the scanner at the start of
// the payload. The payload itself is neither read nor bounds checked here.
func (s *Scanner) ReadHeader() (Record, error) {
	rec := Record{Offset: s.cur.Tell()}

	b, err := s.cur.ReadExact(HeaderSize)
	if err != nil {
		return rec, &ParseError{Op: "read header", Offset: rec.Offset, Err: err}
	}

	total := int(b[0])<<8 | int(b[1])
	rec.Type = RecordType(uint16(b[2])<<8 | uint16(b[3]))

	if total < HeaderSize {
		s.cur.pos = rec.Offset
		return rec, &ParseError{
			Op:     "read header",
			Offset: rec.Offset,
			Record: rec.Type,
			Err:    fmt.Errorf("total length %d: %w", total, ErrInvalidLength),
		}
	}
	if total%2 != 0 {
		s.cur.pos = rec.Offset
		return rec, &ParseError{
			Op:     "read header",
			Offset: rec.Offset,
			Record: rec.Type,
			Err:    fmt.Errorf("odd total length %d: %w", total, ErrMalformedLength),
		}
	}

	rec.Length = total - HeaderSize
	return rec, nil
}

// Payload reads the payload of rec, which must be the record whose header
// was just read. The returned slice aliases the buffer.
func (s *Scanner) Payload(rec Record) ([]byte, error) {
	if err := s.Seek(rec.PayloadOffset()); err != nil {
		return nil, Wrap("read payload", rec, err)
	}
	b, err := s.cur.ReadExact(rec.Length)
	if err != nil {
		return nil, Wrap("read payload", rec, err)
	}
	return b, nil
}

// Skip moves past the payload of rec
func (s *Scanner) Skip(rec Record) error {
	if rec.End() > s.cur.Len() {
		return &ParseError{
			Op:     "skip",
			Offset: rec.Offset,
			Record: rec.Type,
			Err:    fmt.Errorf("record ends at %d past buffer end %d: %w", rec.End(), s.cur.Len(), ErrTruncated),
		}
	}
	return Wrap("skip", rec, s.Seek(rec.End()))
}

// Next reads a header and its payload
func (s *Scanner) Next() (Record, []byte, error) {
	rec, err := s.ReadHeader()
	if err != nil {
		return rec, nil, err
	}
	payload, err := s.Payload(rec)
	if err != nil {
		return rec, nil, err
	}
	return rec, payload, nil
}

// Expect reads the next record and its payload, failing with
// ErrUnexpectedRecordType if its type is not want.
func (s *Scanner) Expect(want RecordType) (Record, []byte, error) {
	rec, err := s.ReadHeader()
	if err != nil {
		return rec, nil, err
	}
	if rec.Type != want {
		return rec, nil, &ParseError{
			Op:     "expect " + want.String(),
			Offset: rec.Offset,
			Record: rec.Type,
			Err:    ErrUnexpectedRecordType,
		}
	}
	payload, err := s.Payload(rec)
	if err != nil {
		return rec, nil, err
	}
	return rec, payload, nil
}
