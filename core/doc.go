// Package core provides low-level GDSII stream decoding primitives.
//
// GDSII is a sequence of variable-length records. Every record starts with
// a 4-byte header: a big-endian uint16 total length (header included) and a
// big-endian uint16 record type, whose low byte names the payload data type.
// Records are packed back to back with no alignment padding.
//
// # Cursor
//
// [Cursor] is a bounds-checked, read-only view over a caller-owned byte
// slice. It never copies or mutates the buffer. Every read that would run
// past the end fails with [ErrTruncated], and every seek outside the buffer
// fails with [ErrOutOfRange], so a record claiming an absurd length is
// rejected before anything is allocated for it.
//
// # Scanner
//
// [Scanner] reads one record header at a time:
//
//	s := core.NewScanner(data)
//	rec, err := s.ReadHeader()
//	if err != nil {
//	    return err
//	}
//	if rec.Type != core.RecHeader {
//	    return s.Skip(rec)
//	}
//	payload, err := s.Payload(rec)
//
// The scanner does not advance past the payload on its own; callers peek at
// the header and then either consume the payload or skip it.
//
// # Payload Decoding
//
// Helpers decode the fixed-size payloads GDSII uses: [Uint16], [Int32],
// [Real8] (the 8-byte Excess-64 floating format), [String] (NUL-padded
// text) and [VertexCount]/[Vertex] for XY coordinate lists.
//
// # Errors
//
// All failures wrap one of the taxonomy sentinels ([ErrTruncated],
// [ErrUnexpectedRecordType], [ErrMalformedLength], [ErrIndexOutOfRange],
// [ErrInvalidNumericField]) so callers can classify them with errors.Is.
// Decoding failures are reported as [*ParseError], which carries the byte
// offset and record type where decoding stopped.
package core
