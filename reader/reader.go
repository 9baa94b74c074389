package reader

import (
	"errors"
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/tsawler/gdsii/core"
	"github.com/tsawler/gdsii/element"
	"github.com/tsawler/gdsii/model"
)

// Reader is a GDSII library decoded from a caller-owned buffer. The
// preamble and structure index are read by New; elements are decoded per
// structure on first access.
type Reader struct {
	buf        []byte
	lib        model.Library
	structures []*structure
	byName     map[string]int
	decoder    *element.Decoder
	logger     *zap.Logger
}

// New reads the library preamble and indexes the structures in buf.
// Failure here is final for the buffer; no partial Reader is returned.
func New(buf []byte, opts ...Option) (*Reader, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	r := &Reader{
		buf:     buf,
		byName:  make(map[string]int),
		decoder: element.NewDecoder(o.logger),
		logger:  o.logger,
	}

	s := core.NewScanner(buf)
	if err := r.readPreamble(s); err != nil {
		return nil, fmt.Errorf("failed to read library preamble: %w", err)
	}
	if err := r.indexStructures(s); err != nil {
		return nil, fmt.Errorf("failed to index structures: %w", err)
	}

	r.logger.Debug("library indexed",
		zap.String("library", r.lib.Name),
		zap.Int("structures", len(r.structures)),
		zap.Int("bytes", len(buf)))

	if o.eager {
		// failures stay recorded on each structure
		_ = r.ParseAll()
	}
	return r, nil
}

// expect reads the next record and fails with missing if it is not want.
func expect(s *core.Scanner, want core.RecordType, missing error) (core.Record, []byte, error) {
	rec, err := s.ReadHeader()
	if err != nil {
		return rec, nil, err
	}
	if rec.Type != want {
		return rec, nil, &core.ParseError{
			Op:     "read " + want.String(),
			Offset: rec.Offset,
			Record: rec.Type,
			Err:    missing,
		}
	}
	payload, err := s.Payload(rec)
	if err != nil {
		return rec, nil, err
	}
	return rec, payload, nil
}

// readPreamble reads HEADER, BGNLIB, LIBNAME and then searches for UNITS
// ahead of the first structure.
func (r *Reader) readPreamble(s *core.Scanner) error {
	rec, payload, err := expect(s, core.RecHeader, ErrMissingHeader)
	if err != nil {
		return err
	}
	if r.lib.Version, err = core.Uint16(payload); err != nil {
		return core.Wrap("read HEADER", rec, err)
	}

	rec, payload, err = expect(s, core.RecBgnLib, ErrMissingBgnlib)
	if err != nil {
		return err
	}
	created, modified, err := core.Timestamps(payload)
	if err != nil {
		return core.Wrap("read BGNLIB", rec, err)
	}
	r.lib.Created = model.NewTimestamp(created)
	r.lib.Modified = model.NewTimestamp(modified)

	_, payload, err = expect(s, core.RecLibName, ErrMissingLibname)
	if err != nil {
		return err
	}
	r.lib.Name = core.String(payload)

	return r.readUnits(s)
}

func (r *Reader) readUnits(s *core.Scanner) error {
	for {
		if s.AtEnd() {
			return &core.ParseError{Op: "read UNITS", Offset: s.Offset(), Err: ErrMissingUnits}
		}
		rec, err := s.ReadHeader()
		if err != nil {
			return err
		}

		switch rec.Type {
		case core.RecUnits:
			if rec.Length != 16 {
				return &core.ParseError{
					Op:     "read UNITS",
					Offset: rec.Offset,
					Record: rec.Type,
					Err:    fmt.Errorf("%d bytes: %w", rec.Length, ErrMalformedUnits),
				}
			}
			payload, err := s.Payload(rec)
			if err != nil {
				return err
			}
			user := core.DecodeReal8(payload[0:8])
			meters := core.DecodeReal8(payload[8:16])
			if !positive(user) || !positive(meters) {
				return &core.ParseError{
					Op:     "read UNITS",
					Offset: rec.Offset,
					Record: rec.Type,
					Err:    fmt.Errorf("units %g, %g must be positive: %w", user, meters, core.ErrInvalidNumericField),
				}
			}
			r.lib.UserUnitsPerDBUnit = user
			r.lib.MetersPerDBUnit = meters
			return nil

		case core.RecBgnStr, core.RecEndLib:
			return &core.ParseError{Op: "read UNITS", Offset: rec.Offset, Record: rec.Type, Err: ErrMissingUnits}

		default:
			// REFLIBS, FONTS, GENERATIONS and similar library records
			if err := s.Skip(rec); err != nil {
				return err
			}
		}
	}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// indexStructures records the name and offset of every BGNSTR up to ENDLIB
// or the end of the buffer. Element records are skipped, not decoded.
// A record inside a structure that runs past the buffer ends the scan; the
// structure stays indexed and reports ErrTruncated when parsed.
func (r *Reader) indexStructures(s *core.Scanner) error {
	inside := false
	for !s.AtEnd() {
		rec, err := s.ReadHeader()
		if err != nil {
			if inside && errors.Is(err, core.ErrTruncated) {
				r.truncatedAt(rec)
				return nil
			}
			return err
		}

		switch rec.Type {
		case core.RecEndLib:
			return nil

		case core.RecBgnStr:
			st, err := readStructureHeader(s, rec)
			if err != nil {
				return err
			}
			if _, dup := r.byName[st.Name]; !dup {
				r.byName[st.Name] = len(r.structures)
			} else {
				r.logger.Warn("duplicate structure name",
					zap.String("structure", st.Name),
					zap.Int("offset", st.offset))
			}
			r.structures = append(r.structures, st)
			inside = true

		default:
			if rec.Type == core.RecEndStr {
				inside = false
			}
			if err := s.Skip(rec); err != nil {
				if inside && errors.Is(err, core.ErrTruncated) {
					r.truncatedAt(rec)
					return nil
				}
				return err
			}
		}
	}
	return nil
}

func (r *Reader) truncatedAt(rec core.Record) {
	last := r.structures[len(r.structures)-1]
	r.logger.Warn("structure truncated by end of buffer",
		zap.String("structure", last.Name),
		zap.Stringer("record", rec.Type),
		zap.Int("offset", rec.Offset))
}

// readStructureHeader decodes a BGNSTR payload and the STRNAME that must
// follow it. The scanner is left after STRNAME.
func readStructureHeader(s *core.Scanner, bgn core.Record) (*structure, error) {
	payload, err := s.Payload(bgn)
	if err != nil {
		return nil, err
	}
	created, modified, err := core.Timestamps(payload)
	if err != nil {
		return nil, core.Wrap("read BGNSTR", bgn, err)
	}

	_, name, err := expect(s, core.RecStrName, ErrMissingStrname)
	if err != nil {
		return nil, err
	}

	return &structure{
		Structure: model.Structure{
			Name:     core.String(name),
			Created:  model.NewTimestamp(created),
			Modified: model.NewTimestamp(modified),
		},
		offset: bgn.Offset,
	}, nil
}

// Library returns the library preamble
func (r *Reader) Library() model.Library {
	return r.lib
}

// Size returns the size of the underlying buffer in bytes
func (r *Reader) Size() int {
	return len(r.buf)
}

// StructureCount returns the number of indexed structures
func (r *Reader) StructureCount() int {
	return len(r.structures)
}

// StructureIndex returns the index of the first structure called name
func (r *Reader) StructureIndex(name string) (int, error) {
	i, ok := r.byName[name]
	if !ok {
		return -1, fmt.Errorf("%q: %w", name, ErrStructureNotFound)
	}
	return i, nil
}

// ParseAll parses every structure that is not already parsed. Every failure
// is returned, joined; failed structures do not stop the others.
func (r *Reader) ParseAll() error {
	var errs []error
	for i, st := range r.structures {
		if err := r.EnsureParsed(i); err != nil {
			errs = append(errs, fmt.Errorf("structure %q: %w", st.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Validate checks the structure index against the buffer: every offset
// must lie inside it and start a BGNSTR record.
func (r *Reader) Validate() error {
	var errs []error
	for i, st := range r.structures {
		if st.offset < 0 || st.offset >= len(r.buf) {
			errs = append(errs, fmt.Errorf("structure %d %q: offset %d: %w", i, st.Name, st.offset, core.ErrOutOfRange))
			continue
		}
		s := core.NewScanner(r.buf)
		if err := s.Seek(st.offset); err != nil {
			errs = append(errs, fmt.Errorf("structure %d %q: %w", i, st.Name, err))
			continue
		}
		rec, err := s.ReadHeader()
		if err != nil {
			errs = append(errs, fmt.Errorf("structure %d %q: %w", i, st.Name, err))
			continue
		}
		if rec.Type != core.RecBgnStr {
			errs = append(errs, fmt.Errorf("structure %d %q: record at offset %d is %s: %w",
				i, st.Name, st.offset, rec.Type, core.ErrUnexpectedRecordType))
		}
	}
	return errors.Join(errs...)
}
