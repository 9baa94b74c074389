package reader

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tsawler/gdsii/core"
	"github.com/tsawler/gdsii/model"
)

// ParseState is the lazy-parse state of a structure
type ParseState int

const (
	Unparsed ParseState = iota
	Parsed
	Failed
)

func (s ParseState) String() string {
	switch s {
	case Unparsed:
		return "unparsed"
	case Parsed:
		return "parsed"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// structure is one cached structure. Elements is filled once, on the
// first successful parse.
type structure struct {
	model.Structure
	offset  int
	state   ParseState
	err     error
	skipped int // sub-records skipped by the successful parse
}

// StructureInfo describes a structure without parsing its elements
type StructureInfo struct {
	Name     string
	Created  model.Timestamp
	Modified model.Timestamp
	Offset   int // offset of the BGNSTR record
	State    ParseState
	Err      error // last parse error, set when State is Failed
}

func (r *Reader) structure(i int) (*structure, error) {
	if i < 0 || i >= len(r.structures) {
		return nil, indexError("structure", i, len(r.structures))
	}
	return r.structures[i], nil
}

// Structure returns the index entry of structure i
func (r *Reader) Structure(i int) (StructureInfo, error) {
	st, err := r.structure(i)
	if err != nil {
		return StructureInfo{}, err
	}
	return StructureInfo{
		Name:     st.Name,
		Created:  st.Created,
		Modified: st.Modified,
		Offset:   st.offset,
		State:    st.state,
		Err:      st.err,
	}, nil
}

// StructureName returns the name of structure i
func (r *Reader) StructureName(i int) (string, error) {
	st, err := r.structure(i)
	if err != nil {
		return "", err
	}
	return st.Name, nil
}

// EnsureParsed decodes the elements of structure i unless that has already
// succeeded. A failure marks the structure Failed; the next call retries.
func (r *Reader) EnsureParsed(i int) error {
	st, err := r.structure(i)
	if err != nil {
		return err
	}
	if st.state == Parsed {
		return nil
	}

	before := r.decoder.Skipped()
	elems, err := r.parseStructure(st)
	if err != nil {
		st.state = Failed
		st.err = err
		st.Elements = nil
		st.skipped = 0
		r.logger.Warn("structure parse failed",
			zap.String("structure", st.Name),
			zap.Int("index", i),
			zap.Error(err))
		return err
	}

	st.Elements = elems
	st.state = Parsed
	st.err = nil
	st.skipped = r.decoder.Skipped() - before
	r.logger.Debug("structure parsed",
		zap.String("structure", st.Name),
		zap.Int("index", i),
		zap.Int("elements", len(elems)))
	return nil
}

// parseStructure counts the elements of st to size storage, then decodes
// them in order.
func (r *Reader) parseStructure(st *structure) ([]model.Element, error) {
	s := core.NewScanner(r.buf)

	n, err := countElements(s, st.offset)
	if err != nil {
		return nil, err
	}

	if err := s.Seek(st.offset); err != nil {
		return nil, err
	}
	bgn, err := s.ReadHeader()
	if err != nil {
		return nil, err
	}
	if err := s.Skip(bgn); err != nil {
		return nil, err
	}

	elems := make([]model.Element, 0, n)
	for {
		rec, err := s.ReadHeader()
		if err != nil {
			return nil, err
		}
		switch {
		case rec.Type == core.RecEndStr:
			return elems, nil
		case rec.Type.IsElementStart():
			elem, err := r.decoder.Decode(s, rec)
			if err != nil {
				return nil, err
			}
			elems = append(elems, elem)
		case rec.Type == core.RecBgnStr || rec.Type == core.RecEndLib:
			return nil, unterminated(rec)
		default:
			// STRNAME, STRCLASS
			if err := s.Skip(rec); err != nil {
				return nil, err
			}
		}
	}
}

// countElements scans from the BGNSTR at offset to its ENDSTR, counting
// element-opening records.
func countElements(s *core.Scanner, offset int) (int, error) {
	if err := s.Seek(offset); err != nil {
		return 0, err
	}
	bgn, err := s.ReadHeader()
	if err != nil {
		return 0, err
	}
	if bgn.Type != core.RecBgnStr {
		return 0, &core.ParseError{Op: "count elements", Offset: bgn.Offset, Record: bgn.Type, Err: core.ErrUnexpectedRecordType}
	}
	if err := s.Skip(bgn); err != nil {
		return 0, err
	}

	n := 0
	for {
		rec, err := s.ReadHeader()
		if err != nil {
			return 0, err
		}
		switch {
		case rec.Type == core.RecEndStr:
			return n, nil
		case rec.Type == core.RecBgnStr || rec.Type == core.RecEndLib:
			return 0, unterminated(rec)
		case rec.Type.IsElementStart():
			n++
		}
		if err := s.Skip(rec); err != nil {
			return 0, err
		}
	}
}

func unterminated(rec core.Record) error {
	return &core.ParseError{
		Op:     "parse structure",
		Offset: rec.Offset,
		Record: rec.Type,
		Err:    fmt.Errorf("structure not terminated by ENDSTR: %w", core.ErrUnexpectedRecordType),
	}
}

func (r *Reader) parsed(i int) (*structure, error) {
	if err := r.EnsureParsed(i); err != nil {
		return nil, err
	}
	return r.structures[i], nil
}

// ParsedStructure parses structure i if needed and returns it. The result
// is owned by the Reader and must not be modified.
func (r *Reader) ParsedStructure(i int) (*model.Structure, error) {
	st, err := r.parsed(i)
	if err != nil {
		return nil, err
	}
	return &st.Structure, nil
}

// ElementCount returns the number of elements in structure i
func (r *Reader) ElementCount(i int) (int, error) {
	st, err := r.parsed(i)
	if err != nil {
		return 0, err
	}
	return len(st.Elements), nil
}

// Element returns element j of structure i
func (r *Reader) Element(i, j int) (model.Element, error) {
	st, err := r.parsed(i)
	if err != nil {
		return nil, err
	}
	if j < 0 || j >= len(st.Elements) {
		return nil, indexError("element", j, len(st.Elements))
	}
	return st.Elements[j], nil
}

// Elements returns all elements of structure i. The slice is owned by the
// Reader.
func (r *Reader) Elements(i int) ([]model.Element, error) {
	st, err := r.parsed(i)
	if err != nil {
		return nil, err
	}
	return st.Elements, nil
}

// ReferenceCount returns the number of SREF and AREF elements in
// structure i
func (r *Reader) ReferenceCount(i int) (int, error) {
	st, err := r.parsed(i)
	if err != nil {
		return 0, err
	}
	return st.ReferenceCount(), nil
}

// StructureBounds returns the union of the element bounds of structure i.
// ok is false when the structure has no elements. References contribute
// only their anchor points.
func (r *Reader) StructureBounds(i int) (b model.BBox, ok bool, err error) {
	st, err := r.parsed(i)
	if err != nil {
		return model.BBox{}, false, err
	}
	b, ok = st.Bounds()
	return b, ok, nil
}

// State returns the parse state of structure i without parsing it
func (r *Reader) State(i int) (ParseState, error) {
	st, err := r.structure(i)
	if err != nil {
		return Unparsed, err
	}
	return st.state, nil
}
