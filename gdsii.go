// Package gdsii reads GDSII layout libraries from memory.
//
// Basic usage:
//
//	h, err := gdsii.Open(data)
//	if err != nil {
//	    // handle error
//	}
//	defer h.Close()
//
//	name, _ := h.LibraryName()
//	n, _ := h.StructureCount()
//	for i := 0; i < n; i++ {
//	    count, err := h.ElementCount(i) // parses structure i on first use
//	    ...
//	}
//
// With options:
//
//	h, err := gdsii.Open(data,
//	    gdsii.Logger(logger),
//	    gdsii.Compressed(1<<30),
//	)
//
// Every index is checked against [0, count); a bad index returns an error
// matching core.ErrIndexOutOfRange. For lower-level access use Reader.
package gdsii

import (
	"errors"
	"fmt"

	"github.com/tsawler/gdsii/core"
	"github.com/tsawler/gdsii/format"
	"github.com/tsawler/gdsii/model"
	"github.com/tsawler/gdsii/reader"
)

var (
	// ErrClosed is returned by every method of a closed Handle.
	ErrClosed = errors.New("gdsii: handle is closed")

	// ErrCompressedInput is returned when compressed input is given without
	// the Compressed option.
	ErrCompressedInput = errors.New("gdsii: input is compressed")
)

// Handle is an open library. It owns the decoded data; the caller's buffer
// must stay unmodified until Close. A Handle is not safe for concurrent use.
type Handle struct {
	r      *reader.Reader
	source format.Format
}

// Open reads the library preamble and structure index of buffer. Elements
// are decoded lazily by later queries.
func Open(buffer []byte, opts ...Option) (*Handle, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	data := buffer
	source := format.DetectFromMagic(buffer)
	if source.Compressed() {
		if !o.allowCompressed {
			return nil, fmt.Errorf("%s: %w", source, ErrCompressedInput)
		}
		var err error
		data, _, err = format.Decompress(buffer, o.maxDecompressedSize)
		if err != nil {
			return nil, fmt.Errorf("decompressing input: %w", err)
		}
	}

	r, err := reader.New(data,
		reader.WithLogger(o.logger),
		reader.WithEagerParse(o.eager))
	if err != nil {
		return nil, err
	}
	return &Handle{r: r, source: source}, nil
}

// Must is a helper that wraps a call to a function returning (T, error)
// and panics if the error is non-nil. It is intended for use in scripts
// or tests where error handling would be cumbersome.
//
// Example:
//
//	n := gdsii.Must(h.StructureCount())
func Must[T any](val T, err error) T {
	if err != nil {
		panic(err)
	}
	return val
}

// Close releases the decoded library. Closing twice returns ErrClosed.
func (h *Handle) Close() error {
	if h.r == nil {
		return ErrClosed
	}
	h.r = nil
	return nil
}

func (h *Handle) lib() (*reader.Reader, error) {
	if h == nil || h.r == nil {
		return nil, ErrClosed
	}
	return h.r, nil
}

// Reader returns the underlying reader, or nil after Close
func (h *Handle) Reader() *reader.Reader {
	return h.r
}

// Source returns the detected input format: GDSII, or the compression
// that was removed.
func (h *Handle) Source() format.Format {
	return h.source
}

// LibraryName returns the LIBNAME of the library
func (h *Handle) LibraryName() (string, error) {
	r, err := h.lib()
	if err != nil {
		return "", err
	}
	return r.Library().Name, nil
}

// UserUnits returns the size of a database unit in user units
func (h *Handle) UserUnits() (float64, error) {
	r, err := h.lib()
	if err != nil {
		return 0, err
	}
	return r.Library().UserUnitsPerDBUnit, nil
}

// MetersPerUnit returns the size of a database unit in meters
func (h *Handle) MetersPerUnit() (float64, error) {
	r, err := h.lib()
	if err != nil {
		return 0, err
	}
	return r.Library().MetersPerDBUnit, nil
}

// Library returns the library preamble
func (h *Handle) Library() (model.Library, error) {
	r, err := h.lib()
	if err != nil {
		return model.Library{}, err
	}
	return r.Library(), nil
}

// StructureCount returns the number of structures
func (h *Handle) StructureCount() (int, error) {
	r, err := h.lib()
	if err != nil {
		return 0, err
	}
	return r.StructureCount(), nil
}

// StructureName returns the name of structure i
func (h *Handle) StructureName(i int) (string, error) {
	r, err := h.lib()
	if err != nil {
		return "", err
	}
	return r.StructureName(i)
}

// ElementCount returns the number of elements in structure i, parsing it
// on first use
func (h *Handle) ElementCount(i int) (int, error) {
	r, err := h.lib()
	if err != nil {
		return 0, err
	}
	return r.ElementCount(i)
}

// ElementView is a flat description of one element. Element holds the
// full typed variant.
type ElementView struct {
	Kind          model.ElementKind
	Layer         uint16
	Datatype      uint16
	ElFlags       uint16
	Plex          int32
	Bounds        model.BBox
	PolygonCount  int
	PropertyCount int
	Element       model.Element
}

// Element returns a view of element j of structure i
func (h *Handle) Element(i, j int) (ElementView, error) {
	r, err := h.lib()
	if err != nil {
		return ElementView{}, err
	}
	e, err := r.Element(i, j)
	if err != nil {
		return ElementView{}, err
	}
	base := e.Base()
	view := ElementView{
		Kind:          e.Kind(),
		Layer:         base.Layer,
		Datatype:      base.Datatype,
		ElFlags:       base.ElFlags,
		Plex:          base.Plex,
		Bounds:        base.Bounds,
		PropertyCount: len(base.Properties),
		Element:       e,
	}
	if s, ok := e.(model.Shape); ok {
		view.PolygonCount = len(s.Geometry())
	}
	return view, nil
}

// PolygonVertices returns polygon k of element j in structure i as
// [x0, y0, x1, y1, ...]. Text and reference elements have no polygons.
func (h *Handle) PolygonVertices(i, j, k int) ([]float64, error) {
	r, err := h.lib()
	if err != nil {
		return nil, err
	}
	e, err := r.Element(i, j)
	if err != nil {
		return nil, err
	}
	var polys []model.Polygon
	if s, ok := e.(model.Shape); ok {
		polys = s.Geometry()
	}
	if k < 0 || k >= len(polys) {
		return nil, fmt.Errorf("polygon index %d outside [0, %d): %w", k, len(polys), core.ErrIndexOutOfRange)
	}
	return polys[k].Flat(), nil
}

// Property returns property k of element j in structure i
func (h *Handle) Property(i, j, k int) (model.Property, error) {
	r, err := h.lib()
	if err != nil {
		return model.Property{}, err
	}
	e, err := r.Element(i, j)
	if err != nil {
		return model.Property{}, err
	}
	props := e.Base().Properties
	if k < 0 || k >= len(props) {
		return model.Property{}, fmt.Errorf("property index %d outside [0, %d): %w", k, len(props), core.ErrIndexOutOfRange)
	}
	return props[k], nil
}
