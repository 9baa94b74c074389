package element

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/tsawler/gdsii/core"
	"github.com/tsawler/gdsii/model"
)

// KindOf maps an element-opening record type to its element kind
func KindOf(t core.RecordType) (model.ElementKind, bool) {
	switch t {
	case core.RecBoundary:
		return model.KindBoundary, true
	case core.RecPath:
		return model.KindPath, true
	case core.RecBox:
		return model.KindBox, true
	case core.RecNode:
		return model.KindNode, true
	case core.RecText:
		return model.KindText, true
	case core.RecSRef:
		return model.KindSRef, true
	case core.RecARef:
		return model.KindARef, true
	}
	return 0, false
}

// Decoder turns element record spans into model elements.
// A Decoder is not safe for concurrent use.
type Decoder struct {
	logger  *zap.Logger
	skipped int
}

// NewDecoder creates a decoder. A nil logger disables logging.
func NewDecoder(logger *zap.Logger) *Decoder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Decoder{logger: logger}
}

// Skipped returns the number of sub-records skipped so far
func (d *Decoder) Skipped() int {
	return d.skipped
}

// Decode reads one element. open is the element-opening record whose
// header was just read from s; on success s is positioned after ENDEL.
func (d *Decoder) Decode(s *core.Scanner, open core.Record) (model.Element, error) {
	kind, ok := KindOf(open.Type)
	if !ok {
		return nil, &core.ParseError{
			Op:     "decode element",
			Offset: open.Offset,
			Record: open.Type,
			Err:    core.ErrUnexpectedRecordType,
		}
	}
	if err := s.Skip(open); err != nil {
		return nil, err
	}

	b := newBuilder(kind)
	op := "decode " + kind.String()

	for {
		rec, err := s.ReadHeader()
		if err != nil {
			return nil, core.Wrap(op, open, err)
		}

		if rec.Type == core.RecEndEl {
			if err := s.Skip(rec); err != nil {
				return nil, err
			}
			if b.pendingAttr {
				return nil, &core.ParseError{
					Op:     op,
					Offset: rec.Offset,
					Record: rec.Type,
					Err:    fmt.Errorf("PROPATTR without PROPVALUE: %w", core.ErrUnexpectedRecordType),
				}
			}
			if !b.hasXY {
				return nil, &core.ParseError{
					Op:     op,
					Offset: open.Offset,
					Record: open.Type,
					Err:    fmt.Errorf("%s has no XY record: %w", kind, core.ErrUnexpectedRecordType),
				}
			}
			return b.build(), nil
		}

		if isStructural(rec.Type) {
			return nil, &core.ParseError{
				Op:     op,
				Offset: rec.Offset,
				Record: rec.Type,
				Err:    fmt.Errorf("element opened at offset %d not terminated by ENDEL: %w", open.Offset, core.ErrUnexpectedRecordType),
			}
		}

		if b.pendingAttr && rec.Type != core.RecPropValue {
			return nil, &core.ParseError{
				Op:     op,
				Offset: rec.Offset,
				Record: rec.Type,
				Err:    fmt.Errorf("PROPATTR followed by %s: %w", rec.Type, core.ErrUnexpectedRecordType),
			}
		}

		if !b.accepts(rec.Type) {
			d.skipped++
			d.logger.Debug("skipping element sub-record",
				zap.Stringer("record", rec.Type),
				zap.Stringer("element", kind),
				zap.Int("offset", rec.Offset),
				zap.Int("length", rec.Length))
			if err := s.Skip(rec); err != nil {
				return nil, err
			}
			continue
		}

		payload, err := s.Payload(rec)
		if err != nil {
			return nil, err
		}
		if err := b.apply(rec.Type, payload); err != nil {
			return nil, core.Wrap(op, rec, err)
		}
	}
}

func isStructural(t core.RecordType) bool {
	switch t {
	case core.RecBgnStr, core.RecEndStr, core.RecEndLib, core.RecBgnLib, core.RecHeader:
		return true
	}
	return t.IsElementStart()
}

// builder accumulates sub-record fields until ENDEL
type builder struct {
	kind   model.ElementKind
	common model.Common

	polygons []model.Polygon
	points   []model.Point
	hasXY    bool

	pathType     uint16
	width        float32
	beginExt     float32
	endExt       float32
	text         string
	textType     uint16
	presentation uint16
	boxType      uint16
	nodeType     uint16
	sname        string
	columns      uint16
	rows         uint16
	transform    model.Transform

	pendingAttr bool
	attr        uint16
}

func newBuilder(kind model.ElementKind) *builder {
	return &builder{kind: kind, transform: model.DefaultTransform()}
}

func (b *builder) isShape() bool {
	switch b.kind {
	case model.KindBoundary, model.KindPath, model.KindBox, model.KindNode:
		return true
	}
	return false
}

func (b *builder) isReference() bool {
	return b.kind == model.KindSRef || b.kind == model.KindARef
}

// accepts reports whether the sub-record applies to this element kind
func (b *builder) accepts(t core.RecordType) bool {
	switch t {
	case core.RecLayer, core.RecDatatype, core.RecElFlags, core.RecPlex,
		core.RecXY, core.RecPropAttr, core.RecPropValue:
		return true
	case core.RecWidth, core.RecPathType, core.RecBgnExtn, core.RecEndExtn:
		return b.kind == model.KindPath || (t == core.RecWidth && b.kind == model.KindText)
	case core.RecString, core.RecPresentation, core.RecTextType:
		return b.kind == model.KindText
	case core.RecSName:
		return b.isReference()
	case core.RecColRow:
		return b.kind == model.KindARef
	case core.RecSTrans, core.RecMag, core.RecAngle:
		return b.isReference() || b.kind == model.KindText
	case core.RecBoxType:
		return b.kind == model.KindBox
	case core.RecNodeType:
		return b.kind == model.KindNode
	}
	return false
}

func (b *builder) apply(t core.RecordType, payload []byte) error {
	var err error
	switch t {
	case core.RecLayer:
		b.common.Layer, err = core.Uint16(payload)
	case core.RecDatatype:
		b.common.Datatype, err = core.Uint16(payload)
	case core.RecElFlags:
		b.common.ElFlags, err = core.Uint16(payload)
	case core.RecPlex:
		b.common.Plex, err = core.Int32(payload)
	case core.RecXY:
		err = b.applyXY(payload)
	case core.RecWidth:
		var w int32
		w, err = core.Int32(payload)
		b.width = float32(w)
	case core.RecPathType:
		b.pathType, err = core.Uint16(payload)
	case core.RecBgnExtn:
		var v int32
		v, err = core.Int32(payload)
		b.beginExt = float32(v)
	case core.RecEndExtn:
		var v int32
		v, err = core.Int32(payload)
		b.endExt = float32(v)
	case core.RecString:
		b.text = core.String(payload)
	case core.RecTextType:
		b.textType, err = core.Uint16(payload)
	case core.RecPresentation:
		b.presentation, err = core.Uint16(payload)
	case core.RecSName:
		b.sname = core.String(payload)
	case core.RecColRow:
		var cr []uint16
		cr, err = core.Uint16s(payload, 2)
		if err == nil {
			b.columns, b.rows = cr[0], cr[1]
		}
	case core.RecSTrans:
		b.transform.Flags, err = core.Uint16(payload)
	case core.RecMag:
		b.transform.Magnification, err = core.Real8(payload)
		if err == nil && (b.transform.Magnification <= 0 || math.IsInf(b.transform.Magnification, 0)) {
			err = fmt.Errorf("magnification %v: %w", b.transform.Magnification, core.ErrInvalidNumericField)
		}
	case core.RecAngle:
		b.transform.Angle, err = core.Real8(payload)
	case core.RecBoxType:
		b.boxType, err = core.Uint16(payload)
	case core.RecNodeType:
		b.nodeType, err = core.Uint16(payload)
	case core.RecPropAttr:
		b.attr, err = core.Uint16(payload)
		b.pendingAttr = err == nil
	case core.RecPropValue:
		if !b.pendingAttr {
			return fmt.Errorf("PROPVALUE without PROPATTR: %w", core.ErrUnexpectedRecordType)
		}
		b.common.Properties = append(b.common.Properties, model.Property{
			Attribute: b.attr,
			Value:     core.String(payload),
		})
		b.pendingAttr = false
	}
	return err
}

func (b *builder) applyXY(payload []byte) error {
	n, err := core.VertexCount(payload)
	if err != nil {
		return err
	}

	if !b.isShape() {
		if b.hasXY {
			return fmt.Errorf("second XY record in %s: %w", b.kind, core.ErrUnexpectedRecordType)
		}
		want := 1
		if b.kind == model.KindARef {
			want = 3
		}
		if n != want {
			return fmt.Errorf("%s expects %d points, got %d: %w", b.kind, want, n, core.ErrMalformedLength)
		}
	}

	pts := make([]model.Point, n)
	for i := range pts {
		x, y := core.Vertex(payload, i)
		pts[i] = model.Point{X: float64(x), Y: float64(y)}
	}

	bounds := model.BBoxOf(pts...)
	if b.hasXY {
		b.common.Bounds = b.common.Bounds.Union(bounds)
	} else {
		b.common.Bounds = bounds
	}
	b.hasXY = true

	if b.isShape() {
		b.polygons = append(b.polygons, model.Polygon{Vertices: pts})
	} else {
		b.points = pts
	}
	return nil
}

func (b *builder) point(i int) model.Point {
	if i < len(b.points) {
		return b.points[i]
	}
	return model.Point{}
}

func (b *builder) build() model.Element {
	switch b.kind {
	case model.KindBoundary:
		return &model.Boundary{Common: b.common, Polygons: b.polygons}
	case model.KindPath:
		return &model.Path{
			Common:         b.common,
			Polygons:       b.polygons,
			PathType:       b.pathType,
			Width:          b.width,
			BeginExtension: b.beginExt,
			EndExtension:   b.endExt,
		}
	case model.KindBox:
		return &model.Box{Common: b.common, Polygons: b.polygons, BoxType: b.boxType}
	case model.KindNode:
		return &model.Node{Common: b.common, Polygons: b.polygons, NodeType: b.nodeType}
	case model.KindText:
		return &model.Text{
			Common:       b.common,
			Text:         b.text,
			Position:     b.point(0),
			TextType:     b.textType,
			Presentation: b.presentation,
			Transform:    b.transform,
		}
	case model.KindSRef:
		return &model.SRef{
			Common:         b.common,
			ReferencedName: b.sname,
			Position:       b.point(0),
			Transform:      b.transform,
		}
	default:
		return &model.ARef{
			Common:         b.common,
			ReferencedName: b.sname,
			Origin:         b.point(0),
			ColumnVector:   b.point(1),
			RowVector:      b.point(2),
			Columns:        b.columns,
			Rows:           b.rows,
			Transform:      b.transform,
		}
	}
}
