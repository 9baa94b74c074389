package model

import "math"

// ElementKind identifies the variant of an element
type ElementKind int

const (
	KindBoundary ElementKind = iota
	KindPath
	KindBox
	KindNode
	KindText
	KindSRef
	KindARef
)

func (k ElementKind) String() string {
	switch k {
	case KindBoundary:
		return "Boundary"
	case KindPath:
		return "Path"
	case KindBox:
		return "Box"
	case KindNode:
		return "Node"
	case KindText:
		return "Text"
	case KindSRef:
		return "SRef"
	case KindARef:
		return "ARef"
	default:
		return "Unknown"
	}
}

// Element is implemented by the seven element variants:
// *Boundary, *Path, *Box, *Node, *Text, *SRef and *ARef.
type Element interface {
	Kind() ElementKind
	Base() *Common
	BoundingBox() BBox
}

// Shape is an element carrying polygon geometry
type Shape interface {
	Element
	Geometry() []Polygon
}

// Reference is an element instancing another structure
type Reference interface {
	Element
	Target() string
	Placement() Transform
}

// Common holds the fields every element kind shares
type Common struct {
	Layer      uint16
	Datatype   uint16
	ElFlags    uint16
	Plex       int32
	Bounds     BBox
	Properties []Property
}

// Base returns the shared fields
func (c *Common) Base() *Common { return c }

// BoundingBox returns the element's axis-aligned bounds
func (c *Common) BoundingBox() BBox { return c.Bounds }

// Property is an attribute/value pair attached to an element
type Property struct {
	Attribute uint16
	Value     string
}

// Polygon is an ordered vertex list in database units
type Polygon struct {
	Vertices []Point
}

// Len returns the number of vertices
func (p Polygon) Len() int { return len(p.Vertices) }

// Flat returns the vertices as [x0, y0, x1, y1, ...]
func (p Polygon) Flat() []float64 {
	out := make([]float64, 0, 2*len(p.Vertices))
	for _, v := range p.Vertices {
		out = append(out, v.X, v.Y)
	}
	return out
}

// Bounds returns the bounding box of the vertices
func (p Polygon) Bounds() BBox { return BBoxOf(p.Vertices...) }

// Boundary is a filled polygon
type Boundary struct {
	Common
	Polygons []Polygon
}

func (b *Boundary) Kind() ElementKind   { return KindBoundary }
func (b *Boundary) Geometry() []Polygon { return b.Polygons }

// Path is a polyline with a width
type Path struct {
	Common
	Polygons       []Polygon
	PathType       uint16
	Width          float32
	BeginExtension float32
	EndExtension   float32
}

func (p *Path) Kind() ElementKind   { return KindPath }
func (p *Path) Geometry() []Polygon { return p.Polygons }

// Box is a rectangle stored as a closed five-point outline
type Box struct {
	Common
	Polygons []Polygon
	BoxType  uint16
}

func (b *Box) Kind() ElementKind   { return KindBox }
func (b *Box) Geometry() []Polygon { return b.Polygons }

// Node is an electrical net marker
type Node struct {
	Common
	Polygons []Polygon
	NodeType uint16
}

func (n *Node) Kind() ElementKind   { return KindNode }
func (n *Node) Geometry() []Polygon { return n.Polygons }

// Text is a text label anchored at a point
type Text struct {
	Common
	Text         string
	Position     Point
	TextType     uint16
	Presentation uint16
	Transform    Transform
}

func (t *Text) Kind() ElementKind { return KindText }

// SRef places a single instance of another structure
type SRef struct {
	Common
	ReferencedName string
	Position       Point
	Transform      Transform
}

func (s *SRef) Kind() ElementKind    { return KindSRef }
func (s *SRef) Target() string       { return s.ReferencedName }
func (s *SRef) Placement() Transform { return s.Transform }

// ARef places a Columns x Rows array of another structure. ColumnVector is
// the point displaced from Origin by Columns column pitches, RowVector the
// point displaced by Rows row pitches.
type ARef struct {
	Common
	ReferencedName string
	Origin         Point
	ColumnVector   Point
	RowVector      Point
	Columns        uint16
	Rows           uint16
	Transform      Transform
}

func (a *ARef) Kind() ElementKind    { return KindARef }
func (a *ARef) Target() string       { return a.ReferencedName }
func (a *ARef) Placement() Transform { return a.Transform }

// ColumnPitch returns the displacement between adjacent columns
func (a *ARef) ColumnPitch() Point {
	return a.ColumnVector.Sub(a.Origin).Div(float64(a.Columns))
}

// RowPitch returns the displacement between adjacent rows
func (a *ARef) RowPitch() Point {
	return a.RowVector.Sub(a.Origin).Div(float64(a.Rows))
}

// Instances returns the number of placed copies
func (a *ARef) Instances() int {
	return int(a.Columns) * int(a.Rows)
}

// STRANS flag bits
const (
	STransReflect     uint16 = 0x8000
	STransAbsoluteMag uint16 = 0x0004
	STransAbsoluteAng uint16 = 0x0002
)

// Transform is the STRANS/MAG/ANGLE group of a reference or text element.
// Angle is in degrees, counterclockwise.
type Transform struct {
	Flags         uint16
	Magnification float64
	Angle         float64
}

// DefaultTransform returns the transform implied when STRANS is absent
func DefaultTransform() Transform {
	return Transform{Magnification: 1}
}

// Reflected reports whether the instance is mirrored about the x-axis
// before rotation
func (t Transform) Reflected() bool { return t.Flags&STransReflect != 0 }

// AbsoluteMagnification reports whether magnification ignores the parent
func (t Transform) AbsoluteMagnification() bool { return t.Flags&STransAbsoluteMag != 0 }

// AbsoluteAngle reports whether rotation ignores the parent
func (t Transform) AbsoluteAngle() bool { return t.Flags&STransAbsoluteAng != 0 }

// Matrix returns the local placement transform: reflect, magnify, rotate,
// then translate to origin.
func (t Transform) Matrix(origin Point) Matrix {
	m := Identity()
	if t.Reflected() {
		m = m.Multiply(Scale(1, -1))
	}
	mag := t.Magnification
	if mag == 0 {
		mag = 1
	}
	m = m.Multiply(Scale(mag, mag))
	if t.Angle != 0 {
		m = m.Multiply(Rotate(t.Angle * math.Pi / 180))
	}
	return m.Multiply(Translate(origin.X, origin.Y))
}
