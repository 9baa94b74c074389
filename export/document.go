package export

import (
	"fmt"
	"time"

	"github.com/tsawler/gdsii/model"
	"github.com/tsawler/gdsii/reader"
)

// Library is a library prepared for export
type Library struct {
	Name          string      `json:"name" yaml:"name" msgpack:"name"`
	Version       uint16      `json:"version" yaml:"version" msgpack:"version"`
	Created       string      `json:"created,omitempty" yaml:"created,omitempty" msgpack:"created,omitempty"`
	Modified      string      `json:"modified,omitempty" yaml:"modified,omitempty" msgpack:"modified,omitempty"`
	UserUnits     float64     `json:"user_units_per_db_unit" yaml:"user_units_per_db_unit" msgpack:"user_units_per_db_unit"`
	MetersPerUnit float64     `json:"meters_per_db_unit" yaml:"meters_per_db_unit" msgpack:"meters_per_db_unit"`
	Fingerprint   string      `json:"fingerprint" yaml:"fingerprint" msgpack:"fingerprint"`
	Size          int         `json:"size" yaml:"size" msgpack:"size"`
	Structures    []Structure `json:"structures" yaml:"structures" msgpack:"structures"`
}

// Structure is a structure prepared for export
type Structure struct {
	Name         string         `json:"name" yaml:"name" msgpack:"name"`
	Created      string         `json:"created,omitempty" yaml:"created,omitempty" msgpack:"created,omitempty"`
	Modified     string         `json:"modified,omitempty" yaml:"modified,omitempty" msgpack:"modified,omitempty"`
	State        string         `json:"state" yaml:"state" msgpack:"state"`
	Error        string         `json:"error,omitempty" yaml:"error,omitempty" msgpack:"error,omitempty"`
	ElementCount int            `json:"element_count" yaml:"element_count" msgpack:"element_count"`
	References   int            `json:"references" yaml:"references" msgpack:"references"`
	Kinds        map[string]int `json:"kinds,omitempty" yaml:"kinds,omitempty" msgpack:"kinds,omitempty"`
	Bounds       *BBox          `json:"bounds,omitempty" yaml:"bounds,omitempty" msgpack:"bounds,omitempty"`
	Elements     []Element      `json:"elements,omitempty" yaml:"elements,omitempty" msgpack:"elements,omitempty"`
}

// BBox is an axis-aligned box in database units
type BBox struct {
	MinX float64 `json:"min_x" yaml:"min_x" msgpack:"min_x"`
	MinY float64 `json:"min_y" yaml:"min_y" msgpack:"min_y"`
	MaxX float64 `json:"max_x" yaml:"max_x" msgpack:"max_x"`
	MaxY float64 `json:"max_y" yaml:"max_y" msgpack:"max_y"`
}

// Point is an (x, y) pair in database units
type Point struct {
	X float64 `json:"x" yaml:"x" msgpack:"x"`
	Y float64 `json:"y" yaml:"y" msgpack:"y"`
}

// Transform is a reference or text placement
type Transform struct {
	Reflected     bool    `json:"reflected,omitempty" yaml:"reflected,omitempty" msgpack:"reflected,omitempty"`
	AbsoluteMag   bool    `json:"absolute_mag,omitempty" yaml:"absolute_mag,omitempty" msgpack:"absolute_mag,omitempty"`
	AbsoluteAngle bool    `json:"absolute_angle,omitempty" yaml:"absolute_angle,omitempty" msgpack:"absolute_angle,omitempty"`
	Magnification float64 `json:"magnification" yaml:"magnification" msgpack:"magnification"`
	Angle         float64 `json:"angle" yaml:"angle" msgpack:"angle"`
}

// Property is an element property
type Property struct {
	Attribute uint16 `json:"attribute" yaml:"attribute" msgpack:"attribute"`
	Value     string `json:"value" yaml:"value" msgpack:"value"`
}

// Element is one element of any kind. Fields that do not apply to the
// kind are omitted.
type Element struct {
	Kind     string `json:"kind" yaml:"kind" msgpack:"kind"`
	Layer    uint16 `json:"layer" yaml:"layer" msgpack:"layer"`
	Datatype uint16 `json:"datatype" yaml:"datatype" msgpack:"datatype"`
	ElFlags  uint16 `json:"elflags,omitempty" yaml:"elflags,omitempty" msgpack:"elflags,omitempty"`
	Plex     int32  `json:"plex,omitempty" yaml:"plex,omitempty" msgpack:"plex,omitempty"`
	Bounds   BBox   `json:"bounds" yaml:"bounds" msgpack:"bounds"`

	// Boundary, Path, Box and Node. Each polygon is flat [x0, y0, x1, y1, ...].
	Polygons     [][]float64 `json:"polygons,omitempty" yaml:"polygons,omitempty,flow" msgpack:"polygons,omitempty"`
	VertexCounts []int       `json:"vertex_counts,omitempty" yaml:"vertex_counts,omitempty,flow" msgpack:"vertex_counts,omitempty"`

	PathType       uint16  `json:"path_type,omitempty" yaml:"path_type,omitempty" msgpack:"path_type,omitempty"`
	Width          float32 `json:"width,omitempty" yaml:"width,omitempty" msgpack:"width,omitempty"`
	BeginExtension float32 `json:"begin_extension,omitempty" yaml:"begin_extension,omitempty" msgpack:"begin_extension,omitempty"`
	EndExtension   float32 `json:"end_extension,omitempty" yaml:"end_extension,omitempty" msgpack:"end_extension,omitempty"`
	BoxType        uint16  `json:"box_type,omitempty" yaml:"box_type,omitempty" msgpack:"box_type,omitempty"`
	NodeType       uint16  `json:"node_type,omitempty" yaml:"node_type,omitempty" msgpack:"node_type,omitempty"`

	Text         string `json:"text,omitempty" yaml:"text,omitempty" msgpack:"text,omitempty"`
	TextType     uint16 `json:"text_type,omitempty" yaml:"text_type,omitempty" msgpack:"text_type,omitempty"`
	Presentation uint16 `json:"presentation,omitempty" yaml:"presentation,omitempty" msgpack:"presentation,omitempty"`

	Position     *Point     `json:"position,omitempty" yaml:"position,omitempty" msgpack:"position,omitempty"`
	Reference    string     `json:"reference,omitempty" yaml:"reference,omitempty" msgpack:"reference,omitempty"`
	Columns      uint16     `json:"columns,omitempty" yaml:"columns,omitempty" msgpack:"columns,omitempty"`
	Rows         uint16     `json:"rows,omitempty" yaml:"rows,omitempty" msgpack:"rows,omitempty"`
	ColumnVector *Point     `json:"column_vector,omitempty" yaml:"column_vector,omitempty" msgpack:"column_vector,omitempty"`
	RowVector    *Point     `json:"row_vector,omitempty" yaml:"row_vector,omitempty" msgpack:"row_vector,omitempty"`
	Transform    *Transform `json:"transform,omitempty" yaml:"transform,omitempty" msgpack:"transform,omitempty"`

	Properties []Property `json:"properties,omitempty" yaml:"properties,omitempty" msgpack:"properties,omitempty"`
}

// Build converts the structures selected by config into an export
// document, parsing them as needed. A structure that fails to parse is
// included with its state and error. Names in config.Structures that do not
// exist are an error.
func Build(r *reader.Reader, config Config) (*Library, error) {
	lib := r.Library()
	doc := &Library{
		Name:          lib.Name,
		Version:       lib.Version,
		Created:       formatTimestamp(lib.Created),
		Modified:      formatTimestamp(lib.Modified),
		UserUnits:     lib.UserUnitsPerDBUnit,
		MetersPerUnit: lib.MetersPerDBUnit,
		Fingerprint:   r.Fingerprint().String(),
		Size:          r.Size(),
	}

	indexes, err := selectStructures(r, config.Structures)
	if err != nil {
		return nil, err
	}

	doc.Structures = make([]Structure, 0, len(indexes))
	for _, i := range indexes {
		doc.Structures = append(doc.Structures, buildStructure(r, i, config))
	}
	return doc, nil
}

func selectStructures(r *reader.Reader, names []string) ([]int, error) {
	if len(names) == 0 {
		out := make([]int, r.StructureCount())
		for i := range out {
			out[i] = i
		}
		return out, nil
	}
	out := make([]int, 0, len(names))
	for _, name := range names {
		i, err := r.StructureIndex(name)
		if err != nil {
			return nil, err
		}
		out = append(out, i)
	}
	return out, nil
}

func buildStructure(r *reader.Reader, i int, config Config) Structure {
	parseErr := r.EnsureParsed(i)
	info, _ := r.Structure(i)

	s := Structure{
		Name:     info.Name,
		Created:  formatTimestamp(info.Created),
		Modified: formatTimestamp(info.Modified),
		State:    info.State.String(),
	}
	if parseErr != nil {
		s.Error = parseErr.Error()
		return s
	}

	st, _ := r.ParsedStructure(i)
	s.ElementCount = len(st.Elements)
	s.References = st.ReferenceCount()
	if b, ok := st.Bounds(); ok {
		s.Bounds = convertBBox(b)
	}
	if len(st.Elements) > 0 {
		s.Kinds = make(map[string]int)
		for kind, n := range st.CountByKind() {
			s.Kinds[kind.String()] = n
		}
	}

	if config.IncludeElements {
		s.Elements = make([]Element, len(st.Elements))
		for j, e := range st.Elements {
			s.Elements[j] = convertElement(e, config)
		}
	}
	return s
}

func formatTimestamp(ts model.Timestamp) string {
	if ts.IsZero() {
		return ""
	}
	return ts.Time().Format(time.RFC3339)
}

func convertBBox(b model.BBox) *BBox {
	return &BBox{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}

func convertPoint(p model.Point) *Point {
	return &Point{X: p.X, Y: p.Y}
}

func convertTransform(t model.Transform) *Transform {
	if t == model.DefaultTransform() {
		return nil
	}
	return &Transform{
		Reflected:     t.Reflected(),
		AbsoluteMag:   t.AbsoluteMagnification(),
		AbsoluteAngle: t.AbsoluteAngle(),
		Magnification: t.Magnification,
		Angle:         t.Angle,
	}
}

// convertElement flattens an element variant into the export shape
func convertElement(e model.Element, config Config) Element {
	base := e.Base()
	out := Element{
		Kind:     e.Kind().String(),
		Layer:    base.Layer,
		Datatype: base.Datatype,
		ElFlags:  base.ElFlags,
		Plex:     base.Plex,
		Bounds:   *convertBBox(base.Bounds),
	}

	if shape, ok := e.(model.Shape); ok {
		for _, poly := range shape.Geometry() {
			out.VertexCounts = append(out.VertexCounts, poly.Len())
			if config.IncludeVertices {
				out.Polygons = append(out.Polygons, poly.Flat())
			}
		}
	}

	switch v := e.(type) {
	case *model.Path:
		out.PathType = v.PathType
		out.Width = v.Width
		out.BeginExtension = v.BeginExtension
		out.EndExtension = v.EndExtension
	case *model.Box:
		out.BoxType = v.BoxType
	case *model.Node:
		out.NodeType = v.NodeType
	case *model.Text:
		out.Text = v.Text
		out.TextType = v.TextType
		out.Presentation = v.Presentation
		out.Position = convertPoint(v.Position)
		out.Transform = convertTransform(v.Transform)
	case *model.SRef:
		out.Reference = v.ReferencedName
		out.Position = convertPoint(v.Position)
		out.Transform = convertTransform(v.Transform)
	case *model.ARef:
		out.Reference = v.ReferencedName
		out.Position = convertPoint(v.Origin)
		out.Columns = v.Columns
		out.Rows = v.Rows
		out.ColumnVector = convertPoint(v.ColumnVector)
		out.RowVector = convertPoint(v.RowVector)
		out.Transform = convertTransform(v.Transform)
	}

	if config.IncludeProperties {
		for _, p := range base.Properties {
			out.Properties = append(out.Properties, Property{Attribute: p.Attribute, Value: p.Value})
		}
	}
	return out
}

// describe returns a one-line summary used by the text and CSV formats
func describe(el Element) string {
	switch el.Kind {
	case "Text":
		return fmt.Sprintf("%q at (%g, %g)", el.Text, el.Position.X, el.Position.Y)
	case "SRef":
		return fmt.Sprintf("-> %s at (%g, %g)", el.Reference, el.Position.X, el.Position.Y)
	case "ARef":
		return fmt.Sprintf("-> %s %dx%d at (%g, %g)", el.Reference, el.Columns, el.Rows, el.Position.X, el.Position.Y)
	}
	n := 0
	for _, c := range el.VertexCounts {
		n += c
	}
	return fmt.Sprintf("%d polygon(s), %d vertices", len(el.VertexCounts), n)
}
