// Package model provides the decoded representation of a GDSII library.
//
// # Library and Structures
//
// [Library] holds the preamble: name, version, timestamps and the two unit
// scales. [Structure] is a named cell holding an ordered list of elements.
//
// # Elements
//
// [Element] is a sum type over seven variants, each carrying only its own
// fields:
//
//   - [Boundary] - filled polygon
//   - [Path] - polyline with width, path type and end extensions
//   - [Box] - rectangle outline
//   - [Node] - electrical net marker
//   - [Text] - label with position, text type and presentation
//   - [SRef] - single instance of another structure
//   - [ARef] - array of instances of another structure
//
// A type switch selects the variant:
//
//	switch e := elem.(type) {
//	case *model.Boundary:
//	    fmt.Println(len(e.Polygons[0].Vertices))
//	case *model.SRef:
//	    fmt.Println(e.ReferencedName)
//	}
//
// Every variant embeds [Common] (layer, datatype, flags, plex, bounds and
// properties). [Shape] and [Reference] group the polygon-bearing and the
// instancing variants.
//
// # Geometry
//
// Coordinates are kept in database units as float64 copies of the stored
// 32-bit integers; no unit scaling is applied. [BBox] is an axis-aligned
// box in min/max form. [Transform.Matrix] gives the local placement of a
// reference as a [Matrix]; hierarchies are not flattened.
package model
