package model

import "time"

// Timestamp is a GDSII date: year, month, day, hour, minute, second
type Timestamp struct {
	Year   uint16
	Month  uint16
	Day    uint16
	Hour   uint16
	Minute uint16
	Second uint16
}

// NewTimestamp converts the six raw fields of a BGNLIB or BGNSTR record
func NewTimestamp(f [6]uint16) Timestamp {
	return Timestamp{Year: f[0], Month: f[1], Day: f[2], Hour: f[3], Minute: f[4], Second: f[5]}
}

// IsZero reports whether every field is zero
func (t Timestamp) IsZero() bool {
	return t == Timestamp{}
}

// Time converts to a UTC time. Two-digit years written by old tools are
// taken as 1900-based. A zero timestamp yields the zero time.
func (t Timestamp) Time() time.Time {
	if t.IsZero() {
		return time.Time{}
	}
	year := int(t.Year)
	if year < 1000 {
		year += 1900
	}
	return time.Date(year, time.Month(t.Month), int(t.Day),
		int(t.Hour), int(t.Minute), int(t.Second), 0, time.UTC)
}

// Library holds the library preamble
type Library struct {
	Name               string
	Version            uint16
	Created            Timestamp
	Modified           Timestamp
	UserUnitsPerDBUnit float64
	MetersPerDBUnit    float64
}

// ToUser converts a database-unit length to user units
func (l Library) ToUser(v float64) float64 {
	return v * l.UserUnitsPerDBUnit
}

// ToMeters converts a database-unit length to meters
func (l Library) ToMeters(v float64) float64 {
	return v * l.MetersPerDBUnit
}

// Structure is a decoded cell
type Structure struct {
	Name     string
	Created  Timestamp
	Modified Timestamp
	Elements []Element
}

// Bounds returns the union of all element bounds. ok is false for a
// structure with no elements. Referenced cells are not expanded.
func (s *Structure) Bounds() (b BBox, ok bool) {
	return UnionBounds(s.Elements)
}

// ReferenceCount returns the number of SRef and ARef elements
func (s *Structure) ReferenceCount() int {
	n := 0
	for _, e := range s.Elements {
		if _, ok := e.(Reference); ok {
			n++
		}
	}
	return n
}

// CountByKind tallies elements per kind
func (s *Structure) CountByKind() map[ElementKind]int {
	counts := make(map[ElementKind]int)
	for _, e := range s.Elements {
		counts[e.Kind()]++
	}
	return counts
}

// UnionBounds returns the union of the bounds of elems
func UnionBounds(elems []Element) (b BBox, ok bool) {
	for i, e := range elems {
		if i == 0 {
			b = e.BoundingBox()
			continue
		}
		b = b.Union(e.BoundingBox())
	}
	return b, len(elems) > 0
}
