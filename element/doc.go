// Package element decodes a single GDSII element from its record span.
//
// An element starts with one of the opening records (BOUNDARY, PATH, BOX,
// NODE, TEXT, SREF, AREF) and ends with ENDEL. In between, sub-records set
// shared fields (LAYER, DATATYPE, ELFLAGS, PLEX, properties) and
// kind-specific ones (XY, WIDTH, STRING, SNAME, COLROW, STRANS, ...).
//
// Sub-records this package does not know, or that do not apply to the
// element kind at hand, are skipped by their declared length. Structural
// records (BGNSTR, ENDSTR, ENDLIB or another element opening) before ENDEL
// mean the element was never terminated and fail the decode.
//
// Usage:
//
//	dec := element.NewDecoder(logger)
//	rec, _ := scanner.ReadHeader() // e.g. BOUNDARY
//	elem, err := dec.Decode(scanner, rec)
package element
