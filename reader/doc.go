// Package reader provides random-access reading of a GDSII library held in
// memory.
//
// This package orchestrates the lower-level core and element packages: the
// library preamble and the structure index are built eagerly, element
// records are decoded only when a structure is first queried.
//
// # Opening a Library
//
// Use [New] with the whole file as a byte slice:
//
//	r, err := reader.New(data)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
// The buffer is borrowed, not copied, and must not be modified while the
// Reader is in use.
//
// # Library Information
//
//   - Library() - name, version, timestamps and units
//   - StructureCount() - number of structures (cells)
//   - Structure(i) - name and timestamps of a structure
//   - StructureIndex(name) - look up a structure by name
//
// # Element Access
//
// Element queries parse the owning structure on first use:
//
//	n, err := r.ElementCount(0)
//	elem, err := r.Element(0, 2)
//
// A structure that fails to parse is marked [Failed] and keeps its error.
// Other structures are unaffected, and a later query retries the parse.
//
// # Concurrency
//
// A Reader is not safe for concurrent use. Callers sharing one across
// goroutines must serialize access.
package reader
