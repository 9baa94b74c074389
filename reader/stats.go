package reader

import (
	"encoding/hex"

	"github.com/zeebo/blake3"

	"github.com/tsawler/gdsii/model"
)

// Stats summarizes the cache
type Stats struct {
	Structures int
	Parsed     int
	Failed     int
	Elements   int // elements across parsed structures
	Vertices   int
	Skipped    int // sub-records skipped as unknown or inapplicable in parsed structures
	BufferSize int
	// DecodedBytes estimates the memory held by decoded elements. The
	// buffer itself is not included.
	DecodedBytes int
}

// Approximate in-memory sizes used by Stats.
const (
	elementOverhead  = 96
	vertexSize       = 16
	polygonOverhead  = 24
	propertyOverhead = 24
)

// Stats reports structure and element totals. It does not trigger parsing.
func (r *Reader) Stats() Stats {
	s := Stats{
		Structures: len(r.structures),
		BufferSize: len(r.buf),
	}
	for _, st := range r.structures {
		switch st.state {
		case Parsed:
			s.Parsed++
		case Failed:
			s.Failed++
			continue
		default:
			continue
		}
		s.Elements += len(st.Elements)
		s.Skipped += st.skipped
		for _, e := range st.Elements {
			v, b := elementSize(e)
			s.Vertices += v
			s.DecodedBytes += b
		}
	}
	return s
}

func elementSize(e model.Element) (vertices, bytes int) {
	bytes = elementOverhead
	for _, p := range e.Base().Properties {
		bytes += propertyOverhead + len(p.Value)
	}
	switch v := e.(type) {
	case model.Shape:
		for _, poly := range v.Geometry() {
			vertices += poly.Len()
			bytes += polygonOverhead + poly.Len()*vertexSize
		}
	case *model.Text:
		vertices = 1
		bytes += len(v.Text)
	case *model.SRef:
		vertices = 1
		bytes += len(v.ReferencedName)
	case *model.ARef:
		vertices = 3
		bytes += len(v.ReferencedName)
	}
	return vertices, bytes
}

// Fingerprint identifies the bytes of a library
type Fingerprint [32]byte

func (f Fingerprint) String() string {
	return hex.EncodeToString(f[:])
}

// fingerprintKey is the BLAKE3 key for library fingerprints: the ASCII
// domain name zero-padded to 32 bytes.
var fingerprintKey = [32]byte{
	'g', 'd', 's', 'i', 'i', '.', 'l', 'i', 'b', 'r', 'a', 'r', 'y', '.',
	'f', 'i', 'n', 'g', 'e', 'r', 'p', 'r', 'i', 'n', 't', 0, 0, 0, 0, 0, 0, 0,
}

// Fingerprint returns the keyed BLAKE3 hash of the library buffer
func (r *Reader) Fingerprint() Fingerprint {
	h, err := blake3.NewKeyed(fingerprintKey[:])
	if err != nil {
		panic("reader: BLAKE3 keyed hash initialization failed: " + err.Error())
	}
	h.Write(r.buf)
	var f Fingerprint
	copy(f[:], h.Sum(nil))
	return f
}
