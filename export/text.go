package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// exportText writes an indented listing
func (e *Exporter) exportText(doc *Library, w io.Writer) error {
	var b strings.Builder

	fmt.Fprintf(&b, "library %s (version %d)\n", doc.Name, doc.Version)
	if doc.Created != "" {
		fmt.Fprintf(&b, "  created   %s\n", doc.Created)
	}
	if doc.Modified != "" {
		fmt.Fprintf(&b, "  modified  %s\n", doc.Modified)
	}
	fmt.Fprintf(&b, "  units     %g user, %g m per database unit\n", doc.UserUnits, doc.MetersPerUnit)
	fmt.Fprintf(&b, "  size      %s\n", humanize.IBytes(uint64(doc.Size)))
	fmt.Fprintf(&b, "  blake3    %s\n", doc.Fingerprint)
	fmt.Fprintf(&b, "  structures %s\n", humanize.Comma(int64(len(doc.Structures))))

	for _, s := range doc.Structures {
		b.WriteString("\n")
		if s.Error != "" {
			fmt.Fprintf(&b, "structure %s [%s]: %s\n", s.Name, s.State, s.Error)
			continue
		}
		fmt.Fprintf(&b, "structure %s: %s elements, %d references\n",
			s.Name, humanize.Comma(int64(s.ElementCount)), s.References)
		if s.Bounds != nil {
			fmt.Fprintf(&b, "  bounds (%g, %g) - (%g, %g)\n",
				s.Bounds.MinX, s.Bounds.MinY, s.Bounds.MaxX, s.Bounds.MaxY)
		}
		if len(s.Kinds) > 0 {
			fmt.Fprintf(&b, "  kinds  %s\n", formatKinds(s.Kinds))
		}
		for i, el := range s.Elements {
			fmt.Fprintf(&b, "  [%d] %s %d/%d %s\n", i, el.Kind, el.Layer, el.Datatype, describe(el))
			for _, p := range el.Polygons {
				fmt.Fprintf(&b, "      %s\n", formatFlat(p))
			}
			for _, p := range el.Properties {
				fmt.Fprintf(&b, "      property %d = %q\n", p.Attribute, p.Value)
			}
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func formatKinds(kinds map[string]int) string {
	names := make([]string, 0, len(kinds))
	for k := range kinds {
		names = append(names, k)
	}
	sort.Strings(names)
	parts := make([]string, len(names))
	for i, k := range names {
		parts[i] = fmt.Sprintf("%s=%d", k, kinds[k])
	}
	return strings.Join(parts, " ")
}

func formatFlat(coords []float64) string {
	parts := make([]string, 0, len(coords)/2)
	for i := 0; i+1 < len(coords); i += 2 {
		parts = append(parts, fmt.Sprintf("(%g, %g)", coords[i], coords[i+1]))
	}
	return strings.Join(parts, " ")
}

var delimitedColumns = []string{
	"structure", "index", "kind", "layer", "datatype",
	"min_x", "min_y", "max_x", "max_y", "vertices", "reference", "text",
}

// exportDelimited writes one row per element
func (e *Exporter) exportDelimited(doc *Library, w io.Writer, delimiter rune) error {
	csvWriter := csv.NewWriter(w)
	csvWriter.Comma = delimiter

	if e.config.IncludeHeader {
		if err := csvWriter.Write(delimitedColumns); err != nil {
			return fmt.Errorf("writing CSV header: %w", err)
		}
	}

	for _, s := range doc.Structures {
		for i, el := range s.Elements {
			vertices := 0
			for _, c := range el.VertexCounts {
				vertices += c
			}
			row := []string{
				s.Name,
				strconv.Itoa(i),
				el.Kind,
				strconv.Itoa(int(el.Layer)),
				strconv.Itoa(int(el.Datatype)),
				formatFloat(el.Bounds.MinX),
				formatFloat(el.Bounds.MinY),
				formatFloat(el.Bounds.MaxX),
				formatFloat(el.Bounds.MaxY),
				strconv.Itoa(vertices),
				el.Reference,
				el.Text,
			}
			if err := csvWriter.Write(row); err != nil {
				return fmt.Errorf("writing CSV row: %w", err)
			}
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
