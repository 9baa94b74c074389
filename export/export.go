// Package export serializes a decoded GDSII library to text, JSON, YAML,
// CBOR, MessagePack or CSV. It does not write GDSII.
package export

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fxamacker/cbor/v2"
	"github.com/vmihailenco/msgpack/v5"
	"gopkg.in/yaml.v3"

	"github.com/tsawler/gdsii/reader"
)

// Format defines the available export formats
type Format int

const (
	// FormatText is an indented human-readable listing
	FormatText Format = iota
	// FormatJSON exports the library as one JSON document
	FormatJSON
	// FormatJSONL exports one JSON object per element
	FormatJSONL
	// FormatYAML exports the library as one YAML document
	FormatYAML
	// FormatCBOR exports deterministic CBOR (RFC 8949 core encoding)
	FormatCBOR
	// FormatMsgPack exports MessagePack
	FormatMsgPack
	// FormatCSV exports one comma-separated row per element
	FormatCSV
	// FormatTSV exports one tab-separated row per element
	FormatTSV
)

// String returns a human-readable representation of the export format
func (f Format) String() string {
	switch f {
	case FormatText:
		return "text"
	case FormatJSON:
		return "json"
	case FormatJSONL:
		return "jsonl"
	case FormatYAML:
		return "yaml"
	case FormatCBOR:
		return "cbor"
	case FormatMsgPack:
		return "msgpack"
	case FormatCSV:
		return "csv"
	case FormatTSV:
		return "tsv"
	default:
		return "unknown"
	}
}

// FileExtension returns the typical file extension for this format
func (f Format) FileExtension() string {
	switch f {
	case FormatJSON:
		return ".json"
	case FormatJSONL:
		return ".jsonl"
	case FormatYAML:
		return ".yaml"
	case FormatCBOR:
		return ".cbor"
	case FormatMsgPack:
		return ".msgpack"
	case FormatCSV:
		return ".csv"
	case FormatTSV:
		return ".tsv"
	default:
		return ".txt"
	}
}

// Binary reports whether the format is not printable text
func (f Format) Binary() bool {
	return f == FormatCBOR || f == FormatMsgPack
}

// ParseFormat parses a format name as printed by String. "yml" and "mp"
// are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "text", "txt":
		return FormatText, nil
	case "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "cbor":
		return FormatCBOR, nil
	case "msgpack", "mp":
		return FormatMsgPack, nil
	case "csv":
		return FormatCSV, nil
	case "tsv":
		return FormatTSV, nil
	default:
		return 0, fmt.Errorf("unknown export format %q", name)
	}
}

// Config holds configuration options for export
type Config struct {
	// Format specifies the export format
	Format Format

	// Structures limits output to the named structures (nil = all)
	Structures []string

	// IncludeElements includes element listings; false gives a summary
	IncludeElements bool

	// IncludeVertices includes polygon vertices
	IncludeVertices bool

	// IncludeProperties includes element properties
	IncludeProperties bool

	// IncludeHeader includes a header row in CSV/TSV exports
	IncludeHeader bool

	// PrettyPrint enables indentation for JSON output
	PrettyPrint bool
}

// DefaultConfig returns sensible defaults for export configuration
func DefaultConfig() Config {
	return Config{
		Format:            FormatText,
		Structures:        nil, // all structures
		IncludeElements:   true,
		IncludeVertices:   true,
		IncludeProperties: true,
		IncludeHeader:     true,
		PrettyPrint:       false,
	}
}

// SummaryConfig returns a config listing structures without elements
func SummaryConfig() Config {
	config := DefaultConfig()
	config.IncludeElements = false
	config.IncludeVertices = false
	config.IncludeProperties = false
	return config
}

// Exporter writes a library in one configured format
type Exporter struct {
	config Config
}

// NewExporter creates a new exporter with default configuration
func NewExporter() *Exporter {
	return &Exporter{
		config: DefaultConfig(),
	}
}

// NewExporterWithConfig creates an exporter with custom configuration
func NewExporterWithConfig(config Config) *Exporter {
	return &Exporter{
		config: config,
	}
}

// Config returns the exporter configuration
func (e *Exporter) Config() Config {
	return e.config
}

// Export writes the library read by r to w. Structures that fail to parse
// are reported in the output, not returned as errors.
func (e *Exporter) Export(r *reader.Reader, w io.Writer) error {
	doc, err := Build(r, e.config)
	if err != nil {
		return err
	}
	return e.Write(doc, w)
}

// Write encodes an already built document
func (e *Exporter) Write(doc *Library, w io.Writer) error {
	switch e.config.Format {
	case FormatText:
		return e.exportText(doc, w)
	case FormatJSON:
		return e.exportJSON(doc, w)
	case FormatJSONL:
		return e.exportJSONL(doc, w)
	case FormatYAML:
		return e.exportYAML(doc, w)
	case FormatCBOR:
		return e.exportCBOR(doc, w)
	case FormatMsgPack:
		return e.exportMsgPack(doc, w)
	case FormatCSV:
		return e.exportDelimited(doc, w, ',')
	case FormatTSV:
		return e.exportDelimited(doc, w, '\t')
	default:
		return fmt.Errorf("unsupported export format: %v", e.config.Format)
	}
}

// ExportToFile exports the library to a file
func (e *Exporter) ExportToFile(r *reader.Reader, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("creating export file: %w", err)
	}
	if err := e.Export(r, f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ExportToString exports the library to a string
func (e *Exporter) ExportToString(r *reader.Reader) (string, error) {
	var buf bytes.Buffer
	if err := e.Export(r, &buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// exportJSON exports the library as one JSON document
func (e *Exporter) exportJSON(doc *Library, w io.Writer) error {
	encoder := json.NewEncoder(w)
	if e.config.PrettyPrint {
		encoder.SetIndent("", "  ")
	}
	return encoder.Encode(doc)
}

// exportJSONL writes one line per element, tagged with its structure
func (e *Exporter) exportJSONL(doc *Library, w io.Writer) error {
	encoder := json.NewEncoder(w)
	for _, s := range doc.Structures {
		for i, el := range s.Elements {
			line := struct {
				Structure string `json:"structure"`
				Index     int    `json:"index"`
				Element
			}{s.Name, i, el}
			if err := encoder.Encode(line); err != nil {
				return fmt.Errorf("encoding element %d of %q: %w", i, s.Name, err)
			}
		}
	}
	return nil
}

func (e *Exporter) exportYAML(doc *Library, w io.Writer) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encoding yaml: %w", err)
	}
	return encoder.Close()
}

// cborEncMode uses Core Deterministic Encoding: the same library always
// produces identical bytes.
var cborEncMode cbor.EncMode

func init() {
	var err error
	cborEncMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("export: CBOR encoder initialization failed: " + err.Error())
	}
}

func (e *Exporter) exportCBOR(doc *Library, w io.Writer) error {
	if err := cborEncMode.NewEncoder(w).Encode(doc); err != nil {
		return fmt.Errorf("encoding cbor: %w", err)
	}
	return nil
}

func (e *Exporter) exportMsgPack(doc *Library, w io.Writer) error {
	encoder := msgpack.NewEncoder(w)
	encoder.SetOmitEmpty(true)
	if err := encoder.Encode(doc); err != nil {
		return fmt.Errorf("encoding msgpack: %w", err)
	}
	return nil
}
