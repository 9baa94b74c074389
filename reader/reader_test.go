package reader

import (
	"errors"
	"reflect"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/tsawler/gdsii/core"
	"github.com/tsawler/gdsii/internal/gdstest"
	"github.com/tsawler/gdsii/model"
)

// threeCells builds a library with structures A, B and C. B holds an XY
// record whose length is not a multiple of 8.
func threeCells() []byte {
	b := gdstest.New().Header("LIB").Units(1e-3, 1e-9)

	b.BeginStructure("A").
		Boundary(1, 0, 0, 0, 10, 0, 10, 10, 0, 0).
		Text(2, "label", 5, 5).
		EndStructure()

	b.BeginStructure("B").
		Empty(core.RecBoundary).
		Int16s(core.RecLayer, 1).
		Int32s(core.RecXY, 1, 2, 3).
		Empty(core.RecEndEl).
		EndStructure()

	b.BeginStructure("C").
		SRef("A", 100, 100).
		SRef("A", 200, 100).
		Boundary(4, 0, -5, -5, 5, -5, 5, 5, -5, -5).
		EndStructure()

	return b.EndLibrary().Bytes()
}

func mustNew(t *testing.T, data []byte, opts ...Option) *Reader {
	t.Helper()
	r, err := New(data, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return r
}

// ============================================================================
// Library Tests
// ============================================================================

func TestNewMinimalLibrary(t *testing.T) {
	r := mustNew(t, gdstest.MinimalLibrary("X"))

	lib := r.Library()
	if lib.Name != "X" {
		t.Errorf("Name = %q, want X", lib.Name)
	}
	if lib.Version != 600 {
		t.Errorf("Version = %d, want 600", lib.Version)
	}
	if r.StructureCount() != 0 {
		t.Errorf("StructureCount() = %d, want 0", r.StructureCount())
	}
	if lib.UserUnitsPerDBUnit <= 0 || lib.MetersPerDBUnit <= 0 {
		t.Errorf("units = %g, %g, want both > 0", lib.UserUnitsPerDBUnit, lib.MetersPerDBUnit)
	}
	if lib.UserUnitsPerDBUnit != 1e-3 || lib.MetersPerDBUnit != 1e-9 {
		t.Errorf("units = %g, %g, want 1e-3, 1e-9", lib.UserUnitsPerDBUnit, lib.MetersPerDBUnit)
	}
	want := model.Timestamp{Year: 2024, Month: 1, Day: 2, Hour: 3, Minute: 4, Second: 5}
	if lib.Created != want {
		t.Errorf("Created = %+v, want %+v", lib.Created, want)
	}
	if r.Size() != len(gdstest.MinimalLibrary("X")) {
		t.Errorf("Size() = %d", r.Size())
	}
}

func TestNewSkipsLibraryRecordsBeforeUnits(t *testing.T) {
	// GENERATIONS (0x2202) and FORMAT (0x3602) may precede UNITS
	data := gdstest.New().
		Header("LIB").
		Int16s(core.RecordType(0x2202), 3).
		Int16s(core.RecordType(0x3602), 0).
		Units(0.001, 1e-9).
		EndLibrary().
		Bytes()

	r := mustNew(t, data)
	if r.Library().UserUnitsPerDBUnit != 0.001 {
		t.Errorf("UserUnitsPerDBUnit = %g", r.Library().UserUnitsPerDBUnit)
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		want  error
		class error
	}{
		{
			name:  "empty buffer",
			data:  nil,
			want:  core.ErrTruncated,
			class: core.ErrTruncated,
		},
		{
			name:  "missing HEADER",
			data:  gdstest.New().Int16s(core.RecBgnLib, make([]uint16, 12)...).Bytes(),
			want:  ErrMissingHeader,
			class: core.ErrUnexpectedRecordType,
		},
		{
			name:  "missing BGNLIB",
			data:  gdstest.New().Int16s(core.RecHeader, 600).ASCII(core.RecLibName, "X").Bytes(),
			want:  ErrMissingBgnlib,
			class: core.ErrUnexpectedRecordType,
		},
		{
			name: "missing LIBNAME",
			data: gdstest.New().
				Int16s(core.RecHeader, 600).
				Int16s(core.RecBgnLib, make([]uint16, 12)...).
				Units(1e-3, 1e-9).
				Bytes(),
			want:  ErrMissingLibname,
			class: core.ErrUnexpectedRecordType,
		},
		{
			name:  "UNITS wrong size",
			data:  gdstest.New().Header("X").Real8s(core.RecUnits, 1e-3).EndLibrary().Bytes(),
			want:  ErrMalformedUnits,
			class: core.ErrMalformedLength,
		},
		{
			name:  "zero units",
			data:  gdstest.New().Header("X").Units(0, 1e-9).EndLibrary().Bytes(),
			want:  core.ErrInvalidNumericField,
			class: core.ErrInvalidNumericField,
		},
		{
			name:  "negative units",
			data:  gdstest.New().Header("X").Units(1e-3, -1e-9).EndLibrary().Bytes(),
			want:  core.ErrInvalidNumericField,
			class: core.ErrInvalidNumericField,
		},
		{
			name:  "no UNITS before structure",
			data:  gdstest.New().Header("X").BeginStructure("A").EndStructure().EndLibrary().Bytes(),
			want:  ErrMissingUnits,
			class: core.ErrUnexpectedRecordType,
		},
		{
			name:  "no UNITS at all",
			data:  gdstest.New().Header("X").Bytes(),
			want:  ErrMissingUnits,
			class: core.ErrUnexpectedRecordType,
		},
		{
			name: "BGNSTR without STRNAME",
			data: gdstest.New().
				Header("X").
				Units(1e-3, 1e-9).
				Int16s(core.RecBgnStr, make([]uint16, 12)...).
				EndStructure().
				EndLibrary().
				Bytes(),
			want:  ErrMissingStrname,
			class: core.ErrUnexpectedRecordType,
		},
		{
			name: "record runs past end",
			data: gdstest.New().
				Header("X").
				Units(1e-3, 1e-9).
				Raw([]byte{0x00, 0x40, 0x06, 0x06, 'A', 'B'}).
				Bytes(),
			want:  core.ErrTruncated,
			class: core.ErrTruncated,
		},
		{
			name: "truncated record between structures",
			data: gdstest.New().
				Header("X").
				Units(1e-3, 1e-9).
				BeginStructure("A").
				EndStructure().
				Raw([]byte{0x00, 0x10, 0x05, 0x02, 0, 0}).
				Bytes(),
			want:  core.ErrTruncated,
			class: core.ErrTruncated,
		},
		{
			name: "header length below 4",
			data: gdstest.New().
				Header("X").
				Units(1e-3, 1e-9).
				Raw([]byte{0x00, 0x02, 0x04, 0x00}).
				Bytes(),
			want:  core.ErrInvalidLength,
			class: core.ErrMalformedLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := New(tt.data)
			if err == nil {
				t.Fatal("New() error = nil")
			}
			if r != nil {
				t.Error("New() returned a partial Reader")
			}
			if !errors.Is(err, tt.want) {
				t.Errorf("New() error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, tt.class) {
				t.Errorf("New() error = %v, want class %v", err, tt.class)
			}
		})
	}
}

// ============================================================================
// Structure Index Tests
// ============================================================================

func TestStructureIndex(t *testing.T) {
	r := mustNew(t, threeCells())

	if r.StructureCount() != 3 {
		t.Fatalf("StructureCount() = %d, want 3", r.StructureCount())
	}
	for i, want := range []string{"A", "B", "C"} {
		name, err := r.StructureName(i)
		if err != nil || name != want {
			t.Errorf("StructureName(%d) = %q, %v, want %q", i, name, err, want)
		}
		info, _ := r.Structure(i)
		if info.State != Unparsed {
			t.Errorf("structure %s state = %v before any query", want, info.State)
		}
	}

	if i, err := r.StructureIndex("C"); err != nil || i != 2 {
		t.Errorf("StructureIndex(C) = %d, %v, want 2", i, err)
	}
	if _, err := r.StructureIndex("nope"); !errors.Is(err, ErrStructureNotFound) {
		t.Errorf("StructureIndex(nope) error = %v, want ErrStructureNotFound", err)
	}
	if err := r.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestStructureTimestamps(t *testing.T) {
	r := mustNew(t, threeCells())
	info, err := r.Structure(0)
	if err != nil {
		t.Fatal(err)
	}
	want := model.Timestamp{Year: 2023, Month: 12, Day: 31, Hour: 23, Minute: 59, Second: 58}
	if info.Created != want {
		t.Errorf("Created = %+v, want %+v", info.Created, want)
	}
}

func TestIndexingDoesNotParse(t *testing.T) {
	r := mustNew(t, threeCells())
	st := r.Stats()
	if st.Parsed != 0 || st.Failed != 0 || st.Elements != 0 {
		t.Errorf("Stats() after New = %+v, want nothing parsed", st)
	}
}

// ============================================================================
// Lazy Parse Tests
// ============================================================================

func TestEnsureParsedIdempotent(t *testing.T) {
	r := mustNew(t, threeCells())

	n1, err := r.ElementCount(0)
	if err != nil {
		t.Fatalf("ElementCount() error = %v", err)
	}
	first, _ := r.Element(0, 0)

	if err := r.EnsureParsed(0); err != nil {
		t.Fatalf("EnsureParsed() error = %v", err)
	}
	n2, _ := r.ElementCount(0)
	second, _ := r.Element(0, 0)

	if n1 != 2 || n2 != n1 {
		t.Errorf("ElementCount() = %d then %d, want 2 both times", n1, n2)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("element changed between parses: %+v vs %+v", first, second)
	}
	if state, _ := r.State(0); state != Parsed {
		t.Errorf("State() = %v, want parsed", state)
	}
}

func TestFailureIsolation(t *testing.T) {
	r := mustNew(t, threeCells())

	if n, err := r.ElementCount(0); err != nil || n != 2 {
		t.Errorf("A: ElementCount() = %d, %v, want 2", n, err)
	}

	_, err := r.ElementCount(1)
	if !errors.Is(err, core.ErrMalformedLength) {
		t.Errorf("B: ElementCount() error = %v, want ErrMalformedLength", err)
	}
	info, _ := r.Structure(1)
	if info.State != Failed || info.Err == nil {
		t.Errorf("B: state = %v, err = %v, want failed with error", info.State, info.Err)
	}

	if n, err := r.ElementCount(2); err != nil || n != 3 {
		t.Errorf("C: ElementCount() = %d, %v, want 3", n, err)
	}

	// A is still served from cache
	if state, _ := r.State(0); state != Parsed {
		t.Errorf("A: state = %v after B failed", state)
	}

	// retrying B fails again the same way
	if err := r.EnsureParsed(1); !errors.Is(err, core.ErrMalformedLength) {
		t.Errorf("B retry error = %v", err)
	}

	st := r.Stats()
	if st.Parsed != 2 || st.Failed != 1 || st.Elements != 5 {
		t.Errorf("Stats() = %+v, want 2 parsed, 1 failed, 5 elements", st)
	}
}

func TestParseAll(t *testing.T) {
	r := mustNew(t, threeCells())
	err := r.ParseAll()
	if err == nil {
		t.Fatal("ParseAll() error = nil, want B's failure")
	}
	if !errors.Is(err, core.ErrMalformedLength) {
		t.Errorf("ParseAll() error = %v", err)
	}
	if st := r.Stats(); st.Parsed != 2 || st.Failed != 1 {
		t.Errorf("Stats() = %+v", st)
	}
}

func TestEagerParse(t *testing.T) {
	r := mustNew(t, threeCells(), WithEagerParse(true))
	if st := r.Stats(); st.Parsed != 2 || st.Failed != 1 {
		t.Errorf("Stats() = %+v, want everything attempted", st)
	}
}

func TestEmptyStructure(t *testing.T) {
	data := gdstest.New().
		Header("LIB").
		Units(1e-3, 1e-9).
		BeginStructure("EMPTY").
		EndStructure().
		EndLibrary().
		Bytes()

	r := mustNew(t, data)
	n, err := r.ElementCount(0)
	if err != nil || n != 0 {
		t.Errorf("ElementCount() = %d, %v, want 0, nil", n, err)
	}
	if _, ok, err := r.StructureBounds(0); ok || err != nil {
		t.Errorf("StructureBounds() ok = %v, err = %v, want false, nil", ok, err)
	}
}

func TestUnterminatedStructure(t *testing.T) {
	data := gdstest.New().
		Header("LIB").
		Units(1e-3, 1e-9).
		BeginStructure("A").
		Boundary(1, 0, 0, 0, 1, 1).
		BeginStructure("B").
		EndStructure().
		EndLibrary().
		Bytes()

	r := mustNew(t, data)
	if _, err := r.ElementCount(0); !errors.Is(err, core.ErrUnexpectedRecordType) {
		t.Errorf("ElementCount(A) error = %v, want ErrUnexpectedRecordType", err)
	}
	if n, err := r.ElementCount(1); err != nil || n != 0 {
		t.Errorf("ElementCount(B) = %d, %v", n, err)
	}
}

func TestStructureWithoutEndLib(t *testing.T) {
	data := gdstest.New().
		Header("LIB").
		Units(1e-3, 1e-9).
		BeginStructure("A").
		Boundary(1, 0, 0, 0, 1, 1).
		EndStructure().
		Bytes()

	r := mustNew(t, data)
	if n, err := r.ElementCount(0); err != nil || n != 1 {
		t.Errorf("ElementCount() = %d, %v, want 1", n, err)
	}
}

func TestTruncatedLastStructure(t *testing.T) {
	tests := []struct {
		name string
		tail []byte
	}{
		// XY declares 32 payload bytes, 8 remain
		{"record past end", []byte{0x00, 0x24, 0x10, 0x03, 0, 0, 0, 1, 0, 0, 0, 2}},
		{"partial header", []byte{0x00, 0x24}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := gdstest.New().Header("LIB").Units(1e-3, 1e-9)
			b.BeginStructure("A").
				Boundary(1, 0, 0, 0, 10, 0, 10, 10, 0, 0).
				EndStructure()
			b.BeginStructure("B").
				Empty(core.RecBoundary).
				Int16s(core.RecLayer, 1).
				Raw(tt.tail)

			obs, logs := observer.New(zapcore.WarnLevel)
			r := mustNew(t, b.Bytes(), WithLogger(zap.New(obs)))

			if r.StructureCount() != 2 {
				t.Fatalf("StructureCount() = %d, want 2", r.StructureCount())
			}
			if logs.FilterMessage("structure truncated by end of buffer").Len() != 1 {
				t.Error("expected a truncation warning")
			}
			if n, err := r.ElementCount(0); err != nil || n != 1 {
				t.Errorf("A: ElementCount() = %d, %v, want 1", n, err)
			}

			err := r.EnsureParsed(1)
			if !errors.Is(err, core.ErrTruncated) {
				t.Errorf("B: EnsureParsed() error = %v, want ErrTruncated", err)
			}
			var pe *core.ParseError
			if !errors.As(err, &pe) {
				t.Errorf("B: error %T is not a *core.ParseError", err)
			}
			if state, _ := r.State(1); state != Failed {
				t.Errorf("B: state = %v, want failed", state)
			}
			if state, _ := r.State(0); state != Parsed {
				t.Errorf("A: state = %v, want parsed", state)
			}
			if err := r.Validate(); err != nil {
				t.Errorf("Validate() = %v", err)
			}
		})
	}
}

func TestElementWithoutXY(t *testing.T) {
	data := gdstest.New().
		Header("LIB").
		Units(1e-3, 1e-9).
		BeginStructure("S").
		Boundary(1, 0, 100, 100, 110, 100, 110, 110, 100, 100).
		Empty(core.RecBoundary).
		Int16s(core.RecLayer, 2).
		Empty(core.RecEndEl).
		EndStructure().
		EndLibrary().
		Bytes()

	r := mustNew(t, data)
	b, ok, err := r.StructureBounds(0)
	if !errors.Is(err, core.ErrUnexpectedRecordType) {
		t.Errorf("StructureBounds() = %+v, %v, %v, want ErrUnexpectedRecordType", b, ok, err)
	}
}

// ============================================================================
// Query Tests
// ============================================================================

func TestAggregates(t *testing.T) {
	r := mustNew(t, threeCells())

	refs, err := r.ReferenceCount(2)
	if err != nil || refs != 2 {
		t.Errorf("ReferenceCount(C) = %d, %v, want 2", refs, err)
	}

	b, ok, err := r.StructureBounds(2)
	if err != nil || !ok {
		t.Fatalf("StructureBounds(C) ok = %v, err = %v", ok, err)
	}
	want := model.BBox{MinX: -5, MinY: -5, MaxX: 200, MaxY: 100}
	if b != want {
		t.Errorf("StructureBounds(C) = %+v, want %+v", b, want)
	}

	elems, err := r.Elements(0)
	if err != nil || len(elems) != 2 {
		t.Fatalf("Elements(A) = %d, %v", len(elems), err)
	}
	if elems[1].Kind() != model.KindText {
		t.Errorf("Elements(A)[1].Kind() = %v, want Text", elems[1].Kind())
	}

	s, err := r.ParsedStructure(0)
	if err != nil || s.Name != "A" || len(s.Elements) != 2 {
		t.Errorf("ParsedStructure(0) = %+v, %v", s, err)
	}
}

func TestARefBounds(t *testing.T) {
	data := gdstest.New().
		Header("LIB").
		Units(1e-3, 1e-9).
		BeginStructure("TOP").
		Empty(core.RecARef).
		ASCII(core.RecSName, "CELL").
		Int16s(core.RecColRow, 3, 2).
		XY(0, 0, 30, 0, 0, 20).
		Empty(core.RecEndEl).
		EndStructure().
		EndLibrary().
		Bytes()

	r := mustNew(t, data)
	elem, err := r.Element(0, 0)
	if err != nil {
		t.Fatalf("Element() error = %v", err)
	}
	aref := elem.(*model.ARef)
	if aref.Columns != 3 || aref.Rows != 2 {
		t.Errorf("COLROW = %d x %d, want 3 x 2", aref.Columns, aref.Rows)
	}
	want := model.BBox{MinX: 0, MinY: 0, MaxX: 30, MaxY: 20}
	if aref.BoundingBox() != want {
		t.Errorf("BoundingBox() = %+v, want %+v", aref.BoundingBox(), want)
	}
}

func TestOutOfRange(t *testing.T) {
	r := mustNew(t, threeCells())

	tests := []struct {
		name string
		call func() error
	}{
		{"structure negative", func() error { _, err := r.StructureName(-1); return err }},
		{"structure past end", func() error { _, err := r.Structure(3); return err }},
		{"element count past end", func() error { _, err := r.ElementCount(3); return err }},
		{"element past end", func() error { _, err := r.Element(0, 2); return err }},
		{"element negative", func() error { _, err := r.Element(0, -1); return err }},
		{"ensure parsed", func() error { return r.EnsureParsed(99) }},
		{"state", func() error { _, err := r.State(-5); return err }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, core.ErrIndexOutOfRange) {
				t.Errorf("error = %v, want ErrIndexOutOfRange", err)
			}
		})
	}
}

// ============================================================================
// Logging, Stats and Fingerprint Tests
// ============================================================================

func TestLogging(t *testing.T) {
	obs, logs := observer.New(zapcore.DebugLevel)
	r := mustNew(t, threeCells(), WithLogger(zap.New(obs)))

	if logs.FilterMessage("library indexed").Len() != 1 {
		t.Error("expected a library indexed entry")
	}
	_ = r.ParseAll()
	if logs.FilterMessage("structure parsed").Len() != 2 {
		t.Errorf("structure parsed entries = %d, want 2", logs.FilterMessage("structure parsed").Len())
	}
	failed := logs.FilterMessage("structure parse failed").All()
	if len(failed) != 1 || failed[0].Level != zapcore.WarnLevel {
		t.Errorf("structure parse failed entries = %+v, want one warning", failed)
	}
}

func TestStatsCounts(t *testing.T) {
	r := mustNew(t, threeCells())
	if _, err := r.ElementCount(0); err != nil {
		t.Fatal(err)
	}
	st := r.Stats()
	// boundary with 4 vertices plus a text anchor
	if st.Vertices != 5 {
		t.Errorf("Vertices = %d, want 5", st.Vertices)
	}
	if st.DecodedBytes <= 0 {
		t.Errorf("DecodedBytes = %d, want > 0", st.DecodedBytes)
	}
	if st.BufferSize != r.Size() {
		t.Errorf("BufferSize = %d, want %d", st.BufferSize, r.Size())
	}
}

func TestStatsSkippedPerParse(t *testing.T) {
	unknown := core.RecordType(0x3E02)
	b := gdstest.New().Header("LIB").Units(1e-3, 1e-9)
	b.BeginStructure("OK").
		Empty(core.RecBoundary).
		Int16s(unknown, 1).
		XY(0, 0, 1, 0, 1, 1, 0, 0).
		Empty(core.RecEndEl).
		EndStructure()
	b.BeginStructure("BAD").
		Empty(core.RecBoundary).
		Int16s(unknown, 1).
		Int32s(core.RecXY, 1, 2, 3).
		Empty(core.RecEndEl).
		EndStructure()

	r := mustNew(t, b.EndLibrary().Bytes())
	for i := 0; i < 3; i++ {
		_ = r.ParseAll()
	}
	if st := r.Stats(); st.Skipped != 1 {
		t.Errorf("Skipped = %d after repeated parses, want 1", st.Skipped)
	}
}

func TestFingerprint(t *testing.T) {
	a := mustNew(t, gdstest.MinimalLibrary("X")).Fingerprint()
	b := mustNew(t, gdstest.MinimalLibrary("X")).Fingerprint()
	c := mustNew(t, gdstest.MinimalLibrary("Y")).Fingerprint()

	if a != b {
		t.Error("identical buffers have different fingerprints")
	}
	if a == c {
		t.Error("different buffers share a fingerprint")
	}
	if len(a.String()) != 64 {
		t.Errorf("String() length = %d, want 64", len(a.String()))
	}
}

func TestParseStateString(t *testing.T) {
	tests := []struct {
		state ParseState
		want  string
	}{
		{Unparsed, "unparsed"},
		{Parsed, "parsed"},
		{Failed, "failed"},
		{ParseState(9), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.state.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
