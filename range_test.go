package sheetbind_test

import (
	"context"
	"errors"
	"testing"

	sheetbind "github.com/ideamans/go-sheetbind"
	"github.com/ideamans/go-sheetbind/adapters/memory"
)

// fixture returns a session whose active document is a blank book with one
// sheet, plus the backend for seeding.
func fixture(t *testing.T) (*sheetbind.Session, *memory.Document) {
	t.Helper()
	backend := memory.New()

	inst, err := backend.NewInstance(context.Background())
	if err != nil {
		t.Fatalf("NewInstance() error = %v", err)
	}
	doc := inst.(*memory.Instance).AddDocument("Book1.xlsx", "")
	return newSession(backend), doc
}

func TestRange_EquivalentForms(t *testing.T) {
	session, doc := fixture(t)
	ctx := context.Background()
	doc.AddSheet("Data")

	want := sheetbind.NewRegion(sheetbind.Cell{Row: 1, Col: 1}, sheetbind.Cell{Row: 3, Col: 3})

	tests := []struct {
		name string
		args []interface{}
	}{
		{"address", []interface{}{"A1:C3"}},
		{"reversed address", []interface{}{"C3:A1"}},
		{"two tuples", []interface{}{sheetbind.Cell{Row: 1, Col: 1}, sheetbind.Cell{Row: 3, Col: 3}}},
		{"reversed tuples", []interface{}{sheetbind.Cell{Row: 3, Col: 3}, sheetbind.Cell{Row: 1, Col: 1}}},
		{"sheet name and address", []interface{}{"Data", "A1:C3"}},
		{"sheet index and address", []interface{}{2, "A1:C3"}},
		{"sheet name and tuples", []interface{}{"Data", sheetbind.Cell{Row: 1, Col: 1}, sheetbind.Cell{Row: 3, Col: 3}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := session.Range(ctx, tt.args...)
			if err != nil {
				t.Fatalf("Range(%v) error = %v", tt.args, err)
			}
			if r.Region() != want {
				t.Errorf("Range(%v) region = %+v, want %+v", tt.args, r.Region(), want)
			}
		})
	}
}

func TestRange_TwoRangeCorners(t *testing.T) {
	session, _ := fixture(t)
	ctx := context.Background()

	a, err := session.Range(ctx, "A1")
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	b, err := session.Range(ctx, "C3")
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}

	spanned, err := session.Range(ctx, b, a)
	if err != nil {
		t.Fatalf("Range(b, a) error = %v", err)
	}

	want := sheetbind.NewRegion(sheetbind.Cell{Row: 1, Col: 1}, sheetbind.Cell{Row: 3, Col: 3})
	if spanned.Region() != want {
		t.Errorf("Range(b, a) region = %+v, want %+v", spanned.Region(), want)
	}
}

func TestRange_ZeroBasedTuple(t *testing.T) {
	session, _ := fixture(t)
	ctx := context.Background()

	t.Run("zero row", func(t *testing.T) {
		_, err := session.Range(ctx, sheetbind.Cell{Row: 0, Col: 1})
		if !errors.Is(err, sheetbind.ErrZeroBasedAccess) {
			t.Errorf("Range() error = %v, want ErrZeroBasedAccess", err)
		}
	})

	t.Run("zero column", func(t *testing.T) {
		_, err := session.Range(ctx, sheetbind.Cell{Row: 1, Col: 0})
		if !errors.Is(err, sheetbind.ErrZeroBasedAccess) {
			t.Errorf("Range() error = %v, want ErrZeroBasedAccess", err)
		}
	})

	t.Run("zero in second corner", func(t *testing.T) {
		_, err := session.Range(ctx, sheetbind.Cell{Row: 1, Col: 1}, sheetbind.Cell{Row: 0, Col: 3})
		if !errors.Is(err, sheetbind.ErrZeroBasedAccess) {
			t.Errorf("Range() error = %v, want ErrZeroBasedAccess", err)
		}
	})

	t.Run("zero sheet index", func(t *testing.T) {
		_, err := session.Range(ctx, 0, "A1")
		if !errors.Is(err, sheetbind.ErrZeroBasedAccess) {
			t.Errorf("Range() error = %v, want ErrZeroBasedAccess", err)
		}
	})
}

func TestRange_InvalidArguments(t *testing.T) {
	session, _ := fixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		args []interface{}
	}{
		{"no args", nil},
		{"too many args", []interface{}{"Sheet1", "A1", "B2", "C3"}},
		{"two sheet identifiers", []interface{}{"Sheet1", 2, "A1"}},
		{"unsupported type", []interface{}{3.14}},
		{"range plus string", []interface{}{&sheetbind.Range{}, "A1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := session.Range(ctx, tt.args...)
			if !errors.Is(err, sheetbind.ErrInvalidArguments) {
				t.Errorf("Range(%v) error = %v, want ErrInvalidArguments", tt.args, err)
			}
		})
	}
}

func TestRange_NamedRange(t *testing.T) {
	session, doc := fixture(t)
	ctx := context.Background()

	data := doc.AddSheet("Data")
	region := sheetbind.NewRegion(sheetbind.Cell{Row: 2, Col: 2}, sheetbind.Cell{Row: 4, Col: 3})
	doc.DefineName("Sales", data, region)

	r, err := session.Range(ctx, "Sales")
	if err != nil {
		t.Fatalf("Range(\"Sales\") error = %v", err)
	}
	if r.Region() != region {
		t.Errorf("Range(\"Sales\") region = %+v, want %+v", r.Region(), region)
	}
	if r.Sheet().Name() != "Data" {
		t.Errorf("Range(\"Sales\") sheet = %q, want %q", r.Sheet().Name(), "Data")
	}

	t.Run("unknown name", func(t *testing.T) {
		_, err := session.Range(ctx, "NoSuchName")
		if !errors.Is(err, sheetbind.ErrNameNotFound) {
			t.Errorf("Range() error = %v, want ErrNameNotFound", err)
		}
	})
}

func TestRange_BindingFrozenAtConstruction(t *testing.T) {
	session, doc := fixture(t)
	ctx := context.Background()

	r, err := session.Range(ctx, "A1")
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	boundSheet := r.Sheet().Name()

	// Changing the active sheet afterwards must not move the range.
	doc.AddSheet("Later")

	if r.Sheet().Name() != boundSheet {
		t.Errorf("range re-bound to %q after sheet switch, want %q", r.Sheet().Name(), boundSheet)
	}
}

func TestRange_Address(t *testing.T) {
	session, doc := fixture(t)
	ctx := context.Background()

	r, err := session.Range(ctx, sheetbind.Cell{Row: 1, Col: 1}, sheetbind.Cell{Row: 3, Col: 3})
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}

	tests := []struct {
		name         string
		rowAbs       bool
		colAbs       bool
		includeSheet bool
		external     bool
		want         string
	}{
		{"absolute", true, true, false, false, "$A$1:$C$3"},
		{"relative", false, false, false, false, "A1:C3"},
		{"with sheet", true, false, true, false, "Sheet1!A$1:C$3"},
		{"external", true, false, false, true, "[Book1.xlsx]Sheet1!A$1:C$3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := r.Address(tt.rowAbs, tt.colAbs, tt.includeSheet, tt.external)
			if got != tt.want {
				t.Errorf("Address() = %q, want %q", got, tt.want)
			}
		})
	}

	t.Run("quoted sheet name", func(t *testing.T) {
		doc.AddSheet("My Data")
		r, err := session.Range(ctx, "My Data", "A1")
		if err != nil {
			t.Fatalf("Range() error = %v", err)
		}
		if got := r.Address(true, true, true, false); got != "'My Data'!$A$1" {
			t.Errorf("Address() = %q, want %q", got, "'My Data'!$A$1")
		}
	})
}

func TestRange_OffsetResizeLastCell(t *testing.T) {
	session, _ := fixture(t)
	ctx := context.Background()

	r, err := session.Range(ctx, "B2:C4")
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}

	if got := r.Offset(1, 2).Address(false, false, false, false); got != "D3:E5" {
		t.Errorf("Offset(1, 2) = %q, want D3:E5", got)
	}
	if got := r.Resize(1, 0).Address(false, false, false, false); got != "B2:C2" {
		t.Errorf("Resize(1, 0) = %q, want B2:C2", got)
	}
	if got := r.Resize(0, 1).Address(false, false, false, false); got != "B2:B4" {
		t.Errorf("Resize(0, 1) = %q, want B2:B4", got)
	}
	if got := r.LastCell().Address(false, false, false, false); got != "C4" {
		t.Errorf("LastCell() = %q, want C4", got)
	}
}

func TestRange_ValueRoundTrip(t *testing.T) {
	session, _ := fixture(t)
	ctx := context.Background()

	r, err := session.Range(ctx, "A1:B2")
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}

	data := [][]interface{}{{int64(1), int64(2)}, {int64(3), int64(4)}}
	if err := r.SetValue(ctx, data); err != nil {
		t.Fatalf("SetValue() error = %v", err)
	}

	got, err := r.Value(ctx)
	if err != nil {
		t.Fatalf("Value() error = %v", err)
	}
	rows, ok := got.([][]interface{})
	if !ok {
		t.Fatalf("Value() = %T, want [][]interface{}", got)
	}
	if rows[0][0] != int64(1) || rows[1][1] != int64(4) {
		t.Errorf("Value() = %v, want %v", rows, data)
	}

	t.Run("aliasing view sees writes", func(t *testing.T) {
		alias, err := session.Range(ctx, "A1")
		if err != nil {
			t.Fatalf("Range() error = %v", err)
		}
		if err := alias.SetValue(ctx, int64(99)); err != nil {
			t.Fatalf("SetValue() error = %v", err)
		}

		got, err := r.Value(ctx)
		if err != nil {
			t.Fatalf("Value() error = %v", err)
		}
		if got.([][]interface{})[0][0] != int64(99) {
			t.Errorf("aliased write not visible: got %v", got)
		}
	})

	t.Run("single cell reads scalar", func(t *testing.T) {
		cell, err := session.Range(ctx, "A1")
		if err != nil {
			t.Fatalf("Range() error = %v", err)
		}
		got, err := cell.Value(ctx)
		if err != nil {
			t.Fatalf("Value() error = %v", err)
		}
		if got != int64(99) {
			t.Errorf("Value() = %v (%T), want 99", got, got)
		}
	})
}

func TestRange_OptionsValidation(t *testing.T) {
	session, _ := fixture(t)
	ctx := context.Background()

	_, err := session.RangeWith(ctx, sheetbind.Options{Expand: "diagonal"}, "A1")
	if !errors.Is(err, sheetbind.ErrInvalidArguments) {
		t.Errorf("RangeWith(bad expand) error = %v, want ErrInvalidArguments", err)
	}

	_, err = session.RangeWith(ctx, sheetbind.Options{NDim: 3}, "A1")
	if !errors.Is(err, sheetbind.ErrInvalidArguments) {
		t.Errorf("RangeWith(ndim 3) error = %v, want ErrInvalidArguments", err)
	}

	r, err := session.Range(ctx, "A1")
	if err != nil {
		t.Fatalf("Range() error = %v", err)
	}
	if _, err := r.WithOptions(sheetbind.Options{Numbers: "complex"}); !errors.Is(err, sheetbind.ErrInvalidArguments) {
		t.Errorf("WithOptions(bad numbers) error = %v, want ErrInvalidArguments", err)
	}
}
