package googlesheets

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strings"
	"testing"

	sheetbind "github.com/ideamans/go-sheetbind"
	"google.golang.org/api/option"
)

const testMetadata = `{
	"spreadsheetId": "test-id",
	"properties": {"title": "Budget"},
	"sheets": [
		{"properties": {"sheetId": 0, "title": "Sheet1"}},
		{"properties": {"sheetId": 7, "title": "Data"}}
	],
	"namedRanges": [
		{
			"name": "Inputs",
			"range": {
				"sheetId": 7,
				"startRowIndex": 1,
				"endRowIndex": 4,
				"startColumnIndex": 1,
				"endColumnIndex": 3
			}
		}
	]
}`

// fakeBackend starts a fake Sheets API server serving the given value
// responses by request path, and returns a backend talking to it.
func fakeBackend(t *testing.T, values map[string]string) *Backend {
	t.Helper()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if r.URL.Path == "/v4/spreadsheets/test-id" {
			w.Write([]byte(testMetadata))
			return
		}
		if body, ok := values[r.URL.Path]; ok {
			if r.Method == http.MethodPut {
				w.Write([]byte(`{}`))
				return
			}
			w.Write([]byte(body))
			return
		}
		w.WriteHeader(404)
	}))
	t.Cleanup(server.Close)

	return NewBackend(context.Background(),
		option.WithEndpoint(server.URL), option.WithoutAuthentication())
}

func attach(t *testing.T, backend *Backend) sheetbind.Document {
	t.Helper()
	ctx := context.Background()

	inst, err := backend.ActiveInstance(ctx)
	if err != nil {
		t.Fatalf("ActiveInstance() error = %v", err)
	}
	doc, err := inst.Open(ctx, "test-id")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	return doc
}

func TestOpen(t *testing.T) {
	backend := fakeBackend(t, nil)
	ctx := context.Background()

	inst, err := backend.ActiveInstance(ctx)
	if err != nil {
		t.Fatalf("ActiveInstance() error = %v", err)
	}
	doc, err := inst.Open(ctx, "https://docs.google.com/spreadsheets/d/test-id/edit#gid=0")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	if doc.Name() != "Budget" {
		t.Errorf("Name() = %q, want Budget", doc.Name())
	}
	if doc.Path() != "test-id" {
		t.Errorf("Path() = %q, want test-id", doc.Path())
	}
	if !strings.Contains(doc.Key(), "test-id") {
		t.Errorf("Key() = %q, want spreadsheet ID inside", doc.Key())
	}
}

func TestSpreadsheetIDFromPath(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"abc123", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123/edit", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123", "abc123"},
		{"https://docs.google.com/spreadsheets/d/abc123/edit#gid=5", "abc123"},
	}

	for _, tt := range tests {
		if got := SpreadsheetIDFromPath(tt.path); got != tt.want {
			t.Errorf("SpreadsheetIDFromPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestSheetLookup(t *testing.T) {
	backend := fakeBackend(t, nil)
	doc := attach(t, backend)
	ctx := context.Background()

	sheet, err := doc.Sheet(ctx, "data")
	if err != nil {
		t.Fatalf("Sheet() error = %v (lookup is case-insensitive)", err)
	}
	if sheet.Name() != "Data" || sheet.Index() != 2 {
		t.Errorf("Sheet() = %q index %d, want Data index 2", sheet.Name(), sheet.Index())
	}

	if _, err := doc.Sheet(ctx, "Missing"); !errors.Is(err, sheetbind.ErrSheetNotFound) {
		t.Errorf("Sheet(Missing) error = %v, want ErrSheetNotFound", err)
	}
	if _, err := doc.SheetAt(ctx, 3); !errors.Is(err, sheetbind.ErrSheetNotFound) {
		t.Errorf("SheetAt(3) error = %v, want ErrSheetNotFound", err)
	}

	active, err := doc.ActiveSheet(ctx)
	if err != nil {
		t.Fatalf("ActiveSheet() error = %v", err)
	}
	if active.Name() != "Sheet1" {
		t.Errorf("ActiveSheet() = %q, want Sheet1", active.Name())
	}
}

func TestNamedRange(t *testing.T) {
	backend := fakeBackend(t, nil)
	doc := attach(t, backend)
	ctx := context.Background()

	sheet, region, err := doc.NamedRange(ctx, "inputs")
	if err != nil {
		t.Fatalf("NamedRange() error = %v", err)
	}
	if sheet.Name() != "Data" {
		t.Errorf("NamedRange() sheet = %q, want Data", sheet.Name())
	}
	want := sheetbind.NewRegion(
		sheetbind.Cell{Row: 2, Col: 2},
		sheetbind.Cell{Row: 4, Col: 3},
	)
	if region != want {
		t.Errorf("NamedRange() region = %+v, want %+v", region, want)
	}

	if _, _, err := doc.NamedRange(ctx, "Nope"); !errors.Is(err, sheetbind.ErrNameNotFound) {
		t.Errorf("NamedRange(Nope) error = %v, want ErrNameNotFound", err)
	}
}

func TestCellValue(t *testing.T) {
	backend := fakeBackend(t, map[string]string{
		"/v4/spreadsheets/test-id/values/Sheet1!B2": `{"values": [["42"]]}`,
		"/v4/spreadsheets/test-id/values/Sheet1!C3": `{}`,
	})
	doc := attach(t, backend)
	ctx := context.Background()

	sheet, err := doc.ActiveSheet(ctx)
	if err != nil {
		t.Fatalf("ActiveSheet() error = %v", err)
	}

	got, err := sheet.CellValue(ctx, 2, 2)
	if err != nil {
		t.Fatalf("CellValue() error = %v", err)
	}
	if got != int64(42) {
		t.Errorf("CellValue() = %v (%T), want int64(42)", got, got)
	}

	got, err = sheet.CellValue(ctx, 3, 3)
	if err != nil {
		t.Fatalf("CellValue() error = %v", err)
	}
	if got != nil {
		t.Errorf("CellValue() on blank cell = %v, want nil", got)
	}
}

func TestSetCellValue(t *testing.T) {
	backend := fakeBackend(t, map[string]string{
		"/v4/spreadsheets/test-id/values/Sheet1!A1": `{}`,
	})
	doc := attach(t, backend)
	ctx := context.Background()

	sheet, err := doc.ActiveSheet(ctx)
	if err != nil {
		t.Fatalf("ActiveSheet() error = %v", err)
	}
	if err := sheet.SetCellValue(ctx, 1, 1, 123); err != nil {
		t.Errorf("SetCellValue() error = %v", err)
	}
}

func TestCellFormula(t *testing.T) {
	backend := fakeBackend(t, map[string]string{
		"/v4/spreadsheets/test-id/values/Sheet1!A1": `{"values": [["=SUM(B1:B9)"]]}`,
		"/v4/spreadsheets/test-id/values/Sheet1!A2": `{"values": [["plain"]]}`,
	})
	doc := attach(t, backend)
	ctx := context.Background()

	sheet, err := doc.ActiveSheet(ctx)
	if err != nil {
		t.Fatalf("ActiveSheet() error = %v", err)
	}

	formula, err := sheet.CellFormula(ctx, 1, 1)
	if err != nil {
		t.Fatalf("CellFormula() error = %v", err)
	}
	if formula != "=SUM(B1:B9)" {
		t.Errorf("CellFormula() = %q, want =SUM(B1:B9)", formula)
	}

	formula, err = sheet.CellFormula(ctx, 2, 1)
	if err != nil {
		t.Fatalf("CellFormula() error = %v", err)
	}
	if formula != "" {
		t.Errorf("CellFormula() on literal cell = %q, want empty", formula)
	}
}

func TestEnd(t *testing.T) {
	backend := fakeBackend(t, map[string]string{
		"/v4/spreadsheets/test-id/values/Sheet1!A:ZZ": `{
			"values": [
				["a"],
				["b"],
				["c"],
				[],
				[],
				["far"]
			]
		}`,
	})
	doc := attach(t, backend)
	ctx := context.Background()

	sheet, err := doc.ActiveSheet(ctx)
	if err != nil {
		t.Fatalf("ActiveSheet() error = %v", err)
	}

	t.Run("walks to run end", func(t *testing.T) {
		got, err := sheet.End(ctx, 1, 1, sheetbind.DirDown)
		if err != nil {
			t.Fatalf("End() error = %v", err)
		}
		if (got != sheetbind.Cell{Row: 3, Col: 1}) {
			t.Errorf("End(down) = %+v, want {3 1}", got)
		}
	})

	t.Run("jumps over gap", func(t *testing.T) {
		got, err := sheet.End(ctx, 3, 1, sheetbind.DirDown)
		if err != nil {
			t.Fatalf("End() error = %v", err)
		}
		if (got != sheetbind.Cell{Row: 6, Col: 1}) {
			t.Errorf("End(down) = %+v, want {6 1}", got)
		}
	})

	t.Run("used extent", func(t *testing.T) {
		rows, err := sheet.RowCount(ctx)
		if err != nil {
			t.Fatalf("RowCount() error = %v", err)
		}
		if rows != 6 {
			t.Errorf("RowCount() = %d, want 6", rows)
		}
		cols, err := sheet.ColumnCount(ctx)
		if err != nil {
			t.Fatalf("ColumnCount() error = %v", err)
		}
		if cols != 1 {
			t.Errorf("ColumnCount() = %d, want 1", cols)
		}
	})
}

func TestStaleAfterClose(t *testing.T) {
	backend := fakeBackend(t, nil)
	doc := attach(t, backend)
	ctx := context.Background()

	sheet, err := doc.ActiveSheet(ctx)
	if err != nil {
		t.Fatalf("ActiveSheet() error = %v", err)
	}
	if err := doc.Close(ctx); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := sheet.CellValue(ctx, 1, 1); !errors.Is(err, sheetbind.ErrStaleHandle) {
		t.Errorf("CellValue() after close error = %v, want ErrStaleHandle", err)
	}
	if _, err := doc.Sheets(ctx); !errors.Is(err, sheetbind.ErrStaleHandle) {
		t.Errorf("Sheets() after close error = %v, want ErrStaleHandle", err)
	}
}

func TestConvertCellValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{"string number to int64", "123", int64(123)},
		{"string float to float64", "123.45", 123.45},
		{"string true to bool", "true", true},
		{"string TRUE to bool", "TRUE", true},
		{"string false to bool", "false", false},
		{"string FALSE to bool", "FALSE", false},
		{"plain string", "hello", "hello"},
		{"float64 integer to int64", 100.0, int64(100)},
		{"float64 decimal", 100.5, 100.5},
		{"bool true", true, true},
		{"bool false", false, false},
		{"other type to string", []int{1, 2, 3}, "[1 2 3]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertCellValue(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("convertCellValue(%v) = %v (%T), want %v (%T)",
					tt.input, got, got, tt.want, tt.want)
			}
		})
	}
}

func TestConvertToSheetValue(t *testing.T) {
	tests := []struct {
		name  string
		input interface{}
		want  interface{}
	}{
		{"nil to empty string", nil, ""},
		{"string", "hello", "hello"},
		{"int", 123, "123"},
		{"int64", int64(456), "456"},
		{"float64", 123.45, "123.45"},
		{"bool true", true, "TRUE"},
		{"bool false", false, "FALSE"},
		{"other type", []int{1, 2}, "[1 2]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := convertToSheetValue(tt.input)
			if got != tt.want {
				t.Errorf("convertToSheetValue(%v) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}
