// Package backendtest runs the sheetbind.Backend contract against any
// adapter. Adapter packages call Run from their own tests so every backend
// honors the same semantics the core relies on.
package backendtest

import (
	"context"
	"errors"
	"testing"

	sheetbind "github.com/ideamans/go-sheetbind"
)

// Factory creates a fresh, empty backend for one test.
type Factory func(t *testing.T) sheetbind.Backend

// Run exercises the Backend contract.
func Run(t *testing.T, factory Factory) {
	t.Run("ActiveInstanceStartsOne", func(t *testing.T) {
		backend := factory(t)
		ctx := context.Background()

		instances, err := backend.Instances(ctx)
		if err != nil {
			t.Fatalf("Instances() error = %v", err)
		}
		if len(instances) != 0 {
			t.Fatalf("Instances() = %d, want 0 before first use", len(instances))
		}

		if _, err := backend.ActiveInstance(ctx); err != nil {
			t.Fatalf("ActiveInstance() error = %v", err)
		}

		instances, err = backend.Instances(ctx)
		if err != nil {
			t.Fatalf("Instances() error = %v", err)
		}
		if len(instances) != 1 {
			t.Errorf("Instances() = %d, want 1 after ActiveInstance", len(instances))
		}
	})

	t.Run("CreateAndEnumerate", func(t *testing.T) {
		backend := factory(t)
		ctx := context.Background()

		inst, err := backend.ActiveInstance(ctx)
		if err != nil {
			t.Fatalf("ActiveInstance() error = %v", err)
		}
		doc, err := inst.Create(ctx)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if doc.Name() == "" {
			t.Error("Create() returned document without a name")
		}
		if doc.Key() == "" {
			t.Error("Create() returned document without a key")
		}

		docs, err := inst.Documents(ctx)
		if err != nil {
			t.Fatalf("Documents() error = %v", err)
		}
		found := false
		for _, d := range docs {
			if d.Key() == doc.Key() {
				found = true
			}
		}
		if !found {
			t.Error("created document not enumerated by its instance")
		}

		active, err := inst.ActiveDocument(ctx)
		if err != nil {
			t.Fatalf("ActiveDocument() error = %v", err)
		}
		if active.Key() != doc.Key() {
			t.Errorf("ActiveDocument() = %q, want %q", active.Key(), doc.Key())
		}
	})

	t.Run("CellRoundTrip", func(t *testing.T) {
		backend := factory(t)
		ctx := context.Background()

		sheet := createSheet(t, backend)
		if err := sheet.SetCellValue(ctx, 2, 3, "hello"); err != nil {
			t.Fatalf("SetCellValue() error = %v", err)
		}

		got, err := sheet.CellValue(ctx, 2, 3)
		if err != nil {
			t.Fatalf("CellValue() error = %v", err)
		}
		if got != "hello" {
			t.Errorf("CellValue() = %v, want %q", got, "hello")
		}

		empty, err := sheet.CellValue(ctx, 9, 9)
		if err != nil {
			t.Fatalf("CellValue() error = %v", err)
		}
		if empty != nil {
			t.Errorf("CellValue() on blank cell = %v, want nil", empty)
		}
	})

	t.Run("EndJumpsOverRun", func(t *testing.T) {
		backend := factory(t)
		ctx := context.Background()

		sheet := createSheet(t, backend)
		for row := 1; row <= 5; row++ {
			if err := sheet.SetCellValue(ctx, row, 1, row); err != nil {
				t.Fatalf("SetCellValue() error = %v", err)
			}
		}

		got, err := sheet.End(ctx, 2, 1, sheetbind.DirDown)
		if err != nil {
			t.Fatalf("End() error = %v", err)
		}
		want := sheetbind.Cell{Row: 5, Col: 1}
		if got != want {
			t.Errorf("End(down) = %+v, want %+v", got, want)
		}
	})

	t.Run("StaleAfterClose", func(t *testing.T) {
		backend := factory(t)
		ctx := context.Background()

		inst, err := backend.ActiveInstance(ctx)
		if err != nil {
			t.Fatalf("ActiveInstance() error = %v", err)
		}
		doc, err := inst.Create(ctx)
		if err != nil {
			t.Fatalf("Create() error = %v", err)
		}
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
		if _, err := doc.ActiveSheet(ctx); !errors.Is(err, sheetbind.ErrStaleHandle) {
			t.Errorf("ActiveSheet() after close error = %v, want ErrStaleHandle", err)
		}
	})
}

func createSheet(t *testing.T, backend sheetbind.Backend) sheetbind.Sheet {
	t.Helper()
	ctx := context.Background()

	inst, err := backend.ActiveInstance(ctx)
	if err != nil {
		t.Fatalf("ActiveInstance() error = %v", err)
	}
	doc, err := inst.Create(ctx)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	sheet, err := doc.ActiveSheet(ctx)
	if err != nil {
		t.Fatalf("ActiveSheet() error = %v", err)
	}
	return sheet
}
