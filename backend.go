package sheetbind

import "context"

// Direction identifies an axis direction for contiguous-run probes.
type Direction int

const (
	DirUp Direction = iota
	DirDown
	DirLeft
	DirRight
)

func (d Direction) String() string {
	switch d {
	case DirUp:
		return "up"
	case DirDown:
		return "down"
	case DirLeft:
		return "left"
	case DirRight:
		return "right"
	}
	return "unknown"
}

// Backend is the automation transport behind a Session. It gives access to
// the running host application instances; the core never assumes a
// singleton process.
type Backend interface {
	// Instances enumerates the live application instances. The result
	// reflects live state and must not be cached by implementations.
	Instances(ctx context.Context) ([]Instance, error)

	// ActiveInstance returns the most recently activated instance. If no
	// instance is running it starts one; this is a documented side effect.
	ActiveInstance(ctx context.Context) (Instance, error)

	// NewInstance starts a fresh application instance.
	NewInstance(ctx context.Context) (Instance, error)
}

// Instance is one running host application process holding zero or more
// open documents.
type Instance interface {
	// Documents enumerates the documents currently open in this instance.
	Documents(ctx context.Context) ([]Document, error)

	// ActiveDocument returns the most recently activated document of this
	// instance, or ErrNotFound if none is open.
	ActiveDocument(ctx context.Context) (Document, error)

	// Open opens the document at path from disk and makes it active.
	Open(ctx context.Context, path string) (Document, error)

	// Create adds a blank document and makes it active.
	Create(ctx context.Context) (Document, error)

	// Activate gives this instance host-wide focus.
	Activate(ctx context.Context) error
}

// Document is an opaque reference to one open document inside one instance.
// It becomes stale when the document is closed; any later operation returns
// ErrStaleHandle.
type Document interface {
	// Name is the display name of the document.
	Name() string

	// Path is the full on-disk path, empty if the document was never saved.
	Path() string

	// Key uniquely identifies the underlying open document within its
	// backend. Two Documents reference the same open document iff their
	// keys are equal.
	Key() string

	// Sheets enumerates the document's sheets in order.
	Sheets(ctx context.Context) ([]Sheet, error)

	// Sheet looks a sheet up by its case-insensitive name.
	Sheet(ctx context.Context, name string) (Sheet, error)

	// SheetAt looks a sheet up by its 1-based index.
	SheetAt(ctx context.Context, index int) (Sheet, error)

	// ActiveSheet returns the sheet currently selected in the document.
	ActiveSheet(ctx context.Context) (Sheet, error)

	// NamedRange resolves a defined name to its sheet and region, or
	// ErrNameNotFound.
	NamedRange(ctx context.Context, name string) (Sheet, Region, error)

	// Activate makes this document the active document of its instance.
	Activate(ctx context.Context) error

	// Close closes the document. All handles into it become stale.
	Close(ctx context.Context) error
}

// Sheet is one page of a document. All coordinates are 1-based.
type Sheet interface {
	// Name is the sheet's display name, unique within its document.
	Name() string

	// Index is the sheet's 1-based position in its document.
	Index() int

	// Document returns the handle of the document owning this sheet.
	Document() Document

	// CellValue reads a single cell's value. Empty cells yield nil.
	CellValue(ctx context.Context, row, col int) (interface{}, error)

	// SetCellValue writes a single cell's value.
	SetCellValue(ctx context.Context, row, col int, value interface{}) error

	// CellFormula returns the formula text of a cell, empty if the cell
	// holds a plain value.
	CellFormula(ctx context.Context, row, col int) (string, error)

	// RowCount returns the number of rows in the sheet's used extent.
	RowCount(ctx context.Context) (int, error)

	// ColumnCount returns the number of columns in the sheet's used extent.
	ColumnCount(ctx context.Context) (int, error)

	// End jumps from (row, col) to the last contiguous non-empty cell in
	// the given direction, mirroring the host's Ctrl-arrow navigation. If
	// the starting cell's neighbor is empty it jumps to the next non-empty
	// cell or the sheet edge.
	End(ctx context.Context, row, col int, dir Direction) (Cell, error)
}
