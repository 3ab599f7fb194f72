package sheetbind

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Range is a bound view on a rectangular block of cells. It owns no cell
// data: every value access goes through the backend at the moment of the
// call, so aliasing Ranges always observe each other's writes. The sheet
// binding is frozen at construction and never re-resolved.
type Range struct {
	session *Session
	sheet   Sheet
	region  Region
	opts    Options
	empty   bool // degenerate slice result covering no cells
}

// NewRange binds a region to a sheet directly, bypassing the builder forms.
func NewRange(sheet Sheet, region Region) *Range {
	return &Range{sheet: sheet, region: region}
}

// Range builds a bound Range from one of the accepted forms:
//
//	s.Range(ctx, "A1")
//	s.Range(ctx, "A1:C3")
//	s.Range(ctx, "NamedRange")
//	s.Range(ctx, "Sheet1", "A1:C3")
//	s.Range(ctx, 1, "A1")
//	s.Range(ctx, Cell{Row: 1, Col: 2})
//	s.Range(ctx, "Sheet1", Cell{Row: 1, Col: 1}, Cell{Row: 3, Col: 3})
//	s.Range(ctx, rangeA, rangeB)
//
// A leading sheet identifier may be a name, a 1-based index or a Sheet.
// Without one, the range binds to the active sheet of the active document,
// resolved exactly once here. Equivalent forms produce identical regions.
func (s *Session) Range(ctx context.Context, args ...interface{}) (*Range, error) {
	return s.RangeWith(ctx, Options{}, args...)
}

// RangeWith is Range with an explicit options bag attached to the result.
func (s *Session) RangeWith(ctx context.Context, opts Options, args ...interface{}) (*Range, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	if len(args) == 0 {
		return nil, fmt.Errorf("no range specification given: %w", ErrInvalidArguments)
	}

	// Two resolved Ranges span a rectangle covering both corners.
	if a, ok := args[0].(*Range); ok {
		if len(args) != 2 {
			return nil, fmt.Errorf("a Range corner needs exactly one Range partner: %w", ErrInvalidArguments)
		}
		b, ok := args[1].(*Range)
		if !ok {
			return nil, fmt.Errorf("cannot combine a Range corner with %T: %w", args[1], ErrInvalidArguments)
		}
		r, err := a.Span(b)
		if err != nil {
			return nil, err
		}
		r.session = s
		r.opts = opts
		return r, nil
	}

	spec, sheetIdent, err := splitRangeArgs(args)
	if err != nil {
		return nil, err
	}

	sheet, doc, err := s.bindSheet(ctx, sheetIdent)
	if err != nil {
		return nil, err
	}

	region, namedSheet, err := resolveSpec(ctx, spec, doc)
	if err != nil {
		return nil, err
	}
	if namedSheet != nil {
		// A defined name carries its own sheet binding.
		sheet = namedSheet
	}

	return &Range{session: s, sheet: sheet, region: region, opts: opts}, nil
}

// rangeSpec is the positional part of the arguments after the optional
// sheet identifier: an address/name token or one or two cells.
type rangeSpec struct {
	token string
	cells []Cell
}

// splitRangeArgs separates the trailing range specification from the
// optional leading sheet identifier, following the documented argument
// shapes.
func splitRangeArgs(args []interface{}) (rangeSpec, interface{}, error) {
	if len(args) > 3 {
		return rangeSpec{}, nil, fmt.Errorf("too many arguments (%d): %w", len(args), ErrInvalidArguments)
	}

	var spec rangeSpec
	specLen := 0

	last := args[len(args)-1]
	switch v := last.(type) {
	case Cell:
		spec.cells = []Cell{v}
		specLen = 1
		if len(args) >= 2 {
			if prev, ok := args[len(args)-2].(Cell); ok {
				spec.cells = []Cell{prev, v}
				specLen = 2
			}
		}
	case string:
		spec.token = v
		specLen = 1
	default:
		return rangeSpec{}, nil, fmt.Errorf("cannot build a range from %T: %w", last, ErrInvalidArguments)
	}

	for _, c := range spec.cells {
		if c.Row == 0 {
			return rangeSpec{}, nil, &ZeroBasedAccessError{Axis: "row"}
		}
		if c.Col == 0 {
			return rangeSpec{}, nil, &ZeroBasedAccessError{Axis: "column"}
		}
		if c.Row < 0 || c.Col < 0 {
			return rangeSpec{}, nil, fmt.Errorf("negative coordinate (%d, %d): %w", c.Row, c.Col, ErrInvalidArguments)
		}
	}

	residual := args[:len(args)-specLen]
	switch len(residual) {
	case 0:
		return spec, nil, nil
	case 1:
		return spec, residual[0], nil
	default:
		return rangeSpec{}, nil, fmt.Errorf("more than one sheet identifier: %w", ErrInvalidArguments)
	}
}

// bindSheet resolves the optional sheet identifier, defaulting to the
// active sheet of the active document.
func (s *Session) bindSheet(ctx context.Context, ident interface{}) (Sheet, Document, error) {
	switch v := ident.(type) {
	case nil:
		sheet, err := s.activeSheet(ctx)
		if err != nil {
			return nil, nil, err
		}
		return sheet, sheet.Document(), nil
	case Sheet:
		return v, v.Document(), nil
	case string:
		doc, err := s.activeDocument(ctx)
		if err != nil {
			return nil, nil, err
		}
		sheet, err := doc.Sheet(ctx, v)
		if err != nil {
			return nil, nil, err
		}
		return sheet, doc, nil
	case int:
		if v == 0 {
			return nil, nil, &ZeroBasedAccessError{Axis: "sheet index"}
		}
		doc, err := s.activeDocument(ctx)
		if err != nil {
			return nil, nil, err
		}
		sheet, err := doc.SheetAt(ctx, v)
		if err != nil {
			return nil, nil, err
		}
		return sheet, doc, nil
	default:
		return nil, nil, fmt.Errorf("cannot use %T as sheet identifier: %w", ident, ErrInvalidArguments)
	}
}

// resolveSpec turns the positional specification into a region. A token
// that is not an address is looked up as a defined name of doc; the
// returned sheet is non-nil when the name binds a different sheet.
func resolveSpec(ctx context.Context, spec rangeSpec, doc Document) (Region, Sheet, error) {
	switch len(spec.cells) {
	case 1:
		return SingleCell(spec.cells[0]), nil, nil
	case 2:
		return NewRegion(spec.cells[0], spec.cells[1]), nil, nil
	}

	region, err := ParseAddress(spec.token)
	if err == nil {
		return region, nil, nil
	}
	if !isInvalidAddress(err) {
		return Region{}, nil, err
	}

	sheet, region, nameErr := doc.NamedRange(ctx, spec.token)
	if nameErr != nil {
		return Region{}, nil, fmt.Errorf("token %q is neither an address nor a defined name: %w", spec.token, nameErr)
	}
	return region, sheet, nil
}

// isInvalidAddress distinguishes "not an address at all" from addressing
// errors like zero-based rows, which must not fall back to name lookup.
func isInvalidAddress(err error) bool {
	return err != nil && !errors.Is(err, ErrZeroBasedAccess)
}

// Sheet returns the sheet this range is bound to.
func (r *Range) Sheet() Sheet {
	return r.sheet
}

// Region returns the range's normalized coordinates.
func (r *Range) Region() Region {
	return r.region
}

// Options returns the range's read/write options bag.
func (r *Range) Options() Options {
	return r.opts
}

// WithOptions returns a view on the same cells with a different options
// bag.
func (r *Range) WithOptions(opts Options) (*Range, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Range{session: r.session, sheet: r.sheet, region: r.region, opts: opts}, nil
}

// Rows returns the number of rows covered.
func (r *Range) Rows() int {
	if r.empty {
		return 0
	}
	return r.region.RowCount()
}

// Columns returns the number of columns covered.
func (r *Range) Columns() int {
	if r.empty {
		return 0
	}
	return r.region.ColumnCount()
}

// Shape returns (rows, columns).
func (r *Range) Shape() (int, int) {
	return r.Rows(), r.Columns()
}

// Count returns the number of cells covered, 0 for an empty slice result.
func (r *Range) Count() int {
	return r.Rows() * r.Columns()
}

// Cell returns the single-cell range at the 1-based position relative to
// this range's top-left corner. Positions may lie outside the range's
// extent, matching host semantics.
func (r *Range) Cell(row, col int) (*Range, error) {
	if row == 0 {
		return nil, &ZeroBasedAccessError{Axis: "row"}
	}
	if col == 0 {
		return nil, &ZeroBasedAccessError{Axis: "column"}
	}
	return r.derive(SingleCell(r.region.CellAt(row, col))), nil
}

// Offset returns a view shifted by the given deltas.
func (r *Range) Offset(rowDelta, colDelta int) *Range {
	return r.derive(r.region.Offset(rowDelta, colDelta))
}

// Resize returns a view with the same top-left corner and a new extent.
// Zero or negative sizes keep the current extent on that axis.
func (r *Range) Resize(rows, cols int) *Range {
	return r.derive(r.region.Resize(rows, cols))
}

// LastCell returns the bottom-right cell of the range.
func (r *Range) LastCell() *Range {
	return r.derive(SingleCell(r.region.BottomRight))
}

// Span returns a rectangle covering this range and other. Both must be
// bound to the same sheet.
func (r *Range) Span(other *Range) (*Range, error) {
	if !sameSheet(r.sheet, other.sheet) {
		return nil, fmt.Errorf("ranges on sheets %q and %q cannot span a rectangle: %w",
			r.sheet.Name(), other.sheet.Name(), ErrInvalidArguments)
	}
	corners := NewRegion(
		Cell{
			Row: minInt(r.region.TopLeft.Row, other.region.TopLeft.Row),
			Col: minInt(r.region.TopLeft.Col, other.region.TopLeft.Col),
		},
		Cell{
			Row: maxInt(r.region.BottomRight.Row, other.region.BottomRight.Row),
			Col: maxInt(r.region.BottomRight.Col, other.region.BottomRight.Col),
		},
	)
	return r.derive(corners), nil
}

// Address renders the range in A1 notation. includeSheet prefixes the sheet
// name; external additionally prefixes the document name and implies
// includeSheet.
func (r *Range) Address(rowAbsolute, colAbsolute, includeSheet, external bool) string {
	addr := FormatAddress(r.region, rowAbsolute, colAbsolute)
	if external {
		return "[" + r.sheet.Document().Name() + "]" + quoteSheetName(r.sheet.Name()) + "!" + addr
	}
	if includeSheet {
		return quoteSheetName(r.sheet.Name()) + "!" + addr
	}
	return addr
}

// Value reads the range through the converter, honoring the options bag.
// An Expand option grows the read region first.
func (r *Range) Value(ctx context.Context) (interface{}, error) {
	// An empty slice view covers no cells; the retained region is only an
	// anchor and must not be read.
	if r.empty {
		if r.opts.NDim == 1 {
			return []interface{}{}, nil
		}
		return [][]interface{}{}, nil
	}
	target := r
	switch r.opts.Expand {
	case ExpandTable:
		expanded, err := r.Table(ctx)
		if err != nil {
			return nil, err
		}
		target = expanded
	case ExpandVertical:
		expanded, err := r.Vertical(ctx)
		if err != nil {
			return nil, err
		}
		target = expanded
	case ExpandHorizontal:
		expanded, err := r.Horizontal(ctx)
		if err != nil {
			return nil, err
		}
		target = expanded
	}
	return target.converter().Read(ctx, target, target.opts)
}

// SetValue writes value into the range through the converter. Writing to
// an empty slice view touches no cells.
func (r *Range) SetValue(ctx context.Context, value interface{}) error {
	if r.empty {
		return nil
	}
	return r.converter().Write(ctx, value, r, r.opts)
}

func (r *Range) converter() Converter {
	if r.opts.Convert != nil {
		return r.opts.Convert
	}
	if r.session != nil && r.session.converter != nil {
		return r.session.converter
	}
	return BasicConverter{}
}

// derive keeps the sheet binding and options of the source range.
func (r *Range) derive(region Region) *Range {
	return &Range{session: r.session, sheet: r.sheet, region: region, opts: r.opts}
}

func sameSheet(a, b Sheet) bool {
	return a.Document().Key() == b.Document().Key() && strings.EqualFold(a.Name(), b.Name())
}

func quoteSheetName(name string) string {
	if strings.ContainsAny(name, " '") {
		return "'" + strings.ReplaceAll(name, "'", "''") + "'"
	}
	return name
}
