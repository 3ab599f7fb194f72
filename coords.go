package sheetbind

import (
	"fmt"
	"strconv"
	"strings"
)

// Cell is a single 1-based cell coordinate.
type Cell struct {
	Row int
	Col int
}

// Valid reports whether both coordinates are at least 1.
func (c Cell) Valid() bool {
	return c.Row >= 1 && c.Col >= 1
}

// Region is a normalized rectangular block of cells. TopLeft is never below
// or right of BottomRight.
type Region struct {
	TopLeft     Cell
	BottomRight Cell
}

// NewRegion builds a normalized Region from two opposite corners, in any
// order.
func NewRegion(a, b Cell) Region {
	tl := Cell{Row: minInt(a.Row, b.Row), Col: minInt(a.Col, b.Col)}
	br := Cell{Row: maxInt(a.Row, b.Row), Col: maxInt(a.Col, b.Col)}
	return Region{TopLeft: tl, BottomRight: br}
}

// SingleCell builds a 1x1 Region.
func SingleCell(c Cell) Region {
	return Region{TopLeft: c, BottomRight: c}
}

// RowCount returns the number of rows in the region.
func (r Region) RowCount() int {
	return r.BottomRight.Row - r.TopLeft.Row + 1
}

// ColumnCount returns the number of columns in the region.
func (r Region) ColumnCount() int {
	return r.BottomRight.Col - r.TopLeft.Col + 1
}

// Size returns the number of cells in the region.
func (r Region) Size() int {
	return r.RowCount() * r.ColumnCount()
}

// Contains reports whether c lies inside the region.
func (r Region) Contains(c Cell) bool {
	return c.Row >= r.TopLeft.Row && c.Row <= r.BottomRight.Row &&
		c.Col >= r.TopLeft.Col && c.Col <= r.BottomRight.Col
}

// Offset shifts the whole region by the given row and column deltas.
func (r Region) Offset(rowDelta, colDelta int) Region {
	return Region{
		TopLeft:     Cell{Row: r.TopLeft.Row + rowDelta, Col: r.TopLeft.Col + colDelta},
		BottomRight: Cell{Row: r.BottomRight.Row + rowDelta, Col: r.BottomRight.Col + colDelta},
	}
}

// Resize keeps the top-left corner and changes the extent. Zero or negative
// sizes keep the current extent on that axis.
func (r Region) Resize(rows, cols int) Region {
	if rows <= 0 {
		rows = r.RowCount()
	}
	if cols <= 0 {
		cols = r.ColumnCount()
	}
	return Region{
		TopLeft:     r.TopLeft,
		BottomRight: Cell{Row: r.TopLeft.Row + rows - 1, Col: r.TopLeft.Col + cols - 1},
	}
}

// CellAt returns the absolute coordinate of the 1-based (row, col) position
// relative to the region's top-left corner. Positions may exceed the
// region's extent, matching host range semantics.
func (r Region) CellAt(row, col int) Cell {
	return Cell{Row: r.TopLeft.Row + row - 1, Col: r.TopLeft.Col + col - 1}
}

// ColumnName converts a 1-based column number to its letter form
// (1 -> A, 26 -> Z, 27 -> AA).
func ColumnName(col int) string {
	result := ""
	for col > 0 {
		col--
		result = string(rune('A'+col%26)) + result
		col /= 26
	}
	return result
}

// ColumnNumber converts a column letter form back to its 1-based number.
// Returns 0 for input that is not pure letters.
func ColumnNumber(name string) int {
	col := 0
	for _, r := range strings.ToUpper(name) {
		if r < 'A' || r > 'Z' {
			return 0
		}
		col = col*26 + int(r-'A'+1)
	}
	return col
}

// FormatCellAddress renders one cell in A1 notation with optional absolute
// markers.
func FormatCellAddress(c Cell, rowAbsolute, colAbsolute bool) string {
	var b strings.Builder
	if colAbsolute {
		b.WriteByte('$')
	}
	b.WriteString(ColumnName(c.Col))
	if rowAbsolute {
		b.WriteByte('$')
	}
	b.WriteString(strconv.Itoa(c.Row))
	return b.String()
}

// FormatAddress renders a region in A1 notation. Single-cell regions render
// without a colon.
func FormatAddress(r Region, rowAbsolute, colAbsolute bool) string {
	first := FormatCellAddress(r.TopLeft, rowAbsolute, colAbsolute)
	if r.Size() == 1 {
		return first
	}
	return first + ":" + FormatCellAddress(r.BottomRight, rowAbsolute, colAbsolute)
}

// ParseAddress parses A1-notation addresses like "A1", "$B$2" or "A1:C3"
// into a normalized Region. A row of 0 (as in "A0") wraps
// ErrZeroBasedAccess; anything that is not an address wraps
// ErrInvalidArguments.
func ParseAddress(address string) (Region, error) {
	parts := strings.Split(address, ":")
	if len(parts) > 2 {
		return Region{}, fmt.Errorf("address %q: %w", address, ErrInvalidArguments)
	}

	first, err := parseCellAddress(parts[0])
	if err != nil {
		return Region{}, fmt.Errorf("address %q: %w", address, err)
	}
	if len(parts) == 1 {
		return SingleCell(first), nil
	}

	second, err := parseCellAddress(parts[1])
	if err != nil {
		return Region{}, fmt.Errorf("address %q: %w", address, err)
	}
	return NewRegion(first, second), nil
}

func parseCellAddress(token string) (Cell, error) {
	s := strings.TrimPrefix(strings.TrimSpace(token), "$")
	i := 0
	for i < len(s) && isLetter(s[i]) {
		i++
	}
	if i == 0 {
		return Cell{}, ErrInvalidArguments
	}
	letters := s[:i]
	digits := strings.TrimPrefix(s[i:], "$")
	if digits == "" {
		return Cell{}, ErrInvalidArguments
	}
	row, err := strconv.Atoi(digits)
	if err != nil {
		return Cell{}, ErrInvalidArguments
	}
	if row == 0 {
		return Cell{}, &ZeroBasedAccessError{Axis: "row"}
	}
	if row < 0 {
		return Cell{}, ErrInvalidArguments
	}
	col := ColumnNumber(letters)
	if col == 0 {
		return Cell{}, ErrInvalidArguments
	}
	return Cell{Row: row, Col: col}, nil
}

func isLetter(b byte) bool {
	return (b >= 'A' && b <= 'Z') || (b >= 'a' && b <= 'z')
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
