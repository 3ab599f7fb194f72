package sheetbind

import (
	"context"
	"fmt"
)

// Contiguous-region expansion grows a single anchor cell (the top-left of
// the range) into the surrounding non-empty block. The probe order is a
// two-step lookahead before the directional jump: the immediate neighbor,
// then the cell two out, and only with three confirmed non-empty cells the
// backend's End jump. This keeps one- and two-cell neighborhoods from
// triggering a scan of the whole sheet.

// Table grows right and down from the anchor to the full contiguous
// non-empty rectangle. The bottom edge is found first, then the right edge
// from the anchor; no diagonal scan. An anchor with empty neighbors on both
// axes yields the anchor cell itself.
func (r *Range) Table(ctx context.Context) (*Range, error) {
	anchor := r.region.TopLeft

	bottom, err := r.farEdge(ctx, anchor, DirDown)
	if err != nil {
		return nil, err
	}
	right, err := r.farEdge(ctx, anchor, DirRight)
	if err != nil {
		return nil, err
	}

	return r.derive(NewRegion(anchor, Cell{Row: bottom, Col: right})), nil
}

// Vertical grows only downward from the anchor, keeping the range's column
// width fixed.
func (r *Range) Vertical(ctx context.Context) (*Range, error) {
	anchor := r.region.TopLeft

	bottom, err := r.farEdge(ctx, anchor, DirDown)
	if err != nil {
		return nil, err
	}

	br := Cell{Row: bottom, Col: anchor.Col + r.region.ColumnCount() - 1}
	return r.derive(NewRegion(anchor, br)), nil
}

// Horizontal grows only rightward from the anchor, keeping the range's row
// height fixed.
func (r *Range) Horizontal(ctx context.Context) (*Range, error) {
	anchor := r.region.TopLeft

	right, err := r.farEdge(ctx, anchor, DirRight)
	if err != nil {
		return nil, err
	}

	br := Cell{Row: anchor.Row + r.region.RowCount() - 1, Col: right}
	return r.derive(NewRegion(anchor, br)), nil
}

// farEdge returns the far coordinate (row for DirDown, column for DirRight)
// of the contiguous non-empty run starting at anchor.
func (r *Range) farEdge(ctx context.Context, anchor Cell, dir Direction) (int, error) {
	dr, dc := dirDelta(dir)

	one := Cell{Row: anchor.Row + dr, Col: anchor.Col + dc}
	empty, err := r.cellEmpty(ctx, one)
	if err != nil {
		return 0, err
	}
	if empty {
		return axisCoord(anchor, dir), nil
	}

	two := Cell{Row: anchor.Row + 2*dr, Col: anchor.Col + 2*dc}
	empty, err = r.cellEmpty(ctx, two)
	if err != nil {
		return 0, err
	}
	if empty {
		return axisCoord(one, dir), nil
	}

	if r.opts.StrictExpand {
		return r.strictEdge(ctx, two, dir)
	}

	end, err := r.sheet.End(ctx, one.Row, one.Col, dir)
	if err != nil {
		return 0, fmt.Errorf("failed to probe %s run: %w", dir, err)
	}
	return axisCoord(end, dir), nil
}

// strictEdge walks cell by cell from a known non-empty cell, stopping at
// the first blank computed value. Bounded by the sheet's used extent.
func (r *Range) strictEdge(ctx context.Context, from Cell, dir Direction) (int, error) {
	dr, dc := dirDelta(dir)

	var limit int
	var err error
	if dir == DirDown {
		limit, err = r.sheet.RowCount(ctx)
	} else {
		limit, err = r.sheet.ColumnCount(ctx)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read used extent: %w", err)
	}

	last := from
	for {
		next := Cell{Row: last.Row + dr, Col: last.Col + dc}
		if axisCoord(next, dir) > limit {
			return axisCoord(last, dir), nil
		}
		empty, err := r.cellEmpty(ctx, next)
		if err != nil {
			return 0, err
		}
		if empty {
			return axisCoord(last, dir), nil
		}
		last = next
	}
}

// cellEmpty applies the expansion emptiness test: a literal blank or an
// empty string counts as empty, but in default mode a cell holding a
// formula does not, even when it computes to blank. Strict mode goes by the
// computed value alone.
func (r *Range) cellEmpty(ctx context.Context, c Cell) (bool, error) {
	v, err := r.sheet.CellValue(ctx, c.Row, c.Col)
	if err != nil {
		return false, fmt.Errorf("failed to probe cell: %w", err)
	}
	if v != nil && v != "" {
		return false, nil
	}
	if r.opts.StrictExpand {
		return true, nil
	}

	formula, err := r.sheet.CellFormula(ctx, c.Row, c.Col)
	if err != nil {
		return false, fmt.Errorf("failed to probe cell formula: %w", err)
	}
	return formula == "", nil
}

func dirDelta(dir Direction) (int, int) {
	switch dir {
	case DirUp:
		return -1, 0
	case DirDown:
		return 1, 0
	case DirLeft:
		return 0, -1
	default:
		return 0, 1
	}
}

func axisCoord(c Cell, dir Direction) int {
	if dir == DirUp || dir == DirDown {
		return c.Row
	}
	return c.Col
}
