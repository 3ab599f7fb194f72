package sheetbind

import "fmt"

// Element access on a Range is 0-based with negative wraparound, a
// deliberate presentation layer on top of the 1-based address space used
// for construction. Traversal is row-major.

// At returns the single-cell range at linear element index i. Negative
// indices count from the end.
func (r *Range) At(i int) (*Range, error) {
	count := r.Count()
	idx, err := resolveIndex(i, count)
	if err != nil {
		return nil, err
	}
	cols := r.Columns()
	return r.Cell(idx/cols+1, idx%cols+1)
}

// AtRC returns the single-cell range at the 0-based (rowIndex, colIndex)
// position. Negative indices count from the end of their axis.
func (r *Range) AtRC(rowIndex, colIndex int) (*Range, error) {
	ri, err := resolveIndex(rowIndex, r.Rows())
	if err != nil {
		return nil, err
	}
	ci, err := resolveIndex(colIndex, r.Columns())
	if err != nil {
		return nil, err
	}
	return r.Cell(ri+1, ci+1)
}

// Slice returns the sub-range spanning linear elements [start, stop). The
// result is the rectangle whose corners are the first and last selected
// element. A normalized stop at or before start yields an empty range with
// Count() == 0.
func (r *Range) Slice(start, stop int) (*Range, error) {
	count := r.Count()
	lo, hi, err := resolveSpan(start, stop, true, true, count)
	if err != nil {
		return nil, err
	}
	if hi <= lo {
		return r.emptyView(), nil
	}

	first, err := r.At(lo)
	if err != nil {
		return nil, err
	}
	last, err := r.At(hi - 1)
	if err != nil {
		return nil, err
	}
	return first.Span(last)
}

// Span selects a contiguous 0-based index interval on one axis of a
// two-dimensional slice. The zero value selects the whole axis.
type Span struct {
	start, stop       int
	hasStart, hasStop bool
	step              int
}

// SpanAll selects an entire axis.
func SpanAll() Span {
	return Span{}
}

// NewSpan selects [start, stop) on an axis.
func NewSpan(start, stop int) Span {
	return Span{start: start, stop: stop, hasStart: true, hasStop: true}
}

// SpanFrom selects [start, axis length).
func SpanFrom(start int) Span {
	return Span{start: start, hasStart: true}
}

// SpanTo selects [0, stop).
func SpanTo(stop int) Span {
	return Span{stop: stop, hasStop: true}
}

// WithStep sets an explicit step. Only step 1 is accepted; the model
// supports contiguous sub-ranges only.
func (s Span) WithStep(step int) Span {
	s.step = step
	return s
}

// SliceRC returns the sub-range selected by independent row and column
// spans. An empty selection on either axis yields an empty range with
// Count() == 0.
func (r *Range) SliceRC(rows, cols Span) (*Range, error) {
	rlo, rhi, err := resolveAxisSpan(rows, r.Rows())
	if err != nil {
		return nil, err
	}
	clo, chi, err := resolveAxisSpan(cols, r.Columns())
	if err != nil {
		return nil, err
	}
	if rhi <= rlo || chi <= clo {
		return r.emptyView(), nil
	}

	region := NewRegion(r.region.CellAt(rlo+1, clo+1), r.region.CellAt(rhi, chi))
	return r.derive(region), nil
}

// resolveIndex normalizes one 0-based index with negative wraparound
// against an element count.
func resolveIndex(i, count int) (int, error) {
	if i < 0 {
		if i < -count {
			return 0, &IndexError{Index: i, Count: count}
		}
		return count + i, nil
	}
	if i >= count {
		return 0, &IndexError{Index: i, Count: count}
	}
	return i, nil
}

func resolveAxisSpan(s Span, length int) (int, int, error) {
	if s.step != 0 && s.step != 1 {
		return 0, 0, fmt.Errorf("step %d: %w", s.step, ErrUnsupportedSliceStep)
	}
	return resolveSpan(s.start, s.stop, s.hasStart, s.hasStop, length)
}

// resolveSpan normalizes a half-open [start, stop) interval: missing bounds
// default to 0 and length, negatives count from the end, and bounds outside
// the axis are rejected.
func resolveSpan(start, stop int, hasStart, hasStop bool, length int) (int, int, error) {
	lo := 0
	if hasStart {
		switch {
		case start >= length:
			return 0, 0, &IndexError{Index: start, Count: length}
		case start < -length:
			return 0, 0, &IndexError{Index: start, Count: length}
		case start < 0:
			lo = length + start
		default:
			lo = start
		}
	}

	hi := length
	if hasStop {
		switch {
		case stop > length:
			return 0, 0, &IndexError{Index: stop, Count: length}
		case stop <= -length:
			return 0, 0, &IndexError{Index: stop, Count: length}
		case stop < 0:
			hi = length + stop
		default:
			hi = stop
		}
	}

	return lo, hi, nil
}

// emptyView is the count-zero result of a degenerate slice. It stays bound
// to the sheet but covers no cells.
func (r *Range) emptyView() *Range {
	v := r.derive(r.region)
	v.empty = true
	return v
}
