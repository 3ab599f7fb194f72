package sheetbind

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Converter maps host cell values to and from structured Go values. It is
// the pluggable value-conversion pipeline; the addressing core only routes
// through it.
type Converter interface {
	// Read converts the cell block covered by r into a Go value.
	Read(ctx context.Context, r *Range, opts Options) (interface{}, error)

	// Write converts value and writes it into the cell block covered by r.
	Write(ctx context.Context, value interface{}, r *Range, opts Options) error
}

// BasicConverter is the default Converter: scalars for single cells,
// row-major slices of rows otherwise, with the Options coercions applied.
type BasicConverter struct{}

// Read implements Converter.
func (BasicConverter) Read(ctx context.Context, r *Range, opts Options) (interface{}, error) {
	region := r.Region()
	sheet := r.Sheet()

	rows := make([][]interface{}, region.RowCount())
	for i := 0; i < region.RowCount(); i++ {
		rows[i] = make([]interface{}, region.ColumnCount())
		for j := 0; j < region.ColumnCount(); j++ {
			v, err := sheet.CellValue(ctx, region.TopLeft.Row+i, region.TopLeft.Col+j)
			if err != nil {
				return nil, fmt.Errorf("failed to read cell: %w", err)
			}
			rows[i][j] = coerceValue(v, opts)
		}
	}

	if opts.Transpose {
		rows = transpose(rows)
	}

	switch opts.NDim {
	case 2:
		return rows, nil
	case 1:
		flat := make([]interface{}, 0, len(rows)*len(rows[0]))
		for _, row := range rows {
			flat = append(flat, row...)
		}
		return flat, nil
	default:
		if len(rows) == 1 && len(rows[0]) == 1 {
			return rows[0][0], nil
		}
		return rows, nil
	}
}

// Write implements Converter. It accepts a scalar, a flat slice (written
// along the range's longer axis) or a slice of rows.
func (BasicConverter) Write(ctx context.Context, value interface{}, r *Range, opts Options) error {
	rows := normalizeWriteValue(value, r.Region())
	if opts.Transpose {
		rows = transpose(rows)
	}

	region := r.Region()
	sheet := r.Sheet()
	for i, row := range rows {
		for j, v := range row {
			err := sheet.SetCellValue(ctx, region.TopLeft.Row+i, region.TopLeft.Col+j, v)
			if err != nil {
				return fmt.Errorf("failed to write cell: %w", err)
			}
		}
	}
	return nil
}

// normalizeWriteValue shapes the incoming value into rows. A flat slice is
// laid out along the columns of a single-row range and along the rows of a
// single-column range.
func normalizeWriteValue(value interface{}, region Region) [][]interface{} {
	switch v := value.(type) {
	case [][]interface{}:
		return v
	case []interface{}:
		if region.ColumnCount() == 1 && region.RowCount() > 1 {
			rows := make([][]interface{}, len(v))
			for i, item := range v {
				rows[i] = []interface{}{item}
			}
			return rows
		}
		return [][]interface{}{v}
	default:
		return [][]interface{}{{value}}
	}
}

func transpose(rows [][]interface{}) [][]interface{} {
	if len(rows) == 0 {
		return rows
	}
	out := make([][]interface{}, len(rows[0]))
	for j := range out {
		out[j] = make([]interface{}, len(rows))
		for i := range rows {
			out[j][i] = rows[i][j]
		}
	}
	return out
}

// coerceValue applies the Empty, Numbers and Dates options to one cell
// value.
func coerceValue(v interface{}, opts Options) interface{} {
	if v == nil || v == "" {
		if opts.Empty != nil {
			return opts.Empty
		}
		return v
	}

	switch opts.Numbers {
	case NumberInt:
		if i, ok := asInt64(v); ok {
			return i
		}
	case NumberFloat:
		if f, ok := asFloat64(v); ok {
			return f
		}
	}

	switch opts.Dates {
	case DateTime:
		if t, ok := asTime(v); ok {
			return t
		}
	case DateString:
		if t, ok := v.(time.Time); ok {
			return t.Format(time.RFC3339)
		}
	}

	return v
}

func asInt64(v interface{}) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case float64:
		return int64(val), true
	case string:
		if i, err := strconv.ParseInt(val, 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

func asFloat64(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case string:
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

func asTime(v interface{}) (time.Time, bool) {
	switch val := v.(type) {
	case time.Time:
		return val, true
	case string:
		formats := []string{
			time.RFC3339,
			"2006-01-02 15:04:05",
			"2006-01-02",
		}
		for _, format := range formats {
			if t, err := time.Parse(format, val); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}
