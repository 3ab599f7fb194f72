package sheetbind

import "fmt"

// ExpandMode selects a contiguous-region expansion applied when reading a
// Range's value.
type ExpandMode string

const (
	ExpandNone       ExpandMode = ""
	ExpandTable      ExpandMode = "table"
	ExpandVertical   ExpandMode = "vertical"
	ExpandHorizontal ExpandMode = "horizontal"
)

// NumberType selects how numeric cell values are presented.
type NumberType string

const (
	NumberDefault NumberType = ""
	NumberInt     NumberType = "int"
	NumberFloat   NumberType = "float"
)

// DateType selects how date cell values are presented.
type DateType string

const (
	DateDefault DateType = ""
	DateTime    DateType = "time"
	DateString  DateType = "string"
)

// Options configures how a Range reads and writes values. The zero value is
// the default behavior. Unrecognized enumeration values are rejected by
// Validate at Range construction, never silently ignored.
type Options struct {
	// Convert overrides the converter used for value access. Nil selects
	// the session's default converter.
	Convert Converter

	// NDim forces the dimensionality of read values: 0 collapses a single
	// cell to a scalar and a single row/column stays two-dimensional, 1
	// yields a flat slice for single rows or columns, 2 always yields a
	// slice of rows.
	NDim int

	// Numbers coerces numeric cell values (default keeps the backend type).
	Numbers NumberType

	// Dates coerces date cell values (default keeps the backend type).
	Dates DateType

	// Empty substitutes this value for empty cells on read.
	Empty interface{}

	// Transpose swaps rows and columns on read and write.
	Transpose bool

	// Expand applies a contiguous-region expansion before each value read.
	Expand ExpandMode

	// StrictExpand stops expansion at cells whose computed value is blank
	// even when they hold a formula. Slower than the default probe.
	StrictExpand bool
}

// Validate checks the enumerated options.
func (o Options) Validate() error {
	switch o.Expand {
	case ExpandNone, ExpandTable, ExpandVertical, ExpandHorizontal:
	default:
		return fmt.Errorf("unknown expand mode %q: %w", o.Expand, ErrInvalidArguments)
	}
	switch o.Numbers {
	case NumberDefault, NumberInt, NumberFloat:
	default:
		return fmt.Errorf("unknown number type %q: %w", o.Numbers, ErrInvalidArguments)
	}
	switch o.Dates {
	case DateDefault, DateTime, DateString:
	default:
		return fmt.Errorf("unknown date type %q: %w", o.Dates, ErrInvalidArguments)
	}
	if o.NDim < 0 || o.NDim > 2 {
		return fmt.Errorf("ndim must be 0, 1 or 2, got %d: %w", o.NDim, ErrInvalidArguments)
	}
	return nil
}
