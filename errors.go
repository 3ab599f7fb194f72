package sheetbind

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when an identifier matches no open document
	// and no file on disk.
	ErrNotFound = errors.New("document not found")

	// ErrAmbiguousReference is returned when an identifier matches documents
	// in more than one running instance.
	ErrAmbiguousReference = errors.New("ambiguous document reference")

	// ErrZeroBasedAccess is returned when a 0 literal is supplied where
	// 1-based coordinates are required.
	ErrZeroBasedAccess = errors.New("zero-based access to 1-based coordinates")

	// ErrInvalidArguments is returned for malformed constructor call shapes.
	ErrInvalidArguments = errors.New("invalid arguments")

	// ErrIndexOutOfRange is returned when an element index is out of bounds.
	ErrIndexOutOfRange = errors.New("index out of range")

	// ErrUnsupportedSliceStep is returned for slices with a step other than 1.
	ErrUnsupportedSliceStep = errors.New("slice steps not supported")

	// ErrStaleHandle is returned for operations against a closed document
	// or sheet.
	ErrStaleHandle = errors.New("stale handle")

	// ErrSheetNotFound is returned when a sheet name or index does not exist
	// in its document.
	ErrSheetNotFound = errors.New("sheet not found")

	// ErrNameNotFound is returned when a defined name does not exist in its
	// document.
	ErrNameNotFound = errors.New("defined name not found")
)

// NotFoundError reports the identifier that matched no open document and no
// file on disk.
type NotFoundError struct {
	Identifier string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not connect to document %q", e.Identifier)
}

func (e *NotFoundError) Unwrap() error {
	return ErrNotFound
}

// AmbiguousError reports an identifier open in more than one instance.
type AmbiguousError struct {
	Identifier string
	Matches    int
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("document %q is open in %d instances", e.Identifier, e.Matches)
}

func (e *AmbiguousError) Unwrap() error {
	return ErrAmbiguousReference
}

// ZeroBasedAccessError names the axis that received a 0 coordinate.
type ZeroBasedAccessError struct {
	Axis string // "row" or "column"
}

func (e *ZeroBasedAccessError) Error() string {
	return fmt.Sprintf("attempted to access 0-based %s: ranges are 1-based", e.Axis)
}

func (e *ZeroBasedAccessError) Unwrap() error {
	return ErrZeroBasedAccess
}

// IndexError reports an element index outside [0, Count).
type IndexError struct {
	Index int
	Count int
}

func (e *IndexError) Error() string {
	return fmt.Sprintf("index %d out of range (%d elements)", e.Index, e.Count)
}

func (e *IndexError) Unwrap() error {
	return ErrIndexOutOfRange
}
