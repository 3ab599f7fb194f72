package excel

import "errors"

var (
	// ErrNotSaved is returned when saving a document that has never been
	// given a path
	ErrNotSaved = errors.New("document has never been saved")
)
