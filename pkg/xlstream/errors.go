package xlstream

import (
	"errors"
	"fmt"
)

// ErrFileNotFound indicates the input file does not exist.
var ErrFileNotFound = errors.New("file not found")

// ErrInvalidFormat indicates the input is not a readable xlsx or xlsb package.
var ErrInvalidFormat = errors.New("invalid workbook format")

// ErrEncrypted indicates the input is a password-protected workbook.
var ErrEncrypted = errors.New("workbook is encrypted")

// ErrSheetNotFound indicates no sheet matches the requested name or index.
var ErrSheetNotFound = errors.New("sheet not found")

// ErrRead indicates a streaming cursor failed mid-sheet.
var ErrRead = errors.New("sheet read error")

// SheetError represents a failure while loading one sheet.
type SheetError struct {
	SheetName string
	Component string // "range", "cursor", "metadata"
	Err       error
}

func (e *SheetError) Error() string {
	return fmt.Sprintf("error in sheet %q (%s): %v", e.SheetName, e.Component, e.Err)
}

func (e *SheetError) Unwrap() error {
	return e.Err
}

// NewSheetError creates a new SheetError.
func NewSheetError(sheetName, component string, err error) *SheetError {
	return &SheetError{
		SheetName: sheetName,
		Component: component,
		Err:       err,
	}
}

// ReadError is the terminal error of a LazySheet. It matches ErrRead with
// errors.Is and unwraps to the underlying cursor error.
type ReadError struct {
	SheetName string
	Err       error
}

func (e *ReadError) Error() string {
	return fmt.Sprintf("read error in sheet %q: %v", e.SheetName, e.Err)
}

func (e *ReadError) Unwrap() []error {
	return []error{ErrRead, e.Err}
}
